package mqttbridge

import (
	"reflect"
	"strconv"
	"testing"

	"hapticd/internal/timedoutput"
)

type fakePub struct {
	msgs [][2]string
}

func (p *fakePub) Publish(topic, payload string) {
	p.msgs = append(p.msgs, [2]string{topic, payload})
}

type fakeDevice struct {
	got []int32
}

func (d *fakeDevice) Enable(v int32) int {
	d.got = append(d.got, v)
	return int(v & 0xFFFF)
}

func (d *fakeDevice) Remaining() int { return 0 }

func newTestBridge(t *testing.T) (*Bridge, *fakeDevice, *fakePub, *int) {
	t.Helper()
	reg := timedoutput.NewRegistry()
	dev := &fakeDevice{}
	if err := reg.Register("vibrator", dev); err != nil {
		t.Fatalf("Register: %v", err)
	}
	duty := 33
	err := reg.AddAttribute("vibrator", timedoutput.Attribute{
		Name: "duty",
		Show: func() string { return strconv.Itoa(duty) + "\n" },
		Store: func(s string) {
			if v, err := strconv.Atoi(s); err == nil {
				duty = v
			}
		},
	})
	if err != nil {
		t.Fatalf("AddAttribute: %v", err)
	}
	pub := &fakePub{}
	return NewBridge(reg, "/hapticd/", pub), dev, pub, &duty
}

func TestBridge_Topics(t *testing.T) {
	b, _, _, _ := newTestBridge(t)
	want := []string{"hapticd/+/enable", "hapticd/+/+/set"}
	if got := b.Topics(); !reflect.DeepEqual(got, want) {
		t.Fatalf("topics=%v want %v", got, want)
	}
}

func TestBridge_EnablePublishesApplied(t *testing.T) {
	b, dev, pub, _ := newTestBridge(t)

	b.HandleMessage("hapticd/vibrator/enable", []byte(" 250\n"))

	if !reflect.DeepEqual(dev.got, []int32{250}) {
		t.Fatalf("enable calls=%v", dev.got)
	}
	want := [][2]string{{"hapticd/vibrator/applied", "250"}}
	if !reflect.DeepEqual(pub.msgs, want) {
		t.Fatalf("published=%v want %v", pub.msgs, want)
	}
}

func TestBridge_DropsBadMessages(t *testing.T) {
	b, dev, pub, _ := newTestBridge(t)

	b.HandleMessage("hapticd/vibrator/enable", []byte("soon"))
	b.HandleMessage("hapticd/buzzer/enable", []byte("100"))
	b.HandleMessage("hapticd/vibrator/volume/set", []byte("3"))
	b.HandleMessage("other/vibrator/enable", []byte("100"))
	b.HandleMessage("hapticd/vibrator", []byte("100"))

	if len(dev.got) != 0 || len(pub.msgs) != 0 {
		t.Fatalf("enable calls=%v published=%v want none", dev.got, pub.msgs)
	}
}

func TestBridge_AttributeSetPublishesReadBack(t *testing.T) {
	b, _, pub, duty := newTestBridge(t)

	b.HandleMessage("hapticd/vibrator/duty/set", []byte("70"))
	b.HandleMessage("hapticd/vibrator/duty/set", []byte("junk"))

	if *duty != 70 {
		t.Fatalf("duty=%d want 70", *duty)
	}
	want := [][2]string{
		{"hapticd/vibrator/duty", "70"},
		{"hapticd/vibrator/duty", "70"},
	}
	if !reflect.DeepEqual(pub.msgs, want) {
		t.Fatalf("published=%v want %v", pub.msgs, want)
	}
}

func TestBridge_PublishAll(t *testing.T) {
	b, _, pub, _ := newTestBridge(t)
	b.PublishAll()
	want := [][2]string{{"hapticd/vibrator/duty", "33"}}
	if !reflect.DeepEqual(pub.msgs, want) {
		t.Fatalf("published=%v want %v", pub.msgs, want)
	}
}

func TestNewClient_DisabledWithoutHost(t *testing.T) {
	c, err := NewClient(Config{}, Handlers{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Enabled() {
		t.Fatalf("client enabled without host")
	}
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect on disabled client: %v", err)
	}
	c.Publish("x", "y")
	c.Disconnect()
}

func TestNewClient_BadCACert(t *testing.T) {
	_, err := NewClient(Config{Host: "localhost", CACert: "/nonexistent/ca.pem"}, Handlers{})
	if err == nil {
		t.Fatalf("expected error for missing ca cert")
	}
}
