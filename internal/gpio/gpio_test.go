package gpio

import (
	"reflect"
	"testing"
)

func TestSim_SetAndClose(t *testing.T) {
	s := NewSim()
	if err := s.Set(true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !s.High() {
		t.Fatalf("high=false want true")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.High() {
		t.Fatalf("line left high after Close")
	}
}

func TestOpen_RejectsInvalidPins(t *testing.T) {
	for _, pin := range []int{-1, 54} {
		if _, err := OpenVattu(pin); err == nil {
			t.Fatalf("OpenVattu(%d): expected error", pin)
		}
		if _, err := OpenMemmap(pin); err == nil {
			t.Fatalf("OpenMemmap(%d): expected error", pin)
		}
	}
}

type fakeMemmapPin struct{ calls []string }

func (p *fakeMemmapPin) Output()   { p.calls = append(p.calls, "output") }
func (p *fakeMemmapPin) PullNone() { p.calls = append(p.calls, "pullnone") }
func (p *fakeMemmapPin) High()     { p.calls = append(p.calls, "high") }
func (p *fakeMemmapPin) Low()      { p.calls = append(p.calls, "low") }

func TestOpenMemmap_LowOutputWithoutPull(t *testing.T) {
	pin := &fakeMemmapPin{}
	opens, closes := 0, 0
	oldOpen, oldClose, oldPin := memmapOpenFn, memmapCloseFn, newMemmapPin
	memmapOpenFn = func() error { opens++; return nil }
	memmapCloseFn = func() error { closes++; return nil }
	newMemmapPin = func(int) memmapPin { return pin }
	t.Cleanup(func() { memmapOpenFn, memmapCloseFn, newMemmapPin = oldOpen, oldClose, oldPin })

	l, err := OpenMemmap(17)
	if err != nil {
		t.Fatalf("OpenMemmap: %v", err)
	}
	if want := []string{"low", "output", "pullnone"}; !reflect.DeepEqual(pin.calls, want) {
		t.Fatalf("calls=%v want %v", pin.calls, want)
	}
	_ = l.Set(true)
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if want := []string{"low", "output", "pullnone", "high", "low"}; !reflect.DeepEqual(pin.calls, want) {
		t.Fatalf("calls=%v want %v", pin.calls, want)
	}
	if opens != 1 || closes != 1 {
		t.Fatalf("opens=%d closes=%d want 1/1", opens, closes)
	}
}
