// Package mqttbridge exposes timed-output devices on an MQTT bus.
//
// Topics, relative to the configured prefix:
//
//	<name>/enable        in: command integer; out: <name>/applied
//	<name>/<attr>/set    in: attribute text;  out: <name>/<attr>
package mqttbridge

import (
	"log"
	"strconv"
	"strings"

	"hapticd/internal/timedoutput"
)

// Publisher is the subset of Client the bridge writes to.
type Publisher interface {
	Publish(topic, payload string)
}

type Bridge struct {
	reg    *timedoutput.Registry
	prefix string
	pub    Publisher
}

func NewBridge(reg *timedoutput.Registry, prefix string, pub Publisher) *Bridge {
	return &Bridge{reg: reg, prefix: strings.Trim(prefix, "/"), pub: pub}
}

// Topics returns the subscription filters the bridge serves.
func (b *Bridge) Topics() []string {
	return []string{
		b.prefix + "/+/enable",
		b.prefix + "/+/+/set",
	}
}

// HandleMessage applies one inbound message. Unknown topics, devices and
// attributes are logged and dropped.
func (b *Bridge) HandleMessage(topic string, payload []byte) {
	rest, ok := strings.CutPrefix(topic, b.prefix+"/")
	if !ok {
		return
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 2 && parts[1] == "enable":
		b.handleEnable(parts[0], string(payload))
	case len(parts) == 3 && parts[2] == "set":
		b.handleStore(parts[0], parts[1], string(payload))
	default:
		log.Printf("mqtt: ignoring topic %s", topic)
	}
}

func (b *Bridge) handleEnable(name, payload string) {
	dev, ok := b.reg.Lookup(name)
	if !ok {
		log.Printf("mqtt: no device %q", name)
		return
	}
	v, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 32)
	if err != nil {
		log.Printf("mqtt: %s/enable: bad command %q", name, payload)
		return
	}
	applied := dev.Enable(int32(v))
	b.pub.Publish(b.prefix+"/"+name+"/applied", strconv.Itoa(applied))
}

func (b *Bridge) handleStore(name, attrName, payload string) {
	attr, err := b.reg.Attribute(name, attrName)
	if err != nil {
		log.Printf("mqtt: %s/%s: %v", name, attrName, err)
		return
	}
	if attr.Store != nil {
		attr.Store(payload)
	}
	b.PublishAttribute(name, attr)
}

// PublishAttribute publishes the current value of attr for device name.
func (b *Bridge) PublishAttribute(name string, attr timedoutput.Attribute) {
	if attr.Show == nil {
		return
	}
	b.pub.Publish(b.prefix+"/"+name+"/"+attr.Name, strings.TrimSpace(attr.Show()))
}

// PublishAll publishes every attribute of every registered device.
func (b *Bridge) PublishAll() {
	for _, name := range b.reg.Names() {
		for _, an := range b.reg.Attributes(name) {
			if attr, err := b.reg.Attribute(name, an); err == nil {
				b.PublishAttribute(name, attr)
			}
		}
	}
}
