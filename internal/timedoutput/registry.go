// Package timedoutput is a small device framework for actuators that turn on
// for a requested time and switch themselves off.
//
// A device registers under a unique name and may publish string attributes
// alongside its enable/remaining surface. Transport layers (HTTP, MQTT, the
// console) only ever talk to devices through a Registry.
package timedoutput

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrExists        = errors.New("timedoutput: already registered")
	ErrNotRegistered = errors.New("timedoutput: not registered")
	ErrNoAttribute   = errors.New("timedoutput: no such attribute")
)

// Device is what a timed output exposes to callers.
type Device interface {
	// Enable requests the output on; value is device specific. It returns
	// the value actually applied.
	Enable(value int32) int
	// Remaining reports milliseconds left before the output switches off.
	Remaining() int
}

// Attribute is a text read/write endpoint attached to a device.
//
// Store never fails: a value it cannot use is ignored.
type Attribute struct {
	Name  string
	Show  func() string
	Store func(value string)
}

type Registry struct {
	mu      sync.RWMutex
	devices map[string]Device
	attrs   map[string]map[string]Attribute
}

func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]Device),
		attrs:   make(map[string]map[string]Attribute),
	}
}

// key normalizes a device name. Every method looks devices up through it so
// a name registers and unregisters under the same key.
func key(name string) string { return strings.TrimSpace(name) }

func (r *Registry) Register(name string, dev Device) error {
	name = key(name)
	if name == "" {
		return fmt.Errorf("timedoutput: empty device name")
	}
	if dev == nil {
		return fmt.Errorf("timedoutput: nil device %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[name]; ok {
		return fmt.Errorf("%w: %q", ErrExists, name)
	}
	r.devices[name] = dev
	return nil
}

// Unregister removes the device. Its attributes stay until removed, matching
// sysfs where files are torn down separately.
func (r *Registry) Unregister(name string) {
	name = key(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, name)
}

func (r *Registry) Lookup(name string) (Device, bool) {
	name = key(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	dev, ok := r.devices[name]
	return dev, ok
}

// Names returns registered device names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.devices))
	for name := range r.devices {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (r *Registry) AddAttribute(device string, attr Attribute) error {
	if attr.Name == "" || attr.Show == nil || attr.Store == nil {
		return fmt.Errorf("timedoutput: incomplete attribute %q", attr.Name)
	}
	if attr.Name == "enable" {
		return fmt.Errorf("%w: %q is reserved", ErrExists, attr.Name)
	}
	device = key(device)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[device]; !ok {
		return fmt.Errorf("%w: %q", ErrNotRegistered, device)
	}
	set := r.attrs[device]
	if set == nil {
		set = make(map[string]Attribute)
		r.attrs[device] = set
	}
	if _, ok := set[attr.Name]; ok {
		return fmt.Errorf("%w: %s/%s", ErrExists, device, attr.Name)
	}
	set[attr.Name] = attr
	return nil
}

func (r *Registry) RemoveAttribute(device, name string) {
	device = key(device)
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.attrs[device]
	delete(set, name)
	if len(set) == 0 {
		delete(r.attrs, device)
	}
}

// Attribute returns a live attribute of a registered device.
func (r *Registry) Attribute(device, name string) (Attribute, error) {
	device = key(device)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.devices[device]; !ok {
		return Attribute{}, fmt.Errorf("%w: %q", ErrNotRegistered, device)
	}
	attr, ok := r.attrs[device][name]
	if !ok {
		return Attribute{}, fmt.Errorf("%w: %s/%s", ErrNoAttribute, device, name)
	}
	return attr, nil
}

// Attributes lists attribute names of a device in sorted order.
func (r *Registry) Attributes(device string) []string {
	device = key(device)
	r.mu.RLock()
	set := r.attrs[device]
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
