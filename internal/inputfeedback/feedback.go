// Package inputfeedback turns key presses on an input device into short
// haptic clicks.
package inputfeedback

import (
	"context"
	"fmt"
	"log"

	"github.com/kenshaw/evdev"

	"hapticd/internal/haptic"
	"hapticd/internal/timedoutput"
)

type Feedback struct {
	dev    *evdev.Evdev
	target timedoutput.Device
	click  haptic.Command
}

// Open starts reading path (e.g. /dev/input/event0). Each key press sends
// a clickMs pulse at clickDuty percent (0 keeps the device default).
func Open(path string, target timedoutput.Device, clickMs, clickDuty int) (*Feedback, error) {
	if target == nil {
		return nil, fmt.Errorf("inputfeedback: no target device")
	}
	dev, err := evdev.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("inputfeedback: open evdev %s: %w", path, err)
	}
	log.Printf("inputfeedback: opened %s (%s)", path, dev.Name())
	return newFeedback(dev, target, clickMs, clickDuty), nil
}

func newFeedback(dev *evdev.Evdev, target timedoutput.Device, clickMs, clickDuty int) *Feedback {
	return &Feedback{
		dev:    dev,
		target: target,
		click:  haptic.Encode(clickDuty, clickMs),
	}
}

// Run forwards presses until ctx is done or the device goes away.
func (f *Feedback) Run(ctx context.Context) error {
	ch := f.dev.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-ch:
			if event == nil {
				return fmt.Errorf("inputfeedback: device closed")
			}
			f.handle(event.Type, event.Value)
		}
	}
}

// handle clicks on key-down only; repeats (2) and releases (0) are ignored.
func (f *Feedback) handle(typ interface{}, value int32) bool {
	if _, ok := typ.(evdev.KeyType); !ok || value != 1 {
		return false
	}
	f.target.Enable(int32(f.click))
	return true
}

func (f *Feedback) Close() error {
	if f.dev == nil {
		return nil
	}
	return f.dev.Close()
}
