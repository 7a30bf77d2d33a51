//go:build linux

package gpio

import (
	"reflect"
	"testing"

	"github.com/warthog618/go-gpiocdev"
)

func TestOpenCdev_EmptyName(t *testing.T) {
	if _, err := OpenCdev("", " "); err == nil {
		t.Fatalf("expected error for empty line name")
	}
}

func TestOpenCdev_NoChips(t *testing.T) {
	old := devDir
	devDir = t.TempDir()
	t.Cleanup(func() { devDir = old })

	if _, err := OpenCdev("", "GPIO17"); err == nil {
		t.Fatalf("expected not found with no gpiochips")
	}
}

func TestOutputOptions_BiasDisabled(t *testing.T) {
	for _, opt := range outputOptions {
		if reflect.DeepEqual(opt, gpiocdev.LineReqOption(gpiocdev.WithBiasDisabled)) {
			return
		}
	}
	t.Fatalf("enable line requested without bias disabled")
}
