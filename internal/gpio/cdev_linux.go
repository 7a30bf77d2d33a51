//go:build linux

package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "hapticd"

// outputOptions requests the enable line driven low with no pull resistor.
var outputOptions = []gpiocdev.LineReqOption{gpiocdev.AsOutput(0), gpiocdev.WithBiasDisabled}

// CdevLine drives one output line through the GPIO character device.
type CdevLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// OpenCdev requests name (e.g. "GPIO17") as an output, initially low, with
// bias disabled.
// An empty chip scans every /dev/gpiochip* for the named line.
func OpenCdev(chip, name string) (*CdevLine, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("gpio: empty line name")
	}

	var candidates []string
	if chip != "" {
		candidates = []string{chip}
	} else {
		entries, _ := os.ReadDir(devDir)
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), "gpiochip") {
				candidates = append(candidates, filepath.Join(devDir, e.Name()))
			}
		}
	}

	for _, chipPath := range candidates {
		c, err := gpiocdev.NewChip(chipPath, gpiocdev.WithConsumer(consumer))
		if err != nil {
			continue
		}
		offset, err := c.FindLine(name)
		if err != nil {
			_ = c.Close()
			continue
		}
		l, err := c.RequestLine(offset, outputOptions...)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("gpio: request %s on %s: %w", name, chipPath, err)
		}
		return &CdevLine{chip: c, line: l}, nil
	}
	return nil, fmt.Errorf("gpio: line %q not found", name)
}

var devDir = "/dev"

func (g *CdevLine) Set(high bool) error {
	if g == nil || g.line == nil {
		return fmt.Errorf("gpio: line not open")
	}
	v := 0
	if high {
		v = 1
	}
	return g.line.SetValue(v)
}

// Close drives the line low before releasing it.
func (g *CdevLine) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	_ = g.line.SetValue(0)
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
