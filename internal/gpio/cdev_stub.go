//go:build !linux

package gpio

import "fmt"

type CdevLine struct{}

func OpenCdev(chip, name string) (*CdevLine, error) {
	return nil, fmt.Errorf("gpio: character device unsupported on this platform")
}

func (g *CdevLine) Set(high bool) error { return fmt.Errorf("gpio: unsupported") }
func (g *CdevLine) Close() error        { return nil }
