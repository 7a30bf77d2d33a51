package web

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// HostSnapshot is board health reported alongside device state.
type HostSnapshot struct {
	CPUTempC   *float64 `json:"cpu_temp_c,omitempty"`
	LocalAddrs []string `json:"local_addrs,omitempty"`
	LastError  string   `json:"last_error,omitempty"`
}

var cpuTempPath = "/sys/class/thermal/thermal_zone0/temp"

// parseCPUTempC accepts milli-degrees (52345) or whole degrees (52).
func parseCPUTempC(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("cpu temp empty")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse cpu temp %q: %w", s, err)
	}
	if n > 1000 {
		return float64(n) / 1000.0, nil
	}
	return float64(n), nil
}

func readCPUTempC(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read cpu temp: %w", err)
	}
	return parseCPUTempC(string(b))
}
