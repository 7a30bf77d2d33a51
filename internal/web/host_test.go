package web

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseCPUTempC(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"52345\n", 52.345, false},
		{"52", 52, false},
		{"\n", 0, true},
		{"hot", 0, true},
	}
	for _, tc := range cases {
		got, err := parseCPUTempC(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("parseCPUTempC(%q) err=%v wantErr=%v", tc.in, err, tc.wantErr)
		}
		if !tc.wantErr && (got < tc.want-0.001 || got > tc.want+0.001) {
			t.Fatalf("parseCPUTempC(%q)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestReadCPUTempC(t *testing.T) {
	p := filepath.Join(t.TempDir(), "temp")
	if err := os.WriteFile(p, []byte("42000\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	v, err := readCPUTempC(p)
	if err != nil {
		t.Fatalf("readCPUTempC: %v", err)
	}
	if v != 42 {
		t.Fatalf("v=%v want 42", v)
	}
	if _, err := readCPUTempC(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
