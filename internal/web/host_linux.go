//go:build linux

package web

import (
	"net"
	"sort"
)

func snapshotHost() *HostSnapshot {
	h := &HostSnapshot{LocalAddrs: localInterfaceAddrs()}
	if v, err := readCPUTempC(cpuTempPath); err == nil {
		h.CPUTempC = &v
	} else {
		h.LastError = err.Error()
	}
	return h
}

// localInterfaceAddrs lists non-loopback IPv4 addresses as "iface: cidr".
func localInterfaceAddrs() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var out []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil || ip4.IsLoopback() || ip4.IsLinkLocalUnicast() {
				continue
			}
			out = append(out, iface.Name+": "+ipnet.String())
		}
	}
	sort.Strings(out)
	return out
}
