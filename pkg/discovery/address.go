package discovery

import (
	"net"
	"sort"
	"strings"
)

// SortIPsByPreference sorts addresses by how likely a UDP client can reach
// them without extra configuration.
// Priority order (highest to lowest):
//  1. IPv4
//  2. Global unicast IPv6
//  3. Unique Local IPv6 (fc00::/7)
//  4. Link-local IPv6 (fe80::/10), which needs a zone to dial
//  5. Loopback
func SortIPsByPreference(ips []net.IP) []net.IP {
	if len(ips) <= 1 {
		return ips
	}

	// Make a copy to avoid modifying the original slice
	sorted := make([]net.IP, len(ips))
	copy(sorted, ips)

	sort.SliceStable(sorted, func(i, j int) bool {
		return ipPriority(sorted[i]) < ipPriority(sorted[j])
	})

	return sorted
}

// ipPriority returns the priority of an IP address (lower is better).
func ipPriority(ip net.IP) int {
	if ip.To16() == nil {
		return 99
	}

	switch {
	case ip.IsLoopback():
		return 80
	case ip.IsMulticast():
		return 90
	case ip.To4() != nil:
		return 0
	case isUniqueLocal(ip):
		return 2
	case ip.IsGlobalUnicast():
		return 1
	case ip.IsLinkLocalUnicast():
		return 3
	default:
		return 10
	}
}

// isUniqueLocal returns true if the IP is an IPv6 Unique Local Address (ULA).
// ULA range: fc00::/7 (fc00:: to fdff::)
func isUniqueLocal(ip net.IP) bool {
	ip = ip.To16()
	if ip == nil || ip.To4() != nil {
		return false
	}
	return ip[0] == 0xfc || ip[0] == 0xfd
}

// TXT record keys advertised by servers.
const (
	// TXTKeyName is the human-readable server name.
	TXTKeyName = "n"

	// TXTKeyVersion is the protocol version the server speaks.
	TXTKeyVersion = "v"
)

// ParseTXT parses "key=value" TXT records into a map.
// Records without '=' or with an empty key are skipped.
func ParseTXT(records []string) map[string]string {
	result := make(map[string]string)
	for _, record := range records {
		if idx := strings.IndexByte(record, '='); idx > 0 {
			result[record[:idx]] = record[idx+1:]
		}
	}
	return result
}
