// Package utils holds small platform helpers with no natural home in
// any single spec component: local-interface enumeration, a
// human-readable byte formatter for CLI progress output, and a
// hostname-derived default device alias.
package utils

import (
	"fmt"
	"net"
	"os"
	"strings"
)

// GetAllLocalIPs returns a slice of all non-loopback local IPv4
// addresses; IPv6 addresses are skipped.
func GetAllLocalIPs() ([]string, error) {
	var ips []string
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, i := range interfaces {
		addrs, err := i.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}

			if ip == nil || ip.IsLoopback() {
				continue
			}
			ip = ip.To4()
			if ip == nil {
				continue // not an ipv4 address
			}
			ips = append(ips, ip.String())
		}
	}

	if len(ips) == 0 {
		return nil, fmt.Errorf("no network interfaces found")
	}
	return ips, nil
}

// FormatBytes converts a number of bytes into a human-readable string.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

// GenerateNodeName derives a friendly device alias from the hostname.
func GenerateNodeName() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-device"
	}

	cleanName := strings.Replace(hostname, ".", "-", -1)
	cleanName = strings.Replace(cleanName, " ", "-", -1)

	return cleanName
}
