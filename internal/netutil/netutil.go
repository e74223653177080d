// Package netutil provides local network lookups and IPv4 range helpers.
package netutil

import (
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"strings"
)

// probeAddress is only used to select the outgoing interface; no packet is sent.
const probeAddress = "8.8.8.8:80"

// LocalIPByDefaultRoute returns the source address the kernel would use for
// traffic leaving through the default route.
func LocalIPByDefaultRoute() (string, error) {
	conn, err := net.Dial("udp", probeAddress)
	if err != nil {
		return "", fmt.Errorf("determine default route address: %w", err)
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("unexpected local address %s", conn.LocalAddr())
	}
	return addr.IP.String(), nil
}

// LocalIPAddresses lists the non-loopback IPv4 addresses of this host.
func LocalIPAddresses() ([]string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("list interface addresses: %w", err)
	}

	var out []string
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() || ipNet.IP.To4() == nil {
			continue
		}
		out = append(out, ipNet.IP.String())
	}
	return out, nil
}

// Hostname returns the short host name.
func Hostname() (string, error) {
	return os.Hostname()
}

// FQDN resolves the fully qualified name of this host, falling back to the
// host name when no reverse record exists.
func FQDN() (string, error) {
	host, err := os.Hostname()
	if err != nil {
		return "", err
	}

	addrs, err := net.LookupHost(host)
	if err != nil || len(addrs) == 0 {
		return host, nil
	}
	for _, addr := range addrs {
		names, err := net.LookupAddr(addr)
		if err != nil {
			continue
		}
		for _, name := range names {
			name = strings.TrimSuffix(name, ".")
			if strings.Contains(name, ".") {
				return name, nil
			}
		}
	}
	return host, nil
}

// HostRange describes the usable addresses of an IPv4 network.
type HostRange struct {
	First  string
	Second string
	Last   string
	Prefix int
}

// Hosts returns the first, second and last usable host of cidr.
func Hosts(cidr string) (HostRange, error) {
	first, err := CIDRHost(cidr, 1)
	if err != nil {
		return HostRange{}, err
	}
	second, err := CIDRHost(cidr, 2)
	if err != nil {
		return HostRange{}, err
	}
	last, err := CIDRHost(cidr, -2)
	if err != nil {
		return HostRange{}, err
	}

	_, network, _ := net.ParseCIDR(cidr)
	prefix, _ := network.Mask.Size()
	if prefix > 30 {
		return HostRange{}, fmt.Errorf("network %s is too small for an allocation range", cidr)
	}
	return HostRange{First: first, Second: second, Last: last, Prefix: prefix}, nil
}

// CIDRHost returns the address at hostnum inside prefix. Negative numbers
// count back from the broadcast address, -1 being the broadcast itself.
func CIDRHost(prefix string, hostnum int) (string, error) {
	_, network, err := net.ParseCIDR(prefix)
	if err != nil {
		return "", fmt.Errorf("invalid CIDR prefix: %w", err)
	}
	ip4 := network.IP.To4()
	if ip4 == nil {
		return "", fmt.Errorf("only IPv4 networks are supported, got %s", prefix)
	}

	maskSize, totalBits := network.Mask.Size()
	maxHosts := uint64(1) << (totalBits - maskSize)

	var offset uint64
	if hostnum < 0 {
		abs := uint64(-hostnum)
		if abs > maxHosts {
			return "", fmt.Errorf("host number %d exceeds max hosts %d", hostnum, maxHosts)
		}
		offset = maxHosts - abs
	} else {
		offset = uint64(hostnum)
		if offset >= maxHosts {
			return "", fmt.Errorf("host number %d exceeds max hosts %d", hostnum, maxHosts)
		}
	}

	value := uint64(binary.BigEndian.Uint32(ip4)) + offset
	out := make(net.IP, 4)
	// #nosec G115
	binary.BigEndian.PutUint32(out, uint32(value))
	return out.String(), nil
}

// BridgeAddress formats gateway with the prefix length of cidr.
func BridgeAddress(gateway, cidr string) (string, error) {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return "", fmt.Errorf("invalid CIDR prefix: %w", err)
	}
	if net.ParseIP(gateway) == nil {
		return "", fmt.Errorf("invalid gateway address %q", gateway)
	}
	prefix, _ := network.Mask.Size()
	return fmt.Sprintf("%s/%d", gateway, prefix), nil
}
