package conntable

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Handle is the transport's identifier for a connection.
type Handle uint16

// Addr is a 48-bit peer device address, stored most significant byte first.
type Addr [6]byte

// ParseAddr parses an address in the "AA:BB:CC:DD:EE:FF" form.
func ParseAddr(s string) (Addr, error) {
	var addr Addr

	parts := strings.Split(s, ":")
	if len(parts) != len(addr) {
		return addr, fmt.Errorf("%w: %q", ErrInvalidAddr, s)
	}
	for i, part := range parts {
		if len(part) != 2 {
			return addr, fmt.Errorf("%w: %q", ErrInvalidAddr, s)
		}
		if _, err := hex.Decode(addr[i:i+1], []byte(part)); err != nil {
			return addr, fmt.Errorf("%w: %q", ErrInvalidAddr, s)
		}
	}

	return addr, nil
}

// String returns the address in the "AA:BB:CC:DD:EE:FF" form.
func (a Addr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// Role is the side of the logical stream an endpoint plays on a connection.
type Role uint8

const (
	// RoleUnknown means the role has not been established yet.
	RoleUnknown Role = iota
	// RoleClient sends with write-without-response.
	RoleClient
	// RoleServer sends with notifications.
	RoleServer
)

// IsClient returns if the role is client.
func (r Role) IsClient() bool { return r == RoleClient }

// IsServer returns if the role is server.
func (r Role) IsServer() bool { return r == RoleServer }

// String returns string representation of the role.
func (r Role) String() string {
	switch r {
	case RoleUnknown:
		return "unknown"
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return "invalid"
	}
}
