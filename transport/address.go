package transport

import (
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/opd-ai/noisewire/crypto"
)

// AddressType classifies the host part of a peer endpoint. The protocol
// core never interprets these; they only decide how a connection is opened
// (direct TCP for clearnet, SOCKS5 proxy for onion services).
type AddressType uint8

const (
	// AddressTypeIPv4 represents IPv4 addresses.
	AddressTypeIPv4 AddressType = 0x01
	// AddressTypeIPv6 represents IPv6 addresses.
	AddressTypeIPv6 AddressType = 0x02
	// AddressTypeOnionV2 represents legacy 16-character Tor onion services.
	AddressTypeOnionV2 AddressType = 0x03
	// AddressTypeOnionV3 represents 56-character v3 Tor onion services.
	AddressTypeOnionV3 AddressType = 0x04
	// AddressTypeUnknown represents unrecognized address formats.
	AddressTypeUnknown AddressType = 0xFF
)

// String returns a human-readable representation of the AddressType.
func (at AddressType) String() string {
	switch at {
	case AddressTypeIPv4:
		return "IPv4"
	case AddressTypeIPv6:
		return "IPv6"
	case AddressTypeOnionV2:
		return "OnionV2"
	case AddressTypeOnionV3:
		return "OnionV3"
	case AddressTypeUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("AddressType(%d)", uint8(at))
	}
}

const (
	onionSuffix  = ".onion"
	onionV2Label = 16
	onionV3Label = 56
)

// NodeAddress is a structured peer endpoint: host class, port, and
// optionally the peer's known static public key. The key is required to
// dial (the initiator must know the responder's identity in advance) but
// not to describe an endpoint.
//
// The canonical string form is "<hex-public-key>@<host>:<port>", with the
// key part optional.
type NodeAddress struct {
	Type AddressType
	Host string
	Port uint16
	// PublicKey is the node's static Curve25519 public key, nil when
	// unknown.
	PublicKey []byte
}

// ParseNodeAddress parses the canonical endpoint form, accepting IPv4,
// IPv6 (bracketed when a port is present) and onion v2/v3 hosts, with an
// optional "<hex-public-key>@" prefix.
func ParseNodeAddress(s string) (*NodeAddress, error) {
	addr := &NodeAddress{}

	rest := s
	if at := strings.IndexByte(s, '@'); at >= 0 {
		keyHex := s[:at]
		rest = s[at+1:]
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("%w: public key part is not hex: %q", ErrInvalidAddress, keyHex)
		}
		if len(key) != crypto.KeySize {
			return nil, fmt.Errorf("%w: public key must be %d bytes, got %d",
				ErrInvalidAddress, crypto.KeySize, len(key))
		}
		addr.PublicKey = key
	}

	host, portStr, err := net.SplitHostPort(rest)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: use <host>:<port>", ErrInvalidAddress, rest)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: bad port %q", ErrInvalidAddress, portStr)
	}
	addr.Host = host
	addr.Port = uint16(port)

	addr.Type, err = classifyHost(host)
	if err != nil {
		return nil, err
	}
	return addr, nil
}

// classifyHost determines the address type of a bare host string.
func classifyHost(host string) (AddressType, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() != nil {
			return AddressTypeIPv4, nil
		}
		return AddressTypeIPv6, nil
	}

	if strings.HasSuffix(host, onionSuffix) {
		label := strings.TrimSuffix(host, onionSuffix)
		if !isBase32Label(label) {
			return AddressTypeUnknown, fmt.Errorf("%w: onion label %q is not base32", ErrInvalidAddress, label)
		}
		switch len(label) {
		case onionV2Label:
			return AddressTypeOnionV2, nil
		case onionV3Label:
			return AddressTypeOnionV3, nil
		default:
			return AddressTypeUnknown, fmt.Errorf("%w: onion label must be %d or %d characters, got %d",
				ErrInvalidAddress, onionV2Label, onionV3Label, len(label))
		}
	}

	return AddressTypeUnknown, fmt.Errorf("%w: %q is not an IPv4, IPv6 or onion address", ErrInvalidAddress, host)
}

// isBase32Label reports whether s consists only of the base32 alphabet used
// by onion addresses (a-z, 2-7, lowercase).
func isBase32Label(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < '2' || c > '7') {
			return false
		}
	}
	return true
}

// IsOnion reports whether the endpoint is a Tor onion service, which can
// only be reached through a SOCKS5 proxy.
func (na *NodeAddress) IsOnion() bool {
	return na.Type == AddressTypeOnionV2 || na.Type == AddressTypeOnionV3
}

// Network returns the network name for net.Addr compatibility: "tcp" for
// clearnet endpoints and "tor" for onion services.
func (na *NodeAddress) Network() string {
	if na.IsOnion() {
		return "tor"
	}
	return "tcp"
}

// HostPort returns the dialable "<host>:<port>" form, bracketing IPv6
// literals.
func (na *NodeAddress) HostPort() string {
	return net.JoinHostPort(na.Host, strconv.Itoa(int(na.Port)))
}

// String returns the canonical endpoint form, including the public key
// prefix when known.
func (na *NodeAddress) String() string {
	hostPort := na.HostPort()
	if len(na.PublicKey) == 0 {
		return hostPort
	}
	return hex.EncodeToString(na.PublicKey) + "@" + hostPort
}
