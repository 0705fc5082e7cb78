package membership

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// AddressSize is the length of a node address in bytes.
const AddressSize = 20

// Address is an opaque node identity. The harness never interprets the
// bytes, it only uses them as map keys and renders them as hex.
type Address string

// GenerateAddress returns a fresh random address.
func GenerateAddress() (Address, error) {
	buf := make([]byte, AddressSize)

	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate address: %w", err)
	}

	return Address(buf), nil
}

// ParseAddress decodes the fixed-width hex form used in snapshot files.
func ParseAddress(s string) (Address, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("failed to decode address %q: %w", s, err)
	}

	if len(raw) != AddressSize {
		return "", fmt.Errorf("address %q has wrong length %d", s, len(raw))
	}

	return Address(raw), nil
}

// Hex returns the fixed-width hex form of the address.
func (a Address) Hex() string {
	return hex.EncodeToString([]byte(a))
}

// Node represents a single simulated cluster member. The address is unique
// within a cluster and never changes once the node is created.
type Node struct {
	Address Address
}

func NewNode(addr Address) Node {
	return Node{Address: addr}
}
