package header

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// AuthorityIDLength is the size of an authority public key.
const AuthorityIDLength = 32

// ErrInvalidAuthorityID is returned when decoding an authority id of the wrong size.
var ErrInvalidAuthorityID = errors.New("invalid authority id: expected 32 bytes")

// AuthorityID is the public key of a block-producing or finalizing authority.
type AuthorityID [AuthorityIDLength]byte

// String returns the hexadecimal representation prefixed with "0x".
func (id AuthorityID) String() string {
	return "0x" + common.Bytes2Hex(id[:])
}

// AuthorityIDFromString parses a hex string, with or without "0x" prefix.
func AuthorityIDFromString(str string) (AuthorityID, error) {
	b := common.FromHex(str)
	if len(b) != AuthorityIDLength {
		return AuthorityID{}, fmt.Errorf("%w: got %d", ErrInvalidAuthorityID, len(b))
	}
	var id AuthorityID
	copy(id[:], b)
	return id, nil
}

// MarshalText implements encoding.TextMarshaler.
func (id AuthorityID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *AuthorityID) UnmarshalText(input []byte) error {
	res, err := AuthorityIDFromString(string(input))
	if err != nil {
		return err
	}
	*id = res
	return nil
}

// Authority is a weighted member of an authority set. Aura ignores the weight.
type Authority struct {
	ID     AuthorityID `json:"id"`
	Weight uint64      `json:"weight"`
}

// CopyAuthorities returns an independent copy of the list. A nil list stays nil and an
// empty list stays empty.
func CopyAuthorities(list []Authority) []Authority {
	if list == nil {
		return nil
	}
	cp := make([]Authority, len(list))
	copy(cp, list)
	return cp
}

// AuthoritiesEqual reports whether both lists hold the same authorities in the same order.
func AuthoritiesEqual(a, b []Authority) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// BabeAllowedSlots is the policy of which kind of Babe slots may author blocks.
type BabeAllowedSlots uint8

const (
	// PrimarySlots allows only primary (VRF-won) slots.
	PrimarySlots BabeAllowedSlots = iota
	// PrimaryAndSecondaryPlainSlots allows primary and round-robin secondary slots.
	PrimaryAndSecondaryPlainSlots
	// PrimaryAndSecondaryVRFSlots allows primary and secondary slots carrying a VRF output.
	PrimaryAndSecondaryVRFSlots
)

// Valid reports whether s is one of the defined policies.
func (s BabeAllowedSlots) Valid() bool {
	return s <= PrimaryAndSecondaryVRFSlots
}

func (s BabeAllowedSlots) String() string {
	switch s {
	case PrimarySlots:
		return "primary"
	case PrimaryAndSecondaryPlainSlots:
		return "primary-and-secondary-plain"
	case PrimaryAndSecondaryVRFSlots:
		return "primary-and-secondary-vrf"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// ParseBabeAllowedSlots is the inverse of BabeAllowedSlots.String.
func ParseBabeAllowedSlots(s string) (BabeAllowedSlots, error) {
	for _, v := range []BabeAllowedSlots{PrimarySlots, PrimaryAndSecondaryPlainSlots, PrimaryAndSecondaryVRFSlots} {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown babe allowed slots %q", s)
}
