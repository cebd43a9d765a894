// Package solanaaddr validates Solana account addresses used as
// contract identifiers in blueprints.
package solanaaddr

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

var (
	// ErrInvalidAddress indicates the address is not valid base58 or
	// does not decode to 32 bytes.
	ErrInvalidAddress = errors.New("invalid solana address")

	// ErrOffCurve indicates a program derived address where a token
	// mint was expected.
	ErrOffCurve = errors.New("address is off-curve (program derived)")
)

// Validate checks that addr is a well-formed Solana address:
// base58-encoded 32 bytes.
func Validate(addr string) error {
	if addr == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("%w: decoded length %d, want 32", ErrInvalidAddress, len(decoded))
	}

	return nil
}

// ValidateMint checks that addr is a plausible token mint: well-formed
// and on-curve. Mints are created from keypairs and sit on the curve;
// off-curve addresses are PDAs (pools, vaults, authorities) that carry
// no tradable token.
func ValidateMint(addr string) error {
	if err := Validate(addr); err != nil {
		return err
	}
	if !IsOnCurve(addr) {
		return fmt.Errorf("%w: %s", ErrOffCurve, addr)
	}
	return nil
}

// IsOnCurve reports whether the address decodes to a point on the
// ed25519 curve. Regular wallet addresses are on-curve; program
// derived addresses are off-curve.
func IsOnCurve(addr string) bool {
	decoded, err := base58.Decode(addr)
	if err != nil || len(decoded) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}
