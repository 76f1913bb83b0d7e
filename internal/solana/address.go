package solana

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// IsValidAddress reports whether s is a syntactically valid Solana
// address: base58 (Bitcoin alphabet) decoding to exactly 32 bytes.
func IsValidAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(raw) == 32
}

// IsOnCurve reports whether the address decodes to a point on the
// ed25519 curve. Regular wallet keypairs are on-curve; program-derived
// addresses are not, so this is a stricter check suited to
// operator-entered wallet addresses.
func IsOnCurve(s string) bool {
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
