// Package tokens implements refresh-token issuance and the rotation /
// reuse-detection lifecycle on top of the credential store.
package tokens

import (
	"time"

	"github.com/nileauth/nileauth/internal/shared"
)

// tokenBytes is the entropy of a refresh token before hex encoding.
// 48 bytes = 384 bits, far past the point where collisions matter.
const tokenBytes = 48

// Issuer mints opaque refresh-token identifiers and computes their expiry.
type Issuer struct {
	ttl time.Duration
}

func NewIssuer(ttl time.Duration) *Issuer {
	return &Issuer{ttl: ttl}
}

// Generate returns a fresh token drawn from crypto/rand.
func (i *Issuer) Generate() (string, error) {
	return shared.MakeRandHexString(tokenBytes)
}

// Expiry returns the absolute expiry timestamp for a token minted now.
// The value is set once at creation and never extended.
func (i *Issuer) Expiry() time.Time {
	return time.Now().Add(i.ttl)
}
