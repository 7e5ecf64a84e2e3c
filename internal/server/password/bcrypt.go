// Package password wraps the one-way password hashing primitive behind a
// small interface so the orchestration layer never sees the algorithm.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/nileauth/nileauth/internal/shared"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 12

// Hasher is the hashing collaborator: an opaque one-way function with a
// verify operation.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool

	// DummyVerify burns the cost of a real verification against a
	// throwaway digest. Callers use it on the unknown-account login path
	// so a miss costs the same as a wrong password.
	DummyVerify(password string)
}

// Bcrypt implements Hasher on top of golang.org/x/crypto/bcrypt.
type Bcrypt struct {
	cost  int
	dummy []byte
}

// NewBcrypt constructs a Bcrypt hasher with the given work factor. A cost of
// zero selects DefaultCost. The dummy digest is derived from a random
// plaintext at the same cost, so DummyVerify matches the timing profile of a
// real verification.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	seed, err := shared.MakeRandHexString(16)
	if err != nil {
		return nil, fmt.Errorf("error generating dummy seed: %w", err)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(seed), cost)
	if err != nil {
		return nil, fmt.Errorf("error generating dummy digest: %w", err)
	}

	return &Bcrypt{cost: cost, dummy: dummy}, nil
}

func (b *Bcrypt) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

func (b *Bcrypt) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (b *Bcrypt) DummyVerify(password string) {
	_ = bcrypt.CompareHashAndPassword(b.dummy, []byte(password))
}
