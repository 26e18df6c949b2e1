package auth

import (
	"errors"

	"github.com/dmitrijs2005/shipledger/internal/common"
	"golang.org/x/crypto/bcrypt"
)

const DefaultBcryptCost = 10

// BcryptHasher hashes and verifies account secrets.
type BcryptHasher struct {
	cost      int
	dummyHash []byte
}

// NewBcryptHasher returns a hasher with the given work factor. Costs outside
// the bcrypt range fall back to DefaultBcryptCost.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}

	secret, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return nil, err
	}

	return &BcryptHasher{cost: cost, dummyHash: dummy}, nil
}

func (h *BcryptHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("empty secret")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether secret matches hash. A malformed hash is reported
// as a mismatch.
func (h *BcryptHasher) Verify(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// VerifyDummy spends the same work as Verify against a fixed hash. Login
// calls it for unknown accounts so response timing does not reveal whether
// an identifier exists.
func (h *BcryptHasher) VerifyDummy(secret string) {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(secret))
}
