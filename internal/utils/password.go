package utils

import "golang.org/x/crypto/bcrypt"

const dummyPassword = "ev-platform-dummy-password"

// dummyHash backs CompareDummy for hashers built without NewPasswordHasher.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte(dummyPassword), bcrypt.MinCost)

// PasswordHasher hashes and verifies passwords with bcrypt at a fixed cost.
type PasswordHasher struct {
	Cost  int
	dummy []byte // digest at Cost, so a failed lookup costs as much as a wrong password
}

// NewPasswordHasher returns a hasher using cost, or bcrypt's default when
// cost is out of range.
func NewPasswordHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	return PasswordHasher{Cost: cost, dummy: dummy}
}

// Hash returns the bcrypt digest of plain.
func (h PasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare safely compares a bcrypt digest and a candidate password.
func (h PasswordHasher) Compare(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// CompareDummy burns one comparison and always reports false.
func (h PasswordHasher) CompareDummy(plain string) bool {
	d := h.dummy
	if d == nil {
		d = dummyHash
	}
	_ = bcrypt.CompareHashAndPassword(d, []byte(plain))
	return false
}
