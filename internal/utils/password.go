package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrWeakPassword is returned for passwords bcrypt cannot protect: empty
// ones and ones longer than 72 bytes, which bcrypt would silently truncate.
var ErrWeakPassword = errors.New("password must be 1 to 72 bytes")

// HashPassword hashes a staff password.  cost is clamped to bcrypt's
// accepted range so a misconfigured BCRYPT_COST never blocks account
// creation.
func HashPassword(plain string, cost int) (string, error) {
	if plain == "" || len(plain) > 72 {
		return "", ErrWeakPassword
	}
	switch {
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches hash.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
