package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes account secrets with bcrypt at a fixed cost.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher; cost <= 0 selects bcrypt.DefaultCost.
func NewHasher(cost int) Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return Hasher{Cost: cost}
}

// Hash hashes a plain password.
func (h Hasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	return string(bytes), err
}

// Check compares plain password with hashed password.
func (h Hasher) Check(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// HashPassword hashes a plain password using bcrypt.DefaultCost.
func HashPassword(password string) (string, error) {
	return NewHasher(0).Hash(password)
}

// CheckPassword compares plain password with hashed password.
func CheckPassword(plain, hashed string) bool {
	return NewHasher(0).Check(plain, hashed)
}
