package auth

import "github.com/alexedwards/argon2id"

// HashPassword hashes a guest self-service password with argon2id defaults.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, argon2id.DefaultParams)
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(password, hash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(password, hash)
}
