package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plaintext credential with the configured cost. Costs
// outside bcrypt's valid range fall back to the library default so a bad
// config value cannot break account creation at runtime.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword reports whether plain matches the stored hash. A nil result
// means match.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
