package auth

import "golang.org/x/crypto/bcrypt"

func normalizeCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), normalizeCost(cost))
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// DummyHash hashes a throwaway password at cost. Comparing against it when an
// account does not exist makes unknown usernames cost the same as wrong
// passwords, so cost must match the one real hashes use.
func DummyHash(cost int) []byte {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("support-desk-dummy"), normalizeCost(cost))
	return hashed
}

// BurnCompare performs a throwaway comparison against dummy.
func BurnCompare(dummy []byte, plain string) {
	_ = bcrypt.CompareHashAndPassword(dummy, []byte(plain))
}
