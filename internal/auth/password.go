package auth

import "golang.org/x/crypto/bcrypt"

// Staff credentials are stored as bcrypt hashes only. The cost comes
// from configuration; a value outside bcrypt's supported range falls
// back to the library default so a bad env var cannot weaken hashing.
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

// ComparePassword reports whether plain matches the stored staff hash.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
