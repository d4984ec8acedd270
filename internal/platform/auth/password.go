package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks password against a bcrypt hash or a legacy
// "salt$sha256hex(password+salt)" hash.
func VerifyPassword(password, hash string) bool {
	if strings.HasPrefix(hash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}

	salt, digest, ok := strings.Cut(hash, "$")
	if !ok || salt == "" {
		if hash != "" {
			log.Warn().Msg("unrecognised password hash format")
		}
		return false
	}
	sum := sha256.Sum256([]byte(password + salt))
	return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(digest)) == 1
}

// NeedsRehash reports whether hash should be replaced by a bcrypt hash.
func NeedsRehash(hash string) bool {
	return !strings.HasPrefix(hash, "$2")
}
