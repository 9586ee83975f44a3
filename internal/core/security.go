// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var errMalformedHash = errors.New("malformed password hash")

// argonParams is the cost profile stored alongside every password hash.
type argonParams struct {
	memory  uint32
	passes  uint32
	threads uint8
	keyLen  uint32
}

var currentParams = argonParams{
	memory:  64 * 1024,
	passes:  1,
	threads: 4,
	keyLen:  32,
}

const passwordSaltLen = 16

func (p argonParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.passes, p.memory, p.threads, p.keyLen)
}

func (p argonParams) encode(salt, key []byte) string {
	enc := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.passes, p.threads,
		enc.EncodeToString(salt), enc.EncodeToString(key))
}

// parsePasswordHash splits a PHC style argon2id string into its parts.
func parsePasswordHash(encoded string) (argonParams, []byte, []byte, error) {
	var p argonParams

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[1] != "argon2id" {
		return p, nil, nil, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: version %q", errMalformedHash, fields[2])
	}

	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.passes, &p.threads); err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", errMalformedHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt: %v", errMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: key: %v", errMalformedHash, err)
	}

	//nolint:gosec // G115: argon2 keys are 32 bytes
	p.keyLen = uint32(len(key))
	return p, salt, key, nil
}

func HashPassword(password string) (string, error) {
	salt := make([]byte, passwordSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return currentParams.encode(salt, currentParams.derive(password, salt)), nil
}

// decoyHash is verified against when the account does not exist, so a
// login for an unknown email costs the same as a wrong password.
var decoyHash = sync.OnceValue(func() string {
	h, err := HashPassword("forum-decoy-password")
	if err != nil {
		panic(fmt.Sprintf("security: build decoy hash: %v", err))
	}
	return h
})

// CheckPassword reports whether password matches stored. An empty stored
// hash always fails after the same amount of work. When the match used an
// older cost profile, rehash carries a fresh hash for the caller to save.
func CheckPassword(password, stored string) (ok bool, rehash string, err error) {
	target := stored
	if target == "" {
		target = decoyHash()
	}

	params, salt, key, err := parsePasswordHash(target)
	if err != nil {
		return false, "", err
	}

	match := subtle.ConstantTimeCompare(key, params.derive(password, salt)) == 1
	if !match || stored == "" {
		return false, "", nil
	}

	if params != currentParams {
		if fresh, hashErr := HashPassword(password); hashErr == nil {
			rehash = fresh
		}
	}
	return true, rehash, nil
}

// GenerateRefreshToken returns 32 random bytes, URL-safe encoded.
func GenerateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

// HashToken is the lookup key refresh tokens are stored under.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
