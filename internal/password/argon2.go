package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	hashTime    uint32 = 3
	hashMemory  uint32 = 64 * 1024
	hashThreads uint8  = 2
	hashKeyLen  uint32 = 32
	hashSaltLen        = 16
)

// Argon2Params are the argon2id cost settings. Zero fields take defaults.
type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

// Argon2Hasher encodes hashes as $argon2id$v=19$m=..,t=..,p=..$salt$key.
type Argon2Hasher struct {
	params Argon2Params
}

var _ Hasher = (*Argon2Hasher)(nil)

// NewArgon2Hasher builds an argon2id hasher.
func NewArgon2Hasher(params Argon2Params) *Argon2Hasher {
	if params.Time == 0 {
		params.Time = hashTime
	}
	if params.Memory == 0 {
		params.Memory = hashMemory
	}
	if params.Threads == 0 {
		params.Threads = hashThreads
	}
	return &Argon2Hasher{params: params}
}

// Hash returns an argon2id hash string including parameters and salt.
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, hashSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	p := h.params
	sum := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, hashKeyLen)
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(sum)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Time,
		p.Threads,
		encodedSalt,
		encodedHash,
	), nil
}

// Verify checks a password against the encoded argon2id hash using the
// parameters stored in the hash, not the hasher's current ones.
func (h *Argon2Hasher) Verify(password, hash string) (bool, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	version, err := parseVersion(parts[2])
	if err != nil || version != argon2.Version {
		return false, ErrInvalidHash
	}

	mem, timeCost, threads, err := parseParams(parts[3])
	if err != nil {
		return false, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrInvalidHash
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false, ErrInvalidHash
	}

	actual := argon2.IDKey([]byte(password), salt, timeCost, mem, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

func parseVersion(value string) (int, error) {
	if !strings.HasPrefix(value, "v=") {
		return 0, ErrInvalidHash
	}
	return strconv.Atoi(strings.TrimPrefix(value, "v="))
}

func parseParams(value string) (uint32, uint32, uint8, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return 0, 0, 0, ErrInvalidHash
	}

	mem, err := parseUint32Param(parts[0], "m=")
	if err != nil {
		return 0, 0, 0, ErrInvalidHash
	}
	timeCost, err := parseUint32Param(parts[1], "t=")
	if err != nil || timeCost == 0 {
		return 0, 0, 0, ErrInvalidHash
	}
	threadsVal, err := parseUint32Param(parts[2], "p=")
	if err != nil || threadsVal == 0 || threadsVal > 255 {
		return 0, 0, 0, ErrInvalidHash
	}
	return mem, timeCost, uint8(threadsVal), nil
}

func parseUint32Param(value, prefix string) (uint32, error) {
	if !strings.HasPrefix(value, prefix) {
		return 0, ErrInvalidHash
	}
	parsed, err := strconv.ParseUint(strings.TrimPrefix(value, prefix), 10, 32)
	if err != nil {
		return 0, ErrInvalidHash
	}
	return uint32(parsed), nil
}
