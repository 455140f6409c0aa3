package account

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/argon2"
)

const (
	argon2ID         = "argon2id"
	argon2SaltLength = 16
	argon2KeyLength  = 32
)

// Argon2Params are the argon2id cost parameters. MemoryCost is in KiB.
type Argon2Params struct {
	TimeCost    uint32
	MemoryCost  uint32
	Parallelism uint8
}

// DefaultArgon2Params returns t=3, m=64MiB, p=2
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{TimeCost: 3, MemoryCost: 64 * 1024, Parallelism: 2}
}

// Argon2Hasher hashes passwords with argon2id, encoded in the PHC string
// format: $argon2id$v=19$m=65536,t=3,p=2$salt$key
type Argon2Hasher struct {
	params Argon2Params
	random io.Reader
}

// NewArgon2Hasher returns an argon2id hasher. Zero parameters fall back
// to DefaultArgon2Params.
func NewArgon2Hasher(params Argon2Params) *Argon2Hasher {
	def := DefaultArgon2Params()
	if params.TimeCost == 0 {
		params.TimeCost = def.TimeCost
	}
	if params.MemoryCost == 0 {
		params.MemoryCost = def.MemoryCost
	}
	if params.Parallelism == 0 {
		params.Parallelism = def.Parallelism
	}
	return &Argon2Hasher{params: params, random: rand.Reader}
}

func (h *Argon2Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	salt := make([]byte, argon2SaltLength)
	if _, err := io.ReadFull(h.random, salt); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read argon2 salt").
			WithTextCode(TextCodeRandomUnavailable)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.TimeCost, h.params.MemoryCost, h.params.Parallelism, argon2KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID, argon2.Version,
		h.params.MemoryCost, h.params.TimeCost, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2Hasher) Verify(password, hash string) (bool, error) {
	if password == "" || hash == "" {
		return false, nil
	}

	decoded, err := decodeArgon2(hash)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(password), decoded.salt,
		decoded.params.TimeCost, decoded.params.MemoryCost, decoded.params.Parallelism,
		uint32(len(decoded.key)))

	return subtle.ConstantTimeCompare(key, decoded.key) == 1, nil
}

// NeedsRehash reports whether hash was encoded with other cost parameters
func (h *Argon2Hasher) NeedsRehash(hash string) bool {
	decoded, err := decodeArgon2(hash)
	if err != nil {
		return false
	}
	return decoded.params != h.params
}

type argon2Hash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func decodeArgon2(encoded string) (*argon2Hash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != argon2ID {
		return nil, goerrors.New("unsupported password hash format", goerrors.CategoryBadInput)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, goerrors.New("unsupported argon2 version", goerrors.CategoryBadInput)
	}

	var out argon2Hash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&out.params.MemoryCost, &out.params.TimeCost, &out.params.Parallelism); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid argon2 parameters")
	}

	var err error
	if out.salt, err = base64.RawStdEncoding.Strict().DecodeString(parts[4]); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid argon2 salt")
	}
	if out.key, err = base64.RawStdEncoding.Strict().DecodeString(parts[5]); err != nil || len(out.key) == 0 {
		return nil, goerrors.New("invalid argon2 key", goerrors.CategoryBadInput)
	}

	return &out, nil
}
