package account

import (
	"crypto/rand"
	"encoding/base64"
	"io"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultTokenEntropy is the entropy in bits of every lifecycle token
const DefaultTokenEntropy = 512

// TokenLength returns the length of the rendered token for entropy bits
func TokenLength(entropy int) int {
	return (entropy + 5) / 6
}

// RandomToken returns a URL safe token carrying entropy bits read from r.
// The result is base64 URL without padding, so its length is
// ceil(entropy / 6) and 512 bits yield 86 characters.
func RandomToken(r io.Reader, entropy int) (string, error) {
	if entropy <= 0 || entropy%8 != 0 {
		return "", ErrInvalidEntropy
	}
	if r == nil {
		r = rand.Reader
	}

	buf := make([]byte, entropy/8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read secure random bytes").
			WithTextCode(TextCodeRandomUnavailable)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
