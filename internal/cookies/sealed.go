package cookies

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/hkdf"
)

var ErrSecretTooShort = errors.New("cookie secret must be at least 32 bytes")

const (
	hashInfo  = "ims-dashboard cookie hash v2"
	blockInfo = "ims-dashboard cookie block v2"
)

// Sealer holds the cookie codecs. The first secret signs and encrypts new
// values; the rest are only tried when reading, so secrets can be rotated
// without logging everybody out.
type Sealer struct {
	codecs []securecookie.Codec
}

func NewSealer(secret string, previous ...string) (*Sealer, error) {
	secrets := append([]string{secret}, previous...)
	codecs := make([]securecookie.Codec, 0, len(secrets))
	for _, sec := range secrets {
		if len(sec) < 32 {
			return nil, ErrSecretTooShort
		}
		hashKey, err := deriveKey(sec, hashInfo, 64)
		if err != nil {
			return nil, err
		}
		blockKey, err := deriveKey(sec, blockInfo, 32)
		if err != nil {
			return nil, err
		}
		// expiry is left to the cookie's own MaxAge
		codecs = append(codecs, securecookie.New(hashKey, blockKey).
			SetSerializer(securecookie.NopEncoder{}).
			MaxAge(0))
	}
	return &Sealer{codecs: codecs}, nil
}

func deriveKey(secret, info string, size int) ([]byte, error) {
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive cookie key: %w", err)
	}
	return key, nil
}

// Wrap seals values written to inner.
func (k *Sealer) Wrap(inner Store) *Sealed {
	return &Sealed{inner: inner, codecs: k.codecs}
}

// Sealed signs and encrypts cookie values before handing them to the
// wrapped store. The cookie name is part of the signature so values cannot
// be swapped between cookies.
type Sealed struct {
	inner  Store
	codecs []securecookie.Codec
}

func NewSealed(inner Store, secret string, previous ...string) (*Sealed, error) {
	k, err := NewSealer(secret, previous...)
	if err != nil {
		return nil, err
	}
	return k.Wrap(inner), nil
}

// Get returns false for values that fail to open.
func (s *Sealed) Get(name string) (string, bool) {
	raw, ok := s.inner.Get(name)
	if !ok {
		return "", false
	}
	var plain []byte
	if err := securecookie.DecodeMulti(name, raw, &plain, s.codecs...); err != nil {
		return "", false
	}
	return string(plain), true
}

func (s *Sealed) Set(c *http.Cookie) error {
	if c.MaxAge < 0 {
		return s.inner.Set(c)
	}
	sealed, err := securecookie.EncodeMulti(c.Name, []byte(c.Value), s.codecs...)
	if err != nil {
		return fmt.Errorf("seal cookie %s: %w", c.Name, err)
	}
	cp := *c
	cp.Value = sealed
	return s.inner.Set(&cp)
}

func (s *Sealed) Delete(name string) error {
	return s.inner.Delete(name)
}
