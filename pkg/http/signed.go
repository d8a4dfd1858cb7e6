package http

import (
	"github.com/gorilla/securecookie"
)

// SignedValues encodes values into tamper proof strings
// which can travel through untrusted parties, like query parameters of a deep link.
type SignedValues struct {
	codec *securecookie.SecureCookie
}

func NewSignedValues(hashKey, encryptKey []byte, opts ...SignedValuesOpt) *SignedValues {
	s := &SignedValues{
		codec: securecookie.New(hashKey, encryptKey),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SignedValuesOpt func(*SignedValues)

// WithMaxAge limits the lifetime of encoded values in seconds.
func WithMaxAge(maxAge int) SignedValuesOpt {
	return func(s *SignedValues) {
		s.codec.MaxAge(maxAge)
	}
}

func (s *SignedValues) Encode(name string, value any) (string, error) {
	return s.codec.Encode(name, value)
}

func (s *SignedValues) Decode(name, encoded string, dst any) error {
	return s.codec.Decode(name, encoded, dst)
}
