package crypto

import (
	"encoding/json"
	"errors"

	"github.com/go-jose/go-jose/v3"
)

var ErrMissingSigner = errors.New("missing signer")

// Sign serializes object as JSON and returns it as compact JWS.
func Sign(object any, signer jose.Signer) (string, error) {
	payload, err := json.Marshal(object)
	if err != nil {
		return "", err
	}
	return SignPayload(payload, signer)
}

func SignPayload(payload []byte, signer jose.Signer) (string, error) {
	if signer == nil {
		return "", ErrMissingSigner
	}
	result, err := signer.Sign(payload)
	if err != nil {
		return "", err
	}
	return result.CompactSerialize()
}
