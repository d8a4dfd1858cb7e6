package op

import (
	"errors"
	"net/url"
	"strings"
)

const (
	defaultBackchannelEndpoint = "bc-authorize"
	defaultTokenEndpoint       = "oauth/token"
	defaultDecisionEndpoint    = "bc-authorize/decision"
	defaultMetricsEndpoint     = "metrics"
)

var (
	ErrIssuerInvalidScheme = errors.New("scheme for issuer must be `https`")
	ErrIssuerNoHost        = errors.New("host for issuer missing")
	ErrIssuerQuery         = errors.New("no query allowed for issuer")
	ErrIssuerFragment      = errors.New("no fragment allowed for issuer")
)

// Config of the HTTP surface.
type Config struct {
	Issuer string `yaml:"issuer" validate:"required,url"`

	// Insecure allows an http issuer, for development only.
	Insecure bool `yaml:"insecure"`

	// AuthorizationEndpoint is where the end-user device gives consent.
	// It is only advertised in the discovery document.
	AuthorizationEndpoint string `yaml:"authorizationEndpoint" validate:"omitempty,url"`
	JwksURI               string `yaml:"jwksUri" validate:"omitempty,url"`

	ScopesSupported []string `yaml:"scopesSupported"`
}

type Endpoints struct {
	BackchannelAuthentication Endpoint
	Token                     Endpoint
	Decision                  Endpoint
	Metrics                   Endpoint
}

var DefaultEndpoints = Endpoints{
	BackchannelAuthentication: NewEndpoint(defaultBackchannelEndpoint),
	Token:                     NewEndpoint(defaultTokenEndpoint),
	Decision:                  NewEndpoint(defaultDecisionEndpoint),
	Metrics:                   NewEndpoint(defaultMetricsEndpoint),
}

// ValidateIssuer checks the issuer is a plain https URL,
// or http when insecure is set.
func ValidateIssuer(issuer string, insecure bool) error {
	if issuer == "" {
		return ErrIssuerNoHost
	}
	u, err := url.Parse(issuer)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return ErrIssuerNoHost
	}
	if u.Scheme != "https" && !(insecure && u.Scheme == "http") {
		return ErrIssuerInvalidScheme
	}
	if u.RawQuery != "" || strings.Contains(issuer, "?") {
		return ErrIssuerQuery
	}
	if u.Fragment != "" || strings.Contains(issuer, "#") {
		return ErrIssuerFragment
	}
	return nil
}
