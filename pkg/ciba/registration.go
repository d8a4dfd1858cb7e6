package ciba

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-jose/go-jose/v3"
	"golang.org/x/exp/slog"

	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

// SectorIdentifierFetcher returns the URIs listed in the document
// at a sector_identifier_uri.
type SectorIdentifierFetcher interface {
	FetchSectorIdentifier(ctx context.Context, uri string) ([]string, error)
}

// HTTPSectorIdentifierFetcher fetches the JSON array of URIs with a GET request.
type HTTPSectorIdentifierFetcher struct {
	Client *http.Client
}

func (f HTTPSectorIdentifierFetcher) FetchSectorIdentifier(ctx context.Context, uri string) ([]string, error) {
	client := f.Client
	if client == nil {
		client = httphelper.DefaultHTTPClient
	}
	var uris []string
	if err := httphelper.GetJSON(ctx, client, uri, &uris); err != nil {
		return nil, fmt.Errorf("sector identifier %s: %w", uri, err)
	}
	return uris, nil
}

// RegistrationValidator checks the backchannel authentication
// metadata of a client registration.
type RegistrationValidator struct {
	config  *Config
	fetcher SectorIdentifierFetcher
	logger  *slog.Logger
}

func NewRegistrationValidator(config *Config, fetcher SectorIdentifierFetcher, logger *slog.Logger) *RegistrationValidator {
	if fetcher == nil {
		fetcher = HTTPSectorIdentifierFetcher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrationValidator{
		config:  config,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Validate reports whether the registration is acceptable.
// Registrations without any backchannel metadata are accepted.
func (v *RegistrationValidator) Validate(ctx context.Context, md *oidc.BackchannelClientMetadata) bool {
	ok, _ := v.ValidateParams(ctx, md)
	return ok
}

// ValidateParams is Validate which additionally returns the effective
// backchannel_user_code_parameter, forced to false if the server does not support it.
func (v *RegistrationValidator) ValidateParams(ctx context.Context, md *oidc.BackchannelClientMetadata) (ok bool, userCodeParameter bool) {
	userCodeParameter = md.BackchannelUserCodeParameter && v.config.UserCodeSupported
	if err := v.validate(ctx, md); err != nil {
		v.logger.DebugContext(ctx, "backchannel client registration rejected", "error", err)
		return false, userCodeParameter
	}
	return true, userCodeParameter
}

func (v *RegistrationValidator) validate(ctx context.Context, md *oidc.BackchannelClientMetadata) error {
	mode := md.BackchannelTokenDeliveryMode
	if mode == "" && isBlank(md.BackchannelClientNotificationEndpoint) && md.BackchannelAuthenticationRequestSigningAlg == "" {
		return nil
	}
	if !mode.Valid() || !v.config.SupportsDeliveryMode(mode) {
		return fmt.Errorf("unsupported delivery mode %q", mode)
	}
	if alg := md.BackchannelAuthenticationRequestSigningAlg; alg != "" && !containsString(v.config.RequestSigningAlgs, alg) {
		return fmt.Errorf("unsupported request signing alg %q", alg)
	}
	if mode.RequiresNotificationEndpoint() && isBlank(md.BackchannelClientNotificationEndpoint) {
		return fmt.Errorf("%s mode requires a client notification endpoint", mode)
	}
	pollsTokenEndpoint := mode == oidc.DeliveryModePing || mode == oidc.DeliveryModePoll
	if pollsTokenEndpoint && (!v.config.SupportsGrantType(oidc.GrantTypeCIBA) || !containsGrantType(md.GrantTypes, oidc.GrantTypeCIBA)) {
		return fmt.Errorf("%s mode requires the grant type %s", mode, oidc.GrantTypeCIBA)
	}
	if len(md.JWKS) > 0 {
		var keySet jose.JSONWebKeySet
		if err := json.Unmarshal(md.JWKS, &keySet); err != nil {
			return fmt.Errorf("invalid jwks: %w", err)
		}
	}
	if md.SubjectType != oidc.SubjectTypePairwise {
		return nil
	}
	if pollsTokenEndpoint && len(md.JWKS) == 0 && isBlank(md.JWKSURI) {
		return fmt.Errorf("pairwise %s client requires jwks or jwks_uri", mode)
	}
	if isBlank(md.SectorIdentifierURI) {
		return nil
	}
	uris, err := v.fetcher.FetchSectorIdentifier(ctx, md.SectorIdentifierURI)
	if err != nil {
		return err
	}
	switch {
	case pollsTokenEndpoint && !isBlank(md.JWKSURI) && !containsString(uris, md.JWKSURI):
		return fmt.Errorf("jwks_uri %s not listed by sector identifier", md.JWKSURI)
	case mode == oidc.DeliveryModePush && !containsString(uris, md.BackchannelClientNotificationEndpoint):
		return fmt.Errorf("notification endpoint %s not listed by sector identifier", md.BackchannelClientNotificationEndpoint)
	}
	return nil
}

// RegistrationResponse returns the backchannel fields of the client information response.
func RegistrationResponse(client Client) oidc.BackchannelRegistrationResponse {
	return oidc.BackchannelRegistrationResponse{
		BackchannelTokenDeliveryMode:               client.DeliveryMode(),
		BackchannelClientNotificationEndpoint:      client.NotificationEndpoint(),
		BackchannelAuthenticationRequestSigningAlg: client.RequestSigningAlg(),
		BackchannelUserCodeParameter:               client.UserCodeRequired(),
	}
}

func containsGrantType(list []oidc.GrantType, grantType oidc.GrantType) bool {
	for _, g := range list {
		if g == grantType {
			return true
		}
	}
	return false
}
