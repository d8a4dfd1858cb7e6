package op

import (
	"net/http"

	"github.com/zitadel/ciba/pkg/ciba"
	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

var DefaultSupportedScopes = []string{
	oidc.ScopeOpenID,
	"profile",
	"email",
	"phone",
	"address",
}

func discoveryHandler(o *Provider) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		Discover(w, CreateDiscoveryConfig(o.config, o.endpoints, o.service.Config()))
	}
}

func Discover(w http.ResponseWriter, config *oidc.DiscoveryConfiguration) {
	httphelper.MarshalJSON(w, config)
}

// CreateDiscoveryConfig builds the provider metadata.
// The backchannel authentication metadata is omitted while CIBA is disabled.
func CreateDiscoveryConfig(config *Config, endpoints Endpoints, cibaConfig *ciba.Config) *oidc.DiscoveryConfiguration {
	disc := &oidc.DiscoveryConfiguration{
		Issuer:                            config.Issuer,
		AuthorizationEndpoint:             config.AuthorizationEndpoint,
		TokenEndpoint:                     endpoints.Token.Absolute(config.Issuer),
		JwksURI:                           config.JwksURI,
		ScopesSupported:                   Scopes(config),
		TokenEndpointAuthMethodsSupported: []oidc.AuthMethod{oidc.AuthMethodBasic, oidc.AuthMethodPost},
	}
	if !cibaConfig.Enabled {
		return disc
	}
	disc.GrantTypesSupported = GrantTypes(cibaConfig)
	disc.BackchannelAuthenticationEndpoint = endpoints.BackchannelAuthentication.Absolute(config.Issuer)
	disc.BackchannelTokenDeliveryModesSupported = cibaConfig.DeliveryModes
	disc.BackchannelAuthenticationRequestSigningAlgValuesSupported = cibaConfig.RequestSigningAlgs
	disc.BackchannelUserCodeParameterSupported = cibaConfig.UserCodeSupported
	return disc
}

func Scopes(config *Config) []string {
	if len(config.ScopesSupported) > 0 {
		return config.ScopesSupported
	}
	return DefaultSupportedScopes
}

// GrantTypes returns the configured grant types,
// always including the CIBA grant.
func GrantTypes(cibaConfig *ciba.Config) []oidc.GrantType {
	if cibaConfig.SupportsGrantType(oidc.GrantTypeCIBA) {
		return cibaConfig.GrantTypes
	}
	return append([]oidc.GrantType{oidc.GrantTypeCIBA}, cibaConfig.GrantTypes...)
}
