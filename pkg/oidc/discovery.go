package oidc

const (
	DiscoveryEndpoint = "/.well-known/openid-configuration"
)

// DiscoveryConfiguration is the subset of the OpenID Provider Metadata
// served by a backchannel authentication capable OP.
type DiscoveryConfiguration struct {
	// Issuer is the identifier of the OP and is used in the tokens as `iss` claim.
	Issuer string `json:"issuer,omitempty"`

	// AuthorizationEndpoint is the URL of the OAuth 2.0 Authorization Endpoint.
	// The end-user device is sent there to give consent.
	AuthorizationEndpoint string `json:"authorization_endpoint,omitempty"`

	// TokenEndpoint is the URL of the OAuth 2.0 Token Endpoint where the auth_req_id is redeemed.
	TokenEndpoint string `json:"token_endpoint,omitempty"`

	// JwksURI is the URL of the JSON Web Key Set.
	JwksURI string `json:"jwks_uri,omitempty"`

	// ScopesSupported lists an array of supported scopes.
	ScopesSupported []string `json:"scopes_supported,omitempty"`

	// GrantTypesSupported contains a list of the OAuth 2.0 grant_type values that the OP supports.
	GrantTypesSupported []GrantType `json:"grant_types_supported,omitempty"`

	// TokenEndpointAuthMethodsSupported contains a list of Client Authentication methods supported by the Token Endpoint.
	TokenEndpointAuthMethodsSupported []AuthMethod `json:"token_endpoint_auth_methods_supported,omitempty"`

	// BackchannelAuthenticationEndpoint is the URL of the CIBA Backchannel Authentication Endpoint.
	BackchannelAuthenticationEndpoint string `json:"backchannel_authentication_endpoint,omitempty"`

	// BackchannelTokenDeliveryModesSupported lists the token delivery modes (poll, ping, push) the OP supports.
	BackchannelTokenDeliveryModesSupported []DeliveryMode `json:"backchannel_token_delivery_modes_supported,omitempty"`

	// BackchannelAuthenticationRequestSigningAlgValuesSupported lists the JWS algorithms
	// the OP accepts for signed backchannel authentication requests.
	BackchannelAuthenticationRequestSigningAlgValuesSupported []string `json:"backchannel_authentication_request_signing_alg_values_supported,omitempty"`

	// BackchannelUserCodeParameterSupported indicates whether the OP supports the user_code parameter.
	BackchannelUserCodeParameterSupported bool `json:"backchannel_user_code_parameter_supported"`
}

type AuthMethod string

const (
	AuthMethodBasic AuthMethod = "client_secret_basic"
	AuthMethodPost  AuthMethod = "client_secret_post"
)
