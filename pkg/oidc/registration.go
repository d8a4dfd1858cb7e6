package oidc

import (
	"encoding/json"
)

// SubjectType values of the client metadata.
const (
	SubjectTypePublic   = "public"
	SubjectTypePairwise = "pairwise"
)

// BackchannelClientMetadata is the part of the client metadata
// (OpenID Connect Dynamic Client Registration 1.0 and CIBA Core 1.0, section 4)
// which is relevant to register a client for backchannel authentication.
type BackchannelClientMetadata struct {
	GrantTypes          []GrantType     `json:"grant_types,omitempty"`
	SubjectType         string          `json:"subject_type,omitempty"`
	SectorIdentifierURI string          `json:"sector_identifier_uri,omitempty"`
	JWKS                json.RawMessage `json:"jwks,omitempty"`
	JWKSURI             string          `json:"jwks_uri,omitempty"`

	BackchannelTokenDeliveryMode               DeliveryMode `json:"backchannel_token_delivery_mode,omitempty"`
	BackchannelClientNotificationEndpoint      string       `json:"backchannel_client_notification_endpoint,omitempty"`
	BackchannelAuthenticationRequestSigningAlg string       `json:"backchannel_authentication_request_signing_alg,omitempty"`
	BackchannelUserCodeParameter               bool         `json:"backchannel_user_code_parameter,omitempty"`
}

// BackchannelRegistrationResponse are the CIBA fields
// added to the client information response.
type BackchannelRegistrationResponse struct {
	BackchannelTokenDeliveryMode               DeliveryMode `json:"backchannel_token_delivery_mode,omitempty"`
	BackchannelClientNotificationEndpoint      string       `json:"backchannel_client_notification_endpoint,omitempty"`
	BackchannelAuthenticationRequestSigningAlg string       `json:"backchannel_authentication_request_signing_alg,omitempty"`
	BackchannelUserCodeParameter               bool         `json:"backchannel_user_code_parameter"`
}
