package oidc

const (
	// ScopeOpenID defines the scope `openid`
	// every backchannel authentication request must carry it
	ScopeOpenID = "openid"

	// BearerToken defines the token_type `Bearer`, which is returned in a successful token response
	BearerToken = "Bearer"

	// PrefixBearer is the scheme of the Authorization header sent to the client notification endpoint
	PrefixBearer = BearerToken + " "
)

// DeliveryMode is the backchannel token delivery mode a client registered with.
type DeliveryMode string

const (
	DeliveryModePoll DeliveryMode = "poll"
	DeliveryModePing DeliveryMode = "ping"
	DeliveryModePush DeliveryMode = "push"
)

// Valid reports whether d is one of poll, ping or push.
func (d DeliveryMode) Valid() bool {
	switch d {
	case DeliveryModePoll, DeliveryModePing, DeliveryModePush:
		return true
	}
	return false
}

// RequiresNotificationEndpoint reports whether the mode
// calls back the client notification endpoint.
func (d DeliveryMode) RequiresNotificationEndpoint() bool {
	return d == DeliveryModePing || d == DeliveryModePush
}

// BackchannelAuthenticationRequest represents a request to the backchannel authentication endpoint
// as defined in CIBA Core 1.0, section 7.1.
//
// Client authentication is handled separately,
// the client_id and client_secret fields are only filled for client_secret_post.
type BackchannelAuthenticationRequest struct {
	Scopes SpaceDelimitedArray `schema:"scope,omitempty"`

	// ClientNotificationToken is the bearer token the OP uses to authenticate
	// against the client notification endpoint (required for ping and push).
	ClientNotificationToken string `schema:"client_notification_token,omitempty"`

	ACRValues SpaceDelimitedArray `schema:"acr_values,omitempty"`

	LoginHintToken string `schema:"login_hint_token,omitempty"`
	IDTokenHint    string `schema:"id_token_hint,omitempty"`
	LoginHint      string `schema:"login_hint,omitempty"`

	// BindingMessage is displayed on both the consumption and the authentication device.
	BindingMessage string `schema:"binding_message,omitempty"`

	UserCode string `schema:"user_code,omitempty"`

	// RequestedExpiry is the lifetime in seconds the client asks for the auth_req_id.
	RequestedExpiry *int `schema:"requested_expiry,omitempty"`

	// Request is a signed request object carrying the parameters as claims.
	Request    string `schema:"request,omitempty"`
	RequestURI string `schema:"request_uri,omitempty"`

	ClientID     string `schema:"client_id,omitempty"`
	ClientSecret string `schema:"client_secret,omitempty"`
}

// BackchannelAuthenticationResponse represents the successful response from the backchannel authentication endpoint
// as defined in CIBA Core 1.0, section 7.3.
type BackchannelAuthenticationResponse struct {
	AuthReqID string `json:"auth_req_id"`
	ExpiresIn int    `json:"expires_in"`

	// Interval is the minimum amount of time in seconds that the client should wait between polling requests.
	// It is omitted for the push mode.
	Interval *int `json:"interval,omitempty"`
}

// BackchannelTokenRequest represents a token request using the CIBA grant type
// The client polls the token endpoint with the auth_req_id until the authentication is complete
type BackchannelTokenRequest struct {
	GrantType GrantType `schema:"grant_type,omitempty"`
	AuthReqID string    `schema:"auth_req_id,omitempty"`

	ClientID     string `schema:"client_id,omitempty"`
	ClientSecret string `schema:"client_secret,omitempty"`
}

type AccessTokenResponse struct {
	AccessToken  string `json:"access_token,omitempty" schema:"access_token,omitempty"`
	TokenType    string `json:"token_type,omitempty" schema:"token_type,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty" schema:"refresh_token,omitempty"`
	ExpiresIn    uint64 `json:"expires_in,omitempty" schema:"expires_in,omitempty"`
	IDToken      string `json:"id_token,omitempty" schema:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty" schema:"scope,omitempty"`
}

// PingCallback is posted to the client notification endpoint in ping mode.
type PingCallback struct {
	AuthReqID string `json:"auth_req_id"`
}

// PushTokenCallback is posted to the client notification endpoint in push mode
// once the end-user completed the authentication.
type PushTokenCallback struct {
	AuthReqID    string `json:"auth_req_id"`
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    uint64 `json:"expires_in"`
	IDToken      string `json:"id_token"`
}

// PushErrorCallback is posted to the client notification endpoint in push mode
// when the request ended without tokens.
type PushErrorCallback struct {
	AuthReqID        string `json:"auth_req_id"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// BackchannelRequestObject are the claims of a signed
// backchannel authentication request (CIBA Core 1.0, section 7.1.1).
type BackchannelRequestObject struct {
	Issuer     string   `json:"iss,omitempty"`
	Audience   Audience `json:"aud,omitempty"`
	Expiration Time     `json:"exp,omitempty"`
	IssuedAt   Time     `json:"iat,omitempty"`
	NotBefore  Time     `json:"nbf,omitempty"`
	JWTID      string   `json:"jti,omitempty"`

	Scopes                  SpaceDelimitedArray `json:"scope,omitempty"`
	ClientNotificationToken string              `json:"client_notification_token,omitempty"`
	ACRValues               SpaceDelimitedArray `json:"acr_values,omitempty"`
	LoginHintToken          string              `json:"login_hint_token,omitempty"`
	IDTokenHint             string              `json:"id_token_hint,omitempty"`
	LoginHint               string              `json:"login_hint,omitempty"`
	BindingMessage          string              `json:"binding_message,omitempty"`
	UserCode                string              `json:"user_code,omitempty"`
	RequestedExpiry         *int                `json:"requested_expiry,omitempty"`
}

// LoginHintToken are the claims of a login_hint_token.
// The subject identifies the user by the type named in SubjectType.
type LoginHintToken struct {
	Subject LoginHintSubject `json:"subject"`
}

type LoginHintSubject struct {
	SubjectType string `json:"subject_type"`
	Subject     string `json:"sub,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// Value returns the identifier matching the subject type.
func (s LoginHintSubject) Value() string {
	switch s.SubjectType {
	case "email":
		return s.Email
	case "phone", "phone_number":
		return s.PhoneNumber
	default:
		return s.Subject
	}
}
