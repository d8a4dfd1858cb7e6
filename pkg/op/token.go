package op

import (
	"net/http"
	"strings"

	"github.com/zitadel/ciba/pkg/ciba"
	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

func (o *Provider) tokenHandler(w http.ResponseWriter, r *http.Request) {
	if err := o.BackchannelAccessToken(w, r); err != nil {
		WriteError(w, r, err, o.requestLogger(r))
	}
}

// BackchannelAccessToken redeems an auth_req_id at the token endpoint.
// Other grant types are not served by this provider.
func (o *Provider) BackchannelAccessToken(w http.ResponseWriter, r *http.Request) error {
	ctx, span := tracer.Start(r.Context(), "BackchannelAccessToken")
	r = r.WithContext(ctx)
	defer span.End()

	client, err := AuthenticatedClient(r, o)
	if err != nil {
		return err
	}
	req := new(oidc.BackchannelTokenRequest)
	if err := o.decoder.Decode(req, r.PostForm); err != nil {
		return oidc.ErrInvalidRequest().WithDescription("cannot parse token request").WithParent(err)
	}
	if req.GrantType != oidc.GrantTypeCIBA {
		return oidc.ErrUnsupportedGrantType().WithDescription("%s not supported", req.GrantType)
	}
	if req.AuthReqID == "" {
		return oidc.ErrInvalidRequest().WithDescription("auth_req_id missing")
	}
	if !ValidateGrantType(client, oidc.GrantTypeCIBA) {
		return oidc.ErrUnauthorizedClient().WithDescription("client missing grant type %s", oidc.GrantTypeCIBA)
	}

	grant, err := o.grants.Resolve(ctx, client.GetID(), req.AuthReqID)
	if err != nil {
		return err
	}
	httphelper.MarshalJSON(w, TokenResponse(grant))
	return nil
}

func TokenResponse(grant *ciba.Grant) *oidc.AccessTokenResponse {
	return &oidc.AccessTokenResponse{
		AccessToken:  grant.Tokens.AccessToken,
		TokenType:    grant.Tokens.TokenType,
		RefreshToken: grant.Tokens.RefreshToken,
		ExpiresIn:    grant.Tokens.ExpiresIn,
		IDToken:      grant.Tokens.IDToken,
		Scope:        strings.Join(grant.Scopes, " "),
	}
}

// ValidateGrantType reports whether the client registered grantType.
func ValidateGrantType(client ciba.Client, grantType oidc.GrantType) bool {
	if client == nil {
		return false
	}
	for _, grant := range client.GrantTypes() {
		if grant == grantType {
			return true
		}
	}
	return false
}
