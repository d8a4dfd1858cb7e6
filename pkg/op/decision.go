package op

import (
	"context"
	"net/http"

	"github.com/zitadel/ciba/pkg/ciba"
	"github.com/zitadel/ciba/pkg/oidc"
)

// TokenIssuer creates the tokens of a request the end-user approved.
type TokenIssuer interface {
	CreateTokens(ctx context.Context, req *ciba.AuthenticationRequest) (*ciba.Tokens, error)
}

// DeepLinkVerifier decodes the ciba_ctx parameter of the link
// sent to the authentication device.
type DeepLinkVerifier interface {
	VerifyDeepLinkContext(encoded string) (*ciba.DeepLinkContext, error)
}

type decisionConfig struct {
	issuer TokenIssuer
	links  DeepLinkVerifier
}

// WithDecisionEndpoint serves the endpoint the authentication device posts
// the decision of the end-user to, identified by the signed ciba_ctx.
func WithDecisionEndpoint(issuer TokenIssuer, links DeepLinkVerifier) Option {
	return func(o *Provider) error {
		o.decisions = &decisionConfig{
			issuer: issuer,
			links:  links,
		}
		return nil
	}
}

type DecisionRequest struct {
	Context  string `schema:"ciba_ctx"`
	Approved bool   `schema:"approved"`
}

func (o *Provider) decisionHandler(w http.ResponseWriter, r *http.Request) {
	if err := o.Decide(r); err != nil {
		WriteError(w, r, err, o.requestLogger(r))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Decide records the approval or denial of the end-user.
func (o *Provider) Decide(r *http.Request) error {
	ctx, span := tracer.Start(r.Context(), "Decide")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		return oidc.ErrInvalidRequest().WithDescription("cannot parse form").WithParent(err)
	}
	req := new(DecisionRequest)
	if err := o.decoder.Decode(req, r.PostForm); err != nil {
		return oidc.ErrInvalidRequest().WithDescription("cannot parse decision").WithParent(err)
	}
	dlc, err := o.decisions.links.VerifyDeepLinkContext(req.Context)
	if err != nil {
		return oidc.ErrInvalidRequest().WithDescription("invalid %s", ciba.ContextParam).WithParent(err)
	}
	if !req.Approved {
		return o.grants.Deny(ctx, dlc.AuthReqID)
	}
	authReq, err := o.grants.Pending(ctx, dlc.AuthReqID)
	if err != nil {
		return err
	}
	tokens, err := o.decisions.issuer.CreateTokens(ctx, authReq)
	if err != nil {
		return oidc.DefaultToServerError(err, "tokens could not be created")
	}
	return o.grants.Complete(ctx, dlc.AuthReqID, tokens)
}
