package op

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zitadel/ciba/pkg/ciba"
	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

// maxRequestObjectSize limits the body read from a request_uri.
const maxRequestObjectSize = 64 << 10

func (o *Provider) backchannelAuthenticationHandler(w http.ResponseWriter, r *http.Request) {
	if err := o.BackchannelAuthentication(w, r); err != nil {
		WriteError(w, r, err, o.requestLogger(r))
	}
}

// BackchannelAuthentication handles a backchannel authentication request
// of an authenticated client and writes the auth_req_id.
func (o *Provider) BackchannelAuthentication(w http.ResponseWriter, r *http.Request) error {
	ctx, span := tracer.Start(r.Context(), "BackchannelAuthentication")
	r = r.WithContext(ctx)
	defer span.End()

	client, err := AuthenticatedClient(r, o)
	if err != nil {
		return err
	}
	req, signed, err := o.ParseBackchannelAuthenticationRequest(r, client)
	if err != nil {
		return err
	}
	resp, err := o.service.Authenticate(r.Context(), client, req, signed)
	if err != nil {
		return err
	}
	httphelper.MarshalJSON(w, resp)
	return nil
}

// ParseBackchannelAuthenticationRequest decodes the form of r.
// When a request object is passed by value or by reference, it is verified
// and its claims take precedence over the form; signed is true in that case.
func (o *Provider) ParseBackchannelAuthenticationRequest(r *http.Request, client ciba.Client) (_ *oidc.BackchannelAuthenticationRequest, signed bool, err error) {
	ctx, span := tracer.Start(r.Context(), "ParseBackchannelAuthenticationRequest")
	defer span.End()

	req := new(oidc.BackchannelAuthenticationRequest)
	if err := o.decoder.Decode(req, r.PostForm); err != nil {
		return nil, false, oidc.ErrInvalidRequest().WithDescription("cannot parse backchannel authentication request").WithParent(err)
	}
	if req.Request == "" && req.RequestURI == "" {
		return req, false, nil
	}
	if req.Request != "" && req.RequestURI != "" {
		return nil, false, oidc.ErrInvalidRequest().WithDescription("request and request_uri must not be used together")
	}
	if o.requestObjects == nil {
		return nil, false, oidc.ErrRequestNotSupported().WithDescription("request objects are not supported")
	}

	request := req.Request
	if req.RequestURI != "" {
		request, err = o.fetchRequestObject(ctx, req.RequestURI)
		if err != nil {
			return nil, false, oidc.ErrInvalidRequest().WithDescription("cannot fetch request_uri").WithParent(err)
		}
	}
	obj, err := o.requestObjects.VerifyRequestObject(ctx, client, request)
	if err != nil {
		return nil, false, oidc.ErrInvalidRequest().WithDescription("invalid request object").WithParent(err)
	}
	ciba.ApplyRequestObject(req, obj, o.nowFunc())
	return req, true, nil
}

var errEmptyRequestObject = errors.New("empty request object")

func (o *Provider) fetchRequestObject(ctx context.Context, requestURI string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURI, nil)
	if err != nil {
		return "", err
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s", httphelper.ErrStatus, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRequestObjectSize))
	if err != nil {
		return "", err
	}
	request := strings.TrimSpace(string(body))
	if request == "" {
		return "", errEmptyRequestObject
	}
	return request, nil
}
