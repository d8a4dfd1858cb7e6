package op_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zitadel/ciba/pkg/ciba"
	cibamock "github.com/zitadel/ciba/pkg/ciba/mock"
	"github.com/zitadel/ciba/pkg/ciba/storage/memory"
	"github.com/zitadel/ciba/pkg/oidc"
	"github.com/zitadel/ciba/pkg/op"
	"github.com/zitadel/ciba/pkg/op/mock"
)

const (
	testIssuer       = "https://issuer.example.com"
	testSecret       = "secret"
	testNotifyToken  = "8d67dc78-7faa-4d41-aabd-67707b374255"
	testNotifyTarget = "https://client.example.com/cb"
)

type linkVerifierFunc func(string) (*ciba.DeepLinkContext, error)

func (f linkVerifierFunc) VerifyDeepLinkContext(encoded string) (*ciba.DeepLinkContext, error) {
	return f(encoded)
}

// testLinks accepts "signed:<auth_req_id>".
var testLinks = linkVerifierFunc(func(encoded string) (*ciba.DeepLinkContext, error) {
	id, ok := strings.CutPrefix(encoded, "signed:")
	if !ok {
		return nil, errors.New("signature mismatch")
	}
	return &ciba.DeepLinkContext{AuthReqID: id, Scope: "openid"}, nil
})

type tokenIssuerFunc func(context.Context, *ciba.AuthenticationRequest) (*ciba.Tokens, error)

func (f tokenIssuerFunc) CreateTokens(ctx context.Context, req *ciba.AuthenticationRequest) (*ciba.Tokens, error) {
	return f(ctx, req)
}

var testIssuerTokens = tokenIssuerFunc(func(_ context.Context, req *ciba.AuthenticationRequest) (*ciba.Tokens, error) {
	return &ciba.Tokens{
		AccessToken: "at-" + req.UserID,
		TokenType:   oidc.BearerToken,
		ExpiresIn:   3600,
		IDToken:     "idt-" + req.UserID,
	}, nil
})

type requestObjectFunc func(context.Context, ciba.Client, string) (*oidc.BackchannelRequestObject, error)

func (f requestObjectFunc) VerifyRequestObject(ctx context.Context, client ciba.Client, request string) (*oidc.BackchannelRequestObject, error) {
	return f(ctx, client, request)
}

type providerFixture struct {
	store      *memory.Store
	dispatcher *cibamock.MockCallbackDispatcher
	registry   *prometheus.Registry
	provider   *op.Provider
}

func newProviderFixture(t *testing.T, modify func(c *ciba.Config), opts ...op.Option) *providerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &providerFixture{
		store:      memory.New(),
		dispatcher: cibamock.NewMockCallbackDispatcher(ctrl),
		registry:   prometheus.NewRegistry(),
	}
	notifier := cibamock.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	config := ciba.DefaultConfig()
	if modify != nil {
		modify(&config)
	}
	users := cibamock.NewUserDirectoryWithUsers(t, map[string]*ciba.User{
		"alice": {ID: "user-alice", UserCode: "1234", DeviceToken: "device-alice", Locale: "de"},
		"bob":   {ID: "user-bob"},
		"carol": {ID: "user-carol", DeviceToken: "device-carol"},
	})
	metrics := ciba.NewMetrics(f.registry)
	service, err := ciba.NewService(config, f.store, users, cibamock.NewMockHintVerifier(ctrl), notifier, ciba.WithMetrics(metrics))
	require.NoError(t, err)
	t.Cleanup(service.Wait)
	grants := ciba.NewGrantAdapter(f.store, f.dispatcher)

	storage := mock.NewStorageWithClients(t,
		map[string]string{"ping-client": testSecret, "poll-client": testSecret, "push-client": testSecret},
		cibamock.NewClientWithConfig(t, "ping-client", oidc.DeliveryModePing, testNotifyTarget, true),
		cibamock.NewClientWithConfig(t, "poll-client", oidc.DeliveryModePoll, "", false),
		cibamock.NewClientWithConfig(t, "push-client", oidc.DeliveryModePush, testNotifyTarget, false),
	)
	opts = append([]op.Option{
		op.WithDecisionEndpoint(testIssuerTokens, testLinks),
		op.WithMetricsHandler(promhttp.HandlerFor(f.registry, promhttp.HandlerOpts{})),
	}, opts...)
	f.provider, err = op.NewProvider(&op.Config{Issuer: testIssuer}, storage, service, grants, opts...)
	require.NoError(t, err)
	return f
}

func (f *providerFixture) post(t *testing.T, path, clientID string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if clientID != "" {
		r.SetBasicAuth(clientID, testSecret)
	}
	w := httptest.NewRecorder()
	f.provider.ServeHTTP(w, r)
	return w
}

func (f *providerFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.provider.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func (f *providerFixture) authenticate(t *testing.T, clientID string, form url.Values) *oidc.BackchannelAuthenticationResponse {
	t.Helper()
	w := f.post(t, "/bc-authorize", clientID, form)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := new(oidc.BackchannelAuthenticationResponse)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), resp))
	return resp
}

func assertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, status int, errorType string) {
	t.Helper()
	assert.Equal(t, status, w.Code, w.Body.String())
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, errorType, body.Error)
}

func pingForm() url.Values {
	return url.Values{
		"scope":                     {"openid profile"},
		"client_notification_token": {testNotifyToken},
		"login_hint":                {"alice"},
		"binding_message":           {"W4SCT"},
		"user_code":                 {"1234"},
	}
}

func TestProvider_Discovery(t *testing.T) {
	f := newProviderFixture(t, nil)
	w := f.get(t, oidc.DiscoveryEndpoint)
	require.Equal(t, http.StatusOK, w.Code)

	disc := new(oidc.DiscoveryConfiguration)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), disc))
	assert.Equal(t, testIssuer, disc.Issuer)
	assert.Equal(t, testIssuer+"/oauth/token", disc.TokenEndpoint)
	assert.Equal(t, testIssuer+"/bc-authorize", disc.BackchannelAuthenticationEndpoint)
	assert.Equal(t, []oidc.DeliveryMode{oidc.DeliveryModePoll, oidc.DeliveryModePing, oidc.DeliveryModePush}, disc.BackchannelTokenDeliveryModesSupported)
	assert.Equal(t, []string{"RS256", "PS256", "ES256"}, disc.BackchannelAuthenticationRequestSigningAlgValuesSupported)
	assert.True(t, disc.BackchannelUserCodeParameterSupported)
	assert.Contains(t, disc.GrantTypesSupported, oidc.GrantTypeCIBA)
}

func TestProvider_DiscoveryDisabled(t *testing.T) {
	f := newProviderFixture(t, func(c *ciba.Config) {
		c.Enabled = false
	})
	w := f.get(t, oidc.DiscoveryEndpoint)
	require.Equal(t, http.StatusOK, w.Code)

	disc := new(oidc.DiscoveryConfiguration)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), disc))
	assert.Empty(t, disc.BackchannelAuthenticationEndpoint)
	assert.Empty(t, disc.BackchannelTokenDeliveryModesSupported)
}

func TestProvider_Probes(t *testing.T) {
	f := newProviderFixture(t, nil)
	w := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = f.get(t, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	f = newProviderFixture(t, nil, op.WithProbes(func(context.Context) error {
		return errors.New("database not ready")
	}))
	w = f.get(t, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"database not ready"}`, w.Body.String())
}

func TestProvider_BackchannelAuthentication_Ping(t *testing.T) {
	f := newProviderFixture(t, nil)
	resp := f.authenticate(t, "ping-client", pingForm())

	assert.NotEmpty(t, resp.AuthReqID)
	assert.Equal(t, 120, resp.ExpiresIn)
	require.NotNil(t, resp.Interval)
	assert.Equal(t, 2, *resp.Interval)

	stored, err := f.store.Get(context.Background(), resp.AuthReqID)
	require.NoError(t, err)
	assert.Equal(t, "ping-client", stored.ClientID)
	assert.Equal(t, "user-alice", stored.UserID)
	assert.Equal(t, []string{"openid", "profile"}, stored.Scopes)
	assert.Equal(t, testNotifyToken, stored.ClientNotificationToken)
	assert.Equal(t, testNotifyTarget, stored.ClientNotificationEndpoint)

	w := f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `ciba_requests_admitted_total{mode="ping"} 1`)
}

func TestProvider_BackchannelAuthentication_PushHasNoInterval(t *testing.T) {
	f := newProviderFixture(t, nil)
	w := f.post(t, "/bc-authorize", "push-client", url.Values{
		"scope":                     {"openid"},
		"client_notification_token": {testNotifyToken},
		"login_hint":                {"carol"},
		"requested_expiry":          {"300"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotContains(t, body, "interval")
	assert.EqualValues(t, 300, body["expires_in"])
}

func TestProvider_BackchannelAuthentication_Errors(t *testing.T) {
	with := func(key, value string) url.Values {
		form := pingForm()
		if value == "" {
			form.Del(key)
		} else {
			form.Set(key, value)
		}
		return form
	}
	tests := []struct {
		name       string
		clientID   string
		form       url.Values
		basic      [2]string
		wantStatus int
		wantError  string
	}{
		{
			name:       "requested expiry out of range",
			clientID:   "ping-client",
			form:       with("requested_expiry", "10000000"),
			wantStatus: http.StatusBadRequest,
			wantError:  string(oidc.InvalidRequest),
		},
		{
			name:       "unauthenticated",
			form:       with("client_id", "ping-client"),
			wantStatus: http.StatusUnauthorized,
			wantError:  string(oidc.InvalidClient),
		},
		{
			name:       "wrong secret",
			form:       pingForm(),
			basic:      [2]string{"ping-client", "wrong"},
			wantStatus: http.StatusUnauthorized,
			wantError:  string(oidc.InvalidClient),
		},
		{
			name:       "missing openid scope",
			clientID:   "ping-client",
			form:       with("scope", "profile"),
			wantStatus: http.StatusBadRequest,
			wantError:  string(oidc.InvalidScope),
		},
		{
			name:       "two hints",
			clientID:   "ping-client",
			form:       with("id_token_hint", "eyJ..."),
			wantStatus: http.StatusBadRequest,
			wantError:  string(oidc.InvalidRequest),
		},
		{
			name:       "missing notification token",
			clientID:   "ping-client",
			form:       with("client_notification_token", ""),
			wantStatus: http.StatusBadRequest,
			wantError:  string(oidc.InvalidRequest),
		},
		{
			name:       "invalid binding message",
			clientID:   "ping-client",
			form:       with("binding_message", "not valid!"),
			wantStatus: http.StatusBadRequest,
			wantError:  string(oidc.InvalidBindingMessage),
		},
		{
			name:       "wrong user code",
			clientID:   "ping-client",
			form:       with("user_code", "9999"),
			wantStatus: http.StatusBadRequest,
			wantError:  string(oidc.InvalidUserCode),
		},
		{
			name:       "unknown user",
			clientID:   "ping-client",
			form:       with("login_hint", "mallory"),
			wantStatus: http.StatusBadRequest,
			wantError:  string(oidc.UnknownUserID),
		},
		{
			name:       "user without device",
			clientID:   "poll-client",
			form:       with("login_hint", "bob"),
			wantStatus: http.StatusUnauthorized,
			wantError:  string(oidc.UnauthorizedEndUserDevice),
		},
		{
			name:       "request objects not supported",
			clientID:   "ping-client",
			form:       with("request", "eyJ..."),
			wantStatus: http.StatusBadRequest,
			wantError:  string(oidc.RequestNotSupported),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProviderFixture(t, nil)
			r := httptest.NewRequest(http.MethodPost, "/bc-authorize", strings.NewReader(tt.form.Encode()))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			switch {
			case tt.clientID != "":
				r.SetBasicAuth(tt.clientID, testSecret)
			case tt.basic[0] != "":
				r.SetBasicAuth(tt.basic[0], tt.basic[1])
			}
			w := httptest.NewRecorder()
			f.provider.ServeHTTP(w, r)

			assertErrorResponse(t, w, tt.wantStatus, tt.wantError)
			assert.Zero(t, f.store.Len(), "nothing may be persisted")
		})
	}
}

func TestProvider_PollRoundTrip(t *testing.T) {
	f := newProviderFixture(t, nil)
	resp := f.authenticate(t, "poll-client", url.Values{
		"scope":      {"openid"},
		"login_hint": {"carol"},
	})
	tokenForm := url.Values{
		"grant_type":  {string(oidc.GrantTypeCIBA)},
		"auth_req_id": {resp.AuthReqID},
	}

	w := f.post(t, "/oauth/token", "poll-client", tokenForm)
	assertErrorResponse(t, w, http.StatusBadRequest, string(oidc.AuthorizationPending))

	w = f.post(t, "/bc-authorize/decision", "", url.Values{
		"ciba_ctx": {"signed:" + resp.AuthReqID},
		"approved": {"true"},
	})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = f.post(t, "/oauth/token", "poll-client", tokenForm)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("cache-control"))
	tokens := new(oidc.AccessTokenResponse)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), tokens))
	assert.Equal(t, &oidc.AccessTokenResponse{
		AccessToken: "at-user-carol",
		TokenType:   oidc.BearerToken,
		ExpiresIn:   3600,
		IDToken:     "idt-user-carol",
		Scope:       "openid",
	}, tokens)

	w = f.post(t, "/oauth/token", "poll-client", tokenForm)
	assertErrorResponse(t, w, http.StatusBadRequest, string(oidc.ExpiredToken))
}

func TestProvider_PingDecision(t *testing.T) {
	f := newProviderFixture(t, nil)
	resp := f.authenticate(t, "ping-client", pingForm())
	f.dispatcher.EXPECT().Ping(gomock.Any(), testNotifyTarget, testNotifyToken, resp.AuthReqID).Return(nil)

	w := f.post(t, "/bc-authorize/decision", "", url.Values{
		"ciba_ctx": {"signed:" + resp.AuthReqID},
		"approved": {"true"},
	})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = f.post(t, "/oauth/token", "ping-client", url.Values{
		"grant_type":  {string(oidc.GrantTypeCIBA)},
		"auth_req_id": {resp.AuthReqID},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestProvider_Denied(t *testing.T) {
	f := newProviderFixture(t, nil)
	resp := f.authenticate(t, "poll-client", url.Values{
		"scope":      {"openid"},
		"login_hint": {"carol"},
	})

	w := f.post(t, "/bc-authorize/decision", "", url.Values{
		"ciba_ctx": {"signed:" + resp.AuthReqID},
		"approved": {"false"},
	})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = f.post(t, "/oauth/token", "poll-client", url.Values{
		"grant_type":  {string(oidc.GrantTypeCIBA)},
		"auth_req_id": {resp.AuthReqID},
	})
	assertErrorResponse(t, w, http.StatusBadRequest, string(oidc.AccessDenied))

	w = f.post(t, "/bc-authorize/decision", "", url.Values{
		"ciba_ctx": {"signed:" + resp.AuthReqID},
		"approved": {"true"},
	})
	assertErrorResponse(t, w, http.StatusBadRequest, string(oidc.ExpiredToken))
}

func TestProvider_Decision_InvalidContext(t *testing.T) {
	f := newProviderFixture(t, nil)
	w := f.post(t, "/bc-authorize/decision", "", url.Values{
		"ciba_ctx": {"forged"},
		"approved": {"true"},
	})
	assertErrorResponse(t, w, http.StatusBadRequest, string(oidc.InvalidRequest))
}

func TestProvider_Token_Errors(t *testing.T) {
	tests := []struct {
		name       string
		clientID   string
		form       url.Values
		wantStatus int
		wantError  string
	}{
		{
			name:       "unsupported grant type",
			clientID:   "poll-client",
			form:       url.Values{"grant_type": {"authorization_code"}, "code": {"xyz"}},
			wantStatus: http.StatusBadRequest,
			wantError:  string(oidc.UnsupportedGrantType),
		},
		{
			name:       "missing auth_req_id",
			clientID:   "poll-client",
			form:       url.Values{"grant_type": {string(oidc.GrantTypeCIBA)}},
			wantStatus: http.StatusBadRequest,
			wantError:  string(oidc.InvalidRequest),
		},
		{
			name:       "client without grant type",
			clientID:   "push-client",
			form:       url.Values{"grant_type": {string(oidc.GrantTypeCIBA)}, "auth_req_id": {"abc"}},
			wantStatus: http.StatusBadRequest,
			wantError:  string(oidc.UnauthorizedClient),
		},
		{
			name:       "unknown auth_req_id",
			clientID:   "poll-client",
			form:       url.Values{"grant_type": {string(oidc.GrantTypeCIBA)}, "auth_req_id": {"abc"}},
			wantStatus: http.StatusBadRequest,
			wantError:  string(oidc.ExpiredToken),
		},
		{
			name:       "unauthenticated",
			form:       url.Values{"grant_type": {string(oidc.GrantTypeCIBA)}, "auth_req_id": {"abc"}, "client_id": {"poll-client"}},
			wantStatus: http.StatusUnauthorized,
			wantError:  string(oidc.InvalidClient),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProviderFixture(t, nil)
			w := f.post(t, "/oauth/token", tt.clientID, tt.form)
			assertErrorResponse(t, w, tt.wantStatus, tt.wantError)
		})
	}
}

func TestProvider_Token_ForeignClient(t *testing.T) {
	f := newProviderFixture(t, nil)
	resp := f.authenticate(t, "ping-client", pingForm())

	w := f.post(t, "/oauth/token", "poll-client", url.Values{
		"grant_type":  {string(oidc.GrantTypeCIBA)},
		"auth_req_id": {resp.AuthReqID},
	})
	assertErrorResponse(t, w, http.StatusBadRequest, string(oidc.ExpiredToken))
}

func TestProvider_RequestObject(t *testing.T) {
	verifier := requestObjectFunc(func(_ context.Context, client ciba.Client, request string) (*oidc.BackchannelRequestObject, error) {
		if client.GetID() != "poll-client" || request != "signed.request.object" {
			return nil, errors.New("invalid signature")
		}
		return &oidc.BackchannelRequestObject{
			Issuer:    "poll-client",
			Audience:  oidc.Audience{testIssuer},
			Scopes:    oidc.SpaceDelimitedArray{"openid", "email"},
			LoginHint: "carol",
		}, nil
	})
	f := newProviderFixture(t, func(c *ciba.Config) {
		c.FAPI = true
	}, op.WithRequestObjectVerifier(verifier))

	w := f.post(t, "/bc-authorize", "poll-client", url.Values{
		"scope":      {"openid"},
		"login_hint": {"carol"},
	})
	assertErrorResponse(t, w, http.StatusBadRequest, string(oidc.InvalidRequest))

	w = f.post(t, "/bc-authorize", "poll-client", url.Values{
		"request": {"forged.request.object"},
	})
	assertErrorResponse(t, w, http.StatusBadRequest, string(oidc.InvalidRequest))

	resp := f.authenticate(t, "poll-client", url.Values{
		"scope":      {"openid"},
		"login_hint": {"mallory"},
		"request":    {"signed.request.object"},
	})
	stored, err := f.store.Get(context.Background(), resp.AuthReqID)
	require.NoError(t, err)
	assert.Equal(t, "user-carol", stored.UserID)
	assert.Equal(t, []string{"openid", "email"}, stored.Scopes)
}

func TestProvider_RequestURI(t *testing.T) {
	objects := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/request.jwt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/oauth-authz-req+jwt")
		_, _ = w.Write([]byte("signed.request.object\n"))
	}))
	t.Cleanup(objects.Close)

	verifier := requestObjectFunc(func(_ context.Context, _ ciba.Client, request string) (*oidc.BackchannelRequestObject, error) {
		if request != "signed.request.object" {
			return nil, errors.New("invalid signature")
		}
		return &oidc.BackchannelRequestObject{
			Scopes:    oidc.SpaceDelimitedArray{"openid"},
			LoginHint: "carol",
		}, nil
	})
	f := newProviderFixture(t, nil,
		op.WithRequestObjectVerifier(verifier),
		op.WithHTTPClient(objects.Client()),
	)

	resp := f.authenticate(t, "poll-client", url.Values{
		"request_uri": {objects.URL + "/request.jwt"},
	})
	assert.NotEmpty(t, resp.AuthReqID)

	w := f.post(t, "/bc-authorize", "poll-client", url.Values{
		"request_uri": {objects.URL + "/missing.jwt"},
	})
	assertErrorResponse(t, w, http.StatusBadRequest, string(oidc.InvalidRequest))

	w = f.post(t, "/bc-authorize", "poll-client", url.Values{
		"request":     {"signed.request.object"},
		"request_uri": {objects.URL + "/request.jwt"},
	})
	assertErrorResponse(t, w, http.StatusBadRequest, string(oidc.InvalidRequest))
}

func TestNewProvider_Errors(t *testing.T) {
	_, err := op.NewProvider(&op.Config{Issuer: "http://issuer.example.com"}, nil, nil, nil)
	assert.ErrorIs(t, err, op.ErrIssuerInvalidScheme)

	_, err = op.NewProvider(&op.Config{Issuer: testIssuer}, nil, nil, nil,
		op.WithCustomEndpoints(op.Endpoints{Token: op.NewEndpoint("/")}))
	assert.ErrorIs(t, err, op.ErrNoEndpoint)
}
