package ciba

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zitadel/ciba/pkg/oidc"
)

type fetcherFunc func(ctx context.Context, uri string) ([]string, error)

func (f fetcherFunc) FetchSectorIdentifier(ctx context.Context, uri string) ([]string, error) {
	return f(ctx, uri)
}

func staticFetcher(uris ...string) SectorIdentifierFetcher {
	return fetcherFunc(func(context.Context, string) ([]string, error) {
		return uris, nil
	})
}

func TestRegistrationValidator_Validate(t *testing.T) {
	const (
		endpoint = "https://client.example.com/cb"
		jwksURI  = "https://client.example.com/jwks"
		sector   = "https://client.example.com/sector.json"
	)
	jwks := json.RawMessage(`{"keys":[]}`)
	cibaGrant := []oidc.GrantType{oidc.GrantTypeCIBA}

	tests := []struct {
		name    string
		modify  func(c *Config)
		fetcher SectorIdentifierFetcher
		md      *oidc.BackchannelClientMetadata
		want    bool
	}{
		{
			name: "no backchannel metadata",
			md:   &oidc.BackchannelClientMetadata{GrantTypes: []oidc.GrantType{oidc.GrantTypeCode}},
			want: true,
		},
		{
			name: "poll",
			md:   &oidc.BackchannelClientMetadata{GrantTypes: cibaGrant, BackchannelTokenDeliveryMode: oidc.DeliveryModePoll},
			want: true,
		},
		{
			name: "unknown mode",
			md:   &oidc.BackchannelClientMetadata{GrantTypes: cibaGrant, BackchannelTokenDeliveryMode: "email"},
		},
		{
			name: "endpoint without mode",
			md:   &oidc.BackchannelClientMetadata{GrantTypes: cibaGrant, BackchannelClientNotificationEndpoint: endpoint},
		},
		{
			name:   "mode not supported by server",
			modify: func(c *Config) { c.DeliveryModes = []oidc.DeliveryMode{oidc.DeliveryModePoll} },
			md: &oidc.BackchannelClientMetadata{
				GrantTypes: cibaGrant,
				BackchannelTokenDeliveryMode:          oidc.DeliveryModePing,
				BackchannelClientNotificationEndpoint: endpoint,
			},
		},
		{
			name: "unsupported signing alg",
			md: &oidc.BackchannelClientMetadata{
				GrantTypes: cibaGrant,
				BackchannelTokenDeliveryMode: oidc.DeliveryModePoll,
				BackchannelAuthenticationRequestSigningAlg: "HS256",
			},
		},
		{
			name: "ping without endpoint",
			md:   &oidc.BackchannelClientMetadata{GrantTypes: cibaGrant, BackchannelTokenDeliveryMode: oidc.DeliveryModePing},
		},
		{
			name: "push without endpoint",
			md:   &oidc.BackchannelClientMetadata{BackchannelTokenDeliveryMode: oidc.DeliveryModePush},
		},
		{
			name: "poll without ciba grant",
			md: &oidc.BackchannelClientMetadata{
				GrantTypes:                   []oidc.GrantType{oidc.GrantTypeCode},
				BackchannelTokenDeliveryMode: oidc.DeliveryModePoll,
			},
		},
		{
			name:   "ciba grant not supported by server",
			modify: func(c *Config) { c.GrantTypes = []oidc.GrantType{oidc.GrantTypeRefreshToken} },
			md:     &oidc.BackchannelClientMetadata{GrantTypes: cibaGrant, BackchannelTokenDeliveryMode: oidc.DeliveryModePoll},
		},
		{
			name: "push without ciba grant",
			md: &oidc.BackchannelClientMetadata{
				BackchannelTokenDeliveryMode:          oidc.DeliveryModePush,
				BackchannelClientNotificationEndpoint: endpoint,
			},
			want: true,
		},
		{
			name: "invalid jwks",
			md: &oidc.BackchannelClientMetadata{
				GrantTypes: cibaGrant,
				BackchannelTokenDeliveryMode: oidc.DeliveryModePoll,
				JWKS:                         json.RawMessage(`{"keys":"nope"}`),
			},
		},
		{
			name: "pairwise poll without keys",
			md: &oidc.BackchannelClientMetadata{
				GrantTypes: cibaGrant,
				SubjectType:                  oidc.SubjectTypePairwise,
				BackchannelTokenDeliveryMode: oidc.DeliveryModePoll,
			},
		},
		{
			name: "pairwise poll with jwks",
			md: &oidc.BackchannelClientMetadata{
				GrantTypes: cibaGrant,
				SubjectType:                  oidc.SubjectTypePairwise,
				BackchannelTokenDeliveryMode: oidc.DeliveryModePoll,
				JWKS:                         jwks,
			},
			want: true,
		},
		{
			name:    "pairwise ping with jwks_uri in sector",
			fetcher: staticFetcher(jwksURI),
			md: &oidc.BackchannelClientMetadata{
				GrantTypes: cibaGrant,
				SubjectType:                           oidc.SubjectTypePairwise,
				SectorIdentifierURI:                   sector,
				JWKSURI:                               jwksURI,
				BackchannelTokenDeliveryMode:          oidc.DeliveryModePing,
				BackchannelClientNotificationEndpoint: endpoint,
			},
			want: true,
		},
		{
			name:    "pairwise ping with jwks_uri missing in sector",
			fetcher: staticFetcher(endpoint),
			md: &oidc.BackchannelClientMetadata{
				GrantTypes: cibaGrant,
				SubjectType:                           oidc.SubjectTypePairwise,
				SectorIdentifierURI:                   sector,
				JWKSURI:                               jwksURI,
				BackchannelTokenDeliveryMode:          oidc.DeliveryModePing,
				BackchannelClientNotificationEndpoint: endpoint,
			},
		},
		{
			name:    "pairwise push with endpoint in sector",
			fetcher: staticFetcher(endpoint),
			md: &oidc.BackchannelClientMetadata{
				SubjectType:                           oidc.SubjectTypePairwise,
				SectorIdentifierURI:                   sector,
				BackchannelTokenDeliveryMode:          oidc.DeliveryModePush,
				BackchannelClientNotificationEndpoint: endpoint,
			},
			want: true,
		},
		{
			name:    "pairwise push with endpoint missing in sector",
			fetcher: staticFetcher(jwksURI),
			md: &oidc.BackchannelClientMetadata{
				SubjectType:                           oidc.SubjectTypePairwise,
				SectorIdentifierURI:                   sector,
				BackchannelTokenDeliveryMode:          oidc.DeliveryModePush,
				BackchannelClientNotificationEndpoint: endpoint,
			},
		},
		{
			name: "sector identifier unreachable",
			fetcher: fetcherFunc(func(context.Context, string) ([]string, error) {
				return nil, errors.New("connection refused")
			}),
			md: &oidc.BackchannelClientMetadata{
				SubjectType:                           oidc.SubjectTypePairwise,
				SectorIdentifierURI:                   sector,
				BackchannelTokenDeliveryMode:          oidc.DeliveryModePush,
				BackchannelClientNotificationEndpoint: endpoint,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			if tt.modify != nil {
				tt.modify(&config)
			}
			fetcher := tt.fetcher
			if fetcher == nil {
				fetcher = fetcherFunc(func(context.Context, string) ([]string, error) {
					t.Fatal("sector identifier must not be fetched")
					return nil, nil
				})
			}
			v := NewRegistrationValidator(&config, fetcher, nil)
			assert.Equal(t, tt.want, v.Validate(context.Background(), tt.md))
		})
	}
}

func TestRegistrationValidator_ValidateParams_UserCode(t *testing.T) {
	md := &oidc.BackchannelClientMetadata{
		GrantTypes:                   []oidc.GrantType{oidc.GrantTypeCIBA},
		BackchannelTokenDeliveryMode: oidc.DeliveryModePoll,
		BackchannelUserCodeParameter: true,
	}
	config := DefaultConfig()
	v := NewRegistrationValidator(&config, nil, nil)
	ok, userCode := v.ValidateParams(context.Background(), md)
	assert.True(t, ok)
	assert.True(t, userCode)

	config.UserCodeSupported = false
	ok, userCode = v.ValidateParams(context.Background(), md)
	assert.True(t, ok)
	assert.False(t, userCode)
}

func TestHTTPSectorIdentifierFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sector.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`["https://client.example.com/cb","https://client.example.com/jwks"]`))
	}))
	defer srv.Close()

	f := HTTPSectorIdentifierFetcher{Client: srv.Client()}
	uris, err := f.FetchSectorIdentifier(context.Background(), srv.URL+"/sector.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://client.example.com/cb", "https://client.example.com/jwks"}, uris)

	_, err = f.FetchSectorIdentifier(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}
