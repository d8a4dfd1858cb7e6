package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-jose/go-jose/v3"

	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

// ClientConfig is a client registration as read from the configuration file.
// JWKS holds the JSON encoded key set of the client.
type ClientConfig struct {
	ID                   string            `yaml:"id" validate:"required"`
	Secret               string            `yaml:"secret" validate:"required"`
	GrantTypes           []oidc.GrantType  `yaml:"grantTypes"`
	SubjectType          string            `yaml:"subjectType" validate:"omitempty,oneof=public pairwise"`
	SectorIdentifierURI  string            `yaml:"sectorIdentifierUri" validate:"omitempty,url"`
	JWKS                 string            `yaml:"jwks"`
	JWKSURI              string            `yaml:"jwksUri" validate:"omitempty,url"`
	DeliveryMode         oidc.DeliveryMode `yaml:"deliveryMode"`
	NotificationEndpoint string            `yaml:"notificationEndpoint"`
	RequestSigningAlg    string            `yaml:"requestSigningAlg"`
	UserCodeParameter    bool              `yaml:"userCodeParameter"`
}

// Metadata returns the registration metadata of the client.
func (c *ClientConfig) Metadata() *oidc.BackchannelClientMetadata {
	md := &oidc.BackchannelClientMetadata{
		GrantTypes:                                 c.GrantTypes,
		SubjectType:                                c.SubjectType,
		SectorIdentifierURI:                        c.SectorIdentifierURI,
		JWKSURI:                                    c.JWKSURI,
		BackchannelTokenDeliveryMode:               c.DeliveryMode,
		BackchannelClientNotificationEndpoint:      c.NotificationEndpoint,
		BackchannelAuthenticationRequestSigningAlg: c.RequestSigningAlg,
		BackchannelUserCodeParameter:               c.UserCodeParameter,
	}
	if c.JWKS != "" {
		md.JWKS = json.RawMessage(c.JWKS)
	}
	return md
}

// Client represents the storage model of a backchannel client
// this could also be your database model
type Client struct {
	id                   string
	secret               string
	grantTypes           []oidc.GrantType
	deliveryMode         oidc.DeliveryMode
	notificationEndpoint string
	requestSigningAlg    string
	userCodeRequired     bool

	keys       *jose.JSONWebKeySet
	jwksURI    string
	httpClient *http.Client
}

func newClient(config *ClientConfig, userCodeRequired bool, httpClient *http.Client) (*Client, error) {
	c := &Client{
		id:                   config.ID,
		secret:               config.Secret,
		grantTypes:           config.GrantTypes,
		deliveryMode:         config.DeliveryMode,
		notificationEndpoint: config.NotificationEndpoint,
		requestSigningAlg:    config.RequestSigningAlg,
		userCodeRequired:     userCodeRequired,
		jwksURI:              config.JWKSURI,
		httpClient:           httpClient,
	}
	if config.JWKS != "" {
		c.keys = new(jose.JSONWebKeySet)
		if err := json.Unmarshal([]byte(config.JWKS), c.keys); err != nil {
			return nil, fmt.Errorf("client %s: invalid jwks: %w", config.ID, err)
		}
	}
	return c, nil
}

// GetID must return the client_id
func (c *Client) GetID() string {
	return c.id
}

// DeliveryMode must return the registered backchannel_token_delivery_mode,
// empty if the client does not use backchannel authentication
func (c *Client) DeliveryMode() oidc.DeliveryMode {
	return c.deliveryMode
}

// NotificationEndpoint must return the backchannel_client_notification_endpoint for ping and push
func (c *Client) NotificationEndpoint() string {
	return c.notificationEndpoint
}

// RequestSigningAlg must return the backchannel_authentication_request_signing_alg, if any
func (c *Client) RequestSigningAlg() string {
	return c.requestSigningAlg
}

// UserCodeRequired must return the effective backchannel_user_code_parameter
func (c *Client) UserCodeRequired() bool {
	return c.userCodeRequired
}

// GrantTypes must return all allowed grant types
func (c *Client) GrantTypes() []oidc.GrantType {
	return c.grantTypes
}

// KeySet returns the inline jwks of the client or fetches its jwks_uri.
func (c *Client) KeySet(ctx context.Context) (*jose.JSONWebKeySet, error) {
	if c.keys != nil {
		return c.keys, nil
	}
	if c.jwksURI == "" {
		return nil, fmt.Errorf("client %s has no keys", c.id)
	}
	keys := new(jose.JSONWebKeySet)
	if err := httphelper.GetJSON(ctx, c.httpClient, c.jwksURI, keys); err != nil {
		return nil, fmt.Errorf("client %s: fetch jwks: %w", c.id, err)
	}
	return keys, nil
}
