package ciba

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/zitadel/ciba/pkg/oidc"
)

const (
	DefaultChunkSize      = 500
	DefaultSweepInterval  = 5 * time.Second
	DefaultPayloadGrace   = time.Minute
	DefaultBindingPattern = `^[a-zA-Z0-9]{4,8}$`
)

// Config is the server policy for backchannel authentication.
type Config struct {
	Enabled bool `yaml:"enabled"`

	// FAPI requires every authentication request to be a signed request object.
	FAPI bool `yaml:"fapi"`

	DeliveryModes      []oidc.DeliveryMode `yaml:"deliveryModes" validate:"required,dive,oneof=poll ping push"`
	GrantTypes         []oidc.GrantType    `yaml:"grantTypes"`
	RequestSigningAlgs []string            `yaml:"requestSigningAlgs" validate:"dive,oneof=RS256 RS384 RS512 PS256 PS384 PS512 ES256 ES384 ES512 EdDSA"`
	UserCodeSupported  bool                `yaml:"userCodeSupported"`

	BindingMessagePattern string `yaml:"bindingMessagePattern" validate:"required"`

	// in seconds
	DefaultExpiresIn int `yaml:"defaultExpiresIn" validate:"gt=0,ltefield=MaxExpiresIn"`
	MaxExpiresIn     int `yaml:"maxExpiresIn" validate:"gt=0"`
	Interval         int `yaml:"interval" validate:"gte=0"`

	// PayloadGrace keeps the payload of a request readable this long
	// after it expired, so the sweeper can still act on it.
	PayloadGrace time.Duration `yaml:"payloadGrace" validate:"gte=0"`

	Sweeper      SweeperConfig      `yaml:"sweeper"`
	Notification NotificationConfig `yaml:"notification"`
}

type SweeperConfig struct {
	// A negative interval disables the sweeper.
	Interval  time.Duration `yaml:"interval"`
	ChunkSize int           `yaml:"chunkSize" validate:"gt=0"`
	Workers   int           `yaml:"workers" validate:"gt=0"`
}

// NotificationConfig configures the built-in push message transport
// used to reach the end-user's authentication device.
type NotificationConfig struct {
	URL string `yaml:"url" validate:"omitempty,url"`

	// ServerKey is AES encrypted with EncryptionKey.
	ServerKey     string `yaml:"serverKey"`
	EncryptionKey string `yaml:"-" validate:"required_with=ServerKey"`

	// ClientID and RedirectURI identify the authentication device app
	// in the deep link to the authorization endpoint.
	ClientID              string `yaml:"clientId"`
	RedirectURI           string `yaml:"redirectUri" validate:"omitempty,url"`
	AuthorizationEndpoint string `yaml:"authorizationEndpoint" validate:"required_with=URL"`

	// ContextHashKey signs the ciba_ctx parameter of the deep link.
	ContextHashKey string `yaml:"-" validate:"required_with=URL"`
	// ContextMaxAge limits the lifetime of the ciba_ctx parameter in seconds, 0 keeps the codec default.
	ContextMaxAge int `yaml:"contextMaxAge" validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		DeliveryModes:         []oidc.DeliveryMode{oidc.DeliveryModePoll, oidc.DeliveryModePing, oidc.DeliveryModePush},
		GrantTypes:            []oidc.GrantType{oidc.GrantTypeCIBA, oidc.GrantTypeRefreshToken},
		RequestSigningAlgs:    []string{"RS256", "PS256", "ES256"},
		UserCodeSupported:     true,
		BindingMessagePattern: DefaultBindingPattern,
		DefaultExpiresIn:      120,
		MaxExpiresIn:          600,
		Interval:              2,
		PayloadGrace:          DefaultPayloadGrace,
		Notification: NotificationConfig{
			ContextMaxAge: 600,
		},
		Sweeper: SweeperConfig{
			Interval:  DefaultSweepInterval,
			ChunkSize: DefaultChunkSize,
			Workers:   16,
		},
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("ciba: invalid config: %w", err)
	}
	if _, err := regexp.Compile(c.BindingMessagePattern); err != nil {
		return fmt.Errorf("ciba: invalid binding message pattern: %w", err)
	}
	// the sweeper needs the payload for up to two passes after expiry
	if interval := c.Sweeper.effectiveInterval(); interval > 0 && c.PayloadGrace <= 2*interval {
		return fmt.Errorf("ciba: invalid config: payload grace %s must exceed twice the sweep interval %s", c.PayloadGrace, interval)
	}
	return nil
}

// effectiveInterval resolves the zero value to the default, negative disables the sweeper.
func (c SweeperConfig) effectiveInterval() time.Duration {
	if c.Interval == 0 {
		return DefaultSweepInterval
	}
	return c.Interval
}

func (c *Config) SupportsDeliveryMode(mode oidc.DeliveryMode) bool {
	for _, m := range c.DeliveryModes {
		if m == mode {
			return true
		}
	}
	return false
}

func (c *Config) SupportsGrantType(grantType oidc.GrantType) bool {
	for _, g := range c.GrantTypes {
		if g == grantType {
			return true
		}
	}
	return false
}

// ExpiresIn returns the lifetime in seconds for a request
// which asked for requested seconds, if any.
func (c *Config) ExpiresIn(requested *int) int {
	if requested != nil {
		return *requested
	}
	return c.DefaultExpiresIn
}
