package op

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/zitadel/schema"
	"golang.org/x/exp/slog"

	"github.com/zitadel/ciba/internal/otel"
	"github.com/zitadel/ciba/pkg/ciba"
	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

const (
	healthEndpoint    = "/healthz"
	readinessEndpoint = "/ready"
)

var tracer = otel.Tracer("pkg/op")

var defaultCORSOptions = cors.Options{
	AllowCredentials: true,
	AllowedHeaders: []string{
		"Origin",
		"Accept",
		"Accept-Language",
		"Authorization",
		"Content-Type",
		"X-Requested-With",
	},
	AllowedMethods: []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
	},
	ExposedHeaders: []string{
		"Location",
		"Content-Length",
	},
	AllowOriginFunc: func(_ string) bool {
		return true
	},
}

// RequestObjectVerifier verifies signed backchannel authentication requests.
type RequestObjectVerifier interface {
	VerifyRequestObject(ctx context.Context, client ciba.Client, request string) (*oidc.BackchannelRequestObject, error)
}

// Provider serves the backchannel authentication endpoint and
// the CIBA grant of the token endpoint.
type Provider struct {
	config         *Config
	endpoints      Endpoints
	storage        Storage
	service        *ciba.Service
	grants         *ciba.GrantAdapter
	requestObjects RequestObjectVerifier
	decisions      *decisionConfig
	decoder        *schema.Decoder
	httpClient     *http.Client
	logger         *slog.Logger
	probes         []ProbesFn
	metrics        http.Handler
	corsOptions    *cors.Options
	middleware     []func(http.Handler) http.Handler
	nowFunc        func() time.Time

	handler http.Handler
}

type Option func(o *Provider) error

func WithCustomEndpoints(endpoints Endpoints) Option {
	return func(o *Provider) error {
		for _, e := range []Endpoint{endpoints.BackchannelAuthentication, endpoints.Token, endpoints.Decision, endpoints.Metrics} {
			if err := e.Validate(); err != nil {
				return err
			}
		}
		o.endpoints = endpoints
		return nil
	}
}

// WithRequestObjectVerifier enables the request and request_uri parameters.
func WithRequestObjectVerifier(verifier RequestObjectVerifier) Option {
	return func(o *Provider) error {
		o.requestObjects = verifier
		return nil
	}
}

// WithProbes adds readiness checks, in addition to the store health.
func WithProbes(probes ...ProbesFn) Option {
	return func(o *Provider) error {
		o.probes = append(o.probes, probes...)
		return nil
	}
}

// WithMetricsHandler serves handler on the metrics endpoint,
// typically promhttp.HandlerFor the registry of ciba.NewMetrics.
func WithMetricsHandler(handler http.Handler) Option {
	return func(o *Provider) error {
		o.metrics = handler
		return nil
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *Provider) error {
		o.httpClient = client
		return nil
	}
}

// WithCORSOptions replaces the default CORS options.
// A nil value disables CORS handling.
func WithCORSOptions(opts *cors.Options) Option {
	return func(o *Provider) error {
		o.corsOptions = opts
		return nil
	}
}

func WithHttpInterceptors(interceptors ...func(http.Handler) http.Handler) Option {
	return func(o *Provider) error {
		o.middleware = append(o.middleware, interceptors...)
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Provider) error {
		o.logger = logger
		return nil
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(o *Provider) error {
		o.nowFunc = now
		return nil
	}
}

func NewProvider(config *Config, storage Storage, service *ciba.Service, grants *ciba.GrantAdapter, opts ...Option) (*Provider, error) {
	if err := ValidateIssuer(config.Issuer, config.Insecure); err != nil {
		return nil, err
	}
	o := &Provider{
		config:      config,
		endpoints:   DefaultEndpoints,
		storage:     storage,
		service:     service,
		grants:      grants,
		httpClient:  httphelper.DefaultHTTPClient,
		logger:      slog.Default(),
		corsOptions: &defaultCORSOptions,
		nowFunc:     time.Now,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	o.decoder = schema.NewDecoder()
	o.decoder.IgnoreUnknownKeys(true)
	o.handler = o.createRouter()
	return o, nil
}

func (o *Provider) createRouter() http.Handler {
	router := chi.NewRouter()
	router.Use(o.LogMiddleware())
	if o.corsOptions != nil {
		router.Use(cors.New(*o.corsOptions).Handler)
	}
	router.Use(o.middleware...)
	router.HandleFunc(healthEndpoint, healthHandler)
	router.HandleFunc(readinessEndpoint, readyHandler(o.Probes()))
	router.HandleFunc(oidc.DiscoveryEndpoint, discoveryHandler(o))
	router.Post(o.endpoints.BackchannelAuthentication.Relative(), o.backchannelAuthenticationHandler)
	router.Post(o.endpoints.Token.Relative(), o.tokenHandler)
	if o.decisions != nil {
		router.Post(o.endpoints.Decision.Relative(), o.decisionHandler)
	}
	if o.metrics != nil {
		router.Handle(o.endpoints.Metrics.Relative(), o.metrics)
	}
	return router
}

func (o *Provider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.handler.ServeHTTP(w, r)
}

func (o *Provider) Issuer() string {
	return o.config.Issuer
}

func (o *Provider) Endpoints() Endpoints {
	return o.endpoints
}

func (o *Provider) Storage() Storage {
	return o.storage
}

func (o *Provider) Decoder() httphelper.Decoder {
	return o.decoder
}

func (o *Provider) Logger() *slog.Logger {
	return o.logger
}

// Probes returns the readiness checks, starting with the client storage
// and the health of the request store.
func (o *Provider) Probes() []ProbesFn {
	return append([]ProbesFn{ReadyStorage(o.storage), o.service.Health}, o.probes...)
}
