package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-jose/go-jose/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/slog"

	"github.com/zitadel/ciba/example/server/config"
	"github.com/zitadel/ciba/example/server/storage"
	"github.com/zitadel/ciba/pkg/ciba"
	"github.com/zitadel/ciba/pkg/ciba/storage/memory"
	"github.com/zitadel/ciba/pkg/ciba/storage/redis"
	"github.com/zitadel/ciba/pkg/ciba/storage/sql"
	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/op"
)

// server wires the provider to the configured store.
type server struct {
	*op.Provider
	storage    *storage.Storage
	service    *ciba.Service
	sweeper    *ciba.Sweeper
	closeStore func() error
	logger     *slog.Logger
}

func newServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *server, err error) {
	httpClient := httphelper.DefaultHTTPClient

	users, err := newUserStore(cfg)
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := ciba.NewMetrics(registry)

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = closeStore()
		}
	}()

	validator := ciba.NewRegistrationValidator(&cfg.CIBA, ciba.HTTPSectorIdentifierFetcher{Client: httpClient}, logger)
	st, err := storage.NewStorage(ctx, users, validator, httpClient, cfg.Clients,
		storage.WithAccessTokenLifetime(cfg.Tokens.AccessTokenLifetime),
	)
	if err != nil {
		return nil, err
	}

	verifier := ciba.NewJWTVerifier(cfg.Provider.Issuer, serverKeys(cfg.Provider.JwksURI, httpClient), cfg.CIBA.RequestSigningAlgs)
	notifier, err := ciba.NewEndUserNotifier(cfg.CIBA.Notification,
		ciba.WithNotifierLogger(logger),
		ciba.WithNotifierMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}
	dispatcher := ciba.NewHTTPCallbackDispatcher(
		ciba.WithCallbackLogger(logger),
		ciba.WithCallbackMetrics(metrics),
	)
	service, err := ciba.NewService(cfg.CIBA, store, st.Users(), verifier, notifier,
		ciba.WithLogger(logger),
		ciba.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}
	grants := ciba.NewGrantAdapter(store, dispatcher, ciba.WithGrantLogger(logger))

	opts := []op.Option{
		op.WithLogger(logger),
		op.WithHTTPClient(httpClient),
		op.WithRequestObjectVerifier(verifier),
		op.WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	}
	if cfg.CIBA.Notification.ContextHashKey != "" {
		opts = append(opts, op.WithDecisionEndpoint(st, notifier))
	}
	provider, err := op.NewProvider(&cfg.Provider, st, service, grants, opts...)
	if err != nil {
		return nil, err
	}

	return &server{
		Provider:   provider,
		storage:    st,
		service:    service,
		sweeper:    ciba.NewSweeper(store, dispatcher, cfg.CIBA.Sweeper, ciba.WithSweeperLogger(logger), ciba.WithSweeperMetrics(metrics)),
		closeStore: closeStore,
		logger:     logger,
	}, nil
}

// Close stops the sweeper and waits for pending notifications before the store goes away.
func (s *server) Close() {
	s.sweeper.Stop()
	s.service.Wait()
	if err := s.closeStore(); err != nil {
		s.logger.Error("close store", "error", err)
	}
}

func newUserStore(cfg *config.Config) (storage.UserStore, error) {
	if cfg.UsersFile != "" {
		return storage.StoreFromFile(cfg.UsersFile)
	}
	return storage.NewUserStore(cfg.Users...), nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (ciba.Store, func() error, error) {
	switch cfg.Driver {
	case config.StoreRedis:
		store, err := redis.New(ctx, *cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.StoreSQL:
		store, err := sql.Open(cfg.SQL.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sql store: %w", err)
		}
		return store, store.Close, nil
	default:
		return memory.New(), func() error { return nil }, nil
	}
}

// serverKeys returns the keys id_token_hint is verified with.
// Without a jwks_uri no id_token_hint is accepted.
func serverKeys(jwksURI string, client *http.Client) ciba.KeySetFunc {
	return func(ctx context.Context) (*jose.JSONWebKeySet, error) {
		keys := new(jose.JSONWebKeySet)
		if jwksURI == "" {
			return keys, nil
		}
		if err := httphelper.GetJSON(ctx, client, jwksURI, keys); err != nil {
			return nil, fmt.Errorf("fetch server keys: %w", err)
		}
		return keys, nil
	}
}
