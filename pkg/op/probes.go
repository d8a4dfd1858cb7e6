package op

import (
	"context"
	"errors"
	"net/http"

	httphelper "github.com/zitadel/ciba/pkg/http"
)

type ProbesFn func(context.Context) error

type Status struct {
	Status string `json:"status,omitempty"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	ok(w)
}

func readyHandler(probes []ProbesFn) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ReadyProbes(r.Context(), probes...); err != nil {
			httphelper.MarshalJSONWithStatus(w, Status{Status: err.Error()}, http.StatusServiceUnavailable)
			return
		}
		ok(w)
	}
}

// ReadyProbes runs all probes and returns the first failure.
func ReadyProbes(ctx context.Context, probes ...ProbesFn) error {
	for _, probe := range probes {
		if err := probe(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ReadyStorage is a probe failing while storage is nil.
func ReadyStorage(storage Storage) ProbesFn {
	return func(context.Context) error {
		if storage == nil {
			return errors.New("no storage")
		}
		return nil
	}
}

func ok(w http.ResponseWriter) {
	httphelper.MarshalJSON(w, Status{Status: "ok"})
}
