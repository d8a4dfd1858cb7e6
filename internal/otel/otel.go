//go:build !no_otel

package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationPrefix = "github.com/zitadel/ciba/"

// Tracer returns the tracer of the named package,
// taken from the globally registered provider.
func Tracer(pkg string) trace.Tracer {
	return otel.Tracer(instrumentationPrefix + pkg)
}
