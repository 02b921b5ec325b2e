package observability

import (
	"log"
	"time"

	"github.com/getsentry/sentry-go"
)

var sentryEnabled bool

// InitSentry enables error reporting when dsn is set.
// The returned func flushes buffered events and must be called on shutdown.
func InitSentry(dsn, environment string) func() {
	if dsn == "" {
		return func() {}
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		log.Printf("[Sentry] init failed: %v", err)
		return func() {}
	}

	sentryEnabled = true
	log.Printf("[Sentry] error reporting enabled env=%s", environment)
	return func() { sentry.Flush(2 * time.Second) }
}

// SentryEnabled reports whether InitSentry succeeded.
func SentryEnabled() bool {
	return sentryEnabled
}

// CaptureError reports an unexpected error. No-op when Sentry is disabled.
func CaptureError(err error) {
	if !sentryEnabled || err == nil {
		return
	}
	sentry.CaptureException(err)
}
