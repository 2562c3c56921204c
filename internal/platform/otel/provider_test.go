package otel_test

import (
	"context"
	"testing"

	"cardsagainst/internal/platform/otel"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name string
		opts otel.Options
	}{
		{name: "disabled", opts: otel.Options{Endpoint: "http://localhost:4318"}},
		{name: "no endpoint", opts: otel.Options{Enabled: true}},
		// Non-routable address so nothing is exported.
		{name: "enabled", opts: otel.Options{Enabled: true, Endpoint: "http://192.0.2.1:4318"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := otel.Setup(context.Background(), "cardsagainst-test", tt.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := shutdown(context.Background()); err != nil {
				t.Fatalf("shutdown error: %v", err)
			}
		})
	}
}

func TestSetupNoopShutdownIgnoresCancelledContext(t *testing.T) {
	shutdown, err := otel.Setup(context.Background(), "noop-test", otel.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}
