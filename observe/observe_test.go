package observe

import (
	"context"
	"errors"
	"testing"
)

// TestConfigValidate_Valid verifies that a fully valid config passes validation.
func TestConfigValidate_Valid(t *testing.T) {
	cfg := Config{
		ServiceName: "shakemapd-test",
		Version:     "1.0.0",
		Tracing: TracingConfig{
			Enabled:   true,
			Exporter:  "stdout",
			SamplePct: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Exporter: "stdout",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected nil error, got: %v", err)
	}
}

// TestConfigValidate_Invalid verifies the validation failure modes.
func TestConfigValidate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "missing service name",
			cfg:     Config{ServiceName: ""},
			wantErr: ErrMissingServiceName,
		},
		{
			name: "unknown tracing exporter",
			cfg: Config{
				ServiceName: "shakemapd-test",
				Tracing:     TracingConfig{Enabled: true, Exporter: "carrier-pigeon"},
			},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name: "sample pct above one",
			cfg: Config{
				ServiceName: "shakemapd-test",
				Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.5},
			},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "negative sample pct",
			cfg: Config{
				ServiceName: "shakemapd-test",
				Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: -0.1},
			},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "unknown metrics exporter",
			cfg: Config{
				ServiceName: "shakemapd-test",
				Metrics:     MetricsConfig{Enabled: true, Exporter: "badvalue"},
			},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name: "unknown log level",
			cfg: Config{
				ServiceName: "shakemapd-test",
				Logging:     LoggingConfig{Enabled: true, Level: "loud"},
			},
			wantErr: ErrInvalidLogLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got: %v", tt.wantErr, err)
			}
		})
	}
}

// TestConfigValidate_DisabledSubsystemsSkipChecks verifies that disabled
// subsystems are not validated.
func TestConfigValidate_DisabledSubsystemsSkipChecks(t *testing.T) {
	cfg := Config{
		ServiceName: "shakemapd-test",
		Tracing:     TracingConfig{Enabled: false, Exporter: "carrier-pigeon"},
		Metrics:     MetricsConfig{Enabled: false, Exporter: "badvalue"},
		Logging:     LoggingConfig{Enabled: false, Level: "loud"},
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected nil error for disabled subsystems, got: %v", err)
	}
}

// TestNewObserver_AllDisabled verifies that a fully disabled observer is
// usable and shuts down cleanly.
func TestNewObserver_AllDisabled(t *testing.T) {
	ctx := context.Background()
	obs, err := NewObserver(ctx, Config{ServiceName: "shakemapd-test"})
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}

	if obs.Tracer() == nil {
		t.Error("expected non-nil tracer")
	}
	if obs.Meter() == nil {
		t.Error("expected non-nil meter")
	}
	if obs.Logger() == nil {
		t.Error("expected non-nil logger")
	}

	// Logging on a noop logger must not panic.
	obs.Logger().Info(ctx, "hello")

	if err := obs.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

// TestNewObserver_InvalidConfig verifies that NewObserver rejects a bad config.
func TestNewObserver_InvalidConfig(t *testing.T) {
	_, err := NewObserver(context.Background(), Config{})
	if !errors.Is(err, ErrMissingServiceName) {
		t.Errorf("expected ErrMissingServiceName, got: %v", err)
	}
}

// TestRouteMeta_SpanName verifies span name construction.
func TestRouteMeta_SpanName(t *testing.T) {
	tests := []struct {
		name string
		meta RouteMeta
		want string
	}{
		{
			name: "method and pattern",
			meta: RouteMeta{Name: "api.run", Method: "GET", Pattern: "/api/run"},
			want: "http.GET /api/run",
		},
		{
			name: "name only",
			meta: RouteMeta{Name: "api.run"},
			want: "api.run",
		},
		{
			name: "missing pattern falls back to name",
			meta: RouteMeta{Name: "api.run", Method: "GET"},
			want: "api.run",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.meta.SpanName(); got != tt.want {
				t.Errorf("SpanName() = %q, want %q", got, tt.want)
			}
		})
	}
}
