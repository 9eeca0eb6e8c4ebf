package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizdesk/bizdesk/internal/auth"
	"github.com/bizdesk/bizdesk/internal/gateway"
	"github.com/bizdesk/bizdesk/internal/gateway/postgres"
	"github.com/bizdesk/bizdesk/internal/gateway/supabase"
	"github.com/bizdesk/bizdesk/internal/platform/db"
)

// Backends are the storage handles selected by GATEWAY_DRIVER and AUTH_DRIVER.
type Backends struct {
	Gateway gateway.Gateway
	Auth    auth.Provider
	Pool    *pgxpool.Pool
}

// Close releases the Postgres pool when one was opened.
func (b *Backends) Close() {
	if b != nil && b.Pool != nil {
		b.Pool.Close()
	}
}

// OpenBackends connects the configured gateway and auth provider. The
// Postgres schema is created on first use.
func OpenBackends(ctx context.Context, cfg *Config, logger *slog.Logger) (*Backends, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backends{}
	if cfg.NeedsPostgres() {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		b.Pool = pool
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	switch cfg.GatewayDriver {
	case DriverMemory:
		logger.Warn("using in-memory gateway; records are lost on restart")
		b.Gateway = gateway.NewMemoryStore()
	case DriverPostgres:
		b.Gateway = postgres.New(b.Pool)
	case DriverSupabase:
		b.Gateway = supabase.New(httpClient, cfg.SupabaseURL, cfg.SupabaseKey, nil, logger)
	default:
		b.Close()
		return nil, fmt.Errorf("unknown gateway driver %q", cfg.GatewayDriver)
	}

	switch cfg.AuthDriver {
	case DriverPostgres:
		b.Auth = auth.NewPGProvider(b.Pool)
	case DriverSupabase:
		b.Auth = auth.NewGoTrueProvider(httpClient, cfg.SupabaseURL, cfg.SupabaseKey)
	default:
		b.Close()
		return nil, fmt.Errorf("unknown auth driver %q", cfg.AuthDriver)
	}
	logger.Info("backends ready",
		slog.String("gateway", cfg.GatewayDriver),
		slog.String("auth", cfg.AuthDriver),
	)
	return b, nil
}
