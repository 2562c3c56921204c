package nakama

import (
	"context"
	"database/sql"
	"fmt"

	"cardsagainst/internal/app"
	"cardsagainst/internal/config"
	otelsetup "cardsagainst/internal/platform/otel"
	"cardsagainst/internal/storage/sqlite"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires RPCs and match handlers for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	var env config.Env
	vars, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if err := config.ParseEnvMap(&env, vars); err != nil {
		return err
	}
	if env.TicketSecret == "" {
		return fmt.Errorf("CARDSAGAINST_TICKET_SECRET is required")
	}

	if err := config.LoadGameConfig(env.GameConfigPath); err != nil {
		logger.Warn("InitModule: Could not load game config, using defaults: %v", err)
	}
	cfg := config.GetGameConfig()

	store, err := sqlite.Open(env.DBPath)
	if err != nil {
		return fmt.Errorf("open card store: %w", err)
	}

	shutdownTracing, err := otelsetup.Setup(ctx, ServiceName, otelsetup.Options{
		Enabled:  env.OTelEnabled,
		Endpoint: env.OTelEndpoint,
	})
	if err != nil {
		logger.Warn("InitModule: Tracing disabled: %v", err)
	}

	deps := newRuntimeDeps(cfg, store, store, store, app.NewTicketService(env.TicketSecret, env.TicketIssuer, env.TicketTTL), logger)

	if err := initializer.RegisterRpc(RpcConnect, deps.rpcConnect); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcChangelog, deps.rpcChangelog); err != nil {
		return err
	}
	if err := initializer.RegisterMatch(MatchNameLobby, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return &matchHandler{deps: deps}, nil
	}); err != nil {
		return err
	}
	if err := initializer.RegisterShutdown(func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) {
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("Shutdown: flush traces: %v", err)
		}
		if err := store.Close(); err != nil {
			logger.Warn("Shutdown: close card store: %v", err)
		}
	}); err != nil {
		return err
	}

	logger.Info("Cards Against Go module loaded (deck %s, tick rate %d).", cfg.DeckID, cfg.TickRate)
	return nil
}
