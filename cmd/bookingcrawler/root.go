package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/booking-crawler/internal/app"
	"github.com/JakeFAU/booking-crawler/internal/config"
	"github.com/JakeFAU/booking-crawler/internal/logging"
	"github.com/JakeFAU/booking-crawler/internal/telemetry"
)

type options struct {
	configPath string
	envFile    string
}

type session struct {
	cfg    config.Config
	logger *zap.Logger
	tracer *sdktrace.TracerProvider
}

type sessionKey struct{}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "bookingcrawler",
		Short: "Incremental crawler for jail booking pages.",
		Long: `bookingcrawler resumes from the most recent completed crawl partition,
enumerates every candidate booking id up to yesterday, stores the raw pages
and emits one row per extracted booking.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(opts.envFile); err != nil {
				return err
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(logging.Config{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			tp, err := telemetry.InitTracerProvider(cmd.Context(), telemetry.ServiceName)
			if err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			rt := &session{cfg: cfg, logger: logger, tracer: tp}
			cmd.SetContext(context.WithValue(cmd.Context(), sessionKey{}, rt))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(sessionKey{}).(*session); ok {
				if err := rt.tracer.Shutdown(context.WithoutCancel(cmd.Context())); err != nil {
					rt.logger.Warn("tracer shutdown failed", zap.Error(err))
				}
				_ = rt.logger.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	cmd.AddCommand(newCrawlCmd(), newEnumerateCmd(), newServeCmd())
	return cmd
}

// loadEnvFile loads dotenv values without overriding the real environment.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func sessionFrom(ctx context.Context) (*session, error) {
	rt, ok := ctx.Value(sessionKey{}).(*session)
	if !ok || rt == nil {
		return nil, errors.New("configuration not initialized")
	}
	return rt, nil
}

// withApp builds the services, runs fn and always closes them.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	return withAppConfig(ctx, nil, fn)
}

// withAppConfig is withApp with the loaded config rewritten by adjust first.
func withAppConfig(
	ctx context.Context,
	adjust func(config.Config) config.Config,
	fn func(context.Context, *app.App) error,
) (err error) {
	rt, err := sessionFrom(ctx)
	if err != nil {
		return err
	}
	cfg := rt.cfg
	if adjust != nil {
		cfg = adjust(cfg)
	}
	a, err := app.New(ctx, cfg, rt.logger, app.Factories{})
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer func() {
		// The run context may already be canceled; closing must still flush.
		if cerr := a.Close(context.WithoutCancel(ctx)); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close services: %w", cerr))
		}
	}()
	return fn(ctx, a)
}
