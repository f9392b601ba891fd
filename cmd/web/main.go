package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/villa-azur/web/internal/config"
	"github.com/villa-azur/web/internal/contact"
	"github.com/villa-azur/web/internal/observability"
	"github.com/villa-azur/web/internal/secrets"
)

const version = "1.0.0"

const shutdownTimeout = 10 * time.Second

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	serve := newServeCmd(opts)
	cmd := &cobra.Command{
		Use:           "villa",
		Short:         "Villa Azur website",
		Long:          "Serves the multilingual Villa Azur site: gallery, villa page, destinations and contact form.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file read before the process environment")
	cmd.Flags().AddFlagSet(serve.Flags())
	cmd.AddCommand(serve, newLintCmd(opts))
	return cmd
}

func newServeCmd(root *rootOptions) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var overrides map[string]string
			if port != "" {
				overrides = map[string]string{"VILLA_SERVER_PORT": port}
			}
			return serve(cmd.Context(), root.envFile, overrides)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port, overrides VILLA_SERVER_PORT and PORT")
	return cmd
}

// bootstrapLogger builds the logger from the raw environment so that configuration
// loading itself can log.
func bootstrapLogger(envFile string) (*zap.Logger, error) {
	level, _ := config.Lookup("VILLA_LOG_LEVEL", config.WithEnvFile(envFile))
	var opts []observability.LoggerOption
	if console, _ := config.Lookup("VILLA_LOG_CONSOLE", config.WithEnvFile(envFile)); console == "1" || console == "true" {
		opts = append(opts, observability.WithConsole())
	}
	return observability.NewLogger(level, opts...)
}

func loadConfig(ctx context.Context, logger *zap.Logger, envFile string, overrides map[string]string) (config.Config, func() error, error) {
	project, _ := config.Lookup("VILLA_SECRETS_PROJECT_ID", config.WithEnvFile(envFile))
	fallback, ok := config.Lookup("VILLA_SECRETS_FALLBACK_FILE", config.WithEnvFile(envFile))
	if !ok {
		fallback = ".secrets.local"
	}
	resolver := secrets.New(ctx, project, secrets.WithLogger(logger), secrets.WithFallbackFile(fallback))

	cfg, err := config.Load(ctx,
		config.WithEnvFile(envFile),
		config.WithEnvMap(overrides),
		config.WithSecretResolver(resolver),
	)
	if err != nil {
		_ = resolver.Close()
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			logger.Error("invalid configuration", zap.Strings("fields", verr.Fields()))
		}
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, resolver.Close, nil
}

func serve(ctx context.Context, envFile string, overrides map[string]string) error {
	logger, err := bootstrapLogger(envFile)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, closeSecrets, err := loadConfig(ctx, logger, envFile, overrides)
	if err != nil {
		return err
	}
	defer func() { _ = closeSecrets() }()

	if cfg.Session.Ephemeral {
		logger.Warn("VILLA_SESSION_SECRET not set; sessions will not survive a restart")
	}

	var opts []serverOption
	if cfg.Leads.Topic != "" {
		pub, closePub, err := contact.OpenPubSubPublisher(ctx, cfg.Leads.ProjectID, cfg.Leads.Topic)
		if err != nil {
			logger.Warn("lead events disabled", zap.String("topic", cfg.Leads.Topic), zap.Error(err))
		} else {
			defer func() { _ = closePub() }()
			opts = append(opts, withPublisher(pub))
		}
	}

	s, err := newServer(cfg, logger, opts...)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Streams never go idle on their own.
	srv.RegisterOnShutdown(s.closeStreams)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("web listening",
			zap.String("addr", srv.Addr),
			zap.Bool("dev", cfg.Site.Dev),
			zap.Strings("locales", s.bundle.Locales()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
