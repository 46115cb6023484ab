// Command gateway runs the quota-enforcing streaming chat gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/halcyonai/chat-gateway/internal/auth"
	"github.com/halcyonai/chat-gateway/internal/config"
	"github.com/halcyonai/chat-gateway/internal/gateway"
	"github.com/halcyonai/chat-gateway/internal/inference"
	"github.com/halcyonai/chat-gateway/internal/monitoring"
	"github.com/halcyonai/chat-gateway/internal/usage"
)

func main() {
	var (
		configPath string
		debug      bool
	)
	flag.StringVar(&configPath, "config", "", "path to config.yaml (optional; env vars cover the required settings)")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	setupLogging(debug)

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, opener, err := buildBackends(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	tracker, err := monitoring.NewTracker(monitoring.TrackerConfig{
		Enabled:     cfg.Monitoring.Enabled,
		LogPath:     cfg.Monitoring.RequestLogPath,
		LogToStdout: cfg.Monitoring.LogToStdout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer tracker.Close()

	gw := gateway.New(cfg, gateway.Deps{
		Verifier: auth.NewVerifier(cfg.Auth.SharedSecret),
		Store:    store,
		Guard:    usage.NewGuard(store, cfg.Usage.UserMonthlyLimit, cfg.Usage.GlobalMonthlyLimit),
		Recorder: usage.NewRecorder(store),
		Opener:   opener,
		Metrics:  monitoring.NewMetrics(),
		Tracker:  tracker,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := gw.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("gateway: server failed")
		os.Exit(1)
	case <-ctx.Done():
	}

	log.Info().Msg("gateway: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := gw.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("gateway: shutdown did not drain cleanly")
	}
}

// buildBackends wires the usage store and the model provider for the
// configured driver. AWS credentials are resolved through the default chain.
func buildBackends(ctx context.Context, cfg *config.Config) (usage.Store, func(), inference.Opener, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Inference.Region))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load AWS config: %w", err)
	}

	opener := inference.NewBedrock(
		bedrockruntime.NewFromConfig(awsCfg),
		cfg.Inference.ModelID,
		cfg.Inference.SystemPreamble,
	)

	switch cfg.Usage.Driver {
	case config.DriverDynamoDB:
		store := usage.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.Usage.TableName)
		return store, func() {}, opener, nil
	case config.DriverSQLite:
		store, err := usage.OpenSQLiteStore(cfg.Usage.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, func() { _ = store.Close() }, opener, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown usage driver %q", cfg.Usage.Driver)
	}
}

func setupLogging(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
