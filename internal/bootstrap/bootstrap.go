// Package bootstrap wires configuration into the backend, storage, runner
// and transports shared by the server and the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/maauso/veogen/internal/config"
	"github.com/maauso/veogen/internal/generator"
	"github.com/maauso/veogen/internal/job"
	"github.com/maauso/veogen/internal/mcpserver"
	"github.com/maauso/veogen/internal/media"
	"github.com/maauso/veogen/internal/metrics"
	"github.com/maauso/veogen/internal/server"
	"github.com/maauso/veogen/internal/stability"
	"github.com/maauso/veogen/internal/storage"
	"github.com/maauso/veogen/internal/tools"
	"github.com/maauso/veogen/internal/veo"
)

// Version is reported to MCP clients.
var Version = "dev"

// Dependencies holds all initialized dependencies.
type Dependencies struct {
	Backend generator.Generator
	Store   storage.Storage
	Metrics *metrics.Metrics
	Runner  *job.Runner
	Service *job.Service
	Toolbox *tools.Toolbox
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	backend, err := initBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	runner := job.NewRunner(backend, store, logger,
		job.WithPollInterval(cfg.PollInterval()),
		job.WithMaxPolls(cfg.MaxPolls),
		job.WithExtendedMaxPolls(cfg.ExtendedMaxPolls),
		job.WithMaxVariations(cfg.MaxVariations),
		job.WithConcurrency(cfg.VariationConcurrency),
		job.WithMetrics(m),
	)
	svc := job.NewService(runner, job.NewMemoryRepository(), logger)

	toolbox, err := tools.New(svc, store,
		tools.WithAsync(cfg.AsyncDispatch()),
		tools.WithDefaultVariations(cfg.DefaultVariations),
		tools.WithMetrics(m),
		tools.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create toolbox: %w", err)
	}

	return &Dependencies{
		Backend: backend,
		Store:   store,
		Metrics: m,
		Runner:  runner,
		Service: svc,
		Toolbox: toolbox,
	}, nil
}

// Router builds the HTTP handler with the webhook, task API, static videos,
// metrics and MCP endpoint.
func (d *Dependencies) Router(logger *slog.Logger) http.Handler {
	cfg := server.DefaultConfig()
	cfg.VideoDir = d.Store.Dir()
	cfg.Metrics = d.Metrics.Handler()
	cfg.MCP = mcpserver.NewHandler(mcpserver.New(d.Toolbox, Version, logger))

	return server.NewRouter(server.NewHandlers(d.Toolbox, logger), logger, cfg)
}

// initBackend creates the generation backend named by cfg.Backend.
func initBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (generator.Generator, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendStability:
		client, err := stability.NewClient(
			stability.WithAPIKey(cfg.StabilityAPIKey),
			stability.WithBaseURL(cfg.StabilityBaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("create Stability client: %w", err)
		}
		processor := media.NewFFmpegProcessor(cfg.FFmpegPath)
		logger.Info("stability backend configured",
			slog.String("base_url", cfg.StabilityBaseURL),
			slog.String("ffmpeg", cfg.FFmpegPath),
		)
		return generator.NewStabilityAdapter(client, processor), nil

	default:
		client, err := veo.NewClient(ctx,
			veo.WithAPIKey(cfg.GeminiAPIKey),
			veo.WithModel(cfg.VeoModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create Veo client: %w", err)
		}
		logger.Info("veo backend configured",
			slog.String("model", client.Model()),
		)
		return generator.NewVeoAdapter(client), nil
	}
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.OutputDir, cfg.PublicBaseURL, s3Cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("output_dir", cfg.OutputDir),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.OutputDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("output_dir", cfg.OutputDir),
	)
	return localStore, nil
}
