package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/ai"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/ai/gemini"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/document"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/export"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/logger"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/pricing"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/project"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/secrets"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/session"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/store"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/workflow"
)

var errAIUnavailable = errors.New("ai assistant is not configured")

type application struct {
	config *Config
	logger *zap.Logger

	repo      *project.Repository
	session   *session.Controller
	router    *workflow.Router
	analyst   ai.Analyst
	reader    *document.Reader
	predictor *pricing.Predictor
	exporter  *export.Exporter

	closers []func() error
}

// setup builds the logger and the configuration shared by every command.
func setup() (*zap.Logger, *Config) {
	config, err := getConfig()

	file := ""
	if config != nil {
		file = config.Log.File
	}

	l, logErr := logger.New(viper.GetBool("json"), viper.GetBool("debug"), file)
	if logErr != nil {
		log.Fatalf("creating a logger: %s", logErr)
	}

	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}
	return l, config
}

func newApplication(ctx context.Context, config *Config, l *zap.Logger, withAI bool) (*application, error) {
	a := &application{config: config, logger: l}

	s, err := a.newStore(ctx)
	if err != nil {
		return nil, err
	}

	a.repo = project.NewRepository(s, l.Named("repository"))
	a.session = session.New(a.repo, l.Named("session"))
	a.router = workflow.NewRouter(a.session)
	a.predictor = pricing.New(config.Pricing.Seed, l.Named("pricing"))
	a.exporter = export.NewExporter(config.Export.Dir, l.Named("export"))

	var ocr ai.TextExtractor
	if withAI {
		analyst, err := newAnalyst(ctx, config.AI, l)
		if err != nil {
			l.Warn("ai assistant disabled", zap.Error(err),
				zap.String("hint", "set GEMINI_API_KEY, ai.gemini.api-key or ai.gemini.api-key-file"),
			)
		} else {
			a.analyst = analyst
			ocr = analyst
		}
	}
	a.reader = document.NewReader(ocr, l.Named("document"))

	return a, nil
}

// connectRedis pings the server and closes the client when it does not answer.
func connectRedis(ctx context.Context, client *redis.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return err
	}
	return nil
}

func (a *application) newStore(ctx context.Context) (store.Store, error) {
	cfg := a.config.Storage
	l := a.logger.Named("store")

	switch cfg.Backend {
	case backendMemory:
		l.Warn("using in-memory storage, projects are lost on exit")
		return store.NewMemory(), nil
	case backendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := connectRedis(ctx, client); err != nil {
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		a.closers = append(a.closers, client.Close)

		l.Info("using redis storage", zap.String("addr", cfg.Redis.Addr), zap.String("key", cfg.Key))
		return store.NewRedis(client, cfg.Key, l), nil
	case backendFile:
		l.Info("using file storage", zap.String("path", cfg.Path))
		return store.NewFile(cfg.Path, l), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

func newAnalyst(ctx context.Context, cfg AIConfig, l *zap.Logger) (ai.Analyst, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   []string{"GEMINI_API_KEY", "API_KEY"},
	})
	if err != nil {
		return nil, err
	}

	genLogger := l.Named("gemini").With(
		zap.Int("ai_max_retries", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewAnalyst(generator, cfg.Gemini.MaxLogLength, l.Named("analyst")), nil
}

func (a *application) requireAnalyst() (ai.Analyst, error) {
	if a.analyst == nil {
		return nil, errAIUnavailable
	}
	return a.analyst, nil
}

func (a *application) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("closing resource", zap.Error(err))
		}
	}
}
