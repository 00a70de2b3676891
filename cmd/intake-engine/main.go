package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mauka-works/intake-engine/internal/api"
	"github.com/mauka-works/intake-engine/internal/capture"
	"github.com/mauka-works/intake-engine/internal/config"
	"github.com/mauka-works/intake-engine/internal/events"
	"github.com/mauka-works/intake-engine/internal/flow"
	"github.com/mauka-works/intake-engine/internal/match"
	"github.com/mauka-works/intake-engine/internal/resume"
	"github.com/mauka-works/intake-engine/internal/sink"
	"github.com/mauka-works/intake-engine/internal/speech"
	"github.com/mauka-works/intake-engine/internal/store"
	"github.com/mauka-works/intake-engine/internal/translate"
)

var version = "dev"

func main() {
	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file")
	flag.StringVar(&overrides.HTTPAddr, "http-addr", "", "HTTP listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.StringVar(&overrides.DatabaseURL, "database-url", "", "Postgres URL for the submissions archive")
	flag.StringVar(&overrides.QuestionFile, "question-file", "", "JSON file overriding the built-in question sets")
	flag.Parse()

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("intake-engine starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Speech and translation clients share the Google API key.
	recognizer := speech.NewRecognizer(cfg.GoogleAPIKey, "", cfg.PipelineTimeout)
	synth := speech.NewSynthesizer(cfg.GoogleAPIKey, "", cfg.PipelineTimeout)
	translator := translate.New(cfg.GoogleAPIKey, "", cfg.PipelineTimeout)

	// Spreadsheet sink
	sheetLog := log.With().Str("component", "sheets").Logger()
	sheet := sink.New(cfg.SheetsSpreadsheetID, cfg.SheetsToken, "", cfg.PipelineTimeout, sheetLog)

	// Optional Postgres archive
	var db *store.DB
	if cfg.DatabaseURL != "" {
		dbLog := log.With().Str("component", "database").Logger()
		db, err = store.Connect(ctx, cfg.DatabaseURL, dbLog)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("schema migration failed")
		}
	}

	// Optional completion event broker
	var publisher *events.Publisher
	if cfg.MQTTBrokerURL != "" {
		mqttLog := log.With().Str("component", "mqtt").Logger()
		publisher, err = events.Connect(events.Options{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			Log:       mqttLog,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		defer publisher.Close()
	}

	// Optional Gemini-backed matching and resume content
	var matcher *match.Matcher
	var builder *resume.Builder
	if cfg.GeminiAPIKey != "" {
		matcher, err = match.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create matcher")
		}
		builder, err = resume.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create resume builder")
		}
	}

	// Question catalog, optionally hot-reloaded from a file
	catalog := flow.NewCatalog()
	if cfg.QuestionFile != "" {
		watcher := flow.NewCatalogWatcher(catalog, cfg.QuestionFile, log)
		if err := watcher.Start(ctx); err != nil {
			log.Fatal().Err(err).Str("path", cfg.QuestionFile).Msg("failed to load question file")
		}
		defer watcher.Stop()
	}

	// Flow controller
	flowLog := log.With().Str("component", "flow").Logger()
	captureLog := log.With().Str("component", "capture").Logger()
	opts := flow.Options{
		Catalog:    catalog,
		Recognizer: recognizer,
		Translator: translator,
		Sink:       sheet,
		Policy:     flow.DefaultPolicy(),
		Log:        flowLog,
		CaptureFactory: func() *capture.Session {
			return capture.NewSession(capture.Options{
				Source:      httpSource{},
				SettleDelay: cfg.CaptureSettle,
				Log:         captureLog,
			})
		},
	}
	if db != nil {
		opts.Archive = db
	}
	if publisher != nil {
		opts.Publisher = publisher
	}
	ctrl := flow.NewController(opts)

	// HTTP server
	httpLog := log.With().Str("component", "http").Logger()
	session := api.NewSessionHandler(ctrl, synth, matcherOrNil(matcher), profilesOrNil(db), builderOrNil(builder))
	deps := api.Deps{Session: session, Version: version}
	if db != nil {
		deps.DB = db
	}
	if publisher != nil {
		deps.Broker = publisher
	}
	srv := api.NewServer(cfg, deps, httpLog)

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	ctrl.Reset()
	log.Info().Msg("intake-engine stopped")
}

// httpSource stands in for the capture device: recording happens in the
// client, chunks arrive over HTTP, so acquiring the "device" always succeeds
// on the server side.
type httpSource struct{}

func (httpSource) Open() error  { return nil }
func (httpSource) Close() error { return nil }

// A typed nil inside a non-nil interface would defeat the handler's
// not-configured checks, so wrap the optional backends explicitly.
func matcherOrNil(m *match.Matcher) api.MatchSource {
	if m == nil {
		return nil
	}
	return m
}

func profilesOrNil(db *store.DB) api.ProfileLister {
	if db == nil {
		return nil
	}
	return db
}

func builderOrNil(b *resume.Builder) api.ResumeBuilder {
	if b == nil {
		return nil
	}
	return b
}
