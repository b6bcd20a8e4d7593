// screenlate server - captures a screen region, reads it with OCR engines,
// translates new text and serves the result over HTTP and WebSocket.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/GriffinCanCode/screenlate/internal/config"
	"github.com/GriffinCanCode/screenlate/internal/grpcclient"
	"github.com/GriffinCanCode/screenlate/internal/localdb"
	"github.com/GriffinCanCode/screenlate/internal/ocr"
	"github.com/GriffinCanCode/screenlate/internal/ocr/remote"
	"github.com/GriffinCanCode/screenlate/internal/ocr/tesseract"
	"github.com/GriffinCanCode/screenlate/internal/orchestrator"
	"github.com/GriffinCanCode/screenlate/internal/orchestrator/history"
	"github.com/GriffinCanCode/screenlate/internal/output"
	"github.com/GriffinCanCode/screenlate/internal/resilience"
	"github.com/GriffinCanCode/screenlate/internal/screen"
	"github.com/GriffinCanCode/screenlate/internal/server"
	"github.com/GriffinCanCode/screenlate/internal/speech"
	"github.com/GriffinCanCode/screenlate/internal/translate"
)

const (
	historyEntries = 500
	historyEvents  = 64
)

func main() {
	cfg, err := config.Load()
	setupLogging(levelFrom(os.Getenv("LOG_LEVEL")))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(levelFrom(cfg.LogLevel))
	slog.Info("config loaded", "config", cfg.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, db, err := buildComponents(ctx, cfg, nil)
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	region, _ := cfg.Region()
	store := history.NewStore(historyEntries, historyEvents)
	out := output.Fanout{store}
	if cfg.CopyToClipboard {
		out = append(out, output.NewClipboard())
	}

	var speaker orchestrator.Speaker
	if cfg.TTSEnabled {
		if q, err := newSpeech(cfg); err != nil {
			slog.Warn("speech disabled", "error", err)
		} else {
			go q.Run(ctx)
			defer func() { _ = q.Close() }()
			speaker = q
		}
	}

	mgr := orchestrator.New(screen.NewFactory(region), out, speaker, components)
	srv := server.New(mgr, store)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		slog.Info("screenlate server starting", "http", cfg.HTTPAddr, "engines", len(components.Engines))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			db = reload(ctx, mgr, db)
			continue
		}
		break
	}

	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	mgr.Close()
	slog.Info("shutdown complete")
}

func setupLogging(level slog.Level) {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	})))
}

func levelFrom(s string) slog.Level {
	switch strings.ToLower(s) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// reload re-reads the configuration and swaps the pipeline components. It
// returns the local database now in use.
func reload(ctx context.Context, mgr *orchestrator.Manager, db *localdb.DB) *localdb.DB {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("reload: keeping current configuration", "error", err)
		return db
	}
	components, next, err := buildComponents(ctx, cfg, db)
	if err != nil {
		slog.Error("reload: keeping current pipeline", "error", err)
		return db
	}
	mgr.Reconfigure(components)
	slog.Info("configuration reloaded", "config", cfg.String())
	return next
}

// buildComponents creates the pipeline parts for cfg. A previous local
// database is switched in place when it serves the same directory.
func buildComponents(ctx context.Context, cfg *config.Config, prevDB *localdb.DB) (orchestrator.Components, *localdb.DB, error) {
	c := orchestrator.Components{
		Language: ocr.LanguageFor(cfg.SourceLang),
		Settings: orchestrator.Settings{
			AppendToLocalDB:     cfg.AppendToLocalDB,
			AutoClear:           cfg.AutoClearTexts,
			AutoClearDelay:      cfg.AutoClearDelay,
			TranslationTimeout:  cfg.TranslationTimeout,
			SkipUnchangedFrames: cfg.SkipUnchangedFrames,
		},
	}

	t, err := translate.New(translate.OptionsFrom(cfg))
	if err != nil {
		return c, prevDB, err
	}
	c.Translator = t

	var db *localdb.DB
	if cfg.UseLocalDB {
		if dirs, err := localdb.Scan(cfg.LocalDBPath); err != nil {
			slog.Warn("scan local databases", "root", cfg.LocalDBPath, "error", err)
		} else {
			slog.Info("local databases found", "root", cfg.LocalDBPath, "dirs", dirs)
		}
		db, err = localdb.Reopen(prevDB, cfg.LocalDBPath, cfg.LocalDBDir, cfg.SourceLang, cfg.TargetLang)
		if err != nil {
			slog.Warn("local database disabled", "error", err)
		} else {
			c.LocalDB = db
		}
	}

	for _, ec := range cfg.Engines {
		e, err := newEngine(ctx, cfg, ec)
		if err != nil {
			slog.Warn("OCR engine unavailable", "engine", ec.ID, "error", err)
			continue
		}
		c.Engines = append(c.Engines, e)
	}
	return c, db, nil
}

func newEngine(ctx context.Context, cfg *config.Config, ec config.EngineConfig) (ocr.Engine, error) {
	ref := ocr.EngineRef{
		ID:             ec.ID,
		Priority:       ec.Priority,
		Confidence:     ec.Confidence,
		SecondaryCheck: ec.SecondaryCheck,
	}
	switch ec.Kind {
	case config.EngineRemote:
		addr := ec.Addr
		if addr == "" {
			addr = cfg.InferenceAddr
		}
		client, err := grpcclient.New(addr)
		if err != nil {
			return nil, err
		}
		err = resilience.Retry(ctx, resilience.StartupRetryConfig(), func() error {
			return client.Check(ctx)
		})
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return remote.New(ref, cfg.SourceLang, client), nil
	default:
		return tesseract.New(ref, cfg.SourceLang, ec.Mode)
	}
}

func newSpeech(cfg *config.Config) (*speech.Queue, error) {
	player, err := speech.NewPortAudioPlayer(cfg.TTSSampleRate)
	if err != nil {
		return nil, err
	}
	return speech.NewQueue(speech.NewHTTP(cfg.TTSURL, cfg.TargetLang, player), speech.DefaultQueueSize), nil
}
