package main

import (
	"fmt"
	"log/slog"

	"github.com/vbonduro/areawizard/internal/area"
	"github.com/vbonduro/areawizard/internal/config"
	"github.com/vbonduro/areawizard/internal/db"
	"github.com/vbonduro/areawizard/internal/filestore"
	"github.com/vbonduro/areawizard/internal/logging"
	"github.com/vbonduro/areawizard/internal/service"
	"github.com/vbonduro/areawizard/internal/store"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	kv     store.Store
	wizard *service.WizardService
	close  []func()
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, close: []func(){cleanup}}

	a.kv = a.openStore()

	files, err := filestore.NewLocal(cfg.FilesPath, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initialize attachment store: %w", err)
	}
	a.close = append(a.close, func() {
		if err := files.Close(); err != nil {
			logger.Error("failed to close attachment store", "error", err)
		}
	})

	ledger := area.NewLedger(a.kv, logger)
	ledger.Subscribe(logAttachmentEvents(logger))

	opts := service.DefaultOptions()
	opts.MinNewAreaAttachments = cfg.MinNewAreaAttachments

	a.wizard = service.NewWizardService(
		area.NewRegistry(a.kv, logger),
		ledger,
		area.NewDataStore(a.kv, logger),
		files,
		service.NewStaticAuthenticator(cfg.Users, cfg.LoginDelay),
		service.NewSimulatedSubmitter(cfg.SubmitDelay, cfg.SubmitFailureRate),
		opts,
		logger,
	)
	return a, nil
}

// openStore returns the configured KV store. When the database cannot be
// opened the app keeps running on memory only.
func (a *app) openStore() store.Store {
	if a.cfg.StorageBackend == "memory" {
		a.logger.Info("using in-memory storage")
		return store.NewMemoryStore()
	}

	database, err := db.Open(a.cfg.DBPath)
	if err != nil {
		a.logger.Warn("failed to open database, falling back to memory", "path", a.cfg.DBPath, "error", err)
		return store.NewMemoryStore()
	}
	a.close = append(a.close, func() {
		if err := database.Close(); err != nil {
			a.logger.Error("failed to close database", "error", err)
		}
	})
	a.logger.Info("using sqlite storage", "path", a.cfg.DBPath)
	return store.NewFallbackStore(store.NewSQLiteStore(database, a.logger), a.logger)
}

// logAttachmentEvents reports ledger changes at debug level.
func logAttachmentEvents(logger *slog.Logger) func(area.AttachmentEvent) {
	return func(ev area.AttachmentEvent) {
		logger.Debug("attachment event",
			"type", string(ev.Type),
			"area_id", ev.AreaID,
			"attachment_id", ev.Attachment.ID,
			"kind", string(ev.Attachment.Kind),
		)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.close) - 1; i >= 0; i-- {
		a.close[i]()
	}
}
