package listener

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"sdskataster/internal/config"
	"sdskataster/internal/connectors"
	gmailconnector "sdskataster/internal/connectors/gmail"
	imapconnector "sdskataster/internal/connectors/imap"
	"sdskataster/internal/pipeline"
	"sdskataster/internal/sds"
	"sdskataster/internal/storage"
)

const lastCycleKey = "listener.last_cycle"

// Service polls a mailbox, files data sheet attachments into the inbox tree
// and runs the register pipeline over the directories that changed.
type Service struct {
	db  *storage.DB
	cfg config.Config

	// Connector and Extractor are built from cfg when nil.
	Connector connectors.MailConnector
	Extractor sds.Extractor
	Logger    *slog.Logger
}

type CycleResult struct {
	Fetched int
	Stored  int
	Mails   int
	Files   int
	Run     pipeline.RunResult
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{db: db, cfg: cfg, Logger: slog.Default()}
}

// Serve opens the ledger named by cfg and polls until ctx is done.
func Serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := NewService(db, cfg)
	svc.Logger = logger
	logger.Info("listener.start", "provider", cfg.MailListenerProvider, "inbox", cfg.InboxDir, "interval_sec", cfg.MailListenerIntervalSec)
	return svc.Run(ctx)
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.Logger.Error("listener.cycle.error", "err", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult
	provider, err := connectors.ParseProvider(s.cfg.MailListenerProvider)
	if err != nil {
		return res, err
	}
	conn := s.Connector
	if conn == nil {
		if conn, err = s.makeConnector(ctx, provider); err != nil {
			return res, err
		}
	}

	fetch := connectors.NewFetchService(s.db, s.cfg.RawMailDir, conn)
	fetch.Logger = s.Logger
	fetched, err := fetch.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return res, err
	}
	res.Fetched, res.Stored = fetched.Fetched, fetched.Stored

	intake := pipeline.NewIntakeService(s.db, s.cfg.InboxDir, s.cfg.DocExtensions)
	intake.Logger = s.Logger
	res.Mails, res.Files, err = intake.FilePending(s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return res, err
	}

	if err := os.MkdirAll(s.cfg.InboxDir, 0o755); err != nil {
		return res, err
	}
	ext := s.Extractor
	if ext == nil {
		if ext, err = pipeline.BuildExtractor(s.cfg, ""); err != nil {
			return res, err
		}
	}
	sink := pipeline.XLSXSink{Path: s.cfg.ExcelPath, Sheet: s.cfg.SheetName, InsertRow: s.cfg.InsertRow}
	proc := pipeline.NewProcessingService(s.db, s.cfg, ext, sink)
	proc.SkipUnchanged = true
	proc.Logger = s.Logger
	res.Run, err = proc.ProcessRoot(s.cfg.InboxDir)
	if err != nil {
		return res, err
	}

	stamp := time.Now().UTC().Format(time.RFC3339)
	if err := s.db.SetMetadata(lastCycleKey, stamp); err != nil {
		return res, err
	}
	s.Logger.Info("listener.cycle.done", "provider", provider,
		"fetched", res.Fetched, "stored", res.Stored, "mails", res.Mails, "files", res.Files,
		"emitted", res.Run.Emitted, "unchanged", res.Run.Unchanged)
	return res, nil
}

func (s *Service) makeConnector(ctx context.Context, provider string) (connectors.MailConnector, error) {
	switch provider {
	case connectors.ProviderGmail:
		return gmailconnector.NewConnector(ctx, s.cfg)
	case connectors.ProviderIMAP:
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}
