package connectors

import (
	"context"
	"log/slog"

	"sdskataster/internal/storage"
)

type FetchService struct {
	db        *storage.DB
	connector MailConnector
	store     *MailStoreService
	Logger    *slog.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
	Known   int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector) *FetchService {
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
		Logger:    slog.Default(),
	}
}

// FetchAndStore pulls up to max mails from label and records them as
// "fetched". Mails seen before keep their status so they are not filed twice.
func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, err
	}

	res := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		row, created, err := s.store.Store(msg)
		if err != nil {
			return res, err
		}
		if !created {
			res.Known++
			continue
		}
		res.Stored++
		s.Logger.Debug("mail.stored", "provider", msg.Provider, "id", row.ID, "subject", msg.Subject)
	}
	s.Logger.Info("mail.fetch.done", "label", label, "fetched", res.Fetched, "stored", res.Stored, "known", res.Known)
	return res, nil
}
