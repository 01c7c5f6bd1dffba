package connectors

import (
	"context"
	"fmt"
	"strings"

	"sdskataster/internal"
)

const (
	ProviderGmail = "gmail"
	ProviderIMAP  = "imap"
)

// MailConnector pulls raw supplier mails from one mailbox.
type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
}

// ParseProvider normalizes a provider name from config or flags.
func ParseProvider(value string) (string, error) {
	switch p := strings.ToLower(strings.TrimSpace(value)); p {
	case ProviderGmail, ProviderIMAP:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported mail provider: %q", value)
	}
}
