package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhillyerd/enmime"

	"sdskataster/internal"
	"sdskataster/internal/storage"
	"sdskataster/internal/textsource"
	"sdskataster/internal/util"
)

// IntakeService files the PDF attachments of supplier mails into the inbox
// tree <inbox>/<sender domain>/<subject>/ so the normal scan can pick them
// up as one directory per mail.
type IntakeService struct {
	db         *storage.DB
	inboxDir   string
	extensions []string
	Logger     *slog.Logger
}

func NewIntakeService(db *storage.DB, inboxDir string, extensions []string) *IntakeService {
	if len(extensions) == 0 {
		extensions = []string{".pdf"}
	}
	return &IntakeService{db: db, inboxDir: inboxDir, extensions: extensions, Logger: slog.Default()}
}

// ErrUnusableMail marks a mail that cannot be filed. It is set to failed
// and the batch moves on.
var ErrUnusableMail = errors.New("unusable mail")

type IntakeResult struct {
	EmailID int
	Detect  DetectResult
	Dir     string
	Filed   []string
}

// FilePending files up to limit fetched mails of provider (all providers
// when empty). It returns the number of mails handled and of files written.
func (s *IntakeService) FilePending(limit int, provider string) (int, int, error) {
	pending, err := s.db.ListEmailsByProviderStatus(provider, "fetched", limit)
	if err != nil {
		return 0, 0, err
	}
	mails, files := 0, 0
	for _, email := range pending {
		res, err := s.FileEmail(email)
		if errors.Is(err, ErrUnusableMail) {
			s.Logger.Warn("mail.intake.failed", "email", email.ID, "err", err)
			mails++
			continue
		}
		if err != nil {
			return mails, files, err
		}
		mails++
		files += len(res.Filed)
	}
	return mails, files, nil
}

func (s *IntakeService) FileEmail(email internal.EmailRow) (IntakeResult, error) {
	res := IntakeResult{EmailID: email.ID}
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return res, s.fail(email.ID, "read", err)
	}
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return res, s.fail(email.ID, "parse", err)
	}

	htmlText := ""
	if env.HTML != "" {
		htmlText, _ = textsource.HTMLText(strings.NewReader(env.HTML))
	}

	parts := append(append([]*enmime.Part{}, env.Attachments...), env.Inlines...)
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		names = append(names, p.FileName)
	}

	subject := util.FirstNonEmpty(env.GetHeader("Subject"), email.Subject)
	res.Detect = DetectSDSMail(subject, env.Text, htmlText, names)
	if !res.Detect.IsSDS {
		s.Logger.Info("mail.intake.skip", "email", email.ID, "score", res.Detect.Score, "reason", res.Detect.Reason)
		return res, s.db.UpdateEmailStatus(email.ID, "skipped")
	}

	res.Dir = filepath.Join(s.inboxDir, senderDomain(env, email.Sender), util.SafeSegment(subject, 80))
	if err := os.MkdirAll(res.Dir, 0o755); err != nil {
		return res, err
	}
	for _, p := range parts {
		name := util.SafeSegment(filepath.Base(p.FileName), 120)
		if !s.wanted(name) {
			continue
		}
		path := freePath(res.Dir, name, email.ID, p.Content)
		if err := os.WriteFile(path, p.Content, 0o644); err != nil {
			return res, err
		}
		res.Filed = append(res.Filed, path)
	}

	s.Logger.Info("mail.intake.filed", "email", email.ID, "dir", res.Dir, "files", len(res.Filed))
	return res, s.db.UpdateEmailStatus(email.ID, "filed")
}

func (s *IntakeService) fail(emailID int, op string, cause error) error {
	if err := s.db.UpdateEmailStatus(emailID, "failed"); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s mail %d: %w", ErrUnusableMail, op, emailID, cause)
}

// freePath keeps an attachment of an earlier mail with the same subject.
// A differing file of the same name is stored as <emailID>_<name>.
func freePath(dir, name string, emailID int, content []byte) string {
	path := filepath.Join(dir, name)
	existing, err := os.ReadFile(path)
	if err != nil || bytes.Equal(existing, content) {
		return path
	}
	return filepath.Join(dir, fmt.Sprintf("%d_%s", emailID, name))
}

func (s *IntakeService) wanted(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range s.extensions {
		if ext == want {
			return true
		}
	}
	return false
}

func senderDomain(env *enmime.Envelope, fallback string) string {
	addr := fallback
	if list, err := env.AddressList("From"); err == nil && len(list) > 0 {
		addr = list[0].Address
	}
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		addr = addr[i+1:]
	}
	addr = strings.Trim(strings.ToLower(addr), "<> ")
	return util.SafeSegment(addr, 60)
}
