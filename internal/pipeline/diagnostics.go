package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"sdskataster/internal"
)

type Severity string

const (
	SeverityInfo Severity = "INFO"
	SeverityWarn Severity = "WARN"
	SeveritySkip Severity = "SKIP"
)

// Diagnostic is one user-facing line about a document or directory.
type Diagnostic struct {
	Severity Severity
	Subject  string
	Message  string
	Fields   []string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s", d.Severity, d.Message)
}

// DocumentDiagnostics reports unreadable documents and missing fields of a
// freshly extracted record.
func DocumentDiagnostics(doc DocumentRecord) []Diagnostic {
	var out []Diagnostic
	if doc.Err != nil {
		out = append(out, Diagnostic{
			Severity: SeverityWarn,
			Subject:  doc.Path,
			Message:  fmt.Sprintf("Could not read text from: %s (%v)", doc.Path, doc.Err),
		})
	}
	missing := Missing(doc.Record)
	switch {
	case len(missing) == len(internal.RecordFields):
		out = append(out, Diagnostic{
			Severity: SeverityWarn,
			Subject:  doc.Path,
			Message:  fmt.Sprintf("All SDS fields are missing for: %s", doc.Path),
			Fields:   missing,
		})
	case len(missing) > 0:
		out = append(out, Diagnostic{
			Severity: SeverityWarn,
			Subject:  doc.Path,
			Message:  fmt.Sprintf("Some SDS fields are missing for: %s -> %s", doc.Path, strings.Join(missing, ", ")),
			Fields:   missing,
		})
	}
	return out
}

func permissionDiagnostic(dir string, err error) Diagnostic {
	msg := fmt.Sprintf("Permission denied: %s", dir)
	if !os.IsPermission(err) {
		msg = fmt.Sprintf("Cannot read directory: %s (%v)", dir, err)
	}
	return Diagnostic{Severity: SeverityWarn, Subject: dir, Message: msg}
}

// Reporter prints diagnostics as plain lines and mirrors them to the log.
type Reporter struct {
	Out    io.Writer
	Logger *slog.Logger
}

func NewReporter(out io.Writer, logger *slog.Logger) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{Out: out, Logger: logger}
}

func (r *Reporter) Report(diags ...Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(r.Out, d.String())
		r.Logger.Debug("diagnostic", "severity", string(d.Severity), "subject", d.Subject, "fields", d.Fields)
	}
}
