package pipeline

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"sdskataster/internal"
	"sdskataster/internal/config"
	"sdskataster/internal/sds"
	"sdskataster/internal/storage"
	"sdskataster/internal/textsource"
)

// ProcessingService runs scan, extraction, grouping and the sink for one
// root, one directory at a time. The ledger is optional.
type ProcessingService struct {
	db        *storage.DB
	extractor sds.Extractor
	sink      RecordSink
	scanner   Scanner

	// SkipUnchanged skips directories whose files are byte-identical to
	// the last time they were processed, and does not write a hazard
	// signature again that an earlier run already wrote for the same
	// directory. Needs the ledger.
	SkipUnchanged bool
	Reporter      *Reporter
	Logger        *slog.Logger
}

func NewProcessingService(db *storage.DB, cfg config.Config, extractor sds.Extractor, sink RecordSink) *ProcessingService {
	return &ProcessingService{
		db:        db,
		extractor: extractor,
		sink:      sink,
		scanner:   Scanner{Extensions: cfg.DocExtensions},
		Reporter:  NewReporter(os.Stdout, slog.Default()),
		Logger:    slog.Default(),
	}
}

// BuildExtractor assembles the configured text backend, pictogram table and
// format. An empty format uses the configured one.
func BuildExtractor(cfg config.Config, format string) (sds.Extractor, error) {
	if strings.TrimSpace(format) == "" {
		format = cfg.ExtractFormat
	}
	f, err := sds.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	src, err := textsource.New(cfg.TextBackend)
	if err != nil {
		return nil, err
	}
	table, err := sds.LoadPictogramTable(cfg.HazardTablePath)
	if err != nil {
		return nil, err
	}
	return sds.NewExtractor(f, src, table)
}

type RunResult struct {
	RunID       int
	TraceID     string
	Directories int
	Unchanged   int
	Documents   int
	Failed      int
	Emitted     int
	Skipped     int
	Dropped     int
	Repeated    int
}

func (r RunResult) Counts() map[string]int {
	return map[string]int{
		"directories": r.Directories,
		"unchanged":   r.Unchanged,
		"documents":   r.Documents,
		"failed":      r.Failed,
		"emitted":     r.Emitted,
		"skipped":     r.Skipped,
		"dropped":     r.Dropped,
		"repeated":    r.Repeated,
	}
}

func (s *ProcessingService) ProcessRoot(root string) (RunResult, error) {
	start := time.Now()
	res := RunResult{TraceID: traceID()}

	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return res, fmt.Errorf("%w: %s", ErrInvalidRoot, root)
	}
	if s.db != nil {
		id, err := s.db.StartRun(res.TraceID, root, string(s.extractor.Format()))
		if err != nil {
			return res, fmt.Errorf("start run: %w", err)
		}
		res.RunID = id
	}

	scanner := s.scanner
	scanner.OnDirError = func(dir string, err error) {
		s.Reporter.Report(permissionDiagnostic(dir, err))
		s.Logger.Warn("scan.dir.error", "dir", dir, "err", err)
	}
	err := scanner.Scan(root, func(dir Directory, files []string) error {
		return s.processDirectory(&res, dir, files)
	})

	if s.db != nil {
		if ferr := s.db.FinishRun(res.RunID, res.Counts()); ferr != nil && err == nil {
			err = fmt.Errorf("finish run: %w", ferr)
		}
	}
	s.Logger.Info("ledger.run.finish",
		"trace", res.TraceID, "run", res.RunID, "root", root,
		"documents", res.Documents, "emitted", res.Emitted, "skipped", res.Skipped, "repeated", res.Repeated,
		"ms", time.Since(start).Milliseconds())
	return res, err
}

func (s *ProcessingService) processDirectory(res *RunResult, dir Directory, files []string) error {
	hashes := make([]string, len(files))
	hashed := true
	for i, path := range files {
		sum, err := fileSHA256(path)
		if err != nil {
			s.Logger.Warn("scan.file.hash", "path", path, "err", err)
			hashed = false
		}
		hashes[i] = sum
	}

	incremental := s.SkipUnchanged && s.db != nil
	fingerprintKey := "dir:" + dir.Path
	fingerprint := strings.Join(hashes, ",")
	if incremental && hashed {
		prev, err := s.db.GetMetadata(fingerprintKey)
		if err != nil {
			return err
		}
		if prev != nil && *prev == fingerprint {
			res.Unchanged++
			s.Logger.Debug("scan.dir.unchanged", "dir", dir.Rel)
			return nil
		}
	}

	docs := make([]DocumentRecord, 0, len(files))
	docIDs := make([]*int, len(files))
	for i, path := range files {
		rec, err := s.extractor.Extract(path)
		doc := DocumentRecord{Path: path, Record: rec, Err: err}
		res.Documents++
		if err != nil {
			res.Failed++
			s.Logger.Warn("extract.failed", "path", path, "err", err)
		}
		s.Reporter.Report(DocumentDiagnostics(doc)...)

		if s.db != nil {
			row := internal.DocumentRow{
				RunID:     res.RunID,
				Path:      path,
				Directory: dir.Rel,
				SHA256:    hashes[i],
				Extractor: string(s.extractor.Format()),
				Record:    rec,
			}
			if err != nil {
				msg := err.Error()
				row.Error = &msg
			}
			id, err := s.db.InsertDocument(row)
			if err != nil {
				return fmt.Errorf("ledger document: %w", err)
			}
			docIDs[i] = &id
		}
		docs = append(docs, doc)
	}

	decision := GroupDirectory(dir, docs)
	s.Reporter.Report(decision.Diagnostics...)

	var written map[string]bool
	if incremental {
		var err error
		if written, err = s.db.EmittedSignatures(dir.Rel); err != nil {
			return fmt.Errorf("ledger emissions: %w", err)
		}
	}
	for _, em := range decision.Emit {
		if written[em.Record.Signature()] {
			res.Repeated++
			s.Logger.Debug("scan.record.repeated", "dir", dir.Rel, "signature", em.Record.Signature())
			continue
		}
		if err := s.sink.Write(em.Record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if s.db != nil {
			if err := s.db.InsertEmission(res.RunID, docIDs[em.Doc], dir.Rel, em.Record); err != nil {
				return fmt.Errorf("ledger emission: %w", err)
			}
		}
		res.Emitted++
	}
	res.Directories++
	res.Skipped += decision.Skipped
	res.Dropped += decision.Dropped

	if s.db != nil && hashed {
		if err := s.db.SetMetadata(fingerprintKey, fingerprint); err != nil {
			return err
		}
	}
	s.Logger.Info("scan.dir.done", "dir", dir.Rel, "documents", len(docs),
		"emitted", len(decision.Emit), "skipped", decision.Skipped, "dropped", decision.Dropped)
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

// ExportRun writes the emissions of a stored run into a fresh workbook.
func ExportRun(db *storage.DB, runID int, outputPath, sheet string) (int, error) {
	run, err := db.GetRun(runID)
	if err != nil {
		return 0, err
	}
	if run == nil {
		return 0, fmt.Errorf("run not found: %d", runID)
	}
	emissions, err := db.ListEmissions(runID)
	if err != nil {
		return 0, err
	}
	records := make([]internal.Record, 0, len(emissions))
	for _, em := range emissions {
		records = append(records, em.Record)
	}
	return len(records), ExportRecordsToXLSX(records, outputPath, sheet)
}
