package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"sdskataster/internal"
	"sdskataster/internal/config"
	"sdskataster/internal/connectors"
	gmailconnector "sdskataster/internal/connectors/gmail"
	imapconnector "sdskataster/internal/connectors/imap"
	"sdskataster/internal/listener"
	"sdskataster/internal/pipeline"
	"sdskataster/internal/sds"
	"sdskataster/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	slog.SetDefault(cfg.Logger(os.Stderr))

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "formats":
		for _, f := range sds.Formats() {
			fmt.Println(f)
		}
	case "scan":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		root := fs.String("root", cfg.ScanRoot, "folder with one subfolder per product")
		format := fs.String("format", cfg.ExtractFormat, "default|fallback|3m|basf|lechler")
		out := fs.String("out", cfg.ExcelPath, "register workbook")
		sheet := fs.String("sheet", cfg.SheetName, "sheet name")
		insertRow := fs.Int("insert-row", cfg.InsertRow, "1-based row to insert at, 0 appends")
		exts := fs.String("ext", strings.Join(cfg.DocExtensions, ","), "document extensions")
		skipUnchanged := fs.Bool("skip-unchanged", false, "skip folders processed before with identical files")
		noLedger := fs.Bool("no-ledger", false, "do not record the run in the database")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*root) == "" {
			must(fmt.Errorf("--root is required"))
		}
		must(pipeline.CheckInsertRow(*insertRow))
		cfg.DocExtensions = config.ParseExtensions(*exts)

		ext, err := pipeline.BuildExtractor(cfg, *format)
		must(err)
		var db *storage.DB
		if !*noLedger {
			db = openDB(cfg)
			defer db.Close()
		}
		proc := pipeline.NewProcessingService(db, cfg, ext, pipeline.XLSXSink{Path: *out, Sheet: *sheet, InsertRow: *insertRow})
		proc.SkipUnchanged = *skipUnchanged && db != nil
		res, err := proc.ProcessRoot(*root)
		must(err)
		fmt.Printf("scan done run=%d directories=%d documents=%d emitted=%d skipped=%d dropped=%d failed=%d\n",
			res.RunID, res.Directories, res.Documents, res.Emitted, res.Skipped, res.Dropped, res.Failed)
	case "extract":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "document path")
		format := fs.String("format", cfg.ExtractFormat, "default|fallback|3m|basf|lechler")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		ext, err := pipeline.BuildExtractor(cfg, *format)
		must(err)
		rec, err := ext.Extract(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		pipeline.NewReporter(os.Stderr, nil).Report(pipeline.DocumentDiagnostics(pipeline.DocumentRecord{Path: *file, Record: rec, Err: err})...)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		must(enc.Encode(rec))
	case "merge":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		name := fs.String("name", "", "trade name override")
		format := fs.String("format", cfg.ExtractFormat, "default|fallback|3m|basf|lechler")
		out := fs.String("out", cfg.ExcelPath, "register workbook")
		sheet := fs.String("sheet", cfg.SheetName, "sheet name")
		insertRow := fs.Int("insert-row", cfg.InsertRow, "1-based row to insert at, 0 appends")
		_ = fs.Parse(os.Args[2:])
		files := fs.Args()
		if len(files) == 0 {
			must(fmt.Errorf("at least one document is required"))
		}
		must(pipeline.CheckInsertRow(*insertRow))
		ext, err := pipeline.BuildExtractor(cfg, *format)
		must(err)
		records := make([]internal.Record, 0, len(files))
		for _, f := range files {
			rec, err := ext.Extract(f)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
			records = append(records, rec)
		}
		rec, err := pipeline.Merge(records, *name)
		must(err)
		must(pipeline.XLSXSink{Path: *out, Sheet: *sheet, InsertRow: *insertRow}.Write(rec))
		fmt.Printf("merged %d documents into '%s' -> %s\n", len(files), *rec.TradeName, *out)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		runID := fs.Int("run", 0, "run id, 0 = latest")
		out := fs.String("out", "", "output xlsx path")
		sheet := fs.String("sheet", cfg.SheetName, "sheet name")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		db := openDB(cfg)
		defer db.Close()
		if *runID == 0 {
			*runID, err = db.LatestRunID()
			must(err)
		}
		n, err := pipeline.ExportRun(db, *runID, *out, *sheet)
		must(err)
		fmt.Printf("exported %d records of run %d to %s\n", n, *runID, *out)
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		db := openDB(cfg)
		defer db.Close()
		ctx := context.Background()
		conn, err := makeConnector(ctx, cfg, *provider)
		must(err)
		result, err := connectors.NewFetchService(db, cfg.RawMailDir, conn).FetchAndStore(ctx, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d known=%d\n", *provider, result.Fetched, result.Stored, result.Known)
	case "mail:file":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "only mails of this provider")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		db := openDB(cfg)
		defer db.Close()
		intake := pipeline.NewIntakeService(db, cfg.InboxDir, cfg.DocExtensions)
		if strings.TrimSpace(*messageID) != "" {
			p, err := connectors.ParseProvider(*provider)
			must(err)
			email, err := db.MustEmailByProviderMessageID(p, *messageID)
			must(err)
			res, err := intake.FileEmail(email)
			must(err)
			fmt.Printf("filed email id=%d sds=%v files=%d dir=%s\n", res.EmailID, res.Detect.IsSDS, len(res.Filed), res.Dir)
			return
		}
		mails, files, err := intake.FilePending(*batch, *provider)
		must(err)
		fmt.Printf("filed pending emails=%d files=%d\n", mails, files)
	case "mail:listen":
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		must(listener.Serve(ctx, cfg, slog.Default()))
	default:
		usage()
		os.Exit(1)
	}
}

func openDB(cfg config.Config) *storage.DB {
	db, err := storage.Open(cfg.DBPath)
	must(err)
	return db
}

func makeConnector(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error) {
	p, err := connectors.ParseProvider(provider)
	if err != nil {
		return nil, err
	}
	if p == connectors.ProviderGmail {
		return gmailconnector.NewConnector(ctx, cfg)
	}
	return imapconnector.NewConnector(cfg)
}

func usage() {
	fmt.Println("usage: sdskataster <command>")
	fmt.Println("commands:")
	fmt.Println("  formats")
	fmt.Println("  scan --root=./sds [--format=default] [--out=kataster.xlsx] [--insert-row=0] [--skip-unchanged] [--no-ledger]")
	fmt.Println("  extract --file=sheet.pdf [--format=default]")
	fmt.Println("  merge [--name=...] [--format=default] [--out=kataster.xlsx] a.pdf b.pdf ...")
	fmt.Println("  export:xlsx [--run=0] --out=./out/run.xlsx")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:file [--provider=imap] [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
