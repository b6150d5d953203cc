package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	flag "github.com/spf13/pflag"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/filesplit/dbopen"
	"github.com/hazyhaar/filesplit/eventlog"
	"github.com/hazyhaar/filesplit/splitpipe"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := loadConfig(env("FILESPLIT_CONFIG", ""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch os.Args[1] {
	case "split":
		cmdSplit(ctx, cfg, os.Args[2:])
	case "detect":
		cmdDetect(os.Args[2:])
	case "events":
		cmdEvents(ctx, cfg, os.Args[2:])
	case "mcp":
		cmdMCP(ctx, cfg)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `filesplit: split oversized files into independently usable parts

usage:
  filesplit split  <file> [--ceiling SIZE] [--out DIR] [--events DB]
  filesplit detect <file>
  filesplit events [--kind KIND] [--limit N] [--cleanup-days N]
  filesplit mcp

split    Splits <file> into parts at or below the ceiling (default 10MiB).
         PDF and zip sources stay openable per part; anything else is
         sliced raw.
detect   Prints the detected split format of <file>.
events   Lists recorded split events (requires an events database).
mcp      Serves the split tools over MCP on stdio.
`)
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupLogging(level string) {
	var lvl slog.Level
	switch env("LOG_LEVEL", level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	// stderr: the mcp subcommand owns stdout for the protocol.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}

// newEngine builds the engine, wiring the SQLite event store when an events
// database is configured.
func newEngine(cfg fileConfig, eventsPath string) (*splitpipe.Engine, func()) {
	if eventsPath == "" {
		eventsPath = cfg.EventsDB
	}

	recorder := eventlog.Recorder(&eventlog.SlogRecorder{})
	closer := func() {}

	if eventsPath != "" {
		db, err := dbopen.Open(eventsPath, dbopen.WithMkdirAll())
		if err != nil {
			slog.Warn("events db unavailable, logging only", "path", eventsPath, "error", err)
		} else {
			store := eventlog.NewStore(db)
			if err := store.Init(); err != nil {
				slog.Warn("events db init failed, logging only", "error", err)
				db.Close()
			} else {
				recorder = eventlog.Multi(&eventlog.SlogRecorder{}, store)
				closer = func() { db.Close() }
			}
		}
	}

	return splitpipe.New(splitpipe.Config{Events: recorder}), closer
}

func cmdSplit(ctx context.Context, cfg fileConfig, args []string) {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	ceiling := fs.StringP("ceiling", "c", "", "max part size, e.g. 2MiB, 500KiB, 1048576")
	outDir := fs.StringP("out", "o", "", "output directory (default: <file>.parts)")
	eventsDB := fs.String("events", "", "events database path")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "split requires a file path")
		os.Exit(1)
	}
	srcPath := fs.Arg(0)

	ceilSpec := *ceiling
	if ceilSpec == "" {
		ceilSpec = cfg.Ceiling
	}
	if ceilSpec == "" {
		ceilSpec = "10MiB"
	}
	ceilBytes, err := parseSize(ceilSpec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ceiling: %v\n", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read source: %v\n", err)
		os.Exit(1)
	}

	dir := *outDir
	if dir == "" {
		dir = srcPath + ".parts"
	}

	eng, closeEvents := newEngine(cfg, *eventsDB)
	defer closeEvents()

	res, err := eng.Split(ctx, filepath.Base(srcPath), data, ceilBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "split failed: %v\n", err)
		os.Exit(1)
	}
	if err := splitpipe.WriteParts(res, dir); err != nil {
		fmt.Fprintf(os.Stderr, "write parts: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "done: %d parts in %s (format %s)\n", len(res.Parts), dir, res.Format)
	if res.Degraded {
		fmt.Fprintf(os.Stderr, "  degraded to byte slicing: %s\n", res.DegradeReason)
		fmt.Fprintln(os.Stderr, "  parts are only usable reassembled in order")
	}
	for _, p := range res.Parts {
		marker := ""
		if p.Oversized {
			marker = "  (exceeds ceiling: indivisible)"
		}
		fmt.Fprintf(os.Stderr, "  %s  %s%s\n", p.Name, splitpipe.FormatBytes(p.SizeBytes), marker)
	}
	if over := res.OversizedParts(); len(over) > 0 {
		os.Exit(2)
	}
}

func cmdDetect(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "detect requires a file path")
		os.Exit(1)
	}
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open: %v\n", err)
		os.Exit(1)
	}
	head := make([]byte, 16)
	n, _ := f.Read(head)
	f.Close()

	format := splitpipe.Detect(path, head[:n])
	fmt.Printf("%s\n", format)
	if hint := splitpipe.ExtensionHint(path); hint != format && hint != splitpipe.FormatGeneric {
		fmt.Fprintf(os.Stderr, "warning: extension suggests %s but signature says %s\n", hint, format)
	}
}

func cmdEvents(ctx context.Context, cfg fileConfig, args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	kind := fs.String("kind", "", "filter by kind (split, degrade, oversized)")
	limit := fs.Int("limit", 20, "max events to list")
	cleanupDays := fs.Int("cleanup-days", 0, "delete events older than N days before listing")
	eventsDB := fs.String("events", "", "events database path")
	fs.Parse(args)

	path := *eventsDB
	if path == "" {
		path = cfg.EventsDB
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "no events database configured (--events or config events_db)")
		os.Exit(1)
	}

	db, err := dbopen.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open events db: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	store := eventlog.NewStore(db)
	if err := store.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "init events db: %v\n", err)
		os.Exit(1)
	}

	if *cleanupDays > 0 {
		if err := store.Cleanup(ctx, *cleanupDays); err != nil {
			fmt.Fprintf(os.Stderr, "cleanup: %v\n", err)
			os.Exit(1)
		}
	}

	events, err := store.Recent(ctx, *kind, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query events: %v\n", err)
		os.Exit(1)
	}
	for _, ev := range events {
		fmt.Printf("%s  %-9s  %-8s  %s  %s\n",
			ev.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			ev.Kind, ev.Format, ev.Source, ev.Detail)
	}
}

func cmdMCP(ctx context.Context, cfg fileConfig) {
	eng, closeEvents := newEngine(cfg, "")
	defer closeEvents()

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "filesplit",
		Version: version,
	}, nil)
	eng.RegisterMCP(srv)

	slog.Info("filesplit MCP serving on stdio")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		slog.Error("mcp server", "error", err)
		os.Exit(1)
	}
}
