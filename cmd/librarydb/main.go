// Package main is the entry point for the librarydb server.
//
// librarydb serves a CRUD HTTP API over book records kept in a single JSON
// file. Configuration is read from CLI flags, a .env file in the data
// directory, and server_config.json (rate limits and quotas). When history
// is enabled the data directory is a git repository and every change to the
// data file is committed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/maruel/librarydb/internal/jsonldb"
	"github.com/maruel/librarydb/internal/library"
	"github.com/maruel/librarydb/internal/server"
	"github.com/maruel/librarydb/internal/server/handlers"
	"github.com/maruel/librarydb/internal/server/ratelimit"
	"github.com/maruel/librarydb/internal/storage"
	"github.com/maruel/librarydb/internal/storage/git"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "librarydb: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	httpAddr := flag.String("http", "localhost:3000", "Address to listen on (e.g., localhost:3000, :3000, 0.0.0.0:3000)")
	dataDir := flag.String("data-dir", "./data", "Data directory")
	dataFile := flag.String("data-file", "data.json", "Book data file, relative to -data-dir unless absolute")
	seed := flag.String("seed", "", "YAML file used to create the data file when it does not exist")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	history := flag.Bool("history", true, "Commit every change of the data file to a git repository in -data-dir")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	slog.SetDefault(slog.New(newLogHandler(ll)))

	if err := os.MkdirAll(*dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	env, err := loadDotEnv(*dataDir)
	if err != nil {
		return err
	}
	// .env values apply to flags not explicitly set.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	for name, key := range map[string]string{
		"http":      "HTTP",
		"log-level": "LOG_LEVEL",
		"data-file": "DATA_FILE",
		"seed":      "SEED",
		"history":   "HISTORY",
	} {
		if v := env[key]; v != "" && !set[name] {
			if err := flag.Set(name, v); err != nil {
				return fmt.Errorf("invalid %s in .env: %w", key, err)
			}
		}
	}
	if err := setLogLevel(ll, *logLevel); err != nil {
		return err
	}

	serverCfg, err := storage.LoadServerConfig(*dataDir)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", storage.ConfigFileName, err)
	}

	absDataDir, err := filepath.Abs(*dataDir)
	if err != nil {
		return err
	}
	path := *dataFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(absDataDir, path)
	}
	books, err := openStore(ctx, path, *seed)
	if err != nil {
		return err
	}

	svc := &handlers.Services{Books: books}
	if *history {
		if rel, err := filepath.Rel(absDataDir, path); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			slog.WarnContext(ctx, "Data file is outside the data directory, history disabled", "path", path)
		} else {
			if svc.History, err = git.Open(ctx, absDataDir, "", ""); err != nil {
				return err
			}
			if err := svc.History.Commit(ctx, git.Author{}, "track "+rel, path); err != nil {
				return err
			}
			slog.DebugContext(ctx, "History enabled", "repo", svc.History.Dir(), "file", rel)
		}
	}

	// Watch own executable for modifications (for development restarts)
	if err := watchExecutable(ctx, stop); err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}

	limiters := ratelimit.NewConfig(serverCfg.RateLimits.ReadRatePerMin, serverCfg.RateLimits.WriteRatePerMin)
	defer limiters.Close()

	buildVersion, _, _, _ := getBuildInfo()
	cfg := &handlers.Config{Version: buildVersion, Quotas: serverCfg.Quotas}
	addr := *httpAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(svc, cfg, limiters),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "data", path, "history", svc.History != nil, "version", buildVersion)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

// newLogHandler returns the tint handler used for all logging.
func newLogHandler(ll *slog.LevelVar) slog.Handler {
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	return tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			if a.Key == "ip" {
				if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
					return slog.Attr{}
				}
			}
			if isEmptyAttr(a.Value) {
				return slog.Attr{}
			}
			return a
		},
	})
}

// isEmptyAttr reports zero values, which are dropped from log lines.
func isEmptyAttr(v slog.Value) bool {
	switch t := v.Any().(type) {
	case string:
		return t == ""
	case bool:
		return !t
	case uint64:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	case time.Time:
		return t.IsZero()
	case time.Duration:
		return t == 0
	case nil:
		return true
	}
	return false
}

func setLogLevel(ll *slog.LevelVar, level string) error {
	switch level {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
		ll.Set(slog.LevelInfo)
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", level)
	}
	return nil
}

// openStore returns the book store at path, creating the file from the seed
// (or empty) when missing.
func openStore(ctx context.Context, path, seedPath string) (*library.Store, error) {
	books := library.NewStore(path)
	var seed []library.Book
	if seedPath != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if seed, err = library.LoadSeed(seedPath); err != nil {
				return nil, err
			}
		}
	}
	created, err := books.Init(seed)
	if err != nil {
		return nil, err
	}
	if created {
		slog.InfoContext(ctx, "Created data file", "path", path, "books", len(seed))
	}
	if cols, err := jsonldb.Columns[library.Book](); err == nil {
		for _, c := range cols {
			slog.DebugContext(ctx, "Column", "name", c.Name, "type", c.Type, "required", c.Required)
		}
	}
	return books, nil
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("librarydb %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

// loadDotEnv reads KEY=value lines from dataDir/.env. A missing file yields
// an empty map. Double quoted values are unquoted; single quotes are
// rejected.
func loadDotEnv(dataDir string) (map[string]string, error) {
	env := map[string]string{}
	content, err := os.ReadFile(filepath.Join(dataDir, ".env")) //nolint:gosec // G304: path is built from the data-dir flag
	if errors.Is(err, os.ErrNotExist) {
		return env, nil
	} else if err != nil {
		return nil, err
	}
	for line := range strings.SplitSeq(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if strings.HasPrefix(val, "'") || strings.HasSuffix(val, "'") {
			return nil, fmt.Errorf("single quotes are not supported in .env: %s", line)
		}
		if strings.HasPrefix(val, "\"") {
			if val, err = strconv.Unquote(val); err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
		}
		env[key] = val
	}
	return env, nil
}

// watchExecutable watches the current executable for modifications and calls
// stop to trigger graceful shutdown when detected.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	if exe, err = filepath.EvalSymlinks(exe); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
