package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/a-h/templ"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kaireichart/edgetx-log-viewer/events"
	"github.com/kaireichart/edgetx-log-viewer/logging"
	"github.com/kaireichart/edgetx-log-viewer/logs"
	"github.com/kaireichart/edgetx-log-viewer/playback"
)

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the log viewer backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.LogLevel, cfg.LogDir)
			if err != nil {
				return err
			}
			defer logger.Close()

			// Set up graceful shutdown
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(c)
			go func() {
				select {
				case <-c:
					logger.Info("shutting down gracefully")
					cancel()
				case <-ctx.Done():
				}
			}()

			return serve(ctx, cfg, logger.Logger)
		},
	}

	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	cmd.Flags().Int("max-upload-mb", logs.DefaultMaxUploadBytes>>20, "maximum upload size in MB")
	cmd.Flags().Int("cache-size", logs.DefaultCacheSize, "number of decoded logs kept in memory")
	cmd.Flags().Int("ingest-concurrency", logs.DefaultIngestConcurrency, "files ingested in parallel per upload")
	bindFlag(v, cmd, "listen", "listen")
	bindFlag(v, cmd, "upload.max_mb", "max-upload-mb")
	bindFlag(v, cmd, "store.cache_size", "cache-size")
	bindFlag(v, cmd, "ingest.concurrency", "ingest-concurrency")
	return cmd
}

// app is the wired session with its HTTP surface
type app struct {
	session *logs.Session
	handler http.Handler
	closers []io.Closer
}

func newApp(cfg Config, logger *slog.Logger) (*app, error) {
	a := &app{}

	var mirror io.Writer
	if cfg.LogDir != "" {
		f, err := events.OpenLogFile(cfg.LogDir)
		if err != nil {
			return nil, err
		}
		mirror = f
		a.closers = append(a.closers, f)
	}
	journal := events.NewJournal(mirror, logger)

	store, err := logs.NewSqliteStore(cfg.CacheSize, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	a.session = logs.NewSession(store, journal, logger)
	a.closers = append(a.closers, a.session)

	mux := http.NewServeMux()
	mux.HandleFunc("/", a.serveIndex)
	journal.SetupHandlers(mux)
	logs.SetupHandlers(mux, a.session, logs.HandlerOptions{
		MaxUploadBytes:    int64(cfg.MaxUploadMB) << 20,
		IngestConcurrency: cfg.IngestConcurrency,
		DefaultOffset:     cfg.ExportOffset,
	})
	playback.SetupHandlers(mux, a.session, cfg.PlaybackSpeed, logger)
	a.handler = mux

	return a, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

func (a *app) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	summaries, err := a.session.Logs()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	err = indexPage(
		logs.LogsTable(summaries, a.session.Selection()),
		events.EventsList(a.session.Journal().Recent()),
	).Render(r.Context(), w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func indexPage(table, eventsList templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html><head><title>EdgeTX Log Viewer</title></head><body><h1>EdgeTX Log Viewer</h1><section id="logs">`); err != nil {
			return err
		}
		if err := table.Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</section><section id="events">`); err != nil {
			return err
		}
		if err := eventsList.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</section></body></html>`)
		return err
	})
}

func serve(ctx context.Context, cfg Config, logger *slog.Logger) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", slog.String("listen", cfg.Listen))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
