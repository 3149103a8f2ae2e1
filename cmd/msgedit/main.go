package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/pbaille/msgedit/internal/api"
	"github.com/pbaille/msgedit/internal/codec"
	"github.com/pbaille/msgedit/internal/config"
	"github.com/pbaille/msgedit/internal/domain"
	"github.com/pbaille/msgedit/internal/editor"
	"github.com/pbaille/msgedit/internal/fetcher"
	"github.com/pbaille/msgedit/internal/logging"
	"github.com/pbaille/msgedit/internal/runloop"
	"github.com/pbaille/msgedit/internal/session"
	"github.com/pbaille/msgedit/internal/status"
	"github.com/pbaille/msgedit/internal/store"
	"github.com/pbaille/msgedit/internal/suggest"
)

var (
	cfg      *config.Config
	log      logr.Logger
	flushLog = func() {}
)

func main() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:           "msgedit",
		Short:         "Translate a messages.json catalog into another locale",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			var err error
			log, flushLog, err = logging.New(cfg.LogLevel, cfg.DevLog)
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfg.DBPath, "db", cfg.DBPath, "database path")
	rootCmd.PersistentFlags().StringVar(&cfg.Source, "source", cfg.Source, "base catalog file or URL")
	rootCmd.PersistentFlags().StringVar(&cfg.Locale, "locale", cfg.Locale, "target locale")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(setCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(suggestCmd())
	rootCmd.AddCommand(serveCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = rootCmd.ExecuteContext(ctx)
	flushLog()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func getStore() (*store.Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(cfg.DBPath)
}

// workspace is everything a command needs to edit the catalog
type workspace struct {
	store  *store.Store
	loop   *runloop.Loop
	latest *status.Latest
	sess   *session.Session
}

func (w *workspace) Close() error { return w.store.Close() }

// catalog drains pending work and returns the live catalog
func (w *workspace) catalog() (*editor.Catalog, error) {
	w.loop.RunPending()
	return w.sess.Catalog()
}

func (w *workspace) statusLine() string {
	w.loop.RunPending()
	sum, _ := w.latest.Get()
	return status.Line(sum, 20)
}

func openWorkspace(ctx context.Context, sink editor.StatusSink) (*workspace, error) {
	if cfg.Source == "" {
		return nil, errors.New("no base catalog: set MSGEDIT_SOURCE or --source")
	}

	st, err := getStore()
	if err != nil {
		return nil, err
	}

	w := &workspace{store: st, loop: runloop.New(), latest: &status.Latest{}}
	if sink == nil {
		sink = w.latest
	} else {
		sink = status.Multi{w.latest, sink}
	}

	f := fetcher.New()
	w.sess = session.New(session.Options{
		Scheduler: w.loop,
		Store:     st,
		Fetch: func(ctx context.Context) (domain.Catalog, error) {
			return f.Fetch(ctx, cfg.Source)
		},
		Sink:   sink,
		Logger: log,
		Key:    cfg.SnapshotKey(),
	})

	if err := w.sess.Load(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return w, nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show translation progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer w.Close()

			fmt.Printf("Locale: %s\n", cfg.Locale)
			fmt.Println(w.statusLine())
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries in catalog order",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter *editor.State
			if state != "" {
				st, ok := editor.ParseState(state)
				if !ok {
					return fmt.Errorf("unknown state: %s", state)
				}
				filter = &st
			}

			w, err := openWorkspace(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer w.Close()

			c, err := w.catalog()
			if err != nil {
				return err
			}

			shown := 0
			for _, e := range c.Entries() {
				if filter != nil && e.State() != *filter {
					continue
				}
				shown++
				text := e.Translation()
				if text == "" {
					text = "(" + e.Source() + ")"
				}
				fmt.Printf("%-10s %-30s %s\n", e.State(), e.ID(), truncate(text, 60))
			}

			if shown == 0 {
				fmt.Println("No matching entries.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "only show entries in this state (untouched, valid, unchanged, invalid)")
	return cmd
}

func setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [id] [translation]",
		Short: "Translate one entry",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer w.Close()

			w.loop.RunPending()
			e, err := w.sess.Set(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			printEntry(e)
			fmt.Println(w.statusLine())
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the translated catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := codec.Default().Exporter(format)
			if err != nil {
				return err
			}

			w, err := openWorkspace(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer w.Close()

			w.loop.RunPending()
			data, err := w.sess.Export(exp, cfg.Tag())
			if err != nil {
				return err
			}

			if out == "" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format ("+strings.Join(codec.Default().ExportFormats(), ", ")+")")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the work in progress with a messages.json file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			w, err := openWorkspace(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer w.Close()

			w.loop.RunPending()
			res, err := w.sess.Import(data)
			if err != nil {
				return err
			}

			fmt.Printf("Imported %d translations (%d dropped)\n", res.Applied, res.Dropped)
			fmt.Println(w.statusLine())
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the saved work for this locale",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer w.Close()

			w.loop.RunPending()
			if err := w.sess.Reset(); err != nil {
				return err
			}

			fmt.Println(w.statusLine())
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent snapshot writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			revs, err := s.History(cfg.SnapshotKey(), limit)
			if err != nil {
				return err
			}

			if len(revs) == 0 {
				fmt.Println("No saved work yet.")
				return nil
			}

			for _, r := range revs {
				fmt.Printf("%s  %s  %d bytes\n", r.ID[:8], r.CreatedAt.Format("2006-01-02 15:04:05"), r.Size)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of revisions to show")
	return cmd
}

func suggestCmd() *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "suggest [id]",
		Short: "Ask the model for a translation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sg, err := suggest.New(cfg.AnthropicKey, cfg.Model)
			if err != nil {
				return err
			}

			w, err := openWorkspace(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer w.Close()

			w.loop.RunPending()
			e, err := w.sess.Entry(args[0])
			if err != nil {
				return err
			}

			fmt.Print("Asking... ")
			text, err := sg.Suggest(cmd.Context(), suggest.Request{
				ID:           e.ID(),
				Source:       e.Source(),
				Description:  e.Description(),
				Placeholders: e.PlaceholderNames(),
				Locale:       cfg.Locale,
			})
			if err != nil {
				fmt.Println("failed")
				return err
			}
			fmt.Println("done")
			fmt.Printf("Suggestion: %s\n", text)

			if !apply {
				return nil
			}
			if e, err = w.sess.Set(e.ID(), text); err != nil {
				return err
			}
			printEntry(e)
			fmt.Println(w.statusLine())
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "store the suggestion as the translation")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorkspace(cmd.Context(), status.Log{Logger: log})
			if err != nil {
				return err
			}
			defer w.Close()

			var sg api.Suggester
			if s, err := suggest.New(cfg.AnthropicKey, cfg.Model); err == nil {
				sg = s
			} else {
				log.Info("suggestions disabled", "reason", err.Error())
			}

			server := api.New(api.Config{
				Loop:      w.loop,
				Session:   w.sess,
				Formats:   codec.Default(),
				Suggester: sg,
				Locale:    cfg.Tag(),
				Addr:      cfg.Addr,
				RateLimit: cfg.RateLimit,
				RateBurst: cfg.RateBurst,
				Logger:    log.WithName("api"),
			})
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cfg.Addr, "addr", "a", cfg.Addr, "server address")
	return cmd
}

func printEntry(e *editor.Entry) {
	fmt.Printf("%s: %s\n", e.ID(), e.State())
	if e.ErrorCount() > 0 {
		fmt.Println(e.Diagnostic())
	}
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
