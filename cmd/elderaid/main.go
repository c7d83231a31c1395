package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/elderaid/elderaid/internal/api"
	"github.com/elderaid/elderaid/internal/config"
	"github.com/elderaid/elderaid/internal/db"
	"github.com/elderaid/elderaid/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options carries values shared by every command.
type options struct {
	cfg     config.Config
	envFile string
	closeFn func()
	log     *zap.Logger

	serve func(context.Context, config.Config, *zap.Logger) error
}

func newRootCmd() *cobra.Command {
	return newCommand(&options{cfg: config.Defaults(), serve: serve})
}

func newCommand(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "elderaid",
		Short:         "ElderAid donation and campaign server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if o.closeFn != nil {
				o.closeFn()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}

	flags := root.PersistentFlags()
	flags.StringVar(&o.envFile, "env-file", ".env", "dotenv file to load before reading ELDERAID_* variables")
	flags.StringVarP(&o.cfg.DBPath, "db", "d", o.cfg.DBPath, "SQLite database path")
	flags.StringVarP(&o.cfg.LogPath, "log", "l", "", "log file path (default: stdout/stderr only)")
	flags.StringVar(&o.cfg.MongoURI, "mongo-uri", "", "MongoDB URI for the document mirror (default: in-memory)")

	root.AddCommand(
		newServeCmd(o),
		newInitCmd(o),
		newReconcileCmd(o),
	)
	return root
}

// load merges environment configuration under any flags set on the command
// line and builds the logger.
func (o *options) load(cmd *cobra.Command) error {
	flagged := o.cfg
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return err
	}

	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	if changed("db") {
		cfg.DBPath = flagged.DBPath
	}
	if changed("log") {
		cfg.LogPath = flagged.LogPath
	}
	if changed("mongo-uri") {
		cfg.MongoURI = flagged.MongoURI
	}
	if changed("addr") {
		cfg.Addr = flagged.Addr
	}
	if changed("strict-transitions") {
		cfg.StrictTransitions = flagged.StrictTransitions
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, closeFn, err := newLogger(cfg.Development(), cfg.LogPath)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(log)
	o.cfg, o.log, o.closeFn = cfg, log, closeFn
	return nil
}

func newServeCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the mirror relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.serve(cmd.Context(), o.cfg, o.log)
		},
	}
	cmd.Flags().StringVarP(&o.cfg.Addr, "addr", "a", o.cfg.Addr, "listen address")
	cmd.Flags().BoolVar(&o.cfg.StrictTransitions, "strict-transitions", false, "only accept forward donation status changes")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(a.db, a.jwtSecret, a.services, log.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server started", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.relay.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	log.Info("server stopped, closing database")
	return err
}

func newInitCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new database with the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := o.cfg.DBPath
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("database file %s already exists", path)
			}

			database, err := db.Open(path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer database.Close()
			if err := db.EnsureSchema(database); err != nil {
				os.Remove(path)
				return fmt.Errorf("ensuring schema: %w", err)
			}
			if _, err := store.GetJWTSecret(cmd.Context(), database); err != nil {
				return fmt.Errorf("generating JWT secret: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database created: %s\n", path)
			fmt.Fprintln(out, "Schema initialized.")
			return nil
		},
	}
}

func newReconcileCmd(o *options) *cobra.Command {
	var full, revive bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Deliver pending mirror writes, optionally rebuilding every document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, o.cfg, o.log)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			out := cmd.OutOrStdout()
			if revive {
				n, err := store.ReviveDeadOutbox(ctx, a.db)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Revived %d parked mirror writes.\n", n)
			}
			if full {
				svc := a.services
				for _, step := range []struct {
					name string
					run  func(context.Context) (int, error)
				}{
					{"institutions", svc.Institutions.Reconcile},
					{"campaigns", svc.Campaigns.Reconcile},
					{"donations", svc.Donations.Reconcile},
				} {
					n, err := step.run(ctx)
					if err != nil {
						return fmt.Errorf("reconciling %s: %w", step.name, err)
					}
					fmt.Fprintf(out, "Queued %d %s.\n", n, step.name)
				}
			}

			synced, err := a.relay.DrainOnce(ctx)
			if err != nil {
				return err
			}
			stats, err := store.GetOutboxStats(ctx, a.db)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Synced %d documents; %d writes pending, %d parked.\n", synced, stats.Pending, stats.Dead)
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "re-record every institution, campaign and donation document")
	cmd.Flags().BoolVar(&revive, "revive", false, "retry writes parked after too many failures")
	return cmd
}
