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

	"github.com/zhsummersy/sql-generator/internal/config"
	"github.com/zhsummersy/sql-generator/internal/database"
	"github.com/zhsummersy/sql-generator/internal/designer"
	"github.com/zhsummersy/sql-generator/internal/designstore"
	"github.com/zhsummersy/sql-generator/internal/profiles"
	"github.com/zhsummersy/sql-generator/internal/server"
	"github.com/zhsummersy/sql-generator/pkg/logger"
	"github.com/zhsummersy/sql-generator/pkg/progress"
)

var rootCmd = &cobra.Command{
	Use:   "sqlgen",
	Short: "Declarative table design and schema synchronization service",
	Long:  `Declare table designs as field lists and keep them synchronized with a live SQLite or PostgreSQL schema, with every committed design recorded in a design store.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the managed database status",
	RunE:  runStatus,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Rebuild design records from the live schema",
	Long:  `Walks the live catalog treating it as ground truth: diverged design records are rewritten, untracked tables get a record, and records for missing tables are removed.`,
	RunE:  runReconcile,
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List saved configuration profiles",
	RunE:  runProfiles,
}

var profileManager = profiles.NewManager("")

var (
	configPath  string
	profileName string
	listenAddr  string
	verbose     bool
)

func init() {
	for _, cmd := range []*cobra.Command{serveCmd, statusCmd, reconcileCmd} {
		cmd.Flags().StringVar(&configPath, "config", "", "Path to the service configuration file")
		cmd.Flags().StringVar(&profileName, "profile", "", "Name of a saved configuration profile")
		cmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	}
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address override, e.g. :8080")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(profilesCmd)

	cobra.OnInitialize(func() {
		rootCmd.SilenceUsage = true
		rootCmd.SilenceErrors = true
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfiguration() (*config.Config, error) {
	switch {
	case configPath != "":
		return config.LoadConfig(configPath)
	case profileName != "":
		return profileManager.Load(profileName)
	default:
		return config.Default(), nil
	}
}

// bootstrap opens the engine connection and design store and wires the
// synchronization engine on top of them.
func bootstrap(cfg *config.Config, log *logger.Logger) (*database.Connection, designstore.Store, *designer.Engine, error) {
	conn, err := database.NewConnection(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to storage engine: %w", err)
	}

	store, err := designstore.New(cfg, log)
	if err != nil {
		conn.Close()
		return nil, nil, nil, fmt.Errorf("failed to open design store: %w", err)
	}

	engine := designer.New(conn, store, designer.Options{
		Strategy: cfg.Strategy,
		Logger:   log,
	})

	return conn, store, engine, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}
	if listenAddr != "" {
		cfg.Server.Listen = listenAddr
	}

	log := logger.NewLogger(verbose)
	conn, store, engine, err := bootstrap(cfg, log)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer store.Close()

	srv := server.New(cfg.Server.Listen, engine, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}

	log := logger.NewLogger(verbose)
	conn, store, engine, err := bootstrap(cfg, log)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer store.Close()

	status, err := engine.Status(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read database status: %w", err)
	}

	fmt.Printf("\nEngine: %s\n", cfg.Engine.Type)
	fmt.Printf("Tables: %d\n", status.TablesCount)
	for i, name := range status.Tables {
		fmt.Printf("%d. %s\n", i+1, name)
	}
	fmt.Printf("Database size: %d bytes\n", status.DatabaseSize)
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}

	log := logger.NewLogger(verbose)
	conn, store, engine, err := bootstrap(cfg, log)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer store.Close()

	ctx := context.Background()
	tables, err := engine.Gateway().ListTables(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	bar := progress.NewBar(int64(len(tables)), "Reconciling design records")
	report, err := engine.Reconcile(ctx, func(string) {
		bar.Increment()
	})
	bar.Finish()
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	fmt.Printf("\nChecked %d tables.\n", report.Checked)
	fmt.Printf("Repaired records:  %d %v\n", len(report.Repaired), report.Repaired)
	fmt.Printf("Untracked tables:  %d %v\n", len(report.Untracked), report.Untracked)
	fmt.Printf("Orphaned records:  %d %v\n", len(report.Orphaned), report.Orphaned)
	return nil
}

func runProfiles(cmd *cobra.Command, args []string) error {
	saved, err := profileManager.List("")
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	if len(saved) == 0 {
		fmt.Printf("No profiles saved under %s.\n", profileManager.Directory())
		return nil
	}

	fmt.Printf("Profiles in %s:\n", profileManager.Directory())
	for i, profile := range saved {
		fmt.Printf("%d. %s (%s)\n", i+1, profile.Name, profile.Engine)
	}
	return nil
}
