package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goliatone/go-podcast-search/internal/config"
	"github.com/goliatone/go-podcast-search/pkg/di"
	"github.com/goliatone/go-podcast-search/search"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	logLevel   string

	v = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "podsearch",
	Short: "Search podcasts through iTunes and keep every result",
	Long: `podsearch proxies the iTunes Search API. Each search stores the podcasts and
episodes it has not seen before, and results are served from the local store,
newest first.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var searchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Search upstream, store new results and print the first pages",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var resultsCmd = &cobra.Command{
	Use:   "results [term]",
	Short: "Print one page of stored results without querying upstream",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResults,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE:  runMigrate,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent searches",
	RunE:  runRuns,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./podsearch.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	searchCmd.Flags().Int("pages", 1, "number of result pages to print")
	searchCmd.Flags().Bool("force", false, "query upstream even when the term was searched recently")

	resultsCmd.Flags().Int("offset", 0, "number of rows to skip per kind")
	resultsCmd.Flags().Int("limit", 0, "rows per kind (default search.page_size)")

	runsCmd.Flags().Int("limit", 20, "number of searches to list")

	rootCmd.AddCommand(serveCmd, searchCmd, resultsCmd, migrateCmd, runsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadContainer reads the configuration and wires the application.
func loadContainer(ctx context.Context, mutate ...func(*config.Config)) (*di.Container, error) {
	cfg, err := config.LoadWith(v, configPath)
	if err != nil {
		return nil, err
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	return di.NewContainer(ctx, cfg)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	container, err := loadContainer(ctx)
	if err != nil {
		return err
	}
	defer container.Close()

	cfg := container.Config().Server
	logger := container.Logger()

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      container.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	logger.Info("server shutdown complete")
	return nil
}

type searchOutput struct {
	Outcome    *search.Outcome `json:"outcome,omitempty"`
	Pages      []search.Page   `json:"pages"`
	NextOffset int             `json:"nextOffset"`
	Done       bool            `json:"done"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	pages, _ := cmd.Flags().GetInt("pages")
	force, _ := cmd.Flags().GetBool("force")
	term := strings.Join(args, " ")

	container, err := loadContainer(ctx)
	if err != nil {
		return err
	}
	defer container.Close()

	out := searchOutput{}
	if force {
		outcome, err := container.Search().Populate(ctx, search.Request{Term: term, Force: true})
		if err != nil {
			return err
		}
		out.Outcome = &outcome
	}

	feed := container.Search().NewFeed(term)
	if out.Pages, err = feed.Collect(ctx, pages); err != nil {
		return err
	}
	out.NextOffset, out.Done = feed.NextOffset(), feed.Done()
	return printJSON(cmd.OutOrStdout(), out)
}

func runResults(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	offset, _ := cmd.Flags().GetInt("offset")
	limit, _ := cmd.Flags().GetInt("limit")

	container, err := loadContainer(ctx)
	if err != nil {
		return err
	}
	defer container.Close()

	page, err := container.Search().Results(ctx, search.Query{
		Term:   strings.Join(args, " "),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), page)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	container, err := loadContainer(ctx, func(c *config.Config) { c.Database.AutoMigrate = false })
	if err != nil {
		return err
	}
	defer container.Close()

	if err := container.Migrate(ctx); err != nil {
		return err
	}
	container.Logger().Info("migrations applied", zap.String("driver", container.Config().Database.Driver))
	return nil
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")

	container, err := loadContainer(ctx)
	if err != nil {
		return err
	}
	defer container.Close()

	runs, err := container.Search().RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), runs)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
