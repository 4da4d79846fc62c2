package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/production-tracker/internal/common"
	"github.com/joseph-ayodele/production-tracker/internal/server"
)

var (
	// Global flags
	inmem   bool
	verbose bool
	timeout time.Duration

	cfg    *common.Config
	logger *slog.Logger
	stack  *server.Stack
)

var rootCmd = &cobra.Command{
	Use:   "prodsheet",
	Short: "Ingest garment production sheets from the command line",
	Long: `prodsheet runs production workbooks through the same pipeline as prodsheetd
and stores the extracted orders in the configured database (DB_DRIVER, DB_URL).

Use --inmem for a throwaway sqlite store, e.g. to preview what a folder of
sheets would produce and export it to xlsx in one go.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = common.LoadConfig()
		if verbose {
			cfg.Log.Level = "debug"
		}
		logger = common.NewLogger(os.Stderr, cfg.Log)
		slog.SetDefault(logger)
		if err := cfg.Validate(); err != nil {
			return err
		}

		s, err := server.NewStack(cmd.Context(), cfg, inmem, logger)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		stack = s
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stack != nil {
			stack.Close(logger)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&inmem, "inmem", false, "use an in-memory sqlite database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "overall operation timeout (0 disables)")

	ingestCmd.Flags().IntVar(&workers, "workers", 4, "files processed concurrently")
	ingestCmd.Flags().StringVar(&outPath, "out", "", "write an xlsx export of all items here when done")
	ingestCmd.Flags().BoolVar(&includeHidden, "include-hidden", false, "also ingest hidden files and directories")

	watchCmd.Flags().IntVar(&workers, "workers", 4, "files processed concurrently")
	watchCmd.Flags().BoolVar(&initialScan, "initial-scan", true, "ingest existing workbooks before watching")
	watchCmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "quiet period before a changed file is ingested")
	watchCmd.Flags().BoolVar(&includeHidden, "include-hidden", false, "also ingest hidden files and directories")

	mapCmd.Flags().IntVar(&times, "times", 1, "run the mapping this many times")

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "production.xlsx", "output xlsx path")

	rootCmd.AddCommand(ingestCmd, watchCmd, mapCmd, listCmd, uploadsCmd, resetCmd, exportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// opContext applies --timeout to the command context.
func opContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return common.WithTimeout(cmd.Context(), timeout)
}
