package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/production-tracker/internal/ingest"
	"github.com/joseph-ayodele/production-tracker/internal/pipeline"
)

var (
	workers       int
	outPath       string
	exportOut     string
	includeHidden bool
	initialScan   bool
	debounce      time.Duration
	times         int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir-or-file>",
	Short: "Ingest one workbook or every workbook under a directory",
	Long: `Ingest submits each .xlsx/.xlsm/.xltx/.xls file as its own upload.
Hidden files and Excel lock files (~$*) are skipped. A file that fails does
not stop the rest; the command exits non-zero if any file failed.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>...",
	Short: "Ingest workbooks as they are written into directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b := ingest.NewBatch(stack.Service, workers, logger)
		err := b.Watch(cmd.Context(), ingest.WatchConfig{
			Roots:       args,
			InitialScan: initialScan,
			Debounce:    debounce,
			SkipHidden:  !includeHidden,
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

var mapCmd = &cobra.Command{
	Use:   "map <file>",
	Short: "Show how a workbook's columns would be mapped, without storing anything",
	Long: `Map runs the pipeline on one workbook and prints the column mapping, the
parsing method and the row counts. With --times it repeats the run to check that
the model answers consistently.`,
	Args: cobra.ExactArgs(1),
	RunE: runMap,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print stored production items as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext(cmd)
		defer cancel()
		items, err := stack.Service.ListItems(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{"items": items, "total": len(items)})
	},
}

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "Print upload history, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext(cmd)
		defer cancel()
		ups, err := stack.Service.ListUploads(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{"uploads": ups, "total": len(ups)})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every stored production item",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext(cmd)
		defer cancel()
		res, err := stack.Service.Reset(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{"deleted_count": res.DeletedCount})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every stored item to an xlsx workbook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext(cmd)
		defer cancel()
		return exportTo(ctx, exportOut)
	},
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := opContext(cmd)
	defer cancel()

	target := args[0]
	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	b := ingest.NewBatch(stack.Service, workers, logger)
	var (
		results []ingest.FileResult
		stats   ingest.DirStats
	)
	if info.IsDir() {
		results, stats, err = b.IngestDirectory(ctx, target, !includeHidden)
		if err != nil {
			return err
		}
	} else {
		r, ferr := b.IngestPath(ctx, target)
		if ferr != nil {
			r.Err = ferr.Error()
			stats.Failed = 1
		} else {
			stats.Succeeded = 1
		}
		stats.Scanned, stats.Matched = 1, 1
		results = []ingest.FileResult{r}
	}

	printResults(cmd.OutOrStdout(), results)
	logger.Info("ingest summary",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
	)

	if outPath != "" {
		if err := exportTo(ctx, outPath); err != nil {
			return err
		}
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", stats.Failed, stats.Matched)
	}
	return nil
}

func runMap(cmd *cobra.Command, args []string) error {
	ctx, cancel := opContext(cmd)
	defer cancel()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if times <= 0 {
		times = 1
	}
	for i := 0; i < times; i++ {
		res, err := stack.Pipeline.Process(ctx, pipeline.Upload{
			ID:       uuid.New(),
			Filename: filepath.Base(args[0]),
			Data:     data,
		})
		if err != nil {
			return err
		}
		out := map[string]any{
			"run":            i + 1,
			"parsing_method": res.ParsingMethod,
			"mapping":        res.Mapping,
			"accepted":       res.Stats.Accepted,
			"rejected":       res.Stats.Rejected,
			"rejected_by":    res.Stats.ByReason,
			"states":         res.States,
			"elapsed_ms":     res.Elapsed.Milliseconds(),
		}
		if res.FallbackReason != nil {
			out["fallback_reason"] = res.FallbackReason.Error()
		}
		if err := printJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	}
	return nil
}

func exportTo(ctx context.Context, path string) error {
	data, err := stack.Service.ExportItems(ctx)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	logger.Info("export written", "path", path, "bytes", len(data))
	return nil
}

func printResults(w io.Writer, results []ingest.FileResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tMETHOD\tSAVED\tREJECTED\tELAPSED\tERROR")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			filepath.Base(r.Path),
			r.ParsingMethod,
			r.ItemsSaved,
			r.RejectedCount,
			r.Elapsed.Round(time.Millisecond),
			r.Err,
		)
	}
	_ = tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
