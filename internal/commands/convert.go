package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/insightdelivered/statementlens/internal/jobs"
	"github.com/insightdelivered/statementlens/internal/store"
)

type convertOptions struct {
	kind      string
	outputDir string
	parallel  int
	header    bool
	keepJobs  bool
}

func newConvertCommand(rt *runtime) *cobra.Command {
	opts := convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert <statement.pdf> [more.pdf ...]",
		Short: "Detect, parse and export statement PDFs locally",
		Long: `Runs every PDF through detection, parsing and export, in parallel.
Each export is written next to its input (or to --output-dir) under its
deterministic name, for example BBVA_DEBITO_2024-01-01_2024-01-31.xlsx.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch opts.kind {
			case string(jobs.ExportXLSX), string(jobs.ExportCSV):
			default:
				return fmt.Errorf("unknown --format %q, use xlsx or csv", opts.kind)
			}
			return runConvert(cmd.Context(), rt, cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.kind, "format", "xlsx", "export format: xlsx or csv")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "directory for exports (default: next to each input)")
	cmd.Flags().IntVarP(&opts.parallel, "jobs", "j", 4, "files converted in parallel")
	cmd.Flags().BoolVar(&opts.header, "header", true, "include statement metadata rows in CSV exports")
	cmd.Flags().BoolVar(&opts.keepJobs, "keep", false, "keep the job working directory")

	return cmd
}

type convertResult struct {
	input  string
	output string
	job    *jobs.Job
	err    error
}

func runConvert(ctx context.Context, rt *runtime, out io.Writer, inputs []string, opts convertOptions) error {
	workDir, err := os.MkdirTemp("", "statementlens-*")
	if err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}
	if opts.keepJobs {
		fmt.Fprintf(out, "Job files: %s\n", workDir)
	} else {
		defer os.RemoveAll(workDir)
	}

	svc, _, _, err := newService(rt.cfg, store.NewMemory(), workDir, jobs.WithCSVHeader(opts.header))
	if err != nil {
		return err
	}

	results := make([]convertResult, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	if opts.parallel > 0 {
		g.SetLimit(opts.parallel)
	}
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			results[i] = convertFile(ctx, svc, input, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		printResult(out, res)
		if res.err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(inputs))
	}
	return nil
}

func convertFile(ctx context.Context, svc *jobs.Service, input string, opts convertOptions) convertResult {
	res := convertResult{input: input}

	if !strings.EqualFold(filepath.Ext(input), ".pdf") {
		res.err = fmt.Errorf("expected .pdf file, got %q", filepath.Ext(input))
		return res
	}
	f, err := os.Open(input)
	if err != nil {
		res.err = fmt.Errorf("opening input: %w", err)
		return res
	}
	defer f.Close()

	outcome, err := svc.Process(ctx, jobs.Upload{FileName: filepath.Base(input), Body: f})
	if outcome != nil {
		res.job = outcome.Job
	}
	if err != nil {
		res.err = err
		return res
	}

	exp, err := svc.Export(ctx, outcome.Job.ID, jobs.ExportKind(opts.kind))
	if err != nil {
		res.err = err
		return res
	}
	res.job = exp.Job

	dir := opts.outputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	res.output = filepath.Join(dir, exp.FileName)
	if err := copyFile(exp.Path, res.output); err != nil {
		res.err = err
	}
	return res
}

func printResult(out io.Writer, res convertResult) {
	fmt.Fprintf(out, "Processing: %s\n", res.input)
	if j := res.job; j != nil && j.FormatID != "" {
		fmt.Fprintf(out, "  Detected format: %s (%s %s)\n", j.FormatID, j.Bank, j.ProductType)
	}
	if res.err != nil {
		fmt.Fprintf(out, "  Error: %v\n", res.err)
		return
	}
	j := res.job
	fmt.Fprintf(out, "  Found %d movement(s)\n", j.MovementCount)
	if j.Account != "" {
		fmt.Fprintf(out, "  Account: %s\n", j.Account)
	}
	if j.DateFrom != "" {
		fmt.Fprintf(out, "  Period: %s to %s\n", j.DateFrom, j.DateTo)
	}
	fmt.Fprintf(out, "  Output: %s\n", res.output)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening export: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	outFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, in); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return outFile.Close()
}
