package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tablepack/pkg/manifest"
	"github.com/matzehuels/tablepack/pkg/pipeline"
)

// repackCommand creates the repack command.
func (c *CLI) repackCommand() *cobra.Command {
	var (
		output     string
		reportPath string
		refresh    bool
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "repack <manifest.toml|manifest.json>",
		Short: "Repack an object graph into a byte stream with patched offsets",
		Long: `Repack an object graph into a byte stream with patched offsets.

The manifest describes objects root-first with named links. The repacker
applies Kahn's topological sort, predicts offset overflows, falls back to
a shortest-distance sort when needed, and emits the stream with every
offset field patched.

Results are cached by manifest content hash for faster subsequent runs.

Exit status is zero even when offsets remain unrepresentable; inspect the
report (--report) to detect unresolved overflows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRepack(cmd.Context(), args[0], output, reportPath, refresh, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file for the byte stream (default <manifest>.bin)")
	cmd.Flags().StringVar(&reportPath, "report", "", "also write the JSON repack report to this path")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the artifact cache")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runRepack(ctx context.Context, input, output, reportPath string, refresh, noCache bool) error {
	doc, err := manifest.Load(input)
	if err != nil {
		return fmt.Errorf("load manifest %s: %w", input, err)
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spin := newSpinnerWithContext(ctx, fmt.Sprintf("Repacking %s...", doc.Name))
	spin.Start()

	result, err := runner.Execute(ctx, doc, pipeline.Options{Refresh: refresh})
	if err != nil {
		spin.StopWithError("Repack failed")
		return fmt.Errorf("repack: %w", err)
	}
	spin.Stop()

	if output == "" {
		output = defaultOutputPath(input)
	}
	if err := os.WriteFile(output, result.Stream, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if result.Report.Resolved {
		printSuccess("Repacked %s", doc.Name)
	} else {
		printWarning("Repacked %s with %d unresolved overflow(s)", doc.Name, len(result.Report.Overflows))
		for _, o := range result.Report.Overflows {
			printDetail("%s %s %s offset %d does not fit", o.Parent, iconArrow, o.Child, o.Offset)
		}
	}
	printStats(result.Report.Objects, result.Report.StreamBytes, result.CacheHit)
	printFile(output)

	if reportPath != "" {
		data, err := json.MarshalIndent(result.Report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		if err := os.WriteFile(reportPath, data, 0644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		printFile(reportPath)
	}

	return nil
}

// defaultOutputPath derives the binary output path from the manifest path.
func defaultOutputPath(input string) string {
	for _, ext := range []string{".toml", ".json"} {
		if strings.HasSuffix(strings.ToLower(input), ext) {
			return input[:len(input)-len(ext)] + ".bin"
		}
	}
	return input + ".bin"
}
