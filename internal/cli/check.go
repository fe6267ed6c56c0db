package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tablepack/pkg/manifest"
)

// checkCommand creates the check command: run the overflow oracle without
// emitting anything.
func (c *CLI) checkCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <manifest.toml|manifest.json>",
		Short: "Predict offset overflows without emitting a stream",
		Long: `Predict offset overflows without emitting a stream.

The check command reports overflows for the manifest's own order, for the
Kahn order, and - when the Kahn order still overflows - for the
shortest-distance order, showing what a repack would do before anything
is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(args[0])
		},
	}

	return cmd
}

func (c *CLI) runCheck(input string) error {
	doc, err := manifest.Load(input)
	if err != nil {
		return fmt.Errorf("load manifest %s: %w", input, err)
	}

	g, err := doc.Graph()
	if err != nil {
		return err
	}
	printInfo("%s: %d objects", doc.Name, g.Len())

	inputOverflows, err := g.Overflows()
	if err != nil {
		return err
	}
	reportOrder("input order", len(inputOverflows))

	if err := g.SortKahn(); err != nil {
		return err
	}
	kahnOverflows, err := g.Overflows()
	if err != nil {
		return err
	}
	reportOrder("kahn order", len(kahnOverflows))

	if len(kahnOverflows) == 0 {
		printSuccess("No repack fallback needed")
		return nil
	}

	if err := g.SortShortestDistance(); err != nil {
		return err
	}
	distOverflows, err := g.Overflows()
	if err != nil {
		return err
	}
	reportOrder("shortest-distance order", len(distOverflows))

	if len(distOverflows) == 0 {
		printSuccess("Distance sort resolves all overflows")
		return nil
	}

	printWarning("%d overflow(s) remain after the distance sort", len(distOverflows))
	for _, o := range distOverflows {
		parent, child := g.Object(o.Parent), g.Object(o.Link.Child)
		printDetail("%s %s %s: %s offset %d does not fit",
			parent.Name, iconArrow, child.Name, o.Link.Width, o.Offset)
	}
	return nil
}

func reportOrder(order string, overflows int) {
	if overflows == 0 {
		printDetail("%s: no overflows", order)
	} else {
		printDetail("%s: %d overflow(s)", order, overflows)
	}
}
