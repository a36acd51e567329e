package main

import (
	"context"

	"dd-qualification/internal/findings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var searchQuery findings.Query

//nolint:gochecknoglobals // Cobra boilerplate
var findingsCmd = &cobra.Command{
	Use:   "findings",
	Short: "Search indexed qualification findings across subjects",
	Long: `Searches the findings index written by refresh. Results are sorted by
overall score, lowest first.

Examples:
  qualctl findings --code NEGATIVE_REHIRE
  qualctl findings --invalid-only --max-score 60 --size 50`,
	Args: cobra.NoArgs,
	RunE: runFindings,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(findingsCmd)
	findingsCmd.Flags().StringVar(&searchQuery.Code, "code", "", "discrepancy or red flag code")
	findingsCmd.Flags().BoolVar(&searchQuery.InvalidOnly, "invalid-only", false, "only subjects with an invalid verdict")
	findingsCmd.Flags().IntVar(&searchQuery.MaxScore, "max-score", 0, "only subjects at or below this overall score")
	findingsCmd.Flags().IntVar(&searchQuery.Size, "size", 20, "maximum number of results")
}

func runFindings(cmd *cobra.Command, _ []string) (err error) {
	ctx := context.Background()

	var e *env
	e, err = openAll(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if e.index == nil {
		err = errors.New("findings index is not configured (database.elasticsearch)")
		return err
	}

	var docs []findings.Document
	docs, err = e.index.Search(ctx, searchQuery)
	if err != nil {
		err = errors.Wrap(err, "findings search failed")
		return err
	}

	err = printJSON(cmd.OutOrStdout(), docs)
	return err
}
