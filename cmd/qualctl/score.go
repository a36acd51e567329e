package main

import (
	"context"

	cqs "dd-qualification/internal/workers/qualification/compute-qualification-score"
	vq "dd-qualification/internal/workers/qualification/validate-qualification"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scoreCmd = &cobra.Command{
	Use:   "score [subject-id]",
	Short: "Compute the qualification score vector of a subject",
	Long: `Computes the score vector of a subject from its evidence without
writing anything back.

Examples:
  qualctl score tm-42
  qualctl score tm-42 --compact | jq .scoreVector.overall`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

//nolint:gochecknoglobals // Cobra boilerplate
var validateCmd = &cobra.Command{
	Use:   "validate [subject-id]",
	Short: "Run the rule-based validator over a subject's evidence",
	Long: `Runs the validator and prints its verdict, discrepancies, red flags and
recommendations. Nothing is written back. An invalid verdict still exits 0.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(validateCmd)
}

func runScore(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	var e *env
	e, err = openStore(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	var h *cqs.Handler
	h, err = cqs.NewHandler(cqs.HandlerOptions{AppConfig: e.cfg, Scorer: e.engine, Logger: e.log})
	if err != nil {
		return err
	}

	var out *cqs.Output
	out, err = h.Execute(ctx, &cqs.Input{SubjectID: args[0]})
	if err != nil {
		err = errors.Wrapf(err, "scoring %s failed", args[0])
		return err
	}

	err = printJSON(cmd.OutOrStdout(), out)
	return err
}

func runValidate(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	var e *env
	e, err = openStore(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	var h *vq.Handler
	h, err = vq.NewHandler(vq.HandlerOptions{AppConfig: e.cfg, Checker: e.engine, Logger: e.log})
	if err != nil {
		return err
	}

	var out *vq.Output
	out, err = h.Execute(ctx, &vq.Input{SubjectID: args[0]})
	if err != nil {
		err = errors.Wrapf(err, "validating %s failed", args[0])
		return err
	}

	err = printJSON(cmd.OutOrStdout(), out)
	return err
}
