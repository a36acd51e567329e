package main

import (
	"context"

	gqs "dd-qualification/internal/workers/qualification/get-qualification-snapshot"
	rq "dd-qualification/internal/workers/qualification/refresh-qualification"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var (
	refreshNotify    bool
	refreshNoPublish bool
	snapshotMaxAge   int
)

//nolint:gochecknoglobals // Cobra boilerplate
var refreshCmd = &cobra.Command{
	Use:   "refresh [subject-id]",
	Short: "Score, validate and write the result back to every assessment",
	Long: `Scores and validates a subject from one evidence read, then writes the
overall score, validation confidence, red flags and recommendations to every
assessment row of the subject. Running it twice without new evidence leaves
the rows unchanged.

Unless --no-publish is given the snapshot cache, the findings index and the
alert channels that are configured are updated as well.

Examples:
  qualctl refresh tm-42
  qualctl refresh tm-42 --notify
  qualctl refresh tm-42 --no-publish`,
	Args: cobra.ExactArgs(1),
	RunE: runRefresh,
}

//nolint:gochecknoglobals // Cobra boilerplate
var snapshotCmd = &cobra.Command{
	Use:   "snapshot [subject-id]",
	Short: "Show the cached qualification of a subject, computing it on a miss",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshot,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(snapshotCmd)
	refreshCmd.Flags().BoolVar(&refreshNotify, "notify", false, "send an alert when the verdict is invalid (default from config)")
	refreshCmd.Flags().BoolVar(&refreshNoPublish, "no-publish", false, "only write back; skip snapshot, findings and alerts")
	snapshotCmd.Flags().IntVar(&snapshotMaxAge, "max-age", 0, "ignore snapshots older than this many seconds (0 accepts any)")
}

func runRefresh(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	var e *env
	if refreshNoPublish {
		e, err = openStore(ctx)
	} else {
		e, err = openAll(ctx)
	}
	if err != nil {
		return err
	}
	defer e.Close()

	opts := rq.HandlerOptions{AppConfig: e.cfg, Refresher: e.engine, Logger: e.log}
	if e.cache != nil {
		opts.Snapshots = e.cache
	}
	if e.index != nil {
		opts.Findings = e.index
	}
	if e.notifier != nil {
		opts.Alerter = e.notifier
	}

	var h *rq.Handler
	h, err = rq.NewHandler(opts)
	if err != nil {
		return err
	}

	input := &rq.Input{SubjectID: args[0]}
	if cmd.Flags().Changed("notify") {
		input.Notify = &refreshNotify
	}

	var out *rq.Output
	out, err = h.Execute(ctx, input)
	if err != nil {
		err = errors.Wrapf(err, "refreshing %s failed", args[0])
		return err
	}

	err = printJSON(cmd.OutOrStdout(), out)
	return err
}

func runSnapshot(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	var e *env
	e, err = openAll(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	opts := gqs.HandlerOptions{AppConfig: e.cfg, Evaluator: e.engine, Logger: e.log}
	if e.cache != nil {
		opts.Cache = e.cache
	}

	var h *gqs.Handler
	h, err = gqs.NewHandler(opts)
	if err != nil {
		return err
	}

	input := &gqs.Input{SubjectID: args[0]}
	if cmd.Flags().Changed("max-age") {
		if snapshotMaxAge < 0 {
			err = errors.New("--max-age must not be negative")
			return err
		}
		input.MaxAgeSeconds = &snapshotMaxAge
	}

	var out *gqs.Output
	out, err = h.Execute(ctx, input)
	if err != nil {
		err = errors.Wrapf(err, "snapshot of %s failed", args[0])
		return err
	}

	err = printJSON(cmd.OutOrStdout(), out)
	return err
}
