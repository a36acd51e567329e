package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var configFile string

//nolint:gochecknoglobals // Cobra boilerplate
var compact bool

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "qualctl",
	Short: "Score and validate management-team qualifications",
	Long: `qualctl scores and validates management-team candidates from the
due-diligence evidence store.

score and validate are read-only. refresh writes the result back to every
assessment of the subject and publishes the snapshot, findings document and
alerts that are configured.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&compact, "compact", false, "print JSON on a single line")
}

func printJSON(w io.Writer, v interface{}) (err error) {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	err = enc.Encode(v)
	return err
}
