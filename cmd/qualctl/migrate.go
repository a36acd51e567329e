package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the evidence tables if they do not exist",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) (err error) {
	ctx := context.Background()

	var e *env
	e, err = openStore(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if err = e.store.EnsureSchema(ctx); err != nil {
		err = errors.Wrap(err, "schema migration failed")
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "evidence schema is up to date")
	return err
}
