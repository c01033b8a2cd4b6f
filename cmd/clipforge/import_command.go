package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/storage"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Copy a local video into the upload directory and print its source key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := storage.NewLocal(storage.Options{
				UploadDir: cfg.Paths.UploadDir,
				OutputDir: cfg.Paths.OutputDir,
			})
			if err != nil {
				return err
			}
			key, err := store.Import(args[0], ctx.flags.user)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]string{"source_key": key})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s\n", key)
			fmt.Fprintf(cmd.OutOrStdout(), "Submit with: clipforge submit %q\n", key)
			return nil
		},
	}
}
