package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BaSui01/mediagen/storage"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <local> <remote>",
		Short: "Upload a file or directory to the configured storage backend",
		Long: `Upload a local file to <remote> and print its public URL. When <local> is a
directory, every file below it is uploaded under the <remote> prefix.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			local, remote := args[0], args[1]

			info, err := os.Stat(local)
			if err != nil {
				return fmt.Errorf("local path: %w", err)
			}

			up, err := ctx.deps.newUploader(cfg.Storage, ctx.log())
			if errors.Is(err, storage.ErrDisabled) {
				return errors.New("storage backend is disabled; set storage.backend to s3 or rclone")
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !info.IsDir() {
				u, err := up.Upload(cmd.Context(), local, remote)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, u)
				return nil
			}

			outcomes, err := storage.UploadDir(cmd.Context(), up, local, remote, cfg.Compare.UploadConcurrency)
			if err != nil {
				return err
			}
			failed := 0
			for _, o := range outcomes {
				if o.Err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %v\n", o.Local, o.Err)
					continue
				}
				fmt.Fprintln(out, o.URL)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(outcomes))
			}
			return nil
		},
	}
}
