package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download <bucket> <object> <file>",
	Short: "Download an object as a chunked, concurrent transfer",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, mgr, _, err := setup()
		if err != nil {
			return err
		}
		defer client.Close()

		bucket, object, path := args[0], args[1], args[2]

		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		attrs, err := mgr.Download(ctx, bucket, object, f)
		if err != nil {
			// Leave the partial file on disk for inspection, but make the
			// failure obvious.
			return fmt.Errorf("download %s/%s: %w", bucket, object, err)
		}

		slog.Info("downloaded", "bucket", bucket, "object", object, "size", attrs.Size)
		return nil
	},
}
