package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <bucket> <file> <object>",
	Short: "Upload a file as a chunked, concurrent transfer",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, mgr, _, err := setup()
		if err != nil {
			return err
		}
		defer client.Close()

		bucket, path, object := args[0], args[1], args[2]

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		attrs, err := mgr.Upload(ctx, bucket, object, f, info.Size())
		if err != nil {
			return err
		}

		slog.Info("uploaded", "bucket", bucket, "object", object, "size", attrs.Size, "generation", attrs.Generation)
		fmt.Printf("%s/%s (generation %d)\n", bucket, object, attrs.Generation)
		return nil
	},
}
