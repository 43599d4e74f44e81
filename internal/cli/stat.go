package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat <bucket> <object>",
	Short: "Show an object's attributes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, _, err := setup()
		if err != nil {
			return err
		}
		defer client.Close()

		attrs, err := client.StatObject(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("name:           %s\n", attrs.Name)
		fmt.Printf("size:           %d\n", attrs.Size)
		fmt.Printf("content-type:   %s\n", attrs.ContentType)
		fmt.Printf("generation:     %d\n", attrs.Generation)
		fmt.Printf("metageneration: %d\n", attrs.Metageneration)
		fmt.Printf("etag:           %s\n", attrs.Etag)
		if attrs.HasCRC32C {
			fmt.Printf("crc32c:         %08x\n", attrs.CRC32C)
		}
		if len(attrs.MD5) > 0 {
			fmt.Printf("md5:            %x\n", attrs.MD5)
		}
		if !attrs.Updated.IsZero() {
			fmt.Printf("updated:        %s\n", attrs.Updated)
		}
		return nil
	},
}
