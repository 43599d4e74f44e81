package cli

import (
	"github.com/spf13/cobra"

	"github.com/vietddude/objstore"
)

var rmGeneration int64

func init() {
	rmCmd.Flags().Int64Var(&rmGeneration, "if-generation", 0, "only delete if the live generation matches")
}

var rmCmd = &cobra.Command{
	Use:   "rm <bucket> <object>",
	Short: "Delete an object",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, _, err := setup()
		if err != nil {
			return err
		}
		defer client.Close()

		obj := client.Bucket(args[0]).Object(args[1])
		if rmGeneration != 0 {
			obj = obj.If(objstore.Conditions{GenerationMatch: rmGeneration})
		}
		return obj.Delete(cmd.Context())
	},
}
