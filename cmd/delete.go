package cmd

import (
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <userId>",
	Short: "Delete the reference face of a user",
	Args:  usageArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry(cfg, log)
	if err != nil {
		return printFailure(cmd, err, nil)
	}

	if err := reg.Delete(args[0]); err != nil {
		return printFailure(cmd, err, nil)
	}

	return printJSON(cmd.OutOrStdout(), messageResponse{Success: true, Message: "Face deleted successfully"})
}
