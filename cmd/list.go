package cmd

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered users",
	Args:  usageArgs(0),
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry(cfg, log)
	if err != nil {
		return printFailure(cmd, err, nil)
	}

	faces, err := reg.List()
	if err != nil {
		return printFailure(cmd, err, nil)
	}

	return printJSON(cmd.OutOrStdout(), listResponse{Success: true, Faces: faces})
}
