package cmd

import (
	"github.com/kozaktomas/face-registry/internal/registry"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Register every image in a directory",
	Long: `Registers each image file in the directory under the user id given by its
file name without extension (alice.jpg registers "alice"). Failing files are
reported and skipped.`,
	Args: usageArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().Bool("no-progress", false, "Do not show a progress bar")
}

func runImport(cmd *cobra.Command, args []string) error {
	dir := args[0]

	reg, err := openRegistry(cfg, log)
	if err != nil {
		return printFailure(cmd, err, nil)
	}

	files, err := registry.ImportCandidates(dir)
	if err != nil {
		return printFailure(cmd, err, nil)
	}

	var progress func()
	if !mustGetBool(cmd, "no-progress") {
		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("Importing faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("faces"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
		)
		defer bar.Finish()
		progress = func() { _ = bar.Add(1) }
	}

	result, err := reg.Import(cmd.Context(), dir, progress)
	if err != nil {
		return printFailure(cmd, err, nil)
	}

	log.WithField("imported", len(result.Imported)).WithField("failed", len(result.Failed)).Info("import finished")
	return printJSON(cmd.OutOrStdout(), importResponse{Success: true, Imported: result.Imported, Failed: result.Failed})
}
