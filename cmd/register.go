package cmd

import (
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register <userId> <base64Image>",
	Short: "Register the reference face of a user",
	Long: `Stores the image as the reference face of the user, replacing any previous one.
The image is base64, optionally prefixed with a data URI header. Nothing is stored
unless the image decodes and contains a face.

With --stdin the input is read as JSON: {"userId": "...", "image": "..."}`,
	Args:        usageArgs(2),
	Annotations: map[string]string{stdinAnnotation: "true"},
	RunE:        runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	var in registerInput
	if mustGetBool(cmd, "stdin") {
		if err := readInput(cmd.InOrStdin(), &in); err != nil {
			return err
		}
	} else {
		in = registerInput{UserID: args[0], Image: args[1]}
	}

	reg, err := openRegistry(cfg, log)
	if err != nil {
		return printFailure(cmd, err, nil)
	}

	if err := reg.Register(cmd.Context(), in.UserID, in.Image); err != nil {
		return printFailure(cmd, err, nil)
	}

	return printJSON(cmd.OutOrStdout(), messageResponse{Success: true, Message: "Face registered successfully"})
}
