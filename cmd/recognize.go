package cmd

import (
	"errors"

	"github.com/kozaktomas/face-registry/internal/matcher"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <base64Image>",
	Short: "Identify the registered user closest to a face",
	Long: `Compares the face against every registered reference and returns the closest
user whose distance is below the threshold. References that cannot be compared
are skipped. With --explain every comparison is included in the output.

With --stdin the input is read as JSON: {"image": "..."}`,
	Args:        usageArgs(1),
	Annotations: map[string]string{stdinAnnotation: "true"},
	RunE:        runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)
	recognizeCmd.Flags().Float64("threshold", 0, "Maximum distance for a match (default from MATCH_THRESHOLD or 0.6)")
	recognizeCmd.Flags().Bool("explain", false, "Include every comparison in the output")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	var in recognizeInput
	if mustGetBool(cmd, "stdin") {
		if err := readInput(cmd.InOrStdin(), &in); err != nil {
			return err
		}
	} else {
		in = recognizeInput{Image: args[0]}
	}

	threshold := cfg.Match.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold = mustGetFloat64(cmd, "threshold")
	}
	explain := mustGetBool(cmd, "explain")

	reg, err := openRegistry(cfg, log)
	if err != nil {
		return printFailure(cmd, err, nil)
	}

	report, err := reg.Recognize(cmd.Context(), in.Image, threshold)
	if err != nil {
		var comparisons []comparisonOutput
		if explain && report != nil && errors.Is(err, matcher.ErrNoMatch) {
			comparisons = toComparisonOutputs(report.Comparisons)
		}
		return printFailure(cmd, err, comparisons)
	}

	resp := recognizeResponse{
		Success:    true,
		UserID:     report.Best.UserID,
		Confidence: report.Best.Confidence,
		Distance:   report.Best.Distance,
		Verified:   report.Best.Verified,
	}
	if explain {
		resp.Comparisons = toComparisonOutputs(report.Comparisons)
	}
	log.WithFields(logrus.Fields{"user_id": resp.UserID, "distance": resp.Distance}).Info("face recognized")
	return printJSON(cmd.OutOrStdout(), resp)
}
