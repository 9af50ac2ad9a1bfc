package cmd

import (
	"fmt"
	"io"
	"unicode"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
	"github.com/kozaktomas/face-registry/internal/matcher"
	"github.com/kozaktomas/face-registry/internal/registry"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// errorResponse is printed for malformed invocations, followed by exit status 1.
type errorResponse struct {
	Error string `json:"error"`
}

type failureResponse struct {
	Success     bool               `json:"success"`
	Error       string             `json:"error"`
	Comparisons []comparisonOutput `json:"comparisons,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type recognizeResponse struct {
	Success     bool               `json:"success"`
	UserID      string             `json:"user_id"`
	Confidence  float64            `json:"confidence"`
	Distance    float64            `json:"distance"`
	Verified    bool               `json:"verified"`
	Comparisons []comparisonOutput `json:"comparisons,omitempty"`
}

type comparisonOutput struct {
	UserID   string   `json:"user_id"`
	Distance *float64 `json:"distance,omitempty"`
	Verified bool     `json:"verified"`
	Error    string   `json:"error,omitempty"`
}

type listResponse struct {
	Success bool     `json:"success"`
	Faces   []string `json:"faces"`
}

type importResponse struct {
	Success  bool              `json:"success"`
	Imported []string          `json:"imported"`
	Failed   map[string]string `json:"failed"`
}

// printJSON writes v as a single JSON line.
func printJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printFailure reports a logical failure. The command itself still succeeds.
func printFailure(cmd *cobra.Command, err error, comparisons []comparisonOutput) error {
	entry := log.WithError(err)
	if registry.IsUserError(err) {
		entry.Info("operation failed")
	} else {
		entry.Error("operation failed")
	}
	return printJSON(cmd.OutOrStdout(), failureResponse{Success: false, Error: failureMessage(err), Comparisons: comparisons})
}

// failureMessage renders err with a capitalized first letter ("Face not found"),
// the wording existing callers forward to their clients.
func failureMessage(err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}

func toComparisonOutputs(comparisons []matcher.Comparison) []comparisonOutput {
	out := make([]comparisonOutput, 0, len(comparisons))
	for _, c := range comparisons {
		o := comparisonOutput{UserID: c.UserID}
		if c.Err != nil {
			o.Error = c.Err.Error()
		} else {
			d := c.Distance
			o.Distance = &d
			o.Verified = c.Verified
		}
		out = append(out, o)
	}
	return out
}
