package cmd

import (
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
)

// registerInput is the --stdin payload of the register command.
type registerInput struct {
	UserID string `json:"userId" validate:"required"`
	Image  string `json:"image" validate:"required"`
}

// recognizeInput is the --stdin payload of the recognize command.
type recognizeInput struct {
	Image string `json:"image" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// readInput decodes a JSON object from r into dst and validates it.
func readInput(r io.Reader, dst any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid JSON input: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid JSON input: %w", err)
	}
	return nil
}
