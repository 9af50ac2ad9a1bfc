package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/facestore"
	"github.com/kozaktomas/face-registry/internal/logging"
	"github.com/kozaktomas/face-registry/internal/matcher"
	"github.com/kozaktomas/face-registry/internal/registry"
	"github.com/kozaktomas/face-registry/internal/verifier"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// stdinAnnotation marks commands that accept their input as JSON on stdin.
const stdinAnnotation = "stdin"

var (
	cfg *config.Config
	log *logrus.Entry
)

var rootCmd = &cobra.Command{
	Use:   "face-registry",
	Short: "Register reference faces and identify unknown ones",
	Long: `Face Registry keeps one reference face image per user in a directory and
identifies an unknown face by comparing it against every registered reference.

Every command prints exactly one JSON line on stdout. Logs go to stderr.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// openRegistry builds the registry for a command. Tests replace it.
var openRegistry = defaultOpenRegistry

func defaultOpenRegistry(cfg *config.Config, logger logrus.FieldLogger) (*registry.Registry, error) {
	v, err := verifier.New(cfg.Verifier.Backend, verifier.Options{Config: cfg, Logger: logger})
	if err != nil {
		return nil, err
	}
	return registry.New(facestore.New(cfg.Store.Dir), v, logger,
		matcher.WithCompareTimeout(cfg.Match.CompareTimeout),
		matcher.WithWorkers(cfg.Match.Workers),
	), nil
}

// Execute runs the command line and exits non-zero on usage errors.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, in io.Reader, out io.Writer) int {
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	if err := rootCmd.Execute(); err != nil {
		_ = printJSON(out, errorResponse{Error: err.Error()})
		return 1
	}
	return 0
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("faces-dir", "", "Directory holding registered faces (default from FACES_DIR or 'faces')")
	rootCmd.PersistentFlags().String("verifier", "", fmt.Sprintf("Verifier backend %v (default from VERIFIER_BACKEND)", verifier.Backends()))
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().Bool("stdin", false, "Read input from stdin as JSON")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// setup loads configuration, applies global flag overrides and creates the invocation logger.
func setup(cmd *cobra.Command, args []string) error {
	cfg = config.Load()
	if v := mustGetString(cmd, "faces-dir"); v != "" {
		cfg.Store.Dir = v
	}
	if v := mustGetString(cmd, "verifier"); v != "" {
		cfg.Verifier.Backend = v
	}
	if v := mustGetString(cmd, "log-level"); v != "" {
		cfg.Log.Level = v
	}

	log = logging.WithTraceID(logging.New(cfg.Log)).WithField("command", cmd.Name())
	return nil
}

// usageArgs accepts exactly n positional arguments, or none when --stdin is given
// and the command reads stdin. Commands without stdin support reject the flag.
func usageArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if mustGetBool(cmd, "stdin") {
			if cmd.Annotations[stdinAnnotation] != "true" {
				return fmt.Errorf("Command '%s' does not support --stdin", cmd.Name())
			}
			if len(args) != 0 {
				return fmt.Errorf("Usage: %s --stdin (no positional arguments)", cmd.CommandPath())
			}
			return nil
		}
		if len(args) != n {
			return fmt.Errorf("Usage: %s", cmd.UseLine())
		}
		return nil
	}
}
