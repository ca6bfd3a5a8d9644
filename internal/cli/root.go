package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/actris-cloudnet/pid-service/internal/logger"
	"github.com/actris-cloudnet/pid-service/internal/version"
)

var (
	logLevel  string
	appLogger *slog.Logger
)

// NewRootCmd builds the pidctl command tree. Output is written to out.
//
// derive and payload work offline; mint loads the service configuration from the environment.
func NewRootCmd(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "pidctl",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
		Short:             "PID service operator CLI",
		Long:              `pidctl derives handles, shows Handle server payloads and mints PIDs against the configured Handle server`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			appLogger = logger.NewLogger(os.Stderr, logger.ParseLogLevel(logLevel), "dev")
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error, none)")

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	rootCmd.AddCommand(newDeriveCmd())
	rootCmd.AddCommand(newPayloadCmd())
	rootCmd.AddCommand(newMintCmd())
	return rootCmd
}

func Execute() {
	if err := NewRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
