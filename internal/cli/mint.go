package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/actris-cloudnet/pid-service/internal/config"
	"github.com/actris-cloudnet/pid-service/internal/pid"
	"github.com/actris-cloudnet/pid-service/internal/services"
)

func newMintCmd() *cobra.Command {
	var records []string

	cmd := &cobra.Command{
		Use:   "mint <type> <uuid> <url>",
		Short: "Mint a PID against the configured Handle server",
		Long:  `Mint (or update) the PID for an object and print its resolver URL.

The Handle server connection is configured with the same environment variables as the service
(HANDLE_SERVER_URL, PREFIX, CERTIFICATE_ONLY, PRIVATE_KEY, CA_VERIFY, UPSTREAM_TIMEOUT).`,
		Example: `  pidctl mint file be8154c1-a6aa-4f44-b953-780b016987b5 https://cloudnet.fmi.fi/file/be8154c1 --data EMAIL=actris@fmi.fi`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := parseRecords(records)
			if err != nil {
				return err
			}

			cfg, err := config.NewServerConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			svc, err := services.NewServices(cfg, appLogger)
			if err != nil {
				return err
			}
			defer svc.HandleServer.Teardown(context.WithoutCancel(cmd.Context()))

			minter := pid.NewMinter(svc.HandleServer, cfg.Prefix, appLogger, nil)

			resolverURL, err := minter.Mint(cmd.Context(), pid.Request{
				Type: pid.PidType(args[0]),
				UUID: args[1],
				URL:  args[2],
				Data: recs,
			})
			if err != nil {
				appLogger.Error("mint failed", slog.String("error", err.Error()))
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), resolverURL)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&records, "data", nil, "additional record as TYPE=VALUE (repeatable, kept in order)")
	return cmd
}
