package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/actris-cloudnet/pid-service/internal/pid"
)

func newPayloadCmd() *cobra.Command {
	var (
		prefix  string
		records []string
	)

	cmd := &cobra.Command{
		Use:     "payload <url>",
		Short:   "Print the Handle server payload for a target URL",
		Long:    `Print the JSON document that would be sent to the Handle server when minting a PID for <url>.`,
		Example: `  pidctl payload --prefix 21.T12995 --data EMAIL=actris@fmi.fi https://cloudnet.fmi.fi/file/be8154c1`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePrefix(prefix); err != nil {
				return err
			}
			recs, err := parseRecords(records)
			if err != nil {
				return err
			}

			payload := pid.BuildPayload(args[0], recs, strings.Trim(strings.TrimSpace(prefix), "/"))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(payload); err != nil {
				return fmt.Errorf("failed to encode payload: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", os.Getenv("PREFIX"), "handle prefix (defaults to $PREFIX)")
	cmd.Flags().StringArrayVar(&records, "data", nil, "additional record as TYPE=VALUE (repeatable, kept in order)")
	return cmd
}
