package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/actris-cloudnet/pid-service/internal/pid"
)

func newDeriveCmd() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:     "derive <type> <uuid>",
		Short:   "Print the handle and resolver URL for an object",
		Long:    `Derive the handle for a file, collection or instrument. No request is sent to the Handle server.`,
		Example: `  pidctl derive --prefix 21.T12995 file be8154c1-a6aa-4f44-b953-780b016987b5`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePrefix(prefix); err != nil {
				return err
			}
			t := pid.PidType(args[0])
			if !t.Valid() {
				return fmt.Errorf("unknown type %q (expected file, collection or instrument)", args[0])
			}
			id, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid uuid %q: %w", args[1], err)
			}

			handle, err := pid.DeriveHandle(t, id, prefix)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), handle)
			fmt.Fprintln(cmd.OutOrStdout(), pid.ResolverURL(handle))
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", os.Getenv("PREFIX"), "handle prefix (defaults to $PREFIX)")
	return cmd
}

func requirePrefix(prefix string) error {
	if strings.Trim(strings.TrimSpace(prefix), "/") == "" {
		return fmt.Errorf("a handle prefix is required: use --prefix or set PREFIX")
	}
	return nil
}

// parseRecords converts TYPE=VALUE arguments into records, preserving their order
func parseRecords(values []string) ([]pid.Record, error) {
	records := make([]pid.Record, 0, len(values))
	for _, v := range values {
		recordType, value, ok := strings.Cut(v, "=")
		if !ok || recordType == "" {
			return nil, fmt.Errorf("invalid record %q (expected TYPE=VALUE)", v)
		}
		records = append(records, pid.Record{Type: recordType, Value: value})
	}
	return records, nil
}
