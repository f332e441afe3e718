package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func AnchorCmd() *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:     "anchor",
		Short:   "Resolve the anchor hotel or place and price it",
		Example: `  hotelsearch anchor --hotel-id 47319-3 --checkin 2026-11-20 --checkout 2026-11-22`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.placeID == "" && flags.hotelID == "" {
				return cmd.Help()
			}
			sc, err := flags.context()
			if err != nil {
				return err
			}
			svc, err := buildService(cmd)
			if err != nil {
				return err
			}

			res, err := svc.Refine(cmd.Context(), sc)
			if err != nil {
				return fmt.Errorf("anchor failed: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	flags.register(cmd)

	return cmd
}
