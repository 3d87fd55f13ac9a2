package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/pkg/errors"
)

// kindsFromArgs parses kind arguments; none means every kind.
func kindsFromArgs(args []string) ([]record.Kind, error) {
	if len(args) == 0 {
		return record.Kinds(), nil
	}
	kinds := make([]record.Kind, 0, len(args))
	for _, a := range args {
		k, err := record.ParseKind(a)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func kindNames(kinds []record.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Create or delete record indices",
	}

	create := &cobra.Command{
		Use:   "create [kind...]",
		Short: "Create the indices of the given kinds (all kinds by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kinds, err := kindsFromArgs(args)
			if err != nil {
				return err
			}
			svc, err := cliCtx.Backend.Service()
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()

			if err := svc.EnsureIndices(ctx, kinds...); err != nil {
				return err
			}
			return PrintResult(cmd, fmt.Sprintf("indices ready: %s", kindNames(kinds)))
		},
	}

	var yes bool
	del := &cobra.Command{
		Use:   "delete [kind...]",
		Short: "Delete the indices of the given kinds and flush their cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.InvalidParam("index delete drops every record; pass --yes to confirm")
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kinds, err := kindsFromArgs(args)
			if err != nil {
				return err
			}
			svc, err := cliCtx.Backend.Service()
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()

			if err := svc.DropIndices(ctx, kinds...); err != nil {
				return err
			}
			return PrintResult(cmd, fmt.Sprintf("indices deleted: %s", kindNames(kinds)))
		},
	}
	del.Flags().BoolVar(&yes, "yes", false, "confirm deletion")

	cmd.AddCommand(create, del)
	return cmd
}

//Personal.AI order the ending
