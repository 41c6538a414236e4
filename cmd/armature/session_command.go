package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"armature/internal/rig"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	var rename string

	cmd := &cobra.Command{
		Use:   "session <rig>",
		Short: "Create or bind a rig session and show its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(r *rig.Rig) error {
				cctx := cmd.Context()
				if err := r.StartSession(cctx, args[0]); err != nil {
					return err
				}
				if rename != "" {
					if err := r.Rename(cctx, rename); err != nil {
						return err
					}
				}
				comps, err := r.Components(cctx)
				if err != nil {
					return err
				}
				state, err := r.BuildState(cctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rig %q ready (%d components, state %s)\n",
					r.Name(), len(comps), state)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&rename, "rename", "", "Rename the rig after binding")
	return cmd
}
