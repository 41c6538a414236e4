package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"armature/internal/rig"
)

type stateView struct {
	Rig        string `json:"rig"`
	State      string `json:"state"`
	Components int    `json:"components"`
	Version    string `json:"version"`
}

func newStateCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the rig's build state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRig(cmd.Context(), func(r *rig.Rig) error {
				cctx := cmd.Context()
				state, err := r.BuildState(cctx)
				if err != nil {
					return err
				}
				comps, err := r.Components(cctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, stateView{
						Rig:        r.Name(),
						State:      state.String(),
						Components: len(comps),
						Version:    rig.EngineVersion,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rig %q is at state %s (%d components)\n",
					r.Name(), state, len(comps))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of text")
	return cmd
}
