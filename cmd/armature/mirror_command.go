package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"armature/internal/rig"
)

func newMirrorCommand(ctx *commandContext) *cobra.Command {
	var side string
	var duplicate bool

	cmd := &cobra.Command{
		Use:   "mirror <component>...",
		Short: "Mirror components to the symmetric side",
		Long: "Mirror flips each component's guides across the YZ plane and moves it to\n" +
			"the symmetric side. With --duplicate the source stays and a mirrored copy\n" +
			"is created. In-batch parent and constraint references follow the mirrored\n" +
			"counterparts.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRig(cmd.Context(), func(r *rig.Rig) error {
				cctx := cmd.Context()
				requests := make([]rig.MirrorRequest, 0, len(args))
				for _, arg := range args {
					comp, err := resolveComponent(cctx, r, arg)
					if err != nil {
						return err
					}
					requests = append(requests, rig.MirrorRequest{
						Component: comp,
						Side:      side,
						Duplicate: duplicate,
					})
				}
				result, err := r.MirrorComponents(cctx, requests)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, comp := range result.Components {
					fmt.Fprintf(out, "Mirrored to %s\n", comp.TokenKey())
				}
				fmt.Fprintf(out, "%d guide transforms flipped\n", len(result.Transforms))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&side, "side", "s", "", "Target side (defaults to the symmetric counterpart)")
	cmd.Flags().BoolVarP(&duplicate, "duplicate", "d", false, "Keep the source and mirror a copy")
	return cmd
}
