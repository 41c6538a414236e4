package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"armature/internal/components"
	"armature/internal/rig"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Run the build phases",
	}

	buildCmd.AddCommand(
		newPhaseCommand(ctx, "guides", "Build guide layers", (*rig.Rig).BuildGuides),
		newPhaseCommand(ctx, "skeleton", "Build skeleton layers (cascades through guides)", (*rig.Rig).BuildSkeleton),
		newPhaseCommand(ctx, "rigs", "Build control rigs (cascades through guides and skeleton)", (*rig.Rig).BuildRigs),
		newPhaseCommand(ctx, "polish", "Run the polish pass (cascades through every phase)", (*rig.Rig).Polish),
	)
	return buildCmd
}

type phaseFunc func(*rig.Rig, context.Context, ...*components.Component) (bool, error)

func newPhaseCommand(ctx *commandContext, use, short string, phase phaseFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [component...]",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRig(cmd.Context(), func(r *rig.Rig) error {
				cctx := cmd.Context()
				targets, err := resolveComponents(cctx, r, args)
				if err != nil {
					return err
				}
				changed, err := phase(r, cctx, targets...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !changed {
					fmt.Fprintln(out, "Build made no changes (see the engine log for component faults)")
					return nil
				}
				state, err := r.BuildState(cctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Build complete (rig state %s)\n", state)
				return nil
			})
		},
	}
}
