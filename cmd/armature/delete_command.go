package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"armature/internal/components"
	"armature/internal/rig"
)

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete components, built layers, or the whole rig",
	}

	deleteCmd.AddCommand(
		newDeleteComponentCommand(ctx),
		newSweepCommand(ctx, "guides", "Delete built guide layers", (*rig.Rig).DeleteGuides),
		newSweepCommand(ctx, "skeletons", "Delete built skeleton layers", (*rig.Rig).DeleteSkeletons),
		newSweepCommand(ctx, "rigs", "Delete built control rig layers", (*rig.Rig).DeleteRigs),
		newDeleteRigCommand(ctx),
	)
	return deleteCmd
}

func newDeleteComponentCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "component <component>...",
		Short: "Delete components and strip references to them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRig(cmd.Context(), func(r *rig.Rig) error {
				cctx := cmd.Context()
				targets, err := resolveComponents(cctx, r, args)
				if err != nil {
					return err
				}
				removed, err := r.DeleteComponents(cctx, targets...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d components\n", removed)
				return nil
			})
		},
	}
}

type sweepFunc func(*rig.Rig, context.Context, ...*components.Component) (int, error)

func newSweepCommand(ctx *commandContext, use, short string, sweep sweepFunc) *cobra.Command {
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
				count, err := sweep(r, cctx, targets...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s on %d components\n", use, count)
				return nil
			})
		},
	}
}

func newDeleteRigCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rig",
		Short: "Tear down the whole rig, components included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return errors.New("delete rig removes every component and layer; re-run with --force")
			}
			return ctx.withRig(cmd.Context(), func(r *rig.Rig) error {
				name := r.Name()
				if err := r.Delete(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted rig %q\n", name)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip the safety check")
	return cmd
}
