package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"armature/internal/components"
	"armature/internal/rig"
)

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var side string
	var parent string

	cmd := &cobra.Command{
		Use:   "create <type> [name]",
		Short: "Create a component in the rig",
		Long: "Create a component of a registered type. The name defaults to the type tag\n" +
			"and colliding names are suffixed with the smallest unused number.\n\n" +
			"Registered types: " + strings.Join(components.KindTags(), ", "),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRig(cmd.Context(), func(r *rig.Rig) error {
				cctx := cmd.Context()
				name := ""
				if len(args) > 1 {
					name = args[1]
				}
				comp, err := r.CreateComponent(cctx, args[0], name, side)
				if err != nil {
					return err
				}
				if parent != "" {
					parentComp, err := resolveComponent(cctx, r, parent)
					if err != nil {
						return err
					}
					if err := comp.SetParent(cctx, parentComp); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", comp.TokenKey(), comp.TypeName())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&side, "side", "s", "", "Side token for the component (defaults to the kind's side)")
	cmd.Flags().StringVarP(&parent, "parent", "p", "", "Parent component as name:side")
	return cmd
}
