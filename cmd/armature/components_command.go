package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"armature/internal/components"
	"armature/internal/rig"
)

type componentView struct {
	Name     string `json:"name"`
	Side     string `json:"side"`
	Type     string `json:"type"`
	Parent   string `json:"parent,omitempty"`
	Guide    bool   `json:"guide"`
	Skeleton bool   `json:"skeleton"`
	Rig      bool   `json:"rig"`
	Polished bool   `json:"polished"`
}

func newComponentView(ctx context.Context, comp *components.Component) (componentView, error) {
	view := componentView{
		Name: comp.Name(),
		Side: comp.Side(),
		Type: comp.TypeName(),
	}
	if parent, ok := comp.ParentIdentity(); ok {
		view.Parent = parent.String()
	}
	var err error
	if view.Guide, err = comp.HasGuide(ctx); err != nil {
		return componentView{}, err
	}
	if view.Skeleton, err = comp.HasSkeleton(ctx); err != nil {
		return componentView{}, err
	}
	if view.Rig, err = comp.HasRig(ctx); err != nil {
		return componentView{}, err
	}
	if view.Polished, err = comp.HasPolished(ctx); err != nil {
		return componentView{}, err
	}
	return view, nil
}

func newComponentsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var typeFilter string

	cmd := &cobra.Command{
		Use:   "components",
		Short: "List the components of a rig",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRig(cmd.Context(), func(r *rig.Rig) error {
				cctx := cmd.Context()
				var comps []*components.Component
				var err error
				if typeFilter != "" {
					comps, err = r.ComponentsByType(cctx, typeFilter)
				} else {
					comps, err = r.Components(cctx)
				}
				if err != nil {
					return err
				}

				if asJSON {
					views := make([]componentView, 0, len(comps))
					for _, comp := range comps {
						view, err := newComponentView(cctx, comp)
						if err != nil {
							return err
						}
						views = append(views, view)
					}
					return writeJSON(cmd, views)
				}

				if len(comps) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Rig %q has no components\n", r.Name())
					return nil
				}
				rows := make([][]string, 0, len(comps))
				for _, comp := range comps {
					phases, err := componentPhaseCells(cctx, comp)
					if err != nil {
						return err
					}
					row := append([]string{comp.Name(), comp.Side(), comp.TypeName(), parentCell(comp)}, phases...)
					rows = append(rows, row)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"NAME", "SIDE", "TYPE", "PARENT", "GUIDE", "SKELETON", "RIG", "POLISH"},
					rows, 4, 5, 6, 7))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	cmd.Flags().StringVar(&typeFilter, "type", "", "Only list components of this type")
	return cmd
}
