package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"armature/internal/rig"
)

func newDuplicateCommand(ctx *commandContext) *cobra.Command {
	var name string
	var side string

	cmd := &cobra.Command{
		Use:   "duplicate <component>...",
		Short: "Duplicate components with their descriptors",
		Long: "Duplicate clones each component's persisted descriptor and rebuilds the\n" +
			"copies to the highest phase any source had reached. In-batch parent and\n" +
			"constraint references point at the copies; references to components outside\n" +
			"the batch keep following the originals.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && len(args) > 1 {
				return fmt.Errorf("--name applies to a single component, got %d", len(args))
			}
			return ctx.withRig(cmd.Context(), func(r *rig.Rig) error {
				cctx := cmd.Context()
				requests := make([]rig.DuplicateRequest, 0, len(args))
				for _, arg := range args {
					comp, err := resolveComponent(cctx, r, arg)
					if err != nil {
						return err
					}
					requests = append(requests, rig.DuplicateRequest{
						Component: comp,
						Name:      name,
						Side:      side,
					})
				}
				copies, err := r.DuplicateComponents(cctx, requests)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, comp := range copies {
					fmt.Fprintf(out, "Duplicated to %s\n", comp.TokenKey())
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name for the copy (single component only)")
	cmd.Flags().StringVarP(&side, "side", "s", "", "Side for the copies (defaults to the source side)")
	return cmd
}
