package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"armature/internal/rig"
	"armature/internal/template"
)

func newTemplateCommand(ctx *commandContext) *cobra.Command {
	templateCmd := &cobra.Command{
		Use:   "template",
		Short: "Save, load, and manage rig templates",
	}

	templateCmd.AddCommand(
		newTemplateSaveCommand(ctx),
		newTemplateLoadCommand(ctx),
		newTemplateListCommand(ctx),
		newTemplateDeleteCommand(ctx),
		newTemplateExportCommand(ctx),
		newTemplateImportCommand(ctx),
	)
	return templateCmd
}

// templateManager builds a manager over the configured directories. Pure file
// operations go through this so they never touch the scene lock.
func templateManager(ctx *commandContext) (*template.Manager, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	log, err := cliLogger(cfg)
	if err != nil {
		return nil, err
	}
	return template.NewManager(cfg.Paths.TemplateDirs, log), nil
}

func newTemplateSaveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "save [name]",
		Short: "Serialize the rig into a template file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRig(cmd.Context(), func(r *rig.Rig) error {
				name := ""
				if len(args) > 0 {
					name = args[0]
				}
				path, err := r.SaveTemplate(cmd.Context(), name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved template to %s\n", path)
				return nil
			})
		},
	}
}

func newTemplateLoadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "load <name>",
		Short: "Apply a template to the rig and build its guides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRig(cmd.Context(), func(r *rig.Rig) error {
				created, err := r.LoadTemplate(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, comp := range created {
					fmt.Fprintf(out, "Created %s\n", comp.TokenKey())
				}
				fmt.Fprintf(out, "Applied template %q (%d components)\n", args[0], len(created))
				return nil
			})
		},
	}
}

func newTemplateListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates across the configured directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := templateManager(ctx)
			if err != nil {
				return err
			}
			infos, err := manager.List()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, infos)
			}
			if len(infos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No templates found")
				return nil
			}
			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				rows = append(rows, []string{info.Name, info.Path})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"NAME", "PATH"}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newTemplateDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := templateManager(ctx)
			if err != nil {
				return err
			}
			if err := manager.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted template %q\n", args[0])
			return nil
		},
	}
}

func newTemplateExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <name> <destination>",
		Short: "Copy a stored template to an external path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := templateManager(ctx)
			if err != nil {
				return err
			}
			if err := manager.Export(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported template %q to %s\n", args[0], args[1])
			return nil
		},
	}
}

func newTemplateImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>",
		Short: "Copy an external template file into the template directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := templateManager(ctx)
			if err != nil {
				return err
			}
			doc, err := manager.Import(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported template %q (%d components)\n",
				doc.Name, len(doc.Components))
			return nil
		},
	}
}
