package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/export"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/logger"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/project"
)

const timeLayout = "2006-01-02 15:04"

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"p"},
	Short:   "Manage stored bid projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		withApp(func(ctx context.Context, a *application) error {
			return writeProjects(cmd.OutOrStdout(), a.repo.List(ctx))
		})
	},
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an empty project",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(ctx context.Context, a *application) error {
			p, err := a.repo.Create(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.ID)
			return nil
		})
	},
}

var projectsRenameCmd = &cobra.Command{
	Use:   "rename ID NAME",
	Short: "Rename a project",
	Args:  cobra.MinimumNArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		withApp(func(ctx context.Context, a *application) error {
			if err := a.session.Rename(ctx, args[0], strings.Join(args[1:], " ")); err != nil {
				return err
			}
			a.logger.Info("project renamed", logger.ProjectFields(args[0], strings.Join(args[1:], " "))...)
			return nil
		})
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a project and all of its data",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(ctx context.Context, a *application) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes && !confirm("Supprimer ce projet et toutes ses données ? Cette action est irréversible") {
				a.logger.Info("deletion cancelled", logger.ProjectFields(args[0], "")...)
				return nil
			}
			return deleteProject(ctx, a, args[0])
		})
	},
}

var projectsExportCmd = &cobra.Command{
	Use:   "export ID",
	Short: "Export the reports of a project",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApp(func(ctx context.Context, a *application) error {
			formatFlag, _ := cmd.Flags().GetString("format")
			only, _ := cmd.Flags().GetString("report")

			format, err := export.ParseFormat(formatFlag)
			if err != nil {
				return err
			}

			p, ok := a.repo.Get(ctx, args[0])
			if !ok {
				return fmt.Errorf("project %s not found", args[0])
			}

			paths, err := exportReports(a.exporter, export.ProjectReports(p), format, only)
			if err != nil {
				return err
			}
			for _, path := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	projectsCmd.AddCommand(projectsListCmd, projectsCreateCmd, projectsRenameCmd, projectsDeleteCmd, projectsExportCmd)

	projectsDeleteCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	projectsExportCmd.Flags().StringP("format", "f", string(export.FormatPDF), "export format: pdf or docx")
	projectsExportCmd.Flags().StringP("report", "r", "", "export only the report with this title")
}

// withApp runs fn against a fully wired application without the AI assistant.
func withApp(fn func(ctx context.Context, a *application) error) {
	ctx := context.Background()
	l, config := setup()
	defer l.Sync()

	a, err := newApplication(ctx, config, l, false)
	if err != nil {
		l.Fatal("starting", zap.Error(err))
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		l.Fatal("command failed", zap.Error(err))
	}
}

func writeProjects(w io.Writer, projects []project.Project) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNOM\tCRÉÉ LE\tÉTAPE")
	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.CreatedAt.Local().Format(timeLayout), progress(p))
	}
	return tw.Flush()
}

// progress summarizes how far a stored project went through the workflow.
func progress(p project.Project) string {
	steps := make([]string, 0, 3)
	if p.CdcAnalysis != nil {
		steps = append(steps, "analyse")
	}
	if len(p.BpuDqeItems) > 0 {
		steps = append(steps, fmt.Sprintf("%d articles", len(p.BpuDqeItems)))
	}
	if len(p.PricedItems) > 0 {
		steps = append(steps, "prix")
	}
	if len(steps) == 0 {
		return "vide"
	}
	return strings.Join(steps, ", ")
}

// deleteProject removes id and closes the session when it was showing it, so
// the next edit cannot write the deleted project back.
func deleteProject(ctx context.Context, a *application, id string) error {
	if err := a.repo.Delete(ctx, id); err != nil {
		return err
	}
	if a.session.ProjectID() == id {
		a.session.Reset()
	}
	return nil
}

func exportReports(exporter *export.Exporter, reports []export.Report, format export.Format, only string) ([]string, error) {
	if len(reports) == 0 {
		return nil, fmt.Errorf("%w: nothing to export yet", export.ErrEmptyReport)
	}

	paths := make([]string, 0, len(reports))
	for _, report := range reports {
		if only != "" && !strings.EqualFold(only, report.Title) {
			continue
		}
		path, err := exporter.Export(report, format)
		if errors.Is(err, export.ErrEmptyReport) {
			continue
		}
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no matching report", export.ErrEmptyReport)
	}
	return paths, nil
}

func confirm(label string) bool {
	p := promptui.Prompt{Label: label, IsConfirm: true}
	_, err := p.Run()
	return err == nil
}
