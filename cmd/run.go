package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/ai"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/export"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/project"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/session"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/workflow"
)

const (
	PromptBack = "Retour"
	PromptQuit = "Quitter"

	PromptNewProject    = "Nouveau projet"
	PromptOpenProject   = "Ouvrir un projet"
	PromptRenameProject = "Renommer un projet"
	PromptDeleteProject = "Supprimer un projet"
	PromptCloseProject  = "Fermer le projet"

	PromptAnalyzeCdc   = "Analyser le cahier des charges (CDC)"
	PromptExtractBPU   = "Extraire un BPU"
	PromptExtractDQE   = "Extraire un DQE"
	PromptShowAnalysis = "Afficher l'analyse"
	PromptShowItems    = "Afficher les articles"

	PromptPredict = "Prédire les prix"
)

var errExit = errors.New("exit requested")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the guided bid workflow",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("project", "p", "", "open the project with this id on start")
}

// run is the interactive workflow of the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, config := setup()
	defer logger.Sync()

	logger.Info("starting the ia-soumission", zap.String("version", version))
	logger.Debug("starting with config",
		zap.String("storage", config.Storage.Backend),
		zap.String("model", config.AI.Gemini.Model),
		zap.String("export_dir", config.Export.Dir),
	)

	a, err := newApplication(ctx, config, logger, true)
	if err != nil {
		logger.Fatal("starting", zap.Error(err))
	}
	defer a.Close()

	if id, _ := cmd.Flags().GetString("project"); id != "" {
		if err := openProject(ctx, a, id); err != nil {
			logger.Error("opening project", zap.Error(err))
		}
	}

	for {
		page, err := a.selectPage()
		if err != nil {
			if errors.Is(err, errExit) || errors.Is(err, promptui.ErrInterrupt) {
				logger.Info("exiting", zap.String("reason", "got quit from prompt"))
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := a.router.Navigate(page); err != nil {
			logger.Warn("page unavailable", zap.String("page", page.String()), zap.Error(err))
			continue
		}

		if err := a.handlePage(ctx, a.router.Current()); err != nil {
			if errors.Is(err, promptui.ErrInterrupt) {
				return
			}
			// Step failures leave the session as it was, the user can retry.
			logger.Error("step failed", zap.String("page", page.String()), zap.Error(err))
		}
	}
}

func (a *application) selectPage() (workflow.Page, error) {
	statuses := a.router.Describe()

	items := make([]string, 0, len(statuses)+1)
	for _, st := range statuses {
		label := st.Page.Title()
		switch {
		case !st.Enabled:
			label += " (verrouillé: " + st.Reason + ")"
		case st.Reason != "":
			label += " (" + st.Reason + ")"
		}
		items = append(items, label)
	}
	items = append(items, PromptQuit)

	title := "Aucun projet ouvert"
	if a.session.IsOpen() {
		title = fmt.Sprintf("Projet: %s [%s]", a.session.Name(), a.session.Stage())
	}

	prompt := promptui.Select{Label: title, Items: items, Size: len(items), CursorPos: int(a.router.Current())}
	idx, _, err := prompt.Run()
	if err != nil {
		return 0, err
	}
	if idx == len(statuses) {
		return 0, errExit
	}
	return statuses[idx].Page, nil
}

func (a *application) handlePage(ctx context.Context, page workflow.Page) error {
	switch page {
	case workflow.PageWorkspace:
		return a.workspacePage(ctx)
	case workflow.PageSmartReader:
		return a.smartReaderPage(ctx)
	case workflow.PageCostPredictor:
		return a.costPredictorPage(ctx)
	case workflow.PageXAIJustifier:
		return a.justifierPage(ctx)
	case workflow.PageReports:
		return a.reportsPage()
	default:
		return fmt.Errorf("invalid page: %s", page)
	}
}

func (a *application) workspacePage(ctx context.Context) error {
	items := []string{PromptNewProject, PromptOpenProject, PromptRenameProject, PromptDeleteProject}
	if a.session.IsOpen() {
		items = append(items, PromptCloseProject)
	}

	_, action, err := (&promptui.Select{Label: workflow.PageWorkspace.Title(), Items: append(items, PromptBack)}).Run()
	if err != nil {
		return err
	}

	switch action {
	case PromptBack:
		return nil
	case PromptNewProject:
		name, err := ask("Nom du projet", "")
		if err != nil {
			return err
		}
		if _, err := a.session.CreateAndOpen(ctx, name); err != nil {
			return err
		}
		return a.router.Navigate(workflow.PageSmartReader)
	case PromptOpenProject:
		p, err := a.pickProject(ctx)
		if err != nil || p == nil {
			return err
		}
		return openProject(ctx, a, p.ID)
	case PromptRenameProject:
		p, err := a.pickProject(ctx)
		if err != nil || p == nil {
			return err
		}
		name, err := ask("Nouveau nom", p.Name)
		if err != nil {
			return err
		}
		return a.session.Rename(ctx, p.ID, name)
	case PromptDeleteProject:
		p, err := a.pickProject(ctx)
		if err != nil || p == nil {
			return err
		}
		if !confirm(fmt.Sprintf("Supprimer %q et toutes ses données ? Cette action est irréversible", p.Name)) {
			return nil
		}
		return deleteProject(ctx, a, p.ID)
	case PromptCloseProject:
		a.session.Reset()
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// pickProject lets the user choose a stored project, nil means back.
func (a *application) pickProject(ctx context.Context) (*project.Project, error) {
	projects := a.repo.List(ctx)
	if len(projects) == 0 {
		fmt.Println("Aucun projet enregistré.")
		return nil, nil
	}

	items := make([]string, 0, len(projects)+1)
	for _, p := range projects {
		items = append(items, fmt.Sprintf("%s (%s, %s)", p.Name, p.CreatedAt.Local().Format(timeLayout), progress(p)))
	}

	idx, _, err := (&promptui.Select{Label: "Choisissez un projet", Items: append(items, PromptBack), Size: 10}).Run()
	if err != nil {
		return nil, err
	}
	if idx == len(projects) {
		return nil, nil
	}
	return &projects[idx], nil
}

func (a *application) smartReaderPage(ctx context.Context) error {
	items := []string{PromptAnalyzeCdc, PromptExtractBPU, PromptExtractDQE}
	if a.session.CdcAnalysis() != nil {
		items = append(items, PromptShowAnalysis)
	}
	if len(a.session.BpuDqeItems()) > 0 {
		items = append(items, PromptShowItems)
	}

	_, action, err := (&promptui.Select{Label: workflow.PageSmartReader.Title(), Items: append(items, PromptBack)}).Run()
	if err != nil {
		return err
	}

	switch action {
	case PromptBack:
		return nil
	case PromptShowAnalysis:
		printAnalysis(a.session.CdcAnalysis())
		return nil
	case PromptShowItems:
		return printItems(a.session.BpuDqeItems())
	}

	analyst, err := a.requireAnalyst()
	if err != nil {
		return err
	}

	path, err := ask("Chemin du document", "")
	if err != nil {
		return err
	}
	text, err := a.reader.ReadFile(ctx, path)
	if err != nil {
		return err
	}

	switch action {
	case PromptAnalyzeCdc:
		analysis, err := analyst.AnalyzeRequirements(ctx, text)
		if err != nil {
			return err
		}
		if err := a.session.SetCdcAnalysis(ctx, analysis); err != nil {
			return err
		}
		printAnalysis(analysis)
		return nil
	case PromptExtractBPU, PromptExtractDQE:
		kind := ai.KindBPU
		if action == PromptExtractDQE {
			kind = ai.KindDQE
		}
		items, err := analyst.ExtractLineItems(ctx, text, kind)
		if err != nil {
			return err
		}
		if err := a.session.SetBpuDqeItems(ctx, items); err != nil {
			return err
		}
		return printItems(items)
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func (a *application) costPredictorPage(ctx context.Context) error {
	if a.session.Stage() < session.StageItemsExtracted {
		fmt.Println("Extrayez d'abord un BPU ou un DQE depuis le lecteur intelligent.")
		return nil
	}

	items := []string{PromptPredict}
	if len(a.session.PricedItems()) > 0 {
		items = append(items, PromptShowItems)
	}

	_, action, err := (&promptui.Select{Label: workflow.PageCostPredictor.Title(), Items: append(items, PromptBack)}).Run()
	if err != nil {
		return err
	}

	switch action {
	case PromptBack:
		return nil
	case PromptShowItems:
		return printItems(a.session.PricedItems())
	case PromptPredict:
		priced := a.predictor.Predict(a.session.BpuDqeItems())
		if err := a.session.SetPricedItems(ctx, priced); err != nil {
			return err
		}
		return printItems(priced)
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func (a *application) justifierPage(ctx context.Context) error {
	priced := a.session.PricedItems()
	if len(priced) == 0 {
		fmt.Println("Lancez d'abord la prédiction des prix.")
		return nil
	}

	analyst, err := a.requireAnalyst()
	if err != nil {
		return err
	}

	labels := make([]string, 0, len(priced)+1)
	for _, item := range priced {
		labels = append(labels, fmt.Sprintf("%s %s (%s)", item.Number, item.Designation, export.FormatAmount(item.UnitPrice)))
	}

	idx, _, err := (&promptui.Select{Label: "Article à justifier", Items: append(labels, PromptBack), Size: 10}).Run()
	if err != nil {
		return err
	}
	if idx == len(priced) {
		return nil
	}

	explanation, err := analyst.ExplainPrice(ctx, priced[idx])
	if err != nil {
		return err
	}
	printExplanation(priced[idx], explanation)
	return nil
}

func (a *application) reportsPage() error {
	reports := export.ProjectReports(a.session.Snapshot())
	if len(reports) == 0 {
		fmt.Println("Aucun rapport disponible: analysez un CDC ou prédisez des prix.")
		return nil
	}

	titles := make([]string, 0, len(reports)+1)
	for _, r := range reports {
		titles = append(titles, r.Title)
	}

	idx, _, err := (&promptui.Select{Label: workflow.PageReports.Title(), Items: append(titles, PromptBack)}).Run()
	if err != nil {
		return err
	}
	if idx == len(reports) {
		return nil
	}

	_, choice, err := (&promptui.Select{Label: "Format", Items: []string{"PDF", "Word (.docx)"}}).Run()
	if err != nil {
		return err
	}
	format := export.FormatPDF
	if strings.HasPrefix(choice, "Word") {
		format = export.FormatDOCX
	}

	path, err := a.exporter.Export(reports[idx], format)
	if err != nil {
		return err
	}
	fmt.Printf("Rapport enregistré: %s\n", path)
	return nil
}

func ask(label, initial string) (string, error) {
	p := promptui.Prompt{
		Label:   label,
		Default: initial,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("valeur requise")
			}
			return nil
		},
	}
	value, err := p.Run()
	return strings.TrimSpace(value), err
}

func printAnalysis(analysis *project.CdcAnalysis) {
	if analysis == nil {
		return
	}
	for _, section := range []struct{ title, text string }{
		{export.TitleSynthesis, analysis.Synthesis},
		{export.TitleLegalAudit, analysis.LegalAudit},
		{export.TitleTechnicalBrief, analysis.TechnicalBrief},
	} {
		fmt.Printf("\n== %s ==\n%s\n", section.title, section.text)
	}
}

func printItems(items []project.LineItem) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(export.TableHeader(), "\t")+"\t")
	for _, item := range items {
		fmt.Fprintln(tw, strings.Join(export.TableRow(item), "\t")+"\t")
	}
	return tw.Flush()
}

func printExplanation(item project.LineItem, e *ai.Explanation) {
	fmt.Printf("\n%s: %s\n\n%s\n", item.Designation, export.FormatAmount(item.UnitPrice), e.Explanation)
	for _, f := range e.PositiveFactors {
		fmt.Printf("  + %-40s %+.2f\n", f.Feature, f.Impact)
	}
	for _, f := range e.NegativeFactors {
		fmt.Printf("  - %-40s %+.2f\n", f.Feature, f.Impact)
	}
}

// openProject loads id into the session and continues on the smart reader.
func openProject(ctx context.Context, a *application, id string) error {
	if err := a.session.Open(ctx, id); err != nil {
		return err
	}
	return a.router.Navigate(workflow.PageSmartReader)
}
