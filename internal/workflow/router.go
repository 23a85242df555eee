// Package workflow selects the screen of the guided bid workflow and decides
// which screens can be reached from the current session state.
package workflow

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/session"
)

var ErrPageLocked = errors.New("page requires an open project")

// Page is one screen of the workflow.
type Page int

const (
	PageWorkspace Page = iota
	PageSmartReader
	PageCostPredictor
	PageXAIJustifier
	PageReports
)

// Pages lists every page in menu order.
var Pages = []Page{PageWorkspace, PageSmartReader, PageCostPredictor, PageXAIJustifier, PageReports}

func (p Page) String() string {
	switch p {
	case PageWorkspace:
		return "workspace"
	case PageSmartReader:
		return "smart_reader"
	case PageCostPredictor:
		return "cost_predictor"
	case PageXAIJustifier:
		return "xai_justifier"
	case PageReports:
		return "reports"
	default:
		return "page(" + strconv.Itoa(int(p)) + ")"
	}
}

// Title is the label shown in menus.
func (p Page) Title() string {
	switch p {
	case PageWorkspace:
		return "Espace de travail"
	case PageSmartReader:
		return "Lecteur intelligent"
	case PageCostPredictor:
		return "Prédiction des coûts"
	case PageXAIJustifier:
		return "Justification XAI"
	case PageReports:
		return "Rapports"
	default:
		return p.String()
	}
}

// State is what the router needs to know about the session.
type State interface {
	IsOpen() bool
	Stage() session.Stage
}

// Status describes whether a page can be reached and what it is waiting for.
type Status struct {
	Page    Page
	Enabled bool
	Reason  string
	Details map[string]string
}

type Router struct {
	state   State
	current Page
}

func NewRouter(state State) *Router {
	return &Router{state: state, current: PageWorkspace}
}

// Current returns the selected page, falling back to the workspace once the
// session no longer holds a project.
func (r *Router) Current() Page {
	if r.current != PageWorkspace && !r.state.IsOpen() {
		r.current = PageWorkspace
	}
	return r.current
}

// Navigate selects page if it is reachable.
func (r *Router) Navigate(page Page) error {
	if !valid(page) {
		return fmt.Errorf("unknown page %d", page)
	}
	if page != PageWorkspace && !r.state.IsOpen() {
		return fmt.Errorf("%s: %w", page, ErrPageLocked)
	}
	r.current = page
	return nil
}

// Describe returns the status of every page in menu order.
func (r *Router) Describe() []Status {
	statuses := make([]Status, 0, len(Pages))
	for _, page := range Pages {
		statuses = append(statuses, r.status(page))
	}
	return statuses
}

func (r *Router) status(page Page) Status {
	stage := r.state.Stage()
	st := Status{
		Page:    page,
		Enabled: page == PageWorkspace || r.state.IsOpen(),
		Details: map[string]string{"stage": stage.String()},
	}

	if !st.Enabled {
		st.Reason = "no project open"
		return st
	}

	switch page {
	case PageCostPredictor:
		if stage < session.StageItemsExtracted {
			st.Reason = "no items extracted yet"
		}
	case PageXAIJustifier:
		if stage < session.StageItemsPriced {
			st.Reason = "no priced items yet"
		}
	case PageReports:
		if stage < session.StageAnalysisPresent {
			st.Reason = "no analysis yet"
		}
	}

	return st
}

func valid(page Page) bool {
	return page >= PageWorkspace && page <= PageReports
}
