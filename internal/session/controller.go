// Package session holds the currently open project as editable working
// state. Every change to an open project is written back through the
// repository immediately; there is no separate save action.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/logger"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/project"
)

var ErrProjectNotFound = errors.New("project not found")

// Repository is the subset of project.Repository the controller relies on.
type Repository interface {
	Get(ctx context.Context, id string) (project.Project, bool)
	Create(ctx context.Context, name string) (project.Project, error)
	Save(ctx context.Context, p project.Project) error
	Subscribe(fn func(project.Project))
}

// Controller is owned by a single goroutine, like the UI loop driving it.
type Controller struct {
	repo   Repository
	logger *zap.Logger

	id          string
	name        string
	createdAt   time.Time
	cdcAnalysis *project.CdcAnalysis
	bpuDqeItems []project.LineItem
	pricedItems []project.LineItem
}

func New(repo Repository, log *zap.Logger) *Controller {
	c := &Controller{repo: repo, logger: logger.WithFields(log)}
	c.Reset()
	repo.Subscribe(c.followSaved)
	return c
}

// followSaved keeps the visible name in line with renames made elsewhere.
func (c *Controller) followSaved(p project.Project) {
	if c.id == "" || p.ID != c.id || p.Name == c.name {
		return
	}
	c.logger.Debug("open project renamed", logger.ProjectFields(p.ID, p.Name)...)
	c.name = p.Name
}

// Reset closes the current project without touching stored data.
func (c *Controller) Reset() {
	c.id = ""
	c.name = ""
	c.createdAt = time.Time{}
	c.cdcAnalysis = nil
	c.bpuDqeItems = []project.LineItem{}
	c.pricedItems = []project.LineItem{}
}

// Open loads the project into the session. A missing project resets the
// session and returns ErrProjectNotFound.
func (c *Controller) Open(ctx context.Context, id string) error {
	p, ok := c.repo.Get(ctx, id)
	if !ok {
		c.logger.Error("project not found", logger.ProjectFields(id, "")...)
		c.Reset()
		return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}

	c.load(p)
	c.logger.Info("project opened", logger.ProjectFields(p.ID, p.Name)...)
	return nil
}

// CreateAndOpen creates a new project and makes it the current one.
func (c *Controller) CreateAndOpen(ctx context.Context, name string) (project.Project, error) {
	p, err := c.repo.Create(ctx, name)
	if err != nil {
		return project.Project{}, err
	}
	if err := c.Open(ctx, p.ID); err != nil {
		return project.Project{}, err
	}
	return p, nil
}

// Rename renames any stored project by id. When it is the open project the
// visible name follows through the repository subscription.
func (c *Controller) Rename(ctx context.Context, id, name string) error {
	name, err := project.NormalizeName(name)
	if err != nil {
		return err
	}

	p, ok := c.repo.Get(ctx, id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}

	p.Name = name
	return c.repo.Save(ctx, p)
}

func (c *Controller) load(p project.Project) {
	p = p.Clone()
	c.id = p.ID
	c.name = p.Name
	c.createdAt = p.CreatedAt
	c.cdcAnalysis = p.CdcAnalysis
	c.bpuDqeItems = orEmpty(p.BpuDqeItems)
	c.pricedItems = orEmpty(p.PricedItems)
}

func (c *Controller) IsOpen() bool { return c.id != "" }

func (c *Controller) ProjectID() string { return c.id }

func (c *Controller) Name() string { return c.name }

func (c *Controller) CdcAnalysis() *project.CdcAnalysis {
	if c.cdcAnalysis == nil {
		return nil
	}
	analysis := *c.cdcAnalysis
	return &analysis
}

func (c *Controller) BpuDqeItems() []project.LineItem {
	return project.CloneItems(c.bpuDqeItems)
}

func (c *Controller) PricedItems() []project.LineItem {
	return project.CloneItems(c.pricedItems)
}

// Stage reports how far the open project has progressed.
func (c *Controller) Stage() Stage {
	switch {
	case !c.IsOpen():
		return StageNoProject
	case c.cdcAnalysis == nil:
		return StageProjectOpen
	case len(c.bpuDqeItems) == 0:
		return StageAnalysisPresent
	case len(c.pricedItems) == 0:
		return StageItemsExtracted
	default:
		return StageItemsPriced
	}
}

// Snapshot composes the project currently held by the session.
func (c *Controller) Snapshot() project.Project {
	return project.Project{
		ID:          c.id,
		Name:        c.name,
		CreatedAt:   c.createdAt,
		CdcAnalysis: c.CdcAnalysis(),
		BpuDqeItems: c.BpuDqeItems(),
		PricedItems: c.PricedItems(),
	}
}

// SetName changes the visible name. Empty names are rejected while a project
// is open because they would be persisted.
func (c *Controller) SetName(ctx context.Context, name string) error {
	if !c.IsOpen() {
		c.name = name
		return nil
	}

	normalized, err := project.NormalizeName(name)
	if err != nil {
		return err
	}
	c.name = normalized
	return c.commit(ctx)
}

func (c *Controller) SetCdcAnalysis(ctx context.Context, analysis *project.CdcAnalysis) error {
	if analysis != nil {
		copied := *analysis
		analysis = &copied
	}
	c.cdcAnalysis = analysis
	return c.commit(ctx)
}

// SetBpuDqeItems replaces the extracted schedule. Prices computed for the
// previous schedule are dropped in the same save.
func (c *Controller) SetBpuDqeItems(ctx context.Context, items []project.LineItem) error {
	c.bpuDqeItems = orEmpty(project.CloneItems(items))
	c.pricedItems = []project.LineItem{}
	return c.commit(ctx)
}

func (c *Controller) SetPricedItems(ctx context.Context, items []project.LineItem) error {
	c.pricedItems = orEmpty(project.CloneItems(items))
	return c.commit(ctx)
}

// commit writes the full composed project. Without an open project there is
// nothing to save against.
func (c *Controller) commit(ctx context.Context) error {
	if !c.IsOpen() {
		return nil
	}
	if err := c.repo.Save(ctx, c.Snapshot()); err != nil {
		return fmt.Errorf("save project %s: %w", c.id, err)
	}
	return nil
}

func orEmpty(items []project.LineItem) []project.LineItem {
	if items == nil {
		return []project.LineItem{}
	}
	return items
}
