package project

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/logger"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/store"
)

const idPrefix = "project-"

// Repository provides typed CRUD over a store.Store. Every call reads the
// whole collection and every mutation rewrites it.
type Repository struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
	newID  func() (string, error)

	// mu orders read-modify-write cycles issued from this process.
	mu        sync.Mutex
	listeners []func(Project)
}

type Option func(*Repository)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithIDGenerator overrides project id generation.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(r *Repository) { r.newID = fn }
}

func NewRepository(s store.Store, log *zap.Logger, opts ...Option) *Repository {
	r := &Repository{
		store:  s,
		logger: logger.WithFields(log),
		now:    time.Now,
		newID:  newProjectID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// newProjectID returns a time-ordered id, unique per call even within the same millisecond.
func newProjectID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate project id: %w", err)
	}
	return idPrefix + id.String(), nil
}

// Subscribe registers fn to be called with every successfully saved project.
func (r *Repository) Subscribe(fn func(Project)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// List returns all projects, most recently created first. Projects created at
// the same instant keep their stored order.
func (r *Repository) List(ctx context.Context) []Project {
	projects := r.load(ctx)
	slices.SortStableFunc(projects, func(a, b Project) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return projects
}

// Get returns the project with the given id.
func (r *Repository) Get(ctx context.Context, id string) (Project, bool) {
	for _, p := range r.List(ctx) {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}

// Create stores a new empty project and returns it.
func (r *Repository) Create(ctx context.Context, name string) (Project, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return Project{}, err
	}

	id, err := r.newID()
	if err != nil {
		return Project{}, err
	}

	p := Project{
		ID:          id,
		Name:        name,
		CreatedAt:   r.now().UTC(),
		CdcAnalysis: nil,
		BpuDqeItems: []LineItem{},
		PricedItems: []LineItem{},
	}

	r.mu.Lock()
	projects := r.load(ctx)
	err = r.persist(ctx, append([]Project{p}, projects...))
	r.mu.Unlock()
	if err != nil {
		return Project{}, err
	}

	r.logger.Info("project created", logger.ProjectFields(p.ID, p.Name)...)
	return p.Clone(), nil
}

// Save replaces the stored project with the same id in place, or prepends it
// when no such project exists. CreatedAt is stored in UTC.
func (r *Repository) Save(ctx context.Context, p Project) error {
	p = p.Clone()
	p.CreatedAt = p.CreatedAt.UTC()

	r.mu.Lock()
	projects := r.load(ctx)
	idx := slices.IndexFunc(projects, func(existing Project) bool { return existing.ID == p.ID })
	if idx >= 0 {
		projects[idx] = p
	} else {
		projects = append([]Project{p}, projects...)
	}
	err := r.persist(ctx, projects)
	listeners := slices.Clone(r.listeners)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	r.logger.Debug("project saved", append(logger.ProjectFields(p.ID, p.Name), zap.Bool("inserted", idx < 0))...)

	for _, fn := range listeners {
		fn(p.Clone())
	}
	return nil
}

// Delete removes the project with the given id. Unknown ids are ignored.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects := r.load(ctx)
	before := len(projects)
	kept := slices.DeleteFunc(projects, func(p Project) bool { return p.ID == id })
	if len(kept) == before {
		r.logger.Debug("project to delete not found", logger.ProjectFields(id, "")...)
		return nil
	}
	if err := r.persist(ctx, kept); err != nil {
		return err
	}

	r.logger.Info("project deleted", logger.ProjectFields(id, "")...)
	return nil
}

// load reads the stored collection in stored order. Malformed content is
// treated as an empty collection.
func (r *Repository) load(ctx context.Context) []Project {
	raw, ok := r.store.Read(ctx)
	if !ok {
		return []Project{}
	}

	var projects []Project
	if err := json.Unmarshal([]byte(raw), &projects); err != nil {
		r.logger.Error("failed to parse stored projects, treating as empty", zap.Error(err))
		return []Project{}
	}
	if projects == nil {
		projects = []Project{}
	}
	return projects
}

func (r *Repository) persist(ctx context.Context, projects []Project) error {
	data, err := json.Marshal(projects)
	if err != nil {
		return fmt.Errorf("marshal projects: %w", err)
	}
	if err := r.store.Write(ctx, string(data)); err != nil {
		return fmt.Errorf("persist projects: %w", err)
	}
	return nil
}
