package project

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/store"
)

type failingStore struct {
	store.Store
	err error
}

func (f *failingStore) Write(context.Context, string) error { return f.err }

func fixedClock(start time.Time, step time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		t := current
		current = current.Add(step)
		return t
	}
}

func price(v float64) *float64 { return &v }

func TestCreateAndDeleteScenario(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(), nil)

	p, err := repo.Create(ctx, "  Lot 3 ")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Lot 3", p.Name)
	assert.Nil(t, p.CdcAnalysis)
	assert.NotNil(t, p.BpuDqeItems)
	assert.Empty(t, p.BpuDqeItems)
	assert.Empty(t, p.PricedItems)
	assert.False(t, p.CreatedAt.IsZero())

	projects := repo.List(ctx)
	require.Len(t, projects, 1)
	assert.Equal(t, p, projects[0])

	require.NoError(t, repo.Delete(ctx, p.ID))
	assert.Empty(t, repo.List(ctx))
}

func TestListMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(), nil)

	a, err := repo.Create(ctx, "A")
	require.NoError(t, err)
	b, err := repo.Create(ctx, "B")
	require.NoError(t, err)

	projects := repo.List(ctx)
	require.Len(t, projects, 2)
	assert.Equal(t, b.ID, projects[0].ID)
	assert.Equal(t, a.ID, projects[1].ID)
}

func TestListSortsByCreatedAtNotStoredOrder(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	repo := NewRepository(s, nil)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	// stored oldest first on purpose
	stored := []Project{
		{ID: "old", Name: "old", CreatedAt: base},
		{ID: "tie-1", Name: "tie-1", CreatedAt: base.Add(time.Hour)},
		{ID: "tie-2", Name: "tie-2", CreatedAt: base.Add(time.Hour)},
		{ID: "new", Name: "new", CreatedAt: base.Add(2 * time.Hour)},
	}
	data, err := json.Marshal(stored)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, string(data)))

	var ids []string
	for _, p := range repo.List(ctx) {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"new", "tie-1", "tie-2", "old"}, ids)
}

func TestCreateGeneratesUniqueIDs(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := NewRepository(store.NewMemory(), nil, WithClock(func() time.Time { return now }))

	seen := make(map[string]struct{})
	for range 50 {
		p, err := repo.Create(ctx, "same instant")
		require.NoError(t, err)
		_, dup := seen[p.ID]
		require.False(t, dup, "duplicate id %s", p.ID)
		seen[p.ID] = struct{}{}
	}
	assert.Len(t, repo.List(ctx), 50)
}

func TestCreateRejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	repo := NewRepository(s, nil)

	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := repo.Create(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidName)
	}

	_, ok := s.Read(ctx)
	assert.False(t, ok, "validation failures must not touch the store")
}

func TestSaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(), nil)

	p := Project{
		ID:        "project-42",
		Name:      "Travaux de voirie",
		CreatedAt: time.Date(2024, 5, 2, 8, 30, 15, 123456789, time.UTC),
		CdcAnalysis: &CdcAnalysis{
			Synthesis:      "## Synthèse",
			LegalAudit:     "- clause",
			TechnicalBrief: "**plan**",
		},
		BpuDqeItems: []LineItem{
			{ID: "item-0", Number: "1.1", Designation: "Béton", Unit: "m3", Quantity: TextQuantity("12,5")},
			{ID: "item-1", Number: "1.2", Designation: "Acier", Unit: "kg", Quantity: NumericQuantity(300)},
		},
		PricedItems: []LineItem{
			{ID: "item-0", Number: "1.1", Designation: "Béton", Unit: "m3", Quantity: TextQuantity("12,5"), UnitPrice: price(100.5), TotalPrice: price(1256.25)},
		},
	}

	require.NoError(t, repo.Save(ctx, p))

	got, ok := repo.Get(ctx, p.ID)
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestSaveStoresCreatedAtInUTC(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(), nil)

	for _, createdAt := range []time.Time{
		time.Date(2024, 5, 2, 10, 30, 15, 500, time.FixedZone("CET", 3600)),
		time.Now(),
	} {
		p := Project{ID: "project-tz", Name: "Lot Alger", CreatedAt: createdAt, BpuDqeItems: []LineItem{}, PricedItems: []LineItem{}}
		require.NoError(t, repo.Save(ctx, p))

		got, ok := repo.Get(ctx, p.ID)
		require.True(t, ok)

		expect := p.Clone()
		expect.CreatedAt = createdAt.UTC()
		assert.Equal(t, expect, got)
		assert.True(t, createdAt.Equal(got.CreatedAt))
	}
}

func TestSaveUpdateOrInsert(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(), nil)

	existing, err := repo.Create(ctx, "existing")
	require.NoError(t, err)

	stranger := Project{ID: "never-created", Name: "stranger", CreatedAt: time.Now().UTC().Add(-time.Hour)}
	require.NoError(t, repo.Save(ctx, stranger))
	assert.Len(t, repo.List(ctx), 2)

	existing.Name = "renamed"
	existing.BpuDqeItems = []LineItem{{ID: "i1", Quantity: NumericQuantity(1)}}
	require.NoError(t, repo.Save(ctx, existing))

	assert.Len(t, repo.List(ctx), 2)
	got, ok := repo.Get(ctx, existing.ID)
	require.True(t, ok)
	assert.Equal(t, "renamed", got.Name)
	assert.Len(t, got.BpuDqeItems, 1)
}

func TestSaveKeepsStoredPosition(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	repo := NewRepository(s, nil)

	first, err := repo.Create(ctx, "first")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "second")
	require.NoError(t, err)

	first.Name = "first renamed"
	require.NoError(t, repo.Save(ctx, first))

	raw, ok := s.Read(ctx)
	require.True(t, ok)
	var stored []Project
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	require.Len(t, stored, 2)
	assert.Equal(t, "second", stored[0].Name)
	assert.Equal(t, "first renamed", stored[1].Name)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	repo := NewRepository(s, nil)

	keep, err := repo.Create(ctx, "keep")
	require.NoError(t, err)
	drop, err := repo.Create(ctx, "drop")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, drop.ID))
	once, _ := s.Read(ctx)

	require.NoError(t, repo.Delete(ctx, drop.ID))
	twice, _ := s.Read(ctx)
	assert.Equal(t, once, twice)

	require.NoError(t, repo.Delete(ctx, "does-not-exist"))
	projects := repo.List(ctx)
	require.Len(t, projects, 1)
	assert.Equal(t, keep.ID, projects[0].ID)
}

func TestGetMissingProject(t *testing.T) {
	repo := NewRepository(store.NewMemory(), nil)

	_, ok := repo.Get(context.Background(), "does-not-exist")
	assert.False(t, ok)
}

func TestMalformedStoreIsEmpty(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	require.NoError(t, s.Write(ctx, `{"not": "a list"`))

	core, observed := observer.New(zapcore.ErrorLevel)
	repo := NewRepository(s, zap.New(core))

	assert.Empty(t, repo.List(ctx))
	assert.Equal(t, 1, observed.FilterMessage("failed to parse stored projects, treating as empty").Len())

	// the next write replaces the unreadable blob
	_, err := repo.Create(ctx, "fresh")
	require.NoError(t, err)
	assert.Len(t, repo.List(ctx), 1)
}

func TestWriteFailureIsReported(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	repo := NewRepository(&failingStore{Store: store.NewMemory(), err: boom}, nil)

	_, err := repo.Create(ctx, "doomed")
	assert.ErrorIs(t, err, boom)

	err = repo.Save(ctx, Project{ID: "x", Name: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestSubscribersSeeSavedProjects(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(), nil)

	var seen []string
	repo.Subscribe(func(p Project) { seen = append(seen, p.Name) })

	p, err := repo.Create(ctx, "A")
	require.NoError(t, err)
	p.Name = "B"
	require.NoError(t, repo.Save(ctx, p))

	assert.Equal(t, []string{"B"}, seen)
}

func TestReturnedProjectsAreCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemory(), nil)

	p := Project{ID: "p", Name: "p", CreatedAt: time.Now().UTC(), BpuDqeItems: []LineItem{{ID: "a", UnitPrice: price(1)}}}
	require.NoError(t, repo.Save(ctx, p))

	*p.BpuDqeItems[0].UnitPrice = 99
	got, ok := repo.Get(ctx, "p")
	require.True(t, ok)
	assert.Equal(t, 1.0, *got.BpuDqeItems[0].UnitPrice)
}
