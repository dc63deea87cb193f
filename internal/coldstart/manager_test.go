package coldstart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"netmatch/internal/apperr"
	"netmatch/internal/model"
	"netmatch/internal/scoring"
	"netmatch/internal/storage"
)

type stubStore struct {
	profiles  map[string]*model.Profile
	cold      map[string]*model.ColdStartProfile
	behaviors int64
	feedback  int64
	saves     int
	saveErr   error
}

func newStubStore() *stubStore {
	return &stubStore{profiles: map[string]*model.Profile{}, cold: map[string]*model.ColdStartProfile{}}
}

func (s *stubStore) GetProfile(_ context.Context, id string) (*model.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, apperr.NotFound("profile", id)
	}
	return p, nil
}

func (s *stubStore) GetColdStart(_ context.Context, id string) (*model.ColdStartProfile, error) {
	p, ok := s.cold[id]
	if !ok {
		return nil, apperr.NotFound("cold-start profile", id)
	}
	cp := *p
	return &cp, nil
}

func (s *stubStore) SaveColdStart(_ context.Context, p *model.ColdStartProfile) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	cp := *p
	s.cold[p.UserID] = &cp
	return nil
}

func (s *stubStore) CountBehaviors(context.Context, storage.BehaviorQuery) (int64, error) {
	return s.behaviors, nil
}

func (s *stubStore) CountFeedback(context.Context, storage.FeedbackQuery) (int64, error) {
	return s.feedback, nil
}

func newManager(t *testing.T, store *stubStore) *Manager {
	m := NewManager(store, scoring.NewScorer(scoring.DefaultTables()), zaptest.NewLogger(t))
	m.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return m
}

func TestPhaseFor(t *testing.T) {
	t.Parallel()
	assert.Equal(t, model.PhaseInitial, PhaseFor(0, 0))
	assert.Equal(t, model.PhaseInitial, PhaseFor(100, 2))
	assert.Equal(t, model.PhaseLearning, PhaseFor(10, 3))
	assert.Equal(t, model.PhaseAdapting, PhaseFor(25, 8))
	assert.Equal(t, model.PhaseEstablished, PhaseFor(50, 15))
}

func TestPhaseIsMonotonicInCounts(t *testing.T) {
	t.Parallel()
	prev := model.PhaseInitial
	for n := int64(0); n <= 60; n++ {
		p := PhaseFor(n, n/3)
		assert.GreaterOrEqual(t, p.Rank(), prev.Rank(), "n=%d", n)
		prev = p
	}
}

func TestDiversityFactor(t *testing.T) {
	t.Parallel()
	assert.GreaterOrEqual(t, DiversityFactor(model.PhaseInitial, 0), 0.7)
	assert.Equal(t, 0.95, DiversityFactor(model.PhaseInitial, 0))
	assert.InDelta(t, 0.4, DiversityFactor(model.PhaseEstablished, 1), 1e-9)
	assert.InDelta(t, 0.7, DiversityFactor(model.PhaseAdapting, 0.5), 1e-9)
}

func TestActivityAndCompleteness(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, ActivityScore(0, 0))
	assert.InDelta(t, 0.5, ActivityScore(25, 8), 0.05)
	assert.Equal(t, 1.0, ActivityScore(500, 500))

	assert.Equal(t, 0.0, Completeness(&model.Profile{}))
	full := &model.Profile{Industry: "x", Position: "x", Company: "x", Bio: "x",
		Skills: []string{"a"}, Interests: []string{"b"}, BusinessGoals: []string{"c"}}
	assert.Equal(t, 1.0, Completeness(full))
}

func TestEnsureInitializesNewUser(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	store.profiles["u1"] = &model.Profile{
		ID:            "u1",
		Industry:      "Fintech",
		Position:      "Founder & CEO",
		Bio:           "<p>Building <b>payments</b> infrastructure. Payments for everyone.</p>",
		BusinessGoals: []string{"funding"},
	}
	m := newManager(t, store)

	cs, err := m.Ensure(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseInitial, cs.Phase)
	assert.GreaterOrEqual(t, cs.DiversityFactor, 0.7)
	assert.InDelta(t, 4.0/7, cs.ProfileCompleteness, 1e-9)

	prefs := cs.InitialPreferences.Data()
	assert.Equal(t, []string{"Fintech"}, prefs.Industries)
	assert.Contains(t, prefs.Positions, "investor")
	assert.Equal(t, []string{"funding"}, prefs.BusinessGoals)
	assert.Equal(t, "payments", prefs.Keywords[0])
	assert.NotContains(t, prefs.Keywords, "<b>")

	_, err = m.Ensure(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
}

func TestEnsureUnknownUser(t *testing.T) {
	t.Parallel()
	m := newManager(t, newStubStore())
	_, err := m.Ensure(context.Background(), "ghost")
	assert.True(t, apperr.IsNotFound(err))
}

func TestRefreshAdvancesButNeverRegresses(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	store.profiles["u1"] = &model.Profile{ID: "u1"}
	store.cold["u1"] = &model.ColdStartProfile{UserID: "u1", Phase: model.PhaseAdapting}
	m := newManager(t, store)

	cs, err := m.Refresh(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseAdapting, cs.Phase)

	store.behaviors, store.feedback = 60, 20
	cs, err = m.Refresh(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseEstablished, cs.Phase)
	assert.EqualValues(t, 60, cs.BehaviorCount)
}

func TestRefreshSurfacesPersistenceFailure(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	store.profiles["u1"] = &model.Profile{ID: "u1"}
	store.saveErr = errors.New("disk full")
	m := newManager(t, store)

	_, err := m.Refresh(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, apperr.CodePersistence, apperr.CodeOf(err))
}

func TestBioKeywords(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"cloud", "kubernetes"}, bioKeywords("Kubernetes and cloud. Cloud!"))
	assert.Empty(t, bioKeywords(""))
	assert.Equal(t, "hello world", plainText("hello world"))
}
