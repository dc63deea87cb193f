package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"netmatch/internal/apperr"
	"netmatch/internal/feedback"
	"netmatch/internal/learning"
	"netmatch/internal/matching"
	"netmatch/internal/model"
	"netmatch/internal/preference"
	"netmatch/internal/ranking"
	"netmatch/internal/scheduler"
)

func do(t *testing.T, h http.Handler, method, path, body string, user string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	t.Parallel()

	h := NewHandler(Services{Health: &stubPinger{}}, Config{}, zaptest.NewLogger(t))
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "", "").Code)

	h = NewHandler(Services{Health: &stubPinger{err: errors.New("db closed")}}, Config{}, zaptest.NewLogger(t))
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/health", "", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	h := NewHandler(Services{}, Config{}, zaptest.NewLogger(t))
	w := do(t, h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequiresUserHeader(t *testing.T) {
	t.Parallel()

	m := &stubMatcher{}
	h := NewHandler(Services{Matcher: m}, Config{}, zaptest.NewLogger(t))
	w := do(t, h, http.MethodPost, "/api/events/ev1/matches", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, m.calls)
}

func TestGenerateMatches(t *testing.T) {
	t.Parallel()

	m := &stubMatcher{}
	h := NewHandler(Services{Matcher: m}, Config{}, zaptest.NewLogger(t))

	w := do(t, h, http.MethodPost, "/api/events/ev1/matches", `{"limit":5,"sort_strategy":"diversity"}`, "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, m.calls)
	assert.Equal(t, "alice", m.userID)
	assert.Equal(t, "ev1", m.eventID)
	assert.Equal(t, 5, m.opts.Limit)
	assert.Equal(t, ranking.Diversity, m.opts.Strategy)
	assert.True(t, m.opts.SaveToHistory)

	var res matching.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "bob", res.Matches[0].UserID)

	w = do(t, h, http.MethodPost, "/api/events/ev1/matches", "", "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, matching.DefaultLimit, m.opts.Limit)
	assert.Equal(t, ranking.Balanced, m.opts.Strategy)
}

func TestGenerateMatchesRejectsBadInput(t *testing.T) {
	t.Parallel()

	m := &stubMatcher{}
	h := NewHandler(Services{Matcher: m}, Config{}, zaptest.NewLogger(t))

	for _, body := range []string{
		`{"sort_strategy":"random"}`,
		`{"limit":-1}`,
		`{"limit":201}`,
		`{"filters":{"min_score":101}}`,
		`{"filters":{"min_score":-5}}`,
		`{"unknown":true}`,
		`{not json`,
	} {
		w := do(t, h, http.MethodPost, "/api/events/ev1/matches", body, "alice")
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Zero(t, m.calls)
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	m := &stubMatcher{err: apperr.NotFound("event", "ev9")}
	h := NewHandler(Services{Matcher: m}, Config{}, zaptest.NewLogger(t))
	w := do(t, h, http.MethodGet, "/api/events/ev9/stats", "", "alice")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")

	m.err = apperr.Persistence("list participants", errors.New("disk"))
	w = do(t, h, http.MethodGet, "/api/events/ev1/recommendations?strict=true", "", "alice")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRecommendationsStrictFlag(t *testing.T) {
	t.Parallel()

	m := &stubMatcher{}
	h := NewHandler(Services{Matcher: m}, Config{}, zaptest.NewLogger(t))
	w := do(t, h, http.MethodGet, "/api/events/ev1/recommendations?strict=true", "", "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, m.strict)
}

func TestHistoryPagination(t *testing.T) {
	t.Parallel()

	m := &stubMatcher{}
	h := NewHandler(Services{Matcher: m}, Config{}, zaptest.NewLogger(t))
	w := do(t, h, http.MethodGet, "/api/matches/history?event_id=ev1&limit=500&page=3&min_score=60", "", "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "100", w.Header().Get("X-Limit"))
	assert.Equal(t, "3", w.Header().Get("X-Page"))
	assert.Equal(t, matching.HistoryOptions{MinScore: 60, Limit: 100, Offset: 200}, m.history)
	assert.Equal(t, "ev1", m.eventID)
}

func TestSubmitFeedback(t *testing.T) {
	t.Parallel()

	fb := &stubFeedback{}
	h := NewHandler(Services{Feedback: fb}, Config{}, zaptest.NewLogger(t))

	w := do(t, h, http.MethodPost, "/api/feedback", `{"target_user_id":"bob","type":"MATCH_RATING","rating":5}`, "alice")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "bob", fb.req.TargetUserID)
	require.NotNil(t, fb.req.Rating)
	assert.Equal(t, 5, *fb.req.Rating)

	fb.err = apperr.Validation("rating failed max")
	w = do(t, h, http.MethodPost, "/api/feedback", `{"target_user_id":"bob","type":"MATCH_RATING","rating":9}`, "alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/api/weights/update", "", "alice")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTrackBehavior(t *testing.T) {
	t.Parallel()

	tr := &stubTracker{}
	h := NewHandler(Services{Tracker: tr}, Config{}, zaptest.NewLogger(t))
	body := `{"type":"ATTEND_MEETING","target_user_id":"bob","context":{"meeting":{"duration_minutes":45}}}`
	w := do(t, h, http.MethodPost, "/api/behaviors", body, "alice")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "ATTEND_MEETING", tr.req.Type)
	require.NotNil(t, tr.req.Context.Meeting)
	assert.Equal(t, 45, tr.req.Context.Meeting.DurationMinutes)
}

func TestPreferencesRoutes(t *testing.T) {
	t.Parallel()

	ps := &stubPreferences{}
	h := NewHandler(Services{Preferences: ps}, Config{}, zaptest.NewLogger(t))

	w := do(t, h, http.MethodGet, "/api/preferences", "", "alice")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPut, "/api/preferences", `{"target_positions":["Investor"]}`, "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Investor"}, ps.req.TargetPositions)

	w = do(t, h, http.MethodDelete, "/api/preferences", "", "alice")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUnconfiguredServices(t *testing.T) {
	t.Parallel()

	h := NewHandler(Services{}, Config{}, zaptest.NewLogger(t))
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/events/ev1/matches"},
		{http.MethodPost, "/api/feedback"},
		{http.MethodPost, "/api/cold-start"},
		{http.MethodGet, "/api/learning/metrics"},
		{http.MethodPost, "/api/learning/refresh"},
	} {
		w := do(t, h, tc.method, tc.path, "", "alice")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, tc.path)
	}
}

func TestLearningRoutes(t *testing.T) {
	t.Parallel()

	cs := &stubColdStart{}
	rep := &stubReporter{}
	ref := &stubRefresher{}
	h := NewHandler(Services{ColdStart: cs, Reporter: rep, Refresher: ref}, Config{}, zaptest.NewLogger(t))

	w := do(t, h, http.MethodPost, "/api/cold-start", "", "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"INITIAL"`)

	w = do(t, h, http.MethodGet, "/api/learning/metrics?event_id=ev1", "", "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ev1", rep.eventID)

	w = do(t, h, http.MethodPost, "/api/learning/refresh", "", "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ref.calls)
}

func TestRateLimitPerUser(t *testing.T) {
	t.Parallel()

	h := NewHandler(Services{Matcher: &stubMatcher{}}, Config{RateLimit: 1}, zaptest.NewLogger(t))
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/events/ev1/stats", "", "alice").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/api/events/ev1/stats", "", "alice").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/events/ev1/stats", "", "bob").Code)
}

// --- stubs ---

type stubPinger struct{ err error }

func (p *stubPinger) Ping(context.Context) error { return p.err }

type stubMatcher struct {
	calls   int
	userID  string
	eventID string
	opts    matching.Options
	strict  bool
	history matching.HistoryOptions
	err     error
}

func (m *stubMatcher) Generate(_ context.Context, userID, eventID string, opts matching.Options) (matching.Result, error) {
	m.calls++
	m.userID, m.eventID, m.opts = userID, eventID, opts
	if m.err != nil {
		return matching.Result{}, m.err
	}
	return matching.Result{
		EventID: eventID,
		UserID:  userID,
		Total:   1,
		Matches: []matching.Match{{UserID: "bob", Score: 84, Strength: model.StrengthHigh}},
	}, nil
}

func (m *stubMatcher) Recommendations(_ context.Context, userID, eventID string, strict bool) (matching.Recommendations, error) {
	m.calls++
	m.strict = strict
	if m.err != nil {
		return matching.Recommendations{}, m.err
	}
	return matching.Recommendations{EventID: eventID, UserID: userID, Strict: strict}, nil
}

func (m *stubMatcher) History(_ context.Context, userID, eventID string, opts matching.HistoryOptions) ([]matching.HistoryEntry, error) {
	m.calls++
	m.eventID, m.history = eventID, opts
	return []matching.HistoryEntry{}, m.err
}

func (m *stubMatcher) EventStats(_ context.Context, eventID string) (model.EventMatchStats, error) {
	m.calls++
	if m.err != nil {
		return model.EventMatchStats{}, m.err
	}
	return model.EventMatchStats{EventID: eventID}, nil
}

type stubFeedback struct {
	req feedback.SubmitRequest
	err error
}

func (f *stubFeedback) Submit(_ context.Context, _ string, req feedback.SubmitRequest) (feedback.SubmitResult, error) {
	f.req = req
	if f.err != nil {
		return feedback.SubmitResult{}, f.err
	}
	return feedback.SubmitResult{Feedback: model.Feedback{TargetUserID: req.TargetUserID}}, nil
}

func (f *stubFeedback) UpdateWeights(context.Context, string) (*model.UserWeights, error) {
	return nil, apperr.Persistence("save weights", errors.New("locked"))
}

type stubTracker struct {
	req feedback.TrackRequest
}

func (s *stubTracker) Track(_ context.Context, _ string, req feedback.TrackRequest) (feedback.TrackResult, error) {
	s.req = req
	return feedback.TrackResult{Recorded: apperr.Applied()}, nil
}

type stubColdStart struct{}

func (stubColdStart) Initialize(_ context.Context, userID string) (*model.ColdStartProfile, error) {
	return &model.ColdStartProfile{UserID: userID, Phase: model.PhaseInitial}, nil
}

type stubReporter struct {
	eventID string
}

func (r *stubReporter) Metrics(_ context.Context, userID, eventID string) (learning.Metrics, error) {
	r.eventID = eventID
	return learning.Metrics{UserID: userID, EventID: eventID, Phase: model.PhaseLearning}, nil
}

type stubRefresher struct {
	calls int
}

func (r *stubRefresher) RunOnce(context.Context) (scheduler.Report, error) {
	r.calls++
	return scheduler.Report{Users: 2}, nil
}

type stubPreferences struct {
	saved bool
	req   preference.Request
}

func (p *stubPreferences) Get(_ context.Context, userID string) (*model.Preferences, error) {
	if !p.saved {
		return nil, apperr.NotFound("preferences", userID)
	}
	return &model.Preferences{UserID: userID}, nil
}

func (p *stubPreferences) Update(_ context.Context, userID string, req preference.Request) (model.Preferences, error) {
	p.saved, p.req = true, req
	return model.Preferences{UserID: userID}, nil
}

func (p *stubPreferences) Delete(_ context.Context, userID string) error {
	if !p.saved {
		return apperr.NotFound("preferences", userID)
	}
	p.saved = false
	return nil
}
