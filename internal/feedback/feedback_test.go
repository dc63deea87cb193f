package feedback

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"

	"netmatch/internal/apperr"
	"netmatch/internal/model"
	"netmatch/internal/storage"
)

type stubStore struct {
	feedback    []model.Feedback
	behaviors   []model.BehaviorEvent
	behaviorErr error
	feedbackErr error
}

func (s *stubStore) AppendBehavior(_ context.Context, b *model.BehaviorEvent) error {
	if s.behaviorErr != nil {
		return s.behaviorErr
	}
	s.behaviors = append(s.behaviors, *b)
	return nil
}

func (s *stubStore) AppendFeedback(_ context.Context, f *model.Feedback) error {
	if s.feedbackErr != nil {
		return s.feedbackErr
	}
	s.feedback = append(s.feedback, *f)
	return nil
}

func (s *stubStore) CountFeedback(_ context.Context, q storage.FeedbackQuery) (int64, error) {
	var n int64
	for _, f := range s.feedback {
		if f.UserID != q.UserID {
			continue
		}
		if q.Implicit != nil && f.IsImplicit != *q.Implicit {
			continue
		}
		n++
	}
	return n, nil
}

func (s *stubStore) ListFeedback(_ context.Context, q storage.FeedbackQuery) ([]model.Feedback, error) {
	var out []model.Feedback
	for _, f := range s.feedback {
		if f.UserID == q.UserID {
			out = append(out, f)
		}
	}
	return out, nil
}

type stubAdapter struct {
	calls atomic.Int32
	err   error
}

func (a *stubAdapter) Adapt(_ context.Context, userID string) (*model.UserWeights, error) {
	a.calls.Add(1)
	if a.err != nil {
		return nil, a.err
	}
	w := model.NewUserWeights(userID)
	return &w, nil
}

type stubInsights struct{ calls atomic.Int32 }

func (g *stubInsights) Generate(context.Context, string) ([]model.AlgorithmInsight, error) {
	g.calls.Add(1)
	return nil, nil
}

type stubColdStart struct{ calls atomic.Int32 }

func (c *stubColdStart) Refresh(context.Context, string) (*model.ColdStartProfile, error) {
	c.calls.Add(1)
	return &model.ColdStartProfile{}, nil
}

func rating(target string, r int) SubmitRequest {
	return SubmitRequest{TargetUserID: target, Type: "match_rating", Rating: &r}
}

func TestSubmitTriggersLearningEveryFifthFeedback(t *testing.T) {
	t.Parallel()
	store := &stubStore{}
	adapter, insights, cold := &stubAdapter{}, &stubInsights{}, &stubColdStart{}
	svc := NewService(store, adapter, insights, cold, Config{}, zaptest.NewLogger(t))
	ctx := context.Background()

	// 隐式反馈不计入触发阈值
	store.feedback = append(store.feedback, model.Feedback{UserID: "u1", IsImplicit: true})

	for i := 1; i <= 4; i++ {
		res, err := svc.Submit(ctx, "u1", rating("u2", 4))
		require.NoError(t, err)
		assert.False(t, res.Triggered)
	}
	assert.EqualValues(t, 0, adapter.calls.Load())
	assert.EqualValues(t, 0, insights.calls.Load())

	res, err := svc.Submit(ctx, "u1", rating("u2", 5))
	require.NoError(t, err)
	assert.True(t, res.Triggered)
	assert.True(t, res.Weights.IsApplied())
	assert.True(t, res.Insights.IsApplied())
	assert.EqualValues(t, 1, adapter.calls.Load())
	assert.EqualValues(t, 1, insights.calls.Load())
	assert.EqualValues(t, 5, cold.calls.Load())
}

func TestSubmitDegradesWhenAdapterFails(t *testing.T) {
	t.Parallel()
	store := &stubStore{}
	adapter := &stubAdapter{err: errors.New("db locked")}
	svc := NewService(store, adapter, nil, nil, Config{AdaptEvery: 1}, zaptest.NewLogger(t))

	res, err := svc.Submit(context.Background(), "u1", rating("u2", 3))
	require.NoError(t, err)
	assert.True(t, res.Weights.IsDegraded())
	assert.Equal(t, apperr.StatusSkipped, res.Insights.Status)
	assert.Equal(t, apperr.StatusSkipped, res.ColdStart.Status)
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	store := &stubStore{}
	svc := NewService(store, nil, nil, nil, Config{}, zaptest.NewLogger(t))
	ctx := context.Background()

	bad := 6
	cases := []SubmitRequest{
		{Type: "MATCH_RATING"},
		{TargetUserID: "u2", Type: "LIKE"},
		{TargetUserID: "u2", Type: "MATCH_RATING", Rating: &bad},
		{TargetUserID: "u2", Type: "MATCH_RATING", DimensionRatings: map[string]int{"industry": 0}},
		{TargetUserID: "u1", Type: "MATCH_RATING"},
	}
	for i, req := range cases {
		_, err := svc.Submit(ctx, "u1", req)
		require.Error(t, err, "case %d", i)
		assert.True(t, apperr.IsValidation(err), "case %d: %v", i, err)
	}
	assert.Empty(t, store.feedback)
}

func TestSubmitSurfacesStoreError(t *testing.T) {
	t.Parallel()
	store := &stubStore{feedbackErr: errors.New("boom")}
	svc := NewService(store, nil, nil, nil, Config{}, zaptest.NewLogger(t))

	_, err := svc.Submit(context.Background(), "u1", rating("u2", 4))
	require.Error(t, err)
	assert.Equal(t, apperr.CodePersistence, apperr.CodeOf(err))
}

func TestTrackDerivesImplicitFeedback(t *testing.T) {
	t.Parallel()
	store := &stubStore{}
	tracker := NewTracker(store, zaptest.NewLogger(t))
	ctx := context.Background()

	res, err := tracker.Track(ctx, "u1", TrackRequest{Type: "ATTEND_MEETING", TargetUserID: "u2",
		Context: model.BehaviorContext{Meeting: &model.MeetingContext{DurationMinutes: 20}}})
	require.NoError(t, err)
	assert.True(t, res.Recorded.IsApplied())
	assert.True(t, res.Implicit.IsApplied())
	require.Len(t, store.feedback, 1)
	f := store.feedback[0]
	assert.Equal(t, model.FeedbackMeetingCompleted, f.Type)
	assert.Equal(t, 4, f.RatingValue())
	assert.Equal(t, 0.8, f.Confidence)
	assert.True(t, f.IsImplicit)
	assert.Equal(t, model.ContextMeeting, store.behaviors[0].Context.Data().Kind)

	res, err = tracker.Track(ctx, "u1", TrackRequest{Type: "view_profile", TargetUserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, apperr.StatusSkipped, res.Implicit.Status)
	assert.Len(t, store.feedback, 1)
}

func TestTrackSwallowsStoreFailures(t *testing.T) {
	t.Parallel()
	store := &stubStore{behaviorErr: errors.New("disk full")}
	tracker := NewTracker(store, zaptest.NewLogger(t))

	res, err := tracker.Track(context.Background(), "u1", TrackRequest{Type: "SEND_CONNECTION", TargetUserID: "u2"})
	require.NoError(t, err)
	assert.True(t, res.Recorded.IsDegraded())
	assert.Empty(t, store.feedback)

	store.behaviorErr = nil
	store.feedbackErr = errors.New("disk full")
	res, err = tracker.Track(context.Background(), "u1", TrackRequest{Type: "SEND_CONNECTION", TargetUserID: "u2"})
	require.NoError(t, err)
	assert.True(t, res.Recorded.IsApplied())
	assert.True(t, res.Implicit.IsDegraded())
}

func TestTrackRejectsInvalidRequests(t *testing.T) {
	t.Parallel()
	store := &stubStore{}
	tracker := NewTracker(store, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := tracker.Track(ctx, "u1", TrackRequest{Type: "DANCE"})
	assert.True(t, apperr.IsValidation(err))

	_, err = tracker.Track(ctx, "u1", TrackRequest{Type: "SEARCH",
		Context: model.BehaviorContext{Meeting: &model.MeetingContext{}}})
	assert.True(t, apperr.IsValidation(err))

	_, err = tracker.Track(ctx, "", TrackRequest{Type: "SEARCH"})
	assert.True(t, apperr.IsValidation(err))

	for _, bt := range []string{"SEND_CONNECTION", "ACCEPT_CONNECTION", "REJECT_CONNECTION", "START_CONVERSATION", "SCHEDULE_MEETING", "ATTEND_MEETING"} {
		_, err = tracker.Track(ctx, "u1", TrackRequest{Type: bt})
		assert.True(t, apperr.IsValidation(err), bt)
	}
	assert.Empty(t, store.behaviors)
	assert.Empty(t, store.feedback)
}

func TestImplicitMapping(t *testing.T) {
	t.Parallel()
	cases := []struct {
		bt         model.BehaviorType
		rating     int
		confidence float64
	}{
		{model.BehaviorSendConnection, 4, 0.7},
		{model.BehaviorAcceptConnection, 5, 0.9},
		{model.BehaviorRejectConnection, 2, 0.6},
		{model.BehaviorAttendMeeting, 3, 0.8},
	}
	for _, tc := range cases {
		f, ok := Implicit(model.BehaviorEvent{Type: tc.bt, TargetUserID: "u2"})
		require.True(t, ok, tc.bt)
		assert.Equal(t, tc.rating, f.RatingValue(), tc.bt)
		assert.Equal(t, tc.confidence, f.Confidence, tc.bt)
	}
	_, ok := Implicit(model.BehaviorEvent{Type: model.BehaviorSort, TargetUserID: "u2"})
	assert.False(t, ok)
	_, ok = Implicit(model.BehaviorEvent{Type: model.BehaviorAcceptConnection})
	assert.False(t, ok)

	assert.Equal(t, 5, MeetingRating(30))
	assert.Equal(t, 4, MeetingRating(15))
	assert.Equal(t, 3, MeetingRating(14))
}

func TestAnalyze(t *testing.T) {
	t.Parallel()
	records := []model.Feedback{
		{Type: model.FeedbackMatchRating, Rating: model.IntPtr(5), Confidence: 1,
			DimensionRatings: datatypes.NewJSONType(model.DimensionRatings{"Industry": 5, "goals": 3, "vibes": 4})},
		{Type: model.FeedbackMatchRating, Rating: model.IntPtr(1), Confidence: 0.5,
			DimensionRatings: datatypes.NewJSONType(model.DimensionRatings{"industry": 3})},
		{Type: model.FeedbackConnectionAccepted, Rating: model.IntPtr(5), IsImplicit: true},
	}
	st := Analyze(records)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.Implicit)
	assert.Equal(t, 2, st.Positive)
	assert.Equal(t, 1, st.Negative)
	assert.InDelta(t, 11.0/3, st.AverageRating, 1e-9)
	assert.InDelta(t, 5.5/1.5, st.WeightedRating, 1e-9)
	assert.Equal(t, 4.0, st.DimensionAverages[model.DimIndustry])
	assert.Equal(t, 3.0, st.DimensionAverages[model.DimBusinessGoal])
	assert.Len(t, st.DimensionAverages, 2)
	assert.Equal(t, 2, RatedWithDimensions(records))
}

func TestConnectionSuccessRate(t *testing.T) {
	t.Parallel()
	_, ok := ConnectionSuccessRate(nil)
	assert.False(t, ok)

	rate, ok := ConnectionSuccessRate([]model.BehaviorEvent{
		{Type: model.BehaviorAcceptConnection},
		{Type: model.BehaviorAcceptConnection},
		{Type: model.BehaviorAcceptConnection},
		{Type: model.BehaviorRejectConnection},
		{Type: model.BehaviorViewProfile},
	})
	assert.True(t, ok)
	assert.Equal(t, 0.75, rate)
}
