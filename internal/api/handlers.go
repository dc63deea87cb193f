package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"netmatch/internal/apperr"
	"netmatch/internal/feedback"
	"netmatch/internal/matching"
	"netmatch/internal/preference"
	"netmatch/internal/ranking"
)

func (h *handler) generateMatches(w http.ResponseWriter, r *http.Request) {
	if h.svc.Matcher == nil {
		unavailable(w, "matching")
		return
	}
	opts := h.defaults
	if err := decode(r, &opts); err != nil {
		writeError(w, err)
		return
	}
	strategy, err := ranking.ParseStrategy(string(opts.Strategy))
	if err != nil {
		writeError(w, apperr.Validation(err.Error()))
		return
	}
	opts.Strategy = strategy
	if err := opts.Validate(); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.svc.Matcher.Generate(r.Context(), userID(r), chi.URLParam(r, "eventID"), opts)
	if err != nil {
		h.logFailure(r, "generate matches", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) recommendations(w http.ResponseWriter, r *http.Request) {
	if h.svc.Matcher == nil {
		unavailable(w, "matching")
		return
	}
	strict, _ := strconv.ParseBool(r.URL.Query().Get("strict"))
	res, err := h.svc.Matcher.Recommendations(r.Context(), userID(r), chi.URLParam(r, "eventID"), strict)
	if err != nil {
		h.logFailure(r, "recommendations", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) eventStats(w http.ResponseWriter, r *http.Request) {
	if h.svc.Matcher == nil {
		unavailable(w, "matching")
		return
	}
	stats, err := h.svc.Matcher.EventStats(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		h.logFailure(r, "event stats", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	if h.svc.Matcher == nil {
		unavailable(w, "matching")
		return
	}
	limit, page := pagination(r)
	minScore, _ := strconv.Atoi(r.URL.Query().Get("min_score"))
	entries, err := h.svc.Matcher.History(r.Context(), userID(r), r.URL.Query().Get("event_id"), matching.HistoryOptions{
		MinScore: minScore,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		h.logFailure(r, "match history", err)
		writeError(w, err)
		return
	}
	w.Header().Set("X-Page", strconv.Itoa(page))
	w.Header().Set("X-Limit", strconv.Itoa(limit))
	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) submitFeedback(w http.ResponseWriter, r *http.Request) {
	if h.svc.Feedback == nil {
		unavailable(w, "feedback")
		return
	}
	var req feedback.SubmitRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Feedback.Submit(r.Context(), userID(r), req)
	if err != nil {
		h.logFailure(r, "submit feedback", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *handler) trackBehavior(w http.ResponseWriter, r *http.Request) {
	if h.svc.Tracker == nil {
		unavailable(w, "tracking")
		return
	}
	var req feedback.TrackRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Tracker.Track(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (h *handler) updateWeights(w http.ResponseWriter, r *http.Request) {
	if h.svc.Feedback == nil {
		unavailable(w, "feedback")
		return
	}
	weights, err := h.svc.Feedback.UpdateWeights(r.Context(), userID(r))
	if err != nil {
		h.logFailure(r, "update weights", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weights)
}

func (h *handler) initColdStart(w http.ResponseWriter, r *http.Request) {
	if h.svc.ColdStart == nil {
		unavailable(w, "cold start")
		return
	}
	cs, err := h.svc.ColdStart.Initialize(r.Context(), userID(r))
	if err != nil {
		h.logFailure(r, "initialize cold start", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *handler) learningMetrics(w http.ResponseWriter, r *http.Request) {
	if h.svc.Reporter == nil {
		unavailable(w, "learning metrics")
		return
	}
	m, err := h.svc.Reporter.Metrics(r.Context(), userID(r), r.URL.Query().Get("event_id"))
	if err != nil {
		h.logFailure(r, "learning metrics", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	if h.svc.Refresher == nil {
		unavailable(w, "scheduler")
		return
	}
	report, err := h.svc.Refresher.RunOnce(r.Context())
	if err != nil {
		h.logFailure(r, "learning refresh", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	if h.svc.Preferences == nil {
		unavailable(w, "preferences")
		return
	}
	prefs, err := h.svc.Preferences.Get(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *handler) putPreferences(w http.ResponseWriter, r *http.Request) {
	if h.svc.Preferences == nil {
		unavailable(w, "preferences")
		return
	}
	var req preference.Request
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	prefs, err := h.svc.Preferences.Update(r.Context(), userID(r), req)
	if err != nil {
		h.logFailure(r, "update preferences", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *handler) deletePreferences(w http.ResponseWriter, r *http.Request) {
	if h.svc.Preferences == nil {
		unavailable(w, "preferences")
		return
	}
	if err := h.svc.Preferences.Delete(r.Context(), userID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// logFailure 只记录 5xx 级别的失败。
func (h *handler) logFailure(r *http.Request, op string, err error) {
	if statusFor(err) < http.StatusInternalServerError {
		return
	}
	h.logger.Error(op+" failed",
		zap.String("user_id", userID(r)),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
}
