package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/nvandessel/ecosim/internal/analysis"
	"github.com/nvandessel/ecosim/internal/assistant"
	"github.com/nvandessel/ecosim/internal/content"
	"github.com/nvandessel/ecosim/internal/ecosystem"
	"github.com/nvandessel/ecosim/internal/params"
	"github.com/nvandessel/ecosim/internal/sanitize"
	"github.com/nvandessel/ecosim/internal/store"
)

const maxBodyBytes = 1 << 20

// SimulateResponse is the body returned by POST /api/simulate.
type SimulateResponse struct {
	Run    string            `json:"run"`
	Params params.Parameters `json:"params"`
	analysis.Result
}

// QuizItem is a quiz question as shown before answering.
type QuizItem struct {
	Index    int      `json:"index"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	data := indexData{
		Bounds:      params.Bounds(),
		Species:     s.opts.Library.Species(),
		Suggestions: s.opts.Library.Suggestions,
	}
	if err := indexTemplate.Execute(&buf, data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"parameters": s.opts.Defaults,
		"bounds":     params.Bounds(),
	})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	p := s.opts.Defaults
	if err := decodeBody(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := p.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "parameters out of range", Details: joinedMessages(err)})
		return
	}

	run := uuid.NewString()
	initial := p.Initial()
	series := p.Run()
	result := analysis.Analyze(series, initial)

	s.opts.Logger.Debug("simulation run", "run", run, "steps", p.Steps, "balanced", result.Insights.Balanced)
	s.opts.Trace.Log(map[string]any{
		"event":    "simulate",
		"source":   "dashboard",
		"run":      run,
		"steps":    p.Steps,
		"balanced": result.Insights.Balanced,
	})

	s.streamTicks(r.Context(), run, series)

	writeJSON(w, http.StatusOK, SimulateResponse{Run: run, Params: p, Result: result})
}

// streamTicks publishes every step of series to websocket subscribers.
func (s *Server) streamTicks(ctx context.Context, run string, series ecosystem.PopulationSeries) {
	if s.hub.ClientCount() == 0 {
		return
	}
	for i := range series.Len() {
		st := series.At(i)
		ev := TickEvent{
			Run: run, Tick: i + 1, Steps: series.Len(),
			Plants: st.Plants, Herbivores: st.Herbivores, Predators: st.Predators,
		}
		if err := s.hub.Publish(ctx, ev); err != nil {
			s.opts.Logger.Debug("tick stream stopped", "run", run, "tick", i+1, "error", err)
			return
		}
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.opts.Assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "assistant is not configured")
		return
	}

	if !s.opts.AskLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again shortly")
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ans, err := s.opts.Assistant.Ask(r.Context(), req.Question)
	switch {
	case errors.Is(err, assistant.ErrEmptyQuestion):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusBadGateway, "Error: "+err.Error())
	default:
		writeJSON(w, http.StatusOK, ans)
	}
}

func (s *Server) handleTips(w http.ResponseWriter, r *http.Request) {
	species := r.URL.Query().Get("species")
	if species == "" {
		writeJSON(w, http.StatusOK, map[string]any{"species": s.opts.Library.Species()})
		return
	}

	guide, ok := s.opts.Library.Tips(species)
	if !ok {
		writeError(w, http.StatusNotFound, content.NoGuideMessage)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"species":    guide.Name,
		"heading":    guide.Heading(),
		"strategies": guide.Strategies,
		"markdown":   guide.Markdown(),
	})
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	questions := s.opts.Library.Questions()
	items := make([]QuizItem, len(questions))
	for i, q := range questions {
		items[i] = QuizItem{Index: i + 1, Question: q.Text, Options: q.Options}
	}

	score, err := s.opts.Store.QuizScore(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"questions": items, "score": score})
}

func (s *Server) handleQuizAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := s.opts.Library.Check(req.Question, req.Answer)
	switch {
	case errors.Is(err, content.ErrUnknownQuestion):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if _, err := s.opts.Store.RecordQuizAttempt(ctx, store.QuizAttempt{
		Question: res.Question, Answer: res.Given, Correct: res.Correct,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	score, err := s.opts.Store.QuizScore(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.opts.Trace.Log(map[string]any{"event": "quiz_answer", "question": res.Question, "correct": res.Correct})

	writeJSON(w, http.StatusOK, map[string]any{
		"result":  res,
		"message": res.Message(),
		"score":   score,
	})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	fb, err := s.opts.Store.AddFeedback(r.Context(), sanitize.Feedback(req.Message))
	if errors.Is(err, store.ErrInvalid) {
		writeError(w, http.StatusBadRequest, "feedback message is empty")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": fb.ID, "message": content.FeedbackThanks})
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Library.Resources())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// joinedMessages flattens an errors.Join result into one message per error.
func joinedMessages(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		errs := joined.Unwrap()
		out := make([]string, len(errs))
		for i, e := range errs {
			out[i] = e.Error()
		}
		return out
	}
	return []string{err.Error()}
}

// clientKey identifies the caller for rate limiting.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
