package server

import (
	"encoding/json"
	"net/http"

	"github.com/kalini-labs/lexio/internal/session"
	"github.com/kalini-labs/lexio/pkg/provider/passage"
	"github.com/kalini-labs/lexio/pkg/provider/signal"
)

// ── Wire types ────────────────────────────────────────────────────────────────

type openRequest struct {
	User     string `json:"user"`
	Language string `json:"language"`
	Grade    int    `json:"grade"`
}

type openResponse struct {
	SessionID string `json:"session_id"`
	User      string `json:"user"`
	Language  string `json:"language"`
	Grade     int    `json:"grade"`
}

type placementJSON struct {
	Word            string `json:"word"`
	Language        string `json:"language"`
	SentenceSlot    int    `json:"sentence_slot"`
	AvoidTemplateID string `json:"avoid_template_id,omitempty"`
	HighlightStyle  string `json:"highlight_style,omitempty"`
}

type planResponse struct {
	Placements    []placementJSON      `json:"placements"`
	Lessons       []session.LessonPlan `json:"lessons,omitempty"`
	DeferredCount int                  `json:"deferred_count"`
}

type passageRequest struct {
	TopicHint  string          `json:"topic_hint"`
	Placements []placementJSON `json:"placements"`
}

type passageResponse struct {
	SubjectImageHint string   `json:"subject_image_hint"`
	Sentences        []string `json:"sentences"`
}

type signalJSON struct {
	Transcript       string    `json:"transcript"`
	ASRConfidence    float64   `json:"asr_confidence"`
	SNRDb            float64   `json:"snr_db"`
	TimingPercentile float64   `json:"timing_percentile"`
	PhonemeQualities []float64 `json:"phoneme_qualities,omitempty"`
}

type sentenceJSON struct {
	TemplateID    string `json:"template_id"`
	SentenceIndex int    `json:"sentence_index"`
	Text          string `json:"text,omitempty"`
}

type attemptRequest struct {
	Word     string       `json:"word"`
	Sentence sentenceJSON `json:"sentence"`
	Signal   signalJSON   `json:"signal"`
}

type attemptResponse struct {
	Word           string   `json:"word"`
	Outcome        string   `json:"outcome"`
	PendingRetries []string `json:"pending_retries,omitempty"`
}

type advanceResponse struct {
	DueRetests []string `json:"due_retests"`
}

type summaryJSON struct {
	Attempts   int      `json:"attempts"`
	Promotions []string `json:"promotions,omitempty"`
	Demotions  []string `json:"demotions,omitempty"`
}

type closeResponse struct {
	Flushed int         `json:"flushed"`
	Summary summaryJSON `json:"summary"`
}

func placementsToWire(ps []passage.PlacementRequest) []placementJSON {
	out := make([]placementJSON, len(ps))
	for i, p := range ps {
		out[i] = placementJSON{
			Word:            p.Word,
			Language:        p.Language,
			SentenceSlot:    p.SentenceSlot,
			AvoidTemplateID: p.AvoidTemplateID,
			HighlightStyle:  p.HighlightStyle,
		}
	}
	return out
}

func placementsFromWire(ps []placementJSON) []passage.PlacementRequest {
	out := make([]passage.PlacementRequest, len(ps))
	for i, p := range ps {
		out[i] = passage.PlacementRequest{
			Word:            p.Word,
			Language:        p.Language,
			SentenceSlot:    p.SentenceSlot,
			AvoidTemplateID: p.AvoidTemplateID,
			HighlightStyle:  p.HighlightStyle,
		}
	}
	return out
}

func (s signalJSON) toSignal() signal.AttemptSignal {
	return signal.AttemptSignal{
		Transcript:       s.Transcript,
		ASRConfidence:    s.ASRConfidence,
		SNRDb:            s.SNRDb,
		TimingPercentile: s.TimingPercentile,
		PhonemeQualities: s.PhonemeQualities,
	}
}

func (s sentenceJSON) toContext() signal.SentenceContext {
	return signal.SentenceContext{
		TemplateID:    s.TemplateID,
		SentenceIndex: s.SentenceIndex,
		Text:          s.Text,
	}
}

// ── Handlers ──────────────────────────────────────────────────────────────────

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.User == "" || req.Language == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user and language are required"})
		return
	}

	sess, err := s.manager.Open(r.Context(), req.User, req.Language, req.Grade)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, openResponse{
		SessionID: sess.ID,
		User:      sess.User,
		Language:  sess.Language,
		Grade:     sess.Grade,
	})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.PathValue("user"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	plan, err := sess.PlanSession(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, planResponse{
		Placements:    placementsToWire(plan.Placements),
		Lessons:       plan.Lessons,
		DeferredCount: plan.DeferredCount,
	})
}

func (s *Server) handlePassage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.PathValue("user"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req passageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	p, err := sess.GeneratePassage(r.Context(), placementsFromWire(req.Placements), req.TopicHint)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, passageResponse{
		SubjectImageHint: p.SubjectImageHint,
		Sentences:        p.Sentences,
	})
}

func (s *Server) handleAttempt(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.PathValue("user"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req attemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Word == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "word is required"})
		return
	}

	outcome, err := sess.ScoreAttempt(r.Context(), req.Word, req.Signal.toSignal(), req.Sentence.toContext())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, attemptResponse{
		Word:           req.Word,
		Outcome:        string(outcome),
		PendingRetries: sess.PendingRetries(),
	})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.PathValue("user"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	due := sess.AdvanceSentence()
	s.writeJSON(w, http.StatusOK, advanceResponse{DueRetests: due})
}

func (s *Server) handleLessonComplete(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.PathValue("user"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := sess.CompleteLesson(r.Context(), r.PathValue("word")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	sess, err := s.manager.Get(user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	summary := sess.Summary()

	flushed, err := s.manager.Close(r.Context(), user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, closeResponse{
		Flushed: flushed,
		Summary: summaryJSON{
			Attempts:   summary.Attempts,
			Promotions: summary.Promotions,
			Demotions:  summary.Demotions,
		},
	})
}
