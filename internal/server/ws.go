package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/kalini-labs/lexio/internal/session"
	"github.com/kalini-labs/lexio/pkg/provider/signal/push"
)

// Frame types exchanged on /v1/sessions/{user}/stream. The browser sends
// attempt and advance frames; the server answers every frame in order, so the
// socket itself enforces the strict utterance ordering the scheduler needs.
const (
	frameAttempt = "attempt"
	frameAdvance = "advance"

	frameResult    = "result"
	frameRetestDue = "retest_due"
	frameError     = "error"
)

// ingestFrame is a client-to-server message.
type ingestFrame struct {
	Type     string       `json:"type"`
	Word     string       `json:"word,omitempty"`
	Sentence sentenceJSON `json:"sentence,omitempty"`
	Signal   signalJSON   `json:"signal,omitempty"`
}

// resultFrame is a server-to-client message.
type resultFrame struct {
	Type           string   `json:"type"`
	Word           string   `json:"word,omitempty"`
	Outcome        string   `json:"outcome,omitempty"`
	PendingRetries []string `json:"pending_retries,omitempty"`
	Words          []string `json:"words,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// handleStream upgrades to a WebSocket and scores attempt signals as they
// arrive. Signals cross into the scheduler through the same [signal.Source]
// boundary that non-browser capture frontends use: each attempt frame is
// pushed into a per-connection [push.Source] and captured back out before
// scoring.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.PathValue("user"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	src := push.New(1)
	defer src.Close()

	log := s.log.With("session_id", sess.ID, "user", sess.User)
	log.Info("signal stream opened")

	ctx := r.Context()
	for {
		var frame ingestFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway ||
				errors.Is(err, context.Canceled) {
				log.Info("signal stream closed")
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			log.Warn("signal stream read failed", "err", err)
			return
		}

		switch frame.Type {
		case frameAttempt:
			if err := s.scoreFrame(ctx, conn, sess, src, frame); err != nil {
				return
			}
		case frameAdvance:
			due := sess.AdvanceSentence()
			if err := wsjson.Write(ctx, conn, resultFrame{Type: frameRetestDue, Words: due}); err != nil {
				return
			}
		default:
			reply := resultFrame{Type: frameError, Error: "unknown frame type: " + frame.Type}
			if err := wsjson.Write(ctx, conn, reply); err != nil {
				return
			}
		}
	}
}

// scoreFrame routes one attempt frame through the signal source and the
// session, and writes the outcome back. A scoring error is reported in-band;
// only write failures tear the connection down.
func (s *Server) scoreFrame(ctx context.Context, conn *websocket.Conn, sess *session.Session, src *push.Source, frame ingestFrame) error {
	sentence := frame.Sentence.toContext()

	if err := src.Push(ctx, frame.Signal.toSignal()); err != nil {
		return wsjson.Write(ctx, conn, resultFrame{Type: frameError, Word: frame.Word, Error: err.Error()})
	}
	sig, err := src.Capture(ctx, frame.Word, sentence)
	if err != nil {
		return wsjson.Write(ctx, conn, resultFrame{Type: frameError, Word: frame.Word, Error: err.Error()})
	}

	outcome, err := sess.ScoreAttempt(ctx, frame.Word, sig, sentence)
	if err != nil {
		return wsjson.Write(ctx, conn, resultFrame{Type: frameError, Word: frame.Word, Error: err.Error()})
	}
	return wsjson.Write(ctx, conn, resultFrame{
		Type:           frameResult,
		Word:           frame.Word,
		Outcome:        string(outcome),
		PendingRetries: sess.PendingRetries(),
	})
}
