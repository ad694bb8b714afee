// internal/httpserver/routes_play.go
//
// HTTP routes for playing rounds:
//   - POST /play/{mode}/new       → start today's round (or a practice round)
//   - GET  /play/{roundId}        → current state of a round
//   - POST /play/guess            → submit a guess
//   - POST /play/reveal           → reveal one more unit (on-demand modes)
//   - POST /play/again            → next round of the same mode
//   - GET  /play/{roundId}/share.png → QR code of the share text
//   - GET  /play/{roundId}/clock  → websocket of the remaining time
//
// Every handler that touches a session holds the entry lock for the whole
// read-modify-write, and so does the countdown's expiry callback.
// When a round ends, stats are recorded once and the daily result is stored.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flickle/internal/clock"
	"github.com/robalobadob/flickle/internal/content"
	"github.com/robalobadob/flickle/internal/daily"
	"github.com/robalobadob/flickle/internal/game"
	"github.com/robalobadob/flickle/internal/share"
	"github.com/robalobadob/flickle/internal/stats"
	"github.com/robalobadob/flickle/internal/store"
)

const qrSize = 320

// mountPlay registers the JSON /play routes.
func (s *Server) mountPlay(r chi.Router) {
	r.Post("/play/{mode}/new", s.handleNew)
	r.Post("/play/guess", s.handleGuess)
	r.Post("/play/reveal", s.handleReveal)
	r.Post("/play/again", s.handleAgain)
	r.Get("/play/{roundId}", s.handleRound)
}

// roundView is the client's view of a round. The answer is only included
// once the round is over.
type roundView struct {
	RoundID           string                  `json:"roundId"`
	Mode              string                  `json:"mode"`
	Title             string                  `json:"title"`
	Date              string                  `json:"date"`
	Number            int                     `json:"number"`
	Round             int                     `json:"round"`
	Prompt            string                  `json:"prompt,omitempty"`
	Caption           string                  `json:"caption,omitempty"`
	Media             string                  `json:"media,omitempty"`
	Kind              game.AnswerKind         `json:"kind"`
	Length            int                     `json:"length,omitempty"`
	Tiles             int                     `json:"tiles,omitempty"`
	Budget            int                     `json:"budget"`
	Policy            string                  `json:"policy"`
	AttemptsRemaining int                     `json:"attemptsRemaining"`
	Revealed          []content.Unit          `json:"revealed"`
	Hidden            int                     `json:"hidden"`
	Rows              [][]game.Verdict        `json:"rows,omitempty"`
	Keys              map[string]game.Verdict `json:"keys,omitempty"`
	TimeLimitMs       int64                   `json:"timeLimitMs,omitempty"`
	RemainingMs       int64                   `json:"remainingMs,omitempty"`
	Outcome           game.Outcome            `json:"outcome"`
	Result            *resultView             `json:"result,omitempty"`
}

// resultView is sent once a round is over.
type resultView struct {
	Answer  string       `json:"answer"`
	Summary game.Summary `json:"summary"`
	Stats   stats.View   `json:"stats"`
	Share   string       `json:"share"`
}

// view renders e. Callers hold the entry lock.
func (s *Server) view(ctx context.Context, e *store.Entry) roundView {
	rd, sess := e.Round, e.Round.Session
	v := roundView{
		RoundID:           e.ID,
		Mode:              rd.Mode.ID,
		Title:             rd.Mode.Title,
		Date:              daily.DateKey(rd.Date),
		Number:            rd.Number,
		Round:             rd.Index,
		Prompt:            rd.Puzzle.Prompt,
		Caption:           rd.Puzzle.Caption,
		Media:             rd.Puzzle.Media,
		Kind:              sess.Answer().Kind(),
		Tiles:             rd.Mode.Tiles,
		Budget:            sess.Budget(),
		Policy:            sess.Policy().Kind.String(),
		AttemptsRemaining: sess.AttemptsRemaining(),
		Revealed:          sess.Revealed(),
		Hidden:            sess.Hidden(),
		Rows:              sess.Rows(),
		Keys:              sess.KeyHints().Snapshot(),
		TimeLimitMs:       rd.Mode.TimeLimit().Milliseconds(),
		Outcome:           sess.Outcome(),
	}
	if ls, ok := sess.Answer().(game.LetterSequence); ok {
		v.Length = ls.Len()
	}
	if e.Clock != nil {
		v.RemainingMs = e.Clock.Remaining().Milliseconds()
	}
	if sess.Terminal() {
		v.Result = s.finish(ctx, e)
	}
	return v
}

// ------------------------------- new ---------------------------------------

type newRoundReq struct {
	Round int `json:"round"` // 0 is the daily round; >0 are practice rounds
}

// handleNew starts a round of {mode} for today.
// A player who already finished today's daily round gets 409 already_played.
func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	modeID := chi.URLParam(r, "mode")
	var req newRoundReq
	_ = json.NewDecoder(r.Body).Decode(&req) // body is optional
	if req.Round < 0 || req.Round > content.MaxRound {
		httpError(w, http.StatusBadRequest, "bad_round")
		return
	}

	pid, guest := s.player(w, r)
	today := s.now().UTC()
	if req.Round == 0 {
		played, err := s.daily.AlreadyPlayed(r.Context(), pid, modeID, daily.DateKey(today))
		if err != nil {
			log.Warn().Err(err).Str("player", pid).Msg("check daily played")
		} else if played {
			httpError(w, http.StatusConflict, "already_played")
			return
		}
	}

	rd, err := s.catalog.Start(modeID, today, req.Round)
	if errors.Is(err, content.ErrUnknownMode) {
		httpError(w, http.StatusNotFound, "unknown_mode")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("mode", modeID).Msg("start round")
		httpError(w, http.StatusInternalServerError, "start_failed")
		return
	}
	e, err := s.open(r.Context(), pid, guest, rd)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	log.Info().Str("round", e.ID).Str("mode", modeID).Int("number", rd.Number).Int("index", rd.Index).Msg("round started")

	e.Lock()
	defer e.Unlock()
	_ = json.NewEncoder(w).Encode(s.view(r.Context(), e))
}

// open stores a new entry for rd and arms its countdown for timed modes.
func (s *Server) open(ctx context.Context, pid string, guest bool, rd *content.Round) (*store.Entry, error) {
	e := store.NewEntry(pid, guest, rd)
	if limit := rd.Mode.TimeLimit(); limit > 0 {
		e.Lock()
		e.Clock = clock.Start(limit, func() { s.expire(e) })
		e.Unlock()
	}
	if err := s.rounds.Save(ctx, e); err != nil {
		log.Error().Err(err).Msg("save round")
		return nil, err
	}
	return e, nil
}

// expire is the countdown callback: the round is lost when time runs out.
func (s *Server) expire(e *store.Entry) {
	e.Lock()
	defer e.Unlock()
	if e.Dropped || !e.Round.Session.Expire() {
		return
	}
	log.Info().Str("round", e.ID).Msg("time up")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.finish(ctx, e)
}

// catchUp expires a timed round whose deadline passed before its callback
// got the lock. Callers hold the entry lock.
func (s *Server) catchUp(ctx context.Context, e *store.Entry) {
	if e.Dropped || e.Clock == nil || e.Round.Session.Terminal() || e.Clock.Remaining() > 0 {
		return
	}
	if e.Round.Session.Expire() {
		s.finish(ctx, e)
	}
}

// finish hands a terminal round to stats and the daily table (once) and
// returns its result. Callers hold the entry lock.
func (s *Server) finish(ctx context.Context, e *store.Entry) *resultView {
	sess := e.Round.Session
	if !sess.Terminal() {
		return nil
	}
	sum := sess.Summary()
	repo := s.statsFor(e.Guest)

	var st stats.Stats
	var err error
	if !e.Recorded {
		e.Recorded = true
		if e.Clock != nil {
			e.Clock.Stop()
		}
		st, err = repo.Record(ctx, e.PlayerID, stats.Game{
			Mode:         e.Round.Mode.ID,
			Won:          sum.Won,
			Guesses:      sum.Guesses,
			AttemptsUsed: sum.AttemptsUsed,
		})
		if err != nil {
			log.Warn().Err(err).Str("player", e.PlayerID).Msg("record stats")
		}
		if e.Round.Daily() {
			res := daily.Result{
				PlayerID:  e.PlayerID,
				Mode:      e.Round.Mode.ID,
				Date:      daily.DateKey(e.Round.Date),
				Puzzle:    e.Round.Number,
				Won:       sum.Won,
				Guesses:   sum.Guesses,
				ElapsedMs: int(time.Since(e.Started).Milliseconds()),
			}
			if err := s.daily.InsertResult(ctx, res); err != nil {
				log.Warn().Err(err).Str("player", e.PlayerID).Msg("insert daily result")
			}
		}
		log.Info().Str("round", e.ID).Str("outcome", sum.Outcome.String()).Int("guesses", sum.Guesses).Msg("round over")
	} else {
		st, err = repo.Get(ctx, e.PlayerID)
		if err != nil {
			log.Warn().Err(err).Str("player", e.PlayerID).Msg("load stats")
		}
	}

	return &resultView{
		Answer:  e.Round.Puzzle.Answer,
		Summary: sum,
		Stats:   st.View(),
		Share:   s.shareText(e),
	}
}

func (s *Server) shareText(e *store.Entry) string {
	sess := e.Round.Session
	return share.Text(e.Round.Mode.Title, e.Round.Number, sess.Summary(), sess.Budget(), sess.Rows())
}

// entry loads a round owned by the requesting player. Rounds of other
// players are reported as not found.
func (s *Server) entry(w http.ResponseWriter, r *http.Request, id string) (*store.Entry, bool) {
	e, err := s.rounds.Get(r.Context(), id)
	if err != nil {
		httpError(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	if pid, _ := s.player(w, r); pid != e.PlayerID {
		httpError(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	return e, true
}

// handleRound returns the current state of a round.
func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r, chi.URLParam(r, "roundId"))
	if !ok {
		return
	}
	e.Lock()
	defer e.Unlock()
	s.catchUp(r.Context(), e)
	_ = json.NewEncoder(w).Encode(s.view(r.Context(), e))
}

// ------------------------------ guess --------------------------------------

type guessReq struct {
	RoundID string `json:"roundId"`
	Guess   string `json:"guess"`
}

type guessRes struct {
	Match             bool                    `json:"match"`
	Verdicts          []game.Verdict          `json:"verdicts,omitempty"`
	Outcome           game.Outcome            `json:"outcome"`
	AttemptsRemaining int                     `json:"attemptsRemaining"`
	NewlyRevealed     []content.Unit          `json:"newlyRevealed,omitempty"`
	Keys              map[string]game.Verdict `json:"keys,omitempty"`
	Result            *resultView             `json:"result,omitempty"`
}

// handleGuess applies a guess and, when the round ends, records it.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "bad_json")
		return
	}
	e, ok := s.entry(w, r, req.RoundID)
	if !ok {
		return
	}
	e.Lock()
	defer e.Unlock()
	e.Touch()
	s.catchUp(r.Context(), e)

	sess := e.Round.Session
	res, err := sess.Submit(req.Guess)
	if err != nil {
		writeGameError(w, err)
		return
	}
	out := guessRes{
		Match:             res.Won,
		Verdicts:          res.Verdicts,
		Outcome:           res.Outcome,
		AttemptsRemaining: res.AttemptsRemaining,
		NewlyRevealed:     res.NewlyRevealed,
		Keys:              sess.KeyHints().Snapshot(),
	}
	if res.Outcome.Terminal() {
		out.Result = s.finish(r.Context(), e)
	}
	_ = json.NewEncoder(w).Encode(out)
}

// ------------------------------ reveal -------------------------------------

type roundReq struct {
	RoundID string `json:"roundId"`
}

type revealRes struct {
	Revealed content.Unit `json:"revealed"`
	Hidden   int          `json:"hidden"`
}

// handleReveal reveals one more unit of an on-demand round.
func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	var req roundReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "bad_json")
		return
	}
	e, ok := s.entry(w, r, req.RoundID)
	if !ok {
		return
	}
	e.Lock()
	defer e.Unlock()
	e.Touch()
	s.catchUp(r.Context(), e)

	u, err := e.Round.Session.Reveal()
	if err != nil {
		writeGameError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(revealRes{Revealed: u, Hidden: e.Round.Session.Hidden()})
}

// ------------------------------- again -------------------------------------

// handleAgain starts the next round of the same mode, with the same budget
// and policy, and drops the previous one.
func (s *Server) handleAgain(w http.ResponseWriter, r *http.Request) {
	var req roundReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "bad_json")
		return
	}
	prev, ok := s.entry(w, r, req.RoundID)
	if !ok {
		return
	}
	prev.Lock()
	rd, err := s.catalog.Again(prev.Round)
	prev.Unlock()
	if err != nil {
		log.Error().Err(err).Str("round", prev.ID).Msg("play again")
		httpError(w, http.StatusInternalServerError, "start_failed")
		return
	}

	e, err := s.open(r.Context(), prev.PlayerID, prev.Guest, rd)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	_ = s.rounds.Delete(r.Context(), prev.ID)

	e.Lock()
	defer e.Unlock()
	_ = json.NewEncoder(w).Encode(s.view(r.Context(), e))
}

// ------------------------------- share -------------------------------------

// handleSharePNG renders the share text of a finished round as a QR code.
func (s *Server) handleSharePNG(w http.ResponseWriter, r *http.Request) {
	e, err := s.rounds.Get(r.Context(), chi.URLParam(r, "roundId"))
	if err != nil {
		httpError(w, http.StatusNotFound, "not_found")
		return
	}
	e.Lock()
	s.catchUp(r.Context(), e)
	over := e.Round.Session.Terminal()
	text := s.shareText(e)
	e.Unlock()
	if !over {
		httpError(w, http.StatusConflict, "round_in_progress")
		return
	}

	png, err := share.QR(text, qrSize)
	if err != nil {
		log.Error().Err(err).Msg("qr generation")
		httpError(w, http.StatusInternalServerError, "qr_failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// ------------------------------- clock -------------------------------------

type clockMsg struct {
	RemainingMs int64        `json:"remainingMs"`
	Outcome     game.Outcome `json:"outcome"`
}

// clockTick is how often the remaining time is pushed.
var clockTick = time.Second

// handleClock streams the remaining time of a timed round until it ends or
// the client goes away.
func (s *Server) handleClock(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r, chi.URLParam(r, "roundId"))
	if !ok {
		return
	}
	if e.Clock == nil {
		httpError(w, http.StatusBadRequest, "untimed")
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return o == "" || o == s.cfg.ClientOrigin || o == "http://"+r.Host || o == "https://"+r.Host
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("clock upgrade")
		return
	}
	defer conn.Close()

	// Reads only detect the client closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	t := time.NewTicker(clockTick)
	defer t.Stop()
	for {
		e.Lock()
		s.catchUp(context.Background(), e)
		msg := clockMsg{RemainingMs: e.Clock.Remaining().Milliseconds(), Outcome: e.Round.Session.Outcome()}
		e.Unlock()

		if err := conn.WriteJSON(msg); err != nil {
			return
		}
		if msg.Outcome.Terminal() {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "round over"))
			return
		}
		select {
		case <-gone:
			return
		case <-t.C:
		}
	}
}

// ------------------------------- errors ------------------------------------

// writeGameError maps session errors to HTTP statuses.
func writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrEmptyGuess):
		httpError(w, http.StatusBadRequest, "empty_guess")
	case errors.Is(err, game.ErrInvalidGuessLength):
		httpError(w, http.StatusBadRequest, "invalid_guess_length")
	case errors.Is(err, game.ErrRevealNotAllowed):
		httpError(w, http.StatusBadRequest, "reveal_not_allowed")
	case errors.Is(err, game.ErrSessionOver):
		httpError(w, http.StatusConflict, "session_over")
	case errors.Is(err, game.ErrNoReveals):
		httpError(w, http.StatusConflict, "no_reveals")
	default:
		log.Error().Err(err).Msg("session error")
		httpError(w, http.StatusInternalServerError, "server_error")
	}
}
