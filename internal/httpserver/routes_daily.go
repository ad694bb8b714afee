// internal/httpserver/routes_daily.go
//
// Leaderboards:
//   - GET /daily/leaderboard?mode=&date= → top results of one mode's daily round
//   - GET /leaderboard                   → accounts ranked by win rate
//
// Daily results are written when a round-0 game ends (see finish); each
// player counts once per mode and day.

package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flickle/internal/daily"
	"github.com/robalobadob/flickle/internal/stats"
)

// dailyLBRes is returned by /daily/leaderboard.
type dailyLBRes struct {
	Mode   string        `json:"mode"`
	Date   string        `json:"date"`
	Number int           `json:"number"`
	Top    []daily.LBRow `json:"top"`
}

// handleDailyLeaderboard returns the leaderboard for a mode on the given date (default today).
func (s *Server) handleDailyLeaderboard(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if _, err := s.catalog.Mode(mode); err != nil {
		httpError(w, http.StatusBadRequest, "unknown_mode")
		return
	}
	day := s.now().UTC()
	if q := r.URL.Query().Get("date"); q != "" {
		d, err := daily.ParseDateKey(q)
		if err != nil {
			httpError(w, http.StatusBadRequest, "bad_date")
			return
		}
		day = d
	}
	date := daily.DateKey(day)

	rows, err := s.daily.Leaderboard(r.Context(), mode, date, queryLimit(r, 20))
	if err != nil {
		log.Error().Err(err).Str("mode", mode).Str("date", date).Msg("daily leaderboard")
		httpError(w, http.StatusInternalServerError, "server_error")
		return
	}
	_ = json.NewEncoder(w).Encode(dailyLBRes{Mode: mode, Date: date, Number: s.catalog.Number(day), Top: rows})
}

// lbRes is returned by /leaderboard.
type lbRes struct {
	Top []stats.Entry `json:"top"`
}

// handleLeaderboard ranks signed-in players by win rate, then wins.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	top, err := s.accounts.Leaderboard(r.Context(), queryLimit(r, 20))
	if err != nil {
		log.Error().Err(err).Msg("leaderboard")
		httpError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if top == nil {
		top = []stats.Entry{}
	}
	_ = json.NewEncoder(w).Encode(lbRes{Top: top})
}
