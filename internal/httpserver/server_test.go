package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/flickle/assets"
	"github.com/robalobadob/flickle/internal/clock"
	"github.com/robalobadob/flickle/internal/content"
	"github.com/robalobadob/flickle/internal/game"
	"github.com/robalobadob/flickle/internal/store"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	db, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db, assets.SQLiteMigrations()))

	cat, err := content.Default("test-salt")
	require.NoError(t, err)

	s := New(Config{JWTSecret: "test-secret"}, Deps{DB: db, Rounds: store.NewMemoryStore(), Catalog: cat})
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

// player is a browser: one cookie jar across requests.
type player struct {
	t  *testing.T
	ts *httptest.Server
	hc *http.Client
}

func newPlayer(t *testing.T, ts *httptest.Server) *player {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &player{t: t, ts: ts, hc: &http.Client{Jar: jar}}
}

// do sends a JSON request and decodes a 2xx body into out. Error bodies are
// returned as their "error" code.
func (p *player) do(method, path string, body, out any) (int, string) {
	p.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(p.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, p.ts.URL+path, rd)
	require.NoError(p.t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := p.hc.Do(req)
	require.NoError(p.t, err)
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&e)
		return res.StatusCode, e.Error
	}
	if out != nil {
		require.NoError(p.t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode, ""
}

func (p *player) start(mode string) roundView {
	p.t.Helper()
	var rv roundView
	code, errCode := p.do(http.MethodPost, "/play/"+mode+"/new", nil, &rv)
	require.Equal(p.t, http.StatusOK, code, errCode)
	return rv
}

func (p *player) guess(id, g string) (guessRes, int, string) {
	p.t.Helper()
	var out guessRes
	code, errCode := p.do(http.MethodPost, "/play/guess", guessReq{RoundID: id, Guess: g}, &out)
	return out, code, errCode
}

func answerOf(t *testing.T, s *Server, id string) string {
	t.Helper()
	e, err := s.rounds.Get(context.Background(), id)
	require.NoError(t, err)
	e.Lock()
	defer e.Unlock()
	return e.Round.Puzzle.Answer
}

func TestHealthAndModes(t *testing.T) {
	_, ts := newTestServer(t)
	p := newPlayer(t, ts)

	var health map[string]bool
	code, _ := p.do(http.MethodGet, "/health", nil, &health)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, health["ok"])

	var modes modesRes
	code, _ = p.do(http.MethodGet, "/modes", nil, &modes)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, modes.Modes, 8)
	assert.Equal(t, "flickle", modes.Modes[0].ID)
	assert.Equal(t, "on_wrong_guess", modes.Modes[0].Policy)
	assert.Zero(t, modes.Modes[0].TimeLimitMs)

	code, errCode := p.do(http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", errCode)
}

func TestPlay_FlickleDaily(t *testing.T) {
	s, ts := newTestServer(t)
	p := newPlayer(t, ts)

	rv := p.start("flickle")
	assert.Equal(t, game.KindLetterSequence, rv.Kind)
	assert.Equal(t, 6, rv.Budget)
	assert.Equal(t, 0, rv.Round)
	assert.Equal(t, game.Pending, rv.Outcome)
	assert.Nil(t, rv.Result, "answer stays hidden while pending")
	assert.Empty(t, rv.Revealed)
	assert.Equal(t, 3, rv.Hidden)

	answer := answerOf(t, s, rv.RoundID)
	require.Equal(t, len(game.Letters(answer)), rv.Length)

	_, code, errCode := p.guess(rv.RoundID, "   ")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "empty_guess", errCode)

	_, code, errCode = p.guess(rv.RoundID, "qq")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_guess_length", errCode)

	g, code, _ := p.guess(rv.RoundID, strings.Repeat("q", rv.Length))
	require.Equal(t, http.StatusOK, code)
	assert.False(t, g.Match)
	assert.Equal(t, game.Pending, g.Outcome)
	assert.Equal(t, 5, g.AttemptsRemaining)
	require.Len(t, g.NewlyRevealed, 1)
	assert.Equal(t, "year", g.NewlyRevealed[0].Kind)
	assert.Equal(t, game.Absent, g.Keys["Q"])
	assert.Nil(t, g.Result)

	g, code, _ = p.guess(rv.RoundID, strings.ToLower(answer))
	require.Equal(t, http.StatusOK, code)
	assert.True(t, g.Match)
	assert.Equal(t, game.Won, g.Outcome)
	require.NotNil(t, g.Result)
	assert.Equal(t, answer, g.Result.Answer)
	assert.Equal(t, 2, g.Result.Summary.Guesses)
	assert.Equal(t, 1, g.Result.Summary.AttemptsUsed)
	assert.Equal(t, 1, g.Result.Stats.GamesPlayed)
	assert.Equal(t, 100, g.Result.Stats.WinRate)
	assert.Contains(t, g.Result.Share, "Movie Flickle #")
	assert.Contains(t, g.Result.Share, "2/6")

	_, code, errCode = p.guess(rv.RoundID, answer)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "session_over", errCode)

	code, errCode = p.do(http.MethodPost, "/play/flickle/new", nil, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_played", errCode)

	var lb dailyLBRes
	code, _ = p.do(http.MethodGet, "/daily/leaderboard?mode=flickle", nil, &lb)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, lb.Top, 1)
	assert.Equal(t, "guest", lb.Top[0].Name)
	assert.True(t, lb.Top[0].Won)
	assert.Equal(t, 2, lb.Top[0].Guesses)

	var me myStatsRes
	code, _ = p.do(http.MethodGet, "/stats/me", nil, &me)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, me.Guest)
	assert.Equal(t, 1, me.GamesWon)
	assert.Equal(t, 1, me.CurrentStreak)
	require.Len(t, me.Modes, 1)
	assert.Equal(t, "flickle", me.Modes[0].Mode)
	assert.Equal(t, 1, me.Modes[0].Played)
	assert.InDelta(t, 2.0, me.Modes[0].AvgGuesses, 1e-9)
	assert.Equal(t, []int{0, 1, 0, 0, 0, 0}, me.Modes[0].Distribution, "one bucket per allowed guess")

	// recording happens once, however often the result is viewed
	var again roundView
	code, _ = p.do(http.MethodGet, "/play/"+rv.RoundID, nil, &again)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, again.Result)
	assert.Equal(t, 1, again.Result.Stats.GamesPlayed)
}

func TestPlay_SharePNGAndAgain(t *testing.T) {
	s, ts := newTestServer(t)
	p := newPlayer(t, ts)
	rv := p.start("quote-quest")

	res, err := p.hc.Get(ts.URL + "/play/" + rv.RoundID + "/share.png")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	for i := 0; i < 4; i++ {
		g, code, _ := p.guess(rv.RoundID, "definitely not it")
		require.Equal(t, http.StatusOK, code)
		if i < 3 {
			assert.Equal(t, game.Pending, g.Outcome)
			continue
		}
		assert.Equal(t, game.Lost, g.Outcome)
		require.NotNil(t, g.Result)
		assert.Equal(t, answerOf(t, s, rv.RoundID), g.Result.Answer)
		assert.Contains(t, g.Result.Share, "X/4")
		assert.Zero(t, g.Result.Stats.CurrentStreak)
	}

	res, err = p.hc.Get(ts.URL + "/play/" + rv.RoundID + "/share.png")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))

	var next roundView
	code, _ := p.do(http.MethodPost, "/play/again", roundReq{RoundID: rv.RoundID}, &next)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, next.Round)
	assert.Equal(t, "quote-quest", next.Mode)
	assert.Equal(t, 4, next.Budget)
	assert.Equal(t, game.Pending, next.Outcome)
	assert.NotEqual(t, rv.RoundID, next.RoundID)

	code, _ = p.do(http.MethodGet, "/play/"+rv.RoundID, nil, nil)
	assert.Equal(t, http.StatusNotFound, code, "previous round is dropped")

	// practice rounds do not reach the daily board
	g, code, _ := p.guess(next.RoundID, answerOf(t, s, next.RoundID))
	require.Equal(t, http.StatusOK, code)
	assert.True(t, g.Match)
	var lb dailyLBRes
	p.do(http.MethodGet, "/daily/leaderboard?mode=quote-quest", nil, &lb)
	require.Len(t, lb.Top, 1)
	assert.False(t, lb.Top[0].Won)
}

func TestPlay_RevealAndOwnership(t *testing.T) {
	s, ts := newTestServer(t)
	p := newPlayer(t, ts)

	rv := p.start("poster-puzzle")
	assert.Equal(t, game.KindIndexedItem, rv.Kind)
	assert.Equal(t, 16, rv.Tiles)
	assert.Len(t, rv.Revealed, 2)
	assert.Equal(t, 8, rv.Hidden, "reveal cap of 10 minus the 2 shown")
	assert.Equal(t, int64(90000), rv.TimeLimitMs)
	assert.Positive(t, rv.RemainingMs)

	var rev revealRes
	code, _ := p.do(http.MethodPost, "/play/reveal", roundReq{RoundID: rv.RoundID}, &rev)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "tile", rev.Revealed.Kind)
	assert.Equal(t, 7, rev.Hidden)

	other := newPlayer(t, ts)
	code, errCode := other.do(http.MethodPost, "/play/reveal", roundReq{RoundID: rv.RoundID}, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", errCode)

	flick := p.start("flickle")
	code, errCode = p.do(http.MethodPost, "/play/reveal", roundReq{RoundID: flick.RoundID}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "reveal_not_allowed", errCode)

	// contains-match: a guess inside the title wins
	title := answerOf(t, s, rv.RoundID)
	g, code, _ := p.guess(rv.RoundID, "  "+strings.ToUpper(title)+" ")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, game.Won, g.Outcome)

	code, errCode = p.do(http.MethodPost, "/play/reveal", roundReq{RoundID: rv.RoundID}, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "session_over", errCode)

	code, errCode = p.do(http.MethodPost, "/play/nope/new", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "unknown_mode", errCode)
}

func TestPlay_TimeUp(t *testing.T) {
	s, ts := newTestServer(t)
	p := newPlayer(t, ts)
	rv := p.start("scene-guesser")
	require.Equal(t, int64(120000), rv.TimeLimitMs)

	e, err := s.rounds.Get(context.Background(), rv.RoundID)
	require.NoError(t, err)
	e.Lock()
	require.True(t, e.Clock.Stop())
	e.Clock = clock.Start(10*time.Millisecond, func() { s.expire(e) })
	e.Unlock()

	require.Eventually(t, func() bool {
		e.Lock()
		defer e.Unlock()
		return e.Recorded
	}, 2*time.Second, 10*time.Millisecond)

	var view roundView
	code, _ := p.do(http.MethodGet, "/play/"+rv.RoundID, nil, &view)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, game.Lost, view.Outcome)
	require.NotNil(t, view.Result)
	assert.False(t, view.Result.Summary.Won)
	assert.Equal(t, 1, view.Result.Stats.GamesPlayed)
	assert.Zero(t, view.RemainingMs)

	_, code, errCode := p.guess(rv.RoundID, answerOf(t, s, rv.RoundID))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "session_over", errCode)

	var lb dailyLBRes
	p.do(http.MethodGet, "/daily/leaderboard?mode=scene-guesser", nil, &lb)
	require.Len(t, lb.Top, 1)
	assert.False(t, lb.Top[0].Won)
}

func TestPlay_TimeUpAfterDelete(t *testing.T) {
	s, ts := newTestServer(t)
	p := newPlayer(t, ts)
	rv := p.start("scene-guesser")

	e, err := s.rounds.Get(context.Background(), rv.RoundID)
	require.NoError(t, err)
	require.NoError(t, s.rounds.Delete(context.Background(), rv.RoundID))

	// the callback may already be running when the round is dropped
	s.expire(e)

	e.Lock()
	assert.False(t, e.Recorded)
	assert.Equal(t, game.Pending, e.Round.Session.Outcome())
	e.Unlock()

	var me myStatsRes
	code, _ := p.do(http.MethodGet, "/stats/me", nil, &me)
	require.Equal(t, http.StatusOK, code)
	assert.Zero(t, me.GamesPlayed)
	assert.Empty(t, me.Modes)

	var lb dailyLBRes
	p.do(http.MethodGet, "/daily/leaderboard?mode=scene-guesser", nil, &lb)
	assert.Empty(t, lb.Top)
}

func TestPlay_ClockWebsocket(t *testing.T) {
	old := clockTick
	clockTick = 20 * time.Millisecond
	t.Cleanup(func() { clockTick = old })

	s, ts := newTestServer(t)
	p := newPlayer(t, ts)

	flick := p.start("flickle")
	code, errCode := p.do(http.MethodGet, "/play/"+flick.RoundID+"/clock", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "untimed", errCode)

	rv := p.start("soundtrack-sleuth")
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/play/" + rv.RoundID + "/clock"
	d := websocket.Dialer{Jar: p.hc.Jar}
	conn, _, err := d.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg clockMsg
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, game.Pending, msg.Outcome)
	assert.Positive(t, msg.RemainingMs)
	assert.LessOrEqual(t, msg.RemainingMs, int64(60000))

	_, code, _ = p.guess(rv.RoundID, answerOf(t, s, rv.RoundID))
	require.Equal(t, http.StatusOK, code)

	for i := 0; i < 50 && !msg.Outcome.Terminal(); i++ {
		require.NoError(t, conn.ReadJSON(&msg))
	}
	assert.Equal(t, game.Won, msg.Outcome)
	assert.Zero(t, msg.RemainingMs, "countdown stops on a win")
}

func TestAuth(t *testing.T) {
	_, ts := newTestServer(t)
	p := newPlayer(t, ts)

	code, _ := p.do(http.MethodGet, "/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	// a guest result from before signing up moves to the account
	rv := p.start("casting-web")
	for i := 0; i < 3; i++ {
		_, code, _ := p.guess(rv.RoundID, "not the movie")
		require.Equal(t, http.StatusOK, code)
	}

	creds := credentials{Username: "film_fan", Password: "popcorn123"}
	code, _ = p.do(http.MethodPost, "/auth/signup", creds, nil)
	require.Equal(t, http.StatusOK, code)

	var me authUser
	code, _ = p.do(http.MethodGet, "/auth/me", nil, &me)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "film_fan", me.Username)

	var lb dailyLBRes
	p.do(http.MethodGet, "/daily/leaderboard?mode=casting-web", nil, &lb)
	require.Len(t, lb.Top, 1)
	assert.Equal(t, "film_fan", lb.Top[0].Name)

	var st myStatsRes
	p.do(http.MethodGet, "/stats/me", nil, &st)
	assert.False(t, st.Guest)
	assert.Zero(t, st.GamesPlayed)

	// signed-in results land in account stats and the global board
	flick := p.start("flickle")
	_, code, _ = p.guess(flick.RoundID, strings.Repeat("q", flick.Length))
	require.Equal(t, http.StatusOK, code)
	var board lbRes
	p.do(http.MethodGet, "/leaderboard", nil, &board)
	assert.Empty(t, board.Top, "unfinished rounds do not count")

	code, errCode := p.do(http.MethodPost, "/auth/signup", creds, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Username taken", errCode)

	code, _ = p.do(http.MethodPost, "/auth/signup", credentials{Username: "ab", Password: "popcorn123"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = p.do(http.MethodPost, "/auth/logout", nil, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = p.do(http.MethodGet, "/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = p.do(http.MethodPost, "/auth/login", credentials{Username: "film_fan", Password: "wrong-password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = p.do(http.MethodPost, "/auth/login", credentials{Username: "FILM_FAN", Password: "popcorn123"}, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAuth_SignupStoreFailure(t *testing.T) {
	s, ts := newTestServer(t)
	_, err := s.db.Exec(`CREATE TRIGGER no_users BEFORE INSERT ON users BEGIN SELECT RAISE(ABORT, 'say "no"'); END;`)
	require.NoError(t, err)

	res, err := http.Post(ts.URL+"/auth/signup", "application/json",
		strings.NewReader(`{"username":"film_fan","password":"popcorn123"}`))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body), "error body stays valid JSON")
	assert.Equal(t, map[string]string{"error": "signup_failed"}, body)
}

func TestAuth_SignupRuleMessage(t *testing.T) {
	_, ts := newTestServer(t)
	p := newPlayer(t, ts)
	code, errCode := p.do(http.MethodPost, "/auth/signup", credentials{Username: "film fan", Password: "popcorn123"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "username: letters, numbers, underscore only", errCode)

	code, errCode = p.do(http.MethodPost, "/auth/signup", credentials{Username: "film_fan", Password: "short"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "password must be 8-100 chars", errCode)
}

func TestAuth_AccountLeaderboard(t *testing.T) {
	s, ts := newTestServer(t)
	p := newPlayer(t, ts)
	code, _ := p.do(http.MethodPost, "/auth/signup", credentials{Username: "critic", Password: "popcorn123"}, nil)
	require.Equal(t, http.StatusOK, code)

	rv := p.start("cynic-synopsis")
	g, code, _ := p.guess(rv.RoundID, answerOf(t, s, rv.RoundID))
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, g.Result)
	assert.Equal(t, 1, g.Result.Stats.GamesWon)

	var board lbRes
	code, _ = p.do(http.MethodGet, "/leaderboard", nil, &board)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, board.Top, 1)
	assert.Equal(t, "critic", board.Top[0].Name)
	assert.Equal(t, 100, board.Top[0].WinRate)
}
