package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"strconv"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ParseDateKey parses a YYYY-MM-DD key as a UTC day.
func ParseDateKey(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

// Seed returns HMAC(salt, "mode|YYYY-MM-DD|round") as a uint64.
// Everyone playing the same mode on the same day and round gets the same seed.
func Seed(date time.Time, salt, mode string, round int) uint64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(mode + "|" + DateKey(date) + "|" + strconv.Itoa(round)))
	sum := h.Sum(nil)
	// take first 8 bytes to uint64 for modulus distribution
	return binary.BigEndian.Uint64(sum[:8])
}

// PuzzleIndex returns a deterministic index in [0, n) for a mode, day and round.
func PuzzleIndex(date time.Time, salt, mode string, round, n int) int {
	if n <= 0 {
		return 0
	}
	return int(Seed(date, salt, mode, round) % uint64(n))
}

// PuzzleNumber counts days since launch, starting at 1 on launch day.
// Days before launch return 0.
func PuzzleNumber(date, launch time.Time) int {
	d := date.UTC().Truncate(24 * time.Hour)
	l := launch.UTC().Truncate(24 * time.Hour)
	if d.Before(l) {
		return 0
	}
	return int(d.Sub(l)/(24*time.Hour)) + 1
}
