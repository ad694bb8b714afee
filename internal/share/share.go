// Package share renders the spoiler-free result players paste to friends:
// a header, the score line, the emoji grid for letter modes and a link.
package share

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/robalobadob/flickle/internal/game"
)

// Link closes every share text.
const Link = "Play at flickle.app"

var squares = map[game.Verdict]string{
	game.Correct: "🟩",
	game.Partial: "🟨",
	game.Absent:  "⬛",
}

// Grid renders one line of squares per verdict row.
func Grid(rows [][]game.Verdict) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var b strings.Builder
		for _, v := range row {
			b.WriteString(squares[v])
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// Score is "N/budget" for a win in N guesses, "X/budget" otherwise.
func Score(sum game.Summary, budget int) string {
	if sum.Won {
		return fmt.Sprintf("%d/%d", sum.Guesses, budget)
	}
	return fmt.Sprintf("X/%d", budget)
}

// Text builds the full share text. rows may be empty for modes without a grid.
func Text(title string, number int, sum game.Summary, budget int, rows [][]game.Verdict) string {
	mark := "❌"
	if sum.Won {
		mark = "✅"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🎬 %s #%d\n%s %s\n", title, number, mark, Score(sum, budget))
	if len(rows) > 0 {
		b.WriteString("\n")
		b.WriteString(Grid(rows))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(Link)
	return b.String()
}

// QR encodes text as a size x size PNG.
func QR(text string, size int) ([]byte, error) {
	png, err := qrcode.Encode(text, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qr: %w", err)
	}
	return png, nil
}
