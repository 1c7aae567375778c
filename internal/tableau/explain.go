package tableau

import (
	"fmt"
	"strings"

	"github.com/DoyleJ11/asken-backend/internal/cards"
)

var rankNames = [...]string{
	1: "ace", 2: "two", 3: "three", 4: "four", 5: "five", 6: "six", 7: "seven",
	8: "eight", 9: "nine", 10: "ten", 11: "jack", 12: "queen", 13: "king",
}

func RankName(rank int) string {
	if rank < cards.Ace || rank > cards.King {
		return fmt.Sprintf("rank %d", rank)
	}
	return rankNames[rank]
}

func cardName(c cards.Card) string {
	return fmt.Sprintf("%s of %s", RankName(c.Rank), c.Suit)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Explain describes why each card of a rejected selection cannot be placed.
func Explain(selected []cards.Card, t Tableau) string {
	if len(selected) == 0 {
		return "No cards selected."
	}

	var reasons []string
	for _, c := range selected {
		run := t[c.Suit]
		name := capitalize(cardName(c))
		if !run.Open() {
			if c.Rank != cards.Seven {
				reasons = append(reasons, fmt.Sprintf("%s cannot be played. %s must be opened with a seven.",
					name, capitalize(c.Suit.String())))
			}
			continue
		}
		switch {
		case c.Rank == run.Low-1 || c.Rank == run.High+1:
		case c.Rank < run.Low:
			reasons = append(reasons, fmt.Sprintf("%s cannot be played. The %s of %s must be played first.",
				name, RankName(run.Low-1), c.Suit))
		case c.Rank > run.High:
			reasons = append(reasons, fmt.Sprintf("%s cannot be played. The %s of %s must be played first.",
				name, RankName(run.High+1), c.Suit))
		default:
			reasons = append(reasons, fmt.Sprintf("%s is already on the table.", name))
		}
	}

	if len(reasons) == 0 {
		return "These cards cannot be played together in any order."
	}
	return strings.Join(reasons, "\n")
}
