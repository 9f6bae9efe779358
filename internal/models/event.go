package models

import (
	"strings"
	"time"
)

// EventMeta describes one real-world fight card. The fights table stores one
// row per fighter pairing; every row of a card shares the card's event ID,
// which is allocated exactly once when the batch is created.
type EventMeta struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Date        time.Time  `json:"date"`
	City        string     `json:"city,omitempty"`
	State       string     `json:"state,omitempty"`
	Country     string     `json:"country,omitempty"`
	Link        string     `json:"link"` // source page URL, doubles as the scrape cache key
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Location joins the non-empty city, state, and country parts.
func (e EventMeta) Location() string {
	var parts []string
	for _, p := range []string{e.City, e.State, e.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Fight is one fighter pairing on a card, the database's actual unit of storage.
type Fight struct {
	EventID     string `json:"event_id"`
	Fighter1    string `json:"fighter1"`
	Fighter2    string `json:"fighter2"`
	WeightClass string `json:"weight_class"`
	IsMainCard  bool   `json:"is_main_card"`
}

// MainCardSize is the number of bouts, in scrape order, treated as the main
// card. The source site lists main-card bouts first; this is a positional
// convention, not a parsed field.
const MainCardSize = 5

// CardType selects which half of a card a prediction covers.
type CardType string

const (
	CardMain    CardType = "main"
	CardPrelims CardType = "prelims"
)

// Valid reports whether the card type is one of the two known values.
func (c CardType) Valid() bool {
	return c == CardMain || c == CardPrelims
}

// ParseCardType normalizes user-supplied card type strings.
func ParseCardType(raw string) (CardType, bool) {
	c := CardType(strings.ToLower(strings.TrimSpace(raw)))
	return c, c.Valid()
}

// FighterPairKey returns a canonical key for an unordered fighter pairing.
// Names are lowercased and whitespace-collapsed so that scraped results and
// stored predictions match regardless of ordering or formatting drift.
func FighterPairKey(a, b string) string {
	na := normalizeFighterName(a)
	nb := normalizeFighterName(b)
	if nb < na {
		na, nb = nb, na
	}
	return na + "|" + nb
}

func normalizeFighterName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// SameDay reports whether two timestamps fall on the same calendar day in UTC.
// Event dates are stored date-only; all comparisons go through this helper.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// DateOnly truncates a timestamp to midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
