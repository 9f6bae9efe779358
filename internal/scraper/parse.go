package scraper

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/fightgenie/fightgenie/internal/models"
)

// parseBouts tries each selector strategy in fixed priority order and
// returns the first non-empty result together with the strategy names
// attempted. The stats site has shipped two structures over the years: the
// current fight-details listing and a legacy plain table.
func parseBouts(doc *goquery.Document) ([]Bout, []string) {
	strategies := []struct {
		name string
		fn   func(*goquery.Document) []Bout
	}{
		{"fight-details-listing", parseListingBouts},
		{"legacy-table", parseLegacyTableBouts},
	}

	tried := make([]string, 0, len(strategies))
	for _, strat := range strategies {
		tried = append(tried, strat.name)
		if bouts := strat.fn(doc); len(bouts) > 0 {
			return bouts, tried
		}
	}
	return nil, tried
}

// parseListingBouts handles the current page structure: one
// b-fight-details__table-row per bout, fighters as stacked table-text
// paragraphs, weight class in its own column.
func parseListingBouts(doc *goquery.Document) []Bout {
	var bouts []Bout

	doc.Find("tr.b-fight-details__table-row").Each(func(_ int, row *goquery.Selection) {
		var names []string
		row.Find("td.b-fight-details__table-col.l-page_align_left p.b-fight-details__table-text a").Each(func(_ int, a *goquery.Selection) {
			if name := strings.TrimSpace(a.Text()); name != "" {
				names = append(names, name)
			}
		})
		if len(names) < 2 {
			return
		}

		weightClass := "TBD"
		row.Find("td").Each(func(_ int, td *goquery.Selection) {
			if wc := ClassifyWeightClass(td.Text()); wc != "TBD" && weightClass == "TBD" {
				weightClass = wc
			}
		})

		bouts = append(bouts, Bout{
			Fighter1:    names[0],
			Fighter2:    names[1],
			WeightClass: weightClass,
		})
	})

	return bouts
}

// parseLegacyTableBouts handles the older plain-table structure: each row is
// a bout with both fighter names inside anchor cells and the weight class
// somewhere in the row text.
func parseLegacyTableBouts(doc *goquery.Document) []Bout {
	var bouts []Bout

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		var names []string
		row.Find("td a").Each(func(_ int, a *goquery.Selection) {
			name := strings.TrimSpace(a.Text())
			if name == "" || strings.EqualFold(name, "view matchup") {
				return
			}
			names = append(names, name)
		})
		if len(names) < 2 {
			return
		}

		bouts = append(bouts, Bout{
			Fighter1:    names[0],
			Fighter2:    names[1],
			WeightClass: ClassifyWeightClass(row.Text()),
		})
	})

	return bouts
}

// parseUpcoming extracts rows from the statistics events table. The first
// data cell carries the event link and date, the second the location.
func parseUpcoming(doc *goquery.Document, baseURL string) []UpcomingEvent {
	var events []UpcomingEvent

	doc.Find("tr.b-statistics__table-row").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a.b-link")
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		name := strings.TrimSpace(link.Text())
		if name == "" {
			return
		}

		date, ok := parseEventDate(row.Find("span.b-statistics__date").Text())
		if !ok {
			return
		}

		location := ""
		row.Find("td").Each(func(i int, td *goquery.Selection) {
			if i == 1 {
				location = strings.TrimSpace(td.Text())
			}
		})

		if !strings.HasPrefix(href, "http") {
			href = strings.TrimRight(baseURL, "/") + href
		}

		events = append(events, UpcomingEvent{
			Name:     name,
			Date:     date,
			Location: location,
			Link:     href,
		})
	})

	return events
}

// parseResults extracts finished bouts from a completed event page. A bout
// counts as finished only when its row carries a win flag; the flagged
// fighter is listed first in the fighter column.
func parseResults(doc *goquery.Document) []models.FightResult {
	var results []models.FightResult

	doc.Find("tr.b-fight-details__table-row").Each(func(_ int, row *goquery.Selection) {
		flag := strings.ToLower(strings.TrimSpace(row.Find("i.b-flag__text").First().Text()))
		if flag != "win" {
			return
		}

		var names []string
		row.Find("td.b-fight-details__table-col.l-page_align_left p.b-fight-details__table-text a").Each(func(_ int, a *goquery.Selection) {
			if name := strings.TrimSpace(a.Text()); name != "" {
				names = append(names, name)
			}
		})
		if len(names) < 2 {
			return
		}

		method := ""
		row.Find("td").Each(func(_ int, td *goquery.Selection) {
			if method != "" {
				return
			}
			text := strings.TrimSpace(td.Find("p").First().Text())
			if looksLikeMethod(text) {
				method = text
			}
		})

		results = append(results, models.FightResult{
			Winner: names[0],
			Loser:  names[1],
			Method: method,
		})
	})

	return results
}

// looksLikeMethod reports whether cell text names a finish method rather
// than a fighter, round number, or statistic.
func looksLikeMethod(text string) bool {
	if text == "" {
		return false
	}
	m := strings.ToUpper(text)
	for _, kw := range []string{"KO", "TKO", "SUB", "DEC", "DQ", "OVERTURNED", "CNC"} {
		if strings.Contains(m, kw) {
			return true
		}
	}
	return false
}

// eventDateLayouts are the date formats seen on the stats site, current
// first.
var eventDateLayouts = []string{
	"January 02, 2006",
	"January 2, 2006",
	"Jan 02, 2006",
	"2006-01-02",
}

func parseEventDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
