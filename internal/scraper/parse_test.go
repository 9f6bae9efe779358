package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const listingPage = `
<html><body>
<table class="b-fight-details__table">
<tbody>
<tr class="b-fight-details__table-row">
  <td class="b-fight-details__table-col"><i class="b-flag__text">win</i></td>
  <td class="b-fight-details__table-col l-page_align_left">
    <p class="b-fight-details__table-text"><a href="#">Alex Pereira</a></p>
    <p class="b-fight-details__table-text"><a href="#">Magomed Ankalaev</a></p>
  </td>
  <td class="b-fight-details__table-col"><p>Light Heavyweight Bout</p></td>
  <td class="b-fight-details__table-col"><p>KO/TKO</p></td>
</tr>
<tr class="b-fight-details__table-row">
  <td class="b-fight-details__table-col"><i class="b-flag__text">win</i></td>
  <td class="b-fight-details__table-col l-page_align_left">
    <p class="b-fight-details__table-text"><a href="#">Merab Dvalishvili</a></p>
    <p class="b-fight-details__table-text"><a href="#">Sean O'Malley</a></p>
  </td>
  <td class="b-fight-details__table-col"><p>Bantamweight Bout</p></td>
  <td class="b-fight-details__table-col"><p>U-DEC</p></td>
</tr>
</tbody>
</table>
</body></html>`

const legacyPage = `
<html><body>
<table>
<tr><th>Fight</th></tr>
<tr>
  <td><a href="#">Jan Blachowicz</a></td>
  <td><a href="#">Carlos Ulberg</a></td>
  <td>Light Heavyweight</td>
</tr>
<tr>
  <td><a href="#">Jack Della Maddalena</a></td>
  <td><a href="#">Belal Muhammad</a></td>
  <td>Welterweight</td>
</tr>
</table>
</body></html>`

const emptyPage = `<html><body><div class="b-content">Event details pending</div></body></html>`

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to build document: %v", err)
	}
	return doc
}

func TestParseBouts_ListingLayout(t *testing.T) {
	bouts, strategies := parseBouts(docFrom(t, listingPage))

	if len(bouts) != 2 {
		t.Fatalf("expected 2 bouts, got %d", len(bouts))
	}
	if len(strategies) != 1 || strategies[0] != "fight-details-listing" {
		t.Errorf("expected listing strategy to win first, tried %v", strategies)
	}

	if bouts[0].Fighter1 != "Alex Pereira" || bouts[0].Fighter2 != "Magomed Ankalaev" {
		t.Errorf("unexpected first bout: %+v", bouts[0])
	}
	if bouts[0].WeightClass != "Light Heavyweight" {
		t.Errorf("expected Light Heavyweight, got %q", bouts[0].WeightClass)
	}
	if bouts[1].WeightClass != "Bantamweight" {
		t.Errorf("expected Bantamweight, got %q", bouts[1].WeightClass)
	}
}

func TestParseBouts_LegacyFallback(t *testing.T) {
	bouts, strategies := parseBouts(docFrom(t, legacyPage))

	if len(bouts) != 2 {
		t.Fatalf("expected 2 bouts from legacy layout, got %d", len(bouts))
	}
	if len(strategies) != 2 || strategies[1] != "legacy-table" {
		t.Errorf("expected fallback to legacy-table, tried %v", strategies)
	}
	if bouts[0].Fighter1 != "Jan Blachowicz" || bouts[0].Fighter2 != "Carlos Ulberg" {
		t.Errorf("unexpected first bout: %+v", bouts[0])
	}
	if bouts[1].WeightClass != "Welterweight" {
		t.Errorf("expected Welterweight, got %q", bouts[1].WeightClass)
	}
}

func TestParseBouts_NoFights(t *testing.T) {
	bouts, strategies := parseBouts(docFrom(t, emptyPage))
	if len(bouts) != 0 {
		t.Fatalf("expected no bouts, got %d", len(bouts))
	}
	if len(strategies) != 2 {
		t.Errorf("expected both strategies attempted, tried %v", strategies)
	}
}

func TestParseResults(t *testing.T) {
	results := parseResults(docFrom(t, listingPage))

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Winner != "Alex Pereira" || results[0].Loser != "Magomed Ankalaev" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if results[0].Method != "KO/TKO" {
		t.Errorf("expected KO/TKO, got %q", results[0].Method)
	}
	if results[1].Method != "U-DEC" {
		t.Errorf("expected U-DEC, got %q", results[1].Method)
	}
}

func TestParseUpcoming(t *testing.T) {
	const page = `
<html><body>
<table>
<tr class="b-statistics__table-row">
  <td><a class="b-link" href="/event-details/abc123">UFC 310: Pantoja vs Asakura</a>
      <span class="b-statistics__date">December 07, 2024</span></td>
  <td>Las Vegas, Nevada, USA</td>
</tr>
</table>
</body></html>`

	events := parseUpcoming(docFrom(t, page), "http://ufcstats.com")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	ev := events[0]
	if ev.Name != "UFC 310: Pantoja vs Asakura" {
		t.Errorf("unexpected name %q", ev.Name)
	}
	if ev.Link != "http://ufcstats.com/event-details/abc123" {
		t.Errorf("relative link not resolved: %q", ev.Link)
	}
	if ev.Date.Year() != 2024 || ev.Date.Month() != 12 || ev.Date.Day() != 7 {
		t.Errorf("unexpected date %v", ev.Date)
	}
	if ev.Location != "Las Vegas, Nevada, USA" {
		t.Errorf("unexpected location %q", ev.Location)
	}
}

func TestClassifyWeightClass(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Light Heavyweight Bout", "Light Heavyweight"},
		{"Heavyweight Title Bout", "Heavyweight"},
		{"Women's Bantamweight Bout", "Women's Bantamweight"},
		{"Bantamweight Bout", "Bantamweight"},
		{"Catch Weight Bout (158 lbs)", "Catch Weight"},
		{"Round 3", "TBD"},
		{"", "TBD"},
	}

	for _, tt := range tests {
		if got := ClassifyWeightClass(tt.text); got != tt.want {
			t.Errorf("ClassifyWeightClass(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
