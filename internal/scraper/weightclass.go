package scraper

import "strings"

// weightClasses lists the keywords checked against cell text, most specific
// first so "Light Heavyweight" is not claimed by "Heavyweight" and the
// women's divisions are not claimed by the men's.
var weightClasses = []struct {
	keyword string
	class   string
}{
	{"women's strawweight", "Women's Strawweight"},
	{"women's flyweight", "Women's Flyweight"},
	{"women's bantamweight", "Women's Bantamweight"},
	{"women's featherweight", "Women's Featherweight"},
	{"light heavyweight", "Light Heavyweight"},
	{"heavyweight", "Heavyweight"},
	{"middleweight", "Middleweight"},
	{"welterweight", "Welterweight"},
	{"lightweight", "Lightweight"},
	{"featherweight", "Featherweight"},
	{"bantamweight", "Bantamweight"},
	{"flyweight", "Flyweight"},
	{"strawweight", "Strawweight"},
	{"catch", "Catch Weight"},
	{"open weight", "Open Weight"},
}

// ClassifyWeightClass maps raw cell text to a canonical weight class name,
// returning "TBD" when nothing matches. All weight-class detection in the
// codebase goes through this one classifier.
func ClassifyWeightClass(cellText string) string {
	text := strings.ToLower(cellText)

	for _, wc := range weightClasses {
		if strings.Contains(text, wc.keyword) {
			return wc.class
		}
	}

	return "TBD"
}
