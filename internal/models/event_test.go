package models

import (
	"testing"
	"time"
)

func TestFighterPairKey(t *testing.T) {
	a := FighterPairKey("Jon Jones", "Stipe Miocic")
	b := FighterPairKey("Stipe  Miocic", "JON JONES")
	if a != b {
		t.Errorf("pair key should be order- and case-insensitive: %q vs %q", a, b)
	}

	c := FighterPairKey("Jon Jones", "Ciryl Gane")
	if a == c {
		t.Errorf("distinct pairings produced identical key %q", a)
	}
}

func TestParseCardType(t *testing.T) {
	if c, ok := ParseCardType(" Main "); !ok || c != CardMain {
		t.Errorf("ParseCardType(Main) = %q, %v", c, ok)
	}
	if c, ok := ParseCardType("prelims"); !ok || c != CardPrelims {
		t.Errorf("ParseCardType(prelims) = %q, %v", c, ok)
	}
	if _, ok := ParseCardType("co-main"); ok {
		t.Error("expected co-main to be rejected")
	}
}

func TestParsePredictionModel(t *testing.T) {
	if m, ok := ParsePredictionModel("GPT"); !ok || m != ModelGPT {
		t.Errorf("ParsePredictionModel(GPT) = %q, %v", m, ok)
	}
	if m, ok := ParsePredictionModel("claude"); !ok || m != ModelClaude {
		t.Errorf("ParsePredictionModel(claude) = %q, %v", m, ok)
	}
	if _, ok := ParsePredictionModel("gemini"); ok {
		t.Error("expected gemini to be rejected")
	}
}

func TestSameDay(t *testing.T) {
	morning := time.Date(2025, 9, 6, 3, 0, 0, 0, time.UTC)
	night := time.Date(2025, 9, 6, 23, 59, 0, 0, time.UTC)
	nextDay := time.Date(2025, 9, 7, 0, 0, 0, 0, time.UTC)

	if !SameDay(morning, night) {
		t.Error("same calendar day not recognized")
	}
	if SameDay(night, nextDay) {
		t.Error("midnight boundary not respected")
	}
}

func TestSubscriptionActiveAt(t *testing.T) {
	now := time.Date(2025, 9, 6, 12, 0, 0, 0, time.UTC)
	dayAfter := time.Date(2025, 9, 7, 0, 0, 0, 0, time.UTC)

	lifetime := ServerSubscription{ServerID: "g1", Type: SubscriptionLifetime, Status: "ACTIVE"}
	if !lifetime.ActiveAt(now.Add(10 * 365 * 24 * time.Hour)) {
		t.Error("lifetime subscription should never expire")
	}

	event := ServerSubscription{ServerID: "g2", Type: SubscriptionEvent, Status: "ACTIVE", ExpirationDate: &dayAfter}
	if !event.ActiveAt(now) {
		t.Error("event subscription should be active on event day")
	}
	if event.ActiveAt(dayAfter) {
		t.Error("event subscription should expire the day after the event")
	}

	canceled := ServerSubscription{ServerID: "g3", Type: SubscriptionLifetime, Status: "CANCELED"}
	if canceled.ActiveAt(now) {
		t.Error("non-active status should not grant access")
	}
}
