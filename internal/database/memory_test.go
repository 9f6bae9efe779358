package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fightgenie/fightgenie/internal/models"
)

func testCard(n int) []models.Fight {
	fights := make([]models.Fight, n)
	for i := range fights {
		fights[i] = models.Fight{
			Fighter1:    "Fighter A",
			Fighter2:    "Fighter B",
			WeightClass: "Lightweight",
			IsMainCard:  i < models.MainCardSize,
		}
	}
	return fights
}

func TestMemoryStore_SingleIDInvariant(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	meta := models.EventMeta{Name: "UFC Event X", Date: time.Date(2025, 9, 6, 0, 0, 0, 0, time.UTC)}
	eventID, err := store.CreateEventBatch(ctx, meta, testCard(12))
	if err != nil {
		t.Fatalf("CreateEventBatch failed: %v", err)
	}

	fights, err := store.GetFights(ctx, eventID)
	if err != nil {
		t.Fatalf("GetFights failed: %v", err)
	}
	if len(fights) != 12 {
		t.Fatalf("expected 12 fight rows, got %d", len(fights))
	}

	for i, f := range fights {
		if f.EventID != eventID {
			t.Errorf("fight %d has event_id %q, want %q", i, f.EventID, eventID)
		}
		wantMain := i < 5
		if f.IsMainCard != wantMain {
			t.Errorf("fight %d: IsMainCard = %v, want %v", i, f.IsMainCard, wantMain)
		}
	}

	// A second batch must get its own ID
	otherID, err := store.CreateEventBatch(ctx, models.EventMeta{Name: "UFC Event Y", Date: meta.Date.AddDate(0, 0, 7)}, testCard(10))
	if err != nil {
		t.Fatalf("second CreateEventBatch failed: %v", err)
	}
	if otherID == eventID {
		t.Error("two batches shared one event_id")
	}
}

func TestMemoryStore_EmptyBatchRejected(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.CreateEventBatch(context.Background(), models.EventMeta{Name: "Empty"}, nil)
	if err == nil {
		t.Fatal("expected empty batch to be rejected")
	}
}

func TestMemoryStore_CascadeCompleteness(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	eventID, err := store.CreateEventBatch(ctx, models.EventMeta{Name: "UFC Event X", Date: time.Now()}, testCard(5))
	if err != nil {
		t.Fatalf("CreateEventBatch failed: %v", err)
	}

	pred, err := store.Create(ctx, models.StoredPrediction{
		EventID:  eventID,
		CardType: models.CardMain,
		Model:    models.ModelGPT,
		Data:     json.RawMessage(`{"fights":[]}`),
	})
	if err != nil {
		t.Fatalf("Create prediction failed: %v", err)
	}
	if err := store.CreateOutcome(ctx, models.PredictionOutcome{PredictionID: pred.ID, EventID: eventID}); err != nil {
		t.Fatalf("CreateOutcome failed: %v", err)
	}

	if err := store.DeleteEventCascade(ctx, eventID); err != nil {
		t.Fatalf("DeleteEventCascade failed: %v", err)
	}

	if meta, _ := store.GetEvent(ctx, eventID); meta != nil {
		t.Error("event rows survived cascade delete")
	}
	if p, _ := store.Get(ctx, eventID, models.CardMain, models.ModelGPT); p != nil {
		t.Error("prediction survived cascade delete")
	}
	if o, _ := store.GetOutcomeByPrediction(ctx, pred.ID); o != nil {
		t.Error("outcome survived cascade delete")
	}
}

func TestMemoryStore_RollbackResetsLaterEvents(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 9, 6, 0, 0, 0, 0, time.UTC)

	first, _ := store.CreateEventBatch(ctx, models.EventMeta{Name: "Event 1", Date: base}, testCard(5))
	second, _ := store.CreateEventBatch(ctx, models.EventMeta{Name: "Event 2", Date: base.AddDate(0, 0, 7)}, testCard(5))

	store.MarkCompleted(ctx, first, base)
	store.MarkCompleted(ctx, second, base.AddDate(0, 0, 7))

	if _, err := store.Create(ctx, models.StoredPrediction{
		EventID: second, CardType: models.CardMain, Model: models.ModelClaude,
		Data: json.RawMessage(`{}`),
	}); err != nil {
		t.Fatalf("Create prediction failed: %v", err)
	}

	affected, err := store.RollbackCompletion(ctx, first)
	if err != nil {
		t.Fatalf("RollbackCompletion failed: %v", err)
	}
	if len(affected) != 2 {
		t.Fatalf("expected 2 affected events, got %d", len(affected))
	}

	for _, id := range []string{first, second} {
		meta, _ := store.GetEvent(ctx, id)
		if meta == nil || meta.Completed {
			t.Errorf("event %s should be back to scheduled", id)
		}
	}

	if p, _ := store.Get(ctx, second, models.CardMain, models.ModelClaude); p != nil {
		t.Error("prediction for rolled-back event should be purged")
	}
}

func TestMemoryStore_MarkCompletedIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	eventID, _ := store.CreateEventBatch(ctx, models.EventMeta{Name: "Event", Date: time.Now()}, testCard(3))

	changed, err := store.MarkCompleted(ctx, eventID, time.Now())
	if err != nil || !changed {
		t.Fatalf("first MarkCompleted: changed=%v err=%v", changed, err)
	}

	changed, err = store.MarkCompleted(ctx, eventID, time.Now())
	if err != nil {
		t.Fatalf("second MarkCompleted errored: %v", err)
	}
	if changed {
		t.Error("second MarkCompleted should be a no-op")
	}
}

func TestMemoryStore_ListUngradedEvents(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	past := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	today := time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)

	eventID, _ := store.CreateEventBatch(ctx, models.EventMeta{Name: "Past Event", Date: past}, testCard(3))
	futureID, _ := store.CreateEventBatch(ctx, models.EventMeta{Name: "Future Event", Date: today.AddDate(0, 0, 7)}, testCard(3))

	store.Create(ctx, models.StoredPrediction{EventID: eventID, CardType: models.CardMain, Model: models.ModelGPT, Data: json.RawMessage(`{}`)})
	store.Create(ctx, models.StoredPrediction{EventID: futureID, CardType: models.CardMain, Model: models.ModelGPT, Data: json.RawMessage(`{}`)})

	ids, err := store.ListUngradedEvents(ctx, today)
	if err != nil {
		t.Fatalf("ListUngradedEvents failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != eventID {
		t.Errorf("expected only the past event, got %v", ids)
	}
}
