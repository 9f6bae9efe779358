package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fightgenie/fightgenie/internal/database"
	"github.com/fightgenie/fightgenie/internal/models"
	"github.com/fightgenie/fightgenie/internal/scraper"
)

type mockScraper struct {
	cards      map[string][]scraper.Bout
	upcoming   []scraper.UpcomingEvent
	cardErr    error
	listingErr error
	cardCalls  int
}

func (m *mockScraper) FetchEventCard(ctx context.Context, link string) ([]scraper.Bout, error) {
	m.cardCalls++
	if m.cardErr != nil {
		return nil, m.cardErr
	}
	bouts, ok := m.cards[link]
	if !ok {
		return nil, &scraper.ParseMismatchError{URL: link, Strategies: []string{"fight-details-listing"}}
	}
	return bouts, nil
}

func (m *mockScraper) FetchUpcomingEvents(ctx context.Context) ([]scraper.UpcomingEvent, error) {
	if m.listingErr != nil {
		return nil, m.listingErr
	}
	return m.upcoming, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeBouts(n int) []scraper.Bout {
	bouts := make([]scraper.Bout, n)
	for i := range bouts {
		bouts[i] = scraper.Bout{
			Fighter1:    fmt.Sprintf("Fighter %dA", i),
			Fighter2:    fmt.Sprintf("Fighter %dB", i),
			WeightClass: "Lightweight",
			IsMainCard:  i < models.MainCardSize,
		}
	}
	return bouts
}

func seedEvent(t *testing.T, store *database.MemoryStore, name, link string, date time.Time) string {
	t.Helper()
	var fights []models.Fight
	for _, b := range makeBouts(10) {
		fights = append(fights, models.Fight{
			Fighter1:    b.Fighter1,
			Fighter2:    b.Fighter2,
			WeightClass: b.WeightClass,
			IsMainCard:  b.IsMainCard,
		})
	}
	id, err := store.CreateEventBatch(context.Background(), models.EventMeta{
		Name: name,
		Date: date,
		Link: link,
	}, fights)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func day(offset int) time.Time {
	return models.DateOnly(time.Now().UTC()).AddDate(0, 0, offset)
}

func TestGetUpcomingEventPrefersToday(t *testing.T) {
	store := database.NewMemoryStore()
	todayID := seedEvent(t, store, "UFC Tonight", "http://x/e1", day(0))
	seedEvent(t, store, "UFC Next Week", "http://x/e2", day(7))

	mgr := NewManager(store, &mockScraper{}, testLogger())

	got, err := mgr.GetUpcomingEvent(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != todayID {
		t.Fatalf("want today's event %s, got %+v", todayID, got)
	}
}

func TestGetUpcomingEventFallsBackToFuture(t *testing.T) {
	store := database.NewMemoryStore()
	nextID := seedEvent(t, store, "UFC Next Week", "http://x/e2", day(7))
	seedEvent(t, store, "UFC Next Month", "http://x/e3", day(30))

	mgr := NewManager(store, &mockScraper{}, testLogger())

	got, err := mgr.GetUpcomingEvent(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != nextID {
		t.Fatalf("want nearest future event %s, got %+v", nextID, got)
	}
}

func TestGetUpcomingEventTriggersDiscovery(t *testing.T) {
	store := database.NewMemoryStore()
	ms := &mockScraper{
		cards: map[string][]scraper.Bout{
			"http://x/new": makeBouts(11),
		},
		upcoming: []scraper.UpcomingEvent{
			{Name: "UFC Fight Night", Date: day(14), Location: "Las Vegas, Nevada, USA", Link: "http://x/new"},
		},
	}
	mgr := NewManager(store, ms, testLogger())

	got, err := mgr.GetUpcomingEvent(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Name != "UFC Fight Night" {
		t.Fatalf("discovery should produce the scraped event, got %+v", got)
	}
	if got.City != "Las Vegas" || got.State != "Nevada" || got.Country != "USA" {
		t.Fatalf("location not split: %+v", got)
	}

	fights, err := store.GetFights(context.Background(), got.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(fights) != 11 {
		t.Fatalf("discovered card has %d fights, want 11", len(fights))
	}
}

func TestAdvanceEventCompletesAndRefreshesNext(t *testing.T) {
	store := database.NewMemoryStore()
	dueID := seedEvent(t, store, "UFC Tonight", "http://x/due", day(0))
	nextID := seedEvent(t, store, "UFC Next", "http://x/next", day(7))

	// Cached prediction for the next event; refresh must not preserve it
	// under the new ID.
	if _, err := store.Create(context.Background(), models.StoredPrediction{
		EventID:  nextID,
		CardType: models.CardMain,
		Model:    models.ModelGPT,
		Data:     json.RawMessage(`{"fights":[]}`),
	}); err != nil {
		t.Fatal(err)
	}

	ms := &mockScraper{
		cards: map[string][]scraper.Bout{
			"http://x/next": makeBouts(12),
		},
	}
	mgr := NewManager(store, ms, testLogger())

	res, err := mgr.AdvanceEvent(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Advanced {
		t.Fatal("advance should complete the due event")
	}
	if res.CompletedEvent.ID != dueID {
		t.Fatalf("completed %s, want %s", res.CompletedEvent.ID, dueID)
	}
	if !res.RefreshedCard || res.NextEvent == nil {
		t.Fatalf("next card should be refreshed: %+v", res)
	}
	if res.NextEvent.ID == nextID {
		t.Fatal("refreshed card must get a fresh event ID")
	}

	completed, err := store.GetEvent(context.Background(), dueID)
	if err != nil {
		t.Fatal(err)
	}
	if !completed.Completed || completed.CompletedAt == nil {
		t.Fatalf("due event not marked completed: %+v", completed)
	}

	// Old next-event rows and its prediction are gone.
	old, err := store.GetEvent(context.Background(), nextID)
	if err != nil {
		t.Fatal(err)
	}
	if old != nil {
		t.Fatal("stale card rows should be deleted")
	}
	preds, err := store.ListByEvent(context.Background(), res.NextEvent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(preds) != 0 {
		t.Fatal("refreshed event must start with no cached predictions")
	}

	fights, err := store.GetFights(context.Background(), res.NextEvent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(fights) != 12 {
		t.Fatalf("refreshed card has %d fights, want 12", len(fights))
	}
}

func TestAdvanceEventWorksThroughBacklogInOrder(t *testing.T) {
	store := database.NewMemoryStore()
	oldID := seedEvent(t, store, "UFC Old", "http://x/old", day(-10))
	middleID := seedEvent(t, store, "UFC Middle", "http://x/middle", day(-5))
	futureID := seedEvent(t, store, "UFC Future", "http://x/future", day(7))

	ms := &mockScraper{
		cards: map[string][]scraper.Bout{
			"http://x/middle": makeBouts(10),
			"http://x/future": makeBouts(10),
		},
	}
	mgr := NewManager(store, ms, testLogger())
	ctx := context.Background()

	res, err := mgr.AdvanceEvent(ctx, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Advanced || res.CompletedEvent.ID != oldID {
		t.Fatalf("advance should complete the oldest due event: %+v", res)
	}

	// The next event on the timeline after the completed one is the
	// middle backlog event, not the future card.
	if res.NextEvent == nil || res.NextEvent.Name != "UFC Middle" {
		t.Fatalf("next event should be UFC Middle, got %+v", res.NextEvent)
	}
	if !res.RefreshedCard || res.NextEvent.ID == middleID {
		t.Fatalf("middle card should be refreshed under a new ID: %+v", res)
	}

	// The future event is untouched.
	future, err := store.GetEvent(ctx, futureID)
	if err != nil {
		t.Fatal(err)
	}
	if future == nil || future.Completed {
		t.Fatalf("future event must not be touched by a backlog advance: %+v", future)
	}
}

func TestAdvanceEventNoDueEventIsNoOp(t *testing.T) {
	store := database.NewMemoryStore()
	seedEvent(t, store, "UFC Next", "http://x/next", day(7))

	mgr := NewManager(store, &mockScraper{}, testLogger())

	res, err := mgr.AdvanceEvent(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if res.Advanced {
		t.Fatal("nothing due, advance must be a no-op")
	}
}

func TestAdvanceEventTwiceSecondIsNoOp(t *testing.T) {
	store := database.NewMemoryStore()
	seedEvent(t, store, "UFC Tonight", "http://x/due", day(0))

	ms := &mockScraper{cards: map[string][]scraper.Bout{}}
	mgr := NewManager(store, ms, testLogger())
	ctx := context.Background()

	first, err := mgr.AdvanceEvent(ctx, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if !first.Advanced {
		t.Fatal("first advance should complete the event")
	}

	second, err := mgr.AdvanceEvent(ctx, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if second.Advanced {
		t.Fatal("second advance must report a no-op")
	}
}

func TestAdvanceSurvivesRefreshFailure(t *testing.T) {
	store := database.NewMemoryStore()
	dueID := seedEvent(t, store, "UFC Tonight", "http://x/due", day(0))
	nextID := seedEvent(t, store, "UFC Next", "http://x/broken", day(7))

	// No card registered for the next link: refresh hits a parse mismatch.
	mgr := NewManager(store, &mockScraper{cards: map[string][]scraper.Bout{}}, testLogger())

	res, err := mgr.AdvanceEvent(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Advanced || res.CompletedEvent.ID != dueID {
		t.Fatalf("advance itself should succeed: %+v", res)
	}
	if res.RefreshedCard {
		t.Fatal("refresh failed, result must say so")
	}

	// The stale card survives.
	stale, err := store.GetEvent(context.Background(), nextID)
	if err != nil {
		t.Fatal(err)
	}
	if stale == nil {
		t.Fatal("failed refresh must not delete the stale card")
	}
}

type insertFailStore struct {
	*database.MemoryStore
	failInserts int
}

func (s *insertFailStore) CreateEventBatch(ctx context.Context, meta models.EventMeta, fights []models.Fight) (string, error) {
	if s.failInserts > 0 {
		s.failInserts--
		return "", fmt.Errorf("insert rejected")
	}
	return s.MemoryStore.CreateEventBatch(ctx, meta, fights)
}

func TestRefreshRestoresOldCardOnInsertFailure(t *testing.T) {
	mem := database.NewMemoryStore()
	id := seedEvent(t, mem, "UFC Next", "http://x/next", day(7))
	store := &insertFailStore{MemoryStore: mem, failInserts: 1}

	ms := &mockScraper{cards: map[string][]scraper.Bout{
		"http://x/next": makeBouts(12),
	}}
	mgr := NewManager(store, ms, testLogger())
	ctx := context.Background()

	if _, err := mgr.RefreshEventCard(ctx, id); err == nil {
		t.Fatal("refresh should report the failed insert")
	}

	// The event survives the failed swap with its original card and link.
	events, err := mem.ListEvents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("store has %d events after failed refresh, want 1", len(events))
	}
	restored := events[0]
	if restored.Name != "UFC Next" || restored.Link != "http://x/next" {
		t.Fatalf("restored event lost its identity: %+v", restored)
	}
	fights, err := mem.GetFights(ctx, restored.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(fights) != 10 {
		t.Fatalf("restored card has %d fights, want the original 10", len(fights))
	}
}

func TestRefreshUnknownEventIsNotFound(t *testing.T) {
	mgr := NewManager(database.NewMemoryStore(), &mockScraper{}, testLogger())

	_, err := mgr.RefreshEventCard(context.Background(), "no-such-id")
	if !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("want ErrEventNotFound, got %v", err)
	}

	_, err = mgr.RollbackEvent(context.Background(), "no-such-id")
	if !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("rollback: want ErrEventNotFound, got %v", err)
	}
}

func TestRollbackEvent(t *testing.T) {
	store := database.NewMemoryStore()
	firstID := seedEvent(t, store, "UFC 1", "http://x/e1", day(-14))
	secondID := seedEvent(t, store, "UFC 2", "http://x/e2", day(-7))
	ctx := context.Background()

	for _, id := range []string{firstID, secondID} {
		if _, err := store.MarkCompleted(ctx, id, time.Now().UTC()); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.Create(ctx, models.StoredPrediction{
		EventID:  secondID,
		CardType: models.CardMain,
		Model:    models.ModelClaude,
		Data:     json.RawMessage(`{"fights":[]}`),
	}); err != nil {
		t.Fatal(err)
	}

	mgr := NewManager(store, &mockScraper{}, testLogger())

	res, err := mgr.RollbackEvent(ctx, firstID)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.ResetEventIDs) != 2 {
		t.Fatalf("rollback reset %d events, want 2", len(res.ResetEventIDs))
	}

	for _, id := range []string{firstID, secondID} {
		e, err := store.GetEvent(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if e.Completed || e.CompletedAt != nil {
			t.Fatalf("event %s still completed after rollback", id)
		}
	}

	preds, err := store.ListByEvent(ctx, secondID)
	if err != nil {
		t.Fatal(err)
	}
	if len(preds) != 0 {
		t.Fatal("rollback must purge predictions for reset events")
	}
}

func TestRollbackThenAdvanceRestoresSameEvent(t *testing.T) {
	store := database.NewMemoryStore()
	dueID := seedEvent(t, store, "UFC Tonight", "http://x/due", day(0))

	mgr := NewManager(store, &mockScraper{cards: map[string][]scraper.Bout{}}, testLogger())
	ctx := context.Background()

	first, err := mgr.AdvanceEvent(ctx, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if !first.Advanced || first.CompletedEvent.ID != dueID {
		t.Fatalf("first advance: %+v", first)
	}

	if _, err := mgr.RollbackEvent(ctx, dueID); err != nil {
		t.Fatal(err)
	}

	// The rolled-back event is current again and the next advance picks
	// the exact same event.
	current, err := mgr.GetUpcomingEvent(ctx, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if current == nil || current.ID != dueID {
		t.Fatalf("after rollback current should be %s, got %+v", dueID, current)
	}

	second, err := mgr.AdvanceEvent(ctx, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if !second.Advanced || second.CompletedEvent.ID != dueID {
		t.Fatalf("re-advance should complete the same event: %+v", second)
	}
}

func TestRollbackUncompletedEventIsNoOp(t *testing.T) {
	store := database.NewMemoryStore()
	id := seedEvent(t, store, "UFC Next", "http://x/e1", day(7))

	mgr := NewManager(store, &mockScraper{}, testLogger())

	res, err := mgr.RollbackEvent(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.ResetEventIDs) != 0 {
		t.Fatal("rolling back an uncompleted event must be a no-op")
	}
}

func TestSyncUpcomingSkipsKnownAndSurvivesFailures(t *testing.T) {
	store := database.NewMemoryStore()
	seedEvent(t, store, "UFC Known", "http://x/known", day(7))

	ms := &mockScraper{
		cards: map[string][]scraper.Bout{
			"http://x/fresh": makeBouts(9),
		},
		upcoming: []scraper.UpcomingEvent{
			{Name: "UFC Known", Date: day(7), Link: "http://x/known"},
			{Name: "UFC Fresh", Date: day(14), Location: "Perth, Australia", Link: "http://x/fresh"},
			{Name: "UFC Broken", Date: day(21), Link: "http://x/broken"},
		},
	}
	mgr := NewManager(store, ms, testLogger())

	res, err := mgr.SyncUpcomingFromSource(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Discovered != 1 || res.Skipped != 1 || res.Failed != 1 {
		t.Fatalf("unexpected sync result: %+v", res)
	}

	events, err := store.ListEvents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("store has %d events, want 2", len(events))
	}

	for _, e := range events {
		if e.Name == "UFC Fresh" {
			if e.City != "Perth" || e.Country != "Australia" || e.State != "" {
				t.Fatalf("two-part location split wrong: %+v", e)
			}
		}
	}
}
