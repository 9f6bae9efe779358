package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func cardPage(boutCount int) string {
	page := `<html><body><table class="b-fight-details__table"><tbody>`
	for i := 0; i < boutCount; i++ {
		page += fmt.Sprintf(`
<tr class="b-fight-details__table-row">
  <td class="b-fight-details__table-col l-page_align_left">
    <p class="b-fight-details__table-text"><a href="#">Fighter A%d</a></p>
    <p class="b-fight-details__table-text"><a href="#">Fighter B%d</a></p>
  </td>
  <td class="b-fight-details__table-col"><p>Lightweight Bout</p></td>
</tr>`, i, i)
	}
	return page + `</tbody></table></body></html>`
}

func TestFetchEventCard_MainCardIsPositional(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, cardPage(12))
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	bouts, err := s.FetchEventCard(context.Background(), srv.URL+"/event-details/test")
	if err != nil {
		t.Fatalf("FetchEventCard failed: %v", err)
	}

	if len(bouts) != 12 {
		t.Fatalf("expected 12 bouts, got %d", len(bouts))
	}
	for i, bout := range bouts {
		wantMain := i < 5
		if bout.IsMainCard != wantMain {
			t.Errorf("bout %d: IsMainCard = %v, want %v", i, bout.IsMainCard, wantMain)
		}
	}
}

func TestFetchEventCard_ParseMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>nothing here</p></body></html>`)
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	_, err := s.FetchEventCard(context.Background(), srv.URL+"/event-details/test")

	if !IsParseMismatch(err) {
		t.Fatalf("expected ParseMismatchError, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("parse mismatch must not be retryable")
	}
}

func TestFetchEventCard_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	_, err := s.FetchEventCard(context.Background(), srv.URL+"/event-details/test")

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("5xx fetch failure should be retryable")
	}
	if fe.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", fe.StatusCode)
	}
}

func TestFetchEventCard_NotFoundIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	_, err := s.FetchEventCard(context.Background(), srv.URL+"/event-details/gone")

	if err == nil || IsRetryable(err) {
		t.Fatalf("expected non-retryable fetch failure, got %v", err)
	}
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		BackoffFactor:  2.0,
	}

	attempts := 0
	err := Retry(context.Background(), policy, func() error {
		attempts++
		return &ParseMismatchError{URL: "x"}
	})

	if !IsParseMismatch(err) {
		t.Fatalf("expected parse mismatch to propagate, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt for non-retryable error, got %d", attempts)
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		BackoffFactor:  2.0,
	}

	attempts := 0
	err := Retry(context.Background(), policy, func() error {
		attempts++
		if attempts < 3 {
			return &FetchError{URL: "x", Retryable: true, Err: errors.New("connection reset")}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}
