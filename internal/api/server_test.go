package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"pocketbank/internal/game"
)

func TestWriteDomainErrorStatusMapping(t *testing.T) {
	_, badListing := game.NewMarketListing(1, "thing", -5, "", "")

	cases := []struct {
		err  error
		want int
	}{
		{game.ErrInvalidInput, http.StatusBadRequest},
		{game.ValidateUsername("bad name"), http.StatusBadRequest},
		{badListing, http.StatusBadRequest},
		{game.ErrListingUnavailable, http.StatusBadRequest},
		{game.ErrInsufficientFunds, http.StatusBadRequest},
		{game.ErrUserNotFound, http.StatusNotFound},
		{game.ErrUsernameTaken, http.StatusConflict},
		{game.ErrDuplicateIdempotency, http.StatusConflict},
		{game.ErrTxConflict, http.StatusConflict},
		{game.ErrBuyerMissing, http.StatusInternalServerError},
		{fmt.Errorf("connection reset"), http.StatusInternalServerError},
		{fmt.Errorf("settle: %w", game.ErrInsufficientFunds), http.StatusBadRequest},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		writeDomainError(rec, c.err)
		if rec.Code != c.want {
			t.Errorf("writeDomainError(%v) status = %d, want %d", c.err, rec.Code, c.want)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("writeDomainError(%v) content type = %q", c.err, ct)
		}
	}
}

func TestIdempotencyKeyHeaderWins(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/users", nil)
	req.Header.Set("Idempotency-Key", "  client-key-1  ")
	if got := idempotencyKey(req); got != "client-key-1" {
		t.Errorf("idempotencyKey = %q, want trimmed header value", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/users", nil)
	first := idempotencyKey(req)
	second := idempotencyKey(req)
	if first == "" || second == "" {
		t.Fatal("generated key must not be empty")
	}
	if first == second {
		t.Error("generated keys must be unique per call")
	}
}
