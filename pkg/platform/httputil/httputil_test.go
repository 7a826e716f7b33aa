package httputil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "flightsurety/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})
}

func TestStatusFor(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeNotOperational:      http.StatusServiceUnavailable,
		dErrors.CodeUnauthorized:        http.StatusUnauthorized,
		dErrors.CodeUnfunded:            http.StatusForbidden,
		dErrors.CodeIndexMismatch:       http.StatusForbidden,
		dErrors.CodeFlightNotRegistered: http.StatusNotFound,
		dErrors.CodeNoActivePolicy:      http.StatusNotFound,
		dErrors.CodeAlreadySettled:      http.StatusConflict,
		dErrors.CodeFlightNotDelayed:    http.StatusConflict,
		dErrors.CodeInsufficientFee:     http.StatusPaymentRequired,
		dErrors.CodePremiumCapExceeded:  http.StatusUnprocessableEntity,
		dErrors.Code("unmapped"):        http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := StatusFor(code); got != want {
			t.Errorf("StatusFor(%s) = %d, want %d", code, got, want)
		}
	}
}

type amountBody struct {
	Amount string `json:"amount"`
}

func (b *amountBody) Validate() error {
	if b.Amount == "" {
		return dErrors.New(dErrors.CodeValidation, "amount is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	ctx := context.Background()

	t.Run("valid body", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"10"}`))
		body, ok := DecodeAndPrepare[amountBody](w, r, nil, ctx, "req-1")
		if !ok || body.Amount != "10" {
			t.Fatalf("expected decoded body, got ok=%v body=%+v", ok, body)
		}
	})

	t.Run("unknown field is a bad request", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"10","extra":1}`))
		if _, ok := DecodeAndPrepare[amountBody](w, r, nil, ctx, "req-1"); ok {
			t.Fatal("expected decode failure")
		}
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		if _, ok := DecodeAndPrepare[amountBody](w, r, nil, ctx, "req-1"); ok {
			t.Fatal("expected validation failure")
		}
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", w.Code)
		}
	})
}
