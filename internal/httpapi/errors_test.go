package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/qazna-labs/recordvault/internal/apperr"
)

func TestStatusForKindMapsEveryKind(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.BadRequest:      http.StatusBadRequest,
		apperr.Unprocessable:   http.StatusUnprocessableEntity,
		apperr.AuthInvalid:     http.StatusUnauthorized,
		apperr.AuthRevoked:     http.StatusUnauthorized,
		apperr.Forbidden:       http.StatusForbidden,
		apperr.NotFound:        http.StatusNotFound,
		apperr.Conflict:        http.StatusConflict,
		apperr.PayloadTooLarge: http.StatusRequestEntityTooLarge,
		apperr.TooManyRequests: http.StatusTooManyRequests,
		apperr.Timeout:         http.StatusServiceUnavailable,
		apperr.StorageError:    http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := statusForKind(kind); got != want {
			t.Errorf("statusForKind(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestWriteAppErrorIncludesRequestIDAndDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/record", nil)
	req = req.WithContext(withRequestID(req.Context(), "req-123"))

	err := apperr.New(apperr.Unprocessable, "bad column").WithDetails(map[string]any{"column": "amount"})
	writeAppError(rec, req, err)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var body map[string]any
	if decodeErr := json.NewDecoder(rec.Body).Decode(&body); decodeErr != nil {
		t.Fatalf("failed to decode response body: %v", decodeErr)
	}
	if body["request_id"] != "req-123" {
		t.Fatalf("expected request_id in body, got %v", body["request_id"])
	}
	if body["details"] == nil {
		t.Fatal("expected details to be included in body")
	}
}

func TestWriteErrorMessageOmitsRequestIDWhenAbsent(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/format", nil)

	writeErrorMessage(rec, req, http.StatusBadRequest, "bad request")

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if _, present := body["request_id"]; present {
		t.Fatal("expected no request_id key when none is set on the context")
	}
}

func TestPaginationParamsAppliesDefaultsAndCap(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/format?limit=500&offset=10", nil)
	limit, offset := paginationParams(req, 20, 100)
	if limit != 100 {
		t.Fatalf("expected limit capped at 100, got %d", limit)
	}
	if offset != 10 {
		t.Fatalf("expected offset 10, got %d", offset)
	}

	req = httptest.NewRequest(http.MethodGet, "/format", nil)
	limit, offset = paginationParams(req, 20, 100)
	if limit != 20 || offset != 0 {
		t.Fatalf("expected defaults 20/0, got %d/%d", limit, offset)
	}
}

// withRequestID is a small test seam mirroring RequestID's context wiring
// without needing to run the full middleware.
func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}
