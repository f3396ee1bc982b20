package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	dErrors "outreach/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("uncoded error hides its message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body Envelope
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.Success {
			t.Fatalf("expected success=false")
		}
		if body.Message != "internal error" {
			t.Fatalf("expected generic message for uncoded error, got %q", body.Message)
		}
		if body.Status != http.StatusInternalServerError {
			t.Fatalf("expected status field %d, got %d", http.StatusInternalServerError, body.Status)
		}
	})

	t.Run("coded error keeps its message and classification", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeNotFound, "program not found"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body Envelope
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.Message != "program not found" {
			t.Fatalf("expected message to be returned, got %q", body.Message)
		}
		if body.Status != http.StatusBadRequest {
			t.Fatalf("expected status field %d, got %d", http.StatusBadRequest, body.Status)
		}
	})
}

func TestWriteResult(t *testing.T) {
	w := httptest.NewRecorder()
	WriteResult(w, "programs fetched", map[string]string{"id": "abc"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body Envelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Success || body.Message != "programs fetched" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if body.Status != 0 {
		t.Fatalf("success envelope should omit status, got %d", body.Status)
	}
}
