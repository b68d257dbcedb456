package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

// ---------------------------------------------------------------------------
// Template Engine Tests
// ---------------------------------------------------------------------------

func TestTemplateEngine_BuiltInKinds(t *testing.T) {
	eng := NewTemplateEngine()
	for _, kind := range []Kind{KindConfirmed, KindChanged, KindPostponed, KindReminder} {
		_, body, err := eng.Render(kind, map[string]string{
			"surgery_type": "appendectomy",
			"date":         "2026-03-02",
			"time":         "09:00",
			"room":         "OR-1",
			"reason":       "an emergency",
		})
		if err != nil {
			t.Errorf("built-in template for %q missing: %v", kind, err)
		}
		if strings.Contains(body, "{{") {
			t.Errorf("template for %q left placeholders unrendered: %q", kind, body)
		}
	}
}

func TestTemplateEngine_RenderMissingKind(t *testing.T) {
	eng := NewTemplateEngine()
	if _, _, err := eng.Render(Kind("carrier-pigeon"), nil); err == nil {
		t.Fatal("expected error for missing template, got nil")
	}
}

func TestTemplateEngine_MissingKeysLeftAsIs(t *testing.T) {
	eng := NewTemplateEngine()
	eng.RegisterTemplate(Template{
		Kind:    KindReminder,
		Subject: "Hi {{name}}",
		Body:    "Your slot is {{slot}} in {{room}}.",
	})

	subject, body, err := eng.Render(KindReminder, map[string]string{
		"name": "Bob",
		"slot": "09:00",
		// "room" deliberately missing
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Hi Bob" {
		t.Errorf("subject = %q, want %q", subject, "Hi Bob")
	}
	if !strings.Contains(body, "{{room}}") {
		t.Errorf("missing keys must stay as placeholders, got %q", body)
	}
}

// ---------------------------------------------------------------------------
// Outbox Tests
// ---------------------------------------------------------------------------

func TestOutbox_EmitDispatches(t *testing.T) {
	mock := &MockDispatcher{}
	out := NewOutbox(mock, NewTemplateEngine())

	intent, err := out.Emit(context.Background(), KindPostponed, "P1", "S1", map[string]string{
		"surgery_type": "hernia-repair",
		"reason":       "a declared emergency",
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if intent.Status != "dispatched" || intent.DispatchedAt == nil {
		t.Errorf("expected dispatched intent, got %+v", intent)
	}
	if got := mock.Dispatched(); len(got) != 1 || got[0].PatientID != "P1" {
		t.Errorf("dispatcher should have received the intent, got %+v", got)
	}
	if !strings.Contains(intent.Body, "hernia-repair") {
		t.Errorf("body should carry the rendered payload, got %q", intent.Body)
	}
}

func TestOutbox_RejectsUnknownKind(t *testing.T) {
	out := NewOutbox(&MockDispatcher{}, NewTemplateEngine())
	if _, err := out.Emit(context.Background(), Kind("smoke-signal"), "P1", "", nil); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestOutbox_FailedDispatchIsRecordedAndRetried(t *testing.T) {
	mock := &MockDispatcher{ShouldFail: true, FailError: "gateway down"}
	out := NewOutbox(mock, NewTemplateEngine())

	intent, err := out.Emit(context.Background(), KindConfirmed, "P1", "S1", nil)
	if err == nil {
		t.Fatal("expected dispatch error")
	}
	if intent.Status != "failed" || intent.Error != "gateway down" {
		t.Fatalf("expected recorded failure, got %+v", intent)
	}

	mock.ShouldFail = false
	if err := out.Retry(context.Background(), intent.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	got, _ := out.Get(intent.ID)
	if got.Status != "dispatched" || got.Error != "" {
		t.Errorf("retry should clear the failure, got %+v", got)
	}

	// A dispatched intent is not retryable.
	if err := out.Retry(context.Background(), intent.ID); err == nil {
		t.Error("expected error retrying a dispatched intent")
	}
}

func TestOutbox_StatsAndListByPatient(t *testing.T) {
	out := NewOutbox(&MockDispatcher{}, NewTemplateEngine())
	ctx := context.Background()
	out.Emit(ctx, KindConfirmed, "P1", "S1", nil)
	out.Emit(ctx, KindReminder, "P1", "S1", nil)
	out.Emit(ctx, KindConfirmed, "P2", "S2", nil)

	if got := out.Stats()["dispatched"]; got != 3 {
		t.Errorf("expected 3 dispatched, got %d", got)
	}
	if got := out.ListByPatient("P1", 10); len(got) != 2 {
		t.Errorf("expected 2 intents for P1, got %d", len(got))
	}
}

// ---------------------------------------------------------------------------
// HTTP Handler Tests
// ---------------------------------------------------------------------------

func TestHandler_GetAndList(t *testing.T) {
	out := NewOutbox(&MockDispatcher{}, NewTemplateEngine())
	intent, _ := out.Emit(context.Background(), KindConfirmed, "P1", "S1", nil)
	h := NewHandler(out)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/notifications/"+intent.ID, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/notifications/:id")
	c.SetParamNames("id")
	c.SetParamValues(intent.ID)
	if err := h.HandleGet(c); err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var got Intent
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PatientID != "P1" {
		t.Errorf("expected patient P1, got %s", got.PatientID)
	}

	req = httptest.NewRequest(http.MethodGet, "/notifications?patient_id=P1", nil)
	rec = httptest.NewRecorder()
	if err := h.HandleList(e.NewContext(req, rec)); err != nil {
		t.Fatalf("list: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	// Missing patient_id is a bad request.
	req = httptest.NewRequest(http.MethodGet, "/notifications", nil)
	rec = httptest.NewRecorder()
	h.HandleList(e.NewContext(req, rec))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without patient_id, got %d", rec.Code)
	}
}
