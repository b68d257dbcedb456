// Package notification is the outbound side of the scheduler: it records
// notification intents (confirmed, changed, postponed, reminder), renders
// patient-facing messages from templates, and hands them to an external
// dispatcher. Delivery mechanics, channels and retries beyond a single
// re-dispatch belong to that collaborator, not to this package.
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Intent Types
// ---------------------------------------------------------------------------

// Kind classifies a notification intent.
type Kind string

const (
	KindConfirmed Kind = "confirmed"
	KindChanged   Kind = "changed"
	KindPostponed Kind = "postponed"
	KindReminder  Kind = "reminder"
)

var validKinds = map[Kind]bool{
	KindConfirmed: true, KindChanged: true, KindPostponed: true, KindReminder: true,
}

// ---------------------------------------------------------------------------
// Intent
// ---------------------------------------------------------------------------

// Intent is one outbound notification record. The payload holds the
// template data used to render the message.
type Intent struct {
	ID           string            `json:"id"`
	Kind         Kind              `json:"kind"`
	PatientID    string            `json:"patient_id"`
	SurgeryID    string            `json:"surgery_id,omitempty"`
	Subject      string            `json:"subject,omitempty"`
	Body         string            `json:"body"`
	Payload      map[string]string `json:"payload,omitempty"`
	Status       string            `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	DispatchedAt *time.Time        `json:"dispatched_at,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// ---------------------------------------------------------------------------
// Dispatcher Interface
// ---------------------------------------------------------------------------

// Dispatcher delivers a rendered intent. Implementations own channel
// selection, retries and the delivery SLA.
type Dispatcher interface {
	Dispatch(ctx context.Context, intent *Intent) error
}

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

// Template defines a reusable message template per intent kind.
type Template struct {
	Kind    Kind   `json:"kind"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TemplateEngine renders intent messages with {{key}} replacement.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[Kind]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates
// pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[Kind]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			Kind:    KindConfirmed,
			Subject: "Surgery Scheduled",
			Body:    "Your {{surgery_type}} has been scheduled for {{date}} at {{time}} in room {{room}}.",
		},
		{
			Kind:    KindChanged,
			Subject: "Surgery Rescheduled",
			Body:    "Your {{surgery_type}} has been moved to {{date}} at {{time}} in room {{room}}.",
		},
		{
			Kind:    KindPostponed,
			Subject: "Surgery Postponed",
			Body:    "Due to {{reason}}, your {{surgery_type}} has been postponed. A new slot will be confirmed shortly.",
		},
		{
			Kind:    KindReminder,
			Subject: "Surgery Reminder",
			Body:    "Reminder: your {{surgery_type}} is scheduled for {{date}} at {{time}}. Please arrive one hour early.",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.Kind] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.Kind] = &t
}

// Render looks up the template for a kind and performs {{key}} replacement
// using the supplied data map. Keys present in the template but absent from
// data are left as-is.
func (e *TemplateEngine) Render(kind Kind, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[kind]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("no template for kind %q", kind)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// ---------------------------------------------------------------------------
// Log Dispatcher
// ---------------------------------------------------------------------------

// LogDispatcher writes rendered intents to the structured log. It stands in
// for an SMS or email gateway in deployments that have none configured.
type LogDispatcher struct {
	logger zerolog.Logger
}

func NewLogDispatcher(logger zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(_ context.Context, intent *Intent) error {
	d.logger.Info().
		Str("kind", string(intent.Kind)).
		Str("patient_id", intent.PatientID).
		Str("subject", intent.Subject).
		Str("body", intent.Body).
		Msg("notification dispatched")
	return nil
}

// ---------------------------------------------------------------------------
// Mock Dispatcher (test double)
// ---------------------------------------------------------------------------

// MockDispatcher records dispatched intents for assertions.
type MockDispatcher struct {
	mu         sync.Mutex
	dispatched []Intent
	ShouldFail bool
	FailError  string
}

// Dispatch records the intent and optionally returns an error.
func (m *MockDispatcher) Dispatch(_ context.Context, intent *Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatched = append(m.dispatched, *intent)
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Dispatched returns a copy of the recorded intents.
func (m *MockDispatcher) Dispatched() []Intent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Intent, len(m.dispatched))
	copy(out, m.dispatched)
	return out
}

// ---------------------------------------------------------------------------
// Outbox
// ---------------------------------------------------------------------------

// Outbox renders, records and dispatches notification intents. Records are
// kept in memory; the schedule itself is the durable artifact, intents are
// operational exhaust.
type Outbox struct {
	dispatcher Dispatcher
	templates  *TemplateEngine
	mu         sync.RWMutex
	intents    map[string]*Intent
}

// NewOutbox constructs an Outbox.
func NewOutbox(d Dispatcher, tpl *TemplateEngine) *Outbox {
	return &Outbox{
		dispatcher: d,
		templates:  tpl,
		intents:    make(map[string]*Intent),
	}
}

// Emit renders the template for the intent kind, records the intent and
// hands it to the dispatcher. The intent is recorded even when dispatch
// fails, so it can be retried.
func (o *Outbox) Emit(ctx context.Context, kind Kind, patientID, surgeryID string, payload map[string]string) (*Intent, error) {
	if !validKinds[kind] {
		return nil, fmt.Errorf("unsupported intent kind: %s", kind)
	}
	subject, body, err := o.templates.Render(kind, payload)
	if err != nil {
		return nil, fmt.Errorf("render intent: %w", err)
	}

	intent := &Intent{
		ID:        uuid.New().String(),
		Kind:      kind,
		PatientID: patientID,
		SurgeryID: surgeryID,
		Subject:   subject,
		Body:      body,
		Payload:   payload,
		Status:    "pending",
		CreatedAt: time.Now().UTC(),
	}

	dispatchErr := o.dispatcher.Dispatch(ctx, intent)
	if dispatchErr != nil {
		intent.Status = "failed"
		intent.Error = dispatchErr.Error()
	} else {
		intent.Status = "dispatched"
		at := time.Now().UTC()
		intent.DispatchedAt = &at
	}

	o.mu.Lock()
	o.intents[intent.ID] = intent
	o.mu.Unlock()

	return intent, dispatchErr
}

// Get retrieves an intent by ID.
func (o *Outbox) Get(id string) (*Intent, error) {
	o.mu.RLock()
	intent, ok := o.intents[id]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("intent %q not found", id)
	}
	return intent, nil
}

// ListByPatient returns intents for a given patient, up to limit.
func (o *Outbox) ListByPatient(patientID string, limit int) []*Intent {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var result []*Intent
	for _, intent := range o.intents {
		if intent.PatientID == patientID {
			result = append(result, intent)
			if len(result) >= limit {
				break
			}
		}
	}
	return result
}

// Retry re-dispatches a failed intent. Returns an error if the intent is not
// in "failed" status.
func (o *Outbox) Retry(ctx context.Context, id string) error {
	o.mu.RLock()
	intent, ok := o.intents[id]
	o.mu.RUnlock()
	if !ok {
		return fmt.Errorf("intent %q not found", id)
	}
	if intent.Status != "failed" {
		return fmt.Errorf("intent %q is not in failed status (current: %s)", id, intent.Status)
	}

	dispatchErr := o.dispatcher.Dispatch(ctx, intent)

	o.mu.Lock()
	if dispatchErr != nil {
		intent.Status = "failed"
		intent.Error = dispatchErr.Error()
	} else {
		intent.Status = "dispatched"
		at := time.Now().UTC()
		intent.DispatchedAt = &at
		intent.Error = ""
	}
	o.mu.Unlock()

	return dispatchErr
}

// Stats returns counts of intents grouped by status.
func (o *Outbox) Stats() map[string]int {
	o.mu.RLock()
	defer o.mu.RUnlock()

	stats := make(map[string]int)
	for _, intent := range o.intents {
		stats[intent.Status]++
	}
	return stats
}

// ---------------------------------------------------------------------------
// HTTP Handler
// ---------------------------------------------------------------------------

// Handler exposes read access to the outbox plus a retry endpoint. Intents
// are created by the scheduler, never via the API.
type Handler struct {
	outbox *Outbox
}

// NewHandler creates a notification Handler.
func NewHandler(outbox *Outbox) *Handler {
	return &Handler{outbox: outbox}
}

// RegisterRoutes registers the notification routes on the given Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications/stats", h.HandleStats)
	g.GET("/notifications/:id", h.HandleGet)
	g.GET("/notifications", h.HandleList)
	g.POST("/notifications/:id/retry", h.HandleRetry)
}

// HandleGet handles GET /notifications/:id.
func (h *Handler) HandleGet(c echo.Context) error {
	intent, err := h.outbox.Get(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, intent)
}

// HandleList handles GET /notifications?patient_id=...
func (h *Handler) HandleList(c echo.Context) error {
	patientID := c.QueryParam("patient_id")
	if patientID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "patient_id query parameter is required"})
	}
	return c.JSON(http.StatusOK, h.outbox.ListByPatient(patientID, 100))
}

// HandleRetry handles POST /notifications/:id/retry.
func (h *Handler) HandleRetry(c echo.Context) error {
	id := c.Param("id")
	if err := h.outbox.Retry(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	intent, _ := h.outbox.Get(id)
	return c.JSON(http.StatusOK, intent)
}

// HandleStats handles GET /notifications/stats.
func (h *Handler) HandleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.outbox.Stats())
}
