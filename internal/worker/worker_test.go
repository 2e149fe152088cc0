package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/shaiso/Hookflow/internal/domain"
	"github.com/shaiso/Hookflow/internal/mq"
	"github.com/shaiso/Hookflow/internal/telemetry"
)

// --- Fakes ---

// fakeStore — JobStore в памяти. Хранит снимки каждого Update.
type fakeStore struct {
	mu      sync.Mutex
	nextID  int64
	created []domain.Job
	updates []domain.Job

	createErr error
	// updateErr вызывается перед каждым Update; ненулевая ошибка прерывает запись.
	updateErr func(job *domain.Job) error
}

func (s *fakeStore) Create(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	job.ID = s.nextID
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	s.created = append(s.created, *job)
	return nil
}

func (s *fakeStore) Update(ctx context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.updateErr != nil {
		if err := s.updateErr(job); err != nil {
			return err
		}
	}
	s.updates = append(s.updates, *job)
	return nil
}

func (s *fakeStore) lastUpdate(t *testing.T) domain.Job {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.updates) == 0 {
		t.Fatal("job was never updated")
	}
	return s.updates[len(s.updates)-1]
}

type fakeMailer struct {
	mu    sync.Mutex
	sent  []Email
	err   error
	panic bool
	// afterSend вызывается после успешной отправки.
	afterSend func()
}

func (m *fakeMailer) Send(_ context.Context, email Email) error {
	if m.panic {
		panic("smtp exploded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	if m.afterSend != nil {
		m.afterSend()
	}
	return nil
}

func (m *fakeMailer) Close() error { return nil }

// fakeQueue отдаёт заранее заданные сообщения и ждёт отмены ctx.
type fakeQueue struct {
	messages []*mq.Message
	results  chan error
}

func (q *fakeQueue) Enqueue(_ context.Context, jobName string, data any) error {
	msg, err := mq.NewMessage(jobName, data)
	if err != nil {
		return err
	}
	q.messages = append(q.messages, msg)
	return nil
}

func (q *fakeQueue) Subscribe(ctx context.Context, _ string, handler mq.Handler) error {
	for _, msg := range q.messages {
		q.results <- handler(ctx, &mq.Delivery{Message: *msg, Attempt: 1})
	}
	<-ctx.Done()
	return ctx.Err()
}

func (q *fakeQueue) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWorker(store *fakeStore, mailer Mailer) *Worker {
	executors := &Executors{
		Slack:   NewSlackExecutor(time.Second),
		Webhook: NewWebhookExecutor(time.Second),
	}
	if mailer != nil {
		executors.Email = NewEmailExecutor(mailer)
	}
	return New(Config{
		Jobs:      store,
		Executors: executors,
		Logger:    discardLogger(),
	})
}

func runRequest(actions ...domain.ActionSpec) *domain.WorkflowRunRequest {
	return &domain.WorkflowRunRequest{
		WorkflowID: 7,
		Actions:    actions,
		Payload: map[string]any{
			"user": map[string]any{"email": "a@b.com", "name": "Ann"},
		},
	}
}

// --- Process Tests ---

func TestProcess_WebhookSuccess(t *testing.T) {
	var gotBody map[string]any
	var gotMethod, gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"received":true}`))
	}))
	defer server.Close()

	store := &fakeStore{}
	w := newTestWorker(store, nil)

	req := runRequest(domain.ActionSpec{
		Type:   domain.ActionTypeWebhook,
		Config: map[string]any{"url": server.URL + "/ok"},
	})

	job, err := w.Process(context.Background(), req, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != domain.JobStatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", job.Status)
	}
	if len(job.Result.Actions) != 1 {
		t.Fatalf("expected 1 action result, got %d", len(job.Result.Actions))
	}

	res := job.Result.Actions[0]
	if !res.OK || res.Type != domain.ActionTypeWebhook {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Status != http.StatusOK {
		t.Errorf("expected status 200, got %d", res.Status)
	}
	data, ok := res.Data.(map[string]any)
	if !ok || data["received"] != true {
		t.Errorf("expected parsed JSON body, got %#v", res.Data)
	}
	if res.Config != nil {
		t.Errorf("config must not be echoed on success, got %v", res.Config)
	}

	// Запрос: POST, JSON, тело — payload триггера
	if gotMethod != http.MethodPost {
		t.Errorf("expected POST, got %s", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Errorf("expected application/json, got %q", gotContentType)
	}
	user, _ := gotBody["user"].(map[string]any)
	if user["email"] != "a@b.com" {
		t.Errorf("expected payload as body, got %v", gotBody)
	}

	// Запись: create RUNNING, затем ровно один update
	if len(store.created) != 1 || store.created[0].Status != domain.JobStatusRunning {
		t.Errorf("expected job created as RUNNING, got %+v", store.created)
	}
	if len(store.updates) != 1 {
		t.Errorf("expected exactly one update, got %d", len(store.updates))
	}
	if job.Attempts != 0 {
		t.Errorf("attempts must stay 0 on success, got %d", job.Attempts)
	}
}

func TestProcess_SlackInvalidURL(t *testing.T) {
	store := &fakeStore{}
	w := newTestWorker(store, nil)

	req := runRequest(domain.ActionSpec{
		Type:   domain.ActionTypeSlackMessage,
		Config: map[string]any{"webhookUrl": "not-a-url", "text": "hi"},
	})

	job, err := w.Process(context.Background(), req, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != domain.JobStatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", job.Status)
	}

	res := job.Result.Actions[0]
	if res.OK {
		t.Fatal("expected ok=false")
	}
	if !strings.Contains(res.Error, "Invalid") {
		t.Errorf("expected error about invalid URL, got %q", res.Error)
	}
	if res.Config["webhookUrl"] != "not-a-url" || res.Config["text"] != "hi" {
		t.Errorf("expected resolved config echoed, got %v", res.Config)
	}
}

func TestProcess_SendEmailResolvesRecipient(t *testing.T) {
	store := &fakeStore{}
	mailer := &fakeMailer{}
	w := newTestWorker(store, mailer)

	req := runRequest(domain.ActionSpec{
		Type: domain.ActionTypeSendEmail,
		Config: map[string]any{
			"to":      "{{payload.user.email}}",
			"subject": "Hi {{user.name}}",
			"body":    "Welcome",
		},
	})

	job, err := w.Process(context.Background(), req, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(mailer.sent))
	}
	sent := mailer.sent[0]
	if sent.To != "a@b.com" || sent.Subject != "Hi Ann" || sent.Text != "Welcome" {
		t.Errorf("unexpected email: %+v", sent)
	}

	res := job.Result.Actions[0]
	if !res.OK || res.Info == nil {
		t.Fatalf("expected ok result with info, got %+v", res)
	}
	if res.Info.To != "a@b.com" || res.Info.PreviewURL != nil {
		t.Errorf("unexpected info: %+v", res.Info)
	}
}

func TestProcess_SendEmailTransportError(t *testing.T) {
	store := &fakeStore{}
	w := newTestWorker(store, &fakeMailer{err: errors.New("connection refused")})

	req := runRequest(domain.ActionSpec{
		Type:   domain.ActionTypeSendEmail,
		Config: map[string]any{"subject": "Hi"},
	})

	job, err := w.Process(context.Background(), req, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := job.Result.Actions[0]
	if res.OK {
		t.Fatal("expected ok=false")
	}
	if res.Error != "Email error: connection refused" {
		t.Errorf("unexpected error: %q", res.Error)
	}
}

func TestProcess_UnknownActionType(t *testing.T) {
	store := &fakeStore{}
	w := newTestWorker(store, nil)

	req := runRequest(domain.ActionSpec{
		Type:   "doSomethingUnsupported",
		Config: map[string]any{"x": "{{user.email}}"},
	})

	job, err := w.Process(context.Background(), req, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != domain.JobStatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", job.Status)
	}

	res := job.Result.Actions[0]
	if res.OK || res.Error != "Unknown action type: doSomethingUnsupported" {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Config != nil {
		t.Errorf("config must not be echoed for unknown type, got %v", res.Config)
	}
}

func TestProcess_FailedActionDoesNotShortenRun(t *testing.T) {
	var calls []string
	var mu sync.Mutex

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.URL.Path)
		mu.Unlock()

		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	store := &fakeStore{}
	w := newTestWorker(store, nil)

	req := runRequest(
		domain.ActionSpec{Type: domain.ActionTypeWebhook, Config: map[string]any{"url": server.URL + "/first"}},
		domain.ActionSpec{Type: domain.ActionTypeWebhook, Config: map[string]any{"url": server.URL + "/fail"}},
		domain.ActionSpec{Type: domain.ActionTypeSlackMessage, Config: map[string]any{"webhookUrl": server.URL + "/slack", "text": "done"}},
	)

	job, err := w.Process(context.Background(), req, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != domain.JobStatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", job.Status)
	}

	actions := job.Result.Actions
	if len(actions) != 3 {
		t.Fatalf("expected 3 results, got %d", len(actions))
	}
	if !actions[0].OK || actions[0].Data != "ok" {
		t.Errorf("action 1: unexpected result %+v", actions[0])
	}
	if actions[1].OK {
		t.Error("action 2 should fail")
	}
	if actions[1].Error != "Webhook request failed with status 500: boom" {
		t.Errorf("action 2: unexpected error %q", actions[1].Error)
	}
	if !actions[2].OK || actions[2].Message != "Slack message sent successfully" {
		t.Errorf("action 3: unexpected result %+v", actions[2])
	}
	if job.Result.FailedActions() != 1 {
		t.Errorf("expected 1 failed action, got %d", job.Result.FailedActions())
	}

	// Порядок вызовов совпадает с порядком массива
	want := []string{"/first", "/fail", "/slack"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Errorf("expected calls %v, got %v", want, calls)
	}
}

func TestProcess_EmptyActions(t *testing.T) {
	store := &fakeStore{}
	w := newTestWorker(store, nil)

	job, err := w.Process(context.Background(), runRequest(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != domain.JobStatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", job.Status)
	}
	if job.Result == nil || job.Result.Actions == nil || len(job.Result.Actions) != 0 {
		t.Errorf("expected empty non-nil actions, got %+v", job.Result)
	}
}

func TestProcess_StoreFailureMarksFailed(t *testing.T) {
	storeErr := errors.New("connection reset")
	store := &fakeStore{
		updateErr: func(job *domain.Job) error {
			if job.Status == domain.JobStatusSuccess {
				return storeErr
			}
			return nil
		},
	}
	w := newTestWorker(store, nil)

	req := runRequest(domain.ActionSpec{Type: "noop"})

	job, err := w.Process(context.Background(), req, 3)
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}

	saved := store.lastUpdate(t)
	if saved.Status != domain.JobStatusFailed {
		t.Fatalf("expected FAILED, got %s", saved.Status)
	}
	if saved.Attempts != 3 {
		t.Errorf("expected attempts=3, got %d", saved.Attempts)
	}
	if !strings.Contains(saved.LastError, "connection reset") {
		t.Errorf("unexpected lastError: %q", saved.LastError)
	}
	if saved.Result != nil {
		t.Errorf("failed job must not carry results, got %+v", saved.Result)
	}
	if job.ID != saved.ID {
		t.Errorf("expected returned job to match saved one")
	}
}

func TestProcess_CreateFailure(t *testing.T) {
	store := &fakeStore{createErr: errors.New("db down")}
	w := newTestWorker(store, nil)

	job, err := w.Process(context.Background(), runRequest(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if job != nil {
		t.Errorf("expected nil job, got %+v", job)
	}
	if len(store.updates) != 0 {
		t.Errorf("expected no updates, got %d", len(store.updates))
	}
}

func TestProcess_CreateFailureFiresFailedEvent(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	var failedJobs []*domain.Job
	var failedErr error
	w := New(Config{
		Jobs:    &fakeStore{createErr: errors.New("db down")},
		Metrics: metrics,
		Events: Events{
			Completed: func(*domain.Job) { t.Error("Completed must not fire") },
			Failed: func(job *domain.Job, err error) {
				failedJobs = append(failedJobs, job)
				failedErr = err
			},
		},
		Logger: discardLogger(),
	})

	_, err := w.Process(context.Background(), runRequest(), 3)
	if err == nil || err.Error() != "create job: db down" {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(failedJobs) != 1 {
		t.Fatalf("expected 1 failed event, got %d", len(failedJobs))
	}
	job := failedJobs[0]
	if job.ID != 0 || job.WorkflowID != 7 || job.Attempts != 3 || job.Status != domain.JobStatusFailed {
		t.Errorf("unexpected job stub: %+v", job)
	}
	if failedErr == nil || failedErr.Error() != err.Error() {
		t.Errorf("expected event error %v, got %v", err, failedErr)
	}
	if got := testutil.ToFloat64(metrics.JobsTotal.WithLabelValues("FAILED")); got != 1 {
		t.Errorf("expected 1 FAILED job, got %v", got)
	}
}

func TestProcess_PanicMarksFailed(t *testing.T) {
	store := &fakeStore{}
	w := newTestWorker(store, &fakeMailer{panic: true})

	req := runRequest(domain.ActionSpec{
		Type:   domain.ActionTypeSendEmail,
		Config: map[string]any{"subject": "Hi"},
	})

	_, err := w.Process(context.Background(), req, 2)
	if !errors.Is(err, ErrActionPanicked) {
		t.Fatalf("expected ErrActionPanicked, got %v", err)
	}

	saved := store.lastUpdate(t)
	if saved.Status != domain.JobStatusFailed || saved.Attempts != 2 {
		t.Errorf("expected FAILED with attempts=2, got %s/%d", saved.Status, saved.Attempts)
	}
	if !strings.Contains(saved.LastError, "smtp exploded") {
		t.Errorf("unexpected lastError: %q", saved.LastError)
	}
}

func TestProcess_ActionDelay(t *testing.T) {
	store := &fakeStore{}
	w := New(Config{
		Jobs:        store,
		ActionDelay: 30 * time.Millisecond,
		Logger:      discardLogger(),
	})

	req := runRequest(
		domain.ActionSpec{Type: "a"},
		domain.ActionSpec{Type: "b"},
		domain.ActionSpec{Type: "c"},
	)

	start := time.Now()
	if _, err := w.Process(context.Background(), req, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Пауза только между действиями: 2 паузы на 3 действия
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("expected at least 60ms, got %v", elapsed)
	}
}

func TestProcess_CancelledDuringDelay(t *testing.T) {
	store := &fakeStore{}
	w := New(Config{
		Jobs:        store,
		ActionDelay: time.Minute,
		Logger:      discardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	req := runRequest(domain.ActionSpec{Type: "a"}, domain.ActionSpec{Type: "b"})

	_, err := w.Process(ctx, req, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// FAILED записан, несмотря на отменённый ctx
	saved := store.lastUpdate(t)
	if saved.Status != domain.JobStatusFailed {
		t.Errorf("expected FAILED, got %s", saved.Status)
	}
}

func TestProcess_CancelAfterLastActionStillSucceeds(t *testing.T) {
	store := &fakeStore{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := &fakeMailer{afterSend: cancel}
	w := newTestWorker(store, mailer)

	req := runRequest(domain.ActionSpec{
		Type:   domain.ActionTypeSendEmail,
		Config: map[string]any{"subject": "Hi", "body": "Welcome"},
	})

	job, err := w.Process(ctx, req, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(mailer.sent))
	}

	// Все действия выполнены: run завершён, повтор не нужен
	saved := store.lastUpdate(t)
	if saved.Status != domain.JobStatusSuccess {
		t.Errorf("expected SUCCESS, got %s (%s)", saved.Status, saved.LastError)
	}
	if job.Result == nil || len(job.Result.Actions) != 1 || !job.Result.Actions[0].OK {
		t.Errorf("unexpected result: %+v", job.Result)
	}
}

func TestProcess_TransportNotConfigured(t *testing.T) {
	store := &fakeStore{}
	w := New(Config{Jobs: store, Logger: discardLogger()})

	req := runRequest(domain.ActionSpec{
		Type:   domain.ActionTypeSendEmail,
		Config: map[string]any{"to": "x@y.z"},
	})

	job, err := w.Process(context.Background(), req, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := job.Result.Actions[0]
	if res.OK || res.Error != "sendEmail transport is not configured" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestProcess_EventsAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	var completed, failed int
	store := &fakeStore{}
	w := New(Config{
		Jobs:    store,
		Metrics: metrics,
		Events: Events{
			Completed: func(*domain.Job) { completed++ },
			Failed:    func(*domain.Job, error) { failed++ },
		},
		Logger: discardLogger(),
	})

	if _, err := w.Process(context.Background(), runRequest(domain.ActionSpec{Type: "x"}), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.createErr = nil
	store.updateErr = func(job *domain.Job) error {
		if job.Status == domain.JobStatusSuccess {
			return errors.New("write failed")
		}
		return nil
	}
	if _, err := w.Process(context.Background(), runRequest(), 1); err == nil {
		t.Fatal("expected error")
	}

	if completed != 1 || failed != 1 {
		t.Errorf("expected 1 completed and 1 failed, got %d/%d", completed, failed)
	}
	if got := testutil.ToFloat64(metrics.JobsTotal.WithLabelValues("SUCCESS")); got != 1 {
		t.Errorf("expected 1 SUCCESS job, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.JobsTotal.WithLabelValues("FAILED")); got != 1 {
		t.Errorf("expected 1 FAILED job, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.ActionsTotal.WithLabelValues("unknown", "false")); got != 1 {
		t.Errorf("expected 1 failed action, got %v", got)
	}
}

// --- Queue Handler Tests ---

func TestHandleRunRequest_MalformedPayload(t *testing.T) {
	store := &fakeStore{}
	w := newTestWorker(store, nil)

	delivery := &mq.Delivery{
		Message: mq.Message{ID: "m1", Type: domain.JobNameRunWorkflow, Payload: json.RawMessage(`"oops"`)},
		Attempt: 1,
	}

	err := w.handleRunRequest(context.Background(), delivery)
	if !errors.Is(err, mq.ErrPermanent) {
		t.Fatalf("expected ErrPermanent, got %v", err)
	}
	if len(store.created) != 0 {
		t.Errorf("no job should be created, got %d", len(store.created))
	}
}

func TestHandleRunRequest_MalformedPayloadFiresFailedEvent(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	var failed int
	var gotErr error
	w := New(Config{
		Jobs:    &fakeStore{},
		Metrics: metrics,
		Events: Events{
			Failed: func(job *domain.Job, err error) {
				failed++
				gotErr = err
				if job.ID != 0 || job.Attempts != 2 {
					t.Errorf("unexpected job stub: %+v", job)
				}
			},
		},
		Logger: discardLogger(),
	})

	delivery := &mq.Delivery{
		Message: mq.Message{ID: "m2", Type: domain.JobNameRunWorkflow, Payload: json.RawMessage(`[1]`)},
		Attempt: 2,
	}
	if err := w.handleRunRequest(context.Background(), delivery); err == nil {
		t.Fatal("expected error")
	}

	if failed != 1 {
		t.Fatalf("expected 1 failed event, got %d", failed)
	}
	if !errors.Is(gotErr, mq.ErrPermanent) {
		t.Errorf("expected ErrPermanent in event, got %v", gotErr)
	}
	if got := testutil.ToFloat64(metrics.JobsTotal.WithLabelValues("FAILED")); got != 1 {
		t.Errorf("expected 1 FAILED job, got %v", got)
	}
}

func TestHandleRunRequest_PassesAttempt(t *testing.T) {
	store := &fakeStore{
		updateErr: func(job *domain.Job) error {
			if job.Status == domain.JobStatusSuccess {
				return errors.New("db down")
			}
			return nil
		},
	}
	w := newTestWorker(store, nil)

	msg, err := mq.NewMessage(domain.JobNameRunWorkflow, runRequest())
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}

	if err := w.handleRunRequest(context.Background(), &mq.Delivery{Message: *msg, Attempt: 4}); err == nil {
		t.Fatal("expected error to be returned to the queue")
	}
	if saved := store.lastUpdate(t); saved.Attempts != 4 {
		t.Errorf("expected attempts=4, got %d", saved.Attempts)
	}
}

// --- Lifecycle Tests ---

func TestWorker_StartStop(t *testing.T) {
	store := &fakeStore{}
	queue := &fakeQueue{results: make(chan error, 1)}

	triggerID := int64(11)
	req := runRequest()
	req.TriggerID = &triggerID
	if err := queue.Enqueue(context.Background(), domain.JobNameRunWorkflow, req); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	w := New(Config{Queue: queue, Jobs: store, Logger: discardLogger()})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case err := <-queue.results:
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message was not processed")
	}

	w.Stop()
	if !w.IsStopped() {
		t.Error("expected worker to be stopped")
	}

	saved := store.lastUpdate(t)
	if saved.WorkflowID != 7 || saved.TriggerID == nil || *saved.TriggerID != 11 {
		t.Errorf("unexpected job: %+v", saved)
	}

	if err := w.Start(context.Background()); !errors.Is(err, ErrWorkerStopped) {
		t.Errorf("expected ErrWorkerStopped, got %v", err)
	}
}

func TestWorker_StartWithoutQueue(t *testing.T) {
	w := New(Config{Jobs: &fakeStore{}, Logger: discardLogger()})
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
