package server

import (
	"bytes"
	contextpkg "context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/HeroHubLab/herohub/backend/internal/accounts"
	"github.com/HeroHubLab/herohub/backend/internal/auth"
	"github.com/HeroHubLab/herohub/backend/internal/chat"
	"github.com/HeroHubLab/herohub/backend/internal/clients"
	"github.com/HeroHubLab/herohub/backend/internal/finance"
	"github.com/HeroHubLab/herohub/backend/internal/livenotes"
	"github.com/HeroHubLab/herohub/backend/internal/llm"
	"github.com/HeroHubLab/herohub/backend/internal/marketing"
	"github.com/HeroHubLab/herohub/backend/internal/notes"
	"github.com/HeroHubLab/herohub/backend/internal/tasks"
	"github.com/HeroHubLab/herohub/backend/internal/voicenotes"
	"github.com/HeroHubLab/herohub/backend/internal/workspace"
)

type stubVerifier struct {
	claims auth.IdentityClaims
	err    error
}

func (s stubVerifier) Verify(contextpkg.Context, string) (auth.IdentityClaims, error) {
	return s.claims, s.err
}

type stubTokenManager struct {
	subject     string
	validateErr error
}

func (s stubTokenManager) IssueBackendToken(contextpkg.Context, auth.IdentityClaims) (string, int64, error) {
	return "backend-token", 3600, nil
}

func (s stubTokenManager) ValidateToken(string) (string, error) {
	if s.validateErr != nil {
		return "", s.validateErr
	}
	return s.subject, nil
}

type sequenceIDProvider struct {
	next int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("id-%04d", p.next), nil
}

type stubCompleter struct {
	content string
	err     error
}

func (s stubCompleter) Complete(contextpkg.Context, llm.Request) (string, error) {
	return s.content, s.err
}

type emptyCalendarProvider struct{}

func (emptyCalendarProvider) Calendars(contextpkg.Context, string) ([]workspace.ProviderCalendar, error) {
	return nil, nil
}

func (emptyCalendarProvider) Events(contextpkg.Context, string, string, workspace.EventsWindow, int) ([]workspace.ProviderEvent, error) {
	return nil, nil
}

type emptyMailProvider struct{}

func (emptyMailProvider) Profile(contextpkg.Context, string) (string, error) {
	return "user@example.com", nil
}

func (emptyMailProvider) MessageIDs(contextpkg.Context, string, int) ([]string, error) {
	return nil, nil
}

func (emptyMailProvider) Message(contextpkg.Context, string, string) (workspace.ProviderMessage, error) {
	return workspace.ProviderMessage{}, errors.New("no messages")
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	err = db.AutoMigrate(
		&accounts.UserRecord{}, &accounts.Account{},
		&clients.Client{},
		&chat.Conversation{}, &chat.Message{},
		&livenotes.Session{}, &livenotes.Shot{},
		&voicenotes.Session{}, &voicenotes.Entry{},
		&tasks.Task{}, &notes.Note{},
		&finance.Transaction{}, &marketing.Campaign{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	clock := func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	ids := &sequenceIDProvider{}

	accountsService, err := accounts.NewService(accounts.ServiceConfig{Database: db, Clock: clock, IDProvider: ids})
	if err != nil {
		t.Fatalf("accounts service: %v", err)
	}
	clientsService, err := clients.NewService(clients.ServiceConfig{Database: db, Clock: clock, IDProvider: ids})
	if err != nil {
		t.Fatalf("clients service: %v", err)
	}
	aggregator, err := workspace.NewAggregator(workspace.AggregatorConfig{
		Accounts: accountsService,
		Calendar: emptyCalendarProvider{},
		Mail:     emptyMailProvider{},
		Clock:    clock,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("aggregator: %v", err)
	}
	tasksService, err := tasks.NewService(tasks.ServiceConfig{Database: db, Clock: clock, IDProvider: ids})
	if err != nil {
		t.Fatalf("tasks service: %v", err)
	}
	notesService, err := notes.NewService(notes.ServiceConfig{Database: db, Clock: clock, IDProvider: ids})
	if err != nil {
		t.Fatalf("notes service: %v", err)
	}
	chatService, err := chat.NewService(chat.ServiceConfig{
		Database:   db,
		Clock:      clock,
		IDProvider: ids,
		Completer:  stubCompleter{content: "Hello from the assistant."},
		Model:      "chat-model",
	})
	if err != nil {
		t.Fatalf("chat service: %v", err)
	}
	financeService, err := finance.NewService(finance.ServiceConfig{Database: db, Clock: clock, IDProvider: ids})
	if err != nil {
		t.Fatalf("finance service: %v", err)
	}
	marketingService, err := marketing.NewService(marketing.ServiceConfig{Database: db, Clock: clock, IDProvider: ids})
	if err != nil {
		t.Fatalf("marketing service: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		IdentityVerifier: stubVerifier{claims: auth.IdentityClaims{Subject: "user-1"}},
		TokenManager:     stubTokenManager{subject: "user-1"},
		Accounts:         accountsService,
		Clients:          clientsService,
		Workspace:        aggregator,
		Chat:             chatService,
		Tasks:            tasksService,
		Notes:            notesService,
		Finance:          financeService,
		Marketing:        marketingService,
		Clock:            clock,
	})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any, authorized bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if authorized {
		request.Header.Set("Authorization", "Bearer backend-token")
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body %q: %v", recorder.Body.String(), err)
	}
	return payload
}

func TestHealthEndpointIsPublic(t *testing.T) {
	handler := newTestHandler(t)

	recorder := doRequest(t, handler, http.MethodGet, "/healthz", nil, false)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	handler := newTestHandler(t)

	recorder := doRequest(t, handler, http.MethodGet, "/tasks", nil, false)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", recorder.Code)
	}
}

func TestFirebaseAuthExchange(t *testing.T) {
	handler := newTestHandler(t)

	recorder := doRequest(t, handler, http.MethodPost, "/auth/firebase", gin.H{"id_token": "firebase-token"}, false)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeBody(t, recorder)
	if payload["access_token"] != "backend-token" || payload["token_type"] != "Bearer" {
		t.Fatalf("unexpected auth payload: %v", payload)
	}

	recorder = doRequest(t, handler, http.MethodPost, "/auth/firebase", gin.H{"id_token": ""}, false)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty token, got %d", recorder.Code)
	}
}

func TestCalendarWithoutAccountsReturnsNotConnected(t *testing.T) {
	handler := newTestHandler(t)

	recorder := doRequest(t, handler, http.MethodGet, "/calendar/events", nil, true)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeBody(t, recorder)
	if payload["code"] != "GOOGLE_NOT_CONNECTED" {
		t.Fatalf("expected GOOGLE_NOT_CONNECTED code, got %v", payload)
	}
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	handler := newTestHandler(t)

	recorder := doRequest(t, handler, http.MethodPost, "/tasks", gin.H{"title": "Ship release"}, true)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeBody(t, recorder)
	task, ok := payload["task"].(map[string]any)
	if !ok {
		t.Fatalf("expected task object, got %v", payload)
	}
	taskID, _ := task["id"].(string)
	if taskID == "" {
		t.Fatalf("expected task id, got %v", task)
	}

	recorder = doRequest(t, handler, http.MethodPatch, "/tasks/"+taskID, gin.H{"completed": true}, true)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", recorder.Code, recorder.Body.String())
	}
	payload = decodeBody(t, recorder)
	updated := payload["task"].(map[string]any)
	if updated["completed"] != true {
		t.Fatalf("expected task to be completed, got %v", updated)
	}

	recorder = doRequest(t, handler, http.MethodGet, "/tasks", nil, true)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	payload = decodeBody(t, recorder)
	list, ok := payload["tasks"].([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("expected one task, got %v", payload)
	}

	recorder = doRequest(t, handler, http.MethodDelete, "/tasks/"+taskID, nil, true)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	recorder = doRequest(t, handler, http.MethodDelete, "/tasks/"+taskID, nil, true)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted task, got %d", recorder.Code)
	}
}

func TestCreateTaskValidationMapsTo400(t *testing.T) {
	handler := newTestHandler(t)

	recorder := doRequest(t, handler, http.MethodPost, "/tasks", gin.H{"title": "   "}, true)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body %s", recorder.Code, recorder.Body.String())
	}
}

func TestChatEndpointRespondsWithAssistantText(t *testing.T) {
	handler := newTestHandler(t)

	recorder := doRequest(t, handler, http.MethodPost, "/chat", gin.H{
		"message": "What should I do today?",
		"conversationHistory": []gin.H{
			{"role": "user", "content": "Earlier question"},
			{"role": "assistant", "content": "Earlier answer"},
		},
	}, true)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeBody(t, recorder)
	if payload["response"] != "Hello from the assistant." {
		t.Fatalf("unexpected chat payload: %v", payload)
	}
}

func TestClientCrudUsesQueryIdentifiers(t *testing.T) {
	handler := newTestHandler(t)

	recorder := doRequest(t, handler, http.MethodPost, "/clients", gin.H{
		"name":  "Acme Corp",
		"email": "owner@acme.test",
	}, true)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeBody(t, recorder)
	record := payload["client"].(map[string]any)
	clientID := record["id"].(string)

	recorder = doRequest(t, handler, http.MethodPut, "/clients?id="+clientID, gin.H{"notes": "VIP"}, true)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", recorder.Code, recorder.Body.String())
	}

	recorder = doRequest(t, handler, http.MethodDelete, "/clients?id="+clientID, nil, true)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	recorder = doRequest(t, handler, http.MethodDelete, "/clients", nil, true)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without id, got %d", recorder.Code)
	}
}

func TestFinanceMetricsEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	recorder := doRequest(t, handler, http.MethodPost, "/finances", gin.H{
		"amount": 250.0,
		"date":   "2026-03-01T09:00:00Z",
	}, true)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body %s", recorder.Code, recorder.Body.String())
	}

	recorder = doRequest(t, handler, http.MethodGet, "/finances", nil, true)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	payload := decodeBody(t, recorder)
	if payload["dailyRevenue"] != 250.0 {
		t.Fatalf("expected daily revenue 250, got %v", payload["dailyRevenue"])
	}
}

func newCleanerHandler(t *testing.T, completer llm.Completer) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	err = db.AutoMigrate(&accounts.UserRecord{}, &accounts.Account{}, &clients.Client{})
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	clock := func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	ids := &sequenceIDProvider{}

	accountsService, err := accounts.NewService(accounts.ServiceConfig{Database: db, Clock: clock, IDProvider: ids})
	if err != nil {
		t.Fatalf("accounts service: %v", err)
	}
	clientsService, err := clients.NewService(clients.ServiceConfig{Database: db, Clock: clock, IDProvider: ids})
	if err != nil {
		t.Fatalf("clients service: %v", err)
	}
	aggregator, err := workspace.NewAggregator(workspace.AggregatorConfig{
		Accounts: accountsService,
		Calendar: emptyCalendarProvider{},
		Mail:     emptyMailProvider{},
		Clock:    clock,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("aggregator: %v", err)
	}
	cleaner := clients.NewCleaner(clients.CleanerConfig{Completer: completer, Model: "clean-model"})

	handler, err := NewHTTPHandler(Dependencies{
		IdentityVerifier: stubVerifier{claims: auth.IdentityClaims{Subject: "user-1"}},
		TokenManager:     stubTokenManager{subject: "user-1"},
		Accounts:         accountsService,
		Clients:          clientsService,
		Cleaner:          cleaner,
		Workspace:        aggregator,
		Clock:            clock,
	})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func TestAddDuplicateAccountReturnsConflict(t *testing.T) {
	handler := newTestHandler(t)
	payload := gin.H{
		"email":        "owner@example.com",
		"accessToken":  "token-a",
		"refreshToken": "refresh-a",
	}

	recorder := doRequest(t, handler, http.MethodPost, "/email-accounts", payload, true)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201 for first connect, got %d body %s", recorder.Code, recorder.Body.String())
	}

	recorder = doRequest(t, handler, http.MethodPost, "/email-accounts", payload, true)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d body %s", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	if message, ok := body["error"].(string); !ok || !strings.Contains(message, "already connected") {
		t.Fatalf("unexpected conflict payload: %v", body)
	}
}

func TestCleanImportUpstreamFailureReturnsBadGateway(t *testing.T) {
	handler := newCleanerHandler(t, stubCompleter{
		err: &llm.UpstreamError{StatusCode: http.StatusBadGateway, Body: "Bad Gateway"},
	})

	recorder := doRequest(t, handler, http.MethodPost, "/clients/import/clean", gin.H{
		"csv": "name,email\nAda,ada@example.com",
	}, true)
	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for upstream failure, got %d body %s", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	details, ok := body["details"].(string)
	if !ok || !strings.Contains(details, "Bad Gateway") {
		t.Fatalf("expected upstream message in details, got %v", body)
	}
}

func TestCleanImportEmptyCompletionReturnsBadGateway(t *testing.T) {
	handler := newCleanerHandler(t, stubCompleter{err: llm.ErrEmptyContent})

	recorder := doRequest(t, handler, http.MethodPost, "/clients/import/clean", gin.H{
		"csv": "name,email\nAda,ada@example.com",
	}, true)
	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for empty completion, got %d body %s", recorder.Code, recorder.Body.String())
	}
}
