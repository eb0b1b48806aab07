package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/attachment"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/routing"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/testutil"
)

const cookieName = "token"

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app     *fiber.App
	f       *testutil.Fixture
	tokens  *auth.TokenManager
	client  *domain.User
	other   *domain.User
	agent   *domain.User
	admin   *domain.User
	uploads string
}

func newTestServer(t *testing.T, redisErr error) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	f := testutil.NewFixture(t)

	dispatcher := events.NewInMemoryDispatcher(logger)
	notify.NewFanout(notify.FanoutDependencies{
		Notifications: f.Notifications,
		Pusher:        &testutil.Pusher{},
		Mailer:        &testutil.Mailer{},
		Logger:        logger,
	}).RegisterHandlers(dispatcher)

	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   f.Tickets,
		CommentRepo:  f.Comments,
		HistoryRepo:  f.History,
		UserRepo:     f.Users,
		AreaRepo:     f.Areas,
		CategoryRepo: f.Categories,
		Resolver: routing.NewResolver(routing.ResolverDependencies{
			Table:      f.Table,
			Categories: f.Categories,
			Areas:      f.Areas,
		}),
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	authSvc := service.NewAuthService(service.AuthDependencies{UserRepo: f.Users, TokenManager: tokens})
	inbox := service.NewNotificationService(service.NotificationDependencies{NotificationRepo: f.Notifications})

	uploads := t.TempDir()
	store, err := attachment.NewDiskStore(uploads, 1024)
	require.NoError(t, err)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("helpdesk-service", "test", map[string]handlers.Pinger{
			"postgres": stubPinger{},
			"redis":    stubPinger{err: redisErr},
		}),
		Auth:           handlers.NewAuthHandler(authSvc, cookieName, false),
		Tickets:        handlers.NewTicketsHandler(tickets, store, logger),
		Notifications:  handlers.NewNotificationsHandler(inbox, nil, logger),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, f.Users, cookieName),
		Metrics:        metrics,
	})

	return &testServer{
		app:     app,
		f:       f,
		tokens:  tokens,
		client:  f.AddUser(t, "Carla Client", domain.RoleUser, ""),
		other:   f.AddUser(t, "Oscar Other", domain.RoleUser, ""),
		agent:   f.AddUser(t, "Alex Agent", domain.RoleSupport, "Technology"),
		admin:   f.AddUser(t, "Root Admin", domain.RoleAdmin, ""),
		uploads: uploads,
	}
}

func (s *testServer) token(t *testing.T, u *domain.User) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(u.ID, u.Role)
	require.NoError(t, err)
	return token
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, req *nethttp.Request, token string) (int, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &env), string(body))
	}
	return resp.StatusCode, env
}

func jsonRequest(t *testing.T, method, path string, payload any) *nethttp.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func (s *testServer) createTicket(t *testing.T) map[string]any {
	t.Helper()
	category := s.f.Category(t, "Incidents (Technology)")
	status, env := s.do(t, jsonRequest(t, fiber.MethodPost, "/tickets", map[string]any{
		"description": "Laptop will not boot",
		"category_id": category.ID,
		"subcategory": "Hardware",
		"priority":    "HIGH",
	}), s.token(t, s.client))
	require.Equal(t, fiber.StatusCreated, status)
	var ticket map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &ticket))
	return ticket
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	status, _ := s.do(t, httptest.NewRequest(fiber.MethodGet, "/health/live", nil), "")
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, httptest.NewRequest(fiber.MethodGet, "/health/ready", nil), "")
	assert.Equal(t, fiber.StatusOK, status)

	down := newTestServer(t, errors.New("connection refused"))
	status, env := down.do(t, httptest.NewRequest(fiber.MethodGet, "/health/ready", nil), "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", env.Error.Code)
	assert.Equal(t, "connection refused", env.Error.Details["redis"])
	assert.Equal(t, "ok", env.Error.Details["postgres"])
}

func TestProtectedRoutesRequireCredentials(t *testing.T) {
	s := newTestServer(t, nil)

	status, env := s.do(t, httptest.NewRequest(fiber.MethodGet, "/tickets", nil), "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, _ = s.do(t, httptest.NewRequest(fiber.MethodGet, "/tickets", nil), "not-a-token")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	req := httptest.NewRequest(fiber.MethodGet, "/tickets", nil)
	req.AddCookie(&nethttp.Cookie{Name: cookieName, Value: s.token(t, s.client)})
	status, _ = s.do(t, req, "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	status, env := s.do(t, httptest.NewRequest(fiber.MethodGet, "/nowhere", nil), "")
	assert.Equal(t, fiber.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestLoginSetsCookieAndMe(t *testing.T) {
	s := newTestServer(t, nil)
	hash, err := auth.HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	role, err := s.f.Roles.GetByName(context.Background(), domain.RoleUser)
	require.NoError(t, err)
	require.NoError(t, s.f.Users.Create(context.Background(), &domain.User{
		Name: "Dana", Email: "dana@example.com", PasswordHash: hash, RoleID: role.ID, Role: domain.RoleUser, IsActive: true,
	}))

	resp, err := s.app.Test(jsonRequest(t, fiber.MethodPost, "/auth/login", map[string]string{
		"email":    "dana@example.com",
		"password": "s3cret-pass",
	}), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var session *nethttp.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	req := httptest.NewRequest(fiber.MethodGet, "/auth/me", nil)
	req.AddCookie(&nethttp.Cookie{Name: cookieName, Value: session.Value})
	status, env := s.do(t, req, "")
	require.Equal(t, fiber.StatusOK, status)
	var me map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "dana@example.com", me["email"])

	status, env = s.do(t, jsonRequest(t, fiber.MethodPost, "/auth/login", map[string]string{
		"email":    "dana@example.com",
		"password": "wrong",
	}), "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
}

func TestCreateTicketOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)
	ticket := s.createTicket(t)

	assert.Equal(t, "PENDING", ticket["status"])
	assert.NotEmpty(t, ticket["ticket_number"])
	area, ok := ticket["area"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Technology", area["name"])
	client, ok := ticket["client"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, s.client.ID, client["id"])
}

func TestCreateTicketValidationDetails(t *testing.T) {
	s := newTestServer(t, nil)
	status, env := s.do(t, jsonRequest(t, fiber.MethodPost, "/tickets", map[string]any{
		"priority": "URGENT",
	}), s.token(t, s.client))

	assert.Equal(t, fiber.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Equal(t, "required", env.Error.Details["description"])
	assert.Equal(t, "required", env.Error.Details["category_id"])
	assert.Equal(t, "oneof", env.Error.Details["priority"])
}

func TestCreateTicketWithAttachment(t *testing.T) {
	s := newTestServer(t, nil)
	category := s.f.Category(t, "Incidents (Technology)")

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("description", "Screen flickers"))
	require.NoError(t, w.WriteField("category_id", category.ID))
	require.NoError(t, w.WriteField("subcategory", "Hardware"))
	part, err := w.CreateFormFile("attachment", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("flicker starts after login"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(fiber.MethodPost, "/tickets", &body)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	status, env := s.do(t, req, s.token(t, s.client))
	require.Equal(t, fiber.StatusCreated, status)

	var ticket struct {
		Attachment *domain.Attachment `json:"attachment"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ticket))
	require.NotNil(t, ticket.Attachment)
	assert.Equal(t, "notes.txt", ticket.Attachment.FileName)
	assert.True(t, strings.HasPrefix(ticket.Attachment.MimeType, "text/plain"))
	_, err = os.Stat(ticket.Attachment.StoragePath)
	assert.NoError(t, err)
}

func TestTicketAccessOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)
	ticket := s.createTicket(t)
	id := ticket["id"].(string)

	status, env := s.do(t, httptest.NewRequest(fiber.MethodGet, "/tickets/"+id, nil), s.token(t, s.other))
	assert.Equal(t, fiber.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, env = s.do(t, httptest.NewRequest(fiber.MethodGet, "/tickets/"+id, nil), s.token(t, s.client))
	require.Equal(t, fiber.StatusOK, status)
	var detail struct {
		Permissions map[string]bool `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.True(t, detail.Permissions["can_view"])
	assert.False(t, detail.Permissions["can_assign"])

	status, _ = s.do(t, httptest.NewRequest(fiber.MethodGet, "/tickets/6f1c1a52-9c1e-4f55-a3a8-0d1b7d9a1c11", nil), s.token(t, s.client))
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.do(t, httptest.NewRequest(fiber.MethodGet, "/tickets/not-an-id", nil), s.token(t, s.client))
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestSupportAssignRequiresSupervisorRole(t *testing.T) {
	s := newTestServer(t, nil)
	ticket := s.createTicket(t)
	payload := map[string]string{"ticket_id": ticket["id"].(string), "support_user_id": s.agent.ID}

	status, _ := s.do(t, jsonRequest(t, fiber.MethodPost, "/tickets/support-assign", payload), s.token(t, s.agent))
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env := s.do(t, jsonRequest(t, fiber.MethodPost, "/tickets/support-assign", payload), s.token(t, s.admin))
	require.Equal(t, fiber.StatusOK, status)
	var assigned map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &assigned))
	assignee, ok := assigned["assigned_to"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, s.agent.ID, assignee["id"])

	status, _ = s.do(t, jsonRequest(t, fiber.MethodPatch, "/tickets/"+ticket["id"].(string)+"/status", map[string]string{
		"status": "IN_PROGRESS",
	}), s.token(t, s.agent))
	assert.Equal(t, fiber.StatusOK, status)
}

func TestNotificationInboxOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)
	s.createTicket(t)
	token := s.token(t, s.client)

	status, env := s.do(t, httptest.NewRequest(fiber.MethodGet, "/notifications/unread", nil), token)
	require.Equal(t, fiber.StatusOK, status)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)

	status, _ = s.do(t, httptest.NewRequest(fiber.MethodPut, "/notifications/"+items[0]["id"].(string)+"/read", nil), token)
	assert.Equal(t, fiber.StatusOK, status)

	status, env = s.do(t, httptest.NewRequest(fiber.MethodGet, "/notifications/unread", nil), token)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Empty(t, items)

	status, env = s.do(t, httptest.NewRequest(fiber.MethodGet, "/notifications/stream", nil), token)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "STREAM_UNAVAILABLE", env.Error.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, httptest.NewRequest(fiber.MethodGet, "/health/live", nil), "")

	resp, err := s.app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "helpdesk_http_requests_total")
}
