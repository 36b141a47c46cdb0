package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-assistant/backend/internal/testutil"
	"chat-assistant/backend/pkg/config"
	"chat-assistant/backend/pkg/di"
	"chat-assistant/backend/pkg/logger"
	"chat-assistant/backend/pkg/validator"

	"chat-assistant/backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const password = "SecurePass123!"

func init() {
	gin.SetMode(gin.TestMode)
	validator.RegisterBindingValidators()
}

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Server.Env = "test"
	cfg.JWT.Secret = "router-test-secret"
	cfg.Redis.Enabled = false
	cfg.Security.RateLimit = 1000
	cfg.Security.RateLimitBurst = 1000
	cfg.Security.AllowedOrigins = []string{"*"}
	cfg.Security.TrustedProxies = nil
	cfg.Chatbot.Enabled = true
	cfg.Chatbot.Timezone = "UTC"
	cfg.Chatbot.ResponsesFile = ""
	cfg.Chatbot.PluginTimeout = 2 * time.Second
	cfg.Observability.MetricsEnabled = true
	cfg.OpenAPI.SchemaPath = "../../api/openapi.yaml"
	return cfg
}

func newTestRouter(t *testing.T, cfg *config.Config) *Router {
	t.Helper()

	container, err := di.New(testutil.NewDB(t), cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(container.Close)

	r := New(container)
	r.SetupRoutes()
	t.Cleanup(r.Close)
	return r
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type messageBody struct {
	ID        uint          `json:"id"`
	Message   string        `json:"message"`
	User      *string       `json:"user"`
	Status    string        `json:"status"`
	InReplyTo *uint         `json:"in_reply_to"`
	Replies   []messageBody `json:"replies"`
}

type APISuite struct {
	suite.Suite
	router *Router
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	s.router = newTestRouter(s.T(), testConfig())
}

func (s *APISuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)
	return w
}

func (s *APISuite) errorCode(w *httptest.ResponseRecorder) string {
	var body errorBody
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error.Code
}

func (s *APISuite) register(email, name string) {
	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email": email, "password": password, "name": name,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
}

func (s *APISuite) login(email string) string {
	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Require().NotEmpty(body.Token)
	return body.Token
}

func (s *APISuite) signIn(email, name string) string {
	s.register(email, name)
	return s.login(email)
}

func (s *APISuite) TestRegisterReturnsUserWithoutPassword() {
	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "john@example.com", "password": password, "name": "John Doe",
	})
	s.Equal(http.StatusCreated, w.Code)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("john@example.com", body["email"])
	s.Equal("John Doe", body["name"])
	s.Equal([]any{"ROLE_USER"}, body["roles"])
	s.NotContains(body, "password")
}

func (s *APISuite) TestRegisterDuplicateEmail() {
	s.register("dup@example.com", "First")

	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "dup@example.com", "password": password, "name": "Second",
	})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("USER_EXISTS", s.errorCode(w))
}

func (s *APISuite) TestRegisterWeakPassword() {
	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "weak@example.com", "password": "weakpassword", "name": "Weak",
	})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_FAILED", s.errorCode(w))
}

func (s *APISuite) TestRegisterSchemaViolation() {
	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "nobody@example.com"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("SCHEMA_VIOLATION", s.errorCode(w))
}

func (s *APISuite) TestLoginWrongPassword() {
	s.register("jane@example.com", "Jane")

	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "jane@example.com", "password": "WrongPass123!"})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("INVALID_CREDENTIALS", s.errorCode(w))

	w = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ghost@example.com", "password": password})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("INVALID_CREDENTIALS", s.errorCode(w))
}

func (s *APISuite) TestMe() {
	token := s.signIn("me@example.com", "Me Myself")

	w := s.do(http.MethodGet, "/api/auth/me", token, nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"email":"me@example.com","name":"Me Myself","roles":["ROLE_USER"]}`, w.Body.String())
}

func (s *APISuite) TestLogoutRevokesToken() {
	token := s.signIn("bye@example.com", "Bye")

	w := s.do(http.MethodPost, "/api/auth/logout", token, nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"message":"Logged out successfully"}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/auth/me", token, nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("TOKEN_REVOKED", s.errorCode(w))
}

func (s *APISuite) TestMessagesRequireAuth() {
	w := s.do(http.MethodGet, "/api/messages", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("AUTH_REQUIRED", s.errorCode(w))
}

func (s *APISuite) TestCreateMessageGetsChatbotReply() {
	token := s.signIn("chat@example.com", "Chatter")

	w := s.do(http.MethodPost, "/api/messages", token, gin.H{"message": "Hello there"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var created messageBody
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	s.Equal("Hello there", created.Message)
	s.Equal("sent", created.Status)
	s.Require().NotNil(created.User)
	s.Equal("Chatter", *created.User)
	s.Nil(created.InReplyTo)

	s.Require().Len(created.Replies, 1)
	reply := created.Replies[0]
	s.Equal("Hi there! How can I help you today?", reply.Message)
	s.Equal("received", reply.Status)
	s.Require().NotNil(reply.User)
	s.Equal("Generic Chatbot", *reply.User)
	s.Require().NotNil(reply.InReplyTo)
	s.Equal(created.ID, *reply.InReplyTo)

	w = s.do(http.MethodGet, "/api/messages", token, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var listed []messageBody
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &listed))
	s.Require().Len(listed, 1)
	s.Equal(created.ID, listed[0].ID)
	s.Len(listed[0].Replies, 1)
}

func (s *APISuite) TestCreateMessageWithoutKeywordHasNoReplies() {
	token := s.signIn("quiet@example.com", "Quiet")

	w := s.do(http.MethodPost, "/api/messages", token, gin.H{"message": "zzz"})
	s.Require().Equal(http.StatusCreated, w.Code)

	var created messageBody
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	s.NotNil(created.Replies)
	s.Empty(created.Replies)
}

func (s *APISuite) TestListMessagesNewestFirstAndScopedToUser() {
	alice := s.signIn("alice@example.com", "Alice")
	bob := s.signIn("bob@example.com", "Bob")

	for i := 1; i <= 3; i++ {
		w := s.do(http.MethodPost, "/api/messages", alice, gin.H{"message": fmt.Sprintf("note %d", i)})
		s.Require().Equal(http.StatusCreated, w.Code)
	}
	w := s.do(http.MethodPost, "/api/messages", bob, gin.H{"message": "bob note"})
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/api/messages", alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var listed []messageBody
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &listed))
	s.Require().Len(listed, 3)
	s.Equal("note 3", listed[0].Message)
	s.Equal("note 1", listed[2].Message)
}

func (s *APISuite) TestCreateMessageValidation() {
	token := s.signIn("val@example.com", "Val")

	w := s.do(http.MethodPost, "/api/messages", token, gin.H{"message": "   "})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_FAILED", s.errorCode(w))

	w = s.do(http.MethodPost, "/api/messages", token, gin.H{"message": 42})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("SCHEMA_VIOLATION", s.errorCode(w))
}

func (s *APISuite) TestUpdateStatus() {
	token := s.signIn("status@example.com", "Status")

	w := s.do(http.MethodPost, "/api/messages", token, gin.H{"message": "track me"})
	s.Require().Equal(http.StatusCreated, w.Code)
	var created messageBody
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))

	path := fmt.Sprintf("/api/messages/%d/status", created.ID)

	w = s.do(http.MethodPatch, path, token, gin.H{"status": "received"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated messageBody
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &updated))
	s.Equal("received", updated.Status)

	w = s.do(http.MethodPatch, path, token, gin.H{"status": "sent"})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("INVALID_STATUS_TRANSITION", s.errorCode(w))

	w = s.do(http.MethodPatch, path, token, gin.H{"status": "archived"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("SCHEMA_VIOLATION", s.errorCode(w))
}

func (s *APISuite) TestUpdateStatusOfOthersMessage() {
	owner := s.signIn("owner@example.com", "Owner")
	other := s.signIn("other@example.com", "Other")

	w := s.do(http.MethodPost, "/api/messages", owner, gin.H{"message": "mine"})
	s.Require().Equal(http.StatusCreated, w.Code)
	var created messageBody
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))

	w = s.do(http.MethodPatch, fmt.Sprintf("/api/messages/%d/status", created.ID), other, gin.H{"status": "failed"})
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("MESSAGE_NOT_FOUND", s.errorCode(w))

	w = s.do(http.MethodPatch, "/api/messages/999999/status", owner, gin.H{"status": "failed"})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APISuite) TestHealth() {
	for _, path := range []string{"/health", "/api/health"} {
		w := s.do(http.MethodGet, path, "", nil)
		s.Require().Equal(http.StatusOK, w.Code, path)

		var body map[string]any
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
		s.Equal("ok", body["status"])
		s.Contains(body["components"], "database")
		s.Contains(body, "websocket")
	}
}

func (s *APISuite) TestDocsAndMetrics() {
	w := s.do(http.MethodGet, "/api/docs/openapi.yaml", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "openapi: 3.0.3")

	w = s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "http_requests_total")
}

func (s *APISuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/api/messages", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)

	s.Equal(http.StatusNoContent, w.Code)
	s.Equal("*", w.Header().Get("Access-Control-Allow-Origin"))
	s.Contains(w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func (s *APISuite) TestRequestIDEchoed() {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "trace-me")
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)

	s.Equal("trace-me", w.Header().Get("X-Request-ID"))
}

func TestRateLimitApplies(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RateLimit = 0.001
	cfg.Security.RateLimitBurst = 2
	r := newTestRouter(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestOversizedBodyIsRejected(t *testing.T) {
	for name, schema := range map[string]string{
		"schema validation": "../../api/openapi.yaml",
		"request binding":   "",
	} {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Security.MaxBodySize = 64
			cfg.OpenAPI.SchemaPath = schema
			r := newTestRouter(t, cfg)

			body := fmt.Sprintf(`{"email":"big@example.com","name":%q,"password":%q}`, strings.Repeat("x", 200), password)
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.Engine.ServeHTTP(w, req)

			assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
			assert.Contains(t, w.Body.String(), "PAYLOAD_TOO_LARGE")
		})
	}
}

func TestCORSRestrictedOrigins(t *testing.T) {
	cfg := testConfig()
	cfg.Security.AllowedOrigins = []string{"https://app.example.com"}
	r := newTestRouter(t, cfg)

	for origin, want := range map[string]string{
		"https://app.example.com":  "https://app.example.com",
		"https://evil.example.com": "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		r.Engine.ServeHTTP(w, req)
		assert.Equal(t, want, w.Header().Get("Access-Control-Allow-Origin"), origin)
	}
}

func TestChatbotDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Chatbot.Enabled = false
	r := newTestRouter(t, cfg)
	assert.Nil(t, r.Container.Chatbot)
}

func TestInvalidTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.Chatbot.Timezone = "Mars/Olympus_Mons"

	_, err := di.New(testutil.NewDB(t), cfg, logger.Discard())
	assert.Error(t, err)
}

func TestWebsocketStreamsCreatedMessages(t *testing.T) {
	r := newTestRouter(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Container.Hub.Run(ctx)

	srv := httptest.NewServer(r.Engine)
	defer srv.Close()

	post := func(path, token string, body any) *http.Response {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader(payload))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp := post("/api/auth/register", "", gin.H{"email": "ws@example.com", "password": password, "name": "Socket"})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = post("/api/auth/login", "", gin.H{"email": "ws@example.com", "password": password})
	var login struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	resp.Body.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + login.Token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return r.Container.Hub.ClientCount(login.User.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp = post("/api/messages", login.Token, gin.H{"message": "thanks a lot"})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event struct {
		Type    string      `json:"type"`
		Content messageBody `json:"content"`
	}
	require.NoError(t, conn.ReadJSON(&event))

	assert.Equal(t, ws.EventMessageCreated, event.Type)
	assert.Equal(t, "thanks a lot", event.Content.Message)
	require.Len(t, event.Content.Replies, 1)
	assert.Equal(t, "You're welcome! Happy to help!", event.Content.Replies[0].Message)
}

func TestWebsocketRejectsMissingToken(t *testing.T) {
	r := newTestRouter(t, testConfig())
	srv := httptest.NewServer(r.Engine)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
