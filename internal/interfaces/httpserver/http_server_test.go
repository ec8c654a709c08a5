package httpserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"naf-chat-server/internal/config"
	"naf-chat-server/internal/domain/chat"
	"naf-chat-server/internal/infrastructure/audit"
	"naf-chat-server/internal/infrastructure/auth"
	"naf-chat-server/internal/infrastructure/broadcast"
	presencestore "naf-chat-server/internal/infrastructure/presence"
	"naf-chat-server/internal/infrastructure/store"
	"naf-chat-server/internal/interfaces/httpserver"
)

func newTestServer(t *testing.T) *httpserver.HTTPServer {
	t.Helper()
	log := zerolog.Nop()
	cfg := &config.Config{
		ServiceName:          "naf-chat-server",
		Environment:          "test",
		HTTPPort:             0,
		ShutdownTimeout:      time.Second,
		PresenceTTL:          time.Minute,
		SSEKeepAliveInterval: time.Second,
	}

	memStore := store.NewMemoryStore(log)
	presenceStore := presencestore.NewMemoryStore(cfg.PresenceTTL)
	service := chat.NewService(memStore, memStore, broadcast.NewHub(log), presenceStore, audit.NoopPublisher{}, log)
	return httpserver.New(cfg, log, service, presenceStore, auth.NewValidator(cfg, log))
}

type apiClient struct {
	t      *testing.T
	server *httpserver.HTTPServer
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	c.server.Engine().ServeHTTP(rec, req)
	return rec
}

func (c *apiClient) decode(rec *httptest.ResponseRecorder, out any) {
	c.t.Helper()
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out))
}

func coordHeaders(id, name string) map[string]string {
	return map[string]string{
		"X-User-ID":   id,
		"X-User-Name": name,
		"X-User-Role": "coordinator",
	}
}

func (c *apiClient) createPendingConversation() string {
	c.t.Helper()

	rec := c.do(http.MethodPost, "/v1/conversations", map[string]string{
		"user_id":   "user_1",
		"user_name": "Alice",
	}, nil)
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	c.decode(rec, &created)
	require.NotEmpty(c.t, created.ID)

	rec = c.do(http.MethodPost, "/v1/conversations/"+created.ID+"/request-human", nil, nil)
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
	return created.ID
}

func TestHTTPServer_HealthAndMetrics(t *testing.T) {
	client := &apiClient{t: t, server: newTestServer(t)}

	rec := client.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = client.do(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPServer_ConversationLifecycle(t *testing.T) {
	client := &apiClient{t: t, server: newTestServer(t)}
	convID := client.createPendingConversation()

	// The queue shows the pending request, longest waiting first.
	rec := client.do(http.MethodGet, "/v1/coordinator/queue", nil, coordHeaders("coord_a", "Ann"))
	require.Equal(t, http.StatusOK, rec.Code)
	var queue struct {
		Total         int `json:"total"`
		Conversations []struct {
			ID    string `json:"id"`
			State string `json:"state"`
		} `json:"conversations"`
	}
	client.decode(rec, &queue)
	require.Equal(t, 1, queue.Total)
	assert.Equal(t, convID, queue.Conversations[0].ID)
	assert.Equal(t, "pending_human", queue.Conversations[0].State)

	// First accept wins.
	rec = client.do(http.MethodPost, "/v1/conversations/"+convID+"/accept", nil, coordHeaders("coord_a", "Ann"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var claimed struct {
		State                 string  `json:"state"`
		AssignedCoordinatorID *string `json:"assigned_coordinator_id"`
	}
	client.decode(rec, &claimed)
	assert.Equal(t, "active_human", claimed.State)
	require.NotNil(t, claimed.AssignedCoordinatorID)
	assert.Equal(t, "coord_a", *claimed.AssignedCoordinatorID)

	// Second accept loses with a machine readable conflict code.
	rec = client.do(http.MethodPost, "/v1/conversations/"+convID+"/accept", nil, coordHeaders("coord_b", "Ben"))
	require.Equal(t, http.StatusConflict, rec.Code)
	var conflict struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	client.decode(rec, &conflict)
	assert.Equal(t, "already_claimed", conflict.Error.Code)

	// End, then end again: idempotent.
	endBody := map[string]string{"ended_by": "coordinator"}
	rec = client.do(http.MethodPost, "/v1/conversations/"+convID+"/end", endBody, coordHeaders("coord_a", "Ann"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = client.do(http.MethodPost, "/v1/conversations/"+convID+"/end", endBody, coordHeaders("coord_a", "Ann"))
	require.Equal(t, http.StatusOK, rec.Code)
	var ended struct {
		State   string `json:"state"`
		EndedBy string `json:"ended_by"`
	}
	client.decode(rec, &ended)
	assert.Equal(t, "ended", ended.State)
	assert.Equal(t, "coordinator", ended.EndedBy)
}

func TestHTTPServer_RejectKeepsRequestQueuedForOthers(t *testing.T) {
	client := &apiClient{t: t, server: newTestServer(t)}
	convID := client.createPendingConversation()

	rec := client.do(http.MethodPost, "/v1/conversations/"+convID+"/reject", nil, coordHeaders("coord_a", "Ann"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = client.do(http.MethodGet, "/v1/coordinator/queue", nil, coordHeaders("coord_a", "Ann"))
	var rejectorQueue struct {
		Total int `json:"total"`
	}
	client.decode(rec, &rejectorQueue)
	assert.Equal(t, 0, rejectorQueue.Total)

	rec = client.do(http.MethodGet, "/v1/coordinator/queue", nil, coordHeaders("coord_b", "Ben"))
	var otherQueue struct {
		Total int `json:"total"`
	}
	client.decode(rec, &otherQueue)
	assert.Equal(t, 1, otherQueue.Total)
}

func TestHTTPServer_TransferRequiresOnlineTarget(t *testing.T) {
	client := &apiClient{t: t, server: newTestServer(t)}
	convID := client.createPendingConversation()

	rec := client.do(http.MethodPost, "/v1/conversations/"+convID+"/accept", nil, coordHeaders("coord_a", "Ann"))
	require.Equal(t, http.StatusOK, rec.Code)

	transferBody := map[string]string{
		"to_coordinator_id":   "coord_b",
		"to_coordinator_name": "Ben",
		"reason":              "billing question",
	}
	rec = client.do(http.MethodPost, "/v1/conversations/"+convID+"/transfer", transferBody, coordHeaders("coord_a", "Ann"))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "offline target must be rejected")

	rec = client.do(http.MethodPost, "/v1/coordinator/heartbeat", map[string]any{
		"status": "available",
	}, coordHeaders("coord_b", "Ben"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = client.do(http.MethodPost, "/v1/conversations/"+convID+"/transfer", transferBody, coordHeaders("coord_a", "Ann"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var moved struct {
		AssignedCoordinatorID *string `json:"assigned_coordinator_id"`
	}
	client.decode(rec, &moved)
	require.NotNil(t, moved.AssignedCoordinatorID)
	assert.Equal(t, "coord_b", *moved.AssignedCoordinatorID)

	// A non-owner transfer is forbidden.
	rec = client.do(http.MethodPost, "/v1/conversations/"+convID+"/transfer", transferBody, coordHeaders("coord_x", "Xan"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHTTPServer_MessagesAndReadTracking(t *testing.T) {
	client := &apiClient{t: t, server: newTestServer(t)}
	convID := client.createPendingConversation()

	rec := client.do(http.MethodPost, "/v1/conversations/"+convID+"/messages", map[string]string{
		"content":     "hello, I need help",
		"sender_type": "user",
		"sender_id":   "user_1",
		"sender_name": "Alice",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = client.do(http.MethodGet, "/v1/conversations/"+convID+"/messages?reader_role=coordinator", nil, coordHeaders("coord_a", "Ann"))
	require.Equal(t, http.StatusOK, rec.Code)
	var transcript struct {
		Total       int `json:"total"`
		UnreadCount int `json:"unread_count"`
	}
	client.decode(rec, &transcript)
	assert.Equal(t, 1, transcript.Total)
	assert.Equal(t, 1, transcript.UnreadCount)

	rec = client.do(http.MethodPost, "/v1/conversations/"+convID+"/messages/read", map[string]string{
		"reader_role": "coordinator",
	}, coordHeaders("coord_a", "Ann"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = client.do(http.MethodGet, "/v1/conversations/"+convID+"/messages?reader_role=coordinator", nil, coordHeaders("coord_a", "Ann"))
	client.decode(rec, &transcript)
	assert.Equal(t, 0, transcript.UnreadCount)

	// Messages to an unknown conversation 404.
	rec = client.do(http.MethodPost, "/v1/conversations/missing/messages", map[string]string{
		"content": "hello?",
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPServer_CoordinatorIdentityRequired(t *testing.T) {
	client := &apiClient{t: t, server: newTestServer(t)}
	convID := client.createPendingConversation()

	rec := client.do(http.MethodPost, "/v1/conversations/"+convID+"/accept", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = client.do(http.MethodGet, "/v1/coordinator/queue", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
