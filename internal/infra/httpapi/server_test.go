package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/cards"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/conversation"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/toolcatalog"
)

type fakeChat struct {
	conversations *conversation.Store
	last          domain.ChatRequest
}

func (f *fakeChat) ProcessChat(_ context.Context, req domain.ChatRequest) domain.ChatReply {
	f.last = req
	f.conversations.Append(req.SessionID, domain.ConversationTurn{Role: domain.RoleUser, Content: req.Message})
	f.conversations.Append(req.SessionID, domain.ConversationTurn{Role: domain.RoleAssistant, Content: "echo: " + req.Message})
	return domain.ChatReply{SessionID: req.SessionID, Message: "echo: " + req.Message, Success: true}
}

type fakeRefresher struct {
	count int
	err   error
	calls int
}

func (f *fakeRefresher) Refresh(context.Context) (int, error) {
	f.calls++
	return f.count, f.err
}

type testEnv struct {
	server        *Server
	chat          *fakeChat
	conversations *conversation.Store
	refresher     *fakeRefresher
	store         *cards.Store
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	catalog := toolcatalog.NewCatalog()
	catalog.ReplaceAll([]domain.Service{
		{
			ServiceName: "order-mcp",
			Domain:      "order",
			Tools: []domain.Tool{
				{Name: "getOrderWithLogisticsByOrderNo", Domain: "order", ServiceName: "order-mcp"},
			},
		},
		{
			ServiceName: "user-mcp",
			Domain:      "user",
			Tools: []domain.Tool{
				{Name: "getUserById", Domain: "user", ServiceName: "user-mcp"},
			},
		},
	})

	now := func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	store := cards.NewStore(now)
	engine := cards.NewEngine(cards.Options{Store: store, Now: now})
	conversations := conversation.NewStore(10)
	chat := &fakeChat{conversations: conversations}
	refresher := &fakeRefresher{count: 2}

	server := NewServer(Options{
		Config:        domain.HTTPConfig{BodyLimit: "1M", AllowedOrigins: []string{"*"}},
		Chat:          chat,
		Conversations: conversations,
		Catalog:       catalog,
		Refresher:     refresher,
		Cards:         store,
		Samples:       engine,
	})
	return testEnv{server: server, chat: chat, conversations: conversations, refresher: refresher, store: store}
}

func (env testEnv) do(t *testing.T, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	require.Equal(t, HealthResponse{Status: "ok", Services: 2, Tools: 2}, resp)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestChat_UsesSessionHeader(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/chat", `{"message":"hello"}`, map[string]string{HeaderSessionID: "s-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "s-1", rec.Header().Get(HeaderSessionID))

	reply := decode[domain.ChatReply](t, rec)
	require.True(t, reply.Success)
	require.Equal(t, "echo: hello", reply.Message)
	require.Equal(t, "s-1", env.chat.last.SessionID)
}

func TestChat_GeneratesSessionWhenAbsent(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/chat/stream", `{"message":"hello","domain":"order"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	id := rec.Header().Get(HeaderSessionID)
	require.NotEmpty(t, id)
	require.Equal(t, id, env.chat.last.SessionID)
	require.Equal(t, "order", env.chat.last.Domain)
}

func TestChat_RejectsEmptyMessage(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/chat", `{"message":"  "}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/chat", `{"message":`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConversation_HistoryAndClear(t *testing.T) {
	env := newTestEnv(t)
	header := map[string]string{HeaderSessionID: "s-2"}

	rec := env.do(t, http.MethodGet, "/api/conversation", "", header)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	env.do(t, http.MethodPost, "/api/chat", `{"message":"hi"}`, header)
	history := decode[[]domain.ConversationTurn](t, env.do(t, http.MethodGet, "/api/conversation", "", header))
	require.Len(t, history, 2)
	require.Equal(t, domain.RoleUser, history[0].Role)
	require.Equal(t, "echo: hi", history[1].Content)

	rec = env.do(t, http.MethodPost, "/api/conversation/clear", "", header)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, env.conversations.History("s-2"))
}

func TestCatalogRoutes(t *testing.T) {
	env := newTestEnv(t)

	services := decode[[]domain.Service](t, env.do(t, http.MethodGet, "/api/services", "", nil))
	require.Len(t, services, 2)

	tools := decode[[]domain.Tool](t, env.do(t, http.MethodGet, "/api/tools", "", nil))
	require.Len(t, tools, 2)

	orderTools := decode[[]domain.Tool](t, env.do(t, http.MethodGet, "/api/tools/order", "", nil))
	require.Len(t, orderTools, 1)
	require.Equal(t, "getOrderWithLogisticsByOrderNo", orderTools[0].Name)

	rec := env.do(t, http.MethodGet, "/api/tools/weather", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestCatalogRoutes_ETag(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/tools", "", nil)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec = env.do(t, http.MethodGet, "/api/tools", "", map[string]string{"If-None-Match": etag})
	require.Equal(t, http.StatusNotModified, rec.Code)
	require.Empty(t, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/services", "", map[string]string{"If-None-Match": etag})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEqual(t, etag, rec.Header().Get("ETag"))
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/refresh", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `2`, rec.Body.String())
	require.Equal(t, 1, env.refresher.calls)

	env.refresher.err = errors.New("registry down")
	rec = env.do(t, http.MethodPost, "/api/refresh", "", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCards_CRUD(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/cards", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	body := `{"type":"logistics","title":"物流信息","courierCompany":"顺丰速运","trackingNumber":"SF1","status":"运输中"}`
	rec = env.do(t, http.MethodPost, "/api/cards", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decode[domain.Card](t, rec)
	require.NotEmpty(t, saved.ID)
	require.Equal(t, "SF1", saved.Logistics.TrackingNumber)

	got := decode[domain.Card](t, env.do(t, http.MethodGet, "/api/cards/"+saved.ID, "", nil))
	require.Equal(t, saved.ID, got.ID)
	require.Equal(t, "顺丰速运", got.Logistics.CourierCompany)

	byType := decode[[]domain.Card](t, env.do(t, http.MethodGet, "/api/cards/type/logistics", "", nil))
	require.Len(t, byType, 1)
	rec = env.do(t, http.MethodGet, "/api/cards/type/order", "", nil)
	require.JSONEq(t, `[]`, rec.Body.String())
	rec = env.do(t, http.MethodGet, "/api/cards/type/weather", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/cards/"+saved.ID, "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/cards/"+saved.ID, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/cards/"+saved.ID, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCards_SaveRejectsInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cards", `{"type":"weather"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/cards", `not json`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, env.store.Len())
}

func TestCards_TypedCreate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cards/order", `{"title":"订单详情","orderNumber":"OD9","orderStatus":"已付款"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decode[domain.Card](t, rec)
	require.Equal(t, domain.CardTypeOrder, saved.Type)
	require.Equal(t, "OD9", saved.Order.OrderNumber)

	rec = env.do(t, http.MethodPost, "/api/cards/order", `{"type":"tracking"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/cards/weather", `{}`, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCards_Samples(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cards/init", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"Sample cards initialized"}`, rec.Body.String())
	require.Equal(t, 3, env.store.Len())

	rec = env.do(t, http.MethodPost, "/api/cards/sample/tracking", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tracking := decode[domain.Card](t, rec)
	require.Equal(t, 60, tracking.Tracking.CompletionPercentage)
	require.Len(t, env.store.ListByType(domain.CardTypeTracking), 2)

	rec = env.do(t, http.MethodPost, "/api/cards/sample/weather", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnconfiguredCollaborators(t *testing.T) {
	server := NewServer(Options{})
	for _, target := range []string{"/api/chat", "/api/refresh", "/api/cards/init"} {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(`{"message":"hi"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	server := NewServer(Options{Config: domain.HTTPConfig{ListenAddress: "127.0.0.1:0", ShutdownTimeoutSeconds: 1}})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
