package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/cards"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/hashutil"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/telemetry"
)

type handlers struct {
	chat          ChatService
	conversations domain.ConversationStore
	catalog       domain.CatalogReader
	refresher     Refresher
	cards         *cards.Store
	samples       SampleSeeder
	logger        *zap.Logger
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Services int    `json:"services"`
	Tools    int    `json:"tools"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *handlers) register(e *echo.Echo) {
	e.GET("/healthz", h.health)

	api := e.Group("/api")
	api.POST("/chat", h.postChat)
	api.POST("/chat/stream", h.postChat)
	api.GET("/conversation", h.getConversation)
	api.POST("/conversation/clear", h.clearConversation)
	api.GET("/services", h.listServices)
	api.GET("/tools", h.listTools)
	api.GET("/tools/:domain", h.listDomainTools)
	api.POST("/refresh", h.refresh)

	c := api.Group("/cards")
	c.GET("", h.listCards)
	c.GET("/type/:type", h.listCardsByType)
	c.GET("/:id", h.getCard)
	c.POST("", h.saveCard)
	c.POST("/init", h.initSamples)
	c.POST("/sample/:type", h.createSample)
	c.POST("/:type", h.saveTypedCard)
	c.DELETE("/:id", h.deleteCard)
}

func (h *handlers) health(c echo.Context) error {
	resp := HealthResponse{Status: "ok"}
	if h.catalog != nil {
		resp.Services = len(h.catalog.AllServices())
		resp.Tools = len(h.catalog.AllTools())
	}
	return c.JSON(http.StatusOK, resp)
}

// sessionID returns the caller's session, minting one when the header is absent.
// The chosen id is echoed back in the response header.
func sessionID(c echo.Context, fallback string) string {
	id := strings.TrimSpace(c.Request().Header.Get(HeaderSessionID))
	if id == "" {
		id = strings.TrimSpace(fallback)
	}
	if id == "" {
		id = uuid.NewString()
	}
	c.Response().Header().Set(HeaderSessionID, id)
	return id
}

func (h *handlers) postChat(c echo.Context) error {
	if h.chat == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "chat is not configured")
	}
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	req.SessionID = sessionID(c, req.SessionID)

	h.logger.Info("chat request",
		telemetry.SessionIDField(req.SessionID),
		telemetry.RequestIDField(c.Response().Header().Get(echo.HeaderXRequestID)),
	)
	reply := h.chat.ProcessChat(c.Request().Context(), req)
	return c.JSON(http.StatusOK, reply)
}

func (h *handlers) getConversation(c echo.Context) error {
	id := sessionID(c, "")
	history := []domain.ConversationTurn{}
	if h.conversations != nil {
		history = append(history, h.conversations.History(id)...)
	}
	return c.JSON(http.StatusOK, history)
}

func (h *handlers) clearConversation(c echo.Context) error {
	id := sessionID(c, "")
	if h.conversations != nil {
		h.conversations.Clear(id)
	}
	h.logger.Info("conversation cleared", telemetry.SessionIDField(id))
	return c.NoContent(http.StatusOK)
}

func (h *handlers) listServices(c echo.Context) error {
	services := []domain.Service{}
	if h.catalog != nil {
		services = append(services, h.catalog.AllServices()...)
	}
	return h.cacheable(c, hashutil.ServicesETag(h.logger, services), services)
}

func (h *handlers) listTools(c echo.Context) error {
	tools := []domain.Tool{}
	if h.catalog != nil {
		tools = append(tools, h.catalog.AllTools()...)
	}
	return h.cacheable(c, hashutil.ToolsETag(h.logger, tools), tools)
}

func (h *handlers) listDomainTools(c echo.Context) error {
	tools := []domain.Tool{}
	if h.catalog != nil {
		tools = append(tools, h.catalog.ToolsByDomain(c.Param("domain"))...)
	}
	return h.cacheable(c, hashutil.ToolsETag(h.logger, tools), tools)
}

// cacheable answers 304 when the client already holds the current listing.
func (h *handlers) cacheable(c echo.Context, etag string, body any) error {
	if etag != "" {
		c.Response().Header().Set(headerETag, etag)
		if c.Request().Header.Get(headerIfNoneMatch) == etag {
			return c.NoContent(http.StatusNotModified)
		}
	}
	return c.JSON(http.StatusOK, body)
}

func (h *handlers) refresh(c echo.Context) error {
	if h.refresher == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "registry polling is not configured")
	}
	count, err := h.refresher.Refresh(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error()).SetInternal(err)
	}
	return c.JSON(http.StatusOK, count)
}

func (h *handlers) listCards(c echo.Context) error {
	return c.JSON(http.StatusOK, nonNilCards(h.cards.List()))
}

func (h *handlers) listCardsByType(c echo.Context) error {
	cardType, err := domain.ParseCardType(c.Param("type"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, nonNilCards(h.cards.ListByType(cardType)))
}

func (h *handlers) getCard(c echo.Context) error {
	card, ok := h.cards.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, domain.ErrCardNotFound.Error())
	}
	return c.JSON(http.StatusOK, card)
}

func (h *handlers) saveCard(c echo.Context) error {
	return h.decodeAndSave(c, "")
}

func (h *handlers) saveTypedCard(c echo.Context) error {
	cardType, err := domain.ParseCardType(c.Param("type"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return h.decodeAndSave(c, cardType)
}

func (h *handlers) decodeAndSave(c echo.Context, want domain.CardType) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	card, err := domain.DecodeCard(body, want)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	saved, err := h.cards.Save(card)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	h.logger.Info("card saved",
		telemetry.CardIDField(saved.ID),
		telemetry.CardTypeField(string(saved.Type)),
	)
	return c.JSON(http.StatusOK, saved)
}

func (h *handlers) deleteCard(c echo.Context) error {
	if !h.cards.Delete(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, domain.ErrCardNotFound.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) initSamples(c echo.Context) error {
	if h.samples == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "card engine is not configured")
	}
	if _, err := h.samples.SeedSamples(); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Sample cards initialized"})
}

func (h *handlers) createSample(c echo.Context) error {
	if h.samples == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "card engine is not configured")
	}
	cardType, err := domain.ParseCardType(c.Param("type"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	card, err := h.samples.SeedSample(cardType)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownCardType) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, card)
}

func nonNilCards(list []domain.Card) []domain.Card {
	if list == nil {
		return []domain.Card{}
	}
	return list
}
