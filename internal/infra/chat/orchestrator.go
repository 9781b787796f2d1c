package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/cards"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/telemetry"
)

const (
	orderIntro          = "以下是您查询的订单信息：\n\n"
	orderShipmentIntro  = "\n\n该订单的物流信息：\n\n"
	orderShipmentAbsent = "\n\n抱歉，未能查询到该订单的物流信息。可能是该订单尚未发货，或物流信息尚未更新。"
	trackingIntro       = "以下是您查询的物流追踪详情：\n\n"
	logisticsIntro      = "以下是您查询的物流信息：\n\n"

	orderNotFound     = "抱歉，未能查询到您要找的订单信息。请确认订单号是否正确，或尝试提供更多订单详情。"
	trackingNotFound  = "抱歉，未能查询到您要找的物流追踪信息。请确认物流单号是否正确，或尝试提供更多物流详情。"
	logisticsNotFound = "抱歉，未能查询到您要找的物流信息。请确认物流单号是否正确，或尝试提供更多物流详情。"

	noCompletionText = "No response generated"
	errorPrefix      = "An error occurred while processing your request: "

	shippedStatus = "已发货"
)

// CardBuilder synthesizes cards for the card path.
type CardBuilder interface {
	BuildOrderCard(ctx context.Context, message string) (*domain.Card, error)
	BuildLogisticsCard(ctx context.Context, message string, order *domain.OrderCard) (*domain.Card, error)
	BuildTrackingCard(ctx context.Context, message string, order *domain.OrderCard) (*domain.Card, error)
}

// DomainResolver picks the business domain a message is about.
type DomainResolver interface {
	ResolveDomain(message string) (string, bool)
}

type Options struct {
	Catalog       domain.CatalogReader
	Resolver      DomainResolver
	Cards         CardBuilder
	Completion    domain.CompletionClient
	Conversations domain.ConversationStore
	Logger        *zap.Logger
	Metrics       domain.Metrics
}

// Orchestrator answers chat messages with cards or a completion.
type Orchestrator struct {
	catalog       domain.CatalogReader
	resolver      DomainResolver
	cards         CardBuilder
	completion    domain.CompletionClient
	conversations domain.ConversationStore
	logger        *zap.Logger
	metrics       domain.Metrics
}

func NewOrchestrator(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Orchestrator{
		catalog:       opts.Catalog,
		resolver:      opts.Resolver,
		cards:         opts.Cards,
		completion:    opts.Completion,
		conversations: opts.Conversations,
		logger:        logger.Named("chat"),
		metrics:       metrics,
	}
}

// ProcessChat handles one message. It blocks until the reply is ready and
// reports failures in the reply rather than as an error.
func (o *Orchestrator) ProcessChat(ctx context.Context, req domain.ChatRequest) domain.ChatReply {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	logger := o.logger.With(telemetry.SessionIDField(sessionID))
	logger.Info("processing chat message", telemetry.DomainField(req.Domain))

	o.conversations.Append(sessionID, domain.ConversationTurn{
		Role:    domain.RoleUser,
		Content: req.Message,
		Domain:  req.Domain,
	})

	if intent := cards.DetectIntent(req.Message); intent != cards.IntentNone && o.cards != nil {
		text, path, err := o.cardReply(ctx, logger, req.Message, intent)
		if err != nil {
			return o.fail(logger, sessionID, err)
		}
		return o.finish(logger, sessionID, text, req.Domain, path)
	}

	text, domainName, err := o.complete(ctx, logger, sessionID, req)
	if err != nil {
		return o.fail(logger, sessionID, err)
	}
	return o.finish(logger, sessionID, text, domainName, domain.ChatPathCompletion)
}

func (o *Orchestrator) fail(logger *zap.Logger, sessionID string, err error) domain.ChatReply {
	o.metrics.ObserveChat(domain.ChatPathError)
	logger.Error("chat failed", zap.Error(err))
	return domain.ChatReply{
		SessionID: sessionID,
		Message:   errorPrefix + err.Error(),
		Success:   false,
	}
}

func (o *Orchestrator) finish(logger *zap.Logger, sessionID, text, domainName string, path domain.ChatPath) domain.ChatReply {
	o.conversations.Append(sessionID, domain.ConversationTurn{
		Role:    domain.RoleAssistant,
		Content: text,
		Domain:  domainName,
	})
	o.metrics.ObserveChat(path)
	logger.Debug("chat answered", zap.String(telemetry.FieldChatPath, string(path)))
	return domain.ChatReply{SessionID: sessionID, Message: text, Success: true}
}

// cardReply renders the card path. A card that does not exist yields an
// explicit negative message instead of falling through to the completion
// path; any other synthesis error is returned.
func (o *Orchestrator) cardReply(ctx context.Context, logger *zap.Logger, message string, intent cards.Intent) (string, domain.ChatPath, error) {
	if intent.Has(cards.IntentOrder) {
		orderCard, err := o.cards.BuildOrderCard(ctx, message)
		if isSynthesisFailure(err) {
			return "", domain.ChatPathError, err
		}
		if err != nil || orderCard == nil {
			logCardFailure(logger, domain.CardTypeOrder, err)
			return orderNotFound, domain.ChatPathNotFound, nil
		}

		var sb strings.Builder
		sb.WriteString(orderIntro)
		sb.WriteString(orderCard.InlineToken())
		if intent.Has(cards.IntentLogistics) || orderCard.Order.OrderStatus == shippedStatus {
			shipment, err := o.shipmentCard(ctx, message, intent, orderCard.Order)
			if err != nil || shipment == nil {
				logCardFailure(logger, domain.CardTypeLogistics, err)
				sb.WriteString(orderShipmentAbsent)
			} else {
				sb.WriteString(orderShipmentIntro)
				sb.WriteString(shipment.InlineToken())
			}
		}
		return sb.String(), domain.ChatPathCard, nil
	}

	if intent.Has(cards.IntentTracking) {
		card, err := o.cards.BuildTrackingCard(ctx, message, nil)
		if isSynthesisFailure(err) {
			return "", domain.ChatPathError, err
		}
		if err != nil || card == nil {
			logCardFailure(logger, domain.CardTypeTracking, err)
			return trackingNotFound, domain.ChatPathNotFound, nil
		}
		return trackingIntro + card.InlineToken(), domain.ChatPathCard, nil
	}

	card, err := o.cards.BuildLogisticsCard(ctx, message, nil)
	if isSynthesisFailure(err) {
		return "", domain.ChatPathError, err
	}
	if err != nil || card == nil {
		logCardFailure(logger, domain.CardTypeLogistics, err)
		return logisticsNotFound, domain.ChatPathNotFound, nil
	}
	return logisticsIntro + card.InlineToken(), domain.ChatPathCard, nil
}

func isSynthesisFailure(err error) bool {
	return err != nil && !errors.Is(err, domain.ErrCardNotFound)
}

func (o *Orchestrator) shipmentCard(ctx context.Context, message string, intent cards.Intent, order *domain.OrderCard) (*domain.Card, error) {
	if intent.Has(cards.IntentTracking) {
		return o.cards.BuildTrackingCard(ctx, message, order)
	}
	return o.cards.BuildLogisticsCard(ctx, message, order)
}

func logCardFailure(logger *zap.Logger, cardType domain.CardType, err error) {
	fields := []zap.Field{
		telemetry.EventField(telemetry.EventCardMissing),
		telemetry.CardTypeField(string(cardType)),
	}
	if err != nil && !errors.Is(err, domain.ErrCardNotFound) {
		logger.Warn("card synthesis failed", append(fields, zap.Error(err))...)
		return
	}
	logger.Info("card not found", fields...)
}

func (o *Orchestrator) complete(ctx context.Context, logger *zap.Logger, sessionID string, req domain.ChatRequest) (string, string, error) {
	if o.completion == nil {
		return "", "", errors.New("completion client is not configured")
	}

	domainName := strings.TrimSpace(req.Domain)
	if domainName == "" && o.resolver != nil {
		domainName, _ = o.resolver.ResolveDomain(req.Message)
		logger.Debug("resolved domain", telemetry.DomainField(domainName))
	}

	var groups []domain.DomainTools
	if o.catalog != nil {
		groups = o.catalog.ToolsGroupedByDomain()
	}
	prompt, err := BuildSystemPrompt(groups, domainName)
	if err != nil {
		return "", domainName, err
	}

	history := o.conversations.History(sessionID)
	messages := make([]domain.CompletionMessage, 0, len(history)+1)
	messages = append(messages, domain.CompletionMessage{Role: domain.RoleSystem, Content: prompt})
	for _, turn := range history {
		if turn.Role == domain.RoleUser || turn.Role == domain.RoleAssistant {
			messages = append(messages, domain.CompletionMessage{Role: turn.Role, Content: turn.Content})
		}
	}

	text, err := o.completion.Complete(ctx, messages)
	if errors.Is(err, domain.ErrNoCompletion) {
		return noCompletionText, domainName, nil
	}
	if err != nil {
		return "", domainName, err
	}
	return text, domainName, nil
}
