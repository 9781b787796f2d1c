package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldService    = "service"
	FieldDomain     = "domain"
	FieldTool       = "tool"
	FieldSessionID  = "session_id"
	FieldCardID     = "card_id"
	FieldCardType   = "card_type"
	FieldDurationMs = "duration_ms"
	FieldLogSource  = "log_source"
	FieldRequestID  = "request_id"
	FieldServices   = "services"
	FieldTools      = "tools"
	FieldGeneration = "generation"
	FieldChatPath   = "chat_path"
)

const (
	EventPollStart      = "poll_start"
	EventPollSuccess    = "poll_success"
	EventPollFailure    = "poll_failure"
	EventServiceSkipped = "service_skipped"
	EventServiceFailure = "service_failure"
	EventCatalogChanged = "catalog_changed"
	EventCardBuilt      = "card_built"
	EventCardMissing    = "card_missing"
	EventCompletion     = "completion"
	EventProviderCall   = "provider_call"
	EventConfigReload   = "config_reload"
)

const (
	LogSourceCore = "core"
	LogSourceHTTP = "http"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func ServiceField(name string) zap.Field {
	return zap.String(FieldService, name)
}

func DomainField(name string) zap.Field {
	return zap.String(FieldDomain, name)
}

func ToolField(name string) zap.Field {
	return zap.String(FieldTool, name)
}

func SessionIDField(id string) zap.Field {
	return zap.String(FieldSessionID, id)
}

func CardIDField(id string) zap.Field {
	return zap.String(FieldCardID, id)
}

func CardTypeField(cardType string) zap.Field {
	return zap.String(FieldCardType, cardType)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}
