package domain

import "time"

// PollOutcome labels the result of one registry poll cycle.
type PollOutcome string

const (
	PollOutcomeSuccess PollOutcome = "success"
	PollOutcomePartial PollOutcome = "partial"
	PollOutcomeError   PollOutcome = "error"
)

// ChatPath labels how the orchestrator answered a message.
type ChatPath string

const (
	ChatPathCard       ChatPath = "card"
	ChatPathNotFound   ChatPath = "not_found"
	ChatPathCompletion ChatPath = "completion"
	ChatPathError      ChatPath = "error"
)

// Metrics records operational counters for the aggregator.
type Metrics interface {
	ObservePoll(outcome PollOutcome, duration time.Duration)
	SetCatalogSize(services int, tools int)
	ObserveCardSynthesis(cardType CardType, built bool)
	ObserveCompletionLatency(provider string, model string, duration time.Duration)
	ObserveCompletionTokens(provider string, model string, tokens int)
	ObserveChat(path ChatPath)
	ObserveProviderCall(tool string, duration time.Duration, err error)
}
