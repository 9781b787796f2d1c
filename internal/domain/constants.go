package domain

const (
	DefaultRegistryKind               = RegistryKindNacos
	DefaultRegistryServerAddr         = "127.0.0.1:8848"
	DefaultRegistryGroup              = "mcp-server"
	DefaultRegistryTimeoutSeconds     = 5
	DefaultRefreshIntervalSeconds     = 30
	DefaultFetchConcurrency           = 4
	DefaultToolProtocol               = "MCP"
	DefaultToolVersion                = "v1alpha1"
	DefaultLLMProvider                = "openai"
	DefaultLLMModel                   = "deepseek-chat"
	DefaultLLMBaseURL                 = "https://api.deepseek.com/v1"
	DefaultLLMAPIKeyEnvVar            = "DEEPSEEK_API_KEY"
	DefaultLLMMaxTokens               = 2048
	DefaultLLMTemperature             = 0.7
	DefaultLLMTimeoutSeconds          = 60
	DefaultProviderTransport          = ProviderTransportAuto
	DefaultProviderTimeoutSeconds     = 10
	DefaultProviderMCPPath            = "/mcp"
	DefaultProviderHTTPPathPrefix     = "/api/mcp/tools/"
	DefaultOrderTool                  = "getOrderWithLogisticsByOrderNo"
	DefaultUserTool                   = "getUserById"
	DefaultMaxHistoryLength           = 10
	DefaultHTTPListenAddress          = "0.0.0.0:8080"
	DefaultHTTPBodyLimit              = "2M"
	DefaultShutdownTimeoutSeconds     = 10
	DefaultObservabilityListenAddress = "0.0.0.0:9090"
	DefaultObservabilityMetrics       = true
	DefaultObservabilityHealthz       = true
)
