package domain

// RegistryKind selects the service registry client.
type RegistryKind string

const (
	RegistryKindNacos  RegistryKind = "nacos"
	RegistryKindStatic RegistryKind = "static"
)

// ProviderTransport selects how data provider tools are invoked.
type ProviderTransport string

const (
	// ProviderTransportAuto picks MCP or HTTP from the tool's published protocol.
	ProviderTransportAuto ProviderTransport = "auto"
	ProviderTransportMCP  ProviderTransport = "mcp"
	ProviderTransportHTTP ProviderTransport = "http"
)

// Config is the normalized application configuration.
type Config struct {
	Registry      RegistryConfig      `json:"registry"`
	Discovery     DiscoveryConfig     `json:"discovery"`
	LLM           LLMConfig           `json:"llm"`
	Provider      ProviderConfig      `json:"provider"`
	Conversation  ConversationConfig  `json:"conversation"`
	HTTP          HTTPConfig          `json:"http"`
	Observability ObservabilityConfig `json:"observability"`
}

type RegistryConfig struct {
	Kind           RegistryKind    `json:"kind"`
	ServerAddr     string          `json:"serverAddr"`
	Namespace      string          `json:"namespace,omitempty"`
	Group          string          `json:"group"`
	Username       string          `json:"username,omitempty"`
	Password       string          `json:"-"`
	TimeoutSeconds int             `json:"timeoutSeconds"`
	Services       []StaticService `json:"services,omitempty"`
}

// StaticService declares a registry entry served from the config file.
type StaticService struct {
	Name      string             `json:"name"`
	Instances []RegistryInstance `json:"instances"`
}

type DiscoveryConfig struct {
	TargetDomains          []string `json:"targetDomains,omitempty"`
	RefreshIntervalSeconds int      `json:"refreshIntervalSeconds"`
	FetchConcurrency       int      `json:"fetchConcurrency"`
}

type LLMConfig struct {
	Provider       string  `json:"provider"`
	Model          string  `json:"model"`
	BaseURL        string  `json:"baseURL,omitempty"`
	APIKey         string  `json:"-"`
	APIKeyEnvVar   string  `json:"apiKeyEnvVar,omitempty"`
	MaxTokens      int     `json:"maxTokens"`
	Temperature    float32 `json:"temperature"`
	TimeoutSeconds int     `json:"timeoutSeconds"`
}

type ProviderConfig struct {
	Transport      ProviderTransport `json:"transport"`
	TimeoutSeconds int               `json:"timeoutSeconds"`
	OrderTool      string            `json:"orderTool"`
	UserTool       string            `json:"userTool"`
	MCPPath        string            `json:"mcpPath"`
	HTTPPathPrefix string            `json:"httpPathPrefix"`
}

type ConversationConfig struct {
	MaxHistoryLength int `json:"maxHistoryLength"`
}

type HTTPConfig struct {
	ListenAddress          string   `json:"listenAddress"`
	BodyLimit              string   `json:"bodyLimit,omitempty"`
	RateLimit              float64  `json:"rateLimit,omitempty"`
	AllowedOrigins         []string `json:"allowedOrigins,omitempty"`
	ShutdownTimeoutSeconds int      `json:"shutdownTimeoutSeconds"`
}

type ObservabilityConfig struct {
	ListenAddress string `json:"listenAddress"`
	Metrics       bool   `json:"metrics"`
	Healthz       bool   `json:"healthz"`
}
