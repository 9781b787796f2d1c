package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. MCPCLIENT_LLM_MODEL.
const EnvPrefix = "MCPCLIENT"

type Loader struct {
	logger *zap.Logger
	flags  *pflag.FlagSet
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("config")}
}

// WithFlags binds the flags registered by BindFlags as overrides.
func (l *Loader) WithFlags(flags *pflag.FlagSet) *Loader {
	next := *l
	next.flags = flags
	return &next
}

func newConfigViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("registry.kind", string(domain.DefaultRegistryKind))
	v.SetDefault("registry.serverAddr", domain.DefaultRegistryServerAddr)
	v.SetDefault("registry.namespace", "")
	v.SetDefault("registry.group", domain.DefaultRegistryGroup)
	v.SetDefault("registry.username", "")
	v.SetDefault("registry.password", "")
	v.SetDefault("registry.timeoutSeconds", domain.DefaultRegistryTimeoutSeconds)
	v.SetDefault("discovery.targetDomains", []string{})
	v.SetDefault("discovery.refreshIntervalSeconds", domain.DefaultRefreshIntervalSeconds)
	v.SetDefault("discovery.fetchConcurrency", domain.DefaultFetchConcurrency)
	v.SetDefault("llm.provider", domain.DefaultLLMProvider)
	v.SetDefault("llm.model", domain.DefaultLLMModel)
	v.SetDefault("llm.baseURL", domain.DefaultLLMBaseURL)
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.apiKeyEnvVar", domain.DefaultLLMAPIKeyEnvVar)
	v.SetDefault("llm.maxTokens", domain.DefaultLLMMaxTokens)
	v.SetDefault("llm.temperature", domain.DefaultLLMTemperature)
	v.SetDefault("llm.timeoutSeconds", domain.DefaultLLMTimeoutSeconds)
	v.SetDefault("provider.transport", string(domain.DefaultProviderTransport))
	v.SetDefault("provider.timeoutSeconds", domain.DefaultProviderTimeoutSeconds)
	v.SetDefault("provider.orderTool", domain.DefaultOrderTool)
	v.SetDefault("provider.userTool", domain.DefaultUserTool)
	v.SetDefault("provider.mcpPath", domain.DefaultProviderMCPPath)
	v.SetDefault("provider.httpPathPrefix", domain.DefaultProviderHTTPPathPrefix)
	v.SetDefault("conversation.maxHistoryLength", domain.DefaultMaxHistoryLength)
	v.SetDefault("http.listenAddress", domain.DefaultHTTPListenAddress)
	v.SetDefault("http.bodyLimit", domain.DefaultHTTPBodyLimit)
	v.SetDefault("http.rateLimit", 0)
	v.SetDefault("http.allowedOrigins", []string{})
	v.SetDefault("http.shutdownTimeoutSeconds", domain.DefaultShutdownTimeoutSeconds)
	v.SetDefault("observability.listenAddress", domain.DefaultObservabilityListenAddress)
	v.SetDefault("observability.metrics", domain.DefaultObservabilityMetrics)
	v.SetDefault("observability.healthz", domain.DefaultObservabilityHealthz)
}

type rawConfig struct {
	Registry      rawRegistryConfig      `mapstructure:"registry"`
	Discovery     rawDiscoveryConfig     `mapstructure:"discovery"`
	LLM           rawLLMConfig           `mapstructure:"llm"`
	Provider      rawProviderConfig      `mapstructure:"provider"`
	Conversation  rawConversationConfig  `mapstructure:"conversation"`
	HTTP          rawHTTPConfig          `mapstructure:"http"`
	Observability rawObservabilityConfig `mapstructure:"observability"`
}

type rawRegistryConfig struct {
	Kind           string             `mapstructure:"kind"`
	ServerAddr     string             `mapstructure:"serverAddr"`
	Namespace      string             `mapstructure:"namespace"`
	Group          string             `mapstructure:"group"`
	Username       string             `mapstructure:"username"`
	Password       string             `mapstructure:"password"`
	TimeoutSeconds int                `mapstructure:"timeoutSeconds"`
	Services       []rawStaticService `mapstructure:"services"`
}

type rawStaticService struct {
	Name      string                `mapstructure:"name"`
	Instances []rawRegistryInstance `mapstructure:"instances"`
}

type rawRegistryInstance struct {
	IP       string            `mapstructure:"ip"`
	Port     int               `mapstructure:"port"`
	Healthy  *bool             `mapstructure:"healthy"`
	Metadata map[string]string `mapstructure:"metadata"`
}

type rawDiscoveryConfig struct {
	TargetDomains          []string `mapstructure:"targetDomains"`
	RefreshIntervalSeconds int      `mapstructure:"refreshIntervalSeconds"`
	FetchConcurrency       int      `mapstructure:"fetchConcurrency"`
}

type rawLLMConfig struct {
	Provider       string  `mapstructure:"provider"`
	Model          string  `mapstructure:"model"`
	BaseURL        string  `mapstructure:"baseURL"`
	APIKey         string  `mapstructure:"apiKey"`
	APIKeyEnvVar   string  `mapstructure:"apiKeyEnvVar"`
	MaxTokens      int     `mapstructure:"maxTokens"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeoutSeconds"`
}

type rawProviderConfig struct {
	Transport      string `mapstructure:"transport"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
	OrderTool      string `mapstructure:"orderTool"`
	UserTool       string `mapstructure:"userTool"`
	MCPPath        string `mapstructure:"mcpPath"`
	HTTPPathPrefix string `mapstructure:"httpPathPrefix"`
}

type rawConversationConfig struct {
	MaxHistoryLength int `mapstructure:"maxHistoryLength"`
}

type rawHTTPConfig struct {
	ListenAddress          string   `mapstructure:"listenAddress"`
	BodyLimit              string   `mapstructure:"bodyLimit"`
	RateLimit              float64  `mapstructure:"rateLimit"`
	AllowedOrigins         []string `mapstructure:"allowedOrigins"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdownTimeoutSeconds"`
}

type rawObservabilityConfig struct {
	ListenAddress string `mapstructure:"listenAddress"`
	Metrics       bool   `mapstructure:"metrics"`
	Healthz       bool   `mapstructure:"healthz"`
}

// Load reads the YAML config at path, expanding environment references and
// applying defaults, MCPCLIENT_* variables and bound flags. An empty path
// loads defaults only.
func (l *Loader) Load(ctx context.Context, path string) (domain.Config, error) {
	v := newConfigViper()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.Config{}, fmt.Errorf("read config: %w", err)
		}
		expanded, missing, err := expandConfigEnv(data)
		if err != nil {
			return domain.Config{}, err
		}
		if len(missing) > 0 {
			l.logger.Warn("missing environment variables in config", zap.String("path", path), zap.Strings("missing", missing))
		}
		if err := validateConfigSchema(expanded); err != nil {
			return domain.Config{}, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
		}
		if err := v.ReadConfig(bytes.NewReader(expanded)); err != nil {
			return domain.Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := bindFlags(v, l.flags); err != nil {
		return domain.Config{}, err
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return domain.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.Config{}, err
	}

	cfg, errs := normalizeConfig(raw)
	if len(errs) > 0 {
		return domain.Config{}, fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return cfg, nil
}

func normalizeConfig(raw rawConfig) (domain.Config, []string) {
	var errs []string

	registry := domain.RegistryConfig{
		Kind:           domain.RegistryKind(strings.ToLower(strings.TrimSpace(raw.Registry.Kind))),
		ServerAddr:     strings.TrimSpace(raw.Registry.ServerAddr),
		Namespace:      strings.TrimSpace(raw.Registry.Namespace),
		Group:          strings.TrimSpace(raw.Registry.Group),
		Username:       raw.Registry.Username,
		Password:       raw.Registry.Password,
		TimeoutSeconds: raw.Registry.TimeoutSeconds,
	}
	switch registry.Kind {
	case domain.RegistryKindNacos:
		if registry.ServerAddr == "" {
			errs = append(errs, "registry.serverAddr is required for the nacos registry")
		}
	case domain.RegistryKindStatic:
	default:
		errs = append(errs, fmt.Sprintf("registry.kind %q is not supported", registry.Kind))
	}
	if registry.Group == "" {
		registry.Group = domain.DefaultRegistryGroup
	}
	if registry.TimeoutSeconds <= 0 {
		errs = append(errs, "registry.timeoutSeconds must be > 0")
	}
	services, serviceErrs := normalizeStaticServices(raw.Registry.Services)
	registry.Services = services
	errs = append(errs, serviceErrs...)

	discovery := domain.DiscoveryConfig{
		TargetDomains:          normalizeList(raw.Discovery.TargetDomains, true),
		RefreshIntervalSeconds: raw.Discovery.RefreshIntervalSeconds,
		FetchConcurrency:       raw.Discovery.FetchConcurrency,
	}
	if discovery.RefreshIntervalSeconds <= 0 {
		errs = append(errs, "discovery.refreshIntervalSeconds must be > 0")
	}
	if discovery.FetchConcurrency <= 0 {
		discovery.FetchConcurrency = domain.DefaultFetchConcurrency
	}

	llm := domain.LLMConfig{
		Provider:       strings.ToLower(strings.TrimSpace(raw.LLM.Provider)),
		Model:          strings.TrimSpace(raw.LLM.Model),
		BaseURL:        strings.TrimSpace(raw.LLM.BaseURL),
		APIKey:         strings.TrimSpace(raw.LLM.APIKey),
		APIKeyEnvVar:   strings.TrimSpace(raw.LLM.APIKeyEnvVar),
		MaxTokens:      raw.LLM.MaxTokens,
		Temperature:    float32(raw.LLM.Temperature),
		TimeoutSeconds: raw.LLM.TimeoutSeconds,
	}
	if llm.Model == "" {
		errs = append(errs, "llm.model is required")
	}
	if llm.MaxTokens <= 0 {
		errs = append(errs, "llm.maxTokens must be > 0")
	}
	if llm.Temperature < 0 || llm.Temperature > 2 {
		errs = append(errs, "llm.temperature must be between 0 and 2")
	}
	if llm.TimeoutSeconds <= 0 {
		errs = append(errs, "llm.timeoutSeconds must be > 0")
	}

	provider := domain.ProviderConfig{
		Transport:      domain.ProviderTransport(strings.ToLower(strings.TrimSpace(raw.Provider.Transport))),
		TimeoutSeconds: raw.Provider.TimeoutSeconds,
		OrderTool:      strings.TrimSpace(raw.Provider.OrderTool),
		UserTool:       strings.TrimSpace(raw.Provider.UserTool),
		MCPPath:        ensureLeadingSlash(raw.Provider.MCPPath),
		HTTPPathPrefix: ensureTrailingSlash(ensureLeadingSlash(raw.Provider.HTTPPathPrefix)),
	}
	switch provider.Transport {
	case domain.ProviderTransportAuto, domain.ProviderTransportMCP, domain.ProviderTransportHTTP:
	default:
		errs = append(errs, fmt.Sprintf("provider.transport %q is not supported", provider.Transport))
	}
	if provider.TimeoutSeconds <= 0 {
		errs = append(errs, "provider.timeoutSeconds must be > 0")
	}
	if provider.OrderTool == "" || provider.UserTool == "" {
		errs = append(errs, "provider.orderTool and provider.userTool are required")
	}

	conversation := domain.ConversationConfig{MaxHistoryLength: raw.Conversation.MaxHistoryLength}
	if conversation.MaxHistoryLength <= 0 {
		errs = append(errs, "conversation.maxHistoryLength must be > 0")
	}

	httpCfg := domain.HTTPConfig{
		ListenAddress:          strings.TrimSpace(raw.HTTP.ListenAddress),
		BodyLimit:              strings.TrimSpace(raw.HTTP.BodyLimit),
		RateLimit:              raw.HTTP.RateLimit,
		AllowedOrigins:         normalizeList(raw.HTTP.AllowedOrigins, false),
		ShutdownTimeoutSeconds: raw.HTTP.ShutdownTimeoutSeconds,
	}
	if httpCfg.ListenAddress == "" {
		errs = append(errs, "http.listenAddress is required")
	}
	if httpCfg.RateLimit < 0 {
		errs = append(errs, "http.rateLimit must be >= 0")
	}
	if httpCfg.ShutdownTimeoutSeconds <= 0 {
		errs = append(errs, "http.shutdownTimeoutSeconds must be > 0")
	}

	observability := domain.ObservabilityConfig{
		ListenAddress: strings.TrimSpace(raw.Observability.ListenAddress),
		Metrics:       raw.Observability.Metrics,
		Healthz:       raw.Observability.Healthz,
	}
	if (observability.Metrics || observability.Healthz) && observability.ListenAddress == "" {
		errs = append(errs, "observability.listenAddress is required when metrics or healthz is enabled")
	}

	return domain.Config{
		Registry:      registry,
		Discovery:     discovery,
		LLM:           llm,
		Provider:      provider,
		Conversation:  conversation,
		HTTP:          httpCfg,
		Observability: observability,
	}, errs
}

func normalizeStaticServices(raw []rawStaticService) ([]domain.StaticService, []string) {
	if len(raw) == 0 {
		return nil, nil
	}
	var errs []string
	seen := make(map[string]struct{}, len(raw))
	out := make([]domain.StaticService, 0, len(raw))
	for i, svc := range raw {
		name := strings.TrimSpace(svc.Name)
		if name == "" {
			errs = append(errs, fmt.Sprintf("registry.services[%d]: name is required", i))
			continue
		}
		if _, dup := seen[name]; dup {
			errs = append(errs, fmt.Sprintf("registry.services[%d]: duplicate name %q", i, name))
			continue
		}
		seen[name] = struct{}{}

		instances := make([]domain.RegistryInstance, 0, len(svc.Instances))
		for j, inst := range svc.Instances {
			if strings.TrimSpace(inst.IP) == "" || inst.Port <= 0 {
				errs = append(errs, fmt.Sprintf("registry.services[%d].instances[%d]: ip and port are required", i, j))
				continue
			}
			healthy := true
			if inst.Healthy != nil {
				healthy = *inst.Healthy
			}
			instances = append(instances, domain.RegistryInstance{
				IP:       strings.TrimSpace(inst.IP),
				Port:     inst.Port,
				Healthy:  healthy,
				Metadata: inst.Metadata,
			})
		}
		out = append(out, domain.StaticService{Name: name, Instances: instances})
	}
	return out, errs
}

func normalizeList(values []string, lower bool) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		// Env overrides arrive as one comma separated string.
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if lower {
				part = strings.ToLower(part)
			}
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func ensureLeadingSlash(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}

func ensureTrailingSlash(path string) string {
	if path == "" || strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}

// ErrNoConfigPath reports a command that needs a config file but got none.
var ErrNoConfigPath = errors.New("config path is required")
