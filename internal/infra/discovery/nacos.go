package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

const nacosPageSize = 100

// NacosConfig configures the Nacos naming client.
type NacosConfig struct {
	ServerAddr string
	Namespace  string
	Username   string
	Password   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NacosClient lists services and instances through the Nacos naming open API.
type NacosClient struct {
	baseURL    string
	namespace  string
	username   string
	password   string
	httpClient *http.Client
	logger     *zap.Logger

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

type nacosServiceList struct {
	Count int      `json:"count"`
	Doms  []string `json:"doms"`
}

type nacosInstanceList struct {
	Name  string          `json:"name"`
	Hosts []nacosInstance `json:"hosts"`
}

type nacosInstance struct {
	IP       string            `json:"ip"`
	Port     int               `json:"port"`
	Healthy  bool              `json:"healthy"`
	Enabled  bool              `json:"enabled"`
	Metadata map[string]string `json:"metadata"`
}

type nacosLogin struct {
	AccessToken string `json:"accessToken"`
	TokenTTL    int64  `json:"tokenTtl"`
}

func NewNacosClient(cfg NacosConfig) *NacosClient {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Duration(domain.DefaultRegistryTimeoutSeconds) * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.ServerAddr), "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &NacosClient{
		baseURL:    base,
		namespace:  cfg.Namespace,
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: httpClient,
		logger:     logger.Named("nacos"),
	}
}

// ListServices returns every service name registered in the group.
func (c *NacosClient) ListServices(ctx context.Context, group string) ([]string, error) {
	var names []string
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("pageNo", fmt.Sprint(page))
		params.Set("pageSize", fmt.Sprint(nacosPageSize))
		if group != "" {
			params.Set("groupName", group)
		}

		var out nacosServiceList
		if err := c.get(ctx, "/nacos/v1/ns/service/list", params, &out); err != nil {
			return nil, err
		}
		names = append(names, out.Doms...)
		if len(out.Doms) < nacosPageSize || len(names) >= out.Count {
			break
		}
	}
	return names, nil
}

// ListInstances returns the enabled instances of one service.
func (c *NacosClient) ListInstances(ctx context.Context, serviceName string, group string) ([]domain.RegistryInstance, error) {
	params := url.Values{}
	params.Set("serviceName", serviceName)
	if group != "" {
		params.Set("groupName", group)
	}
	params.Set("healthyOnly", "false")

	var out nacosInstanceList
	if err := c.get(ctx, "/nacos/v1/ns/instance/list", params, &out); err != nil {
		return nil, err
	}

	instances := make([]domain.RegistryInstance, 0, len(out.Hosts))
	for _, host := range out.Hosts {
		if !host.Enabled {
			continue
		}
		instances = append(instances, domain.RegistryInstance{
			IP:       host.IP,
			Port:     host.Port,
			Healthy:  host.Healthy,
			Metadata: host.Metadata,
		})
	}
	return instances, nil
}

func (c *NacosClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.namespace != "" {
		params.Set("namespaceId", c.namespace)
	}
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	if token != "" {
		params.Set("accessToken", token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRegistryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned status %d: %s", domain.ErrRegistryUnavailable, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *NacosClient) token(ctx context.Context) (string, error) {
	if c.username == "" {
		return "", nil
	}
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/nacos/v1/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: login: %v", domain.ErrRegistryUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: login returned status %d", domain.ErrRegistryUnavailable, resp.StatusCode)
	}

	var login nacosLogin
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	ttl := time.Duration(login.TokenTTL) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	// Renew at 90% of the advertised TTL.
	c.accessToken = login.AccessToken
	c.tokenExpiry = time.Now().Add(ttl * 9 / 10)
	c.logger.Debug("nacos access token refreshed", zap.Duration("ttl", ttl))
	return c.accessToken, nil
}

var _ domain.ServiceRegistry = (*NacosClient)(nil)
