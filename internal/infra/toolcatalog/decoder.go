package toolcatalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

// DecodeTools translates one instance's metadata into tools. A missing or
// non-numeric tool count yields no tools; indices without a name are skipped.
// The returned warnings describe dropped optional fields.
func DecodeTools(serviceName, domainName string, inst domain.RegistryInstance) ([]domain.Tool, []string) {
	meta := inst.Metadata
	count, ok := toolCount(meta)
	if !ok {
		return nil, nil
	}

	protocol := metaOrDefault(meta, domain.MetaProtocol, domain.DefaultToolProtocol)
	version := metaOrDefault(meta, domain.MetaVersion, domain.DefaultToolVersion)

	var warnings []string
	tools := make([]domain.Tool, 0, count)
	for i := 0; i < count; i++ {
		name, ok := meta[toolKey(i, "name")]
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		tool := domain.Tool{
			Name:        name,
			Description: meta[toolKey(i, "description")],
			Domain:      domainName,
			ServiceName: serviceName,
			ConnectionDetails: map[string]string{
				domain.ConnProtocol:    protocol,
				domain.ConnVersion:     version,
				domain.ConnIP:          inst.IP,
				domain.ConnPort:        strconv.Itoa(inst.Port),
				domain.ConnDomain:      domainName,
				domain.ConnServiceName: serviceName,
			},
			Documentation: meta[toolKey(i, "documentation")],
		}
		if raw, ok := meta[toolKey(i, "input-schema")]; ok {
			if err := checkSchema(raw); err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: input schema dropped: %v", name, err))
			} else {
				tool.InputSchema = raw
			}
		}
		if raw, ok := meta[toolKey(i, "output-schema")]; ok {
			if err := checkSchema(raw); err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: output schema dropped: %v", name, err))
			} else {
				tool.OutputSchema = raw
			}
		}
		tools = append(tools, tool)
	}
	return tools, warnings
}

// BuildService assembles a Service from the instances of one registry entry.
// Protocol, version and tools come from the first instance.
func BuildService(serviceName string, instances []domain.RegistryInstance) (domain.Service, []string) {
	domainName := domain.DomainFromServiceName(serviceName)
	svc := domain.Service{
		ServiceName: serviceName,
		Domain:      domainName,
		Protocol:    domain.DefaultToolProtocol,
		Version:     domain.DefaultToolVersion,
		Instances:   append([]domain.RegistryInstance(nil), instances...),
		Tools:       []domain.Tool{},
	}
	if len(instances) == 0 {
		return svc, nil
	}

	first := instances[0]
	svc.Protocol = metaOrDefault(first.Metadata, domain.MetaProtocol, domain.DefaultToolProtocol)
	svc.Version = metaOrDefault(first.Metadata, domain.MetaVersion, domain.DefaultToolVersion)

	tools, warnings := DecodeTools(serviceName, domainName, first)
	if tools != nil {
		svc.Tools = tools
	}
	return svc, warnings
}

// ParseSchema resolves a JSON Schema document published for a tool.
func ParseSchema(raw string) (*jsonschema.Resolved, error) {
	var schema jsonschema.Schema
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema: %w", err)
	}
	return resolved, nil
}

func checkSchema(raw string) error {
	_, err := ParseSchema(raw)
	return err
}

func toolCount(meta map[string]string) (int, bool) {
	raw, ok := meta[domain.MetaToolsCount]
	if !ok {
		return 0, false
	}
	count, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || count <= 0 {
		return 0, false
	}
	return count, true
}

func toolKey(index int, field string) string {
	return "tool-" + strconv.Itoa(index) + "-" + field
}

func metaOrDefault(meta map[string]string, key, fallback string) string {
	if value := strings.TrimSpace(meta[key]); value != "" {
		return value
	}
	return fallback
}
