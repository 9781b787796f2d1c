package domain

import (
	"errors"
	"net"
	"strconv"
	"strings"
)

// Connection detail keys published on every decoded Tool.
const (
	ConnProtocol    = "protocol"
	ConnVersion     = "version"
	ConnIP          = "ip"
	ConnPort        = "port"
	ConnDomain      = "domain"
	ConnServiceName = "serviceName"
)

// Registry metadata keys read from each service instance.
const (
	MetaProtocol   = "protocol"
	MetaVersion    = "mcp-version"
	MetaToolsCount = "mcp-tools-count"
)

// ServiceSuffix is stripped from a registry service name to derive its domain.
const ServiceSuffix = "-mcp"

// Tool is a remotely invocable capability advertised through registry metadata.
type Tool struct {
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	Domain            string            `json:"domain"`
	ServiceName       string            `json:"serviceName"`
	ConnectionDetails map[string]string `json:"connectionDetails"`
	InputSchema       string            `json:"inputSchema,omitempty"`
	OutputSchema      string            `json:"outputSchema,omitempty"`
	Documentation     string            `json:"documentation,omitempty"`
}

// Clone returns a deep copy of the tool.
func (t Tool) Clone() Tool {
	out := t
	if t.ConnectionDetails != nil {
		out.ConnectionDetails = make(map[string]string, len(t.ConnectionDetails))
		for k, v := range t.ConnectionDetails {
			out.ConnectionDetails[k] = v
		}
	}
	return out
}

// Address returns host:port from the connection details, or "" when unknown.
func (t Tool) Address() string {
	ip := t.ConnectionDetails[ConnIP]
	port := t.ConnectionDetails[ConnPort]
	if ip == "" || port == "" {
		return ""
	}
	return net.JoinHostPort(ip, port)
}

// RegistryInstance is one raw instance as published by the service registry.
type RegistryInstance struct {
	IP       string            `json:"ip"`
	Port     int               `json:"port"`
	Healthy  bool              `json:"healthy"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Address returns the instance network address.
func (i RegistryInstance) Address() string {
	return net.JoinHostPort(i.IP, strconv.Itoa(i.Port))
}

// Service groups the instances and tools published under one registry name.
type Service struct {
	ServiceName string             `json:"serviceName"`
	Domain      string             `json:"domain"`
	Protocol    string             `json:"protocol"`
	Version     string             `json:"version"`
	Instances   []RegistryInstance `json:"instances"`
	Tools       []Tool             `json:"tools"`
}

// Clone returns a deep copy of the service.
func (s Service) Clone() Service {
	out := s
	if s.Instances != nil {
		out.Instances = make([]RegistryInstance, len(s.Instances))
		for i, inst := range s.Instances {
			cp := inst
			if inst.Metadata != nil {
				cp.Metadata = make(map[string]string, len(inst.Metadata))
				for k, v := range inst.Metadata {
					cp.Metadata[k] = v
				}
			}
			out.Instances[i] = cp
		}
	}
	if s.Tools != nil {
		out.Tools = make([]Tool, len(s.Tools))
		for i, tool := range s.Tools {
			out.Tools[i] = tool.Clone()
		}
	}
	return out
}

// DomainTools is the catalog view used by the domain resolver.
type DomainTools struct {
	Domain string
	Tools  []Tool
}

// DomainFromServiceName strips the conventional registry suffix.
func DomainFromServiceName(serviceName string) string {
	return strings.TrimSuffix(serviceName, ServiceSuffix)
}

var (
	ErrRegistryUnavailable = errors.New("service registry unavailable")
	ErrServiceNotFound     = errors.New("service not found")
	ErrToolNotFound        = errors.New("tool not found")
	ErrCardNotFound        = errors.New("card not found")
	ErrRecordNotFound      = errors.New("record not found")
	ErrNoCompletion        = errors.New("no response generated")
	ErrInvalidConfig       = errors.New("invalid config")
	ErrUnknownCardType     = errors.New("unknown card type")
)
