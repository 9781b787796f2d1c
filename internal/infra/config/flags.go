package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type flagBinding struct {
	name  string
	key   string
	usage string
}

var flagBindings = []flagBinding{
	{name: "listen", key: "http.listenAddress", usage: "HTTP API listen address"},
	{name: "registry-addr", key: "registry.serverAddr", usage: "service registry address"},
	{name: "registry-kind", key: "registry.kind", usage: "service registry kind (nacos|static)"},
	{name: "target-domains", key: "discovery.targetDomains", usage: "business domains to discover"},
	{name: "model", key: "llm.model", usage: "completion model id"},
	{name: "metrics-listen", key: "observability.listenAddress", usage: "metrics and health listen address"},
}

// BindFlags registers the config override flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	for _, binding := range flagBindings {
		if fs.Lookup(binding.name) != nil {
			continue
		}
		if binding.name == "target-domains" {
			fs.StringSlice(binding.name, nil, binding.usage)
			continue
		}
		fs.String(binding.name, "", binding.usage)
	}
}

// bindFlags applies only flags the user actually set.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	for _, binding := range flagBindings {
		flag := fs.Lookup(binding.name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(binding.key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", binding.name, err)
		}
	}
	return nil
}
