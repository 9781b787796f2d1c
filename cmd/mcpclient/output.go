package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

type outputFormat string

const (
	outputText outputFormat = "text"
	outputJSON outputFormat = "json"
	outputYAML outputFormat = "yaml"
)

func parseOutputFormat(value string) (outputFormat, error) {
	switch format := outputFormat(strings.ToLower(strings.TrimSpace(value))); format {
	case outputText, outputJSON, outputYAML:
		return format, nil
	case "":
		return outputText, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", value)
	}
}

func writeJSON(w io.Writer, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeYAML routes through JSON so field names follow the json tags.
func writeYAML(w io.Writer, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func printServices(w io.Writer, services []domain.Service, format outputFormat) error {
	switch format {
	case outputJSON:
		return writeJSON(w, services)
	case outputYAML:
		return writeYAML(w, services)
	}

	tools := 0
	for _, svc := range services {
		tools += len(svc.Tools)
	}
	fmt.Fprintf(w, "services=%d tools=%d\n", len(services), tools)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DOMAIN\tSERVICE\tTOOL\tDESCRIPTION")
	for _, svc := range services {
		if len(svc.Tools) == 0 {
			fmt.Fprintf(tw, "%s\t%s\t-\t\n", svc.Domain, svc.ServiceName)
			continue
		}
		for _, tool := range svc.Tools {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", svc.Domain, svc.ServiceName, tool.Name, tool.Description)
		}
	}
	return tw.Flush()
}

func printReply(w io.Writer, reply domain.ChatReply, format outputFormat) error {
	switch format {
	case outputJSON:
		return writeJSON(w, reply)
	case outputYAML:
		return writeYAML(w, reply)
	}
	fmt.Fprintf(w, "session=%s success=%t\n", reply.SessionID, reply.Success)
	_, err := fmt.Fprintln(w, reply.Message)
	return err
}
