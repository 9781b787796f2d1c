package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

const promptIntro = `You are an AI assistant with access to specialized MCP tools in various business domains.
Your task is to help the user by providing information or performing actions using these tools.

`

const promptGuidelines = `Guidelines for tool selection and response:
1. First determine which domain is most relevant to the user's query.
2. Then select the most appropriate tool(s) based on their descriptions.
3. Explain how the selected tool(s) can address the user's query.
4. If the domain is unclear, analyze the content to determine the most appropriate domain.
5. For queries spanning multiple domains, explain which tools from each domain could be helpful.
6. Do not invent tool capabilities beyond what is described in the tool information.
7. If no suitable tools exist for a query, explain that you don't have access to tools for that specific request.
8. Keep your responses focused, clear, and helpful.
9. Maintain context of the conversation history and refer back to previous questions when relevant.
10. If the user's query relates to orders, logistics or package tracking, suggest using the special message card feature.

Format your response as a helpful AI assistant integrating knowledge about the available tools.
`

// BuildSystemPrompt renders the tool catalog as JSON, listing the focus
// domain's tools ahead of the full catalog when a domain is known.
func BuildSystemPrompt(groups []domain.DomainTools, focusDomain string) (string, error) {
	all := make([]domain.Tool, 0)
	var focus []domain.Tool
	for _, group := range groups {
		all = append(all, group.Tools...)
		if focusDomain != "" && strings.EqualFold(group.Domain, focusDomain) {
			focus = append(focus, group.Tools...)
		}
	}

	var sb strings.Builder
	sb.WriteString(promptIntro)

	if len(focus) > 0 {
		focusJSON, err := json.Marshal(focus)
		if err != nil {
			return "", fmt.Errorf("encode domain tools: %w", err)
		}
		sb.WriteString(fmt.Sprintf("Based on the user's message, I've determined that the %s domain is most relevant.\n\n", focusDomain))
		sb.WriteString(fmt.Sprintf("Priority tools for the %s domain:\n", focusDomain))
		sb.Write(focusJSON)
		sb.WriteString("\n\n")
	}

	allJSON, err := json.Marshal(all)
	if err != nil {
		return "", fmt.Errorf("encode tools: %w", err)
	}
	sb.WriteString("All available tools across domains:\n")
	sb.Write(allJSON)
	sb.WriteString("\n\n")
	sb.WriteString(promptGuidelines)
	return sb.String(), nil
}
