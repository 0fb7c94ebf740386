package llm

import (
	"strings"

	"github.com/comigor/lifeline/internal/history"
)

// routes are checked in order; jokes win over everything else.
var routes = []struct {
	agent    history.AgentType
	keywords []string
}{
	{history.AgentDadJoke, []string{"joke", "funny", "humor", "laugh", "stressed", "overwhelmed"}},
	{history.AgentPolicy, []string{"policy", "privacy", "compliance", "terms", "gdpr"}},
	{history.AgentTechnical, []string{"error", "bug", "api", "install", "crash", "technical"}},
	{history.AgentBilling, []string{"billing", "invoice", "pricing", "price", "payment", "refund", "plans"}},
}

// RouteAgent picks the specialist for message with the same keyword rules
// the hosted orchestrator uses. Unmatched messages go to support.
func RouteAgent(message string) history.AgentType {
	lower := strings.ToLower(message)
	for _, r := range routes {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.agent
			}
		}
	}
	return history.AgentSupport
}
