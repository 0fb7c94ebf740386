package history

// AgentType classifies which specialist produced an assistant message.
// It is metadata only and never changes how a message is stored.
type AgentType string

const (
	AgentSupport   AgentType = "support"
	AgentPolicy    AgentType = "policy"
	AgentTechnical AgentType = "technical"
	AgentBilling   AgentType = "billing"
	AgentDadJoke   AgentType = "dad_joke"
)

// AgentInfo is the display metadata for an AgentType.
type AgentInfo struct {
	DisplayName    string
	Badge          string
	Classification string
}

var agentInfo = map[AgentType]AgentInfo{
	AgentSupport:   {DisplayName: "Workplace Specialist", Badge: "SUPPORT", Classification: "General"},
	AgentPolicy:    {DisplayName: "Policy Specialist", Badge: "POLICY", Classification: "Compliance"},
	AgentTechnical: {DisplayName: "Technical Support", Badge: "TECHNICAL", Classification: "RAG"},
	AgentBilling:   {DisplayName: "Billing Support", Badge: "BILLING", Classification: "Hybrid"},
	AgentDadJoke:   {DisplayName: "ESDJ Bot", Badge: "DAD JOKE", Classification: "Humor"},
}

// AgentTypes lists every known agent type.
func AgentTypes() []AgentType {
	return []AgentType{AgentSupport, AgentPolicy, AgentTechnical, AgentBilling, AgentDadJoke}
}

// ParseAgentType reports whether s names a known agent type.
func ParseAgentType(s string) (AgentType, bool) {
	a := AgentType(s)
	_, ok := agentInfo[a]
	return a, ok
}

// Valid reports whether a is one of the known agent types.
func (a AgentType) Valid() bool {
	_, ok := agentInfo[a]
	return ok
}

// OrDefault maps empty and unknown values to AgentSupport.
func (a AgentType) OrDefault() AgentType {
	if a.Valid() {
		return a
	}
	return AgentSupport
}

// Info returns display metadata, falling back to the support entry.
func (a AgentType) Info() AgentInfo {
	return agentInfo[a.OrDefault()]
}

// UnmarshalText never fails: unknown classifications from older or newer
// services degrade to support.
func (a *AgentType) UnmarshalText(b []byte) error {
	*a = AgentType(b).OrDefault()
	return nil
}
