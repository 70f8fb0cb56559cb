package model

// VisitorEvent is the payload accepted by the smart-tracker endpoint.
type VisitorEvent struct {
	IP        string `json:"ip,omitempty"`
	Country   string `json:"country,omitempty"`
	City      string `json:"city,omitempty"`
	Region    string `json:"region,omitempty"`
	Timestamp string `json:"timestamp"`
	Referrer  string `json:"referrer,omitempty"`
	Pathname  string `json:"pathname,omitempty"`
}

// TrackDecision is the outcome of the AI-gated tracking decision.
type TrackDecision struct {
	Tracked bool   `json:"tracked"`
	Reason  string `json:"reason"`
}

// WhoisRecord is the normalized WHOIS lookup result.
type WhoisRecord struct {
	DomainName  string   `json:"domainName"`
	Registrar   string   `json:"registrar,omitempty"`
	CreatedDate string   `json:"createdDate,omitempty"`
	ExpiresDate string   `json:"expiresDate,omitempty"`
	UpdatedDate string   `json:"updatedDate,omitempty"`
	NameServers []string `json:"nameServers,omitempty"`
	Status      []string `json:"status,omitempty"`
}
