package types

// Event represents a typed event emitted during state transitions.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Attribute is an ordered key/value pair attached to a contract response.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
