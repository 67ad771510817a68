package domain

import "time"

// Status event types published while a request is being served.
const (
	EventBrowsingStarted   = "browsing.started"
	EventSearchCompleted   = "search.completed"
	EventProviderCompleted = "provider.completed"
)

// StatusEvent is a progress notification for front-ends that show what the
// gateway is doing ("searching the web..."). Delivery is best effort.
type StatusEvent struct {
	Type        string      `json:"type"`
	SessionID   string      `json:"sessionId"`
	Model       string      `json:"model"`
	Domain      Domain      `json:"domain,omitempty"`
	Reliability Reliability `json:"reliability,omitempty"`
	Outcome     string      `json:"outcome,omitempty"`
	At          time.Time   `json:"at"`
}
