package domain

// Severity classifies outbound notification events.
// Params: info/warning/critical constants.
// Returns: severity used for channel-specific coloring.
type Severity string

const (
	// SeverityInfo marks renewal notices.
	SeverityInfo Severity = "info"
	// SeverityWarning marks threshold alerts more than a week out.
	SeverityWarning Severity = "warning"
	// SeverityCritical marks near-expiry alerts and probe failures.
	SeverityCritical Severity = "critical"
)

// Event is one abstract notification payload.
// Params: severity level and rendered message text.
// Returns: payload the dispatcher converts into channel wire formats.
type Event struct {
	Severity Severity
	Message  string
}
