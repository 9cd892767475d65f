package domain

import "strings"

// Trigger lifecycle states. A trigger is born ACTIVE and finishes as
// either RESOLVED (stock recovered or PO received) or SUPERSEDED
// (replaced by a newer trigger with a materially different quantity).
const (
	TriggerActive     = "ACTIVE"
	TriggerResolved   = "RESOLVED"
	TriggerSuperseded = "SUPERSEDED"
)

// Trigger urgency levels.
const (
	UrgencyMedium = "MEDIUM"
	UrgencyHigh   = "HIGH"
)

var triggerStatuses = map[string]bool{
	TriggerActive:     true,
	TriggerResolved:   true,
	TriggerSuperseded: true,
}

// ParseTriggerStatus normalizes a status label (case-insensitive) and
// reports whether it is a known trigger state.
func ParseTriggerStatus(label string) (string, bool) {
	status := strings.ToUpper(strings.TrimSpace(label))
	return status, triggerStatuses[status]
}

// ClassifyUrgency returns HIGH when available stock is at or below the
// safety stock floor, MEDIUM otherwise.
func ClassifyUrgency(quantityAvailable, safetyStock int) string {
	if quantityAvailable <= safetyStock {
		return UrgencyHigh
	}
	return UrgencyMedium
}
