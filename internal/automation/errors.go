package automation

import "errors"

var (
	ErrRuleNotFound           = errors.New("automation rule not found")
	ErrEscalationRuleNotFound = errors.New("escalation rule not found")
	ErrIncidentNotFound       = errors.New("incident not found")
	ErrRuleDisabled           = errors.New("automation rule is disabled")
	ErrInvalidMatch           = errors.New("invalid rule match mode")
	ErrInvalidCondition       = errors.New("invalid rule condition")
	ErrInvalidAction          = errors.New("invalid rule action")
	ErrInvalidEscalation      = errors.New("invalid escalation rule")
)
