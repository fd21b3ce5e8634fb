package domain

import "time"

// RuleMatch selects how a rule combines its conditions.
type RuleMatch string

// Rule matching modes.
const (
	MatchAny RuleMatch = "any"
	MatchAll RuleMatch = "all"
)

// IsValid checks if the matching mode is one of the known values.
func (m RuleMatch) IsValid() bool {
	return m == MatchAny || m == MatchAll
}

// RuleConditionField names the incident attribute a condition inspects.
type RuleConditionField string

// Rule condition fields.
const (
	ConditionSeverity RuleConditionField = "severity"
	ConditionCategory RuleConditionField = "category"
)

// RuleCondition is a single equality test against an incident attribute.
type RuleCondition struct {
	Field  RuleConditionField `json:"field"`
	Equals string             `json:"equals"`
}

// holds checks the condition against incident attributes.
func (c RuleCondition) holds(severity IncidentSeverity, category IncidentCategory) bool {
	switch c.Field {
	case ConditionSeverity:
		return string(severity) == c.Equals
	case ConditionCategory:
		return string(category) == c.Equals
	}
	return false
}

// RuleActionType names the automated response a rule can take.
type RuleActionType string

// Rule action types.
const (
	RuleActionAssign   RuleActionType = "assign"
	RuleActionEscalate RuleActionType = "escalate"
	RuleActionAddTag   RuleActionType = "add_tag"
	RuleActionNotify   RuleActionType = "notify"
)

// IsValid checks if the action type is one of the known values.
func (t RuleActionType) IsValid() bool {
	return t == RuleActionAssign || t == RuleActionEscalate ||
		t == RuleActionAddTag || t == RuleActionNotify
}

// RuleAction is one automated response with its parameters.
type RuleAction struct {
	Type   RuleActionType    `json:"type"`
	Params map[string]string `json:"params"`
}

// AutomationRule matches incidents by severity or category and applies a list
// of actions. Each execution increments the execution counter and records the
// trigger time; executing a rule is an observable side effect, not idempotent.
type AutomationRule struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Enabled         bool            `json:"enabled"`
	Match           RuleMatch       `json:"match"`
	Conditions      []RuleCondition `json:"conditions"`
	Actions         []RuleAction    `json:"actions"`
	ExecutionCount  int             `json:"execution_count"`
	LastTriggeredAt *time.Time      `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Matches evaluates the rule's conditions against incident attributes,
// combining them per the rule's matching mode. A rule with no conditions
// never matches.
func (r *AutomationRule) Matches(severity IncidentSeverity, category IncidentCategory) bool {
	if len(r.Conditions) == 0 {
		return false
	}

	if r.Match == MatchAll {
		for _, c := range r.Conditions {
			if !c.holds(severity, category) {
				return false
			}
		}
		return true
	}

	for _, c := range r.Conditions {
		if c.holds(severity, category) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the rule.
func (r *AutomationRule) Clone() *AutomationRule {
	out := *r
	out.LastTriggeredAt = cloneTime(r.LastTriggeredAt)
	out.Conditions = cloneSlice(r.Conditions)
	out.Actions = make([]RuleAction, len(r.Actions))
	for n, a := range r.Actions {
		c := a
		if a.Params != nil {
			c.Params = make(map[string]string, len(a.Params))
			for k, v := range a.Params {
				c.Params[k] = v
			}
		}
		out.Actions[n] = c
	}
	return &out
}

// EscalationRule raises the severity of incidents that stay unresponded past
// their deadline. Applied by the SLA watchdog.
type EscalationRule struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Severity           IncidentSeverity `json:"severity"`
	MaxResponseMinutes int              `json:"max_response_minutes"`
	EscalateTo         IncidentSeverity `json:"escalate_to"`
	Notify             []string         `json:"notify"`
	Enabled            bool             `json:"enabled"`
	ExecutionCount     int              `json:"execution_count"`
	LastTriggeredAt    *time.Time       `json:"last_triggered_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

// Clone returns a deep copy of the rule.
func (r *EscalationRule) Clone() *EscalationRule {
	out := *r
	out.LastTriggeredAt = cloneTime(r.LastTriggeredAt)
	out.Notify = cloneSlice(r.Notify)
	return &out
}
