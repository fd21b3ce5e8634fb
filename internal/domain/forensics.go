package domain

import "time"

// InvestigationStatus represents the state of a forensic investigation.
type InvestigationStatus string

// Investigation statuses.
const (
	InvestigationOpen      InvestigationStatus = "open"
	InvestigationCompleted InvestigationStatus = "completed"
)

// ForensicInvestigation is a forensic examination attached to one incident.
// Investigations are never deleted; once started they can only accumulate
// findings or be completed. An incident may run several investigations at
// the same time.
type ForensicInvestigation struct {
	ID           string              `json:"id"`
	IncidentID   string              `json:"incident_id"`
	Investigator string              `json:"investigator"`
	Scope        string              `json:"scope"`
	Status       InvestigationStatus `json:"status"`
	StartedAt    time.Time           `json:"started_at"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
	ReportRef    string              `json:"report_ref,omitempty"`
	Findings     []ForensicFinding   `json:"findings"`
}

// Clone returns a deep copy of the investigation.
func (f *ForensicInvestigation) Clone() *ForensicInvestigation {
	out := *f
	out.CompletedAt = cloneTime(f.CompletedAt)
	out.Findings = make([]ForensicFinding, len(f.Findings))
	for n, finding := range f.Findings {
		c := finding
		c.EvidenceRefs = cloneSlice(finding.EvidenceRefs)
		out.Findings[n] = c
	}
	return &out
}

// ForensicFinding is one discovery recorded during an investigation.
type ForensicFinding struct {
	ID           string    `json:"id"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	EvidenceRefs []string  `json:"evidence_refs"`
	RecordedBy   string    `json:"recorded_by"`
	RecordedAt   time.Time `json:"recorded_at"`
}
