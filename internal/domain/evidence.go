package domain

import "time"

// EvidenceType classifies a piece of collected evidence.
type EvidenceType string

// Evidence types.
const (
	EvidenceTypeFile       EvidenceType = "file"
	EvidenceTypeLog        EvidenceType = "log"
	EvidenceTypeScreenshot EvidenceType = "screenshot"
	EvidenceTypeNetwork    EvidenceType = "network"
	EvidenceTypeMemory     EvidenceType = "memory"
	EvidenceTypeArtifact   EvidenceType = "artifact"
	EvidenceTypeOther      EvidenceType = "other"
)

// IsValid checks if the evidence type is one of the known values.
func (t EvidenceType) IsValid() bool {
	switch t {
	case EvidenceTypeFile, EvidenceTypeLog, EvidenceTypeScreenshot,
		EvidenceTypeNetwork, EvidenceTypeMemory, EvidenceTypeArtifact, EvidenceTypeOther:
		return true
	}
	return false
}

// Evidence is a collected artifact owned by exactly one incident. The chain
// of custody and analysis results are append-only.
type Evidence struct {
	ID              string           `json:"id"`
	Type            EvidenceType     `json:"type"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	CollectedBy     string           `json:"collected_by"`
	CollectedAt     time.Time        `json:"collected_at"`
	ContentHash     string           `json:"content_hash,omitempty"`
	ChainOfCustody  []CustodyRecord  `json:"chain_of_custody"`
	AnalysisResults []AnalysisResult `json:"analysis_results"`
}

// Clone returns a deep copy of the evidence item.
func (e Evidence) Clone() Evidence {
	out := e
	out.ChainOfCustody = cloneSlice(e.ChainOfCustody)
	out.AnalysisResults = cloneSlice(e.AnalysisResults)
	return out
}

// CustodyRecord is one handover entry in an evidence chain of custody.
type CustodyRecord struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	Notes      string    `json:"notes,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// AnalysisResult is the outcome of one analysis pass over an evidence item.
type AnalysisResult struct {
	ID         string    `json:"id"`
	Analyst    string    `json:"analyst"`
	Summary    string    `json:"summary"`
	Verdict    string    `json:"verdict,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}
