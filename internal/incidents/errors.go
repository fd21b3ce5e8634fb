package incidents

import "errors"

// Lookup errors.
var (
	ErrIncidentNotFound      = errors.New("incident not found")
	ErrEvidenceNotFound      = errors.New("evidence not found")
	ErrTaskNotFound          = errors.New("task not found")
	ErrChecklistItemNotFound = errors.New("checklist item not found")
	ErrActionNotFound        = errors.New("response action not found")
	ErrResponderNotFound     = errors.New("responder not found")
	ErrInvestigationNotFound = errors.New("investigation not found")
)

// Validation errors.
var (
	ErrInvalidCategory     = errors.New("invalid incident category")
	ErrInvalidSeverity     = errors.New("invalid incident severity")
	ErrInvalidStatus       = errors.New("invalid incident status")
	ErrInvalidTransition   = errors.New("illegal incident status transition")
	ErrInvalidEvidenceType = errors.New("invalid evidence type")
	ErrInvalidTaskStatus   = errors.New("invalid task status")
	ErrInvalidPhase        = errors.New("invalid action phase")
	ErrInvalidActionStatus = errors.New("invalid action status")
)

// State errors.
var (
	ErrAlreadyClosed          = errors.New("incident already closed")
	ErrNotReopenable          = errors.New("incident is neither resolved nor closed")
	ErrChecklistItemCompleted = errors.New("checklist item already completed")
	ErrInvestigationCompleted = errors.New("investigation already completed")
)
