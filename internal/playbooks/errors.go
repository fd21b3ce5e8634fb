package playbooks

import "errors"

var (
	ErrPlaybookNotFound  = errors.New("playbook not found")
	ErrExecutionNotFound = errors.New("playbook execution not found")
	ErrStepNotFound      = errors.New("playbook step not found")
	ErrIncidentNotFound  = errors.New("incident not found")
	ErrNoSteps           = errors.New("playbook must define at least one step")
	ErrInvalidCategory   = errors.New("invalid playbook category")
	ErrInvalidSeverity   = errors.New("invalid severity threshold")
	ErrInvalidRole       = errors.New("invalid required role")
	ErrInvalidStepStatus = errors.New("invalid step status")
	ErrExecutionFinished = errors.New("playbook execution already finished")
)
