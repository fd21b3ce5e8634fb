package playbooks

import "context"

// IncidentRecorder marks playbook executions on incident timelines. The
// incidents service satisfies it; execution fails when the incident does
// not exist, so recording doubles as the existence check.
type IncidentRecorder interface {
	RecordPlaybookExecution(ctx context.Context, incidentID, playbookID, playbookName, executionID, executedBy string) error
}
