//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bissquit/incident-forge/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaybooks_CreateAndList(t *testing.T) {
	client := newTestClient(t)

	id, stepIDs := createTestPlaybook(t, client, "Ransomware containment", "Isolate host", "Snapshot disk")
	require.Len(t, stepIDs, 2)

	resp, err := client.GET("/api/v1/playbooks/" + id)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var playbook struct {
		Data struct {
			Name  string `json:"name"`
			Steps []struct {
				Order int    `json:"order"`
				Name  string `json:"name"`
			} `json:"steps"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &playbook)
	assert.Equal(t, "Ransomware containment", playbook.Data.Name)
	require.Len(t, playbook.Data.Steps, 2)
	assert.Equal(t, 1, playbook.Data.Steps[0].Order)
	assert.Equal(t, "Isolate host", playbook.Data.Steps[0].Name)
	assert.Equal(t, 2, playbook.Data.Steps[1].Order)

	resp, err = client.GET("/api/v1/playbooks?category=Malware")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed struct {
		Data []struct {
			ID       string `json:"id"`
			Category string `json:"category"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &listed)

	found := false
	for _, pb := range listed.Data {
		assert.Equal(t, "Malware", pb.Category)
		if pb.ID == id {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPlaybooks_Create_RequiresSteps(t *testing.T) {
	client := newTestClientWithoutValidation()

	resp, err := client.POST("/api/v1/playbooks", map[string]interface{}{
		"name":               "Empty runbook",
		"category":           "Phishing",
		"severity_threshold": "Low",
		"steps":              []interface{}{},
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlaybooks_Execute(t *testing.T) {
	client := newTestClient(t)

	incidentID := createTestIncident(t, client, "Playbook target")
	playbookID, _ := createTestPlaybook(t, client, "Triage", "Confirm scope", "Notify owner")

	resp, err := client.POST("/api/v1/playbooks/"+playbookID+"/execute", map[string]interface{}{
		"incident_id": incidentID,
		"executor":    "runner",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var execution struct {
		Data struct {
			ID             string `json:"id"`
			Status         string `json:"status"`
			StepExecutions []struct {
				StepID string `json:"step_id"`
				Status string `json:"status"`
			} `json:"step_executions"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &execution)
	assert.Equal(t, "InProgress", execution.Data.Status)
	require.Len(t, execution.Data.StepExecutions, 2)
	for _, step := range execution.Data.StepExecutions {
		assert.Equal(t, "NotStarted", step.Status)
	}

	// Execution leaves a marker on the incident timeline.
	events := getIncidentTimeline(t, client, incidentID)
	last := events[len(events)-1]
	assert.Equal(t, "playbook_executed", last.Type)
	assert.Equal(t, "runner", last.Actor)

	// And it shows up under the incident's executions.
	resp, err = client.GET("/api/v1/incidents/" + incidentID + "/executions")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed struct {
		Data []struct {
			ID         string `json:"id"`
			PlaybookID string `json:"playbook_id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &listed)
	require.Len(t, listed.Data, 1)
	assert.Equal(t, execution.Data.ID, listed.Data[0].ID)
	assert.Equal(t, playbookID, listed.Data[0].PlaybookID)
}

func TestPlaybooks_Execute_UnknownIncident(t *testing.T) {
	client := newTestClient(t)
	rawClient := newTestClientWithoutValidation()

	playbookID, _ := createTestPlaybook(t, client, "Orphan guard", "Only step")

	resp, err := rawClient.POST("/api/v1/playbooks/"+playbookID+"/execute", map[string]interface{}{
		"incident_id": uuid.New().String(),
		"executor":    "runner",
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPlaybooks_Execute_UnknownPlaybook(t *testing.T) {
	client := newTestClient(t)
	rawClient := newTestClientWithoutValidation()

	incidentID := createTestIncident(t, client, "No playbook")

	resp, err := rawClient.POST("/api/v1/playbooks/"+uuid.New().String()+"/execute", map[string]interface{}{
		"incident_id": incidentID,
		"executor":    "runner",
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPlaybooks_StepProgressAndAutoComplete(t *testing.T) {
	client := newTestClient(t)

	incidentID := createTestIncident(t, client, "Stepwise response")
	playbookID, stepIDs := createTestPlaybook(t, client, "Two-step", "First", "Second")

	executionID := executeTestPlaybook(t, client, playbookID, incidentID)

	// Starting a step stamps started_at but leaves the parent running.
	resp, err := client.PATCH("/api/v1/executions/"+executionID+"/steps/"+stepIDs[0], map[string]interface{}{
		"status":      "InProgress",
		"assigned_to": "analyst-1",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var inProgress executionPayload
	testutil.DecodeJSON(t, resp, &inProgress)
	assert.Equal(t, "InProgress", inProgress.Data.Status)
	require.NotNil(t, inProgress.Data.StepExecutions[0].StartedAt)
	assert.Nil(t, inProgress.Data.StepExecutions[0].CompletedAt)
	assert.Equal(t, "analyst-1", inProgress.Data.StepExecutions[0].AssignedTo)

	resp, err = client.PATCH("/api/v1/executions/"+executionID+"/steps/"+stepIDs[0], map[string]interface{}{
		"status": "Completed",
		"notes":  "done",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var halfway executionPayload
	testutil.DecodeJSON(t, resp, &halfway)
	assert.Equal(t, "InProgress", halfway.Data.Status)
	require.NotNil(t, halfway.Data.StepExecutions[0].CompletedAt)
	assert.Equal(t, "done", halfway.Data.StepExecutions[0].Notes)

	// Skipping the last open step makes every step terminal and completes
	// the execution.
	resp, err = client.PATCH("/api/v1/executions/"+executionID+"/steps/"+stepIDs[1], map[string]interface{}{
		"status": "Skipped",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var finished executionPayload
	testutil.DecodeJSON(t, resp, &finished)
	assert.Equal(t, "Completed", finished.Data.Status)
	require.NotNil(t, finished.Data.CompletedAt)
}

func TestPlaybooks_FinishedExecutionRejectsStepUpdates(t *testing.T) {
	client := newTestClient(t)
	rawClient := newTestClientWithoutValidation()

	incidentID := createTestIncident(t, client, "Cancelled run")
	playbookID, stepIDs := createTestPlaybook(t, client, "Cancelable", "Lone step")

	executionID := executeTestPlaybook(t, client, playbookID, incidentID)

	resp, err := client.POST("/api/v1/executions/"+executionID+"/cancel", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cancelled executionPayload
	testutil.DecodeJSON(t, resp, &cancelled)
	assert.Equal(t, "Cancelled", cancelled.Data.Status)
	require.NotNil(t, cancelled.Data.CompletedAt)

	resp, err = rawClient.PATCH("/api/v1/executions/"+executionID+"/steps/"+stepIDs[0], map[string]interface{}{
		"status": "InProgress",
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// A second cancel is a conflict as well.
	resp2, err := rawClient.POST("/api/v1/executions/"+executionID+"/cancel", nil)
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp2.StatusCode)
}

type executionPayload struct {
	Data struct {
		ID             string  `json:"id"`
		Status         string  `json:"status"`
		CompletedAt    *string `json:"completed_at"`
		StepExecutions []struct {
			StepID      string  `json:"step_id"`
			Status      string  `json:"status"`
			AssignedTo  string  `json:"assigned_to"`
			Notes       string  `json:"notes"`
			StartedAt   *string `json:"started_at"`
			CompletedAt *string `json:"completed_at"`
		} `json:"step_executions"`
	} `json:"data"`
}

// executeTestPlaybook starts an execution and returns its ID.
func executeTestPlaybook(t *testing.T, client *testutil.Client, playbookID, incidentID string) string {
	t.Helper()

	resp, err := client.POST("/api/v1/playbooks/"+playbookID+"/execute", map[string]interface{}{
		"incident_id": incidentID,
		"executor":    "runner",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID
}
