//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bissquit/incident-forge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncidents_Create_Defaults(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.POST("/api/v1/incidents", map[string]interface{}{
		"title":    "Suspicious login burst",
		"category": "Unauthorized",
		"severity": "High",
		"reporter": "soc-analyst",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			ID               string   `json:"id"`
			Number           string   `json:"number"`
			Status           string   `json:"status"`
			Priority         int      `json:"priority"`
			ResponseDeadline *string  `json:"response_deadline"`
			Tags             []string `json:"tags"`
			CreatedAt        string   `json:"created_at"`
			UpdatedAt        string   `json:"updated_at"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)

	assert.NotEmpty(t, result.Data.ID)
	assert.Regexp(t, `^INC-\d{4}-\d{4}$`, result.Data.Number)
	assert.Equal(t, "New", result.Data.Status)
	assert.Equal(t, 2, result.Data.Priority, "High severity defaults to priority 2")
	assert.NotNil(t, result.Data.ResponseDeadline, "High severity has an SLA window by default")
	assert.NotNil(t, result.Data.Tags, "collections initialize empty, not null")
	assert.Equal(t, result.Data.CreatedAt, result.Data.UpdatedAt)

	timeline := getIncidentTimeline(t, client, result.Data.ID)
	require.Len(t, timeline, 1)
	assert.Equal(t, "incident_created", timeline[0].Type)
	assert.Equal(t, "soc-analyst", timeline[0].Actor)
}

func TestIncidents_Create_RejectsUnknownEnums(t *testing.T) {
	client := newTestClientWithoutValidation()

	resp, err := client.POST("/api/v1/incidents", map[string]interface{}{
		"title":    "Bad category",
		"category": "Ransomware",
		"severity": "High",
		"reporter": "tester",
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIncidents_EscalateScenario(t *testing.T) {
	client := newTestClient(t)

	incidentID := createTestIncident(t, client, "DB breach", withSeverity("Critical"), withCategory("DataBreach"))

	resp, err := client.POST("/api/v1/incidents/"+incidentID+"/escalate", map[string]interface{}{
		"severity":     "High",
		"reason":       "impact smaller than first assessed",
		"escalated_by": "commander",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			Severity string `json:"severity"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, "High", result.Data.Severity, "de-escalation is allowed")

	timeline := getIncidentTimeline(t, client, incidentID)
	require.Len(t, timeline, 2)
	assert.Equal(t, "incident_created", timeline[0].Type)
	assert.Equal(t, "incident_escalated", timeline[1].Type)
	assert.Equal(t, "Critical", timeline[1].Details["old_severity"])
	assert.Equal(t, "High", timeline[1].Details["new_severity"])
}

func TestIncidents_Update_TransitionGraph(t *testing.T) {
	client := newTestClient(t)
	rawClient := newTestClientWithoutValidation()

	incidentID := createTestIncident(t, client, "Lifecycle under test")

	// New -> Resolved skips the whole response cycle and must be rejected.
	resp, err := rawClient.PATCH("/api/v1/incidents/"+incidentID, map[string]interface{}{
		"status":     "Resolved",
		"updated_by": "tester",
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// New -> InProgress -> Contained -> Resolved is a legal path.
	for _, status := range []string{"InProgress", "Contained", "Resolved"} {
		resp, err := client.PATCH("/api/v1/incidents/"+incidentID, map[string]interface{}{
			"status":     status,
			"updated_by": "tester",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, "transition to %s", status)

		var result struct {
			Data struct {
				Status string `json:"status"`
			} `json:"data"`
		}
		testutil.DecodeJSON(t, resp, &result)
		assert.Equal(t, status, result.Data.Status)
	}
}

func TestIncidents_Update_TimelineRecordsChanges(t *testing.T) {
	client := newTestClient(t)

	incidentID := createTestIncident(t, client, "Before rename")

	resp, err := client.PATCH("/api/v1/incidents/"+incidentID, map[string]interface{}{
		"title":      "After rename",
		"priority":   1,
		"updated_by": "editor",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	timeline := getIncidentTimeline(t, client, incidentID)
	require.Len(t, timeline, 2)
	assert.Equal(t, "incident_updated", timeline[1].Type)
	assert.Equal(t, "editor", timeline[1].Actor)
	assert.Equal(t, "After rename", timeline[1].Details["title"])
	assert.Equal(t, "1", timeline[1].Details["priority"])
}

func TestIncidents_Update_UnknownID(t *testing.T) {
	client := newTestClientWithoutValidation()

	resp, err := client.PATCH("/api/v1/incidents/00000000-0000-0000-0000-000000000000", map[string]interface{}{
		"title":      "ghost",
		"updated_by": "tester",
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIncidents_CloseAndReopen(t *testing.T) {
	client := newTestClient(t)
	rawClient := newTestClientWithoutValidation()

	incidentID := createTestIncident(t, client, "Close me")

	resp, err := client.POST("/api/v1/incidents/"+incidentID+"/close", map[string]interface{}{
		"resolution": "contained and cleaned",
		"closed_by":  "commander",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var closed struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &closed)
	assert.Equal(t, "Closed", closed.Data.Status)

	// Closing twice is a conflict.
	resp, err = rawClient.POST("/api/v1/incidents/"+incidentID+"/close", map[string]interface{}{
		"closed_by": "commander",
	})
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = client.POST("/api/v1/incidents/"+incidentID+"/reopen", map[string]interface{}{
		"reason":      "new IOCs surfaced",
		"reopened_by": "analyst",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reopened struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &reopened)
	assert.Equal(t, "Reopened", reopened.Data.Status)

	timeline := getIncidentTimeline(t, client, incidentID)
	require.Len(t, timeline, 3)
	assert.Equal(t, "incident_closed", timeline[1].Type)
	assert.Equal(t, "incident_reopened", timeline[2].Type)
}

func TestIncidents_Reopen_RequiresResolvedOrClosed(t *testing.T) {
	client := newTestClient(t)
	rawClient := newTestClientWithoutValidation()

	incidentID := createTestIncident(t, client, "Still open")

	resp, err := rawClient.POST("/api/v1/incidents/"+incidentID+"/reopen", map[string]interface{}{
		"reason":      "nope",
		"reopened_by": "tester",
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestIncidents_Tags_Deduplicated(t *testing.T) {
	client := newTestClient(t)

	incidentID := createTestIncident(t, client, "Tag target", withTags("apt"))

	resp, err := client.POST("/api/v1/incidents/"+incidentID+"/tags", map[string]interface{}{
		"tags":      []string{"apt", "lateral-movement"},
		"tagged_by": "analyst",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			Tags []string `json:"tags"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.ElementsMatch(t, []string{"apt", "lateral-movement"}, result.Data.Tags)
}
