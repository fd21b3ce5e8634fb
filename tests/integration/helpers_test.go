//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/bissquit/incident-forge/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// incidentOption mutates the incident creation payload.
type incidentOption func(map[string]interface{})

func withSeverity(severity string) incidentOption {
	return func(m map[string]interface{}) {
		m["severity"] = severity
	}
}

func withCategory(category string) incidentOption {
	return func(m map[string]interface{}) {
		m["category"] = category
	}
}

func withTags(tags ...string) incidentOption {
	return func(m map[string]interface{}) {
		m["tags"] = tags
	}
}

func withDescription(description string) incidentOption {
	return func(m map[string]interface{}) {
		m["description"] = description
	}
}

func withCostEstimate(cost float64) incidentOption {
	return func(m map[string]interface{}) {
		m["cost_estimate"] = cost
	}
}

// createTestIncident declares an incident and returns its ID. Defaults to a
// Medium-severity malware incident reported by "tester".
func createTestIncident(t *testing.T, client *testutil.Client, title string, opts ...incidentOption) string {
	t.Helper()

	payload := map[string]interface{}{
		"title":    title,
		"category": "Malware",
		"severity": "Medium",
		"reporter": "tester",
	}
	for _, opt := range opts {
		opt(payload)
	}

	resp, err := client.POST("/api/v1/incidents", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.NotEmpty(t, result.Data.ID)
	return result.Data.ID
}

// createTestResponder registers a responder with a unique email and returns
// its ID.
func createTestResponder(t *testing.T, client *testutil.Client, name, role string) string {
	t.Helper()

	resp, err := client.POST("/api/v1/responders", map[string]interface{}{
		"name":  name,
		"email": fmt.Sprintf("%s@example.com", uuid.New().String()),
		"role":  role,
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

// createTestPlaybook creates a playbook with the given step names and returns
// the playbook ID together with the generated step IDs in order.
func createTestPlaybook(t *testing.T, client *testutil.Client, name string, stepNames ...string) (string, []string) {
	t.Helper()

	steps := make([]map[string]interface{}, 0, len(stepNames))
	for _, stepName := range stepNames {
		steps = append(steps, map[string]interface{}{
			"name":               stepName,
			"estimated_duration": 30,
		})
	}

	resp, err := client.POST("/api/v1/playbooks", map[string]interface{}{
		"name":               name,
		"category":           "Malware",
		"severity_threshold": "Low",
		"steps":              steps,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			ID    string `json:"id"`
			Steps []struct {
				ID string `json:"id"`
			} `json:"steps"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)

	stepIDs := make([]string, 0, len(result.Data.Steps))
	for _, step := range result.Data.Steps {
		stepIDs = append(stepIDs, step.ID)
	}
	return result.Data.ID, stepIDs
}

// getIncidentTimeline fetches the incident timeline as typed events.
func getIncidentTimeline(t *testing.T, client *testutil.Client, incidentID string) []timelineEvent {
	t.Helper()

	resp, err := client.GET("/api/v1/incidents/" + incidentID + "/timeline")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data []timelineEvent `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

type timelineEvent struct {
	ID      string            `json:"id"`
	Type    string            `json:"type"`
	Actor   string            `json:"actor"`
	Details map[string]string `json:"details"`
}
