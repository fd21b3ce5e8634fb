package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncident_Clone_PreservesEmptyCollections(t *testing.T) {
	incident := &Incident{
		ID:             "inc-1",
		Tags:           []string{},
		IOCs:           []string{},
		Communications: []Communication{},
		LessonsLearned: []LessonLearned{},
		Notifications:  []Notification{},
		Evidence: []Evidence{
			{
				ID:              "ev-1",
				ChainOfCustody:  []CustodyRecord{},
				AnalysisResults: []AnalysisResult{},
			},
		},
	}

	clone := incident.Clone()

	// Empty must stay empty, not become nil: repositories clone on every
	// read and nil slices serialize as JSON null instead of [].
	assert.NotNil(t, clone.Tags)
	assert.NotNil(t, clone.IOCs)
	assert.NotNil(t, clone.Communications)
	assert.NotNil(t, clone.LessonsLearned)
	assert.NotNil(t, clone.Notifications)
	require.Len(t, clone.Evidence, 1)
	assert.NotNil(t, clone.Evidence[0].ChainOfCustody)
	assert.NotNil(t, clone.Evidence[0].AnalysisResults)

	// Nil stays nil.
	bare := (&Incident{ID: "inc-2"}).Clone()
	assert.Nil(t, bare.Tags)
	assert.Nil(t, bare.Communications)
}

func TestIncident_Clone_Isolation(t *testing.T) {
	incident := &Incident{
		ID:   "inc-1",
		Tags: []string{"apt"},
		Timeline: []TimelineEvent{
			{ID: "ev-1", Details: map[string]string{"k": "v"}},
		},
	}

	clone := incident.Clone()
	clone.Tags[0] = "changed"
	clone.Timeline[0].Details["k"] = "changed"

	assert.Equal(t, "apt", incident.Tags[0])
	assert.Equal(t, "v", incident.Timeline[0].Details["k"])
}

func TestAutomationRule_Clone_PreservesEmptyCollections(t *testing.T) {
	rule := &AutomationRule{
		ID:         "rule-1",
		Conditions: []RuleCondition{},
		Actions:    []RuleAction{},
	}

	clone := rule.Clone()
	assert.NotNil(t, clone.Conditions)
	assert.NotNil(t, clone.Actions)
}
