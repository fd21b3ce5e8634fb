package playbooks_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/playbooks"
)

const ransomwareYAML = `name: Ransomware Containment
description: Immediate containment steps for ransomware outbreaks.
category: Malware
severity_threshold: High
tags:
  - ransomware
steps:
  - name: Isolate affected hosts
    instructions: Disconnect infected machines from the network.
    required_role: analyst
    estimated_duration: 30
  - name: Disable compromised accounts
    required_role: incident_commander
    estimated_duration: 15
    automated: true
`

const phishingYAML = `name: Phishing Response
category: Phishing
severity_threshold: Low
steps:
  - name: Pull the message from mailboxes
    estimated_duration: 20
`

func writeLibraryFile(t *testing.T, dir, name, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestService_LoadLibrary(t *testing.T) {
	service, _, _ := newTestService()

	dir := t.TempDir()
	writeLibraryFile(t, dir, "ransomware.yaml", ransomwareYAML)
	writeLibraryFile(t, dir, "phishing.yml", phishingYAML)
	writeLibraryFile(t, dir, "README.txt", "not a playbook")

	loaded, err := service.LoadLibrary(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)

	result, err := service.ListPlaybooks(context.Background(), playbooks.PlaybookFilters{})
	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.Equal(t, "Phishing Response", result[0].Name)
	assert.Equal(t, "Ransomware Containment", result[1].Name)

	ransomware := result[1]
	assert.Equal(t, domain.CategoryMalware, ransomware.Category)
	assert.Equal(t, domain.SeverityHigh, ransomware.SeverityThreshold)
	require.Len(t, ransomware.Steps, 2)
	assert.Equal(t, domain.RoleIncidentCommander, ransomware.Steps[1].RequiredRole)
	assert.True(t, ransomware.Steps[1].Automated)
}

func TestService_LoadLibrary_SkipsBrokenFiles(t *testing.T) {
	service, _, _ := newTestService()

	dir := t.TempDir()
	writeLibraryFile(t, dir, "good.yaml", phishingYAML)
	writeLibraryFile(t, dir, "broken.yaml", "name: [unclosed")
	writeLibraryFile(t, dir, "invalid.yaml", "name: Bad Category\ncategory: Cooking\nseverity_threshold: High\nsteps:\n  - name: step one\n")

	loaded, err := service.LoadLibrary(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)

	result, err := service.ListPlaybooks(context.Background(), playbooks.PlaybookFilters{})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Phishing Response", result[0].Name)
}

func TestService_LoadLibrary_MissingDir(t *testing.T) {
	service, _, _ := newTestService()

	_, err := service.LoadLibrary(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
