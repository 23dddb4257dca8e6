package workflow

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	types := c.Types()
	require.Len(t, types, 2)
	assert.Equal(t, "Procurement", types[0].Name)
	assert.Equal(t, "Development", types[1].Name)

	proc := c.StatusesFor(1)
	require.Len(t, proc, 3)
	assert.Equal(t, "Supplier offers received", proc[1].Name)
	assert.True(t, proc[2].IsFinal)
	assert.Equal(t, 1, proc[2].TypeID)

	dev := c.StatusesFor(2)
	require.Len(t, dev, 4)
	assert.True(t, dev[3].IsFinal)
	assert.False(t, dev[2].IsFinal)

	assert.Equal(t, 1, c.MinStatus(1))
	assert.Equal(t, 0, c.MinStatus(99))
	assert.Nil(t, c.StatusesFor(99))
}

func TestCatalog_StatusLookup(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	s, ok := c.Status(1, 2)
	require.True(t, ok)
	assert.True(t, s.RequiresEvidence())
	assert.Equal(t, "Need exactly 2 offers (Comma-separated)", s.Label())

	s, ok = c.Status(1, 1)
	require.True(t, ok)
	assert.False(t, s.RequiresEvidence())

	_, ok = c.Status(1, 0)
	assert.False(t, ok)
	_, ok = c.Status(1, 4)
	assert.False(t, ok)
	_, ok = c.Status(7, 1)
	assert.False(t, ok)

	assert.Equal(t, "Closed", c.StatusName(1, StatusClosed))
	assert.Equal(t, "Purchase completed", c.StatusName(1, 3))
	assert.Equal(t, "Unknown (9)", c.StatusName(1, 9))
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	statuses := c.StatusesFor(1)
	statuses[0].Name = "mutated"

	s, _ := c.Status(1, 1)
	assert.Equal(t, "Created", s.Name)
}

func TestStatusDefinition_LabelFallsBackToPrompt(t *testing.T) {
	s := StatusDefinition{RequirementPrompt: "Receipt string"}
	assert.Equal(t, "Receipt string", s.Label())
	assert.True(t, s.RequiresEvidence())

	s.RequirementPrompt = "   "
	assert.False(t, s.RequiresEvidence())
}

func TestNewCatalog_Validation(t *testing.T) {
	final := StatusDefinition{StatusID: 2, Name: "Done", IsFinal: true}
	first := StatusDefinition{StatusID: 1, Name: "Created"}

	tests := []struct {
		name  string
		types []TaskType
	}{
		{"no types", nil},
		{"non-positive id", []TaskType{{TypeID: 0, Name: "X", Statuses: []StatusDefinition{first, final}}}},
		{"missing name", []TaskType{{TypeID: 1, Statuses: []StatusDefinition{first, final}}}},
		{"duplicate id", []TaskType{
			{TypeID: 1, Name: "A", Statuses: []StatusDefinition{first, final}},
			{TypeID: 1, Name: "B", Statuses: []StatusDefinition{first, final}},
		}},
		{"no statuses", []TaskType{{TypeID: 1, Name: "A"}}},
		{"gap in ids", []TaskType{{TypeID: 1, Name: "A", Statuses: []StatusDefinition{first, {StatusID: 3, Name: "Done", IsFinal: true}}}}},
		{"no final", []TaskType{{TypeID: 1, Name: "A", Statuses: []StatusDefinition{first, {StatusID: 2, Name: "Done"}}}}},
		{"two finals", []TaskType{{TypeID: 1, Name: "A", Statuses: []StatusDefinition{{StatusID: 1, Name: "A", IsFinal: true}, final}}}},
		{"final not last", []TaskType{{TypeID: 1, Name: "A", Statuses: []StatusDefinition{{StatusID: 1, Name: "A", IsFinal: true}, {StatusID: 2, Name: "B"}}}}},
		{"unnamed status", []TaskType{{TypeID: 1, Name: "A", Statuses: []StatusDefinition{{StatusID: 1}, final}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.types)
			assert.Error(t, err)
		})
	}
}

func TestNewCatalog_SortsStatusesAndTypes(t *testing.T) {
	c, err := NewCatalog([]TaskType{
		{TypeID: 5, Name: "Later", Statuses: []StatusDefinition{{StatusID: 1, Name: "Only", IsFinal: true}}},
		{TypeID: 2, Name: "Earlier", Statuses: []StatusDefinition{
			{StatusID: 2, Name: "Done", IsFinal: true},
			{StatusID: 1, Name: "Start"},
		}},
	})
	require.NoError(t, err)

	types := c.Types()
	assert.Equal(t, 2, types[0].TypeID)
	assert.Equal(t, 5, types[1].TypeID)
	assert.Equal(t, "Start", types[0].Statuses[0].Name)

	tt, ok := c.Type(5)
	require.True(t, ok)
	assert.Equal(t, "Later", tt.Name)
}

func TestLoadCatalog_FromFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := `types:
  - id: 3
    name: Onboarding
    statuses:
      - id: 1
        name: Invited
        requirement: Contract number
      - id: 2
        name: Active
        final: true
`
	require.NoError(t, afero.WriteFile(fs, "/etc/taskflow/catalog.yaml", []byte(doc), 0644))

	c, err := LoadCatalog(fs, "/etc/taskflow/catalog.yaml")
	require.NoError(t, err)
	s, ok := c.Status(3, 1)
	require.True(t, ok)
	assert.Equal(t, "Contract number", s.Label())

	_, err = LoadCatalog(fs, "/missing.yaml")
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("types: [:"), 0644))
	_, err = LoadCatalog(fs, "/bad.yaml")
	assert.Error(t, err)
}

func TestLoadCatalog_EmptyPathUsesDefault(t *testing.T) {
	c, err := LoadCatalog(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	assert.Len(t, c.Types(), 2)
}
