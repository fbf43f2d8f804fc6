package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()
	data := Dataset{
		Headers: []string{"Member", "Status"},
		Rows: []map[string]string{
			{"Member": "Ada", "Status": "ENROLLED"},
			{"Member": "Ben", "Status": "CANCELLED"},
		},
	}

	content, err := exporter.Render(data)
	require.NoError(t, err)
	assert.Equal(t, "Member,Status\nAda,ENROLLED\nBen,CANCELLED\n", string(content))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	data := Dataset{
		Headers: []string{"Member"},
		Rows:    []map[string]string{{"Member": "Ada"}},
	}

	content, err := exporter.Render(data, "Roster")
	require.NoError(t, err)
	assert.NotEmpty(t, content)
	assert.Equal(t, "%PDF", string(content[:4]))
}
