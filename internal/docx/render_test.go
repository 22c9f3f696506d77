package docx

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleansync-worker/pkg/models"
)

func readPart(t *testing.T, reader *zip.Reader, name string) string {
	t.Helper()
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}
	t.Fatalf("part %s not found in archive", name)
	return ""
}

func samplePlan() *models.CleaningPlan {
	area := 24.5
	return &models.CleaningPlan{
		TemplateName: "Standard kontor",
		TotalAreaM2:  30.2,
		Entries: []models.CleaningPlanEntry{
			{
				RoomName:    "Møterom",
				AreaM2:      &area,
				Floor:       "2",
				Description: "Støvsuging & mopping",
				Frequency:   map[string]bool{"MAN": true, "FRE": true},
			},
			{
				RoomName:    "Gang",
				Description: "Mopping",
				Frequency:   map[string]bool{"ONS": true},
			},
		},
	}
}

func TestRender_ProducesValidArchive(t *testing.T) {
	data, err := Render(samplePlan())
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make([]string, 0, len(reader.File))
	for _, file := range reader.File {
		names = append(names, file.Name)
	}
	assert.Contains(t, names, "[Content_Types].xml")
	assert.Contains(t, names, "_rels/.rels")
	assert.Contains(t, names, "word/document.xml")
}

func TestRender_DocumentContent(t *testing.T) {
	data, err := Render(samplePlan())
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	document := readPart(t, reader, "word/document.xml")

	assert.Contains(t, document, "Renholdsplan – Standard kontor")
	assert.Contains(t, document, "Totalt dekket areal: 30 m²")
	assert.Contains(t, document, "Møterom (24.5 m²)")
	// area manquante rendue comme tiret
	assert.Contains(t, document, "Gang (- m²)")
	// le caractère & doit être échappé
	assert.Contains(t, document, "Støvsuging &amp; mopping")

	for _, day := range models.AllDays {
		assert.Contains(t, document, ">"+day+"<")
	}

	// 2 entrées avec marques: MAN, FRE, ONS
	assert.Equal(t, 3, strings.Count(document, ">X<"))
}

func TestRender_HeadingWithoutTemplate(t *testing.T) {
	plan := samplePlan()
	plan.TemplateName = ""

	data, err := Render(plan)
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	document := readPart(t, reader, "word/document.xml")
	assert.Contains(t, document, ">Renholdsplan<")
	assert.NotContains(t, document, "–")
}

func TestRender_NilPlan(t *testing.T) {
	_, err := Render(nil)
	assert.Error(t, err)
}
