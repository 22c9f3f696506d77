// Package docx produit le document Renholdsplan au format OOXML. Le
// fichier généré est une archive zip minimale: types de contenu,
// relations racine et word/document.xml.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"cleansync-worker/pkg/models"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// Render construit l'artefact docx du plan
func Render(plan *models.CleaningPlan) ([]byte, error) {
	if plan == nil {
		return nil, fmt.Errorf("plan is required")
	}

	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)

	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", documentXML(plan)},
	}
	for _, part := range parts {
		writer, err := archive.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("failed to create docx part %s: %w", part.name, err)
		}
		if _, err := writer.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("failed to write docx part %s: %w", part.name, err)
		}
	}

	if err := archive.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize docx archive: %w", err)
	}
	return buf.Bytes(), nil
}

func documentXML(plan *models.CleaningPlan) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	heading := "Renholdsplan"
	if plan.TemplateName != "" {
		heading = heading + " – " + plan.TemplateName
	}
	writeHeading(&b, heading)
	writeParagraph(&b, fmt.Sprintf("Totalt dekket areal: %.0f m²", plan.TotalAreaM2))

	b.WriteString(`<w:tbl><w:tblPr><w:tblBorders>` +
		`<w:top w:val="single" w:sz="4"/><w:bottom w:val="single" w:sz="4"/>` +
		`<w:left w:val="single" w:sz="4"/><w:right w:val="single" w:sz="4"/>` +
		`<w:insideH w:val="single" w:sz="4"/><w:insideV w:val="single" w:sz="4"/>` +
		`</w:tblBorders></w:tblPr>`)

	headers := append([]string{"AREAL", "BESKRIVELSE", "ETG"}, models.AllDays...)
	writeRow(&b, headers, true)

	for _, entry := range plan.Entries {
		area := "-"
		if entry.AreaM2 != nil {
			area = trimFloat(*entry.AreaM2)
		}
		floor := entry.Floor
		if floor == "" {
			floor = "-"
		}
		cells := []string{
			fmt.Sprintf("%s (%s m²)", entry.RoomName, area),
			entry.Description,
			floor,
		}
		for _, day := range models.AllDays {
			mark := ""
			if entry.Frequency[day] {
				mark = "X"
			}
			cells = append(cells, mark)
		}
		writeRow(&b, cells, false)
	}

	b.WriteString(`</w:tbl></w:body></w:document>`)
	return b.String()
}

func writeHeading(b *strings.Builder, text string) {
	b.WriteString(`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">`)
	writeEscaped(b, text)
	b.WriteString(`</w:t></w:r></w:p>`)
}

func writeParagraph(b *strings.Builder, text string) {
	b.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
	writeEscaped(b, text)
	b.WriteString(`</w:t></w:r></w:p>`)
}

func writeRow(b *strings.Builder, cells []string, header bool) {
	b.WriteString(`<w:tr>`)
	for _, cell := range cells {
		b.WriteString(`<w:tc><w:p><w:r>`)
		if header {
			b.WriteString(`<w:rPr><w:b/></w:rPr>`)
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		writeEscaped(b, cell)
		b.WriteString(`</w:t></w:r></w:p></w:tc>`)
	}
	b.WriteString(`</w:tr>`)
}

func writeEscaped(b *strings.Builder, text string) {
	// EscapeText n'échoue que sur un writer défaillant; strings.Builder
	// n'échoue jamais
	_ = xml.EscapeText(b, []byte(text))
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	s = strings.TrimSuffix(s, ".0")
	return s
}
