package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/validate"
)

func renderDoc() *model.PoliticianDocument {
	pos := "Senator"
	pic := "https://img.example/jane.jpg"
	ts := model.NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return &model.PoliticianDocument{
		ID:         "7747",
		WikidataID: "Q7747",
		Title:      "Jane Doe",
		Type:       model.DocumentType,
		Data: model.DossierData{
			Name:             "Jane Doe",
			Position:         &pos,
			PictureSource:    &pic,
			Career:           "Lawyer | then senator <script>alert(1)</script>",
			ReturningSources: "https://en.wikipedia.org/wiki/Jane_Doe",
			Facebook:         []string{},
			Instagram:        []string{},
			Twitter:          []string{"jane_x"},
		},
		Metadata:  []model.MetadataItem{{}},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func TestRenderer_JSONUsesWireNames(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRenderer().JSON(&buf, renderDoc()); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"id", "wikidataid", "title", "type", "data", "metadata", "createdAt", "updatedAt"} {
		if _, ok := out[key]; !ok {
			t.Errorf("Missing key %s", key)
		}
	}
	if !strings.Contains(buf.String(), "<script>") {
		t.Error("JSON output must not HTML-escape text")
	}
}

func TestRenderer_Markdown(t *testing.T) {
	md := NewRenderer().Markdown(renderDoc())

	for _, want := range []string{
		"# Jane Doe",
		"| Position | Senator |",
		"| X | jane_x |",
		"## Career",
		"Source: <https://en.wikipedia.org/wiki/Jane_Doe>",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "## Family") {
		t.Error("Empty sections must be omitted")
	}
}

func TestRenderer_HTMLDropsRawHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRenderer().HTML(&buf, renderDoc()); err != nil {
		t.Fatalf("HTML: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<h1>Jane Doe</h1>") {
		t.Errorf("Expected heading, got:\n%s", out)
	}
	if !strings.Contains(out, "<table>") {
		t.Error("Expected facts table")
	}
	if strings.Contains(out, "<script>") {
		t.Error("Raw HTML from generated text leaked into the page")
	}
}

func TestRenderer_WriteFiles(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "d.json")
	mdPath := filepath.Join(dir, "d.md")
	htmlPath := filepath.Join(dir, "d.html")

	if err := NewRenderer().WriteFiles(renderDoc(), jsonPath, mdPath, htmlPath); err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}
	for _, p := range []string{jsonPath, mdPath, htmlPath} {
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Errorf("Expected non-empty %s: %v", p, err)
		}
	}
}

func TestRenderer_Summary(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer().Summary(&buf, renderDoc(), validate.Violations{{Field: "title", Reason: "must not be empty"}})

	if !strings.Contains(buf.String(), "1 violation") || !strings.Contains(buf.String(), "title: must not be empty") {
		t.Errorf("Unexpected summary:\n%s", buf.String())
	}
}
