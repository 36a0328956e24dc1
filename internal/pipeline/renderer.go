package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/validate"
)

var htmlPage = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// Renderer writes assembled documents for human review
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a renderer. Raw HTML in generated text is not passed
// through to the HTML output.
func NewRenderer() *Renderer {
	return &Renderer{md: goldmark.New(goldmark.WithExtensions(extension.Table))}
}

// JSON writes the document as indented JSON
func (r *Renderer) JSON(w io.Writer, doc *model.PoliticianDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

// Markdown returns the document as a Markdown page
func (r *Renderer) Markdown(doc *model.PoliticianDocument) string {
	var b strings.Builder
	d := doc.Data

	title := d.Name
	if title == "" {
		title = doc.Title
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "*Wikidata:* %s · *Document:* %s\n\n", doc.WikidataID, doc.ID)

	if d.PictureSource != nil && *d.PictureSource != "" {
		fmt.Fprintf(&b, "![%s](%s)\n\n", title, *d.PictureSource)
	}

	b.WriteString("| Field | Value |\n|---|---|\n")
	row := func(k, v string) {
		if v == "" {
			v = "—"
		}
		fmt.Fprintf(&b, "| %s | %s |\n", k, escapeCell(v))
	}
	row("Position", deref(d.Position))
	row("Political party", deref(d.PoliticalParty))
	row("Citizenship", deref(d.Citizenship))
	row("Country", d.Country)
	row("Born", d.BirthDate)
	row("Facebook", strings.Join(d.Facebook, ", "))
	row("Instagram", strings.Join(d.Instagram, ", "))
	row("X", strings.Join(d.Twitter, ", "))
	b.WriteString("\n")

	sections := []struct{ heading, text string }{
		{"Childhood", d.Childhood},
		{"Education", d.Education},
		{"Career", d.Career},
		{"Political activity", d.PoliticalActivity},
		{"Family", d.Family},
	}
	for _, s := range sections {
		if strings.TrimSpace(s.text) == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", s.heading, s.text)
	}

	if d.ReturningSources != "" && d.ReturningSources != model.EmptySentinel {
		fmt.Fprintf(&b, "---\n\nSource: <%s>\n\n", d.ReturningSources)
	}
	fmt.Fprintf(&b, "*Created %s, updated %s*\n",
		doc.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		doc.UpdatedAt.UTC().Format("2006-01-02 15:04:05"))

	return b.String()
}

// HTML writes the Markdown page converted to a standalone HTML document
func (r *Renderer) HTML(w io.Writer, doc *model.PoliticianDocument) error {
	var body bytes.Buffer
	if err := r.md.Convert([]byte(r.Markdown(doc)), &body); err != nil {
		return fmt.Errorf("convert markdown: %w", err)
	}
	return htmlPage.Execute(w, struct {
		Title string
		Body  template.HTML
	}{
		Title: doc.Title,
		Body:  template.HTML(body.String()), //nolint: gosec
	})
}

// WriteFiles renders doc to every non-empty path
func (r *Renderer) WriteFiles(doc *model.PoliticianDocument, jsonPath, mdPath, htmlPath string) error {
	if jsonPath != "" {
		if err := writeFile(jsonPath, func(w io.Writer) error { return r.JSON(w, doc) }); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
	}
	if mdPath != "" {
		if err := os.WriteFile(mdPath, []byte(r.Markdown(doc)), 0644); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
	}
	if htmlPath != "" {
		if err := writeFile(htmlPath, func(w io.Writer) error { return r.HTML(w, doc) }); err != nil {
			return fmt.Errorf("render HTML: %w", err)
		}
	}
	return nil
}

// Summary prints a short terminal report
func (r *Renderer) Summary(w io.Writer, doc *model.PoliticianDocument, violations validate.Violations) {
	fmt.Fprintf(w, "\n%s (%s)\n", doc.Title, doc.WikidataID)
	fmt.Fprintf(w, "  id:        %s\n", doc.ID)
	fmt.Fprintf(w, "  position:  %s\n", deref(doc.Data.Position))
	fmt.Fprintf(w, "  party:     %s\n", deref(doc.Data.PoliticalParty))
	fmt.Fprintf(w, "  source:    %s\n", doc.Data.ReturningSources)
	if violations.OK() {
		fmt.Fprintf(w, "  status:    ✓ valid\n")
		return
	}
	fmt.Fprintf(w, "  status:    ✗ %d violation(s)\n", len(violations))
	for _, v := range violations {
		fmt.Fprintf(w, "    - %s\n", v)
	}
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
