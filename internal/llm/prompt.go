package llm

import (
	"encoding/json"
	"strings"

	"github.com/ppiankov/dossier/internal/model"
)

// DefaultPromptTemplate is used when the configuration does not supply one.
// Available fields: .Name, .Context, .FormatInstructions
const DefaultPromptTemplate = `Write a structured dossier about the politician {{.Name}}.
Use only the facts in the context below. When the context does not cover a
field, write an empty string rather than guessing.

Context:
{{.Context}}

{{.FormatInstructions}}`

// PromptVars are the variables a prompt template can reference
type PromptVars struct {
	Name               string
	Context            string
	FormatInstructions string
}

type fieldSpec struct {
	name        string
	kind        string // "string", "nullable", "list"
	description string
}

// Fields filled from sourced facts are still part of the schema so the
// generator emits a complete object; their values are overwritten later.
var dossierFields = []fieldSpec{
	{model.FieldName, "string", "First and Last Name"},
	{model.FieldPosition, "nullable", "always returns the word empty"},
	{model.FieldCountry, "string", "Country of origin"},
	{model.FieldBirthDate, "string", "Date of birth"},
	{model.FieldChildhood, "string", "Childhood information: for example, city of birth, secondary education"},
	{model.FieldEducation, "string", "Education information: for example, higher education, years of study, specialty"},
	{model.FieldCareer, "string", "Career information: for example, positions, years of work, companies"},
	{model.FieldPoliticalActivity, "string", "Political activity information: for example, party, years of activity, positions"},
	{model.FieldFamily, "string", "Family information: for example, family, parents, brothers, sisters, children"},
	{model.FieldReturningSources, "string", "always returns the word empty"},
	{model.FieldPictureSource, "nullable", "always returns the word empty"},
	{model.FieldCitizenship, "nullable", "always returns the word empty"},
	{model.FieldPoliticalParty, "nullable", "always returns the word empty"},
	{model.FieldFacebook, "list", "always returns the word empty"},
	{model.FieldInstagram, "list", "always returns the word empty"},
	{model.FieldTwitter, "list", "always returns the word empty"},
}

// FormatInstructions describes the JSON object the generator must return
func FormatInstructions() string {
	properties := make(map[string]any, len(dossierFields))
	required := make([]string, 0, len(dossierFields))

	for _, f := range dossierFields {
		prop := map[string]any{"title": f.name, "description": f.description}
		switch f.kind {
		case "nullable":
			prop["anyOf"] = []map[string]string{{"type": "string"}, {"type": "null"}}
		case "list":
			prop["type"] = "array"
			prop["items"] = map[string]string{"type": "string"}
		default:
			prop["type"] = "string"
		}
		properties[f.name] = prop
		required = append(required, f.name)
	}

	schema, _ := json.Marshal(map[string]any{
		"properties": properties,
		"required":   required,
	})

	var b strings.Builder
	b.WriteString("The output should be formatted as a JSON instance that conforms to the JSON schema below.\n\n")
	b.WriteString("Here is the output schema:\n")
	b.WriteString(fence + "\n")
	b.Write(schema)
	b.WriteString("\n" + fence)
	return b.String()
}
