package validate

import (
	"fmt"
	"strings"

	"github.com/ppiankov/dossier/internal/model"
)

// Violation is one failed schema check
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Reason
}

// Violations collects every failed check of a document
type Violations []Violation

// OK reports whether no check failed
func (v Violations) OK() bool {
	return len(v) == 0
}

// Error joins the violations into one line
func (v Violations) Error() string {
	parts := make([]string, len(v))
	for i, item := range v {
		parts[i] = item.String()
	}
	return strings.Join(parts, "; ")
}

func (v *Violations) add(field, format string, args ...any) {
	*v = append(*v, Violation{Field: field, Reason: fmt.Sprintf(format, args...)})
}

var (
	requiredStrings = []string{
		model.FieldName,
		model.FieldCountry,
		model.FieldBirthDate,
		model.FieldChildhood,
		model.FieldEducation,
		model.FieldCareer,
		model.FieldPoliticalActivity,
		model.FieldFamily,
		model.FieldReturningSources,
	}
	nullableStrings = []string{
		model.FieldPosition,
		model.FieldPictureSource,
		model.FieldCitizenship,
		model.FieldPoliticalParty,
	}
	stringLists = []string{
		model.FieldFacebook,
		model.FieldInstagram,
		model.FieldTwitter,
	}
)

// DecodeData types a merged draft into DossierData. Required text fields must
// be present strings, nullable fields strings or null (absent counts as
// null), and handle fields arrays of strings. Unknown keys are ignored.
func DecodeData(draft map[string]any) (model.DossierData, Violations) {
	var v Violations
	if draft == nil {
		v.add("data", "missing")
		return model.DossierData{}, v
	}

	str := make(map[string]string, len(requiredStrings))
	for _, name := range requiredStrings {
		raw, ok := draft[name]
		if !ok {
			v.add(name, "field required")
			continue
		}
		s, ok := raw.(string)
		if !ok {
			v.add(name, "expected string, got %s", typeName(raw))
			continue
		}
		str[name] = s
	}

	opt := make(map[string]*string, len(nullableStrings))
	for _, name := range nullableStrings {
		switch raw := draft[name].(type) {
		case nil:
			opt[name] = nil
		case string:
			s := raw
			opt[name] = &s
		default:
			v.add(name, "expected string or null, got %s", typeName(raw))
		}
	}

	lists := make(map[string][]string, len(stringLists))
	for _, name := range stringLists {
		raw, ok := draft[name]
		if !ok {
			v.add(name, "field required")
			continue
		}
		list, reason := toStringList(raw)
		if reason != "" {
			v.add(name, "%s", reason)
			continue
		}
		lists[name] = list
	}

	if !v.OK() {
		return model.DossierData{}, v
	}

	return model.DossierData{
		Name:              str[model.FieldName],
		Position:          opt[model.FieldPosition],
		Country:           str[model.FieldCountry],
		BirthDate:         str[model.FieldBirthDate],
		Childhood:         str[model.FieldChildhood],
		Education:         str[model.FieldEducation],
		Career:            str[model.FieldCareer],
		PoliticalActivity: str[model.FieldPoliticalActivity],
		Family:            str[model.FieldFamily],
		ReturningSources:  str[model.FieldReturningSources],
		PictureSource:     opt[model.FieldPictureSource],
		Citizenship:       opt[model.FieldCitizenship],
		PoliticalParty:    opt[model.FieldPoliticalParty],
		Facebook:          lists[model.FieldFacebook],
		Instagram:         lists[model.FieldInstagram],
		Twitter:           lists[model.FieldTwitter],
	}, nil
}

func toStringList(raw any) ([]string, string) {
	switch list := raw.(type) {
	case []string:
		return list, ""
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Sprintf("item %d: expected string, got %s", i, typeName(item))
			}
			out = append(out, s)
		}
		return out, ""
	default:
		return nil, "expected list of strings, got " + typeName(raw)
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Document checks the envelope of an assembled politician document
func Document(doc *model.PoliticianDocument) Violations {
	var v Violations
	if doc == nil {
		v.add("document", "missing")
		return v
	}

	if strings.TrimSpace(doc.ID) == "" {
		v.add("id", "must not be empty")
	}
	if strings.TrimSpace(doc.WikidataID) == "" {
		v.add("wikidataid", "must not be empty")
	}
	if strings.TrimSpace(doc.Title) == "" {
		v.add("title", "must not be empty")
	}
	if doc.Type != model.DocumentType {
		v.add("type", "must be %d, got %d", model.DocumentType, doc.Type)
	}
	if len(doc.Metadata) != 1 {
		v.add("metadata", "must hold exactly one item, got %d", len(doc.Metadata))
	}
	if doc.CreatedAt.IsZero() {
		v.add("createdAt", "must be set")
	}
	if doc.UpdatedAt.IsZero() {
		v.add("updatedAt", "must be set")
	}
	if !doc.CreatedAt.IsZero() && !doc.UpdatedAt.IsZero() && doc.UpdatedAt.Before(doc.CreatedAt.Time) {
		v.add("updatedAt", "precedes createdAt")
	}
	if doc.Data.Facebook == nil || doc.Data.Instagram == nil || doc.Data.Twitter == nil {
		v.add("data", "handle lists must not be null")
	}

	return v
}
