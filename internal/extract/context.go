package extract

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/dossier/internal/model"
)

var (
	whitespaceRun  = regexp.MustCompile(`[\s\p{Zs}\x{85}\x{2028}\x{2029}]+`)
	unicodeEscape  = regexp.MustCompile(`\\u[0-9A-Fa-f]{4}`)
	nbspEscape     = `\xa0`
	zeroWidthSpace = "\u200b"
)

// BuildContext flattens a wikipedia record into the generation context and
// reads its citation. A nil record yields ("", "empty").
func BuildContext(record *model.SourceRecord, budget int) (string, string) {
	if record == nil {
		return "", model.EmptySentinel
	}
	if budget <= 0 {
		budget = model.DefaultContextChars
	}

	text := Sanitize(serializeAttributes(record.Data))
	return truncateRunes(text, budget), ExtractCitation(record)
}

// serializeAttributes renders name -> data pairs as the body of an indented
// JSON object: the enclosing "{\n" and "\n}" are cut off. Pairs with an empty
// name or value are dropped; a repeated name keeps its first position and
// its last value.
func serializeAttributes(attrs []model.Attribute) string {
	pairs := orderedmap.New[string, string]()
	for _, a := range attrs {
		if a.Name == "" || a.Data == "" {
			continue
		}
		pairs.Set(a.Name, a.Data)
	}

	if pairs.Len() == 0 {
		return ""
	}

	var buf strings.Builder
	buf.WriteString("{\n")
	i := 0
	for p := pairs.Oldest(); p != nil; p = p.Next() {
		buf.WriteString("  ")
		buf.WriteString(jsonString(p.Key))
		buf.WriteString(": ")
		buf.WriteString(jsonString(p.Value))
		if i < pairs.Len()-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
		i++
	}
	buf.WriteString("}")

	out := buf.String()
	return out[2 : len(out)-2]
}

// lineSeparators would otherwise be encoded as \u2028/\u2029 and then
// removed along with the other escapes, gluing the words on either side.
var lineSeparators = strings.NewReplacer("\u2028", " ", "\u2029", " ")

// jsonString quotes s as JSON without HTML escaping
func jsonString(s string) string {
	s = lineSeparators.Replace(s)
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// Sanitize collapses whitespace and removes escape artifacts left by the
// scraper and the serializer.
func Sanitize(text string) string {
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = unicodeEscape.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, nbspEscape, " ")
	text = strings.ReplaceAll(text, zeroWidthSpace, "")
	return strings.TrimSpace(text)
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// ExtractCitation reads meta.source from the record's original event payload.
// The ingestion pipeline writes the payload either as JSON or as a
// single-quoted dict literal; the latter is valid YAML flow syntax. Any
// failure yields "empty": the citation is best-effort provenance.
func ExtractCitation(record *model.SourceRecord) string {
	if record == nil || strings.TrimSpace(record.Event.Original) == "" {
		return model.EmptySentinel
	}

	payload, ok := parseEvent(record.Event.Original)
	if !ok {
		return model.EmptySentinel
	}

	meta, ok := payload["meta"].(map[string]any)
	if !ok {
		return model.EmptySentinel
	}
	source, ok := meta["source"].(string)
	if !ok {
		return model.EmptySentinel
	}
	return source
}

func parseEvent(raw string) (map[string]any, bool) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err == nil {
		return payload, true
	}

	payload = nil
	if err := yaml.Unmarshal([]byte(raw), &payload); err != nil || payload == nil {
		return nil, false
	}
	return payload, true
}
