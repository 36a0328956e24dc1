package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DocumentType is the type tag of every politician document
	DocumentType = 1

	// EmptySentinel is written where a best-effort value could not be found
	EmptySentinel = "empty"
)

// Facts are the sourced values extracted for one subject. They always win
// over generator output for the overlapping DossierData fields.
type Facts struct {
	BiographyContext string
	Citation         string
	ImageURL         *string
	Position         *string
	PoliticalParty   *string
	Citizenship      *string
	FacebookHandles  []string
	InstagramHandles []string
	TwitterHandles   []string
}

// EmptyFacts returns the facts used when no source record matched
func EmptyFacts() Facts {
	return Facts{
		Citation:         EmptySentinel,
		FacebookHandles:  []string{},
		InstagramHandles: []string{},
		TwitterHandles:   []string{},
	}
}

// Overlay writes the facts into a generator draft under the dossier's wire
// names. Values are written unconditionally, null included.
func (f Facts) Overlay(draft map[string]any) {
	draft[FieldReturningSources] = f.Citation
	draft[FieldPictureSource] = nullable(f.ImageURL)
	draft[FieldPosition] = nullable(f.Position)
	draft[FieldPoliticalParty] = nullable(f.PoliticalParty)
	draft[FieldCitizenship] = nullable(f.Citizenship)
	draft[FieldFacebook] = handles(f.FacebookHandles)
	draft[FieldInstagram] = handles(f.InstagramHandles)
	draft[FieldTwitter] = handles(f.TwitterHandles)
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func handles(list []string) []any {
	out := make([]any, len(list))
	for i, h := range list {
		out[i] = h
	}
	return out
}

// Wire names of the dossier fields
const (
	FieldName              = "Name"
	FieldPosition          = "Position"
	FieldCountry           = "Country"
	FieldBirthDate         = "BirthDate"
	FieldChildhood         = "Childhood"
	FieldEducation         = "Education"
	FieldCareer            = "Career"
	FieldPoliticalActivity = "PoliticalActivity"
	FieldFamily            = "Family"
	FieldReturningSources  = "ReturningSources"
	FieldPictureSource     = "PictureSource"
	FieldCitizenship       = "Citizenship"
	FieldPoliticalParty    = "PoliticalParty"
	FieldFacebook          = "Facebook"
	FieldInstagram         = "Instagram"
	FieldTwitter           = "Twitter"
)

// DossierData is the biography body of a politician document
type DossierData struct {
	Name              string   `json:"Name"`
	Position          *string  `json:"Position"`
	Country           string   `json:"Country"`
	BirthDate         string   `json:"BirthDate"`
	Childhood         string   `json:"Childhood"`
	Education         string   `json:"Education"`
	Career            string   `json:"Career"`
	PoliticalActivity string   `json:"PoliticalActivity"`
	Family            string   `json:"Family"`
	ReturningSources  string   `json:"ReturningSources"`
	PictureSource     *string  `json:"PictureSource"`
	Citizenship       *string  `json:"Citizenship"`
	PoliticalParty    *string  `json:"PoliticalParty"`
	Facebook          []string `json:"Facebook"`
	Instagram         []string `json:"Instagram"`
	Twitter           []string `json:"Twitter"`
}

// MetadataItem is a question/answer provenance pair
type MetadataItem struct {
	SubQuestion string `json:"sub_question"`
	Answer      string `json:"answer"`
}

// PoliticianDocument is the record persisted in the clean index
type PoliticianDocument struct {
	ID         string         `json:"id"`
	WikidataID string         `json:"wikidataid"`
	Title      string         `json:"title"`
	Type       int            `json:"type"`
	Data       DossierData    `json:"data"`
	Metadata   []MetadataItem `json:"metadata"`
	CreatedAt  Timestamp      `json:"createdAt"`
	UpdatedAt  Timestamp      `json:"updatedAt"`
}

// FallbackID derives a document id from an external identifier by dropping
// its leading character ("Q7747" -> "7747").
func FallbackID(externalID string) string {
	_, size := utf8.DecodeRuneInString(externalID)
	return externalID[size:]
}

// legacyLayout is the layout written by earlier versions of the service
const legacyLayout = "2006-01-02 15:04:05"

// Timestamp is a time that decodes both RFC 3339 and the legacy
// "YYYY-MM-DD HH:MM:SS" layout found in older clean-index documents.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp parses RFC 3339 (with or without fraction) or the legacy layout
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, legacyLayout, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// MarshalJSON encodes the time as RFC 3339 in UTC
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`null`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts RFC 3339, the legacy layout, unix seconds or null
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var unix int64
		if err2 := json.Unmarshal(data, &unix); err2 != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		*t = Timestamp{Time: time.Unix(unix, 0).UTC()}
		return nil
	}

	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
