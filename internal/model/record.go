package model

// SourceRecord is one hit from the raw index: a scraped page or entity dump
// for a subject, flattened into dotted attribute names by the ingestion pipeline.
type SourceRecord struct {
	ID    string      `json:"id,omitempty"`
	Meta  SourceMeta  `json:"meta"`
	Data  []Attribute `json:"data"`
	Event SourceEvent `json:"event"`
}

// SourceMeta identifies where and when a record was scraped
type SourceMeta struct {
	ID        string `json:"id"`        // subject's external identifier (e.g. "Q7747")
	Source    string `json:"source"`    // scraped URL
	Timestamp string `json:"timestamp"` // ISO-like, compared lexically
}

// Attribute is a single dotted-key fact, e.g. "position held[2].start time"
type Attribute struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// SourceEvent carries the opaque payload the ingestion pipeline received
type SourceEvent struct {
	Original string `json:"original"`
}

// RawAttribute is an Attribute together with the provenance of its record
type RawAttribute struct {
	Name          string
	Data          string
	SourceURL     string
	Timestamp     string
	OriginalEvent string
}

// Attributes returns the per-attribute view of the record
func (r *SourceRecord) Attributes() []RawAttribute {
	if r == nil {
		return nil
	}
	attrs := make([]RawAttribute, 0, len(r.Data))
	for _, a := range r.Data {
		attrs = append(attrs, RawAttribute{
			Name:          a.Name,
			Data:          a.Data,
			SourceURL:     r.Meta.Source,
			Timestamp:     r.Meta.Timestamp,
			OriginalEvent: r.Event.Original,
		})
	}
	return attrs
}
