package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/dossier/internal/errs"
	"github.com/ppiankov/dossier/internal/model"
)

// Source domains of the raw index
const (
	WikipediaDomain = "wikipedia.org"
	WikidataDomain  = "wikidata.org"
)

// Wikidata categories read into the dossier
const (
	CategoryPosition    = "position held"
	CategoryParty       = "member of political party"
	CategoryCitizenship = "country of citizenship"

	pictureAttribute = "image[0].source"
)

// Social platform labels as they appear in wikidata usernames
const (
	PlatformFacebook  = "Facebook"
	PlatformInstagram = "Instagram"
	PlatformTwitter   = "X"
)

// Field selects a value inside a CategoryEntry
type Field int

const (
	FieldValue Field = iota
	FieldStartTime
	FieldEndTime
)

// CategoryEntry is one indexed occurrence of a repeated wikidata attribute
type CategoryEntry struct {
	Value     string
	StartTime string
	EndTime   string
}

func (e *CategoryEntry) get(f Field) string {
	switch f {
	case FieldStartTime:
		return e.StartTime
	case FieldEndTime:
		return e.EndTime
	default:
		return e.Value
	}
}

// CategoryGroup maps the bracket index of a category to its entry
type CategoryGroup map[int]*CategoryEntry

// SelectBestSource returns the record with the greatest timestamp among those
// whose source URL contains domain. The first record wins ties.
func SelectBestSource(records []model.SourceRecord, domain string) *model.SourceRecord {
	var best *model.SourceRecord
	for i := range records {
		rec := &records[i]
		if !strings.Contains(rec.Meta.Source, domain) {
			continue
		}
		if best == nil || rec.Meta.Timestamp > best.Meta.Timestamp {
			best = rec
		}
	}
	return best
}

// GroupByCategory collects "category[i]", "category[i].start time" and
// "category[i].end time" attributes into one entry per index i.
// A bracket that is not a non-negative integer is schema drift and fails.
func GroupByCategory(attrs []model.RawAttribute, category string) (CategoryGroup, error) {
	prefix := category + "["
	group := CategoryGroup{}

	for _, a := range attrs {
		if !strings.HasPrefix(a.Name, prefix) {
			continue
		}

		rest := a.Name[len(prefix):]
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, errs.Format("extract.group_by_category", "unterminated index in %q", a.Name)
		}

		idx, err := strconv.Atoi(rest[:end])
		if err != nil || idx < 0 {
			return nil, errs.Format("extract.group_by_category", "non-integer index %q in %q", rest[:end], a.Name)
		}

		entry, ok := group[idx]
		if !ok {
			entry = &CategoryEntry{}
			group[idx] = entry
		}

		suffix := rest[end+1:]
		switch {
		case suffix == "":
			entry.Value = a.Data
		case strings.HasSuffix(suffix, ".start time"):
			entry.StartTime = a.Data
		case strings.HasSuffix(suffix, ".end time"):
			entry.EndTime = a.Data
		}
	}

	return group, nil
}

// LatestOf returns field of the entry with the highest index. The index is
// the upstream list position, not a date: the highest index is the latest.
func LatestOf(group CategoryGroup, field Field) string {
	if len(group) == 0 {
		return ""
	}

	last := -1
	for idx := range group {
		if idx > last {
			last = idx
		}
	}
	return group[last].get(field)
}

// ExtractHandles returns the data of every "<platform> username[<n>]"
// attribute in encounter order. The result is never nil.
func ExtractHandles(attrs []model.RawAttribute, platform string) []string {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(platform) + ` username\[\d+\]$`)

	handles := []string{}
	for _, a := range attrs {
		if pattern.MatchString(a.Name) {
			handles = append(handles, a.Data)
		}
	}
	return handles
}

// PictureSource returns the first image source of a wikidata record
func PictureSource(record *model.SourceRecord) *string {
	if record == nil {
		return nil
	}
	for _, a := range record.Data {
		if a.Name == pictureAttribute {
			src := a.Data
			return &src
		}
	}
	return nil
}

// ExtractFacts selects the newest wikipedia and wikidata records among the
// raw hits, reads the structured facts from the wikidata record and builds
// the biography context from the wikipedia one.
func ExtractFacts(records []model.SourceRecord, contextBudget int) (model.Facts, error) {
	facts := model.EmptyFacts()

	if wiki := SelectBestSource(records, WikipediaDomain); wiki != nil {
		facts.BiographyContext, facts.Citation = BuildContext(wiki, contextBudget)
	}

	data := SelectBestSource(records, WikidataDomain)
	if data == nil {
		return facts, nil
	}
	attrs := data.Attributes()

	facts.ImageURL = PictureSource(data)

	var err error
	if facts.Position, err = latestValue(attrs, CategoryPosition); err != nil {
		return model.Facts{}, err
	}
	if facts.PoliticalParty, err = latestValue(attrs, CategoryParty); err != nil {
		return model.Facts{}, err
	}
	if facts.Citizenship, err = latestValue(attrs, CategoryCitizenship); err != nil {
		return model.Facts{}, err
	}

	facts.FacebookHandles = ExtractHandles(attrs, PlatformFacebook)
	facts.InstagramHandles = ExtractHandles(attrs, PlatformInstagram)
	facts.TwitterHandles = ExtractHandles(attrs, PlatformTwitter)

	return facts, nil
}

func latestValue(attrs []model.RawAttribute, category string) (*string, error) {
	group, err := GroupByCategory(attrs, category)
	if err != nil {
		return nil, err
	}
	v := LatestOf(group, FieldValue)
	return &v, nil
}
