package extract

import (
	"testing"

	"github.com/ppiankov/dossier/internal/errs"
	"github.com/ppiankov/dossier/internal/model"
)

func attrs(pairs ...string) []model.RawAttribute {
	out := make([]model.RawAttribute, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.RawAttribute{Name: pairs[i], Data: pairs[i+1]})
	}
	return out
}

func record(source, timestamp string, pairs ...string) model.SourceRecord {
	rec := model.SourceRecord{
		Meta: model.SourceMeta{ID: "Q1", Source: source, Timestamp: timestamp},
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		rec.Data = append(rec.Data, model.Attribute{Name: pairs[i], Data: pairs[i+1]})
	}
	return rec
}

func TestSelectBestSource_LatestTimestampWins(t *testing.T) {
	records := []model.SourceRecord{
		record("https://en.wikipedia.org/wiki/A", "2024-01-01T00:00:00"),
		record("https://www.wikidata.org/wiki/Q1", "2024-06-01T00:00:00"),
		record("https://de.wikipedia.org/wiki/A", "2024-03-01T00:00:00"),
	}

	best := SelectBestSource(records, WikipediaDomain)
	if best == nil {
		t.Fatal("Expected a wikipedia record, got nil")
	}
	if best.Meta.Source != "https://de.wikipedia.org/wiki/A" {
		t.Errorf("Expected newest wikipedia record, got %s", best.Meta.Source)
	}
}

func TestSelectBestSource_TieKeepsFirst(t *testing.T) {
	records := []model.SourceRecord{
		record("https://en.wikipedia.org/first", "2024-01-01"),
		record("https://en.wikipedia.org/second", "2024-01-01"),
	}

	best := SelectBestSource(records, WikipediaDomain)
	if best == nil || best.Meta.Source != "https://en.wikipedia.org/first" {
		t.Errorf("Expected first record on tie, got %+v", best)
	}
}

func TestSelectBestSource_NoMatch(t *testing.T) {
	records := []model.SourceRecord{record("https://example.com", "2024-01-01")}

	if best := SelectBestSource(records, WikidataDomain); best != nil {
		t.Errorf("Expected nil, got %+v", best)
	}
	if best := SelectBestSource(nil, WikidataDomain); best != nil {
		t.Errorf("Expected nil for empty input, got %+v", best)
	}
}

func TestGroupByCategory_MergesFieldsUnderIndex(t *testing.T) {
	group, err := GroupByCategory(attrs(
		"position held[0]", "Mayor",
		"position held[0].start time", "2001",
		"position held[0].end time", "2005",
		"position held[1].start time", "2006",
		"position held[1]", "Senator",
		"member of political party[0]", "Green",
	), CategoryPosition)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(group) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(group))
	}

	first := group[0]
	if first.Value != "Mayor" || first.StartTime != "2001" || first.EndTime != "2005" {
		t.Errorf("Unexpected entry 0: %+v", first)
	}

	second := group[1]
	if second.Value != "Senator" || second.StartTime != "2006" || second.EndTime != "" {
		t.Errorf("Unexpected entry 1: %+v", second)
	}
}

func TestGroupByCategory_MalformedIndexFails(t *testing.T) {
	tests := []string{
		"position held[abc]",
		"position held[-1]",
		"position held[2",
		"position held[].start time",
	}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := GroupByCategory(attrs(name, "x"), CategoryPosition)
			if err == nil {
				t.Fatal("Expected FormatError, got nil")
			}
			if !errs.Is(err, errs.KindFormat) {
				t.Errorf("Expected format error, got %v", err)
			}
		})
	}
}

func TestGroupByCategory_IgnoresOtherCategories(t *testing.T) {
	group, err := GroupByCategory(attrs(
		"member of political party[x]", "ignored because it is another category",
		"position held", "no bracket",
	), CategoryPosition)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(group) != 0 {
		t.Errorf("Expected empty group, got %d entries", len(group))
	}
}

func TestLatestOf_HighestIndexNotLatestDate(t *testing.T) {
	group, err := GroupByCategory(attrs(
		"position held[0]", "Mayor",
		"position held[1]", "Senator",
	), CategoryPosition)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := LatestOf(group, FieldValue); got != "Senator" {
		t.Errorf("Expected Senator, got %q", got)
	}

	group[1].StartTime = "1990"
	group[0].StartTime = "2020"
	if got := LatestOf(group, FieldValue); got != "Senator" {
		t.Errorf("Start times must not affect latest, got %q", got)
	}
	if got := LatestOf(group, FieldStartTime); got != "1990" {
		t.Errorf("Expected start time of index 1, got %q", got)
	}
}

func TestLatestOf_StableUnderSmallerInsert(t *testing.T) {
	group := CategoryGroup{
		3: {Value: "Minister"},
		5: {Value: "President"},
	}

	first := LatestOf(group, FieldValue)
	if again := LatestOf(group, FieldValue); again != first {
		t.Errorf("LatestOf not idempotent: %q then %q", first, again)
	}

	group[4] = &CategoryEntry{Value: "Deputy"}
	if got := LatestOf(group, FieldValue); got != "President" {
		t.Errorf("Smaller index changed result to %q", got)
	}
}

func TestLatestOf_Empty(t *testing.T) {
	if got := LatestOf(CategoryGroup{}, FieldValue); got != "" {
		t.Errorf("Expected empty string, got %q", got)
	}
	if got := LatestOf(nil, FieldEndTime); got != "" {
		t.Errorf("Expected empty string for nil group, got %q", got)
	}
}

func TestExtractHandles(t *testing.T) {
	data := attrs(
		"X username[0]", "first",
		"Facebook username[0]", "fb",
		"X username[1]", "second",
		"X username", "no index",
		"X username[1].qualifier", "qualifier",
		"XX username[0]", "other platform",
	)

	got := ExtractHandles(data, PlatformTwitter)
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("Unexpected handles: %v", got)
	}

	none := ExtractHandles(data, PlatformInstagram)
	if none == nil {
		t.Error("Expected empty slice, got nil")
	}
	if len(none) != 0 {
		t.Errorf("Expected no instagram handles, got %v", none)
	}
}

func TestPictureSource(t *testing.T) {
	rec := record("https://www.wikidata.org/wiki/Q1", "2024",
		"image[1].source", "second.jpg",
		"image[0].source", "first.jpg",
	)

	got := PictureSource(&rec)
	if got == nil || *got != "first.jpg" {
		t.Errorf("Expected first.jpg, got %v", got)
	}

	empty := record("https://www.wikidata.org/wiki/Q1", "2024")
	if got := PictureSource(&empty); got != nil {
		t.Errorf("Expected nil, got %q", *got)
	}
	if got := PictureSource(nil); got != nil {
		t.Errorf("Expected nil for nil record, got %q", *got)
	}
}

func TestExtractFacts_FullRecordSet(t *testing.T) {
	records := []model.SourceRecord{
		record("https://www.wikidata.org/wiki/Q1", "2023-01-01",
			"position held[0]", "Old position",
		),
		record("https://www.wikidata.org/wiki/Q1", "2024-01-01",
			"position held[0]", "Mayor",
			"position held[1]", "Senator",
			"member of political party[0]", "Green",
			"country of citizenship[0]", "Freedonia",
			"image[0].source", "https://img/1.jpg",
			"Facebook username[0]", "jane.fb",
			"Instagram username[0]", "jane.ig",
			"X username[0]", "jane_x",
		),
		record("https://en.wikipedia.org/wiki/Jane", "2024-02-01",
			"summary", "Jane is a senator.",
		),
	}

	facts, err := ExtractFacts(records, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if facts.Position == nil || *facts.Position != "Senator" {
		t.Errorf("Unexpected position: %v", facts.Position)
	}
	if facts.PoliticalParty == nil || *facts.PoliticalParty != "Green" {
		t.Errorf("Unexpected party: %v", facts.PoliticalParty)
	}
	if facts.Citizenship == nil || *facts.Citizenship != "Freedonia" {
		t.Errorf("Unexpected citizenship: %v", facts.Citizenship)
	}
	if facts.ImageURL == nil || *facts.ImageURL != "https://img/1.jpg" {
		t.Errorf("Unexpected image: %v", facts.ImageURL)
	}
	if len(facts.FacebookHandles) != 1 || len(facts.InstagramHandles) != 1 || len(facts.TwitterHandles) != 1 {
		t.Errorf("Unexpected handles: %v %v %v", facts.FacebookHandles, facts.InstagramHandles, facts.TwitterHandles)
	}
	if facts.BiographyContext != `"summary": "Jane is a senator."` {
		t.Errorf("Unexpected context: %q", facts.BiographyContext)
	}
	if facts.Citation != model.EmptySentinel {
		t.Errorf("Expected empty citation without event payload, got %q", facts.Citation)
	}
}

func TestExtractFacts_NoRecords(t *testing.T) {
	facts, err := ExtractFacts(nil, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if facts.BiographyContext != "" || facts.Citation != model.EmptySentinel {
		t.Errorf("Expected empty context and sentinel citation, got %q / %q", facts.BiographyContext, facts.Citation)
	}
	if facts.Position != nil || facts.PoliticalParty != nil || facts.Citizenship != nil || facts.ImageURL != nil {
		t.Errorf("Expected nil scalar facts, got %+v", facts)
	}
	if facts.FacebookHandles == nil || facts.InstagramHandles == nil || facts.TwitterHandles == nil {
		t.Error("Handle lists must never be nil")
	}
}

func TestExtractFacts_WikidataWithoutCategories(t *testing.T) {
	records := []model.SourceRecord{
		record("https://www.wikidata.org/wiki/Q1", "2024", "label", "Jane"),
	}

	facts, err := ExtractFacts(records, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if facts.Position == nil || *facts.Position != "" {
		t.Errorf("Expected empty position value, got %v", facts.Position)
	}
}

func TestExtractFacts_PropagatesFormatError(t *testing.T) {
	records := []model.SourceRecord{
		record("https://www.wikidata.org/wiki/Q1", "2024", "country of citizenship[one]", "Freedonia"),
	}

	_, err := ExtractFacts(records, 0)
	if !errs.Is(err, errs.KindFormat) {
		t.Errorf("Expected format error, got %v", err)
	}
}
