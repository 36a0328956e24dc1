package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/ppiankov/dossier/internal/errs"
	"github.com/ppiankov/dossier/internal/model"
)

// TypesenseBackend stores raw records and documents in two Typesense
// collections with nested fields enabled.
type TypesenseBackend struct {
	client *typesense.Client
	raw    string
	clean  string
	limit  int
}

// NewTypesenseBackend connects to Typesense and makes sure both collections exist
func NewTypesenseBackend(ctx context.Context, cfg model.IndexConfig) (*TypesenseBackend, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("typesense url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(timeout),
	)

	b := &TypesenseBackend{
		client: client,
		raw:    cfg.RawCollection,
		clean:  cfg.CleanCollection,
		limit:  cfg.SearchLimit,
	}
	if b.raw == "" {
		b.raw = "eye-raw-data"
	}
	if b.clean == "" {
		b.clean = "eye-clean-data"
	}
	if b.limit <= 0 {
		b.limit = defaultSearchLimit
	}

	if err := b.ensureCollection(ctx, b.raw, []api.Field{
		{Name: "meta.id", Type: "string"},
		{Name: ".*", Type: "auto", Optional: pointer.True()},
	}); err != nil {
		return nil, err
	}
	if err := b.ensureCollection(ctx, b.clean, []api.Field{
		{Name: "wikidataid", Type: "string"},
		{Name: ".*", Type: "auto", Optional: pointer.True()},
	}); err != nil {
		return nil, err
	}

	return b, nil
}

func (b *TypesenseBackend) ensureCollection(ctx context.Context, name string, fields []api.Field) error {
	if _, err := b.client.Collection(name).Retrieve(ctx); err == nil {
		return nil
	} else if !isNotFound(err) {
		return errs.External("index.init", "retrieve collection "+name, err)
	}

	schema := &api.CollectionSchema{
		Name:               name,
		Fields:             fields,
		EnableNestedFields: pointer.True(),
	}
	if _, err := b.client.Collections().Create(ctx, schema); err != nil {
		return errs.External("index.init", "create collection "+name, err)
	}

	log.Info().Str("collection", name).Msg("created typesense collection")
	return nil
}

// Close is a no-op; the HTTP client holds no persistent resources
func (b *TypesenseBackend) Close() error {
	return nil
}

// PutRaw upserts a scraped record
func (b *TypesenseBackend) PutRaw(ctx context.Context, record model.SourceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	doc, err := toDocument(record)
	if err != nil {
		return err
	}
	if _, err := b.client.Collection(b.raw).Documents().Upsert(ctx, doc); err != nil {
		return errs.External("index.put_raw", "typesense upsert failed", err)
	}
	return nil
}

// SearchRaw returns the records filed under meta.id = externalID
func (b *TypesenseBackend) SearchRaw(ctx context.Context, externalID string) ([]model.SourceRecord, error) {
	hits, err := b.search(ctx, b.raw, "meta.id", externalID)
	if err != nil {
		return nil, errs.External("index.search_raw", "typesense search failed", err)
	}

	records := make([]model.SourceRecord, 0, len(hits))
	for _, doc := range hits {
		var rec model.SourceRecord
		if err := fromDocument(doc, &rec); err != nil {
			return nil, errs.Format("index.search_raw", "raw hit does not match the record schema: %v", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// FindByExternalID returns the clean documents for externalID in ranking order
func (b *TypesenseBackend) FindByExternalID(ctx context.Context, externalID string) ([]DocumentHit, error) {
	docs, err := b.search(ctx, b.clean, "wikidataid", externalID)
	if err != nil {
		return nil, errs.External("index.find_document", "typesense search failed", err)
	}

	hits := make([]DocumentHit, 0, len(docs))
	for _, doc := range docs {
		id, _ := doc["id"].(string)
		hit := DocumentHit{ID: id}
		if s, ok := doc["createdAt"].(string); ok {
			if ts, err := model.ParseTimestamp(s); err == nil {
				hit.CreatedAt = ts
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Index upserts doc. Typesense keys a document by its "id" field, so an
// empty id falls back to doc.ID.
func (b *TypesenseBackend) Index(ctx context.Context, id string, doc *model.PoliticianDocument) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("nil document")
	}
	if id == "" {
		id = doc.ID
	}
	if id == "" {
		id = uuid.NewString()
	}

	body, err := toDocument(doc)
	if err != nil {
		return "", err
	}
	body["id"] = id

	if _, err := b.client.Collection(b.clean).Documents().Upsert(ctx, body); err != nil {
		return "", errs.External("index.index_document", "typesense upsert failed", err)
	}
	return id, nil
}

// GetDocument loads a clean document by key; a missing key yields nil
func (b *TypesenseBackend) GetDocument(ctx context.Context, id string) (*model.PoliticianDocument, error) {
	raw, err := b.client.Collection(b.clean).Document(id).Retrieve(ctx)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.External("index.get_document", "typesense retrieve failed", err)
	}

	var doc model.PoliticianDocument
	if err := fromDocument(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode stored document: %w", err)
	}
	return &doc, nil
}

func (b *TypesenseBackend) search(ctx context.Context, collection, field, value string) ([]map[string]interface{}, error) {
	params := &api.SearchCollectionParams{
		Q:        pointer.String("*"),
		QueryBy:  pointer.String(field),
		FilterBy: pointer.String(fmt.Sprintf("%s:=`%s`", field, value)),
		PerPage:  pointer.Int(b.limit),
	}

	result, err := b.client.Collection(collection).Documents().Search(ctx, params)
	if err != nil {
		return nil, err
	}
	if result.Hits == nil {
		return nil, nil
	}

	docs := make([]map[string]interface{}, 0, len(*result.Hits))
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		docs = append(docs, *hit.Document)
	}
	return docs, nil
}

func toDocument(v any) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}

func fromDocument(doc map[string]interface{}, out any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func isNotFound(err error) bool {
	var httpErr *typesense.HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound
}
