package tenantauth

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type documentRecord struct {
	bun.BaseModel `bun:"table:documents,alias:doc"`
	Collection    string    `bun:"collection,pk,notnull"`
	Key           string    `bun:"key,pk,notnull"`
	Data          []byte    `bun:"data,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

// BunDocumentStore is a DocumentStore over a bun database: one row per
// (collection, key), payload stored as JSON. Merge writes perform a shallow
// merge into the existing payload.
type BunDocumentStore struct {
	db      *bun.DB
	allowed map[string]struct{}
	logger  Logger
}

var _ DocumentStore = (*BunDocumentStore)(nil)

func NewBunDocumentStore(db *bun.DB) *BunDocumentStore {
	return &BunDocumentStore{
		db:     db,
		logger: defLogger{},
	}
}

func (s *BunDocumentStore) WithLogger(logger Logger) *BunDocumentStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithAllowedCollections restricts reads and writes to the named
// collections; anything else fails with a permission error. No allow list
// means every collection is reachable.
func (s *BunDocumentStore) WithAllowedCollections(names ...string) *BunDocumentStore {
	s.allowed = make(map[string]struct{}, len(names))
	for _, name := range names {
		s.allowed[name] = struct{}{}
	}
	return s
}

// CreateSchema creates the documents table when missing.
func (s *BunDocumentStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*documentRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (s *BunDocumentStore) GetDocument(ctx context.Context, collection, key string) (Document, bool, error) {
	if err := s.authorize(collection); err != nil {
		return nil, false, err
	}

	record := &documentRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.collection = ?", collection).
		Where("?TableAlias.key = ?", key).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, wrapNetwork(err, "failed to read document")
	}

	var doc Document
	if err := json.Unmarshal(record.Data, &doc); err != nil {
		return nil, false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode document payload")
	}

	return doc, true, nil
}

func (s *BunDocumentStore) SetDocument(ctx context.Context, collection, key string, data Document, merge bool) error {
	if err := s.authorize(collection); err != nil {
		return err
	}

	payload := data
	if merge {
		existing, ok, err := s.GetDocument(ctx, collection, key)
		if err != nil {
			return err
		}
		if ok {
			for k, v := range data {
				existing[k] = v
			}
			payload = existing
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode document payload")
	}

	record := &documentRecord{
		Collection: collection,
		Key:        key,
		Data:       raw,
		UpdatedAt:  time.Now(),
	}

	_, err = s.db.NewInsert().
		Model(record).
		On("CONFLICT (collection, key) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	if err != nil {
		return wrapNetwork(err, "failed to write document")
	}

	return nil
}

func (s *BunDocumentStore) authorize(collection string) error {
	if s.allowed == nil {
		return nil
	}
	if _, ok := s.allowed[collection]; !ok {
		return ErrPermissionDenied.WithMetadata(map[string]any{
			"collection": collection,
		})
	}
	return nil
}
