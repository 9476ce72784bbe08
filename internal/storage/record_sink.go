package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/gosimple/slug"

	"edu-crawler/pkg/models"
)

// RecordSink implements engine.Sink for Postgres. Each batch is one
// transaction: the entity row with its JSON payload, then one row per
// highlight, FAQ, section and document.
type RecordSink struct {
	*Storage
	kind string
}

func NewRecordSink(storage *Storage, site models.Site) *RecordSink {
	return &RecordSink{Storage: storage, kind: site.String()}
}

func (s *RecordSink) Save(ctx context.Context, batch []*models.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, record := range batch {
		if err := s.saveRecord(ctx, tx, record); err != nil {
			return fmt.Errorf("save %q: %w", record.Key, err)
		}
	}
	return tx.Commit()
}

// Close leaves the database open; its owner closes it.
func (s *RecordSink) Close() error { return nil }

func (s *RecordSink) saveRecord(ctx context.Context, tx *sql.Tx, record *models.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	title := string(record.Key)

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM entities WHERE kind = $1 AND title = $2`, s.kind, title).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		entitySlug, err := s.uniqueSlug(ctx, tx, title)
		if err != nil {
			return err
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO entities (kind, title, slug, payload)
			VALUES ($1, $2, $3, $4)
			RETURNING id`, s.kind, title, entitySlug, payload).Scan(&id)
		if err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		// Re-crawled entity: replace payload and components.
		if _, err := tx.ExecContext(ctx,
			`UPDATE entities SET payload = $2, updated_at = now() WHERE id = $1`, id, payload); err != nil {
			return err
		}
		for _, table := range []string{"entity_highlights", "entity_faqs", "entity_sections", "entity_documents"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE entity_id = $1`, id); err != nil {
				return err
			}
		}
	}

	return saveComponents(ctx, tx, id, record)
}

// uniqueSlug appends -2, -3, ... until the slug is free for this kind.
func (s *RecordSink) uniqueSlug(ctx context.Context, tx *sql.Tx, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = s.kind
	}
	candidate := base
	for n := 2; ; n++ {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM entities WHERE kind = $1 AND slug = $2)`, s.kind, candidate).Scan(&exists)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

func saveComponents(ctx context.Context, tx *sql.Tx, id int64, record *models.Record) error {
	for _, field := range record.Names() {
		value, _ := record.Get(field)
		var err error
		switch v := value.(type) {
		case models.Highlights:
			err = insertHighlights(ctx, tx, id, v)
		case models.FAQs:
			err = insertFAQs(ctx, tx, id, v)
		case models.Sections:
			err = insertSections(ctx, tx, id, field, v)
		case models.TabContent:
			if err = insertSections(ctx, tx, id, field, v.Content); err == nil {
				err = insertDocuments(ctx, tx, id, field, v.Facilities)
			}
		case models.ExamSection:
			title := v.ID
			if v.Heading != nil {
				title = *v.Heading
			}
			if v.HTML != nil {
				err = insertSections(ctx, tx, id, field, models.Sections{{Title: title, Content: *v.HTML}})
			}
		case models.Documents:
			err = insertDocuments(ctx, tx, id, field, v.Documents)
		case models.Strings:
			err = insertDocuments(ctx, tx, id, field, v)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	return nil
}

func insertHighlights(ctx context.Context, tx *sql.Tx, id int64, highlights models.Highlights) error {
	keys := make([]string, 0, len(highlights))
	for k := range highlights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entity_highlights (entity_id, key, value) VALUES ($1, $2, $3)`,
			id, k, highlights[k]); err != nil {
			return err
		}
	}
	return nil
}

func insertFAQs(ctx context.Context, tx *sql.Tx, id int64, faqs models.FAQs) error {
	for i, faq := range faqs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entity_faqs (entity_id, position, question, answer) VALUES ($1, $2, $3, $4)`,
			id, i, faq.Question, faq.Answer); err != nil {
			return err
		}
	}
	return nil
}

func insertSections(ctx context.Context, tx *sql.Tx, id int64, field string, sections models.Sections) error {
	for i, section := range sections {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entity_sections (entity_id, field, position, title, content) VALUES ($1, $2, $3, $4, $5)`,
			id, field, i, section.Title, section.Content); err != nil {
			return err
		}
	}
	return nil
}

func insertDocuments(ctx context.Context, tx *sql.Tx, id int64, field string, docs models.Strings) error {
	for i, text := range docs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entity_documents (entity_id, field, position, text) VALUES ($1, $2, $3, $4)`,
			id, field, i, text); err != nil {
			return err
		}
	}
	return nil
}
