package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/novamark/agencydesk-backend/internal/platform/apierr"
	"github.com/novamark/agencydesk-backend/internal/platform/logger"
	"github.com/novamark/agencydesk-backend/internal/realtime"
	"github.com/novamark/agencydesk-backend/internal/realtime/bus"
)

// recordRow maps every collection onto one table; the autoincrement primary
// key doubles as the store-global creation sequence.
type recordRow struct {
	Seq        int64          `gorm:"column:seq;primaryKey;autoIncrement"`
	Collection string         `gorm:"column:collection;size:64;not null;uniqueIndex:idx_record_collection_record,priority:1"`
	RecordID   string         `gorm:"column:record_id;size:64;not null;uniqueIndex:idx_record_collection_record,priority:2"`
	Doc        datatypes.JSON `gorm:"column:doc;not null"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null;index"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;not null;index"`
}

func (recordRow) TableName() string { return "record" }

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&recordRow{})
}

// GormStore implements Store over a relational backend (postgres in
// production, sqlite in tests). Change events fan out to in-process
// subscriptions directly and to sibling instances through the bus.
type GormStore struct {
	db     *gorm.DB
	log    *logger.Logger
	bus    bus.Bus
	origin string
	subs   *registry
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB, baseLog *logger.Logger, b bus.Bus) *GormStore {
	return &GormStore{
		db:     db,
		log:    baseLog.With("component", "RecordStore"),
		bus:    b,
		origin: uuid.NewString(),
		subs:   newRegistry(),
	}
}

// StartForwarder feeds other instances' change events into local dispatch.
// No-op without a bus.
func (s *GormStore) StartForwarder(ctx context.Context) error {
	if s.bus == nil {
		return nil
	}
	return s.bus.StartForwarder(ctx, func(ev realtime.ChangeEvent) {
		if ev.Origin == s.origin {
			return
		}
		s.subs.dispatch(s, ev)
	})
}

func (s *GormStore) Get(ctx context.Context, collection, id string) (*Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	var row recordRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND record_id = ?", collection, id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.IO(err)
	}
	return rowToRecord(&row)
}

func (s *GormStore) List(ctx context.Context, collection string, filters []Filter, order Ordering, limit int) ([]Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	var rows []recordRow
	if err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, apierr.IO(err)
	}

	out := make([]Record, 0, len(rows))
	for i := range rows {
		rec, err := rowToRecord(&rows[i])
		if err != nil {
			s.log.Warn("skipping undecodable record", "collection", collection, "record_id", rows[i].RecordID, "error", err)
			continue
		}
		if matches(rec, filters) {
			out = append(out, *rec)
		}
	}
	sortRecords(out, order)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *GormStore) Create(ctx context.Context, collection string, doc map[string]any) (string, error) {
	if err := checkCollection(collection); err != nil {
		return "", err
	}
	id := uuid.NewString()
	now := time.Now().UTC()

	doc = cloneDoc(doc)
	doc["id"] = id
	doc["createdAt"] = now.Format(time.RFC3339Nano)
	doc["updatedAt"] = now.Format(time.RFC3339Nano)

	raw, err := json.Marshal(doc)
	if err != nil {
		return "", apierr.Validation("document not serializable: %v", err)
	}

	row := recordRow{
		Collection: collection,
		RecordID:   id,
		Doc:        datatypes.JSON(raw),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", apierr.IO(err)
	}

	s.changed(ctx, realtime.ChangeEvent{
		Collection: collection,
		RecordID:   id,
		Kind:       realtime.ChangeCreated,
		Seq:        row.Seq,
		Origin:     s.origin,
	})
	return id, nil
}

// Update merges top-level fields. The read-merge-write runs in a transaction
// with the row locked on postgres, so concurrent merges of disjoint fields
// both land; only same-field writes resolve last-write-wins.
func (s *GormStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	var seq int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("collection = ? AND record_id = ?", collection, id)
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var row recordRow
		if err := q.Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("record %s/%s not found", collection, id)
			}
			return apierr.IO(err)
		}

		var doc map[string]any
		if err := json.Unmarshal(row.Doc, &doc); err != nil {
			return apierr.IO(fmt.Errorf("decode record %s/%s: %w", collection, id, err))
		}
		for k, v := range partial {
			if v == nil {
				delete(doc, k)
				continue
			}
			doc[k] = v
		}
		now := time.Now().UTC()
		doc["updatedAt"] = now.Format(time.RFC3339Nano)

		raw, err := json.Marshal(doc)
		if err != nil {
			return apierr.Validation("document not serializable: %v", err)
		}
		if err := tx.
			Model(&recordRow{}).
			Where("collection = ? AND record_id = ?", collection, id).
			Updates(map[string]any{
				"doc":        datatypes.JSON(raw),
				"updated_at": now,
			}).Error; err != nil {
			return apierr.IO(err)
		}
		seq = row.Seq
		return nil
	})
	if err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) {
			return err
		}
		return apierr.IO(err)
	}

	s.changed(ctx, realtime.ChangeEvent{
		Collection: collection,
		RecordID:   id,
		Kind:       realtime.ChangeUpdated,
		Seq:        seq,
		Origin:     s.origin,
	})
	return nil
}

func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Where("collection = ? AND record_id = ?", collection, id).
		Delete(&recordRow{})
	if res.Error != nil {
		return apierr.IO(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil
	}
	s.changed(ctx, realtime.ChangeEvent{
		Collection: collection,
		RecordID:   id,
		Kind:       realtime.ChangeDeleted,
		Origin:     s.origin,
	})
	return nil
}

func (s *GormStore) changed(ctx context.Context, ev realtime.ChangeEvent) {
	s.subs.dispatch(s, ev)
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Warn("change event publish failed", "collection", ev.Collection, "record_id", ev.RecordID, "error", err)
	}
}

func rowToRecord(row *recordRow) (*Record, error) {
	var doc map[string]any
	if err := json.Unmarshal(row.Doc, &doc); err != nil {
		return nil, fmt.Errorf("decode record %s/%s: %w", row.Collection, row.RecordID, err)
	}
	return &Record{
		Collection: row.Collection,
		ID:         row.RecordID,
		Seq:        row.Seq,
		Doc:        doc,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

func cloneDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc)+3)
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func checkCollection(collection string) error {
	if strings.TrimSpace(collection) == "" {
		return apierr.Validation("missing collection name")
	}
	return nil
}
