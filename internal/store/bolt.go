package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/loglens/loglens/internal/models"
)

var (
	extractorsBucket = []byte("extractors")
	filtersBucket    = []byte("filters")
	queriesBucket    = []byte("queries")
)

// SavedFilter is a persisted filter request under a user-chosen name.
type SavedFilter struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Request   models.FilterRequest `json:"request"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// SavedQuery is a persisted textual query.
type SavedQuery struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Query       string    `json:"query"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BoltStore persists saved extractors, filters and queries across restarts.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database file and its buckets.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{extractorsBucket, filtersBucket, queriesBucket}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) put(bucket []byte, id string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(id), data)
	})
}

func (s *BoltStore) get(bucket []byte, id string, out interface{}) error {
	return s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("not found: %s", id)
		}
		return json.Unmarshal(data, out)
	})
}

func (s *BoltStore) delete(bucket []byte, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucket).Get([]byte(id)) == nil {
			return fmt.Errorf("not found: %s", id)
		}
		return tx.Bucket(bucket).Delete([]byte(id))
	})
}

// SaveExtractor inserts or updates an extractor definition. A missing ID
// gets a fresh one.
func (s *BoltStore) SaveExtractor(ex *models.Extractor) error {
	now := time.Now()
	if ex.ID == "" {
		ex.ID = uuid.New().String()
		ex.CreatedAt = now
	}
	ex.UpdatedAt = now
	return s.put(extractorsBucket, ex.ID, ex)
}

// GetExtractor loads one extractor by ID.
func (s *BoltStore) GetExtractor(id string) (*models.Extractor, error) {
	var ex models.Extractor
	if err := s.get(extractorsBucket, id, &ex); err != nil {
		return nil, err
	}
	return &ex, nil
}

// ListExtractors returns all saved extractors ordered by Order, then
// CreatedAt.
func (s *BoltStore) ListExtractors() ([]*models.Extractor, error) {
	var out []*models.Extractor
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(extractorsBucket).ForEach(func(_, data []byte) error {
			var ex models.Extractor
			if err := json.Unmarshal(data, &ex); err != nil {
				return err
			}
			out = append(out, &ex)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteExtractor removes one extractor by ID.
func (s *BoltStore) DeleteExtractor(id string) error {
	return s.delete(extractorsBucket, id)
}

// SaveFilter inserts or updates a saved filter.
func (s *BoltStore) SaveFilter(f *SavedFilter) error {
	now := time.Now()
	if f.ID == "" {
		f.ID = uuid.New().String()
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	return s.put(filtersBucket, f.ID, f)
}

// GetFilter loads one saved filter by ID.
func (s *BoltStore) GetFilter(id string) (*SavedFilter, error) {
	var f SavedFilter
	if err := s.get(filtersBucket, id, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFilters returns all saved filters ordered by name.
func (s *BoltStore) ListFilters() ([]*SavedFilter, error) {
	var out []*SavedFilter
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(filtersBucket).ForEach(func(_, data []byte) error {
			var f SavedFilter
			if err := json.Unmarshal(data, &f); err != nil {
				return err
			}
			out = append(out, &f)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteFilter removes one saved filter by ID.
func (s *BoltStore) DeleteFilter(id string) error {
	return s.delete(filtersBucket, id)
}

// SaveQuery inserts or updates a saved query.
func (s *BoltStore) SaveQuery(q *SavedQuery) error {
	now := time.Now()
	if q.ID == "" {
		q.ID = uuid.New().String()
		q.CreatedAt = now
	}
	q.UpdatedAt = now
	return s.put(queriesBucket, q.ID, q)
}

// GetQuery loads one saved query by ID.
func (s *BoltStore) GetQuery(id string) (*SavedQuery, error) {
	var q SavedQuery
	if err := s.get(queriesBucket, id, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// ListQueries returns all saved queries ordered by name.
func (s *BoltStore) ListQueries() ([]*SavedQuery, error) {
	var out []*SavedQuery
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(queriesBucket).ForEach(func(_, data []byte) error {
			var q SavedQuery
			if err := json.Unmarshal(data, &q); err != nil {
				return err
			}
			out = append(out, &q)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteQuery removes one saved query by ID.
func (s *BoltStore) DeleteQuery(id string) error {
	return s.delete(queriesBucket, id)
}
