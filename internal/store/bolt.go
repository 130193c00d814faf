// Package store keeps per-episode state between runs so a re-run never
// delivers the same digest twice, and persists transcripts and
// summaries to disk.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	log "github.com/go-pkgz/lgr"
)

// Status tracks how far an episode made it through the pipeline.
type Status string

// Episode lifecycle states.
const (
	StatusProcessing Status = "processing"
	StatusDelivered  Status = "delivered"
	StatusFailed     Status = "failed"
)

// Episode is the persisted state record, keyed by filename.
type Episode struct {
	Title         string    `json:"title"`
	Filename      string    `json:"filename"`
	PublishedDate string    `json:"published_date"`
	Status        Status    `json:"status"`
	Summarizer    string    `json:"summarizer,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BoltDB is the episode state store, one bucket per feed.
type BoltDB struct {
	DB *bolt.DB
}

// NewBoltDB opens (or creates) the bolt file at path.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	return &BoltDB{DB: db}, nil
}

// Close releases the underlying bolt file.
func (b *BoltDB) Close() error {
	return b.DB.Close()
}

// Save writes the episode record into the feed bucket.
func (b *BoltDB) Save(feedID string, episode *Episode) error {
	episode.UpdatedAt = time.Now()

	return b.DB.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(feedID))
		if err != nil {
			return err
		}

		jdata, err := json.Marshal(episode)
		if err != nil {
			return err
		}

		log.Printf("[INFO] store: save episode %s status %s", episode.Filename, episode.Status)
		return bucket.Put([]byte(episode.Filename), jdata)
	})
}

// Get returns the stored record for a filename, or nil when unknown.
func (b *BoltDB) Get(feedID, filename string) (*Episode, error) {
	episode := &Episode{}
	err := b.DB.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(feedID))
		if bucket == nil {
			return nil
		}

		item := bucket.Get([]byte(filename))
		if item == nil {
			return nil
		}

		if err := json.Unmarshal(item, episode); err != nil {
			return fmt.Errorf("unmarshal %s: %w", filename, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", filename, err)
	}
	if episode.Filename == "" {
		return nil, nil
	}
	return episode, nil
}

// Delivered reports whether an episode already went out.
func (b *BoltDB) Delivered(feedID, filename string) (bool, error) {
	episode, err := b.Get(feedID, filename)
	if err != nil {
		return false, err
	}
	return episode != nil && episode.Status == StatusDelivered, nil
}

// FindByStatus lists episodes in a given state.
func (b *BoltDB) FindByStatus(feedID string, status Status) ([]*Episode, error) {
	var result []*Episode
	err := b.DB.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(feedID))
		if bucket == nil {
			return nil
		}

		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			item := Episode{}
			if err := json.Unmarshal(v, &item); err != nil {
				log.Printf("[WARN] store: failed to unmarshal %s, %v", string(k), err)
				continue
			}
			if item.Status != status {
				continue
			}
			result = append(result, &item)
		}
		return nil
	})
	return result, err
}
