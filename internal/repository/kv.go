package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one row of the persistent key-value store. Values are
// JSON-encoded under fixed string keys.
type Entry struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

// KV reads and writes JSON-encoded values in the entries table.
type KV struct {
	db *gorm.DB
}

func NewKV(db *gorm.DB) *KV {
	return &KV{db: db}
}

// Get decodes the value stored under key into dest. A missing key or a
// corrupt value leaves dest untouched and returns false; the caller's
// zero value is the fallback. Only real storage errors are returned.
func (kv *KV) Get(key string, dest interface{}) (bool, error) {
	var entry Entry
	err := kv.db.First(&entry, "key = ?", key).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("read %q: %w", key, err)
	}
	// Decode into a scratch value first: a mid-array type mismatch
	// would otherwise leave dest partially populated.
	tmp := reflect.New(reflect.TypeOf(dest).Elem())
	if err := json.Unmarshal([]byte(entry.Value), tmp.Interface()); err != nil {
		log.Printf("[warn] corrupt value under %q, using default: %v", key, err)
		return false, nil
	}
	reflect.ValueOf(dest).Elem().Set(tmp.Elem())
	return true, nil
}

// Put JSON-encodes value and upserts it under key.
func (kv *KV) Put(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	entry := Entry{Key: key, Value: string(data)}
	err = kv.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}

// Delete removes key; deleting an absent key is not an error.
func (kv *KV) Delete(key string) error {
	if err := kv.db.Delete(&Entry{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
