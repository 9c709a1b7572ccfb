package ledger

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB is a Ledger backed by a local LevelDB database. LevelDB keeps keys
// in ascending byte order natively, so prefix scans come straight from its
// range iterators.
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens (creating if needed) a LevelDB ledger at path
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}
	return &LevelDB{db: db}, nil
}

// Get returns the value stored at key, or (nil, nil) if absent
func (l *LevelDB) Get(key string) ([]byte, error) {
	value, err := l.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb get %q: %w", key, err)
	}
	return value, nil
}

// Put stores value at key, overwriting any prior entry
func (l *LevelDB) Put(key string, value []byte) error {
	if err := l.db.Put([]byte(key), value, nil); err != nil {
		return fmt.Errorf("leveldb put %q: %w", key, err)
	}
	return nil
}

// ScanPrefix iterates all entries whose key starts with prefix
func (l *LevelDB) ScanPrefix(prefix string) Iterator {
	it := l.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	return &levelDBIterator{it: it}
}

// Close closes the underlying database
func (l *LevelDB) Close() error {
	return l.db.Close()
}

type levelDBIterator struct {
	it iterator.Iterator
}

func (l *levelDBIterator) Next() bool {
	return l.it.Next()
}

// Key copies the key; goleveldb reuses its buffers between Next calls
func (l *levelDBIterator) Key() string {
	return string(l.it.Key())
}

func (l *levelDBIterator) Value() []byte {
	v := l.it.Value()
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (l *levelDBIterator) Err() error {
	return l.it.Error()
}

func (l *levelDBIterator) Close() error {
	l.it.Release()
	return l.it.Error()
}
