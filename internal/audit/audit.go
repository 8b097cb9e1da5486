// Package audit keeps the guard's append-only audit trail.
//
// Every whitelist mutation and every balance-envelope settlement is
// recorded. Records are hash-chained (each record commits to the hash
// of the previous one) so truncation or in-place edits of the stored
// trail are detectable, and persisted in LevelDB keyed by sequence
// number.
package audit

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// Event is what callers submit. The trail assigns identity, sequence
// and chain hashes.
type Event struct {
	Kind    string `json:"kind"`    // "whitelist", "router-config", "envelope", "blocked"
	Key     string `json:"key"`     // offending/affected key, usually an address
	Enabled bool   `json:"enabled"` // new state for whitelist mutations
	Note    string `json:"note"`    // caller-supplied human readable note
}

// Record is one persisted trail entry.
type Record struct {
	Event

	ID       string      `json:"id"`
	Seq      uint64      `json:"seq"`
	Time     time.Time   `json:"time"`
	PrevHash common.Hash `json:"prev_hash"`
	Hash     common.Hash `json:"hash"`
}

// Trail is the append-only store. Safe for concurrent use.
type Trail struct {
	mu       sync.Mutex
	db       *leveldb.DB
	next     uint64
	lastHash common.Hash
}

// Open opens (or creates) a trail at path.
func Open(path string) (*Trail, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	return load(db)
}

// OpenMemory backs the trail with in-memory storage. Used in tests and
// by the check subcommand where no persistence is wanted.
func OpenMemory() (*Trail, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open audit memdb: %w", err)
	}
	return load(db)
}

func load(db *leveldb.DB) (*Trail, error) {
	t := &Trail{db: db}
	iter := db.NewIterator(nil, nil)
	defer iter.Release()
	if iter.Last() {
		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("decode last audit record: %w", err)
		}
		t.next = rec.Seq + 1
		t.lastHash = rec.Hash
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return t, nil
}

func seqKey(seq uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], seq)
	return key[:]
}

// chainHash commits to everything in the record except Hash itself.
func chainHash(rec *Record) common.Hash {
	payload, _ := json.Marshal(struct {
		Event
		ID       string      `json:"id"`
		Seq      uint64      `json:"seq"`
		Time     time.Time   `json:"time"`
		PrevHash common.Hash `json:"prev_hash"`
	}{rec.Event, rec.ID, rec.Seq, rec.Time, rec.PrevHash})
	return crypto.Keccak256Hash(payload)
}

// Record appends one event and returns the persisted record.
func (t *Trail) Record(ev Event) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := Record{
		Event:    ev,
		ID:       uuid.NewString(),
		Seq:      t.next,
		Time:     time.Now().UTC(),
		PrevHash: t.lastHash,
	}
	rec.Hash = chainHash(&rec)

	value, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("encode audit record: %w", err)
	}
	if err := t.db.Put(seqKey(rec.Seq), value, nil); err != nil {
		return Record{}, fmt.Errorf("append audit record: %w", err)
	}
	t.next = rec.Seq + 1
	t.lastHash = rec.Hash
	return rec, nil
}

// Get fetches one record by sequence number.
func (t *Trail) Get(seq uint64) (Record, error) {
	value, err := t.db.Get(seqKey(seq), nil)
	if err != nil {
		return Record{}, fmt.Errorf("get audit record %d: %w", seq, err)
	}
	var rec Record
	if err := json.Unmarshal(value, &rec); err != nil {
		return Record{}, fmt.Errorf("decode audit record %d: %w", seq, err)
	}
	return rec, nil
}

// Tail returns up to n most recent records, oldest first.
func (t *Trail) Tail(n int) ([]Record, error) {
	t.mu.Lock()
	next := t.next
	t.mu.Unlock()

	if n <= 0 || next == 0 {
		return nil, nil
	}
	start := uint64(0)
	if uint64(n) < next {
		start = next - uint64(n)
	}
	out := make([]Record, 0, next-start)
	for seq := start; seq < next; seq++ {
		rec, err := t.Get(seq)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Verify walks the whole chain and reports the first record whose hash
// linkage does not hold.
func (t *Trail) Verify() error {
	t.mu.Lock()
	next := t.next
	t.mu.Unlock()

	var prev common.Hash
	for seq := uint64(0); seq < next; seq++ {
		rec, err := t.Get(seq)
		if err != nil {
			return err
		}
		if rec.PrevHash != prev {
			return fmt.Errorf("audit record %d: broken chain link", seq)
		}
		if chainHash(&rec) != rec.Hash {
			return fmt.Errorf("audit record %d: hash mismatch", seq)
		}
		prev = rec.Hash
	}
	return nil
}

func (t *Trail) Close() error {
	return t.db.Close()
}
