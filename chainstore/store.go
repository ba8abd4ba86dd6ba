package chainstore

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-chainstate/inter/chaininfo"
)

// ErrNotFound is returned when no snapshot is stored for the requested height.
var ErrNotFound = errors.New("chain state not found")

var (
	snapshotPrefix = []byte("s")
	latestKey      = []byte("latest")
)

// Config tunes the store.
type Config struct {
	// Cache is the number of validated snapshots kept in memory.
	Cache int
	// DBCache is the memory allowance of the on-disk database, in MiB.
	DBCache int
	// DBHandles is the number of file handles of the on-disk database.
	DBHandles int
	// Retain is the number of most recent snapshots kept by Put. 0 keeps all of them.
	Retain uint64
}

// DefaultConfig returns the configuration used when nothing else is specified.
func DefaultConfig() Config {
	return Config{
		Cache:     64,
		DBCache:   16,
		DBHandles: 16,
		Retain:    0,
	}
}

// Store keeps a history of validated chain states, indexed by finalized block number.
// It is safe for concurrent use.
type Store struct {
	cfg   Config
	db    ethdb.KeyValueStore
	cache *lru.Cache[idx.Block, *chaininfo.ValidatedChainState]
	log   logrus.FieldLogger
}

// New wraps an already opened key-value store.
func New(db ethdb.KeyValueStore, cfg Config, logger logrus.FieldLogger) (*Store, error) {
	if cfg.Cache <= 0 {
		cfg.Cache = DefaultConfig().Cache
	}
	cache, err := lru.New[idx.Block, *chaininfo.ValidatedChainState](cfg.Cache)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{
		cfg:   cfg,
		db:    db,
		cache: cache,
		log:   logger.WithField("module", "chainstore"),
	}, nil
}

// NewMemory returns a store that lives in memory only.
func NewMemory(cfg Config, logger logrus.FieldLogger) (*Store, error) {
	return New(memorydb.New(), cfg, logger)
}

// OpenLevelDB opens, or creates, a store in the leveldb database at path.
func OpenLevelDB(path string, cfg Config, readonly bool, logger logrus.FieldLogger) (*Store, error) {
	db, err := leveldb.New(path, cfg.DBCache, cfg.DBHandles, "chainstate/db/", readonly)
	if err != nil {
		return nil, fmt.Errorf("open chain state database %s: %w", path, err)
	}
	return New(db, cfg, logger)
}

// Close releases the underlying database.
func (s *Store) Close() error {
	s.cache.Purge()
	return s.db.Close()
}

func snapshotKey(n idx.Block) []byte {
	return append(append([]byte{}, snapshotPrefix...), bigendian.Uint64ToBytes(uint64(n))...)
}

// Put stores v under its finalized number and marks it as the latest snapshot. When the
// store retains a bounded history, older snapshots are pruned in the same batch.
func (s *Store) Put(v *chaininfo.ValidatedChainState) error {
	raw, err := Encode(v.ChainState())
	if err != nil {
		return err
	}
	n := v.FinalizedNumber()

	batch := s.db.NewBatch()
	if err := batch.Put(snapshotKey(n), raw); err != nil {
		return err
	}
	if err := batch.Put(latestKey, bigendian.Uint64ToBytes(uint64(n))); err != nil {
		return err
	}

	var pruned []idx.Block
	if s.cfg.Retain != 0 && uint64(n) >= s.cfg.Retain {
		oldest := n - idx.Block(s.cfg.Retain) + 1
		numbers, err := s.Numbers()
		if err != nil {
			return err
		}
		for _, old := range numbers {
			if old >= oldest {
				break
			}
			if err := batch.Delete(snapshotKey(old)); err != nil {
				return err
			}
			pruned = append(pruned, old)
		}
	}

	if err := batch.Write(); err != nil {
		return fmt.Errorf("write chain state %d: %w", n, err)
	}
	for _, old := range pruned {
		s.cache.Remove(old)
	}
	s.cache.Add(n, v)

	s.log.WithFields(logrus.Fields{
		"number": n,
		"hash":   v.FinalizedHash().String(),
		"pruned": len(pruned),
		"size":   len(raw),
	}).Debug("Stored chain state")
	return nil
}

// Latest returns the snapshot most recently stored by Put.
func (s *Store) Latest() (*chaininfo.ValidatedChainState, error) {
	ok, err := s.db.Has(latestKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	raw, err := s.db.Get(latestKey)
	if err != nil {
		return nil, err
	}
	return s.At(idx.Block(bigendian.BytesToUint64(raw)))
}

// At returns the snapshot finalized at n. Snapshots are validated again when read from
// disk, since the database may have been modified by someone else.
func (s *Store) At(n idx.Block) (*chaininfo.ValidatedChainState, error) {
	if v, ok := s.cache.Get(n); ok {
		return v, nil
	}
	raw, err := s.Raw(n)
	if err != nil {
		return nil, err
	}
	cs, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("chain state %d: %w", n, err)
	}
	v, err := chaininfo.TryValidate(cs)
	if err != nil {
		return nil, fmt.Errorf("chain state %d: %w", n, err)
	}
	s.cache.Add(n, v)
	return v, nil
}

// Raw returns the encoded snapshot finalized at n, without decoding it.
func (s *Store) Raw(n idx.Block) ([]byte, error) {
	key := snapshotKey(n)
	ok, err := s.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return s.db.Get(key)
}

// Numbers returns the finalized numbers of all stored snapshots, in ascending order.
func (s *Store) Numbers() ([]idx.Block, error) {
	it := s.db.NewIterator(snapshotPrefix, nil)
	defer it.Release()

	var numbers []idx.Block
	for it.Next() {
		key := it.Key()
		if len(key) != len(snapshotPrefix)+8 {
			continue
		}
		numbers = append(numbers, idx.Block(bigendian.BytesToUint64(key[len(snapshotPrefix):])))
	}
	return numbers, it.Error()
}

// LastKnownGood returns the most recent snapshot that still decodes and validates. It is
// the fallback of an operator when the latest snapshot got corrupted.
func (s *Store) LastKnownGood() (*chaininfo.ValidatedChainState, error) {
	numbers, err := s.Numbers()
	if err != nil {
		return nil, err
	}
	for i := len(numbers) - 1; i >= 0; i-- {
		v, err := s.At(numbers[i])
		if err == nil {
			return v, nil
		}
		s.log.WithError(err).WithField("number", numbers[i]).Warn("Skipping unusable chain state")
	}
	return nil, ErrNotFound
}
