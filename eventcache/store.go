package eventcache

import (
	"encoding/binary"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	bolt "go.etcd.io/bbolt"

	"github.com/celestiaorg/celestia-da-challenge/blobstream"
)

const (
	metaBucket = "metadata"
	firstKey   = "first_commitment"
)

// Store persists data commitments of one bridge in a bbolt database, keyed
// by the big-endian start block so that iteration is ordered by height.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// OpenStore opens or creates the database at path.
func OpenStore(path string, bridge common.Address) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open db: %w", err)
	}

	s := &Store{db: db, bucket: bridge.Bytes()}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(s.bucket); err != nil {
			return fmt.Errorf("could not create commitments bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(metaBucket)); err != nil {
			return fmt.Errorf("could not create metadata bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func startKey(start uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, start)
	return key
}

// Put stores a commitment.
func (s *Store) Put(commitment blobstream.DataCommitment) error {
	value, err := rlp.EncodeToBytes(&commitment)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(startKey(commitment.StartBlock), value)
	})
}

// Load returns every stored commitment in increasing start order.
func (s *Store) Load() ([]blobstream.DataCommitment, error) {
	var commitments []blobstream.DataCommitment
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, v []byte) error {
			commitment, err := decodeCommitment(v)
			if err != nil {
				return err
			}
			if len(k) != 8 || binary.BigEndian.Uint64(k) != commitment.StartBlock {
				return errorsmod.Wrapf(ErrCorruptStore, "key %x does not match start block %d", k, commitment.StartBlock)
			}
			commitments = append(commitments, commitment)
			return nil
		})
	})
	return commitments, err
}

// PutFirst stores the first commitment of the bridge.
func (s *Store) PutFirst(commitment blobstream.DataCommitment) error {
	value, err := rlp.EncodeToBytes(&commitment)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(metaBucket)).Put(s.metaKey(), value)
	})
}

// First returns the stored first commitment, if any.
func (s *Store) First() (commitment blobstream.DataCommitment, found bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(metaBucket)).Get(s.metaKey())
		if v == nil {
			return nil
		}
		found = true
		commitment, err = decodeCommitment(v)
		return err
	})
	return
}

func (s *Store) metaKey() []byte {
	return append([]byte(firstKey+"/"), s.bucket...)
}

func decodeCommitment(v []byte) (blobstream.DataCommitment, error) {
	var commitment blobstream.DataCommitment
	if err := rlp.DecodeBytes(v, &commitment); err != nil {
		return commitment, errorsmod.Wrap(ErrCorruptStore, err.Error())
	}
	if err := commitment.Validate(); err != nil {
		return commitment, errorsmod.Wrap(ErrCorruptStore, err.Error())
	}
	return commitment, nil
}
