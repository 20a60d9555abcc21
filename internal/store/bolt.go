package store

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/antoinerrr/ssh-ecs/internal/core"
)

var (
	bucketRequests   = []byte("requests")   // requester token -> request JSON
	bucketValidators = []byte("validators") // validator token -> requester token
)

var _ core.RequestStore = (*BoltRequestStore)(nil)

// BoltRequestStore persists escalation requests in a local bbolt file.
// Records are keyed by the requester token with a secondary index on the
// validator token; the approve transition runs inside a single write
// transaction, so racing approvals cannot lose updates.
type BoltRequestStore struct {
	db *bolt.DB
}

func NewBoltRequestStore(path string) (*BoltRequestStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening request database '%s': %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRequests); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketValidators)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing request database: %w", err)
	}

	return &BoltRequestStore{db: db}, nil
}

func (s *BoltRequestStore) Insert(_ context.Context, req core.AccessRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRequests).Put([]byte(req.RequesterToken), data); err != nil {
			return fmt.Errorf("storing request: %w", err)
		}
		if err := tx.Bucket(bucketValidators).Put([]byte(req.ValidatorToken), []byte(req.RequesterToken)); err != nil {
			return fmt.Errorf("storing validator index: %w", err)
		}
		return nil
	})
}

func (s *BoltRequestStore) FindByRequesterToken(_ context.Context, token string) (*core.AccessRequest, error) {
	var req *core.AccessRequest
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		req, err = getRequest(tx, []byte(token))
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *BoltRequestStore) FindByValidatorToken(_ context.Context, token string) (*core.AccessRequest, error) {
	var req *core.AccessRequest
	err := s.db.View(func(tx *bolt.Tx) error {
		requesterToken := tx.Bucket(bucketValidators).Get([]byte(token))
		if requesterToken == nil {
			return core.E(core.KindNotFound, "no request for validator token")
		}
		var err error
		req, err = getRequest(tx, requesterToken)
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *BoltRequestStore) Approve(_ context.Context, validatorToken string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		requesterToken := tx.Bucket(bucketValidators).Get([]byte(validatorToken))
		if requesterToken == nil {
			return core.E(core.KindNotFound, "no request for validator token")
		}
		req, err := getRequest(tx, requesterToken)
		if err != nil {
			return err
		}
		if req.Approved {
			// re-approving is a no-op
			return nil
		}
		req.Approved = true

		data, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		return tx.Bucket(bucketRequests).Put(requesterToken, data)
	})
}

func (s *BoltRequestStore) Close() error {
	return s.db.Close()
}

func getRequest(tx *bolt.Tx, requesterToken []byte) (*core.AccessRequest, error) {
	data := tx.Bucket(bucketRequests).Get(requesterToken)
	if data == nil {
		return nil, core.E(core.KindNotFound, "no request for requester token")
	}
	var req core.AccessRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	return &req, nil
}
