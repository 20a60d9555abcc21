package store

import (
	"context"
	"sync"

	"github.com/antoinerrr/ssh-ecs/internal/core"
)

var _ core.RequestStore = (*InMemoryRequestStore)(nil)

// InMemoryRequestStore keeps escalation requests in memory. Suitable for
// tests and single-process deployments that accept losing Pending requests on
// restart.
type InMemoryRequestStore struct {
	mu          sync.RWMutex
	byRequester map[string]*core.AccessRequest
	byValidator map[string]*core.AccessRequest
}

func NewInMemoryRequestStore() *InMemoryRequestStore {
	return &InMemoryRequestStore{
		byRequester: make(map[string]*core.AccessRequest),
		byValidator: make(map[string]*core.AccessRequest),
	}
}

func (s *InMemoryRequestStore) Insert(_ context.Context, req core.AccessRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := req
	s.byRequester[req.RequesterToken] = &stored
	s.byValidator[req.ValidatorToken] = &stored
	return nil
}

func (s *InMemoryRequestStore) FindByRequesterToken(_ context.Context, token string) (*core.AccessRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.byRequester[token]
	if !ok {
		return nil, core.E(core.KindNotFound, "no request for requester token")
	}
	copied := *req
	return &copied, nil
}

func (s *InMemoryRequestStore) FindByValidatorToken(_ context.Context, token string) (*core.AccessRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.byValidator[token]
	if !ok {
		return nil, core.E(core.KindNotFound, "no request for validator token")
	}
	copied := *req
	return &copied, nil
}

func (s *InMemoryRequestStore) Approve(_ context.Context, validatorToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.byValidator[validatorToken]
	if !ok {
		return core.E(core.KindNotFound, "no request for validator token")
	}
	req.Approved = true
	return nil
}

func (s *InMemoryRequestStore) Close() error {
	return nil
}
