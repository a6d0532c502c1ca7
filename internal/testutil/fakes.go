// Package testutil provides in-memory stand-ins for the MySQL credential
// store and the RabbitMQ publisher, shared by service and handler tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iliyamo/ev-asset-platform/internal/model"
	"github.com/iliyamo/ev-asset-platform/internal/queue"
	"github.com/iliyamo/ev-asset-platform/internal/repository"
)

// Accounts is an in-memory AccountStore with the same error contract as
// repository.AccountRepo.
type Accounts struct {
	mu      sync.Mutex
	byID    map[string]*model.Account
	FailAll error // when set, every call returns it
}

func NewAccounts() *Accounts {
	return &Accounts{byID: make(map[string]*model.Account)}
}

// Put stores a copy of a without any uniqueness check.
func (m *Accounts) Put(a *model.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.byID[a.ID] = &cp
}

// Delete removes an account, simulating out-of-band deletion.
func (m *Accounts) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

// Snapshot returns a copy of the stored account.
func (m *Accounts) Snapshot(id string) (model.Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return model.Account{}, false
	}
	return *a, true
}

func (m *Accounts) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *Accounts) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll != nil {
		return nil, m.FailAll
	}
	email = repository.NormalizeEmail(email)
	for _, a := range m.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *Accounts) GetByID(_ context.Context, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll != nil {
		return nil, m.FailAll
	}
	a, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *Accounts) Create(_ context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll != nil {
		return m.FailAll
	}
	for _, ex := range m.byID {
		if ex.Email == a.Email {
			return repository.ErrEmailExists
		}
	}
	if a.ID == "" {
		return errors.New("empty id")
	}
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *Accounts) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll != nil {
		return m.FailAll
	}
	a, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	t := at
	a.LastLogin = &t
	a.UpdatedAt = at
	return nil
}

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	events []queue.AuthEvent
	Err    error
}

func (p *Publisher) Publish(_ context.Context, ev queue.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.Err
}

// Types returns the types of the recorded events in order.
func (p *Publisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// Events returns a copy of the recorded events.
func (p *Publisher) Events() []queue.AuthEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.AuthEvent(nil), p.events...)
}
