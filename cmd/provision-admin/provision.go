package main

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/ev-asset-platform/internal/model"
	"github.com/iliyamo/ev-asset-platform/internal/repository"
	"github.com/iliyamo/ev-asset-platform/internal/service"
)

type adminInput struct {
	Email    string
	Name     string
	Password string
}

type adminStore interface {
	UpsertAdmin(ctx context.Context, a *model.Account) error
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
}

type hasher interface {
	Hash(plain string) (string, error)
}

// provision validates in and writes the admin account, returning the stored
// row so an existing account keeps its id.
func provision(ctx context.Context, store adminStore, h hasher, in adminInput, now time.Time) (*model.Account, error) {
	email := repository.NormalizeEmail(in.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, fmt.Errorf("invalid email %q", in.Email)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.New("name is required")
	}
	if len(in.Password) < service.MinPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", service.MinPasswordLength)
	}

	hash, err := h.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	acc := &model.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Status:       model.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.UpsertAdmin(ctx, acc); err != nil {
		return nil, fmt.Errorf("upsert admin: %w", err)
	}
	stored, err := store.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("reload admin: %w", err)
	}
	return stored, nil
}

type statusStore interface {
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	SetStatus(ctx context.Context, id string, status model.Status, at time.Time) error
}

// setStatus changes the status of the account registered under email.
func setStatus(ctx context.Context, store statusStore, email, status string, now time.Time) (*model.Account, error) {
	st := model.Status(strings.ToLower(strings.TrimSpace(status)))
	if !st.Valid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	acc, err := store.FindByEmail(ctx, repository.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if err := store.SetStatus(ctx, acc.ID, st, now); err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}
	acc.Status = st
	acc.UpdatedAt = now
	return acc, nil
}
