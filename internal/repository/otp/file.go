package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"aurum-storefront/internal/domain"
)

type fileEntry struct {
	Code       string `json:"code"`
	CustomerID string `json:"customerId"`
	Expires    int64  `json:"expires"`
}

type fileRepo struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a Repository backed by a single JSON object file keyed by email.
// All writers in the process share one mutex; the file is replaced by rename.
func NewFile(path string) Repository {
	return &fileRepo{path: path}
}

func (r *fileRepo) Put(_ context.Context, rec domain.OTPRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.read()
	entries[rec.Email] = fileEntry{
		Code:       rec.CodeHash,
		CustomerID: rec.CustomerID,
		Expires:    rec.ExpiresAt.UnixMilli(),
	}
	return r.write(entries)
}

func (r *fileRepo) Get(_ context.Context, email string) (*domain.OTPRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.read()[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.OTPRecord{
		Email:      email,
		CodeHash:   e.Code,
		CustomerID: e.CustomerID,
		ExpiresAt:  time.UnixMilli(e.Expires).UTC(),
	}, nil
}

func (r *fileRepo) Consume(_ context.Context, rec domain.OTPRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.read()
	e, ok := entries[rec.Email]
	if !ok || e.Code != rec.CodeHash {
		return domain.ErrNotFound
	}
	delete(entries, rec.Email)
	return r.write(entries)
}

func (r *fileRepo) Ping(_ context.Context) error {
	dir := filepath.Dir(r.path)
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("otp file dir %s is not a directory", dir)
	}
	return nil
}

// read treats a missing or unparsable file as empty.
func (r *fileRepo) read() map[string]fileEntry {
	entries := make(map[string]fileEntry)
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return entries
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return make(map[string]fileEntry)
	}
	return entries
}

func (r *fileRepo) write(entries map[string]fileEntry) error {
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".otp-*.json")
	if err != nil {
		return fmt.Errorf("create temp otp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp otp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil && !errors.Is(err, fs.ErrNotExist) {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace otp file: %w", err)
	}
	return nil
}
