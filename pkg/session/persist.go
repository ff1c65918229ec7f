package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shashiranjanraj/aquaportal/pkg/cache"
)

// Snapshot is what survives a restart: the credential and the last identity
// the backend confirmed for it.
type Snapshot struct {
	Token    string    `json:"token"`
	Identity *Identity `json:"user,omitempty"`
}

// Persister keeps a Snapshot across process restarts.
type Persister interface {
	Load(ctx context.Context) (*Snapshot, error) // nil, nil when nothing is stored
	Save(ctx context.Context, s Snapshot) error
	Clear(ctx context.Context) error
}

// ─── File ────────────────────────────────────────────────────────────────────

// FilePersister stores the snapshot as a JSON file readable only by the owner.
type FilePersister struct {
	Path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{Path: path}
}

func (p *FilePersister) Load(_ context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", p.Path, err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", p.Path, err)
	}
	if s.Token == "" {
		return nil, nil
	}
	return &s, nil
}

func (p *FilePersister) Save(_ context.Context, s Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o700); err != nil {
		return fmt.Errorf("session: mkdir: %w", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(p.Path, data, 0o600)
}

func (p *FilePersister) Clear(_ context.Context) error {
	err := os.Remove(p.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: remove %s: %w", p.Path, err)
	}
	return nil
}

// ─── Cache ───────────────────────────────────────────────────────────────────

// CachePersister stores the snapshot under one key of a cache.Store, so
// several processes pointed at the same Redis share a login.
type CachePersister struct {
	store cache.Store
	key   string
}

// NewCachePersister keys the snapshot by profile name.
func NewCachePersister(store cache.Store, profile string) *CachePersister {
	return &CachePersister{store: store, key: "aquaportal:session:" + profile}
}

func (p *CachePersister) Load(ctx context.Context) (*Snapshot, error) {
	var s Snapshot
	ok, err := p.store.Get(ctx, p.key, &s)
	if err != nil {
		return nil, err
	}
	if !ok || s.Token == "" {
		return nil, nil
	}
	return &s, nil
}

func (p *CachePersister) Save(ctx context.Context, s Snapshot) error {
	return p.store.Set(ctx, p.key, s, 0)
}

func (p *CachePersister) Clear(ctx context.Context) error {
	return p.store.Del(ctx, p.key)
}

// ─── Memory ──────────────────────────────────────────────────────────────────

// MemoryPersister forgets everything when the process exits. Tests and the
// `--ephemeral` CLI flag use it.
type MemoryPersister struct {
	*CachePersister
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{NewCachePersister(cache.NewMemoryStore(), "memory")}
}
