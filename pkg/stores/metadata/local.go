package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/errors"
)

/*
LocalStore is the on-disk fallback backend. Each table is one JSON file
holding a key-to-record map, mutated read-modify-write under a single
process-wide lock. Single-process use is assumed; there is no file
locking.
*/
type LocalStore struct {
	dir string
	mu  sync.Mutex
}

// NewLocalStore creates the data directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local store dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (store *LocalStore) Name() string {
	return "local"
}

func (store *LocalStore) tablePath(table string) string {
	return filepath.Join(store.dir, table+".json")
}

// readTable loads a table file. A missing file is an empty table.
func (store *LocalStore) readTable(table string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(store.tablePath(table))
	if os.IsNotExist(err) {
		return make(map[string]json.RawMessage), nil
	}
	if err != nil {
		return nil, err
	}

	records := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("corrupt table file %s: %w", table, err)
	}
	return records, nil
}

// writeTable persists a table atomically via rename.
func (store *LocalStore) writeTable(table string, records map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmp := store.tablePath(table) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, store.tablePath(table))
}

func (store *LocalStore) Put(ctx context.Context, table, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", table, err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	records, err := store.readTable(table)
	if err != nil {
		return err
	}
	records[key] = json.RawMessage(data)
	return store.writeTable(table, records)
}

func (store *LocalStore) Get(ctx context.Context, table, key string, out any) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	records, err := store.readTable(table)
	if err != nil {
		return err
	}

	data, ok := records[key]
	if !ok {
		return errors.ErrNotFound.WithMessagef("%s/%s", table, key)
	}
	return json.Unmarshal(data, out)
}

func (store *LocalStore) Delete(ctx context.Context, table, key string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	records, err := store.readTable(table)
	if err != nil {
		return err
	}

	if _, ok := records[key]; !ok {
		return errors.ErrNotFound.WithMessagef("%s/%s", table, key)
	}

	delete(records, key)
	return store.writeTable(table, records)
}

func (store *LocalStore) List(ctx context.Context, table string) (map[string]json.RawMessage, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	return store.readTable(table)
}

func (store *LocalStore) Health(ctx context.Context) error {
	info, err := os.Stat(store.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", store.dir)
	}
	return nil
}
