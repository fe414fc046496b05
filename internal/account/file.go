package account

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileStore keeps one YAML document per account under Dir.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

func (f *FileStore) path(account string) string {
	return filepath.Join(f.Dir, account+".yml")
}

func (f *FileStore) Load(_ context.Context, account string) (*Record, error) {
	if err := checkAccount(account); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(f.path(account))
	if errors.Is(err, fs.ErrNotExist) {
		return NewRecord(), nil
	}
	if err != nil {
		return nil, err
	}
	rec := &Record{}
	if err := yaml.Unmarshal(b, rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path(account), err)
	}
	rec.Ensure()
	return rec, nil
}

// Save writes through a temp file and rename so a crash never leaves a
// half-written record.
func (f *FileStore) Save(_ context.Context, account string, rec *Record) error {
	if err := checkAccount(account); err != nil {
		return err
	}
	b, err := yaml.Marshal(rec)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.Dir, account+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path(account))
}
