package blob

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	ds "github.com/ipfs/go-datastore"
	dsquery "github.com/ipfs/go-datastore/query"
	"github.com/spf13/afero"
)

// AferoDatastore implements ds.Batching over an afero.Fs, so the blob
// sidecar can run against a real directory in production and an in-memory
// filesystem in tests without touching disk.
type AferoDatastore struct {
	fs   afero.Fs
	root string
}

// NewAferoDatastore roots the datastore at dir on fs, creating it if
// necessary.
func NewAferoDatastore(fsys afero.Fs, dir string) (*AferoDatastore, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &AferoDatastore{fs: fsys, root: dir}, nil
}

func (a *AferoDatastore) path(key ds.Key) string {
	return filepath.Join(a.root, key.String())
}

func (a *AferoDatastore) Put(_ context.Context, key ds.Key, value []byte) error {
	return afero.WriteFile(a.fs, a.path(key), value, 0o644)
}

func (a *AferoDatastore) Get(_ context.Context, key ds.Key) ([]byte, error) {
	data, err := afero.ReadFile(a.fs, a.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ds.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (a *AferoDatastore) Has(_ context.Context, key ds.Key) (bool, error) {
	return afero.Exists(a.fs, a.path(key))
}

func (a *AferoDatastore) GetSize(ctx context.Context, key ds.Key) (int, error) {
	info, err := a.fs.Stat(a.path(key))
	if err != nil {
		return 0, ds.ErrNotFound
	}
	return int(info.Size()), nil
}

func (a *AferoDatastore) Delete(_ context.Context, key ds.Key) error {
	err := a.fs.Remove(a.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (a *AferoDatastore) Sync(_ context.Context, _ ds.Key) error { return nil }

func (a *AferoDatastore) Close() error { return nil }

func (a *AferoDatastore) Query(_ context.Context, q dsquery.Query) (dsquery.Results, error) {
	entries, err := afero.ReadDir(a.fs, a.root)
	if err != nil {
		return nil, err
	}
	results := make([]dsquery.Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		entry := dsquery.Entry{Key: "/" + e.Name()}
		if !q.KeysOnly {
			data, err := afero.ReadFile(a.fs, filepath.Join(a.root, e.Name()))
			if err != nil {
				return nil, err
			}
			entry.Value = data
			entry.Size = len(data)
		}
		results = append(results, entry)
	}
	return dsquery.ResultsWithEntries(q, results), nil
}

// Batch returns a no-op batch; AferoDatastore writes are unbuffered.
func (a *AferoDatastore) Batch(_ context.Context) (ds.Batch, error) {
	return &aferoBatch{a}, nil
}

type aferoBatch struct{ a *AferoDatastore }

func (b *aferoBatch) Put(ctx context.Context, key ds.Key, value []byte) error {
	return b.a.Put(ctx, key, value)
}

func (b *aferoBatch) Delete(ctx context.Context, key ds.Key) error {
	return b.a.Delete(ctx, key)
}

func (b *aferoBatch) Commit(_ context.Context) error { return nil }
