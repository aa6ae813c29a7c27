// Package blob implements the content-addressed sidecar store: trie blobs
// are written once under their CID and never mutated in place, mirroring
// the IPLD block-store convention the indirect ipfs/go-cid,
// go-block-format, go-datastore, and multiformats/go-multihash
// dependencies exist to serve.
package blob

import (
	"context"
	"fmt"
	"strings"

	blocks "github.com/ipfs/go-block-format"
	cid "github.com/ipfs/go-cid"
	ds "github.com/ipfs/go-datastore"
	dsquery "github.com/ipfs/go-datastore/query"
	"github.com/multiformats/go-multihash"
)

// Store is the content-addressed blob sidecar.
type Store struct {
	ds ds.Batching
}

// New wraps an existing batching datastore (in-memory or filesystem-backed).
func New(d ds.Batching) *Store {
	return &Store{ds: d}
}

// Put hashes data with SHA-256 into a CIDv1 raw-codec block, stores it
// keyed by that CID, and returns the CID so callers can reference it from
// a round's persisted metadata. Put is idempotent: re-storing identical
// bytes yields the same CID, and the second call writes the same bytes
// under the same key again.
func (s *Store) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, fmt.Errorf("hash blob: %w", err)
	}
	c := cid.NewCidV1(cid.Raw, mh)
	block, err := blocks.NewBlockWithCid(data, c)
	if err != nil {
		return cid.Undef, fmt.Errorf("construct block: %w", err)
	}
	if err := s.ds.Put(ctx, dsKey(c), block.RawData()); err != nil {
		return cid.Undef, fmt.Errorf("put block %s: %w", c, err)
	}
	return c, nil
}

// Get retrieves the bytes stored under c and verifies the content still
// hashes to c, surfacing sidecar corruption instead of silently returning
// tampered bytes.
func (s *Store) Get(ctx context.Context, c cid.Cid) ([]byte, error) {
	data, err := s.ds.Get(ctx, dsKey(c))
	if err != nil {
		return nil, fmt.Errorf("get block %s: %w", c, err)
	}
	sum, err := c.Prefix().Sum(data)
	if err != nil {
		return nil, fmt.Errorf("block %s failed content verification: %w", c, err)
	}
	if !sum.Equals(c) {
		return nil, fmt.Errorf("block %s failed content verification: content hashes to %s", c, sum)
	}
	block, err := blocks.NewBlockWithCid(data, c)
	if err != nil {
		return nil, fmt.Errorf("block %s failed content verification: %w", c, err)
	}
	return block.RawData(), nil
}

// Delete removes the blob stored under c.
func (s *Store) Delete(ctx context.Context, c cid.Cid) error {
	return s.ds.Delete(ctx, dsKey(c))
}

// Has reports whether a blob is stored under c.
func (s *Store) Has(ctx context.Context, c cid.Cid) (bool, error) {
	return s.ds.Has(ctx, dsKey(c))
}

// List enumerates every CID currently held by the sidecar.
func (s *Store) List(ctx context.Context) ([]cid.Cid, error) {
	results, err := s.ds.Query(ctx, dsquery.Query{KeysOnly: true})
	if err != nil {
		return nil, fmt.Errorf("query blob keys: %w", err)
	}
	defer results.Close()

	var out []cid.Cid
	for entry := range results.Next() {
		if entry.Error != nil {
			return nil, entry.Error
		}
		c, err := cid.Decode(strings.TrimPrefix(entry.Key, "/"))
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func dsKey(c cid.Cid) ds.Key {
	return ds.NewKey(c.String())
}
