package blob

import (
	"context"
	"testing"

	cid "github.com/ipfs/go-cid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	aferoDS, err := NewAferoDatastore(afero.NewMemMapFs(), "/blobs")
	require.NoError(t, err)
	return New(aferoDS)
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	data := []byte("trie blob contents")
	c, err := s.Put(ctx, data)
	require.NoError(t, err)

	got, err := s.Get(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPutIsContentAddressedAndDeterministic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c1, err := s.Put(ctx, []byte("same bytes"))
	require.NoError(t, err)
	c2, err := s.Put(ctx, []byte("same bytes"))
	require.NoError(t, err)
	assert.Equal(t, c1, c2)

	c3, err := s.Put(ctx, []byte("different bytes"))
	require.NoError(t, err)
	assert.NotEqual(t, c1, c3)
}

func TestHasAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.Put(ctx, []byte("to be deleted"))
	require.NoError(t, err)

	has, err := s.Has(ctx, c)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, s.Delete(ctx, c))

	has, err = s.Has(ctx, c)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestListEnumeratesStoredBlobs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c1, err := s.Put(ctx, []byte("blob one"))
	require.NoError(t, err)
	c2, err := s.Put(ctx, []byte("blob two"))
	require.NoError(t, err)

	cids, err := s.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{c1.String(), c2.String()}, cidStrings(cids))
}

func cidStrings(cids []cid.Cid) []string {
	out := make([]string, len(cids))
	for i, c := range cids {
		out[i] = c.String()
	}
	return out
}
