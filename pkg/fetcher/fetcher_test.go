package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchEligibilityDecodesValidList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"address": "0x1111111111111111111111111111111111111111", "amount": "100"},
			{"address": "0x2222222222222222222222222222222222222222", "amount": "200"}
		]`))
	}))
	defer srv.Close()

	f := New(5 * time.Second)
	entries, err := f.FetchEligibility(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "100", entries[0].Amount.String())
}

func TestFetchEligibilityRejectsBadAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"address": "not-an-address", "amount": "1"}]`))
	}))
	defer srv.Close()

	f := New(5 * time.Second)
	_, err := f.FetchEligibility(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFetchEligibilityRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(5 * time.Second)
	_, err := f.FetchEligibility(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFetchTrieDecodesRootAndEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"root": "0x` + repeatHex("ab", 32) + `",
			"entries": [{"address": "0x1111111111111111111111111111111111111111", "amount": "50"}]
		}`))
	}))
	defer srv.Close()

	f := New(5 * time.Second)
	root, entries, err := f.FetchTrie(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, byte(0xab), root[0])
}

func repeatHex(pair string, n int) string {
	out := make([]byte, 0, len(pair)*n)
	for i := 0; i < n; i++ {
		out = append(out, pair...)
	}
	return string(out)
}
