// Package fetcher implements ExternalFetcher: bounded HTTP retrieval of
// eligibility lists and reference tries from a remote comparator source.
package fetcher

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
)

// maxResponseBytes caps how much of a remote body is read, regardless of
// the server's declared Content-Length, to bound memory under a
// misbehaving or malicious upstream.
const maxResponseBytes = 64 << 20 // 64 MiB

// Fetcher retrieves eligibility data from an external HTTP endpoint.
type Fetcher struct {
	client *http.Client
}

// New builds a Fetcher with an explicit timeout and a redirect cap, since
// the default http.Client has neither.
func New(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
	}
}

// eligibilityEntry is the wire shape of one entry in a remote eligibility
// list response.
type eligibilityEntry struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// FetchEligibility downloads and decodes a JSON array of {address, amount}
// objects from url.
func (f *Fetcher) FetchEligibility(ctx context.Context, url string) ([]encoding.Entry, error) {
	body, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var raw []eligibilityEntry
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperr.Wrap(apperr.KindExternalInvalid, err, "decode eligibility list")
	}

	entries := make([]encoding.Entry, 0, len(raw))
	for _, r := range raw {
		addr, err := encoding.ParseAddress(r.Address)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindExternalInvalid, err, "invalid address in remote eligibility list")
		}
		amt, err := encoding.ParseAmount(r.Amount)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindExternalInvalid, err, "invalid amount in remote eligibility list")
		}
		entries = append(entries, encoding.Entry{Address: addr, Amount: amt})
	}
	return entries, nil
}

// referenceTrieResponse is the wire shape of a remote trie response used
// for comparison.
type referenceTrieResponse struct {
	Root    string             `json:"root"`
	Entries []eligibilityEntry `json:"entries"`
}

// FetchTrie downloads a reference root and entry set from url, for the
// comparator to diff against a locally built trie.
func (f *Fetcher) FetchTrie(ctx context.Context, url string) (root [32]byte, entries []encoding.Entry, err error) {
	body, err := f.get(ctx, url)
	if err != nil {
		return root, nil, err
	}

	var raw referenceTrieResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return root, nil, apperr.Wrap(apperr.KindExternalInvalid, err, "decode reference trie")
	}

	rootBytes, err := decodeHexRoot(raw.Root)
	if err != nil {
		return root, nil, apperr.Wrap(apperr.KindExternalInvalid, err, "decode reference root")
	}
	root = rootBytes

	entries = make([]encoding.Entry, 0, len(raw.Entries))
	for _, r := range raw.Entries {
		addr, err := encoding.ParseAddress(r.Address)
		if err != nil {
			return root, nil, apperr.Wrap(apperr.KindExternalInvalid, err, "invalid address in reference trie")
		}
		amt, err := encoding.ParseAmount(r.Amount)
		if err != nil {
			return root, nil, apperr.Wrap(apperr.KindExternalInvalid, err, "invalid amount in reference trie")
		}
		entries = append(entries, encoding.Entry{Address: addr, Amount: amt})
	}
	return root, entries, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalInvalid, err, "build request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalInvalid, err, "fetch "+url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.KindExternalInvalid, fmt.Sprintf("unexpected status %d fetching %s", resp.StatusCode, url))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternalInvalid, err, "read response body")
	}
	if len(body) > maxResponseBytes {
		return nil, apperr.New(apperr.KindExternalInvalid, fmt.Sprintf("response from %s exceeds %d bytes", url, maxResponseBytes))
	}
	return body, nil
}

func decodeHexRoot(s string) ([32]byte, error) {
	var out [32]byte
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != len(out) {
		return out, fmt.Errorf("root hex decodes to %d bytes, want %d", len(b), len(out))
	}
	copy(out[:], b)
	return out, nil
}
