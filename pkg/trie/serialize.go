package trie

import (
	"encoding/json"
	"fmt"

	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
)

// serializedEntry is the wire form of one eligibility entry within a
// persisted trie blob.
type serializedEntry struct {
	Address string `json:"address"` // EIP-55 checksum form
	Amount  string `json:"amount"`  // base-10 decimal string
}

// serializedTrie is a self-contained representation sufficient to
// recompute the root and produce proofs: the ordering/encoder modes plus
// the ordered entries. No hash of the blob is embedded in this structure,
// and the store layer does not key it by a keccak256 of its bytes: it keeps
// the blob inline, or in the blob sidecar under a SHA-256 CID.
type serializedTrie struct {
	Ordering   string            `json:"ordering"`
	EncoderMode string           `json:"encoder_mode"`
	Entries    []serializedEntry `json:"entries"`
}

// Marshal serializes the trie to its persisted blob form.
func (t *Trie) Marshal() ([]byte, error) {
	st := serializedTrie{
		Ordering:    t.ordering.String(),
		EncoderMode: t.encMode.String(),
		Entries:     make([]serializedEntry, len(t.entries)),
	}
	for i, e := range t.entries {
		st.Entries[i] = serializedEntry{
			Address: encoding.ToChecksum(e.Address),
			Amount:  e.Amount.String(),
		}
	}
	return json.Marshal(st)
}

// Unmarshal reconstructs a Trie from a blob previously produced by Marshal,
// rebuilding the tree from the stored entries (the blob holds no root).
// Malformed JSON, addresses, amounts or modes are rejected as StorageCorrupt;
// the rebuilt root is not compared against any expected root here.
func Unmarshal(blob []byte) (*Trie, error) {
	var st serializedTrie
	if err := json.Unmarshal(blob, &st); err != nil {
		return nil, apperr.Wrap(apperr.KindStorageCorrupt, err, "trie blob is not valid JSON")
	}

	ordering, err := parseOrdering(st.Ordering)
	if err != nil {
		return nil, err
	}
	encMode, err := parseEncoderMode(st.EncoderMode)
	if err != nil {
		return nil, err
	}

	entries := make([]encoding.Entry, len(st.Entries))
	for i, se := range st.Entries {
		addr, err := encoding.ParseAddress(se.Address)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStorageCorrupt, err, "trie blob contains an invalid address")
		}
		amt, err := encoding.ParseAmount(se.Amount)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStorageCorrupt, err, "trie blob contains an invalid amount")
		}
		entries[i] = encoding.Entry{Address: addr, Amount: amt}
	}

	// PreserveInsertionOrder must not be re-sorted on reload: Build's
	// orderEntries is a no-op for that mode, so rebuilding from the
	// already-ordered entries reproduces the exact same tree.
	return Build(ordering, encMode, entries)
}

func parseOrdering(s string) (OrderingMode, error) {
	switch s {
	case SortByLeafBytes.String():
		return SortByLeafBytes, nil
	case SortByAddressKey.String():
		return SortByAddressKey, nil
	case PreserveInsertionOrder.String():
		return PreserveInsertionOrder, nil
	default:
		return 0, apperr.New(apperr.KindStorageCorrupt, fmt.Sprintf("unknown ordering mode %q in trie blob", s))
	}
}

func parseEncoderMode(s string) (encoding.Mode, error) {
	switch s {
	case encoding.BinaryAddress.String():
		return encoding.BinaryAddress, nil
	case encoding.HexPrefixAddress.String():
		return encoding.HexPrefixAddress, nil
	default:
		return 0, apperr.New(apperr.KindStorageCorrupt, fmt.Sprintf("unknown encoder mode %q in trie blob", s))
	}
}
