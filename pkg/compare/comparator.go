// Package compare implements byte-exact comparison between a locally built
// trie and an external reference (another trie, or a structured set of
// claimed root + per-address proofs), producing a structured diff report.
package compare

import (
	"sort"

	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
	"github.com/cerc-io/airdrop-trie-service/pkg/trie"
)

// Reference is an external trie to compare against: either another fully
// built Trie (see ReferenceFromTrie, which fills Proofs) or a structured JSON
// payload of claimed root + per-address amounts and optional proofs.
type Reference struct {
	Root    trie.Hash
	Entries map[string]encoding.Amount // lowercase address -> amount
	Proofs  map[string][]trie.Hash     // lowercase address -> claimed proof, optional
	EncMode encoding.Mode
}

// ReferenceFromTrie builds a Reference from a fully constructed Trie,
// capturing its entries and proofs so Compare can run symmetrically in
// either direction.
func ReferenceFromTrie(t *trie.Trie) Reference {
	ref := Reference{
		Root:    t.Root(),
		Entries: make(map[string]encoding.Amount, t.Len()),
		Proofs:  make(map[string][]trie.Hash, t.Len()),
		EncMode: t.EncoderMode(),
	}
	for _, e := range t.Entries() {
		key := encoding.NormalizeLower(e.Address)
		ref.Entries[key] = e.Amount
		proof, _, _ := t.ProofFor(e.Address)
		ref.Proofs[key] = proof
	}
	return ref
}

// AmountMismatch records an address whose local and reference amounts
// disagree.
type AmountMismatch struct {
	Address        string
	LocalAmount    encoding.Amount
	ReferenceAmount encoding.Amount
}

// Report is the structured diff produced by Compare.
type Report struct {
	RootMatch           bool
	MissingInLocal      []string // present in reference, absent locally
	MissingInReference  []string // present locally, absent in reference
	AmountMismatches    []AmountMismatch
	ProofMismatches     []string // present in both, proofs disagree
}

// Empty reports whether the report carries no diffs at all (root match and
// empty diff sets).
func (r Report) Empty() bool {
	return r.RootMatch && len(r.MissingInLocal) == 0 && len(r.MissingInReference) == 0 &&
		len(r.AmountMismatches) == 0 && len(r.ProofMismatches) == 0
}

// Compare produces a structured diff between local and ref. Compare is
// symmetric: Compare(A,B).RootMatch == Compare(B,A).RootMatch, and the two
// missing-address sets are negations of each other between directions.
func Compare(local *trie.Trie, ref Reference) Report {
	report := Report{RootMatch: local.Root() == ref.Root}

	localEntries := make(map[string]encoding.Amount, local.Len())
	for _, e := range local.Entries() {
		localEntries[encoding.NormalizeLower(e.Address)] = e.Amount
	}

	for addr := range ref.Entries {
		if _, ok := localEntries[addr]; !ok {
			report.MissingInLocal = append(report.MissingInLocal, addr)
		}
	}
	for addr := range localEntries {
		if _, ok := ref.Entries[addr]; !ok {
			report.MissingInReference = append(report.MissingInReference, addr)
		}
	}

	for addr, localAmt := range localEntries {
		refAmt, ok := ref.Entries[addr]
		if !ok {
			continue
		}
		if !localAmt.Equal(refAmt) {
			report.AmountMismatches = append(report.AmountMismatches, AmountMismatch{
				Address:         addr,
				LocalAmount:     localAmt,
				ReferenceAmount: refAmt,
			})
		}
	}

	for addr := range localEntries {
		refProof, ok := ref.Proofs[addr]
		if !ok {
			continue // reference provided no proof for this address; not a mismatch
		}
		a, err := encoding.ParseAddress(addr)
		if err != nil {
			continue
		}
		localProof, _, err := local.ProofFor(a)
		if err != nil {
			continue
		}
		if !proofsEqual(localProof, refProof) {
			report.ProofMismatches = append(report.ProofMismatches, addr)
		}
	}

	sort.Strings(report.MissingInLocal)
	sort.Strings(report.MissingInReference)
	sort.Strings(report.ProofMismatches)
	sort.Slice(report.AmountMismatches, func(i, j int) bool {
		return report.AmountMismatches[i].Address < report.AmountMismatches[j].Address
	})

	return report
}

func proofsEqual(a, b []trie.Hash) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ExitCode maps a Report to the CLI comparator surface's exit code
// partitioning: 0 success; 1 root mismatch against a CLI-provided expected
// root; 2 root mismatch against a reference file; 3 proofs mismatch against
// a reference file.
func ExitCode(r Report, referenceIsFile bool) int {
	switch {
	case r.RootMatch && len(r.ProofMismatches) == 0:
		return 0
	case !r.RootMatch && !referenceIsFile:
		return 1
	case !r.RootMatch && referenceIsFile:
		return 2
	default:
		return 3
	}
}
