package cmd

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cerc-io/airdrop-trie-service/pkg/compare"
	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
	"github.com/cerc-io/airdrop-trie-service/pkg/trie"
)

var compareCmd = &cobra.Command{
	Use:   "compare [round_id]",
	Short: "Compare a persisted round's trie against an expected root or a reference file",
	Long: `Usage

./airdrop-trie-service compare 1 --expect-root=0x... --config={path to toml config file}
./airdrop-trie-service compare 1 --reference-file=./reference.json --config={path to toml config file}

Exit codes: 0 success; 1 root mismatch against --expect-root; 2 root
mismatch against --reference-file; 3 proofs mismatch against
--reference-file.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		subCommand = cmd.CalledAs()
		logWithCommand = *logrus.WithField("SubCommand", subCommand)
		os.Exit(runCompare(args[0]))
	},
}

var (
	compareExpectRoot string
	compareRefFile    string
)

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringVar(&compareExpectRoot, "expect-root", "", "expected 0x-prefixed root hash")
	compareCmd.Flags().StringVar(&compareRefFile, "reference-file", "", "path to a reference JSON file ({root, eligibility, proofs})")
}

// referenceFile is the on-disk shape accepted by --reference-file. It differs
// from the upload-compare-trie HTTP route's body, which carries its entries
// as "address:amount" strings and has no proofs.
type referenceFile struct {
	Root        string              `json:"root"`
	Eligibility map[string]string   `json:"eligibility"`
	Proofs      map[string][]string `json:"proofs,omitempty"`
}

func parseRootHex(s string) (trie.Hash, error) {
	var h trie.Hash
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil || len(b) != 32 {
		return h, fmt.Errorf("invalid root %q", s)
	}
	copy(h[:], b)
	return h, nil
}

func runCompare(roundIDArg string) int {
	roundID64, err := strconv.ParseUint(roundIDArg, 10, 32)
	if err != nil {
		logWithCommand.Fatal("invalid round id: ", err)
	}
	roundID := uint32(roundID64)

	if compareExpectRoot == "" && compareRefFile == "" {
		logWithCommand.Fatal("one of --expect-root or --reference-file is required")
	}

	ctx := context.Background()
	d, err := buildDeps(ctx)
	if err != nil {
		logWithCommand.Fatal("unable to wire dependencies: ", err)
	}
	defer d.db.Close()

	blob, err := d.trieStore.LoadBlob(ctx, roundID)
	if err != nil {
		logWithCommand.Fatal("unable to load round trie: ", err)
	}
	local, err := trie.Unmarshal(blob)
	if err != nil {
		logWithCommand.Fatal("unable to decode stored trie: ", err)
	}

	if compareRefFile == "" {
		return compareAgainstExpectedRoot(local.Root())
	}
	return compareAgainstFile(local)
}

func compareAgainstExpectedRoot(localRoot trie.Hash) int {
	expected, err := parseRootHex(compareExpectRoot)
	if err != nil {
		logWithCommand.Fatal(err)
	}
	if localRoot == expected {
		fmt.Println("root match")
		return 0
	}
	fmt.Printf("root mismatch: local=0x%x expected=0x%x\n", localRoot, expected)
	return 1
}

func compareAgainstFile(local *trie.Trie) int {
	raw, err := os.ReadFile(compareRefFile)
	if err != nil {
		logWithCommand.Fatal("unable to read reference file: ", err)
	}
	var rf referenceFile
	if err := json.Unmarshal(raw, &rf); err != nil {
		logWithCommand.Fatal("malformed reference file: ", err)
	}

	root, err := parseRootHex(rf.Root)
	if err != nil {
		logWithCommand.Fatal(err)
	}

	ref := compare.Reference{
		Root:    root,
		Entries: make(map[string]encoding.Amount, len(rf.Eligibility)),
		EncMode: local.EncoderMode(),
	}
	for addrStr, amountStr := range rf.Eligibility {
		amount, err := encoding.ParseAmount(amountStr)
		if err != nil {
			logWithCommand.Fatalf("invalid amount for %q: %v", addrStr, err)
		}
		ref.Entries[strings.ToLower(addrStr)] = amount
	}
	if len(rf.Proofs) > 0 {
		ref.Proofs = make(map[string][]trie.Hash, len(rf.Proofs))
		for addrStr, hexes := range rf.Proofs {
			proof := make([]trie.Hash, 0, len(hexes))
			for _, hx := range hexes {
				h, err := parseRootHex(hx)
				if err != nil {
					logWithCommand.Fatalf("invalid proof element for %q: %v", addrStr, err)
				}
				proof = append(proof, h)
			}
			ref.Proofs[strings.ToLower(addrStr)] = proof
		}
	}

	report := compare.Compare(local, ref)
	printReport(report)
	return compare.ExitCode(report, true)
}

func printReport(r compare.Report) {
	fmt.Printf("root_match=%v\n", r.RootMatch)
	if len(r.MissingInLocal) > 0 {
		fmt.Printf("missing_in_local=%v\n", r.MissingInLocal)
	}
	if len(r.MissingInReference) > 0 {
		fmt.Printf("missing_in_reference=%v\n", r.MissingInReference)
	}
	for _, m := range r.AmountMismatches {
		fmt.Printf("amount_mismatch address=%s local=%s reference=%s\n", m.Address, m.LocalAmount, m.ReferenceAmount)
	}
	if len(r.ProofMismatches) > 0 {
		fmt.Printf("proof_mismatches=%v\n", r.ProofMismatches)
	}
}
