package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build a round's trie from a JSON eligibility file and persist it",
	Long: `Usage

./airdrop-trie-service ingest --round=1 --file=./round-1.json --config={path to toml config file}

The file is a JSON object mapping checksummed/lowercase addresses to decimal
amount strings: the map the upload-json-eligibility HTTP route expects under
its "eligibility" key, given here as the whole file.`,
	Run: func(cmd *cobra.Command, args []string) {
		subCommand = cmd.CalledAs()
		logWithCommand = *logrus.WithField("SubCommand", subCommand)
		ingest()
	},
}

var (
	ingestRoundID uint32
	ingestFile    string
)

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().Uint32Var(&ingestRoundID, "round", 0, "round id to ingest into")
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "path to a JSON eligibility file")
	ingestCmd.MarkFlagRequired("round")
	ingestCmd.MarkFlagRequired("file")
}

func ingest() {
	logWithCommand.Infof("ingesting round %d from %s", ingestRoundID, ingestFile)

	raw, err := os.ReadFile(ingestFile)
	if err != nil {
		logWithCommand.Fatal("unable to read eligibility file: ", err)
	}

	var byAddress map[string]string
	if err := json.Unmarshal(raw, &byAddress); err != nil {
		logWithCommand.Fatal("malformed eligibility file: ", err)
	}

	entries := make([]encoding.Entry, 0, len(byAddress))
	for addrStr, amountStr := range byAddress {
		addr, err := encoding.ParseAddress(addrStr)
		if err != nil {
			logWithCommand.Fatalf("invalid address %q: %v", addrStr, err)
		}
		amount, err := encoding.ParseAmount(amountStr)
		if err != nil {
			logWithCommand.Fatalf("invalid amount for %q: %v", addrStr, err)
		}
		entries = append(entries, encoding.Entry{Address: addr, Amount: amount})
	}

	ctx := context.Background()
	d, err := buildDeps(ctx)
	if err != nil {
		logWithCommand.Fatal("unable to wire dependencies: ", err)
	}
	defer d.db.Close()

	result, err := d.coord.Ingest(ctx, ingestRoundID, entries)
	if err != nil {
		logWithCommand.Fatal("ingest failed: ", err)
	}

	fmt.Printf("round %d: root=0x%x entries=%d\n", result.RoundID, result.Root, result.EntryCount)
}
