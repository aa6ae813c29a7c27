package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cerc-io/airdrop-trie-service/pkg/audit"
)

var roundsCmd = &cobra.Command{
	Use:   "rounds",
	Short: "List persisted rounds and their lifecycle state",
	Long: `Usage

./airdrop-trie-service rounds --config={path to toml config file}`,
	Run: func(cmd *cobra.Command, args []string) {
		subCommand = cmd.CalledAs()
		logWithCommand = *logrus.WithField("SubCommand", subCommand)
		listRounds()
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit [round_id]",
	Short: "Print the processing log for a round",
	Long: `Usage

./airdrop-trie-service audit 1 --config={path to toml config file}`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		subCommand = cmd.CalledAs()
		logWithCommand = *logrus.WithField("SubCommand", subCommand)
		printAudit(args[0])
	},
}

var roundsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete processing log records older than the configured retention horizon",
	Long: `Usage

./airdrop-trie-service rounds cleanup --config={path to toml config file}`,
	Run: func(cmd *cobra.Command, args []string) {
		subCommand = cmd.CalledAs()
		logWithCommand = *logrus.WithField("SubCommand", subCommand)
		cleanupAudit()
	},
}

func init() {
	rootCmd.AddCommand(roundsCmd)
	rootCmd.AddCommand(auditCmd)
	roundsCmd.AddCommand(roundsCleanupCmd)
}

func listRounds() {
	ctx := context.Background()
	d, err := buildDeps(ctx)
	if err != nil {
		logWithCommand.Fatal("unable to wire dependencies: ", err)
	}
	defer d.db.Close()

	rounds, err := d.trieStore.ListRounds(ctx)
	if err != nil {
		logWithCommand.Fatal("unable to list rounds: ", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"round", "root", "entries", "state", "updated_at"})
	for _, r := range rounds {
		table.Append([]string{
			strconv.FormatUint(uint64(r.RoundID), 10),
			fmt.Sprintf("0x%x", r.RootHash),
			strconv.FormatUint(uint64(r.EntryCount), 10),
			string(r.State),
			r.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	table.Render()
}

func printAudit(roundIDArg string) {
	roundID, err := strconv.ParseUint(roundIDArg, 10, 32)
	if err != nil {
		logWithCommand.Fatal("invalid round id: ", err)
	}

	ctx := context.Background()
	d, err := buildDeps(ctx)
	if err != nil {
		logWithCommand.Fatal("unable to wire dependencies: ", err)
	}
	defer d.db.Close()

	records, err := d.auditLog.ForRound(ctx, uint32(roundID))
	if err != nil {
		logWithCommand.Fatal("unable to load audit records: ", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"timestamp", "operation", "status", "message", "tx_hash"})
	for _, rec := range records {
		table.Append([]string{
			rec.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			string(rec.Operation),
			string(rec.Status),
			rec.Message,
			rec.TransactionHash,
		})
	}
	table.Render()
}

func cleanupAudit() {
	ctx := context.Background()
	d, err := buildDeps(ctx)
	if err != nil {
		logWithCommand.Fatal("unable to wire dependencies: ", err)
	}
	defer d.db.Close()

	horizon := d.config.Audit.CleanupHorizon
	olderThan := time.Now().UTC().Add(-horizon)

	removed, err := d.auditLog.Cleanup(ctx, olderThan)
	if err != nil {
		rec := audit.Record{Operation: audit.OpCleanup, Status: audit.StatusFailed, Message: err.Error(), Timestamp: time.Now().UTC()}
		_ = d.auditLog.Append(ctx, rec)
		logWithCommand.Fatal("unable to clean up processing log: ", err)
	}

	rec := audit.Record{
		Operation: audit.OpCleanup,
		Status:    audit.StatusCompleted,
		Message:   fmt.Sprintf("removed=%d horizon=%s", removed, horizon),
		Timestamp: time.Now().UTC(),
	}
	if err := d.auditLog.Append(ctx, rec); err != nil {
		logWithCommand.WithError(err).Warn("failed to append cleanup audit record")
	}

	logWithCommand.Infof("removed %d processing log records older than %s", removed, olderThan.Format("2006-01-02T15:04:05Z07:00"))
}
