// Package coordinator implements RoundCoordinator: the orchestration
// layer that wires RoundRegistry, TrieStore, the trie builder/verifier,
// the on-chain Committer, and the audit log into the
// ingest -> build -> persist -> commit -> verify pipeline the API
// surface calls into.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
	"github.com/cerc-io/airdrop-trie-service/pkg/audit"
	"github.com/cerc-io/airdrop-trie-service/pkg/committer"
	"github.com/cerc-io/airdrop-trie-service/pkg/compare"
	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
	"github.com/cerc-io/airdrop-trie-service/pkg/prom"
	"github.com/cerc-io/airdrop-trie-service/pkg/registry"
	"github.com/cerc-io/airdrop-trie-service/pkg/store"
	"github.com/cerc-io/airdrop-trie-service/pkg/trie"
)

// Coordinator is the RoundCoordinator.
type Coordinator struct {
	registry  *registry.Registry
	trieStore store.TrieStore
	committer committer.Committer
	auditLog  audit.Log

	defaultOrdering OrderingDefault
}

// OrderingDefault bundles the ordering/encoder mode a round uses when its
// ingest request does not name one explicitly.
type OrderingDefault struct {
	Ordering trie.OrderingMode
	EncMode  encoding.Mode
}

// New wires a Coordinator from its dependencies.
func New(reg *registry.Registry, trieStore store.TrieStore, c committer.Committer, auditLog audit.Log, def OrderingDefault) *Coordinator {
	return &Coordinator{registry: reg, trieStore: trieStore, committer: c, auditLog: auditLog, defaultOrdering: def}
}

// IngestResult is returned by Ingest and Rebuild.
type IngestResult struct {
	RoundID    uint32
	Root       trie.Hash
	EntryCount int
}

// Ingest acquires round_id's write token, builds a trie from entries in
// the coordinator's default mode, persists it, and releases the token.
func (c *Coordinator) Ingest(ctx context.Context, roundID uint32, entries []encoding.Entry) (IngestResult, error) {
	return c.buildAndPersist(ctx, roundID, entries, audit.OpIngest)
}

// Rebuild re-runs the build from the round's currently stored entries,
// used after an ordering/encoder mode change or a recovery.
func (c *Coordinator) Rebuild(ctx context.Context, roundID uint32) (IngestResult, error) {
	blob, err := c.trieStore.LoadBlob(ctx, roundID)
	if err != nil {
		return IngestResult{}, c.fail(ctx, roundID, audit.OpBuild, err)
	}
	existing, err := trie.Unmarshal(blob)
	if err != nil {
		return IngestResult{}, c.fail(ctx, roundID, audit.OpBuild, apperr.Wrap(apperr.KindStorageCorrupt, err, "unmarshal stored trie"))
	}
	return c.buildAndPersist(ctx, roundID, existing.Entries(), audit.OpBuild)
}

func (c *Coordinator) buildAndPersist(ctx context.Context, roundID uint32, entries []encoding.Entry, op audit.Operation) (IngestResult, error) {
	c.appendAudit(ctx, roundID, op, audit.StatusStarted, "")

	release, err := c.registry.AcquireWrite(ctx, roundID)
	if err != nil {
		return IngestResult{}, c.fail(ctx, roundID, op, err)
	}
	defer release()

	buildStart := time.Now()
	t, err := trie.Build(c.defaultOrdering.Ordering, c.defaultOrdering.EncMode, entries)
	prom.ObserveBuild(time.Since(buildStart).Seconds())
	if err != nil {
		return IngestResult{}, c.fail(ctx, roundID, op, err)
	}

	blob, err := t.Marshal()
	if err != nil {
		return IngestResult{}, c.fail(ctx, roundID, op, apperr.Wrap(apperr.KindStorageCorrupt, err, "marshal trie"))
	}

	select {
	case <-ctx.Done():
		// A cancelled ingest must not swap the stored trie.
		return IngestResult{}, c.fail(ctx, roundID, op, ctx.Err())
	default:
	}

	if err := c.trieStore.UpsertRound(ctx, roundID, t.Root(), blob, t.Entries()); err != nil {
		return IngestResult{}, c.fail(ctx, roundID, op, apperr.Wrap(apperr.KindStorageUnavailable, err, "persist round"))
	}

	prom.IncRoundsIngested()
	c.appendAudit(ctx, roundID, op, audit.StatusCompleted, fmt.Sprintf("entries=%d root=0x%x", t.Len(), t.Root()))
	return IngestResult{RoundID: roundID, Root: t.Root(), EntryCount: t.Len()}, nil
}

// VerifyStatus classifies the outcome of Verify.
type VerifyStatus string

const (
	Eligible       VerifyStatus = "eligible"
	NotEligible    VerifyStatus = "not_eligible"
	AmountMismatch VerifyStatus = "amount_mismatch"
	NotFoundStatus VerifyStatus = "not_found"
)

// VerifyResult is returned by Verify.
type VerifyResult struct {
	Status VerifyStatus
}

// Verify checks address's eligibility for amount against round_id's
// stored root. If proof is nil, the proof is recomputed from the stored
// trie; callers supplying their own proof skip that recomputation.
func (c *Coordinator) Verify(ctx context.Context, roundID uint32, addr encoding.Address, amount encoding.Amount, proof []trie.Hash) (VerifyResult, error) {
	round, err := c.trieStore.GetRound(ctx, roundID)
	if err != nil {
		return VerifyResult{}, err
	}

	verifyStart := time.Now()
	defer func() { prom.ObserveVerify(time.Since(verifyStart).Seconds()) }()

	if proof == nil {
		blob, err := c.trieStore.LoadBlob(ctx, roundID)
		if err != nil {
			return VerifyResult{}, err
		}
		t, err := trie.Unmarshal(blob)
		if err != nil {
			return VerifyResult{}, apperr.Wrap(apperr.KindStorageCorrupt, err, "unmarshal stored trie")
		}
		p, storedAmount, err := t.ProofFor(addr)
		if apperr.Is(err, apperr.KindNotFound) {
			return VerifyResult{Status: NotFoundStatus}, nil
		}
		if err != nil {
			return VerifyResult{}, err
		}
		if !storedAmount.Equal(amount) {
			return VerifyResult{Status: AmountMismatch}, nil
		}
		proof = p
	}

	encMode, err := c.encoderModeFor(ctx, roundID)
	if err != nil {
		return VerifyResult{}, err
	}

	ok, err := trie.Verify(encMode, addr, amount, proof, round.RootHash)
	if err != nil {
		return VerifyResult{}, err
	}
	if !ok {
		return VerifyResult{Status: NotEligible}, nil
	}
	return VerifyResult{Status: Eligible}, nil
}

// ProofFor returns the canonical proof and matched amount for addr in
// round_id.
func (c *Coordinator) ProofFor(ctx context.Context, roundID uint32, addr encoding.Address) ([]trie.Hash, encoding.Amount, error) {
	blob, err := c.trieStore.LoadBlob(ctx, roundID)
	if err != nil {
		return nil, encoding.Amount{}, err
	}
	t, err := trie.Unmarshal(blob)
	if err != nil {
		return nil, encoding.Amount{}, apperr.Wrap(apperr.KindStorageCorrupt, err, "unmarshal stored trie")
	}
	return t.ProofFor(addr)
}

func (c *Coordinator) encoderModeFor(ctx context.Context, roundID uint32) (encoding.Mode, error) {
	blob, err := c.trieStore.LoadBlob(ctx, roundID)
	if err != nil {
		return 0, err
	}
	t, err := trie.Unmarshal(blob)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStorageCorrupt, err, "unmarshal stored trie")
	}
	return t.EncoderMode(), nil
}

// Commit delegates to the wired Committer.
func (c *Coordinator) Commit(ctx context.Context, roundID uint32) (committer.Result, error) {
	c.appendAudit(ctx, roundID, audit.OpCommit, audit.StatusStarted, "")

	if err := c.trieStore.SetState(ctx, roundID, store.StateCommitting); err != nil {
		return committer.Result{}, c.fail(ctx, roundID, audit.OpCommit, err)
	}

	round, err := c.trieStore.GetRound(ctx, roundID)
	if err != nil {
		return committer.Result{}, c.fail(ctx, roundID, audit.OpCommit, err)
	}
	trieData, err := c.trieStore.LoadBlob(ctx, roundID)
	if err != nil {
		return committer.Result{}, c.fail(ctx, roundID, audit.OpCommit, err)
	}

	commitStart := time.Now()
	res, err := c.committer.Commit(ctx, roundID, round.RootHash, trieData)
	prom.ObserveCommit(time.Since(commitStart).Seconds())

	if res.TransactionHash != "" {
		txErr := c.trieStore.RecordTransaction(ctx, store.Transaction{
			RoundID:         roundID,
			TransactionHash: res.TransactionHash,
			OperationType:   "update_trie_root",
			BlockNumber:     res.BlockNumber,
			GasUsed:         res.GasUsed,
			Status:          store.TxStatus(res.Status),
		})
		if txErr != nil {
			logrus.WithError(txErr).WithField("round_id", roundID).Warn("failed to record blockchain transaction")
		}
	}

	if err != nil {
		if apperr.KindOf(err) != apperr.KindRoundBusy {
			_ = c.trieStore.SetState(ctx, roundID, store.StateFailed)
			prom.IncRoundsFailed()
		}
		return committer.Result{}, c.fail(ctx, roundID, audit.OpCommit, err)
	}

	if err := c.trieStore.SetState(ctx, roundID, store.StateCommitted); err != nil {
		return committer.Result{}, c.fail(ctx, roundID, audit.OpCommit, err)
	}

	prom.IncRoundsCommitted()
	if res.Skipped {
		c.appendAudit(ctx, roundID, audit.OpCommit, audit.StatusSkipped, "on-chain root already matches")
	} else {
		rec := audit.Record{RoundID: roundID, Operation: audit.OpCommit, Status: audit.StatusCompleted, TransactionHash: res.TransactionHash, Timestamp: time.Now().UTC()}
		_ = c.auditLog.Append(ctx, rec)
	}
	return res, nil
}

// Compare delegates to the Comparator.
func (c *Coordinator) Compare(ctx context.Context, roundID uint32, ref compare.Reference) (compare.Report, error) {
	c.appendAudit(ctx, roundID, audit.OpCompare, audit.StatusStarted, "")

	blob, err := c.trieStore.LoadBlob(ctx, roundID)
	if err != nil {
		return compare.Report{}, c.fail(ctx, roundID, audit.OpCompare, err)
	}
	local, err := trie.Unmarshal(blob)
	if err != nil {
		return compare.Report{}, c.fail(ctx, roundID, audit.OpCompare, apperr.Wrap(apperr.KindStorageCorrupt, err, "unmarshal stored trie"))
	}

	report := compare.Compare(local, ref)
	c.appendAudit(ctx, roundID, audit.OpCompare, audit.StatusCompleted, fmt.Sprintf("root_match=%v", report.RootMatch))
	return report, nil
}

// Delete cascade-deletes round_id. Forbidden while the round is
// Committing.
func (c *Coordinator) Delete(ctx context.Context, roundID uint32) error {
	c.appendAudit(ctx, roundID, audit.OpDelete, audit.StatusStarted, "")

	release, err := c.registry.AcquireWrite(ctx, roundID)
	if err != nil {
		return c.fail(ctx, roundID, audit.OpDelete, err)
	}
	defer release()

	round, err := c.trieStore.GetRound(ctx, roundID)
	if err != nil {
		return c.fail(ctx, roundID, audit.OpDelete, err)
	}
	if round.State == store.StateCommitting {
		return c.fail(ctx, roundID, audit.OpDelete, apperr.New(apperr.KindRoundBusy, "round is committing"))
	}

	if err := c.trieStore.DeleteRound(ctx, roundID); err != nil {
		return c.fail(ctx, roundID, audit.OpDelete, err)
	}
	c.appendAudit(ctx, roundID, audit.OpDelete, audit.StatusCompleted, "")
	return nil
}

func (c *Coordinator) appendAudit(ctx context.Context, roundID uint32, op audit.Operation, status audit.Status, msg string) {
	rec := audit.Record{RoundID: roundID, Operation: op, Status: status, Message: msg, Timestamp: time.Now().UTC()}
	if err := c.auditLog.Append(ctx, rec); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"round_id": roundID, "operation": op}).Warn("failed to append audit record")
	}
}

func (c *Coordinator) fail(ctx context.Context, roundID uint32, op audit.Operation, err error) error {
	c.appendAudit(ctx, roundID, op, audit.StatusFailed, err.Error())
	return err
}
