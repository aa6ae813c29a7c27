package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	cid "github.com/ipfs/go-cid"
	"github.com/jmoiron/sqlx"

	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
	"github.com/cerc-io/airdrop-trie-service/pkg/blob"
	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
	"github.com/cerc-io/airdrop-trie-service/pkg/trie"
)

// PostgresStore persists rounds via sqlx: hand-written queries, db
// struct tags, no ORM.
type PostgresStore struct {
	db *sqlx.DB

	blobSidecar   *blob.Store
	blobThreshold int // bytes; a blob larger than this offloads to blobSidecar
}

// NewPostgresStore wraps an existing *sqlx.DB. The caller owns the
// connection's lifecycle.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithBlobSidecar enables offloading trie blobs larger than thresholdBytes
// to sidecar instead of the inline trie_blob column. Returns the receiver
// so it composes with NewPostgresStore at a call site.
func (p *PostgresStore) WithBlobSidecar(sidecar *blob.Store, thresholdBytes int) *PostgresStore {
	p.blobSidecar = sidecar
	p.blobThreshold = thresholdBytes
	return p
}

const createTrieStateSchema = `
CREATE TABLE IF NOT EXISTS trie_states (
	round_id    INTEGER PRIMARY KEY,
	root_hash   TEXT NOT NULL,
	entry_count INTEGER NOT NULL,
	trie_blob   BYTEA,
	blob_cid    TEXT,
	state       TEXT NOT NULL DEFAULT 'built',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS eligibility_records (
	round_id INTEGER NOT NULL REFERENCES trie_states (round_id) ON DELETE CASCADE,
	address  TEXT NOT NULL,
	amount   TEXT NOT NULL,
	PRIMARY KEY (round_id, address)
);
CREATE TABLE IF NOT EXISTS blockchain_transactions (
	id               UUID PRIMARY KEY,
	round_id         INTEGER NOT NULL,
	transaction_hash TEXT NOT NULL UNIQUE,
	operation_type   TEXT NOT NULL,
	block_number     BIGINT,
	gas_used         BIGINT,
	status           TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS blockchain_transactions_round_id_idx ON blockchain_transactions (round_id);
`

// EnsureSchema creates trie_states and eligibility_records if absent.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, createTrieStateSchema)
	return err
}

type trieStateRow struct {
	RoundID    uint32    `db:"round_id"`
	RootHash   string    `db:"root_hash"`
	EntryCount uint32    `db:"entry_count"`
	State      string    `db:"state"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (p *PostgresStore) UpsertRound(ctx context.Context, roundID uint32, root trie.Hash, trieBlob []byte, entries []encoding.Entry) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindStorageUnavailable, err, "begin upsert transaction")
	}
	defer tx.Rollback()

	rootStr := hashToHex(root)

	// Blobs over the configured threshold are offloaded to the sidecar and
	// referenced by CID; trie_blob stays NULL for those rows.
	var inlineBlob []byte
	var blobCID *string
	if p.blobSidecar != nil && p.blobThreshold > 0 && len(trieBlob) > p.blobThreshold {
		c, err := p.blobSidecar.Put(ctx, trieBlob)
		if err != nil {
			return apperr.Wrap(apperr.KindStorageUnavailable, err, "persist trie blob to sidecar")
		}
		s := c.String()
		blobCID = &s
	} else {
		inlineBlob = trieBlob
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO trie_states (round_id, root_hash, entry_count, trie_blob, blob_cid, state, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'built', now())
		ON CONFLICT (round_id) DO UPDATE SET
			root_hash = EXCLUDED.root_hash,
			entry_count = EXCLUDED.entry_count,
			trie_blob = EXCLUDED.trie_blob,
			blob_cid = EXCLUDED.blob_cid,
			state = 'built',
			updated_at = now()`,
		roundID, rootStr, uint32(len(entries)), inlineBlob, blobCID); err != nil {
		return apperr.Wrap(apperr.KindStorageUnavailable, err, "upsert trie_states row")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM eligibility_records WHERE round_id = $1`, roundID); err != nil {
		return apperr.Wrap(apperr.KindStorageUnavailable, err, "clear stale eligibility_records")
	}

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO eligibility_records (round_id, address, amount) VALUES ($1, $2, $3)`,
			roundID, encoding.NormalizeLower(e.Address), e.Amount.String()); err != nil {
			return apperr.Wrap(apperr.KindStorageUnavailable, err, "insert eligibility_records row")
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindStorageUnavailable, err, "commit upsert transaction")
	}
	return nil
}

func (p *PostgresStore) GetRound(ctx context.Context, roundID uint32) (Round, error) {
	var row trieStateRow
	err := p.db.GetContext(ctx, &row, `
		SELECT round_id, root_hash, entry_count, state, created_at, updated_at
		FROM trie_states WHERE round_id = $1`, roundID)
	if err == sql.ErrNoRows {
		return Round{}, apperr.Wrap(apperr.KindNotFound, apperr.ErrNotFound, "round not found")
	}
	if err != nil {
		return Round{}, apperr.Wrap(apperr.KindStorageUnavailable, err, "query trie_states")
	}
	root, err := hexToHash(row.RootHash)
	if err != nil {
		return Round{}, apperr.Wrap(apperr.KindStorageCorrupt, err, "decode stored root_hash")
	}
	return Round{
		RoundID:    row.RoundID,
		RootHash:   root,
		EntryCount: row.EntryCount,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
		State:      State(row.State),
	}, nil
}

func (p *PostgresStore) LoadBlob(ctx context.Context, roundID uint32) ([]byte, error) {
	var row struct {
		TrieBlob []byte  `db:"trie_blob"`
		BlobCID  *string `db:"blob_cid"`
	}
	err := p.db.GetContext(ctx, &row, `SELECT trie_blob, blob_cid FROM trie_states WHERE round_id = $1`, roundID)
	if err == sql.ErrNoRows {
		return nil, apperr.Wrap(apperr.KindNotFound, apperr.ErrNotFound, "round not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageUnavailable, err, "query trie_blob")
	}

	if row.BlobCID == nil {
		return row.TrieBlob, nil
	}

	if p.blobSidecar == nil {
		return nil, apperr.New(apperr.KindStorageCorrupt, "round references a blob sidecar CID but no sidecar is configured")
	}
	c, err := cid.Decode(*row.BlobCID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageCorrupt, err, "decode stored blob_cid")
	}
	data, err := p.blobSidecar.Get(ctx, c)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageUnavailable, err, "fetch trie blob from sidecar")
	}
	return data, nil
}

func (p *PostgresStore) DeleteRound(ctx context.Context, roundID uint32) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM trie_states WHERE round_id = $1`, roundID)
	if err != nil {
		return apperr.Wrap(apperr.KindStorageUnavailable, err, "delete trie_states row")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.KindStorageUnavailable, err, "check rows affected")
	}
	if n == 0 {
		return apperr.Wrap(apperr.KindNotFound, apperr.ErrNotFound, "round not found")
	}
	return nil
}

func (p *PostgresStore) ListRounds(ctx context.Context) ([]Round, error) {
	var rows []trieStateRow
	if err := p.db.SelectContext(ctx, &rows, `
		SELECT round_id, root_hash, entry_count, state, created_at, updated_at
		FROM trie_states ORDER BY round_id ASC`); err != nil {
		return nil, apperr.Wrap(apperr.KindStorageUnavailable, err, "list trie_states")
	}
	out := make([]Round, 0, len(rows))
	for _, row := range rows {
		root, err := hexToHash(row.RootHash)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStorageCorrupt, err, "decode stored root_hash")
		}
		out = append(out, Round{
			RoundID:    row.RoundID,
			RootHash:   root,
			EntryCount: row.EntryCount,
			CreatedAt:  row.CreatedAt,
			UpdatedAt:  row.UpdatedAt,
			State:      State(row.State),
		})
	}
	return out, nil
}

func (p *PostgresStore) GetEntry(ctx context.Context, roundID uint32, addr encoding.Address) (encoding.Amount, error) {
	var decimal string
	err := p.db.GetContext(ctx, &decimal, `
		SELECT amount FROM eligibility_records WHERE round_id = $1 AND address = $2`,
		roundID, encoding.NormalizeLower(addr))
	if err == sql.ErrNoRows {
		return encoding.Amount{}, apperr.New(apperr.KindNotFound, "address not eligible in round")
	}
	if err != nil {
		return encoding.Amount{}, apperr.Wrap(apperr.KindStorageUnavailable, err, "query eligibility_records")
	}
	amt, err := encoding.ParseAmount(decimal)
	if err != nil {
		return encoding.Amount{}, apperr.Wrap(apperr.KindStorageCorrupt, err, "decode stored amount")
	}
	return amt, nil
}

func (p *PostgresStore) SetState(ctx context.Context, roundID uint32, state State) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE trie_states SET state = $1, updated_at = now() WHERE round_id = $2`,
		string(state), roundID)
	if err != nil {
		return apperr.Wrap(apperr.KindStorageUnavailable, err, "update round state")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.KindStorageUnavailable, err, "check rows affected")
	}
	if n == 0 {
		return apperr.Wrap(apperr.KindNotFound, apperr.ErrNotFound, "round not found")
	}
	return nil
}

type blockchainTransactionRow struct {
	ID              string    `db:"id"`
	RoundID         uint32    `db:"round_id"`
	TransactionHash string    `db:"transaction_hash"`
	OperationType   string    `db:"operation_type"`
	BlockNumber     *int64    `db:"block_number"`
	GasUsed         *int64    `db:"gas_used"`
	Status          string    `db:"status"`
	CreatedAt       time.Time `db:"created_at"`
}

// RecordTransaction upserts on transaction_hash: a retried commit that
// resubmits the same hash updates the existing row instead of duplicating
// it.
func (p *PostgresStore) RecordTransaction(ctx context.Context, txn Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	var blockNumber, gasUsed *int64
	if txn.BlockNumber != 0 {
		v := int64(txn.BlockNumber)
		blockNumber = &v
	}
	if txn.GasUsed != 0 {
		v := int64(txn.GasUsed)
		gasUsed = &v
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO blockchain_transactions (id, round_id, transaction_hash, operation_type, block_number, gas_used, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (transaction_hash) DO UPDATE SET
			block_number = EXCLUDED.block_number,
			gas_used = EXCLUDED.gas_used,
			status = EXCLUDED.status`,
		txn.ID, txn.RoundID, txn.TransactionHash, txn.OperationType, blockNumber, gasUsed, string(txn.Status))
	if err != nil {
		return apperr.Wrap(apperr.KindStorageUnavailable, err, "record blockchain transaction")
	}
	return nil
}

func (p *PostgresStore) TransactionsForRound(ctx context.Context, roundID uint32) ([]Transaction, error) {
	var rows []blockchainTransactionRow
	if err := p.db.SelectContext(ctx, &rows, `
		SELECT id, round_id, transaction_hash, operation_type, block_number, gas_used, status, created_at
		FROM blockchain_transactions WHERE round_id = $1 ORDER BY created_at DESC`, roundID); err != nil {
		return nil, apperr.Wrap(apperr.KindStorageUnavailable, err, "list blockchain_transactions")
	}
	out := make([]Transaction, len(rows))
	for i, r := range rows {
		var blockNumber, gasUsed uint64
		if r.BlockNumber != nil {
			blockNumber = uint64(*r.BlockNumber)
		}
		if r.GasUsed != nil {
			gasUsed = uint64(*r.GasUsed)
		}
		out[i] = Transaction{
			ID:              r.ID,
			RoundID:         r.RoundID,
			TransactionHash: r.TransactionHash,
			OperationType:   r.OperationType,
			BlockNumber:     blockNumber,
			GasUsed:         gasUsed,
			Status:          TxStatus(r.Status),
			CreatedAt:       r.CreatedAt,
		}
	}
	return out, nil
}
