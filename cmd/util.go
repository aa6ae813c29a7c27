package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/cerc-io/airdrop-trie-service/pkg/api"
	"github.com/cerc-io/airdrop-trie-service/pkg/audit"
	"github.com/cerc-io/airdrop-trie-service/pkg/blob"
	"github.com/cerc-io/airdrop-trie-service/pkg/committer"
	"github.com/cerc-io/airdrop-trie-service/pkg/config"
	"github.com/cerc-io/airdrop-trie-service/pkg/coordinator"
	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
	"github.com/cerc-io/airdrop-trie-service/pkg/fetcher"
	"github.com/cerc-io/airdrop-trie-service/pkg/prom"
	"github.com/cerc-io/airdrop-trie-service/pkg/registry"
	"github.com/cerc-io/airdrop-trie-service/pkg/store"
	"github.com/cerc-io/airdrop-trie-service/pkg/trie"
)

// deps bundles the wired components a cobra command needs, mirroring the
// teacher's pattern of building the full dependency graph in one place
// before handing control to a Loop/Start.
type deps struct {
	config    config.Config
	db        *sqlx.DB
	trieStore store.TrieStore
	auditLog  audit.Log
	committer committer.Committer
	fetcher   *fetcher.Fetcher
	blobStore *blob.Store
	coord     *coordinator.Coordinator
	server    *api.Server
}

// loadConfig reads a config.Config out of viper on top of config.Default.
// It does not read database.conn_max_lifetime, blockchain.confirmation_wait,
// blockchain.confirmation_count, blockchain.max_retries,
// blockchain.retry_base_delay or blob.threshold_bytes: those always keep
// their config.Default values.
func loadConfig() config.Config {
	cfg := config.Default()
	if v := viper.GetString("server.http_address"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := viper.GetString("server.metrics_address"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if viper.IsSet("server.cors_allow_all") {
		cfg.Server.CORSAllowAll = viper.GetBool("server.cors_allow_all")
	}
	if v := viper.GetString("database.dsn"); v != "" {
		cfg.Database.DSN = v
	}
	if v := viper.GetInt("database.max_open_conns"); v != 0 {
		cfg.Database.MaxOpenConns = v
	}
	if v := viper.GetInt("database.max_idle_conns"); v != 0 {
		cfg.Database.MaxIdleConns = v
	}
	if v := viper.GetString("blockchain.rpc_url"); v != "" {
		cfg.Blockchain.RPCURL = v
	}
	if v := viper.GetString("blockchain.contract_address"); v != "" {
		cfg.Blockchain.ContractAddress = v
	}
	if v := viper.GetString("blockchain.private_key_hex"); v != "" {
		cfg.Blockchain.PrivateKeyHex = v
	}
	if v := viper.GetInt64("blockchain.chain_id"); v != 0 {
		cfg.Blockchain.ChainID = v
	}
	if viper.IsSet("blob.enabled") {
		cfg.Blob.Enabled = viper.GetBool("blob.enabled")
	}
	if v := viper.GetString("blob.root_dir"); v != "" {
		cfg.Blob.RootDir = v
	}
	if v := viper.GetString("trie.ordering"); v != "" {
		cfg.Trie.Ordering = v
	}
	if v := viper.GetString("trie.encoder_mode"); v != "" {
		cfg.Trie.EncoderMode = v
	}
	if v := viper.GetDuration("audit.cleanup_horizon"); v != 0 {
		cfg.Audit.CleanupHorizon = v
	}
	return cfg
}

func orderingDefaultFromConfig(cfg config.Config) (coordinator.OrderingDefault, error) {
	var ordering trie.OrderingMode
	switch cfg.Trie.Ordering {
	case "sort_by_leaf_bytes", "":
		ordering = trie.SortByLeafBytes
	case "sort_by_address_key":
		ordering = trie.SortByAddressKey
	case "preserve_insertion_order":
		ordering = trie.PreserveInsertionOrder
	default:
		return coordinator.OrderingDefault{}, fmt.Errorf("unknown trie.ordering %q", cfg.Trie.Ordering)
	}

	var encMode encoding.Mode
	switch cfg.Trie.EncoderMode {
	case "binary_address", "":
		encMode = encoding.BinaryAddress
	case "hex_prefix_address":
		encMode = encoding.HexPrefixAddress
	default:
		return coordinator.OrderingDefault{}, fmt.Errorf("unknown trie.encoder_mode %q", cfg.Trie.EncoderMode)
	}

	return coordinator.OrderingDefault{Ordering: ordering, EncMode: encMode}, nil
}

// buildDeps constructs the full dependency graph. It connects to Postgres
// unconditionally: this service has no embedded-store mode.
func buildDeps(ctx context.Context) (*deps, error) {
	cfg := loadConfig()

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	prom.RegisterDBCollector("airdrop_trie_db", db)

	var blobStore *blob.Store
	if cfg.Blob.Enabled {
		aferoDS, err := blob.NewAferoDatastore(afero.NewOsFs(), cfg.Blob.RootDir)
		if err != nil {
			return nil, fmt.Errorf("init blob sidecar: %w", err)
		}
		blobStore = blob.New(aferoDS)
	}

	pgStore := store.NewPostgresStore(db)
	if blobStore != nil {
		pgStore.WithBlobSidecar(blobStore, cfg.Blob.ThresholdBytes)
	}
	trieStore := store.TrieStore(pgStore)
	if err := pgStore.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure trie_states schema: %w", err)
	}

	auditLog := audit.NewPostgresLog(db)
	if err := auditLog.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure processing_logs schema: %w", err)
	}

	var c committer.Committer
	if cfg.Blockchain.RPCURL != "" {
		ethCommitter, err := committer.DialEthCommitter(ctx, committer.EthCommitterConfig{
			RPCURL:            cfg.Blockchain.RPCURL,
			ContractAddress:   common.HexToAddress(cfg.Blockchain.ContractAddress),
			PrivateKeyHex:     cfg.Blockchain.PrivateKeyHex,
			ChainID:           cfg.Blockchain.ChainID,
			ConfirmationWait:  cfg.Blockchain.ConfirmationWait,
			ConfirmationCount: cfg.Blockchain.ConfirmationCount,
			MaxRetries:        cfg.Blockchain.MaxRetries,
			RetryBaseDelay:    cfg.Blockchain.RetryBaseDelay,
		})
		if err != nil {
			return nil, fmt.Errorf("dial on-chain committer: %w", err)
		}
		c = ethCommitter
	} else {
		c = committer.NewInMemoryCommitter()
	}

	orderingDefault, err := orderingDefaultFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	coord := coordinator.New(reg, trieStore, c, auditLog, orderingDefault)
	f := fetcher.New(30 * time.Second)
	server := api.New(coord, trieStore, c, auditLog, f, cfg.Server.CORSAllowAll)

	return &deps{
		config:    cfg,
		db:        db,
		trieStore: trieStore,
		auditLog:  auditLog,
		committer: c,
		fetcher:   f,
		blobStore: blobStore,
		coord:     coord,
		server:    server,
	}, nil
}
