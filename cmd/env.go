package cmd

import "github.com/spf13/viper"

const (
	SERVER_HTTP_ADDRESS    = "SERVER_HTTP_ADDRESS"
	SERVER_METRICS_ADDRESS = "SERVER_METRICS_ADDRESS"
	SERVER_CORS_ALLOW_ALL  = "SERVER_CORS_ALLOW_ALL"

	DATABASE_DSN               = "DATABASE_DSN"
	DATABASE_MAX_OPEN_CONNS    = "DATABASE_MAX_OPEN_CONNS"
	DATABASE_MAX_IDLE_CONNS    = "DATABASE_MAX_IDLE_CONNS"
	DATABASE_CONN_MAX_LIFETIME = "DATABASE_CONN_MAX_LIFETIME"

	BLOCKCHAIN_RPC_URL            = "BLOCKCHAIN_RPC_URL"
	BLOCKCHAIN_CONTRACT_ADDRESS   = "BLOCKCHAIN_CONTRACT_ADDRESS"
	BLOCKCHAIN_PRIVATE_KEY_HEX    = "BLOCKCHAIN_PRIVATE_KEY_HEX"
	BLOCKCHAIN_CHAIN_ID           = "BLOCKCHAIN_CHAIN_ID"
	BLOCKCHAIN_CONFIRMATION_WAIT  = "BLOCKCHAIN_CONFIRMATION_WAIT"
	BLOCKCHAIN_CONFIRMATION_COUNT = "BLOCKCHAIN_CONFIRMATION_COUNT"
	BLOCKCHAIN_MAX_RETRIES        = "BLOCKCHAIN_MAX_RETRIES"
	BLOCKCHAIN_RETRY_BASE_DELAY   = "BLOCKCHAIN_RETRY_BASE_DELAY"

	BLOB_ENABLED  = "BLOB_ENABLED"
	BLOB_ROOT_DIR = "BLOB_ROOT_DIR"

	TRIE_ORDERING     = "TRIE_ORDERING"
	TRIE_ENCODER_MODE = "TRIE_ENCODER_MODE"

	AUDIT_CLEANUP_HORIZON = "AUDIT_CLEANUP_HORIZON"
)

// Bind env vars for server, database, blockchain, and trie configuration.
func init() {
	viper.BindEnv("server.http_address", SERVER_HTTP_ADDRESS)
	viper.BindEnv("server.metrics_address", SERVER_METRICS_ADDRESS)
	viper.BindEnv("server.cors_allow_all", SERVER_CORS_ALLOW_ALL)

	viper.BindEnv("database.dsn", DATABASE_DSN)
	viper.BindEnv("database.max_open_conns", DATABASE_MAX_OPEN_CONNS)
	viper.BindEnv("database.max_idle_conns", DATABASE_MAX_IDLE_CONNS)
	viper.BindEnv("database.conn_max_lifetime", DATABASE_CONN_MAX_LIFETIME)

	viper.BindEnv("blockchain.rpc_url", BLOCKCHAIN_RPC_URL)
	viper.BindEnv("blockchain.contract_address", BLOCKCHAIN_CONTRACT_ADDRESS)
	viper.BindEnv("blockchain.private_key_hex", BLOCKCHAIN_PRIVATE_KEY_HEX)
	viper.BindEnv("blockchain.chain_id", BLOCKCHAIN_CHAIN_ID)
	viper.BindEnv("blockchain.confirmation_wait", BLOCKCHAIN_CONFIRMATION_WAIT)
	viper.BindEnv("blockchain.confirmation_count", BLOCKCHAIN_CONFIRMATION_COUNT)
	viper.BindEnv("blockchain.max_retries", BLOCKCHAIN_MAX_RETRIES)
	viper.BindEnv("blockchain.retry_base_delay", BLOCKCHAIN_RETRY_BASE_DELAY)

	viper.BindEnv("blob.enabled", BLOB_ENABLED)
	viper.BindEnv("blob.root_dir", BLOB_ROOT_DIR)

	viper.BindEnv("trie.ordering", TRIE_ORDERING)
	viper.BindEnv("trie.encoder_mode", TRIE_ENCODER_MODE)

	viper.BindEnv("audit.cleanup_horizon", AUDIT_CLEANUP_HORIZON)
}
