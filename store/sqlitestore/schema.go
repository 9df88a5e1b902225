package sqlitestore

// The schema encodes the rollup's state model directly. Roots and
// commitments are stored as unprefixed lowercase hex so that logically
// equal values collide on their primary key, which is what makes the
// content addressed tables deduplicate on insert. Account modules, storage
// slots and vault assets are stored as their own bytes; structured values
// (procedure lists, note metadata, inclusion proofs, headers, peaks) are
// stored as their canonical CBOR serialization.
const schema = `
CREATE TABLE IF NOT EXISTS account_code (
	root       TEXT NOT NULL PRIMARY KEY,
	procedures BLOB NOT NULL,
	module     BLOB
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS account_storage (
	root  TEXT NOT NULL PRIMARY KEY,
	slots BLOB
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS account_vaults (
	root   TEXT NOT NULL PRIMARY KEY,
	assets BLOB
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS account_auth (
	account_id TEXT NOT NULL PRIMARY KEY,
	scheme     INTEGER NOT NULL,
	auth_key   BLOB NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS accounts (
	id           TEXT NOT NULL,
	nonce        INTEGER NOT NULL,
	code_root    TEXT NOT NULL REFERENCES account_code(root),
	storage_root TEXT NOT NULL REFERENCES account_storage(root),
	vault_root   TEXT NOT NULL REFERENCES account_vaults(root),
	commitment   TEXT NOT NULL,
	is_public    INTEGER NOT NULL,
	account_seed BLOB,
	PRIMARY KEY (id, nonce)
);

CREATE INDEX IF NOT EXISTS idx_accounts_commitment ON accounts(commitment);

CREATE TABLE IF NOT EXISTS account_locks (
	account_id          TEXT NOT NULL PRIMARY KEY,
	observed_commitment TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS input_notes (
	note_id              TEXT NOT NULL PRIMARY KEY,
	recipient            TEXT NOT NULL,
	asset_commitment     TEXT NOT NULL,
	serial_number        TEXT NOT NULL,
	nullifier            TEXT NOT NULL,
	metadata             BLOB NOT NULL,
	inclusion_proof      BLOB,
	status               TEXT NOT NULL,
	consumer_transaction TEXT,
	block_num            INTEGER
) WITHOUT ROWID;

CREATE INDEX IF NOT EXISTS idx_input_notes_nullifier ON input_notes(nullifier);
CREATE INDEX IF NOT EXISTS idx_input_notes_status ON input_notes(status);

CREATE TABLE IF NOT EXISTS output_notes (
	note_id          TEXT NOT NULL PRIMARY KEY,
	recipient        TEXT NOT NULL,
	asset_commitment TEXT NOT NULL,
	metadata         BLOB NOT NULL,
	inclusion_proof  BLOB,
	block_num        INTEGER
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS transactions (
	id                  TEXT NOT NULL PRIMARY KEY,
	account_id          TEXT NOT NULL,
	input_note_ids      BLOB NOT NULL,
	output_note_ids     BLOB NOT NULL,
	script_root         TEXT NOT NULL,
	final_account_state TEXT NOT NULL,
	submit_block_num    INTEGER NOT NULL,
	commit_block_num    INTEGER,
	discard_reason      TEXT
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS block_headers (
	block_num        INTEGER NOT NULL PRIMARY KEY,
	header           BLOB NOT NULL,
	has_client_notes INTEGER NOT NULL,
	chain_mmr_peaks  BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS chain_mmr_nodes (
	in_order_index INTEGER NOT NULL PRIMARY KEY,
	node           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS note_tags (
	tag         INTEGER NOT NULL,
	source_type INTEGER NOT NULL,
	source_id   TEXT NOT NULL,
	PRIMARY KEY (tag, source_type, source_id)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS state_sync (
	id        INTEGER NOT NULL PRIMARY KEY CHECK (id = 1),
	block_num INTEGER NOT NULL,
	peaks     BLOB NOT NULL
);
`
