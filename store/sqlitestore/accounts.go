package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/types"
)

type accountRow struct {
	Id                 string  `db:"id"`
	Nonce              int64   `db:"nonce"`
	CodeRoot           string  `db:"code_root"`
	StorageRoot        string  `db:"storage_root"`
	VaultRoot          string  `db:"vault_root"`
	Commitment         string  `db:"commitment"`
	IsPublic           bool    `db:"is_public"`
	AccountSeed        []byte  `db:"account_seed"`
	Locked             bool    `db:"locked"`
	ObservedCommitment *string `db:"observed_commitment"`
}

type codeRow struct {
	Root       string `db:"root"`
	Procedures []byte `db:"procedures"`
	Module     []byte `db:"module"`
}

const selectAccount = `
SELECT a.id, a.nonce, a.code_root, a.storage_root, a.vault_root, a.commitment,
       a.is_public, a.account_seed,
       l.account_id IS NOT NULL AS locked,
       l.observed_commitment AS observed_commitment
FROM accounts a
LEFT JOIN account_locks l ON l.account_id = a.id
`

// GetAccounts returns the latest stored state of every account.
func (s *SqliteStore) GetAccounts(ctx context.Context) ([]store.AccountRecord, error) {
	var rows []accountRow
	query := selectAccount + `
		WHERE a.nonce = (SELECT MAX(nonce) FROM accounts WHERE id = a.id)
		ORDER BY a.id`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, mapErr(err)
	}
	return s.assembleAccounts(ctx, rows)
}

// GetAccount returns the state of the account with the largest nonce.
func (s *SqliteStore) GetAccount(ctx context.Context, id types.AccountId) (store.AccountRecord, error) {
	var row accountRow
	query := selectAccount + ` WHERE a.id = ? ORDER BY a.nonce DESC LIMIT 1`
	if err := s.db.GetContext(ctx, &row, query, id.Hex()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.AccountRecord{}, fmt.Errorf("%w: account %s", store.ErrNotFound, id)
		}
		return store.AccountRecord{}, mapErr(err)
	}
	records, err := s.assembleAccounts(ctx, []accountRow{row})
	if err != nil {
		return store.AccountRecord{}, err
	}
	return records[0], nil
}

// GetAccountHistory returns every stored state of the account in strictly
// increasing nonce order.
func (s *SqliteStore) GetAccountHistory(ctx context.Context, id types.AccountId) ([]store.AccountRecord, error) {
	var rows []accountRow
	query := selectAccount + ` WHERE a.id = ? ORDER BY a.nonce ASC`
	if err := s.db.SelectContext(ctx, &rows, query, id.Hex()); err != nil {
		return nil, mapErr(err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: account %s", store.ErrNotFound, id)
	}
	return s.assembleAccounts(ctx, rows)
}

// assembleAccounts joins each account row with its content addressed
// components. A dangling component root is a fatal inconsistency.
func (s *SqliteStore) assembleAccounts(ctx context.Context, rows []accountRow) ([]store.AccountRecord, error) {
	records := make([]store.AccountRecord, 0, len(rows))
	for _, row := range rows {
		id, err := parseAccountIdColumn(row.Id)
		if err != nil {
			return nil, err
		}

		var code codeRow
		if err := s.db.GetContext(ctx, &code,
			`SELECT root, procedures, module FROM account_code WHERE root = ?`, row.CodeRoot); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: account %s references missing code root %s",
					store.ErrDataInconsistency, row.Id, row.CodeRoot)
			}
			return nil, mapErr(err)
		}
		var procedures wordList
		if err := s.codec.Unmarshal(code.Procedures, &procedures); err != nil {
			return nil, fmt.Errorf("%w: procedures of code %s: %v", store.ErrSerialization, row.CodeRoot, err)
		}

		var slots []byte
		if err := s.db.GetContext(ctx, &slots,
			`SELECT slots FROM account_storage WHERE root = ?`, row.StorageRoot); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: account %s references missing storage root %s",
					store.ErrDataInconsistency, row.Id, row.StorageRoot)
			}
			return nil, mapErr(err)
		}

		var assets []byte
		if err := s.db.GetContext(ctx, &assets,
			`SELECT assets FROM account_vaults WHERE root = ?`, row.VaultRoot); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: account %s references missing vault root %s",
					store.ErrDataInconsistency, row.Id, row.VaultRoot)
			}
			return nil, mapErr(err)
		}

		codeRoot, err := parseWordColumn(row.CodeRoot)
		if err != nil {
			return nil, err
		}
		storageRoot, err := parseWordColumn(row.StorageRoot)
		if err != nil {
			return nil, err
		}
		vaultRoot, err := parseWordColumn(row.VaultRoot)
		if err != nil {
			return nil, err
		}

		record := store.AccountRecord{
			Account: types.Account{
				Id:    id,
				Nonce: uint64(row.Nonce),
				Code: types.AccountCode{
					Root:       codeRoot,
					Procedures: procedures.Words,
					Module:     code.Module,
				},
				Storage: types.AccountStorage{Root: storageRoot, Slots: slots},
				Vault:   types.AccountVault{Root: vaultRoot, Assets: assets},
			},
			Locked: row.Locked,
		}
		if row.AccountSeed != nil {
			seed, err := types.WordFromBytes(row.AccountSeed)
			if err != nil {
				return nil, fmt.Errorf("%w: account seed of %s: %v", store.ErrSerialization, row.Id, err)
			}
			record.Seed = &seed
		}
		if row.ObservedCommitment != nil {
			observed, err := parseWordColumn(*row.ObservedCommitment)
			if err != nil {
				return nil, err
			}
			record.LockedCommitment = &observed
		}
		records = append(records, record)
	}
	return records, nil
}

// InsertAccount persists a new account state with its components and auth
// material in one transaction. Content addressed component inserts are
// idempotent; a duplicate (id, nonce) fails.
func (s *SqliteStore) InsertAccount(ctx context.Context, account types.Account, seed *types.Word, auth store.AuthInfo) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.insertAccountState(tx, account, seed); err != nil {
			return err
		}
		_, err := tx.Exec(
			`INSERT INTO account_auth (account_id, scheme, auth_key) VALUES (?, ?, ?)
			 ON CONFLICT (account_id) DO UPDATE SET scheme = excluded.scheme, auth_key = excluded.auth_key`,
			account.Id.Hex(), auth.Scheme, auth.Key)
		return mapErr(err)
	})
}

// insertAccountState writes the content addressed components and the
// account row itself, rejecting a duplicate (id, nonce). Sync applies use
// the idempotent upsert variant instead.
func (s *SqliteStore) insertAccountState(tx *sqlx.Tx, account types.Account, seed *types.Word) error {
	var exists bool
	if err := tx.Get(&exists,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = ? AND nonce = ?)`,
		account.Id.Hex(), int64(account.Nonce)); err != nil {
		return mapErr(err)
	}
	if exists {
		return fmt.Errorf("%w: %s nonce %d", store.ErrAccountStateAlreadyExists, account.Id, account.Nonce)
	}
	return s.upsertAccountState(tx, account, seed)
}

// upsertAccountState is the idempotent variant used by ApplyStateSync.
func (s *SqliteStore) upsertAccountState(tx *sqlx.Tx, account types.Account, seed *types.Word) error {
	procedures, err := s.codec.Marshal(wordList{Words: account.Code.Procedures})
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrSerialization, err)
	}

	// Content addressed components: a conflict on the root is success.
	if _, err := tx.Exec(
		`INSERT INTO account_code (root, procedures, module) VALUES (?, ?, ?)
		 ON CONFLICT (root) DO NOTHING`,
		account.Code.Root.UnprefixedHex(), procedures, account.Code.Module); err != nil {
		return mapErr(err)
	}
	if _, err := tx.Exec(
		`INSERT INTO account_storage (root, slots) VALUES (?, ?) ON CONFLICT (root) DO NOTHING`,
		account.Storage.Root.UnprefixedHex(), account.Storage.Slots); err != nil {
		return mapErr(err)
	}
	if _, err := tx.Exec(
		`INSERT INTO account_vaults (root, assets) VALUES (?, ?) ON CONFLICT (root) DO NOTHING`,
		account.Vault.Root.UnprefixedHex(), account.Vault.Assets); err != nil {
		return mapErr(err)
	}

	var seedBytes []byte
	if seed != nil {
		seedBytes = seed.Bytes()
	}
	_, err = tx.Exec(
		`INSERT INTO accounts
			(id, nonce, code_root, storage_root, vault_root, commitment, is_public, account_seed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id, nonce) DO NOTHING`,
		account.Id.Hex(), int64(account.Nonce),
		account.Code.Root.UnprefixedHex(),
		account.Storage.Root.UnprefixedHex(),
		account.Vault.Root.UnprefixedHex(),
		account.Commitment(s.hasher).UnprefixedHex(),
		account.Id.IsPublic(), seedBytes)
	return mapErr(err)
}

// GetAccountAuth returns the account's authentication material.
func (s *SqliteStore) GetAccountAuth(ctx context.Context, id types.AccountId) (store.AuthInfo, error) {
	var row struct {
		Scheme  uint8  `db:"scheme"`
		AuthKey []byte `db:"auth_key"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT scheme, auth_key FROM account_auth WHERE account_id = ?`, id.Hex())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.AuthInfo{}, fmt.Errorf("%w: auth for account %s", store.ErrNotFound, id)
		}
		return store.AuthInfo{}, mapErr(err)
	}
	return store.AuthInfo{Scheme: store.AuthScheme(row.Scheme), Key: row.AuthKey}, nil
}

// GetAccountAuths returns the authentication material of every tracked
// account.
func (s *SqliteStore) GetAccountAuths(ctx context.Context) ([]store.AuthInfo, error) {
	var rows []struct {
		Scheme  uint8  `db:"scheme"`
		AuthKey []byte `db:"auth_key"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT scheme, auth_key FROM account_auth ORDER BY account_id`); err != nil {
		return nil, mapErr(err)
	}
	auths := make([]store.AuthInfo, len(rows))
	for i, row := range rows {
		auths[i] = store.AuthInfo{Scheme: store.AuthScheme(row.Scheme), Key: row.AuthKey}
	}
	return auths, nil
}

// LockAccountOnUnexpectedCommitment marks a private account as diverged.
// The last known good state stays retrievable; only the lock flag and the
// observed commitment are recorded.
func (s *SqliteStore) LockAccountOnUnexpectedCommitment(ctx context.Context, id types.AccountId, observed types.Word) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		return lockAccount(tx, id, observed)
	})
}

func lockAccount(tx *sqlx.Tx, id types.AccountId, observed types.Word) error {
	_, err := tx.Exec(
		`INSERT INTO account_locks (account_id, observed_commitment) VALUES (?, ?)
		 ON CONFLICT (account_id) DO UPDATE SET observed_commitment = excluded.observed_commitment`,
		id.Hex(), observed.UnprefixedHex())
	return mapErr(err)
}

// UndoAccountStates deletes account states whose commitment matches any of
// the given set.
func (s *SqliteStore) UndoAccountStates(ctx context.Context, commitments []types.Word) error {
	if len(commitments) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		return undoAccountStates(tx, commitments)
	})
}

func undoAccountStates(tx *sqlx.Tx, commitments []types.Word) error {
	keys := make([]any, len(commitments))
	for i, c := range commitments {
		keys[i] = c.UnprefixedHex()
	}
	query, args, err := sqlx.In(`DELETE FROM accounts WHERE commitment IN (?)`, keys)
	if err != nil {
		return mapErr(err)
	}
	_, err = tx.Exec(query, args...)
	return mapErr(err)
}
