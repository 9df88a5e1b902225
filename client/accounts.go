package client

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/meridian-zk/go-meridian-client/store"
	"github.com/meridian-zk/go-meridian-client/types"
)

// AccountTemplate describes an account to create locally. The code module
// comes from the caller (typically a wallet or faucet component library);
// the client derives the id, wires the key material and persists the
// aggregate.
type AccountTemplate struct {
	Type        types.AccountType
	StorageMode types.StorageMode
	Code        types.AccountCode
	// InitialStorage and InitialVault seed the account components;
	// both may be empty for a fresh wallet.
	InitialStorage types.AccountStorage
	InitialVault   types.AccountVault
}

// NewAccount creates an account from a template: generates a key through
// the key provider, derives the id from a random seed, the public key and
// the code root, persists the account and its auth material in one
// transaction, then subscribes to the account's note tag. The returned
// record carries the seed needed to register the account on chain.
func (c *Client) NewAccount(ctx context.Context, template AccountTemplate) (store.AccountRecord, error) {
	if c.keys == nil {
		return store.AccountRecord{}, fmt.Errorf("account creation requires a key provider")
	}
	auth, pubKey, err := c.keys.NewKey()
	if err != nil {
		return store.AccountRecord{}, fmt.Errorf("generating account key: %w", err)
	}

	var seedBytes [types.WordBytes]byte
	if _, err := rand.Read(seedBytes[:]); err != nil {
		return store.AccountRecord{}, fmt.Errorf("generating account seed: %w", err)
	}
	seed, err := types.WordFromBytes(seedBytes[:])
	if err != nil {
		return store.AccountRecord{}, err
	}

	id := deriveAccountId(c.hasher, seed, pubKey, template)
	account := types.Account{
		Id:      id,
		Nonce:   0,
		Code:    template.Code,
		Storage: template.InitialStorage,
		Vault:   template.InitialVault,
	}

	if err := c.store.InsertAccount(ctx, account, &seed, auth); err != nil {
		return store.AccountRecord{}, err
	}

	// Subscribe to notes addressed to the new account.
	tag := store.NoteTagRecord{
		Tag:    types.NoteTagForAccount(id),
		Source: types.AccountTagSource(id),
	}
	if _, err := c.store.AddNoteTag(ctx, tag); err != nil {
		return store.AccountRecord{}, err
	}

	c.log.Infow("account created", "account", id, "type", template.Type, "public", id.IsPublic())
	return store.AccountRecord{Account: account, Seed: &seed}, nil
}

// deriveAccountId derives an id committing to the seed, the public key and
// the code root, then stamps the template's metadata bits over it.
func deriveAccountId(h types.Hasher, seed, pubKey types.Word, template AccountTemplate) types.AccountId {
	digest := h.MergeWords(h.MergeWords(seed, pubKey), template.Code.Root)
	return types.NewAccountId(
		uint64(digest[0]), uint64(digest[1]),
		template.Type, template.StorageMode, 0)
}

// ImportAccount persists an externally created account with its auth
// material.
func (c *Client) ImportAccount(ctx context.Context, account types.Account, seed *types.Word, auth store.AuthInfo) error {
	if err := c.store.InsertAccount(ctx, account, seed, auth); err != nil {
		return err
	}
	tag := store.NoteTagRecord{
		Tag:    types.NoteTagForAccount(account.Id),
		Source: types.AccountTagSource(account.Id),
	}
	_, err := c.store.AddNoteTag(ctx, tag)
	return err
}

// GetAccounts returns the latest state of every tracked account.
func (c *Client) GetAccounts(ctx context.Context) ([]store.AccountRecord, error) {
	return c.store.GetAccounts(ctx)
}

// GetAccount returns the latest state of one account.
func (c *Client) GetAccount(ctx context.Context, id types.AccountId) (store.AccountRecord, error) {
	return c.store.GetAccount(ctx, id)
}

// GetAccountHistory returns every stored state of an account in nonce
// order.
func (c *Client) GetAccountHistory(ctx context.Context, id types.AccountId) ([]store.AccountRecord, error) {
	return c.store.GetAccountHistory(ctx, id)
}

// GetAccountAuth returns an account's authentication material.
func (c *Client) GetAccountAuth(ctx context.Context, id types.AccountId) (store.AuthInfo, error) {
	return c.store.GetAccountAuth(ctx, id)
}
