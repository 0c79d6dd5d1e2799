package storage

import (
	"context"
	"encoding/json"
	"errors"
	"maps"

	"github.com/mcoot/shellgame/internal/model"
)

// Repository reads and replaces the persisted state blobs.
// Every method is a single store round trip; callers hold the
// relevant lock across a get/save pair.
type Repository struct {
	store Store
	keys  Keys
}

// NewRepository creates a Repository over store with the given key prefix
func NewRepository(store Store, prefix string) *Repository {
	return &Repository{
		store: store,
		keys:  Keys{Prefix: prefix},
	}
}

// Session operations

// GetSession returns the current session record, or an idle one if none was ever written
func (r *Repository) GetSession(ctx context.Context) (*model.Session, error) {
	var session model.Session
	found, err := r.load(ctx, KeyCurrentSession, &session)
	if err != nil {
		return nil, err
	}
	if !found {
		return model.IdleSession(nil), nil
	}
	if session.Players == nil {
		session.Players = []string{}
	}
	if session.GuessedPositions == nil {
		session.GuessedPositions = []int{}
	}
	return &session, nil
}

// GetWaitingList returns the queued usernames in admission order
func (r *Repository) GetWaitingList(ctx context.Context) ([]string, error) {
	waiting := []string{}
	if _, err := r.load(ctx, KeyWaitingList, &waiting); err != nil {
		return nil, err
	}
	if waiting == nil {
		waiting = []string{}
	}
	return waiting, nil
}

// SaveMatchmaking replaces the session record and the waiting list together
func (r *Repository) SaveMatchmaking(ctx context.Context, session *model.Session, waiting []string) error {
	entries, err := r.encodeAll(map[string]any{
		KeyCurrentSession: session,
		KeyWaitingList:    waiting,
	})
	if err != nil {
		return err
	}
	if err := r.store.SetMulti(ctx, entries); err != nil {
		return wrapStoreError("set", KeyCurrentSession, err)
	}
	return nil
}

// SaveResolution replaces the session record, the waiting list and the
// ledger in one SetMulti. A nil users map leaves the accounts blob untouched.
func (r *Repository) SaveResolution(
	ctx context.Context,
	session *model.Session,
	waiting []string,
	results []model.ResultEntry,
	users map[string]*model.UserAccount,
) error {
	entries, err := r.encodeAll(map[string]any{
		KeyCurrentSession: session,
		KeyWaitingList:    waiting,
	})
	if err != nil {
		return err
	}
	if err := r.encodeLedger(entries, results, users); err != nil {
		return err
	}
	if err := r.store.SetMulti(ctx, entries); err != nil {
		return wrapStoreError("set", KeyCurrentSession, err)
	}
	return nil
}

// Result operations

// LedgerWrite persists an appended ledger together with any credited accounts.
// It runs with the results and users locks held.
type LedgerWrite func(ctx context.Context, results []model.ResultEntry, users map[string]*model.UserAccount) error

// SaveLedger replaces the ledger and, when users is non-nil, the accounts blob in one SetMulti
func (r *Repository) SaveLedger(ctx context.Context, results []model.ResultEntry, users map[string]*model.UserAccount) error {
	entries := make(map[string][]byte, 2)
	if err := r.encodeLedger(entries, results, users); err != nil {
		return err
	}
	if err := r.store.SetMulti(ctx, entries); err != nil {
		return wrapStoreError("set", KeyResults, err)
	}
	return nil
}

// GetResults returns every ledger entry in append order
func (r *Repository) GetResults(ctx context.Context) ([]model.ResultEntry, error) {
	results := []model.ResultEntry{}
	if _, err := r.load(ctx, KeyResults, &results); err != nil {
		return nil, err
	}
	if results == nil {
		results = []model.ResultEntry{}
	}
	return results, nil
}

// SaveResults replaces the ledger blob
func (r *Repository) SaveResults(ctx context.Context, results []model.ResultEntry) error {
	return r.save(ctx, KeyResults, results)
}

// User operations

// GetUsers returns all accounts keyed by username
func (r *Repository) GetUsers(ctx context.Context) (map[string]*model.UserAccount, error) {
	users := make(map[string]*model.UserAccount)
	if _, err := r.load(ctx, KeyUsers, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = make(map[string]*model.UserAccount)
	}
	return users, nil
}

// SaveUsers replaces the accounts blob
func (r *Repository) SaveUsers(ctx context.Context, users map[string]*model.UserAccount) error {
	return r.save(ctx, KeyUsers, users)
}

// Ping checks the underlying store is reachable
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return wrapStoreError("ping", "", err)
	}
	return nil
}

func (r *Repository) encodeLedger(entries map[string][]byte, results []model.ResultEntry, users map[string]*model.UserAccount) error {
	values := map[string]any{KeyResults: results}
	if users != nil {
		values[KeyUsers] = users
	}
	encoded, err := r.encodeAll(values)
	if err != nil {
		return err
	}
	maps.Copy(entries, encoded)
	return nil
}

// encodeAll marshals values into store entries keyed by prefixed store key
func (r *Repository) encodeAll(values map[string]any) (map[string][]byte, error) {
	entries := make(map[string][]byte, len(values))
	for name, value := range values {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, &model.StoreError{Op: "encode", Key: name, Err: err}
		}
		entries[r.keys.Key(name)] = data
	}
	return entries, nil
}

func (r *Repository) load(ctx context.Context, name string, dst any) (bool, error) {
	data, err := r.store.Get(ctx, r.keys.Key(name))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, wrapStoreError("get", name, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, &model.StoreError{Op: "decode", Key: name, Err: err}
	}
	return true, nil
}

func (r *Repository) save(ctx context.Context, name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return &model.StoreError{Op: "encode", Key: name, Err: err}
	}
	if err := r.store.Set(ctx, r.keys.Key(name), data); err != nil {
		return wrapStoreError("set", name, err)
	}
	return nil
}

func wrapStoreError(op, key string, err error) error {
	var se *model.StoreError
	if errors.As(err, &se) {
		return err
	}
	return &model.StoreError{Op: op, Key: key, Err: err}
}
