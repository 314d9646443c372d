// Package memory is an in-process store implementing every component
// repository. Transactions are serialized and roll back by restoring a
// snapshot, which gives tests the same all-or-nothing behaviour as Postgres.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/locks"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/assets"
	"github.com/odyssey-erp/odyssey-gl/internal/banking"
	"github.com/odyssey-erp/odyssey-gl/internal/subledger"
	"github.com/odyssey-erp/odyssey-gl/internal/vat"
)

type depreciationCharge struct {
	companyID int64
	journalID int64
	assetID   int64
	period    time.Time
	amount    shared.Money
}

type state struct {
	seq          int64
	accounts     map[int64]accounts.Account
	settings     map[int64]map[string]string
	locks        map[int64]locks.PeriodLock
	journals     map[int64]journals.JournalEntry
	documents    map[int64]subledger.Document
	payments     map[int64]subledger.Payment
	allocations  map[int64]subledger.Allocation
	bankAccounts map[int64]banking.BankAccount
	bankTxns     map[int64]banking.Transaction
	rules        map[int64]banking.Rule
	vatPeriods   map[int64]vat.Period
	assets       map[int64]assets.Asset
	charges      []depreciationCharge
}

func newState() *state {
	return &state{
		accounts:     make(map[int64]accounts.Account),
		settings:     make(map[int64]map[string]string),
		locks:        make(map[int64]locks.PeriodLock),
		journals:     make(map[int64]journals.JournalEntry),
		documents:    make(map[int64]subledger.Document),
		payments:     make(map[int64]subledger.Payment),
		allocations:  make(map[int64]subledger.Allocation),
		bankAccounts: make(map[int64]banking.BankAccount),
		bankTxns:     make(map[int64]banking.Transaction),
		rules:        make(map[int64]banking.Rule),
		vatPeriods:   make(map[int64]vat.Period),
		assets:       make(map[int64]assets.Asset),
	}
}

// clone copies every table. Values are replaced, never mutated in place, so
// a shallow copy of each map is a consistent snapshot.
func (s *state) clone() *state {
	settings := make(map[int64]map[string]string, len(s.settings))
	for k, v := range s.settings {
		settings[k] = maps.Clone(v)
	}
	return &state{
		seq:          s.seq,
		accounts:     maps.Clone(s.accounts),
		settings:     settings,
		locks:        maps.Clone(s.locks),
		journals:     maps.Clone(s.journals),
		documents:    maps.Clone(s.documents),
		payments:     maps.Clone(s.payments),
		allocations:  maps.Clone(s.allocations),
		bankAccounts: maps.Clone(s.bankAccounts),
		bankTxns:     maps.Clone(s.bankTxns),
		rules:        maps.Clone(s.rules),
		vatPeriods:   maps.Clone(s.vatPeriods),
		assets:       maps.Clone(s.assets),
		charges:      append([]depreciationCharge(nil), s.charges...),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// Store is the in-memory composite store.
type Store struct {
	mu sync.Mutex
	st *state
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// WithTx runs fn with exclusive access; any error restores the prior state.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.st.clone()
	tx := &Tx{st: s.st}
	if err := fn(ctx, tx); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Settings implements accounts.Repository.
func (s *Store) Settings(ctx context.Context, companyID int64) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.st.settings[companyID]), nil
}

// AccountByID implements accounts.Repository.
func (s *Store) AccountByID(ctx context.Context, companyID, id int64) (accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.accounts[id]
	if !ok || a.CompanyID != companyID {
		return accounts.Account{}, shared.NotFound("account", id)
	}
	return a, nil
}

// List implements accounts.Repository.
func (s *Store) List(ctx context.Context, companyID int64) ([]accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []accounts.Account
	for _, a := range s.st.accounts {
		if a.CompanyID == companyID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// SeedAccount adds an active account and returns its id.
func (s *Store) SeedAccount(companyID int64, code, name string, typ accounts.AccountType) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.st.nextID()
	s.st.accounts[id] = accounts.Account{ID: id, CompanyID: companyID, Code: code, Name: name, Type: typ, IsActive: true}
	return id
}

// SeedDefaultChart adds an active account for every default role code.
func (s *Store) SeedDefaultChart(companyID int64) {
	for key, code := range accounts.Defaults {
		s.SeedAccount(companyID, code, key, accounts.AccountTypeAsset)
	}
}

// DeactivateAccount flags an account inactive.
func (s *Store) DeactivateAccount(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.st.accounts[id]
	a.IsActive = false
	s.st.accounts[id] = a
}

// SetSetting stores a company account-role override.
func (s *Store) SetSetting(companyID int64, key, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.settings[companyID] == nil {
		s.st.settings[companyID] = make(map[string]string)
	}
	s.st.settings[companyID][key] = code
}

// SeedBankAccount adds a bank account.
func (s *Store) SeedBankAccount(a banking.BankAccount) banking.BankAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.st.nextID()
	s.st.bankAccounts[a.ID] = a
	return a
}

// SeedBankTransaction adds an unmatched bank transaction.
func (s *Store) SeedBankTransaction(t banking.Transaction) banking.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.st.nextID()
	t.TxDate = shared.DateOf(t.TxDate)
	t.Matched = false
	t.JournalID = nil
	s.st.bankTxns[t.ID] = t
	return t
}

// SeedRule adds a bank rule.
func (s *Store) SeedRule(r banking.Rule) banking.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.st.nextID()
	s.st.rules[r.ID] = r
	return r
}

// Journals returns every journal of the company ordered by id.
func (s *Store) Journals(companyID int64) []journals.JournalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []journals.JournalEntry
	for _, e := range s.st.journals {
		if e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Balances nets debit minus credit per account code over all journals.
func (s *Store) Balances(companyID int64) map[string]shared.Money {
	out := make(map[string]shared.Money)
	for _, e := range s.Journals(companyID) {
		for _, l := range e.Lines {
			out[l.AccountCode] += l.Debit - l.Credit
		}
	}
	return out
}

// Document returns a document without opening a transaction.
func (s *Store) Document(id int64) subledger.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.documents[id]
}

// Payment returns a payment without opening a transaction.
func (s *Store) Payment(id int64) subledger.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.payments[id]
}

// BankTransaction returns a bank transaction without opening a transaction.
func (s *Store) BankTransaction(id int64) banking.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.bankTxns[id]
}

// Locks returns the company's period locks.
func (s *Store) Locks(companyID int64) []locks.PeriodLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []locks.PeriodLock
	for _, l := range s.st.locks {
		if l.CompanyID == companyID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
