package posting_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/locks"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/banking"
	"github.com/odyssey-erp/odyssey-gl/internal/posting"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/store"
	"github.com/odyssey-erp/odyssey-gl/internal/store/memory"
	"github.com/odyssey-erp/odyssey-gl/internal/subledger"
)

var actor = internalshared.Actor{CompanyID: 1, UserID: 42, Role: "accountant"}

type recorder struct {
	outcomes map[string][]string
}

func (r *recorder) RecordPosting(kind, outcome string) {
	if r.outcomes == nil {
		r.outcomes = make(map[string][]string)
	}
	r.outcomes[kind] = append(r.outcomes[kind], outcome)
}

type fixture struct {
	svc      *posting.Service
	mem      *memory.Store
	oracle   *locks.Oracle
	ledger   *journals.Ledger
	bank     *banking.Service
	journals *journals.Service
	metrics  *recorder
}

func newFixture(t *testing.T, today string) *fixture {
	t.Helper()
	mem := memory.New()
	mem.SeedDefaultChart(actor.CompanyID)
	clock := func() time.Time { return shared.MustDate(today).Add(9 * time.Hour) }

	oracle := locks.NewOracle()
	ledger := journals.NewLedger(oracle)
	ledger.WithNow(clock)
	tracker := subledger.NewTracker(oracle)
	tracker.WithNow(clock)
	dir := accounts.NewDirectory(mem, nil, nil)
	bank := banking.NewService(store.For[*memory.Tx, banking.TxRepository](mem), ledger, oracle, dir, banking.Config{}, nil, nil)
	svc := posting.NewService(store.For[*memory.Tx, posting.TxRepository](mem), ledger, tracker, bank, dir, nil, nil)
	svc.WithNow(clock)
	metrics := &recorder{}
	svc.WithRecorder(metrics)
	return &fixture{
		svc:      svc,
		mem:      mem,
		oracle:   oracle,
		ledger:   ledger,
		bank:     bank,
		journals: journals.NewService(store.For[*memory.Tx, journals.TxRepository](mem), ledger, nil),
		metrics:  metrics,
	}
}

func (f *fixture) lock(t *testing.T, date string) {
	t.Helper()
	err := f.mem.WithTx(context.Background(), func(ctx context.Context, tx *memory.Tx) error {
		_, err := f.oracle.Lock(ctx, tx, actor, shared.MustDate(date), "close")
		return err
	})
	require.NoError(t, err)
}

func (f *fixture) document(t *testing.T, kind subledger.DocumentKind, date, subtotal, tax string) subledger.Document {
	t.Helper()
	sub, vat := shared.MustMoney(subtotal), shared.MustMoney(tax)
	doc, err := f.svc.RegisterDocument(context.Background(), actor, subledger.Document{
		Kind:     kind,
		Number:   string(kind) + "-" + date,
		DocDate:  shared.MustDate(date),
		Subtotal: sub,
		Tax:      vat,
		Total:    sub + vat,
	})
	require.NoError(t, err)
	return doc
}

func (f *fixture) payment(t *testing.T, kind subledger.PaymentKind, date, amount string) subledger.Payment {
	t.Helper()
	p, err := f.svc.RegisterPayment(context.Background(), actor, subledger.Payment{
		Kind:        kind,
		PaymentDate: shared.MustDate(date),
		Amount:      shared.MustMoney(amount),
	})
	require.NoError(t, err)
	return p
}

func requireBalanced(t *testing.T, mem *memory.Store) {
	t.Helper()
	for _, e := range mem.Journals(actor.CompanyID) {
		debit, credit := e.Totals()
		require.Equal(t, debit, credit, "journal %d", e.ID)
	}
}

func TestInvoiceLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-10")
	inv := f.document(t, subledger.KindInvoice, "2024-01-10", "100.00", "15.00")
	require.Equal(t, subledger.StatusOpen, inv.Status())

	res, err := f.svc.PostInvoice(ctx, actor, inv.ID)
	require.NoError(t, err)
	require.False(t, res.AlreadyPosted)

	entry, err := f.journals.GetJournal(ctx, actor, res.JournalID)
	require.NoError(t, err)
	require.Len(t, entry.Lines, 3)
	require.Equal(t, "1200", entry.Lines[0].AccountCode)
	require.Equal(t, shared.MustMoney("115.00"), entry.Lines[0].Debit)
	require.Equal(t, shared.MustMoney("100.00"), entry.Lines[1].Credit)
	require.Equal(t, shared.MustMoney("15.00"), entry.Lines[2].Credit)

	p1 := f.payment(t, subledger.PaymentReceipt, "2024-01-20", "60.00")
	_, err = f.svc.PostCustomerPayment(ctx, actor, p1.ID, []subledger.Target{{DocumentID: inv.ID, Amount: shared.MustMoney("60.00")}})
	require.NoError(t, err)
	doc := f.mem.Document(inv.ID)
	require.Equal(t, shared.MustMoney("55.00"), doc.BalanceDue)
	require.Equal(t, subledger.StatusPartPaid, doc.Status())
	require.Nil(t, doc.PaidAt)

	p2 := f.payment(t, subledger.PaymentReceipt, "2024-01-25", "55.00")
	_, err = f.svc.PostCustomerPayment(ctx, actor, p2.ID, []subledger.Target{{DocumentID: inv.ID, Amount: shared.MustMoney("55.00")}})
	require.NoError(t, err)
	doc = f.mem.Document(inv.ID)
	require.Zero(t, doc.BalanceDue)
	require.Equal(t, subledger.StatusPaid, doc.Status())
	require.NotNil(t, doc.PaidAt)
	require.Equal(t, shared.MustDate("2024-01-25"), *doc.PaidAt)

	balances := f.mem.Balances(actor.CompanyID)
	require.Zero(t, balances["1200"])
	require.Equal(t, shared.MustMoney("115.00"), balances["1010"])
	require.Equal(t, shared.MustMoney("-100.00"), balances["4000"])
	requireBalanced(t, f.mem)
}

func TestPostInvoiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-10")
	inv := f.document(t, subledger.KindInvoice, "2024-01-10", "100.00", "15.00")

	first, err := f.svc.PostInvoice(ctx, actor, inv.ID)
	require.NoError(t, err)
	second, err := f.svc.PostInvoice(ctx, actor, inv.ID)
	require.NoError(t, err)
	require.True(t, second.AlreadyPosted)
	require.Equal(t, first.JournalID, second.JournalID)
	require.Len(t, f.mem.Journals(actor.CompanyID), 1)
	require.Equal(t, []string{"posted", "already_posted"}, f.metrics.outcomes[posting.KindInvoice])
}

func TestPostInvoiceRejectsLockedPeriod(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-10")
	inv := f.document(t, subledger.KindInvoice, "2024-01-15", "100.00", "15.00")
	f.lock(t, "2024-01-31")

	_, err := f.svc.PostInvoice(ctx, actor, inv.ID)
	var locked *shared.LockedPeriodError
	require.True(t, errors.As(err, &locked))
	require.Equal(t, shared.MustDate("2024-01-15"), locked.Date)
	require.Empty(t, f.mem.Journals(actor.CompanyID))
	require.Nil(t, f.mem.Document(inv.ID).JournalID)
	require.Equal(t, []string{"failed"}, f.metrics.outcomes[posting.KindInvoice])
}

func TestPostInvoiceUnknownAccountWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-10")
	f.mem.SetSetting(actor.CompanyID, accounts.KeySalesRevenue, "4999")
	inv := f.document(t, subledger.KindInvoice, "2024-02-01", "10.00", "0")

	_, err := f.svc.PostInvoice(ctx, actor, inv.ID)
	require.ErrorIs(t, err, shared.ErrUnknownAccount)
	require.Empty(t, f.mem.Journals(actor.CompanyID))
}

func TestPostInvoiceInactiveOverrideIsMissingMapping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-10")
	retired := f.mem.SeedAccount(actor.CompanyID, "4100", "Retired revenue", accounts.AccountTypeRevenue)
	f.mem.DeactivateAccount(retired)
	doc, err := f.svc.RegisterDocument(ctx, actor, subledger.Document{
		Kind: subledger.KindInvoice, Number: "INV-9", DocDate: shared.MustDate("2024-02-01"),
		Subtotal: 1000, Total: 1000, AccountID: &retired,
	})
	require.NoError(t, err)

	_, err = f.svc.PostInvoice(ctx, actor, doc.ID)
	require.ErrorIs(t, err, shared.ErrMappingNotFound)
	require.Empty(t, f.mem.Journals(actor.CompanyID))
}

func TestPaymentOverAllocationRollsBackWholePosting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-10")
	inv := f.document(t, subledger.KindInvoice, "2024-01-10", "100.00", "0")
	_, err := f.svc.PostInvoice(ctx, actor, inv.ID)
	require.NoError(t, err)

	p := f.payment(t, subledger.PaymentReceipt, "2024-01-20", "150.00")
	_, err = f.svc.PostCustomerPayment(ctx, actor, p.ID, []subledger.Target{{DocumentID: inv.ID, Amount: shared.MustMoney("150.00")}})
	require.ErrorIs(t, err, shared.ErrValidation)

	require.Len(t, f.mem.Journals(actor.CompanyID), 1, "payment journal rolled back")
	require.Nil(t, f.mem.Payment(p.ID).JournalID)
	require.Equal(t, shared.MustMoney("100.00"), f.mem.Document(inv.ID).BalanceDue)
}

func TestAllocateRequiresPostedDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-10")
	inv := f.document(t, subledger.KindInvoice, "2024-01-10", "100.00", "0")
	p := f.payment(t, subledger.PaymentReceipt, "2024-01-20", "50.00")
	_, err := f.svc.PostCustomerPayment(ctx, actor, p.ID, nil)
	require.NoError(t, err)

	_, err = f.svc.Allocate(ctx, actor, subledger.AllocationInput{
		SourceKind: subledger.SourcePayment, SourceID: p.ID, DocumentID: inv.ID, Amount: 5000,
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.PostInvoice(ctx, actor, inv.ID)
	require.NoError(t, err)
	doc, err := f.svc.Allocate(ctx, actor, subledger.AllocationInput{
		SourceKind: subledger.SourcePayment, SourceID: p.ID, DocumentID: inv.ID, Amount: 5000,
	})
	require.NoError(t, err)
	require.Equal(t, shared.MustMoney("50.00"), doc.BalanceDue)

	_, err = f.svc.Allocate(ctx, actor, subledger.AllocationInput{
		SourceKind: subledger.SourcePayment, SourceID: p.ID, DocumentID: inv.ID, Amount: 1,
	})
	require.ErrorIs(t, err, shared.ErrValidation, "payment is fully applied")
	requireBalanced(t, f.mem)
}

func TestAllocateRequiresPostedSource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-10")
	inv := f.document(t, subledger.KindInvoice, "2024-01-10", "100.00", "15.00")
	_, err := f.svc.PostInvoice(ctx, actor, inv.ID)
	require.NoError(t, err)

	p := f.payment(t, subledger.PaymentReceipt, "2024-01-20", "115.00")
	_, err = f.svc.Allocate(ctx, actor, subledger.AllocationInput{
		SourceKind: subledger.SourcePayment, SourceID: p.ID, DocumentID: inv.ID, Amount: shared.MustMoney("115.00"),
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	cn := f.document(t, subledger.KindCreditNote, "2024-01-12", "40.00", "0")
	_, err = f.svc.Allocate(ctx, actor, subledger.AllocationInput{
		SourceKind: subledger.SourceCredit, SourceID: cn.ID, DocumentID: inv.ID, Amount: shared.MustMoney("40.00"),
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	got := f.mem.Document(inv.ID)
	require.Equal(t, shared.MustMoney("115.00"), got.BalanceDue)
	require.Equal(t, subledger.StatusOpen, got.Status())
	require.Nil(t, f.mem.Payment(p.ID).JournalID)
	require.Equal(t, shared.MustMoney("115.00"), f.mem.Balances(actor.CompanyID)["1200"])
}

func TestReallocateReversesThenReposts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-10")
	a := f.document(t, subledger.KindInvoice, "2024-01-10", "100.00", "15.00")
	b := f.document(t, subledger.KindInvoice, "2024-01-11", "50.00", "0")
	for _, d := range []subledger.Document{a, b} {
		_, err := f.svc.PostInvoice(ctx, actor, d.ID)
		require.NoError(t, err)
	}
	p := f.payment(t, subledger.PaymentReceipt, "2024-02-01", "80.00")
	original, err := f.svc.PostCustomerPayment(ctx, actor, p.ID, []subledger.Target{{DocumentID: a.ID, Amount: shared.MustMoney("80.00")}})
	require.NoError(t, err)

	res, err := f.svc.Reallocate(ctx, actor, subledger.ReallocationInput{
		PaymentID: p.ID,
		Allocations: []subledger.Target{
			{DocumentID: a.ID, Amount: shared.MustMoney("30.00")},
			{DocumentID: b.ID, Amount: shared.MustMoney("50.00")},
		},
	})
	require.NoError(t, err)
	require.NotEqual(t, original.JournalID, res.JournalID)

	require.Equal(t, shared.MustMoney("85.00"), f.mem.Document(a.ID).BalanceDue)
	require.Equal(t, subledger.StatusPartPaid, f.mem.Document(a.ID).Status())
	require.Equal(t, subledger.StatusPaid, f.mem.Document(b.ID).Status())
	require.Equal(t, res.JournalID, *f.mem.Payment(p.ID).JournalID)

	var reversed, mirrors int
	for _, e := range f.mem.Journals(actor.CompanyID) {
		if e.Reversed {
			reversed++
			require.Equal(t, original.JournalID, e.ID)
		}
		if e.ReversalOfID != nil {
			mirrors++
			require.Equal(t, shared.MustDate("2024-03-10"), e.EntryDate)
		}
	}
	require.Equal(t, 1, reversed)
	require.Equal(t, 1, mirrors)

	balances := f.mem.Balances(actor.CompanyID)
	require.Equal(t, shared.MustMoney("85.00"), balances["1200"])
	require.Equal(t, shared.MustMoney("80.00"), balances["1010"])
	requireBalanced(t, f.mem)

	res, err = f.svc.Reallocate(ctx, actor, subledger.ReallocationInput{
		PaymentID:   p.ID,
		Allocations: []subledger.Target{{DocumentID: a.ID, Amount: shared.MustMoney("20.00")}},
	})
	require.NoError(t, err)
	require.Equal(t, shared.MustMoney("20.00"), f.mem.Payment(p.ID).Amount)
	require.Equal(t, subledger.StatusOpen, f.mem.Document(b.ID).Status())
	require.Nil(t, f.mem.Document(b.ID).PaidAt)
	require.Equal(t, shared.MustMoney("20.00"), f.mem.Balances(actor.CompanyID)["1010"])
}

func TestReallocateRejectsExcessPerDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-10")
	a := f.document(t, subledger.KindInvoice, "2024-01-10", "100.00", "0")
	_, err := f.svc.PostInvoice(ctx, actor, a.ID)
	require.NoError(t, err)
	p := f.payment(t, subledger.PaymentReceipt, "2024-02-01", "40.00")
	_, err = f.svc.PostCustomerPayment(ctx, actor, p.ID, []subledger.Target{{DocumentID: a.ID, Amount: shared.MustMoney("40.00")}})
	require.NoError(t, err)
	before := len(f.mem.Journals(actor.CompanyID))

	_, err = f.svc.Reallocate(ctx, actor, subledger.ReallocationInput{
		PaymentID: p.ID,
		Allocations: []subledger.Target{
			{DocumentID: a.ID, Amount: shared.MustMoney("60.00")},
			{DocumentID: a.ID, Amount: shared.MustMoney("50.00")},
		},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Len(t, f.mem.Journals(actor.CompanyID), before)
	require.Equal(t, shared.MustMoney("60.00"), f.mem.Document(a.ID).BalanceDue)

	_, err = f.svc.Reallocate(ctx, actor, subledger.ReallocationInput{PaymentID: p.ID})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreditNoteAppliesAgainstInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-10")
	inv := f.document(t, subledger.KindInvoice, "2024-01-10", "100.00", "15.00")
	_, err := f.svc.PostInvoice(ctx, actor, inv.ID)
	require.NoError(t, err)
	cn := f.document(t, subledger.KindCreditNote, "2024-01-12", "20.00", "3.00")

	res, err := f.svc.PostCreditNote(ctx, actor, cn.ID, []subledger.Target{{DocumentID: inv.ID, Amount: shared.MustMoney("23.00")}})
	require.NoError(t, err)
	require.NotZero(t, res.JournalID)

	require.Equal(t, shared.MustMoney("92.00"), f.mem.Document(inv.ID).BalanceDue)
	require.Equal(t, subledger.StatusPaid, f.mem.Document(cn.ID).Status(), "credit fully applied")
	balances := f.mem.Balances(actor.CompanyID)
	require.Equal(t, shared.MustMoney("92.00"), balances["1200"])
	require.Equal(t, shared.MustMoney("-12.00"), balances["2120"])
}

func TestBillVendorCreditAndSupplierPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-10")
	bill := f.document(t, subledger.KindBill, "2024-01-05", "200.00", "20.00")
	_, err := f.svc.PostAPBill(ctx, actor, bill.ID)
	require.NoError(t, err)

	vc := f.document(t, subledger.KindVendorCredit, "2024-01-06", "50.00", "5.00")
	_, err = f.svc.PostVendorCredit(ctx, actor, vc.ID, []subledger.Target{{DocumentID: bill.ID, Amount: shared.MustMoney("55.00")}})
	require.NoError(t, err)

	pay := f.payment(t, subledger.PaymentDisbursement, "2024-01-31", "165.00")
	_, err = f.svc.PostSupplierPayment(ctx, actor, pay.ID, []subledger.Target{{DocumentID: bill.ID, Amount: shared.MustMoney("165.00")}})
	require.NoError(t, err)

	require.Equal(t, subledger.StatusPaid, f.mem.Document(bill.ID).Status())
	balances := f.mem.Balances(actor.CompanyID)
	require.Zero(t, balances["2110"])
	require.Equal(t, shared.MustMoney("-165.00"), balances["1010"])
	require.Equal(t, shared.MustMoney("150.00"), balances["5000"])
	require.Equal(t, shared.MustMoney("15.00"), balances["2130"])

	_, err = f.svc.PostCustomerPayment(ctx, actor, pay.ID, nil)
	require.ErrorIs(t, err, shared.ErrValidation, "disbursement is not a receipt")
	requireBalanced(t, f.mem)
}

func TestCancelDocumentReversesJournal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-10")
	inv := f.document(t, subledger.KindInvoice, "2024-02-10", "100.00", "15.00")
	res, err := f.svc.PostInvoice(ctx, actor, inv.ID)
	require.NoError(t, err)

	doc, err := f.svc.CancelDocument(ctx, actor, inv.ID, "duplicate invoice")
	require.NoError(t, err)
	require.Equal(t, subledger.StatusCancelled, doc.Status())
	require.Nil(t, f.mem.Document(inv.ID).JournalID)

	for code, bal := range f.mem.Balances(actor.CompanyID) {
		require.Zero(t, bal, code)
	}
	entry, err := f.journals.GetJournal(ctx, actor, res.JournalID)
	require.NoError(t, err)
	require.True(t, entry.Reversed)

	_, err = f.svc.PostInvoice(ctx, actor, inv.ID)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestReversalRoundTripNetsToZero(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-10")
	bill := f.document(t, subledger.KindBill, "2024-01-05", "123.45", "12.35")
	res, err := f.svc.PostAPBill(ctx, actor, bill.ID)
	require.NoError(t, err)

	_, err = f.journals.ReverseJournal(ctx, actor, res.JournalID, "")
	require.NoError(t, err)
	for code, bal := range f.mem.Balances(actor.CompanyID) {
		require.Zero(t, bal, code)
	}
	require.Nil(t, f.mem.Document(bill.ID).JournalID, "posted marker follows the active journal")

	again, err := f.svc.PostAPBill(ctx, actor, bill.ID)
	require.NoError(t, err)
	require.False(t, again.AlreadyPosted)
	require.NotEqual(t, res.JournalID, again.JournalID)
}

func TestPostBankMatchAndUndo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "2024-03-10")
	account := f.mem.SeedBankAccount(banking.BankAccount{CompanyID: actor.CompanyID, Name: "Operating"})
	txn := f.mem.SeedBankTransaction(banking.Transaction{
		CompanyID: actor.CompanyID, BankAccountID: account.ID, TxDate: shared.MustDate("2024-02-15"),
		Description: "Office rent", Amount: -shared.MustMoney("500.00"),
	})

	res, err := f.svc.PostBankMatch(ctx, actor, txn.ID, "5000")
	require.NoError(t, err)
	matched := f.mem.BankTransaction(txn.ID)
	require.True(t, matched.Matched)
	require.Equal(t, res.JournalID, *matched.JournalID)

	_, err = f.svc.PostBankMatch(ctx, actor, txn.ID, "5000")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.bank.UndoMatch(ctx, actor, txn.ID)
	require.NoError(t, err)
	cleared := f.mem.BankTransaction(txn.ID)
	require.False(t, cleared.Matched)
	require.Nil(t, cleared.JournalID)
	require.Zero(t, f.mem.Balances(actor.CompanyID)["1010"])
}

func TestRegisterDocumentRejectsTotalWithinTolerance(t *testing.T) {
	f := newFixture(t, "2024-03-10")
	_, err := f.svc.RegisterDocument(context.Background(), actor, subledger.Document{
		Kind:     subledger.KindInvoice,
		Number:   "INV-TINY",
		DocDate:  shared.MustDate("2024-01-10"),
		Subtotal: shared.MustMoney("0.01"),
		Total:    shared.MustMoney("0.01"),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}
