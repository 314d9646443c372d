package subledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

func TestRecomputeWalksLifecycle(t *testing.T) {
	doc := Document{Kind: KindInvoice, Total: shared.MustMoney("115.00"), BalanceDue: shared.MustMoney("115.00")}
	require.Equal(t, StatusOpen, doc.Status())

	doc = Recompute(doc, shared.MustMoney("60.00"), shared.MustDate("2024-01-20"))
	require.Equal(t, shared.MustMoney("55.00"), doc.BalanceDue)
	require.Equal(t, StatusPartPaid, doc.Status())
	require.Nil(t, doc.PaidAt)

	doc = Recompute(doc, shared.MustMoney("115.00"), shared.MustDate("2024-01-25"))
	require.Equal(t, StatusPaid, doc.Status())
	require.Equal(t, shared.MustDate("2024-01-25"), *doc.PaidAt)

	// A later recompute that stays paid keeps the original stamp.
	doc = Recompute(doc, shared.MustMoney("115.00"), shared.MustDate("2024-02-01"))
	require.Equal(t, shared.MustDate("2024-01-25"), *doc.PaidAt)

	doc = Recompute(doc, shared.MustMoney("15.00"), shared.MustDate("2024-02-02"))
	require.Equal(t, StatusPartPaid, doc.Status())
	require.Nil(t, doc.PaidAt)
}

func TestRecomputeClampsBalance(t *testing.T) {
	doc := Document{Total: 1000, BalanceDue: 1000}
	require.Zero(t, Recompute(doc, 1500, shared.MustDate("2024-01-01")).BalanceDue)
	require.Equal(t, shared.Money(1000), Recompute(doc, -50, shared.MustDate("2024-01-01")).BalanceDue)
}

func TestCancelledWinsOverBalance(t *testing.T) {
	doc := Document{Total: 1000, BalanceDue: 0, Cancelled: true}
	require.Equal(t, StatusCancelled, doc.Status())
}

func TestDocumentValidate(t *testing.T) {
	date := shared.MustDate("2024-01-10")
	cases := []struct {
		name string
		doc  Document
		ok   bool
	}{
		{"valid", Document{Kind: KindInvoice, DocDate: date, Subtotal: 100, Tax: 15, Total: 115}, true},
		{"unknown kind", Document{Kind: "quote", DocDate: date, Subtotal: 100, Total: 100}, false},
		{"missing date", Document{Kind: KindBill, Subtotal: 100, Total: 100}, false},
		{"negative tax", Document{Kind: KindBill, DocDate: date, Subtotal: 120, Tax: -20, Total: 100}, false},
		{"total mismatch", Document{Kind: KindCreditNote, DocDate: date, Subtotal: 100, Tax: 15, Total: 110}, false},
		{"zero total", Document{Kind: KindVendorCredit, DocDate: date}, false},
		{"total within tolerance", Document{Kind: KindInvoice, DocDate: date, Subtotal: 1, Total: 1}, false},
		{"smallest payable total", Document{Kind: KindInvoice, DocDate: date, Subtotal: 2, Total: 2}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.doc.Validate()
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestReallocationInputValidate(t *testing.T) {
	require.Error(t, ReallocationInput{}.Validate())
	require.Error(t, ReallocationInput{PaymentID: 1}.Validate())
	require.Error(t, ReallocationInput{PaymentID: 1, Allocations: []Target{{DocumentID: 2, Amount: 0}}}.Validate())
	require.NoError(t, ReallocationInput{PaymentID: 1, Allocations: []Target{{DocumentID: 2, Amount: 5}}}.Validate())
}

func TestPaymentKindSettles(t *testing.T) {
	require.Equal(t, KindInvoice, PaymentReceipt.Settles())
	require.Equal(t, KindBill, PaymentDisbursement.Settles())
	require.True(t, KindCreditNote.IsCredit())
	require.False(t, KindBill.IsCredit())
}
