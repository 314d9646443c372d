package banking

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

func TestFirstMatchUsesAscendingPriority(t *testing.T) {
	rules := SortRules([]Rule{
		{ID: 1, MatchField: FieldDescription, MatchOperator: OpContains, MatchValue: "fee", Priority: 20, Active: true},
		{ID: 2, MatchField: FieldDescription, MatchOperator: OpContains, MatchValue: "bank", Priority: 10, Active: true},
		{ID: 3, MatchField: FieldDescription, MatchOperator: OpContains, MatchValue: "bank fee", Priority: 1, Active: false},
	})
	tx := Transaction{Description: "Monthly BANK Fee"}

	for i := 0; i < 3; i++ {
		rule, ok := FirstMatch(rules, tx)
		require.True(t, ok)
		require.Equal(t, int64(2), rule.ID)
	}
}

func TestFirstMatchBreaksTiesByID(t *testing.T) {
	rules := SortRules([]Rule{
		{ID: 9, MatchField: FieldReference, MatchOperator: OpEquals, MatchValue: "x", Priority: 5, Active: true},
		{ID: 4, MatchField: FieldReference, MatchOperator: OpEquals, MatchValue: "X", Priority: 5, Active: true},
	})
	rule, ok := FirstMatch(rules, Transaction{Reference: "x"})
	require.True(t, ok)
	require.Equal(t, int64(4), rule.ID)
}

func TestRuleOperators(t *testing.T) {
	tx := Transaction{Description: "Stripe payout 1234", Reference: "REF-9", Counterparty: "École Lumière"}
	cases := []struct {
		rule Rule
		want bool
	}{
		{Rule{MatchField: FieldDescription, MatchOperator: OpStartsWith, MatchValue: "stripe"}, true},
		{Rule{MatchField: FieldDescription, MatchOperator: OpStartsWith, MatchValue: "payout"}, false},
		{Rule{MatchField: FieldDescription, MatchOperator: OpEquals, MatchValue: "STRIPE PAYOUT 1234"}, true},
		{Rule{MatchField: FieldReference, MatchOperator: OpContains, MatchValue: "ref"}, true},
		{Rule{MatchField: FieldCounterparty, MatchOperator: OpEquals, MatchValue: "ÉCOLE LUMIÈRE"}, true},
		{Rule{MatchField: FieldDescription, MatchOperator: OpContains, MatchValue: "   "}, false},
		{Rule{MatchField: "memo", MatchOperator: OpContains, MatchValue: "stripe"}, false},
		{Rule{MatchField: FieldDescription, MatchOperator: "regex", MatchValue: "stripe"}, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.rule.Matches(tx), "%+v", tc.rule)
	}
}

func TestMatchPostingDirectionFollowsSign(t *testing.T) {
	in := MatchPosting(Transaction{ID: 5, Amount: 2500, TxDate: shared.MustDate("2024-03-01")}, "1010", "6200")
	require.Equal(t, "1010", in.Lines[0].AccountCode)
	require.Equal(t, shared.Money(2500), in.Lines[0].Debit)
	require.Equal(t, "6200", in.Lines[1].AccountCode)

	out := MatchPosting(Transaction{ID: 6, Amount: -2500, TxDate: shared.MustDate("2024-03-01")}, "1010", "6200")
	require.Equal(t, "6200", out.Lines[0].AccountCode)
	require.Equal(t, shared.Money(2500), out.Lines[0].Debit)
	require.Equal(t, "1010", out.Lines[1].AccountCode)
	require.Equal(t, shared.Money(2500), out.Lines[1].Credit)
	require.NoError(t, out.Validate())
}
