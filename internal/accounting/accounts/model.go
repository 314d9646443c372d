package accounts

import "time"

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Account models a chart of accounts node. Balances are always derived from
// journal lines and never stored here.
type Account struct {
	ID        int64
	CompanyID int64
	Code      string
	Name      string
	Type      AccountType
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Setting keys naming the logical account roles used by postings.
const (
	KeyAR                      = "ar_account"
	KeyAP                      = "ap_account"
	KeyVATOutput               = "vat_output_account"
	KeyVATInput                = "vat_input_account"
	KeyVATControl              = "vat_control_account"
	KeyBank                    = "bank_account"
	KeySalesRevenue            = "sales_revenue_account"
	KeyPurchaseExpense         = "purchase_expense_account"
	KeyFixedAsset              = "fixed_asset_account"
	KeyAccumulatedDepreciation = "accumulated_depreciation_account"
	KeyDepreciationExpense     = "depreciation_expense_account"
	KeyDisposalGain            = "disposal_gain_account"
	KeyDisposalLoss            = "disposal_loss_account"
)

// Defaults are used when a company has no (or a blank) override.
var Defaults = map[string]string{
	KeyAR:                      "1200",
	KeyAP:                      "2110",
	KeyVATOutput:               "2120",
	KeyVATInput:                "2130",
	KeyVATControl:              "2140",
	KeyBank:                    "1010",
	KeySalesRevenue:            "4000",
	KeyPurchaseExpense:         "5000",
	KeyFixedAsset:              "1500",
	KeyAccumulatedDepreciation: "1590",
	KeyDepreciationExpense:     "6100",
	KeyDisposalGain:            "4910",
	KeyDisposalLoss:            "6910",
}
