package postinghttp

import (
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/assets"
	"github.com/odyssey-erp/odyssey-gl/internal/posting"
	"github.com/odyssey-erp/odyssey-gl/internal/subledger"
	"github.com/odyssey-erp/odyssey-gl/internal/vat"
)

// Amounts travel as decimal strings, e.g. "115.00".

type documentRequest struct {
	Kind      string       `json:"kind" validate:"required,oneof=invoice bill credit_note vendor_credit"`
	Number    string       `json:"number" validate:"required,max=64"`
	PartyID   int64        `json:"party_id" validate:"gte=0"`
	Date      string       `json:"date" validate:"required,datetime=2006-01-02"`
	Subtotal  shared.Money `json:"subtotal" validate:"gte=0"`
	Tax       shared.Money `json:"tax" validate:"gte=0"`
	Total     shared.Money `json:"total" validate:"gte=0"`
	AccountID *int64       `json:"account_id,omitempty" validate:"omitempty,gt=0"`
}

type targetRequest struct {
	DocumentID int64        `json:"document_id" validate:"required,gt=0"`
	Amount     shared.Money `json:"amount" validate:"gt=0"`
}

type allocationsRequest struct {
	Allocations []targetRequest `json:"allocations" validate:"dive"`
}

type reallocateRequest struct {
	Allocations []targetRequest `json:"allocations" validate:"required,min=1,dive"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type paymentRequest struct {
	Kind          string       `json:"kind" validate:"required,oneof=receipt disbursement"`
	PartyID       int64        `json:"party_id" validate:"gte=0"`
	Date          string       `json:"date" validate:"required,datetime=2006-01-02"`
	Amount        shared.Money `json:"amount" validate:"gt=0"`
	Reference     string       `json:"reference" validate:"max=128"`
	BankAccountID *int64       `json:"bank_account_id,omitempty" validate:"omitempty,gt=0"`
}

type allocateRequest struct {
	SourceKind string       `json:"source_kind" validate:"required,oneof=payment credit"`
	SourceID   int64        `json:"source_id" validate:"required,gt=0"`
	DocumentID int64        `json:"document_id" validate:"required,gt=0"`
	Amount     shared.Money `json:"amount" validate:"gt=0"`
	Date       string       `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type lineRequest struct {
	AccountCode string       `json:"account_code" validate:"required"`
	Description string       `json:"description"`
	Debit       shared.Money `json:"debit" validate:"gte=0"`
	Credit      shared.Money `json:"credit" validate:"gte=0"`
}

type journalRequest struct {
	Date        string        `json:"date" validate:"required,datetime=2006-01-02"`
	Reference   string        `json:"reference"`
	Description string        `json:"description"`
	Module      string        `json:"module"`
	RefType     string        `json:"ref_type"`
	RefID       int64         `json:"ref_id"`
	SourceType  string        `json:"source_type" validate:"required"`
	SourceID    string        `json:"source_id" validate:"required,uuid"`
	Lines       []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type reverseRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type matchRequest struct {
	AccountCode string `json:"account_code" validate:"required"`
}

type vatPeriodRequest struct {
	Start string `json:"start" validate:"required,datetime=2006-01-02"`
	End   string `json:"end" validate:"required,datetime=2006-01-02"`
}

type adjustLineRequest struct {
	Kind        string       `json:"kind" validate:"required,oneof=output input"`
	Amount      shared.Money `json:"amount" validate:"ne=0"`
	Description string       `json:"description"`
}

type adjustRequest struct {
	Lines []adjustLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type assetRequest struct {
	Code             string       `json:"code" validate:"required,max=32"`
	Name             string       `json:"name" validate:"required"`
	AcquiredOn       string       `json:"acquired_on" validate:"required,datetime=2006-01-02"`
	Cost             shared.Money `json:"cost" validate:"gt=0"`
	Salvage          shared.Money `json:"salvage" validate:"gte=0"`
	UsefulLifeMonths int          `json:"useful_life_months" validate:"gt=0"`
	Method           string       `json:"method" validate:"required,oneof=straight_line declining_balance"`
}

type depreciationRequest struct {
	Period  string `json:"period" validate:"required,datetime=2006-01-02"`
	Itemize bool   `json:"itemize"`
}

type disposalRequest struct {
	Date     string       `json:"date" validate:"required,datetime=2006-01-02"`
	Proceeds shared.Money `json:"proceeds" validate:"gte=0"`
}

func targets(in []targetRequest) []subledger.Target {
	out := make([]subledger.Target, 0, len(in))
	for _, t := range in {
		out = append(out, subledger.Target{DocumentID: t.DocumentID, Amount: t.Amount})
	}
	return out
}

type resultResponse struct {
	JournalID     int64 `json:"journal_id"`
	AlreadyPosted bool  `json:"already_posted"`
}

func toResult(r posting.Result) resultResponse {
	return resultResponse{JournalID: r.JournalID, AlreadyPosted: r.AlreadyPosted}
}

type documentResponse struct {
	ID         int64        `json:"id"`
	Kind       string       `json:"kind"`
	Number     string       `json:"number"`
	Date       string       `json:"date"`
	Total      shared.Money `json:"total"`
	BalanceDue shared.Money `json:"balance_due"`
	Status     string       `json:"status"`
	JournalID  *int64       `json:"journal_id,omitempty"`
	PaidAt     *string      `json:"paid_at,omitempty"`
}

func toDocument(d subledger.Document) documentResponse {
	out := documentResponse{
		ID: d.ID, Kind: string(d.Kind), Number: d.Number, Date: d.DocDate.Format(shared.DateLayout),
		Total: d.Total, BalanceDue: d.BalanceDue, Status: string(d.Status()), JournalID: d.JournalID,
	}
	if d.PaidAt != nil {
		paid := d.PaidAt.Format(shared.DateLayout)
		out.PaidAt = &paid
	}
	return out
}

type paymentResponse struct {
	ID        int64        `json:"id"`
	Kind      string       `json:"kind"`
	Date      string       `json:"date"`
	Amount    shared.Money `json:"amount"`
	JournalID *int64       `json:"journal_id,omitempty"`
}

func toPayment(p subledger.Payment) paymentResponse {
	return paymentResponse{ID: p.ID, Kind: string(p.Kind), Date: p.PaymentDate.Format(shared.DateLayout), Amount: p.Amount, JournalID: p.JournalID}
}

type lineResponse struct {
	LineNo      int          `json:"line_no"`
	AccountCode string       `json:"account_code"`
	Description string       `json:"description,omitempty"`
	Debit       shared.Money `json:"debit"`
	Credit      shared.Money `json:"credit"`
}

type journalResponse struct {
	ID           int64          `json:"id"`
	Date         string         `json:"date"`
	Reference    string         `json:"reference,omitempty"`
	Description  string         `json:"description,omitempty"`
	SourceType   string         `json:"source_type"`
	SourceID     string         `json:"source_id"`
	Reversed     bool           `json:"reversed"`
	ReversalOfID *int64         `json:"reversal_of_id,omitempty"`
	Lines        []lineResponse `json:"lines"`
}

func toJournal(e journals.JournalEntry) journalResponse {
	out := journalResponse{
		ID: e.ID, Date: e.EntryDate.Format(shared.DateLayout), Reference: e.Reference, Description: e.Description,
		SourceType: e.SourceType, SourceID: e.SourceID.String(), Reversed: e.Reversed, ReversalOfID: e.ReversalOfID,
		Lines: make([]lineResponse, 0, len(e.Lines)),
	}
	for _, l := range e.Lines {
		out.Lines = append(out.Lines, lineResponse{LineNo: l.LineNo, AccountCode: l.AccountCode, Description: l.Description, Debit: l.Debit, Credit: l.Credit})
	}
	return out
}

type vatPeriodResponse struct {
	ID          int64        `json:"id"`
	Start       string       `json:"start"`
	End         string       `json:"end"`
	Status      string       `json:"status"`
	OutputVAT   shared.Money `json:"output_vat"`
	InputVAT    shared.Money `json:"input_vat"`
	NetVAT      shared.Money `json:"net_vat"`
	Adjustments int          `json:"adjustments"`
	JournalID   int64        `json:"journal_id,omitempty"`
}

func toVATPeriod(p vat.Period) vatPeriodResponse {
	return vatPeriodResponse{
		ID: p.ID, Start: p.PeriodStart.Format(shared.DateLayout), End: p.PeriodEnd.Format(shared.DateLayout),
		Status: string(p.Status), OutputVAT: p.OutputVAT, InputVAT: p.InputVAT, NetVAT: p.NetVAT, Adjustments: p.Adjustments,
	}
}

type assetResponse struct {
	ID          int64        `json:"id"`
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	Cost        shared.Money `json:"cost"`
	Accumulated shared.Money `json:"accumulated"`
	BookValue   shared.Money `json:"book_value"`
	Method      string       `json:"method"`
	DisposedOn  *time.Time   `json:"disposed_on,omitempty"`
}

func toAsset(a assets.Asset) assetResponse {
	return assetResponse{ID: a.ID, Code: a.Code, Name: a.Name, Cost: a.Cost, Accumulated: a.Accumulated,
		BookValue: a.BookValue(), Method: string(a.Method), DisposedOn: a.DisposedOn}
}
