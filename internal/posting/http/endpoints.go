package postinghttp

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/assets"
	"github.com/odyssey-erp/odyssey-gl/internal/posting"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/subledger"
	"github.com/odyssey-erp/odyssey-gl/internal/vat"
)

func (h *Handler) handleRegisterDocument(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.begin(w, r, false)
	var req documentRequest
	if !ok || !h.decode(w, r, &req) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	doc, err := h.posting.RegisterDocument(r.Context(), actor, subledger.Document{
		Kind: subledger.DocumentKind(req.Kind), Number: req.Number, PartyID: req.PartyID, DocDate: date,
		Subtotal: req.Subtotal, Tax: req.Tax, Total: req.Total, AccountID: req.AccountID,
	})
	h.respond(w, r, http.StatusCreated, toDocument(doc), err)
}

func (h *Handler) handleCancelDocument(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.begin(w, r, true)
	var req cancelRequest
	if !ok || !h.decode(w, r, &req) {
		return
	}
	doc, err := h.posting.CancelDocument(r.Context(), actor, id, req.Reason)
	h.respond(w, r, http.StatusOK, toDocument(doc), err)
}

func (h *Handler) handlePostInvoice(w http.ResponseWriter, r *http.Request) {
	h.postSimple(w, r, h.posting.PostInvoice)
}

func (h *Handler) handlePostBill(w http.ResponseWriter, r *http.Request) {
	h.postSimple(w, r, h.posting.PostAPBill)
}

func (h *Handler) handlePostCreditNote(w http.ResponseWriter, r *http.Request) {
	h.postWithAllocations(w, r, h.posting.PostCreditNote)
}

func (h *Handler) handlePostVendorCredit(w http.ResponseWriter, r *http.Request) {
	h.postWithAllocations(w, r, h.posting.PostVendorCredit)
}

func (h *Handler) handlePostReceipt(w http.ResponseWriter, r *http.Request) {
	h.postWithAllocations(w, r, h.posting.PostCustomerPayment)
}

func (h *Handler) handlePostDisbursement(w http.ResponseWriter, r *http.Request) {
	h.postWithAllocations(w, r, h.posting.PostSupplierPayment)
}

type simplePoster func(ctx context.Context, actor internalshared.Actor, id int64) (posting.Result, error)

type allocatingPoster func(ctx context.Context, actor internalshared.Actor, id int64, allocations []subledger.Target) (posting.Result, error)

func (h *Handler) postSimple(w http.ResponseWriter, r *http.Request, post simplePoster) {
	actor, id, ok := h.begin(w, r, true)
	if !ok {
		return
	}
	res, err := post(r.Context(), actor, id)
	h.respond(w, r, postedStatus(res), toResult(res), err)
}

func (h *Handler) postWithAllocations(w http.ResponseWriter, r *http.Request, post allocatingPoster) {
	actor, id, ok := h.begin(w, r, true)
	if !ok {
		return
	}
	var req allocationsRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	res, err := post(r.Context(), actor, id, targets(req.Allocations))
	h.respond(w, r, postedStatus(res), toResult(res), err)
}

// postedStatus answers 200 for an idempotent replay and 201 otherwise.
func postedStatus(res posting.Result) int {
	if res.AlreadyPosted {
		return http.StatusOK
	}
	return http.StatusCreated
}

func (h *Handler) handleRegisterPayment(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.begin(w, r, false)
	var req paymentRequest
	if !ok || !h.decode(w, r, &req) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.posting.RegisterPayment(r.Context(), actor, subledger.Payment{
		Kind: subledger.PaymentKind(req.Kind), PartyID: req.PartyID, PaymentDate: date, Amount: req.Amount,
		Reference: req.Reference, BankAccountID: req.BankAccountID,
	})
	h.respond(w, r, http.StatusCreated, toPayment(p), err)
}

func (h *Handler) handleReallocate(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.begin(w, r, true)
	var req reallocateRequest
	if !ok || !h.decode(w, r, &req) {
		return
	}
	res, err := h.posting.Reallocate(r.Context(), actor, subledger.ReallocationInput{PaymentID: id, Allocations: targets(req.Allocations)})
	h.respond(w, r, http.StatusOK, toResult(res), err)
}

func (h *Handler) handleAllocate(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.begin(w, r, false)
	var req allocateRequest
	if !ok || !h.decode(w, r, &req) {
		return
	}
	in := subledger.AllocationInput{
		SourceKind: subledger.SourceKind(req.SourceKind), SourceID: req.SourceID, DocumentID: req.DocumentID, Amount: req.Amount,
	}
	if req.Date != "" {
		date, err := parseDate("date", req.Date)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		in.Date = date
	}
	doc, err := h.posting.Allocate(r.Context(), actor, in)
	h.respond(w, r, http.StatusOK, toDocument(doc), err)
}

func (h *Handler) handlePostJournal(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.begin(w, r, false)
	var req journalRequest
	if !ok || !h.decode(w, r, &req) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sourceID, err := uuid.Parse(req.SourceID)
	if err != nil {
		h.fail(w, r, shared.Invalid("source_id", "must be a uuid"))
		return
	}
	in := journals.PostingInput{
		EntryDate: date, Reference: req.Reference, Description: req.Description, Module: req.Module,
		RefType: req.RefType, RefID: req.RefID, SourceType: req.SourceType, SourceID: sourceID,
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, journals.LineInput{AccountCode: l.AccountCode, Description: l.Description, Debit: l.Debit, Credit: l.Credit})
	}
	entry, err := h.journals.PostJournal(r.Context(), actor, in)
	h.respond(w, r, http.StatusCreated, toJournal(entry), err)
}

func (h *Handler) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.begin(w, r, true)
	if !ok {
		return
	}
	entry, err := h.journals.GetJournal(r.Context(), actor, id)
	h.respond(w, r, http.StatusOK, toJournal(entry), err)
}

func (h *Handler) handleReverseJournal(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.begin(w, r, true)
	var req reverseRequest
	if !ok || !h.decode(w, r, &req) {
		return
	}
	mirror, err := h.journals.ReverseJournal(r.Context(), actor, id, req.Reason)
	h.respond(w, r, http.StatusCreated, toJournal(mirror), err)
}

type applySummaryResponse struct {
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
	Locked    int `json:"locked"`
	Failed    int `json:"failed"`
}

func (h *Handler) handleApplyRules(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.begin(w, r, false)
	if !ok {
		return
	}
	sum, err := h.bank.ApplyRules(r.Context(), actor)
	h.respond(w, r, http.StatusOK, applySummaryResponse{Matched: sum.Matched, Unmatched: sum.Unmatched, Locked: sum.Locked, Failed: sum.Failed}, err)
}

type matchResponse struct {
	TransactionID int64  `json:"transaction_id"`
	JournalID     int64  `json:"journal_id"`
	RuleID        *int64 `json:"rule_id,omitempty"`
}

func (h *Handler) handleManualMatch(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.begin(w, r, true)
	var req matchRequest
	if !ok || !h.decode(w, r, &req) {
		return
	}
	res, err := h.bank.ManualMatch(r.Context(), actor, id, req.AccountCode)
	h.respond(w, r, http.StatusCreated, matchResponse{TransactionID: res.TransactionID, JournalID: res.JournalID, RuleID: res.RuleID}, err)
}

func (h *Handler) handleUndoMatch(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.begin(w, r, true)
	if !ok {
		return
	}
	reversalID, err := h.bank.UndoMatch(r.Context(), actor, id)
	h.respond(w, r, http.StatusOK, map[string]int64{"transaction_id": id, "reversal_journal_id": reversalID}, err)
}

func (h *Handler) handleCreateVATPeriod(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.begin(w, r, false)
	var req vatPeriodRequest
	if !ok || !h.decode(w, r, &req) {
		return
	}
	start, err := parseDate("start", req.Start)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	end, err := parseDate("end", req.End)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.vat.CreatePeriod(r.Context(), actor, start, end)
	h.respond(w, r, http.StatusCreated, toVATPeriod(p), err)
}

func (h *Handler) handlePrepareVAT(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.begin(w, r, true)
	if !ok {
		return
	}
	p, err := h.vat.Prepare(r.Context(), actor, id)
	h.respond(w, r, http.StatusOK, toVATPeriod(p), err)
}

func (h *Handler) handleFileVAT(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.begin(w, r, true)
	if !ok {
		return
	}
	p, err := h.vat.File(r.Context(), actor, id)
	h.respond(w, r, http.StatusOK, toVATPeriod(p), err)
}

func (h *Handler) handleAdjustVAT(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.begin(w, r, true)
	var req adjustRequest
	if !ok || !h.decode(w, r, &req) {
		return
	}
	lines := make([]vat.AdjustmentLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, vat.AdjustmentLine{Kind: vat.Kind(l.Kind), Amount: l.Amount, Description: l.Description})
	}
	p, journalID, err := h.vat.Adjust(r.Context(), actor, id, lines)
	body := toVATPeriod(p)
	body.JournalID = journalID
	h.respond(w, r, http.StatusOK, body, err)
}

func (h *Handler) handleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.begin(w, r, false)
	var req assetRequest
	if !ok || !h.decode(w, r, &req) {
		return
	}
	acquired, err := parseDate("acquired_on", req.AcquiredOn)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.posting.RegisterAsset(r.Context(), actor, assets.Asset{
		Code: req.Code, Name: req.Name, AcquiredOn: acquired, Cost: req.Cost, Salvage: req.Salvage,
		UsefulLifeMonths: req.UsefulLifeMonths, Method: assets.Method(req.Method),
	})
	h.respond(w, r, http.StatusCreated, toAsset(a), err)
}

func (h *Handler) handleDepreciationRun(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.begin(w, r, false)
	var req depreciationRequest
	if !ok || !h.decode(w, r, &req) {
		return
	}
	period, err := parseDate("period", req.Period)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.posting.PostDepreciationRun(r.Context(), actor, posting.DepreciationInput{Period: period, Itemize: req.Itemize})
	h.respond(w, r, postedStatus(res), toResult(res), err)
}

func (h *Handler) handleDisposeAsset(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.begin(w, r, true)
	var req disposalRequest
	if !ok || !h.decode(w, r, &req) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.posting.PostAssetDisposal(r.Context(), actor, posting.DisposalInput{AssetID: id, Date: date, Proceeds: req.Proceeds})
	h.respond(w, r, postedStatus(res), toResult(res), err)
}
