// Package postinghttp exposes the posting engine over JSON. Every call
// answers with one success payload or one RFC7807 problem.
package postinghttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/assets"
	"github.com/odyssey-erp/odyssey-gl/internal/banking"
	"github.com/odyssey-erp/odyssey-gl/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-gl/internal/posting"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/subledger"
	"github.com/odyssey-erp/odyssey-gl/internal/vat"
)

// PostingService is satisfied by *posting.Service.
type PostingService interface {
	RegisterDocument(ctx context.Context, actor internalshared.Actor, doc subledger.Document) (subledger.Document, error)
	PostInvoice(ctx context.Context, actor internalshared.Actor, documentID int64) (posting.Result, error)
	PostAPBill(ctx context.Context, actor internalshared.Actor, documentID int64) (posting.Result, error)
	PostCreditNote(ctx context.Context, actor internalshared.Actor, documentID int64, allocations []subledger.Target) (posting.Result, error)
	PostVendorCredit(ctx context.Context, actor internalshared.Actor, documentID int64, allocations []subledger.Target) (posting.Result, error)
	CancelDocument(ctx context.Context, actor internalshared.Actor, documentID int64, reason string) (subledger.Document, error)
	RegisterPayment(ctx context.Context, actor internalshared.Actor, p subledger.Payment) (subledger.Payment, error)
	PostCustomerPayment(ctx context.Context, actor internalshared.Actor, paymentID int64, allocations []subledger.Target) (posting.Result, error)
	PostSupplierPayment(ctx context.Context, actor internalshared.Actor, paymentID int64, allocations []subledger.Target) (posting.Result, error)
	Allocate(ctx context.Context, actor internalshared.Actor, in subledger.AllocationInput) (subledger.Document, error)
	Reallocate(ctx context.Context, actor internalshared.Actor, in subledger.ReallocationInput) (posting.Result, error)
	RegisterAsset(ctx context.Context, actor internalshared.Actor, a assets.Asset) (assets.Asset, error)
	PostDepreciationRun(ctx context.Context, actor internalshared.Actor, in posting.DepreciationInput) (posting.Result, error)
	PostAssetDisposal(ctx context.Context, actor internalshared.Actor, in posting.DisposalInput) (posting.Result, error)
}

// JournalService is satisfied by *journals.Service.
type JournalService interface {
	PostJournal(ctx context.Context, actor internalshared.Actor, input journals.PostingInput) (journals.JournalEntry, error)
	GetJournal(ctx context.Context, actor internalshared.Actor, journalID int64) (journals.JournalEntry, error)
	ReverseJournal(ctx context.Context, actor internalshared.Actor, journalID int64, reason string) (journals.JournalEntry, error)
}

// BankService is satisfied by *banking.Service.
type BankService interface {
	ApplyRules(ctx context.Context, actor internalshared.Actor) (banking.ApplySummary, error)
	ManualMatch(ctx context.Context, actor internalshared.Actor, bankTxID int64, accountCode string) (banking.MatchResult, error)
	UndoMatch(ctx context.Context, actor internalshared.Actor, bankTxID int64) (int64, error)
}

// VATService is satisfied by *vat.Service.
type VATService interface {
	CreatePeriod(ctx context.Context, actor internalshared.Actor, start, end time.Time) (vat.Period, error)
	Prepare(ctx context.Context, actor internalshared.Actor, periodID int64) (vat.Period, error)
	File(ctx context.Context, actor internalshared.Actor, periodID int64) (vat.Period, error)
	Adjust(ctx context.Context, actor internalshared.Actor, periodID int64, lines []vat.AdjustmentLine) (vat.Period, int64, error)
}

// Handler serves the posting API.
type Handler struct {
	logger    *slog.Logger
	posting   PostingService
	journals  JournalService
	bank      BankService
	vat       VATService
	locks     LockService
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, postingSvc PostingService, journalSvc JournalService, bankSvc BankService, vatSvc VATService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{logger: logger, posting: postingSvc, journals: journalSvc, bank: bankSvc, vat: vatSvc, validator: v}
}

func (h *Handler) actor(r *http.Request) (internalshared.Actor, error) {
	actor, ok := internalshared.ActorFromContext(r.Context())
	if !ok {
		return internalshared.Actor{}, internalshared.ErrActorRequired
	}
	return actor, actor.Validate()
}

// decode reads and validates a JSON body. It writes the problem itself and
// reports false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", httpx.ErrBadRequest, err))
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			h.fail(w, r, shared.Invalid(fe.Namespace(), "failed "+fe.Tag()))
			return false
		}
		h.fail(w, r, fmt.Errorf("%w: %w", httpx.ErrBadRequest, err))
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error("posting api", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", httpx.ErrBadRequest, chi.URLParam(r, "id"))
	}
	return id, nil
}

// begin resolves the actor and path id shared by most routes.
func (h *Handler) begin(w http.ResponseWriter, r *http.Request, withID bool) (internalshared.Actor, int64, bool) {
	actor, err := h.actor(r)
	if err != nil {
		h.fail(w, r, err)
		return actor, 0, false
	}
	if !withID {
		return actor, 0, true
	}
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return actor, 0, false
	}
	return actor, id, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, body any, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, status, body)
}
