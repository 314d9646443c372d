package postinghttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/platform/httpx"
	internalshared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

const bulkRateLimit = 6
const bulkRateWindow = time.Minute

// MountRoutes registers the posting API.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(bulkRateLimit, bulkRateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "bulk posting rate limit reached")
		}),
	)

	r.Post("/documents", h.handleRegisterDocument)
	r.Post("/documents/{id}/cancel", h.handleCancelDocument)
	r.Post("/invoices/{id}/post", h.handlePostInvoice)
	r.Post("/bills/{id}/post", h.handlePostBill)
	r.Post("/credit-notes/{id}/post", h.handlePostCreditNote)
	r.Post("/vendor-credits/{id}/post", h.handlePostVendorCredit)

	r.Post("/payments", h.handleRegisterPayment)
	r.Post("/receipts/{id}/post", h.handlePostReceipt)
	r.Post("/disbursements/{id}/post", h.handlePostDisbursement)
	r.Post("/payments/{id}/reallocate", h.handleReallocate)
	r.Post("/allocations", h.handleAllocate)

	r.Post("/journals", h.handlePostJournal)
	r.Get("/journals/{id}", h.handleGetJournal)
	r.Post("/journals/{id}/reverse", h.handleReverseJournal)

	r.Post("/bank/transactions/{id}/match", h.handleManualMatch)
	r.Delete("/bank/transactions/{id}/match", h.handleUndoMatch)

	r.Post("/vat/periods", h.handleCreateVATPeriod)
	r.Post("/vat/periods/{id}/prepare", h.handlePrepareVAT)
	r.Post("/vat/periods/{id}/file", h.handleFileVAT)
	r.Post("/vat/periods/{id}/adjust", h.handleAdjustVAT)

	r.Post("/assets", h.handleRegisterAsset)
	r.Post("/assets/{id}/dispose", h.handleDisposeAsset)

	if h.locks != nil {
		r.Get("/period-locks/horizon", h.handleLockHorizon)
		r.Post("/period-locks", h.handleLockPeriod)
		r.Delete("/period-locks/{id}", h.handleReleaseLock)
	}

	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Post("/bank/rules/apply", h.handleApplyRules)
		gr.Post("/depreciation-runs", h.handleDepreciationRun)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if actor, ok := internalshared.ActorFromContext(r.Context()); ok && actor.CompanyID > 0 {
		return "company:" + strconv.FormatInt(actor.CompanyID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

func parseDate(field, value string) (time.Time, error) {
	d, err := shared.ParseDate(value)
	if err != nil {
		return time.Time{}, shared.Invalid(field, "must be YYYY-MM-DD")
	}
	return d, nil
}
