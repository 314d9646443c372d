package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// Directory resolves logical account roles to GL account codes using
// per-company overrides with hard defaults.
type Directory struct {
	repo   Repository
	cache  *SettingsCache
	group  singleflight.Group
	logger *slog.Logger
}

// NewDirectory constructs a Directory. cache may be nil.
func NewDirectory(repo Repository, cache *SettingsCache, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{repo: repo, cache: cache, logger: logger}
}

// Get resolves key for the company, falling back to Defaults.
func (d *Directory) Get(ctx context.Context, companyID int64, key string) (string, error) {
	return d.GetOrDefault(ctx, companyID, key, Defaults[key])
}

// GetOrDefault resolves key, using fallback when no usable override exists.
func (d *Directory) GetOrDefault(ctx context.Context, companyID int64, key, fallback string) (string, error) {
	settings, err := d.settings(ctx, companyID)
	if err != nil {
		return "", err
	}
	if code := strings.TrimSpace(settings[key]); code != "" {
		return code, nil
	}
	if code := strings.TrimSpace(fallback); code != "" {
		return code, nil
	}
	return "", &shared.MissingAccountMappingError{Key: key}
}

// GetByID returns the code of an active account owned by the company.
func (d *Directory) GetByID(ctx context.Context, companyID, accountID int64) (string, error) {
	key := fmt.Sprintf("account#%d", accountID)
	if accountID <= 0 {
		return "", &shared.MissingAccountMappingError{Key: key}
	}
	account, err := d.repo.AccountByID(ctx, companyID, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", &shared.MissingAccountMappingError{Key: key}
		}
		return "", err
	}
	if !account.IsActive || account.CompanyID != companyID {
		return "", &shared.MissingAccountMappingError{Key: key}
	}
	return account.Code, nil
}

// Invalidate drops cached settings after an administrator changes them.
func (d *Directory) Invalidate(ctx context.Context, companyID int64) {
	if err := d.cache.Invalidate(ctx, companyID); err != nil {
		d.logger.Warn("account settings invalidate", slog.Int64("company_id", companyID), slog.Any("error", err))
	}
}

func (d *Directory) settings(ctx context.Context, companyID int64) (map[string]string, error) {
	cached, ok, err := d.cache.Load(ctx, companyID)
	if err != nil {
		d.logger.Warn("account settings cache read", slog.Int64("company_id", companyID), slog.Any("error", err))
	}
	if ok {
		return cached, nil
	}
	v, err, _ := d.group.Do(fmt.Sprintf("%d", companyID), func() (interface{}, error) {
		settings, err := d.repo.Settings(ctx, companyID)
		if err != nil {
			return nil, err
		}
		if err := d.cache.Store(ctx, companyID, settings); err != nil {
			d.logger.Warn("account settings cache write", slog.Int64("company_id", companyID), slog.Any("error", err))
		}
		return settings, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}
