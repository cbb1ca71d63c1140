package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/erpledger/erpledger/internal/apperr"
	"github.com/erpledger/erpledger/internal/logging"
	"github.com/erpledger/erpledger/internal/metrics"
	"github.com/erpledger/erpledger/internal/model"
	"github.com/erpledger/erpledger/internal/store"
)

// Registry owns the chart of accounts of every tenant.
type Registry struct {
	db       *gorm.DB
	cache    *TreeCache
	logger   *zap.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.logger = logging.OrNop(l) }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithTreeCache enables the chart snapshot cache.
func WithTreeCache(c *TreeCache) Option {
	return func(r *Registry) { r.cache = c }
}

// NewRegistry creates a Registry over db.
func NewRegistry(db *gorm.DB, opts ...Option) *Registry {
	r := &Registry{
		db:       db,
		logger:   zap.NewNop(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateParams holds parameters for creating an account.
type CreateParams struct {
	Code        string            `validate:"required,max=32"`
	Name        string            `validate:"required,max=200"`
	Type        model.AccountType `validate:"required"`
	ParentCode  string            `validate:"max=32"`
	Description string
}

// Create adds an account to the tenant's chart.
func (r *Registry) Create(ctx context.Context, tenantID string, p CreateParams) (model.Account, error) {
	var acct model.Account
	err := store.Transact(ctx, r.db, func(tx *gorm.DB) error {
		var err error
		acct, err = r.createTx(tx, tenantID, p)
		return err
	})
	if err != nil {
		return model.Account{}, err
	}

	r.cache.Invalidate(tenantID)
	r.metrics.AccountCreated()
	r.logger.Info("account created",
		zap.String("tenant", tenantID),
		zap.String("code", acct.Code),
		zap.String("type", string(acct.Type)),
		zap.String("parent", acct.ParentCode),
	)
	return acct, nil
}

func (r *Registry) createTx(tx *gorm.DB, tenantID string, p CreateParams) (model.Account, error) {
	if err := r.checkParams(tenantID, p); err != nil {
		return model.Account{}, err
	}

	exists, err := codeExists(tx, tenantID, p.Code)
	if err != nil {
		return model.Account{}, err
	}
	if exists {
		return model.Account{}, apperr.Validation(apperr.ErrDuplicateCode, p.Code, "")
	}

	if p.ParentCode != "" {
		ok, err := codeExists(tx, tenantID, p.ParentCode)
		if err != nil {
			return model.Account{}, err
		}
		if !ok {
			return model.Account{}, apperr.NotFound(apperr.ErrParentNotFound, p.ParentCode)
		}
	}

	rec := store.FromAccount(model.Account{
		TenantID:    tenantID,
		Code:        p.Code,
		Name:        p.Name,
		Type:        p.Type,
		ParentCode:  p.ParentCode,
		Description: p.Description,
		Active:      true,
	})
	if err := tx.Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.Account{}, apperr.Validation(apperr.ErrDuplicateCode, p.Code, "")
		}
		return model.Account{}, fmt.Errorf("creating account %s: %w", p.Code, err)
	}
	return rec.ToAccount(), nil
}

func (r *Registry) checkParams(tenantID string, p CreateParams) error {
	if strings.TrimSpace(tenantID) == "" {
		return apperr.Validation(apperr.ErrInvalidInput, "tenant", "tenant is required")
	}
	if err := r.validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.Validation(apperr.ErrInvalidInput, fe.Field(), "%s failed %q validation", fe.Field(), fe.Tag())
		}
		return apperr.Validation(apperr.ErrInvalidInput, "", "%v", err)
	}
	if !p.Type.Valid() {
		return apperr.Validation(apperr.ErrInvalidAccountType, string(p.Type), "")
	}
	if p.ParentCode == p.Code {
		return apperr.Validation(apperr.ErrCycleDetected, p.Code, "account cannot be its own parent")
	}
	return nil
}

func codeExists(tx *gorm.DB, tenantID, code string) (bool, error) {
	var n int64
	err := tx.Model(&store.AccountRecord{}).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("looking up account %s: %w", code, err)
	}
	return n > 0, nil
}

// Get returns an account by code.
func (r *Registry) Get(ctx context.Context, tenantID, code string) (model.Account, error) {
	return getAccount(r.db.WithContext(ctx), tenantID, code)
}

func getAccount(tx *gorm.DB, tenantID, code string) (model.Account, error) {
	var rec store.AccountRecord
	err := tx.Where("tenant_id = ? AND code = ?", tenantID, code).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Account{}, apperr.NotFound(apperr.ErrAccountNotFound, code)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("loading account %s: %w", code, err)
	}
	return rec.ToAccount(), nil
}

// Exists reports whether an account code exists for the tenant.
func (r *Registry) Exists(ctx context.Context, tenantID, code string) (bool, error) {
	return codeExists(r.db.WithContext(ctx), tenantID, code)
}

// List returns all accounts of a tenant ordered by code.
func (r *Registry) List(ctx context.Context, tenantID string) ([]model.Account, error) {
	return listAccounts(r.db.WithContext(ctx), tenantID)
}

func listAccounts(tx *gorm.DB, tenantID string) ([]model.Account, error) {
	var recs []store.AccountRecord
	if err := tx.Where("tenant_id = ?", tenantID).Order("code ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	out := make([]model.Account, len(recs))
	for i, rec := range recs {
		out[i] = rec.ToAccount()
	}
	return out, nil
}

// ByType returns all accounts of the given type.
func (r *Registry) ByType(ctx context.Context, tenantID string, accountType model.AccountType) ([]model.Account, error) {
	all, err := r.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var result []model.Account
	for _, a := range all {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result, nil
}

// Chart returns the tenant's chart snapshot, from cache when possible.
func (r *Registry) Chart(ctx context.Context, tenantID string) (*Chart, error) {
	if c, ok := r.cache.Get(tenantID); ok {
		r.metrics.TreeCache(true)
		return c, nil
	}
	if r.cache != nil {
		r.metrics.TreeCache(false)
	}

	gen := r.cache.Generation(tenantID)
	accts, err := r.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	c := NewChart(accts)
	r.cache.Set(tenantID, gen, c)
	return c, nil
}

// Tree returns the tenant's account hierarchy. It is built from a single
// scan of the accounts table and linked in memory.
func (r *Registry) Tree(ctx context.Context, tenantID string) ([]*Node, error) {
	c, err := r.Chart(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return c.Tree()
}

// Move re-parents an account. An empty newParent makes it a root. Moving an
// account beneath one of its own descendants is rejected.
func (r *Registry) Move(ctx context.Context, tenantID, code, newParent string) (model.Account, error) {
	var moved model.Account
	err := store.Transact(ctx, r.db, func(tx *gorm.DB) error {
		accts, err := listAccounts(store.ForUpdate(tx), tenantID)
		if err != nil {
			return err
		}
		c := NewChart(accts)

		acct, ok := c.Get(code)
		if !ok {
			return apperr.NotFound(apperr.ErrAccountNotFound, code)
		}
		if newParent != "" {
			if _, ok := c.Get(newParent); !ok {
				return apperr.NotFound(apperr.ErrParentNotFound, newParent)
			}
			if newParent == code || c.IsAncestor(code, newParent) {
				return apperr.Validation(apperr.ErrCycleDetected, newParent, "%s is %s or one of its descendants", newParent, code)
			}
		}

		if err := tx.Model(&store.AccountRecord{}).
			Where("tenant_id = ? AND code = ?", tenantID, code).
			Update("parent_code", newParent).Error; err != nil {
			return fmt.Errorf("moving account %s: %w", code, err)
		}
		acct.ParentCode = newParent
		moved = acct
		return nil
	})
	if err != nil {
		return model.Account{}, err
	}

	r.cache.Invalidate(tenantID)
	r.logger.Info("account moved", zap.String("tenant", tenantID), zap.String("code", code), zap.String("parent", newParent))
	return moved, nil
}

// Deactivate marks an account inactive. Accounts are never deleted.
func (r *Registry) Deactivate(ctx context.Context, tenantID, code string) error {
	res := r.db.WithContext(ctx).Model(&store.AccountRecord{}).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		Update("active", false)
	if res.Error != nil {
		return fmt.Errorf("deactivating account %s: %w", code, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(apperr.ErrAccountNotFound, code)
	}

	r.cache.Invalidate(tenantID)
	r.logger.Info("account deactivated", zap.String("tenant", tenantID), zap.String("code", code))
	return nil
}

// Import creates the given accounts in one transaction, parents before
// children. Codes that already exist are skipped. It returns the number of
// accounts created.
func (r *Registry) Import(ctx context.Context, tenantID string, accts []model.Account) (int, error) {
	created := 0
	err := store.Transact(ctx, r.db, func(tx *gorm.DB) error {
		existing, err := listAccounts(tx, tenantID)
		if err != nil {
			return err
		}
		known := make(map[string]bool, len(existing)+len(accts))
		for _, a := range existing {
			known[a.Code] = true
		}

		pending := make([]model.Account, 0, len(accts))
		for _, a := range accts {
			if !known[a.Code] {
				pending = append(pending, a)
			}
		}

		for len(pending) > 0 {
			var next []model.Account
			for _, a := range pending {
				if a.ParentCode != "" && !known[a.ParentCode] {
					next = append(next, a)
					continue
				}
				if known[a.Code] {
					continue
				}
				acct, err := r.createTx(tx, tenantID, CreateParams{
					Code:        a.Code,
					Name:        a.Name,
					Type:        a.Type,
					ParentCode:  a.ParentCode,
					Description: a.Description,
				})
				if err != nil {
					return err
				}
				if !a.Active {
					if err := tx.Model(&store.AccountRecord{}).
						Where("tenant_id = ? AND code = ?", tenantID, a.Code).
						Update("active", false).Error; err != nil {
						return fmt.Errorf("deactivating account %s: %w", a.Code, err)
					}
				}
				known[acct.Code] = true
				created++
			}
			if len(next) == len(pending) {
				return apperr.NotFound(apperr.ErrParentNotFound, next[0].ParentCode)
			}
			pending = next
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.cache.Invalidate(tenantID)
	r.logger.Info("accounts imported", zap.String("tenant", tenantID), zap.Int("created", created))
	return created, nil
}

// Seed imports the default chart for a tenant.
func (r *Registry) Seed(ctx context.Context, tenantID string) (int, error) {
	chart := DefaultChart()
	for i := range chart {
		chart[i].Active = true
	}
	return r.Import(ctx, tenantID, chart)
}
