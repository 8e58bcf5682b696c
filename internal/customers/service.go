package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/palletworks/palletworks-backend/pkg/db"
	"github.com/palletworks/palletworks-backend/pkg/db/models"
	"github.com/palletworks/palletworks-backend/pkg/enums"
	pkgerrors "github.com/palletworks/palletworks-backend/pkg/errors"
	"github.com/palletworks/palletworks-backend/pkg/logger"
)

// ResolveInput carries the identity fields declared by a payment event.
type ResolveInput struct {
	MerchantID uuid.UUID
	Name       string
	Phone      string
	Email      string
}

// Resolver finds or creates the customer account owning an order. Phone
// matches take precedence over email matches, and a matched account is
// refined in place rather than duplicated.
type Resolver struct {
	repo   Repository
	forced map[uuid.UUID]uuid.UUID
	logg   *logger.Logger
}

// ResolverParams bundles the resolver dependencies.
type ResolverParams struct {
	Repo Repository
	// ForcedAccounts maps a merchant id to a fixed customer account id that
	// bypasses identity resolution for that merchant's events.
	ForcedAccounts map[string]string
	Logger         *logger.Logger
}

// NewResolver builds a customer identity resolver.
func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	forced := map[uuid.UUID]uuid.UUID{}
	for rawMerchant, rawCustomer := range params.ForcedAccounts {
		merchantID, err := uuid.Parse(strings.TrimSpace(rawMerchant))
		if err != nil {
			return nil, fmt.Errorf("forced account merchant id %q: %w", rawMerchant, err)
		}
		customerID, err := uuid.Parse(strings.TrimSpace(rawCustomer))
		if err != nil {
			return nil, fmt.Errorf("forced account customer id %q: %w", rawCustomer, err)
		}
		forced[merchantID] = customerID
	}

	return &Resolver{
		repo:   params.Repo,
		forced: forced,
		logg:   params.Logger,
	}, nil
}

// Resolve returns the account owning the order, creating one when no phone
// or email match exists. It runs inside the caller's transaction when tx is
// non-nil.
func (r *Resolver) Resolve(ctx context.Context, tx *gorm.DB, input ResolveInput) (*models.Customer, error) {
	repo := r.repo.WithTx(tx)

	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))

	if forced := r.resolveForced(ctx, repo, input.MerchantID); forced != nil {
		return forced, nil
	}

	if input.Phone == "" && input.Email == "" {
		r.logg.Warn(ctx, "event declared neither phone nor email, high risk of duplicate account")
	}

	existing, err := r.lookup(ctx, repo, input)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := r.refine(ctx, repo, existing, input); err != nil {
			return nil, err
		}
		return existing, nil
	}

	return r.create(ctx, repo, input)
}

// resolveForced applies the per-merchant forced identity setting. A missing
// target account logs a warning and falls back to normal resolution instead
// of failing the run.
func (r *Resolver) resolveForced(ctx context.Context, repo Repository, merchantID uuid.UUID) *models.Customer {
	customerID, ok := r.forced[merchantID]
	if !ok {
		return nil
	}

	logCtx := r.logg.WithFields(ctx, map[string]any{
		"merchant_id":        merchantID.String(),
		"forced_customer_id": customerID.String(),
	})

	customer, err := repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.logg.Warn(logCtx, "forced identity target missing, falling back to normal resolution")
			return nil
		}
		r.logg.Error(logCtx, "forced identity lookup failed, falling back to normal resolution", err)
		return nil
	}

	r.logg.Info(logCtx, "identity resolution bypassed by forced account setting")
	return customer
}

func (r *Resolver) lookup(ctx context.Context, repo Repository, input ResolveInput) (*models.Customer, error) {
	if input.Phone != "" {
		customer, err := repo.FindByPhone(ctx, input.Phone)
		if err == nil {
			return customer, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup customer by phone")
		}
	}

	if input.Email != "" {
		customer, err := repo.FindByEmail(ctx, input.Email)
		if err == nil {
			return customer, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup customer by email")
		}
	}

	return nil, nil
}

// refine updates a matched account with newly declared fields. When the
// declared email already belongs to a different account the existing email
// is kept and the conflict is logged; name and phone still update.
func (r *Resolver) refine(ctx context.Context, repo Repository, customer *models.Customer, input ResolveInput) error {
	updates := map[string]any{}

	if input.Name != "" && input.Name != customer.Name {
		updates["name"] = input.Name
		customer.Name = input.Name
	}

	if input.Phone != "" && (customer.Phone == nil || *customer.Phone != input.Phone) {
		phone := input.Phone
		updates["phone"] = phone
		customer.Phone = &phone
	}

	if input.Email != "" && (customer.Email == nil || *customer.Email != input.Email) {
		conflict, err := r.emailBelongsToOther(ctx, repo, customer.ID, input.Email)
		if err != nil {
			return err
		}
		if conflict {
			logCtx := r.logg.WithFields(ctx, map[string]any{
				"customer_id":    customer.ID.String(),
				"declared_email": input.Email,
			})
			r.logg.Warn(logCtx, "declared email owned by another account, keeping existing email")
		} else {
			email := input.Email
			updates["email"] = email
			customer.Email = &email
		}
	}

	if len(updates) == 0 {
		return nil
	}

	if err := repo.Update(ctx, customer.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer")
	}
	return nil
}

func (r *Resolver) emailBelongsToOther(ctx context.Context, repo Repository, selfID uuid.UUID, email string) (bool, error) {
	owner, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email ownership")
	}
	return owner.ID != selfID, nil
}

func (r *Resolver) create(ctx context.Context, repo Repository, input ResolveInput) (*models.Customer, error) {
	customer := &models.Customer{
		Name: input.Name,
		Role: enums.CustomerRoleRetailer,
	}
	if input.MerchantID != uuid.Nil {
		merchantID := input.MerchantID
		customer.MerchantID = &merchantID
	}
	if input.Phone != "" {
		phone := input.Phone
		customer.Phone = &phone
	}
	if input.Email != "" {
		email := input.Email
		customer.Email = &email
	}

	created, err := repo.Create(ctx, customer)
	if err != nil {
		// A concurrent run may have created the same identity first; the
		// unique indexes on phone/email turn that race into a lookup.
		if pkgdb.IsUniqueViolation(err, "") {
			existing, lookupErr := r.lookup(ctx, repo, input)
			if lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
	}

	logCtx := r.logg.WithFields(ctx, map[string]any{"customer_id": created.ID.String()})
	r.logg.Info(logCtx, "customer account created")
	return created, nil
}
