package customers

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/palletworks/palletworks-backend/pkg/db/models"
	"github.com/palletworks/palletworks-backend/pkg/enums"
	"github.com/palletworks/palletworks-backend/pkg/logger"
)

type fakeRepo struct {
	byID      map[uuid.UUID]*models.Customer
	byPhone   map[string]*models.Customer
	byEmail   map[string]*models.Customer
	createErr error
	created   []*models.Customer
	updates   []map[string]any

	// phoneMisses makes the first N phone lookups miss, simulating a
	// concurrent insert landing between lookup and create.
	phoneMisses int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byID:    map[uuid.UUID]*models.Customer{},
		byPhone: map[string]*models.Customer{},
		byEmail: map[string]*models.Customer{},
	}
}

func (f *fakeRepo) add(customer *models.Customer) *models.Customer {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	f.byID[customer.ID] = customer
	if customer.Phone != nil {
		f.byPhone[*customer.Phone] = customer
	}
	if customer.Email != nil {
		f.byEmail[*customer.Email] = customer
	}
	return customer
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	if customer, ok := f.byID[id]; ok {
		return customer, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) FindByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	if f.phoneMisses > 0 {
		f.phoneMisses--
		return nil, gorm.ErrRecordNotFound
	}
	if customer, ok := f.byPhone[phone]; ok {
		return customer, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	if customer, ok := f.byEmail[email]; ok {
		return customer, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) Create(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, customer)
	return f.add(customer), nil
}

func (f *fakeRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	f.updates = append(f.updates, updates)
	return nil
}

func newTestResolver(t *testing.T, repo Repository, forced map[string]string) *Resolver {
	t.Helper()

	resolver, err := NewResolver(ResolverParams{
		Repo:           repo,
		ForcedAccounts: forced,
		Logger:         logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return resolver
}

func strPtr(s string) *string { return &s }

func TestResolveMatchesByPhoneFirst(t *testing.T) {
	repo := newFakeRepo()
	byPhone := repo.add(&models.Customer{Name: "Old Name", Phone: strPtr("555-0100")})
	repo.add(&models.Customer{Name: "Email Owner", Email: strPtr("dana@example.com")})

	resolver := newTestResolver(t, repo, nil)
	got, err := resolver.Resolve(context.Background(), nil, ResolveInput{
		Name:  "Dana Retail",
		Phone: "555-0100",
		Email: "dana@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, byPhone.ID, got.ID)
	assert.Empty(t, repo.created)
}

func TestResolveRefinesMatchedAccount(t *testing.T) {
	repo := newFakeRepo()
	existing := repo.add(&models.Customer{Name: "Old Name", Phone: strPtr("555-0100")})

	resolver := newTestResolver(t, repo, nil)
	got, err := resolver.Resolve(context.Background(), nil, ResolveInput{
		Name:  "Dana Retail",
		Phone: "555-0100",
		Email: "dana@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, existing.ID, got.ID)
	assert.Equal(t, "Dana Retail", got.Name)
	require.NotNil(t, got.Email)
	assert.Equal(t, "dana@example.com", *got.Email)
	require.Len(t, repo.updates, 1)
	assert.Equal(t, "Dana Retail", repo.updates[0]["name"])
	assert.Equal(t, "dana@example.com", repo.updates[0]["email"])
}

func TestResolveKeepsEmailOwnedByAnotherAccount(t *testing.T) {
	repo := newFakeRepo()
	existing := repo.add(&models.Customer{
		Name:  "Dana Retail",
		Phone: strPtr("555-0100"),
		Email: strPtr("dana@old.com"),
	})
	repo.add(&models.Customer{Name: "Someone Else", Email: strPtr("taken@example.com")})

	resolver := newTestResolver(t, repo, nil)
	got, err := resolver.Resolve(context.Background(), nil, ResolveInput{
		Name:  "Dana Retail",
		Phone: "555-0100",
		Email: "taken@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, existing.ID, got.ID)
	require.NotNil(t, got.Email)
	assert.Equal(t, "dana@old.com", *got.Email)
	assert.Empty(t, repo.updates)
}

func TestResolveCreatesRetailerWhenNoMatch(t *testing.T) {
	repo := newFakeRepo()
	merchantID := uuid.New()

	resolver := newTestResolver(t, repo, nil)
	got, err := resolver.Resolve(context.Background(), nil, ResolveInput{
		MerchantID: merchantID,
		Name:       "Dana Retail",
		Phone:      "555-0100",
		Email:      "Dana@Example.com",
	})

	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, enums.CustomerRoleRetailer, got.Role)
	assert.Equal(t, "Dana Retail", got.Name)
	require.NotNil(t, got.MerchantID)
	assert.Equal(t, merchantID, *got.MerchantID)
	require.NotNil(t, got.Email)
	assert.Equal(t, "dana@example.com", *got.Email, "email is normalized to lower case")
}

func TestResolveCreatesAccountWithoutContactInfo(t *testing.T) {
	repo := newFakeRepo()

	resolver := newTestResolver(t, repo, nil)
	got, err := resolver.Resolve(context.Background(), nil, ResolveInput{Name: "Walk In"})

	require.NoError(t, err)
	assert.Equal(t, "Walk In", got.Name)
	assert.Nil(t, got.Phone)
	assert.Nil(t, got.Email)
}

func TestResolveForcedAccount(t *testing.T) {
	repo := newFakeRepo()
	merchantID := uuid.New()
	target := repo.add(&models.Customer{Name: "House Account"})

	resolver := newTestResolver(t, repo, map[string]string{
		merchantID.String(): target.ID.String(),
	})
	got, err := resolver.Resolve(context.Background(), nil, ResolveInput{
		MerchantID: merchantID,
		Name:       "Dana Retail",
		Phone:      "555-0100",
	})

	require.NoError(t, err)
	assert.Equal(t, target.ID, got.ID)
	assert.Empty(t, repo.created)
	assert.Empty(t, repo.updates, "forced resolution does not refine the target account")
}

func TestResolveForcedTargetMissingFallsBack(t *testing.T) {
	repo := newFakeRepo()
	merchantID := uuid.New()

	resolver := newTestResolver(t, repo, map[string]string{
		merchantID.String(): uuid.NewString(),
	})
	got, err := resolver.Resolve(context.Background(), nil, ResolveInput{
		MerchantID: merchantID,
		Name:       "Dana Retail",
		Phone:      "555-0100",
	})

	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "Dana Retail", got.Name)
}

func TestResolveForcedAccountOnlyAppliesToMappedMerchant(t *testing.T) {
	repo := newFakeRepo()
	target := repo.add(&models.Customer{Name: "House Account"})

	resolver := newTestResolver(t, repo, map[string]string{
		uuid.NewString(): target.ID.String(),
	})
	got, err := resolver.Resolve(context.Background(), nil, ResolveInput{
		MerchantID: uuid.New(),
		Name:       "Dana Retail",
		Phone:      "555-0100",
	})

	require.NoError(t, err)
	assert.NotEqual(t, target.ID, got.ID)
}

func TestResolveRecoversFromCreateRace(t *testing.T) {
	repo := newFakeRepo()
	winner := repo.add(&models.Customer{Name: "Dana Retail", Phone: strPtr("555-0100")})
	repo.phoneMisses = 1
	repo.createErr = errors.New("UNIQUE constraint failed: customers.phone")

	resolver := newTestResolver(t, repo, nil)
	got, err := resolver.Resolve(context.Background(), nil, ResolveInput{
		Name:  "Dana Retail",
		Phone: "555-0100",
	})

	require.NoError(t, err)
	assert.Equal(t, winner.ID, got.ID)
}

func TestResolveCreateRaceWithNoWinnerSurfacesError(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("UNIQUE constraint failed: customers.phone")

	resolver := newTestResolver(t, repo, nil)
	got, err := resolver.Resolve(context.Background(), nil, ResolveInput{
		Name:  "Dana Retail",
		Phone: "555-0100",
	})

	require.Error(t, err)
	assert.Nil(t, got)
}

func TestNewResolverRejectsMalformedForcedAccounts(t *testing.T) {
	_, err := NewResolver(ResolverParams{
		Repo:           newFakeRepo(),
		ForcedAccounts: map[string]string{"not-a-uuid": uuid.NewString()},
		Logger:         logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	assert.Error(t, err)
}
