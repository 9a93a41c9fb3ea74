package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/davidcastellano/ledgerpay-backend/pkg/db/models"
)

// Repository handles billing persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateCustomer(ctx context.Context, customer *models.Customer) error
	UpdateCustomer(ctx context.Context, customer *models.Customer) error
	FindCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	FindCustomerByStripeID(ctx context.Context, stripeID string) (*models.Customer, error)
	FindCustomerBySubscriberID(ctx context.Context, subscriberID uuid.UUID) (*models.Customer, error)
	ListCustomersForReconciliation(ctx context.Context, limit int, lookback time.Duration) ([]models.Customer, error)

	CreateCurrentSubscription(ctx context.Context, sub *models.CurrentSubscription) error
	UpdateCurrentSubscription(ctx context.Context, sub *models.CurrentSubscription) error
	FindCurrentSubscription(ctx context.Context, customerID uuid.UUID) (*models.CurrentSubscription, error)

	CreateCharge(ctx context.Context, charge *models.Charge) error
	UpdateCharge(ctx context.Context, charge *models.Charge) error
	FindChargeByStripeID(ctx context.Context, stripeID string) (*models.Charge, error)
	ListChargesByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Charge, error)

	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	UpdateInvoice(ctx context.Context, invoice *models.Invoice) error
	FindInvoiceByStripeID(ctx context.Context, stripeID string) (*models.Invoice, error)
	ListInvoicesByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Invoice, error)
	ListUnpaidInvoices(ctx context.Context, customerID uuid.UUID) ([]models.Invoice, error)

	FindDefaultAccount(ctx context.Context) (*models.Account, error)

	CreateBillingPlan(ctx context.Context, plan *models.BillingPlan) error
	UpdateBillingPlan(ctx context.Context, plan *models.BillingPlan) error
	ListBillingPlans(ctx context.Context) ([]models.BillingPlan, error)
	FindBillingPlanByID(ctx context.Context, id string) (*models.BillingPlan, error)
	FindBillingPlanByStripeID(ctx context.Context, stripePlanID string) (*models.BillingPlan, error)
	FindDefaultBillingPlan(ctx context.Context) (*models.BillingPlan, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a billing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

func (r *repository) FindCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repository) FindCustomerByStripeID(ctx context.Context, stripeID string) (*models.Customer, error) {
	if stripeID == "" {
		return nil, nil
	}
	var customer models.Customer
	if err := r.db.WithContext(ctx).
		Where("stripe_id = ?", stripeID).
		First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repository) FindCustomerBySubscriberID(ctx context.Context, subscriberID uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).
		Where("subscriber_id = ?", subscriberID).
		Order("created_at DESC").
		First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repository) ListCustomersForReconciliation(ctx context.Context, limit int, lookback time.Duration) ([]models.Customer, error) {
	if limit <= 0 {
		limit = 250
	}
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	cutoff := time.Now().UTC().Add(-lookback)
	var customers []models.Customer
	query := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("stripe_id <> ''").
		Where("(subscriber_id IS NOT NULL OR updated_at >= ?)", cutoff).
		Order("updated_at ASC").
		Limit(limit)
	if err := query.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repository) CreateCurrentSubscription(ctx context.Context, sub *models.CurrentSubscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) UpdateCurrentSubscription(ctx context.Context, sub *models.CurrentSubscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *repository) FindCurrentSubscription(ctx context.Context, customerID uuid.UUID) (*models.CurrentSubscription, error) {
	var sub models.CurrentSubscription
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) CreateCharge(ctx context.Context, charge *models.Charge) error {
	return r.db.WithContext(ctx).Create(charge).Error
}

func (r *repository) UpdateCharge(ctx context.Context, charge *models.Charge) error {
	return r.db.WithContext(ctx).Save(charge).Error
}

func (r *repository) FindChargeByStripeID(ctx context.Context, stripeID string) (*models.Charge, error) {
	if stripeID == "" {
		return nil, nil
	}
	var charge models.Charge
	if err := r.db.WithContext(ctx).
		Where("stripe_id = ?", stripeID).
		First(&charge).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &charge, nil
}

func (r *repository) ListChargesByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Charge, error) {
	var charges []models.Charge
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("charge_created DESC, created_at DESC").
		Find(&charges).Error; err != nil {
		return nil, err
	}
	return charges, nil
}

func (r *repository) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) UpdateInvoice(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}

func (r *repository) FindInvoiceByStripeID(ctx context.Context, stripeID string) (*models.Invoice, error) {
	if stripeID == "" {
		return nil, nil
	}
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).
		Where("stripe_id = ?", stripeID).
		First(&invoice).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) ListInvoicesByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("date DESC, created_at DESC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repository) ListUnpaidInvoices(ctx context.Context, customerID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND paid = ? AND closed = ?", customerID, false, false).
		Order("date ASC, created_at ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repository) FindDefaultAccount(ctx context.Context) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).
		Where("is_default = true").
		Order("updated_at DESC").
		First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) CreateBillingPlan(ctx context.Context, plan *models.BillingPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *repository) UpdateBillingPlan(ctx context.Context, plan *models.BillingPlan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

func (r *repository) ListBillingPlans(ctx context.Context) ([]models.BillingPlan, error) {
	var plans []models.BillingPlan
	if err := r.db.WithContext(ctx).
		Order("is_default DESC, name ASC").
		Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repository) FindBillingPlanByID(ctx context.Context, id string) (*models.BillingPlan, error) {
	if id == "" {
		return nil, nil
	}
	var plan models.BillingPlan
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindBillingPlanByStripeID(ctx context.Context, stripePlanID string) (*models.BillingPlan, error) {
	if stripePlanID == "" {
		return nil, nil
	}
	var plan models.BillingPlan
	if err := r.db.WithContext(ctx).
		Where("stripe_plan_id = ?", stripePlanID).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindDefaultBillingPlan(ctx context.Context) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	if err := r.db.WithContext(ctx).
		Where("is_default = true").
		Order("updated_at DESC").
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}
