package models

import (
	"time"

	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MemberModel is the persistence model for member accounts
type MemberModel struct {
	BaseModel
	TenantID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_members_tenant_number,priority:1"`
	MemberNumber       string          `gorm:"type:varchar(50);not null;uniqueIndex:uq_members_tenant_number,priority:2"`
	Name               string          `gorm:"type:varchar(200);not null"`
	Email              string          `gorm:"type:varchar(200);not null;default:''"`
	JoinDate           time.Time       `gorm:"type:date;not null"`
	OutstandingBalance decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CreditBalance      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
}

func (MemberModel) TableName() string { return "members" }

func (m *MemberModel) ToDomain() *billing.Member {
	return &billing.Member{
		BaseEntity:   m.BaseModel.ToDomain(),
		TenantID:     m.TenantID,
		MemberNumber: m.MemberNumber,
		Name:         m.Name,
		Email:        m.Email,
		JoinDate:     m.JoinDate,
		Balances:     billing.AccountBalances{Outstanding: m.OutstandingBalance, Credit: m.CreditBalance},
	}
}

func MemberModelFromDomain(m *billing.Member) *MemberModel {
	model := &MemberModel{
		TenantID:           m.TenantID,
		MemberNumber:       m.MemberNumber,
		Name:               m.Name,
		Email:              m.Email,
		JoinDate:           m.JoinDate,
		OutstandingBalance: m.Balances.Outstanding,
		CreditBalance:      m.Balances.Credit,
	}
	model.BaseModel.FromDomain(m.BaseEntity)
	return model
}

// CityLedgerAccountModel is the persistence model for non-member accounts
type CityLedgerAccountModel struct {
	BaseModel
	TenantID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_city_ledger_tenant_code,priority:1"`
	AccountCode        string          `gorm:"type:varchar(50);not null;uniqueIndex:uq_city_ledger_tenant_code,priority:2"`
	Name               string          `gorm:"type:varchar(200);not null"`
	ContactEmail       string          `gorm:"type:varchar(200);not null;default:''"`
	OutstandingBalance decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CreditBalance      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
}

func (CityLedgerAccountModel) TableName() string { return "city_ledger_accounts" }

func (m *CityLedgerAccountModel) ToDomain() *billing.CityLedgerAccount {
	return &billing.CityLedgerAccount{
		BaseEntity:   m.BaseModel.ToDomain(),
		TenantID:     m.TenantID,
		AccountCode:  m.AccountCode,
		Name:         m.Name,
		ContactEmail: m.ContactEmail,
		Balances:     billing.AccountBalances{Outstanding: m.OutstandingBalance, Credit: m.CreditBalance},
	}
}

func CityLedgerAccountModelFromDomain(c *billing.CityLedgerAccount) *CityLedgerAccountModel {
	model := &CityLedgerAccountModel{
		TenantID:           c.TenantID,
		AccountCode:        c.AccountCode,
		Name:               c.Name,
		ContactEmail:       c.ContactEmail,
		OutstandingBalance: c.Balances.Outstanding,
		CreditBalance:      c.Balances.Credit,
	}
	model.BaseModel.FromDomain(c.BaseEntity)
	return model
}

// InvoiceModel is the persistence model for invoices. Soft-deleted rows are
// excluded from every query by gorm.DeletedAt.
type InvoiceModel struct {
	TenantAggregateModel
	AccountType   billing.AccountType   `gorm:"type:varchar(20);not null;index:idx_invoices_account,priority:1"`
	AccountID     uuid.UUID             `gorm:"type:uuid;not null;index:idx_invoices_account,priority:2"`
	InvoiceNumber string                `gorm:"type:varchar(50);not null"`
	TotalAmount   decimal.Decimal       `gorm:"type:decimal(14,2);not null"`
	PaidAmount    decimal.Decimal       `gorm:"type:decimal(14,2);not null;default:0"`
	BalanceDue    decimal.Decimal       `gorm:"type:decimal(14,2);not null"`
	DueDate       time.Time             `gorm:"type:date;not null"`
	PaidDate      *time.Time
	Status        billing.InvoiceStatus `gorm:"type:varchar(20);not null"`
	DeletedAt     gorm.DeletedAt        `gorm:"index"`
}

func (InvoiceModel) TableName() string { return "invoices" }

func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		TenantAggregateRoot: m.TenantAggregateModel.ToDomain(),
		Account:             billing.AccountRef{ID: m.AccountID, Type: m.AccountType},
		InvoiceNumber:       m.InvoiceNumber,
		TotalAmount:         m.TotalAmount,
		PaidAmount:          m.PaidAmount,
		BalanceDue:          m.BalanceDue,
		DueDate:             m.DueDate,
		PaidDate:            m.PaidDate,
		Status:              m.Status,
	}
	if m.DeletedAt.Valid {
		t := m.DeletedAt.Time
		inv.DeletedAt = &t
	}
	return inv
}

func InvoiceModelFromDomain(i *billing.Invoice) *InvoiceModel {
	model := &InvoiceModel{
		AccountType:   i.Account.Type,
		AccountID:     i.Account.ID,
		InvoiceNumber: i.InvoiceNumber,
		TotalAmount:   i.TotalAmount,
		PaidAmount:    i.PaidAmount,
		BalanceDue:    i.BalanceDue,
		DueDate:       i.DueDate,
		PaidDate:      i.PaidDate,
		Status:        i.Status,
	}
	model.TenantAggregateModel.FromDomain(i.TenantAggregateRoot)
	if i.DeletedAt != nil {
		model.DeletedAt = gorm.DeletedAt{Time: *i.DeletedAt, Valid: true}
	}
	return model
}

// PaymentModel is the persistence model for received payments
type PaymentModel struct {
	BaseModel
	TenantID        uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:uq_payments_tenant_receipt,priority:1"`
	AccountType     billing.AccountType   `gorm:"type:varchar(20);not null"`
	AccountID       uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal       `gorm:"type:decimal(14,2);not null"`
	Method          billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	ReceiptNumber   string                `gorm:"type:varchar(50);not null;uniqueIndex:uq_payments_tenant_receipt,priority:2"`
	ReferenceNumber string                `gorm:"type:varchar(100);not null;default:''"`
	Notes           string                `gorm:"type:text;not null;default:''"`
	ReceivedAt      time.Time             `gorm:"not null"`
	CreatedBy       *uuid.UUID            `gorm:"type:uuid"`
}

func (PaymentModel) TableName() string { return "payments" }

func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		BaseEntity:      m.BaseModel.ToDomain(),
		TenantID:        m.TenantID,
		Account:         billing.AccountRef{ID: m.AccountID, Type: m.AccountType},
		Amount:          m.Amount,
		Method:          m.Method,
		ReceiptNumber:   m.ReceiptNumber,
		ReferenceNumber: m.ReferenceNumber,
		Notes:           m.Notes,
		ReceivedAt:      m.ReceivedAt,
		CreatedBy:       m.CreatedBy,
	}
}

func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	model := &PaymentModel{
		TenantID:        p.TenantID,
		AccountType:     p.Account.Type,
		AccountID:       p.Account.ID,
		Amount:          p.Amount,
		Method:          p.Method,
		ReceiptNumber:   p.ReceiptNumber,
		ReferenceNumber: p.ReferenceNumber,
		Notes:           p.Notes,
		ReceivedAt:      p.ReceivedAt,
		CreatedBy:       p.CreatedBy,
	}
	model.BaseModel.FromDomain(p.BaseEntity)
	return model
}

// PaymentAllocationModel links part of a payment to an invoice
type PaymentAllocationModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID       `gorm:"type:uuid;not null"`
	PaymentID uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

func (PaymentAllocationModel) TableName() string { return "payment_allocations" }

func (m *PaymentAllocationModel) ToDomain() billing.PaymentAllocation {
	return billing.PaymentAllocation{
		ID:        m.ID,
		TenantID:  m.TenantID,
		PaymentID: m.PaymentID,
		InvoiceID: m.InvoiceID,
		Amount:    m.Amount,
		CreatedAt: m.CreatedAt,
	}
}

func PaymentAllocationModelFromDomain(a *billing.PaymentAllocation) *PaymentAllocationModel {
	return &PaymentAllocationModel{
		ID:        a.ID,
		TenantID:  a.TenantID,
		PaymentID: a.PaymentID,
		InvoiceID: a.InvoiceID,
		Amount:    a.Amount,
		CreatedAt: a.CreatedAt,
	}
}

// PaymentArrangementModel is the persistence model for the arrangement
// aggregate. Installments and covered invoices are child rows.
type PaymentArrangementModel struct {
	TenantAggregateModel
	ArrangementNumber string                       `gorm:"type:varchar(50);not null"`
	AccountType       billing.AccountType          `gorm:"type:varchar(20);not null"`
	AccountID         uuid.UUID                    `gorm:"type:uuid;not null;index"`
	InstallmentCount  int                          `gorm:"not null"`
	Frequency         billing.InstallmentFrequency `gorm:"type:varchar(20);not null"`
	TotalAmount       decimal.Decimal              `gorm:"type:decimal(14,2);not null"`
	PaidAmount        decimal.Decimal              `gorm:"type:decimal(14,2);not null;default:0"`
	RemainingAmount   decimal.Decimal              `gorm:"type:decimal(14,2);not null"`
	StartDate         time.Time                    `gorm:"type:date;not null"`
	EndDate           time.Time                    `gorm:"type:date;not null"`
	Status            billing.ArrangementStatus    `gorm:"type:varchar(20);not null"`
	Notes             string                       `gorm:"type:text;not null;default:''"`
	ApprovedBy        *uuid.UUID                   `gorm:"type:uuid"`
	ApprovedAt        *time.Time
	CancelledAt       *time.Time
	CancelReason      string                       `gorm:"type:varchar(500);not null;default:''"`
	Installments      []ArrangementInstallmentModel `gorm:"foreignKey:ArrangementID"`
	Invoices          []ArrangementInvoiceModel     `gorm:"foreignKey:ArrangementID"`
}

func (PaymentArrangementModel) TableName() string { return "payment_arrangements" }

// ArrangementInstallmentModel is one scheduled repayment row
type ArrangementInstallmentModel struct {
	ID            uuid.UUID                 `gorm:"type:uuid;primaryKey"`
	ArrangementID uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex:uq_installments_number,priority:1"`
	InstallmentNo int                       `gorm:"not null;uniqueIndex:uq_installments_number,priority:2"`
	DueDate       time.Time                 `gorm:"type:date;not null"`
	Amount        decimal.Decimal           `gorm:"type:decimal(14,2);not null"`
	PaidAmount    decimal.Decimal           `gorm:"type:decimal(14,2);not null;default:0"`
	Status        billing.InstallmentStatus `gorm:"type:varchar(20);not null"`
	PaymentID     *uuid.UUID                `gorm:"type:uuid"`
	PaidAt        *time.Time
	WaivedReason  string `gorm:"type:varchar(500);not null;default:''"`
}

func (ArrangementInstallmentModel) TableName() string { return "arrangement_installments" }

// ArrangementInvoiceModel records which invoices an arrangement covers, in
// request order
type ArrangementInvoiceModel struct {
	ArrangementID uuid.UUID `gorm:"type:uuid;primaryKey"`
	InvoiceID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Position      int       `gorm:"not null"`
}

func (ArrangementInvoiceModel) TableName() string { return "arrangement_invoices" }

func (m *PaymentArrangementModel) ToDomain() *billing.PaymentArrangement {
	a := &billing.PaymentArrangement{
		TenantAggregateRoot: m.TenantAggregateModel.ToDomain(),
		ArrangementNumber:   m.ArrangementNumber,
		Account:             billing.AccountRef{ID: m.AccountID, Type: m.AccountType},
		InstallmentCount:    m.InstallmentCount,
		Frequency:           m.Frequency,
		TotalAmount:         m.TotalAmount,
		PaidAmount:          m.PaidAmount,
		RemainingAmount:     m.RemainingAmount,
		StartDate:           m.StartDate,
		EndDate:             m.EndDate,
		Status:              m.Status,
		Notes:               m.Notes,
		ApprovedBy:          m.ApprovedBy,
		ApprovedAt:          m.ApprovedAt,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
		InvoiceIDs:          make([]uuid.UUID, len(m.Invoices)),
		Installments:        make([]billing.ArrangementInstallment, len(m.Installments)),
	}
	for _, inv := range m.Invoices {
		if inv.Position >= 0 && inv.Position < len(a.InvoiceIDs) {
			a.InvoiceIDs[inv.Position] = inv.InvoiceID
		}
	}
	for i, inst := range m.Installments {
		a.Installments[i] = billing.ArrangementInstallment{
			ID:            inst.ID,
			InstallmentNo: inst.InstallmentNo,
			DueDate:       inst.DueDate,
			Amount:        inst.Amount,
			PaidAmount:    inst.PaidAmount,
			Status:        inst.Status,
			PaymentID:     inst.PaymentID,
			PaidAt:        inst.PaidAt,
			WaivedReason:  inst.WaivedReason,
		}
	}
	return a
}

func PaymentArrangementModelFromDomain(a *billing.PaymentArrangement) *PaymentArrangementModel {
	model := &PaymentArrangementModel{
		ArrangementNumber: a.ArrangementNumber,
		AccountType:       a.Account.Type,
		AccountID:         a.Account.ID,
		InstallmentCount:  a.InstallmentCount,
		Frequency:         a.Frequency,
		TotalAmount:       a.TotalAmount,
		PaidAmount:        a.PaidAmount,
		RemainingAmount:   a.RemainingAmount,
		StartDate:         a.StartDate,
		EndDate:           a.EndDate,
		Status:            a.Status,
		Notes:             a.Notes,
		ApprovedBy:        a.ApprovedBy,
		ApprovedAt:        a.ApprovedAt,
		CancelledAt:       a.CancelledAt,
		CancelReason:      a.CancelReason,
		Installments:      InstallmentModelsFromDomain(a),
		Invoices:          make([]ArrangementInvoiceModel, len(a.InvoiceIDs)),
	}
	model.TenantAggregateModel.FromDomain(a.TenantAggregateRoot)
	for i, id := range a.InvoiceIDs {
		model.Invoices[i] = ArrangementInvoiceModel{ArrangementID: a.ID, InvoiceID: id, Position: i}
	}
	return model
}

// InstallmentModelsFromDomain maps the installments of a
func InstallmentModelsFromDomain(a *billing.PaymentArrangement) []ArrangementInstallmentModel {
	out := make([]ArrangementInstallmentModel, len(a.Installments))
	for i, inst := range a.Installments {
		out[i] = ArrangementInstallmentModel{
			ID:            inst.ID,
			ArrangementID: a.ID,
			InstallmentNo: inst.InstallmentNo,
			DueDate:       inst.DueDate,
			Amount:        inst.Amount,
			PaidAmount:    inst.PaidAmount,
			Status:        inst.Status,
			PaymentID:     inst.PaymentID,
			PaidAt:        inst.PaidAt,
			WaivedReason:  inst.WaivedReason,
		}
	}
	return out
}

// ClubBillingSettingsModel is the per-tenant billing policy row
type ClubBillingSettingsModel struct {
	BaseModel
	TenantID          uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:uq_club_billing_settings_tenant"`
	Frequency         billing.BillingFrequency `gorm:"type:varchar(20);not null"`
	Timing            billing.BillingTiming    `gorm:"type:varchar(20);not null"`
	Alignment         billing.CycleAlignment   `gorm:"type:varchar(20);not null"`
	BillingDay        int                      `gorm:"not null"`
	InvoiceLeadDays   int                      `gorm:"not null"`
	InvoiceDueDays    int                      `gorm:"not null"`
	GracePeriodDays   int                      `gorm:"not null"`
	LateFeeType       billing.LateFeeType      `gorm:"type:varchar(20);not null"`
	LateFeeAmount     decimal.Decimal          `gorm:"type:decimal(14,2);not null;default:0"`
	LateFeePercentage decimal.Decimal          `gorm:"type:decimal(7,4);not null;default:0"`
	MaxLateFee        decimal.Decimal          `gorm:"type:decimal(14,2);not null;default:0"`
	AutoApplyLateFees bool                     `gorm:"not null"`
	ProrateNewMembers bool                     `gorm:"not null"`
	ProrateChanges    bool                     `gorm:"not null"`
	ProrationMethod   billing.ProrationMethod  `gorm:"type:varchar(20);not null"`
}

func (ClubBillingSettingsModel) TableName() string { return "club_billing_settings" }

func (m *ClubBillingSettingsModel) ToDomain() *billing.ClubBillingSettings {
	return &billing.ClubBillingSettings{
		BaseEntity:        m.BaseModel.ToDomain(),
		TenantID:          m.TenantID,
		Frequency:         m.Frequency,
		Timing:            m.Timing,
		Alignment:         m.Alignment,
		BillingDay:        m.BillingDay,
		InvoiceLeadDays:   m.InvoiceLeadDays,
		InvoiceDueDays:    m.InvoiceDueDays,
		GracePeriodDays:   m.GracePeriodDays,
		LateFeeType:       m.LateFeeType,
		LateFeeAmount:     m.LateFeeAmount,
		LateFeePercentage: m.LateFeePercentage,
		MaxLateFee:        m.MaxLateFee,
		AutoApplyLateFees: m.AutoApplyLateFees,
		ProrateNewMembers: m.ProrateNewMembers,
		ProrateChanges:    m.ProrateChanges,
		ProrationMethod:   m.ProrationMethod,
	}
}

func ClubBillingSettingsModelFromDomain(s *billing.ClubBillingSettings) *ClubBillingSettingsModel {
	model := &ClubBillingSettingsModel{
		TenantID:          s.TenantID,
		Frequency:         s.Frequency,
		Timing:            s.Timing,
		Alignment:         s.Alignment,
		BillingDay:        s.BillingDay,
		InvoiceLeadDays:   s.InvoiceLeadDays,
		InvoiceDueDays:    s.InvoiceDueDays,
		GracePeriodDays:   s.GracePeriodDays,
		LateFeeType:       s.LateFeeType,
		LateFeeAmount:     s.LateFeeAmount,
		LateFeePercentage: s.LateFeePercentage,
		MaxLateFee:        s.MaxLateFee,
		AutoApplyLateFees: s.AutoApplyLateFees,
		ProrateNewMembers: s.ProrateNewMembers,
		ProrateChanges:    s.ProrateChanges,
		ProrationMethod:   s.ProrationMethod,
	}
	model.BaseModel.FromDomain(s.BaseEntity)
	return model
}

// MemberBillingProfileModel holds per-member overrides. Nil columns inherit
// the tenant policy.
type MemberBillingProfileModel struct {
	BaseModel
	TenantID          uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex:uq_member_billing_profiles_member,priority:1"`
	MemberID          uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex:uq_member_billing_profiles_member,priority:2"`
	Frequency         *billing.BillingFrequency `gorm:"type:varchar(20)"`
	Timing            *billing.BillingTiming    `gorm:"type:varchar(20)"`
	Alignment         *billing.CycleAlignment   `gorm:"type:varchar(20)"`
	BillingDay        *int
	ProrationMethod   *billing.ProrationMethod `gorm:"type:varchar(20)"`
	LateFeeExempt     bool                     `gorm:"not null"`
	CustomGraceDays   *int
	BillingHold       bool       `gorm:"not null"`
	BillingHoldReason string     `gorm:"type:varchar(500);not null;default:''"`
	BillingHoldUntil  *time.Time `gorm:"type:date"`
	Notes             string     `gorm:"type:text;not null;default:''"`
}

func (MemberBillingProfileModel) TableName() string { return "member_billing_profiles" }

func (m *MemberBillingProfileModel) ToDomain() *billing.MemberBillingProfile {
	return &billing.MemberBillingProfile{
		BaseEntity:        m.BaseModel.ToDomain(),
		TenantID:          m.TenantID,
		MemberID:          m.MemberID,
		Frequency:         m.Frequency,
		Timing:            m.Timing,
		Alignment:         m.Alignment,
		BillingDay:        m.BillingDay,
		ProrationMethod:   m.ProrationMethod,
		LateFeeExempt:     m.LateFeeExempt,
		CustomGraceDays:   m.CustomGraceDays,
		BillingHold:       m.BillingHold,
		BillingHoldReason: m.BillingHoldReason,
		BillingHoldUntil:  m.BillingHoldUntil,
		Notes:             m.Notes,
	}
}

func MemberBillingProfileModelFromDomain(p *billing.MemberBillingProfile) *MemberBillingProfileModel {
	model := &MemberBillingProfileModel{
		TenantID:          p.TenantID,
		MemberID:          p.MemberID,
		Frequency:         p.Frequency,
		Timing:            p.Timing,
		Alignment:         p.Alignment,
		BillingDay:        p.BillingDay,
		ProrationMethod:   p.ProrationMethod,
		LateFeeExempt:     p.LateFeeExempt,
		CustomGraceDays:   p.CustomGraceDays,
		BillingHold:       p.BillingHold,
		BillingHoldReason: p.BillingHoldReason,
		BillingHoldUntil:  p.BillingHoldUntil,
		Notes:             p.Notes,
	}
	model.BaseModel.FromDomain(p.BaseEntity)
	return model
}

// DocumentSequenceModel is the last number issued for one tenant, document
// kind and year
type DocumentSequenceModel struct {
	TenantID  uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Kind      billing.DocumentKind `gorm:"type:varchar(10);primaryKey"`
	Year      int                 `gorm:"primaryKey"`
	LastValue int64               `gorm:"not null"`
	UpdatedAt time.Time           `gorm:"not null"`
}

func (DocumentSequenceModel) TableName() string { return "document_sequences" }

// All lists every ledger model, in dependency order, for AutoMigrate in tests
func All() []any {
	return []any{
		&MemberModel{},
		&CityLedgerAccountModel{},
		&InvoiceModel{},
		&PaymentModel{},
		&PaymentAllocationModel{},
		&PaymentArrangementModel{},
		&ArrangementInstallmentModel{},
		&ArrangementInvoiceModel{},
		&ClubBillingSettingsModel{},
		&MemberBillingProfileModel{},
		&DocumentSequenceModel{},
	}
}
