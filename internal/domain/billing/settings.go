package billing

import (
	"time"

	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Default tenant billing policy used by InitializeTenantSettings
const (
	DefaultBillingDay       = 1
	DefaultInvoiceLeadDays  = 7
	DefaultInvoiceDueDays   = 30
	DefaultGracePeriodDays  = 15
	DefaultLateFeePercent   = "1.5"
	DefaultBillingFrequency = FrequencyMonthly
)

// ClubBillingSettings is a tenant's billing policy. One row per tenant,
// created during tenant provisioning.
type ClubBillingSettings struct {
	shared.BaseEntity
	TenantID          uuid.UUID
	Frequency         BillingFrequency
	Timing            BillingTiming
	Alignment         CycleAlignment
	BillingDay        int
	InvoiceLeadDays   int
	InvoiceDueDays    int
	GracePeriodDays   int
	LateFeeType       LateFeeType
	LateFeeAmount     decimal.Decimal
	LateFeePercentage decimal.Decimal
	MaxLateFee        decimal.Decimal
	AutoApplyLateFees bool
	ProrateNewMembers bool
	ProrateChanges    bool
	ProrationMethod   ProrationMethod
}

// DefaultClubBillingSettings returns the policy a new tenant starts with
func DefaultClubBillingSettings(tenantID uuid.UUID) *ClubBillingSettings {
	return &ClubBillingSettings{
		BaseEntity:        shared.NewBaseEntity(),
		TenantID:          tenantID,
		Frequency:         DefaultBillingFrequency,
		Timing:            TimingAdvance,
		Alignment:         AlignmentCalendar,
		BillingDay:        DefaultBillingDay,
		InvoiceLeadDays:   DefaultInvoiceLeadDays,
		InvoiceDueDays:    DefaultInvoiceDueDays,
		GracePeriodDays:   DefaultGracePeriodDays,
		LateFeeType:       LateFeePercentage,
		LateFeeAmount:     decimal.Zero,
		LateFeePercentage: decimal.RequireFromString(DefaultLateFeePercent),
		MaxLateFee:        decimal.Zero,
		AutoApplyLateFees: false,
		ProrateNewMembers: true,
		ProrateChanges:    true,
		ProrationMethod:   ProrationDaily,
	}
}

// Validate checks the settings are internally consistent
func (s *ClubBillingSettings) Validate() error {
	cfg := CycleConfig{Frequency: s.Frequency, Timing: s.Timing, Alignment: AlignmentCalendar, BillingDay: s.BillingDay}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !s.Alignment.IsValid() {
		return shared.Configurationf("unknown cycle alignment %q", s.Alignment)
	}
	if s.InvoiceLeadDays < 0 || s.InvoiceDueDays < 0 || s.GracePeriodDays < 0 {
		return shared.Configurationf("day counts cannot be negative")
	}
	if !s.ProrationMethod.IsValid() {
		return shared.Configurationf("unknown proration method %q", s.ProrationMethod)
	}
	return s.LateFeeConfig().Validate()
}

// LateFeeConfig returns the tenant late fee policy
func (s *ClubBillingSettings) LateFeeConfig() LateFeeConfig {
	return LateFeeConfig{
		Type:            s.LateFeeType,
		Amount:          s.LateFeeAmount,
		Percentage:      s.LateFeePercentage,
		MaxFee:          s.MaxLateFee,
		GracePeriodDays: s.GracePeriodDays,
	}
}

// SettingsPatch is a partial update of ClubBillingSettings. Nil fields are kept.
type SettingsPatch struct {
	Frequency         *BillingFrequency
	Timing            *BillingTiming
	Alignment         *CycleAlignment
	BillingDay        *int
	InvoiceLeadDays   *int
	InvoiceDueDays    *int
	GracePeriodDays   *int
	LateFeeType       *LateFeeType
	LateFeeAmount     *decimal.Decimal
	LateFeePercentage *decimal.Decimal
	MaxLateFee        *decimal.Decimal
	AutoApplyLateFees *bool
	ProrateNewMembers *bool
	ProrateChanges    *bool
	ProrationMethod   *ProrationMethod
}

// Apply merges the patch into s and validates the result
func (s *ClubBillingSettings) Apply(p SettingsPatch) error {
	next := *s
	setIf(&next.Frequency, p.Frequency)
	setIf(&next.Timing, p.Timing)
	setIf(&next.Alignment, p.Alignment)
	setIf(&next.BillingDay, p.BillingDay)
	setIf(&next.InvoiceLeadDays, p.InvoiceLeadDays)
	setIf(&next.InvoiceDueDays, p.InvoiceDueDays)
	setIf(&next.GracePeriodDays, p.GracePeriodDays)
	setIf(&next.LateFeeType, p.LateFeeType)
	setIf(&next.LateFeeAmount, p.LateFeeAmount)
	setIf(&next.LateFeePercentage, p.LateFeePercentage)
	setIf(&next.MaxLateFee, p.MaxLateFee)
	setIf(&next.AutoApplyLateFees, p.AutoApplyLateFees)
	setIf(&next.ProrateNewMembers, p.ProrateNewMembers)
	setIf(&next.ProrateChanges, p.ProrateChanges)
	setIf(&next.ProrationMethod, p.ProrationMethod)
	if err := next.Validate(); err != nil {
		return err
	}
	*s = next
	s.Touch()
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// MemberBillingProfile holds per-member overrides of the tenant policy plus
// an optional billing hold. At most one exists per member.
type MemberBillingProfile struct {
	shared.BaseEntity
	TenantID          uuid.UUID
	MemberID          uuid.UUID
	Frequency         *BillingFrequency
	Timing            *BillingTiming
	Alignment         *CycleAlignment
	BillingDay        *int
	ProrationMethod   *ProrationMethod
	LateFeeExempt     bool
	CustomGraceDays   *int
	BillingHold       bool
	BillingHoldReason string
	BillingHoldUntil  *time.Time
	Notes             string
}

// NewMemberBillingProfile creates an empty profile for a member
func NewMemberBillingProfile(tenantID, memberID uuid.UUID) *MemberBillingProfile {
	return &MemberBillingProfile{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		MemberID:   memberID,
	}
}

// OnHold reports whether billing is suspended on the given date. A hold
// without an end date lasts until it is lifted.
func (p *MemberBillingProfile) OnHold(at time.Time) bool {
	if p == nil || !p.BillingHold {
		return false
	}
	if p.BillingHoldUntil == nil {
		return true
	}
	return !StartOfDay(at).After(StartOfDay(*p.BillingHoldUntil))
}

// ResolvedBillingConfig is the effective policy for one member
type ResolvedBillingConfig struct {
	Cycle           CycleConfig
	LateFee         LateFeeConfig
	LateFeeExempt   bool
	ProrationMethod ProrationMethod
	InvoiceDueDays  int
	InvoiceLeadDays int
}

// ResolveMemberConfig merges tenant defaults with the member's overrides.
// profile may be nil. The join date feeds ANNIVERSARY alignment.
func ResolveMemberConfig(settings *ClubBillingSettings, profile *MemberBillingProfile, joinDate *time.Time) ResolvedBillingConfig {
	cycle := CycleConfig{
		Frequency:  settings.Frequency,
		Timing:     settings.Timing,
		Alignment:  settings.Alignment,
		BillingDay: settings.BillingDay,
		JoinDate:   joinDate,
	}
	lateFee := settings.LateFeeConfig()
	method := settings.ProrationMethod
	exempt := false

	if profile != nil {
		setIf(&cycle.Frequency, profile.Frequency)
		setIf(&cycle.Timing, profile.Timing)
		setIf(&cycle.Alignment, profile.Alignment)
		setIf(&cycle.BillingDay, profile.BillingDay)
		setIf(&method, profile.ProrationMethod)
		setIf(&lateFee.GracePeriodDays, profile.CustomGraceDays)
		exempt = profile.LateFeeExempt
	}

	return ResolvedBillingConfig{
		Cycle:           cycle,
		LateFee:         lateFee,
		LateFeeExempt:   exempt,
		ProrationMethod: method,
		InvoiceDueDays:  settings.InvoiceDueDays,
		InvoiceLeadDays: settings.InvoiceLeadDays,
	}
}
