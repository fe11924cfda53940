package billing

import (
	"context"
	"errors"
	"time"

	"github.com/clubledger/backend/internal/domain/billing"
	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/clubledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SettingsService owns tenant billing policy and member overrides
type SettingsService struct {
	scope        TransactionScope
	settingsRepo billing.SettingsRepository
	profileRepo  billing.ProfileRepository
	accountRepo  billing.AccountRepository
	publisher    shared.EventPublisher
	logger       *zap.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(
	scope TransactionScope,
	settingsRepo billing.SettingsRepository,
	profileRepo billing.ProfileRepository,
	accountRepo billing.AccountRepository,
	logger *zap.Logger,
) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{
		scope:        scope,
		settingsRepo: settingsRepo,
		profileRepo:  profileRepo,
		accountRepo:  accountRepo,
		logger:       logger,
	}
}

// SetEventPublisher sets the publisher used for post-commit audit events
func (s *SettingsService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// InitializeTenantSettings provisions the default policy for a tenant.
// Calling it again returns the existing row unchanged.
func (s *SettingsService) InitializeTenantSettings(ctx context.Context, tenantID uuid.UUID, actor shared.Actor) (*SettingsResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing_settings", "initialize")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, tenantID)

	var (
		settings *billing.ClubBillingSettings
		created  bool
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.Settings().FindByTenant(ctx, tenantID)
		if err == nil {
			settings = existing
			return nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		settings = billing.DefaultClubBillingSettings(tenantID)
		created = true
		return repos.Settings().Create(ctx, settings)
	})
	if errors.Is(err, shared.ErrAlreadyExists) {
		// lost a race with a concurrent initialization
		settings, err = s.settingsRepo.FindByTenant(ctx, tenantID)
		created = false
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if created {
		s.logger.Info("Billing settings initialized", zap.String("tenant_id", tenantID.String()))
		publishAfterCommit(ctx, s.publisher, s.logger, billing.NewSettingsInitializedEvent(settings, actor))
	}
	return ToSettingsResponse(settings), nil
}

// GetSettings returns the tenant policy. It never creates one.
func (s *SettingsService) GetSettings(ctx context.Context, tenantID uuid.UUID) (*SettingsResponse, error) {
	settings, err := s.settingsRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return ToSettingsResponse(settings), nil
}

// UpdateSettings applies patch to the tenant policy, creating it from the
// defaults first when the tenant has none. Invalid results are rejected
// without changing the stored row.
func (s *SettingsService) UpdateSettings(ctx context.Context, tenantID uuid.UUID, patch billing.SettingsPatch) (*SettingsResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing_settings", "update")
	defer span.End()

	var settings *billing.ClubBillingSettings
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		current, err := repos.Settings().FindByTenant(ctx, tenantID)
		isNew := false
		switch {
		case errors.Is(err, shared.ErrNotFound):
			current = billing.DefaultClubBillingSettings(tenantID)
			isNew = true
		case err != nil:
			return err
		}
		if err := current.Apply(patch); err != nil {
			return err
		}
		settings = current
		if isNew {
			return repos.Settings().Create(ctx, current)
		}
		return repos.Settings().Save(ctx, current)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return ToSettingsResponse(settings), nil
}

// CreateMemberProfile stores per-member overrides. A member has at most one profile.
func (s *SettingsService) CreateMemberProfile(ctx context.Context, tenantID, memberID uuid.UUID, req MemberProfileRequest) (*MemberProfileResponse, error) {
	if _, err := s.accountRepo.FindMember(ctx, tenantID, memberID); err != nil {
		return nil, err
	}
	if err := validateProfileOverrides(req); err != nil {
		return nil, err
	}

	profile := billing.NewMemberBillingProfile(tenantID, memberID)
	profile.Frequency = req.Frequency
	profile.Timing = req.Timing
	profile.Alignment = req.Alignment
	profile.BillingDay = req.BillingDay
	profile.ProrationMethod = req.ProrationMethod
	profile.LateFeeExempt = req.LateFeeExempt
	profile.CustomGraceDays = req.CustomGraceDays
	profile.BillingHold = req.BillingHold
	profile.BillingHoldReason = req.BillingHoldReason
	profile.BillingHoldUntil = req.BillingHoldUntil
	profile.Notes = req.Notes

	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, err
	}
	return ToMemberProfileResponse(profile), nil
}

func validateProfileOverrides(req MemberProfileRequest) error {
	switch {
	case req.Frequency != nil && !req.Frequency.IsValid():
		return shared.Configurationf("unknown billing frequency %q", *req.Frequency)
	case req.Timing != nil && !req.Timing.IsValid():
		return shared.Configurationf("unknown billing timing %q", *req.Timing)
	case req.Alignment != nil && !req.Alignment.IsValid():
		return shared.Configurationf("unknown cycle alignment %q", *req.Alignment)
	case req.BillingDay != nil && (*req.BillingDay < 1 || *req.BillingDay > 31):
		return shared.Configurationf("billing day must be between 1 and 31, got %d", *req.BillingDay)
	case req.ProrationMethod != nil && !req.ProrationMethod.IsValid():
		return shared.Configurationf("unknown proration method %q", *req.ProrationMethod)
	case req.CustomGraceDays != nil && *req.CustomGraceDays < 0:
		return shared.Configurationf("grace period cannot be negative")
	}
	return nil
}

// ResolveMemberConfig returns the effective policy for a member
func (s *SettingsService) ResolveMemberConfig(ctx context.Context, tenantID, memberID uuid.UUID) (*billing.ResolvedBillingConfig, error) {
	cfg, _, err := s.resolve(ctx, tenantID, memberID)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *SettingsService) resolve(ctx context.Context, tenantID, memberID uuid.UUID) (billing.ResolvedBillingConfig, *billing.MemberBillingProfile, error) {
	settings, err := s.settingsRepo.FindByTenant(ctx, tenantID)
	if errors.Is(err, shared.ErrNotFound) {
		return billing.ResolvedBillingConfig{}, nil, shared.Configurationf("billing settings have not been initialized for this club")
	}
	if err != nil {
		return billing.ResolvedBillingConfig{}, nil, err
	}

	member, err := s.accountRepo.FindMember(ctx, tenantID, memberID)
	if err != nil {
		return billing.ResolvedBillingConfig{}, nil, err
	}

	profile, err := s.profileRepo.FindByMember(ctx, tenantID, memberID)
	if errors.Is(err, shared.ErrNotFound) {
		profile = nil
	} else if err != nil {
		return billing.ResolvedBillingConfig{}, nil, err
	}

	join := member.JoinDate
	return billing.ResolveMemberConfig(settings, profile, &join), profile, nil
}

// NextBillingPeriodForMember computes the member's billing period containing
// reference. Members on an active billing hold are rejected.
func (s *SettingsService) NextBillingPeriodForMember(ctx context.Context, tenantID, memberID uuid.UUID, reference time.Time) (*billing.BillingPeriod, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing_settings", "next_billing_period")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID,
		telemetry.SpanAttrMemberID, memberID,
	)

	cfg, profile, err := s.resolve(ctx, tenantID, memberID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if profile.OnHold(reference) {
		return nil, shared.InvalidStatef("billing is on hold for member: %s", profile.BillingHoldReason)
	}

	period, err := billing.CalculateNextBillingPeriod(cfg.Cycle, reference, cfg.InvoiceDueDays)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &period, nil
}
