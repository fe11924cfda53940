package billing

import (
	"testing"
	"time"

	"github.com/clubledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClubBillingSettings(t *testing.T) {
	tenantID := uuid.New()
	s := DefaultClubBillingSettings(tenantID)

	assert.Equal(t, tenantID, s.TenantID)
	assert.Equal(t, FrequencyMonthly, s.Frequency)
	assert.Equal(t, TimingAdvance, s.Timing)
	assert.Equal(t, AlignmentCalendar, s.Alignment)
	assert.Equal(t, 1, s.BillingDay)
	assert.Equal(t, 7, s.InvoiceLeadDays)
	assert.Equal(t, 30, s.InvoiceDueDays)
	assert.Equal(t, 15, s.GracePeriodDays)
	assert.Equal(t, LateFeePercentage, s.LateFeeType)
	assert.Equal(t, "1.5", s.LateFeePercentage.String())
	assert.Equal(t, ProrationDaily, s.ProrationMethod)
	assert.NoError(t, s.Validate())
}

func TestClubBillingSettings_Apply(t *testing.T) {
	s := DefaultClubBillingSettings(uuid.New())

	quarterly := FrequencyQuarterly
	day := 15
	require.NoError(t, s.Apply(SettingsPatch{Frequency: &quarterly, BillingDay: &day}))
	assert.Equal(t, FrequencyQuarterly, s.Frequency)
	assert.Equal(t, 15, s.BillingDay)
	assert.Equal(t, TimingAdvance, s.Timing)

	bad := 40
	err := s.Apply(SettingsPatch{BillingDay: &bad})
	assert.ErrorIs(t, err, shared.ErrConfiguration)
	assert.Equal(t, 15, s.BillingDay, "a rejected patch leaves settings untouched")
}

func TestResolveMemberConfig(t *testing.T) {
	s := DefaultClubBillingSettings(uuid.New())
	join := date(2023, time.June, 12)

	t.Run("tenant defaults without profile", func(t *testing.T) {
		r := ResolveMemberConfig(s, nil, &join)
		assert.Equal(t, FrequencyMonthly, r.Cycle.Frequency)
		assert.Equal(t, 1, r.Cycle.BillingDay)
		assert.Equal(t, 15, r.LateFee.GracePeriodDays)
		assert.False(t, r.LateFeeExempt)
		assert.Equal(t, &join, r.Cycle.JoinDate)
	})

	t.Run("profile overrides", func(t *testing.T) {
		p := NewMemberBillingProfile(s.TenantID, uuid.New())
		annual := FrequencyAnnual
		anniversary := AlignmentAnniversary
		grace := 5
		monthly := ProrationMonthly
		p.Frequency = &annual
		p.Alignment = &anniversary
		p.CustomGraceDays = &grace
		p.ProrationMethod = &monthly
		p.LateFeeExempt = true

		r := ResolveMemberConfig(s, p, &join)
		assert.Equal(t, FrequencyAnnual, r.Cycle.Frequency)
		assert.Equal(t, AlignmentAnniversary, r.Cycle.Alignment)
		assert.Equal(t, 5, r.LateFee.GracePeriodDays)
		assert.Equal(t, ProrationMonthly, r.ProrationMethod)
		assert.True(t, r.LateFeeExempt)
		assert.NoError(t, r.Cycle.Validate())
	})
}

func TestMemberBillingProfile_OnHold(t *testing.T) {
	var none *MemberBillingProfile
	assert.False(t, none.OnHold(time.Now()))

	p := NewMemberBillingProfile(uuid.New(), uuid.New())
	assert.False(t, p.OnHold(time.Now()))

	p.BillingHold = true
	assert.True(t, p.OnHold(time.Now()))

	until := date(2024, time.June, 30)
	p.BillingHoldUntil = &until
	assert.True(t, p.OnHold(date(2024, time.June, 30)))
	assert.False(t, p.OnHold(date(2024, time.July, 1)))
}
