package billing

import (
	"fmt"
	"time"

	"github.com/clubledger/backend/internal/domain/shared"
)

// BillingFrequency is how often a member is billed
type BillingFrequency string

const (
	FrequencyMonthly    BillingFrequency = "MONTHLY"
	FrequencyQuarterly  BillingFrequency = "QUARTERLY"
	FrequencySemiAnnual BillingFrequency = "SEMI_ANNUAL"
	FrequencyAnnual     BillingFrequency = "ANNUAL"
)

// IsValid checks if the frequency is known
func (f BillingFrequency) IsValid() bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencySemiAnnual, FrequencyAnnual:
		return true
	}
	return false
}

// MonthsPerCycle returns the cycle length in months
func (f BillingFrequency) MonthsPerCycle() int {
	switch f {
	case FrequencyQuarterly:
		return 3
	case FrequencySemiAnnual:
		return 6
	case FrequencyAnnual:
		return 12
	default:
		return 1
	}
}

// BillingTiming decides whether a period is billed at its start or its end
type BillingTiming string

const (
	TimingAdvance BillingTiming = "ADVANCE"
	TimingArrears BillingTiming = "ARREARS"
)

// IsValid checks if the timing is known
func (t BillingTiming) IsValid() bool {
	return t == TimingAdvance || t == TimingArrears
}

// CycleAlignment anchors billing periods either to the calendar or to the join date
type CycleAlignment string

const (
	AlignmentCalendar    CycleAlignment = "CALENDAR"
	AlignmentAnniversary CycleAlignment = "ANNIVERSARY"
)

// IsValid checks if the alignment is known
func (a CycleAlignment) IsValid() bool {
	return a == AlignmentCalendar || a == AlignmentAnniversary
}

// CycleConfig is the resolved billing-cycle configuration for one account
type CycleConfig struct {
	Frequency  BillingFrequency
	Timing     BillingTiming
	Alignment  CycleAlignment
	BillingDay int        // 1..31, CALENDAR only
	JoinDate   *time.Time // required for ANNIVERSARY
}

// Validate checks the configuration before any date math runs
func (c CycleConfig) Validate() error {
	if !c.Frequency.IsValid() {
		return shared.Configurationf("unknown billing frequency %q", c.Frequency)
	}
	if !c.Timing.IsValid() {
		return shared.Configurationf("unknown billing timing %q", c.Timing)
	}
	switch c.Alignment {
	case AlignmentCalendar:
		if c.BillingDay < 1 || c.BillingDay > 31 {
			return shared.Configurationf("billing day must be between 1 and 31, got %d", c.BillingDay)
		}
	case AlignmentAnniversary:
		if c.JoinDate == nil || c.JoinDate.IsZero() {
			return shared.Configurationf("join date is required for anniversary billing")
		}
	default:
		return shared.Configurationf("unknown cycle alignment %q", c.Alignment)
	}
	return nil
}

// BillingPeriod is one computed billing cycle
type BillingPeriod struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	BillingDate time.Time `json:"billing_date"`
	DueDate     time.Time `json:"due_date"`
	Description string    `json:"description"`
}

// CalculateNextBillingPeriod computes the billing period for referenceDate.
//
// CALENDAR periods start on the configured billing day. Monthly cycles use the
// reference month; longer cycles are anchored to month buckets counted from
// January and step back one cycle when the bucket start is still ahead of the
// reference date. ANNIVERSARY periods count whole cycles since the join date.
func CalculateNextBillingPeriod(cfg CycleConfig, referenceDate time.Time, invoiceDueDays int) (BillingPeriod, error) {
	if err := cfg.Validate(); err != nil {
		return BillingPeriod{}, err
	}
	ref := StartOfDay(referenceDate)
	months := cfg.Frequency.MonthsPerCycle()

	var start time.Time
	var anchorDay int
	switch cfg.Alignment {
	case AlignmentCalendar:
		anchorDay = cfg.BillingDay
		start = calendarPeriodStart(ref, months, anchorDay)
	case AlignmentAnniversary:
		join := StartOfDay(*cfg.JoinDate)
		anchorDay = join.Day()
		start = anniversaryPeriodStart(join, ref, months)
	}

	return buildPeriod(start, months, anchorDay, cfg.Timing, invoiceDueDays), nil
}

// CalculateBillingPeriods returns count consecutive periods beginning with the
// period for from.
func CalculateBillingPeriods(cfg CycleConfig, from time.Time, count, invoiceDueDays int) ([]BillingPeriod, error) {
	if count < 1 {
		return nil, shared.InvalidInputf("period count must be positive, got %d", count)
	}
	first, err := CalculateNextBillingPeriod(cfg, from, invoiceDueDays)
	if err != nil {
		return nil, err
	}
	anchorDay := cfg.BillingDay
	if cfg.Alignment == AlignmentAnniversary {
		anchorDay = cfg.JoinDate.Day()
	}
	months := cfg.Frequency.MonthsPerCycle()

	periods := make([]BillingPeriod, 0, count)
	periods = append(periods, first)
	start := first.PeriodStart
	for i := 1; i < count; i++ {
		start = addMonthsAnchored(start, months, anchorDay)
		periods = append(periods, buildPeriod(start, months, anchorDay, cfg.Timing, invoiceDueDays))
	}
	return periods, nil
}

// calendarPeriodStart places the period on billingDay. Monthly periods always
// start in the reference month, even when that day is after the reference;
// longer cycles step back one cycle instead.
func calendarPeriodStart(ref time.Time, months, billingDay int) time.Time {
	loc := ref.Location()
	if months == 1 {
		return DateWithClampedDay(ref.Year(), ref.Month(), billingDay, loc)
	}
	bucket := (int(ref.Month()) - 1) / months * months
	start := DateWithClampedDay(ref.Year(), time.Month(bucket+1), billingDay, loc)
	if start.After(ref) {
		start = DateWithClampedDay(ref.Year(), time.Month(bucket+1-months), billingDay, loc)
	}
	return start
}

func anniversaryPeriodStart(join, ref time.Time, months int) time.Time {
	if ref.Before(join) {
		return join
	}
	cycles := floorDiv(MonthsBetween(join, ref), months)
	start := addMonthsAnchored(join, cycles*months, join.Day())
	if start.After(ref) {
		start = addMonthsAnchored(join, (cycles-1)*months, join.Day())
	}
	return start
}

func buildPeriod(start time.Time, months, anchorDay int, timing BillingTiming, dueDays int) BillingPeriod {
	end := AddDays(addMonthsAnchored(start, months, anchorDay), -1)
	billingDate := start
	if timing == TimingArrears {
		billingDate = end
	}
	return BillingPeriod{
		PeriodStart: start,
		PeriodEnd:   end,
		BillingDate: billingDate,
		DueDate:     AddDays(billingDate, dueDays),
		Description: describePeriod(start, end, months),
	}
}

func describePeriod(start, end time.Time, months int) string {
	if months == 1 {
		return fmt.Sprintf("%s %d", start.Month(), start.Year())
	}
	if start.Year() == end.Year() {
		return fmt.Sprintf("%s - %s %d", start.Month(), end.Month(), start.Year())
	}
	return fmt.Sprintf("%s %d - %s %d", start.Month(), start.Year(), end.Month(), end.Year())
}
