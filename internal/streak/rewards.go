package streak

import (
	"time"

	"github.com/google/uuid"

	"spendwise/internal/apperr"
	"spendwise/internal/models"
)

// Policy controls voucher validity.
type Policy struct {
	WeeklyValidity  time.Duration `yaml:"weekly_validity"`
	MonthlyValidity time.Duration `yaml:"monthly_validity"`
}

// DefaultPolicy returns the standard voucher validity windows.
func DefaultPolicy() Policy {
	return Policy{
		WeeklyValidity:  14 * 24 * time.Hour,
		MonthlyValidity: 30 * 24 * time.Hour,
	}
}

// monthlyEvery marks milestones that mint a monthly voucher instead of a weekly one.
const monthlyEvery = 4 * WeekLength

// reconcile brings rec in line with the calendar. Counters are derived from
// the calendar and rewards are never revoked. The number of vouchers owed is
// the calendar's milestone count less CompletedStreaks, or the number of
// unrewarded milestones dated after the newest rewarded one if that is larger.
// They are minted for the newest unrewarded milestone days.
func reconcile(rec *models.StreakRecord, days []DayEntry, now time.Time, policy Policy, newID func() string) []models.Voucher {
	rec.LastNonImpulseDate = nil
	rec.StreakResetDate = nil
	if len(days) == 0 {
		rec.CurrentStreak = 0
		return nil
	}

	rewarded := make(map[string]bool, len(rec.Vouchers))
	latest := ""
	for _, v := range rec.Vouchers {
		rewarded[v.MilestoneDate] = true
		if v.MilestoneDate > latest {
			latest = v.MilestoneDate
		}
	}

	var (
		milestones int
		open       []DayEntry
		fresh      int
	)
	for _, day := range days {
		if day.StreakDay > rec.LongestStreak {
			rec.LongestStreak = day.StreakDay
		}
		if !day.Milestone {
			continue
		}
		milestones++
		if rewarded[day.Date] {
			continue
		}
		open = append(open, day)
		if day.Date > latest {
			fresh++
		}
	}

	due := max(milestones-rec.CompletedStreaks, fresh, 0)
	due = min(due, len(open))

	var minted []models.Voucher
	for _, day := range open[len(open)-due:] {
		v := models.Voucher{
			ID:            newID(),
			Type:          models.VoucherWeekly,
			MilestoneDate: day.Date,
			EarnedAt:      now,
			ExpiresAt:     now.Add(policy.WeeklyValidity),
		}
		if day.StreakDay%monthlyEvery == 0 {
			v.Type = models.VoucherMonthly
			v.ExpiresAt = now.Add(policy.MonthlyValidity)
		}
		rec.Vouchers = append(rec.Vouchers, v)
		minted = append(minted, v)

		rec.CompletedStreaks++
		if rec.CompletedStreaks%StreaksPerFreeImpulse == 0 {
			rec.FreeImpulsePurchases++
		}
	}

	rec.CurrentStreak = days[len(days)-1].StreakDay
	for i := len(days) - 1; i >= 0; i-- {
		d, err := time.Parse(models.DayLayout, days[i].Date)
		if err != nil {
			continue
		}
		if days[i].HadImpulse && rec.StreakResetDate == nil {
			rec.StreakResetDate = &d
		}
		if !days[i].HadImpulse && rec.LastNonImpulseDate == nil {
			rec.LastNonImpulseDate = &d
		}
		if rec.StreakResetDate != nil && rec.LastNonImpulseDate != nil {
			break
		}
	}
	return minted
}

func newVoucherID() string {
	return uuid.NewString()
}

// redeemVoucher marks a voucher used. It fails without touching rec when the
// voucher is unknown, used, or expired.
func redeemVoucher(rec *models.StreakRecord, id string, now time.Time) error {
	const op = "redeem voucher"
	v := rec.Voucher(id)
	if v == nil {
		return apperr.E(apperr.NotFound, op, "voucher not found")
	}
	switch v.Status(now) {
	case models.VoucherUsed:
		return apperr.E(apperr.InvalidState, op, "voucher has already been used")
	case models.VoucherExpired:
		return apperr.E(apperr.InvalidState, op, "voucher has expired")
	}
	v.Used = true
	v.UsedAt = &now
	return nil
}

// redeemFreeImpulse spends one free credit and arms a free pass for the next impulse expense.
func redeemFreeImpulse(rec *models.StreakRecord) error {
	if rec.FreeImpulsePurchases <= 0 {
		return apperr.E(apperr.InvalidState, "redeem free impulse purchase", "no free impulse purchases available")
	}
	rec.FreeImpulsePurchases--
	rec.PendingFreePasses++
	return nil
}
