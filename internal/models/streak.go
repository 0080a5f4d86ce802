package models

import "time"

// Voucher types.
const (
	VoucherWeekly  = "weekly"
	VoucherMonthly = "monthly"
)

// VoucherStatus is the projected state of a voucher at a point in time.
type VoucherStatus string

// Voucher statuses. Expired is never stored.
const (
	VoucherActive  VoucherStatus = "Active"
	VoucherUsed    VoucherStatus = "Used"
	VoucherExpired VoucherStatus = "Expired"
)

// Voucher is a time-limited reward minted at a streak milestone.
type Voucher struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	MilestoneDate string     `json:"milestone_date"`
	EarnedAt      time.Time  `json:"earned_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	Used          bool       `json:"used"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
}

// Status projects the voucher state at now.
func (v *Voucher) Status(now time.Time) VoucherStatus {
	switch {
	case v.Used:
		return VoucherUsed
	case now.After(v.ExpiresAt):
		return VoucherExpired
	default:
		return VoucherActive
	}
}

// StreakRecord holds one user's streak counters and rewards.
type StreakRecord struct {
	UserID               int64      `json:"user_id"`
	CurrentStreak        int        `json:"current_streak"`
	LongestStreak        int        `json:"longest_streak"`
	CompletedStreaks     int        `json:"completed_streaks"`
	FreeImpulsePurchases int        `json:"free_impulse_purchases"`
	PendingFreePasses    int        `json:"pending_free_passes"`
	LastNonImpulseDate   *time.Time `json:"last_non_impulse_date,omitempty"`
	StreakResetDate      *time.Time `json:"streak_reset_date,omitempty"`
	Vouchers             []Voucher  `json:"vouchers"`
	Version              int64      `json:"version"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// NewStreakRecord returns the zero state for a user.
func NewStreakRecord(userID int64) *StreakRecord {
	return &StreakRecord{UserID: userID, Vouchers: []Voucher{}}
}

// Voucher returns the voucher with the given id, or nil.
func (r *StreakRecord) Voucher(id string) *Voucher {
	for i := range r.Vouchers {
		if r.Vouchers[i].ID == id {
			return &r.Vouchers[i]
		}
	}
	return nil
}

// ActiveVouchers returns the vouchers usable at now.
func (r *StreakRecord) ActiveVouchers(now time.Time) []Voucher {
	active := []Voucher{}
	for _, v := range r.Vouchers {
		if v.Status(now) == VoucherActive {
			active = append(active, v)
		}
	}
	return active
}

// Clone returns a deep copy, so a failed update never leaks into the caller's copy.
func (r *StreakRecord) Clone() *StreakRecord {
	c := *r
	c.Vouchers = make([]Voucher, len(r.Vouchers))
	copy(c.Vouchers, r.Vouchers)
	for i := range c.Vouchers {
		if u := r.Vouchers[i].UsedAt; u != nil {
			t := *u
			c.Vouchers[i].UsedAt = &t
		}
	}
	if r.LastNonImpulseDate != nil {
		t := *r.LastNonImpulseDate
		c.LastNonImpulseDate = &t
	}
	if r.StreakResetDate != nil {
		t := *r.StreakResetDate
		c.StreakResetDate = &t
	}
	return &c
}
