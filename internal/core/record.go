package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingDate    = errors.New("date is required")
	ErrNegativeAmount = errors.New("amount cannot be negative")
	ErrNotFound       = errors.New("record not found")
)

// DailyRecord is one day's trading and points entry, unique per date.
// NetPoints is derived on every read and never persisted.
type DailyRecord struct {
	ID             int64           `json:"id,omitempty"`
	Date           Date            `json:"date"`
	Volume         decimal.Decimal `json:"volume"`
	PointsBalance  int             `json:"points_balance"`
	PointsTrading  int             `json:"points_trading"`
	PointsConsumed int             `json:"points_consumed"`
	Loss           decimal.Decimal `json:"loss"`
	Income         decimal.Decimal `json:"income"`
	NetPoints      int             `json:"net_points"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Net computes the derived points total.
func (r DailyRecord) Net() int {
	return r.PointsBalance + r.PointsTrading - r.PointsConsumed
}

// WithNet returns a copy with NetPoints recomputed.
func (r DailyRecord) WithNet() DailyRecord {
	r.NetPoints = r.Net()
	return r
}

func (r DailyRecord) Validate() error {
	if r.Date.IsZero() {
		return ErrMissingDate
	}
	if r.Volume.IsNegative() || r.Loss.IsNegative() || r.Income.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}
