package budget

import (
	"errors"
	"sync"
	"time"
)

// ErrExhausted is reported when a call would exceed the token budget. The
// insight operation fails with it before any outbound call is made, which
// counts as an ordinary dependency failure.
var ErrExhausted = errors.New("insight token budget exhausted")

// TokenBudget tracks token usage for cost control. The hourly allowance is
// a tenth of the daily limit; both counters roll over on their boundary.
type TokenBudget struct {
	mutex       sync.Mutex
	dailyLimit  int64
	hourlyLimit int64
	dailyUsed   int64
	hourlyUsed  int64
	currentDay  time.Time
	currentHour int
}

type Usage struct {
	DailyUsed    int64   `json:"daily_tokens"`
	DailyLimit   int64   `json:"daily_limit"`
	DailyPercent float64 `json:"daily_percent"`
	HourlyUsed   int64   `json:"hourly_tokens"`
	HourlyLimit  int64   `json:"hourly_limit"`
}

func New(dailyLimit int64) *TokenBudget {
	if dailyLimit < 1 {
		dailyLimit = 1_000_000
	}

	now := time.Now()
	return &TokenBudget{
		dailyLimit:  dailyLimit,
		hourlyLimit: dailyLimit / 10,
		currentDay:  truncateDay(now),
		currentHour: now.Hour(),
	}
}

// CanUse reports whether the budget allows spending tokens now.
func (b *TokenBudget) CanUse(tokens int64) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.resetIfNeeded()
	return b.dailyUsed+tokens <= b.dailyLimit &&
		b.hourlyUsed+tokens <= b.hourlyLimit
}

// Record charges input and output tokens against the budget.
func (b *TokenBudget) Record(inputTokens, outputTokens int64) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.resetIfNeeded()
	total := inputTokens + outputTokens
	b.dailyUsed += total
	b.hourlyUsed += total
}

// Usage returns the current counters.
func (b *TokenBudget) Usage() Usage {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.resetIfNeeded()
	return Usage{
		DailyUsed:    b.dailyUsed,
		DailyLimit:   b.dailyLimit,
		DailyPercent: float64(b.dailyUsed) / float64(b.dailyLimit) * 100,
		HourlyUsed:   b.hourlyUsed,
		HourlyLimit:  b.hourlyLimit,
	}
}

// resetIfNeeded rolls the counters over on day/hour boundaries. Caller must
// hold the mutex.
func (b *TokenBudget) resetIfNeeded() {
	now := time.Now()
	if !truncateDay(now).Equal(b.currentDay) {
		b.dailyUsed = 0
		b.currentDay = truncateDay(now)
	}
	if now.Hour() != b.currentHour {
		b.hourlyUsed = 0
		b.currentHour = now.Hour()
	}
}

func truncateDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
