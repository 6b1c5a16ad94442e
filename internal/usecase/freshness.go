package usecase

import (
	"fmt"
	"time"

	"github.com/rosklyar/prompts-volume/internal/domain"
)

// WaitEstimator turns queue depth into a user-facing wait estimate. The model
// is linear in pending count; an in_progress entry gets a fixed estimate of
// its own since work on it has already started.
type WaitEstimator struct {
	BaseSeconds       int
	PerItemSeconds    int
	InProgressSeconds int
}

// NewWaitEstimator constructs a WaitEstimator from config values.
func NewWaitEstimator(base, perItem, inProgress int) WaitEstimator {
	return WaitEstimator{BaseSeconds: base, PerItemSeconds: perItem, InProgressSeconds: inProgress}
}

// EstimateSeconds returns the estimated wait for a freshly queued item given
// the current pending depth.
func (w WaitEstimator) EstimateSeconds(pendingCount int) int {
	if pendingCount < 0 {
		pendingCount = 0
	}
	return w.BaseSeconds + w.PerItemSeconds*pendingCount
}

// EstimateFor returns the estimate for one queue entry based on its status.
func (w WaitEstimator) EstimateFor(status domain.QueueStatus, pendingCount int) int {
	switch status {
	case domain.QueueInProgress:
		return w.InProgressSeconds
	case domain.QueuePending:
		return w.EstimateSeconds(pendingCount)
	default:
		return 0
	}
}

// Humanize renders a seconds estimate as a coarse human string.
func (w WaitEstimator) Humanize(seconds int) string {
	d := time.Duration(seconds) * time.Second
	switch {
	case d < time.Minute:
		return "under a minute"
	case d < time.Hour:
		return fmt.Sprintf("about %d minutes", int(d.Round(time.Minute).Minutes()))
	default:
		h := d.Hours()
		if h < 1.5 {
			return "about an hour"
		}
		return fmt.Sprintf("about %.0f hours", h)
	}
}
