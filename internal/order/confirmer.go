package order

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"printful-bridge/internal/cache"
	"printful-bridge/internal/printful"
)

// backoffSchedule is the wait after a failed confirmation attempt. Past the
// last entry retries continue at the longest interval.
var backoffSchedule = []time.Duration{
	1 * time.Minute,
	4 * time.Minute,
	16 * time.Minute,
	64 * time.Minute,
	256 * time.Minute,
}

// Backoff returns the delay before retrying after attempt failed.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return backoffSchedule[min(attempt, len(backoffSchedule)-1)]
}

// DefaultAlertAfter is the attempt count after which every further failure alerts.
const DefaultAlertAfter = 8

// AlertFunc is called for a job that keeps failing past the alert threshold.
type AlertFunc func(ctx context.Context, job Job)

// flowState is the RetryState remembered per remote order.
type flowState struct {
	Flow printful.Flow `json:"flow"`
}

// Confirmer confirms draft orders and owns their retry schedule.
type Confirmer struct {
	pf         PrintfulAPI
	cache      cache.Store
	queue      Queue
	logger     *slog.Logger
	alertAfter int
	alert      AlertFunc
	now        func() time.Time
}

// ConfirmerOption customizes a Confirmer.
type ConfirmerOption func(*Confirmer)

// WithAlert sets the chronic-failure hook and its threshold (0 keeps the default).
func WithAlert(after int, fn AlertFunc) ConfirmerOption {
	return func(c *Confirmer) {
		if after > 0 {
			c.alertAfter = after
		}
		if fn != nil {
			c.alert = fn
		}
	}
}

// NewConfirmer creates a confirmer.
func NewConfirmer(pf PrintfulAPI, store cache.Store, queue Queue, logger *slog.Logger, opts ...ConfirmerOption) *Confirmer {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Confirmer{
		pf:         pf,
		cache:      store,
		queue:      queue,
		logger:     logger,
		alertAfter: DefaultAlertAfter,
		now:        time.Now,
	}
	c.alert = c.logAlert
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Confirmer) logAlert(ctx context.Context, job Job) {
	c.logger.ErrorContext(ctx, "printful order still unconfirmed",
		slog.Int64("printful_order_id", job.RemoteOrderID),
		slog.Int("attempt", job.Attempt),
		slog.String("last_error", job.LastError),
	)
}

// Schedule remembers which API generation the order uses and queues its first
// confirmation attempt.
func (c *Confirmer) Schedule(ctx context.Context, remoteOrderID int64, flow printful.Flow, attempt int) error {
	if err := cache.SetJSON(ctx, c.cache, flowKey(remoteOrderID), flowState{Flow: flow}, cache.FlowTTL); err != nil {
		c.logger.WarnContext(ctx, "flow state not stored", slog.Int64("printful_order_id", remoteOrderID), slog.Any("error", err))
	}
	return c.queue.Enqueue(ctx, Job{
		RemoteOrderID: remoteOrderID,
		Attempt:       attempt,
		NotBefore:     c.now().Add(Backoff(attempt)),
	})
}

// Flow returns the remembered API generation, v2 when nothing is stored.
func (c *Confirmer) Flow(ctx context.Context, remoteOrderID int64) printful.Flow {
	var st flowState
	ok, err := cache.GetJSON(ctx, c.cache, flowKey(remoteOrderID), &st)
	if err != nil || !ok {
		return printful.FlowV2
	}
	return printful.ParseFlow(string(st.Flow))
}

// RetryJob attempts one confirmation. Success removes the job; anything else
// requeues it at attempt+1 after Backoff(attempt). It reports whether the order
// is now confirmed.
func (c *Confirmer) RetryJob(ctx context.Context, remoteOrderID int64, attempt int) (bool, error) {
	flow := c.Flow(ctx, remoteOrderID)
	id := strconv.FormatInt(remoteOrderID, 10)

	var (
		res *printful.ConfirmResult
		err error
		ok  bool
	)
	if flow == printful.FlowV1 {
		res, err = c.pf.ConfirmOrderV1(ctx, id)
		ok = ConfirmedV1(res)
	} else {
		res, err = c.pf.ConfirmOrderV2(ctx, id)
		ok = ConfirmedV2(res)
	}

	if ok {
		c.logger.InfoContext(ctx, "printful order confirmed",
			slog.Int64("printful_order_id", remoteOrderID),
			slog.String("flow", string(flow)),
			slog.Int("attempt", attempt),
		)
		if err := c.queue.Complete(ctx, remoteOrderID); err != nil {
			return true, err
		}
		return true, nil
	}

	job := Job{
		RemoteOrderID: remoteOrderID,
		Attempt:       attempt + 1,
		NotBefore:     c.now().Add(Backoff(attempt)),
		LastError:     describeFailure(res, err),
	}
	c.logger.WarnContext(ctx, "printful confirmation pending",
		slog.Int64("printful_order_id", remoteOrderID),
		slog.Int("attempt", attempt),
		slog.Duration("retry_in", Backoff(attempt)),
		slog.String("reason", job.LastError),
	)
	if job.Attempt >= c.alertAfter {
		c.alert(ctx, job)
	}
	if err := c.queue.Enqueue(ctx, job); err != nil {
		return false, err
	}
	return false, nil
}

// ConfirmNow is the webhook fast path: v2 first, then v1. A confirmed order's
// pending job is dropped.
func (c *Confirmer) ConfirmNow(ctx context.Context, remoteOrderID int64) bool {
	id := strconv.FormatInt(remoteOrderID, 10)

	res, err := c.pf.ConfirmOrderV2(ctx, id)
	ok := ConfirmedV2(res)
	if !ok {
		c.logger.DebugContext(ctx, "v2 confirmation declined, trying v1",
			slog.Int64("printful_order_id", remoteOrderID),
			slog.String("reason", describeFailure(res, err)),
		)
		res, err = c.pf.ConfirmOrderV1(ctx, id)
		ok = ConfirmedV1(res)
	}
	if !ok {
		c.logger.WarnContext(ctx, "webhook confirmation failed",
			slog.Int64("printful_order_id", remoteOrderID),
			slog.String("reason", describeFailure(res, err)),
		)
		return false
	}

	if err := c.queue.Complete(ctx, remoteOrderID); err != nil {
		c.logger.WarnContext(ctx, "confirmation job not removed", slog.Int64("printful_order_id", remoteOrderID), slog.Any("error", err))
	}
	c.logger.InfoContext(ctx, "printful order confirmed from webhook", slog.Int64("printful_order_id", remoteOrderID))
	return true
}

// ConfirmedV2 judges a v2 confirmation: 204, or a body whose status left draft.
func ConfirmedV2(res *printful.ConfirmResult) bool {
	if res == nil {
		return false
	}
	if res.StatusCode == http.StatusNoContent {
		return true
	}
	return res.Status != "" && !strings.EqualFold(res.Status, "draft")
}

// ConfirmedV1 judges a v1 confirmation by status code alone.
func ConfirmedV1(res *printful.ConfirmResult) bool {
	if res == nil {
		return false
	}
	return res.StatusCode == http.StatusOK || res.StatusCode == http.StatusNoContent
}

func describeFailure(res *printful.ConfirmResult, err error) string {
	switch {
	case err != nil:
		return err.Error()
	case res == nil:
		return "no response"
	default:
		return fmt.Sprintf("status %d %s", res.StatusCode, res.Status)
	}
}

func flowKey(remoteOrderID int64) string {
	return cache.FlowPrefix + strconv.FormatInt(remoteOrderID, 10)
}
