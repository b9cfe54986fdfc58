package copier

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gotd/td/tg"

	"github.com/blockedby/copygram/internal/logger"
	"github.com/blockedby/copygram/internal/repository"
	"github.com/blockedby/copygram/internal/telegram"
)

// Outcome is the way a copy loop ended. Cancellation and quota
// exhaustion terminate the loop early but are not errors.
type Outcome string

// Loop outcomes.
const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeQuota     Outcome = "quota_exceeded"
)

// CancelToken is an advisory stop request, checked once per message.
type CancelToken struct {
	flag atomic.Bool
}

// Cancel requests the loop to stop before the next message.
func (t *CancelToken) Cancel() { t.flag.Store(true) }

// Cancelled reports whether a stop was requested.
func (t *CancelToken) Cancelled() bool { return t.flag.Load() }

// Quota reads and advances per-user message budgets.
type Quota interface {
	Stats(ctx context.Context, userID int64) (repository.Stats, error)
	IncrementMessageCount(ctx context.Context, userID int64, n int64) error
}

// Request describes one copy loop: a strictly increasing, inclusive id
// range from the source channel into the destination peer. Dest is the
// target channel for channel copies and the user's own chat for
// personal copies.
type Request struct {
	UserID  int64
	Source  *telegram.ChatRef
	Dest    tg.InputPeerClass
	StartID int
	EndID   int

	// DestLabel names the destination for job rows and status text,
	// e.g. "@channel" or "Saved Messages".
	DestLabel string
}

// Total returns the number of message ids the request covers.
func (r Request) Total() int {
	if r.EndID < r.StartID {
		return 0
	}
	return r.EndID - r.StartID + 1
}

// Result is the loop summary. copied+failed never exceeds the request
// total and equals it after an uninterrupted run.
type Result struct {
	Outcome Outcome
	Copied  int
	Failed  int
}

// Service runs copy loops.
type Service struct {
	quota      Quota
	scratchDir string
	log        *logger.Logger
}

// NewService creates the copy service.
func NewService(quota Quota, scratchDir string) *Service {
	return &Service{
		quota:      quota,
		scratchDir: scratchDir,
		log:        logger.Get(),
	}
}

// Run executes one copy loop. Messages are processed sequentially in
// increasing id order; a per-message failure counts and continues, it
// never aborts the loop or triggers a retry. The cancellation token and
// the quota are re-checked at the top of every iteration. onProgress,
// when not nil, receives the running counters after every message.
func (s *Service) Run(ctx context.Context, client ChatClient, req Request, cancel *CancelToken, sink StatusSink, onProgress func(copied, failed int)) (*Result, error) {
	if req.Total() == 0 {
		return nil, fmt.Errorf("empty message range %d-%d", req.StartID, req.EndID)
	}

	status := newStatusThrottle(sink)
	tr := newTransferrer(client, s.scratchDir)
	defer tr.sweepScratch()

	res := &Result{Outcome: OutcomeCompleted}
	total := req.Total()

	for msgID := req.StartID; msgID <= req.EndID; msgID++ {
		if cancel != nil && cancel.Cancelled() {
			res.Outcome = OutcomeCancelled
			break
		}
		if err := ctx.Err(); err != nil {
			res.Outcome = OutcomeCancelled
			break
		}

		stats, err := s.quota.Stats(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("read quota: %w", err)
		}
		if stats.Exhausted() {
			res.Outcome = OutcomeQuota
			break
		}

		if err := tr.copyOne(ctx, req.Source, msgID, req.Dest, status); err != nil {
			res.Failed++
			s.log.Warn().
				Err(err).
				Int64("user_id", req.UserID).
				Int("msg_id", msgID).
				Msg("copier: message failed")
		} else {
			res.Copied++
			if !stats.Privileged() {
				if err := s.quota.IncrementMessageCount(ctx, req.UserID, 1); err != nil {
					s.log.Error().Err(err).Int64("user_id", req.UserID).Msg("copier: quota increment failed")
				}
			}
		}

		if onProgress != nil {
			onProgress(res.Copied, res.Failed)
		}
		status.Maybe(fmt.Sprintf("Copying %d/%d (failed %d)", res.Copied+res.Failed, total, res.Failed))
	}

	status.Push(s.finalLine(res, total))
	s.log.Info().
		Int64("user_id", req.UserID).
		Str("outcome", string(res.Outcome)).
		Int("copied", res.Copied).
		Int("failed", res.Failed).
		Int("total", total).
		Msg("copier: loop finished")
	return res, nil
}

func (s *Service) finalLine(res *Result, total int) string {
	switch res.Outcome {
	case OutcomeCancelled:
		return fmt.Sprintf("Copy stopped: %d copied, %d failed of %d", res.Copied, res.Failed, total)
	case OutcomeQuota:
		return fmt.Sprintf("Free limit reached: %d copied, %d failed of %d. Upgrade to VIP to continue.", res.Copied, res.Failed, total)
	default:
		return fmt.Sprintf("Copy finished: %d copied, %d failed of %d", res.Copied, res.Failed, total)
	}
}
