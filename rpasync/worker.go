package rpasync

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/docuconta/books_backend/config"
	"github.com/docuconta/books_backend/models"
	"github.com/sirupsen/logrus"
)

const defaultReconcileInterval = 5 * time.Minute

// ReconciliationWorker is the safety net for orchestration results the
// on-demand status path never queried: on a fixed interval it polls the
// vendor for every still-PENDING action and terminalizes the ones whose job
// reached a terminal state.
type ReconciliationWorker struct {
	vendor   VendorClient
	actions  ActionStore
	logger   *logrus.Logger
	interval time.Duration
}

func NewReconciliationWorker(vendor VendorClient, actions ActionStore, logger *logrus.Logger) *ReconciliationWorker {
	interval := defaultReconcileInterval
	if v := strings.TrimSpace(os.Getenv("RPA_RECONCILE_INTERVAL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			interval = time.Duration(n) * time.Second
		}
	}
	return &ReconciliationWorker{vendor: vendor, actions: actions, logger: logger, interval: interval}
}

// Run blocks until ctx is cancelled. Sweeps run to completion inside the
// ticker loop, so a long sweep delays the next tick instead of overlapping it.
func (w *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.WithFields(logrus.Fields{
		"module":   "rpasync",
		"interval": w.interval.String(),
	}).Info("rpa reconciliation worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("rpa reconciliation worker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep reconciles the whole pending backlog once. Per-action failures are
// logged and skipped so one unreachable job never stalls the rest.
func (w *ReconciliationWorker) Sweep(ctx context.Context) {
	// Best-effort cross-replica exclusion. Redis being down must not stop
	// reconciliation: the only-if-PENDING update keeps concurrent sweeps safe.
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "lock:rpa-reconcile", w.interval, nil)
		if err == redislock.ErrNotObtained {
			return
		}
		if err == nil {
			defer func() {
				if releaseErr := lock.Release(ctx); releaseErr != nil {
					w.logger.Warn("failed to release reconcile lock: " + releaseErr.Error())
				}
			}()
		} else {
			w.logger.Warn("error obtaining reconcile lock; proceeding without it: " + err.Error())
		}
	}

	pending, err := w.actions.Pending(ctx, models.RpaActionTypeDataEntry)
	if err != nil {
		config.LogError(w.logger, "worker.go", "Sweep", "loading pending rpa actions", nil, err)
		return
	}
	if len(pending) == 0 {
		return
	}

	var updated, failed int
	for i := range pending {
		// Shutting down mid-backlog: abandon cleanly between actions. Each
		// action update is a single atomic persistence call, so no partial
		// multi-field state is left behind.
		if ctx.Err() != nil {
			return
		}
		if err := w.reconcileAction(ctx, &pending[i]); err != nil {
			failed++
			config.LogError(w.logger, "worker.go", "Sweep", "reconciling rpa action",
				map[string]int{"action_id": pending[i].ID, "document_id": pending[i].DocumentId}, err)
			continue
		}
		updated++
	}

	w.logger.WithFields(logrus.Fields{
		"module":  "rpasync",
		"pending": len(pending),
		"swept":   updated,
		"errors":  failed,
	}).Info("rpa reconciliation sweep finished")
}

func (w *ReconciliationWorker) reconcileAction(ctx context.Context, action *models.RpaAction) error {
	result, err := action.DecodeResult()
	if err != nil {
		return fmt.Errorf("decode action result: %w", err)
	}
	if result.JobKey == "" {
		// Defensive no-op: a pending action without a job key has nothing to
		// poll and is left for the audit trail.
		return nil
	}

	state, err := w.vendor.JobStatus(ctx, result.JobKey)
	if err != nil {
		return err
	}

	status, terminal := statusForVendorState(state)
	if !terminal {
		return nil
	}

	result.State = state
	_, err = w.actions.TerminalizeIfPending(ctx, action.ID, status, result)
	return err
}
