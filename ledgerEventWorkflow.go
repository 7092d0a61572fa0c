package main

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/docuconta/books_backend/config"
	"github.com/docuconta/books_backend/models"
	"github.com/docuconta/books_backend/utils"
	"github.com/docuconta/books_backend/workflow"
	"github.com/sirupsen/logrus"
)

var (
	subjectMutexMap = make(map[string]*sync.Mutex)
	globalMutex     = &sync.Mutex{}
)

// RunLedgerEventWorkflow subscribes to ledger change events and recalculates
// the affected subject's metrics for the month the change falls in.
// Recalculations for the same subject are serialized; different subjects
// proceed in parallel.
func RunLedgerEventWorkflow(ctx context.Context) error {
	logger := config.GetLogger()
	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}
	topic, err := config.CreateTopicIfNotExists(client, os.Getenv("PUBSUB_TOPIC"))
	if err != nil {
		return err
	}
	sub, err := config.CreateSubscriptionIfNotExists(client, os.Getenv("PUBSUB_SUBSCRIPTION"), topic)
	if err != nil {
		return err
	}
	// Number of concurrently processed messages.
	sub.ReceiveSettings.MaxOutstandingMessages = 10

	callback := func(ctx context.Context, msg *pubsub.Message) {
		m := config.LedgerEventMessage{}
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			config.LogError(logger, "ledgerEventWorkflow.go", "RunLedgerEventWorkflow", "unmarshaling pubsub message", msg.Data, err)
			// Malformed message: ack/drop to avoid infinite retries.
			msg.Ack()
			return
		}
		if err := utils.ValidateStruct(m); err != nil {
			config.LogError(logger, "ledgerEventWorkflow.go", "RunLedgerEventWorkflow", "invalid pubsub message", m, err)
			msg.Ack()
			return
		}

		// Get or create the mutex for this subject.
		globalMutex.Lock()
		mutex, exists := subjectMutexMap[m.AccountingSubjectId]
		if !exists {
			mutex = &sync.Mutex{}
			subjectMutexMap[m.AccountingSubjectId] = mutex
		}
		globalMutex.Unlock()

		mutex.Lock()
		defer mutex.Unlock()

		ctx = utils.SetAccountingSubjectIdInContext(ctx, m.AccountingSubjectId)
		ctx = utils.SetUserIdInContext(ctx, 0)
		ctx = utils.SetUserNameInContext(ctx, "System")
		if m.CorrelationId != "" {
			ctx = utils.SetCorrelationIdInContext(ctx, m.CorrelationId)
		}

		periodStart, periodEnd := workflow.PeriodBounds(models.PeriodTypeMonthly, m.TransactionDateTime.UTC())
		if _, err := workflow.CalculateFinancialMetrics(ctx, m.AccountingSubjectId, models.PeriodTypeMonthly, periodStart, periodEnd); err != nil {
			logger.WithFields(logrus.Fields{
				"module":         "ledgerEventWorkflow",
				"subject_id":     m.AccountingSubjectId,
				"reference_type": m.ReferenceType,
				"reference_id":   m.ReferenceId,
				"message_id":     msg.ID,
			}).Error("metric recalculation failed: " + err.Error())
			msg.Nack()
			return
		}
		msg.Ack()
	}

	go func() {
		if err := sub.Receive(ctx, callback); err != nil {
			config.LogError(logger, "ledgerEventWorkflow.go", "RunLedgerEventWorkflow", "failed to receive messages", nil, err)
		}
	}()

	return nil
}
