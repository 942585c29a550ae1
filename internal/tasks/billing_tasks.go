package tasks

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"tutorcenter_backoffice/internal/services"
)

// OverdueSweepTaskDef runs the scheduled overdue sweep: every active
// transaction and obligation past its due date is re-evaluated and promoted
// to OVERDUE where applicable. Scheduled as a recurring task (daily RRULE).
type OverdueSweepTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *OverdueSweepTaskDef) TaskID() string {
	return "overdue_sweep"
}

// HandleExecution runs one sweep pass against the current time
func (t *OverdueSweepTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, args map[string]interface{}) (map[string]interface{}, error) {
	obligationService := services.NewObligationService(db)

	count, err := obligationService.SweepOverdue(time.Now())
	if err != nil {
		return nil, err
	}

	log.Printf("[Task: overdue_sweep] %d rows transitioned to OVERDUE", count)
	return map[string]interface{}{
		"status":       "success",
		"transitioned": count,
	}, nil
}

// OverdueSweepTask is the singleton instance of OverdueSweepTaskDef
var OverdueSweepTask = &OverdueSweepTaskDef{}

// RecalculateObligationsTaskDef re-derives every active obligation from its
// source transactions, best effort. Used to repair drift after manual data
// corrections or bulk imports.
type RecalculateObligationsTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *RecalculateObligationsTaskDef) TaskID() string {
	return "recalculate_obligations"
}

// HandleExecution recomputes all obligations and reports per-row failures
func (t *RecalculateObligationsTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, args map[string]interface{}) (map[string]interface{}, error) {
	obligationService := services.NewObligationService(db)

	result, err := obligationService.RecalculateAll()
	if err != nil {
		return nil, err
	}

	log.Printf("[Task: recalculate_obligations] %d recomputed, %d failures",
		result.SuccessCount, len(result.Failures))
	return map[string]interface{}{
		"status":        "success",
		"success_count": result.SuccessCount,
		"failure_count": len(result.Failures),
		"failures":      result.Failures,
	}, nil
}

// RecalculateObligationsTask is the singleton instance of RecalculateObligationsTaskDef
var RecalculateObligationsTask = &RecalculateObligationsTaskDef{}
