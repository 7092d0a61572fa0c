package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/docuconta/books_backend/config"
	"github.com/docuconta/books_backend/utils"
	"gorm.io/gorm"
)

const RpaActionTypeDataEntry = "DATA_ENTRY"

// RpaAction records one submission of a document to the automation vendor.
//
// Lifecycle: created at submission time with a status derived from the HTTP
// outcome of the submission call; mutated exactly once more — by the on-demand
// status check or by the reconciliation sweep — when a terminal vendor state
// is observed. Never deleted.
type RpaAction struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	DocumentId          int             `gorm:"not null;index" json:"document_id"`
	AccountingSubjectId string          `gorm:"size:64;index" json:"accounting_subject_id"`
	ActionType          string          `gorm:"size:32;not null;index" json:"action_type"`
	Status              RpaActionStatus `gorm:"size:16;not null;index" json:"status"`
	Result              json.RawMessage `gorm:"type:json" json:"result"`
	TriggeredById       int             `json:"triggered_by_id"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// RpaActionResult is the shape persisted in the Result blob. VendorResponse
// keeps the raw vendor payload; Error is set on the failure path; State is the
// reconciled terminal vendor state when one was observed.
type RpaActionResult struct {
	JobKey         string          `json:"jobKey,omitempty"`
	State          string          `json:"state,omitempty"`
	Error          string          `json:"error,omitempty"`
	VendorResponse json.RawMessage `json:"vendorResponse,omitempty"`
}

func (a *RpaAction) DecodeResult() (RpaActionResult, error) {
	var r RpaActionResult
	if len(a.Result) == 0 {
		return r, nil
	}
	err := json.Unmarshal(a.Result, &r)
	return r, err
}

func CreateRpaAction(ctx context.Context, action *RpaAction) error {
	db := config.GetDB()
	return db.WithContext(ctx).Create(action).Error
}

// GetLatestRpaActionForDocument returns the most recent action of the given
// type for a document, or utils.ErrorRecordNotFound.
func GetLatestRpaActionForDocument(ctx context.Context, documentId int, actionType string) (*RpaAction, error) {
	db := config.GetDB()
	var action RpaAction
	err := db.WithContext(ctx).
		Where("document_id = ? AND action_type = ?", documentId, actionType).
		Order("created_at DESC, id DESC").
		First(&action).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &action, nil
}

// GetPendingRpaActions returns every action of the given type still in
// PENDING status, oldest first. This is the reconciliation sweep's input.
func GetPendingRpaActions(ctx context.Context, actionType string) ([]RpaAction, error) {
	db := config.GetDB()
	var actions []RpaAction
	err := db.WithContext(ctx).
		Where("action_type = ? AND status = ?", actionType, RpaActionStatusPending).
		Order("created_at, id").
		Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// TerminalizeRpaActionIfPending sets the terminal status and result blob only
// if the row is still PENDING. Both the on-demand status check and the
// reconciliation sweep may observe the terminal vendor state; the conditional
// update makes that race benign regardless of which writer lands first.
// Returns true when this caller performed the transition.
func TerminalizeRpaActionIfPending(ctx context.Context, actionId int, status RpaActionStatus, result RpaActionResult) (bool, error) {
	if !status.IsTerminal() {
		return false, errors.New("terminalize requires a terminal status")
	}
	blob, err := json.Marshal(result)
	if err != nil {
		return false, err
	}
	db := config.GetDB()
	res := db.WithContext(ctx).
		Model(&RpaAction{}).
		Where("id = ? AND status = ?", actionId, RpaActionStatusPending).
		Updates(map[string]interface{}{
			"status": status,
			"result": json.RawMessage(blob),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
