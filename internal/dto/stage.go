package dto

import "github.com/noah-isme/sma-admissions-api/internal/models"

// MoveStageRequest signals that current_stage completed.
type MoveStageRequest struct {
	CurrentStage models.StageName `json:"current_stage" validate:"required"`
}

// SetStageStatusRequest flips one stage's status.
type SetStageStatusRequest struct {
	StageName models.StageName   `json:"stage_name" validate:"required"`
	Status    models.StageStatus `json:"status" validate:"required"`
}

// StageLedgerResponse returns the persisted ledger after a change.
type StageLedgerResponse struct {
	EnquiryID    string             `json:"enquiry_id"`
	Stages       models.StageLedger `json:"enquiry_stages"`
	CurrentIndex int                `json:"current_index"`
	Delegated    bool               `json:"delegated,omitempty"`
}
