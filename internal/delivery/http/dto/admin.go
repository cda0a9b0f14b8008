package dto

import (
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/pending"
)

type AdminLoginRequest struct {
	Password     string `json:"password" validate:"required"`
	ReviewerName string `json:"reviewer_name"`
}

type AdminLoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	Reviewer  string    `json:"reviewer"`
}

type PendingUpdatesResponse struct {
	PendingUpdates []pending.Update `json:"pending_updates"`
	Count          int              `json:"count"`
}

type ReviewRequest struct {
	UpdateID     string `json:"update_id" validate:"required"`
	Decision     string `json:"decision" validate:"required"`
	ReviewerName string `json:"reviewer_name"`
}

type ReviewResponse struct {
	UpdateID        string         `json:"update_id"`
	Status          pending.Status `json:"status"`
	Applied         bool           `json:"applied"`
	SnapshotVersion int64          `json:"snapshot_version"`
}

type TriggerResponse struct {
	JobID       string    `json:"job_id"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}
