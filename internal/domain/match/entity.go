package match

import (
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/matching"

	"github.com/google/uuid"
)

// Analysis is the append-only record of one resume upload.
type Analysis struct {
	ID            uuid.UUID         `json:"id"`
	Filename      string            `json:"filename"`
	UserSkills    []string          `json:"user_skills"`
	CareerMatches []matching.Result `json:"career_matches"`
	ObjectKey     string            `json:"object_key,omitempty"`
	CreatedAt     time.Time         `json:"timestamp"`
}
