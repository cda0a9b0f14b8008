package dto

import "github.com/Blaze-0903/NextStepAI/internal/domain/matching"

type UploadResumeResponse struct {
	AnalysisID       string            `json:"analysis_id"`
	UserSkills       []string          `json:"user_skills"`
	CareerMatches    []matching.Result `json:"career_matches"`
	TotalSkillsFound int               `json:"total_skills_found"`
}
