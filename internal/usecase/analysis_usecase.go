package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/match"
	"github.com/Blaze-0903/NextStepAI/internal/domain/matching"
	"github.com/Blaze-0903/NextStepAI/internal/infrastructure/textextract"
	"github.com/Blaze-0903/NextStepAI/internal/ontology"
	"github.com/Blaze-0903/NextStepAI/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultMatchLimit = matching.DefaultRankLimit

type AnalyzeInput struct {
	Filename    string
	ContentType string
	Data        []byte
	// Experience optionally restricts ranking to roles of exactly this level.
	Experience string
}

type AnalysisResult struct {
	AnalysisID    uuid.UUID
	UserSkills    []string
	CareerMatches []matching.Result
}

type AnalysisUsecase interface {
	Analyze(ctx context.Context, in AnalyzeInput) (AnalysisResult, error)
}

type SnapshotSource interface {
	Snapshot() *ontology.Snapshot
}

// ResumeArchive keeps a copy of uploaded documents.
type ResumeArchive interface {
	Store(ctx context.Context, id uuid.UUID, filename, contentType string, data []byte) (string, error)
}

type TextExtractor func(filename, contentType string, data []byte) (string, error)

type Analysis struct {
	store    SnapshotSource
	analyses repository.AnalysisRepository
	archive  ResumeArchive
	extract  TextExtractor
	logger   *zap.Logger
	now      func() time.Time
}

// NewAnalysisUsecase wires the upload pipeline. archive may be nil.
func NewAnalysisUsecase(store SnapshotSource, analyses repository.AnalysisRepository, archive ResumeArchive, logger *zap.Logger) *Analysis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analysis{
		store:    store,
		analyses: analyses,
		archive:  archive,
		extract:  textextract.Extract,
		logger:   logger.With(zap.String("component", "analysis")),
		now:      time.Now,
	}
}

func (u *Analysis) Analyze(ctx context.Context, in AnalyzeInput) (AnalysisResult, error) {
	text, err := u.extract(in.Filename, in.ContentType, in.Data)
	if err != nil {
		switch {
		case errors.Is(err, textextract.ErrUnsupportedFormat):
			return AnalysisResult{}, ErrUnsupportedFormat
		case errors.Is(err, textextract.ErrUnreadable):
			u.logger.Info("resume unreadable", zap.String("filename", in.Filename), zap.Error(err))
			return AnalysisResult{}, ErrUnreadableDocument
		}
		return AnalysisResult{}, ErrInternal
	}
	if strings.TrimSpace(text) == "" {
		return AnalysisResult{}, ErrEmptyText
	}

	// One snapshot for the whole request so extraction and ranking agree.
	snap := u.store.Snapshot()
	skills := snap.Extract(text)
	if len(skills) == 0 {
		return AnalysisResult{}, ErrNoSkillsFound
	}

	// Levels match exactly; "Entry" does not select "entry" roles.
	exp := strings.TrimSpace(in.Experience)
	matches := matching.Rank(matching.NewSkillSet(skills...), snap.Roles(), exp, snap, DefaultMatchLimit)

	rec := match.Analysis{
		ID:            uuid.New(),
		Filename:      in.Filename,
		UserSkills:    skills,
		CareerMatches: matches,
		CreatedAt:     u.now().UTC(),
	}

	if u.archive != nil {
		key, err := u.archive.Store(ctx, rec.ID, in.Filename, in.ContentType, in.Data)
		if err != nil {
			u.logger.Warn("resume archive failed", zap.String("analysis_id", rec.ID.String()), zap.Error(err))
		} else {
			rec.ObjectKey = key
		}
	}

	if err := u.analyses.Create(ctx, rec); err != nil {
		u.logger.Error("analysis persist failed", zap.String("analysis_id", rec.ID.String()), zap.Error(err))
		return AnalysisResult{}, ErrInternal
	}

	u.logger.Info("resume analyzed",
		zap.String("analysis_id", rec.ID.String()),
		zap.Int("skills", len(skills)),
		zap.Int("matches", len(matches)),
		zap.Int64("snapshot_version", snap.Version),
	)
	return AnalysisResult{AnalysisID: rec.ID, UserSkills: skills, CareerMatches: matches}, nil
}
