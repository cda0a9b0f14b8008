package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
	"github.com/Blaze-0903/NextStepAI/internal/domain/match"
	"github.com/Blaze-0903/NextStepAI/internal/domain/skill"
	"github.com/Blaze-0903/NextStepAI/internal/ontology"
	"github.com/Blaze-0903/NextStepAI/internal/repository/memory"

	"github.com/google/uuid"
)

func loadedStore(t *testing.T) (*memory.Store, *ontology.Store) {
	t.Helper()
	mem := memory.New()
	ctx := context.Background()
	if err := mem.ReplaceSkills(ctx, []skill.Skill{
		{Name: "Python", Aliases: []string{"py"}},
		{Name: "SQL"},
		{Name: "Excel", LearningResources: []string{"https://example.com/excel"}},
		{Name: "React"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := mem.ReplaceRoles(ctx, []job.Role{
		{
			Title:           "Data Analyst",
			ExperienceLevel: job.LevelEntry,
			SkillWeights: []job.SkillWeight{
				{Skill: "SQL", Weight: 1, IsCore: true},
				{Skill: "Excel", Weight: 0.8, IsCore: true},
			},
		},
		{
			Title:           "Frontend Developer",
			ExperienceLevel: job.LevelMid,
			SkillWeights:    []job.SkillWeight{{Skill: "React", Weight: 1, IsCore: true}},
		},
	}); err != nil {
		t.Fatal(err)
	}
	store := ontology.NewStore(mem, nil)
	if _, err := store.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	return mem, store
}

func withText(text string, err error) TextExtractor {
	return func(string, string, []byte) (string, error) { return text, err }
}

type failingAnalyses struct{}

func (failingAnalyses) Create(context.Context, match.Analysis) error {
	return errors.New("insert failed")
}

type fakeArchive struct {
	calls int
	err   error
}

func (a *fakeArchive) Store(_ context.Context, id uuid.UUID, filename, _ string, _ []byte) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return "resumes/" + id.String() + "/" + filename, nil
}

func TestAnalysis_UnsupportedFormat(t *testing.T) {
	mem, store := loadedStore(t)
	uc := NewAnalysisUsecase(store, mem, nil, nil)

	_, err := uc.Analyze(context.Background(), AnalyzeInput{Filename: "cv.txt", Data: []byte("python")})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestAnalysis_UnreadableDocument(t *testing.T) {
	mem, store := loadedStore(t)
	uc := NewAnalysisUsecase(store, mem, nil, nil)

	_, err := uc.Analyze(context.Background(), AnalyzeInput{Filename: "cv.pdf", Data: []byte("not a pdf")})
	if !errors.Is(err, ErrUnreadableDocument) {
		t.Fatalf("expected ErrUnreadableDocument, got %v", err)
	}
}

func TestAnalysis_EmptyTextAndNoSkills(t *testing.T) {
	mem, store := loadedStore(t)
	uc := NewAnalysisUsecase(store, mem, nil, nil)

	uc.extract = withText("  \n ", nil)
	if _, err := uc.Analyze(context.Background(), AnalyzeInput{Filename: "cv.pdf"}); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}

	uc.extract = withText("I enjoy gardening and chess.", nil)
	if _, err := uc.Analyze(context.Background(), AnalyzeInput{Filename: "cv.pdf"}); !errors.Is(err, ErrNoSkillsFound) {
		t.Fatalf("expected ErrNoSkillsFound, got %v", err)
	}
	if n := len(mem.Analyses()); n != 0 {
		t.Fatalf("expected nothing persisted, got %d", n)
	}
}

func TestAnalysis_RanksAndPersists(t *testing.T) {
	mem, store := loadedStore(t)
	archive := &fakeArchive{}
	uc := NewAnalysisUsecase(store, mem, archive, nil)
	uc.extract = withText("Skills: SQL, py and some Excel.", nil)
	uc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	res, err := uc.Analyze(context.Background(), AnalyzeInput{Filename: "cv.docx"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := []string{"Excel", "Python", "SQL"}
	if len(res.UserSkills) != len(want) {
		t.Fatalf("expected skills %v, got %v", want, res.UserSkills)
	}
	for i := range want {
		if res.UserSkills[i] != want[i] {
			t.Fatalf("expected skills %v, got %v", want, res.UserSkills)
		}
	}
	if len(res.CareerMatches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(res.CareerMatches))
	}
	if res.CareerMatches[0].Title != "Data Analyst" || res.CareerMatches[0].MatchScore != 100 {
		t.Fatalf("unexpected top match: %+v", res.CareerMatches[0])
	}
	if res.CareerMatches[1].MatchScore != 0 {
		t.Fatalf("expected zero score for Frontend Developer, got %v", res.CareerMatches[1].MatchScore)
	}

	saved := mem.Analyses()
	if len(saved) != 1 {
		t.Fatalf("expected one persisted analysis, got %d", len(saved))
	}
	if saved[0].ID != res.AnalysisID || saved[0].Filename != "cv.docx" {
		t.Fatalf("unexpected record: %+v", saved[0])
	}
	if saved[0].ObjectKey != "resumes/"+res.AnalysisID.String()+"/cv.docx" {
		t.Fatalf("unexpected object key %q", saved[0].ObjectKey)
	}
	if archive.calls != 1 {
		t.Fatalf("expected one archive call, got %d", archive.calls)
	}
}

func TestAnalysis_ExperienceFilter(t *testing.T) {
	mem, store := loadedStore(t)
	uc := NewAnalysisUsecase(store, mem, nil, nil)
	uc.extract = withText("React and SQL", nil)

	res, err := uc.Analyze(context.Background(), AnalyzeInput{Filename: "cv.pdf", Experience: " mid "})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(res.CareerMatches) != 1 || res.CareerMatches[0].Title != "Frontend Developer" {
		t.Fatalf("expected only the mid-level role, got %+v", res.CareerMatches)
	}

	res, err = uc.Analyze(context.Background(), AnalyzeInput{Filename: "cv.pdf", Experience: "Mid"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(res.CareerMatches) != 0 {
		t.Fatalf("expected level match to be case-sensitive, got %+v", res.CareerMatches)
	}

	res, err = uc.Analyze(context.Background(), AnalyzeInput{Filename: "cv.pdf", Experience: "principal"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(res.CareerMatches) != 0 {
		t.Fatalf("expected no matches for unknown level, got %d", len(res.CareerMatches))
	}
}

func TestAnalysis_ArchiveFailureIsNotFatal(t *testing.T) {
	mem, store := loadedStore(t)
	uc := NewAnalysisUsecase(store, mem, &fakeArchive{err: errors.New("s3 down")}, nil)
	uc.extract = withText("SQL", nil)

	if _, err := uc.Analyze(context.Background(), AnalyzeInput{Filename: "cv.pdf"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if saved := mem.Analyses(); len(saved) != 1 || saved[0].ObjectKey != "" {
		t.Fatalf("expected record without object key, got %+v", saved)
	}
}

func TestAnalysis_PersistFailure(t *testing.T) {
	_, store := loadedStore(t)
	uc := NewAnalysisUsecase(store, failingAnalyses{}, nil, nil)
	uc.extract = withText("SQL", nil)

	if _, err := uc.Analyze(context.Background(), AnalyzeInput{Filename: "cv.pdf"}); !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
}

func TestAnalysis_PassesContentTypeToExtractor(t *testing.T) {
	mem, store := loadedStore(t)
	uc := NewAnalysisUsecase(store, mem, nil, nil)

	var gotName, gotType string
	uc.extract = func(filename, contentType string, _ []byte) (string, error) {
		gotName, gotType = filename, contentType
		return "SQL", nil
	}

	_, err := uc.Analyze(context.Background(), AnalyzeInput{Filename: "resume", ContentType: "application/pdf", Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if gotName != "resume" || gotType != "application/pdf" {
		t.Fatalf("extractor got (%q, %q)", gotName, gotType)
	}
}
