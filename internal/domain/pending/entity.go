package pending

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
	"github.com/Blaze-0903/NextStepAI/internal/domain/skill"
	"github.com/Blaze-0903/NextStepAI/internal/pkg/validation"

	"github.com/google/uuid"
)

type Kind string

const (
	KindSkill          Kind = "skill"
	KindRole           Kind = "role"
	KindReviewObsolete Kind = "review_obsolete"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// DefaultConfidence is assumed for approvals of proposals that carry none.
const DefaultConfidence = 0.9

var (
	ErrUnknownKind    = errors.New("unknown pending update kind")
	ErrInvalidPayload = errors.New("invalid pending update payload")
)

// Payload is the kind-specific body of an Update: SkillProposal,
// RoleProposal or ObsoleteFlag.
type Payload interface {
	Kind() Kind
	// Subject is the skill name or role title the payload refers to.
	Subject() string
}

type SkillProposal struct {
	Name              string   `json:"name" validate:"required"`
	Type              string   `json:"type"`
	Aliases           []string `json:"aliases"`
	LearningResources []string `json:"learning_resources"`
}

func (SkillProposal) Kind() Kind        { return KindSkill }
func (p SkillProposal) Subject() string { return p.Name }

// ToSkill builds the skill record written on approval.
func (p SkillProposal) ToSkill(frequency int, seen skill.Date) skill.Skill {
	return skill.Skill{
		Name:              p.Name,
		Type:              p.Type,
		Aliases:           append([]string(nil), p.Aliases...),
		LearningResources: append([]string(nil), p.LearningResources...),
		MentionFrequency:  max(0, frequency),
		LastSeenInMarket:  seen,
	}
}

type RoleProposal struct {
	job.Role
}

func (RoleProposal) Kind() Kind        { return KindRole }
func (p RoleProposal) Subject() string { return p.Title }

type ObsoleteFlag struct {
	Name string `json:"name" validate:"required"`
}

func (ObsoleteFlag) Kind() Kind        { return KindReviewObsolete }
func (f ObsoleteFlag) Subject() string { return f.Name }

// Update is a proposed ontology change awaiting review.
type Update struct {
	ID              uuid.UUID
	Payload         Payload
	Status          Status
	DiscoveryReason string
	Confidence      *float64
	DiscoveredAt    time.Time
	ReviewedAt      *time.Time
	ReviewedBy      string
}

// New returns a pending Update for p. Confidence is optional.
func New(p Payload, reason string, confidence *float64, now time.Time) Update {
	return Update{
		ID:              uuid.New(),
		Payload:         p,
		Status:          StatusPending,
		DiscoveryReason: strings.TrimSpace(reason),
		Confidence:      confidence,
		DiscoveredAt:    now.UTC(),
	}
}

func (u Update) Kind() Kind {
	if u.Payload == nil {
		return ""
	}
	return u.Payload.Kind()
}

func (u Update) Subject() string {
	if u.Payload == nil {
		return ""
	}
	return u.Payload.Subject()
}

func (u Update) ConfidenceOr(def float64) float64 {
	if u.Confidence == nil {
		return def
	}
	return *u.Confidence
}

type wireUpdate struct {
	ID              uuid.UUID       `json:"id"`
	Type            Kind            `json:"type"`
	Data            json.RawMessage `json:"data"`
	Status          Status          `json:"status"`
	DiscoveredAt    time.Time       `json:"discovered_at"`
	ReviewedAt      *time.Time      `json:"reviewed_at"`
	ReviewedBy      *string         `json:"reviewed_by"`
	DiscoveryReason string          `json:"discovery_reason,omitempty"`
	Confidence      *float64        `json:"confidence,omitempty"`
}

func (u Update) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(u.Payload)
	if err != nil {
		return nil, err
	}
	w := wireUpdate{
		ID:              u.ID,
		Type:            u.Kind(),
		Data:            data,
		Status:          u.Status,
		DiscoveredAt:    u.DiscoveredAt,
		ReviewedAt:      u.ReviewedAt,
		DiscoveryReason: u.DiscoveryReason,
		Confidence:      u.Confidence,
	}
	if u.ReviewedBy != "" {
		w.ReviewedBy = &u.ReviewedBy
	}
	return json.Marshal(w)
}

func (u *Update) UnmarshalJSON(b []byte) error {
	var w wireUpdate
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	p, err := DecodePayload(w.Type, w.Data)
	if err != nil {
		return err
	}
	*u = Update{
		ID:              w.ID,
		Payload:         p,
		Status:          w.Status,
		DiscoveryReason: w.DiscoveryReason,
		Confidence:      w.Confidence,
		DiscoveredAt:    w.DiscoveredAt,
		ReviewedAt:      w.ReviewedAt,
	}
	if w.ReviewedBy != nil {
		u.ReviewedBy = *w.ReviewedBy
	}
	return nil
}

// DecodePayload strictly decodes data as the payload type selected by kind
// and validates it. Unknown fields are rejected.
func DecodePayload(kind Kind, data []byte) (Payload, error) {
	var p Payload
	var err error
	switch kind {
	case KindSkill:
		var v SkillProposal
		err = decodeStrict(data, &v)
		p = v
	case KindRole:
		var v RoleProposal
		err = decodeStrict(data, &v)
		v.Role = v.Role.Normalize()
		p = v
	case KindReviewObsolete:
		var v ObsoleteFlag
		err = decodeStrict(data, &v)
		p = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, kind, err)
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks a payload against its schema.
func Validate(p Payload) error {
	if p == nil {
		return fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	if err := validation.Struct(p); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, p.Kind(), err)
	}
	return nil
}

func decodeStrict(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
