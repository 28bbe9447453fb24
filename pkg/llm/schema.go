package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ParseAndValidate unmarshals raw JSON into a T and runs struct-tag
// validation against it. The same validator library
// (go-playground/validator) backs both this package's LLM output schemas
// and pkg/config's startup validation, each package holding its own
// instance, so a single dependency covers every structural-validation
// need in the repo.
func ParseAndValidate[T any](raw string) (T, error) {
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("invalid json: %v", err)
	}
	if err := validate.Struct(out); err != nil {
		return out, fmt.Errorf("%s", describeValidationError(err))
	}
	return out, nil
}

// SectionOut is one section of a paper as identified by the Ingestion
// agent.
type SectionOut struct {
	Type      string `json:"type" validate:"required,oneof=abstract methods results related_work conclusion other"`
	Content   string `json:"content" validate:"required"`
	WordCount int    `json:"word_count" validate:"min=0"`
}

// IngestionOutput is the Ingestion agent's schema.
type IngestionOutput struct {
	Sections []SectionOut `json:"sections" validate:"required,min=1,dive"`
	Authors  []string     `json:"authors"`
	Year     *int         `json:"year"`
	Warnings []string     `json:"warnings"`
}

// EntityOut is one entity proposed by the EntityExtraction agent.
type EntityOut struct {
	Type          string  `json:"type" validate:"required"`
	CanonicalName string  `json:"canonical_name" validate:"required"`
	Confidence    float64 `json:"original_confidence" validate:"min=0,max=1"`
	Definition    string  `json:"definition"`
}

// EntityExtractionOutput is the EntityExtraction agent's schema. At most
// 10 entities per call.
type EntityExtractionOutput struct {
	Entities []EntityOut `json:"entities" validate:"required,max=10,dive"`
}

// RelationshipOut is one relationship proposed by the RelationshipCore
// agent.
type RelationshipOut struct {
	Source     string  `json:"source" validate:"required"`
	Target     string  `json:"target" validate:"required"`
	Type       string  `json:"type" validate:"required"`
	Confidence float64 `json:"confidence" validate:"min=0.5,max=1"`
}

// RelationshipCoreOutput is the RelationshipCore agent's schema. At most
// 12 relationships, minimum confidence 0.5 enforced by the tag above.
type RelationshipCoreOutput struct {
	Relationships []RelationshipOut `json:"relationships" validate:"max=12,dive"`
}

// RelationshipEvidenceOutput is the RelationshipEvidence agent's schema:
// a single sentence, capped at 300 characters.
type RelationshipEvidenceOutput struct {
	Evidence string `json:"evidence" validate:"required,max=300"`
}

// InsightOut is one reasoning-stage conclusion.
type InsightOut struct {
	Type         string   `json:"insight_type" validate:"required,oneof=transitive_relationship cluster_analysis anomaly_detection gap_identification trend_analysis"`
	SubjectNodes []int    `json:"subject_nodes" validate:"required,min=1"`
	Steps        []string `json:"reasoning_steps" validate:"required,min=1"`
	Confidence   float64  `json:"confidence" validate:"min=0,max=1"`
}

// ReasoningOutput is the Reasoning agent's schema.
type ReasoningOutput struct {
	Insights []InsightOut `json:"insights" validate:"dive"`
}

// describeValidationError renders a validator.ValidationErrors as a
// compact, comma-joined string suitable for SchemaValidationError.Details.
func describeValidationError(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
