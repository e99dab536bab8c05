package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"granafacil/internal/models"
)

// ClassifyInput carries everything the classifier needs to pick a category.
type ClassifyInput struct {
	Description string
	Amount      decimal.Decimal
	Categories  []models.Category
}

// Suggestion is the classifier's best-fit category with a confidence
// score in [0,1] and a short rationale.
type Suggestion struct {
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
}

// Classifier maps a transaction description to the best-fit category
// among the user's candidates.
type Classifier interface {
	Classify(ctx context.Context, input ClassifyInput) (*Suggestion, error)
}

// GeminiClassifier implements Classifier on top of Gemini.
type GeminiClassifier struct {
	gemini *Gemini
}

// NewGeminiClassifier creates a Gemini-backed classifier.
func NewGeminiClassifier(gemini *Gemini) *GeminiClassifier {
	return &GeminiClassifier{gemini: gemini}
}

// Classify asks Gemini for the best category among the candidates. The
// returned suggestion always references one of the input categories.
func (c *GeminiClassifier) Classify(ctx context.Context, input ClassifyInput) (*Suggestion, error) {
	if len(input.Categories) == 0 {
		return nil, fmt.Errorf("no candidate categories")
	}

	var promptBuilder strings.Builder
	promptBuilder.WriteString("You are a financial analyst. Pick the best category for this transaction.\n")
	promptBuilder.WriteString("Return RAW JSON only, no markdown, with fields: 'category_id', 'category_name', 'confidence' (0.0 to 1.0), 'reasoning' (one short sentence in Portuguese).\n\n")
	promptBuilder.WriteString(fmt.Sprintf("Transaction: %q, amount: %s\n\nCandidate categories:\n", input.Description, input.Amount.Abs().String()))
	for _, cat := range input.Categories {
		promptBuilder.WriteString(fmt.Sprintf(`{"id": %q, "name": %q, "type": %q}`+"\n", cat.ID, cat.Name, cat.Type))
	}

	raw, err := c.gemini.generateJSON(ctx, promptBuilder.String())
	if err != nil {
		return nil, err
	}

	var suggestion Suggestion
	if err := json.Unmarshal([]byte(raw), &suggestion); err != nil {
		return nil, fmt.Errorf("failed to parse classifier response: %w (raw: %s)", err, raw)
	}

	// The model occasionally invents ids; resolve by name in that case
	// and reject suggestions that match no candidate at all.
	if !matchesCandidate(&suggestion, input.Categories) {
		return nil, fmt.Errorf("classifier returned unknown category %q", suggestion.CategoryName)
	}

	if suggestion.Confidence < 0 {
		suggestion.Confidence = 0
	}
	if suggestion.Confidence > 1 {
		suggestion.Confidence = 1
	}

	return &suggestion, nil
}

func matchesCandidate(s *Suggestion, categories []models.Category) bool {
	for _, cat := range categories {
		if cat.ID == s.CategoryID {
			s.CategoryName = cat.Name
			return true
		}
	}
	for _, cat := range categories {
		if strings.EqualFold(cat.Name, s.CategoryName) {
			s.CategoryID = cat.ID
			s.CategoryName = cat.Name
			return true
		}
	}
	return false
}

// ConfidenceLevel buckets a confidence score for display: "high" at or
// above 0.8, "medium" at or above 0.6, "low" otherwise. Presentation
// only; no pipeline branch depends on it.
func ConfidenceLevel(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "high"
	case confidence >= 0.6:
		return "medium"
	default:
		return "low"
	}
}
