package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"granafacil/internal/models"
)

// Extraction is a structured transaction pulled out of a free-text
// message such as "Gastei 50 reais no mercado".
type Extraction struct {
	Description string
	Amount      decimal.Decimal
	Type        models.TransactionType
}

// Extractor parses a free-text message into a structured transaction.
type Extractor interface {
	Extract(ctx context.Context, text string) (*Extraction, error)
}

// GeminiExtractor implements Extractor on top of Gemini.
type GeminiExtractor struct {
	gemini *Gemini
}

// NewGeminiExtractor creates a Gemini-backed extractor.
func NewGeminiExtractor(gemini *Gemini) *GeminiExtractor {
	return &GeminiExtractor{gemini: gemini}
}

type extractionPayload struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Found       bool    `json:"found"`
}

const extractionPromptFormat = `You are a personal finance assistant. Extract a financial transaction from this message written in Brazilian Portuguese or English.
Return RAW JSON only, no markdown formatting, with fields:
'found' (boolean, false if the message contains no transaction),
'description' (short description of what the money was spent on or earned from),
'amount' (positive number),
'type' ('income' or 'expense').

Message: %q
Sent at: %s`

// Extract parses the message with Gemini. It fails when the model
// cannot find a transaction in the text.
func (e *GeminiExtractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	prompt := fmt.Sprintf(extractionPromptFormat, text, time.Now().Format("2006-01-02"))

	raw, err := e.gemini.generateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w (raw: %s)", err, raw)
	}

	if !payload.Found || payload.Amount <= 0 {
		return nil, fmt.Errorf("no transaction found in message")
	}

	txType := models.TransactionType(payload.Type)
	if txType != models.TransactionTypeIncome && txType != models.TransactionTypeExpense {
		txType = models.TransactionTypeExpense
	}

	return &Extraction{
		Description: payload.Description,
		Amount:      decimal.NewFromFloat(payload.Amount),
		Type:        txType,
	}, nil
}
