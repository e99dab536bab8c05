package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"granafacil/internal/ai"
	"granafacil/internal/models"
)

// stubExtractor returns a fixed extraction for any message.
type stubExtractor struct {
	extraction ai.Extraction
}

func (s *stubExtractor) Extract(ctx context.Context, text string) (*ai.Extraction, error) {
	extraction := s.extraction
	return &extraction, nil
}

// stubClassifier picks the first candidate category with fixed confidence.
type stubClassifier struct{}

func (s *stubClassifier) Classify(ctx context.Context, input ai.ClassifyInput) (*ai.Suggestion, error) {
	category := input.Categories[0]
	return &ai.Suggestion{
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Confidence:   0.9,
		Reasoning:    "parece uma compra de supermercado",
	}, nil
}

// recordingSender captures outbound WhatsApp replies.
type recordingSender struct {
	replies []string
}

func (s *recordingSender) SendText(ctx context.Context, number, text string) error {
	s.replies = append(s.replies, text)
	return nil
}

func evolutionMessage(jid, text string) string {
	return fmt.Sprintf(
		`{"event":"messages.upsert","instance":"granafacil","data":{"key":{"fromMe":false,"remoteJid":%q},"pushName":"Maria","message":{"conversation":%q}}}`,
		jid, text)
}

func TestWhatsAppFlow(t *testing.T) {
	const jid = "5511999999999@s.whatsapp.net"

	t.Run("link_then_capture_transaction", func(t *testing.T) {
		sender := &recordingSender{}
		app := setupAppWith(t, appOptions{
			Extractor: &stubExtractor{extraction: ai.Extraction{
				Description: "mercado",
				Amount:      decimal.NewFromInt(50),
				Type:        models.TransactionTypeExpense,
			}},
			Classifier: &stubClassifier{},
			Sender:     sender,
		})
		token, _ := app.registerUser(t, "wa-flow@example.com", "password123")

		// The user needs at least one category for classification.
		rec := app.request("POST", "/api/v1/categories",
			`{"name":"Alimentação","type":"expense"}`, token)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create category failed: %d %s", rec.Code, rec.Body.String())
		}

		// Generate a link code in the app.
		rec = app.request("POST", "/api/v1/whatsapp/link-code", "", token)
		if rec.Code != http.StatusCreated {
			t.Fatalf("link-code failed: %d %s", rec.Code, rec.Body.String())
		}
		code := parseJSON(t, rec)["link_code"].(string)
		if len(code) != 6 {
			t.Fatalf("expected 6-char code, got %q", code)
		}

		// Send the code over WhatsApp to complete the link.
		rec = app.request("POST", "/webhook", evolutionMessage(jid, code), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("link webhook failed: %d %s", rec.Code, rec.Body.String())
		}
		if parseJSON(t, rec)["linked"] == nil {
			t.Fatalf("expected link confirmation, got %s", rec.Body.String())
		}

		rec = app.request("GET", "/api/v1/whatsapp/link", "", token)
		if linked := parseJSON(t, rec)["linked"]; linked != true {
			t.Errorf("expected linked state, got %v", linked)
		}

		// An inbound message now produces a categorized transaction.
		rec = app.request("POST", "/webhook", evolutionMessage(jid, "gastei 50 no mercado"), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("message webhook failed: %d %s", rec.Code, rec.Body.String())
		}
		if parseJSON(t, rec)["transaction_id"] == nil {
			t.Fatalf("expected a transaction, got %s", rec.Body.String())
		}

		rec = app.request("GET", "/api/v1/transactions", "", token)
		list := parseJSON(t, rec)
		if total := list["total_items"].(float64); total != 1 {
			t.Errorf("expected 1 transaction, got %v", total)
		}

		// Link confirmation plus transaction confirmation were sent back.
		if len(sender.replies) != 2 {
			t.Errorf("expected 2 WhatsApp replies, got %d: %v", len(sender.replies), sender.replies)
		}

		// Unlink tears the connection down.
		rec = app.request("DELETE", "/api/v1/whatsapp/link", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("unlink failed: %d %s", rec.Code, rec.Body.String())
		}
		rec = app.request("GET", "/api/v1/whatsapp/link", "", token)
		if linked := parseJSON(t, rec)["linked"]; linked != false {
			t.Errorf("expected unlinked state, got %v", linked)
		}
	})

	t.Run("message_from_unlinked_number_is_ignored", func(t *testing.T) {
		app := setupApp(t)

		rec := app.request("POST", "/webhook", evolutionMessage(jid, "gastei 50"), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["ignored"] == nil {
			t.Errorf("expected ignored marker, got %s", rec.Body.String())
		}
	})

	t.Run("pipeline_failure_returns_500", func(t *testing.T) {
		// AI configured, but the user has no categories.
		sender := &recordingSender{}
		app := setupAppWith(t, appOptions{
			Extractor: &stubExtractor{extraction: ai.Extraction{
				Description: "mercado",
				Amount:      decimal.NewFromInt(50),
				Type:        models.TransactionTypeExpense,
			}},
			Classifier: &stubClassifier{},
			Sender:     sender,
		})
		token, _ := app.registerUser(t, "wa-fail@example.com", "password123")

		rec := app.request("POST", "/api/v1/whatsapp/link-code", "", token)
		code := parseJSON(t, rec)["link_code"].(string)
		rec = app.request("POST", "/webhook", evolutionMessage(jid, code), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("link webhook failed: %d %s", rec.Code, rec.Body.String())
		}

		rec = app.request("POST", "/webhook", evolutionMessage(jid, "gastei 50 no mercado"), "")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500 so the gateway retries, got %d %s", rec.Code, rec.Body.String())
		}
		if details := parseJSON(t, rec)["details"]; details != "Nenhuma categoria encontrada para o usuário" {
			t.Errorf("unexpected details %v", details)
		}
	})
}

func TestAICategorizeEndpoint(t *testing.T) {
	t.Run("categorizes_a_message", func(t *testing.T) {
		app := setupAppWith(t, appOptions{
			Extractor: &stubExtractor{extraction: ai.Extraction{
				Description: "uber",
				Amount:      decimal.NewFromInt(25),
				Type:        models.TransactionTypeExpense,
			}},
			Classifier: &stubClassifier{},
		})
		token, _ := app.registerUser(t, "ai-flow@example.com", "password123")

		rec := app.request("POST", "/api/v1/categories",
			`{"name":"Transporte","type":"expense"}`, token)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create category failed: %d %s", rec.Code, rec.Body.String())
		}

		rec = app.request("POST", "/api/v1/ai/categorize",
			`{"message":"paguei 25 de uber"}`, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("categorize failed: %d %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["category_name"] != "Transporte" {
			t.Errorf("expected Transporte, got %v", result["category_name"])
		}
		if result["confidence_level"] != "high" {
			t.Errorf("expected high confidence, got %v", result["confidence_level"])
		}
	})

	t.Run("unconfigured_ai_fails_gracefully", func(t *testing.T) {
		app := setupApp(t)
		token, _ := app.registerUser(t, "ai-off@example.com", "password123")

		rec := app.request("POST", "/api/v1/ai/categorize",
			`{"message":"gastei 50"}`, token)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d %s", rec.Code, rec.Body.String())
		}
		if success := parseJSON(t, rec)["success"]; success != false {
			t.Errorf("expected success false, got %v", success)
		}
	})
}
