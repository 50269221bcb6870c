package extract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		vendor    string
		cents     int64
		hasAmount bool
		date      string
		wantErr   bool
	}{
		{
			name:      "plain json",
			in:        `{"vendor":"Costco","invoiceNumber":"INV1","amount":123.45,"date":"2025-12-15","category":"Groceries"}`,
			vendor:    "Costco",
			cents:     12345,
			hasAmount: true,
			date:      "2025-12-15",
		},
		{
			name:      "fenced with string amount",
			in:        "```json\n{\"vendor\":\"Pepsi\",\"amount\":\"$40\"}\n```",
			vendor:    "Pepsi",
			cents:     4000,
			hasAmount: true,
		},
		{
			name:   "bad amount is dropped",
			in:     `{"vendor":"Sysco","amount":"lots","date":""}`,
			vendor: "Sysco",
		},
		{
			name:    "malformed date",
			in:      `{"vendor":"Sysco","amount":12,"date":"15/12/2025"}`,
			wantErr: true,
		},
		{
			name:   "null amount",
			in:     `{"vendor":"X","amount":null}`,
			vendor: "X",
		},
		{
			name:    "not json",
			in:      "Sorry, I cannot read this invoice.",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseResponse(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrParse) {
					t.Fatalf("expected ErrParse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.Vendor != tt.vendor {
				t.Errorf("vendor = %q, want %q", f.Vendor, tt.vendor)
			}
			if (f.Amount != nil) != tt.hasAmount {
				t.Fatalf("amount presence = %v, want %v", f.Amount != nil, tt.hasAmount)
			}
			if tt.hasAmount && f.Amount.Cents != tt.cents {
				t.Errorf("amount = %d, want %d", f.Amount.Cents, tt.cents)
			}
			if f.Date.String() != tt.date {
				t.Errorf("date = %q, want %q", f.Date.String(), tt.date)
			}
		})
	}
}

func TestDocumentText(t *testing.T) {
	if _, err := DocumentText("a.txt", nil); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected empty document, got %v", err)
	}
	if _, err := DocumentText("a.txt", []byte("   \n")); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected empty document for whitespace, got %v", err)
	}
	if _, err := DocumentText("a.pdf", []byte("%PDF-1.4 truncated")); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected empty document for unreadable pdf, got %v", err)
	}
	text, err := DocumentText("receipt.txt", []byte("COSTCO WHSE 802\nTOTAL 12.00"))
	if err != nil || !strings.Contains(text, "COSTCO") {
		t.Fatalf("unexpected text %q err=%v", text, err)
	}
}

func newTestExtractor(t *testing.T, handler http.HandlerFunc) *OpenAIExtractor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return NewOpenAIExtractorWithClient(openai.NewClientWithConfig(cfg), "")
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  DefaultModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func TestOpenAIExtractorExtract(t *testing.T) {
	var gotPrompt string
	ex := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req openai.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) == 2 {
			gotPrompt = req.Messages[1].Content
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(`{"vendor":"Costco","amount":99.5,"date":"2025-01-02"}`))
	})

	f, err := ex.Extract(context.Background(), "r.txt", []byte("WHSE 802 total 99.50"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if f.Vendor != "Costco" || f.Amount == nil || f.Amount.Cents != 9950 || f.Date.String() != "2025-01-02" {
		t.Fatalf("unexpected fields: %+v", f)
	}
	if !strings.Contains(gotPrompt, "WHSE 802") {
		t.Fatalf("document text missing from prompt: %q", gotPrompt)
	}
}

func TestOpenAIExtractorFailures(t *testing.T) {
	failing := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	})
	if _, err := failing.Extract(context.Background(), "r.txt", []byte("text")); !errors.Is(err, ErrModel) {
		t.Fatalf("expected ErrModel, got %v", err)
	}

	garbled := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse("no idea"))
	})
	if _, err := garbled.Extract(context.Background(), "r.txt", []byte("text")); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}

	if _, err := garbled.Extract(context.Background(), "r.txt", nil); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestUnavailable(t *testing.T) {
	var ex Extractor = Unavailable{}
	if _, err := ex.Extract(context.Background(), "a.txt", nil); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
	if _, err := ex.Extract(context.Background(), "a.txt", []byte("total 5")); !errors.Is(err, ErrModel) {
		t.Fatalf("expected ErrModel, got %v", err)
	}
}

func TestTruncateTextKeepsRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"abc", 5, "abc"},
		{"abcdef", 3, "abc"},
		{"abécd", 3, "ab"},
		{"€€", 4, "€"},
		{"€", 2, ""},
	}
	for _, tt := range tests {
		got := truncateText(tt.in, tt.n)
		if got != tt.want {
			t.Errorf("truncateText(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncateText(%q, %d) produced invalid UTF-8", tt.in, tt.n)
		}
	}
}
