package classify_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JulesGR953/OptiScam-Framework/internal/classify"
	"github.com/JulesGR953/OptiScam-Framework/internal/services"
)

func serveCompletion(t *testing.T, payload map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if logprobs, ok := req["logprobs"].(bool); !ok || !logprobs {
			t.Error("request must enable logprobs")
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func completionPayload(topLogprobs []map[string]any, content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{{
			"message": map[string]any{"content": content},
			"logprobs": map[string]any{
				"content": []map[string]any{{
					"token":        content,
					"logprob":      -0.1,
					"top_logprobs": topLogprobs,
				}},
			},
		}},
	}
}

func TestDecideComputesSoftmaxFromLogits(t *testing.T) {
	server := serveCompletion(t, completionPayload([]map[string]any{
		{"token": "Yes", "logprob": -0.1},
		{"token": "No", "logprob": -2.5},
	}, "Yes"))

	client := classify.NewClient(classify.Config{BaseURL: server.URL, Model: "qwen-vl"})
	decision, err := client.Decide(context.Background(), nil, "prompt")
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if !decision.Scam {
		t.Fatal("expected scam verdict")
	}
	want := 1 / (1 + math.Exp(-2.4))
	if math.Abs(decision.Confidence-want) > 1e-9 {
		t.Fatalf("confidence = %v, want %v", decision.Confidence, want)
	}
}

func TestDecideReturnsGeneratedReasoning(t *testing.T) {
	const narrative = "Yes. The video promises doubled returns on deposits, " +
		"pressures viewers with a countdown, and shows no verifiable company details."
	var maxTokens float64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		maxTokens, _ = req["max_tokens"].(float64)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionPayload([]map[string]any{
			{"token": "Yes", "logprob": -0.1},
			{"token": "No", "logprob": -3.0},
		}, narrative))
	}))
	t.Cleanup(server.Close)

	client := classify.NewClient(classify.Config{BaseURL: server.URL, Model: "qwen-vl"})
	decision, err := client.Decide(context.Background(), nil, "prompt")
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if maxTokens < 64 {
		t.Fatalf("max_tokens = %v, leaves no room for the narrative", maxTokens)
	}
	if strings.HasPrefix(strings.ToLower(decision.Reasoning), "yes") {
		t.Fatalf("answer token not stripped from reasoning: %q", decision.Reasoning)
	}
	if !strings.Contains(decision.Reasoning, "doubled returns") {
		t.Fatalf("narrative missing from reasoning: %q", decision.Reasoning)
	}
}

func TestDecideHandlesMissingAlternative(t *testing.T) {
	server := serveCompletion(t, completionPayload([]map[string]any{
		{"token": "No", "logprob": -0.05},
	}, "No"))

	client := classify.NewClient(classify.Config{BaseURL: server.URL, Model: "qwen-vl"})
	decision, err := client.Decide(context.Background(), nil, "prompt")
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if decision.Scam {
		t.Fatal("expected non-scam verdict")
	}
	if decision.Confidence < 0.99 {
		t.Fatalf("missing alternative should saturate confidence, got %v", decision.Confidence)
	}
}

func TestDecideUnparseableVerdict(t *testing.T) {
	server := serveCompletion(t, completionPayload([]map[string]any{
		{"token": "Maybe", "logprob": -0.1},
		{"token": "I", "logprob": -1.0},
	}, "Maybe"))

	client := classify.NewClient(classify.Config{BaseURL: server.URL, Model: "qwen-vl"})
	_, err := client.Decide(context.Background(), nil, "prompt")
	if !errors.Is(err, services.ErrUnparseableVerdict) {
		t.Fatalf("expected unparseable verdict, got %v", err)
	}
}

func TestDecideMissingLogprobs(t *testing.T) {
	server := serveCompletion(t, map[string]any{
		"choices": []map[string]any{{
			"message": map[string]any{"content": "Yes"},
		}},
	})

	client := classify.NewClient(classify.Config{BaseURL: server.URL, Model: "qwen-vl"})
	_, err := client.Decide(context.Background(), nil, "prompt")
	if !errors.Is(err, services.ErrUnparseableVerdict) {
		t.Fatalf("expected unparseable verdict without logprobs, got %v", err)
	}
}

func TestDecideRetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionPayload([]map[string]any{
			{"token": "Yes", "logprob": -0.2},
			{"token": "No", "logprob": -1.8},
		}, "Yes"))
	}))
	t.Cleanup(server.Close)

	client := classify.NewClient(
		classify.Config{BaseURL: server.URL, Model: "qwen-vl"},
		classify.WithSleeper(func(_ time.Duration) {}),
	)
	decision, err := client.Decide(context.Background(), nil, "prompt")
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if !decision.Scam {
		t.Fatal("expected scam verdict after retry")
	}
	if calls != 2 {
		t.Fatalf("expected retry, got %d calls", calls)
	}
}
