// supportflow runs one customer message through the intake, knowledge,
// resolution, and escalation agents and prints the resulting workflow summary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"supportflow/pkg/agent"
	"supportflow/pkg/config"
	"supportflow/pkg/llm"
	"supportflow/pkg/llm/factory"
	"supportflow/pkg/logx"
	"supportflow/pkg/state"
)

func main() {
	var (
		configPath  = flag.String("config", "config.yaml", "Path to config file")
		message     = flag.String("message", "", "Customer message to process (required)")
		metricsAddr = flag.String("metrics-addr", "", "Optional address for the Prometheus /metrics endpoint")
	)
	flag.Parse()

	if strings.TrimSpace(*message) == "" {
		fmt.Fprintln(os.Stderr, "usage: supportflow -message \"<customer message>\" [-config config.yaml]")
		os.Exit(2)
	}

	if err := run(*configPath, *message, *metricsAddr); err != nil {
		fmt.Fprintf(os.Stderr, "supportflow: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, message, metricsAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Logging.Debug {
		logx.SetDebug(true)
	}
	logger := logx.NewLogger("supportflow")

	client, err := factory.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	var recorder agent.Recorder = agent.Nop()
	if metricsAddr != "" {
		recorder = agent.NewPrometheusRecorder()
		registerUsageMetrics(client)
		go serveMetrics(metricsAddr, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wc, err := state.New(uuid.New(), uuid.New(), message, nil)
	if err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}

	pipeline := []*agent.Harness{
		agent.NewHarness("intake", client, &intakeProcessor{client: client}, agent.WithRecorder(recorder)),
		agent.NewHarness("knowledge", client, &knowledgeProcessor{}, agent.WithRecorder(recorder)),
		agent.NewHarness("resolution", client, &resolutionProcessor{client: client}, agent.WithRecorder(recorder)),
		agent.NewHarness("escalation", client, &escalationProcessor{}, agent.WithRecorder(recorder)),
	}

	for _, h := range pipeline {
		wc = h.Execute(ctx, wc)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	printSummary(wc, client)
	return nil
}

// registerUsageMetrics exposes the client's usage counters on /metrics.
func registerUsageMetrics(client *llm.Client) {
	prometheus.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "llm_calls_total",
			Help: "Total number of successful LLM calls",
		},
		func() float64 { return float64(client.Stats().TotalCalls) },
	))
	prometheus.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total tokens consumed across successful LLM calls",
		},
		func() float64 { return float64(client.Stats().TotalTokens) },
	))
}

func serveMetrics(addr string, logger *logx.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server failed: %v", err)
	}
}

func printSummary(wc *state.WorkflowContext, client *llm.Client) {
	summary, _ := json.MarshalIndent(wc.Summary(), "", "  ")
	fmt.Printf("workflow summary:\n%s\n", summary)

	if wc.ProposedResponse != nil {
		fmt.Printf("\nproposed response:\n%s\n", *wc.ProposedResponse)
	}

	stats, _ := json.MarshalIndent(client.Stats(), "", "  ")
	fmt.Printf("\nLLM usage:\n%s\n", stats)
}

// intakeProcessor classifies the message with the LLM, falling back to
// heuristic defaults when the model's JSON is unusable.
type intakeProcessor struct {
	client *llm.Client
}

const intakePrompt = `You are a support ticket classifier. Respond with only a JSON object:
{"category": "account_access|billing|technical|product|shipping|refund|general|other",
 "priority": "low|medium|high|urgent",
 "sentiment": "very_negative|negative|neutral|positive|very_positive",
 "intent": "<one short phrase>"}`

func (p *intakeProcessor) Process(ctx context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error) {
	resp, err := p.client.Generate(ctx, []llm.Message{llm.NewUserMessage(wc.CurrentMessage)}, &llm.GenerateOptions{
		SystemPrompt: intakePrompt,
		Temperature:  llm.Float64(0.0),
		MaxTokens:    llm.Int(256),
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Category  string `json:"category"`
		Priority  string `json:"priority"`
		Sentiment string `json:"sentiment"`
		Intent    string `json:"intent"`
	}
	if jsonErr := json.Unmarshal([]byte(extractJSON(resp.Content)), &parsed); jsonErr != nil {
		parsed.Category = string(state.CategoryGeneral)
		parsed.Priority = string(state.PriorityMedium)
		parsed.Sentiment = string(state.SentimentNeutral)
	}

	category := state.TicketCategory(strings.ToLower(strings.TrimSpace(parsed.Category)))
	priority := state.TicketPriority(strings.ToLower(strings.TrimSpace(parsed.Priority)))
	sentiment := state.Sentiment(strings.ToLower(strings.TrimSpace(parsed.Sentiment)))
	wc.Category = &category
	wc.Priority = &priority
	wc.Sentiment = &sentiment
	if parsed.Intent != "" {
		wc.Intent = &parsed.Intent
	}
	wc.SetWorkflowStep("knowledge")
	return wc, nil
}

// extractJSON pulls the first {...} block out of a model reply that may be
// wrapped in prose or code fences.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return text
	}
	return text[start : end+1]
}

// knowledgeProcessor stands in for a retrieval backend with a small canned
// knowledge base keyed by ticket category.
type knowledgeProcessor struct{}

//nolint:gochecknoglobals // static demo knowledge base
var cannedKnowledge = map[state.TicketCategory]string{
	state.CategoryAccountAccess: "Password resets are self-service via the login page. Locked accounts unlock after 30 minutes or on verified support request.",
	state.CategoryBilling:       "Duplicate charges are refunded within 5 business days once confirmed. Invoices are available under Account > Billing.",
	state.CategoryShipping:      "Standard shipping is 3-5 business days. Tracking links are emailed at dispatch and updated every 12 hours.",
	state.CategoryRefund:        "Refunds are available within 30 days of purchase for unused products. Processing takes 5-7 business days.",
	state.CategoryTechnical:     "Most sync issues resolve after signing out and back in. Persistent errors should include the error code shown in Settings > About.",
}

func (p *knowledgeProcessor) Process(_ context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error) {
	if wc.Category != nil {
		if doc, ok := cannedKnowledge[*wc.Category]; ok {
			if err := wc.AddRetrievedDocument(doc, 0.9, map[string]any{"source": "kb"}); err != nil {
				return nil, err
			}
			if err := wc.SetKnowledgeConfidence(0.9); err != nil {
				return nil, err
			}
		} else if err := wc.SetKnowledgeConfidence(0.2); err != nil {
			return nil, err
		}
	}
	wc.SetWorkflowStep("resolution")
	return wc, nil
}

// resolutionProcessor drafts a customer response from the retrieved material.
type resolutionProcessor struct {
	client *llm.Client
}

func (p *resolutionProcessor) Process(ctx context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error) {
	if !wc.HasSufficientKnowledge() {
		return nil, fmt.Errorf("no knowledge found")
	}

	var docs strings.Builder
	for _, doc := range wc.RetrievedDocuments {
		docs.WriteString("- ")
		docs.WriteString(doc.Content)
		docs.WriteString("\n")
	}

	resp, err := p.client.Generate(ctx, []llm.Message{
		llm.NewUserMessage(fmt.Sprintf("Customer message:\n%s\n\nRelevant knowledge:\n%s\nDraft a brief, helpful reply.", wc.CurrentMessage, docs.String())),
	}, &llm.GenerateOptions{
		SystemPrompt: "You are a customer support agent. Be concise and specific.",
		MaxTokens:    llm.Int(512),
	})
	if err != nil {
		return nil, err
	}

	confidence := 0.85
	if err := wc.SetProposedResponse(resp.Content, confidence); err != nil {
		return nil, err
	}
	wc.SetWorkflowStep("escalation")
	return wc, nil
}

// escalationProcessor routes to a human when automation failed or the ticket
// looks risky.
type escalationProcessor struct{}

func (p *escalationProcessor) Process(_ context.Context, wc *state.WorkflowContext) (*state.WorkflowContext, error) {
	switch {
	case wc.HasError():
		wc.TriggerEscalation("automated processing failed", map[string]any{"error": *wc.Error})
	case wc.IsHighPriority() && wc.HasNegativeSentiment():
		wc.TriggerEscalation("high priority ticket with negative sentiment", nil)
	case wc.ProposedResponse != nil && !wc.HasHighConfidenceResponse():
		wc.TriggerEscalation("low confidence response", map[string]any{
			"confidence": wc.ResponseConfidence,
		})
	}
	wc.SetWorkflowStep("done")
	return wc, nil
}
