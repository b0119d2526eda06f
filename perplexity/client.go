package perplexity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/npavkovic/blogflow"
	bfhttp "github.com/npavkovic/blogflow/http"
)

// DefaultBaseURL is the Perplexity API endpoint.
const DefaultBaseURL = "https://api.perplexity.ai"

// DefaultModel is the search-grounded model used for research.
const DefaultModel = "sonar-pro"

// DefaultTimeout covers research calls, which routinely run long.
const DefaultTimeout = 5 * time.Minute

const defaultSystemPrompt = "You are a research assistant. Produce thorough, " +
	"well-organized research notes in markdown, grounded in current sources."

// Config holds Perplexity client configuration.
type Config struct {
	// APIKey authenticates requests.
	APIKey string

	// Model overrides the default model.
	Model string

	// BaseURL overrides the API endpoint. Used in tests.
	BaseURL string

	// SystemPrompt overrides the default system message.
	SystemPrompt string

	// BuildPrompt renders the user message for a title. Defaults to a
	// plain research request.
	BuildPrompt func(title string) (string, error)

	// MaxTokens caps the response length. Zero means provider default.
	MaxTokens int

	// Timeout bounds a single research call.
	Timeout time.Duration

	// HTTPClient overrides the underlying HTTP client. Used in tests.
	HTTPClient *http.Client
}

// Validate checks that required fields are set.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("perplexity: API key is required")
	}
	return nil
}

// Client calls the Perplexity chat completions API.
type Client struct {
	http         *bfhttp.Client
	model        string
	systemPrompt string
	buildPrompt  func(title string) (string, error)
	maxTokens    int
}

var _ blogflow.ResearchProvider = (*Client)(nil)

// New creates a Perplexity research client.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	buildPrompt := cfg.BuildPrompt
	if buildPrompt == nil {
		buildPrompt = defaultBuildPrompt
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	apiKey := cfg.APIKey
	return &Client{
		http: bfhttp.NewClient(bfhttp.ClientConfig{
			Client:      httpClient,
			BaseURL:     baseURL,
			ServiceName: "perplexity",
			BeforeRequest: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer "+apiKey)
			},
		}),
		model:        model,
		systemPrompt: systemPrompt,
		buildPrompt:  buildPrompt,
		maxTokens:    cfg.MaxTokens,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
}

type chatResponse struct {
	ID        string       `json:"id"`
	Model     string       `json:"model"`
	Citations []string     `json:"citations"`
	Choices   []chatChoice `json:"choices"`
}

// Research runs a search-grounded completion for the title and returns the
// content with its citations.
func (c *Client) Research(ctx context.Context, title string) (*blogflow.ResearchResult, error) {
	userPrompt, err := c.buildPrompt(title)
	if err != nil {
		return nil, fmt.Errorf("build research prompt: %w", err)
	}

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens: c.maxTokens,
	}

	var resp chatResponse
	if err := c.http.Post(ctx, "/chat/completions", req, &resp); err != nil {
		return nil, fmt.Errorf("research %q: %w", title, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("research %q: %w", title, blogflow.ErrEmptyResult)
	}

	return &blogflow.ResearchResult{
		Content:   resp.Choices[0].Message.Content,
		Citations: resp.Citations,
	}, nil
}

func defaultBuildPrompt(title string) (string, error) {
	return fmt.Sprintf("Research the topic %q for a long-form blog article. "+
		"Cover background, current state, key debates, and notable data points.", title), nil
}
