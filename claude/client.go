package claude

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/npavkovic/blogflow"
	bfhttp "github.com/npavkovic/blogflow/http"
)

// DefaultBaseURL is the Anthropic API endpoint.
const DefaultBaseURL = "https://api.anthropic.com"

// apiVersion is the anthropic-version header value the client pins.
const apiVersion = "2023-06-01"

// DefaultMaxTokens bounds draft length. Long-form drafts need headroom.
const DefaultMaxTokens = 8192

// DefaultTimeout covers draft calls, which routinely run long.
const DefaultTimeout = 10 * time.Minute

const defaultSystemPrompt = "You are a senior content writer. Write clear, " +
	"engaging long-form articles in markdown, grounded strictly in the " +
	"research provided."

// Config holds Anthropic client configuration.
type Config struct {
	// APIKey authenticates requests.
	APIKey string

	// Model overrides tier-based selection with a fixed API model ID.
	Model string

	// Task picks the model tier when Model is not set. Defaults to
	// TaskDraft.
	Task Task

	// BaseURL overrides the API endpoint. Used in tests.
	BaseURL string

	// SystemPrompt overrides the default system message.
	SystemPrompt string

	// BuildPrompt renders the user message from title and research.
	BuildPrompt func(title, research string) (string, error)

	// MaxTokens caps the response length.
	MaxTokens int

	// Timeout bounds a single draft call.
	Timeout time.Duration

	// HTTPClient overrides the underlying HTTP client. Used in tests.
	HTTPClient *http.Client
}

// Validate checks that required fields are set.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("claude: API key is required")
	}
	return nil
}

// Client calls the Anthropic Messages API.
type Client struct {
	http         *bfhttp.Client
	model        string
	systemPrompt string
	buildPrompt  func(title, research string) (string, error)
	maxTokens    int
}

var _ blogflow.DraftProvider = (*Client)(nil)

// New creates an Anthropic draft client.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	modelID := cfg.Model
	if modelID == "" {
		task := cfg.Task
		if task == "" {
			task = TaskDraft
		}
		modelID = apiModelID(SelectModel(task))
	}

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	buildPrompt := cfg.BuildPrompt
	if buildPrompt == nil {
		buildPrompt = defaultBuildPrompt
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
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
			ServiceName: "anthropic",
			BeforeRequest: func(req *http.Request) {
				req.Header.Set("x-api-key", apiKey)
				req.Header.Set("anthropic-version", apiVersion)
			},
		}),
		model:        modelID,
		systemPrompt: systemPrompt,
		buildPrompt:  buildPrompt,
		maxTokens:    maxTokens,
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Content    []contentBlock `json:"content"`
}

// Draft generates a long-form draft for the title from the research.
func (c *Client) Draft(ctx context.Context, title, research string) (*blogflow.DraftResult, error) {
	userPrompt, err := c.buildPrompt(title, research)
	if err != nil {
		return nil, fmt.Errorf("build draft prompt: %w", err)
	}

	req := messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    c.systemPrompt,
		Messages: []message{
			{Role: "user", Content: userPrompt},
		},
	}

	var resp messagesResponse
	if err := c.http.Post(ctx, "/v1/messages", req, &resp); err != nil {
		return nil, fmt.Errorf("draft %q: %w", title, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("draft %q: %w", title, blogflow.ErrEmptyResult)
	}

	return &blogflow.DraftResult{Content: text.String()}, nil
}

func defaultBuildPrompt(title, research string) (string, error) {
	return fmt.Sprintf("Write a long-form blog article titled %q.\n\n"+
		"Base the article on this research:\n\n%s", title, research), nil
}
