package notion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/npavkovic/blogflow"
	bfhttp "github.com/npavkovic/blogflow/http"
)

// DefaultBaseURL is the Notion API endpoint.
const DefaultBaseURL = "https://api.notion.com"

// apiVersion is the Notion-Version header value the client pins.
const apiVersion = "2022-06-28"

// defaultBatchDelay paces block append batches. Notion accepts at most
// 100 blocks per request and throttles rapid successive writes.
const defaultBatchDelay = 350 * time.Millisecond

// PropertyNames maps content item fields to database property names.
type PropertyNames struct {
	Title        string // title property (default "Name")
	Status       string // status property (default "Status")
	ErrorMessage string // rich text property (default "Error Message")
	Related      string // relation property (default "Related")
}

// Config holds Notion store configuration.
type Config struct {
	// Token is the integration token.
	Token string

	// DatabaseID is the database queried by QueryByStatus.
	DatabaseID string

	// DraftsDatabaseID is where Create places new pages when the caller
	// does not name a parent. Defaults to DatabaseID.
	DraftsDatabaseID string

	// BaseURL overrides the API endpoint. Used in tests.
	BaseURL string

	// Properties overrides the default property names.
	Properties PropertyNames

	// StatusAsSelect writes the status as a select property instead of
	// the newer status property type. Reads handle both.
	StatusAsSelect bool

	// BatchDelay is the pause between block append batches.
	BatchDelay time.Duration

	// HTTPClient overrides the underlying HTTP client. Used in tests.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Validate checks that required fields are set.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("notion: token is required")
	}
	if c.DatabaseID == "" {
		return fmt.Errorf("notion: database ID is required")
	}
	return nil
}

// Client is a content store backed by a Notion database.
type Client struct {
	http       *bfhttp.Client
	databaseID string
	draftsID   string
	props      PropertyNames
	asSelect   bool
	batchDelay time.Duration
	logger     *slog.Logger

	// lastBody tracks the most recently read body per page so Write can
	// append only the new content as blocks.
	mu       sync.Mutex
	lastBody map[string]string
}

var _ blogflow.Store = (*Client)(nil)

// New creates a Notion store client.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	props := cfg.Properties
	if props.Title == "" {
		props.Title = "Name"
	}
	if props.Status == "" {
		props.Status = "Status"
	}
	if props.ErrorMessage == "" {
		props.ErrorMessage = "Error Message"
	}
	if props.Related == "" {
		props.Related = "Related"
	}

	batchDelay := cfg.BatchDelay
	if batchDelay == 0 {
		batchDelay = defaultBatchDelay
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	token := cfg.Token
	httpClient := bfhttp.NewClient(bfhttp.ClientConfig{
		Client:      cfg.HTTPClient,
		BaseURL:     baseURL,
		ServiceName: "notion",
		BeforeRequest: func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Notion-Version", apiVersion)
		},
	})

	draftsID := cfg.DraftsDatabaseID
	if draftsID == "" {
		draftsID = cfg.DatabaseID
	}

	return &Client{
		http:       httpClient,
		databaseID: cfg.DatabaseID,
		draftsID:   draftsID,
		props:      props,
		asSelect:   cfg.StatusAsSelect,
		batchDelay: batchDelay,
		logger:     logger,
		lastBody:   make(map[string]string),
	}, nil
}

// QueryByStatus returns all pages whose status property equals the given
// status, following pagination cursors.
func (c *Client) QueryByStatus(ctx context.Context, status blogflow.Status) ([]blogflow.ContentItem, error) {
	filter := &queryFilter{Property: c.props.Status}
	if c.asSelect {
		filter.Select = &equalsFilter{Equals: string(status)}
	} else {
		filter.Status = &equalsFilter{Equals: string(status)}
	}

	var items []blogflow.ContentItem
	cursor := ""
	for {
		req := queryRequest{Filter: filter, StartCursor: cursor}

		var resp queryResponse
		path := "/v1/databases/" + c.databaseID + "/query"
		if err := c.http.Post(ctx, path, req, &resp); err != nil {
			return nil, fmt.Errorf("query database: %w", err)
		}

		for _, p := range resp.Results {
			items = append(items, c.pageToItem(p))
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return items, nil
}

// Read fetches a page and its block content.
func (c *Client) Read(ctx context.Context, id string) (*blogflow.ContentItem, error) {
	var p page
	if err := c.http.Get(ctx, "/v1/pages/"+id, &p); err != nil {
		return nil, c.mapError(err, id)
	}

	item := c.pageToItem(p)

	body, err := c.fetchBody(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Body = body

	c.mu.Lock()
	c.lastBody[id] = body
	c.mu.Unlock()

	return &item, nil
}

// Write appends any body content added since the page was last read, then
// updates the status and error message properties. Body goes first so a
// failed append leaves the page at its previous status instead of advancing
// it with the content missing. The commit message in opts is ignored; Notion
// keeps its own page history.
func (c *Client) Write(ctx context.Context, item *blogflow.ContentItem, opts blogflow.WriteOptions) error {
	if err := c.writeBody(ctx, item); err != nil {
		return err
	}

	props := map[string]propertyValue{
		c.props.Status:       c.statusProperty(item.Status),
		c.props.ErrorMessage: {RichText: newRichText(item.ErrorMessage)},
	}

	var resp page
	req := updatePageRequest{Properties: props}
	if err := c.http.Patch(ctx, "/v1/pages/"+item.ID, req, &resp); err != nil {
		return c.mapError(err, item.ID)
	}
	return nil
}

// Create adds a page to the given database. An empty parentID falls back to
// the configured drafts database. Returns the new page ID.
func (c *Client) Create(ctx context.Context, parentID string, item *blogflow.ContentItem) (string, error) {
	if parentID == "" {
		parentID = c.draftsID
	}

	props := map[string]propertyValue{
		c.props.Title:  {Title: newRichText(item.Title)},
		c.props.Status: c.statusProperty(item.Status),
	}
	if item.RelatedID != "" {
		props[c.props.Related] = propertyValue{Relation: []relationRef{{ID: item.RelatedID}}}
	}

	blocks := markdownToBlocks(item.Body)
	first := blocks
	if len(first) > maxBlocksPerAppend {
		first = blocks[:maxBlocksPerAppend]
	}

	req := createPageRequest{
		Parent:     parentRef{DatabaseID: parentID},
		Properties: props,
		Children:   first,
	}

	var created page
	if err := c.http.Post(ctx, "/v1/pages", req, &created); err != nil {
		return "", fmt.Errorf("create page: %w", err)
	}

	// Remaining blocks go through the paced append path.
	if len(blocks) > maxBlocksPerAppend {
		if err := c.appendBlocks(ctx, created.ID, blocks[maxBlocksPerAppend:]); err != nil {
			return created.ID, err
		}
	}

	c.mu.Lock()
	c.lastBody[created.ID] = item.Body
	c.mu.Unlock()

	return created.ID, nil
}

// writeBody appends body content that was added since the last read.
func (c *Client) writeBody(ctx context.Context, item *blogflow.ContentItem) error {
	c.mu.Lock()
	prev := c.lastBody[item.ID]
	c.mu.Unlock()

	if item.Body == prev {
		return nil
	}

	suffix, found := strings.CutPrefix(item.Body, prev)
	if !found {
		c.logger.Warn("page body diverged from last read, skipping body write",
			"page_id", item.ID)
		return nil
	}

	if err := c.appendBlocks(ctx, item.ID, markdownToBlocks(suffix)); err != nil {
		return err
	}

	c.mu.Lock()
	c.lastBody[item.ID] = item.Body
	c.mu.Unlock()

	return nil
}

// appendBlocks appends blocks in batches of at most 100, pausing between
// batches to respect Notion's write limits.
func (c *Client) appendBlocks(ctx context.Context, pageID string, blocks []block) error {
	for len(blocks) > 0 {
		batch := blocks
		if len(batch) > maxBlocksPerAppend {
			batch = blocks[:maxBlocksPerAppend]
		}
		blocks = blocks[len(batch):]

		req := appendChildrenRequest{Children: batch}
		var resp blockChildrenResponse
		if err := c.http.Patch(ctx, "/v1/blocks/"+pageID+"/children", req, &resp); err != nil {
			return c.mapError(err, pageID)
		}

		if len(blocks) > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.batchDelay):
			}
		}
	}
	return nil
}

// fetchBody reads all block children of a page as markdown.
func (c *Client) fetchBody(ctx context.Context, pageID string) (string, error) {
	var blocks []block
	cursor := ""
	for {
		path := "/v1/blocks/" + pageID + "/children"
		if cursor != "" {
			path += "?start_cursor=" + url.QueryEscape(cursor)
		}

		var resp blockChildrenResponse
		if err := c.http.Get(ctx, path, &resp); err != nil {
			return "", c.mapError(err, pageID)
		}

		blocks = append(blocks, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return blocksToMarkdown(blocks), nil
}

// pageToItem converts a Notion page to a content item. Body is not
// populated here; QueryByStatus leaves bodies to a later Read.
func (c *Client) pageToItem(p page) blogflow.ContentItem {
	item := blogflow.ContentItem{
		ID:           p.ID,
		LastModified: p.LastEditedTime,
	}

	if title, ok := p.Properties[c.props.Title]; ok {
		item.Title = strings.TrimSpace(plainText(title.Title))
	}
	if status, ok := p.Properties[c.props.Status]; ok {
		if status.Status != nil {
			item.Status = blogflow.Status(status.Status.Name)
		} else if status.Select != nil {
			item.Status = blogflow.Status(status.Select.Name)
		}
	}
	if errMsg, ok := p.Properties[c.props.ErrorMessage]; ok {
		item.ErrorMessage = plainText(errMsg.RichText)
	}
	if related, ok := p.Properties[c.props.Related]; ok && len(related.Relation) > 0 {
		item.RelatedID = related.Relation[0].ID
	}

	return item
}

func (c *Client) statusProperty(status blogflow.Status) propertyValue {
	if c.asSelect {
		return propertyValue{Select: &selectOption{Name: string(status)}}
	}
	return propertyValue{Status: &selectOption{Name: string(status)}}
}

// mapError translates transport errors to store errors.
func (c *Client) mapError(err error, id string) error {
	if bfhttp.IsNotFound(err) {
		return fmt.Errorf("page %s: %w", id, blogflow.ErrNotFound)
	}
	return err
}
