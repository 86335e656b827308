package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dghubble/sling"

	"github.com/leapstack-labs/leaplineage/pkg/core"
)

// DefaultTimeout bounds a single catalog request.
const DefaultTimeout = 30 * time.Second

// Config configures the HTTP catalog client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// HTTPClient talks to the catalog REST API:
//
//	GET {base}/servers/{server}/users/{user}/entities/changed?type=T&since=RFC3339
type HTTPClient struct {
	base   *sling.Sling
	logger *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

type changedQuery struct {
	Type  string `url:"type"`
	Since string `url:"since,omitempty"`
}

type entityJSON struct {
	GUID       string         `json:"guid"`
	TypeName   string         `json:"typeName"`
	Properties map[string]any `json:"properties"`
	UpdateTime time.Time      `json:"updateTime"`
}

type changedResponse struct {
	Entities []entityJSON `json:"entities"`
}

type errorResponse struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

// NewHTTPClient creates a catalog client.
func NewHTTPClient(cfg Config, logger *slog.Logger) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("catalog base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid catalog base url: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	// relative paths resolve under the base only with a trailing slash
	base := strings.TrimSuffix(cfg.BaseURL, "/") + "/"
	s := sling.New().Client(httpClient).Base(base).Set("Accept", "application/json")
	if cfg.Token != "" {
		s = s.Set("Authorization", "Bearer "+cfg.Token)
	}
	return &HTTPClient{base: s, logger: logger}, nil
}

// FetchChangedEntities implements Client.
func (c *HTTPClient) FetchChangedEntities(ctx context.Context, serverName, userID, entityType string, since time.Time) ([]core.Entity, error) {
	if err := validate(serverName, userID, entityType); err != nil {
		return nil, err
	}

	q := changedQuery{Type: entityType}
	if !since.IsZero() {
		q.Since = since.UTC().Format(time.RFC3339Nano)
	}
	path := fmt.Sprintf("servers/%s/users/%s/entities/changed",
		url.PathEscape(serverName), url.PathEscape(userID))

	req, err := c.base.New().Get(path).QueryStruct(q).Request()
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}

	var ok changedResponse
	var apiErr errorResponse
	start := time.Now()
	resp, err := c.base.New().Do(req.WithContext(ctx), &ok, &apiErr)
	if resp == nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}

	c.logger.Debug("catalog request",
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := apiErr.Message
		if apiErr.ErrorCode != "" {
			msg = apiErr.ErrorCode + ": " + msg
		}
		return nil, &Error{Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode, Message: msg, Err: err}
	}
	if err != nil {
		return nil, &Error{Kind: KindTransport, Status: resp.StatusCode, Err: err}
	}

	entities := make([]core.Entity, 0, len(ok.Entities))
	for _, e := range ok.Entities {
		if e.GUID == "" {
			return nil, &Error{Kind: KindPropertyServer, Status: resp.StatusCode, Message: "entity without guid"}
		}
		typeName := e.TypeName
		if typeName == "" {
			typeName = entityType
		}
		entities = append(entities, core.Entity{
			GUID:       e.GUID,
			TypeName:   typeName,
			Properties: e.Properties,
			UpdatedAt:  e.UpdateTime,
		})
	}
	return entities, nil
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return KindInvalidParameter
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	default:
		return KindPropertyServer
	}
}
