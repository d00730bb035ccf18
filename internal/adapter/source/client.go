package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/migrant-map/internal/domain"
)

// maxBody caps a fetched document.
const maxBody = 256 << 20

// Client fetches the dataset and the topology from HTTP URLs or local paths.
type Client struct {
	datasetURL  string
	topologyURL string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a source client. Locations starting with http:// or
// https:// are fetched over HTTP; anything else, including file:// URLs, is
// read from disk.
func NewClient(datasetURL, topologyURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		datasetURL:  datasetURL,
		topologyURL: topologyURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchDataset reads and splits the CSV dataset into raw rows.
func (c *Client) FetchDataset(ctx context.Context) ([]domain.RawRow, error) {
	body, err := c.open(ctx, c.datasetURL, "dataset")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	rows, err := ReadCSV(body)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", c.datasetURL, err)
	}
	return rows, nil
}

// FetchTopology reads the TopoJSON document.
func (c *Client) FetchTopology(ctx context.Context) ([]byte, error) {
	body, err := c.open(ctx, c.topologyURL, "topology")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read topology: %w", err)
	}
	return data, nil
}

func (c *Client) open(ctx context.Context, location, source string) (io.ReadCloser, error) {
	if isHTTP(location) {
		return c.doRequest(ctx, location, source)
	}
	path := strings.TrimPrefix(location, "file://")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", source, err)
	}
	c.logger.Debug("reading source from disk", "source", source, "path", path)
	return f, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL, source string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.logger.Debug("fetching source", "source", source, "url", fullURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", source, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s fetch error: status %d: %s", source, resp.StatusCode, body)
	}
	return resp.Body, nil
}

func isHTTP(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
