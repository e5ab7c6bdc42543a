package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// DownloadFile fetches one file from a dataset repository at revision.
func (c *Client) DownloadFile(ctx context.Context, repoID, revision, path string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/datasets/%s/resolve/%s/%s", c.endpoint, repoID, url.PathEscape(revision), path)
	resp, err := c.do(ctx, http.MethodGet, endpoint, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp)
	}
	return io.ReadAll(resp.Body)
}
