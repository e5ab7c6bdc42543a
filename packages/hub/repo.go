package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type createRepoRequest struct {
	Type         string `json:"type"`
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
	Private      bool   `json:"private"`
}

// splitRepoID splits "namespace/name" into its two halves.
func splitRepoID(repoID string) (namespace, name string, err error) {
	parts := strings.SplitN(repoID, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo id %q: expected namespace/name", repoID)
	}
	return parts[0], parts[1], nil
}

// CreateRepo creates the dataset repository if it does not exist yet.
// An already existing repository is not an error.
func (c *Client) CreateRepo(ctx context.Context, repoID string, private bool) error {
	namespace, name, err := splitRepoID(repoID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(createRepoRequest{
		Type:         "dataset",
		Name:         name,
		Organization: namespace,
		Private:      private,
	})
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, c.endpoint+"/api/repos/create", "application/json", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		c.logger.Debug("dataset repo already exists", zap.String("repo", repoID))
		return nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.logger.Info("created dataset repo", zap.String("repo", repoID), zap.Bool("private", private))
		return nil
	default:
		return apiError(resp)
	}
}
