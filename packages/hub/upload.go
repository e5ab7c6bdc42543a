package hub

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

const preuploadSampleSize = 512

// CommitFile is one file to be written by a commit.
type CommitFile struct {
	Path    string
	Content []byte
}

// CommitInfo describes the commit created by a push.
type CommitInfo struct {
	OID string `json:"commitOid"`
	URL string `json:"commitUrl"`
}

type preuploadRequest struct {
	Files []preuploadFile `json:"files"`
}

type preuploadFile struct {
	Path   string `json:"path"`
	Sample string `json:"sample"`
	Size   int64  `json:"size"`
}

type preuploadResponse struct {
	Files []struct {
		Path       string `json:"path"`
		UploadMode string `json:"uploadMode"`
	} `json:"files"`
}

// preupload asks the Hub how each file must be uploaded. The answer maps
// file paths to "regular" (inline base64 in the commit) or "lfs".
func (c *Client) preupload(ctx context.Context, repoID, revision string, files []CommitFile) (map[string]string, error) {
	req := preuploadRequest{Files: make([]preuploadFile, 0, len(files))}
	for _, f := range files {
		sample := f.Content
		if len(sample) > preuploadSampleSize {
			sample = sample[:preuploadSampleSize]
		}
		req.Files = append(req.Files, preuploadFile{
			Path:   f.Path,
			Sample: base64.StdEncoding.EncodeToString(sample),
			Size:   int64(len(f.Content)),
		})
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/datasets/%s/preupload/%s", c.endpoint, repoID, url.PathEscape(revision))
	resp, err := c.do(ctx, http.MethodPost, endpoint, "application/json", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp)
	}

	var decoded preuploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode preupload response: %w", err)
	}

	modes := make(map[string]string, len(decoded.Files))
	for _, f := range decoded.Files {
		modes[f.Path] = f.UploadMode
	}
	return modes, nil
}

type lfsBatchRequest struct {
	Operation string      `json:"operation"`
	Transfers []string    `json:"transfers"`
	HashAlgo  string      `json:"hash_algo"`
	Objects   []lfsObject `json:"objects"`
}

type lfsObject struct {
	OID  string `json:"oid"`
	Size int64  `json:"size"`
}

type lfsBatchResponse struct {
	Objects []struct {
		OID     string `json:"oid"`
		Actions struct {
			Upload struct {
				Href   string            `json:"href"`
				Header map[string]string `json:"header"`
			} `json:"upload"`
		} `json:"actions"`
	} `json:"objects"`
}

// uploadLFS pushes one file through the Git LFS flow: batch negotiation,
// then a PUT of the raw bytes to the returned storage URL. A missing
// upload action means the object is already on the server.
func (c *Client) uploadLFS(ctx context.Context, repoID string, file CommitFile) (oid string, err error) {
	sum := sha256.Sum256(file.Content)
	oid = hex.EncodeToString(sum[:])

	payload, err := json.Marshal(lfsBatchRequest{
		Operation: "upload",
		Transfers: []string{"basic"},
		HashAlgo:  "sha256",
		Objects:   []lfsObject{{OID: oid, Size: int64(len(file.Content))}},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/datasets/%s.git/info/lfs/objects/batch", c.endpoint, repoID)
	resp, err := c.do(ctx, http.MethodPost, endpoint, "application/vnd.git-lfs+json", payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apiError(resp)
	}

	var batch lfsBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return "", fmt.Errorf("failed to decode LFS batch response: %w", err)
	}
	if len(batch.Objects) == 0 {
		return "", fmt.Errorf("LFS batch response for %s contains no objects", file.Path)
	}

	upload := batch.Objects[0].Actions.Upload
	if upload.Href == "" {
		c.logger.Debug("LFS object already present", zap.String("path", file.Path), zap.String("oid", oid))
		return oid, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, upload.Href, bytes.NewReader(file.Content))
	if err != nil {
		return "", err
	}
	for k, v := range upload.Header {
		req.Header.Set(k, v)
	}
	putResp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer putResp.Body.Close()
	if putResp.StatusCode < 200 || putResp.StatusCode >= 300 {
		return "", apiError(putResp)
	}

	c.logger.Debug("uploaded LFS object",
		zap.String("path", file.Path),
		zap.String("oid", oid),
		zap.Int("bytes", len(file.Content)))
	return oid, nil
}

type commitHeader struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

type commitRegularFile struct {
	Path     string `json:"path"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

type commitLFSFile struct {
	Path string `json:"path"`
	Algo string `json:"algo"`
	OID  string `json:"oid"`
	Size int64  `json:"size"`
}

type ndjsonLine struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Commit writes files to the repository in a single commit on revision.
// Files the Hub marks as LFS are pushed through the LFS flow first; the
// rest travel base64-inline in the NDJSON commit payload.
func (c *Client) Commit(ctx context.Context, repoID, revision, message string, files []CommitFile) (*CommitInfo, error) {
	modes, err := c.preupload(ctx, repoID, revision, files)
	if err != nil {
		return nil, err
	}

	lines := []ndjsonLine{{
		Key:   "header",
		Value: commitHeader{Summary: message},
	}}

	for _, f := range files {
		if modes[f.Path] == "lfs" {
			oid, err := c.uploadLFS(ctx, repoID, f)
			if err != nil {
				return nil, err
			}
			lines = append(lines, ndjsonLine{
				Key: "lfsFile",
				Value: commitLFSFile{
					Path: f.Path,
					Algo: "sha256",
					OID:  oid,
					Size: int64(len(f.Content)),
				},
			})
			continue
		}
		lines = append(lines, ndjsonLine{
			Key: "file",
			Value: commitRegularFile{
				Path:     f.Path,
				Encoding: "base64",
				Content:  base64.StdEncoding.EncodeToString(f.Content),
			},
		})
	}

	var payload bytes.Buffer
	encoder := json.NewEncoder(&payload)
	for _, line := range lines {
		if err := encoder.Encode(line); err != nil {
			return nil, err
		}
	}

	endpoint := fmt.Sprintf("%s/api/datasets/%s/commit/%s", c.endpoint, repoID, url.PathEscape(revision))
	resp, err := c.do(ctx, http.MethodPost, endpoint, "application/x-ndjson", payload.Bytes())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp)
	}

	info := &CommitInfo{}
	if err := json.NewDecoder(resp.Body).Decode(info); err != nil {
		return nil, fmt.Errorf("failed to decode commit response: %w", err)
	}

	c.logger.Info("committed files",
		zap.String("repo", repoID),
		zap.String("revision", revision),
		zap.Int("files", len(files)),
		zap.String("oid", info.OID))
	return info, nil
}
