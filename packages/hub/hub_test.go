package hub

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHub is a minimal in-memory Hub API for tests.
type fakeHub struct {
	t *testing.T

	createdRepos []string
	lfsThreshold int64
	lfsObjects   map[string][]byte
	commits      []commitRecord
	authHeader   string

	failStatus int
	failBody   string
}

type commitRecord struct {
	repoID   string
	revision string
	summary  string
	files    map[string][]byte
	lfsPaths []string
}

func newFakeHub(t *testing.T) *fakeHub {
	return &fakeHub{
		t:            t,
		lfsThreshold: 1 << 20,
		lfsObjects:   make(map[string][]byte),
	}
}

func (h *fakeHub) server() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/repos/create", func(w http.ResponseWriter, r *http.Request) {
		h.authHeader = r.Header.Get("Authorization")
		if h.failStatus != 0 {
			w.WriteHeader(h.failStatus)
			io.WriteString(w, h.failBody)
			return
		}
		var req createRepoRequest
		require.NoError(h.t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(h.t, "dataset", req.Type)
		repoID := req.Organization + "/" + req.Name
		for _, existing := range h.createdRepos {
			if existing == repoID {
				w.WriteHeader(http.StatusConflict)
				return
			}
		}
		h.createdRepos = append(h.createdRepos, repoID)
		json.NewEncoder(w).Encode(map[string]string{"url": "https://example.test/" + repoID})
	})

	mux.HandleFunc("/api/datasets/", func(w http.ResponseWriter, r *http.Request) {
		h.authHeader = r.Header.Get("Authorization")
		if h.failStatus != 0 {
			w.WriteHeader(h.failStatus)
			io.WriteString(w, h.failBody)
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/api/datasets/")
		parts := strings.Split(rest, "/")
		require.GreaterOrEqual(h.t, len(parts), 4)
		repoID := parts[0] + "/" + parts[1]
		action, revision := parts[2], parts[3]

		switch action {
		case "preupload":
			var req preuploadRequest
			require.NoError(h.t, json.NewDecoder(r.Body).Decode(&req))
			resp := preuploadResponse{}
			for _, f := range req.Files {
				mode := "regular"
				if f.Size >= h.lfsThreshold {
					mode = "lfs"
				}
				resp.Files = append(resp.Files, struct {
					Path       string `json:"path"`
					UploadMode string `json:"uploadMode"`
				}{Path: f.Path, UploadMode: mode})
			}
			json.NewEncoder(w).Encode(resp)

		case "commit":
			record := commitRecord{
				repoID:   repoID,
				revision: revision,
				files:    make(map[string][]byte),
			}
			scanner := bufio.NewScanner(r.Body)
			scanner.Buffer(make([]byte, 1<<20), 1<<24)
			for scanner.Scan() {
				var line struct {
					Key   string          `json:"key"`
					Value json.RawMessage `json:"value"`
				}
				require.NoError(h.t, json.Unmarshal(scanner.Bytes(), &line))
				switch line.Key {
				case "header":
					var header commitHeader
					require.NoError(h.t, json.Unmarshal(line.Value, &header))
					record.summary = header.Summary
				case "file":
					var file commitRegularFile
					require.NoError(h.t, json.Unmarshal(line.Value, &file))
					assert.Equal(h.t, "base64", file.Encoding)
					content, err := base64.StdEncoding.DecodeString(file.Content)
					require.NoError(h.t, err)
					record.files[file.Path] = content
				case "lfsFile":
					var file commitLFSFile
					require.NoError(h.t, json.Unmarshal(line.Value, &file))
					content, ok := h.lfsObjects[file.OID]
					require.True(h.t, ok, "lfs object %s not uploaded before commit", file.OID)
					record.files[file.Path] = content
					record.lfsPaths = append(record.lfsPaths, file.Path)
				}
			}
			h.commits = append(h.commits, record)
			json.NewEncoder(w).Encode(map[string]string{
				"commitOid": "abc123def456",
				"commitUrl": "https://example.test/" + repoID + "/commit/abc123def456",
			})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	mux.HandleFunc("/datasets/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/datasets/")

		// LFS batch negotiation
		if strings.Contains(rest, ".git/info/lfs/objects/batch") {
			var req lfsBatchRequest
			require.NoError(h.t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(h.t, "upload", req.Operation)
			type action struct {
				Href   string            `json:"href"`
				Header map[string]string `json:"header"`
			}
			type object struct {
				OID     string `json:"oid"`
				Actions struct {
					Upload action `json:"upload"`
				} `json:"actions"`
			}
			resp := struct {
				Objects []object `json:"objects"`
			}{}
			for _, o := range req.Objects {
				obj := object{OID: o.OID}
				if _, uploaded := h.lfsObjects[o.OID]; !uploaded {
					obj.Actions.Upload = action{Href: "http://" + r.Host + "/lfs-store/" + o.OID}
				}
				resp.Objects = append(resp.Objects, obj)
			}
			json.NewEncoder(w).Encode(resp)
			return
		}

		// namespace/name/resolve/revision/path...
		segs := strings.SplitN(rest, "/", 5)
		if len(segs) == 5 && segs[2] == "resolve" {
			path := segs[4]
			for i := len(h.commits) - 1; i >= 0; i-- {
				if content, ok := h.commits[i].files[path]; ok {
					w.Write(content)
					return
				}
			}
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	mux.HandleFunc("/lfs-store/", func(w http.ResponseWriter, r *http.Request) {
		oid := strings.TrimPrefix(r.URL.Path, "/lfs-store/")
		content, err := io.ReadAll(r.Body)
		require.NoError(h.t, err)
		sum := sha256.Sum256(content)
		assert.Equal(h.t, oid, hex.EncodeToString(sum[:]))
		h.lfsObjects[oid] = content
		w.WriteHeader(http.StatusOK)
	})

	return httptest.NewServer(mux)
}

func TestCreateRepo(t *testing.T) {
	fake := newFakeHub(t)
	srv := fake.server()
	defer srv.Close()

	client := NewClient(WithEndpoint(srv.URL), WithToken("hf_test"))

	require.NoError(t, client.CreateRepo(context.Background(), "user/ds", true))
	assert.Equal(t, []string{"user/ds"}, fake.createdRepos)
	assert.Equal(t, "Bearer hf_test", fake.authHeader)

	// Creating it again hits the 409 path and is not an error.
	require.NoError(t, client.CreateRepo(context.Background(), "user/ds", true))
}

func TestCreateRepo_InvalidRepoID(t *testing.T) {
	client := NewClient()
	err := client.CreateRepo(context.Background(), "no-namespace", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "namespace/name")
}

func TestCommit_RegularFiles(t *testing.T) {
	fake := newFakeHub(t)
	srv := fake.server()
	defer srv.Close()

	client := NewClient(WithEndpoint(srv.URL), WithToken("hf_test"))

	files := []CommitFile{
		{Path: "default/train-00000-of-00001.jsonl", Content: []byte(`{"text":"hi"}` + "\n")},
		{Path: "README.md", Content: []byte("---\nconfigs: []\n---\n")},
	}
	info, err := client.Commit(context.Background(), "user/ds", "main", "Upload dataset", files)
	require.NoError(t, err)
	assert.Equal(t, "abc123def456", info.OID)
	assert.Contains(t, info.URL, "user/ds")

	require.Len(t, fake.commits, 1)
	commit := fake.commits[0]
	assert.Equal(t, "Upload dataset", commit.summary)
	assert.Equal(t, "main", commit.revision)
	assert.Equal(t, files[0].Content, commit.files["default/train-00000-of-00001.jsonl"])
	assert.Empty(t, commit.lfsPaths)
}

func TestCommit_LFSFiles(t *testing.T) {
	fake := newFakeHub(t)
	fake.lfsThreshold = 16
	srv := fake.server()
	defer srv.Close()

	client := NewClient(WithEndpoint(srv.URL), WithToken("hf_test"))

	big := make([]byte, 64)
	for i := range big {
		big[i] = byte(i)
	}
	files := []CommitFile{
		{Path: "default/train-00000-of-00001.jsonl", Content: big},
		{Path: "README.md", Content: []byte("---\n---\n")},
	}
	_, err := client.Commit(context.Background(), "user/ds", "main", "msg", files)
	require.NoError(t, err)

	require.Len(t, fake.commits, 1)
	commit := fake.commits[0]
	assert.Equal(t, []string{"default/train-00000-of-00001.jsonl"}, commit.lfsPaths)
	assert.Equal(t, big, commit.files["default/train-00000-of-00001.jsonl"])
	// The small card stays a regular file.
	assert.Equal(t, []byte("---\n---\n"), commit.files["README.md"])
}

func TestCommit_SurfacesAPIError(t *testing.T) {
	fake := newFakeHub(t)
	fake.failStatus = http.StatusForbidden
	fake.failBody = `{"error":"token does not have write access"}`
	srv := fake.server()
	defer srv.Close()

	client := NewClient(WithEndpoint(srv.URL), WithToken("hf_test"))

	_, err := client.Commit(context.Background(), "user/ds", "main", "msg", []CommitFile{{Path: "a", Content: []byte("x")}})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "token does not have write access", apiErr.Message)
}

func TestDownloadFile(t *testing.T) {
	fake := newFakeHub(t)
	srv := fake.server()
	defer srv.Close()

	client := NewClient(WithEndpoint(srv.URL))

	content := []byte(`{"text":"hi"}` + "\n")
	_, err := client.Commit(context.Background(), "user/ds", "main", "msg",
		[]CommitFile{{Path: "default/train-00000-of-00001.jsonl", Content: content}})
	require.NoError(t, err)

	got, err := client.DownloadFile(context.Background(), "user/ds", "main", "default/train-00000-of-00001.jsonl")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = client.DownloadFile(context.Background(), "user/ds", "main", "missing.jsonl")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestClient_RateLimiterHonorsContext(t *testing.T) {
	client := NewClient(WithRequestsPerSecond(0.001))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// First token is available immediately; burn it, then the canceled
	// context must abort the wait for the second.
	require.NoError(t, client.limiter.Wait(context.Background()))
	_, err := client.do(ctx, http.MethodGet, "http://127.0.0.1:0/", "", nil)
	require.Error(t, err)
}
