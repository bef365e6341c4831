package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CageChen/assethub/internal/asset"
	"github.com/CageChen/assethub/internal/serializer"
	"github.com/CageChen/assethub/internal/watcher"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const mixedSidecar = `[
 {"export_type": "BlueprintGeneratedClass", "_apoc_data_ver": 21, "_jwp_object_name": "Mission_A_C"},
 {"export_type": "Mission_A_C", "bRepeatable": true, "FormattedMissionName": {"FormatText": {"string": "Ammo Run"}}},
 {"export_type": "Objective", "Name": "first"},
 {"export_type": "Objective", "Name": "second"}
]`

type testServer struct {
	root     string
	repo     *asset.Repository
	handlers *Handlers
	router   *gin.Engine
}

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "Missions/Mission_A.uasset", "bin")
	writeFile(t, root, "Missions/Mission_A.json", mixedSidecar)
	writeFile(t, root, "Missions/Mission_Broken.uasset", "bin")
	writeFile(t, root, "Missions/Sub/Mission_B.uasset", "bin")
	writeFile(t, root, "Missions/Sub/Mission_B.json", `[]`)
	writeFile(t, root, "Missions/Mission_A/Extra.uasset", "bin")

	noop := serializer.Func(func(context.Context, string) error { return nil })
	repo, err := asset.Open(root, noop)
	require.NoError(t, err)

	h, err := NewHandlers(repo, 8, nil)
	require.NoError(t, err)
	return &testServer{root: repo.Root().Abs(), repo: repo, handlers: h, router: NewRouter(h, nil)}
}

func (s *testServer) get(t *testing.T, url string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestGetTree(t *testing.T) {
	s := newTestServer(t)

	w := s.get(t, "/api/tree?path=Missions")
	require.Equal(t, http.StatusOK, w.Code)

	node := decode[TreeNode](t, w)
	assert.Equal(t, "/Missions/", node.Path)
	var got []string
	for _, c := range node.Children {
		got = append(got, c.Type+":"+c.Path)
	}
	assert.Equal(t, []string{
		"directory:/Missions/Mission_A/",
		"directory:/Missions/Sub/",
		"file:/Missions/Mission_A",
		"file:/Missions/Mission_Broken",
	}, got)
}

func TestGetTree_Missing(t *testing.T) {
	s := newTestServer(t)
	w := s.get(t, "/api/tree?path=Nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type listResponse struct {
	Results []TreeNode `json:"results"`
	Count   int        `json:"count"`
}

func TestSearch(t *testing.T) {
	s := newTestServer(t)

	w := s.get(t, "/api/search?path=Missions&prefix=mission_")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[listResponse](t, w)
	var paths []string
	for _, r := range resp.Results {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{
		"/Missions/Mission_A",
		"/Missions/Mission_Broken",
		"/Missions/Sub/Mission_B",
	}, paths)

	w = s.get(t, "/api/search?path=Missions&prefix=mission_&limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[listResponse](t, w).Count)

	w = s.get(t, "/api/search?path=Missions&limit=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGlob(t *testing.T) {
	s := newTestServer(t)

	w := s.get(t, "/api/glob?path=Missions&pattern=Mission_A*")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[listResponse](t, w)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "directory", resp.Results[0].Type)
	assert.Equal(t, "/Missions/Mission_A/", resp.Results[0].Path)

	assert.Equal(t, http.StatusBadRequest, s.get(t, "/api/glob?path=Missions").Code)
	assert.Equal(t, http.StatusBadRequest, s.get(t, "/api/glob?pattern=%5B").Code)
}

func TestGetFile(t *testing.T) {
	s := newTestServer(t)

	w := s.get(t, "/api/files/Missions/Mission_A")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[FileResponse](t, w)
	assert.Equal(t, "/Missions/Mission_A", resp.Path)
	assert.Equal(t, "loaded", resp.State)
	assert.Equal(t, 4, resp.Count)

	w = s.get(t, "/api/files/Missions/Mission_A.uasset?type=Objective")
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[FileResponse](t, w)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "first", resp.Exports[0]["Name"])
	assert.Equal(t, "second", resp.Exports[1]["Name"])

	w = s.get(t, "/api/files/Missions/Mission_A?type=Mission_A_C&type=Nope&single=true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[FileResponse](t, w).Count)
}

func TestGetFile_Errors(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		url  string
		want int
	}{
		{"/api/files/Missions/Mission_A?type=Objective&single=true", http.StatusConflict},
		{"/api/files/Missions/Mission_A?type=Nope&single=true", http.StatusNotFound},
		{"/api/files/Missions/Mission_A?single=true", http.StatusBadRequest},
		{"/api/files/Missions/Mission_A?type=Objective&single=maybe", http.StatusBadRequest},
		{"/api/files/Missions/Missing", http.StatusNotFound},
		{"/api/files/Missions/Mission_Broken", http.StatusBadGateway},
	}
	for _, tc := range cases {
		w := s.get(t, tc.url)
		assert.Equal(t, tc.want, w.Code, tc.url)
		assert.Contains(t, w.Body.String(), `"error"`, tc.url)
	}
}

func TestView(t *testing.T) {
	s := newTestServer(t)

	w := s.get(t, "/api/view/Missions/Mission_A?type=Objective")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ViewResponse](t, w)
	assert.Equal(t, "/Missions/Mission_A", resp.Path)
	assert.Contains(t, resp.Title, "Missions")
	assert.Contains(t, resp.HTML, `class="chroma"`)
	require.Len(t, resp.TOC, 3)
	assert.Equal(t, "0 Objective", resp.TOC[1].Title)
}

func TestMissionsReport(t *testing.T) {
	s := newTestServer(t)

	w := s.get(t, "/api/reports/missions?path=Missions")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[MissionsResponse](t, w)
	assert.Equal(t, []string{"Ammo Run"}, resp.Repeatable)
	assert.Equal(t, []string{"/Missions/Mission_Broken", "/Missions/Sub/Mission_B"}, resp.Unknown)
	assert.Contains(t, resp.HTML, "<table>")

	assert.Equal(t, http.StatusNotFound, s.get(t, "/api/reports/missions?path=Nope").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.get(t, "/api/tree")

	w := s.get(t, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "assethub_http_requests_total")
}

func TestFileCache(t *testing.T) {
	s := newTestServer(t)
	cache := s.handlers.Cache

	a := cache.File("Missions/Mission_A")
	assert.Same(t, a, cache.File("/Missions/Mission_A.uasset"))
	assert.Equal(t, 1, cache.Len())

	cache.OnFileChange(watcher.Event{
		Type:   watcher.EventWrite,
		Target: watcher.TargetSidecar,
		Path:   filepath.Join(s.root, "Missions", "Mission_A.json"),
	})
	assert.Equal(t, 0, cache.Len())
	assert.NotSame(t, a, cache.File("Missions/Mission_A"))

	cache.File("Missions/Sub/Mission_B")
	cache.OnFileChange(watcher.Event{Type: watcher.EventCreate, Target: watcher.TargetDir, Path: filepath.Join(s.root, "New")})
	assert.Equal(t, 2, cache.Len())
	cache.OnFileChange(watcher.Event{Type: watcher.EventRemove, Target: watcher.TargetDir, Path: filepath.Join(s.root, "Missions")})
	assert.Equal(t, 0, cache.Len())
}

func TestFileCache_EvictsThroughSymlinkedRoot(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "real")
	link := filepath.Join(base, "link")
	writeFile(t, target, "Game/Foo.uasset", "bin")
	writeFile(t, target, "Game/Foo.json", mixedSidecar)
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	noop := serializer.Func(func(context.Context, string) error { return nil })
	repo, err := asset.Open(link, noop)
	require.NoError(t, err)
	cache, err := NewFileCache(repo, 4)
	require.NoError(t, err)

	cache.File("Game/Foo")
	require.Equal(t, 1, cache.Len())

	cache.OnFileChange(watcher.Event{
		Type:   watcher.EventWrite,
		Target: watcher.TargetSidecar,
		Path:   filepath.Join(link, "Game", "Foo.json"),
	})
	assert.Equal(t, 0, cache.Len())
}

func TestFileCache_Disabled(t *testing.T) {
	s := newTestServer(t)
	cache, err := NewFileCache(s.repo, 0)
	require.NoError(t, err)

	assert.NotSame(t, cache.File("Missions/Mission_A"), cache.File("Missions/Mission_A"))
	assert.Equal(t, 0, cache.Len())
	cache.OnFileChange(watcher.Event{Target: watcher.TargetDir, Type: watcher.EventRemove, Path: s.root})
}

func TestWebSocketBroadcast(t *testing.T) {
	s := newTestServer(t)
	server := httptest.NewServer(s.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.handlers.WS.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.handlers.WS.OnFileChange(watcher.Event{
		Type:   watcher.EventWrite,
		Target: watcher.TargetAsset,
		Path:   filepath.Join(s.root, "Missions", "Mission_A.uasset"),
	})
	// Paths outside the root are not reported.
	s.handlers.WS.OnFileChange(watcher.Event{Type: watcher.EventWrite, Path: filepath.Dir(s.root)})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type    string        `json:"type"`
		Payload ChangePayload `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "assetChange", msg.Type)
	assert.Equal(t, ChangePayload{Event: "write", Target: "asset", Path: "/Missions/Mission_A"}, msg.Payload)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		asset.ErrNotFound:             http.StatusNotFound,
		asset.ErrNoMatch:              http.StatusNotFound,
		asset.ErrAmbiguousMatch:       http.StatusConflict,
		asset.ErrSerializationFailure: http.StatusBadGateway,
		asset.ErrInvalidComposition:   http.StatusBadRequest,
		context.DeadlineExceeded:      http.StatusGatewayTimeout,
		errors.New("boom"):            http.StatusInternalServerError,
	}
	for err, want := range cases {
		wrapped := fmt.Errorf("wrapped: %w", err)
		assert.Equal(t, want, statusFor(wrapped), err.Error())
	}
}
