package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	kgzip "github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/characterize/pkg/bytereader"
	"github.com/ssargent/characterize/pkg/characterize"
	"github.com/ssargent/characterize/pkg/report"
	"github.com/ssargent/characterize/pkg/store"
)

const testKey = "test-key"

type testServer struct {
	server  *Server
	router  http.Handler
	reports *store.Store
	metrics *Metrics
}

func setupTestServer(t *testing.T, config ServerConfig) *testServer {
	t.Helper()
	dir := t.TempDir()

	reports, err := store.Open(store.Config{Dir: filepath.Join(dir, "reports"), Compression: store.CompressionZstd})
	require.NoError(t, err)
	t.Cleanup(func() { reports.Close() })

	engine := characterize.New(characterize.Options{
		BufferKind: bytereader.Heap,
		TempDir:    filepath.Join(dir, "spool"),
	})

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	server := NewServer(engine, reports, config, metrics, nil)
	return &testServer{
		server:  server,
		router:  server.Router(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		reports: reports,
		metrics: metrics,
	}
}

func (ts *testServer) do(t *testing.T, method, target string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("X-API-Key", testKey)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func gzipped(t *testing.T, payload string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := kgzip.NewWriter(&buf)
	_, err := w.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// decodeReport extracts the report from an APIResponse body.
func decodeReport(t *testing.T, w *httptest.ResponseRecorder) *report.Report {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	require.True(t, envelope.Success)
	rep, err := report.Unmarshal(envelope.Data, report.JSON)
	require.NoError(t, err)
	return rep
}

func TestServer_handleHealth(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{APIKey: testKey})

	w := ts.do(t, "GET", "/api/v1/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response APIResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !response.Success {
		t.Error("Expected success to be true")
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(ts.metrics.healthChecksTotal.WithLabelValues(statusSuccess)))
}

func TestServer_RequiresAPIKey(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{APIKey: testKey})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, "GET", "/api/v1/health", nil, map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(ts.metrics.authRequestsTotal.WithLabelValues(statusError)))
}

func TestServer_CharacterizeAndStore(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{APIKey: testKey})

	w := ts.do(t, "POST", "/api/v1/characterize?name=sample.gz", gzipped(t, "hello"), nil)
	require.Equal(t, http.StatusCreated, w.Code)

	rep := decodeReport(t, w)
	assert.Equal(t, "sample.gz", rep.Root.Name)
	require.Len(t, rep.Root.Children, 1)
	assert.Equal(t, int64(5), rep.Root.Children[0].Length)
	require.NotEmpty(t, rep.ID)

	// fetch it back
	w = ts.do(t, "GET", "/api/v1/reports/"+rep.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeReport(t, w)
	assert.Equal(t, rep.ID, got.ID)
	assert.Equal(t, rep.Root.Name, got.Root.Name)

	// list
	w = ts.do(t, "GET", "/api/v1/reports", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Data []report.Summary `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, rep.ID, listed.Data[0].ID)
	assert.Equal(t, 2, listed.Data[0].Sources)

	// delete twice
	w = ts.do(t, "DELETE", "/api/v1/reports/"+rep.ID, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, "DELETE", "/api/v1/reports/"+rep.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(ts.metrics.characterizationsTotal.WithLabelValues("undetermined")))
}

func TestServer_CharacterizeWithoutStoring(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{APIKey: testKey})

	w := ts.do(t, "POST", "/api/v1/characterize?store=false", gzipped(t, "x"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	rep := decodeReport(t, w)
	assert.Empty(t, rep.ID)
	assert.Equal(t, "upload", rep.Root.Name)

	list, err := ts.reports.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestServer_CharacterizeCBOR(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{APIKey: testKey})

	w := ts.do(t, "POST", "/api/v1/characterize?store=false", gzipped(t, "cbor"), map[string]string{"Accept": "application/cbor"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/cbor", w.Header().Get("Content-Type"))

	rep, err := report.Unmarshal(w.Body.Bytes(), report.CBOR)
	require.NoError(t, err)
	require.Len(t, rep.Root.Children, 1)
}

func TestServer_CharacterizeCorruptUpload(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{APIKey: testKey})

	data := gzipped(t, "payload")
	data[len(data)-5] ^= 0x01 // CRC32

	w := ts.do(t, "POST", "/api/v1/characterize?store=false", data, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rep := decodeReport(t, w)
	assert.Equal(t, "false", rep.Validity)
	require.Len(t, rep.Messages, 1)
	assert.Equal(t, "gzip.crc32Mismatch", rep.Messages[0].Code)
}

func TestServer_UploadLimit(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{APIKey: testKey, MaxUploadSize: 8})

	w := ts.do(t, "POST", "/api/v1/characterize", bytes.Repeat([]byte{1}, 64), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestServer_GetReportErrors(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{APIKey: testKey})

	w := ts.do(t, "GET", "/api/v1/reports/not-an-id", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, "GET", "/api/v1/reports/0ujsszwN8NRY24YaXiTIE2VWDTS", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_NoReportStore(t *testing.T) {
	engine := characterize.New(characterize.Options{BufferKind: bytereader.Heap, TempDir: t.TempDir()})
	server := NewServer(engine, nil, ServerConfig{}, nil, nil)
	router := server.Router(nil)

	req := httptest.NewRequest("POST", "/api/v1/characterize", bytes.NewReader(gzipped(t, "x")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest("GET", "/api/v1/reports", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{APIKey: testKey})
	ts.do(t, "GET", "/api/v1/health", nil, nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "characterize_health_checks_total")
}

func TestStartServer_ShutsDownOnCancel(t *testing.T) {
	engine := characterize.New(characterize.Options{BufferKind: bytereader.Heap})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := StartServer(ctx, engine, nil, ServerConfig{Bind: "127.0.0.1", Port: 0}, prometheus.NewRegistry())
	assert.NoError(t, err)
}

func TestServer_Swagger(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{APIKey: testKey})

	w := ts.do(t, http.MethodGet, "/swagger/doc.json", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "2.0", doc["swagger"])
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/characterize")
	assert.Contains(t, paths, "/reports/{id}")

	w = ts.do(t, http.MethodGet, "/swagger/index.html", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swagger-ui")

	w = ts.do(t, http.MethodGet, "/swagger/other", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
