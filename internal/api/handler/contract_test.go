package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/docextract/internal/analyzer/mock"
	"github.com/kiranshivaraju/docextract/internal/api"
	"github.com/kiranshivaraju/docextract/internal/api/handler"
	"github.com/kiranshivaraju/docextract/internal/jobs"
	"github.com/kiranshivaraju/docextract/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Contract tests drive the full router with a real job store and runner.

type contractEnv struct {
	router http.Handler
	store  *jobs.MemoryStore
	runner *jobs.Runner
}

func newContractEnv(t *testing.T, a models.DocumentAnalyzer) *contractEnv {
	t.Helper()
	store := jobs.NewMemoryStore()
	runner := jobs.NewRunner(store, a, jobs.RunnerConfig{MaxConcurrent: 2, Timeout: 5 * time.Second}, nil)
	router := api.NewRouter(api.Dependencies{
		CORSOrigins:   []string{"http://localhost:3000"},
		SubmitHandler: handler.NewSubmitHandler(runner, testUploadLimit),
		StatusHandler: handler.NewStatusHandler(store),
	})
	return &contractEnv{router: router, store: store, runner: runner}
}

func (e *contractEnv) upload(t *testing.T, filename string) string {
	t.Helper()
	body, ct := multipartUpload(t, "file", filename, []byte("%PDF-1.7 test document"))
	rr := submit(t, e.router, body, ct)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	id, ok := decodeBody(t, rr)["jobId"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)
	return id
}

func (e *contractEnv) poll(id string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/process?jobId="+id, nil)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// pollUntilDone polls until the job leaves the processing state.
func (e *contractEnv) pollUntilDone(t *testing.T, id string) *httptest.ResponseRecorder {
	t.Helper()
	var rr *httptest.ResponseRecorder
	require.Eventually(t, func() bool {
		rr = e.poll(id)
		return rr.Code != http.StatusAccepted
	}, 2*time.Second, 10*time.Millisecond)
	return rr
}

func TestContract_UploadPollDownload(t *testing.T) {
	env := newContractEnv(t, mock.NewMockAnalyzer())

	id := env.upload(t, "report.pdf")
	rr := env.pollUntilDone(t, id)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `attachment; filename="report_processed.json"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var payload struct {
		Tables []models.Table `json:"tables"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.Equal(t, mock.SampleResult().Tables, payload.Tables)
	assert.Contains(t, rr.Body.String(), "\n  \"tables\"", "payload is indented with two spaces")

	// A completed job stays downloadable.
	again := env.poll(id)
	assert.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, rr.Body.Bytes(), again.Body.Bytes())
}

func TestContract_FailedAnalysis(t *testing.T) {
	env := newContractEnv(t, mock.NewFailingAnalyzer(errors.New("InvalidContent: the file is corrupted")))

	id := env.upload(t, "broken.pdf")
	rr := env.pollUntilDone(t, id)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, map[string]any{
		"status": "failed",
		"error":  "InvalidContent: the file is corrupted",
	}, decodeBody(t, rr))
}

func TestContract_ProcessingWhileAnalyzerRuns(t *testing.T) {
	release := make(chan struct{})
	env := newContractEnv(t, mock.NewBlockingAnalyzer(release))

	id := env.upload(t, "slow.pdf")
	for i := 0; i < 3; i++ {
		rr := env.poll(id)
		assert.Equal(t, http.StatusAccepted, rr.Code)
		assert.Equal(t, map[string]any{"status": "processing"}, decodeBody(t, rr))
	}

	close(release)
	rr := env.pollUntilDone(t, id)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `attachment; filename="slow_processed.json"`, rr.Header().Get("Content-Disposition"))
}

func TestContract_IndependentJobs(t *testing.T) {
	env := newContractEnv(t, mock.NewMockAnalyzer())

	first := env.upload(t, "a.pdf")
	second := env.upload(t, "b.pdf")
	assert.NotEqual(t, first, second)

	assert.Equal(t, `attachment; filename="a_processed.json"`, env.pollUntilDone(t, first).Header().Get("Content-Disposition"))
	assert.Equal(t, `attachment; filename="b_processed.json"`, env.pollUntilDone(t, second).Header().Get("Content-Disposition"))
	assert.Equal(t, 2, env.store.Len())
}

func TestContract_RejectedUploadCreatesNoJob(t *testing.T) {
	env := newContractEnv(t, mock.NewMockAnalyzer())

	body, ct := multipartUpload(t, "attachment", "a.pdf", []byte("x"))
	rr := submit(t, env.router, body, ct)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 0, env.store.Len())
}

func TestContract_UnknownJob(t *testing.T) {
	env := newContractEnv(t, mock.NewMockAnalyzer())

	rr := env.poll("00000000-0000-0000-0000-000000000000")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Job not found", decodeBody(t, rr)["message"])
}
