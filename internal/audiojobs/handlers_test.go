package audiojobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/societyspeaks/narrator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *Service, enqueue func() error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/audio-jobs", CreateJobHandler(svc, enqueue))
	r.GET("/api/audio-jobs/:id", GetJobHandler(svc))
	return r
}

func postJob(t *testing.T, r *gin.Engine, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/audio-jobs", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateJobHandler(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(db, &fakeSynth{}, newFakeStore())
	brief := seedBrief(t, db, "one", "two")

	enqueued := 0
	r := newTestRouter(svc, func() error { enqueued++; return nil })

	w := postJob(t, r, map[string]interface{}{
		"content_type":  models.ContentTypeDailyBrief,
		"collection_id": brief.ID,
		"voice_id":      "warm",
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, enqueued)

	var resp struct {
		ID         uint   `json:"id"`
		Status     string `json:"status"`
		TotalItems int    `json:"total_items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.AudioJobStatusPending, resp.Status)
	assert.Equal(t, 2, resp.TotalItems)

	// Duplicate request returns the existing job with 200 and no new enqueue.
	w = postJob(t, r, map[string]interface{}{
		"content_type":  models.ContentTypeDailyBrief,
		"collection_id": brief.ID,
		"voice_id":      "warm",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, enqueued)
}

func TestCreateJobHandlerValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(db, &fakeSynth{}, newFakeStore())
	r := newTestRouter(svc, nil)

	// Missing fields
	w := postJob(t, r, map[string]interface{}{"content_type": models.ContentTypeDailyBrief})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown content type
	w = postJob(t, r, map[string]interface{}{
		"content_type": "podcast", "collection_id": 1, "voice_id": "warm",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCreateJobHandlerInternalError(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(db, &fakeSynth{}, newFakeStore())
	brief := seedBrief(t, db, "one")
	r := newTestRouter(svc, nil)

	// A broken job table is an infrastructure failure, not a bad request.
	require.NoError(t, db.Exec("DROP TABLE audio_generation_jobs").Error)

	w := postJob(t, r, map[string]interface{}{
		"content_type":  models.ContentTypeDailyBrief,
		"collection_id": brief.ID,
		"voice_id":      "warm",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetJobHandler(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(db, &fakeSynth{}, newFakeStore())
	brief := seedBrief(t, db, "one")
	job, _, err := svc.CreateJob(context.Background(), models.ContentTypeDailyBrief, brief.ID, "warm")
	require.NoError(t, err)

	r := newTestRouter(svc, nil)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/audio-jobs/%d", job.ID), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, job.ID, resp.ID)
	assert.Equal(t, models.AudioJobStatusPending, resp.Status)

	req = httptest.NewRequest(http.MethodGet, "/api/audio-jobs/99999", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/audio-jobs/not-a-number", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
