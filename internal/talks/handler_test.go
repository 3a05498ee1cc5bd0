package talks

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, *MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, repo, _ := newTestService()
	h := NewHandler(svc)

	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Next()
	})
	h.RegisterRoutes(api)
	h.RegisterInternalRoutes(r.Group("/internal"))
	return r, repo
}

func uploadTalk(t *testing.T, r *gin.Engine, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fw, err := writer.CreateFormFile("audio", "talk.mp3")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("fake-audio")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/talks", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateAndGetTalk(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := uploadTalk(t, r, map[string]string{
		"title":     "Queues in Anger",
		"speaker":   "Grace Dev",
		"event":     "DevDays",
		"seniority": "senior",
		"verbosity": "compact",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}

	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.Status != "waiting" {
		t.Fatalf("created = %+v", created)
	}

	reqGet := httptest.NewRequest(http.MethodGet, "/api/v1/talks/"+created.ID, nil)
	respGet := httptest.NewRecorder()
	r.ServeHTTP(respGet, reqGet)
	if respGet.Code != http.StatusOK {
		t.Fatalf("get status = %d", respGet.Code)
	}
	if !strings.Contains(respGet.Body.String(), "senior") {
		t.Errorf("get body missing profile: %s", respGet.Body.String())
	}
}

func TestCreateTalkMissingAudio(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/talks", strings.NewReader("title=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestTranscriptionCallbackEndpoint(t *testing.T) {
	r, repo := newTestRouter(t)

	resp := uploadTalk(t, r, map[string]string{"title": "T", "seniority": "mid", "verbosity": "full"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create status = %d", resp.Code)
	}
	var created struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&created)

	payload := `{"status":"completed","transcript":"hello from transcriber"}`
	req := httptest.NewRequest(http.MethodPost, "/internal/talks/"+created.ID+"/transcription", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	respCb := httptest.NewRecorder()
	r.ServeHTTP(respCb, req)
	if respCb.Code != http.StatusOK {
		t.Fatalf("callback status = %d, body = %s", respCb.Code, respCb.Body.String())
	}

	talk, err := repo.GetAny(req.Context(), created.ID)
	if err != nil {
		t.Fatalf("get talk: %v", err)
	}
	if talk.Transcript == nil || *talk.Transcript != "hello from transcriber" {
		t.Errorf("transcript = %v", talk.Transcript)
	}

	// Unknown status value is rejected.
	req = httptest.NewRequest(http.MethodPost, "/internal/talks/"+created.ID+"/transcription", strings.NewReader(`{"status":"maybe"}`))
	req.Header.Set("Content-Type", "application/json")
	respBad := httptest.NewRecorder()
	r.ServeHTTP(respBad, req)
	if respBad.Code != http.StatusBadRequest {
		t.Errorf("unknown status: code = %d, want 400", respBad.Code)
	}
}

func TestDeleteTalk(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := uploadTalk(t, r, map[string]string{"title": "T", "seniority": "mid", "verbosity": "full"})
	var created struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&created)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/talks/"+created.ID, nil)
	respDel := httptest.NewRecorder()
	r.ServeHTTP(respDel, req)
	if respDel.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", respDel.Code)
	}

	respDel2 := httptest.NewRecorder()
	r.ServeHTTP(respDel2, httptest.NewRequest(http.MethodDelete, "/api/v1/talks/"+created.ID, nil))
	if respDel2.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", respDel2.Code)
	}
}
