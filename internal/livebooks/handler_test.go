package livebooks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, env *pipelineEnv) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewHandler(env.svc)
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Next()
	})
	h.RegisterRoutes(api)
	return r
}

func TestStartEndpointReuseSemantics(t *testing.T) {
	env := newPipelineEnv(t)
	talk := env.seedTalk(t, "")
	env.svc.Queue = &fakeQueue{}
	r := newTestRouter(t, env)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/v1/talks/"+talk.ID+"/livebooks", nil))
	if first.Code != http.StatusAccepted {
		t.Fatalf("first start code = %d, want 202", first.Code)
	}
	var firstBody struct {
		ID string `json:"id"`
	}
	json.NewDecoder(first.Body).Decode(&firstBody)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/v1/talks/"+talk.ID+"/livebooks", nil))
	if second.Code != http.StatusOK {
		t.Fatalf("second start code = %d, want 200 for reuse", second.Code)
	}
	var secondBody struct {
		ID string `json:"id"`
	}
	json.NewDecoder(second.Body).Decode(&secondBody)
	if secondBody.ID != firstBody.ID {
		t.Errorf("reused id = %q, want %q", secondBody.ID, firstBody.ID)
	}

	missing := httptest.NewRecorder()
	r.ServeHTTP(missing, httptest.NewRequest(http.MethodPost, "/api/v1/talks/no-such/livebooks", nil))
	if missing.Code != http.StatusNotFound {
		t.Errorf("missing talk code = %d, want 404", missing.Code)
	}
}

func TestStatusEndpointShapeAndRateLimit(t *testing.T) {
	env := newPipelineEnv(t)
	talk := env.seedTalk(t, "the transcript")
	env.seedLivebook(t, talk)
	r := newTestRouter(t, env)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/talks/"+talk.ID+"/status", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("status code = %d, body = %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Success bool `json:"success"`
		Talk    struct {
			Status     string  `json:"status"`
			Transcript *string `json:"transcript"`
		} `json:"talk"`
		Document *struct {
			Status string `json:"status"`
		} `json:"document"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success {
		t.Error("success = false")
	}
	if body.Talk.Status != "waiting" || body.Talk.Transcript == nil {
		t.Errorf("talk = %+v", body.Talk)
	}
	if body.Document == nil || body.Document.Status != "waiting" {
		t.Errorf("document = %+v", body.Document)
	}

	// Immediate second poll hits the limiter window.
	limited := httptest.NewRecorder()
	r.ServeHTTP(limited, httptest.NewRequest(http.MethodGet, "/api/v1/talks/"+talk.ID+"/status", nil))
	if limited.Code != http.StatusTooManyRequests {
		t.Fatalf("second poll code = %d, want 429", limited.Code)
	}
	if limited.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestListGetDeleteLivebooks(t *testing.T) {
	env := newPipelineEnv(t)
	talk := env.seedTalk(t, "")
	lb := env.seedLivebook(t, talk)
	r := newTestRouter(t, env)

	list := httptest.NewRecorder()
	r.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/api/v1/livebooks", nil))
	if list.Code != http.StatusOK {
		t.Fatalf("list code = %d", list.Code)
	}
	var listBody struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	json.NewDecoder(list.Body).Decode(&listBody)
	if len(listBody.Items) != 1 || listBody.Items[0].ID != lb.ID {
		t.Fatalf("items = %+v", listBody.Items)
	}

	get := httptest.NewRecorder()
	r.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/v1/livebooks/"+lb.ID, nil))
	if get.Code != http.StatusOK {
		t.Fatalf("get code = %d", get.Code)
	}

	del := httptest.NewRecorder()
	r.ServeHTTP(del, httptest.NewRequest(http.MethodDelete, "/api/v1/livebooks/"+lb.ID, nil))
	if del.Code != http.StatusNoContent {
		t.Fatalf("delete code = %d", del.Code)
	}

	getGone := httptest.NewRecorder()
	r.ServeHTTP(getGone, httptest.NewRequest(http.MethodGet, "/api/v1/livebooks/"+lb.ID, nil))
	if getGone.Code != http.StatusNotFound {
		t.Errorf("get after delete code = %d, want 404", getGone.Code)
	}
}
