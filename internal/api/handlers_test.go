package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sboagy/tunetrees-go/internal/cache"
	"github.com/sboagy/tunetrees-go/internal/feedback"
	"github.com/sboagy/tunetrees-go/internal/prefs"
	"github.com/sboagy/tunetrees-go/internal/queue"
	"github.com/sboagy/tunetrees-go/internal/repository"
	"github.com/sboagy/tunetrees-go/internal/testutil"
)

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	db := testutil.NewTestStore(t)
	ctx := context.Background()

	mustExec := func(query string, args ...interface{}) {
		if _, err := db.Exec(ctx, query, args...); err != nil {
			t.Fatalf("exec %q: %v", query, err)
		}
	}
	mustExec(`INSERT INTO playlist (id, user_ref) VALUES (1, 'user-1')`)
	mustExec(`INSERT INTO tune (id, title) VALUES (1, 'Tune One')`)
	mustExec(`INSERT INTO playlist_tune (playlist_ref, tune_ref) VALUES (1, 1)`)

	repos := repository.NewManager(db)
	prefsStore := prefs.New(repos.Prefs(), cache.New())
	t.Cleanup(func() { _ = prefsStore.Close() })

	queueStore := queue.NewStore(db, repos.Tunes(), prefsStore)
	feedbackPipeline := feedback.NewPipeline(repos.Tunes(), repos.Staging(), prefsStore)
	locks := queue.NewWriterLock()

	return NewHandlers(repos, queueStore, feedbackPipeline, prefsStore, locks, nil)
}

func doRequest(h gin.HandlerFunc, method, target string, body interface{}) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	switch method {
	case http.MethodGet:
		engine.GET("/", h)
	default:
		engine.Handle(method, "/", h)
	}

	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestHandlers_GetQueue(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.GetQueue, http.MethodGet,
		"/?user_ref=user-1&playlist_ref=1&sit_down_utc=2025-03-01+10:00:00", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHandlers_GetQueue_BadSitDown(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.GetQueue, http.MethodGet,
		"/?user_ref=user-1&playlist_ref=1&sit_down_utc=not-a-timestamp", nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed sit_down_utc, got %d", w.Code)
	}
}

func TestHandlers_ResetQueue(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.ResetQueue, http.MethodPost, "/", ResetQueueRequest{
		UserRef: "user-1", PlaylistRef: 1,
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandlers_SubmitFeedbackThenCommitStaged(t *testing.T) {
	h := newTestHandlers(t)
	sitDown := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC).Format("2006-01-02 15:04:05")

	stageW := doRequest(h.SubmitFeedback, http.MethodPost, "/", SubmitFeedbackRequest{
		UserRef: "user-1", PlaylistRef: 1, SitDownUTC: sitDown, Stage: true,
		Updates: map[int64]FeedbackUpdate{1: {Feedback: "good"}},
	})
	if stageW.Code != http.StatusOK {
		t.Fatalf("stage: expected 200, got %d: %s", stageW.Code, stageW.Body.String())
	}

	var staged Response
	if err := json.Unmarshal(stageW.Body.Bytes(), &staged); err != nil {
		t.Fatalf("decode stage response: %v", err)
	}

	commitW := doRequest(h.CommitStaged, http.MethodPost, "/", CommitStagedRequest{
		UserRef: "user-1", PlaylistRef: 1,
	})
	if commitW.Code != http.StatusOK {
		t.Fatalf("commit_staged: expected 200, got %d: %s", commitW.Code, commitW.Body.String())
	}

	var committed Response
	if err := json.Unmarshal(commitW.Body.Bytes(), &committed); err != nil {
		t.Fatalf("decode commit response: %v", err)
	}
}

func TestHandlers_SchedulingPrefsRoundTrip(t *testing.T) {
	h := newTestHandlers(t)

	getW := doRequest(h.GetSchedulingPrefs, http.MethodGet, "/?user_ref=user-1", nil)
	if getW.Code != http.StatusOK {
		t.Fatalf("expected 200 for default prefs, got %d: %s", getW.Code, getW.Body.String())
	}

	setW := doRequest(h.SetSchedulingPrefs, http.MethodPut, "/", SchedulingPrefsDTO{
		UserRef:           "user-1",
		MinReviewsPerDay:  5,
		MaxReviewsPerDay:  20,
		DaysPerWeek:       7,
	})
	if setW.Code != http.StatusOK {
		t.Fatalf("expected 200 setting prefs, got %d: %s", setW.Code, setW.Body.String())
	}
}

func TestHandlers_GetSchedulingPrefs_MissingUserRef(t *testing.T) {
	h := newTestHandlers(t)

	w := doRequest(h.GetSchedulingPrefs, http.MethodGet, "/", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without user_ref, got %d", w.Code)
	}
}
