package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ppiankov/trackrecord/internal/ingest"
	"github.com/ppiankov/trackrecord/internal/model"
	"github.com/ppiankov/trackrecord/internal/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeIngestor struct {
	report    *ingest.Report
	recovered int
	err       error
}

func (f *fakeIngestor) Ingest(ctx context.Context, sub ingest.Submission) (*ingest.Report, error) {
	if f.err != nil {
		return f.report, f.err
	}
	return f.report, nil
}

func (f *fakeIngestor) Reprocess(ctx context.Context) (int, error) {
	return f.recovered, f.err
}

type fakeLifecycle struct {
	record *model.Verification
	op     *model.Opinion
	err    error
}

func (f *fakeLifecycle) VerifyNow(ctx context.Context, opinionID string) (*model.Verification, error) {
	return f.record, f.err
}

func (f *fakeLifecycle) Close(ctx context.Context, opinionID string) (*model.Opinion, error) {
	return f.op, f.err
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedOpinion(t *testing.T, s *store.Store) *model.Opinion {
	t.Helper()
	ctx := context.Background()
	author, err := s.UpsertAuthor(ctx, "twitter", "macro_guy")
	if err != nil {
		t.Fatalf("upsert author: %v", err)
	}
	post := &model.RawPost{
		ID: uuid.NewString(), AuthorID: author.ID, Platform: "twitter",
		Content: "BTC talk", CapturedAt: testNow, State: model.PostProcessed, CreatedAt: testNow,
	}
	if err := s.CreatePost(ctx, post); err != nil {
		t.Fatalf("create post: %v", err)
	}
	op := &model.Opinion{
		ID: uuid.NewString(), RawPostID: post.ID, AuthorID: author.ID,
		Type: model.TypePrediction, AbstractionLevel: 2, Status: model.StatusTracking,
		Fragment: "BTC will reach $200k", Confidence: 0.9, Fingerprint: uuid.NewString(),
		Prediction: &model.PredictionAttrs{
			Deadline: testNow.Add(240 * time.Hour), Reference: "price:BTC-USD",
			Comparison: model.CompareThreshold, TargetValue: 200000,
		},
		CreatedAt: testNow, UpdatedAt: testNow,
	}
	if err := s.CreateOpinion(ctx, op); err != nil {
		t.Fatalf("create opinion: %v", err)
	}
	return op
}

func serve(t *testing.T, engine *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestSubmitPost(t *testing.T) {
	s := openTestStore(t)
	ingestor := &fakeIngestor{report: &ingest.Report{
		PostID:   uuid.NewString(),
		Relevant: true,
	}}
	engine := NewServer(NewHandler(s, ingestor, &fakeLifecycle{}, nil), "")

	w := serve(t, engine, http.MethodPost, "/posts",
		`{"platform":"twitter","author_name":"macro_guy","content":"BTC will moon"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body)
	}

	w = serve(t, engine, http.MethodPost, "/posts", `{not json`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", w.Code)
	}

	ingestor.err = &model.ValidationError{Field: "content", Reason: "empty after normalization"}
	w = serve(t, engine, http.MethodPost, "/posts",
		`{"platform":"twitter","author_name":"macro_guy","content":""}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("validation error: status = %d, want 400", w.Code)
	}
}

func TestSubmitPost_ExtractionDeferred(t *testing.T) {
	s := openTestStore(t)
	ingestor := &fakeIngestor{
		report: &ingest.Report{PostID: uuid.NewString()},
		err:    model.ErrExtractionUnavailable,
	}
	engine := NewServer(NewHandler(s, ingestor, &fakeLifecycle{}, nil), "")

	w := serve(t, engine, http.MethodPost, "/posts",
		`{"platform":"twitter","author_name":"macro_guy","content":"BTC will moon"}`, nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 when extraction is deferred: %s", w.Code, w.Body)
	}
}

func TestReprocessPosts(t *testing.T) {
	s := openTestStore(t)
	ingestor := &fakeIngestor{recovered: 2}
	engine := NewServer(NewHandler(s, ingestor, &fakeLifecycle{}, nil), "")

	w := serve(t, engine, http.MethodPost, "/posts/reprocess", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body)
	}
	var got struct {
		Recovered int `json:"recovered"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Recovered != 2 {
		t.Errorf("recovered = %d, want 2", got.Recovered)
	}

	ingestor.err = context.DeadlineExceeded
	w = serve(t, engine, http.MethodPost, "/posts/reprocess", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("failure: status = %d, want 500", w.Code)
	}
}

func TestAccessKeyGuardsMutations(t *testing.T) {
	s := openTestStore(t)
	engine := NewServer(NewHandler(s, &fakeIngestor{report: &ingest.Report{}}, &fakeLifecycle{}, nil), "s3cret")

	w := serve(t, engine, http.MethodPost, "/posts",
		`{"platform":"twitter","author_name":"macro_guy","content":"x"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing key: status = %d, want 401", w.Code)
	}

	w = serve(t, engine, http.MethodPost, "/posts",
		`{"platform":"twitter","author_name":"macro_guy","content":"x"}`,
		map[string]string{"X-Access-Key": "s3cret"})
	if w.Code != http.StatusCreated {
		t.Errorf("with key: status = %d, want 201", w.Code)
	}

	// Reads stay open.
	w = serve(t, engine, http.MethodGet, "/opinions", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("read: status = %d, want 200", w.Code)
	}
}

func TestGetOpinionAndList(t *testing.T) {
	s := openTestStore(t)
	op := seedOpinion(t, s)
	engine := NewServer(NewHandler(s, &fakeIngestor{}, &fakeLifecycle{}, nil), "")

	w := serve(t, engine, http.MethodGet, "/opinions/"+op.ID, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var got model.Opinion
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != op.ID || got.Prediction == nil {
		t.Errorf("opinion mismatch: %+v", got)
	}

	w = serve(t, engine, http.MethodGet, "/opinions/"+uuid.NewString(), "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d, want 404", w.Code)
	}

	w = serve(t, engine, http.MethodGet, "/opinions?type=prediction&status=tracking", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status = %d", w.Code)
	}
	var list struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 1 {
		t.Errorf("total = %d, want 1", list.Total)
	}

	w = serve(t, engine, http.MethodGet, "/opinions?status=closed", "", nil)
	json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 0 {
		t.Errorf("closed filter total = %d, want 0", list.Total)
	}

	w = serve(t, engine, http.MethodGet, "/opinions?limit=bogus", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d, want 400", w.Code)
	}
}

func TestListVerifications(t *testing.T) {
	s := openTestStore(t)
	op := seedOpinion(t, s)
	ctx := context.Background()
	for i, outcome := range []model.Outcome{model.OutcomeIndeterminate, model.OutcomeCorrect} {
		v := &model.Verification{
			ID: uuid.NewString(), OpinionID: op.ID,
			AttemptedAt: testNow.Add(time.Duration(i) * time.Hour), Outcome: outcome,
		}
		if err := s.AppendVerification(ctx, v); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	engine := NewServer(NewHandler(s, &fakeIngestor{}, &fakeLifecycle{}, nil), "")

	w := serve(t, engine, http.MethodGet, "/opinions/"+op.ID+"/verifications", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var got struct {
		Verifications []model.Verification `json:"verifications"`
		Total         int                  `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total != 2 || got.Verifications[1].Outcome != model.OutcomeCorrect {
		t.Errorf("got %+v", got)
	}

	w = serve(t, engine, http.MethodGet, "/opinions/"+uuid.NewString()+"/verifications", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown opinion: status = %d, want 404", w.Code)
	}
}

func TestVerifyOpinion(t *testing.T) {
	s := openTestStore(t)
	op := seedOpinion(t, s)

	lc := &fakeLifecycle{record: &model.Verification{
		ID: uuid.NewString(), OpinionID: op.ID, AttemptedAt: testNow, Outcome: model.OutcomeCorrect,
	}}
	engine := NewServer(NewHandler(s, &fakeIngestor{}, lc, nil), "")

	w := serve(t, engine, http.MethodPost, "/opinions/"+op.ID+"/verify", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}

	lc.record, lc.err = nil, model.ErrLeaseHeld
	w = serve(t, engine, http.MethodPost, "/opinions/"+op.ID+"/verify", "", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("lease held: status = %d, want 409", w.Code)
	}

	lc.err = nil
	w = serve(t, engine, http.MethodPost, "/opinions/"+op.ID+"/verify", "", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("terminal opinion: status = %d, want 409", w.Code)
	}
}

func TestCloseOpinion(t *testing.T) {
	s := openTestStore(t)
	op := seedOpinion(t, s)

	closed := *op
	closed.Status = model.StatusClosed
	lc := &fakeLifecycle{op: &closed}
	engine := NewServer(NewHandler(s, &fakeIngestor{}, lc, nil), "")

	w := serve(t, engine, http.MethodPost, "/opinions/"+op.ID+"/close", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}

	lc.op, lc.err = nil, &model.InvalidTransitionError{From: model.StatusPending, To: model.StatusClosed}
	w = serve(t, engine, http.MethodPost, "/opinions/"+op.ID+"/close", "", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("invalid transition: status = %d, want 409", w.Code)
	}

	lc.err = model.ErrNotFound
	w = serve(t, engine, http.MethodPost, "/opinions/"+uuid.NewString()+"/close", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown opinion: status = %d, want 404", w.Code)
	}
}

func TestGetCredibility(t *testing.T) {
	s := openTestStore(t)
	op := seedOpinion(t, s)
	ctx := context.Background()
	if err := s.UpsertProfile(ctx, &model.CredibilityProfile{
		AuthorID: op.AuthorID, Accuracy: 0.75,
		Counts: model.OutcomeCounts{Correct: 3, Incorrect: 1}, Resolved: 4, UpdatedAt: testNow,
	}); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}
	engine := NewServer(NewHandler(s, &fakeIngestor{}, &fakeLifecycle{}, nil), "")

	w := serve(t, engine, http.MethodGet, "/authors/"+op.AuthorID+"/credibility", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var profile model.CredibilityProfile
	if err := json.Unmarshal(w.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if profile.Accuracy != 0.75 || profile.Resolved != 4 {
		t.Errorf("profile = %+v", profile)
	}

	w = serve(t, engine, http.MethodGet, "/authors/"+uuid.NewString()+"/credibility", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown author: status = %d, want 404", w.Code)
	}
}

func TestStatsAndHealth(t *testing.T) {
	s := openTestStore(t)
	seedOpinion(t, s)
	engine := NewServer(NewHandler(s, &fakeIngestor{}, &fakeLifecycle{}, nil), "")

	w := serve(t, engine, http.MethodGet, "/stats", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: status = %d", w.Code)
	}
	var stats struct {
		Total    int            `json:"total"`
		Opinions map[string]int `json:"opinions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Total != 1 || stats.Opinions["tracking"] != 1 {
		t.Errorf("stats = %+v", stats)
	}

	w = serve(t, engine, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health: status = %d", w.Code)
	}
}
