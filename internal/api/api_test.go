package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/guidesmith/internal/guideservice"
	"github.com/starford/guidesmith/internal/journal"
	"github.com/starford/guidesmith/internal/llm"
	"github.com/starford/guidesmith/internal/models"
	"github.com/starford/guidesmith/internal/sanity"
	"github.com/starford/guidesmith/internal/seed"
	"github.com/starford/guidesmith/internal/sse"
	"github.com/starford/guidesmith/internal/testutil"
)

type testEnvironment struct {
	router http.Handler
	llm    *testutil.FakeLLM
	store  *testutil.FakeStore
	broker *sse.Broker
	inbox  *stubInbox
}

type stubInbox struct {
	queued []guideservice.Request
}

func (s *stubInbox) Enqueue(req guideservice.Request) (string, error) {
	s.queued = append(s.queued, req)
	return "queued.yaml", nil
}

// testEnv wires the router to fake upstreams and a temp journal.
// A non-empty authToken enables bearer auth.
func testEnv(t *testing.T, authToken string) *testEnvironment {
	t.Helper()
	fakeLLM := testutil.NewFakeLLM(t)
	fakeStore := testutil.NewFakeStore(t)

	gen, err := llm.New(llm.Config{APIKey: "sk-test", BaseURL: fakeLLM.BaseURL()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	store, err := sanity.New(sanity.Config{APIHost: fakeStore.URL(), Token: testutil.FakeStoreToken}, nil)
	if err != nil {
		t.Fatal(err)
	}
	db, err := journal.Open(testutil.TempDBPath(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	broker := sse.NewBroker(100 * time.Millisecond)
	t.Cleanup(broker.Close)

	catalog, err := seed.DefaultCatalog()
	if err != nil {
		t.Fatal(err)
	}
	svc := guideservice.New(gen, store, guideservice.WithJournal(db), guideservice.WithNotifier(broker))
	inbox := &stubInbox{}
	return &testEnvironment{
		router: NewRouter(svc, catalog, inbox, authToken != "", authToken, broker),
		llm:    fakeLLM,
		store:  fakeStore,
		broker: broker,
		inbox:  inbox,
	}
}

func (e *testEnvironment) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

const tacosAnswer = `{"title":"Best Tacos","slug":"tacos","summary":"s","content":"<p>One</p>","guideType":"list"}`

func TestCreateAndListGuides(t *testing.T) {
	env := testEnv(t, "")
	env.llm.SetContent(tacosAnswer)
	env.store.Put("place.veracruz-all-natural", models.KindPlace, "veracruz-all-natural")

	w := env.do(http.MethodPost, "/guides", CreateGuideRequest{Topic: "Best tacos", Places: []string{"veracruz-all-natural"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var res guideservice.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Guide.Slug.Current != "tacos" || len(res.Guide.Places) != 1 {
		t.Errorf("result = %+v", res.Guide)
	}

	w = env.do(http.MethodGet, "/guides", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list GuideListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 || list.Guides[0].Source != journal.SourceAPI {
		t.Errorf("list = %+v", list)
	}

	w = env.do(http.MethodGet, "/guides/"+res.Guide.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get status = %d", w.Code)
	}

	w = env.do(http.MethodGet, "/guides?q=nothing-matches", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 0 || len(list.Guides) != 0 {
		t.Errorf("search = %+v", list)
	}
}

func TestCreateGuideValidation(t *testing.T) {
	env := testEnv(t, "")

	w := env.do(http.MethodPost, "/guides", CreateGuideRequest{Topic: " "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank topic = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/guides", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d", rec.Code)
	}
}

func TestCreateGuideUpstreamFailure(t *testing.T) {
	env := testEnv(t, "")
	env.llm.Fail(500, "model exploded")

	w := env.do(http.MethodPost, "/guides", CreateGuideRequest{Topic: "tacos"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "model exploded") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestCreateGuideWriteFailure(t *testing.T) {
	env := testEnv(t, "")
	env.llm.SetContent(tacosAnswer)
	env.store.FailMutate(500, "server error")

	w := env.do(http.MethodPost, "/guides", CreateGuideRequest{Topic: "tacos"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCreateGuideAsync(t *testing.T) {
	env := testEnv(t, "")

	w := env.do(http.MethodPost, "/guides?async=true", CreateGuideRequest{Topic: "tacos"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	if len(env.inbox.queued) != 1 || env.inbox.queued[0].Topic != "tacos" {
		t.Errorf("queued = %+v", env.inbox.queued)
	}
	if len(env.llm.Requests()) != 0 {
		t.Error("async request must not call the generator")
	}
}

func TestGetGuideNotFound(t *testing.T) {
	env := testEnv(t, "")
	w := env.do(http.MethodGet, "/guides/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestSuggestTopics(t *testing.T) {
	env := testEnv(t, "")
	env.llm.SetContent(`{"topics":[{"question":"Best queso?","category":"food"}]}`)

	w := env.do(http.MethodPost, "/topics", TopicsRequest{Category: "food", Count: 1})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp TopicsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Topics) != 1 {
		t.Errorf("topics = %+v", resp.Topics)
	}

	w = env.do(http.MethodPost, "/topics", TopicsRequest{Count: 500})
	if w.Code != http.StatusBadRequest {
		t.Errorf("out-of-range count = %d", w.Code)
	}
}

func TestResolveEndpoint(t *testing.T) {
	env := testEnv(t, "")
	env.store.Put("place.franklin-barbecue", models.KindPlace, "franklin-barbecue")

	w := env.do(http.MethodPost, "/resolve", ResolveRequest{Kind: "place", Slugs: []string{"franklin-barbecue", "nope"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res sanity.Resolution
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.References) != 1 || len(res.Missing) != 1 {
		t.Errorf("resolution = %+v", res)
	}

	w = env.do(http.MethodPost, "/resolve", ResolveRequest{Kind: "guide", Slugs: []string{"x"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad kind = %d", w.Code)
	}

	env.store.FailQuery(500, "boom")
	w = env.do(http.MethodPost, "/resolve", ResolveRequest{Kind: "place", Slugs: []string{"x"}})
	if w.Code != http.StatusBadGateway {
		t.Errorf("query failure = %d", w.Code)
	}
}

func TestSeedEndpoint(t *testing.T) {
	env := testEnv(t, "")

	w := env.do(http.MethodPost, "/seed", SeedRequest{DryRun: true})
	if w.Code != http.StatusOK {
		t.Fatalf("dry run status = %d", w.Code)
	}
	if env.store.Count() != 0 {
		t.Error("dry run wrote documents")
	}

	w = env.do(http.MethodPost, "/seed", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("seed status = %d, body = %s", w.Code, w.Body.String())
	}
	var rep seed.Report
	_ = json.Unmarshal(w.Body.Bytes(), &rep)
	if rep.Created != 48 {
		t.Errorf("report = %+v", rep)
	}

	w = env.do(http.MethodGet, "/seed/runs", nil)
	var runs SeedRunsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &runs)
	if len(runs.Runs) != 2 {
		t.Errorf("runs = %+v", runs.Runs)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	env := testEnv(t, "secret123")
	w := env.do(http.MethodGet, "/guides", nil, "Authorization", "Bearer secret123")
	if w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	env := testEnv(t, "secret123")
	w := env.do(http.MethodGet, "/guides", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	env := testEnv(t, "secret123")
	w := env.do(http.MethodGet, "/guides", nil, "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	env := testEnv(t, "secret123")
	w := env.do(http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_GuideCreated(t *testing.T) {
	env := testEnv(t, "")
	env.llm.SetContent(tacosAnswer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		env.router.ServeHTTP(rec, req)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for env.broker.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if w := env.do(http.MethodPost, "/guides", CreateGuideRequest{Topic: "tacos"}); w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if !strings.Contains(rec.Body.String(), "event: "+sse.EventGuideCreated) {
		t.Errorf("stream = %q", rec.Body.String())
	}
}
