package guideservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/starford/guidesmith/internal/apperr"
	"github.com/starford/guidesmith/internal/journal"
	"github.com/starford/guidesmith/internal/llm"
	"github.com/starford/guidesmith/internal/models"
	"github.com/starford/guidesmith/internal/prompt"
	"github.com/starford/guidesmith/internal/sanity"
	"github.com/starford/guidesmith/internal/seed"
	"github.com/starford/guidesmith/internal/sse"
	"github.com/starford/guidesmith/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Notify(eventType string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fixture struct {
	svc     *Service
	llm     *testutil.FakeLLM
	store   *testutil.FakeStore
	journal *journal.DB
	events  *recorder
}

func newFixture(t *testing.T) *fixture {
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
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	events := &recorder{}
	return &fixture{
		svc:     New(gen, store, WithJournal(db), WithNotifier(events)),
		llm:     fakeLLM,
		store:   fakeStore,
		journal: db,
		events:  events,
	}
}

const tacosAnswer = `{"title":"Best Tacos","slug":"tacos","summary":"Where to eat.","content":"<p>One</p>\n\n<p>Two</p>","guideType":"list"}`

func TestCreateFromTopic(t *testing.T) {
	f := newFixture(t)
	f.llm.SetContent(tacosAnswer)
	f.store.Put("place.veracruz-all-natural", models.KindPlace, "veracruz-all-natural")

	res, err := f.svc.CreateFromTopic(context.Background(), Request{
		Topic:  "Where are the best tacos?",
		Places: []string{"veracruz-all-natural", "unknown-place"},
		Source: journal.SourceCLI,
	})
	if err != nil {
		t.Fatalf("CreateFromTopic: %v", err)
	}
	g := res.Guide
	if g.Slug.Current != "tacos" || g.GuideType != "list" {
		t.Errorf("guide = %+v", g.Guide)
	}
	if len(g.Content) != 2 || g.Content[0].Text() != "One" || g.Content[1].Text() != "Two" {
		t.Errorf("content = %+v", g.Content)
	}
	if len(g.Places) != 1 || g.Places[0].Ref != "place.veracruz-all-natural" {
		t.Errorf("places = %+v", g.Places)
	}
	if g.Neighborhoods != nil {
		t.Errorf("neighborhoods = %+v", g.Neighborhoods)
	}

	row, err := f.journal.GetGuide(g.ID)
	if err != nil {
		t.Fatalf("journal row missing: %v", err)
	}
	if row.Topic != "Where are the best tacos?" || row.TopicChecksum != res.Checksum || row.Source != journal.SourceCLI {
		t.Errorf("journal row = %+v", row)
	}

	prompts := f.llm.Requests()
	if len(prompts) != 1 || !strings.Contains(prompts[0].Messages[1].Content, "unknown-place") {
		t.Error("hints were not passed to the generator")
	}
	if ev := f.events.Events(); len(ev) != 1 || ev[0] != sse.EventGuideCreated {
		t.Errorf("events = %v", ev)
	}

	dup, err := f.svc.AlreadyCreated(Request{Topic: "  where are the BEST tacos?", Places: []string{"unknown-place", "veracruz-all-natural"}})
	if err != nil || !dup {
		t.Errorf("AlreadyCreated = %v, %v", dup, err)
	}
}

func TestCreateFromTopicBlankTopic(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateFromTopic(context.Background(), Request{Topic: "   "})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(f.llm.Requests()) != 0 {
		t.Error("generator must not be called")
	}
}

func TestCreateFromTopicWriteFailureLeavesNoJournalRow(t *testing.T) {
	f := newFixture(t)
	f.llm.SetContent(tacosAnswer)
	f.store.FailMutate(500, "server error")

	_, err := f.svc.CreateFromTopic(context.Background(), Request{Topic: "tacos"})
	var we *apperr.WriteError
	if !errors.As(err, &we) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	_, total, err := f.journal.ListGuides(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Errorf("journal holds %d rows after failed write", total)
	}
	if len(f.events.Events()) != 0 {
		t.Error("no event expected after failure")
	}
}

func TestCreateFromTopicUpstreamError(t *testing.T) {
	f := newFixture(t)
	f.llm.Fail(500, "overloaded")

	_, err := f.svc.CreateFromTopic(context.Background(), Request{Topic: "tacos"})
	var up *apperr.UpstreamError
	if !errors.As(err, &up) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if len(f.store.Mutations()) != 0 {
		t.Error("store must not be written")
	}
}

func TestCreateFromTopicWithoutGenerator(t *testing.T) {
	svc := New(nil, nil)

	_, err := svc.CreateFromTopic(context.Background(), Request{Topic: "tacos"})
	var ce *apperr.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if ce.Setting != "LLM_API_KEY" {
		t.Errorf("setting = %q", ce.Setting)
	}
}

func TestStoreCallsWithoutStore(t *testing.T) {
	svc := New(nil, nil)

	_, err := svc.Resolve(context.Background(), "place", []string{"franklin-barbecue"})
	var ce *apperr.ConfigError
	if !errors.As(err, &ce) || ce.Setting != "SANITY_WRITE_TOKEN" {
		t.Fatalf("resolve: expected store ConfigError, got %v", err)
	}
	if _, err := svc.Seed(context.Background(), &seed.Catalog{}, true); !errors.As(err, &ce) {
		t.Fatalf("seed: expected ConfigError, got %v", err)
	}
}

func topicFromPrompt(user string) string {
	const marker = `about: "`
	i := strings.Index(user, marker)
	if i < 0 {
		return "unknown"
	}
	rest := user[i+len(marker):]
	return rest[:strings.Index(rest, `"`)]
}

func TestCreateBatchKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.llm.SetResponder(func(req testutil.ChatRequest) string {
		topic := topicFromPrompt(req.Messages[1].Content)
		return fmt.Sprintf(`{"title":%q,"content":"<p>%s</p>"}`, topic, topic)
	})

	reqs := []Request{{Topic: "Alpha"}, {Topic: "Beta"}, {Topic: "Gamma"}}
	results, err := f.svc.CreateBatch(context.Background(), reqs, 2)
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	for i, r := range reqs {
		if results[i] == nil || results[i].Guide.Title != r.Topic {
			t.Errorf("result %d = %+v", i, results[i])
		}
		if results[i].Guide.Slug.Current != strings.ToLower(r.Topic) {
			t.Errorf("slug %d = %q", i, results[i].Guide.Slug.Current)
		}
	}

	rows, total, err := f.svc.History("", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("history total = %d", total)
	}
	for _, row := range rows {
		if row.Source != journal.SourceBatch {
			t.Errorf("source = %q", row.Source)
		}
	}
}

func TestCreateBatchFailure(t *testing.T) {
	f := newFixture(t)
	f.llm.Fail(503, "unavailable")

	_, err := f.svc.CreateBatch(context.Background(), []Request{{Topic: "a"}, {Topic: "b"}}, 1)
	var up *apperr.UpstreamError
	if !errors.As(err, &up) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}

func TestCreateBatchValidatesUpFront(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBatch(context.Background(), []Request{{Topic: "a"}, {Topic: ""}}, 2)
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(f.llm.Requests()) != 0 {
		t.Error("no generation expected for an invalid batch")
	}
}

func TestTopicIdeas(t *testing.T) {
	f := newFixture(t)
	f.llm.SetContent(`{"topics":[{"question":"Best queso?","category":"food"}]}`)

	topics, err := f.svc.TopicIdeas(context.Background(), prompt.TopicFilter{Category: "food"})
	if err != nil {
		t.Fatal(err)
	}
	if len(topics) != 1 || topics[0].Question != "Best queso?" {
		t.Errorf("topics = %+v", topics)
	}
	if len(f.store.Mutations()) != 0 {
		t.Error("topic ideation must not persist anything")
	}
}

func TestResolve(t *testing.T) {
	f := newFixture(t)
	f.store.Put("neighborhood.zilker", models.KindNeighborhood, "zilker")

	res, err := f.svc.Resolve(context.Background(), models.KindNeighborhood, []string{"zilker", "atlantis"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.References) != 1 || len(res.Missing) != 1 || res.Missing[0] != "atlantis" {
		t.Errorf("resolution = %+v", res)
	}
}

func TestSeedRecordsRun(t *testing.T) {
	f := newFixture(t)
	cat, err := seed.DefaultCatalog()
	if err != nil {
		t.Fatal(err)
	}

	rep, err := f.svc.Seed(context.Background(), cat, false)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if rep.Created != 48 {
		t.Errorf("created = %d", rep.Created)
	}

	runs, err := f.svc.SeedRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Created != 48 || runs[0].Error != "" {
		t.Errorf("runs = %+v", runs)
	}
	if ev := f.events.Events(); len(ev) != 1 || ev[0] != sse.EventSeedCompleted {
		t.Errorf("events = %v", ev)
	}
}

func TestSeedFailureIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.store.FailMutate(500, "server error")
	cat, _ := seed.DefaultCatalog()

	if _, err := f.svc.Seed(context.Background(), cat, false); err == nil {
		t.Fatal("expected error")
	}
	runs, _ := f.svc.SeedRuns(10)
	if len(runs) != 1 || runs[0].Error == "" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestHistorySearch(t *testing.T) {
	f := newFixture(t)
	f.llm.SetContent(tacosAnswer)
	if _, err := f.svc.CreateFromTopic(context.Background(), Request{Topic: "tacos"}); err != nil {
		t.Fatal(err)
	}

	rows, total, err := f.svc.History("Tacos", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || rows[0].Slug != "tacos" {
		t.Errorf("rows = %+v", rows)
	}
	rows, _, _ = f.svc.History("brisket", 10, 0)
	if len(rows) != 0 {
		t.Errorf("unexpected hits: %+v", rows)
	}
}
