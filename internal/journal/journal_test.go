package journal

import (
	"errors"
	"testing"
	"time"

	"github.com/starford/guidesmith/internal/apperr"
	"github.com/starford/guidesmith/internal/testutil"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(testutil.TempDBPath(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM guides`).Scan(&count); err != nil {
		t.Fatalf("guides table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM seed_runs`).Scan(&count); err != nil {
		t.Fatalf("seed_runs table missing: %v", err)
	}
}

func TestRecordAndGetGuide(t *testing.T) {
	db := testDB(t)
	row := GuideRow{
		ID:            "abc",
		TransactionID: "tx-1",
		Title:         "Best Tacos",
		Slug:          "tacos",
		Topic:         "Where are the best tacos?",
		TopicChecksum: "sum1",
		Source:        SourceCLI,
		Places:        []string{"place.veracruz-all-natural"},
	}
	if err := db.RecordGuide(row); err != nil {
		t.Fatalf("RecordGuide: %v", err)
	}

	got, err := db.GetGuide("abc")
	if err != nil {
		t.Fatalf("GetGuide: %v", err)
	}
	if got.Title != "Best Tacos" || got.Slug != "tacos" || got.Source != SourceCLI {
		t.Errorf("got %+v", got)
	}
	if len(got.Places) != 1 || got.Places[0] != "place.veracruz-all-natural" {
		t.Errorf("places = %v", got.Places)
	}
	if got.Neighborhoods == nil {
		t.Error("neighborhoods should be an empty list")
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestGetGuideNotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetGuide("missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordGuideRequiresID(t *testing.T) {
	db := testDB(t)
	if err := db.RecordGuide(GuideRow{Title: "x"}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListGuidesNewestFirst(t *testing.T) {
	db := testDB(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		err := db.RecordGuide(GuideRow{ID: id, Title: id, Slug: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatal(err)
		}
	}

	rows, total, err := db.ListGuides(2, 0)
	if err != nil {
		t.Fatalf("ListGuides: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d", total)
	}
	if len(rows) != 2 || rows[0].ID != "c" || rows[1].ID != "b" {
		t.Errorf("rows = %+v", rows)
	}

	rows, _, err = db.ListGuides(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].ID != "a" {
		t.Errorf("page 2 = %+v", rows)
	}
}

func TestHasTopic(t *testing.T) {
	db := testDB(t)
	ok, err := db.HasTopic("sum1")
	if err != nil || ok {
		t.Fatalf("HasTopic before insert = %v, %v", ok, err)
	}
	if err := db.RecordGuide(GuideRow{ID: "g1", Title: "t", Slug: "t", TopicChecksum: "sum1"}); err != nil {
		t.Fatal(err)
	}
	ok, err = db.HasTopic("sum1")
	if err != nil || !ok {
		t.Fatalf("HasTopic after insert = %v, %v", ok, err)
	}
	if ok, _ := db.HasTopic(""); ok {
		t.Error("empty checksum must never match")
	}
}

func TestSearch(t *testing.T) {
	db := testDB(t)
	_ = db.RecordGuide(GuideRow{ID: "g1", Title: "Best Tacos in East Austin", Slug: "tacos", Topic: "tacos"})
	_ = db.RecordGuide(GuideRow{ID: "g2", Title: "Comedy Nights", Slug: "comedy", Topic: "comedy clubs"})

	rows, err := db.Search("Tacos", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "g1" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestSeedRuns(t *testing.T) {
	db := testDB(t)
	start := time.Now().UTC()
	id, err := db.RecordSeedRun(SeedRunRow{Neighborhoods: 15, Places: 33, Created: 48, StartedAt: start, FinishedAt: start})
	if err != nil {
		t.Fatalf("RecordSeedRun: %v", err)
	}
	if id == 0 {
		t.Error("expected a row id")
	}
	if _, err := db.RecordSeedRun(SeedRunRow{DryRun: true, StartedAt: start, FinishedAt: start}); err != nil {
		t.Fatal(err)
	}

	runs, err := db.ListSeedRuns(10)
	if err != nil {
		t.Fatalf("ListSeedRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %+v", runs)
	}
	if !runs[0].DryRun || runs[1].Created != 48 {
		t.Errorf("runs = %+v", runs)
	}
}
