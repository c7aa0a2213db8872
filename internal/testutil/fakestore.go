package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// FakeStoreToken is the bearer token FakeStore accepts.
const FakeStoreToken = "test-token"

var slugQueryRe = regexp.MustCompile(`^\*\[_type == "(\w+)" && slug\.current in (\[.*\])\]\{_id, slug\}$`)

// Doc is a stored document.
type Doc map[string]any

// Slug returns the document's slug.current, if any.
func (d Doc) Slug() string {
	s, _ := d["slug"].(map[string]any)
	cur, _ := s["current"].(string)
	return cur
}

// FakeStore emulates the document store's query and mutate endpoints with an
// in-memory dataset. Create fails the whole transaction on an id conflict;
// createIfNotExists leaves existing documents untouched.
type FakeStore struct {
	Server *httptest.Server

	mu            sync.Mutex
	docs          map[string]Doc
	order         []string
	queries       []string
	mutates       [][]map[string]Doc
	nextID        int
	nextTx        int
	failQuery     *failure
	failMutate    *failure
	omitResultIDs bool
}

type failure struct {
	status int
	body   string
}

// NewFakeStore starts a fake store that is closed with the test.
func NewFakeStore(t *testing.T) *FakeStore {
	t.Helper()
	f := &FakeStore{docs: make(map[string]Doc)}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+FakeStoreToken {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/{version}/data/query/{dataset}", f.handleQuery)
	r.Post("/{version}/data/mutate/{dataset}", f.handleMutate)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the value to configure as the store API host.
func (f *FakeStore) URL() string {
	return f.Server.URL
}

// Put stores a document of kind with the given id and slug.
func (f *FakeStore) Put(id, kind, slug string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(Doc{"_id": id, "_type": kind, "slug": map[string]any{"_type": "slug", "current": slug}})
}

func (f *FakeStore) put(d Doc) {
	id := d["_id"].(string)
	if _, ok := f.docs[id]; !ok {
		f.order = append(f.order, id)
	}
	f.docs[id] = d
}

// Doc returns the stored document with id.
func (f *FakeStore) Doc(id string) (Doc, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	return d, ok
}

// Count returns the number of stored documents.
func (f *FakeStore) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

// QueryCount returns how many query calls were received.
func (f *FakeStore) QueryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// Queries returns the GROQ strings received.
func (f *FakeStore) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// Mutations returns the mutation lists received, one entry per call. Each
// mutation maps its operation name to the raw document.
func (f *FakeStore) Mutations() [][]map[string]Doc {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]map[string]Doc(nil), f.mutates...)
}

// FailQuery makes query calls return status with body.
func (f *FakeStore) FailQuery(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failQuery = &failure{status: status, body: body}
}

// FailMutate makes mutate calls return status with body.
func (f *FakeStore) FailMutate(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failMutate = &failure{status: status, body: body}
}

// OmitResultIDs makes mutate responses carry only the transaction id.
func (f *FakeStore) OmitResultIDs() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.omitResultIDs = true
}

func (f *FakeStore) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("query")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)

	if f.failQuery != nil {
		w.WriteHeader(f.failQuery.status)
		_, _ = w.Write([]byte(f.failQuery.body))
		return
	}

	m := slugQueryRe.FindStringSubmatch(q)
	if m == nil {
		http.Error(w, `{"error":"unsupported query"}`, http.StatusBadRequest)
		return
	}
	var slugs []string
	if err := json.Unmarshal([]byte(m[2]), &slugs); err != nil {
		http.Error(w, `{"error":"bad slug list"}`, http.StatusBadRequest)
		return
	}
	want := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		want[s] = true
	}

	result := []map[string]any{}
	for _, id := range f.order {
		d := f.docs[id]
		if d["_type"] == m[1] && want[d.Slug()] {
			result = append(result, map[string]any{"_id": id, "slug": d["slug"]})
		}
	}
	writeFakeJSON(w, http.StatusOK, map[string]any{"ms": 1, "query": q, "result": result})
}

func (f *FakeStore) handleMutate(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req struct {
		Mutations []map[string]Doc `json:"mutations"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutates = append(f.mutates, req.Mutations)

	if f.failMutate != nil {
		w.WriteHeader(f.failMutate.status)
		_, _ = w.Write([]byte(f.failMutate.body))
		return
	}

	// Validate the whole transaction before applying anything.
	type op struct {
		kind string
		doc  Doc
	}
	ops := make([]op, 0, len(req.Mutations))
	pending := map[string]bool{}
	for _, m := range req.Mutations {
		for kind, doc := range m {
			id, _ := doc["_id"].(string)
			if id == "" {
				if kind != "create" {
					http.Error(w, `{"error":"_id required"}`, http.StatusBadRequest)
					return
				}
				f.nextID++
				id = fmt.Sprintf("doc-%d", f.nextID)
				doc["_id"] = id
			}
			if _, exists := f.docs[id]; (exists || pending[id]) && kind == "create" {
				http.Error(w, `{"error":"document already exists"}`, http.StatusConflict)
				return
			}
			pending[id] = true
			ops = append(ops, op{kind: kind, doc: doc})
		}
	}

	f.nextTx++
	results := []map[string]string{}
	for _, o := range ops {
		id := o.doc["_id"].(string)
		operation := "create"
		if _, exists := f.docs[id]; exists {
			operation = "none"
		} else {
			f.put(o.doc)
		}
		if !f.omitResultIDs {
			results = append(results, map[string]string{"id": id, "operation": operation})
		}
	}
	writeFakeJSON(w, http.StatusOK, map[string]any{
		"transactionId": fmt.Sprintf("tx-%d", f.nextTx),
		"results":       results,
	})
}

func writeFakeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
