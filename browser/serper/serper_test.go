package serper

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nevindra/trawl/browser"
)

func TestSearch(t *testing.T) {
	var got request
	var key, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		key = r.Header.Get("X-API-KEY")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"organic":[
			{"title":"One","link":"https://a.com/1","snippet":"first"},
			{"title":"Two","link":"https://a.com/2","snippet":"second"},
			{"title":"Three","link":"https://a.com/3","snippet":"third"}
		]}`))
	}))
	defer srv.Close()

	s := New("secret", WithBaseURL(srv.URL))
	results, err := s.Search(context.Background(), browser.SearchQuery{Query: "q", TopN: 2, Country: "de", Language: "de"})
	if err != nil {
		t.Fatal(err)
	}
	if method != http.MethodPost || key != "secret" {
		t.Errorf("method=%s key=%q", method, key)
	}
	if got.Q != "q" || got.Num != 2 || got.GL != "de" || got.HL != "de" {
		t.Errorf("request = %+v", got)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v, want 2 (trimmed to topN)", results)
	}
	if results[1] != (browser.SearchResult{Title: "Two", URL: "https://a.com/2", Description: "second"}) {
		t.Errorf("results[1] = %+v", results[1])
	}
}

func TestSearchMissingKey(t *testing.T) {
	_, err := New("").Search(context.Background(), browser.SearchQuery{Query: "x"})
	if !errors.Is(err, browser.ErrMissingAPIKey) {
		t.Fatalf("err = %v", err)
	}
}

func TestSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New("k", WithBaseURL(srv.URL)).Search(context.Background(), browser.SearchQuery{Query: "x"})
	if err == nil || !strings.Contains(err.Error(), "serper API 403") {
		t.Fatalf("err = %v", err)
	}
}
