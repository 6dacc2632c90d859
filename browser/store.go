package browser

import (
	"errors"
	"sync"
)

// ErrDocumentNotFound is returned when a cursor resolves to no document.
var ErrDocumentNotFound = errors.New("document not found")

// Link is an outgoing reference of a Document. Its position in
// Document.Links is the id the model passes to open.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// FindState records the match a find produced, so a repeated find with the
// same pattern continues after it.
type FindState struct {
	Pattern     string `json:"pattern"`
	SourceTitle string `json:"source_title"`
	// Line is the matched line, or len(Lines) when nothing matched.
	Line int `json:"line"`
}

// Document is a line-addressable rendering of a page or result list.
// Documents are never edited once stored; navigation stores a new copy.
type Document struct {
	Title string     `json:"title"`
	URL   string     `json:"url,omitempty"`
	Lines []string   `json:"lines"`
	Links []Link     `json:"links,omitempty"`
	Start int        `json:"start"`
	Width int        `json:"width"`
	Find  *FindState `json:"find,omitempty"`
}

// Store is the per-session document history plus the current cursor.
type Store struct {
	mu     sync.Mutex
	docs   []Document
	cursor int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Reset drops every document and sets the cursor to 0.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
	s.cursor = 0
}

// Add appends doc and makes it current. It returns the new cursor.
func (s *Store) Add(doc Document) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	s.cursor = len(s.docs) - 1
	return s.cursor
}

// Current resolves cursor to a document. A cursor outside the store falls
// back to the store's own cursor, which always names the newest document.
func (s *Store) Current(cursor int) (Document, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cursor >= 0 && cursor < len(s.docs) {
		return s.docs[cursor], cursor, nil
	}
	if s.cursor >= 0 && s.cursor < len(s.docs) {
		return s.docs[s.cursor], s.cursor, nil
	}
	return Document{}, -1, ErrDocumentNotFound
}

// Get returns the document at index i.
func (s *Store) Get(i int) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.docs) {
		return Document{}, false
	}
	return s.docs[i], true
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Cursor returns the index of the current document.
func (s *Store) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}
