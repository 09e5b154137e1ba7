package crawler

import (
	"sync"

	"github.com/nao1215/sitecapture/internal/model"
)

// Store holds the shared crawl state: the visited and queued sets, the page
// records and the URL→filename map. A Store is safe for concurrent use.
//
// Design decision: the visited check and the visited mark happen under one
// lock in TryVisit. Pages of the same batch run in parallel, and a separate
// check followed by a mark would let two of them dispatch the same URL.
type Store struct {
	mu sync.Mutex

	visited map[string]bool
	queued  map[string]bool

	pages []*model.Page

	// filenames maps page URLs (and aliases) to local file names.
	filenames map[string]string

	// owners maps local file names back to the URL that claimed them.
	owners map[string]string

	// mappings keeps filenames in insertion order for the report.
	mappings []model.URLMapping
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		visited:   make(map[string]bool),
		queued:    make(map[string]bool),
		pages:     make([]*model.Page, 0),
		filenames: make(map[string]string),
		owners:    make(map[string]string),
		mappings:  make([]model.URLMapping, 0),
	}
}

// TryVisit marks pageURL visited and reports true, unless it was already
// visited or limit URLs have been visited. A limit of zero or less disables
// the cap.
func (s *Store) TryVisit(pageURL string, limit int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.visited[pageURL] {
		return false
	}
	if limit > 0 && len(s.visited) >= limit {
		return false
	}
	s.visited[pageURL] = true
	return true
}

// IsVisited reports whether pageURL has been dispatched.
func (s *Store) IsVisited(pageURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visited[pageURL]
}

// VisitedCount returns the number of dispatched URLs.
func (s *Store) VisitedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visited)
}

// MarkQueued records pageURL as queued. It reports false when the URL was
// already queued or visited, in which case it must not be enqueued again.
func (s *Store) MarkQueued(pageURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queued[pageURL] || s.visited[pageURL] {
		return false
	}
	s.queued[pageURL] = true
	return true
}

// AddPage stores a captured page and maps its URL to its file name.
//
// If another URL already claimed the same file name, the page is not stored:
// its URL is mapped to the existing file as an alias and AddPage reports
// false. The first page to claim a name keeps it, so a page file is never
// overwritten by a different page.
func (s *Store) AddPage(page *model.Page) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.filenames[page.URL]; ok {
		return false
	}

	s.filenames[page.URL] = page.Filename
	s.mappings = append(s.mappings, model.URLMapping{
		OriginalURL:   page.URL,
		LocalFilename: page.Filename,
	})

	if _, taken := s.owners[page.Filename]; taken {
		return false
	}
	s.owners[page.Filename] = page.URL
	s.pages = append(s.pages, page)
	return true
}

// Owner returns the URL that claimed filename.
func (s *Store) Owner(filename string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.owners[filename]
	return owner, ok
}

// Lookup returns the local file name for a normalized page URL.
func (s *Store) Lookup(pageURL string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.filenames[pageURL]
	return name, ok
}

// Pages returns the stored pages in the order they were added.
func (s *Store) Pages() []*model.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Page(nil), s.pages...)
}

// Mappings returns the URL→filename map in insertion order.
func (s *Store) Mappings() []model.URLMapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.URLMapping(nil), s.mappings...)
}
