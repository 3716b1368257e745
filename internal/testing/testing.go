// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
)

// MockSearcher is a test double for matching.Searcher. Results and errors are keyed by query.
type MockSearcher struct {
	mu      sync.Mutex
	Results map[string][]models.CandidateTrack
	Errors  map[string]error
	Default []models.CandidateTrack
	Queries []string
}

func (m *MockSearcher) Search(ctx context.Context, query string) ([]models.CandidateTrack, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	m.mu.Unlock()

	if err, ok := m.Errors[query]; ok {
		return nil, err
	}
	if results, ok := m.Results[query]; ok {
		return results, nil
	}
	return m.Default, nil
}

// MockPlaylistSource is a test double for services.PlaylistSource
type MockPlaylistSource struct {
	Playlist *models.ExternalPlaylist
	Err      error
}

func (m *MockPlaylistSource) FetchPlaylist(ctx context.Context, id string) (*models.ExternalPlaylist, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Playlist, nil
}

func (m *MockPlaylistSource) Name() string { return "mock" }

// CreatedPlaylist records a call to [MockLibrary.CreatePlaylist].
type CreatedPlaylist struct {
	Title string
	Keys  []string
}

// MockLibrary is a test double for mixes.Library. Lookups keyed by rating key fall back to empty results.
type MockLibrary struct {
	Tracks          []models.CandidateTrack
	ListErr         error
	Similar         map[string][]models.CandidateTrack
	SimilarErr      map[string]error
	Related         map[string][]models.ArtistRecord
	Artists         map[string]models.ArtistRecord
	TopTracks       map[string][]models.CandidateTrack
	TopTracksErr    map[string]error
	Albums          []models.AlbumRecord
	AlbumTrackLists map[string][]models.CandidateTrack
	HistoryEntries  []models.HistoryEntry
	HistoryErr      error
	CapsuleTracks   []models.CandidateTrack
	CapsuleErr      error
	CreateErr       error

	Filters        []models.TrackFilter
	HistoryQueries []models.HistoryQuery
	CapsuleQueries []models.TimeCapsuleQuery
	SimilarCalls   []string
	TopTrackCalls  []string
	Created        []CreatedPlaylist
}

func (m *MockLibrary) ListTracks(ctx context.Context, filter models.TrackFilter) ([]models.CandidateTrack, error) {
	m.Filters = append(m.Filters, filter)
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Tracks, nil
}

func (m *MockLibrary) SimilarTracks(ctx context.Context, ratingKey string) ([]models.CandidateTrack, error) {
	m.SimilarCalls = append(m.SimilarCalls, ratingKey)
	if err := m.SimilarErr[ratingKey]; err != nil {
		return nil, err
	}
	return m.Similar[ratingKey], nil
}

func (m *MockLibrary) RelatedArtists(ctx context.Context, artistKey string) ([]models.ArtistRecord, error) {
	return m.Related[artistKey], nil
}

func (m *MockLibrary) ResolveArtist(ctx context.Context, name string) (*models.ArtistRecord, error) {
	a, ok := m.Artists[name]
	if !ok {
		return nil, errors.New("artist not found")
	}
	return &a, nil
}

func (m *MockLibrary) ArtistTopTracks(ctx context.Context, artistKey string, limit int) ([]models.CandidateTrack, error) {
	m.TopTrackCalls = append(m.TopTrackCalls, artistKey)
	if err := m.TopTracksErr[artistKey]; err != nil {
		return nil, err
	}
	tracks := m.TopTracks[artistKey]
	if limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return tracks, nil
}

func (m *MockLibrary) RecentlyAddedAlbums(ctx context.Context, limit int) ([]models.AlbumRecord, error) {
	if limit > 0 && len(m.Albums) > limit {
		return m.Albums[:limit], nil
	}
	return m.Albums, nil
}

func (m *MockLibrary) AlbumTracks(ctx context.Context, albumKey string) ([]models.CandidateTrack, error) {
	return m.AlbumTrackLists[albumKey], nil
}

func (m *MockLibrary) History(ctx context.Context, q models.HistoryQuery) ([]models.HistoryEntry, error) {
	m.HistoryQueries = append(m.HistoryQueries, q)
	if m.HistoryErr != nil {
		return nil, m.HistoryErr
	}
	var out []models.HistoryEntry
	for _, e := range m.HistoryEntries {
		if !q.Since.IsZero() && e.ViewedAt.Before(q.Since) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (m *MockLibrary) TimeCapsule(ctx context.Context, q models.TimeCapsuleQuery) ([]models.CandidateTrack, error) {
	m.CapsuleQueries = append(m.CapsuleQueries, q)
	if m.CapsuleErr != nil {
		return nil, m.CapsuleErr
	}
	return m.CapsuleTracks, nil
}

func (m *MockLibrary) CreatePlaylist(ctx context.Context, title string, ratingKeys []string) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.Created = append(m.Created, CreatedPlaylist{Title: title, Keys: append([]string(nil), ratingKeys...)})
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
