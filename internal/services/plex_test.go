package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/matching"
	"github.com/desertthunder/mixtape/internal/mixes"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

var (
	_ matching.Searcher = (*PlexClient)(nil)
	_ mixes.Library     = (*PlexClient)(nil)
)

type plexRequest struct {
	Method string
	Path   string
	Query  url.Values
}

// fakePlex serves canned bodies keyed by path and records every request.
type fakePlex struct {
	mu       sync.Mutex
	bodies   map[string]string
	status   map[string]int
	requests []plexRequest
}

func (f *fakePlex) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, plexRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query()})
	f.mu.Unlock()

	if r.Header.Get("X-Plex-Token") != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if code, ok := f.status[r.URL.Path]; ok {
		w.WriteHeader(code)
		return
	}
	body, ok := f.bodies[r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func (f *fakePlex) last() plexRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestPlex(t *testing.T, fake *fakePlex) *PlexClient {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewPlexClient(shared.PlexConfig{ServerURL: srv.URL + "/", Token: "secret", SectionID: "3"}, srv.Client(), nil)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

const trackBody = `{"MediaContainer":{"size":2,"Metadata":[
	{"ratingKey":"101","type":"track","title":"Hurt","grandparentTitle":"Johnny Cash","grandparentRatingKey":"7",
	 "parentTitle":"American IV","parentRatingKey":"70","parentYear":2002,"userRating":9,"viewCount":12,
	 "addedAt":1700000000,"lastViewedAt":1710000000,"Genre":[{"tag":"Country"}]},
	{"ratingKey":"102","type":"track","title":"Hurt (Live)","originalTitle":"Johnny Cash","grandparentTitle":"Various Artists",
	 "grandparentKey":"/library/metadata/8","parentKey":"/library/metadata/80"}
]}}`

func TestNewPlexClient(t *testing.T) {
	tc := []struct {
		name string
		cfg  shared.PlexConfig
		want error
	}{
		{"Missing URL", shared.PlexConfig{Token: "t", SectionID: "1"}, shared.ErrMissingCredentials},
		{"Missing Token", shared.PlexConfig{ServerURL: "http://plex", SectionID: "1"}, shared.ErrMissingCredentials},
		{"Missing Section", shared.PlexConfig{ServerURL: "http://plex", Token: "t"}, shared.ErrMissingConfig},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPlexClient(tt.cfg, nil, nil); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPlexSearch(t *testing.T) {
	fake := &fakePlex{bodies: map[string]string{"/library/sections/3/search": trackBody}}
	client := newTestPlex(t, fake)

	tracks, err := client.Search(context.Background(), "Johnny Cash Hurt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}

	req := fake.last()
	if req.Query.Get("query") != "Johnny Cash Hurt" || req.Query.Get("type") != "10" {
		t.Errorf("unexpected query: %v", req.Query)
	}

	first := tracks[0]
	if first.RatingKey != "101" || first.Artist != "Johnny Cash" || first.ArtistKey != "7" || first.AlbumKey != "70" {
		t.Errorf("unexpected mapping: %+v", first)
	}
	if first.Year != 2002 || first.Rating != 9 || first.ViewCount != 12 {
		t.Errorf("unexpected stats: %+v", first)
	}
	if !first.AddedAt.Equal(time.Unix(1700000000, 0)) || len(first.Genres) != 1 || first.Genres[0] != "Country" {
		t.Errorf("unexpected dates or genres: %+v", first)
	}

	second := tracks[1]
	if second.Artist != "Johnny Cash" || second.AlbumArtist != "Various Artists" {
		t.Errorf("expected track artist from originalTitle, got %+v", second)
	}
	if second.ArtistKey != "8" || second.AlbumKey != "80" {
		t.Errorf("expected keys parsed from key paths, got %q %q", second.ArtistKey, second.AlbumKey)
	}
	if !second.LastViewedAt.IsZero() {
		t.Errorf("expected zero last viewed, got %v", second.LastViewedAt)
	}
}

func TestPlexErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Unauthorized", func(t *testing.T) {
		srv := httptest.NewServer(&fakePlex{})
		defer srv.Close()
		client, _ := NewPlexClient(shared.PlexConfig{ServerURL: srv.URL, Token: "wrong", SectionID: "3"}, srv.Client(), nil)

		if _, err := client.Search(ctx, "x"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Server Error", func(t *testing.T) {
		client := newTestPlex(t, &fakePlex{status: map[string]int{"/library/sections/3/search": http.StatusInternalServerError}})
		if _, err := client.Search(ctx, "x"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Unreachable", func(t *testing.T) {
		srv := httptest.NewServer(&fakePlex{})
		srv.Close()
		client, _ := NewPlexClient(shared.PlexConfig{ServerURL: srv.URL, Token: "secret", SectionID: "3"}, nil, nil)

		if _, err := client.Search(ctx, "x"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		client := newTestPlex(t, &fakePlex{bodies: map[string]string{"/library/sections/3/search": trackBody}})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := client.Search(cctx, "x"); err == nil {
			t.Error("expected cancelled context to fail")
		}
	})
}

func TestPlexListTracks(t *testing.T) {
	fake := &fakePlex{bodies: map[string]string{"/library/sections/3/all": trackBody}}
	client := newTestPlex(t, fake)
	since := time.Unix(1700000000, 0)

	_, err := client.ListTracks(context.Background(), models.TrackFilter{
		PlayState:   models.PlayPlayed,
		PlayedSince: since,
		Genre:       "Rock",
		YearFrom:    1980,
		YearTo:      1989,
		ArtistKey:   "7",
		Random:      true,
		Limit:       40,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := fake.last().Query
	want := map[string]string{
		"type":                  "10",
		"viewCount>>":           "0",
		"lastViewedAt>>":        "1700000000",
		"genre":                 "Rock",
		"year>>":                "1979",
		"year<<":                "1990",
		"artist.id":             "7",
		"sort":                  "random",
		"X-Plex-Container-Size": "40",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("query %q = %q, want %q", k, got, v)
		}
	}
}

func TestPlexRelatedArtists(t *testing.T) {
	fake := &fakePlex{bodies: map[string]string{"/library/metadata/7/related": `{"MediaContainer":{"Hub":[
		{"type":"artist","Metadata":[{"ratingKey":"9","type":"artist","title":"Willie Nelson"},{"ratingKey":"10","type":"artist","title":"Waylon Jennings"}]},
		{"type":"album","Metadata":[{"ratingKey":"90","type":"album","title":"Stardust"}]},
		{"type":"artist","Metadata":[{"ratingKey":"9","type":"artist","title":"Willie Nelson"}]}
	]}}`}}
	client := newTestPlex(t, fake)

	artists, err := client.RelatedArtists(context.Background(), "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(artists) != 2 || artists[0].Name != "Willie Nelson" || artists[1].RatingKey != "10" {
		t.Errorf("unexpected artists: %+v", artists)
	}
}

func TestPlexResolveArtist(t *testing.T) {
	fake := &fakePlex{bodies: map[string]string{"/library/sections/3/all": `{"MediaContainer":{"Metadata":[
		{"ratingKey":"1","type":"artist","title":"Johnny Cash & June Carter"},
		{"ratingKey":"2","type":"artist","title":"johnny cash"}
	]}}`}}
	client := newTestPlex(t, fake)

	artist, err := client.ResolveArtist(context.Background(), "Johnny Cash")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if artist.RatingKey != "2" {
		t.Errorf("expected exact title match, got %+v", artist)
	}
	if fake.last().Query.Get("type") != "8" {
		t.Errorf("expected artist type filter, got %v", fake.last().Query)
	}

	t.Run("Not Found", func(t *testing.T) {
		client := newTestPlex(t, &fakePlex{bodies: map[string]string{"/library/sections/3/all": `{"MediaContainer":{"size":0}}`}})
		if _, err := client.ResolveArtist(context.Background(), "Nobody"); !errors.Is(err, shared.ErrArtistNotFound) {
			t.Errorf("expected ErrArtistNotFound, got %v", err)
		}
	})
}

func TestPlexHistory(t *testing.T) {
	fake := &fakePlex{bodies: map[string]string{"/status/sessions/history/all": `{"MediaContainer":{"Metadata":[
		{"ratingKey":"101","type":"track","title":"Hurt","grandparentTitle":"Johnny Cash","grandparentKey":"/library/metadata/7","parentKey":"/library/metadata/70","viewedAt":1710000000},
		{"ratingKey":"500","type":"episode","title":"Pilot","viewedAt":1710000100}
	]}}`}}
	client := newTestPlex(t, fake)

	entries, err := client.History(context.Background(), models.HistoryQuery{Since: time.Unix(1709000000, 0), Limit: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected non-track entries dropped, got %+v", entries)
	}
	e := entries[0]
	if e.Artist != "Johnny Cash" || e.ArtistKey != "7" || e.AlbumKey != "70" || !e.ViewedAt.Equal(time.Unix(1710000000, 0)) {
		t.Errorf("unexpected entry: %+v", e)
	}

	q := fake.last().Query
	if q.Get("viewedAt>") != "1709000000" || q.Get("librarySectionID") != "3" || q.Get("sort") != "viewedAt:desc" {
		t.Errorf("unexpected query: %v", q)
	}
}

func TestPlexTimeCapsule(t *testing.T) {
	fake := &fakePlex{bodies: map[string]string{"/library/sections/3/all": `{"MediaContainer":{"Metadata":[
		{"ratingKey":"1","type":"track","grandparentTitle":"Artist A"},
		{"ratingKey":"2","type":"track","grandparentTitle":"Artist A"},
		{"ratingKey":"3","type":"track","grandparentTitle":"artist  a"},
		{"ratingKey":"4","type":"track","grandparentTitle":"Artist B"},
		{"ratingKey":"5","type":"track","grandparentTitle":"Artist C"}
	]}}`}}
	client := newTestPlex(t, fake)
	cutoff := time.Unix(1680000000, 0)

	tracks, err := client.TimeCapsule(context.Background(), models.TimeCapsuleQuery{PlayedBefore: cutoff, MaxPerArtist: 2, Limit: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var keys []string
	for _, tr := range tracks {
		keys = append(keys, tr.RatingKey)
	}
	if strings.Join(keys, ",") != "1,2,4" {
		t.Errorf("expected [1 2 4], got %v", keys)
	}
	if q := fake.last().Query; q.Get("lastViewedAt<<") != "1680000000" || q.Get("X-Plex-Container-Size") != "12" {
		t.Errorf("unexpected query: %v", q)
	}
}

func TestPlexAlbums(t *testing.T) {
	fake := &fakePlex{bodies: map[string]string{
		"/library/sections/3/all": `{"MediaContainer":{"Metadata":[{"ratingKey":"70","type":"album","title":"American IV","parentTitle":"Johnny Cash","addedAt":1700000000}]}}`,
		"/library/metadata/70/children": trackBody,
	}}
	client := newTestPlex(t, fake)
	ctx := context.Background()

	albums, err := client.RecentlyAddedAlbums(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(albums) != 1 || albums[0].Artist != "Johnny Cash" || albums[0].AddedAt.IsZero() {
		t.Errorf("unexpected albums: %+v", albums)
	}
	if q := fake.last().Query; q.Get("type") != "9" || q.Get("sort") != "addedAt:desc" {
		t.Errorf("unexpected query: %v", q)
	}

	tracks, err := client.AlbumTracks(ctx, "70")
	if err != nil || len(tracks) != 2 {
		t.Errorf("expected 2 album tracks, got %d, %v", len(tracks), err)
	}
}

func TestPlexCreatePlaylist(t *testing.T) {
	fake := &fakePlex{bodies: map[string]string{
		"/":          `{"MediaContainer":{"machineIdentifier":"abc123"}}`,
		"/playlists": `{"MediaContainer":{"size":1,"Metadata":[{"ratingKey":"900","type":"playlist","title":"Weekly Mix"}]}}`,
	}}
	client := newTestPlex(t, fake)
	ctx := context.Background()

	if err := client.CreatePlaylist(ctx, "Weekly Mix", []string{"1", "2", "3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := client.CreatePlaylist(ctx, "Daily Mix", []string{"4"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var identityCalls, creates int
	for _, r := range fake.requests {
		switch {
		case r.Path == "/":
			identityCalls++
		case r.Path == "/playlists" && r.Method == http.MethodPost:
			creates++
		}
	}
	if identityCalls != 1 {
		t.Errorf("expected machine identifier to be fetched once, got %d", identityCalls)
	}
	if creates != 2 {
		t.Errorf("expected 2 playlist creations, got %d", creates)
	}

	q := fake.requests[1].Query
	if q.Get("title") != "Weekly Mix" || q.Get("type") != "audio" || q.Get("smart") != "0" {
		t.Errorf("unexpected query: %v", q)
	}
	if want := "server://abc123/com.plexapp.plugins.library/library/metadata/1,2,3"; q.Get("uri") != want {
		t.Errorf("uri = %q, want %q", q.Get("uri"), want)
	}

	t.Run("Empty", func(t *testing.T) {
		if err := client.CreatePlaylist(ctx, "Empty", nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
