package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/mixtape/internal/matching"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	tu "github.com/desertthunder/mixtape/internal/testing"
)

type fakeStore struct {
	byExternal map[string]*models.PersistedPlaylist
	created    []*models.PersistedPlaylist
	updated    []*models.PersistedPlaylist
	lookupErr  error
	createErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{byExternal: map[string]*models.PersistedPlaylist{}}
}

func (s *fakeStore) Create(p *models.PersistedPlaylist) error {
	if s.createErr != nil {
		return s.createErr
	}
	p.SetID("local-1")
	p.SetSequence(len(s.created) + 1)
	s.created = append(s.created, p)
	s.byExternal[p.Playlist().Source+"/"+p.ExternalID()] = p
	return nil
}

func (s *fakeStore) Update(p *models.PersistedPlaylist) error {
	s.updated = append(s.updated, p)
	return nil
}

func (s *fakeStore) GetByExternalID(source, externalID string) (*models.PersistedPlaylist, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	p, ok := s.byExternal[source+"/"+externalID]
	if !ok {
		return nil, shared.ErrPlaylistNotFound
	}
	return p, nil
}

func sourcePlaylist() *models.ExternalPlaylist {
	return &models.ExternalPlaylist{
		ID:   "pl-1",
		Name: "Road Trip",
		Tracks: []models.ExternalTrack{
			{Title: "Dreams", Artist: "Fleetwood Mac"},
			{Title: "Completely Different", Artist: "Nobody"},
		},
	}
}

func newTestEngine(store PlaylistStore, lib PlaylistCreator) *PlaylistEngine {
	searcher := &tu.MockSearcher{Default: []models.CandidateTrack{
		{RatingKey: "100", Title: "Dreams", Artist: "Fleetwood Mac", Album: "Rumours"},
	}}
	return NewPlaylistEngine(matching.NewMatcher(searcher, nil), store, lib, nil)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	settings := matching.DefaultSettings()

	t.Run("Match Only", func(t *testing.T) {
		var updates []ProgressUpdate
		src := &tu.MockPlaylistSource{Playlist: sourcePlaylist()}

		result, err := newTestEngine(nil, nil).Import(ctx, src, "pl-1", ImportOpts{Settings: settings}, func(u ProgressUpdate) {
			updates = append(updates, u)
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Matched.MatchedCount != 1 || result.Matched.TotalCount != 2 {
			t.Errorf("expected 1/2 matched, got %d/%d", result.Matched.MatchedCount, result.Matched.TotalCount)
		}
		if got := result.Matched.RatingKeys(); len(got) != 1 || got[0] != "100" {
			t.Errorf("unexpected keys: %v", got)
		}
		if result.Source.Source != "mock" {
			t.Errorf("expected source name filled from source, got %q", result.Source.Source)
		}
		if result.MatchPercentage() != 50 {
			t.Errorf("expected 50%%, got %v", result.MatchPercentage())
		}
		if result.Persisted != nil || result.PlexTitle != "" {
			t.Errorf("expected no save or create, got %+v", result)
		}

		var searches int
		for _, u := range updates {
			if u.Phase == SearchTracks && u.Step > 0 {
				searches++
			}
		}
		if searches != 2 {
			t.Errorf("expected one search update per track, got %d", searches)
		}
		if updates[0].Phase != FetchSource {
			t.Errorf("expected first update to be fetch_source, got %s", updates[0].Phase)
		}
	})

	t.Run("Save And Create", func(t *testing.T) {
		store := newFakeStore()
		lib := &tu.MockLibrary{}
		src := &tu.MockPlaylistSource{Playlist: sourcePlaylist()}

		opts := ImportOpts{Settings: settings, Save: true, CreatePlaylist: true}
		result, err := newTestEngine(store, lib).Import(ctx, src, "pl-1", opts, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(store.created) != 1 || result.Persisted == nil {
			t.Fatalf("expected one saved playlist, got %d", len(store.created))
		}
		if len(lib.Created) != 1 || lib.Created[0].Title != "Road Trip" || len(lib.Created[0].Keys) != 1 {
			t.Errorf("unexpected created playlists: %+v", lib.Created)
		}
		if result.Persisted.PlexTitle() != "Road Trip" || len(store.updated) != 1 {
			t.Errorf("expected plex title recorded, got %q with %d updates", result.Persisted.PlexTitle(), len(store.updated))
		}
	})

	t.Run("Reimport Updates", func(t *testing.T) {
		store := newFakeStore()
		src := &tu.MockPlaylistSource{Playlist: sourcePlaylist()}
		engine := newTestEngine(store, nil)

		if _, err := engine.Import(ctx, src, "pl-1", ImportOpts{Settings: settings, Save: true}, nil); err != nil {
			t.Fatalf("first import failed: %v", err)
		}
		var saved ProgressUpdate
		_, err := engine.Import(ctx, src, "pl-1", ImportOpts{Settings: settings, Save: true}, func(u ProgressUpdate) {
			if u.Phase == SavePlaylist {
				saved = u
			}
		})
		if err != nil {
			t.Fatalf("second import failed: %v", err)
		}

		if len(store.created) != 1 || len(store.updated) != 1 {
			t.Errorf("expected 1 create and 1 update, got %d and %d", len(store.created), len(store.updated))
		}
		if saved.Message != "Updated matching run #1" {
			t.Errorf("unexpected save message: %q", saved.Message)
		}
	})

	t.Run("Custom Title", func(t *testing.T) {
		lib := &tu.MockLibrary{}
		src := &tu.MockPlaylistSource{Playlist: sourcePlaylist()}

		opts := ImportOpts{Settings: settings, CreatePlaylist: true, Title: "From Spotify"}
		result, err := newTestEngine(nil, lib).Import(ctx, src, "pl-1", opts, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.PlexTitle != "From Spotify" || lib.Created[0].Title != "From Spotify" {
			t.Errorf("expected custom title, got %q", result.PlexTitle)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		tc := []struct {
			name    string
			src     *tu.MockPlaylistSource
			store   PlaylistStore
			lib     PlaylistCreator
			opts    ImportOpts
			wantErr error
		}{
			{
				name:    "Source Failure",
				src:     &tu.MockPlaylistSource{Err: shared.ErrPlaylistNotFound},
				wantErr: shared.ErrPlaylistNotFound,
			},
			{
				name:    "Save Without Store",
				src:     &tu.MockPlaylistSource{Playlist: sourcePlaylist()},
				opts:    ImportOpts{Save: true},
				wantErr: shared.ErrServiceUnavailable,
			},
			{
				name:    "Create Without Library",
				src:     &tu.MockPlaylistSource{Playlist: sourcePlaylist()},
				opts:    ImportOpts{CreatePlaylist: true},
				wantErr: shared.ErrServiceUnavailable,
			},
			{
				name:    "Nothing Matched",
				src:     &tu.MockPlaylistSource{Playlist: &models.ExternalPlaylist{ID: "x", Name: "Empty", Tracks: []models.ExternalTrack{{Title: "Zzz", Artist: "Qqq"}}}},
				lib:     &tu.MockLibrary{},
				opts:    ImportOpts{CreatePlaylist: true},
				wantErr: shared.ErrNotEnoughTracks,
			},
			{
				name:    "Create Failure",
				src:     &tu.MockPlaylistSource{Playlist: sourcePlaylist()},
				lib:     &tu.MockLibrary{CreateErr: shared.ErrAPIRequest},
				opts:    ImportOpts{CreatePlaylist: true},
				wantErr: shared.ErrAPIRequest,
			},
			{
				name:    "Lookup Failure",
				src:     &tu.MockPlaylistSource{Playlist: sourcePlaylist()},
				store:   &fakeStore{lookupErr: errors.New("database is locked")},
				opts:    ImportOpts{Save: true},
				wantErr: nil,
			},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				tt.opts.Settings = settings
				_, err := newTestEngine(tt.store, tt.lib).Import(ctx, tt.src, "pl-1", tt.opts, nil)
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
			})
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		src := &tu.MockPlaylistSource{Playlist: sourcePlaylist()}
		_, err := newTestEngine(nil, nil).Import(cctx, src, "pl-1", ImportOpts{Settings: settings}, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("Nil Source", func(t *testing.T) {
		_, err := newTestEngine(nil, nil).Import(ctx, nil, "pl-1", ImportOpts{}, nil)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestPhaseString(t *testing.T) {
	tc := []struct {
		phase Phase
		want  string
	}{
		{FetchSource, "fetch_source"},
		{SearchTracks, "search_tracks"},
		{SavePlaylist, "save_playlist"},
		{CreatePlaylist, "create_playlist"},
		{BuildMix, "build_mix"},
		{Phase(99), ""},
	}
	for _, tt := range tc {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}
