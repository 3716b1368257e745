package repositories

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func samplePlaylist() models.MatchedPlaylist {
	hurt := models.MatchedTrack{ExternalTrack: models.ExternalTrack{Title: "Hurt", Artist: "Johnny Cash", Album: "American IV"}}
	hurt.Accept(models.CandidateTrack{RatingKey: "101", Title: "Hurt", Artist: "Johnny Cash"}, 100)

	jolene := models.MatchedTrack{ExternalTrack: models.ExternalTrack{Title: "Jolene", Artist: "Dolly Parton"}}

	return models.MatchedPlaylist{
		Name:        "Road Trip",
		Description: "long drive",
		Source:      "spotify",
		Tracks:      []models.MatchedTrack{hurt, jolene},
	}
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "mix_runs")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "nonexistent"); err == nil {
		t.Error("expected error for table without sequence")
	}

	if _, err := db.Exec("DELETE FROM matched_playlists_sequence"); err != nil {
		t.Fatal(err)
	}
	if _, err := NextSequence(db, "matched_playlists"); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected uninitialized sequence error, got %v", err)
	}
}

func TestMatchedPlaylistRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMatchedPlaylistRepository(db)
		p := models.NewPersistedPlaylist(samplePlaylist(), "abc")

		if err := repo.Create(p); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		if p.ID() == "" {
			t.Error("playlist ID should be set after creation")
		}
		if p.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", p.Sequence())
		}
		if p.Playlist().ID != p.ID() {
			t.Error("playlist ID should be mirrored onto the wrapped playlist")
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMatchedPlaylistRepository(db)
		p := models.NewPersistedPlaylist(samplePlaylist(), "abc")
		if err := repo.Create(p); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		retrieved, err := repo.Get(p.ID())
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}

		pl := retrieved.Playlist()
		if pl.Name != "Road Trip" || pl.Source != "spotify" || retrieved.ExternalID() != "abc" {
			t.Errorf("unexpected playlist: %+v", pl)
		}
		if pl.MatchedCount != 1 || pl.TotalCount != 2 {
			t.Errorf("expected 1/2 matched, got %d/%d", pl.MatchedCount, pl.TotalCount)
		}
		if len(pl.Tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(pl.Tracks))
		}

		hurt, jolene := pl.Tracks[0], pl.Tracks[1]
		if !hurt.Matched || hurt.PlexRatingKey != "101" || hurt.Score != 100 || hurt.Album != "American IV" {
			t.Errorf("unexpected matched track: %+v", hurt)
		}
		if jolene.Matched || jolene.Score != 0 || jolene.PlexRatingKey != "" {
			t.Errorf("unexpected unmatched track: %+v", jolene)
		}
		if err := retrieved.Validate(); err != nil {
			t.Errorf("retrieved playlist should validate: %v", err)
		}
	})

	t.Run("GetByExternalID", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMatchedPlaylistRepository(db)
		first := models.NewPersistedPlaylist(samplePlaylist(), "abc")
		second := models.NewPersistedPlaylist(samplePlaylist(), "abc")
		for _, p := range []*models.PersistedPlaylist{first, second} {
			if err := repo.Create(p); err != nil {
				t.Fatalf("failed to create playlist: %v", err)
			}
		}

		latest, err := repo.GetByExternalID("spotify", "abc")
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if latest.ID() != second.ID() {
			t.Errorf("expected latest import %s, got %s", second.ID(), latest.ID())
		}
	})

	t.Run("FindByIDPrefix", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMatchedPlaylistRepository(db)
		p := models.NewPersistedPlaylist(samplePlaylist(), "abc")
		if err := repo.Create(p); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		found, err := repo.FindByIDPrefix(p.ID()[:8])
		if err != nil {
			t.Fatalf("failed to find playlist: %v", err)
		}
		if found.ID() != p.ID() || len(found.Playlist().Tracks) != 2 {
			t.Errorf("unexpected playlist: %s", found.ID())
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMatchedPlaylistRepository(db)
		p := models.NewPersistedPlaylist(samplePlaylist(), "abc")
		if err := repo.Create(p); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		pl := p.Playlist()
		pl.Tracks[1].Accept(models.CandidateTrack{RatingKey: "202", Title: "Jolene", Artist: "Dolly Parton"}, 97.5)
		pl.Tracks = append(pl.Tracks, models.MatchedTrack{ExternalTrack: models.ExternalTrack{Title: "9 to 5", Artist: "Dolly Parton"}})
		p.SetPlaylist(pl)
		p.SetPlexTitle("Road Trip")

		if err := repo.Update(p); err != nil {
			t.Fatalf("failed to update playlist: %v", err)
		}

		retrieved, err := repo.Get(p.ID())
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if retrieved.PlexTitle() != "Road Trip" {
			t.Errorf("expected plex title to be stored, got %q", retrieved.PlexTitle())
		}
		got := retrieved.Playlist()
		if got.MatchedCount != 2 || got.TotalCount != 3 || len(got.Tracks) != 3 {
			t.Errorf("expected 2/3 matched after update, got %d/%d", got.MatchedCount, got.TotalCount)
		}
		if got.Tracks[1].Score != 97.5 {
			t.Errorf("expected replaced track score, got %v", got.Tracks[1].Score)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMatchedPlaylistRepository(db)
		p := models.NewPersistedPlaylist(samplePlaylist(), "abc")
		if err := repo.Create(p); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		if err := repo.Delete(p.ID()); err != nil {
			t.Fatalf("failed to delete playlist: %v", err)
		}
		if _, err := repo.Get(p.ID()); err == nil {
			t.Error("expected error when getting deleted playlist")
		}

		total, _, err := repo.CountTracks(p.ID())
		if err != nil {
			t.Fatalf("failed to count tracks: %v", err)
		}
		if total != 0 {
			t.Errorf("expected track rows removed, have %d", total)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMatchedPlaylistRepository(db)
		spotify := models.NewPersistedPlaylist(samplePlaylist(), "abc")
		fileList := samplePlaylist()
		fileList.Source = "file"
		file := models.NewPersistedPlaylist(fileList, "road-trip.yaml")
		for _, p := range []*models.PersistedPlaylist{spotify, file} {
			if err := repo.Create(p); err != nil {
				t.Fatalf("failed to create playlist: %v", err)
			}
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if len(all) != 2 || all[0].ID() != file.ID() {
			t.Errorf("expected 2 playlists newest first, got %d", len(all))
		}

		bySource, err := repo.List(map[string]any{"source": "spotify"})
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if len(bySource) != 1 || bySource[0].ID() != spotify.ID() {
			t.Errorf("expected only the spotify playlist, got %d", len(bySource))
		}
		if bySource[0].Playlist().TotalCount != 2 {
			t.Errorf("expected stored counts on listed playlist, got %d", bySource[0].Playlist().TotalCount)
		}

		limited, _ := repo.List(map[string]any{"limit": 1})
		if len(limited) != 1 {
			t.Errorf("expected limit to apply, got %d", len(limited))
		}
	})

	t.Run("CountTracks", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMatchedPlaylistRepository(db)
		p := models.NewPersistedPlaylist(samplePlaylist(), "abc")
		if err := repo.Create(p); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		total, matched, err := repo.CountTracks(p.ID())
		if err != nil {
			t.Fatalf("failed to count tracks: %v", err)
		}
		if total != 2 || matched != 1 {
			t.Errorf("expected 2 total and 1 matched, got %d and %d", total, matched)
		}
	})
}

func TestMixRunRepository(t *testing.T) {
	t.Run("Create And Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMixRunRepository(db)
		run := models.NewMixRun("weekly", "Weekly Mix", true, 42, "")
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if retrieved.Kind() != "weekly" || !retrieved.Created() || retrieved.TrackCount() != 42 {
			t.Errorf("unexpected run: kind=%s created=%v tracks=%d", retrieved.Kind(), retrieved.Created(), retrieved.TrackCount())
		}
		if retrieved.RanAt().IsZero() {
			t.Error("expected ran_at to be stored")
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMixRunRepository(db)
		run := models.NewMixRun("daily", "Daily Mix", false, 0, "pending")
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		updated := models.RestoreMixRun(run.ID(), run.Sequence(), "daily", "Daily Mix", true, 35, "", run.RanAt(), run.CreatedAt(), run.UpdatedAt(), nil)
		if err := repo.Update(updated); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		retrieved, _ := repo.Get(run.ID())
		if !retrieved.Created() || retrieved.TrackCount() != 35 || retrieved.Reason() != "" {
			t.Errorf("expected updated outcome, got created=%v tracks=%d", retrieved.Created(), retrieved.TrackCount())
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMixRunRepository(db)
		runs := []*models.MixRun{
			models.NewMixRun("weekly", "Weekly Mix", true, 20, ""),
			models.NewMixRun("daily", "Daily Mix", false, 3, "not enough tracks"),
			models.NewMixRun("weekly", "Weekly Mix", false, 2, "not enough tracks"),
		}
		for _, run := range runs {
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}

		weekly, err := repo.List(map[string]any{"kind": "weekly"})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(weekly) != 2 || weekly[0].ID() != runs[2].ID() {
			t.Errorf("expected 2 weekly runs newest first, got %d", len(weekly))
		}

		created, _ := repo.List(map[string]any{"created": true})
		if len(created) != 1 {
			t.Errorf("expected 1 created run, got %d", len(created))
		}

		recent, _ := repo.List(map[string]any{"limit": 2})
		if len(recent) != 2 {
			t.Errorf("expected 2 recent runs, got %d", len(recent))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMixRunRepository(db)
		run := models.NewMixRun("custom", "Custom Mix", true, 50, "")
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		if runs, _ := repo.List(map[string]any{}); len(runs) != 0 {
			t.Errorf("expected deleted run to be hidden, got %d", len(runs))
		}
	})
}
