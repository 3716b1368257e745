package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	errMissingName  = errors.New("name is required")
	errMissingKind  = errors.New("kind is required")
	errMissingTitle = errors.New("title is required")
	errCountsDrift  = errors.New("matched and total counts do not agree with tracks")
)

// PersistedPlaylist is a stored matching run.
type PersistedPlaylist struct {
	id         string
	sequence   int
	externalID string
	plexTitle  string
	playlist   MatchedPlaylist
	createdAt  time.Time
	updatedAt  time.Time
	deletedAt  *time.Time
}

// NewPersistedPlaylist wraps a matched playlist for storage. externalID is the identifier at the source service.
func NewPersistedPlaylist(p MatchedPlaylist, externalID string) *PersistedPlaylist {
	now := time.Now().UTC()
	p.Recount()
	return &PersistedPlaylist{
		externalID: externalID,
		playlist:   p,
		createdAt:  now,
		updatedAt:  now,
	}
}

// RestorePersistedPlaylist rebuilds a playlist from stored columns.
func RestorePersistedPlaylist(id string, sequence int, externalID, plexTitle string, p MatchedPlaylist, createdAt, updatedAt time.Time, deletedAt *time.Time) *PersistedPlaylist {
	p.ID = id
	return &PersistedPlaylist{
		id:         id,
		sequence:   sequence,
		externalID: externalID,
		plexTitle:  plexTitle,
		playlist:   p,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
		deletedAt:  deletedAt,
	}
}

func (p *PersistedPlaylist) ID() string { return p.id }
func (p *PersistedPlaylist) Sequence() int { return p.sequence }
func (p *PersistedPlaylist) ExternalID() string { return p.externalID }
func (p *PersistedPlaylist) PlexTitle() string { return p.plexTitle }
func (p *PersistedPlaylist) CreatedAt() time.Time { return p.createdAt }
func (p *PersistedPlaylist) UpdatedAt() time.Time { return p.updatedAt }
func (p *PersistedPlaylist) DeletedAt() *time.Time { return p.deletedAt }
func (p *PersistedPlaylist) Playlist() MatchedPlaylist { return p.playlist }

// SetID assigns the identifier and mirrors it onto the wrapped playlist.
func (p *PersistedPlaylist) SetID(id string) {
	p.id = id
	p.playlist.ID = id
}

// SetSequence records the sequence number assigned on insert.
func (p *PersistedPlaylist) SetSequence(n int) { p.sequence = n }

// SetPlexTitle records the title of the Plex playlist created from this run.
func (p *PersistedPlaylist) SetPlexTitle(title string) {
	p.plexTitle = title
	p.Touch()
}

// SetPlaylist replaces the stored tracks and counts.
func (p *PersistedPlaylist) SetPlaylist(pl MatchedPlaylist) {
	pl.ID = p.id
	pl.Recount()
	p.playlist = pl
	p.Touch()
}

// Touch bumps the update timestamp.
func (p *PersistedPlaylist) Touch() {
	p.updatedAt = time.Now().UTC()
}

// MarkDeleted soft-deletes the playlist.
func (p *PersistedPlaylist) MarkDeleted() {
	now := time.Now().UTC()
	p.deletedAt = &now
}

// Validate checks the playlist has a name and consistent counts.
func (p *PersistedPlaylist) Validate() error {
	if p.playlist.Name == "" {
		return errMissingName
	}

	matched := 0
	for _, t := range p.playlist.Tracks {
		if t.Matched {
			if t.PlexRatingKey == "" {
				return fmt.Errorf("track %q is matched without a rating key", t.Title)
			}
			matched++
		}
	}
	if matched != p.playlist.MatchedCount || len(p.playlist.Tracks) != p.playlist.TotalCount {
		return errCountsDrift
	}
	return nil
}

// MixRun records one mix generation attempt.
type MixRun struct {
	id         string
	sequence   int
	kind       string
	title      string
	created    bool
	trackCount int
	reason     string
	ranAt      time.Time
	createdAt  time.Time
	updatedAt  time.Time
	deletedAt  *time.Time
}

// NewMixRun creates a run record for the mix kind (weekly, daily, custom, ...).
func NewMixRun(kind, title string, created bool, trackCount int, reason string) *MixRun {
	now := time.Now().UTC()
	return &MixRun{
		kind:       kind,
		title:      title,
		created:    created,
		trackCount: trackCount,
		reason:     reason,
		ranAt:      now,
		createdAt:  now,
		updatedAt:  now,
	}
}

// RestoreMixRun rebuilds a run from stored columns.
func RestoreMixRun(id string, sequence int, kind, title string, created bool, trackCount int, reason string, ranAt, createdAt, updatedAt time.Time, deletedAt *time.Time) *MixRun {
	return &MixRun{
		id:         id,
		sequence:   sequence,
		kind:       kind,
		title:      title,
		created:    created,
		trackCount: trackCount,
		reason:     reason,
		ranAt:      ranAt,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
		deletedAt:  deletedAt,
	}
}

func (m *MixRun) ID() string { return m.id }
func (m *MixRun) SetID(id string) { m.id = id }
func (m *MixRun) SetSequence(n int) { m.sequence = n }
func (m *MixRun) Sequence() int { return m.sequence }
func (m *MixRun) Kind() string { return m.kind }
func (m *MixRun) Title() string { return m.title }
func (m *MixRun) Created() bool { return m.created }
func (m *MixRun) TrackCount() int { return m.trackCount }
func (m *MixRun) Reason() string { return m.reason }
func (m *MixRun) RanAt() time.Time { return m.ranAt }
func (m *MixRun) CreatedAt() time.Time { return m.createdAt }
func (m *MixRun) UpdatedAt() time.Time { return m.updatedAt }
func (m *MixRun) DeletedAt() *time.Time { return m.deletedAt }

// Validate checks that kind and title are set.
func (m *MixRun) Validate() error {
	if m.kind == "" {
		return errMissingKind
	}
	if m.title == "" {
		return errMissingTitle
	}
	return nil
}
