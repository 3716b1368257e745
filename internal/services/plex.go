// Plex Media Server client
//
// Endpoints are documented at https://plexapi.dev and https://github.com/Arcanemagus/plex-api/wiki
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

const (
	plexTypeArtist = 8
	plexTypeAlbum  = 9
	plexTypeTrack  = 10

	defaultPlexTimeout = 15 * time.Second
	defaultSearchLimit = 25
)

type plexTag struct {
	Tag string `json:"tag"`
}

// PlexMetadata is the subset of a Plex metadata item used for tracks, albums, artists and history entries.
type PlexMetadata struct {
	RatingKey            string    `json:"ratingKey"`
	Key                  string    `json:"key"`
	Type                 string    `json:"type"`
	Title                string    `json:"title"`
	OriginalTitle        string    `json:"originalTitle"`
	ParentTitle          string    `json:"parentTitle"`
	GrandparentTitle     string    `json:"grandparentTitle"`
	ParentRatingKey      string    `json:"parentRatingKey"`
	GrandparentRatingKey string    `json:"grandparentRatingKey"`
	ParentKey            string    `json:"parentKey"`
	GrandparentKey       string    `json:"grandparentKey"`
	UserRating           float64   `json:"userRating"`
	Year                 int       `json:"year"`
	ParentYear           int       `json:"parentYear"`
	AddedAt              int64     `json:"addedAt"`
	LastViewedAt         int64     `json:"lastViewedAt"`
	ViewedAt             int64     `json:"viewedAt"`
	ViewCount            int       `json:"viewCount"`
	Genre                []plexTag `json:"Genre"`
}

// PlexHub groups related items, such as similar artists.
type PlexHub struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Metadata []PlexMetadata `json:"Metadata"`
}

// PlexMediaContainer is the envelope every Plex JSON response is wrapped in.
type PlexMediaContainer struct {
	Size              int            `json:"size"`
	MachineIdentifier string         `json:"machineIdentifier"`
	Metadata          []PlexMetadata `json:"Metadata"`
	Hub               []PlexHub      `json:"Hub"`
}

type plexResponse struct {
	MediaContainer PlexMediaContainer `json:"MediaContainer"`
}

// PlexClient talks to a single music library section of a Plex Media Server.
//
// It implements matching.Searcher and mixes.Library. Requests are throttled by a token-bucket limiter.
type PlexClient struct {
	baseURL    string
	token      string
	sectionID  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	mu        sync.Mutex
	machineID string
}

// NewPlexClient creates a [PlexClient] from the [plex] config section. client may be nil.
func NewPlexClient(cfg shared.PlexConfig, client *http.Client, logger *log.Logger) (*PlexClient, error) {
	if cfg.ServerURL == "" || cfg.Token == "" {
		return nil, fmt.Errorf("%w: plex server_url and token", shared.ErrMissingCredentials)
	}
	if cfg.SectionID == "" {
		return nil, fmt.Errorf("%w: plex section_id", shared.ErrMissingConfig)
	}

	if client == nil {
		timeout := cfg.Timeout.Duration
		if timeout <= 0 {
			timeout = defaultPlexTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &PlexClient{
		baseURL:    strings.TrimRight(cfg.ServerURL, "/"),
		token:      cfg.Token,
		sectionID:  cfg.SectionID,
		httpClient: client,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     shared.LoggerOrDiscard(logger),
	}, nil
}

// doRequest performs a rate-limited request and decodes the MediaContainer of the response.
func (p *PlexClient) doRequest(ctx context.Context, method, endpoint string, query url.Values) (*PlexMediaContainer, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	apiURL := p.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Plex-Token", p.token)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: plex request: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: plex status %d", shared.ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: plex %s", shared.ErrTrackNotFound, endpoint)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: plex %s %s: status %d", shared.ErrAPIRequest, method, endpoint, resp.StatusCode)
	}

	var body plexResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &body.MediaContainer, nil
}

func (p *PlexClient) get(ctx context.Context, endpoint string, query url.Values) (*PlexMediaContainer, error) {
	return p.doRequest(ctx, http.MethodGet, endpoint, query)
}

func (p *PlexClient) sectionPath(suffix string) string {
	return "/library/sections/" + url.PathEscape(p.sectionID) + suffix
}

func withLimit(q url.Values, limit int) url.Values {
	if limit > 0 {
		q.Set("X-Plex-Container-Start", "0")
		q.Set("X-Plex-Container-Size", strconv.Itoa(limit))
	}
	return q
}

// Search runs a free-text track search in the library section.
func (p *PlexClient) Search(ctx context.Context, query string) ([]models.CandidateTrack, error) {
	q := url.Values{}
	q.Set("type", strconv.Itoa(plexTypeTrack))
	q.Set("query", query)
	withLimit(q, defaultSearchLimit)

	mc, err := p.get(ctx, p.sectionPath("/search"), q)
	if err != nil {
		return nil, err
	}
	return candidates(mc.Metadata), nil
}

// ListTracks lists section tracks matching filter. The server applies every filter it supports.
func (p *PlexClient) ListTracks(ctx context.Context, filter models.TrackFilter) ([]models.CandidateTrack, error) {
	mc, err := p.get(ctx, p.sectionPath("/all"), trackQuery(filter))
	if err != nil {
		return nil, err
	}
	return candidates(mc.Metadata), nil
}

func trackQuery(f models.TrackFilter) url.Values {
	q := url.Values{}
	q.Set("type", strconv.Itoa(plexTypeTrack))

	switch f.PlayState {
	case models.PlayPlayed:
		q.Set("viewCount>>", "0")
	case models.PlayUnplayed:
		q.Set("viewCount", "0")
	}
	if !f.PlayedSince.IsZero() {
		q.Set("lastViewedAt>>", unix(f.PlayedSince))
	}
	if !f.PlayedBefore.IsZero() {
		q.Set("lastViewedAt<<", unix(f.PlayedBefore))
	}
	if f.Genre != "" {
		q.Set("genre", f.Genre)
	}
	if f.MinRating > 0 {
		q.Set("userRating>>", strconv.FormatFloat(f.MinRating-0.01, 'f', 2, 64))
	}
	if f.YearFrom > 0 {
		q.Set("year>>", strconv.Itoa(f.YearFrom-1))
	}
	if f.YearTo > 0 {
		q.Set("year<<", strconv.Itoa(f.YearTo+1))
	}
	if !f.AddedSince.IsZero() {
		q.Set("addedAt>>", unix(f.AddedSince))
	}
	if f.ArtistKey != "" {
		q.Set("artist.id", f.ArtistKey)
	}
	if f.Random {
		q.Set("sort", "random")
	}
	return withLimit(q, f.Limit)
}

// SimilarTracks returns the sonically nearest tracks to ratingKey.
func (p *PlexClient) SimilarTracks(ctx context.Context, ratingKey string) ([]models.CandidateTrack, error) {
	mc, err := p.get(ctx, "/library/metadata/"+url.PathEscape(ratingKey)+"/nearest", nil)
	if err != nil {
		return nil, err
	}
	return candidates(mc.Metadata), nil
}

// RelatedArtists returns the artists in the related hubs of artistKey.
func (p *PlexClient) RelatedArtists(ctx context.Context, artistKey string) ([]models.ArtistRecord, error) {
	mc, err := p.get(ctx, "/library/metadata/"+url.PathEscape(artistKey)+"/related", nil)
	if err != nil {
		return nil, err
	}

	var out []models.ArtistRecord
	seen := make(map[string]bool)
	for _, hub := range mc.Hub {
		for _, m := range hub.Metadata {
			if m.Type != "artist" || m.RatingKey == "" || seen[m.RatingKey] {
				continue
			}
			seen[m.RatingKey] = true
			out = append(out, models.ArtistRecord{RatingKey: m.RatingKey, Name: m.Title})
		}
	}
	return out, nil
}

// ResolveArtist finds an artist by name, preferring an exact case-insensitive title match.
func (p *PlexClient) ResolveArtist(ctx context.Context, name string) (*models.ArtistRecord, error) {
	q := url.Values{}
	q.Set("type", strconv.Itoa(plexTypeArtist))
	q.Set("title", name)

	mc, err := p.get(ctx, p.sectionPath("/all"), q)
	if err != nil {
		return nil, err
	}
	if len(mc.Metadata) == 0 {
		return nil, fmt.Errorf("%w: %q", shared.ErrArtistNotFound, name)
	}

	match := mc.Metadata[0]
	for _, m := range mc.Metadata {
		if strings.EqualFold(strings.TrimSpace(m.Title), strings.TrimSpace(name)) {
			match = m
			break
		}
	}
	return &models.ArtistRecord{RatingKey: match.RatingKey, Name: match.Title}, nil
}

// ArtistTopTracks returns an artist's tracks ordered by play count, then rating.
func (p *PlexClient) ArtistTopTracks(ctx context.Context, artistKey string, limit int) ([]models.CandidateTrack, error) {
	q := url.Values{}
	q.Set("type", strconv.Itoa(plexTypeTrack))
	q.Set("artist.id", artistKey)
	q.Set("sort", "viewCount:desc,userRating:desc")
	withLimit(q, limit)

	mc, err := p.get(ctx, p.sectionPath("/all"), q)
	if err != nil {
		return nil, err
	}
	return candidates(mc.Metadata), nil
}

// RecentlyAddedAlbums returns the newest albums in the section.
func (p *PlexClient) RecentlyAddedAlbums(ctx context.Context, limit int) ([]models.AlbumRecord, error) {
	q := url.Values{}
	q.Set("type", strconv.Itoa(plexTypeAlbum))
	q.Set("sort", "addedAt:desc")
	withLimit(q, limit)

	mc, err := p.get(ctx, p.sectionPath("/all"), q)
	if err != nil {
		return nil, err
	}

	out := make([]models.AlbumRecord, 0, len(mc.Metadata))
	for _, m := range mc.Metadata {
		out = append(out, models.AlbumRecord{
			RatingKey: m.RatingKey,
			Title:     m.Title,
			Artist:    m.ParentTitle,
			AddedAt:   fromUnix(m.AddedAt),
		})
	}
	return out, nil
}

// AlbumTracks returns the tracks of an album in disc order.
func (p *PlexClient) AlbumTracks(ctx context.Context, albumKey string) ([]models.CandidateTrack, error) {
	mc, err := p.get(ctx, "/library/metadata/"+url.PathEscape(albumKey)+"/children", nil)
	if err != nil {
		return nil, err
	}
	return candidates(mc.Metadata), nil
}

// History returns track plays from the section's listening history, newest first.
func (p *PlexClient) History(ctx context.Context, hq models.HistoryQuery) ([]models.HistoryEntry, error) {
	q := url.Values{}
	q.Set("sort", "viewedAt:desc")
	q.Set("librarySectionID", p.sectionID)
	if !hq.Since.IsZero() {
		q.Set("viewedAt>", unix(hq.Since))
	}
	withLimit(q, hq.Limit)

	mc, err := p.get(ctx, "/status/sessions/history/all", q)
	if err != nil {
		return nil, err
	}

	out := make([]models.HistoryEntry, 0, len(mc.Metadata))
	for _, m := range mc.Metadata {
		if m.Type != "" && m.Type != "track" {
			continue
		}
		out = append(out, models.HistoryEntry{
			RatingKey: m.RatingKey,
			Title:     m.Title,
			Artist:    trackArtist(m),
			ArtistKey: keyOf(m.GrandparentRatingKey, m.GrandparentKey),
			AlbumKey:  keyOf(m.ParentRatingKey, m.ParentKey),
			ViewedAt:  fromUnix(m.ViewedAt),
		})
	}
	return out, nil
}

// TimeCapsule returns the most played tracks last heard before q.PlayedBefore, at most q.MaxPerArtist per artist.
func (p *PlexClient) TimeCapsule(ctx context.Context, tq models.TimeCapsuleQuery) ([]models.CandidateTrack, error) {
	q := url.Values{}
	q.Set("type", strconv.Itoa(plexTypeTrack))
	q.Set("viewCount>>", "0")
	q.Set("lastViewedAt<<", unix(tq.PlayedBefore))
	q.Set("sort", "viewCount:desc")
	if tq.Limit > 0 {
		withLimit(q, tq.Limit*4)
	}

	mc, err := p.get(ctx, p.sectionPath("/all"), q)
	if err != nil {
		return nil, err
	}

	perArtist := make(map[string]int)
	var out []models.CandidateTrack
	for _, t := range candidates(mc.Metadata) {
		if tq.Limit > 0 && len(out) >= tq.Limit {
			break
		}
		id := strings.ToLower(strings.Join(strings.Fields(t.Artist), " "))
		if tq.MaxPerArtist > 0 && perArtist[id] >= tq.MaxPerArtist {
			continue
		}
		perArtist[id]++
		out = append(out, t)
	}
	return out, nil
}

// MachineIdentifier returns the server's machine identifier, fetching it once.
func (p *PlexClient) MachineIdentifier(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.machineID != "" {
		return p.machineID, nil
	}

	mc, err := p.get(ctx, "/", nil)
	if err != nil {
		return "", err
	}
	if mc.MachineIdentifier == "" {
		return "", fmt.Errorf("%w: server did not report a machine identifier", shared.ErrAPIRequest)
	}
	p.machineID = mc.MachineIdentifier
	return p.machineID, nil
}

// CreatePlaylist creates a regular audio playlist holding ratingKeys in order.
func (p *PlexClient) CreatePlaylist(ctx context.Context, title string, ratingKeys []string) error {
	if len(ratingKeys) == 0 {
		return fmt.Errorf("%w: playlist %q has no tracks", shared.ErrInvalidInput, title)
	}
	machineID, err := p.MachineIdentifier(ctx)
	if err != nil {
		return err
	}

	q := url.Values{}
	q.Set("type", "audio")
	q.Set("title", title)
	q.Set("smart", "0")
	q.Set("uri", fmt.Sprintf("server://%s/com.plexapp.plugins.library/library/metadata/%s", machineID, strings.Join(ratingKeys, ",")))

	if _, err := p.doRequest(ctx, http.MethodPost, "/playlists", q); err != nil {
		return fmt.Errorf("create playlist %q: %w", title, err)
	}
	p.logger.Info("created plex playlist", "title", title, "tracks", len(ratingKeys))
	return nil
}

func candidates(items []PlexMetadata) []models.CandidateTrack {
	out := make([]models.CandidateTrack, 0, len(items))
	for _, m := range items {
		if m.Type != "" && m.Type != "track" {
			continue
		}
		out = append(out, candidate(m))
	}
	return out
}

func candidate(m PlexMetadata) models.CandidateTrack {
	year := m.ParentYear
	if year == 0 {
		year = m.Year
	}
	genres := make([]string, 0, len(m.Genre))
	for _, g := range m.Genre {
		genres = append(genres, g.Tag)
	}

	return models.CandidateTrack{
		RatingKey:    m.RatingKey,
		Title:        m.Title,
		Artist:       trackArtist(m),
		ArtistKey:    keyOf(m.GrandparentRatingKey, m.GrandparentKey),
		Album:        m.ParentTitle,
		AlbumKey:     keyOf(m.ParentRatingKey, m.ParentKey),
		AlbumArtist:  m.GrandparentTitle,
		Rating:       m.UserRating,
		Year:         year,
		Genres:       genres,
		AddedAt:      fromUnix(m.AddedAt),
		LastViewedAt: fromUnix(m.LastViewedAt),
		ViewCount:    m.ViewCount,
	}
}

// trackArtist prefers the per-track artist, which compilations set in originalTitle.
func trackArtist(m PlexMetadata) string {
	if m.OriginalTitle != "" {
		return m.OriginalTitle
	}
	return m.GrandparentTitle
}

// keyOf returns ratingKey, or the last segment of a "/library/metadata/<id>" key.
func keyOf(ratingKey, key string) string {
	if ratingKey != "" {
		return ratingKey
	}
	if key == "" {
		return ""
	}
	return path.Base(strings.TrimSuffix(key, "/children"))
}

func unix(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

func fromUnix(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
