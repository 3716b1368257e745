// Spotify Web API implementation of [PlaylistSource]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

const (
	SpotifySourceName = "spotify"

	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
	spotifyPageSize = 100
)

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	Album   SpotifyAlbum    `json:"album"`
	IsLocal bool            `json:"is_local"`
	Type    string          `json:"type"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for removed or unavailable items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPlaylistTracks is one page of a playlist's items.
type SpotifyPlaylistTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

// SpotifyPlaylist represents a Spotify playlist with the first page of its tracks.
type SpotifyPlaylist struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Tracks      SpotifyPlaylistTracks `json:"tracks"`
}

// SpotifySource reads public playlists using the client-credentials grant.
type SpotifySource struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// SpotifyOption customises a [SpotifySource].
type SpotifyOption func(*spotifyOptions)

type spotifyOptions struct {
	baseURL  string
	tokenURL string
	client   *http.Client
}

// WithSpotifyEndpoints overrides the API and token URLs.
func WithSpotifyEndpoints(baseURL, tokenURL string) SpotifyOption {
	return func(o *spotifyOptions) {
		o.baseURL = baseURL
		o.tokenURL = tokenURL
	}
}

// WithSpotifyHTTPClient sets the client used to fetch tokens.
func WithSpotifyHTTPClient(c *http.Client) SpotifyOption {
	return func(o *spotifyOptions) { o.client = c }
}

// NewSpotifySource creates a [SpotifySource]. Tokens are fetched lazily on the first request.
func NewSpotifySource(ctx context.Context, creds shared.SpotifyConfig, logger *log.Logger, opts ...SpotifyOption) (*SpotifySource, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret", shared.ErrMissingCredentials)
	}

	o := spotifyOptions{baseURL: spotifyBaseURL, tokenURL: spotifyTokenURL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.client)
	}

	cfg := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     o.tokenURL,
	}

	return &SpotifySource{
		baseURL:    strings.TrimRight(o.baseURL, "/"),
		httpClient: cfg.Client(ctx),
		logger:     shared.LoggerOrDiscard(logger),
	}, nil
}

func (s *SpotifySource) Name() string {
	return SpotifySourceName
}

// doRequest performs an authenticated GET against the Spotify API. endpoint may be a path or an absolute "next" URL.
func (s *SpotifySource) doRequest(ctx context.Context, endpoint string, result any) error {
	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = s.baseURL + endpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: spotify request: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: spotify status %d", shared.ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: spotify %s", shared.ErrPlaylistNotFound, endpoint)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: spotify status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// FetchPlaylist retrieves a playlist and follows the track pages until all items are read.
// Local files, episodes and removed items are skipped.
func (s *SpotifySource) FetchPlaylist(ctx context.Context, id string) (*models.ExternalPlaylist, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: spotify playlist id", shared.ErrMissingArgument)
	}

	var sp SpotifyPlaylist
	endpoint := fmt.Sprintf("/playlists/%s?limit=%d", url.PathEscape(id), spotifyPageSize)
	if err := s.doRequest(ctx, endpoint, &sp); err != nil {
		return nil, err
	}

	playlist := &models.ExternalPlaylist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		Source:      SpotifySourceName,
	}

	page := sp.Tracks
	for {
		for _, item := range page.Items {
			if t, ok := externalTrack(item); ok {
				playlist.Tracks = append(playlist.Tracks, t)
			}
		}
		if page.Next == nil || *page.Next == "" {
			break
		}

		next := *page.Next
		page = SpotifyPlaylistTracks{}
		if err := s.doRequest(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("fetch playlist page: %w", err)
		}
	}

	s.logger.Debug("fetched spotify playlist", "id", id, "name", playlist.Name, "tracks", len(playlist.Tracks), "total", sp.Tracks.Total)
	return playlist, nil
}

func externalTrack(item SpotifyPlaylistTrack) (models.ExternalTrack, bool) {
	t := item.Track
	if t == nil || t.IsLocal || t.Name == "" || (t.Type != "" && t.Type != "track") {
		return models.ExternalTrack{}, false
	}

	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return models.ExternalTrack{
		Title:  t.Name,
		Artist: strings.Join(names, ", "),
		Album:  t.Album.Name,
	}, true
}
