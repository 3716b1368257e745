package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidSettings    = fmt.Errorf("invalid matching settings")
	ErrLocked             = fmt.Errorf("resource is locked by another process")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrAuthFailed         = fmt.Errorf("authentication failed")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrArtistNotFound     = fmt.Errorf("artist not found")

	// Mix errors
	ErrInvalidMixOptions = fmt.Errorf("invalid mix options")
	ErrNotEnoughTracks   = fmt.Errorf("not enough tracks")
	ErrUnknownMix        = fmt.Errorf("unknown mix")
	ErrMixRunNotFound    = fmt.Errorf("mix run not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
