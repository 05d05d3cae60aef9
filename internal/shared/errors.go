package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Library connectivity errors
	ErrAuthFailed  = fmt.Errorf("authentication failed")
	ErrConnection  = fmt.Errorf("could not connect to media server")
	ErrTimeout     = fmt.Errorf("operation timed out")
	ErrAPIRequest  = fmt.Errorf("API request failed")
	ErrUnavailable = fmt.Errorf("service unavailable")

	// Source errors
	ErrFetch            = fmt.Errorf("failed to fetch source playlist")
	ErrUnknownSource    = fmt.Errorf("unsupported playlist source")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")

	// Reconciliation errors
	ErrLibraryEmpty = fmt.Errorf("no music section found in library")
	ErrNoSeedTrack  = fmt.Errorf("music library has no tracks to seed a playlist")
	ErrInvalidMode  = fmt.Errorf("invalid import mode")
	ErrAddItems     = fmt.Errorf("failed to add tracks to playlist")

	// Job errors
	ErrJobNotFound = fmt.Errorf("import job not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
