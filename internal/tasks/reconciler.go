package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plexlist/internal/models"
	"github.com/desertthunder/plexlist/internal/services"
	"github.com/desertthunder/plexlist/internal/shared"
)

const (
	// FallbackPlaylistTitle replaces a missing or unknown source title in generated names.
	FallbackPlaylistTitle = "Imported Playlist"
	// FallbackPlatform names the source when the caller did not.
	FallbackPlatform = "Unknown Platform"

	nameTimestampLayout = "20060102-150405"
)

// SourceHint describes where the imported songs came from; it only feeds generated playlist names.
type SourceHint struct {
	Platform string
	Title    string
}

// PlaylistTarget is the destination playlist, empty and ready for the bulk add.
type PlaylistTarget struct {
	Playlist models.Playlist
	Created  bool // false when an existing playlist was reused
	Cleared  int  // entries removed from a reused playlist
}

// Name is the playlist's title as reported to the user.
func (t *PlaylistTarget) Name() string {
	return t.Playlist.Title
}

// AddItemsError reports a failed bulk add together with the songs that had not matched.
type AddItemsError struct {
	Playlist  string
	Unmatched []models.SongRef
	Err       error
}

func (e *AddItemsError) Error() string {
	return fmt.Sprintf("%v to '%s': %v", shared.ErrAddItems, e.Playlist, e.Err)
}

func (e *AddItemsError) Unwrap() []error {
	return []error{shared.ErrAddItems, e.Err}
}

// GeneratedName builds the name of a create_new playlist.
func GeneratedName(platform, title string, at time.Time) string {
	if strings.TrimSpace(platform) == "" {
		platform = FallbackPlatform
	}
	base := strings.TrimSpace(title)
	if base == "" || strings.EqualFold(base, models.UnknownPlaylistTitle) {
		base = FallbackPlaylistTitle
	}
	return fmt.Sprintf("From %s - %s (%s)", platform, base, at.Format(nameTimestampLayout))
}

// Reconciler converges a destination playlist to exactly the matched set.
type Reconciler struct {
	logger *log.Logger
	now    func() time.Time
}

// NewReconciler creates a Reconciler. A nil clock defaults to [time.Now].
func NewReconciler(logger *log.Logger, now func() time.Time) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Reconciler{logger: logger, now: now}
}

// Reconcile establishes the target playlist and adds tracks to it.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	target models.ImportTarget,
	library services.Library,
	hint SourceHint,
	tracks []models.LibraryTrack,
	unmatched []models.SongRef,
	progress chan<- ProgressUpdate,
) (*PlaylistTarget, error) {
	pt, err := r.Establish(ctx, target, library, hint, progress)
	if err != nil {
		return nil, err
	}
	return pt, r.Apply(ctx, pt, library, tracks, unmatched, progress)
}

// Establish returns an empty destination playlist.
//
// create_new always makes a new playlist, even when one with the generated name exists.
// update_existing empties the playlist with the requested name, or creates it under that exact name.
func (r *Reconciler) Establish(
	ctx context.Context,
	target models.ImportTarget,
	library services.Library,
	hint SourceHint,
	progress chan<- ProgressUpdate,
) (*PlaylistTarget, error) {
	switch target.Mode {
	case models.CreateNew:
		name := GeneratedName(hint.Platform, hint.Title, r.now())
		pl, err := r.create(ctx, library, name, progress)
		if err != nil {
			return nil, err
		}
		return &PlaylistTarget{Playlist: *pl, Created: true}, nil

	case models.UpdateExisting:
		name := target.RequestedName
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: update_existing requires a playlist name", shared.ErrInvalidMode)
		}

		existing, err := library.FindPlaylist(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to look up playlist '%s': %w", name, err)
		}
		if existing == nil {
			r.logger.Info("playlist not found, creating it", "name", name)
			pl, err := r.create(ctx, library, name, progress)
			if err != nil {
				return nil, err
			}
			return &PlaylistTarget{Playlist: *pl, Created: true}, nil
		}

		removed, err := r.clear(ctx, library, existing, progress)
		if err != nil {
			return nil, err
		}
		return &PlaylistTarget{Playlist: *existing, Cleared: removed}, nil

	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrInvalidMode, target.Mode)
	}
}

// create makes a playlist seeded with the first track of the first music section, then removes the seed.
func (r *Reconciler) create(ctx context.Context, library services.Library, name string, progress chan<- ProgressUpdate) (*models.Playlist, error) {
	sendProgress(progress, creatingPlaylistUpdate(name))

	sections, err := library.Sections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list library sections: %w", err)
	}

	var music *models.Section
	for i := range sections {
		if sections[i].IsMusic() {
			music = &sections[i]
			break
		}
	}
	if music == nil {
		return nil, shared.ErrLibraryEmpty
	}

	seed, err := library.SeedTrack(ctx, *music)
	if err != nil {
		return nil, fmt.Errorf("failed to read section '%s': %w", music.Title, err)
	}
	if seed == nil {
		return nil, fmt.Errorf("%w: section '%s' is empty", shared.ErrNoSeedTrack, music.Title)
	}

	pl, err := library.CreatePlaylist(ctx, name, *seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist '%s': %w", name, err)
	}

	if err := r.removeSeed(ctx, library, pl, seed.ID); err != nil {
		r.discard(ctx, library, pl)
		return nil, err
	}
	pl.TrackCount = 0

	r.logger.Info("created playlist", "name", pl.Title, "id", pl.ID)
	sendProgress(progress, playlistCreatedUpdate(pl))
	return pl, nil
}

func (r *Reconciler) removeSeed(ctx context.Context, library services.Library, pl *models.Playlist, seedID string) error {
	items, err := library.PlaylistItems(ctx, *pl)
	if err != nil {
		return fmt.Errorf("failed to list new playlist '%s': %w", pl.Title, err)
	}
	var seeded []models.LibraryTrack
	for _, it := range items {
		if it.ID == seedID {
			seeded = append(seeded, it)
		}
	}
	if len(seeded) > 0 {
		if err := library.RemoveItems(ctx, *pl, seeded); err != nil {
			return fmt.Errorf("failed to remove seed track from '%s': %w", pl.Title, err)
		}
	}
	return nil
}

// discard deletes a half-built playlist. A failed delete leaves it on the server, so its id is logged.
func (r *Reconciler) discard(ctx context.Context, library services.Library, pl *models.Playlist) {
	if err := library.DeletePlaylist(context.WithoutCancel(ctx), *pl); err != nil {
		r.logger.Error("playlist left on server with its seed track", "name", pl.Title, "id", pl.ID, "error", err)
		return
	}
	r.logger.Warn("deleted incomplete playlist", "name", pl.Title, "id", pl.ID)
}

// clear removes every entry of an existing playlist.
func (r *Reconciler) clear(ctx context.Context, library services.Library, pl *models.Playlist, progress chan<- ProgressUpdate) (int, error) {
	sendProgress(progress, clearingPlaylistUpdate(pl))

	items, err := library.PlaylistItems(ctx, *pl)
	if err != nil {
		return 0, fmt.Errorf("failed to list playlist '%s': %w", pl.Title, err)
	}
	if len(items) > 0 {
		if err := library.RemoveItems(ctx, *pl, items); err != nil {
			return 0, fmt.Errorf("failed to clear playlist '%s': %w", pl.Title, err)
		}
	}
	pl.TrackCount = 0

	r.logger.Info("cleared playlist", "name", pl.Title, "removed", len(items))
	sendProgress(progress, playlistClearedUpdate(pl, len(items)))
	return len(items), nil
}

// Apply adds tracks to the target in one bulk operation. Nothing is sent when tracks is empty.
//
// A failure is returned as an [*AddItemsError] carrying unmatched.
func (r *Reconciler) Apply(
	ctx context.Context,
	pt *PlaylistTarget,
	library services.Library,
	tracks []models.LibraryTrack,
	unmatched []models.SongRef,
	progress chan<- ProgressUpdate,
) error {
	if len(tracks) == 0 {
		r.logger.Warn("no tracks matched, playlist left empty", "name", pt.Name())
		return nil
	}

	sendProgress(progress, addingTracksUpdate(len(tracks), pt.Name()))
	if err := library.AddItems(ctx, pt.Playlist, tracks); err != nil {
		return &AddItemsError{Playlist: pt.Name(), Unmatched: unmatched, Err: err}
	}
	pt.Playlist.TrackCount = len(tracks)

	sendProgress(progress, tracksAddedUpdate(len(tracks), pt.Name()))
	return nil
}

// IsAddItemsError reports whether err came from a failed bulk add.
func IsAddItemsError(err error) (*AddItemsError, bool) {
	var addErr *AddItemsError
	ok := errors.As(err, &addErr)
	return addErr, ok
}
