package matcher

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plexlist/internal/models"
)

const (
	// ArtistThreshold is the PartialRatio a candidate must exceed in the artist-scoped tier.
	ArtistThreshold = 85
	// GlobalThreshold is the combined score a candidate must exceed in the global tier.
	GlobalThreshold = 90

	titleWeight  = 0.7
	artistWeight = 0.3
)

// Tier identifies which strategy produced a [MatchResult].
type Tier int

const (
	NoMatch Tier = iota
	ExactMatch
	ArtistScopedFuzzy
	GlobalFuzzy
)

func (t Tier) String() string {
	switch t {
	case ExactMatch:
		return "exact"
	case ArtistScopedFuzzy:
		return "artist_fuzzy"
	case GlobalFuzzy:
		return "global_fuzzy"
	default:
		return "none"
	}
}

// MatchResult is the outcome of matching one song.
type MatchResult struct {
	Input   models.SongRef
	Matched *models.LibraryTrack
	Score   float64
	Tier    Tier
}

// Found reports whether a track was matched.
func (r MatchResult) Found() bool {
	return r.Matched != nil
}

// Searcher is the subset of the media library the matcher queries.
type Searcher interface {
	// SearchExact runs the library's title search filtered by artist.
	SearchExact(ctx context.Context, title, artist string) ([]models.LibraryTrack, error)
	// SearchArtists finds artists by name.
	SearchArtists(ctx context.Context, name string) ([]models.Artist, error)
	// TracksOf lists every track credited to the artist.
	TracksOf(ctx context.Context, artist models.Artist) ([]models.LibraryTrack, error)
	// SearchByTitle runs the library's track search by title alone.
	SearchByTitle(ctx context.Context, title string) ([]models.LibraryTrack, error)
}

// Matcher finds the best library track for a song.
type Matcher struct {
	scorer Scorer
	logger *log.Logger
}

// New creates a Matcher.
//
// A nil scorer yields a degraded matcher that reports every song as unmatched;
// this is logged once here rather than on every lookup.
func New(scorer Scorer, logger *log.Logger) *Matcher {
	if logger == nil {
		logger = log.Default()
	}
	if scorer == nil {
		logger.Warn("similarity scorer unavailable, every song will be reported as not found")
	}
	return &Matcher{scorer: scorer, logger: logger}
}

// Degraded reports whether the matcher was built without a scorer.
func (m *Matcher) Degraded() bool {
	return m.scorer == nil
}

// FindMatch resolves song against the library.
//
// Lookup failures inside a tier are logged and treated as having no candidates, so FindMatch never fails.
func (m *Matcher) FindMatch(ctx context.Context, song models.SongRef, library Searcher) MatchResult {
	miss := MatchResult{Input: song, Tier: NoMatch}
	if m.scorer == nil {
		return miss
	}

	normTitle := Normalize(song.Title)
	normArtist := Normalize(song.Artist)

	if song.Artist != "" {
		if result, ok := m.exact(ctx, song, library); ok {
			return result
		}
	}

	if normArtist != "" {
		if result, ok := m.withinArtist(ctx, song, normTitle, normArtist, library); ok {
			return result
		}
	}

	if result, ok := m.global(ctx, song, normTitle, normArtist, library); ok {
		return result
	}

	m.logger.Debug("no match", "title", song.Title, "artist", song.Artist)
	return miss
}

func (m *Matcher) exact(ctx context.Context, song models.SongRef, library Searcher) (MatchResult, bool) {
	tracks, err := library.SearchExact(ctx, song.Title, song.Artist)
	if err != nil {
		m.logger.Error("exact search failed", "title", song.Title, "artist", song.Artist, "error", err)
		return MatchResult{}, false
	}
	if len(tracks) == 0 {
		return MatchResult{}, false
	}

	track := tracks[0]
	return MatchResult{Input: song, Matched: &track, Score: 100, Tier: ExactMatch}, true
}

func (m *Matcher) withinArtist(ctx context.Context, song models.SongRef, normTitle, normArtist string, library Searcher) (MatchResult, bool) {
	artists, err := library.SearchArtists(ctx, normArtist)
	if err != nil {
		m.logger.Error("artist search failed", "artist", normArtist, "error", err)
		return MatchResult{}, false
	}

	var (
		best  *models.LibraryTrack
		score int
	)
	for _, artist := range artists {
		tracks, err := library.TracksOf(ctx, artist)
		if err != nil {
			m.logger.Error("listing artist tracks failed", "artist", artist.Name, "error", err)
			continue
		}
		for i := range tracks {
			if s := m.scorer.PartialRatio(normTitle, Normalize(tracks[i].Title)); s > score {
				score = s
				best = &tracks[i]
			}
		}
	}

	if best == nil || score <= ArtistThreshold {
		return MatchResult{}, false
	}

	m.logger.Info("fuzzy match within artist", "title", song.Title, "matched", best.Title, "score", score)
	return MatchResult{Input: song, Matched: best, Score: float64(score), Tier: ArtistScopedFuzzy}, true
}

func (m *Matcher) global(ctx context.Context, song models.SongRef, normTitle, normArtist string, library Searcher) (MatchResult, bool) {
	tracks, err := library.SearchByTitle(ctx, song.Title)
	if err != nil {
		m.logger.Error("title search failed", "title", song.Title, "error", err)
		return MatchResult{}, false
	}

	var (
		best  *models.LibraryTrack
		score float64
	)
	for i := range tracks {
		if s := m.combined(normTitle, normArtist, tracks[i]); s > score {
			score = s
			best = &tracks[i]
		}
	}

	if best == nil || score <= GlobalThreshold {
		return MatchResult{}, false
	}

	m.logger.Info("fuzzy match across library", "title", song.Title, "matched", best.Title, "score", score)
	return MatchResult{Input: song, Matched: best, Score: score, Tier: GlobalFuzzy}, true
}

// combined weighs title similarity against artist similarity; an unknown input artist counts as a full artist match.
func (m *Matcher) combined(normTitle, normArtist string, track models.LibraryTrack) float64 {
	titleScore := m.scorer.PartialRatio(normTitle, Normalize(track.Title))
	artistScore := 100
	if normArtist != "" {
		artistScore = m.scorer.Ratio(normArtist, Normalize(track.PrimaryArtist()))
	}
	return titleWeight*float64(titleScore) + artistWeight*float64(artistScore)
}
