package domain

// Artist is one guessable record. Identity is the provider ID; records are
// deduplicated by ID before entering the pool.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	ImageURL   string   `json:"image_url,omitempty"`
	Popularity int      `json:"popularity"` // 0..100
	Genres     []string `json:"genres,omitempty"`
}

// SourceKind distinguishes the ways an artist list can be assembled.
type SourceKind string

const (
	SourcePlaylist        SourceKind = "playlist"
	SourceTopArtists      SourceKind = "top_artists"
	SourceFollowedArtists SourceKind = "followed_artists"
	SourceSavedTracks     SourceKind = "saved_tracks"
)

// SourceRef names one artist source. Playlist refs carry the playlist ID;
// the personalized kinds need no ID.
type SourceRef struct {
	Kind SourceKind `json:"kind"`
	ID   string     `json:"id,omitempty"`
}
