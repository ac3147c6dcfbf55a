package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/encoreparty/encore/internal/encore/domain"
)

const (
	defaultAPIURL = "https://api.spotify.com"

	// pageSize is the provider's maximum page for the listing endpoints;
	// batchSize is the maximum for the artist detail lookup.
	pageSize  = 50
	batchSize = 50

	// maxPages bounds pagination per source so a pathological library
	// cannot stall game setup.
	maxPages = 20
)

// SpotifyConfig wires a Spotify resolver.
type SpotifyConfig struct {
	Tokens     TokenSource
	APIBaseURL string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Spotify resolves source references against the Spotify Web API.
type Spotify struct {
	tokens TokenSource
	base   string
	httpc  *http.Client
	logger *slog.Logger
}

// NewSpotify builds a resolver. Tokens is required.
func NewSpotify(cfg SpotifyConfig) *Spotify {
	base := cfg.APIBaseURL
	if base == "" {
		base = defaultAPIURL
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Spotify{
		tokens: cfg.Tokens,
		base:   strings.TrimRight(base, "/"),
		httpc:  httpc,
		logger: logger,
	}
}

// Resolve fetches every source and merges the results, deduplicated by
// artist ID. Track-based sources yield artist IDs only, so those are
// hydrated through the batch artist endpoint before merging.
func (s *Spotify) Resolve(ctx context.Context, refs []domain.SourceRef) ([]domain.Artist, error) {
	seen := make(map[string]bool)
	var out []domain.Artist
	var pendingIDs []string

	add := func(artists []domain.Artist) {
		for _, a := range artists {
			if a.ID == "" || seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			out = append(out, a)
		}
	}

	for _, ref := range refs {
		switch ref.Kind {
		case domain.SourceTopArtists:
			artists, err := s.topArtists(ctx)
			if err != nil {
				return nil, fmt.Errorf("top artists: %w", err)
			}
			add(artists)

		case domain.SourceFollowedArtists:
			artists, err := s.followedArtists(ctx)
			if err != nil {
				return nil, fmt.Errorf("followed artists: %w", err)
			}
			add(artists)

		case domain.SourcePlaylist:
			ids, err := s.playlistArtistIDs(ctx, ref.ID)
			if err != nil {
				return nil, fmt.Errorf("playlist %s: %w", ref.ID, err)
			}
			pendingIDs = append(pendingIDs, ids...)

		case domain.SourceSavedTracks:
			ids, err := s.savedTrackArtistIDs(ctx)
			if err != nil {
				return nil, fmt.Errorf("saved tracks: %w", err)
			}
			pendingIDs = append(pendingIDs, ids...)

		default:
			return nil, fmt.Errorf("unknown source kind %q", ref.Kind)
		}
	}

	if len(pendingIDs) > 0 {
		// Hydrate track-derived IDs, skipping those already merged.
		unique := pendingIDs[:0]
		dedup := make(map[string]bool)
		for _, id := range pendingIDs {
			if id == "" || seen[id] || dedup[id] {
				continue
			}
			dedup[id] = true
			unique = append(unique, id)
		}
		artists, err := s.artistsByID(ctx, unique)
		if err != nil {
			return nil, fmt.Errorf("artist details: %w", err)
		}
		add(artists)
	}

	if len(out) == 0 {
		return nil, ErrNoArtists
	}

	s.logger.Info("artist sources resolved",
		"sources", len(refs),
		"artists", len(out),
	)
	return out, nil
}

// apiArtist is the provider's artist shape.
type apiArtist struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Popularity int      `json:"popularity"`
	Genres     []string `json:"genres"`
}

func (a apiArtist) toDomain() domain.Artist {
	d := domain.Artist{
		ID:         a.ID,
		Name:       a.Name,
		Popularity: a.Popularity,
		Genres:     a.Genres,
	}
	if len(a.Images) > 0 {
		d.ImageURL = a.Images[0].URL
	}
	return d
}

type apiTrack struct {
	Artists []struct {
		ID string `json:"id"`
	} `json:"artists"`
}

func (s *Spotify) topArtists(ctx context.Context) ([]domain.Artist, error) {
	var out []domain.Artist
	for page := 0; page < maxPages; page++ {
		var body struct {
			Items []apiArtist `json:"items"`
			Total int         `json:"total"`
		}
		q := url.Values{
			"limit":  {fmt.Sprint(pageSize)},
			"offset": {fmt.Sprint(page * pageSize)},
		}
		if err := s.get(ctx, "/v1/me/top/artists", q, &body); err != nil {
			return nil, err
		}
		for _, it := range body.Items {
			out = append(out, it.toDomain())
		}
		if len(body.Items) < pageSize {
			break
		}
	}
	return out, nil
}

func (s *Spotify) followedArtists(ctx context.Context) ([]domain.Artist, error) {
	var out []domain.Artist
	after := ""
	for page := 0; page < maxPages; page++ {
		var body struct {
			Artists struct {
				Items   []apiArtist `json:"items"`
				Cursors struct {
					After string `json:"after"`
				} `json:"cursors"`
			} `json:"artists"`
		}
		q := url.Values{
			"type":  {"artist"},
			"limit": {fmt.Sprint(pageSize)},
		}
		if after != "" {
			q.Set("after", after)
		}
		if err := s.get(ctx, "/v1/me/following", q, &body); err != nil {
			return nil, err
		}
		for _, it := range body.Artists.Items {
			out = append(out, it.toDomain())
		}
		after = body.Artists.Cursors.After
		if after == "" || len(body.Artists.Items) < pageSize {
			break
		}
	}
	return out, nil
}

func (s *Spotify) playlistArtistIDs(ctx context.Context, playlistID string) ([]string, error) {
	var out []string
	for page := 0; page < maxPages; page++ {
		var body struct {
			Items []struct {
				Track apiTrack `json:"track"`
			} `json:"items"`
		}
		q := url.Values{
			"limit":  {"100"},
			"offset": {fmt.Sprint(page * 100)},
			"fields": {"items(track(artists(id)))"},
		}
		if err := s.get(ctx, "/v1/playlists/"+url.PathEscape(playlistID)+"/tracks", q, &body); err != nil {
			return nil, err
		}
		for _, it := range body.Items {
			for _, a := range it.Track.Artists {
				out = append(out, a.ID)
			}
		}
		if len(body.Items) < 100 {
			break
		}
	}
	return out, nil
}

func (s *Spotify) savedTrackArtistIDs(ctx context.Context) ([]string, error) {
	var out []string
	for page := 0; page < maxPages; page++ {
		var body struct {
			Items []struct {
				Track apiTrack `json:"track"`
			} `json:"items"`
		}
		q := url.Values{
			"limit":  {fmt.Sprint(pageSize)},
			"offset": {fmt.Sprint(page * pageSize)},
		}
		if err := s.get(ctx, "/v1/me/tracks", q, &body); err != nil {
			return nil, err
		}
		for _, it := range body.Items {
			for _, a := range it.Track.Artists {
				out = append(out, a.ID)
			}
		}
		if len(body.Items) < pageSize {
			break
		}
	}
	return out, nil
}

// artistsByID hydrates artist IDs into full records, batchSize per call.
func (s *Spotify) artistsByID(ctx context.Context, ids []string) ([]domain.Artist, error) {
	var out []domain.Artist
	for len(ids) > 0 {
		n := min(batchSize, len(ids))
		batch := ids[:n]
		ids = ids[n:]

		var body struct {
			Artists []apiArtist `json:"artists"`
		}
		q := url.Values{"ids": {strings.Join(batch, ",")}}
		if err := s.get(ctx, "/v1/artists", q, &body); err != nil {
			return nil, err
		}
		for _, a := range body.Artists {
			out = append(out, a.toDomain())
		}
	}
	return out, nil
}

func (s *Spotify) get(ctx context.Context, path string, query url.Values, into any) error {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}

	u := s.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider returned %d for %s: %s",
			resp.StatusCode, path, strings.TrimSpace(string(snippet)))
	}
	return json.NewDecoder(resp.Body).Decode(into)
}
