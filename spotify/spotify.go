// Package spotify is a minimal Spotify Web API client covering the two
// endpoints the recommender needs: artist search, and an artist's top
// tracks.
package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/amonks/recommender/data"
	"github.com/amonks/recommender/limiter"
	"github.com/amonks/recommender/request"
)

const nextReqFilename = "next-req"

// New creates a new Spotify client, with the given clientID and
// clientSecret. Authentication is Spotify's client-credentials flow: the
// client fetches an access token on first use and refreshes it when it
// expires.
func New(clientID, clientSecret string) *Client {
	lim := limiter.New(nextReqFilename, time.Second/10)
	if err := lim.Load(); err != nil {
		panic(err)
	}

	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		limiter:      lim,

		apiURL:      "https://api.spotify.com/v1",
		accountsURL: "https://accounts.spotify.com",
	}
}

type Client struct {
	mu sync.Mutex

	clientID     string
	clientSecret string

	limiter *limiter.Limiter

	apiURL      string
	accountsURL string

	accessToken string
	expiresAt   time.Time
}

// SearchArtists searches for artists with the given name. Results come back
// in Spotify's own relevance order, so the first entry is the best match.
//
// The request is basically,
//
//	https://api.spotify.com/v1/search?query=artist:"NAME"&type=artist
//
// SearchArtists respects Spotify's documented semantics around its rate
// limiter: checking for a Retry-After header when it receives a 429
// response. If SearchArtists is rate limited, it won't error, but it might
// take a long time.
func (spo *Client) SearchArtists(ctx context.Context, name string) ([]data.Artist, error) {
	query := url.Values{}
	query.Add("query", fmt.Sprintf(`artist:"%s"`, name))
	query.Add("type", "artist")
	query.Add("limit", "10")

	resp, err := spo.get(ctx, spo.apiURL+"/search", query)
	if err != nil {
		return nil, err
	}

	defer resp.Close()
	var results artistSearchResults
	dec := json.NewDecoder(resp)
	if err := dec.Decode(&results); err != nil {
		return nil, fmt.Errorf("artist search decode error: %w", err)
	}

	artists := make([]data.Artist, len(results.Artists.Items))
	for i, item := range results.Artists.Items {
		var imageURL string
		var maxSize int64
		for _, image := range item.Images {
			if image.Width > maxSize {
				imageURL = image.URL
				maxSize = image.Width
			}
		}
		artists[i] = data.Artist{
			SpotifyID:  item.ID,
			Name:       item.Name,
			ImageURL:   imageURL,
			Followers:  item.Followers.Total,
			Popularity: item.Popularity,
		}
	}
	return artists, nil
}

type artistSearchResults struct {
	Artists struct {
		Limit  int
		Offset int
		Total  int

		Items []struct {
			Followers struct {
				Total int64
			}
			ID     string
			Images []struct {
				Height int64
				Width  int64
				URL    string
			}
			Name       string
			Popularity int64
		}
	}
}

// ArtistTopTracks fetches the artist's top tracks, in Spotify's own ranking
// order. Spotify returns at most ten.
func (spo *Client) ArtistTopTracks(ctx context.Context, artistSpotifyID string) ([]data.Track, error) {
	resp, err := spo.get(ctx, fmt.Sprintf("%s/artists/%s/top-tracks", spo.apiURL, artistSpotifyID), nil)
	if err != nil {
		return nil, err
	}

	defer resp.Close()
	var results topTracksResults
	dec := json.NewDecoder(resp)
	if err := dec.Decode(&results); err != nil {
		return nil, fmt.Errorf("top tracks decode error: %w", err)
	}

	tracks := make([]data.Track, len(results.Tracks))
	for i, track := range results.Tracks {
		tracks[i] = data.Track{
			SpotifyID:  track.ID,
			Name:       track.Name,
			Popularity: track.Popularity,

			AlbumSpotifyID: track.Album.ID,
			AlbumName:      track.Album.Name,

			ArtistSpotifyID: artistSpotifyID,
		}
		for _, artist := range track.Artists {
			if artist.ID == artistSpotifyID {
				tracks[i].ArtistName = artist.Name
				break
			}
		}
	}

	return tracks, nil
}

type topTracksResults struct {
	Tracks []struct {
		ID         string
		Name       string
		Popularity int64

		Album struct {
			ID   string
			Name string
		}

		Artists []struct {
			ID   string
			Name string
		}
	}
}

func (spo *Client) get(ctx context.Context, baseURL string, query url.Values) (io.ReadCloser, error) {
	spo.mu.Lock()
	defer spo.mu.Unlock()

retry:
	if err := spo.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url, _ := url.Parse(baseURL)
	url.RawQuery = query.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", url.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}

	token, err := spo.token()
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	if resp.StatusCode == 429 {
		resp.Body.Close()
		if err := spo.limiter.SetNextAt(resp.Header.Get("Retry-After")); err != nil {
			return nil, err
		}
		goto retry
	}
	if err := request.Error(resp); err != nil {
		return nil, fmt.Errorf("fetch error: %w", err)
	}

	spo.limiter.Delay()

	return resp.Body, nil
}

type tokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (spo *Client) token() (string, error) {
	if spo.accessToken == "" || spo.expiresAt.Before(time.Now().Add(time.Second)) {
		if err := spo.fetchToken(); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("Bearer %s", spo.accessToken), nil
}

func (spo *Client) fetchToken() error {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	url := spo.accountsURL + "/api/token"
	req, err := http.NewRequest("POST", url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("token request error: %w", err)
	}
	up := fmt.Sprintf("%s:%s", spo.clientID, spo.clientSecret)
	credential := base64.StdEncoding.EncodeToString([]byte(up))
	req.Header.Set("Authorization", fmt.Sprintf("Basic %s", credential))
	req.Header.Set("Content-type", "application/x-www-form-urlencoded")

	requestAt := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("token request error: %w", err)
	}
	defer resp.Body.Close()
	if err := request.Error(resp); err != nil {
		return fmt.Errorf("token fetch error: %w", err)
	}

	var result tokenResult
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&result); err != nil {
		return fmt.Errorf("token decode error: %w", err)
	}

	spo.accessToken = result.AccessToken
	spo.expiresAt = requestAt.Add(time.Duration(result.ExpiresIn) * time.Second)

	return nil
}
