package data

// Artist holds an artist we've found using Spotify's search API.
//
// Resolution is first-match-wins: one search query maps to at most one
// Artist, in Spotify's own relevance order.
type Artist struct {
	SpotifyID  string
	Name       string
	ImageURL   string
	Followers  int64
	Popularity int64
}
