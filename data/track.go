package data

// Track is one entry from an artist's top-tracks list. Spotify caps that
// list at ten entries per artist.
//
// A Track is attributed to exactly one resolved artist: the one whose
// top-tracks list it came from, not every artist credited on the recording.
type Track struct {
	SpotifyID  string
	Name       string
	Popularity int64

	AlbumSpotifyID string
	AlbumName      string

	ArtistSpotifyID string
	ArtistName      string
}
