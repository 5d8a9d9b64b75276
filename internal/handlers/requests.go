package handlers

// LoginRequest represents a login with the shared password
type LoginRequest struct {
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// PlaylistRequest sets the YouTube playlist of a constitution
type PlaylistRequest struct {
	PlaylistID string `json:"youtube_playlist_id"`
}

// LockRequest represents a request to lock or unlock the song list
type LockRequest struct {
	Locked bool `json:"locked"`
}

// ResultsStatusRequest represents a request to show or hide the results
type ResultsStatusRequest struct {
	Showing bool `json:"showing"`
}
