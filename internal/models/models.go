package models

import "time"

// Limits on the size of a constitution
const (
	MinUserLimit = 4
	MaxUserLimit = 10
	MaxSongLimit = 100
)

// NoWinnerSongID marks a constitution whose winner has not been computed
const NoWinnerSongID = -1

// Platform identifies where a song is hosted
type Platform string

const (
	PlatformYoutube Platform = "youtube"
	PlatformOther   Platform = "other"
)

// User is an authenticated member. UID never changes once issued.
type User struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name"`
}

// Song is a submission to a constitution
type Song struct {
	ID         int      `json:"id"`
	ShortTitle string   `json:"short_title"`
	Author     string   `json:"author"`
	URL        string   `json:"url"`
	Platform   Platform `json:"platform"`
	Patron     string   `json:"patron"` // uid of the submitting user
}

// Vote is a grade given by one user to one song
type Vote struct {
	ID             string    `json:"id"`
	ConstitutionID string    `json:"constitution_id"`
	SongID         int       `json:"song_id"`
	UserID         string    `json:"user_id"`
	Score          float64   `json:"score"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Constitution is one round of song submission, voting and winner selection
type Constitution struct {
	ID                   string    `json:"id"`
	Season               int       `json:"season"`
	Round                int       `json:"round"`
	Name                 string    `json:"name"`
	IsPublic             bool      `json:"is_public"`
	Owner                string    `json:"owner"`
	Users                []string  `json:"users"`
	Songs                []Song    `json:"songs"`
	WinnerSongID         int       `json:"winner_song_id"`
	WinnerUserID         string    `json:"winner_user_id"`
	YoutubePlaylistID    string    `json:"youtube_playlist_id"`
	NumberOfSongsPerUser int       `json:"number_of_songs_per_user"`
	NumberMaxOfUser      int       `json:"number_max_of_user"`
	IsLocked             bool      `json:"is_locked"`
	IsShowingResult      bool      `json:"is_showing_result"`
	Finished             bool      `json:"finished"`
	Version              int64     `json:"version"`
	CreatedAt            time.Time `json:"created_at"`
}

// HasWinner reports whether a winner pair has been persisted
func (c *Constitution) HasWinner() bool {
	return c.WinnerSongID != NoWinnerSongID && c.WinnerUserID != ""
}

// IsMember reports whether uid has joined the constitution
func (c *Constitution) IsMember(uid string) bool {
	for _, u := range c.Users {
		if u == uid {
			return true
		}
	}
	return false
}

// SongByID returns the song with the given id
func (c *Constitution) SongByID(id int) (Song, bool) {
	for _, s := range c.Songs {
		if s.ID == id {
			return s, true
		}
	}
	return Song{}, false
}

// SongsOf returns the songs submitted by uid
func (c *Constitution) SongsOf(uid string) []Song {
	var songs []Song
	for _, s := range c.Songs {
		if s.Patron == uid {
			songs = append(songs, s)
		}
	}
	return songs
}

// SongCapacity is the number of songs needed to lock the song list
func (c *Constitution) SongCapacity() int {
	return c.NumberMaxOfUser * c.NumberOfSongsPerUser
}

// ConstitutionUpdate is a partial update. Nil fields are left untouched.
type ConstitutionUpdate struct {
	IsLocked          *bool
	IsShowingResult   *bool
	WinnerSongID      *int
	WinnerUserID      *string
	YoutubePlaylistID *string
	Users             []string
}

// HistoryRecord is the immutable snapshot written when a constitution finishes
type HistoryRecord struct {
	ID                string    `json:"id"`
	ConstitutionID    string    `json:"constitution_id"`
	Season            int       `json:"season"`
	Round             int       `json:"round"`
	Name              string    `json:"name"`
	OwnerID           string    `json:"owner_id"`
	YoutubePlaylistID string    `json:"youtube_playlist_id"`
	WinnerID          string    `json:"winner_id"`
	WinnerSongURL     string    `json:"winner_song_url"`
	WinnerSongTitle   string    `json:"winner_song_title"`
	WinnerSongAuthor  string    `json:"winner_song_author"`
	Usernames         []string  `json:"usernames"`
	SongsTitle        []string  `json:"songs_title"`
	SongsAuthor       []string  `json:"songs_author"`
	SongsURL          []string  `json:"songs_url"`
	SongsOwner        []string  `json:"songs_owner"`
	ArchivedAt        time.Time `json:"archived_at"`
}

// Status is the inline status object shown next to a form
type Status struct {
	Error   bool   `json:"error"`
	Hidden  bool   `json:"hidden"`
	Message string `json:"message"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
