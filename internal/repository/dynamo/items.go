package dynamo

import (
	"fmt"
	"strings"
	"time"

	"github.com/matbactivity/songconstitution/internal/models"
)

type songItem struct {
	ID         int    `dynamodbav:"ID"`
	ShortTitle string `dynamodbav:"ShortTitle"`
	Author     string `dynamodbav:"Author"`
	URL        string `dynamodbav:"URL"`
	Platform   string `dynamodbav:"Platform"`
	Patron     string `dynamodbav:"Patron"`
}

type constitutionItem struct {
	ID                   string     `dynamodbav:"PK"`
	Season               int        `dynamodbav:"Season"`
	Round                int        `dynamodbav:"Round"`
	Name                 string     `dynamodbav:"Name"`
	IsPublic             bool       `dynamodbav:"IsPublic"`
	Owner                string     `dynamodbav:"Owner"`
	Users                []string   `dynamodbav:"Users"`
	Songs                []songItem `dynamodbav:"Songs"`
	WinnerSongID         int        `dynamodbav:"WinnerSongID"`
	WinnerUserID         string     `dynamodbav:"WinnerUserID"`
	YoutubePlaylistID    string     `dynamodbav:"YoutubePlaylistID"`
	NumberOfSongsPerUser int        `dynamodbav:"NumberOfSongsPerUser"`
	NumberMaxOfUser      int        `dynamodbav:"NumberMaxOfUser"`
	IsLocked             bool       `dynamodbav:"IsLocked"`
	IsShowingResult      bool       `dynamodbav:"IsShowingResult"`
	Finished             bool       `dynamodbav:"Finished"`
	Version              int64      `dynamodbav:"Version"`
	CreatedAt            time.Time  `dynamodbav:"CreatedAt"`
}

type voteItem struct {
	ConstitutionID string    `dynamodbav:"PK"`
	SortKey        string    `dynamodbav:"SK"` // songID#userID
	ID             string    `dynamodbav:"ID"`
	SongID         int       `dynamodbav:"SongID"`
	UserID         string    `dynamodbav:"UserID"`
	Score          float64   `dynamodbav:"Score"`
	UpdatedAt      time.Time `dynamodbav:"UpdatedAt"`
}

type historyItem struct {
	ID                string    `dynamodbav:"PK"`
	ConstitutionID    string    `dynamodbav:"ConstitutionID"`
	Season            int       `dynamodbav:"Season"`
	Round             int       `dynamodbav:"Round"`
	Name              string    `dynamodbav:"Name"`
	OwnerID           string    `dynamodbav:"OwnerID"`
	YoutubePlaylistID string    `dynamodbav:"YoutubePlaylistID"`
	WinnerID          string    `dynamodbav:"WinnerID"`
	WinnerSongURL     string    `dynamodbav:"WinnerSongURL"`
	WinnerSongTitle   string    `dynamodbav:"WinnerSongTitle"`
	WinnerSongAuthor  string    `dynamodbav:"WinnerSongAuthor"`
	Usernames         []string  `dynamodbav:"Usernames"`
	SongsTitle        []string  `dynamodbav:"SongsTitle"`
	SongsAuthor       []string  `dynamodbav:"SongsAuthor"`
	SongsURL          []string  `dynamodbav:"SongsURL"`
	SongsOwner        []string  `dynamodbav:"SongsOwner"`
	ArchivedAt        time.Time `dynamodbav:"ArchivedAt"`
}

// userItem is stored twice: under user#<uid> and under name#<lowercased
// display name>, which keeps display names unique
type userItem struct {
	Key         string `dynamodbav:"PK"`
	UID         string `dynamodbav:"UID"`
	DisplayName string `dynamodbav:"DisplayName"`
}

type settingItem struct {
	Key   string `dynamodbav:"PK"`
	Value string `dynamodbav:"Value"`
}

func userKey(uid string) string {
	return "user#" + uid
}

func displayNameKey(displayName string) string {
	return "name#" + strings.ToLower(displayName)
}

func voteSortKey(songID int, userID string) string {
	return fmt.Sprintf("%d#%s", songID, userID)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func toSongItem(s models.Song) songItem {
	return songItem{
		ID:         s.ID,
		ShortTitle: s.ShortTitle,
		Author:     s.Author,
		URL:        s.URL,
		Platform:   string(s.Platform),
		Patron:     s.Patron,
	}
}

func toConstitutionItem(c *models.Constitution) constitutionItem {
	songs := make([]songItem, 0, len(c.Songs))
	for _, s := range c.Songs {
		songs = append(songs, toSongItem(s))
	}
	return constitutionItem{
		ID:                   c.ID,
		Season:               c.Season,
		Round:                c.Round,
		Name:                 c.Name,
		IsPublic:             c.IsPublic,
		Owner:                c.Owner,
		Users:                nonNil(c.Users),
		Songs:                songs,
		WinnerSongID:         c.WinnerSongID,
		WinnerUserID:         c.WinnerUserID,
		YoutubePlaylistID:    c.YoutubePlaylistID,
		NumberOfSongsPerUser: c.NumberOfSongsPerUser,
		NumberMaxOfUser:      c.NumberMaxOfUser,
		IsLocked:             c.IsLocked,
		IsShowingResult:      c.IsShowingResult,
		Finished:             c.Finished,
		Version:              c.Version,
		CreatedAt:            c.CreatedAt,
	}
}

func (item constitutionItem) toModel() *models.Constitution {
	var songs []models.Song
	for _, s := range item.Songs {
		songs = append(songs, models.Song{
			ID:         s.ID,
			ShortTitle: s.ShortTitle,
			Author:     s.Author,
			URL:        s.URL,
			Platform:   models.Platform(s.Platform),
			Patron:     s.Patron,
		})
	}
	return &models.Constitution{
		ID:                   item.ID,
		Season:               item.Season,
		Round:                item.Round,
		Name:                 item.Name,
		IsPublic:             item.IsPublic,
		Owner:                item.Owner,
		Users:                item.Users,
		Songs:                songs,
		WinnerSongID:         item.WinnerSongID,
		WinnerUserID:         item.WinnerUserID,
		YoutubePlaylistID:    item.YoutubePlaylistID,
		NumberOfSongsPerUser: item.NumberOfSongsPerUser,
		NumberMaxOfUser:      item.NumberMaxOfUser,
		IsLocked:             item.IsLocked,
		IsShowingResult:      item.IsShowingResult,
		Finished:             item.Finished,
		Version:              item.Version,
		CreatedAt:            item.CreatedAt,
	}
}

func toVoteItem(constitutionID string, v models.Vote) voteItem {
	return voteItem{
		ConstitutionID: constitutionID,
		SortKey:        voteSortKey(v.SongID, v.UserID),
		ID:             v.ID,
		SongID:         v.SongID,
		UserID:         v.UserID,
		Score:          v.Score,
		UpdatedAt:      v.UpdatedAt,
	}
}

func (item voteItem) toModel() models.Vote {
	return models.Vote{
		ID:             item.ID,
		ConstitutionID: item.ConstitutionID,
		SongID:         item.SongID,
		UserID:         item.UserID,
		Score:          item.Score,
		UpdatedAt:      item.UpdatedAt,
	}
}

func toHistoryItem(constitutionID string, h models.HistoryRecord) historyItem {
	return historyItem{
		ID:                h.ID,
		ConstitutionID:    constitutionID,
		Season:            h.Season,
		Round:             h.Round,
		Name:              h.Name,
		OwnerID:           h.OwnerID,
		YoutubePlaylistID: h.YoutubePlaylistID,
		WinnerID:          h.WinnerID,
		WinnerSongURL:     h.WinnerSongURL,
		WinnerSongTitle:   h.WinnerSongTitle,
		WinnerSongAuthor:  h.WinnerSongAuthor,
		Usernames:         nonNil(h.Usernames),
		SongsTitle:        nonNil(h.SongsTitle),
		SongsAuthor:       nonNil(h.SongsAuthor),
		SongsURL:          nonNil(h.SongsURL),
		SongsOwner:        nonNil(h.SongsOwner),
		ArchivedAt:        h.ArchivedAt,
	}
}

func (item historyItem) toModel() models.HistoryRecord {
	return models.HistoryRecord{
		ID:                item.ID,
		ConstitutionID:    item.ConstitutionID,
		Season:            item.Season,
		Round:             item.Round,
		Name:              item.Name,
		OwnerID:           item.OwnerID,
		YoutubePlaylistID: item.YoutubePlaylistID,
		WinnerID:          item.WinnerID,
		WinnerSongURL:     item.WinnerSongURL,
		WinnerSongTitle:   item.WinnerSongTitle,
		WinnerSongAuthor:  item.WinnerSongAuthor,
		Usernames:         item.Usernames,
		SongsTitle:        item.SongsTitle,
		SongsAuthor:       item.SongsAuthor,
		SongsURL:          item.SongsURL,
		SongsOwner:        item.SongsOwner,
		ArchivedAt:        item.ArchivedAt,
	}
}
