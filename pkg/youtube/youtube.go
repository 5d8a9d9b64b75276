// Package youtube parses YouTube links and looks up video metadata through oEmbed.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matbactivity/songconstitution/internal/logger"
)

// DefaultOEmbedURL is the public YouTube oEmbed endpoint
const DefaultOEmbedURL = "https://www.youtube.com/oembed"

// ExtractVideoID returns the video id of a YouTube link
func ExtractVideoID(youtubeURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(youtubeURL))
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	host := strings.ToLower(u.Host)
	if strings.Contains(host, "youtu.be") {
		id := strings.Trim(u.Path, "/")
		if id != "" {
			return id, nil
		}
		return "", fmt.Errorf("no video ID found in youtu.be URL")
	}

	if strings.Contains(host, "youtube.com") {
		if strings.HasPrefix(u.Path, "/watch") {
			if videoID := u.Query().Get("v"); videoID != "" {
				return videoID, nil
			}
		}
		for _, prefix := range []string{"/embed/", "/v/", "/shorts/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				id := strings.Trim(strings.TrimPrefix(u.Path, prefix), "/")
				if id != "" {
					return id, nil
				}
			}
		}
	}

	return "", fmt.Errorf("unable to extract video ID from URL: %s", youtubeURL)
}

// IsYouTubeURL reports whether urlStr points at YouTube
func IsYouTubeURL(urlStr string) bool {
	u, err := url.Parse(strings.TrimSpace(urlStr))
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Host)
	return strings.Contains(host, "youtube.com") || strings.Contains(host, "youtu.be")
}

// PlaylistURL builds an unsaved playlist of the given videos in order.
// Empty ids are skipped. It returns "" when no id remains.
func PlaylistURL(videoIDs []string) string {
	var ids []string
	for _, id := range videoIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	return "https://www.youtube.com/watch_videos?video_ids=" + strings.Join(ids, ",")
}

// Video is the metadata returned by oEmbed
type Video struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Client defines the interface for video metadata lookups
type Client interface {
	// LookupVideo fetches the title and channel of a video link
	LookupVideo(ctx context.Context, videoURL string) (*Video, error)
}

// HTTPClient looks videos up through an oEmbed endpoint
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
	log        logger.Logger
}

// NewHTTPClient creates a client for the given oEmbed endpoint.
// An empty endpoint uses DefaultOEmbedURL.
func NewHTTPClient(endpoint string, log logger.Logger) *HTTPClient {
	return NewHTTPClientWithHTTPClient(endpoint, &http.Client{Timeout: 10 * time.Second}, log)
}

// NewHTTPClientWithHTTPClient creates a client with a custom http.Client
func NewHTTPClientWithHTTPClient(endpoint string, httpClient *http.Client, log logger.Logger) *HTTPClient {
	if endpoint == "" {
		endpoint = DefaultOEmbedURL
	}
	return &HTTPClient{
		endpoint:   endpoint,
		httpClient: httpClient,
		log:        log,
	}
}

// Endpoint returns the configured oEmbed endpoint
func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

// LookupVideo fetches oEmbed metadata for videoURL
func (c *HTTPClient) LookupVideo(ctx context.Context, videoURL string) (*Video, error) {
	params := url.Values{}
	params.Set("url", videoURL)
	params.Set("format", "json")
	apiURL := c.endpoint + "?" + params.Encode()

	c.log.Debug("oEmbed request", "url", apiURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach oEmbed endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("oEmbed response", "status", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oEmbed returned status %d: %s", resp.StatusCode, string(body))
	}

	var video Video
	if err := json.Unmarshal(body, &video); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &video, nil
}
