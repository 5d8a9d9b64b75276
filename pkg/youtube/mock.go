package youtube

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is a mock metadata client for testing
type MockClient struct {
	mu        sync.Mutex
	videos    map[string]Video // videoID -> metadata
	lookupErr error
	lookups   int
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithVideo registers metadata for a video id
func WithVideo(videoID, title, author string) MockOption {
	return func(m *MockClient) {
		m.videos[videoID] = Video{Title: title, AuthorName: author}
	}
}

// WithLookupError sets an error to return from LookupVideo
func WithLookupError(err error) MockOption {
	return func(m *MockClient) {
		m.lookupErr = err
	}
}

// NewMockClient creates a mock client. Unknown videos get a generated title.
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{videos: make(map[string]Video)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LookupVideo returns the registered metadata of the video
func (m *MockClient) LookupVideo(ctx context.Context, videoURL string) (*Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++

	if m.lookupErr != nil {
		return nil, m.lookupErr
	}

	id, err := ExtractVideoID(videoURL)
	if err != nil {
		return nil, err
	}
	if video, ok := m.videos[id]; ok {
		return &video, nil
	}
	return &Video{Title: fmt.Sprintf("Video %s", id), AuthorName: "Mock Channel"}, nil
}

// Lookups returns how many times LookupVideo was called
func (m *MockClient) Lookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}

var _ Client = (*MockClient)(nil)
var _ Client = (*HTTPClient)(nil)
