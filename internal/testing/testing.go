// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/joeychilson/soundify/internal/models"
)

// MockLikes is a test double for [services.LikesSource]
type MockLikes struct {
	Tracks []models.SourceTrack
	Err    error
}

func (m *MockLikes) FetchLikes(ctx context.Context, limit int) ([]models.SourceTrack, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if limit > 0 && limit < len(m.Tracks) {
		return m.Tracks[:limit], nil
	}
	return m.Tracks, nil
}

// MockSearch is a test double for [services.SearchService]
type MockSearch struct {
	Candidates map[string][]models.CandidateTrack // keyed by source track ID
	Err        error
}

func (m *MockSearch) FetchCandidates(ctx context.Context, track models.SourceTrack, limit int) ([]models.CandidateTrack, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Candidates[track.ID], nil
}

// MockWriter is a test double for [services.PlaylistWriter]
type MockWriter struct {
	Playlist models.Playlist
	Added    [][]string
	Err      error
}

func (m *MockWriter) GetOrCreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.Playlist = models.Playlist{ID: "mock-playlist", Name: name, Description: description}
	return &m.Playlist, nil
}

func (m *MockWriter) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Added = append(m.Added, trackIDs)
	return nil
}

// MockJudge is a test double for [match.Judge]
type MockJudge struct {
	Answer string
	Err    error
}

func (m *MockJudge) Pick(ctx context.Context, track models.SourceTrack, candidates []models.CandidateTrack) (string, error) {
	return m.Answer, m.Err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
