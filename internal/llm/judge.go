package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/joeychilson/soundify/internal/models"
	"github.com/joeychilson/soundify/internal/shared"
)

const judgeSystemPrompt = `You are a music metadata expert that decides whether two catalog entries describe the same recording.

You will receive a SoundCloud source track and a short list of Spotify candidates. Compare titles, artists, and durations. A remix, live version, cover, or karaoke rendition is NOT the same recording as the studio original. When in doubt, answer null: a wrong pick is worse than no pick.

Respond with a JSON object containing a single "candidate_id" field: the id of the matching candidate, or null if none of them is the same recording. Use only ids from the provided list.`

type judgeSource struct {
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	DurationMS int      `json:"duration_ms,omitempty"`
}

type judgeCandidate struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album,omitempty"`
	DurationMS int      `json:"duration_ms,omitempty"`
}

type judgeRequest struct {
	Source     judgeSource      `json:"source"`
	Candidates []judgeCandidate `json:"candidates"`
}

type judgeVerdict struct {
	CandidateID *string `json:"candidate_id"`
}

// Judge implements match.Judge on top of [Client]. The model's answer is
// parsed against the closed set of supplied candidate IDs; anything else is a
// verdict error the resolver handles with its conservative fallback.
type Judge struct {
	client *Client
	logger *log.Logger
}

// NewJudge wires a Judge around the given completion client.
func NewJudge(client *Client, logger *log.Logger) *Judge {
	return &Judge{client: client, logger: logger}
}

// Pick asks the model which candidate, if any, is the same recording as
// track. Returns "" for an explicit "none of these" verdict.
func (j *Judge) Pick(ctx context.Context, track models.SourceTrack, candidates []models.CandidateTrack) (string, error) {
	if len(candidates) == 0 {
		return "", nil
	}

	req := judgeRequest{
		Source: judgeSource{
			Title:      track.Title,
			Artists:    track.Artists,
			DurationMS: track.DurationMS,
		},
		Candidates: make([]judgeCandidate, len(candidates)),
	}
	valid := make(map[string]bool, len(candidates))
	for i, c := range candidates {
		req.Candidates[i] = judgeCandidate{
			ID:         c.ID,
			Title:      c.Title,
			Artists:    c.Artists,
			Album:      c.Album,
			DurationMS: c.DurationMS,
		}
		valid[c.ID] = true
	}

	prompt, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return "", fmt.Errorf("judge: marshal request: %w", err)
	}

	content, err := j.client.CompleteJSON(ctx, judgeSystemPrompt, string(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAIUnavailable, err)
	}

	var verdict judgeVerdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &verdict); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrBadVerdict, err)
	}
	if verdict.CandidateID == nil || *verdict.CandidateID == "" || strings.EqualFold(*verdict.CandidateID, "none") {
		return "", nil
	}
	if !valid[*verdict.CandidateID] {
		return "", fmt.Errorf("%w: id %q not offered", shared.ErrBadVerdict, *verdict.CandidateID)
	}

	if j.logger != nil {
		j.logger.Debug("judge picked candidate", "track", track.ID, "candidate", *verdict.CandidateID)
	}
	return *verdict.CandidateID, nil
}
