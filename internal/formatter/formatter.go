// package formatter renders migration run reports in plain text, CSV, and Markdown
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/joeychilson/soundify/internal/models"
	"github.com/joeychilson/soundify/internal/repositories"
)

// ReportToText converts a run summary to a plain text report: counters first,
// then one line per unmatched track with its reason.
func ReportToText(summary *models.RunSummary) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Run: %s\n", summary.RunID))
	if summary.Playlist != nil {
		buf.WriteString(fmt.Sprintf("Playlist: %s\n", summary.Playlist.Name))
		if summary.Playlist.URL != "" {
			buf.WriteString(fmt.Sprintf("URL: %s\n", summary.Playlist.URL))
		}
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n", summary.Total()))
	buf.WriteString(fmt.Sprintf("Matched: %d\n", summary.Matched))
	buf.WriteString(fmt.Sprintf("AI resolved: %d\n", summary.AIResolved))
	buf.WriteString(fmt.Sprintf("Unmatched: %d\n", summary.Unmatched))
	buf.WriteString(fmt.Sprintf("Errored: %d\n", summary.Errored))

	unmatched := unmatchedResults(summary)
	if len(unmatched) > 0 {
		buf.WriteString("\nUnmatched tracks:\n")
		for i, result := range unmatched {
			buf.WriteString(fmt.Sprintf("%d. %s - %s (%s)\n", i+1, result.SourceArtist, result.SourceTitle, result.Reason))
		}
	}

	return buf.Bytes()
}

// ReportToCSV converts per-track results to CSV with columns:
// Position, SourceID, Title, Artist, CandidateID, Tier, Score, Reason
func ReportToCSV(summary *models.RunSummary) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "SourceID", "Title", "Artist", "CandidateID", "Tier", "Score", "Reason"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, result := range summary.Results {
		record := []string{
			strconv.Itoa(i + 1),
			result.SourceTrackID,
			result.SourceTitle,
			result.SourceArtist,
			result.CandidateID,
			string(result.Tier),
			strconv.FormatFloat(result.Score, 'f', 3, 64),
			result.Reason,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportToMarkdown converts a run summary to Markdown
func ReportToMarkdown(summary *models.RunSummary) []byte {
	var buf bytes.Buffer

	title := "Migration Run"
	if summary.Playlist != nil {
		title = summary.Playlist.Name
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))

	if summary.Playlist != nil && summary.Playlist.URL != "" {
		buf.WriteString(fmt.Sprintf("[Open playlist](%s)\n\n", summary.Playlist.URL))
	}

	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", summary.Total()))
	buf.WriteString(fmt.Sprintf("**Matched**: %d\n", summary.Matched))
	buf.WriteString(fmt.Sprintf("**AI resolved**: %d\n", summary.AIResolved))
	buf.WriteString(fmt.Sprintf("**Unmatched**: %d\n", summary.Unmatched))
	buf.WriteString(fmt.Sprintf("**Errored**: %d\n\n", summary.Errored))

	unmatched := unmatchedResults(summary)
	if len(unmatched) > 0 {
		buf.WriteString("## Unmatched\n\n")
		for i, result := range unmatched {
			buf.WriteString(fmt.Sprintf("%d. %s - %s `%s`\n", i+1, result.SourceArtist, result.SourceTitle, result.Reason))
		}
	}

	return buf.Bytes()
}

// RunsToText converts run history records to an aligned plain text table
func RunsToText(runs []repositories.RunRecord) []byte {
	var buf bytes.Buffer

	if len(runs) == 0 {
		buf.WriteString("No runs recorded.\n")
		return buf.Bytes()
	}

	buf.WriteString(fmt.Sprintf("%-36s  %-19s  %7s  %7s  %4s  %9s  %7s\n",
		"ID", "Started", "Tracks", "Matched", "AI", "Unmatched", "Errored"))
	for _, run := range runs {
		buf.WriteString(fmt.Sprintf("%-36s  %-19s  %7d  %7d  %4d  %9d  %7d\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Total,
			run.Matched,
			run.AIResolved,
			run.Unmatched,
			run.Errored,
		))
	}

	return buf.Bytes()
}

func unmatchedResults(summary *models.RunSummary) []models.MatchResult {
	var unmatched []models.MatchResult
	for _, result := range summary.Results {
		if !result.Matched() {
			unmatched = append(unmatched, result)
		}
	}
	return unmatched
}
