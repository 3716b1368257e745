// package formatter provides functions to export matched playlists to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gosimple/slug"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Format is an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or its file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q (use csv, markdown, txt or json)", shared.ErrInvalidFlag, s)
	}
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// ExportToCSV converts a MatchedPlaylist to CSV with one row per source track, in playlist order.
//
// Columns: Position, Title, Artist, Album, Matched, Rating Key, Plex Title, Plex Artist, Score
func ExportToCSV(p *models.MatchedPlaylist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Title", "Artist", "Album", "Matched", "Rating Key", "Plex Title", "Plex Artist", "Score"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range p.Tracks {
		score := ""
		if track.Matched {
			score = strconv.FormatFloat(track.Score, 'f', 1, 64)
		}
		record := []string{
			strconv.Itoa(i + 1),
			track.Title,
			track.Artist,
			track.Album,
			strconv.FormatBool(track.Matched),
			track.PlexRatingKey,
			track.PlexTitle,
			track.PlexArtist,
			score,
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

// ExportToMarkdown converts a MatchedPlaylist to Markdown with separate matched and unmatched sections.
func ExportToMarkdown(p *models.MatchedPlaylist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", p.Description)
	}
	if p.Source != "" {
		fmt.Fprintf(&buf, "**Source**: %s\n", p.Source)
	}
	fmt.Fprintf(&buf, "**Matched**: %d of %d (%s)\n\n", p.MatchedCount, p.TotalCount, Percent(p.MatchedCount, p.TotalCount))

	buf.WriteString("## Matched\n\n")
	n := 0
	for _, track := range p.Tracks {
		if !track.Matched {
			continue
		}
		n++
		fmt.Fprintf(&buf, "%d. %s → %s - %s [%.1f]\n", n, track.Label(), track.PlexArtist, track.PlexTitle, track.Score)
	}
	if n == 0 {
		buf.WriteString("_None_\n")
	}

	unmatched := p.Unmatched()
	if len(unmatched) > 0 {
		buf.WriteString("\n## Unmatched\n\n")
		for i, track := range unmatched {
			albumPart := ""
			if track.Album != "" {
				albumPart = fmt.Sprintf(" (%s)", track.Album)
			}
			fmt.Fprintf(&buf, "%d. %s%s\n", i+1, track.Label(), albumPart)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a MatchedPlaylist to plain text, marking each track matched or not.
func ExportToText(p *models.MatchedPlaylist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(&buf, "Matched: %d/%d\n\n", p.MatchedCount, p.TotalCount)

	for i, track := range p.Tracks {
		mark := " "
		if track.Matched {
			mark = "x"
		}
		fmt.Fprintf(&buf, "[%s] %d. %s\n", mark, i+1, track.Label())
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a MatchedPlaylist to indented JSON.
func ExportToJSON(p *models.MatchedPlaylist) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Export renders p in format f.
func Export(p *models.MatchedPlaylist, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(p)
	case FormatMarkdown:
		return ExportToMarkdown(p)
	case FormatText:
		return ExportToText(p)
	case FormatJSON:
		return ExportToJSON(p)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, f)
	}
}

// FileName derives an export file name from a playlist name, e.g. "Road Trip '24" → "road-trip-24.csv".
func FileName(name string, f Format) string {
	base := slug.Make(name)
	if base == "" {
		base = "playlist"
	}
	return base + "." + f.Ext()
}

// WriteExport writes p to path in format f. An empty path derives a file name in the current directory;
// a path naming an existing directory places the derived file name inside it.
func WriteExport(p *models.MatchedPlaylist, f Format, path string) (string, error) {
	data, err := Export(p, f)
	if err != nil {
		return "", err
	}

	switch info, err := os.Stat(path); {
	case path == "":
		path = FileName(p.Name, f)
	case err == nil && info.IsDir():
		path = filepath.Join(path, FileName(p.Name, f))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// Percent renders n of total as a whole-number percentage.
func Percent(n, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.0f%%", float64(n)/float64(total)*100)
}
