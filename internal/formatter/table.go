package formatter

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/desertthunder/mixtape/internal/models"
)

// Alignment is the horizontal alignment of a table column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// RenderTable renders rows under headers with rounded borders. Short rows are padded with empty cells.
func RenderTable(headers []string, rows [][]string, aligns []Alignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == AlignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// TrackTable renders the per-track results of p.
func TrackTable(p *models.MatchedPlaylist) string {
	rows := make([][]string, 0, len(p.Tracks))
	for i, t := range p.Tracks {
		match, score := "-", ""
		if t.Matched {
			match = fmt.Sprintf("%s - %s", t.PlexArtist, t.PlexTitle)
			score = strconv.FormatFloat(t.Score, 'f', 1, 64)
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), t.Label(), match, score})
	}
	return RenderTable(
		[]string{"#", "Source Track", "Plex Match", "Score"},
		rows,
		[]Alignment{AlignRight, AlignLeft, AlignLeft, AlignRight},
	)
}

// PlaylistTable renders a summary row per stored matching run.
func PlaylistTable(playlists []*models.PersistedPlaylist) string {
	rows := make([][]string, 0, len(playlists))
	for _, p := range playlists {
		pl := p.Playlist()
		rows = append(rows, []string{
			strconv.Itoa(p.Sequence()),
			shortID(p.ID()),
			pl.Name,
			pl.Source,
			fmt.Sprintf("%d/%d", pl.MatchedCount, pl.TotalCount),
			p.UpdatedAt().Local().Format("2006-01-02 15:04"),
		})
	}
	return RenderTable(
		[]string{"#", "ID", "Name", "Source", "Matched", "Updated"},
		rows,
		[]Alignment{AlignRight, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft},
	)
}

// MixRunTable renders mix generation history.
func MixRunTable(runs []*models.MixRun) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := "skipped"
		if r.Created() {
			status = "created"
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Sequence()),
			r.RanAt().Local().Format("2006-01-02 15:04"),
			r.Title(),
			status,
			strconv.Itoa(r.TrackCount()),
			r.Reason(),
		})
	}
	return RenderTable(
		[]string{"#", "Ran", "Mix", "Status", "Tracks", "Reason"},
		rows,
		[]Alignment{AlignRight, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft},
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
