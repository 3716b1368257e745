package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

const FileSourceName = "file"

// FileSource reads playlists from YAML or JSON files of the form
//
//	name: Road Trip
//	tracks:
//	  - title: Hurt
//	    artist: Johnny Cash
//
// The playlist id is the file path, relative paths resolve against the source's directory.
type FileSource struct {
	dir string
}

// NewFileSource creates a [FileSource] rooted at dir. An empty dir uses the working directory.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

func (f *FileSource) Name() string {
	return FileSourceName
}

func (f *FileSource) FetchPlaylist(ctx context.Context, id string) (*models.ExternalPlaylist, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: playlist file", shared.ErrMissingArgument)
	}

	path := id
	if !filepath.IsAbs(path) && f.dir != "" {
		path = filepath.Join(f.dir, path)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist file: %w", err)
	}
	return ParsePlaylistFile(data, path)
}

// ParsePlaylistFile decodes a playlist document. Tracks without a title are dropped.
func ParsePlaylistFile(data []byte, path string) (*models.ExternalPlaylist, error) {
	var doc models.ExternalPlaylist
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", shared.ErrInvalidInput, path, err)
	}

	tracks := doc.Tracks[:0]
	for _, t := range doc.Tracks {
		t.Title = strings.TrimSpace(t.Title)
		t.Artist = strings.TrimSpace(t.Artist)
		if t.Title == "" {
			continue
		}
		tracks = append(tracks, t)
	}
	doc.Tracks = tracks

	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if doc.ID == "" {
		doc.ID = path
	}
	doc.Source = FileSourceName
	return &doc, nil
}
