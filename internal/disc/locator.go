// Package disc finds DVD sources, enumerates their titles through the
// probe tool, and handles drive tray control.
package disc

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SourceKind distinguishes the supported DVD source layouts.
type SourceKind string

const (
	// SourceImage is a raw .iso disc image.
	SourceImage SourceKind = "image"
	// SourceDirectory is a directory tree containing VIDEO_TS.
	SourceDirectory SourceKind = "directory"
	// SourceDevice is an optical drive device node with a disc loaded.
	SourceDevice SourceKind = "device"
)

// Source is one locatable DVD source.
type Source struct {
	Path string
	Kind SourceKind
}

// Name returns a human-facing name for the source.
func (s Source) Name() string {
	base := filepath.Base(s.Path)
	if s.Kind == SourceImage {
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return base
}

// Locate resolves a path to DVD sources. A regular file must be an .iso
// image, a device node is taken as a loaded optical drive, and a
// directory is either itself a DVD layout (VIDEO_TS present) or is walked
// for images and DVD layouts beneath it. Results are sorted by path.
func Locate(path string) ([]Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("disc locate: %w", err)
	}
	if !info.IsDir() {
		if info.Mode()&os.ModeDevice != 0 {
			return []Source{{Path: path, Kind: SourceDevice}}, nil
		}
		if !isImage(path) {
			return nil, fmt.Errorf("disc locate: %s is not a DVD image", path)
		}
		return []Source{{Path: path, Kind: SourceImage}}, nil
	}
	if hasVideoTS(path) {
		return []Source{{Path: path, Kind: SourceDirectory}}, nil
	}

	var sources []Source
	err = filepath.WalkDir(path, func(entry string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if entry != path && hasVideoTS(entry) {
				sources = append(sources, Source{Path: entry, Kind: SourceDirectory})
				return fs.SkipDir
			}
			return nil
		}
		if isImage(entry) {
			sources = append(sources, Source{Path: entry, Kind: SourceImage})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("disc locate: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("disc locate: no DVD sources under %s", path)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Path < sources[j].Path })
	return sources, nil
}

func isImage(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".iso")
}

func hasVideoTS(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "VIDEO_TS"))
	if err == nil && info.IsDir() {
		return true
	}
	// Some rips keep the layout lowercased.
	info, err = os.Stat(filepath.Join(dir, "video_ts"))
	return err == nil && info.IsDir()
}
