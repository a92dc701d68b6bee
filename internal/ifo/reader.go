// Package ifo reads selected fixed-offset fields of DVD navigation files
// directly from disc sectors, independent of any decoder. It is a
// best-effort enrichment source: any field that cannot be read is left at
// its zero value rather than failing the caller.
package ifo

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	sectorSize = 2048

	vmgMagic = "DVDVIDEO-VMG"
	vtsMagic = "DVDVIDEO-VTS"

	// VMG fixed offsets.
	vmgTitleTablePointer = 0x00C4 // sector pointer to TT_SRPT

	// VTS fixed offsets.
	vtsPGCIPointer    = 0x00CC // sector pointer to VTS_PGCIT
	vtsVideoAttrs     = 0x0200
	vtsAudioCount     = 0x0202
	vtsAudioAttrs     = 0x0204
	vtsSubpicCount    = 0x0254
	vtsSubpicAttrs    = 0x0256
	pgcPaletteOffset  = 0x00A4
	titleEntrySize    = 12
	audioAttrSize     = 8
	subpicAttrSize    = 6
	maxAudioTracks    = 8
	maxSubtitleTracks = 32
)

// AudioTrack is one audio attribute block from the navigation file.
type AudioTrack struct {
	CodingMode string // "ac3", "mpeg1", "mpeg2", "lpcm", "dts", or ""
	Channels   int
	Language   string
	// Application is the DVD audio code extension: 0 unspecified, 1 normal,
	// 2 visually impaired, 3/4 director commentary.
	Application byte
}

// Commentary reports whether the application code marks commentary content.
func (t AudioTrack) Commentary() bool { return t.Application == 3 || t.Application == 4 }

// SubtitleTrack is one subpicture attribute block from the navigation file.
type SubtitleTrack struct {
	Language string
	// Extension is the DVD subpicture code extension. The pipeline maps
	// 9 to forced, 5/6 to closed captions, 13/14 to commentary.
	Extension byte
}

// Forced reports whether the extension code marks a forced-display track.
func (t SubtitleTrack) Forced() bool { return t.Extension == 9 }

// ClosedCaptions reports whether the extension code marks caption content.
func (t SubtitleTrack) ClosedCaptions() bool { return t.Extension == 5 || t.Extension == 6 }

// Commentary reports whether the extension code marks commentary content.
func (t SubtitleTrack) Commentary() bool { return t.Extension == 13 || t.Extension == 14 }

// TitleInfo is the best-effort navigation metadata for one DVD title.
// Absent data is represented by empty slices and strings.
type TitleInfo struct {
	AspectRatio string // "4:3", "16:9", or ""
	Audio       []AudioTrack
	Subtitles   []SubtitleTrack
	Palette     []RGB // 16 entries when read, nil otherwise
}

// Empty reports whether no navigation data was recovered at all.
func (t TitleInfo) Empty() bool {
	return t.AspectRatio == "" && len(t.Audio) == 0 && len(t.Subtitles) == 0 && len(t.Palette) == 0
}

// ReadTitle locates the navigation file for the given title under a
// VIDEO_TS-style directory and extracts its fixed-offset fields. Sources
// without a readable VIDEO_TS layout (ISO images included) yield the empty
// result and no error; only a title number out of range is reported.
func ReadTitle(source string, title int) (TitleInfo, error) {
	if title <= 0 {
		return TitleInfo{}, fmt.Errorf("ifo: invalid title %d", title)
	}
	videoTS, ok := locateVideoTS(source)
	if !ok {
		return TitleInfo{}, nil
	}

	vts := titleSetNumber(videoTS, title)
	data, err := readNavigationFile(filepath.Join(videoTS, fmt.Sprintf("VTS_%02d_0.IFO", vts)), vtsMagic)
	if err != nil {
		return TitleInfo{}, nil
	}

	info := TitleInfo{
		AspectRatio: parseAspect(data),
		Audio:       parseAudioTracks(data),
		Subtitles:   parseSubtitleTracks(data),
		Palette:     parsePalette(data),
	}
	return info, nil
}

func locateVideoTS(source string) (string, bool) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", false
	}
	if strings.EqualFold(filepath.Base(source), "VIDEO_TS") {
		if info, err := os.Stat(source); err == nil && info.IsDir() {
			return source, true
		}
		return "", false
	}
	candidate := filepath.Join(source, "VIDEO_TS")
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate, true
	}
	return "", false
}

// titleSetNumber maps a title number to its VTS number via the VMG title
// table. Falls back to the title number itself when the VMG is unreadable,
// which matches single-title-set discs.
func titleSetNumber(videoTS string, title int) int {
	data, err := readNavigationFile(filepath.Join(videoTS, "VIDEO_TS.IFO"), vmgMagic)
	if err != nil {
		return title
	}
	if vmgTitleTablePointer+4 > len(data) {
		return title
	}
	tableStart := int(binary.BigEndian.Uint32(data[vmgTitleTablePointer:])) * sectorSize
	if tableStart+8 > len(data) {
		return title
	}
	count := int(binary.BigEndian.Uint16(data[tableStart:]))
	if title > count {
		return title
	}
	entry := tableStart + 8 + (title-1)*titleEntrySize
	if entry+titleEntrySize > len(data) {
		return title
	}
	vts := int(data[entry+6])
	if vts <= 0 {
		return title
	}
	return vts
}

func readNavigationFile(path, magic string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < vtsSubpicAttrs || !strings.HasPrefix(string(data[:12]), magic) {
		return nil, fmt.Errorf("ifo: %s: bad magic", filepath.Base(path))
	}
	return data, nil
}

func parseAspect(data []byte) string {
	if vtsVideoAttrs+2 > len(data) {
		return ""
	}
	switch (data[vtsVideoAttrs] >> 2) & 0x03 {
	case 0:
		return "4:3"
	case 3:
		return "16:9"
	default:
		return ""
	}
}

func parseAudioTracks(data []byte) []AudioTrack {
	count := attrCount(data, vtsAudioCount, maxAudioTracks)
	if count == 0 {
		return nil
	}
	tracks := make([]AudioTrack, 0, count)
	for i := 0; i < count; i++ {
		off := vtsAudioAttrs + i*audioAttrSize
		if off+audioAttrSize > len(data) {
			break
		}
		tracks = append(tracks, AudioTrack{
			CodingMode:  audioCodingMode((data[off] >> 5) & 0x07),
			Channels:    int(data[off+1]&0x07) + 1,
			Language:    languageCode(data[off+2], data[off+3]),
			Application: data[off+5],
		})
	}
	return tracks
}

func parseSubtitleTracks(data []byte) []SubtitleTrack {
	count := attrCount(data, vtsSubpicCount, maxSubtitleTracks)
	if count == 0 {
		return nil
	}
	tracks := make([]SubtitleTrack, 0, count)
	for i := 0; i < count; i++ {
		off := vtsSubpicAttrs + i*subpicAttrSize
		if off+subpicAttrSize > len(data) {
			break
		}
		tracks = append(tracks, SubtitleTrack{
			Language:  languageCode(data[off+2], data[off+3]),
			Extension: data[off+5],
		})
	}
	return tracks
}

func attrCount(data []byte, offset, max int) int {
	if offset+2 > len(data) {
		return 0
	}
	count := int(binary.BigEndian.Uint16(data[offset:]))
	if count < 0 || count > max {
		return 0
	}
	return count
}

func audioCodingMode(code byte) string {
	switch code {
	case 0:
		return "ac3"
	case 2:
		return "mpeg1"
	case 3:
		return "mpeg2"
	case 4:
		return "lpcm"
	case 6:
		return "dts"
	default:
		return ""
	}
}

func languageCode(hi, lo byte) string {
	if hi < 'a' || hi > 'z' || lo < 'a' || lo > 'z' {
		// Some discs store the code uppercased.
		hi |= 0x20
		lo |= 0x20
		if hi < 'a' || hi > 'z' || lo < 'a' || lo > 'z' {
			return ""
		}
	}
	return string([]byte{hi, lo})
}

// parsePalette reads the 16-entry subpicture color table from the first
// program chain. Returns nil when the PGC table cannot be located.
func parsePalette(data []byte) []RGB {
	if vtsPGCIPointer+4 > len(data) {
		return nil
	}
	tableStart := int(binary.BigEndian.Uint32(data[vtsPGCIPointer:])) * sectorSize
	if tableStart <= 0 || tableStart+16 > len(data) {
		return nil
	}
	// PGCIT entries start at +8; each is 4 bytes category then 4 bytes
	// offset from the table start.
	pgcOffset := int(binary.BigEndian.Uint32(data[tableStart+12:]))
	pgc := tableStart + pgcOffset
	paletteStart := pgc + pgcPaletteOffset
	if paletteStart+16*4 > len(data) {
		return nil
	}
	palette := make([]RGB, 16)
	for i := 0; i < 16; i++ {
		off := paletteStart + i*4
		palette[i] = ycbcrToRGB(data[off+1], data[off+3], data[off+2])
	}
	return palette
}
