package ifo

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// buildVTS assembles a minimal synthetic VTS_nn_0.IFO image: magic header,
// video/audio/subpicture attribute blocks at their fixed offsets, and a
// one-PGC table carrying a palette.
func buildVTS(t *testing.T) []byte {
	t.Helper()
	data := make([]byte, 3*sectorSize)
	copy(data, []byte("DVDVIDEO-VTS"))

	// 16:9 video.
	data[vtsVideoAttrs] = 3 << 2

	// Two audio tracks: AC-3 5.1 English commentary-flagged, MPEG-1 stereo French.
	binary.BigEndian.PutUint16(data[vtsAudioCount:], 2)
	a0 := data[vtsAudioAttrs:]
	a0[0] = 0 << 5 // ac3
	a0[1] = 5      // 6 channels
	a0[2], a0[3] = 'e', 'n'
	a0[5] = 3 // director commentary
	a1 := data[vtsAudioAttrs+audioAttrSize:]
	a1[0] = 2 << 5 // mpeg1
	a1[1] = 1      // 2 channels
	a1[2], a1[3] = 'f', 'r'
	a1[5] = 1 // normal

	// One forced English subtitle.
	binary.BigEndian.PutUint16(data[vtsSubpicCount:], 1)
	s0 := data[vtsSubpicAttrs:]
	s0[2], s0[3] = 'e', 'n'
	s0[5] = 9

	// PGC table in sector 1, PGC body at +0x20 from table start.
	binary.BigEndian.PutUint32(data[vtsPGCIPointer:], 1)
	table := sectorSize
	binary.BigEndian.PutUint16(data[table:], 1)
	binary.BigEndian.PutUint32(data[table+12:], 0x20)
	palette := table + 0x20 + pgcPaletteOffset
	for i := 0; i < 16; i++ {
		// Mid-gray: Y=128, Cr=Cb=128.
		data[palette+i*4+1] = 128
		data[palette+i*4+2] = 128
		data[palette+i*4+3] = 128
	}
	return data
}

func writeDisc(t *testing.T, vts []byte) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "VIDEO_TS")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "VTS_01_0.IFO"), vts, 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestReadTitleParsesAttributeBlocks(t *testing.T) {
	root := writeDisc(t, buildVTS(t))

	info, err := ReadTitle(root, 1)
	if err != nil {
		t.Fatalf("ReadTitle: %v", err)
	}
	if info.AspectRatio != "16:9" {
		t.Fatalf("aspect = %q", info.AspectRatio)
	}
	if len(info.Audio) != 2 {
		t.Fatalf("audio tracks = %d", len(info.Audio))
	}
	first := info.Audio[0]
	if first.CodingMode != "ac3" || first.Channels != 6 || first.Language != "en" || first.Application != 3 {
		t.Fatalf("first audio = %+v", first)
	}
	second := info.Audio[1]
	if second.CodingMode != "mpeg1" || second.Channels != 2 || second.Language != "fr" {
		t.Fatalf("second audio = %+v", second)
	}
	if len(info.Subtitles) != 1 || !info.Subtitles[0].Forced() || info.Subtitles[0].Language != "en" {
		t.Fatalf("subtitles = %+v", info.Subtitles)
	}
	if len(info.Palette) != 16 {
		t.Fatalf("palette entries = %d", len(info.Palette))
	}
	// Mid-gray YCbCr converts to a neutral gray.
	entry := info.Palette[0]
	if entry.R != entry.G || entry.G != entry.B {
		t.Fatalf("expected neutral gray, got %+v", entry)
	}
}

func TestReadTitleMissingLayoutYieldsEmptyResult(t *testing.T) {
	info, err := ReadTitle(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("ReadTitle: %v", err)
	}
	if !info.Empty() {
		t.Fatalf("expected empty result, got %+v", info)
	}
}

func TestReadTitleBadMagicIsNonFatal(t *testing.T) {
	data := buildVTS(t)
	copy(data, []byte("NOTADVD-____"))
	root := writeDisc(t, data)

	info, err := ReadTitle(root, 1)
	if err != nil {
		t.Fatalf("ReadTitle: %v", err)
	}
	if !info.Empty() {
		t.Fatalf("expected empty result for bad magic, got %+v", info)
	}
}

func TestReadTitleRejectsInvalidTitle(t *testing.T) {
	if _, err := ReadTitle("/tmp", 0); err == nil {
		t.Fatal("expected error for title 0")
	}
}

func TestYCbCrToRGBPrimaries(t *testing.T) {
	white := ycbcrToRGB(235, 128, 128)
	if white.R < 250 || white.G < 250 || white.B < 250 {
		t.Fatalf("white = %+v", white)
	}
	black := ycbcrToRGB(16, 128, 128)
	if black.R != 0 || black.G != 0 || black.B != 0 {
		t.Fatalf("black = %+v", black)
	}
	if got := white.Hex(); got != "#ffffff" {
		t.Fatalf("hex = %q", got)
	}
}
