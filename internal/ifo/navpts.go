package ifo

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// NavClockRate is the 90 kHz clock all VOB presentation timestamps use.
const NavClockRate = 90000

// navScanLimit bounds how much of the title VOB is inspected for first
// timestamps. Subpicture packets can appear late; 64 MiB covers the titles
// seen in practice without reading whole discs.
const navScanLimit = 64 << 20

// NavTimestamps holds the first presentation timestamp observed per
// elementary stream in the title's program stream, in 90 kHz clock ticks.
// Audio and Subpicture are ordered by ascending substream id, which is the
// disc's track order.
type NavTimestamps struct {
	Video      *int64
	Audio      []int64
	Subpicture []int64
}

// ReadNavTimestamps scans the beginning of the title's first VOB for the
// first PTS of each elementary stream. wantAudio/wantSubs bound the early
// exit: scanning stops once that many tracks (plus video) have been seen.
func ReadNavTimestamps(source string, title int, wantAudio, wantSubs int) (NavTimestamps, error) {
	videoTS, ok := locateVideoTS(source)
	if !ok {
		return NavTimestamps{}, fmt.Errorf("ifo: no VIDEO_TS under %s", source)
	}
	vts := titleSetNumber(videoTS, title)
	path := filepath.Join(videoTS, fmt.Sprintf("VTS_%02d_1.VOB", vts))
	file, err := os.Open(path)
	if err != nil {
		return NavTimestamps{}, err
	}
	defer file.Close()
	return scanFirstPTS(file, wantAudio, wantSubs)
}

func scanFirstPTS(r io.Reader, wantAudio, wantSubs int) (NavTimestamps, error) {
	data, err := io.ReadAll(io.LimitReader(r, navScanLimit))
	if err != nil {
		return NavTimestamps{}, err
	}

	var video *int64
	audio := map[byte]int64{}
	subs := map[byte]int64{}

	done := func() bool {
		return video != nil && len(audio) >= wantAudio && len(subs) >= wantSubs
	}

	for i := 0; i+9 < len(data) && !done(); {
		if data[i] != 0x00 || data[i+1] != 0x00 || data[i+2] != 0x01 {
			i++
			continue
		}
		streamID := data[i+3]
		if !isPESStream(streamID) {
			i += 4
			continue
		}
		pesLen := int(binary.BigEndian.Uint16(data[i+4:]))
		flags := data[i+7]
		headerLen := int(data[i+8])
		payloadStart := i + 9 + headerLen
		if payloadStart > len(data) {
			break
		}

		if flags&0x80 != 0 {
			if pts, ok := decodePTS(data[i+9:]); ok {
				recordPTS(streamID, data, payloadStart, pts, &video, audio, subs)
			}
		}

		if pesLen > 0 {
			i += 6 + pesLen
		} else {
			i = payloadStart + 1
		}
	}

	return NavTimestamps{
		Video:      video,
		Audio:      sortedBySubstream(audio),
		Subpicture: sortedBySubstream(subs),
	}, nil
}

func recordPTS(streamID byte, data []byte, payloadStart int, pts int64, video **int64, audio, subs map[byte]int64) {
	switch {
	case streamID >= 0xE0 && streamID <= 0xEF:
		if *video == nil {
			v := pts
			*video = &v
		}
	case streamID >= 0xC0 && streamID <= 0xDF:
		// MPEG audio: the stream id itself is the track id.
		if _, seen := audio[streamID&0x1F]; !seen {
			audio[streamID&0x1F] = pts
		}
	case streamID == 0xBD:
		// Private stream 1: first payload byte selects the substream.
		if payloadStart >= len(data) {
			return
		}
		sub := data[payloadStart]
		switch {
		case sub >= 0x80 && sub <= 0x8F, sub >= 0xA0 && sub <= 0xA7:
			// AC-3, DTS, and LPCM tracks.
			if _, seen := audio[sub&0x07]; !seen {
				audio[sub&0x07] = pts
			}
		case sub >= 0x20 && sub <= 0x3F:
			if _, seen := subs[sub&0x1F]; !seen {
				subs[sub&0x1F] = pts
			}
		}
	}
}

func isPESStream(id byte) bool {
	switch {
	case id == 0xBD:
		return true
	case id >= 0xC0 && id <= 0xEF:
		return true
	default:
		return false
	}
}

// decodePTS extracts the 33-bit presentation timestamp from the five bytes
// following a PES header with the PTS flag set.
func decodePTS(b []byte) (int64, bool) {
	if len(b) < 5 {
		return 0, false
	}
	prefix := b[0] >> 4
	if prefix != 0x2 && prefix != 0x3 {
		return 0, false
	}
	if b[0]&0x01 != 1 || b[2]&0x01 != 1 || b[4]&0x01 != 1 {
		return 0, false
	}
	pts := int64(b[0]>>1&0x07) << 30
	pts |= int64(b[1]) << 22
	pts |= int64(b[2]>>1) << 15
	pts |= int64(b[3]) << 7
	pts |= int64(b[4] >> 1)
	return pts, true
}

func sortedBySubstream(m map[byte]int64) []int64 {
	if len(m) == 0 {
		return nil
	}
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[byte(id)])
	}
	return out
}

// HasVideoTS reports whether the source looks like a DVD directory layout
// the navigation reader can use.
func HasVideoTS(source string) bool {
	_, ok := locateVideoTS(strings.TrimSpace(source))
	return ok
}
