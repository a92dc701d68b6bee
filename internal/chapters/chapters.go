// Package chapters models Matroska chapter lists: parsing and rendering
// the chapter XML document, building lists from probe output, and
// normalizing boundaries so the muxer accepts them.
package chapters

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"remuxkit/internal/media/ffprobe"
	"remuxkit/internal/timing"
)

// Chapter is one chapter marker with nanosecond timestamps.
type Chapter struct {
	StartNS  int64
	EndNS    int64
	Name     string
	Language string
}

// Duration returns the chapter length.
func (c Chapter) Duration() time.Duration {
	return time.Duration(c.EndNS-c.StartNS) * time.Nanosecond
}

type xmlDocument struct {
	XMLName  xml.Name     `xml:"Chapters"`
	Editions []xmlEdition `xml:"EditionEntry"`
}

type xmlEdition struct {
	Atoms []xmlAtom `xml:"ChapterAtom"`
}

type xmlAtom struct {
	TimeStart string       `xml:"ChapterTimeStart"`
	TimeEnd   string       `xml:"ChapterTimeEnd"`
	Displays  []xmlDisplay `xml:"ChapterDisplay"`
}

type xmlDisplay struct {
	ChapterString   string `xml:"ChapterString"`
	ChapterLanguage string `xml:"ChapterLanguage"`
}

// ParseXML decodes a Matroska chapter document. Element matching is by
// local name, so namespaced documents parse the same as plain ones. Only
// the first edition is used.
func ParseXML(payload []byte) ([]Chapter, error) {
	var doc xmlDocument
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("chapters: parse xml: %w", err)
	}
	if len(doc.Editions) == 0 {
		return nil, nil
	}
	atoms := doc.Editions[0].Atoms
	list := make([]Chapter, 0, len(atoms))
	for i, atom := range atoms {
		start, err := parseTimestamp(atom.TimeStart)
		if err != nil {
			return nil, fmt.Errorf("chapters: atom %d: %w", i, err)
		}
		chapter := Chapter{StartNS: start}
		if strings.TrimSpace(atom.TimeEnd) != "" {
			end, err := parseTimestamp(atom.TimeEnd)
			if err != nil {
				return nil, fmt.Errorf("chapters: atom %d: %w", i, err)
			}
			chapter.EndNS = end
		}
		if len(atom.Displays) > 0 {
			chapter.Name = atom.Displays[0].ChapterString
			chapter.Language = atom.Displays[0].ChapterLanguage
		}
		list = append(list, chapter)
	}
	return list, nil
}

// RenderXML encodes a chapter list as a single-edition Matroska chapter
// document.
func RenderXML(list []Chapter) ([]byte, error) {
	edition := xmlEdition{Atoms: make([]xmlAtom, 0, len(list))}
	for _, chapter := range list {
		atom := xmlAtom{
			TimeStart: formatTimestamp(chapter.StartNS),
			TimeEnd:   formatTimestamp(chapter.EndNS),
		}
		if chapter.Name != "" {
			lang := chapter.Language
			if lang == "" {
				lang = "und"
			}
			atom.Displays = []xmlDisplay{{ChapterString: chapter.Name, ChapterLanguage: lang}}
		}
		edition.Atoms = append(edition.Atoms, atom)
	}
	doc := xmlDocument{Editions: []xmlEdition{edition}}
	payload, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("chapters: render xml: %w", err)
	}
	return append([]byte(xml.Header), append(payload, '\n')...), nil
}

// FromProbe builds a chapter list from probe chapter entries, converting
// each entry's timebase to nanoseconds.
func FromProbe(entries []ffprobe.Chapter) []Chapter {
	list := make([]Chapter, 0, len(entries))
	for _, entry := range entries {
		num, den := timing.ParseTimebase(entry.TimeBase)
		chapter := Chapter{
			StartNS: scaleToNS(entry.Start, num, den),
			EndNS:   scaleToNS(entry.End, num, den),
		}
		if entry.Tags != nil {
			chapter.Name = entry.Tags["title"]
		}
		list = append(list, chapter)
	}
	return list
}

func scaleToNS(value, num, den int64) int64 {
	if den == 0 {
		return 0
	}
	seconds := float64(value) * float64(num) / float64(den)
	return int64(seconds * float64(time.Second))
}

// Shift moves every chapter boundary forward by the given delay. Used to
// keep chapters aligned when the video track itself is delayed.
func Shift(list []Chapter, delayMS int) []Chapter {
	if delayMS == 0 || len(list) == 0 {
		return list
	}
	offset := int64(delayMS) * int64(time.Millisecond)
	shifted := make([]Chapter, len(list))
	for i, chapter := range list {
		chapter.StartNS += offset
		chapter.EndNS += offset
		shifted[i] = chapter
	}
	return shifted
}

// Renumber assigns sequential "Chapter NN" names, replacing whatever names
// the source carried.
func Renumber(list []Chapter) []Chapter {
	renamed := make([]Chapter, len(list))
	for i, chapter := range list {
		chapter.Name = fmt.Sprintf("Chapter %02d", i+1)
		renamed[i] = chapter
	}
	return renamed
}

// parseTimestamp decodes HH:MM:SS[.fraction] into nanoseconds.
func parseTimestamp(value string) (int64, error) {
	cleaned := strings.TrimSpace(value)
	parts := strings.Split(cleaned, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	var hours, minutes int
	var seconds float64
	if _, err := fmt.Sscanf(cleaned, "%d:%d:%f", &hours, &minutes, &seconds); err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || seconds < 0 || seconds >= 60 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	total := float64(hours)*3600 + float64(minutes)*60 + seconds
	return int64(total * float64(time.Second)), nil
}

func formatTimestamp(ns int64) string {
	if ns < 0 {
		ns = 0
	}
	total := ns / int64(time.Second)
	frac := ns % int64(time.Second)
	return fmt.Sprintf("%02d:%02d:%02d.%09d", total/3600, (total%3600)/60, total%60, frac)
}
