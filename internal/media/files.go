package media

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"presenter-studio/internal/models"
)

// WriteConcatList writes a concat demuxer list with files in the given order.
// Entries are written as absolute paths; ffmpeg resolves relative entries
// against the directory of the list, not the working directory.
func WriteConcatList(path string, files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("concat list is empty")
	}
	var b strings.Builder
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		// Single quotes close, escape and reopen inside a quoted path.
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// ValidateCues checks that cues are non-empty, ordered and non-overlapping.
func ValidateCues(cues []models.Cue) error {
	if len(cues) == 0 {
		return fmt.Errorf("no subtitle cues")
	}
	prevEnd := 0.0
	for i, c := range cues {
		switch {
		case math.IsNaN(c.Start) || math.IsNaN(c.End):
			return fmt.Errorf("cue %d: invalid time", i+1)
		case c.Start < 0:
			return fmt.Errorf("cue %d: negative start %.3f", i+1, c.Start)
		case c.End <= c.Start:
			return fmt.Errorf("cue %d: end %.3f is not after start %.3f", i+1, c.End, c.Start)
		case c.Start < prevEnd:
			return fmt.Errorf("cue %d: starts at %.3f before the previous cue ends at %.3f", i+1, c.Start, prevEnd)
		case strings.TrimSpace(c.Text) == "":
			return fmt.Errorf("cue %d: empty text", i+1)
		}
		prevEnd = c.End
	}
	return nil
}

// WriteSRT validates cues and writes them as SubRip.
func WriteSRT(path string, cues []models.Cue) error {
	if err := ValidateCues(cues); err != nil {
		return err
	}
	var b strings.Builder
	for i, c := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, srtTime(c.Start), srtTime(c.End), strings.TrimSpace(c.Text))
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func srtTime(sec float64) string {
	ms := int64(math.Round(sec * 1000))
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

var srtTiming = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})[,.](\d{3})\s+-->\s+(\d{2}):(\d{2}):(\d{2})[,.](\d{3})`)

// ParseSRT reads SubRip cues strictly: any malformed block is an error.
func ParseSRT(r io.Reader) ([]models.Cue, error) {
	sc := bufio.NewScanner(r)
	var (
		cues  []models.Cue
		block []string
		line  int
	)
	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		defer func() { block = block[:0] }()
		if len(block) < 3 {
			return fmt.Errorf("line %d: incomplete cue", line)
		}
		if _, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(block[0], "\ufeff"))); err != nil {
			return fmt.Errorf("line %d: bad cue number %q", line, block[0])
		}
		m := srtTiming.FindStringSubmatch(strings.TrimSpace(block[1]))
		if m == nil {
			return fmt.Errorf("line %d: bad timing %q", line, block[1])
		}
		cues = append(cues, models.Cue{
			Start: clock(m[1], m[2], m[3], m[4]),
			End:   clock(m[5], m[6], m[7], m[8]),
			Text:  strings.Join(block[2:], "\n"),
		})
		return nil
	}

	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		block = append(block, text)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if err := ValidateCues(cues); err != nil {
		return nil, err
	}
	return cues, nil
}

func clock(h, m, s, ms string) float64 {
	hi, _ := strconv.Atoi(h)
	mi, _ := strconv.Atoi(m)
	si, _ := strconv.Atoi(s)
	msi, _ := strconv.Atoi(ms)
	return float64(hi*3600+mi*60+si) + float64(msi)/1000
}
