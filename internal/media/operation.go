// Package media wraps ffmpeg and ffprobe behind typed video operations.
//
// Each operation only knows how to describe itself as an ffmpeg argument list.
// Running it is the job of a Runner, so the engines that compose operations
// can be tested without ffmpeg installed.
package media

import (
	"fmt"
	"strconv"
	"strings"
)

// Operation is a single ffmpeg invocation producing one output file.
type Operation interface {
	// Name labels logs and metrics.
	Name() string
	// Args is the ffmpeg argument list, without the binary and global flags.
	Args() []string
	// Output is the file the operation writes.
	Output() string
}

// Encoding is the common target format of every clip in a video.
type Encoding struct {
	Width      int
	Height     int
	FPS        int
	SampleRate int
}

// DefaultEncoding is a vertical 1080x1920 short at 30 fps.
var DefaultEncoding = Encoding{Width: 1080, Height: 1920, FPS: 30, SampleRate: 44100}

func (e Encoding) videoCodecArgs() []string {
	return []string{
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "20",
		"-pix_fmt", "yuv420p",
	}
}

func seconds(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}

// Normalize re-encodes a clip to a fixed resolution, frame rate, pixel format
// and audio layout. Clips without audio get a silent stereo track so every
// input of a concat list has the same streams.
type Normalize struct {
	Input    string
	Out      string
	Encoding Encoding
	HasAudio bool
}

func (o Normalize) Name() string   { return "normalize" }
func (o Normalize) Output() string { return o.Out }

func (o Normalize) Args() []string {
	e := o.Encoding
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black,setsar=1,fps=%d,format=yuv420p",
		e.Width, e.Height, e.Width, e.Height, e.FPS,
	)

	args := []string{"-i", o.Input}
	if !o.HasAudio {
		args = append(args,
			"-f", "lavfi",
			"-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", e.SampleRate),
		)
	}
	args = append(args, "-map", "0:v:0")
	if o.HasAudio {
		args = append(args, "-map", "0:a:0")
	} else {
		args = append(args, "-map", "1:a:0", "-shortest")
	}
	args = append(args, "-vf", vf)
	args = append(args, e.videoCodecArgs()...)
	args = append(args,
		"-r", strconv.Itoa(e.FPS),
		"-g", strconv.Itoa(e.FPS),
		"-video_track_timescale", "90000",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", strconv.Itoa(e.SampleRate),
		"-ac", "2",
		"-movflags", "+faststart",
		o.Out,
	)
	return args
}

// Concat joins pre-normalized files listed in a concat demuxer list without
// re-encoding.
type Concat struct {
	ListFile string
	Out      string
}

func (o Concat) Name() string   { return "concat" }
func (o Concat) Output() string { return o.Out }

func (o Concat) Args() []string {
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", o.ListFile,
		"-c", "copy",
		"-movflags", "+faststart",
		o.Out,
	}
}

// BlackFlash paints the whole frame black for Duration seconds starting at
// each of the given timestamps.
type BlackFlash struct {
	Input    string
	Out      string
	At       []float64
	Duration float64
	Encoding Encoding
}

func (o BlackFlash) Name() string   { return "black_flash" }
func (o BlackFlash) Output() string { return o.Out }

// Filter returns the drawbox chain.
func (o BlackFlash) Filter() string {
	parts := make([]string, 0, len(o.At))
	for _, at := range o.At {
		parts = append(parts, fmt.Sprintf(
			"drawbox=x=0:y=0:w=iw:h=ih:color=black:t=fill:enable='between(t,%s,%s)'",
			seconds(at), seconds(at+o.Duration),
		))
	}
	return strings.Join(parts, ",")
}

func (o BlackFlash) Args() []string {
	args := []string{"-i", o.Input, "-vf", o.Filter()}
	args = append(args, o.Encoding.videoCodecArgs()...)
	return append(args, "-c:a", "copy", "-movflags", "+faststart", o.Out)
}

// Window is a time range of an overlay with a slide-in animation at its start.
type Window struct {
	Start     float64
	Duration  float64
	SlideTime float64
}

func (w Window) end() float64 { return w.Start + w.Duration }

func (w Window) slide() float64 {
	if w.SlideTime <= 0 {
		return 0.4
	}
	return w.SlideTime
}

// slideX moves an element from the right edge to restX over the slide time.
func (w Window) slideX(frameW, restX string) string {
	return fmt.Sprintf("if(lt(t,%s),%s-(%s-(%s))*(t-%s)/%s,%s)",
		seconds(w.Start+w.slide()), frameW, frameW, restX, seconds(w.Start), seconds(w.slide()), restX)
}

func (w Window) enable() string {
	return fmt.Sprintf("between(t,%s,%s)", seconds(w.Start), seconds(w.end()))
}

// ImageCardOverlay slides a data-card image in from the right and holds it
// centred in the lower third until the window closes.
type ImageCardOverlay struct {
	Input    string
	Image    string
	Out      string
	Window   Window
	Encoding Encoding
}

func (o ImageCardOverlay) Name() string   { return "image_card" }
func (o ImageCardOverlay) Output() string { return o.Out }

// Filter returns the filter graph.
func (o ImageCardOverlay) Filter() string {
	cardW := o.Encoding.Width * 4 / 5
	return fmt.Sprintf(
		"[1:v]scale=%d:-1[card];[0:v][card]overlay=x='%s':y=main_h*0.62:enable='%s'[v]",
		cardW, o.Window.slideX("main_w", "(main_w-overlay_w)/2"), o.Window.enable(),
	)
}

func (o ImageCardOverlay) Args() []string {
	args := []string{
		"-i", o.Input,
		"-i", o.Image,
		"-filter_complex", o.Filter(),
		"-map", "[v]", "-map", "0:a?",
	}
	args = append(args, o.Encoding.videoCodecArgs()...)
	return append(args, "-c:a", "copy", "-movflags", "+faststart", o.Out)
}

// TextCardOverlay renders a title and a few lines on a translucent panel that
// slides in from the right.
type TextCardOverlay struct {
	Input    string
	Out      string
	Title    string
	Lines    []string
	FontFile string
	Window   Window
	Encoding Encoding
}

func (o TextCardOverlay) Name() string   { return "text_card" }
func (o TextCardOverlay) Output() string { return o.Out }

// Filter returns the drawbox and drawtext chain.
func (o TextCardOverlay) Filter() string {
	e := o.Encoding
	panelW := e.Width * 4 / 5
	panelX := (e.Width - panelW) / 2
	lineH := 64
	panelH := lineH*(len(o.Lines)+1) + 48
	panelY := e.Height*62/100 - panelH/2
	enable := o.Window.enable()

	font := ""
	if o.FontFile != "" {
		font = "fontfile='" + escapeFilterValue(o.FontFile) + "':"
	}

	// The panel stays in place while the text slides.
	parts := []string{fmt.Sprintf(
		"drawbox=x=%d:y=%d:w=%d:h=%d:color=black@0.6:t=fill:enable='%s'",
		panelX, panelY, panelW, panelH, enable,
	)}
	x := o.Window.slideX("w", strconv.Itoa(panelX+32))
	parts = append(parts, fmt.Sprintf(
		"drawtext=%stext='%s':fontcolor=yellow:fontsize=52:x='%s':y=%d:enable='%s'",
		font, escapeDrawtext(o.Title), x, panelY+24, enable,
	))
	for i, line := range o.Lines {
		parts = append(parts, fmt.Sprintf(
			"drawtext=%stext='%s':fontcolor=white:fontsize=44:x='%s':y=%d:enable='%s'",
			font, escapeDrawtext(line), x, panelY+24+lineH*(i+1), enable,
		))
	}
	return strings.Join(parts, ",")
}

func (o TextCardOverlay) Args() []string {
	args := []string{"-i", o.Input, "-vf", o.Filter()}
	args = append(args, o.Encoding.videoCodecArgs()...)
	return append(args, "-c:a", "copy", "-movflags", "+faststart", o.Out)
}

// SubtitleStyle is the ASS force_style of burned subtitles.
type SubtitleStyle struct {
	Font     string
	FontSize int
	MarginV  int
}

// BurnSubtitles renders an SRT file into the picture.
type BurnSubtitles struct {
	Input    string
	SRTPath  string
	Out      string
	Style    SubtitleStyle
	Encoding Encoding
}

func (o BurnSubtitles) Name() string   { return "burn_subtitles" }
func (o BurnSubtitles) Output() string { return o.Out }

// Filter returns the subtitles filter with its style.
func (o BurnSubtitles) Filter() string {
	s := o.Style
	if s.Font == "" {
		s.Font = "Arial"
	}
	if s.FontSize <= 0 {
		s.FontSize = 18
	}
	if s.MarginV <= 0 {
		s.MarginV = 60
	}
	return fmt.Sprintf(
		"subtitles='%s':force_style='FontName=%s,FontSize=%d,Bold=1,PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,Outline=3,Alignment=2,MarginV=%d'",
		escapeFilterValue(o.SRTPath), s.Font, s.FontSize, s.MarginV,
	)
}

func (o BurnSubtitles) Args() []string {
	args := []string{"-i", o.Input, "-vf", o.Filter()}
	args = append(args, o.Encoding.videoCodecArgs()...)
	return append(args, "-c:a", "copy", "-movflags", "+faststart", o.Out)
}

// escapeFilterValue quotes a value placed inside single quotes of a filter
// option, such as a file path.
func escapeFilterValue(s string) string {
	s = strings.ReplaceAll(s, "\\", "/")
	s = strings.ReplaceAll(s, "'", `'\''`)
	return strings.ReplaceAll(s, ":", `\:`)
}

// escapeDrawtext escapes text for drawtext's text option.
func escapeDrawtext(s string) string {
	r := strings.NewReplacer(
		`\`, `\\\\`,
		`'`, `'\\\''`,
		`:`, `\:`,
		`%`, `\%`,
		`,`, `\,`,
	)
	return r.Replace(s)
}
