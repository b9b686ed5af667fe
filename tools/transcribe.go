// Video Transcription tool.
//
// Information Hiding:
// - yt-dlp invocation details and temp-file lifecycle internal
// - Caption-format parsing internal
// - The caption-versus-audio decision is not visible to the model; it
//   only sees transcript text or a failure description

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// captionLangs is the subtitle language preference, most preferred first.
var captionLangs = []string{"en", "ja", "zh-Hans", "zh-Hant", "zh-TW"}

// SpeechToText transcribes an audio file. Implemented by
// llm.WhisperTranscriber.
type SpeechToText interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// TranscribeTool turns a video URL into transcript text. Uploaded captions
// are preferred, then auto-generated ones; when the video has neither, the
// audio track is downloaded and run through speech-to-text.
type TranscribeTool struct {
	speech SpeechToText
	binary string
}

// NewTranscribeTool creates a transcription tool. speech may be nil, in
// which case caption-less videos fail with a description instead of
// falling back to audio.
func NewTranscribeTool(speech SpeechToText) *TranscribeTool {
	return &TranscribeTool{speech: speech, binary: "yt-dlp"}
}

// Descriptor returns the tool's schema.
func (t *TranscribeTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "transcribe_video",
		DisplayName: "Video Transcription",
		Description: "Get the transcript of a video URL (YouTube and most other sites). Use when the user asks about the content of a video.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "The video URL",
				},
			},
			"required": []string{"url"},
		},
		Strict: true,
	}
}

type transcribeArgs struct {
	URL string `json:"url"`
}

// Execute downloads captions or audio into a temp directory, which is
// always removed before returning.
func (t *TranscribeTool) Execute(ctx context.Context, args json.RawMessage) ToolResult {
	var parsed transcribeArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return FailureResultf("invalid transcribe_video arguments: %v", err)
	}
	videoURL := strings.TrimSpace(parsed.URL)
	if videoURL == "" {
		return FailureResultf("transcribe_video requires a non-empty url")
	}

	workDir, err := os.MkdirTemp("", "hermes-transcribe-*")
	if err != nil {
		return FailureResultf("could not create work directory: %v", err)
	}
	defer os.RemoveAll(workDir)

	// Uploaded captions first, auto-generated second.
	for _, flag := range []string{"--write-sub", "--write-auto-sub"} {
		transcript, err := t.captionTranscript(ctx, workDir, videoURL, flag)
		if err == nil && transcript != "" {
			return SuccessResult(transcript)
		}
	}

	if t.speech == nil {
		return FailureResultf("video has no captions and no speech-to-text backend is configured")
	}
	transcript, err := t.audioTranscript(ctx, workDir, videoURL)
	if err != nil {
		return FailureResultf("transcription failed: %v", err)
	}
	return SuccessResult(transcript)
}

// captionTranscript asks yt-dlp for subtitles only and parses whichever
// caption file appears.
func (t *TranscribeTool) captionTranscript(ctx context.Context, workDir, videoURL, subFlag string) (string, error) {
	cmd := exec.CommandContext(ctx, t.binary,
		"--skip-download",
		subFlag,
		"--sub-langs", strings.Join(captionLangs, ","),
		"--convert-subs", "srt",
		"-o", filepath.Join(workDir, "captions.%(ext)s"),
		videoURL,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("yt-dlp: %v: %s", err, firstLine(out))
	}

	path, err := pickCaptionFile(workDir)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	transcript := srtToPlainText(string(raw))
	if transcript == "" {
		return "", fmt.Errorf("caption file %s was empty", filepath.Base(path))
	}
	return transcript, nil
}

// audioTranscript downloads the audio track and hands it to the
// speech-to-text backend.
func (t *TranscribeTool) audioTranscript(ctx context.Context, workDir, videoURL string) (string, error) {
	cmd := exec.CommandContext(ctx, t.binary,
		"-f", "bestaudio",
		"--extract-audio",
		"--audio-format", "mp3",
		"-o", filepath.Join(workDir, "audio.%(ext)s"),
		videoURL,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("yt-dlp audio download: %v: %s", err, firstLine(out))
	}

	matches, err := filepath.Glob(filepath.Join(workDir, "audio.*"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no audio file was produced")
	}
	return t.speech.Transcribe(ctx, matches[0])
}

// pickCaptionFile returns the caption file in dir matching the most
// preferred language, falling back to any .srt file.
func pickCaptionFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".srt") {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no caption file was produced")
	}

	for _, lang := range captionLangs {
		for _, name := range names {
			if strings.HasSuffix(name, "."+lang+".srt") {
				return filepath.Join(dir, name), nil
			}
		}
	}
	return filepath.Join(dir, names[0]), nil
}

// srtTiming matches cue timing lines like
// "00:00:01,000 --> 00:00:04,000".
var srtTiming = regexp.MustCompile(`^\d{2}:\d{2}:\d{2},\d{3}\s*-->\s*\d{2}:\d{2}:\d{2},\d{3}`)

// srtSequence matches cue sequence-number lines.
var srtSequence = regexp.MustCompile(`^\d+$`)

// srtToPlainText strips SRT framing down to the spoken text. Consecutive
// duplicate lines collapse, since auto-generated captions repeat each line
// across cue boundaries.
func srtToPlainText(srt string) string {
	var lines []string
	var previous string
	for _, line := range strings.Split(srt, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || srtSequence.MatchString(line) || srtTiming.MatchString(line) {
			continue
		}
		if line == previous {
			continue
		}
		lines = append(lines, line)
		previous = line
	}
	return strings.Join(lines, "\n")
}

func firstLine(out []byte) string {
	text := strings.TrimSpace(string(out))
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return text
}

// Verify TranscribeTool implements Tool
var _ Tool = (*TranscribeTool)(nil)
