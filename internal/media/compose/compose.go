package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Composer combines one video and one audio file into an output clip cut at
// trimEnd seconds.
type Composer interface {
	Compose(ctx context.Context, videoPath, audioPath string, trimEnd float64, outputPath string) error
}

// FFmpeg implements Composer with the ffmpeg command line tool.
type FFmpeg struct {
	Path       string
	VideoCodec string
	AudioCodec string
}

// NewFFmpeg returns an FFmpeg composer. Empty values fall back to "ffmpeg"
// on PATH and libx264/aac.
func NewFFmpeg(path, videoCodec, audioCodec string) *FFmpeg {
	if strings.TrimSpace(path) == "" {
		path = "ffmpeg"
	}
	if strings.TrimSpace(videoCodec) == "" {
		videoCodec = "libx264"
	}
	if strings.TrimSpace(audioCodec) == "" {
		audioCodec = "aac"
	}
	return &FFmpeg{Path: path, VideoCodec: videoCodec, AudioCodec: audioCodec}
}

// Available checks if ffmpeg is executable.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.Path)
	return err == nil
}

// Args returns the ffmpeg argument list used to write partialPath. The
// output length is exactly trimEnd: audio that runs longer is cut there and
// audio that ends earlier leaves the rest of the video silent.
func (f *FFmpeg) Args(videoPath, audioPath string, trimEnd float64, partialPath string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-t", strconv.FormatFloat(trimEnd, 'f', 3, 64),
		"-c:v", f.VideoCodec,
		"-c:a", f.AudioCodec,
		"-movflags", "+faststart",
		"-f", "mp4",
		partialPath,
	}
}

// Compose writes outputPath via a sibling ".part" file so a failed or
// cancelled run never leaves a truncated clip under the final name.
func (f *FFmpeg) Compose(ctx context.Context, videoPath, audioPath string, trimEnd float64, outputPath string) error {
	if trimEnd <= 0 {
		return fmt.Errorf("compose: trim end must be positive, got %v", trimEnd)
	}
	if strings.TrimSpace(outputPath) == "" {
		return errors.New("compose: empty output path")
	}

	partial := outputPath + ".part"
	cmd := exec.CommandContext(ctx, f.Path, f.Args(videoPath, audioPath, trimEnd, partial)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(partial)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg compose: %w", ctxErr)
		}
		return fmt.Errorf("ffmpeg compose: %w: %s", err, lastLine(stderr.String()))
	}
	if err := os.Rename(partial, outputPath); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("ffmpeg compose: finalize output: %w", err)
	}
	return nil
}

func lastLine(output string) string {
	output = strings.TrimSpace(output)
	if idx := strings.LastIndexByte(output, '\n'); idx >= 0 {
		return strings.TrimSpace(output[idx+1:])
	}
	return output
}
