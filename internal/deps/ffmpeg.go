package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// MediaRequirements lists the ffmpeg and ffprobe binaries the pipeline
// executes. ffprobe is resolved with ResolveFFprobe.
func MediaRequirements(ffmpegCommand, ffprobeCommand string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpegCommand,
			Description: "Required to compose video and audio",
		},
		{
			Name:        "FFprobe",
			Command:     ResolveFFprobe(ffmpegCommand, ffprobeCommand),
			Description: "Required to measure audio and video durations",
		},
	}
}

// ResolveFFprobe returns the ffprobe command to execute. A configured value
// that resolves on PATH wins; otherwise an ffprobe sitting next to the ffmpeg
// binary is used, matching how static ffmpeg builds ship both tools.
func ResolveFFprobe(ffmpegCommand, ffprobeCommand string) string {
	probe := strings.TrimSpace(ffprobeCommand)
	if probe == "" {
		probe = "ffprobe"
	}
	if _, err := exec.LookPath(probe); err == nil {
		return probe
	}
	ffmpeg := strings.TrimSpace(ffmpegCommand)
	if ffmpeg == "" {
		return probe
	}
	resolved, err := exec.LookPath(ffmpeg)
	if err != nil {
		return probe
	}
	if sibling := siblingBinary(resolved, "ffprobe"); sibling != "" {
		return sibling
	}
	return probe
}

func siblingBinary(path, name string) string {
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	candidate := filepath.Join(filepath.Dir(path), name)
	info, err := os.Stat(candidate)
	if err != nil || !isExecutable(info) {
		return ""
	}
	return candidate
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
