package tools

import "runtime"

// installHints suggests how to get a missing tool on the current platform.
func installHints(tool string) []string {
	switch tool {
	case "pitch":
		return []string{"Set pitch.command in the config to an executable on PATH or an absolute path"}
	case "ffmpeg":
		return ffmpegHints(runtime.GOOS)
	}
	return nil
}

func ffmpegHints(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"brew install ffmpeg"}
	case "linux":
		return []string{"Install the ffmpeg package of your distribution, e.g. sudo apt install ffmpeg"}
	case "windows":
		return []string{"winget install Gyan.FFmpeg", "choco install ffmpeg"}
	}
	return []string{"Install ffmpeg 4.0 or newer from https://ffmpeg.org/download.html"}
}
