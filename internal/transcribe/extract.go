package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNoAudio indicates the source video carries no audio stream.
var ErrNoAudio = errors.New("no audio stream")

// ExtractAudio extracts the first audio stream from a video as a mono 16kHz
// WAV file suitable for WhisperX. Sources without audio return ErrNoAudio.
func ExtractAudio(ctx context.Context, ffmpegBinary, source, dest string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	cmd := exec.CommandContext(ctx, ffmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		text := strings.TrimSpace(string(output))
		if isNoAudioOutput(text) {
			return ErrNoAudio
		}
		return fmt.Errorf("ffmpeg extract: %w: %s", err, text)
	}
	return nil
}

func isNoAudioOutput(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "matches no streams") ||
		strings.Contains(lower, "does not contain any stream") ||
		strings.Contains(lower, "stream map '0:a:0' matches no streams")
}
