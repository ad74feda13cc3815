package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/JulesGR953/OptiScam-Framework/internal/services"
)

// YtDlpCommand is the downloader binary name.
const YtDlpCommand = "yt-dlp"

// Downloader fetches remote videos with the local yt-dlp binary.
type Downloader struct {
	binaryPath    string
	commandOutput func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewDownloader creates a Downloader. An empty binaryPath uses yt-dlp from
// PATH.
func NewDownloader(binaryPath string) *Downloader {
	if binaryPath == "" {
		binaryPath = YtDlpCommand
	}
	return &Downloader{binaryPath: binaryPath}
}

// WithCommandOutput sets a custom command runner (for testing).
func (d *Downloader) WithCommandOutput(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	d.commandOutput = runner
}

type ytDlpInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Filename    string `json:"_filename"`
}

// Fetch downloads the video into destDir and returns its local path plus the
// published metadata.
func (d *Downloader) Fetch(ctx context.Context, source, destDir string) (Resolved, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return Resolved{}, fmt.Errorf("create download dir: %w", err)
	}

	template := filepath.Join(destDir, "video.%(ext)s")
	args := []string{
		"--no-warnings",
		"--no-playlist",
		"--print-json",
		"-f", "b",
		"-o", template,
		source,
	}

	output, err := d.run(ctx, args...)
	if err != nil {
		return Resolved{}, services.Wrap(
			services.ErrSourceUnreadable, "downloading", "yt-dlp",
			fmt.Sprintf("download of %s failed", source), err)
	}

	info, err := parseInfo(output)
	if err != nil {
		return Resolved{}, services.Wrap(
			services.ErrSourceUnreadable, "downloading", "parse metadata",
			fmt.Sprintf("yt-dlp output for %s unusable", source), err)
	}
	if info.Filename == "" {
		return Resolved{}, services.Wrap(
			services.ErrSourceUnreadable, "downloading", "parse metadata",
			fmt.Sprintf("yt-dlp reported no output file for %s", source), nil)
	}

	return Resolved{
		LocalPath:   info.Filename,
		Title:       strings.TrimSpace(info.Title),
		Description: strings.TrimSpace(info.Description),
	}, nil
}

func (d *Downloader) run(ctx context.Context, args ...string) ([]byte, error) {
	if d.commandOutput != nil {
		return d.commandOutput(ctx, d.binaryPath, args...)
	}
	cmd := exec.CommandContext(ctx, d.binaryPath, args...) //nolint:gosec
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", d.binaryPath, err, strings.TrimSpace(stderr.String()))
	}
	return out.Bytes(), nil
}

func parseInfo(output []byte) (ytDlpInfo, error) {
	var info ytDlpInfo
	// --print-json emits one JSON object per line; take the first.
	for _, line := range bytes.Split(output, []byte("\n")) {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		if err := json.Unmarshal(trimmed, &info); err != nil {
			return info, fmt.Errorf("parse yt-dlp json: %w", err)
		}
		return info, nil
	}
	return info, fmt.Errorf("empty yt-dlp output")
}
