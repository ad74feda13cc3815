package source_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JulesGR953/OptiScam-Framework/internal/services"
	"github.com/JulesGR953/OptiScam-Framework/internal/source"
	"github.com/JulesGR953/OptiScam-Framework/internal/testsupport"
)

func TestIsURL(t *testing.T) {
	cases := []struct {
		source string
		want   bool
	}{
		{"https://example.com/watch?v=abc", true},
		{"HTTP://EXAMPLE.COM/clip", true},
		{"/videos/example.mp4", false},
		{"relative/path.mp4", false},
		{"ftp://example.com/clip", false},
	}
	for _, tc := range cases {
		if got := source.IsURL(tc.source); got != tc.want {
			t.Errorf("IsURL(%q) = %v, want %v", tc.source, got, tc.want)
		}
	}
}

func TestLocalProviderValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crypto_giveaway-promo.mp4")
	testsupport.WriteFile(t, path, 128)

	provider := source.NewLocalProvider()
	resolved, err := provider.Fetch(context.Background(), path, "")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if resolved.LocalPath != path {
		t.Fatalf("unexpected local path: %s", resolved.LocalPath)
	}
	if resolved.Title != "Crypto Giveaway Promo" {
		t.Fatalf("unexpected title: %q", resolved.Title)
	}
}

func TestLocalProviderMissingFile(t *testing.T) {
	provider := source.NewLocalProvider()
	_, err := provider.Fetch(context.Background(), "/nonexistent/video.mp4", "")
	if !errors.Is(err, services.ErrSourceUnreadable) {
		t.Fatalf("expected source unreadable, got %v", err)
	}
}

func TestLocalProviderDirectory(t *testing.T) {
	provider := source.NewLocalProvider()
	_, err := provider.Fetch(context.Background(), t.TempDir(), "")
	if !errors.Is(err, services.ErrSourceUnreadable) {
		t.Fatalf("expected source unreadable for directory, got %v", err)
	}
}

func TestTitleFromPath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/videos/quick.cash.scheme.mp4", "Quick Cash Scheme"},
		{"/videos/hello_world.mkv", "Hello World"},
		{"/videos/.mp4", "Untitled Video"},
	}
	for _, tc := range cases {
		if got := source.TitleFromPath(tc.path); got != tc.want {
			t.Errorf("TitleFromPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestDownloaderParsesMetadata(t *testing.T) {
	destDir := t.TempDir()
	downloaded := filepath.Join(destDir, "video.mp4")

	downloader := source.NewDownloader("")
	downloader.WithCommandOutput(func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != source.YtDlpCommand {
			t.Errorf("expected yt-dlp, got %s", name)
		}
		joined := strings.Join(args, " ")
		if !strings.Contains(joined, "--print-json") || !strings.Contains(joined, "--no-playlist") {
			t.Errorf("unexpected args: %s", joined)
		}
		payload, _ := json.Marshal(map[string]string{
			"title":       "Get Rich Fast",
			"description": "DM me to invest",
			"_filename":   downloaded,
		})
		return payload, nil
	})

	resolved, err := downloader.Fetch(context.Background(), "https://example.com/v/1", destDir)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if resolved.LocalPath != downloaded {
		t.Fatalf("unexpected local path: %s", resolved.LocalPath)
	}
	if resolved.Title != "Get Rich Fast" || resolved.Description != "DM me to invest" {
		t.Fatalf("metadata not captured: %#v", resolved)
	}
}

func TestDownloaderFailureIsSourceUnreadable(t *testing.T) {
	downloader := source.NewDownloader("")
	downloader.WithCommandOutput(func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, errors.New("HTTP Error 404")
	})

	_, err := downloader.Fetch(context.Background(), "https://example.com/gone", t.TempDir())
	if !errors.Is(err, services.ErrSourceUnreadable) {
		t.Fatalf("expected source unreadable, got %v", err)
	}
}

func TestResolverDispatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	testsupport.WriteFile(t, path, 64)

	downloader := source.NewDownloader("")
	downloader.WithCommandOutput(func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		payload, _ := json.Marshal(map[string]string{"_filename": path})
		return payload, nil
	})
	resolver := source.NewResolver(source.NewLocalProvider(), downloader)

	local, err := resolver.Fetch(context.Background(), path, dir)
	if err != nil || local.LocalPath != path {
		t.Fatalf("local dispatch failed: %#v err %v", local, err)
	}

	remote, err := resolver.Fetch(context.Background(), "https://example.com/v/2", dir)
	if err != nil || remote.LocalPath != path {
		t.Fatalf("remote dispatch failed: %#v err %v", remote, err)
	}
}
