package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/JulesGR953/OptiScam-Framework/internal/services"
)

var titleCaser = cases.Title(language.English)

// LocalProvider validates a video that already lives on disk.
type LocalProvider struct{}

// NewLocalProvider constructs a LocalProvider.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

// Fetch checks the path is a readable regular file. The destination directory
// is unused; local videos are analyzed in place.
func (p *LocalProvider) Fetch(ctx context.Context, source, _ string) (Resolved, error) {
	if err := ctx.Err(); err != nil {
		return Resolved{}, err
	}

	info, err := os.Stat(source)
	if err != nil {
		return Resolved{}, services.Wrap(
			services.ErrSourceUnreadable, "downloading", "stat source",
			fmt.Sprintf("cannot access %s", source), err)
	}
	if info.IsDir() {
		return Resolved{}, services.Wrap(
			services.ErrSourceUnreadable, "downloading", "stat source",
			fmt.Sprintf("%s is a directory", source), nil)
	}

	f, err := os.Open(source)
	if err != nil {
		return Resolved{}, services.Wrap(
			services.ErrSourceUnreadable, "downloading", "open source",
			fmt.Sprintf("cannot read %s", source), err)
	}
	_ = f.Close()

	return Resolved{
		LocalPath: source,
		Title:     TitleFromPath(source),
	}, nil
}

// TitleFromPath derives a human-readable title from a video filename.
func TitleFromPath(path string) string {
	base := strings.TrimSpace(filepath.Base(path))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Untitled Video"
	}
	return titleCaser.String(base)
}
