package workflow

import (
	"context"
	"testing"

	"github.com/JulesGR953/OptiScam-Framework/internal/logging"
	"github.com/JulesGR953/OptiScam-Framework/internal/testsupport"
)

func TestHealthChecksDetectStubbedBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	svcs := NewServices(cfg, logging.NewNop())

	checks := svcs.HealthChecks(context.Background())
	ready := make(map[string]bool, len(checks))
	for _, check := range checks {
		ready[check.Name] = check.Ready
	}
	for _, name := range []string{"ffmpeg", "yt-dlp", "whisperx"} {
		if !ready[name] {
			t.Errorf("binary check %q not ready", name)
		}
	}
}
