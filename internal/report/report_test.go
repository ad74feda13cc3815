package report_test

import (
	"context"
	"testing"

	"github.com/JulesGR953/OptiScam-Framework/internal/queue"
	"github.com/JulesGR953/OptiScam-Framework/internal/report"
)

func sampleJob() *queue.Job {
	return &queue.Job{
		ID:             7,
		Token:          "tok-123",
		Source:         "https://example.com/v/1",
		Title:          "Get Rich Fast",
		Mode:           "sampled",
		Status:         queue.StatusClassifying,
		FramesJSON:     `[{"index":0,"timestamp":0,"sharpness":140,"path":"/frames/a.png"}]`,
		DetectionsJSON: `[{"text":"send btc","confidence":0.9,"frame_index":0,"timestamp":0.5,"engine":"primary"}]`,
		TranscriptJSON: `{"language":"en","segments":[{"text":"hello","start":0,"end":1}]}`,
		VerdictJSON:    `{"scam":true,"confidence":0.91,"reasoning":"Demands crypto payment for vague returns.","mode":"sampled","model":"qwen-vl","frames_used":1}`,
	}
}

func TestAssembleBuildsTimeline(t *testing.T) {
	rep, err := report.Assemble(sampleJob())
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if rep.Token != "tok-123" || rep.Title != "Get Rich Fast" {
		t.Fatalf("job metadata missing: %#v", rep)
	}
	if !rep.Verdict.Scam || rep.Verdict.Confidence != 0.91 {
		t.Fatalf("verdict not decoded: %#v", rep.Verdict)
	}
	if rep.Verdict.Reasoning != "Demands crypto payment for vague returns." {
		t.Fatalf("verdict reasoning not carried into report: %#v", rep.Verdict)
	}
	if len(rep.Frames) != 1 || len(rep.Detections) != 1 {
		t.Fatalf("stage outputs not decoded: %#v", rep)
	}
	if len(rep.Timeline) != 1 || rep.Timeline[0].Texts[0] != "send btc" {
		t.Fatalf("timeline not derived: %#v", rep.Timeline)
	}
	if rep.GeneratedAt.IsZero() {
		t.Fatal("generated timestamp missing")
	}
}

func TestAssembleRejectsCorruptOutputs(t *testing.T) {
	job := sampleJob()
	job.VerdictJSON = "{broken"
	if _, err := report.Assemble(job); err == nil {
		t.Fatal("expected error for corrupt verdict json")
	}
}

func TestFileSinkRoundTrip(t *testing.T) {
	rep, err := report.Assemble(sampleJob())
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	sink := report.NewFileSink(t.TempDir())
	path, err := sink.Write(context.Background(), rep)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	loaded, err := report.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Token != rep.Token || loaded.Verdict != rep.Verdict {
		t.Fatalf("round trip mismatch: %#v", loaded)
	}
}
