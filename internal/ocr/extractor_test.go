package ocr_test

import (
	"context"
	"errors"
	"testing"

	"github.com/JulesGR953/OptiScam-Framework/internal/media"
	"github.com/JulesGR953/OptiScam-Framework/internal/ocr"
	"github.com/JulesGR953/OptiScam-Framework/internal/services"
)

type fakePrimary struct {
	detections []ocr.Detection
	err        error
	calls      int
}

func (f *fakePrimary) DetectText(_ context.Context, _ string) ([]ocr.Detection, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]ocr.Detection, len(f.detections))
	copy(out, f.detections)
	return out, nil
}

type fakeFallback struct {
	regionReading ocr.Reading
	regionErr     error
	imageReading  ocr.Reading
	imageErr      error
	regionCalls   int
	imageCalls    int
}

func (f *fakeFallback) RecognizeRegion(_ context.Context, _ string, _ ocr.Region) (ocr.Reading, error) {
	f.regionCalls++
	return f.regionReading, f.regionErr
}

func (f *fakeFallback) RecognizeImage(_ context.Context, _ string) (ocr.Reading, error) {
	f.imageCalls++
	return f.imageReading, f.imageErr
}

func region() *ocr.Region {
	return &ocr.Region{{0, 0}, {100, 0}, {100, 40}, {0, 40}}
}

func TestExtractFrameHighConfidenceSkipsFallback(t *testing.T) {
	primary := &fakePrimary{detections: []ocr.Detection{
		{Text: "guaranteed returns", Confidence: 0.95, Region: region()},
	}}
	fallback := &fakeFallback{}
	extractor := ocr.NewExtractor(primary, fallback, 0.5, nil)

	detections, err := extractor.ExtractFrame(context.Background(), "/frames/f.png")
	if err != nil {
		t.Fatalf("ExtractFrame failed: %v", err)
	}
	if len(detections) != 1 || detections[0].Text != "guaranteed returns" {
		t.Fatalf("unexpected detections: %#v", detections)
	}
	if detections[0].Engine != ocr.EnginePrimary {
		t.Fatalf("expected primary engine, got %s", detections[0].Engine)
	}
	if fallback.regionCalls != 0 {
		t.Fatal("fallback should not be consulted above threshold")
	}
}

func TestExtractFrameLowConfidenceUsesFallback(t *testing.T) {
	primary := &fakePrimary{detections: []ocr.Detection{
		{Text: "gu4ranteed r3turns", Confidence: 0.3, Region: region()},
	}}
	fallback := &fakeFallback{regionReading: ocr.Reading{Text: "guaranteed returns", Confidence: 0.88}}
	extractor := ocr.NewExtractor(primary, fallback, 0.5, nil)

	detections, err := extractor.ExtractFrame(context.Background(), "/frames/f.png")
	if err != nil {
		t.Fatalf("ExtractFrame failed: %v", err)
	}
	if len(detections) != 1 {
		t.Fatalf("expected one detection, got %d", len(detections))
	}
	det := detections[0]
	if det.Text != "guaranteed returns" {
		t.Fatalf("expected fallback text, got %q", det.Text)
	}
	if det.Confidence != 0.88 {
		t.Fatalf("expected fallback confidence, got %.2f", det.Confidence)
	}
	if det.Region == nil {
		t.Fatal("primary region must be retained")
	}
	if det.Engine != ocr.EngineFallback {
		t.Fatalf("expected fallback engine, got %s", det.Engine)
	}
}

func TestExtractFrameEmptyFallbackKeepsPrimaryText(t *testing.T) {
	primary := &fakePrimary{detections: []ocr.Detection{
		{Text: "blurry text", Confidence: 0.2, Region: region()},
	}}
	fallback := &fakeFallback{regionReading: ocr.Reading{Text: "  ", Confidence: 0.1}}
	extractor := ocr.NewExtractor(primary, fallback, 0.5, nil)

	detections, err := extractor.ExtractFrame(context.Background(), "/frames/f.png")
	if err != nil {
		t.Fatalf("ExtractFrame failed: %v", err)
	}
	if len(detections) != 1 || detections[0].Text != "blurry text" {
		t.Fatalf("low-confidence detection must survive empty fallback: %#v", detections)
	}
	if detections[0].Engine != ocr.EnginePrimary {
		t.Fatalf("expected primary engine recorded, got %s", detections[0].Engine)
	}
}

func TestExtractFrameFallbackErrorKeepsPrimaryReading(t *testing.T) {
	primary := &fakePrimary{detections: []ocr.Detection{
		{Text: "send bitcoin", Confidence: 0.4, Region: region()},
	}}
	fallback := &fakeFallback{regionErr: errors.New("boom")}
	extractor := ocr.NewExtractor(primary, fallback, 0.5, nil)

	detections, err := extractor.ExtractFrame(context.Background(), "/frames/f.png")
	if err != nil {
		t.Fatalf("ExtractFrame failed: %v", err)
	}
	if len(detections) != 1 || detections[0].Text != "send bitcoin" {
		t.Fatalf("detection must survive fallback error: %#v", detections)
	}
}

func TestExtractFramePrimaryUnavailableDegradesToFallback(t *testing.T) {
	primary := &fakePrimary{err: services.Wrap(
		services.ErrEngineUnavailable, "extracting", "detect", "connection refused", nil)}
	fallback := &fakeFallback{imageReading: ocr.Reading{Text: "limited time offer", Confidence: 0.7}}
	extractor := ocr.NewExtractor(primary, fallback, 0.5, nil)

	detections, err := extractor.ExtractFrame(context.Background(), "/frames/f.png")
	if err != nil {
		t.Fatalf("ExtractFrame failed: %v", err)
	}
	if len(detections) != 1 {
		t.Fatalf("expected one whole-frame detection, got %d", len(detections))
	}
	if detections[0].Region != nil {
		t.Fatal("whole-frame fallback has no region")
	}
	if detections[0].Engine != ocr.EngineFallback {
		t.Fatalf("expected fallback engine, got %s", detections[0].Engine)
	}
	if fallback.imageCalls != 1 {
		t.Fatalf("expected one whole-frame call, got %d", fallback.imageCalls)
	}
}

func TestExtractFromFramesLatchesFallbackOnly(t *testing.T) {
	primary := &fakePrimary{err: services.Wrap(
		services.ErrEngineUnavailable, "extracting", "detect", "connection refused", nil)}
	fallback := &fakeFallback{imageReading: ocr.Reading{Text: "wire the fee", Confidence: 0.6}}
	extractor := ocr.NewExtractor(primary, fallback, 0.5, nil)

	frames := []media.Frame{
		{Index: 0, Timestamp: 0, Path: "/frames/a.png"},
		{Index: 30, Timestamp: 1, Path: "/frames/b.png"},
		{Index: 60, Timestamp: 2, Path: "/frames/c.png"},
	}
	detections, err := extractor.ExtractFromFrames(context.Background(), frames)
	if err != nil {
		t.Fatalf("ExtractFromFrames failed: %v", err)
	}
	if primary.calls != 1 {
		t.Fatalf("primary must not be retried after unavailability, got %d calls", primary.calls)
	}
	if fallback.imageCalls != len(frames) {
		t.Fatalf("every frame should reach the fallback, got %d calls", fallback.imageCalls)
	}
	if len(detections) != len(frames) {
		t.Fatalf("expected one detection per frame, got %d", len(detections))
	}
	for _, det := range detections {
		if det.Engine != ocr.EngineFallback {
			t.Fatalf("expected fallback engine, got %s", det.Engine)
		}
	}
}

func TestExtractFrameBothEnginesUnavailable(t *testing.T) {
	primary := &fakePrimary{err: services.Wrap(
		services.ErrEngineUnavailable, "extracting", "detect", "connection refused", nil)}
	fallback := &fakeFallback{imageErr: errors.New("connection refused")}
	extractor := ocr.NewExtractor(primary, fallback, 0.5, nil)

	_, err := extractor.ExtractFrame(context.Background(), "/frames/f.png")
	if !errors.Is(err, services.ErrEngineUnavailable) {
		t.Fatalf("expected engine unavailable, got %v", err)
	}
}

func TestExtractFromFramesStampsMetadata(t *testing.T) {
	primary := &fakePrimary{detections: []ocr.Detection{
		{Text: "act now", Confidence: 0.9, Region: region()},
	}}
	extractor := ocr.NewExtractor(primary, &fakeFallback{}, 0.5, nil)

	frames := []media.Frame{
		{Index: 0, Timestamp: 0, Path: "/frames/a.png"},
		{Index: 60, Timestamp: 2, Path: "/frames/b.png"},
	}
	detections, err := extractor.ExtractFromFrames(context.Background(), frames)
	if err != nil {
		t.Fatalf("ExtractFromFrames failed: %v", err)
	}
	if len(detections) != 2 {
		t.Fatalf("expected one detection per frame, got %d", len(detections))
	}
	if detections[0].FrameIndex != 0 || detections[1].FrameIndex != 60 {
		t.Fatalf("frame indexes not stamped: %#v", detections)
	}
	if detections[1].Timestamp != 2 {
		t.Fatalf("timestamp not stamped: %#v", detections[1])
	}
}

func TestBuildTimelineBucketsAndDeduplicates(t *testing.T) {
	detections := []ocr.Detection{
		{Text: "free money", Timestamp: 0.2},
		{Text: "free money", Timestamp: 0.8},
		{Text: "click the link", Timestamp: 0.9},
		{Text: "act now", Timestamp: 3.1},
		{Text: "", Timestamp: 3.5},
	}
	timeline := ocr.BuildTimeline(detections)
	if len(timeline) != 2 {
		t.Fatalf("expected two buckets, got %d", len(timeline))
	}
	if timeline[0].Second != 0 || len(timeline[0].Texts) != 2 {
		t.Fatalf("unexpected first bucket: %#v", timeline[0])
	}
	if timeline[1].Second != 3 || timeline[1].Texts[0] != "act now" {
		t.Fatalf("unexpected second bucket: %#v", timeline[1])
	}

	rendered := ocr.FormatTimeline(timeline)
	want := "[0s] free money | click the link\n[3s] act now"
	if rendered != want {
		t.Fatalf("unexpected render:\n%s", rendered)
	}
}
