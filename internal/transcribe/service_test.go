package transcribe_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JulesGR953/OptiScam-Framework/internal/transcribe"
)

func TestTranscribeRunsExtractionThenWhisperX(t *testing.T) {
	workDir := t.TempDir()
	svc := transcribe.NewService(transcribe.Config{Model: "tiny", Language: "English"}, "ffmpeg")

	var commands [][]string
	svc.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		commands = append(commands, append([]string{name}, args...))
		if name == transcribe.UVXCommand {
			payload := map[string]any{
				"language": "en",
				"segments": []map[string]any{
					{"text": " Hello there. ", "start": 0.0, "end": 1.5, "words": []map[string]any{
						{"word": "Hello", "start": 0.0, "end": 0.6, "score": 0.98},
						{"word": "there.", "start": 0.6, "end": 1.4, "score": 0.95},
					}},
					{"text": "Send me money.", "start": 1.5, "end": 3.0},
				},
			}
			data, _ := json.Marshal(payload)
			if err := os.WriteFile(filepath.Join(workDir, "audio.json"), data, 0o644); err != nil {
				t.Fatalf("write fake output: %v", err)
			}
		}
		return nil
	})

	transcript, err := svc.Transcribe(context.Background(), "/videos/example.mp4", workDir)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if len(commands) != 2 {
		t.Fatalf("expected ffmpeg then uvx, got %d commands", len(commands))
	}
	if commands[0][0] != "ffmpeg" {
		t.Fatalf("expected ffmpeg first, got %s", commands[0][0])
	}
	joined := strings.Join(commands[1], " ")
	if !strings.Contains(joined, "whisperx") || !strings.Contains(joined, "--model tiny") {
		t.Fatalf("unexpected whisperx invocation: %s", joined)
	}
	if !strings.Contains(joined, "--language en") {
		t.Fatalf("language hint should be ISO-639-1: %s", joined)
	}

	if transcript.Language != "en" {
		t.Fatalf("expected detected language, got %q", transcript.Language)
	}
	if got := transcript.FullText(); got != "Hello there. Send me money." {
		t.Fatalf("unexpected full text: %q", got)
	}
	words := transcript.Segments[0].Words
	if len(words) != 2 || words[0].Word != "Hello" || words[1].End != 1.4 {
		t.Fatalf("word timestamps not preserved: %#v", words)
	}
}

func TestTranscribeNoAudioYieldsEmptyTranscript(t *testing.T) {
	svc := transcribe.NewService(transcribe.Config{}, "ffmpeg")
	svc.WithCommandRunner(func(_ context.Context, name string, _ ...string) error {
		if name == "ffmpeg" {
			return transcribe.ErrNoAudio
		}
		t.Fatalf("whisperx should not run without audio")
		return nil
	})

	transcript, err := svc.Transcribe(context.Background(), "/videos/silent.mp4", t.TempDir())
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if !transcript.Empty() {
		t.Fatalf("expected empty transcript, got %#v", transcript)
	}
}

func TestNormalizeOrdersAndClampsSegments(t *testing.T) {
	transcript := transcribe.Transcript{Segments: []transcribe.Segment{
		{Text: "second", Start: 5, End: 9},
		{Text: "first", Start: 0, End: 6},
	}}
	transcript.Normalize()

	if transcript.Segments[0].Text != "first" {
		t.Fatalf("segments not ordered: %#v", transcript.Segments)
	}
	if transcript.Segments[0].End != 5 {
		t.Fatalf("overlap not clamped: %#v", transcript.Segments[0])
	}
}

func TestTranscriptEncodeDecode(t *testing.T) {
	transcript := transcribe.Transcript{
		Language: "en",
		Segments: []transcribe.Segment{{Text: "hello", Start: 0, End: 1}},
	}
	raw, err := transcript.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := transcribe.Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Language != "en" || len(decoded.Segments) != 1 {
		t.Fatalf("round trip mismatch: %#v", decoded)
	}

	empty, err := transcribe.Decode("")
	if err != nil || !empty.Empty() {
		t.Fatalf("expected empty decode, got %#v err %v", empty, err)
	}
}

func TestTranscriptEmptyIgnoresWhitespace(t *testing.T) {
	transcript := transcribe.Transcript{Segments: []transcribe.Segment{{Text: "   "}}}
	if !transcript.Empty() {
		t.Fatal("whitespace-only transcript should be empty")
	}
}
