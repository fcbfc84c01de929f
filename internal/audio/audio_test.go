package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAccept(t *testing.T) {
	tests := []struct {
		name, file, mime string
		want             bool
	}{
		{"audio_mime", "blob", "audio/webm;codecs=opus", true},
		{"octet_stream", "recording", "application/octet-stream", true},
		{"empty_mime", "recording", "", true},
		{"extension_only", "talk.M4A", "text/plain", true},
		{"rejected", "notes.txt", "text/plain", false},
		{"video_mime", "clip.mkv", "video/x-matroska", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Accept(tt.file, tt.mime); got != tt.want {
				t.Errorf("Accept(%q, %q) = %v, want %v", tt.file, tt.mime, got, tt.want)
			}
		})
	}
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		file, mime, want string
	}{
		{"talk.MP3", "audio/wav", ".mp3"},
		{"blob", "audio/x-wav", ".wav"},
		{"blob", "audio/ogg; codecs=opus", ".ogg"},
		{"blob", "audio/x-m4a", ".m4a"},
		{"blob", "", ".webm"},
		{"blob", "audio/flac", ".webm"},
	}
	for _, tt := range tests {
		if got := ExtensionFor(tt.file, tt.mime); got != tt.want {
			t.Errorf("ExtensionFor(%q, %q) = %q, want %q", tt.file, tt.mime, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, size int) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, make([]byte, size), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	if _, err := Validate(filepath.Join(dir, "missing.wav")); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file: err = %v, want ErrNotFound", err)
	}
	if _, err := Validate(write("empty.wav", 0)); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty file: err = %v, want ErrEmpty", err)
	}
	if _, err := Validate(write("tiny.wav", 50)); !errors.Is(err, ErrTooSmall) {
		t.Errorf("tiny file: err = %v, want ErrTooSmall", err)
	}
	size, err := Validate(write("ok.wav", 2048))
	if err != nil {
		t.Fatalf("ok file: %v", err)
	}
	if size != 2048 {
		t.Errorf("size = %d, want 2048", size)
	}
}
