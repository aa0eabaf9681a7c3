package transcode

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/assistbridge/server/domain/entities"
)

func writePCM(t *testing.T, data []byte) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "response-1.pcm")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return dir, path
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestTranscodeSuccess(t *testing.T) {
	dir, pcmPath := writePCM(t, samples(1000, -1000, 0, 20000))
	factory := &fakeFactory{}
	transcoder := NewTranscoder(factory.New, DefaultConfig(), zaptest.NewLogger(t))

	audio, err := transcoder.Transcode(context.Background(), pcmPath)
	if err != nil {
		t.Fatalf("Transcode() error = %v", err)
	}

	if audio.Path != filepath.Join(dir, "response-1.mp3") {
		t.Errorf("Path = %s, want response-1.mp3 in %s", audio.Path, dir)
	}
	if audio.ContentType != "audio/mpeg" {
		t.Errorf("ContentType = %s, want audio/mpeg", audio.ContentType)
	}

	got, err := os.ReadFile(audio.Path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	want := framed(samples(1750, -1750, 0, 32767))
	if !bytes.Equal(got, want) {
		t.Errorf("output = %v, want %v", got, want)
	}
	if audio.Bytes != int64(len(want)) {
		t.Errorf("Bytes = %d, want %d", audio.Bytes, len(want))
	}

	if factory.format != DefaultFormat {
		t.Errorf("encoder format = %+v, want %+v", factory.format, DefaultFormat)
	}
	for _, name := range listDir(t, dir) {
		if filepath.Ext(name) == ".part" {
			t.Errorf("partial file %s left behind", name)
		}
	}
}

func TestTranscodeIsRepeatable(t *testing.T) {
	_, pcmPath := writePCM(t, samples(100, -200, 300, -400, 500))
	transcoder := NewTranscoder((&fakeFactory{}).New, DefaultConfig(), zaptest.NewLogger(t))

	var outputs [][]byte
	for i := 0; i < 2; i++ {
		audio, err := transcoder.Transcode(context.Background(), pcmPath)
		if err != nil {
			t.Fatalf("Transcode() run %d error = %v", i+1, err)
		}
		data, err := os.ReadFile(audio.Path)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		outputs = append(outputs, data)
	}
	if !bytes.Equal(outputs[0], outputs[1]) {
		t.Errorf("second run produced %d bytes that differ from the first run's %d", len(outputs[1]), len(outputs[0]))
	}
}

func TestTranscodeFiveSecondsOfSilence(t *testing.T) {
	// 5 s of 16-bit 16 kHz mono
	silence := make([]byte, 160000)
	_, pcmPath := writePCM(t, silence)
	transcoder := NewTranscoder((&fakeFactory{}).New, DefaultConfig(), zaptest.NewLogger(t))

	audio, err := transcoder.Transcode(context.Background(), pcmPath)
	if err != nil {
		t.Fatalf("Transcode() error = %v", err)
	}
	got, err := os.ReadFile(audio.Path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(got, framed(silence)) {
		t.Errorf("output has %d bytes, want the %d-byte framed silence", len(got), len(framed(silence)))
	}
	if audio.Bytes == 0 {
		t.Error("artifact should not be empty")
	}
}

func TestTranscodeFailures(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		factory *fakeFactory
	}{
		{"encoder write fails", samples(1, 2, 3), &fakeFactory{writeErr: errBoom}},
		{"encoder close fails", samples(1, 2, 3), &fakeFactory{closeErr: errBoom}},
		{"encoder cannot be created", samples(1, 2, 3), &fakeFactory{factoryErr: errBoom}},
		{"dangling half sample", []byte{1, 2, 3}, &fakeFactory{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, pcmPath := writePCM(t, tt.input)
			transcoder := NewTranscoder(tt.factory.New, DefaultConfig(), zaptest.NewLogger(t))

			_, err := transcoder.Transcode(context.Background(), pcmPath)
			if !errors.Is(err, entities.ErrEncodePipeline) {
				t.Fatalf("Transcode() error = %v, want ErrEncodePipeline", err)
			}

			names := listDir(t, dir)
			if len(names) != 1 || names[0] != "response-1.pcm" {
				t.Errorf("directory = %v, want only the source file", names)
			}
		})
	}
}

func TestTranscodeMissingSource(t *testing.T) {
	transcoder := NewTranscoder((&fakeFactory{}).New, DefaultConfig(), zaptest.NewLogger(t))

	_, err := transcoder.Transcode(context.Background(), filepath.Join(t.TempDir(), "missing.pcm"))
	if !errors.Is(err, entities.ErrEncodePipeline) {
		t.Fatalf("Transcode() error = %v, want ErrEncodePipeline", err)
	}
}

func TestTranscodeCanceled(t *testing.T) {
	dir, pcmPath := writePCM(t, samples(1, 2, 3))
	transcoder := NewTranscoder((&fakeFactory{}).New, DefaultConfig(), zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := transcoder.Transcode(ctx, pcmPath)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Transcode() error = %v, want context.Canceled", err)
	}
	if names := listDir(t, dir); len(names) != 1 {
		t.Errorf("directory = %v, want only the source file", names)
	}
}

func TestParseChannelMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ChannelMode
		wantErr bool
	}{
		{"", JointStereo, false},
		{"joint_stereo", JointStereo, false},
		{"Stereo", Stereo, false},
		{"mono", Mono, false},
		{"quad", JointStereo, true},
	}

	for _, tt := range tests {
		got, err := ParseChannelMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseChannelMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseChannelMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
