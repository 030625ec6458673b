package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitChunks(t *testing.T) {
	t.Run("short text is one chunk", func(t *testing.T) {
		got := splitChunks("hello world", sarvamChunkSize)
		if len(got) != 1 || got[0] != "hello world" {
			t.Fatalf("got %v", got)
		}
	})

	t.Run("breaks on sentence boundary", func(t *testing.T) {
		text := strings.Repeat("a", 400) + ". " + strings.Repeat("b", 400)
		got := splitChunks(text, sarvamChunkSize)
		if len(got) != 2 {
			t.Fatalf("chunks = %d, want 2", len(got))
		}
		if !strings.HasSuffix(got[0], ".") {
			t.Fatalf("first chunk should end at the sentence: %q", got[0][len(got[0])-10:])
		}
	})

	t.Run("never exceeds max", func(t *testing.T) {
		text := strings.Repeat("word ", 1000)
		for _, c := range splitChunks(text, sarvamChunkSize) {
			if n := utf8.RuneCountInString(c); n > sarvamChunkSize {
				t.Fatalf("chunk of %d runes exceeds %d", n, sarvamChunkSize)
			}
		}
	})

	t.Run("nothing dropped", func(t *testing.T) {
		text := strings.Repeat("some words here. ", 200)
		var joined []string
		for _, c := range splitChunks(text, sarvamChunkSize) {
			joined = append(joined, c)
		}
		if strings.Join(joined, " ") != strings.TrimSpace(text) {
			t.Fatalf("chunking lost or altered text")
		}
	})
}

func TestWavRoundTrip(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	wav := wavFile(pcm, sarvamSampleRate)

	got, err := pcmData(wav)
	if err != nil {
		t.Fatalf("pcmData: %v", err)
	}
	if !bytes.Equal(got, pcm) {
		t.Fatalf("pcm mismatch: %v != %v", got, pcm)
	}
}

func TestPcmData_RejectsGarbage(t *testing.T) {
	if _, err := pcmData([]byte("not a wav at all")); err == nil {
		t.Fatalf("expected error for non-wav input")
	}
}

func TestSarvamSynthesize(t *testing.T) {
	pcm := bytes.Repeat([]byte{0x10, 0x20}, sarvamSampleRate) // one second
	segment := base64.StdEncoding.EncodeToString(wavFile(pcm, sarvamSampleRate))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("api-subscription-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req sarvamTTSReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		audios := make([]string, len(req.Inputs))
		for i := range audios {
			audios[i] = segment
		}
		_ = json.NewEncoder(w).Encode(sarvamTTSResp{RequestID: "r1", Audios: audios})
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	p := NewSarvamProvider(srv.URL, "test-key", "meera", dir)

	res, err := p.Synthesize(context.Background(), Request{
		ID:       "01TESTJOB00000000000000000",
		Content:  strings.Repeat("A sentence for the narrator. ", 60), // forces multiple chunks
		Language: "en-IN",
	})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	if res.AudioURL != "/media/01TESTJOB00000000000000000.wav" {
		t.Fatalf("audio url = %q", res.AudioURL)
	}
	if res.DurationSec <= 1 {
		t.Fatalf("duration = %f, want more than one segment's worth", res.DurationSec)
	}

	out, err := os.ReadFile(filepath.Join(dir, "01TESTJOB00000000000000000.wav"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	data, err := pcmData(out)
	if err != nil {
		t.Fatalf("output is not a valid wav: %v", err)
	}
	if len(data)%len(pcm) != 0 || len(data) < 2*len(pcm) {
		t.Fatalf("stitched pcm length %d not a multiple of segments", len(data))
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Fake", func(ctx context.Context, speaker string) (Provider, error) {
		_ = ctx
		_ = speaker
		return nil, nil
	})

	if _, err := reg.Get(context.Background(), "fake", ""); err != nil {
		t.Fatalf("lookup is case-insensitive: %v", err)
	}
	if _, err := reg.Get(context.Background(), "missing", ""); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
