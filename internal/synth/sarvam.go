package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// per-input text limit of the TTS endpoint
	sarvamChunkSize = 500
	// inputs accepted per request
	sarvamBatchSize = 3

	sarvamSampleRate = 22050
)

type SarvamProvider struct {
	BaseURL  string
	APIKey   string
	Speaker  string
	MediaDir string
	Client   *http.Client
}

func NewSarvamProvider(baseURL, apiKey, speaker, mediaDir string) *SarvamProvider {
	if baseURL == "" {
		baseURL = "https://api.sarvam.ai"
	}
	if speaker == "" {
		speaker = "meera"
	}
	if mediaDir == "" {
		mediaDir = "./media"
	}
	return &SarvamProvider{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		Speaker:  speaker,
		MediaDir: mediaDir,
		Client:   &http.Client{Timeout: 90 * time.Second},
	}
}

type sarvamTTSReq struct {
	Inputs             []string `json:"inputs"`
	TargetLanguageCode string   `json:"target_language_code"`
	Speaker            string   `json:"speaker"`
	Model              string   `json:"model"`
	SpeechSampleRate   int      `json:"speech_sample_rate"`
}

type sarvamTTSResp struct {
	RequestID string   `json:"request_id"`
	Audios    []string `json:"audios"`
	Error     string   `json:"error,omitempty"`
}

// Synthesize runs the content through the TTS endpoint chunk by chunk,
// stitches the segments into one WAV file under MediaDir and returns its
// serving path.
func (p *SarvamProvider) Synthesize(ctx context.Context, r Request) (*Result, error) {
	if p.Client == nil {
		return nil, errors.New("sarvam: http client is nil")
	}
	if r.ID == "" {
		return nil, errors.New("sarvam: request id is required")
	}

	chunks := splitChunks(r.Content, sarvamChunkSize)

	var pcm []byte
	for start := 0; start < len(chunks); start += sarvamBatchSize {
		end := start + sarvamBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		segments, err := p.convert(ctx, chunks[start:end], r.Language)
		if err != nil {
			return nil, err
		}
		for _, seg := range segments {
			data, err := pcmData(seg)
			if err != nil {
				return nil, err
			}
			pcm = append(pcm, data...)
		}
	}

	if err := os.MkdirAll(p.MediaDir, 0o755); err != nil {
		return nil, err
	}
	name := r.ID + ".wav"
	if err := os.WriteFile(filepath.Join(p.MediaDir, name), wavFile(pcm, sarvamSampleRate), 0o644); err != nil {
		return nil, err
	}

	// 16-bit mono PCM
	duration := float64(len(pcm)) / float64(sarvamSampleRate*2)
	return &Result{
		AudioURL:    "/media/" + name,
		DurationSec: duration,
	}, nil
}

func (p *SarvamProvider) convert(ctx context.Context, inputs []string, language string) ([][]byte, error) {
	reqBody := sarvamTTSReq{
		Inputs:             inputs,
		TargetLanguageCode: language,
		Speaker:            p.Speaker,
		Model:              "bulbul:v1",
		SpeechSampleRate:   sarvamSampleRate,
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/text-to-speech", p.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-subscription-key", p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sarvam: status %d", resp.StatusCode)
	}

	var decoded sarvamTTSResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if decoded.Error != "" {
		return nil, errors.New(decoded.Error)
	}
	if len(decoded.Audios) != len(inputs) {
		return nil, fmt.Errorf("sarvam: got %d audio segments for %d inputs", len(decoded.Audios), len(inputs))
	}

	out := make([][]byte, 0, len(decoded.Audios))
	for _, a := range decoded.Audios {
		raw, err := base64.StdEncoding.DecodeString(a)
		if err != nil {
			return nil, fmt.Errorf("sarvam: decode audio: %w", err)
		}
		out = append(out, raw)
	}
	return out, nil
}

// splitChunks cuts text into pieces of at most max runes, preferring to
// break after sentence punctuation, then at whitespace.
func splitChunks(text string, max int) []string {
	var out []string
	for utf8.RuneCountInString(text) > max {
		rs := []rune(text)
		cut := max
		for i := max - 1; i > max/2; i-- {
			if rs[i] == '.' || rs[i] == '!' || rs[i] == '?' || rs[i] == '\n' {
				cut = i + 1
				break
			}
		}
		if cut == max {
			for i := max - 1; i > max/2; i-- {
				if rs[i] == ' ' {
					cut = i + 1
					break
				}
			}
		}
		piece := strings.TrimSpace(string(rs[:cut]))
		if piece != "" {
			out = append(out, piece)
		}
		text = strings.TrimSpace(string(rs[cut:]))
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// pcmData extracts the sample bytes from a RIFF/WAVE segment.
func pcmData(wav []byte) ([]byte, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, errors.New("sarvam: segment is not a wav file")
	}
	off := 12
	for off+8 <= len(wav) {
		id := string(wav[off : off+4])
		size := int(binary.LittleEndian.Uint32(wav[off+4 : off+8]))
		off += 8
		if off+size > len(wav) {
			return nil, errors.New("sarvam: truncated wav chunk")
		}
		if id == "data" {
			return wav[off : off+size], nil
		}
		off += size
	}
	return nil, errors.New("sarvam: wav data chunk not found")
}

// wavFile wraps 16-bit mono PCM in a canonical 44-byte WAV header.
func wavFile(pcm []byte, sampleRate int) []byte {
	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(buf, binary.LittleEndian, uint16(16))           // bits per sample
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
