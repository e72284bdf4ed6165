package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ragchat/internal/config"
	"ragchat/internal/helper"
	"ragchat/internal/llmservice"
	"ragchat/internal/parser"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"github.com/wujunwei928/edge-tts-go/edge_tts"
)

var (
	ErrUnintelligible = errors.New("speech could not be recognized")
	ErrRequestFailed  = errors.New("speech service request failed")
	ErrNothingToSpeak = errors.New("no text to speak")
)

// UserMessage returns the fixed text shown for speech failures.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnintelligible):
		return "Sorry, I could not understand the audio."
	case errors.Is(err, ErrNothingToSpeak):
		return "There is no answer to read out yet."
	default:
		return "Request failed, please try again."
	}
}

// Transcript is the recognized text and the saved recording it came from.
type Transcript struct {
	Text      string `json:"text"`
	AudioPath string `json:"audio_path"`
}

type Transcriber struct {
	client   *openai.Client
	model    string
	language string
	clipDir  string
}

func NewTranscriber(cfg *config.SpeechConfig) (*Transcriber, error) {
	if err := cfg.RequireKey(); err != nil {
		return nil, err
	}
	if err := helper.CreateFolder(cfg.ClipDir); err != nil {
		return nil, err
	}
	return &Transcriber{
		client:   llmservice.NewOpenAIClient(cfg.BaseURL, cfg.Key),
		model:    cfg.TranscriptionModel,
		language: cfg.Language,
		clipDir:  cfg.ClipDir,
	}, nil
}

// Transcribe saves the clip and sends it to the transcription endpoint. On
// failure the clip is removed and no transcript is returned.
func (t *Transcriber) Transcribe(ctx context.Context, name string, r io.Reader) (*Transcript, error) {
	path, err := t.saveClip(name, r)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: path,
		Language: t.language,
	})
	if err != nil {
		helper.RemoveFile(path)
		log.Error().Err(err).Str("clip", name).Msg("Transcription request failed")
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		helper.RemoveFile(path)
		log.Warn().Str("clip", name).Msg("Empty transcription")
		return nil, ErrUnintelligible
	}
	log.Debug().Str("clip", path).Str("text", text).Msg("Transcribed audio")
	return &Transcript{Text: text, AudioPath: path}, nil
}

func (t *Transcriber) saveClip(name string, r io.Reader) (string, error) {
	ext := parser.Extension(name)
	if ext == "" {
		ext = "wav"
	}
	f, err := os.CreateTemp(t.clipDir, "clip-*."+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create clip file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		helper.RemoveFile(f.Name())
		return "", fmt.Errorf("failed to save clip: %w", err)
	}
	return filepath.Clean(f.Name()), nil
}

// synthesizer returns mp3 audio for text.
type synthesizer func(ctx context.Context, text string) ([]byte, error)

// Speaker turns answers into mp3 audio with the configured TTS provider.
type Speaker struct {
	synth synthesizer
}

func NewSpeaker(cfg *config.SpeechConfig) (*Speaker, error) {
	switch cfg.TTSProvider {
	case config.TTSEdge:
		log.Debug().Str("voice", cfg.EdgeVoice).Msg("Using Edge TTS")
		return &Speaker{synth: edgeSynth(cfg.EdgeVoice)}, nil
	case config.TTSOpenAI:
		if err := cfg.RequireKey(); err != nil {
			return nil, err
		}
		return &Speaker{synth: openaiSynth(
			llmservice.NewOpenAIClient(cfg.BaseURL, cfg.Key),
			openai.SpeechModel(cfg.TTSModel),
			openai.SpeechVoice(cfg.Voice),
		)}, nil
	default:
		return nil, fmt.Errorf("unknown tts provider %q", cfg.TTSProvider)
	}
}

func openaiSynth(client *openai.Client, model openai.SpeechModel, voice openai.SpeechVoice) synthesizer {
	return func(ctx context.Context, text string) ([]byte, error) {
		resp, err := client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          model,
			Input:          text,
			Voice:          voice,
			ResponseFormat: openai.SpeechResponseFormatMp3,
		})
		if err != nil {
			return nil, err
		}
		defer resp.Close()
		return io.ReadAll(resp)
	}
}

// edgeSynth uses the Edge read-aloud service, which needs no API key.
func edgeSynth(voice string) synthesizer {
	return func(ctx context.Context, text string) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		communicate, err := edge_tts.New(voice)
		if err != nil {
			return nil, fmt.Errorf("failed to create edge tts client: %w", err)
		}
		defer communicate.Close()

		audio, err := communicate.Output(text)
		if err != nil {
			return nil, err
		}
		return audio, nil
	}
}

func (s *Speaker) Speak(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNothingToSpeak
	}

	audio, err := s.synth(ctx, text)
	if err != nil {
		log.Error().Err(err).Msg("Speech request failed")
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio", ErrRequestFailed)
	}
	return audio, nil
}

func (s *Speaker) SpeakToFile(ctx context.Context, text, path string) error {
	audio, err := s.Speak(ctx, text)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
