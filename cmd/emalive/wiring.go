package main

import (
	"io"

	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/audio/miniaudio"
	"github.com/koscakluka/ema-live/core/audio/portaudio"
	"github.com/koscakluka/ema-live/core/audio/wavfile"
	"github.com/koscakluka/ema-live/core/realtime"
	"github.com/koscakluka/ema-live/core/realtime/azure"
	"github.com/koscakluka/ema-live/core/realtime/gemini"
	"github.com/koscakluka/ema-live/internal/config"
)

func newProvider(cfg config.Config) realtime.Provider {
	if cfg.Provider == config.ProviderGemini {
		return gemini.NewClient(
			gemini.WithAPIKey(cfg.Gemini.APIKey),
			gemini.WithModel(cfg.Gemini.LiveModel),
			gemini.WithVoice(cfg.Gemini.VoiceName),
		)
	}
	return azure.NewClient(
		azure.WithAPIKey(cfg.Azure.APIKey),
		azure.WithEndpoint(cfg.Azure.Endpoint),
		azure.WithDeployment(cfg.Azure.Deployment),
		azure.WithAPIVersion(cfg.Azure.APIVersion),
		azure.WithVoice(cfg.Azure.VoiceName),
	)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newDevices returns the configured audio backend and whatever must be
// released when the process exits.
func newDevices(cfg config.Config) (audio.Devices, io.Closer, error) {
	switch cfg.AudioBackend {
	case config.AudioBackendPortaudio:
		client, err := portaudio.NewClient(0)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	case config.AudioBackendWAV:
		return wavfile.New(
			wavfile.WithInputFile(cfg.AudioInputFile),
			wavfile.WithOutputFile(cfg.AudioOutputFile),
		), nopCloser{}, nil
	default:
		client, err := miniaudio.NewClient()
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	}
}
