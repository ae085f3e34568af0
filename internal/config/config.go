package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/koscakluka/ema-live/core/audio"
)

type Provider string

const (
	ProviderAzure  Provider = "AZURE"
	ProviderGemini Provider = "GEMINI"
)

type AudioBackend string

const (
	AudioBackendMiniaudio AudioBackend = "miniaudio"
	AudioBackendPortaudio AudioBackend = "portaudio"
	AudioBackendWAV       AudioBackend = "wav"
)

const DefaultStorageEndpoint = "https://placeholder-func.azurewebsites.net/api/uploadSession"

type Config struct {
	Provider Provider
	Profile  string

	Gemini GeminiConfig
	Azure  AzureConfig

	StorageEndpoint string
	SessionDBPath   string

	AudioBackend    AudioBackend
	AudioInputFile  string
	AudioOutputFile string

	// MeterStride and MeterInterval tune the input level meter.
	MeterStride   int
	MeterInterval time.Duration

	HTTPAddress string
	LogFile     string
}

type GeminiConfig struct {
	APIKey    string
	LiveModel string
	VoiceName string
}

type AzureConfig struct {
	APIKey     string
	Endpoint   string
	Deployment string
	VoiceName  string
	APIVersion string
}

// Load reads the configuration from the environment, after loading a .env
// file from the working directory if there is one.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found or error loading it", "error", err)
	}

	return Config{
		Provider: Provider(strings.ToUpper(getEnv("PROVIDER", string(ProviderAzure)))),
		Profile:  getEnv("PROFILE", DefaultProfileID),
		Gemini: GeminiConfig{
			APIKey:    os.Getenv("API_KEY"),
			LiveModel: getEnv("GEMINI_LIVE_MODEL", "gemini-2.5-flash-native-audio-preview-09-2025"),
			VoiceName: getEnv("GEMINI_VOICE_NAME", "Kore"),
		},
		Azure: AzureConfig{
			APIKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
			Endpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
			Deployment: getEnv("AZURE_OPENAI_DEPLOYMENT", "gpt-4o-realtime-preview"),
			VoiceName:  getEnv("AZURE_VOICE_NAME", "alloy"),
			APIVersion: getEnv("AZURE_API_VERSION", "2024-10-01-preview"),
		},
		StorageEndpoint: getEnv("STORAGE_ENDPOINT", DefaultStorageEndpoint),
		SessionDBPath:   os.Getenv("SESSION_DB_PATH"),
		AudioBackend:    AudioBackend(strings.ToLower(getEnv("AUDIO_BACKEND", string(AudioBackendMiniaudio)))),
		AudioInputFile:  os.Getenv("AUDIO_INPUT_FILE"),
		AudioOutputFile: os.Getenv("AUDIO_OUTPUT_FILE"),
		MeterStride:     getEnvInt("METER_STRIDE", audio.DefaultMeterStride),
		MeterInterval:   getEnvDuration("METER_INTERVAL", audio.DefaultMeterInterval),
		HTTPAddress:     getEnv("HTTP_ADDRESS", ":8080"),
		LogFile:         getEnv("LOG_FILE", "emalive.log"),
	}
}

// Validate checks that the selected provider and audio backend are known.
// Missing credentials are left to the provider, which reports them on
// connect.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderAzure, ProviderGemini:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	switch c.AudioBackend {
	case AudioBackendMiniaudio, AudioBackendPortaudio, AudioBackendWAV:
	default:
		return fmt.Errorf("unknown audio backend %q", c.AudioBackend)
	}

	if c.MeterStride <= 0 {
		return fmt.Errorf("meter stride must be positive, got %d", c.MeterStride)
	}
	if c.MeterInterval < 0 {
		return fmt.Errorf("meter interval must not be negative, got %s", c.MeterInterval)
	}

	if _, ok := GetProfile(c.Profile); !ok {
		return fmt.Errorf("unknown profile %q", c.Profile)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logger.Warn("ignoring invalid integer setting", "key", key, "value", value, "error", err)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn("ignoring invalid duration setting", "key", key, "value", value, "error", err)
		return defaultValue
	}
	return parsed
}
