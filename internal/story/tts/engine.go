package tts

import (
	"context"
	"fmt"
	"os"
	"runtime"
)

type EngineType string

const (
	EngineTypeMock   EngineType = "mock"
	EngineTypeESpeak EngineType = "espeak"
	EngineTypeSay    EngineType = "say"  // macOS only
	EngineTypeSAPI   EngineType = "sapi" // Windows only
	EngineTypeGoogle EngineType = "google"
	EngineTypeRemote EngineType = "remote"
	EngineTypeAuto   EngineType = "auto"
)

func (e EngineType) String() string {
	return string(e)
}

// NewEngine creates the engine named by config.Type.
func NewEngine(ctx context.Context, config Config) (Engine, error) {
	if config.Type == "" || config.Type == EngineTypeAuto.String() {
		config.Type = bestEngineFor(config, runtime.GOOS).String()
	}

	switch EngineType(config.Type) {
	case EngineTypeMock:
		return NewMockEngine(), nil
	case EngineTypeGoogle:
		return asEngine(newGoogleEngine(ctx, config, newSpeakerPlayer()))
	case EngineTypeRemote:
		if config.URL == "" {
			return nil, fmt.Errorf("remote tts engine needs tts.url")
		}
		return newRemoteEngine(config, newSpeakerPlayer()), nil
	case EngineTypeESpeak:
		return asEngine(newCommandEngine(espeakSpec, config))
	case EngineTypeSay:
		if runtime.GOOS != "darwin" {
			return nil, fmt.Errorf("say engine only supports macOS")
		}
		return asEngine(newCommandEngine(saySpec, config))
	case EngineTypeSAPI:
		if runtime.GOOS != "windows" {
			return nil, fmt.Errorf("SAPI engine only supports Windows")
		}
		return asEngine(newCommandEngine(sapiSpec, config))
	default:
		return nil, fmt.Errorf("unsupported TTS engine type: %s", config.Type)
	}
}

// asEngine keeps a failed constructor from returning a typed nil Engine.
func asEngine[E Engine](e E, err error) (Engine, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}

// bestEngineFor returns the recommended engine for a platform
func bestEngineFor(config Config, goos string) EngineType {
	if config.URL != "" {
		return EngineTypeRemote
	}
	if hasGoogleCredentials() {
		return EngineTypeGoogle
	}

	switch goos {
	case "windows":
		return EngineTypeSAPI
	case "darwin":
		return EngineTypeSay
	default:
		return EngineTypeESpeak
	}
}

// AvailableEngines returns engines usable on the current platform
func AvailableEngines() []EngineType {
	engines := []EngineType{EngineTypeMock, EngineTypeESpeak, EngineTypeRemote}

	if hasGoogleCredentials() {
		engines = append(engines, EngineTypeGoogle)
	}

	switch runtime.GOOS {
	case "windows":
		engines = append(engines, EngineTypeSAPI)
	case "darwin":
		engines = append(engines, EngineTypeSay)
	}

	return engines
}

func hasGoogleCredentials() bool {
	_, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	return ok
}
