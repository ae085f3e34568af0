package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	orchestration "github.com/koscakluka/ema-live/core"
	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/backup"
	"github.com/koscakluka/ema-live/core/sessionstore"
	"github.com/koscakluka/ema-live/internal/config"
	"github.com/koscakluka/ema-live/internal/httpapi"
	"github.com/koscakluka/ema-live/internal/recorder"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	headless := flag.Bool("headless", false, "serve the HTTP control surface instead of the terminal UI")
	flag.Parse()

	if flag.Arg(0) == "schema" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(sessionstore.Schema())
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	profile, _ := config.GetProfile(cfg.Profile)

	shutdownLogging, err := setupLogging(cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownLogging(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sessionstore.Open(cfg.SessionDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	devices, closeDevices, err := newDevices(cfg)
	if err != nil {
		return fmt.Errorf("failed to open audio backend: %w", err)
	}
	defer closeDevices.Close()

	rec := recorder.New(store, backup.NewUploader(cfg.StorageEndpoint))
	resumeOptions := rec.Resume(ctx)

	var program *tea.Program
	send := func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	}

	options := append([]orchestration.SessionOption{
		orchestration.WithProvider(newProvider(cfg)),
		orchestration.WithAudioDevices(devices),
		orchestration.WithInstructions(profile.Instructions),
		orchestration.WithMeter(audio.NewMeter(
			audio.WithMeterStride(cfg.MeterStride),
			audio.WithMeterInterval(cfg.MeterInterval),
		)),
		orchestration.WithOnStateChange(func(state orchestration.State) {
			logger.Info("session state changed", "state", state.String())
			if state == orchestration.StateDisconnected || state == orchestration.StateError {
				rec.Save(context.Background())
			}
			send(stateMsg(state))
		}),
		orchestration.WithOnAudioLevel(func(level float64) { send(levelMsg(level)) }),
		orchestration.WithOnTranscriptSegment(func(segment orchestration.Segment) {
			rec.Save(context.Background())
			send(segmentMsg(segment))
		}),
		orchestration.WithOnError(func(message string) { send(errorMsg(message)) }),
	}, resumeOptions...)
	session := orchestration.NewSession(options...)
	rec.Attach(session)

	if *headless {
		err = serve(ctx, session, cfg.HTTPAddress)
	} else {
		reset := func() error {
			if err := session.Reset(); err != nil {
				return err
			}
			return rec.Forget(context.Background())
		}
		program = tea.NewProgram(newModel(session, profile.Name, reset), tea.WithAltScreen(), tea.WithContext(ctx))
		_, err = program.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			err = nil
		}
	}

	if disconnectErr := session.Disconnect(); disconnectErr != nil {
		logger.Warn("disconnect incomplete", "error", disconnectErr)
	}
	rec.Save(context.Background())

	exportCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if exportID, exportErr := rec.Export(exportCtx); exportErr != nil {
		logger.Warn("session export failed", "error", exportErr)
		if !errors.Is(exportErr, backup.ErrNotConfigured) {
			fmt.Fprintln(os.Stderr, "session export failed:", exportErr)
		}
	} else if exportID != "" {
		fmt.Println("Exported session:", exportID)
	}

	return err
}

func serve(ctx context.Context, session *orchestration.Session, address string) error {
	server := httpapi.NewServer(session)

	errs := make(chan error, 1)
	go func() { errs <- server.Start(address) }()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
