package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	hk "golang.design/x/hotkey"

	"github.com/whispertype/whispertype/internal/api"
	"github.com/whispertype/whispertype/internal/audio"
	"github.com/whispertype/whispertype/internal/config"
	"github.com/whispertype/whispertype/internal/history"
	"github.com/whispertype/whispertype/internal/hotkey"
	"github.com/whispertype/whispertype/internal/logger"
	"github.com/whispertype/whispertype/internal/notify"
	"github.com/whispertype/whispertype/internal/recording"
	"github.com/whispertype/whispertype/internal/server"
	"github.com/whispertype/whispertype/internal/transcription"
	"github.com/whispertype/whispertype/internal/tray"
	"github.com/whispertype/whispertype/internal/typer"
	"github.com/whispertype/whispertype/internal/window"
)

const version = "0.1.0"

// App holds all application state
type App struct {
	log        *logger.Logger
	cfg        *config.Config
	configPath string

	trayMgr     *tray.Manager
	httpServer  *server.Server
	driver      *audio.PortAudioDriver
	recorder    *recording.Recorder
	transcriber transcription.Transcriber
	engine      *typer.Engine
	focus       *window.FocusChecker
	notifier    *notify.Notifier
	store       *history.Store

	recordHotkey *hotkey.Manager
	typeHotkey   *hotkey.Manager

	// Dictation state machine. pending holds the last transcript until the
	// type hotkey consumes it or a new recording replaces it. transcribing
	// blocks new recordings while a request is in flight. typingStop is
	// non-nil while the typing engine is running.
	mu           sync.Mutex
	pending      string
	transcribing bool
	typingStop   chan struct{}
}

func init() {
	// The tray and keyboard hooks need the main OS thread on macOS
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to the config file")
	model := flag.String("model", "", "override the transcription model")
	language := flag.String("language", "", "override the transcription language")
	wpm := flag.Int("wpm", 0, "override the typing speed in words per minute")
	flag.Parse()

	app := &App{configPath: *configPath}

	cfg, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("failed to load config: %v", err)
	}
	if *model != "" {
		cfg.Transcription.Model = *model
	}
	if *language != "" {
		cfg.Transcription.Language = *language
	}
	if *wpm > 0 {
		cfg.Typing.WPM = *wpm
	}
	if err := cfg.Validate(); err != nil {
		stdlog.Fatalf("invalid config: %v", err)
	}
	app.cfg = cfg

	loggerConfig := logger.DefaultConfig()
	if cfg.Log.Level != "" {
		loggerConfig.Level = cfg.Log.Level
	}
	if cfg.Log.Dir != "" {
		loggerConfig.Dir = cfg.Log.Dir
	}
	app.log, err = logger.New(loggerConfig)
	if err != nil {
		stdlog.Fatalf("failed to initialize logger: %v", err)
	}
	defer app.log.Close()

	app.log.Info("whispertype starting",
		logger.String("version", version),
		logger.String("config", *configPath))

	app.notifier = notify.New(cfg.Notifications.Enabled, app.log)

	app.trayMgr = tray.NewManager(tray.Config{
		OnReady:        app.onReady,
		OnSettings:     app.handleOpenSettings,
		OnRecordTest:   app.handleRecordTest,
		OnDeviceChange: app.handleDeviceChange,
		OnQuit:         app.handleQuit,
	}, app.log)

	// Blocks until the tray quits
	app.trayMgr.Run()
}

// onReady finishes initialization once the tray loop is up
func (a *App) onReady() {
	var err error

	a.driver, err = audio.NewPortAudioDriver()
	if err != nil {
		a.log.Error("failed to create audio driver", logger.Error(err))
		a.notifier.Error("Audio initialization failed. Check microphone access.")
	} else {
		audioCfg := audio.DefaultConfig()
		audioCfg.DeviceID = a.cfg.Audio.DeviceID
		audioCfg.SampleRate = a.cfg.Audio.SampleRate
		audioCfg.Channels = a.cfg.Audio.Channels
		if err := a.driver.Initialize(audioCfg); err != nil {
			a.log.Error("failed to initialize audio driver", logger.Error(err))
			a.notifier.Error("Audio device initialization failed.")
		} else {
			recCfg := recording.DefaultConfig()
			recCfg.MaxDuration = time.Duration(a.cfg.Audio.MaxRecordSeconds) * time.Second
			a.recorder = recording.New(a.driver, recCfg, a.log)
			a.refreshDeviceMenu()
		}
	}

	if a.cfg.Transcription.APIKey != "" {
		a.transcriber, err = transcription.NewOpenAIClient(transcription.Config{
			APIKey:         a.cfg.Transcription.APIKey,
			Model:          a.cfg.Transcription.Model,
			Language:       a.cfg.Transcription.Language,
			TimeoutSeconds: a.cfg.Transcription.TimeoutSeconds,
		}, a.log)
		if err != nil {
			a.log.Error("failed to create transcription client", logger.Error(err))
		}
	} else {
		a.log.Warn("transcription API key not set, open settings to configure")
	}

	a.engine = typer.New(typer.Config{WPM: a.cfg.Typing.WPM}, typer.NewRobotSink(), a.log)
	a.focus = window.New(a.log)

	if a.cfg.History.Enabled {
		historyPath, err := a.cfg.HistoryPath()
		if err == nil {
			if mkErr := os.MkdirAll(filepath.Dir(historyPath), 0755); mkErr != nil {
				err = mkErr
			} else {
				a.store, err = history.NewStore(historyPath, a.log)
			}
		}
		if err != nil {
			a.log.Error("failed to open history store", logger.Error(err))
		} else if _, err := a.store.Prune(a.cfg.History.Keep); err != nil {
			a.log.Warn("history prune failed", logger.Error(err))
		}
	}

	a.startServer()
	a.registerHotkeys()

	if a.recorder != nil {
		go a.autoStopLoop()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		a.log.Info("shutdown signal received")
		a.handleQuit()
		a.trayMgr.Quit()
	}()

	a.log.Info("whispertype ready")
	fmt.Printf("whispertype %s: settings at %s\n", version, a.httpServer.URL())
	if a.recordHotkey != nil && a.typeHotkey != nil {
		rc := a.recordHotkey.Config()
		tc := a.typeHotkey.Config()
		fmt.Printf("record: %s  type: %s\n",
			hotkey.Format(rc.Modifiers, rc.Key), hotkey.Format(tc.Modifiers, tc.Key))
	}
}

func (a *App) startServer() {
	serverCfg := server.DefaultConfig()
	serverCfg.Port = a.cfg.Server.Port
	a.httpServer = server.New(serverCfg, a.log)

	var devices api.DeviceLister
	if a.driver != nil {
		devices = a.driver
	}

	handler := api.New(api.Options{
		Config:     a.snapshotConfig,
		ConfigPath: a.configPath,
		Devices:    devices,
		Store:      a.store,
		Status:     a.status,
		Reload:     a.applyConfig,
	}, a.log)
	handler.Mount(a.httpServer.Router())

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("failed to start settings server", logger.Error(err))
		a.notifier.Error("Settings page could not be started.")
	}
}

func (a *App) registerHotkeys() {
	cfg, _, _ := a.collaborators()

	recordCfg, err := bindingConfig(cfg.Hotkeys.Record, hotkey.Toggle)
	if err != nil {
		a.log.Error("invalid record hotkey", logger.Error(err))
		a.notifier.Error("The record hotkey is invalid. Check settings.")
		return
	}
	typeCfg, err := bindingConfig(cfg.Hotkeys.Type, hotkey.Toggle)
	if err != nil {
		a.log.Error("invalid type hotkey", logger.Error(err))
		a.notifier.Error("The type hotkey is invalid. Check settings.")
		return
	}

	for _, cfg := range []hotkey.Config{recordCfg, typeCfg} {
		for _, c := range hotkey.CheckConflicts(cfg.Modifiers, cfg.Key) {
			a.log.Warn("hotkey collides with a system shortcut",
				logger.String("binding", hotkey.Format(cfg.Modifiers, cfg.Key)),
				logger.String("conflict", c.Name))
		}
	}

	a.recordHotkey = hotkey.New(recordCfg, a.log)
	if err := a.recordHotkey.Register(); err != nil {
		a.log.Error("failed to register record hotkey", logger.Error(err))
		a.notifier.Error("Could not register the record hotkey.")
		a.recordHotkey = nil
		return
	}
	go a.recordHotkeyLoop(a.recordHotkey.Events())

	a.typeHotkey = hotkey.New(typeCfg, a.log)
	if err := a.typeHotkey.Register(); err != nil {
		a.log.Error("failed to register type hotkey", logger.Error(err))
		a.notifier.Error("Could not register the type hotkey.")
		a.typeHotkey = nil
		return
	}
	go a.typeHotkeyLoop(a.typeHotkey.Events())
}

// recordHotkeyLoop starts and stops recording on the record hotkey
func (a *App) recordHotkeyLoop(events <-chan hotkey.Event) {
	for event := range events {
		switch event.Type {
		case hotkey.Pressed:
			a.startRecording()
		case hotkey.Released:
			a.stopRecording()
		}
	}
}

// typeHotkeyLoop consumes the pending transcript on the type hotkey. A
// press while typing is in progress cancels instead.
func (a *App) typeHotkeyLoop(events <-chan hotkey.Event) {
	for range events {
		a.confirmType()
	}
}

func (a *App) startRecording() {
	if a.recorder == nil {
		a.notifier.Error("Recording is unavailable. Check the audio device.")
		return
	}

	a.mu.Lock()
	if a.transcribing {
		a.mu.Unlock()
		a.log.Warn("recording request ignored while transcribing")
		return
	}
	// A new recording supersedes any unconsumed transcript
	a.pending = ""
	a.mu.Unlock()

	a.focus.Capture()
	if err := a.recorder.Start(); err != nil {
		a.log.Error("failed to start recording", logger.Error(err))
		a.notifier.Error("Recording could not be started.")
		a.trayMgr.SetState(tray.StateIdle)
		return
	}
	a.trayMgr.SetState(tray.StateRecording)
}

func (a *App) stopRecording() {
	if a.recorder == nil {
		return
	}

	samples, ok := a.recorder.Stop()
	if !ok {
		a.trayMgr.SetState(tray.StateIdle)
		return
	}
	a.transcribe(samples)
}

// autoStopLoop picks up recordings the recorder ended on its own after
// hitting the maximum duration
func (a *App) autoStopLoop() {
	for samples := range a.recorder.Data() {
		a.log.Info("recording auto-stopped at maximum duration")
		a.notifier.Info("Recording stopped at the maximum duration.")
		a.transcribe(samples)
	}
}

// transcribe converts captured samples to text and parks the result as the
// pending transcript. Config and transcriber are snapshotted up front so a
// concurrent settings reload cannot swap them mid-flight.
func (a *App) transcribe(samples []float32) {
	cfg, transcriber, _ := a.collaborators()
	if transcriber == nil {
		a.notifier.Error("No transcription API key configured. Open settings.")
		a.trayMgr.SetState(tray.StateIdle)
		return
	}

	a.mu.Lock()
	a.transcribing = true
	a.mu.Unlock()
	a.trayMgr.SetState(tray.StateProcessing)

	go func() {
		defer func() {
			a.mu.Lock()
			a.transcribing = false
			a.mu.Unlock()
		}()

		duration := audio.SamplesDuration(samples, cfg.Audio.SampleRate, cfg.Audio.Channels)

		wavPath, err := audio.WriteTempWAV(samples, cfg.Audio.SampleRate, cfg.Audio.Channels)
		if err != nil {
			a.log.Error("failed to write temp WAV", logger.Error(err))
			a.notifier.Error("Could not prepare audio for transcription.")
			a.trayMgr.SetState(tray.StateIdle)
			return
		}
		defer os.Remove(wavPath)

		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.Transcription.TimeoutSeconds)*time.Second)
		defer cancel()

		text, err := transcriber.Transcribe(ctx, wavPath)
		if err != nil {
			a.log.Error("transcription failed", logger.Error(err))
			a.notifier.Error("Transcription failed.")
			a.trayMgr.SetState(tray.StateIdle)
			return
		}
		if text == "" {
			a.log.Warn("transcription returned no text")
			a.notifier.Info("Nothing was recognized.")
			a.trayMgr.SetState(tray.StateIdle)
			return
		}

		if a.store != nil {
			if _, err := a.store.Insert(text, duration, transcriber.Name()); err != nil {
				a.log.Warn("failed to store transcript", logger.Error(err))
			}
		}

		a.mu.Lock()
		a.pending = text
		a.mu.Unlock()

		a.trayMgr.SetState(tray.StatePending)
		a.notifier.Preview(text)
	}()
}

// confirmType types the pending transcript, or cancels typing when it is
// already in progress
func (a *App) confirmType() {
	a.mu.Lock()
	if a.typingStop != nil {
		close(a.typingStop)
		a.typingStop = nil
		a.mu.Unlock()
		a.log.Info("typing cancelled by hotkey")
		return
	}

	text := a.pending
	a.pending = ""
	if text == "" {
		a.mu.Unlock()
		a.notifier.Info("No transcript waiting to be typed.")
		return
	}

	stop := make(chan struct{})
	a.typingStop = stop
	engine := a.engine
	a.mu.Unlock()

	a.trayMgr.SetState(tray.StateProcessing)
	go func() {
		emitted := engine.TypeText(text, stop, a.focus.StillFocused)
		a.log.Info("typing done", logger.Int("emitted", emitted))

		a.mu.Lock()
		if a.typingStop == stop {
			a.typingStop = nil
		}
		a.mu.Unlock()
		a.trayMgr.SetState(tray.StateIdle)
	}()
}

// status reports the app state for the API
func (a *App) status() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case a.typingStop != nil:
		return "typing"
	case a.transcribing:
		return "transcribing"
	case a.recorder != nil && a.recorder.State() == recording.Recording:
		return "recording"
	case a.pending != "":
		return "pending"
	default:
		return "idle"
	}
}

// collaborators returns the hot-swappable pieces under the state lock.
// applyConfig may replace them while a transcription or typing run is in
// flight, so goroutines snapshot these once and stick with what they got.
func (a *App) collaborators() (*config.Config, transcription.Transcriber, *typer.Engine) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg, a.transcriber, a.engine
}

// snapshotConfig returns a copy of the current config for the API
func (a *App) snapshotConfig() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.Clone()
}

// applyConfig picks up settings changed through the API or the tray. New
// collaborators are built outside the lock and swapped in under it; in-flight
// work keeps using the snapshots it took.
func (a *App) applyConfig(cfg *config.Config) error {
	a.log.Info("applying updated config")

	old, _, _ := a.collaborators()

	var engine *typer.Engine
	if cfg.Typing.WPM != old.Typing.WPM {
		engine = typer.New(typer.Config{WPM: cfg.Typing.WPM}, typer.NewRobotSink(), a.log)
	}

	audioChanged := a.driver != nil && cfg.Audio != old.Audio
	if audioChanged {
		audioCfg := audio.DefaultConfig()
		audioCfg.DeviceID = cfg.Audio.DeviceID
		audioCfg.SampleRate = cfg.Audio.SampleRate
		audioCfg.Channels = cfg.Audio.Channels
		if err := a.driver.Initialize(audioCfg); err != nil {
			return fmt.Errorf("failed to apply audio settings: %w", err)
		}
	}

	var transcriber transcription.Transcriber
	transcriberChanged := cfg.Transcription != old.Transcription
	if transcriberChanged && cfg.Transcription.APIKey != "" {
		t, err := transcription.NewOpenAIClient(transcription.Config{
			APIKey:         cfg.Transcription.APIKey,
			Model:          cfg.Transcription.Model,
			Language:       cfg.Transcription.Language,
			TimeoutSeconds: cfg.Transcription.TimeoutSeconds,
		}, a.log)
		if err != nil {
			return fmt.Errorf("failed to apply transcription settings: %w", err)
		}
		transcriber = t
	}

	a.mu.Lock()
	if engine != nil {
		a.engine = engine
	}
	var retired transcription.Transcriber
	if transcriberChanged {
		retired = a.transcriber
		a.transcriber = transcriber
	}
	a.cfg = cfg
	a.mu.Unlock()

	if retired != nil {
		// Close drops idle connections only, so a request still running on a
		// snapshot of the old client is unaffected
		retired.Close()
	}
	if audioChanged {
		a.refreshDeviceMenu()
	}
	return nil
}

func (a *App) refreshDeviceMenu() {
	devices, err := a.driver.ListDevices()
	if err != nil {
		a.log.Warn("failed to list devices for menu", logger.Error(err))
		return
	}

	cfg, _, _ := a.collaborators()
	items := make([]tray.Device, 0, len(devices))
	for _, d := range devices {
		items = append(items, tray.Device{
			ID:        d.ID,
			Name:      d.Name,
			IsDefault: d.IsDefault,
			IsCurrent: d.ID == cfg.Audio.DeviceID,
		})
	}
	a.trayMgr.UpdateDeviceMenu(items)
}

func (a *App) handleOpenSettings() {
	if a.httpServer == nil || !a.httpServer.IsRunning() {
		a.notifier.Error("Settings page is not available. Restart the app.")
		return
	}

	url := a.httpServer.URL()
	go func() {
		if err := exec.Command("open", url).Run(); err != nil {
			a.log.Error("failed to open browser", logger.Error(err))
			fmt.Printf("open the settings page manually: %s\n", url)
		}
	}()
}

// handleRecordTest runs a 5 second capture and shows what was recognized
// without typing anything
func (a *App) handleRecordTest() {
	go func() {
		if a.recorder == nil {
			a.notifier.Error("Recording is unavailable. Check the audio device.")
			return
		}

		cfg, transcriber, _ := a.collaborators()

		a.notifier.Info("Recording test: speak for 5 seconds.")
		a.trayMgr.SetState(tray.StateRecording)

		if err := a.recorder.Start(); err != nil {
			a.log.Error("record test failed to start", logger.Error(err))
			a.notifier.Error("Recording could not be started.")
			a.trayMgr.SetState(tray.StateIdle)
			return
		}

		time.Sleep(5 * time.Second)

		a.trayMgr.SetState(tray.StateProcessing)
		samples, ok := a.recorder.Stop()
		if !ok {
			a.notifier.Error("No audio was captured. Check the microphone.")
			a.trayMgr.SetState(tray.StateIdle)
			return
		}

		if transcriber == nil {
			a.notifier.Info(fmt.Sprintf("Captured %.1fs of audio. Configure an API key to transcribe.",
				audio.SamplesDuration(samples, cfg.Audio.SampleRate, cfg.Audio.Channels).Seconds()))
			a.trayMgr.SetState(tray.StateIdle)
			return
		}

		wavPath, err := audio.WriteTempWAV(samples, cfg.Audio.SampleRate, cfg.Audio.Channels)
		if err != nil {
			a.log.Error("record test failed to write WAV", logger.Error(err))
			a.trayMgr.SetState(tray.StateIdle)
			return
		}
		defer os.Remove(wavPath)

		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.Transcription.TimeoutSeconds)*time.Second)
		defer cancel()

		text, err := transcriber.Transcribe(ctx, wavPath)
		if err != nil {
			a.log.Error("record test transcription failed", logger.Error(err))
			a.notifier.Error("Transcription failed.")
			a.trayMgr.SetState(tray.StateIdle)
			return
		}

		if text == "" {
			a.notifier.Info("Recording test: nothing was recognized.")
		} else {
			a.notifier.Preview("Recording test: " + text)
		}
		a.trayMgr.SetState(tray.StateIdle)
	}()
}

func (a *App) handleDeviceChange(deviceID int) {
	a.log.Info("device change requested", logger.Int("device_id", deviceID))

	cfg := a.snapshotConfig()
	cfg.Audio.DeviceID = deviceID
	if err := a.applyConfig(cfg); err != nil {
		a.log.Error("failed to switch device", logger.Error(err))
		a.notifier.Error("Could not switch the input device.")
		return
	}
	if err := cfg.Save(a.configPath); err != nil {
		a.log.Warn("failed to persist device choice", logger.Error(err))
	}
}

func (a *App) handleQuit() {
	a.log.Info("shutting down")

	a.mu.Lock()
	if a.typingStop != nil {
		close(a.typingStop)
		a.typingStop = nil
	}
	a.mu.Unlock()

	if a.httpServer != nil && a.httpServer.IsRunning() {
		if err := a.httpServer.Stop(); err != nil {
			a.log.Error("failed to stop settings server", logger.Error(err))
		}
	}
	if a.recordHotkey != nil {
		a.recordHotkey.Close()
	}
	if a.typeHotkey != nil {
		a.typeHotkey.Close()
	}
	if a.recorder != nil {
		a.recorder.Close()
	}
	if a.driver != nil {
		a.driver.Close()
	}
	if _, transcriber, _ := a.collaborators(); transcriber != nil {
		transcriber.Close()
	}
	if a.store != nil {
		a.store.Close()
	}

	a.log.Info("shutdown complete")
}

// bindingConfig converts a config binding into a registrable hotkey
func bindingConfig(b config.Binding, mode hotkey.Mode) (hotkey.Config, error) {
	key, err := hotkey.ParseKey(b.Key)
	if err != nil {
		return hotkey.Config{}, err
	}

	var mods []hk.Modifier
	if b.Ctrl {
		mods = append(mods, hk.ModCtrl)
	}
	if b.Shift {
		mods = append(mods, hk.ModShift)
	}
	if b.Alt {
		mods = append(mods, hk.ModOption)
	}
	if b.Cmd {
		mods = append(mods, hk.ModCmd)
	}

	return hotkey.Config{Modifiers: mods, Key: key, Mode: mode}, nil
}
