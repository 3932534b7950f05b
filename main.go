// minute records a meeting from a capture device, transcribes it with
// speaker diarization, and writes transcript and summary documents next to
// the audio.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"minute/audio"
	"minute/config"
	"minute/log"
	"minute/session"
	"minute/shutdown"
	"minute/summarize"
	"minute/transcriber"
)

var version = "dev"

func main() {
	configFlag := flag.String("config", "minute.yaml", "Path to configuration file")
	deviceFlag := flag.String("device", "", "Capture device name substring (overrides config)")
	devicesFlag := flag.Bool("devices", false, "List capture devices and exit")
	setupFlag := flag.Bool("setup", false, "Select capture device interactively")
	fileFlag := flag.String("file", "", "Transcribe an existing WAV file instead of recording")
	outputFlag := flag.String("output", "", "Output directory root (overrides config)")
	langFlag := flag.String("lang", "", "Language code for transcription (overrides config)")
	logPathFlag := flag.String("logpath", "", "Log file path (default: stderr)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("minute %s\n", version)
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *deviceFlag != "" {
		cfg.Device = *deviceFlag
	}
	if *outputFlag != "" {
		cfg.OutputDir = *outputFlag
	}
	if *langFlag != "" {
		cfg.Language = *langFlag
	}

	if err := log.Init(*logPathFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	crashPath := filepath.Join(cfg.OutputDir, "crash_log.txt")
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err == nil {
		if crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
			fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n",
				time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
			debug.SetCrashOutput(crashFile, debug.CrashOptions{})
		}
	}

	os.Exit(run(cfg, *devicesFlag, *setupFlag, *fileFlag))
}

func run(cfg *config.Config, listDevices, setup bool, audioFile string) int {
	tr, err := transcriber.New(
		transcriber.WithModel(cfg.Model),
		transcriber.WithLanguage(cfg.Language),
		transcriber.WithFLACUpload(cfg.FLACUpload),
		transcriber.WithRetryPolicy(transcriber.RetryPolicy{
			Attempts: cfg.RetryAttempts,
			Base:     cfg.RetryBase,
			Factor:   2,
			Cap:      30 * time.Second,
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Summarization is optional; without a key the session still produces a
	// transcript.
	var sum summarize.Summarizer
	if s, err := summarize.New(cfg.SummaryModel); err == nil {
		sum = s
	} else {
		fmt.Fprintf(os.Stderr, "Note: %v; summaries disabled\n", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if audioFile != "" {
		// No recording to stop gracefully; an interrupt cancels outright.
		sigChan := make(chan os.Signal, 1)
		shutdown.Notify(sigChan)
		go func() {
			<-sigChan
			cancel()
		}()
		ctrl := session.NewController(nil, tr, sum, cfg.OutputDir, cfg.SampleRate, cfg.Channels)
		res, err := ctrl.ProcessFile(ctx, audioFile)
		return report(res, err)
	}

	actx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		return 1
	}
	defer actx.Close()

	if listDevices {
		devices, err := actx.Devices()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		for _, d := range devices {
			tag := ""
			if audio.IsBluetooth(d.Name) {
				tag = "  (bluetooth)"
			}
			fmt.Printf("%s%s\n", d.Name, tag)
		}
		return 0
	}

	var dev *audio.DeviceInfo
	switch {
	case cfg.Device != "":
		dev, err = audio.FindDevice(actx, cfg.Device)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	case setup:
		dev, err = audio.SelectDevice(actx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v\n", err)
			fmt.Fprintln(os.Stderr, "Falling back to default device")
			dev = nil
		}
	}
	if dev != nil && audio.IsBluetooth(dev.Name) {
		fmt.Fprintln(os.Stderr, "Warning: bluetooth input often caps quality; prefer a wired mic")
	}

	ctrl := session.NewController(actx, tr, sum, cfg.OutputDir, cfg.SampleRate, cfg.Channels)
	watchSignals(ctrl, cancel)

	fmt.Println("Recording... press Ctrl+C to stop and transcribe.")
	res, err := ctrl.Run(ctx, dev)
	return report(res, err)
}

// watchSignals maps the first interrupt to a graceful stop (finalize,
// transcribe, write artifacts) and the second to a hard abort.
func watchSignals(ctrl *session.Controller, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 2)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nStopping... (interrupt again to abort)")
		ctrl.Stop()
		<-sigChan
		cancel()
	}()
}

func report(res *session.Result, err error) int {
	if res != nil {
		if res.AudioSaved && res.Session.AudioPath != "" {
			fmt.Printf("Audio:      %s\n", res.Session.AudioPath)
		}
		if res.TranscriptSaved {
			fmt.Printf("Transcript: %s\n", res.Session.TranscriptPath)
		}
		if res.SummarySaved {
			fmt.Printf("Summary:    %s\n", res.Session.SummaryPath)
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
