package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"gochip8/pkg/beeper"
	"gochip8/pkg/cpu"
	"gochip8/pkg/display"
	"gochip8/pkg/keypad"
	"gochip8/pkg/savestore"
	"gochip8/pkg/utils"
	"gochip8/pkg/wavrec"
)

// startStateSyncer flushes the save-state store to dir every interval while
// stop is open.
func startStateSyncer(store *savestore.Store, dir string, interval time.Duration, stop <-chan struct{}, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if store.IsDirty() {
				if err := store.PersistTo(dir); err != nil {
					logger.Warn("persist save states", "dir", dir, "error", err)
				}
			}
		case <-stop:
			return
		}
	}
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	ipf := flag.Int("ipf", 60, "instructions executed per frame")
	scale := flag.Int("scale", 16, "window scale factor")
	statesDir := flag.String("states", "", "save-state directory (default <rom>.states beside the ROM)")
	wavPath := flag.String("wav", "", "record the buzzer to this WAV file")
	seed := flag.Uint64("seed", 0, "random seed (0 picks one from the clock)")
	debug := flag.Bool("debug", false, "log every executed instruction")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] rom.ch8\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	fullPath, _, err := utils.GetPathInfo(flag.Arg(0))
	if err != nil {
		log.Fatalf("Bad ROM path: %v", err)
	}
	rom, err := os.ReadFile(fullPath)
	if err != nil {
		log.Fatalf("Failed to read ROM: %v", err)
	}

	logger := newLogger(*debug)

	fb := display.New()
	keys := keypad.New()
	vm := cpu.NewCPU(fb, keys)
	vm.Logger = logger
	keys.OnRelease(vm.KeyReleased)

	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}
	vm.SeedRandom(*seed)

	if err := vm.LoadProgram(rom); err != nil {
		log.Fatalf("Failed to load ROM: %v", err)
	}

	var sinks []cpu.Audio
	if b, err := beeper.New(nil); err != nil {
		logger.Warn("audio unavailable", "error", err)
	} else {
		sinks = append(sinks, b)
	}
	var rec *wavrec.Recorder
	if *wavPath != "" {
		if rec, err = wavrec.New(*wavPath); err != nil {
			log.Fatalf("Failed to open WAV output: %v", err)
		}
		rec.Start()
		sinks = append(sinks, rec)
	}
	vm.MountAudio(cpu.MultiAudio(sinks...))

	dir := *statesDir
	if dir == "" {
		dir = utils.SiblingDir(fullPath, ".states")
	}
	store := savestore.New()
	if err := store.LoadFrom(dir); err != nil {
		logger.Warn("load save states", "dir", dir, "error", err)
	}

	// Flush dirty save states to the host every 3 s
	stopSyncer := make(chan struct{})
	go startStateSyncer(store, dir, 3*time.Second, stopSyncer, logger)

	game := newGame(vm, fb, keys, store, logger)
	game.ipf = *ipf
	game.scale = max(*scale, 1)
	game.shotDir = dir
	game.romName = utils.StemName(fullPath)

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(display.Width*game.scale, display.Height*game.scale)
	ebiten.SetWindowTitle("CHIP-8 - " + game.romName)

	logger.Info("starting", "rom", fullPath, "bytes", len(rom), "ipf", *ipf, "seed", *seed)
	runErr := ebiten.RunGame(game)

	close(stopSyncer)
	if store.IsDirty() {
		if err := store.PersistTo(dir); err != nil {
			logger.Error("persist save states", "dir", dir, "error", err)
		}
	}
	if rec != nil {
		if err := rec.Close(); err != nil {
			logger.Error("write wav", "error", err)
		}
	}

	if runErr != nil && !errors.Is(runErr, ebiten.Termination) {
		log.Fatal(runErr)
	}
}
