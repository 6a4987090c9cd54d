package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/nsf/termbox-go"

	"gochip8/pkg/cpu"
	"gochip8/pkg/display"
	"gochip8/pkg/keypad"
	"gochip8/pkg/utils"
	"gochip8/pkg/wavrec"
)

const frameTime = time.Second / 60

// buzzer shows the sound timer as a marker on the status line.
type buzzer struct{ on bool }

func (b *buzzer) SoundStart() { b.on = true }

func (b *buzzer) SoundStop() { b.on = false }

type console struct {
	vm     *cpu.CPU
	fb     *display.Framebuffer
	hold   *holdTracker
	sched  *cpu.TimerScheduler
	buzz   *buzzer
	ipf    int
	paused bool
}

// handleKey applies one terminal key event. It reports false when the user
// asked to quit.
func (c *console) handleKey(ev termbox.Event, now time.Time) bool {
	switch {
	case ev.Key == termbox.KeyEsc || ev.Key == termbox.KeyCtrlC:
		return false
	case ev.Key == termbox.KeyBackspace || ev.Key == termbox.KeyBackspace2:
		c.hold.ReleaseAll()
		c.vm.Reset()
		c.sched.Restart()
	case ev.Ch == 'p' || ev.Ch == 'P':
		c.paused = !c.paused
		if c.paused {
			c.hold.ReleaseAll()
		} else {
			c.sched.Restart()
		}
	case !c.paused:
		if key, ok := keypad.Lookup(ev.Ch); ok {
			c.hold.Press(key, now)
		}
	}
	return true
}

func (c *console) frame(now time.Time) {
	c.hold.Expire(now)
	if c.paused || c.vm.Halted {
		return
	}
	for i := 0; i < c.ipf; i++ {
		if err := c.vm.Cycle(); err != nil {
			return
		}
		if c.vm.Wait == cpu.AwaitingKey {
			break
		}
	}
	c.sched.Advance(c.vm, now)
}

func (c *console) status() string {
	switch {
	case c.vm.Halted:
		return "HALTED: " + c.vm.Fault.Error()
	case c.paused:
		return "PAUSED"
	case c.buzz.on:
		return "BEEP"
	}
	return "ESC quit  P pause  BACKSPACE reset"
}

func (c *console) draw() {
	termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	rows := renderRows(c.fb)
	for y, row := range rows {
		for x, ch := range row {
			termbox.SetCell(x, y, ch, termbox.ColorWhite, termbox.ColorBlack)
		}
	}
	for x, ch := range []rune(c.status()) {
		termbox.SetCell(x, len(rows)+1, ch, termbox.ColorDefault, termbox.ColorDefault)
	}
	termbox.Flush()
	c.fb.MarkClean()
}

func newLogger(path string, debug bool) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), io.NopCloser(nil), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})), f, nil
}

func main() {
	ipf := flag.Int("ipf", 10, "instructions executed per frame")
	hold := flag.Duration("hold", 150*time.Millisecond, "how long a key stays down after its last terminal event")
	seed := flag.Uint64("seed", 0, "random seed (0 picks one from the clock)")
	logPath := flag.String("log", "", "write the log to this file (the terminal is taken)")
	wavPath := flag.String("wav", "", "record the buzzer to this WAV file")
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
	logger, logFile, err := newLogger(*logPath, *debug)
	if err != nil {
		log.Fatalf("Failed to open log: %v", err)
	}
	defer logFile.Close()

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

	buzz := &buzzer{}
	var rec *wavrec.Recorder
	if *wavPath != "" {
		if rec, err = wavrec.New(*wavPath); err != nil {
			log.Fatalf("Failed to open WAV output: %v", err)
		}
		rec.Start()
		vm.MountAudio(cpu.MultiAudio(buzz, rec))
	} else {
		vm.MountAudio(buzz)
	}

	if err := termbox.Init(); err != nil {
		log.Fatalf("Failed to open terminal: %v", err)
	}
	termbox.SetInputMode(termbox.InputEsc)

	c := &console{
		vm:    vm,
		fb:    fb,
		hold:  newHoldTracker(keys, *hold),
		sched: cpu.NewTimerScheduler(cpu.TimerPeriod),
		buzz:  buzz,
		ipf:   max(*ipf, 1),
	}

	events := make(chan termbox.Event, 16)
	go func() {
		for {
			ev := termbox.PollEvent()
			if ev.Type == termbox.EventInterrupt {
				close(events)
				return
			}
			events <- ev
		}
	}()

	logger.Info("starting", "rom", fullPath, "bytes", len(rom), "ipf", c.ipf, "seed", *seed)
	ticker := time.NewTicker(frameTime)
	running := true
	for running {
		select {
		case ev := <-events:
			switch ev.Type {
			case termbox.EventKey:
				running = c.handleKey(ev, time.Now())
			case termbox.EventError:
				logger.Error("terminal error", "error", ev.Err)
				running = false
			}
		case now := <-ticker.C:
			c.frame(now)
			c.draw()
		}
	}
	ticker.Stop()

	termbox.Interrupt()
	termbox.Close()

	if rec != nil {
		if err := rec.Close(); err != nil {
			log.Printf("write wav: %v", err)
		}
	}
	if vm.Halted {
		fmt.Fprintln(os.Stderr, "halted:", vm.Fault)
	}
}
