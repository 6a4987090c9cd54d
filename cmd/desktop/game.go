package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"gochip8/pkg/cpu"
	"gochip8/pkg/display"
	"gochip8/pkg/keypad"
	"gochip8/pkg/savestore"
)

// hostKeys are the physical keys feeding the keypad, by the character they
// carry in keypad.QWERTY.
var hostKeys = map[ebiten.Key]rune{
	ebiten.KeyDigit1: '1', ebiten.KeyDigit2: '2', ebiten.KeyDigit3: '3', ebiten.KeyDigit4: '4',
	ebiten.KeyQ: 'q', ebiten.KeyW: 'w', ebiten.KeyE: 'e', ebiten.KeyR: 'r',
	ebiten.KeyA: 'a', ebiten.KeyS: 's', ebiten.KeyD: 'd', ebiten.KeyF: 'f',
	ebiten.KeyZ: 'z', ebiten.KeyX: 'x', ebiten.KeyC: 'c', ebiten.KeyV: 'v',
}

// padKeys is hostKeys inverted: the physical key for each keypad value.
var padKeys = func() map[uint8]ebiten.Key {
	m := make(map[uint8]ebiten.Key, len(hostKeys))
	for k, r := range hostKeys {
		key, _ := keypad.Lookup(r)
		m[key] = k
	}
	return m
}()

const (
	quickSlot     = "quick"
	statusTimeout = 2 * time.Second
)

type Game struct {
	vm     *cpu.CPU
	fb     *display.Framebuffer
	keys   *keypad.Keypad
	sched  *cpu.TimerScheduler
	store  *savestore.Store
	logger *slog.Logger

	ipf     int
	scale   int
	shotDir string
	romName string

	paused      bool
	status      string
	statusUntil time.Time

	audio *audioGate

	frame   *ebiten.Image
	now     func() time.Time
	keyDown func(ebiten.Key) bool
}

func newGame(vm *cpu.CPU, fb *display.Framebuffer, keys *keypad.Keypad, store *savestore.Store, logger *slog.Logger) *Game {
	g := &Game{
		vm:     vm,
		fb:     fb,
		keys:   keys,
		sched:  cpu.NewTimerScheduler(cpu.TimerPeriod),
		store:  store,
		logger: logger,
		ipf:    60,
		scale:  16,
		now:    time.Now,

		keyDown: ebiten.IsKeyPressed,
	}
	g.mountAudio(vm.Audio)
	return g
}

// mountAudio routes the machine's sound signals to a through the pause gate.
func (g *Game) mountAudio(a cpu.Audio) {
	g.audio = &audioGate{out: a, want: g.vm.ST > 0, paused: g.paused}
	g.vm.MountAudio(g.audio)
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		g.togglePause()
	case inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
		g.reset()
	case inpututil.IsKeyJustPressed(ebiten.KeyF5):
		g.saveState()
	case inpututil.IsKeyJustPressed(ebiten.KeyF9):
		g.loadState()
	case inpututil.IsKeyJustPressed(ebiten.KeyF12):
		g.screenshot()
	}

	if g.paused {
		return nil
	}

	for k, r := range hostKeys {
		key, _ := keypad.Lookup(r)
		if inpututil.IsKeyJustPressed(k) {
			g.keys.Press(key)
		}
		if inpututil.IsKeyJustReleased(k) {
			g.keys.Release(key)
		}
	}

	g.step()
	return nil
}

// step runs one frame of the machine: ipf cycles, then the timer ticks due.
func (g *Game) step() {
	if g.vm.Halted {
		return
	}
	for i := 0; i < g.ipf; i++ {
		if err := g.vm.Cycle(); err != nil {
			return
		}
		if g.vm.Wait == cpu.AwaitingKey {
			break
		}
	}
	g.sched.Advance(g.vm, g.now())
}

func (g *Game) togglePause() {
	g.paused = !g.paused
	g.audio.SetPaused(g.paused)
	if !g.paused {
		g.syncKeys()
		g.sched.Restart()
	}
	g.logger.Debug("pause toggled", "paused", g.paused)
}

// syncKeys brings the keypad in line with the physical keys. Key edges are
// not polled while paused, so presses and releases made then are applied
// here.
func (g *Game) syncKeys() {
	held := g.keys.Held()
	for _, key := range held {
		if !g.keyDown(padKeys[key]) {
			g.keys.Release(key)
		}
	}
	for k, r := range hostKeys {
		key, _ := keypad.Lookup(r)
		if g.keyDown(k) && !slices.Contains(held, key) {
			g.keys.Press(key)
		}
	}
}

func (g *Game) reset() {
	g.vm.Reset()
	g.sched.Restart()
	g.setStatus("RESET")
}

func (g *Game) saveState() {
	data, err := g.vm.HibernateToBytes()
	if err == nil {
		err = g.store.Write(quickSlot, data)
	}
	if err != nil {
		g.logger.Error("save state failed", "error", err)
		g.setStatus("SAVE FAILED")
		return
	}
	g.logger.Info("state saved", "slot", quickSlot, "bytes", len(data))
	g.setStatus("STATE SAVED")
}

func (g *Game) loadState() {
	data, err := g.store.Read(quickSlot)
	if err == nil {
		err = g.vm.RestoreFromBytes(data)
	}
	if err != nil {
		g.logger.Error("load state failed", "error", err)
		g.setStatus("LOAD FAILED")
		return
	}
	g.sched.Restart()
	g.logger.Info("state loaded", "slot", quickSlot)
	g.setStatus("STATE LOADED")
}

func (g *Game) screenshot() {
	name := fmt.Sprintf("%s-%s.png", g.romName, g.now().Format("20060102-150405"))
	path := filepath.Join(g.shotDir, name)
	if err := os.MkdirAll(g.shotDir, 0755); err != nil {
		g.logger.Error("screenshot failed", "error", err)
		return
	}
	if err := g.fb.SaveScreenshot(path, g.scale); err != nil {
		g.logger.Error("screenshot failed", "error", err)
		g.setStatus("SCREENSHOT FAILED")
		return
	}
	g.logger.Info("screenshot saved", "path", path)
	g.setStatus("SCREENSHOT SAVED")
}

func (g *Game) setStatus(msg string) {
	g.status = msg
	g.statusUntil = g.now().Add(statusTimeout)
}

// overlayText is the banner drawn over the screen, if any.
func (g *Game) overlayText() string {
	switch {
	case g.vm.Halted:
		return "HALTED: " + g.vm.Fault.Error()
	case g.paused:
		return "PAUSED"
	case g.status != "" && g.now().Before(g.statusUntil):
		return g.status
	}
	return ""
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.frame == nil {
		g.frame = ebiten.NewImage(display.Width, display.Height)
	}
	if g.fb.Dirty() {
		g.frame.WritePixels(g.fb.RGBA())
		g.fb.MarkClean()
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.scale), float64(g.scale))
	screen.DrawImage(g.frame, op)

	if msg := g.overlayText(); msg != "" {
		ebitenutil.DebugPrintAt(screen, msg, 8, 8)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return display.Width * g.scale, display.Height * g.scale
}
