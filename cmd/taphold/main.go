// Package main is the taphold playground: an interactive terminal rig
// that maps your home row onto a two-hand demo matrix, feeds the events
// through the decision engine, and shows the resulting HID trace live.
//
// Terminals only deliver key presses, so the playground synthesizes each
// release after a dwell: lowercase keys release quickly, uppercase ones
// dwell long enough to read as holds. This is a limitation of the rig,
// not of the engine.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/taphold/internal/config"
	"github.com/dshills/taphold/internal/engine"
	"github.com/dshills/taphold/internal/hid"
	"github.com/dshills/taphold/internal/key"
	"github.com/dshills/taphold/internal/keymap"
	"github.com/dshills/taphold/internal/policy"
	"github.com/dshills/taphold/internal/side"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	loader := config.NewLoader()
	cfg, err := loader.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	pol := policy.Default()
	if opts.policyPath != "" {
		loaded, lp, err := policy.FromLua(opts.policyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer lp.Close()
		pol = loaded
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create screen: %v\n", err)
		return 1
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to init screen: %v\n", err)
		return 1
	}
	defer screen.Fini()

	pg := newPlayground(cfg, pol)

	if opts.watch {
		w, err := config.Watch(opts.configPath, loader, func(cfg config.Config, err error) {
			if err == nil {
				pg.reload <- cfg
			}
		})
		if err != nil {
			screen.Fini()
			fmt.Fprintf(os.Stderr, "Error: failed to watch config: %v\n", err)
			return 1
		}
		defer w.Close()
	}

	pg.loop(screen)

	if opts.tracePath != "" {
		out, err := pg.rec.ExportJSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if err := os.WriteFile(opts.tracePath, []byte(out), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: writing trace: %v\n", err)
			return 1
		}
	}
	return 0
}

type options struct {
	configPath string
	policyPath string
	tracePath  string
	watch      bool
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.configPath, "config", "taphold.toml", "Path to configuration file")
	flag.StringVar(&opts.policyPath, "policy", "", "Path to a Lua policy script")
	flag.StringVar(&opts.tracePath, "trace", "", "Write the HID trace as JSON on exit")
	flag.BoolVar(&opts.watch, "watch", false, "Reload the configuration when it changes")
	flag.Parse()
	return opts
}

// The demo matrix: two rows, one per hand. The home row maps onto it.
var demoRunes = map[rune]key.Pos{
	'a': {Row: 0, Col: 0},
	's': {Row: 0, Col: 1},
	'd': {Row: 0, Col: 2},
	'f': {Row: 0, Col: 3},
	'g': {Row: 0, Col: 4},
	'h': {Row: 1, Col: 0},
	'j': {Row: 1, Col: 1},
	'k': {Row: 1, Col: 2},
	'l': {Row: 1, Col: 3},
	';': {Row: 1, Col: 4},
}

func demoKeymap() (*keymap.Keymap, error) {
	km := keymap.New(2, 5)
	if err := km.DefineLayer(0, [][]key.Code{
		{key.ModTap(key.PackedCtrl, key.A), key.ModTap(key.PackedAlt, key.S), key.D, key.LayerTap(1, key.F), key.G},
		{key.H, key.J, key.ModTap(key.PackedShift, key.K), key.L, key.ModTap(key.PackedCtrl|key.PackedRight, key.Semicolon)},
	}); err != nil {
		return nil, err
	}
	if err := km.DefineLayer(1, [][]key.Code{
		{key.Escape, key.Tab, key.None, key.None, key.None},
		{key.Backspace, key.Enter, key.None, key.None, key.None},
	}); err != nil {
		return nil, err
	}
	return km, nil
}

func demoSides() *side.Resolver {
	return &side.Resolver{Layout: [][]side.Side{
		{side.LL, side.LL, side.LL, side.LL, side.LL},
		{side.RR, side.RR, side.RR, side.RR, side.RR},
	}}
}

// pendingRelease is a synthesized release waiting for its dwell to pass.
type pendingRelease struct {
	pos key.Pos
	due time.Time
}

type playground struct {
	eng    *engine.Engine
	km     *keymap.Keymap
	rec    *hid.Recorder
	cfg    config.Config
	pol    *policy.Policy
	reload chan config.Config

	pending []pendingRelease
	message string
}

func newPlayground(cfg config.Config, pol *policy.Policy) *playground {
	pg := &playground{
		cfg:    cfg,
		pol:    pol,
		reload: make(chan config.Config, 1),
	}
	pg.rebuild()
	return pg
}

// rebuild replaces the engine, keeping the recorder's session running.
func (pg *playground) rebuild() {
	km, err := demoKeymap()
	if err != nil {
		panic(err) // the demo layout is static
	}
	pg.km = km
	if pg.rec == nil {
		pg.rec = hid.NewRecorder(nil)
	}
	pg.eng = engine.New(
		engine.WithSink(pg.rec),
		engine.WithKeymap(km),
		engine.WithSides(demoSides()),
		engine.WithConfig(pg.cfg),
		engine.WithPolicy(pg.pol),
	)
	pg.pending = nil
}

func (pg *playground) loop(screen tcell.Screen) {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go screen.ChannelEvents(events, quit)

	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()

	pg.draw(screen)
	for {
		select {
		case cfg := <-pg.reload:
			pg.cfg = cfg
			pg.rebuild()
			pg.message = "config reloaded"
		case <-tick.C:
			pg.eng.Tick()
			pg.releaseDue()
		case ev := <-events:
			switch tev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
			case *tcell.EventKey:
				if tev.Key() == tcell.KeyEscape || tev.Key() == tcell.KeyCtrlC {
					close(quit)
					return
				}
				pg.handleRune(tev.Rune())
			}
		}
		pg.draw(screen)
	}
}

// handleRune turns a typed rune into a press plus a synthesized release.
// Uppercase dwells long enough to cross the usual hold thresholds.
func (pg *playground) handleRune(r rune) {
	dwell := 60 * time.Millisecond
	if r >= 'A' && r <= 'Z' {
		r = r + ('a' - 'A')
		dwell = 900 * time.Millisecond
	}
	pos, ok := demoRunes[r]
	if !ok {
		return
	}
	pg.feed(pos, true)
	pg.pending = append(pg.pending, pendingRelease{pos: pos, due: time.Now().Add(dwell)})
}

func (pg *playground) releaseDue() {
	now := time.Now()
	kept := pg.pending[:0]
	for _, p := range pg.pending {
		if now.Before(p.due) {
			kept = append(kept, p)
			continue
		}
		pg.feed(p.pos, false)
	}
	pg.pending = kept
}

func (pg *playground) feed(pos key.Pos, pressed bool) {
	code := pg.km.CurrentKeycode(pos)
	rec := &key.Record{Pos: pos, Pressed: pressed}
	if pg.eng.ProcessRecord(code, rec) {
		pg.eng.Apply(code, rec)
	}
}

func (pg *playground) draw(screen tcell.Screen) {
	screen.Clear()
	style := tcell.StyleDefault

	stats := pg.eng.Stats()
	lines := []string{
		"taphold playground - home row drives a two-hand demo matrix",
		"lowercase taps, UPPERCASE holds, Esc quits",
		"",
		fmt.Sprintf("status: %-16s min-overlap: %d ms", pg.eng.Status(), pg.eng.MinOverlapForHold()),
		fmt.Sprintf("taps: %d  holds: %d  forced: %d  overlap-holds: %d  streak: %d",
			stats.TapDecisions, stats.HoldDecisions, stats.ForcedChoices, stats.OverlapHolds, stats.FastStreakTaps),
		"",
		"trace:",
	}

	events := pg.rec.Events()
	start := 0
	if len(events) > 12 {
		start = len(events) - 12
	}
	for _, e := range events[start:] {
		lines = append(lines, "  "+e.String())
	}
	if pg.message != "" {
		lines = append(lines, "", pg.message)
	}

	for y, line := range lines {
		for x, r := range line {
			screen.SetContent(x, y, r, nil, style)
		}
	}
	screen.Show()
}
