package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-surface/bank"
	"go-surface/config"
	"go-surface/debug"
	"go-surface/display"
	"go-surface/midi"
	"go-surface/theme"
	"go-surface/tui"
	"go-surface/widgets"
)

func main() {
	cfgPath := flag.String("config", "", "config file (.json, .yaml); default ~/.config/go-surface/config.json")
	tracks := flag.Int("tracks", 16, "number of tracks in the bank")
	load := flag.Bool("load", false, "start from the most recent bank save")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Debug.Enabled {
		path := cfg.Debug.Path
		if path == "" {
			path = debug.DefaultPath()
		}
		if err := debug.Enable(path); err != nil {
			fmt.Printf("Warning: debug log disabled: %v\n", err)
		}
		defer debug.Disable()
	}

	// Load theme
	palette := theme.Default()
	if cfg.PalettePath != "" {
		palette = theme.MustLoadGPL(cfg.PalettePath)
	}
	th := theme.New(palette, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Terminal mirror of a two-bank strip surface
	previewCfg := display.Config{
		Name:                 "preview",
		Rows:                 2,
		Cols:                 8,
		Groups:               2,
		MaxValue:             128,
		SettleWindow:         cfg.Display.SettleWindow(),
		NotificationDuration: cfg.Display.NotificationDuration(),
		TickInterval:         cfg.Display.TickInterval(),
		FlushInterval:        cfg.Display.FlushInterval(),
	}
	preview := widgets.NewPreview(previewCfg)
	previewCache, err := display.New(preview, previewCfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	go previewCache.Run(ctx)

	saveDir, err := bank.SavesDir()
	if err != nil {
		saveDir = ""
	}
	b := bank.New("Mix", *tracks)
	if *load && saveDir != "" {
		if loaded, err := bank.Load(saveDir, ""); err == nil {
			b = loaded
		} else {
			fmt.Printf("Warning: %v\n", err)
		}
	}

	page := bank.NewPage(b)
	page.Attach(previewCache)

	// Create MIDI device manager (handles hot-plug)
	deviceMgr := midi.NewDeviceManager(cfg, midi.Options{Timing: cfg.Display, Palette: palette})
	go deviceMgr.Run(ctx)

	fmt.Println("go-surface")
	fmt.Println("Connect controllers any time - they'll be detected automatically")
	fmt.Println("")

	// Create and run TUI
	m := tui.NewModel(page, deviceMgr, preview, previewCache, th)
	m.SaveDir = saveDir
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
