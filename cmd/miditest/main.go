package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-surface/bank"
	"go-surface/config"
	"go-surface/display"
	"go-surface/graphic"
	"go-surface/midi"
	"go-surface/theme"
)

const portTimeout = 3 * time.Second

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "detect":
		detectControllers()
	case "text":
		sendText(strings.Join(os.Args[2:], " "))
	case "leds":
		testLEDs()
	case "render":
		out := "surface.png"
		if len(os.Args) > 2 {
			out = os.Args[2]
		}
		renderPNG(out)
	case "poll":
		pollDevices()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list          - List all MIDI ports")
	fmt.Println("  detect        - Match ports against configured controllers")
	fmt.Println("  text <msg>    - Show a notification on every connected controller")
	fmt.Println("  leds          - Paint the palette on a Launchpad")
	fmt.Println("  render [file] - Render a bank page on a 128x64 panel to PNG")
	fmt.Println("  poll          - Poll for device changes")
}

func loadConfig() *config.Config {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ins, outs, ok := midi.ListPorts(portTimeout)
	if !ok {
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return
	}
	for i, p := range ins {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, p := range outs {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
}

func detectControllers() {
	cfg := loadConfig()
	fmt.Printf("Looking for %d configured controllers...\n", len(cfg.Controllers))

	ins, outs, ok := midi.ListPorts(portTimeout)
	if !ok {
		fmt.Println("TIMEOUT listing ports")
		return
	}

	found := 0
	for _, p := range outs {
		if cc := cfg.FindController(p.String()); cc != nil {
			fmt.Printf("Found output: %s -> %s (%s)\n", p.String(), cc.Name, cc.Type)
			found++
		}
	}
	for _, p := range ins {
		if cc := cfg.FindController(p.String()); cc != nil {
			fmt.Printf("Found input:  %s -> %s (%s)\n", p.String(), cc.Name, cc.Type)
		}
	}

	if found == 0 {
		fmt.Println("\nNo configured controllers found")
	}
}

// openAll opens every configured controller whose output port is present
func openAll(ctx context.Context, cfg *config.Config, want config.ControllerType) []midi.Controller {
	ins, outs, ok := midi.ListPorts(portTimeout)
	if !ok {
		fmt.Println("TIMEOUT listing ports")
		return nil
	}

	opts := midi.Options{Timing: cfg.Display, Palette: theme.Default()}
	var ctrls []midi.Controller
	for _, cc := range cfg.Controllers {
		if want != "" && cc.Type != want {
			continue
		}
		out := findPort(outs, cc.PortName)
		if out == nil {
			continue
		}
		in := findPort(ins, cc.PortName)
		ctrl, err := midi.Open(ctx, cc, in, out, opts)
		if err != nil {
			fmt.Printf("Error opening %s: %v\n", cc.Name, err)
			continue
		}
		fmt.Printf("Opened %s on %s\n", cc.Name, out.String())
		ctrls = append(ctrls, ctrl)
	}
	return ctrls
}

func findPort[P drivers.Port](ports []P, name string) P {
	var zero P
	for _, p := range ports {
		if strings.Contains(strings.ToLower(p.String()), strings.ToLower(name)) {
			return p
		}
	}
	return zero
}

func sendText(msg string) {
	if msg == "" {
		msg = "go-surface"
	}
	cfg := loadConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrls := openAll(ctx, cfg, "")
	if len(ctrls) == 0 {
		fmt.Println("No controllers found")
		return
	}

	for _, c := range ctrls {
		c.Display().Notify(msg)
	}

	// let the overlay run out and the grid come back
	time.Sleep(cfg.Display.NotificationDuration() + 500*time.Millisecond)

	for _, c := range ctrls {
		s := c.Display().Stats()
		fmt.Printf("%s: flushes %d, writes %d, failed %d\n", c.Name(), s.Flushes, s.Writes, s.Failures)
		c.Close()
	}
	fmt.Println("Done!")
}

func testLEDs() {
	cfg := loadConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrls := openAll(ctx, cfg, config.ControllerLaunchpad)
	if len(ctrls) == 0 {
		fmt.Println("No Launchpad found")
		return
	}
	lp := ctrls[0]
	cache := lp.Display()
	layout := cache.Config()

	fmt.Println("Painting palette with a value ramp...")
	for row := 0; row < layout.Rows; row++ {
		for col := 0; col < layout.Cols; col++ {
			cache.UpdateElement(row, col,
				display.WithColor(display.Color(row+1)),
				display.WithVisible(true))
			cache.UpdateValue(row, col, col*(layout.MaxValue-1)/(layout.Cols-1))
		}
	}
	cache.ForceFlush()

	fmt.Println("Press Enter to clear...")
	fmt.Scanln()

	for _, c := range ctrls {
		c.Close()
	}
	fmt.Println("Done!")
}

func renderPNG(path string) {
	cfg := display.Config{Name: "oled", Rows: 2, Cols: 4, Groups: 2, MaxValue: 128}
	panel, err := graphic.New(128, 64, cfg, nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	cache, err := display.New(panel, cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	page := bank.NewPage(bank.New("Mix", 8))
	page.Attach(cache)
	page.ToggleMute(6)
	cache.ForceFlush()
	if err := cache.Flush(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	f, err := os.Create(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer f.Close()
	if err := png.Encode(f, panel.Image()); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	s := cache.Stats()
	fmt.Printf("Wrote %s (%d ops)\n", path, s.Writes)
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds...")
	fmt.Println("Connect/disconnect a controller to test. Ctrl+C to exit.")

	cfg := loadConfig()
	lastIn := ""
	lastOut := ""

	for {
		ins := gomidi.GetInPorts()
		outs := gomidi.GetOutPorts()

		// Build current state
		var inNames, outNames []string
		for _, p := range ins {
			inNames = append(inNames, p.String())
		}
		for _, p := range outs {
			outNames = append(outNames, p.String())
		}

		currentIn := strings.Join(inNames, ",")
		currentOut := strings.Join(outNames, ",")

		if currentIn != lastIn || currentOut != lastOut {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Inputs: %v\n", inNames)
			fmt.Printf("  Outputs: %v\n", outNames)

			for _, name := range outNames {
				if cc := cfg.FindController(name); cc != nil {
					fmt.Printf("  -> %s detected!\n", cc.Name)
				}
			}

			lastIn = currentIn
			lastOut = currentOut
		}

		time.Sleep(2 * time.Second)
	}
}
