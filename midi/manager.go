package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-surface/config"
	"go-surface/debug"
)

// DeviceEvent is emitted when controllers connect/disconnect
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

func (t DeviceEventType) String() string {
	if t == DeviceConnected {
		return "connected"
	}
	return "disconnected"
}

// DeviceManager handles hot-plug detection of the configured controllers
type DeviceManager struct {
	cfg         *config.Config
	opts        Options
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration
}

// NewDeviceManager creates a new device manager
func NewDeviceManager(cfg *config.Config, opts Options) *DeviceManager {
	return &DeviceManager{
		cfg:         cfg,
		opts:        opts,
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    time.Second,
	}
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controllers returns a snapshot of connected controllers
func (dm *DeviceManager) Controllers() map[string]Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	out := make(map[string]Controller, len(dm.controllers))
	for k, v := range dm.controllers {
		out[k] = v
	}
	return out
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	// Initial scan
	dm.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan(ctx)
		}
	}
}

// ListPorts gets the current MIDI ports, giving up after timeout
// (CoreMIDI can hang)
func ListPorts(timeout time.Duration) ([]drivers.In, []drivers.Out, bool) {
	type portsResult struct {
		inPorts  []drivers.In
		outPorts []drivers.Out
	}

	ch := make(chan portsResult, 1)
	go func() {
		ch <- portsResult{inPorts: gomidi.GetInPorts(), outPorts: gomidi.GetOutPorts()}
	}()

	select {
	case result := <-ch:
		return result.inPorts, result.outPorts, true
	case <-time.After(timeout):
		// User needs to run: sudo killall coreaudiod midiserver
		return nil, nil, false
	}
}

// matchPort returns the first port whose name contains substr
func matchPort[P drivers.Port](ports []P, substr string) (P, bool) {
	lower := strings.ToLower(substr)
	for _, p := range ports {
		if strings.Contains(strings.ToLower(p.String()), lower) {
			return p, true
		}
	}
	var zero P
	return zero, false
}

func (dm *DeviceManager) scan(ctx context.Context) {
	inPorts, outPorts, ok := ListPorts(3 * time.Second)
	if !ok {
		debug.Log("device", "port scan timed out")
		return
	}

	// Build map of what we see now
	seenIDs := make(map[string]bool)

	for _, cc := range dm.cfg.AutoConnectControllers() {
		out, ok := matchPort(outPorts, cc.PortName)
		if !ok {
			continue
		}
		seenIDs[cc.ID] = true

		dm.mu.RLock()
		_, exists := dm.controllers[cc.ID]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		var in drivers.In
		if p, ok := matchPort(inPorts, cc.PortName); ok {
			in = p
		}

		ctrl, err := Open(ctx, cc, in, out, dm.opts)
		if err != nil {
			debug.Log("device", "open %s: %v", cc.Name, err)
			continue
		}

		dm.mu.Lock()
		dm.controllers[cc.ID] = ctrl
		dm.mu.Unlock()

		dm.emit(ctx, DeviceEvent{Type: DeviceConnected, Controller: ctrl, ID: cc.ID})
	}

	// Check for disconnects
	dm.mu.Lock()
	var gone []Controller
	for id, c := range dm.controllers {
		if !seenIDs[id] {
			gone = append(gone, c)
			delete(dm.controllers, id)
		}
	}
	dm.mu.Unlock()

	for _, c := range gone {
		c.Close()
		dm.emit(ctx, DeviceEvent{Type: DeviceDisconnected, ID: c.ID()})
	}
}

func (dm *DeviceManager) emit(ctx context.Context, ev DeviceEvent) {
	debug.Log("device", "%s %s", ev.ID, ev.Type)
	select {
	case dm.events <- ev:
	case <-ctx.Done():
	}
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}
