package midi

import (
	"context"
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-surface/config"
	"go-surface/debug"
	"go-surface/display"
	"go-surface/theme"
)

// Layout returns the display grid of a controller type
func Layout(typ config.ControllerType) (display.Config, error) {
	switch typ {
	case config.ControllerMackie:
		return display.Config{Rows: 1, Cols: mackieStrips, Groups: 2, MaxValue: 128}, nil
	case config.ControllerLaunchpad:
		return display.Config{Rows: 8, Cols: 8, MaxValue: 128}, nil
	case config.ControllerElectra:
		return display.Config{Rows: 6, Cols: 6, Groups: 6, MaxValue: 128}, nil
	}
	return display.Config{}, fmt.Errorf("unknown controller type %q", typ)
}

// Options are shared by every device a manager opens
type Options struct {
	Timing  config.DisplayConfig
	Palette *theme.Palette
	Clock   display.Clock // nil for wall clock
}

// device is a Controller built from a display sink and its input decoder
type device struct {
	cfg    config.ControllerConfig
	cache  *display.Cache
	decode decoder

	pads     chan PadEvent
	encoders chan EncoderEvent

	cancel     context.CancelFunc
	done       chan struct{}
	stopListen func()
	shutdown   func() error // leaves the hardware blank

	closeOnce sync.Once
}

// newDevice builds the sink and cache for a controller without touching ports
func newDevice(cc config.ControllerConfig, send func(gomidi.Message) error, opts Options) (*device, error) {
	layout, err := Layout(cc.Type)
	if err != nil {
		return nil, err
	}
	layout.Name = cc.Name
	layout.SettleWindow = opts.Timing.SettleWindow()
	layout.NotificationDuration = opts.Timing.NotificationDuration()
	layout.TickInterval = opts.Timing.TickInterval()
	layout.FlushInterval = opts.Timing.FlushInterval()
	layout.Clock = opts.Clock

	d := &device{
		cfg:      cc,
		pads:     make(chan PadEvent, 32),
		encoders: make(chan EncoderEvent, 32),
	}

	var sink display.Sink
	switch cc.Type {
	case config.ControllerMackie:
		s, err := NewMackieSink(send, layout, opts.Palette)
		if err != nil {
			return nil, err
		}
		sink, d.decode = s, decodeMackie
		d.shutdown = func() error { return s.WriteFullScreenText("") }
	case config.ControllerLaunchpad:
		s, err := NewLaunchpadSink(send, layout, opts.Palette)
		if err != nil {
			return nil, err
		}
		if err := s.Init(); err != nil {
			return nil, err
		}
		sink, d.decode = s, newLaunchpadDecoder(layout.Rows, layout.Cols)
		d.shutdown = s.Clear
	case config.ControllerElectra:
		s, err := NewElectraSink(send, layout, opts.Palette)
		if err != nil {
			return nil, err
		}
		sink, d.decode = s, newElectraDecoder(layout.Rows, layout.Cols)
		d.shutdown = func() error { return s.WriteFullScreenText("") }
	}

	d.cache, err = display.New(sink, layout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cc.Name, err)
	}
	return d, nil
}

// Open connects a configured controller to its ports and starts its
// display loop; the loop stops when ctx is done or the controller is closed
func Open(ctx context.Context, cc config.ControllerConfig, in drivers.In, out drivers.Out, opts Options) (Controller, error) {
	if out == nil {
		return nil, fmt.Errorf("%s: no output port", cc.Name)
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}

	d, err := newDevice(cc, send, opts)
	if err != nil {
		return nil, err
	}

	if in != nil {
		stop, err := gomidi.ListenTo(in, d.handle)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		d.stopListen = stop
	}

	d.start(ctx)
	return d, nil
}

// start forgets whatever the hardware was showing and runs the cache
func (d *device) start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	d.cache.Reset()
	go func() {
		defer close(d.done)
		d.cache.Run(ctx)
	}()
	debug.Log("device", "started %s (%s)", d.cfg.Name, d.cfg.Type)
}

func (d *device) handle(msg gomidi.Message, timestampms int32) {
	if ev, ok := d.decode(msg); ok {
		dispatch(ev, d.pads, d.encoders)
	}
}

func (d *device) ID() string                         { return d.cfg.ID }
func (d *device) Name() string                       { return d.cfg.Name }
func (d *device) Type() config.ControllerType        { return d.cfg.Type }
func (d *device) Display() *display.Cache            { return d.cache }
func (d *device) PadEvents() <-chan PadEvent         { return d.pads }
func (d *device) EncoderEvents() <-chan EncoderEvent { return d.encoders }

func (d *device) Close() error {
	var err error
	d.closeOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
			<-d.done
		}
		if d.stopListen != nil {
			d.stopListen()
		}
		if d.shutdown != nil {
			err = d.shutdown()
		}
		close(d.pads)
		close(d.encoders)
		debug.Log("device", "closed %s", d.cfg.Name)
	})
	return err
}
