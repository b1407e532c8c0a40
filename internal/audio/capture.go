package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"github.com/grqg-dev/vibe-code-transcriber/internal/config"
)

// Format fixes the PCM layout for one capture stream: 16-bit little-endian
// samples at the configured rate/channel count, delivered to the sink in
// chunks of ChunkSamples samples per channel.
type Format struct {
	SampleRate   int
	Channels     int
	ChunkSamples int
}

// FormatFromConfig lifts the audio section of the runtime config.
func FormatFromConfig(cfg config.AudioConfig) Format {
	return Format{
		SampleRate:   cfg.SampleRate,
		Channels:     cfg.Channels,
		ChunkSamples: cfg.ChunkSize,
	}
}

// ChunkBytes is the byte size of one full frame.
func (f Format) ChunkBytes() int {
	return f.ChunkSamples * f.Channels * 2
}

// FrameSink receives sealed fixed-size PCM frames as they are captured.
type FrameSink func(frame []byte)

// Capture streams fixed-size PCM frames from one selected Pulse source into
// a sink. The sink is the active recording session's frame appender; the
// Pulse writer is pull-based, so frames are not dropped under normal load.
type Capture struct {
	device Device
	format Format
	sink   FrameSink

	client *pulse.Client
	stream *pulse.RecordStream

	mu      sync.Mutex
	pending []byte
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

// StartCapture creates and starts a record stream in the given format.
func StartCapture(ctx context.Context, selected Device, format Format, sink FrameSink) (*Capture, error) {
	if sink == nil {
		return nil, fmt.Errorf("capture frame sink cannot be nil")
	}

	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: resolve source %q: %v", ErrDevice, selected.ID, err)
	}

	capture := &Capture{
		device: selected,
		format: format,
		sink:   sink,
		client: client,
	}

	channelOpt := pulse.RecordMono
	if format.Channels == 2 {
		channelOpt = pulse.RecordStereo
	}

	writer := pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		channelOpt,
		pulse.RecordSampleRate(format.SampleRate),
		pulse.RecordBufferFragmentSize(uint32(format.ChunkBytes())),
		pulse.RecordMediaName("transcriber dictation"),
	)
	if err != nil {
		capture.Close()
		return nil, fmt.Errorf("%w: create record stream: %v", ErrDevice, err)
	}

	capture.stream = stream
	stream.Start()

	go func() {
		<-ctx.Done()
		_ = capture.Stop()
	}()

	return capture, nil
}

// Device returns capture metadata for logging and diagnostics.
func (c *Capture) Device() Device {
	return c.device
}

// BytesCaptured reports total bytes accepted from Pulse.
func (c *Capture) BytesCaptured() int64 {
	return c.bytes.Load()
}

// Stop halts the stream, flushes residual PCM as one short final frame,
// and releases the device. It is idempotent.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()

	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(pending) > 0 {
		c.sink(pending)
	}

	return nil
}

// Close is a convenience alias for Stop.
func (c *Capture) Close() {
	_ = c.Stop()
}

// onPCM receives raw Pulse buffers and emits fixed-size frames to the sink.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	chunkBytes := c.format.ChunkBytes()

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Guard Add under the same mutex as c.stopped to avoid Add/Wait races.
	c.inflight.Add(1)

	c.pending = append(c.pending, buffer...)
	frames := make([][]byte, 0, len(c.pending)/chunkBytes)
	for len(c.pending) >= chunkBytes {
		frame := make([]byte, chunkBytes)
		copy(frame, c.pending[:chunkBytes])
		c.pending = c.pending[chunkBytes:]
		frames = append(frames, frame)
	}
	c.mu.Unlock()
	defer c.inflight.Done()

	c.bytes.Add(int64(len(buffer)))

	for _, frame := range frames {
		c.sink(frame)
	}

	return len(buffer), nil
}

// Probe opens and immediately closes a capture stream on the resolved
// device, verifying microphone availability before the first session.
func Probe(ctx context.Context, input string, fallback string, format Format) error {
	selection, err := SelectDevice(ctx, input, fallback)
	if err != nil {
		return err
	}

	capture, err := StartCapture(ctx, selection.Device, format, func([]byte) {})
	if err != nil {
		return err
	}
	return capture.Stop()
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
