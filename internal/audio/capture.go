package audio

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"github.com/outlaylabs/outlay/internal/fault"
)

const (
	// SampleRate and Channels fix the capture spec expected downstream.
	SampleRate = 16000
	Channels   = 1

	fragmentSizeBytes = 640 // 20ms @ 16kHz mono s16
)

// sampleFormat is one entry of the capture encoding preference list.
type sampleFormat struct {
	name string
	spec byte
}

// preferredFormats is tried in order when opening the record stream; the
// first format the server accepts wins. Non-s16 formats are converted to
// s16le before accumulation so downstream stages see one encoding.
var preferredFormats = []sampleFormat{
	{name: "s16le", spec: pulseproto.FormatInt16LE},
	{name: "f32le", spec: pulseproto.FormatFloat32LE},
}

// Capture accumulates PCM from one Pulse source in arrival order.
type Capture struct {
	device Device
	format sampleFormat

	client *pulse.Client
	stream *pulse.RecordStream

	stopCh chan struct{}

	mu      sync.Mutex
	pcm     []byte
	stopped bool

	bytes atomic.Int64
}

// StartCapture opens a 16kHz mono record stream on the selected device.
//
// Connection and source-resolution failures surface as DeviceUnavailable;
// exhausting the encoding preference list surfaces as UnsupportedFormat.
func StartCapture(ctx context.Context, selected Device) (*Capture, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("outlay"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fault.Wrap(fault.KindDeviceUnavailable, "connect pulse server", err)
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fault.Wrap(fault.KindDeviceUnavailable, "resolve source "+selected.ID, err)
	}

	capture := &Capture{
		device: selected,
		client: client,
		stopCh: make(chan struct{}),
	}

	var lastErr error
	for _, format := range preferredFormats {
		capture.format = format
		writer := pulse.NewWriter(writerFunc(capture.onPCM), format.spec)
		stream, err := client.NewRecord(
			writer,
			pulse.RecordSource(source),
			pulse.RecordMono,
			pulse.RecordSampleRate(SampleRate),
			pulse.RecordBufferFragmentSize(fragmentSizeBytes),
			pulse.RecordMediaName("outlay purchase note"),
		)
		if err != nil {
			lastErr = err
			continue
		}

		capture.stream = stream
		stream.Start()

		go func() {
			select {
			case <-ctx.Done():
				_ = capture.Stop()
			case <-capture.stopCh:
			}
		}()

		return capture, nil
	}

	client.Close()
	return nil, fault.Wrap(fault.KindUnsupportedFormat, "no capture encoding accepted by audio server", lastErr)
}

// Device returns capture metadata for logging and diagnostics.
func (c *Capture) Device() Device {
	return c.device
}

// Format names the negotiated capture encoding.
func (c *Capture) Format() string {
	return c.format.name
}

// BytesCaptured reports total raw bytes accepted from Pulse.
func (c *Capture) BytesCaptured() int64 {
	return c.bytes.Load()
}

// PCM returns a snapshot of the accumulated s16le samples.
func (c *Capture) PCM() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.pcm))
	copy(out, c.pcm)
	return out
}

// Stop halts the stream and releases the microphone exactly once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}
	return nil
}

// Close is a convenience alias for Stop.
func (c *Capture) Close() {
	_ = c.Stop()
}

// onPCM receives raw Pulse frames, converts them to s16le when needed, and
// appends them in arrival order.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	samples := buffer
	if c.format.spec == pulseproto.FormatFloat32LE {
		samples = f32leToS16LE(buffer)
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	c.pcm = append(c.pcm, samples...)
	c.mu.Unlock()

	c.bytes.Add(int64(len(buffer)))
	return len(buffer), nil
}

// f32leToS16LE converts 32-bit float samples to clamped 16-bit PCM.
func f32leToS16LE(b []byte) []byte {
	out := make([]byte, 0, len(b)/2)
	for i := 0; i+4 <= len(b); i += 4 {
		f := math.Float32frombits(binary.LittleEndian.Uint32(b[i : i+4]))
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		s := uint16(int16(f * math.MaxInt16))
		out = append(out, byte(s), byte(s>>8))
	}
	return out
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
