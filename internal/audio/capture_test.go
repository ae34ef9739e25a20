package audio

import (
	"encoding/binary"
	"io"
	"math"
	"testing"
	"time"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestOnPCMAccumulatesInArrivalOrder(t *testing.T) {
	capture := &Capture{
		format: sampleFormat{name: "s16le", spec: pulseproto.FormatInt16LE},
		stopCh: make(chan struct{}),
	}

	n, err := capture.onPCM([]byte{1, 2})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = capture.onPCM([]byte{3, 4})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.Equal(t, []byte{1, 2, 3, 4}, capture.PCM())
	require.Equal(t, int64(4), capture.BytesCaptured())
}

func TestOnPCMConvertsFloat32Frames(t *testing.T) {
	capture := &Capture{
		format: sampleFormat{name: "f32le", spec: pulseproto.FormatFloat32LE},
		stopCh: make(chan struct{}),
	}

	frame := make([]byte, 8)
	binary.LittleEndian.PutUint32(frame[0:4], math.Float32bits(0.5))
	binary.LittleEndian.PutUint32(frame[4:8], math.Float32bits(-1.5)) // clamps to -1

	n, err := capture.onPCM(frame)
	require.NoError(t, err)
	require.Equal(t, len(frame), n)

	pcm := capture.PCM()
	require.Len(t, pcm, 4)
	require.Equal(t, int16(math.MaxInt16/2), int16(binary.LittleEndian.Uint16(pcm[0:2])))
	require.Equal(t, int16(-math.MaxInt16), int16(binary.LittleEndian.Uint16(pcm[2:4])))
}

func TestOnPCMRejectsFramesAfterStop(t *testing.T) {
	capture := &Capture{
		format: sampleFormat{name: "s16le", spec: pulseproto.FormatInt16LE},
		stopCh: make(chan struct{}),
	}
	require.NoError(t, capture.Stop())

	_, err := capture.onPCM([]byte{1, 2})
	require.ErrorIs(t, err, io.EOF)
	require.Empty(t, capture.PCM())
}

func TestStopIsIdempotent(t *testing.T) {
	capture := &Capture{stopCh: make(chan struct{})}
	require.NoError(t, capture.Stop())
	require.NoError(t, capture.Stop())
}

func TestPCMReturnsSnapshot(t *testing.T) {
	capture := &Capture{
		format: sampleFormat{name: "s16le", spec: pulseproto.FormatInt16LE},
		stopCh: make(chan struct{}),
	}
	_, err := capture.onPCM([]byte{9, 9})
	require.NoError(t, err)

	snapshot := capture.PCM()
	snapshot[0] = 0
	require.Equal(t, []byte{9, 9}, capture.PCM())
}

func TestF32LEToS16LEClampsAndScales(t *testing.T) {
	frame := make([]byte, 12)
	binary.LittleEndian.PutUint32(frame[0:4], math.Float32bits(0))
	binary.LittleEndian.PutUint32(frame[4:8], math.Float32bits(1))
	binary.LittleEndian.PutUint32(frame[8:12], math.Float32bits(2)) // clamps to 1

	out := f32leToS16LE(frame)
	require.Len(t, out, 6)
	require.Equal(t, int16(0), int16(binary.LittleEndian.Uint16(out[0:2])))
	require.Equal(t, int16(math.MaxInt16), int16(binary.LittleEndian.Uint16(out[2:4])))
	require.Equal(t, int16(math.MaxInt16), int16(binary.LittleEndian.Uint16(out[4:6])))
}

func TestEncodeWAVHeader(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	wav := EncodeWAV(pcm, SampleRate, Channels)

	require.Len(t, wav, 44+len(pcm))
	require.Equal(t, "RIFF", string(wav[0:4]))
	require.Equal(t, "WAVE", string(wav[8:12]))
	require.Equal(t, "fmt ", string(wav[12:16]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:22]))
	require.Equal(t, uint16(Channels), binary.LittleEndian.Uint16(wav[22:24]))
	require.Equal(t, uint32(SampleRate), binary.LittleEndian.Uint32(wav[24:28]))
	require.Equal(t, uint32(SampleRate*Channels*2), binary.LittleEndian.Uint32(wav[28:32]))
	require.Equal(t, "data", string(wav[36:40]))
	require.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]))
	require.Equal(t, pcm, wav[44:])
}

func TestPCMDuration(t *testing.T) {
	oneSecond := SampleRate * Channels * 2
	require.Equal(t, time.Second, PCMDuration(oneSecond, SampleRate, Channels))
	require.Equal(t, 500*time.Millisecond, PCMDuration(oneSecond/2, SampleRate, Channels))
	require.Equal(t, time.Duration(0), PCMDuration(oneSecond, 0, Channels))
}
