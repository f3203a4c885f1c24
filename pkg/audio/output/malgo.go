// ABOUTME: Malgo-based audio output backend
// ABOUTME: Uses miniaudio via malgo; the device callback drains the buffer queue
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/gen2brain/malgo"
)

// Malgo plays a Queue through the default miniaudio playback device
type Malgo struct {
	*Queue

	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	bitDepth int

	// scratch is only touched by the device callback
	scratch []float32
}

// NewMalgo opens the default playback device with 16-bit output
func NewMalgo(f audio.Format) (*Malgo, error) {
	return NewMalgoDepth(f, 16)
}

// NewMalgoDepth opens the default playback device with the given output bit depth
func NewMalgoDepth(f audio.Format, bitDepth int) (*Malgo, error) {
	q, err := NewQueue(f)
	if err != nil {
		return nil, err
	}

	// Map bit depth to malgo format
	var format malgo.FormatType
	switch bitDepth {
	case 16:
		format = malgo.FormatS16
	case 24:
		format = malgo.FormatS24
	case 32:
		format = malgo.FormatF32
	default:
		return nil, fmt.Errorf("%w: bit depth %d (supported: 16, 24, 32)", audio.ErrUnsupported, bitDepth)
	}

	m := &Malgo{Queue: q, bitDepth: bitDepth}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	m.malgoCtx = ctx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = uint32(f.Channels)
	deviceConfig.SampleRate = uint32(f.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			m.dataCallback(pOutput, frameCount)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		m.freeContext()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		m.freeContext()
		return nil, fmt.Errorf("failed to start device: %w", err)
	}
	m.device = device

	log.Printf("Audio output initialized: %v, %d-bit (malgo/%s)", f, bitDepth, formatName(format))
	return m, nil
}

// dataCallback is called by malgo to fill the device buffer
func (m *Malgo) dataCallback(pOutput []byte, frameCount uint32) {
	total := int(frameCount) * m.Format().Channels
	if cap(m.scratch) < total {
		m.scratch = make([]float32, total)
	}
	samples := m.scratch[:total]

	m.Read(samples)

	switch m.bitDepth {
	case 16:
		write16Bit(pOutput, samples)
	case 24:
		write24Bit(pOutput, samples)
	case 32:
		writeFloat32(pOutput, samples)
	}
}

// write16Bit packs samples as little-endian signed 16-bit
func write16Bit(output []byte, samples []float32) {
	for i, s := range samples {
		v := audio.Float32ToInt16(s)
		output[i*2] = byte(v)
		output[i*2+1] = byte(v >> 8)
	}
}

// write24Bit packs samples as little-endian signed 24-bit (3 bytes per sample)
func write24Bit(output []byte, samples []float32) {
	for i, s := range samples {
		v := audio.Float32ToInt24(s)
		output[i*3] = byte(v)
		output[i*3+1] = byte(v >> 8)
		output[i*3+2] = byte(v >> 16)
	}
}

// writeFloat32 packs samples as little-endian IEEE floats
func writeFloat32(output []byte, samples []float32) {
	for i, s := range samples {
		putFloat32(output[i*4:], s)
	}
}

// Close stops the device and drops all buffers
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
		m.device.Uninit()
		m.device = nil
	}
	m.freeContext()

	return m.Queue.Close()
}

func (m *Malgo) freeContext() {
	if m.malgoCtx == nil {
		return
	}
	if err := m.malgoCtx.Uninit(); err != nil {
		log.Printf("Warning: malgo context uninit error: %v", err)
	}
	m.malgoCtx.Free()
	m.malgoCtx = nil
}

// formatName returns human-readable format name
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS24:
		return "S24"
	case malgo.FormatF32:
		return "F32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}
