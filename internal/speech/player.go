package speech

import (
	"sync"

	"github.com/gordonklaus/portaudio"

	apperrors "github.com/GriffinCanCode/screenlate/internal/errors"
)

// framesPerBuffer is ~46ms at 22050Hz.
const framesPerBuffer = 1024

// PortAudioPlayer writes samples to the default output device.
type PortAudioPlayer struct {
	mu         sync.Mutex
	sampleRate int
	closed     bool
}

// NewPortAudioPlayer initializes PortAudio. Close must be called to terminate it.
func NewPortAudioPlayer(sampleRate int) (*PortAudioPlayer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.SpeechFailed, "initialize portaudio")
	}
	return &PortAudioPlayer{sampleRate: sampleRate}, nil
}

// Play blocks until all samples are written.
func (p *PortAudioPlayer) Play(samples []float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return apperrors.New(apperrors.SpeechFailed, "player closed")
	}

	buf := make([]float32, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(p.sampleRate), len(buf), &buf)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	for off := 0; off < len(samples); off += len(buf) {
		n := copy(buf, samples[off:])
		clear(buf[n:])
		if err := stream.Write(); err != nil {
			return err
		}
	}
	return nil
}

func (p *PortAudioPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return portaudio.Terminate()
}
