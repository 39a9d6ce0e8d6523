package capture

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sculptai/posecoach/audio"
)

// AudioInput is a blocking reader of normalized float32 samples at
// InputSampleRate, mono. Read fills the whole block or returns an error.
type AudioInput interface {
	Read(block []float32) error
	Close() error
}

// VideoInput grabs the current camera frame at source resolution.
type VideoInput interface {
	Grab() (image.Image, error)
	Close() error
}

// Pipeline drives a device: audio in fixed BlockSize chunks converted to
// PCM16, video stills on a fixed cadence encoded as JPEG. A nil VideoInput
// yields an audio-only pipeline.
type Pipeline struct {
	mic      AudioInput
	cam      VideoInput
	interval time.Duration
	quality  int

	frames chan Frame
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewPipeline creates a pipeline over the given inputs. interval is the
// video still cadence; quality is JPEG quality 1-100.
func NewPipeline(mic AudioInput, cam VideoInput, interval time.Duration, quality int) *Pipeline {
	return &Pipeline{
		mic:      mic,
		cam:      cam,
		interval: interval,
		quality:  quality,
		frames:   make(chan Frame, 16),
		done:     make(chan struct{}),
	}
}

// Start begins capture. Frames are delivered on Frames() until Close.
func (p *Pipeline) Start() {
	p.wg.Add(1)
	go p.audioLoop()

	if p.cam != nil {
		p.wg.Add(1)
		go p.videoLoop()
	}

	go func() {
		p.wg.Wait()
		close(p.frames)
	}()
}

// Frames returns the capture frame stream.
func (p *Pipeline) Frames() <-chan Frame {
	return p.frames
}

// Close stops both loops and releases the device handles. Best-effort:
// a failing input close does not block the other.
func (p *Pipeline) Close() error {
	var errs []error
	p.once.Do(func() {
		close(p.done)
		if p.mic != nil {
			if err := p.mic.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if p.cam != nil {
			if err := p.cam.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func (p *Pipeline) audioLoop() {
	defer p.wg.Done()

	block := make([]float32, BlockSize)
	for {
		select {
		case <-p.done:
			return
		default:
		}

		if err := p.mic.Read(block); err != nil {
			select {
			case <-p.done:
			default:
				log.Warn().Err(err).Msg("audio capture ended")
			}
			return
		}

		pcm := audio.EncodePCM16FromFloat32(block)
		p.emit(AudioFrame(pcm, InputSampleRate))
	}
}

func (p *Pipeline) videoLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			img, err := p.cam.Grab()
			if err != nil {
				log.Warn().Err(err).Msg("video frame grab failed, skipping")
				continue
			}
			var buf bytes.Buffer
			if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
				log.Warn().Err(err).Msg("jpeg encode failed, skipping frame")
				continue
			}
			p.emit(ImageFrame(buf.Bytes()))
		}
	}
}

func (p *Pipeline) emit(f Frame) {
	select {
	case p.frames <- f:
	case <-p.done:
	}
}
