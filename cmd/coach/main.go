// Command coach runs a live posing-coach session from the terminal:
// microphone audio is captured via portaudio, coach audio plays back on
// the default output device, and transcripts print to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/sculptai/posecoach/audio"
	"github.com/sculptai/posecoach/capture"
	"github.com/sculptai/posecoach/functions"
	"github.com/sculptai/posecoach/gemini"
	"github.com/sculptai/posecoach/logging"
	"github.com/sculptai/posecoach/session"
	"github.com/sculptai/posecoach/stream"
	"google.golang.org/genai"
)

func main() {
	voice := flag.String("voice", "Zephyr", "prebuilt voice name")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logging.Init(*logLevel, "console")

	_ = godotenv.Load()
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "GEMINI_API_KEY environment variable is required")
		os.Exit(1)
	}

	if err := portaudio.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "portaudio init failed: %v\n", err)
		os.Exit(1)
	}
	defer portaudio.Terminate()

	if err := run(apiKey, *voice); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(apiKey, voice string) error {
	mic, err := openMic()
	if err != nil {
		// Device denied or absent: the session never starts.
		return err
	}

	// No camera input from the terminal; the coach works from audio alone.
	pipeline := capture.NewPipeline(mic, nil, time.Second, 60)

	ctx := context.Background()
	live, err := gemini.NewLive(ctx, apiKey)
	if err != nil {
		_ = pipeline.Close()
		return err
	}

	profile := session.DefaultProfile
	live.SetToolHandler(func(calls []*genai.FunctionCall) []*genai.FunctionResponse {
		var responses []*genai.FunctionResponse
		for _, fc := range calls {
			responses = append(responses, &genai.FunctionResponse{
				ID:       fc.ID,
				Name:     fc.Name,
				Response: functions.AthleteProfileResponse(profile),
			})
		}
		return responses
	})

	sink := newSpeakerSink()
	defer sink.close()

	connect := func(ctx context.Context) error {
		return live.Connect(ctx, session.BuildSystemPrompt(profile), voice, functions.BuildTools())
	}

	sess := session.New("local", live, pipeline, sink, nil, connect)
	sess.SetHooks(session.Hooks{
		OnTranscriptDelta: func(speaker stream.Speaker, text string) {
			fmt.Printf("… %s: %s\n", speaker, text)
		},
		OnTurns: func(turns []session.Turn) {
			for _, t := range turns {
				fmt.Printf("[%s] %s\n", t.Speaker, t.Text)
			}
		},
		OnStatus: func(status, message string) {
			fmt.Printf("-- %s %s\n", status, message)
		},
		OnError: func(code, message string) {
			fmt.Printf("!! %s: %s\n", code, message)
		},
	})

	if err := sess.Start(ctx); err != nil {
		_ = pipeline.Close()
		return err
	}
	pipeline.Start()

	fmt.Println("Coaching session running. Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		fmt.Println("\nStopping...")
	case <-sess.CloseChan:
	}

	return sess.Stop()
}

// micInput adapts a portaudio input stream to capture.AudioInput.
type micInput struct {
	stream *portaudio.Stream
	buf    []float32
}

func openMic() (*micInput, error) {
	buf := make([]float32, capture.BlockSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(capture.InputSampleRate), len(buf), buf)
	if err != nil {
		return nil, &capture.PermissionError{Reason: "microphone unavailable", Err: err}
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, &capture.PermissionError{Reason: "microphone start failed", Err: err}
	}
	return &micInput{stream: stream, buf: buf}, nil
}

func (m *micInput) Read(block []float32) error {
	if err := m.stream.Read(); err != nil {
		return err
	}
	copy(block, m.buf)
	return nil
}

func (m *micInput) Close() error {
	_ = m.stream.Stop()
	return m.stream.Close()
}

// speakerSink renders scheduled buffers on the default output device.
// The scheduler guarantees non-overlapping start times; the write mutex
// keeps a long tail write from interleaving with the next buffer.
type speakerSink struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	out    []int16
}

const speakerChunk = 1024

func newSpeakerSink() *speakerSink {
	return &speakerSink{out: make([]int16, speakerChunk)}
}

func (s *speakerSink) ensureStream(sampleRate int) error {
	if s.stream != nil {
		return nil
	}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), len(s.out), &s.out)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}
	s.stream = stream
	return nil
}

type speakerHandle struct {
	stop chan struct{}
	once sync.Once
}

func (h *speakerHandle) Stop() {
	h.once.Do(func() { close(h.stop) })
}

func (s *speakerSink) Play(buf *audio.Buffer, startAt time.Time) (session.PlaybackHandle, error) {
	s.mu.Lock()
	if err := s.ensureStream(buf.SampleRate); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	h := &speakerHandle{stop: make(chan struct{})}
	go s.render(buf, startAt, h)
	return h, nil
}

func (s *speakerSink) render(buf *audio.Buffer, startAt time.Time, h *speakerHandle) {
	if d := time.Until(startAt); d > 0 {
		select {
		case <-time.After(d):
		case <-h.stop:
			return
		}
	}

	samples := buf.Int16Samples()
	s.mu.Lock()
	defer s.mu.Unlock()

	for off := 0; off < len(samples); off += speakerChunk {
		select {
		case <-h.stop:
			return
		default:
		}

		end := off + speakerChunk
		if end > len(samples) {
			end = len(samples)
		}
		n := copy(s.out, samples[off:end])
		for i := n; i < len(s.out); i++ {
			s.out[i] = 0
		}
		if err := s.stream.Write(); err != nil {
			log.Debug().Err(err).Msg("speaker write failed")
			return
		}
	}
}

func (s *speakerSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		_ = s.stream.Stop()
		_ = s.stream.Close()
		s.stream = nil
	}
}
