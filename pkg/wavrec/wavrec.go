// Package wavrec records the buzzer to a WAV file. Samples are streamed to
// the encoder in fixed-size chunks as signals arrive.
package wavrec

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	SampleRate = 22050
	BitDepth   = 16
	ToneFreq   = 440
	amplitude  = 0x1FFF

	pcmFormat = 1

	// chunkSize bounds the samples held in memory between encoder writes.
	chunkSize = 4096
)

// Recorder turns sound start/stop signals into mono PCM. The time between
// signals becomes tone or silence.
type Recorder struct {
	// Now is the clock used to measure signal spacing.
	Now func() time.Time

	mu      sync.Mutex
	f       *os.File
	enc     *wav.Encoder
	buf     *audio.IntBuffer
	written int
	err     error
	toneOn  bool
	since   time.Time
	started bool
	phase   int64
}

// New creates filename and returns a recorder writing to it.
func New(filename string) (*Recorder, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("wavrec: %w", err)
	}
	return &Recorder{
		Now: time.Now,
		f:   f,
		enc: wav.NewEncoder(f, SampleRate, BitDepth, 1, pcmFormat),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: SampleRate},
			Data:           make([]int, 0, chunkSize),
			SourceBitDepth: BitDepth,
		},
	}, nil
}

// Start begins the recording timeline. Signals before Start also start it.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin()
}

func (r *Recorder) SoundStart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flush()
	r.toneOn = true
}

func (r *Recorder) SoundStop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flush()
	r.toneOn = false
}

// Samples returns the number of samples recorded so far.
func (r *Recorder) Samples() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written + len(r.buf.Data)
}

func (r *Recorder) begin() {
	if !r.started {
		r.since = r.Now()
		r.started = true
	}
}

// flush emits the samples owed since the last signal.
func (r *Recorder) flush() {
	if !r.started {
		r.begin()
		return
	}
	now := r.Now()
	elapsed := now.Sub(r.since)
	if elapsed <= 0 {
		return
	}
	n := int(elapsed * SampleRate / time.Second)
	// keep the remainder so short gaps do not drift
	r.since = r.since.Add(time.Duration(n) * time.Second / SampleRate)

	period := int64(SampleRate / ToneFreq)
	for i := 0; i < n; i++ {
		v := 0
		if r.toneOn {
			if r.phase%period < period/2 {
				v = amplitude
			} else {
				v = -amplitude
			}
			r.phase++
		}
		r.buf.Data = append(r.buf.Data, v)
		if len(r.buf.Data) == chunkSize {
			r.writeChunk()
		}
	}
	r.writeChunk()
}

// writeChunk hands the pending samples to the encoder. The first error is
// kept for Close.
func (r *Recorder) writeChunk() {
	if len(r.buf.Data) == 0 {
		return
	}
	if r.err == nil {
		if err := r.enc.Write(r.buf); err != nil {
			r.err = fmt.Errorf("wavrec: %w", err)
		}
	}
	r.written += len(r.buf.Data)
	r.buf.Data = r.buf.Data[:0]
}

// Close records up to now, finalises the header and closes the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flush()
	if r.written == 0 && r.err == nil {
		// an empty recording still needs its header
		if err := r.enc.Write(r.buf); err != nil {
			r.err = fmt.Errorf("wavrec: %w", err)
		}
	}
	if err := r.enc.Close(); err != nil && r.err == nil {
		r.err = fmt.Errorf("wavrec: %w", err)
	}
	if err := r.f.Close(); err != nil && r.err == nil {
		r.err = fmt.Errorf("wavrec: %w", err)
	}
	return r.err
}
