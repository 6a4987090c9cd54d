package beeper

// Tone is an endless square wave rendered as 16-bit little-endian stereo
// PCM, the format ebiten's audio players consume.
type Tone struct {
	SampleRate int
	Freq       int
	Amplitude  int16

	pos int64
}

// bytesPerFrame is two channels of two bytes each.
const bytesPerFrame = 4

func NewTone(sampleRate, freq int, amplitude int16) *Tone {
	return &Tone{SampleRate: sampleRate, Freq: freq, Amplitude: amplitude}
}

// Read fills p with whole frames. It never returns io.EOF.
func (t *Tone) Read(p []byte) (int, error) {
	n := len(p) / bytesPerFrame * bytesPerFrame
	for i := 0; i < n; i += bytesPerFrame {
		s := t.Sample(t.pos)
		p[i] = byte(s)
		p[i+1] = byte(s >> 8)
		p[i+2] = byte(s)
		p[i+3] = byte(s >> 8)
		t.pos++
	}
	return n, nil
}

// Sample returns the value of frame n: high for the first half of each
// period, low for the second.
func (t *Tone) Sample(n int64) int16 {
	if t.Freq <= 0 || t.SampleRate <= 0 {
		return 0
	}
	period := int64(t.SampleRate / t.Freq)
	if period < 2 {
		period = 2
	}
	if n%period < period/2 {
		return t.Amplitude
	}
	return -t.Amplitude
}
