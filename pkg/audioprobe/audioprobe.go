// Package audioprobe estimates the play time of encoded audio from frame
// headers, without fully decoding the stream to PCM.
package audioprobe

import (
	"bytes"
	"fmt"
	"time"

	"github.com/faiface/beep/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// MP3Duration returns the play time of an MP3 stream.
func MP3Duration(audio []byte) (time.Duration, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(audio))
	if err != nil {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}

	// Length is the decoded PCM size: 2 channels x 16 bit = 4 bytes per frame.
	n := dec.Length()
	if n <= 0 || dec.SampleRate() <= 0 {
		return 0, fmt.Errorf("mp3 duration unknown")
	}

	frames := n / 4
	return time.Duration(frames) * time.Second / time.Duration(dec.SampleRate()), nil
}

// WAVDuration returns the play time of a WAV stream.
func WAVDuration(audio []byte) (time.Duration, error) {
	stream, format, err := wav.Decode(bytes.NewReader(audio))
	if err != nil {
		return 0, fmt.Errorf("decode wav: %w", err)
	}
	defer stream.Close()

	if format.SampleRate <= 0 {
		return 0, fmt.Errorf("wav duration unknown")
	}
	return format.SampleRate.D(stream.Len()), nil
}

// CheckMP3Length reports whether audio plays for less than maxSeconds.
// Streams whose duration cannot be measured pass: the limit only binds when
// a duration is known.
func CheckMP3Length(audio []byte, maxSeconds int) bool {
	d, err := MP3Duration(audio)
	if err != nil {
		return true
	}
	return int(d.Seconds()) < maxSeconds
}

// CheckWAVLength reports whether audio plays for less than maxSeconds, with
// the same permissive fallback as CheckMP3Length.
func CheckWAVLength(audio []byte, maxSeconds int) bool {
	d, err := WAVDuration(audio)
	if err != nil {
		return true
	}
	return int(d.Seconds()) < maxSeconds
}
