// Package audio provides synthetic PCM payload generators for the relay.
//
// The upstream native-audio model requires at least one audio part in every
// turn, so text-only turns carry a silent payload; the mock session answers
// with a test tone.
package audio

import (
	"encoding/base64"
	"math"
	"time"
)

const (
	// SampleRate is the only sample rate the upstream endpoint accepts.
	SampleRate = 16000

	// MimeTypePCM16k is the single supported audio encoding in both
	// directions: 16kHz single-channel 16-bit little-endian PCM.
	MimeTypePCM16k = "audio/pcm;rate=16000"
)

// SilentPCM returns zeroed 16-bit mono little-endian PCM of the given
// duration at sampleRate.
func SilentPCM(sampleRate int, duration time.Duration) []byte {
	samples := int(float64(sampleRate) * duration.Seconds())
	return make([]byte, samples*2)
}

// TonePCM returns a sine tone as 16-bit mono little-endian PCM.
// Amplitude is in [0.0, 1.0].
func TonePCM(sampleRate int, frequency float64, amplitude float64, duration time.Duration) []byte {
	samples := int(float64(sampleRate) * duration.Seconds())
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		t := float64(i) / float64(sampleRate)
		sample := int16(math.Round(amplitude * 32767 * math.Sin(2*math.Pi*frequency*t)))
		pcm[2*i] = byte(sample)
		pcm[2*i+1] = byte(sample >> 8)
	}
	return pcm
}

// SilentPCMBase64 returns one second of silence at the upstream sample rate,
// base64-encoded for inline wire payloads.
func SilentPCMBase64() string {
	return base64.StdEncoding.EncodeToString(SilentPCM(SampleRate, time.Second))
}

// TonePCMBase64 returns two seconds of a 440Hz test tone at the upstream
// sample rate, base64-encoded. Used by the mock session's canned responses.
func TonePCMBase64() string {
	return base64.StdEncoding.EncodeToString(TonePCM(SampleRate, 440, 0.5, 2*time.Second))
}
