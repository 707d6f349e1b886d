package core

// AudioEncoding identifies the sample encoding of a raw audio buffer.
type AudioEncoding string

const (
	EncodingPCM16 AudioEncoding = "pcm16" // 16-bit little-endian linear PCM
	EncodingULaw  AudioEncoding = "ulaw"  // G.711 μ-law, 8 kHz telephony
	EncodingALaw  AudioEncoding = "alaw"  // G.711 A-law, 8 kHz telephony
)

// AudioChunk is a slice of captured microphone audio handed to a capture
// engine. SampleRate is in Hz; Data layout follows Encoding.
type AudioChunk struct {
	Data       []byte
	Encoding   AudioEncoding
	SampleRate int
}
