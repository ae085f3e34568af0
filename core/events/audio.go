package events

// KindAudioDelta identifies a chunk of assistant audio.
const KindAudioDelta Kind = "audio.delta"

// AudioDelta carries decoded PCM16 little-endian assistant audio.
type AudioDelta struct {
	Base
	Audio []byte
}

// NewAudioDelta creates an assistant audio delta event.
func NewAudioDelta(audio []byte) AudioDelta {
	return AudioDelta{Base: NewBase(KindAudioDelta), Audio: audio}
}
