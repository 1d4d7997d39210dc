package decode

import (
	"bytes"

	"github.com/dhowden/tag"
)

// Format names a supported container
type Format string

const (
	FormatUnknown Format = "unknown"
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatFLAC    Format = "flac"
	FormatOpus    Format = "opus"
)

// SupportedFormats returns the formats Decode understands
func SupportedFormats() []Format {
	return []Format{FormatMP3, FormatWAV, FormatFLAC, FormatOpus}
}

// Extensions returns the file name extensions of the supported formats.
// Ogg Opus files are commonly named .opus or .ogg.
func Extensions() []string {
	var exts []string
	for _, f := range SupportedFormats() {
		exts = append(exts, "."+string(f))
		if f == FormatOpus {
			exts = append(exts, ".ogg")
		}
	}
	return exts
}

// Sniff identifies the container from the leading bytes
func Sniff(data []byte) Format {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		return FormatWAV
	}

	if _, typ, err := tag.Identify(bytes.NewReader(data)); err == nil {
		switch typ {
		case tag.MP3:
			return FormatMP3
		case tag.FLAC:
			return FormatFLAC
		case tag.OGG:
			if opusChannels(data) > 0 {
				return FormatOpus
			}
			return FormatUnknown
		}
	}

	switch {
	case bytes.HasPrefix(data, []byte("fLaC")):
		return FormatFLAC
	case bytes.HasPrefix(data, []byte("OggS")):
		if opusChannels(data) > 0 {
			return FormatOpus
		}
	case bytes.HasPrefix(data, []byte("ID3")):
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	}
	return FormatUnknown
}

// opusChannels reads the channel count from the OpusHead packet on the first
// Ogg page, or returns 0 when there is none.
func opusChannels(data []byte) int {
	head := data[:min(len(data), 512)]
	i := bytes.Index(head, []byte("OpusHead"))
	if i < 0 || i+19 > len(data) {
		return 0
	}
	// magic(8) version(1) channels(1); only major version 0 is defined
	if data[i+8]&0xF0 != 0 {
		return 0
	}
	return int(data[i+9])
}
