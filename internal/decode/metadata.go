package decode

import (
	"bytes"

	"github.com/dhowden/tag"
	"github.com/jscyril/golang_playback_engine/api"
)

// ReadMetadata extracts descriptive tags from encoded data. Untagged input
// still yields a Track carrying the format.
func ReadMetadata(data []byte, format Format) *api.Track {
	track := &api.Track{Format: string(format)}

	metadata, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return track
	}

	track.Title = metadata.Title()
	track.Artist = getOrDefault(metadata.Artist(), "Unknown Artist")
	track.Album = getOrDefault(metadata.Album(), "Unknown Album")
	track.Genre = metadata.Genre()
	track.Year = metadata.Year()
	return track
}

// getOrDefault returns the value if non-empty, otherwise returns the default
func getOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
