package wav

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Metadata is the subset of container tags the ingest pipeline cares
// about for dedup keying (models.Song, utils.GenerateSongKey).
type Metadata struct {
	Title  string
	Artist string
}

type ffprobeFormat struct {
	Format struct {
		Tags map[string]string `json:"tags"`
	} `json:"format"`
}

// GetMetadata reads title/artist tags from any audio container via
// ffprobe, since arbitrary upload formats (mp3, m4a, flac) carry tags
// go-audio/wav has no reason to know about.
func GetMetadata(inputPath string) (Metadata, error) {
	cmd := exec.Command(
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		inputPath,
	)

	out, err := cmd.Output()
	if err != nil {
		return Metadata{}, fmt.Errorf("ffprobe metadata query failed: %v", err)
	}

	var parsed ffprobeFormat
	if err := json.Unmarshal(out, &parsed); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse ffprobe output: %v", err)
	}

	return Metadata{
		Title:  tagValue(parsed.Format.Tags, "title"),
		Artist: tagValue(parsed.Format.Tags, "artist"),
	}, nil
}

func tagValue(tags map[string]string, key string) string {
	if v, ok := tags[key]; ok {
		return v
	}
	// ffprobe sometimes capitalizes tag keys depending on container.
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
