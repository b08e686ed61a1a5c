package queuesync

// Quality is one selectable quality for a format.
type Quality struct {
	ID    string
	Label string
}

// Format is one selectable container/codec choice together with the
// qualities it offers.
type Format struct {
	ID        string
	Label     string
	Qualities []Quality
}

var videoQualities = []Quality{
	{ID: "best", Label: "Best"},
	{ID: "2160", Label: "2160p"},
	{ID: "1440", Label: "1440p"},
	{ID: "1080", Label: "1080p"},
	{ID: "720", Label: "720p"},
	{ID: "480", Label: "480p"},
}

var audioBitrates = []Quality{
	{ID: "best", Label: "Best"},
	{ID: "320", Label: "320 kbps"},
	{ID: "192", Label: "192 kbps"},
	{ID: "128", Label: "128 kbps"},
}

// Formats is the fixed table of offered formats, in display order.
var Formats = []Format{
	{ID: "any", Label: "Any", Qualities: append(append([]Quality{}, videoQualities...), Quality{ID: "audio", Label: "Audio only"})},
	{ID: "mp4", Label: "MP4", Qualities: videoQualities},
	{ID: "mp3", Label: "MP3", Qualities: audioBitrates},
	{ID: "m4a", Label: "M4A", Qualities: audioBitrates},
	{ID: "opus", Label: "OPUS", Qualities: []Quality{{ID: "best", Label: "Best"}}},
	{ID: "wav", Label: "WAV", Qualities: []Quality{{ID: "best", Label: "Best"}}},
	{ID: "flac", Label: "FLAC", Qualities: []Quality{{ID: "best", Label: "Best"}}},
}

// FormatByID looks up a format by id.
func FormatByID(id string) (Format, bool) {
	for _, f := range Formats {
		if f.ID == id {
			return f, true
		}
	}
	return Format{}, false
}

// QualityOrDefault returns quality unchanged when the format offers it,
// otherwise "best". Used when the format selection changes and the
// previous quality is no longer available.
func (f Format) QualityOrDefault(quality string) string {
	for _, q := range f.Qualities {
		if q.ID == quality {
			return quality
		}
	}
	return "best"
}
