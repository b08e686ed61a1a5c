package queuesync

import (
	"net/url"
	"strings"
	"sync"

	"github.com/tubequeue/tubequeue/common"
)

// audioFormats are the format ids classified as audio regardless of the
// selected quality.
var audioFormats = map[string]struct{}{
	"mp3":  {},
	"m4a":  {},
	"opus": {},
	"wav":  {},
	"flac": {},
}

// IsAudioType reports whether a format/quality selection is classified as
// an audio type.
func IsAudioType(format, quality string) bool {
	if quality == "audio" {
		return true
	}
	_, ok := audioFormats[format]
	return ok
}

// ConfigCache holds the last configuration object received from the
// server. Derivations are always computed from the current configuration
// plus the caller's current selection, never cached denormalized, so they
// can never reflect a stale format.
type ConfigCache struct {
	mu  sync.RWMutex
	cfg common.Config
	has bool
}

// NewConfigCache returns an empty cache.
func NewConfigCache() *ConfigCache {
	return &ConfigCache{}
}

// Set replaces the held configuration.
func (c *ConfigCache) Set(cfg common.Config) {
	c.mu.Lock()
	c.cfg = cfg
	c.has = true
	c.mu.Unlock()
}

// Get returns the held configuration and whether one has been received.
func (c *ConfigCache) Get() (common.Config, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg, c.has
}

// ShowCustomDirs reports whether the custom-directory panel should be
// offered at all.
func (c *ConfigCache) ShowCustomDirs() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.CustomDirs
}

// AllowCustomDirCreation reports whether free-form directories outside
// the configured lists may be submitted.
func (c *ConfigCache) AllowCustomDirCreation() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.CreateCustomDirs
}

// CustomDirectoriesFor returns the applicable custom directory list for
// the given selection: the audio-specific list when the selection is an
// audio type, the general list otherwise. The returned slice is a copy;
// mutating it cannot corrupt the stored configuration.
func (c *ConfigCache) CustomDirectoriesFor(format, quality string) []string {
	c.mu.RLock()
	src := c.cfg.DownloadDirs
	if IsAudioType(format, quality) {
		src = c.cfg.AudioDownloadDirs
	}
	out := make([]string, len(src))
	copy(out, src)
	c.mu.RUnlock()
	return out
}

// DownloadLink builds the public link for a completed download: the
// configured host URL (audio host when the quality is audio or the file
// is an .mp3), the optional folder segment, and the percent-encoded
// filename.
func (c *ConfigCache) DownloadLink(d *common.Download) string {
	c.mu.RLock()
	base := c.cfg.PublicHostURL
	if d.Quality == "audio" || strings.HasSuffix(d.Filename, ".mp3") {
		base = c.cfg.PublicHostAudioURL
	}
	c.mu.RUnlock()

	if d.Folder != "" {
		base += d.Folder + "/"
	}
	return base + url.PathEscape(d.Filename)
}
