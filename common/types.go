package common

import "time"

// Download is the wire representation of a single download record.
// The id is assigned by the server and is unique across the queue and
// done collections at any instant.
type Download struct {
	ID               string  `json:"id"`
	URL              string  `json:"url"`
	Title            string  `json:"title"`
	Status           Status  `json:"status"`
	Msg              string  `json:"msg,omitempty"`
	Percent          float64 `json:"percent"`
	Speed            int64   `json:"speed"`
	ETA              int64   `json:"eta"`
	Size             int64   `json:"size"`
	Filename         string  `json:"filename"`
	Folder           string  `json:"folder"`
	Quality          string  `json:"quality"`
	Format           string  `json:"format"`
	CustomNamePrefix string  `json:"custom_name_prefix"`

	// Checked is client-side row selection state. It is never sent to or
	// received from the server.
	Checked bool `json:"-"`
}

// Snapshot is the payload of an EventAll push: the full queue and done
// state in server order.
type Snapshot struct {
	Queue []*Download `json:"queue"`
	Done  []*Download `json:"done"`
}

// IDsPayload is the payload of canceled/cleared/deleted pushes.
type IDsPayload struct {
	IDs []string `json:"ids"`
}

// Config is the server configuration object delivered by an
// EventConfiguration push.
type Config struct {
	CustomDirs         bool     `json:"CUSTOM_DIRS"`
	CreateCustomDirs   bool     `json:"CREATE_CUSTOM_DIRS"`
	PublicHostURL      string   `json:"PUBLIC_HOST_URL"`
	PublicHostAudioURL string   `json:"PUBLIC_HOST_AUDIO_URL"`
	DownloadDirs       []string `json:"download_dir"`
	AudioDownloadDirs  []string `json:"audio_download_dir"`
}

// AddParams is the input for queue.add.
type AddParams struct {
	URL              string `json:"url"`
	Quality          string `json:"quality"`
	Format           string `json:"format"`
	Folder           string `json:"folder,omitempty"`
	CustomNamePrefix string `json:"custom_name_prefix,omitempty"`
	AutoStart        bool   `json:"auto_start"`
}

// AddResult is the response for queue.add. Status is "ok" or "error";
// Msg carries the error detail when Status is "error".
type AddResult struct {
	Status string `json:"status"`
	Msg    string `json:"msg,omitempty"`
}

// StartParams is the input for queue.start.
type StartParams struct {
	IDs []string `json:"ids"`
}

// DeleteParams is the input for queue.delete. Where selects the target
// collection (WhereQueue or WhereDone).
type DeleteParams struct {
	Where string   `json:"where"`
	IDs   []string `json:"ids"`
}

// Ack is the generic acknowledgment returned by mutating commands.
type Ack struct {
	Status string `json:"status"`
	Msg    string `json:"msg,omitempty"`
}

// Schedule is a recurring download job definition. The id is assigned by
// the server and immutable once assigned; LastRun and NextRun are
// computed server-side and never derived locally.
type Schedule struct {
	ID      int64      `json:"id"`
	URL     string     `json:"url"`
	Cron    string     `json:"cron"`
	Folder  string     `json:"folder"`
	LastRun *time.Time `json:"last_run"`
	NextRun *time.Time `json:"next_run"`
}

// ScheduleAddParams is the input for scheduler/add: a Schedule minus the
// server-assigned fields.
type ScheduleAddParams struct {
	URL    string `json:"url"`
	Cron   string `json:"cron"`
	Folder string `json:"folder"`
}

// ScheduleUpdateParams is the input for scheduler/update.
type ScheduleUpdateParams struct {
	IDs  []int64 `json:"ids"`
	Cron string  `json:"cron"`
}

// ScheduleRemoveParams is the input for scheduler/remove.
type ScheduleRemoveParams struct {
	IDs []int64 `json:"ids"`
}
