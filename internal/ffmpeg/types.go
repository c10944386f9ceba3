package ffmpeg

import "time"

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath        string
	FormatName      string
	Size            int64
	Duration        time.Duration
	Width           int
	Height          int
	FPS             float64
	Bitrate         int64
	VideoCodec      string
	HasVideo        bool
	HasAudio        bool
	AudioCodec      string
	AudioBitrate    int64
	AudioSampleRate int
	AudioChannels   int
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame      int
	FPS        float64
	Bitrate    string
	Time       string
	Speed      string
	Percentage float64
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler func(*Progress)
	LogHandler      func(line string)
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called periodically with progress information as the operation executes.
type ProgressFunc func(*Progress)
