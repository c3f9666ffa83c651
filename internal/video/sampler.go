package video

// SamplingInterval returns how many source frames to skip between samples
// for a requested analysis rate. A video whose native rate is at or below
// the requested rate is sampled at every frame.
func SamplingInterval(fps float64, frameRate int) int {
	if frameRate <= 0 {
		return 1
	}
	interval := int(fps / float64(frameRate))
	if interval < 1 {
		return 1
	}
	return interval
}

// SampledFrameCount returns how many frames a video with totalFrames frames
// yields at the given sampling interval. Frame 0 is always sampled, so the
// count rounds up.
func SampledFrameCount(totalFrames, interval int) int {
	if totalFrames <= 0 {
		return 0
	}
	if interval < 1 {
		interval = 1
	}
	return (totalFrames + interval - 1) / interval
}

// IsSampled reports whether the source frame at frameIndex is selected.
func IsSampled(frameIndex, interval int) bool {
	if interval < 1 {
		return true
	}
	return frameIndex%interval == 0
}
