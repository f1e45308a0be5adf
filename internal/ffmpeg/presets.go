// Package ffmpeg encodes rendered frames to H.264 RTP with an ffmpeg child process.
package ffmpeg

import "fmt"

// DefaultCodec is the software encoder every ffmpeg build ships.
const DefaultCodec = "libx264"

// Options describes ffmpeg runtime parameters.
type Options struct {
	FFmpegPath  string
	FPS         int
	BitrateKbps int
	// Codec selects the H.264 encoder, e.g. h264_nvenc. Empty means libx264.
	Codec string
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.FPS <= 0 {
		o.FPS = 30
	}
	if o.BitrateKbps <= 0 {
		o.BitrateKbps = 4000
	}
	if o.Codec == "" {
		o.Codec = DefaultCodec
	}
	return o
}

// BuildEncodeArgs returns ffmpeg args that read raw RGBA frames of w x h from
// stdin and send H.264 RTP to the local port.
func BuildEncodeArgs(w, h int, opts Options, port int) []string {
	opts = opts.withDefaults()
	input := buildInputArgs(w, h, opts)
	output := buildOutputArgs(opts, port, evenCrop(w, h))
	return append(input, output...)
}

// buildInputArgs builds the stdin rawvideo arguments.
func buildInputArgs(w, h int, opts Options) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", w, h),
		"-framerate", fmt.Sprintf("%d", opts.FPS),
		"-i", "-",
	}
}

// buildOutputArgs builds the encode/output arguments.
func buildOutputArgs(opts Options, port int, cropFilter string) []string {
	// Keep keyframes frequent so decoders recover quickly after a resize restart.
	keyint := opts.FPS
	if keyint < 15 {
		keyint = 15
	}
	args := []string{"-an"}
	if cropFilter != "" {
		args = append(args, "-vf", cropFilter)
	}
	args = append(args, "-vcodec", opts.Codec)
	if opts.Codec == DefaultCodec {
		args = append(args,
			"-preset", "ultrafast",
			"-tune", "zerolatency",
			"-x264-params", "scenecut=0:repeat-headers=1",
		)
	}
	args = append(args,
		"-profile:v", "baseline",
		"-g", fmt.Sprintf("%d", keyint),
		"-keyint_min", fmt.Sprintf("%d", keyint),
		"-bf", "0",
		"-pix_fmt", "yuv420p",
		"-b:v", fmt.Sprintf("%dk", opts.BitrateKbps),
		"-payload_type", "96",
		"-f", "rtp",
		fmt.Sprintf("rtp://127.0.0.1:%d?pkt_size=1200", port),
	)
	return args
}

// evenCrop returns a crop filter trimming odd dimensions, which yuv420p
// cannot encode, or "" when none is needed.
func evenCrop(w, h int) string {
	ew, eh := evenSize(w, h)
	if ew == w && eh == h {
		return ""
	}
	return fmt.Sprintf("crop=%d:%d:0:0", ew, eh)
}

// evenSize rounds dimensions down to even values of at least 2.
func evenSize(w, h int) (int, int) {
	w -= w % 2
	h -= h % 2
	return maxInt(w, 2), maxInt(h, 2)
}

// maxInt returns the larger integer.
func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
