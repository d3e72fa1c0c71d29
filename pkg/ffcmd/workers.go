package ffcmd

import (
	"fmt"
	"strings"

	"github.com/edgemux/restream-server/internal/domain/restream"
)

// Pull builds the argv for an input pull worker: read the upstream source
// and republish it on the local relay endpoint as-is.
//
// Pull workers never transcode. Copying both elementary streams keeps the
// relay hop transparent to downstream forwarders.
func Pull(src, relay string) []string {
	return New().
		WithInput(src).
		WithStringFlag("-c", "copy").
		WithOutput("flv", relay).
		Argv()
}

// Forward builds the argv for an output forward worker: read the relay
// endpoint of the active input and push to the output destination.
//
// When the output carries no mixins and sits at origin volume the stream
// is copied verbatim. Any volume adjustment or mixin forces an audio
// filter graph: video is still copied, audio is decoded, filtered and
// re-encoded as AAC.
func Forward(relay string, out *restream.Output) []string {
	b := New().WithInput(relay)

	if out.Volume == restream.VolumeOrigin && len(out.Mixins) == 0 {
		return b.
			WithStringFlag("-c", "copy").
			WithOutput(outputFormat(out.Dst), out.Dst).
			Argv()
	}

	for _, m := range out.Mixins {
		b.WithInput(m.Src)
	}
	b.WithFilterComplex(mixGraph(out))
	b.args = append(b.args,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
	)
	return b.WithOutput(outputFormat(out.Dst), out.Dst).Argv()
}

// mixGraph renders the filter_complex graph mixing the main feed's audio
// with every mixin source.
//
// Layout, with N mixins:
//
//	[0:a]volume=<vol>[a0];
//	[i:a]volume=<vol>,adelay=<ms>:all=1[a<i>];   for each mixin i=1..N
//	[a0][a1]..[aN]amix=inputs=N+1:duration=first[aout]
//
// With zero mixins the graph degenerates to a single volume filter chained
// straight into [aout]. Rendering order follows mixin declaration order so
// the graph, and therefore the worker argv hash, is stable.
func mixGraph(out *restream.Output) string {
	var sb strings.Builder

	if len(out.Mixins) == 0 {
		fmt.Fprintf(&sb, "[0:a]volume=%.2f[aout]", out.Volume.Fraction())
		return sb.String()
	}

	fmt.Fprintf(&sb, "[0:a]volume=%.2f[a0]", out.Volume.Fraction())
	for i, m := range out.Mixins {
		fmt.Fprintf(&sb, ";[%d:a]volume=%.2f", i+1, m.Volume.Fraction())
		if m.Delay > 0 {
			fmt.Fprintf(&sb, ",adelay=%d:all=1", m.Delay.Millis())
		}
		fmt.Fprintf(&sb, "[a%d]", i+1)
	}

	sb.WriteString(";")
	for i := range len(out.Mixins) + 1 {
		fmt.Fprintf(&sb, "[a%d]", i)
	}
	fmt.Fprintf(&sb, "amix=inputs=%d:duration=first[aout]", len(out.Mixins)+1)
	return sb.String()
}

// outputFormat maps the destination scheme to the ffmpeg muxer name.
// Unknown schemes get no explicit -f and rely on ffmpeg's own inference.
func outputFormat(dst string) string {
	switch {
	case strings.HasPrefix(dst, "rtmp://"), strings.HasPrefix(dst, "rtmps://"):
		return "flv"
	case strings.HasPrefix(dst, "srt://"):
		return "mpegts"
	case strings.HasPrefix(dst, "icecast://"):
		return "mp3"
	default:
		return ""
	}
}
