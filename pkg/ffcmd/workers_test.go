package ffcmd

import (
	"reflect"
	"strings"
	"testing"

	"github.com/edgemux/restream-server/internal/domain/restream"
)

func TestPull(t *testing.T) {
	argv := Pull("rtmp://upstream/live/main", "rtmp://127.0.0.1:1935/stage/main")

	want := []string{
		"ffmpeg",
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-progress", "pipe:1",
		"-i", "rtmp://upstream/live/main",
		"-c", "copy",
		"-f", "flv",
		"rtmp://127.0.0.1:1935/stage/main",
	}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("argv = %v, want %v", argv, want)
	}
}

func TestForwardCopiesAtOriginVolume(t *testing.T) {
	out := &restream.Output{
		ID:     restream.NewOutputID(),
		Dst:    "rtmp://dst.example/app/key",
		Volume: restream.VolumeOrigin,
	}
	argv := Forward("rtmp://127.0.0.1:1935/stage/main", out)

	if got := strings.Join(argv, " "); !strings.Contains(got, "-c copy") {
		t.Fatalf("expected passthrough copy, got %q", got)
	}
	for _, a := range argv {
		if a == "-filter_complex" {
			t.Fatalf("unexpected filter graph in passthrough argv: %v", argv)
		}
	}
}

func TestForwardVolumeOnly(t *testing.T) {
	out := &restream.Output{
		ID:     restream.NewOutputID(),
		Dst:    "rtmp://dst.example/app/key",
		Volume: 50,
	}
	argv := Forward("rtmp://127.0.0.1:1935/stage/main", out)
	got := strings.Join(argv, " ")

	if !strings.Contains(got, "-filter_complex [0:a]volume=0.50[aout]") {
		t.Fatalf("missing volume graph: %q", got)
	}
	if !strings.Contains(got, "-c:a aac") {
		t.Fatalf("filtered audio must be re-encoded: %q", got)
	}
	if !strings.Contains(got, "-c:v copy") {
		t.Fatalf("video must stay copied: %q", got)
	}
}

func TestForwardMixGraph(t *testing.T) {
	out := &restream.Output{
		ID:     restream.NewOutputID(),
		Dst:    "srt://dst.example:9000",
		Volume: restream.VolumeOrigin,
		Mixins: []restream.Mixin{
			{
				ID:     restream.NewMixinID(),
				Src:    "ts://127.0.0.1:8000/music",
				Volume: 30,
				Delay:  restream.DurationFromMillis(3500),
			},
			{
				ID:     restream.NewMixinID(),
				Src:    "https://radio.example/stream.mp3",
				Volume: restream.VolumeOrigin,
			},
		},
	}
	argv := Forward("rtmp://127.0.0.1:1935/stage/main", out)
	got := strings.Join(argv, " ")

	wantGraph := "[0:a]volume=1.00[a0]" +
		";[1:a]volume=0.30,adelay=3500:all=1[a1]" +
		";[2:a]volume=1.00[a2]" +
		";[a0][a1][a2]amix=inputs=3:duration=first[aout]"
	if !strings.Contains(got, wantGraph) {
		t.Fatalf("graph mismatch:\n got %q\nwant %q", got, wantGraph)
	}

	// Mixin sources become additional ffmpeg inputs, in declaration order.
	wantInputs := []string{
		"rtmp://127.0.0.1:1935/stage/main",
		"ts://127.0.0.1:8000/music",
		"https://radio.example/stream.mp3",
	}
	var inputs []string
	for i, a := range argv {
		if a == "-i" {
			inputs = append(inputs, argv[i+1])
		}
	}
	if !reflect.DeepEqual(inputs, wantInputs) {
		t.Fatalf("inputs = %v, want %v", inputs, wantInputs)
	}

	if !strings.Contains(got, "-f mpegts") {
		t.Fatalf("srt destination should select mpegts muxer: %q", got)
	}
}

func TestForwardDeterministic(t *testing.T) {
	out := &restream.Output{
		ID:     restream.NewOutputID(),
		Dst:    "rtmp://dst.example/app/key",
		Volume: 120,
		Mixins: []restream.Mixin{
			{ID: restream.NewMixinID(), Src: "ts://127.0.0.1:8000/a", Volume: 10},
		},
	}
	a := Forward("rtmp://127.0.0.1:1935/stage/main", out)
	b := Forward("rtmp://127.0.0.1:1935/stage/main", out)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("argv not deterministic:\n%v\n%v", a, b)
	}
}

func TestArgvDefensiveCopy(t *testing.T) {
	b := New().WithInput("rtmp://x/y")
	a1 := b.Argv()
	a1[0] = "mutated"
	a2 := b.Argv()
	if a2[0] != "ffmpeg" {
		t.Fatalf("Argv must return a copy, got %v", a2)
	}
}
