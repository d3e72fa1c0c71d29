// Package ffcmd builds canonical ffmpeg invocations for restreaming workers.
//
// This layer is a pure "command construction" module: no execution, no I/O.
// It normalizes argv emission for the two worker shapes the supervisor runs
// (input pull relays and output forwarders) and returns plain argument
// vectors for the process layer to execute.
//
// Emission policy is deterministic and explicit:
//
//   - Global flags come first and are always emitted.
//   - Inputs are emitted in declared order; the main feed is input #0.
//   - Filter graphs are rendered in a stable order so identical
//     configurations always produce identical argv (worker identity is a
//     hash of argv).
package ffcmd

import (
	"strconv"
	"strings"
)

// Builder constructs argv for ffmpeg.
//
// The Builder implements a fluent API; it is NOT concurrency-safe. Callers
// should treat a Builder as a single-use, short-lived value.
//
// Invariants:
//   - argv[0] is always "ffmpeg".
//   - All With* methods are deterministic and order-preserving.
//   - Argv returns a defensive copy.
type Builder struct {
	args []string
}

// New returns a Builder pre-seeded with the binary name and the global
// flags every worker uses: quiet banner, machine-readable progress on
// stdout, no stdin interaction.
func New() *Builder {
	return &Builder{args: []string{
		"ffmpeg",
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-progress", "pipe:1",
	}}
}

// WithFlag appends a bare flag.
func (b *Builder) WithFlag(flag string) *Builder {
	b.args = append(b.args, flag)
	return b
}

// WithStringFlag appends a flag with a string value if non-empty.
func (b *Builder) WithStringFlag(flag, val string) *Builder {
	if val != "" {
		b.args = append(b.args, flag, val)
	}
	return b
}

// WithIntFlag appends a flag with a base-10 int value (always emitted).
func (b *Builder) WithIntFlag(flag string, val int) *Builder {
	b.args = append(b.args, flag, strconv.Itoa(val))
	return b
}

// WithInput appends `-i <url>`.
func (b *Builder) WithInput(url string) *Builder {
	b.args = append(b.args, "-i", url)
	return b
}

// WithFilterComplex appends a `-filter_complex` graph if non-empty.
func (b *Builder) WithFilterComplex(graph string) *Builder {
	if graph != "" {
		b.args = append(b.args, "-filter_complex", graph)
	}
	return b
}

// WithOutput appends muxer selection and the destination URL.
func (b *Builder) WithOutput(format, url string) *Builder {
	if format != "" {
		b.args = append(b.args, "-f", format)
	}
	b.args = append(b.args, url)
	return b
}

// Argv returns a defensive copy of the constructed argument vector.
//
// The first element (argv[0]) is always "ffmpeg", mirroring POSIX main()
// and Go's exec.Command conventions.
func (b *Builder) Argv() []string {
	out := make([]string, len(b.args))
	copy(out, b.args)
	return out
}

// String renders the argv as a single-quoted command line for logging.
func (b *Builder) String() string {
	quoted := make([]string, len(b.args))
	for i, a := range b.args {
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}
