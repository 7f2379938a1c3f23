// Package gifsicle runs the gifsicle command line optimizer on GIF buffers.
package gifsicle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/wb-go/wbf/zlog"
)

const (
	DefaultBinary  = "gifsicle"
	DefaultTimeout = 30 * time.Second
)

var ErrEmptyOutput = errors.New("gifsicle: empty output")

// Options map onto gifsicle flags. Zero values leave the flag out.
type Options struct {
	// Level is the --optimize level, 1..3.
	Level int
	// Lossy is the --lossy compression aggressiveness. 0 leaves the flag out,
	// which gifsicle treats as lossless.
	Lossy int
	// Colors caps the palette size with --colors.
	Colors int
}

// Args builds the gifsicle argument list. Input is read from stdin and the
// result written to stdout.
func Args(opts Options) []string {
	args := make([]string, 0, 3)
	if opts.Level > 0 {
		args = append(args, fmt.Sprintf("--optimize=%d", opts.Level))
	}
	if opts.Lossy > 0 {
		args = append(args, fmt.Sprintf("--lossy=%d", opts.Lossy))
	}
	if opts.Colors > 0 {
		args = append(args, fmt.Sprintf("--colors=%d", opts.Colors))
	}
	return args
}

type Optimizer struct {
	binary  string
	timeout time.Duration
}

func New(binary string, timeout time.Duration) *Optimizer {
	if binary == "" {
		binary = DefaultBinary
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Optimizer{binary: binary, timeout: timeout}
}

// Available reports whether the binary can be found.
func (o *Optimizer) Available() bool {
	_, err := exec.LookPath(o.binary)
	return err == nil
}

func (o *Optimizer) Optimize(ctx context.Context, input []byte, opts Options) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	args := Args(opts)
	cmd := exec.CommandContext(ctx, o.binary, args...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("gifsicle %s: %w: %s", strings.Join(args, " "), err, msg)
		}
		return nil, fmt.Errorf("gifsicle %s: %w", strings.Join(args, " "), err)
	}
	if stdout.Len() == 0 {
		return nil, ErrEmptyOutput
	}

	zlog.Logger.Debug().
		Strs("args", args).
		Int("input_bytes", len(input)).
		Int("output_bytes", stdout.Len()).
		Dur("duration", time.Since(start)).
		Msg("gif optimized")

	return stdout.Bytes(), nil
}
