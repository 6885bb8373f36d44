package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"testing"

	"github.com/funktrack/chartgen/beat"
	"github.com/funktrack/chartgen/decode"
	"github.com/funktrack/chartgen/onset"
	"github.com/funktrack/chartgen/spectral"
)

func TestUsageErrorsDoNotReachRun(t *testing.T) {
	cases := [][]string{
		{"--no-such-flag", "track.wav"},
		{},
		{"a.wav", "b.wav"},
	}
	for _, args := range cases {
		var opts options
		var invoked bool
		cmd := newRootCommand(&opts, &invoked)
		cmd.SetArgs(args)
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		if err := cmd.Execute(); err == nil {
			t.Fatalf("args %v: expected a usage error", args)
		}
		if invoked {
			t.Fatalf("args %v: run must not start on a usage error", args)
		}
	}
}

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad sensitivity", spectral.ErrInvalidParameter), exitUsage},
		{fmt.Errorf("%w: %q", decode.ErrUnsupportedFormat, "track.aiff"), exitUnsupported},
		{fmt.Errorf("%w: truncated stream", decode.ErrDecode), exitDecode},
		{&fs.PathError{Op: "open", Path: "missing.wav", Err: fs.ErrNotExist}, exitIO},
		{beat.ErrInsufficientSignal, exitAnalysis},
		{onset.ErrEmptySpectrogram, exitAnalysis},
		{errors.New("something else entirely"), exitAnalysis},
	}
	for _, c := range cases {
		if got := exitCode(c.err); got != c.want {
			t.Fatalf("exitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
