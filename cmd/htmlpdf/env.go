package main

import (
	"context"
	"io"
	"os"
	"time"

	htmlpdf "github.com/alnah/go-htmlpdf"
)

// renderFunc matches htmlpdf.Create.
type renderFunc func(ctx context.Context, content string, opts ...htmlpdf.Option) (*htmlpdf.Result, error)

// launchFunc matches htmlpdf.Launch.
type launchFunc func(ctx context.Context, cfg htmlpdf.LaunchConfig) (htmlpdf.Process, error)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now    func() time.Time
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Render renderFunc
	Launch launchFunc
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:    time.Now,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Render: htmlpdf.Create,
		Launch: htmlpdf.Launch,
	}
}
