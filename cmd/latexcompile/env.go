package main

import (
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/alnah/go-latexcompile/internal/config"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now      func() time.Time
	Stdout   io.Writer
	Stderr   io.Writer
	LookPath func(file string) (string, error)
	Config   *config.Config // defaults when no config file is named
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:      time.Now,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		LookPath: exec.LookPath,
		Config:   config.DefaultConfig(),
	}
}
