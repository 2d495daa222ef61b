// -----------------------------------------------------------------------
// Jail Exporter - Main Entry Point
// -----------------------------------------------------------------------
//
// Package main implements the entry point for the jail exporter, a
// Prometheus exporter for FreeBSD jail metrics as reported by rctl(8). It
// validates configuration, verifies the host with preflight checks, and
// then either writes a textfile or serves metrics over HTTP.
//
// -----------------------------------------------------------------------

package main

import (
	"os"

	"github.com/afreidah/jail-exporter/internal/app"
	"github.com/afreidah/jail-exporter/internal/preflight"
)

func main() {
	cfg := app.MustLoadConfig(os.Args[1:])

	app.MustPassPreflight(preflight.New())

	if err := app.Run(cfg); err != nil {
		app.Fatal("jail exporter failed", err)
	}
}
