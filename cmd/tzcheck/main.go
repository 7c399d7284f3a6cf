// Command tzcheck replays known wall-clock conversions, including readings
// on both sides of a DST transition, and exits non-zero on any mismatch.
// Run it against a new host or tzdata release before deploying.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/msomdec/shift-clock/internal/civil"
	"github.com/msomdec/shift-clock/internal/tzconv"
)

type scenario struct {
	label string
	zone  string
	date  string
	time  string
	want  string
}

var scenarios = []scenario{
	{"LA (DST)", "America/Los_Angeles", "2025-10-29", "21:31", "2025-10-30T04:31:00.000Z"},
	{"NY (DST)", "America/New_York", "2025-10-29", "21:31", "2025-10-30T01:31:00.000Z"},
	{"Kolkata", "Asia/Kolkata", "2025-10-29", "21:31", "2025-10-29T16:01:00.000Z"},
	{"LA pre-fall DST", "America/Los_Angeles", "2025-11-01", "23:30", "2025-11-02T06:30:00.000Z"},
	{"LA post-fall DST", "America/Los_Angeles", "2025-11-02", "03:30", "2025-11-02T11:30:00.000Z"},
	{"Kathmandu", "Asia/Kathmandu", "2025-01-01", "00:10", "2024-12-31T18:25:00.000Z"},
	{"Auckland (DST)", "Pacific/Auckland", "2025-01-15", "09:00", "2025-01-14T20:00:00.000Z"},
}

func main() {
	noColor := flag.Bool("no-color", false, "disable coloured output")
	flag.Parse()
	if *noColor {
		color.NoColor = true
	}

	if failures := run(color.Output, tzconv.NewResolver(0), scenarios); failures > 0 {
		os.Exit(1)
	}
}

// run checks every scenario, writes one line per scenario and returns the
// number of failures.
func run(w io.Writer, r *tzconv.Resolver, cases []scenario) int {
	okTag := color.New(color.FgGreen).Sprint("OK ")
	errTag := color.New(color.FgRed, color.Bold).Sprint("ERR")

	failures := 0
	for _, s := range cases {
		got, err := convert(r, s)
		if err != nil {
			failures++
			fmt.Fprintf(w, "%s %s tz=%s %s %s -> error: %v\n", errTag, s.label, s.zone, s.date, s.time, err)
			continue
		}
		if got != s.want {
			failures++
			fmt.Fprintf(w, "%s %s tz=%s %s %s -> %s (expected %s)\n", errTag, s.label, s.zone, s.date, s.time, got, s.want)
			continue
		}
		fmt.Fprintf(w, "%s %s tz=%s %s %s -> %s\n", okTag, s.label, s.zone, s.date, s.time, got)
	}
	return failures
}

func convert(r *tzconv.Resolver, s scenario) (string, error) {
	d, err := civil.ParseDate(s.date)
	if err != nil {
		return "", err
	}
	t, err := civil.ParseTime(s.time)
	if err != nil {
		return "", err
	}
	at, err := r.ToInstant(d, t, s.zone)
	if err != nil {
		return "", err
	}
	return tzconv.FormatInstant(at), nil
}
