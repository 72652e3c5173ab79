// Package profiling starts and stops the runtime profilers of a pocnode process.
package profiling

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	"github.com/felixge/fgprof"
	"go.uber.org/multierr"
)

// Profiles selects the profiles to record. Profiles are written to Dir.
type Profiles struct {
	Dir    string
	CPU    bool
	Memory bool
	Trace  bool
	Fgprof bool
}

// Enabled returns true if any profile is selected.
func (p Profiles) Enabled() bool {
	return p.Dir != "" && (p.CPU || p.Memory || p.Trace || p.Fgprof)
}

// Start starts the selected profilers. The returned function stops them and
// writes the memory profile. If a profiler fails to start, the ones already
// running are stopped.
func (p Profiles) Start() (stop func() error, err error) {
	if !p.Enabled() {
		return func() error { return nil }, nil
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return nil, err
	}

	var stops []func() error
	stopAll := func() (err error) {
		for i := len(stops) - 1; i >= 0; i-- {
			err = multierr.Append(err, stops[i]())
		}
		return err
	}

	if p.CPU {
		f, err := os.Create(filepath.Join(p.Dir, "cpuprofile"))
		if err != nil {
			return nil, multierr.Append(err, stopAll())
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return nil, multierr.Combine(err, f.Close(), stopAll())
		}
		stops = append(stops, func() error {
			pprof.StopCPUProfile()
			return f.Close()
		})
	}

	if p.Fgprof {
		f, err := os.Create(filepath.Join(p.Dir, "fgprofprofile"))
		if err != nil {
			return nil, multierr.Append(err, stopAll())
		}
		fgprofStop := fgprof.Start(f, fgprof.FormatPprof)
		stops = append(stops, func() error {
			return multierr.Append(fgprofStop(), f.Close())
		})
	}

	if p.Trace {
		f, err := os.Create(filepath.Join(p.Dir, "trace"))
		if err != nil {
			return nil, multierr.Append(err, stopAll())
		}
		if err := trace.Start(f); err != nil {
			return nil, multierr.Combine(err, f.Close(), stopAll())
		}
		stops = append(stops, func() error {
			trace.Stop()
			return f.Close()
		})
	}

	if p.Memory {
		path := filepath.Join(p.Dir, "memprofile")
		stops = append([]func() error{func() error {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			runtime.GC() // get up-to-date statistics
			return multierr.Append(pprof.WriteHeapProfile(f), f.Close())
		}}, stops...)
	}

	return stopAll, nil
}
