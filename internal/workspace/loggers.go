package workspace

import "log"

// Loggers bundles the out/err logging destinations plus a verbosity flag,
// mirroring cmd/dep's loggers.go pairing of an out/err *log.Logger set
// that every subcommand threads through its dep.Ctx.
type Loggers struct {
	Out, Err *log.Logger
	Verbose  bool
}

// Printf writes to Out only when Verbose is set; diagnostic noise that
// should not show up in a default run.
func (l *Loggers) Printf(format string, args ...interface{}) {
	if l == nil || !l.Verbose || l.Out == nil {
		return
	}
	l.Out.Printf(format, args...)
}

// Errf always writes to Err, regardless of verbosity.
func (l *Loggers) Errf(format string, args ...interface{}) {
	if l == nil || l.Err == nil {
		return
	}
	l.Err.Printf(format, args...)
}
