// Package nlog is a minimal structured logger in the shape the teacher
// repo's cmn/nlog is called with (Infoln/Errorln/Warningln, leveled
// verbosity). It writes to stderr with a wall-clock timestamp prefix
// (microsecond resolution) and a level letter, without a full logging
// framework.
package nlog

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

type level int32

const (
	LevelError level = iota
	LevelWarning
	LevelInfo
	LevelDebug
)

var (
	std     = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
	current int32 = int32(LevelInfo)
)

// SetLevel adjusts the effective log level at runtime, used by the
// scheduler to raise verbosity during a livelock diagnostic window.
func SetLevel(l level) { atomic.StoreInt32(&current, int32(l)) }

func enabled(l level) bool { return int32(l) <= atomic.LoadInt32(&current) }

func Infoln(v ...any) {
	if enabled(LevelInfo) {
		std.Output(2, "I "+fmt.Sprintln(v...))
	}
}

func Infof(format string, v ...any) {
	if enabled(LevelInfo) {
		std.Output(2, "I "+fmt.Sprintf(format, v...))
	}
}

func Warningln(v ...any) {
	if enabled(LevelWarning) {
		std.Output(2, "W "+fmt.Sprintln(v...))
	}
}

func Errorln(v ...any) {
	if enabled(LevelError) {
		std.Output(2, "E "+fmt.Sprintln(v...))
	}
}

func Errorf(format string, v ...any) {
	if enabled(LevelError) {
		std.Output(2, "E "+fmt.Sprintf(format, v...))
	}
}

func Debugln(v ...any) {
	if enabled(LevelDebug) {
		std.Output(2, "D "+fmt.Sprintln(v...))
	}
}
