package term

import "github.com/pterm/pterm"

type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var (
	lvl    = LevelInfo
	colors = map[Level]pterm.Color{
		LevelTrace: pterm.FgLightCyan,
		LevelDebug: pterm.FgLightCyan,
		LevelInfo:  pterm.FgLightGreen,
		LevelWarn:  pterm.FgYellow,
		LevelError: pterm.FgLightRed,
	}
)

func SetLevel(level Level) {
	lvl = level
}

func Debug(a ...interface{}) {
	printLine(LevelDebug, a...)
}

func Debugf(format string, a ...interface{}) {
	printFormat(LevelDebug, format, a...)
}

func Info(a ...interface{}) {
	printLine(LevelInfo, a...)
}

func Infof(format string, a ...interface{}) {
	printFormat(LevelInfo, format, a...)
}

func Warn(a ...interface{}) {
	printLine(LevelWarn, a...)
}

func Warnf(format string, a ...interface{}) {
	printFormat(LevelWarn, format, a...)
}

func Error(a ...interface{}) {
	printLine(LevelError, a...)
}

func Errorf(format string, a ...interface{}) {
	printFormat(LevelError, format, a...)
}

func printLine(level Level, a ...interface{}) {
	if lvl > level {
		return
	}
	colors[level].Println(a...)
}

func printFormat(level Level, format string, a ...interface{}) {
	if lvl > level {
		return
	}
	colors[level].Printfln(format, a...)
}
