package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

var (
	mu     sync.RWMutex
	output io.Writer
)

// SetOutput directs all log output to w. A nil w restores os.Stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func writer() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	if output == nil {
		return os.Stdout
	}
	return output
}

// colorEnabled reports whether the current output is an interactive terminal.
func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := writer().(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func paint(color, s string) string {
	if !colorEnabled() {
		return s
	}
	return color + s + reset
}

func line(color, level, tag, msg string) {
	ts := time.Now().Format("15:04:05")
	fmt.Fprintf(writer(), "%s %s %s %s\n",
		paint(dim, ts),
		paint(color, fmt.Sprintf("%-4s", level)),
		paint(bold, "["+tag+"]"),
		msg,
	)
}

// Info logs a neutral message.
func Info(tag, msg string) { line(cyan, "INFO", tag, msg) }

// Success logs a completed step.
func Success(tag, msg string) { line(green, "OK", tag, msg) }

// Warn logs a recoverable problem.
func Warn(tag, msg string) { line(yellow, "WARN", tag, msg) }

// Error logs a failure.
func Error(tag, msg string) { line(red, "ERR", tag, msg) }

// Banner prints the startup banner.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	title := "Short Circuit " + version
	bar := strings.Repeat("=", len(title)+4)
	w := writer()
	fmt.Fprintln(w, paint(cyan, bar))
	fmt.Fprintln(w, paint(bold, "  "+title))
	fmt.Fprintln(w, paint(cyan, bar))
}

// Section prints a section header for grouped stats.
func Section(title string) {
	fmt.Fprintln(writer(), paint(bold, "-- "+title+" --"))
}

// Stats prints a single key/value statistic. Integer values get thousands separators.
func Stats(key string, value interface{}) {
	var v string
	switch n := value.(type) {
	case int:
		v = humanize.Comma(int64(n))
	case int32:
		v = humanize.Comma(int64(n))
	case int64:
		v = humanize.Comma(n)
	case float64:
		v = humanize.Commaf(n)
	default:
		v = fmt.Sprint(value)
	}
	fmt.Fprintf(writer(), "   %-20s %s\n", key, paint(green, v))
}

// Server announces the listening address.
func Server(addr string) {
	Success("Server", fmt.Sprintf("Listening on http://%s", addr))
}
