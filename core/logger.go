package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// logLevel ordering for threshold checks
var logLevels = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
}

// ProductionLogger implements Logger with leveled, structured output.
// It emits JSON when running in a container/production environment and
// human-readable text for local development.
//
// Configuration priority:
//  1. Explicit options (highest)
//  2. Environment variables (GREENCART_LOG_LEVEL, GREENCART_LOG_FORMAT)
//  3. Auto-detection (KUBERNETES_SERVICE_HOST implies JSON)
//  4. Defaults (info level, text format)
type ProductionLogger struct {
	mu      sync.Mutex
	level   int
	format  string // "json" or "text"
	service string
	output  io.Writer
}

// LoggerOptions configures a ProductionLogger
type LoggerOptions struct {
	Level   string    // debug, info, warn, error
	Format  string    // json or text
	Service string    // service name stamped on every entry
	Output  io.Writer // defaults to stderr
}

// NewProductionLogger creates a leveled structured logger
func NewProductionLogger(opts LoggerOptions) *ProductionLogger {
	level := opts.Level
	if level == "" {
		level = os.Getenv("GREENCART_LOG_LEVEL")
	}
	if level == "" {
		level = "info"
	}
	threshold, ok := logLevels[strings.ToLower(level)]
	if !ok {
		threshold = logLevels["info"]
	}

	format := opts.Format
	if format == "" {
		format = os.Getenv("GREENCART_LOG_FORMAT")
	}
	if format == "" {
		if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
			format = "json"
		} else {
			format = "text"
		}
	}

	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	return &ProductionLogger{
		level:   threshold,
		format:  format,
		service: opts.Service,
		output:  output,
	}
}

func (l *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	l.log("debug", msg, fields)
}

func (l *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	l.log("info", msg, fields)
}

func (l *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	l.log("warn", msg, fields)
}

func (l *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	l.log("error", msg, fields)
}

func (l *ProductionLogger) log(level, msg string, fields map[string]interface{}) {
	if logLevels[level] < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == "json" {
		entry := map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"level":     level,
			"message":   msg,
		}
		if l.service != "" {
			entry["service"] = l.service
		}
		for k, v := range fields {
			if err, ok := v.(error); ok {
				entry[k] = err.Error()
				continue
			}
			entry[k] = v
		}
		data, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(l.output, "%s %s %s (unserializable fields: %v)\n",
				time.Now().UTC().Format(time.RFC3339), strings.ToUpper(level), msg, err)
			return
		}
		fmt.Fprintln(l.output, string(data))
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("15:04:05.000"))
	b.WriteString(" [")
	b.WriteString(strings.ToUpper(level))
	b.WriteString("] ")
	b.WriteString(msg)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	fmt.Fprintln(l.output, b.String())
}
