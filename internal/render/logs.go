package render

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Iron-Ham/svcdeck/internal/logging"
)

// FormatLogEntry formats one supervisor log entry for the terminal:
//
//	[15:04:05.000] [INFO] service spawned component=supervisor service=auth pid=4242
func FormatLogEntry(e logging.LogEntry, styles *Styles) string {
	if styles == nil {
		styles = Plain()
	}

	var sb strings.Builder
	sb.WriteString(styles.Muted("[" + e.Timestamp.Format("15:04:05.000") + "]"))
	sb.WriteString(" ")
	sb.WriteString(styles.Level(e.Level))
	sb.WriteString(" ")
	sb.WriteString(e.Message)

	field := func(k string, v any) {
		sb.WriteString(" ")
		sb.WriteString(styles.Info(k + "="))
		sb.WriteString(fmt.Sprintf("%v", v))
	}
	if e.Component != "" {
		field("component", e.Component)
	}
	if e.Project != "" {
		field("project", e.Project)
	}
	if e.Service != "" {
		field("service", e.Service)
	}

	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		field(k, e.Attrs[k])
	}
	return sb.String()
}
