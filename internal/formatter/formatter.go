package formatter

import (
	"fmt"
	"io"
	"time"

	"github.com/tordrt/demomigrate/internal/migrate"
	"github.com/tordrt/demomigrate/internal/schema"
)

// Output formats
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// statusTimeFormat is how applied times are shown
const statusTimeFormat = time.DateTime

// Formatter renders schemas and runner status
type Formatter interface {
	Format(s *schema.Schema) error
	FormatTable(table schema.Table) error
	// FormatStatus renders the status of one history, titled by kind
	// ("migrations" or "seeds").
	FormatStatus(kind string, statuses []migrate.Status) error
}

// New returns the formatter for format writing to w
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case FormatText, "":
		return NewTextFormatter(w), nil
	case FormatMarkdown:
		return NewMarkdownFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown format %q (expected %s or %s)", format, FormatText, FormatMarkdown)
	}
}

func statusLabel(st migrate.Status) (state, at string) {
	if !st.Applied {
		return "pending", ""
	}
	return "applied", st.AppliedAt.UTC().Format(statusTimeFormat)
}
