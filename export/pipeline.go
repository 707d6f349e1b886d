package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatkit/core"

	"github.com/go-pdf/fpdf"
)

// ErrEmptyHistory is returned when export is requested with nothing to
// export.
var ErrEmptyHistory = errors.New("export: history is empty")

// Config holds the page geometry for the rendered document. Units are
// millimetres on an A4 portrait page.
type Config struct {
	Heading    string  `json:"heading"`
	FontSize   float64 `json:"font_size"`
	LeftMargin float64 `json:"left_margin"`
	TopMargin  float64 `json:"top_margin"`
	WrapWidth  float64 `json:"wrap_width"`  // max text width before wrapping
	LineHeight float64 `json:"line_height"` // vertical advance per wrapped line
	PageBottom float64 `json:"page_bottom"` // y past which a new page begins
}

func DefaultConfig() Config {
	return Config{
		Heading:    "AI Assistant Chat Export",
		FontSize:   12,
		LeftMargin: 10,
		TopMargin:  10,
		WrapWidth:  180,
		LineHeight: 6,
		PageBottom: 280,
	}
}

// Document is a rendered, byte-serializable transcript ready to be handed
// to a Sink.
type Document struct {
	Bytes    []byte
	Filename string
	// Lines are the formatted per-message content lines, in transcript
	// order, before word-wrapping.
	Lines []string
}

// Pipeline renders a message history into a paginated PDF document. It
// reads the history on demand and is independent of the live conversation
// flow.
type Pipeline struct {
	config Config
	logger *core.Logger
}

func NewPipeline(config Config, logger *core.Logger) *Pipeline {
	if config.FontSize == 0 {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Pipeline{
		config: config,
		logger: logger.With(map[string]interface{}{"component": "export"}),
	}
}

// Export renders the given history snapshot. Each message becomes one
// logical line "[time] SENDER: text", word-wrapped to the page width; a new
// page begins whenever the next line would pass the page's vertical
// capacity. An empty history is an error and nothing is rendered.
func (p *Pipeline) Export(history []core.Message) (*Document, error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}

	lines := make([]string, len(history))
	for i, msg := range history {
		lines[i] = FormatLine(msg)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", p.config.FontSize)

	y := p.config.TopMargin
	pdf.Text(p.config.LeftMargin, y, translate(p.config.Heading))
	y += p.config.TopMargin

	for _, line := range lines {
		wrapped := pdf.SplitText(translate(line), p.config.WrapWidth)
		if y+float64(len(wrapped))*p.config.LineHeight > p.config.PageBottom {
			pdf.AddPage()
			y = p.config.TopMargin
		}
		for _, w := range wrapped {
			pdf.Text(p.config.LeftMargin, y, w)
			y += p.config.LineHeight
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("export: render pdf: %w", err)
	}

	doc := &Document{
		Bytes:    buf.Bytes(),
		Filename: Filename(time.Now()),
		Lines:    lines,
	}
	p.logger.With(map[string]interface{}{
		"messages": len(history),
		"bytes":    len(doc.Bytes),
	}).Info("transcript exported")
	return doc, nil
}

// FormatLine renders one message as its transcript line.
func FormatLine(msg core.Message) string {
	return fmt.Sprintf("[%s] %s: %s",
		msg.Timestamp.Format("15:04:05"),
		strings.ToUpper(string(msg.Sender)),
		msg.Text,
	)
}

// Filename returns the export filename for the given moment: the UTC
// ISO-8601 timestamp truncated to seconds with ':' and 'T' replaced by '-'.
func Filename(now time.Time) string {
	stamp := now.UTC().Format("2006-01-02T15:04:05")
	stamp = strings.NewReplacer(":", "-", "T", "-").Replace(stamp)
	return "chat_export_" + stamp + ".pdf"
}
