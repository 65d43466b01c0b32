package output

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Guide text wraps between these widths regardless of the terminal size.
const (
	minDocWidth = 40
	maxDocWidth = 100
)

var (
	renderersMu sync.Mutex
	renderers   = map[int]*glamour.TermRenderer{}
)

// DocWidth picks a wrap width for rendered docs: the terminal width (or
// $COLUMNS when stdout is not a terminal), clamped to a readable range.
func DocWidth() int {
	w := 0
	if tw, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		w = tw
	} else if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil {
		w = n
	}
	return clampWidth(w)
}

func clampWidth(w int) int {
	switch {
	case w <= 0:
		return 80
	case w < minDocWidth:
		return minDocWidth
	case w > maxDocWidth:
		return maxDocWidth
	}
	return w
}

// RenderMarkdown renders markdown for the terminal, wrapped at width.
// Renderers are reused per width.
func RenderMarkdown(text string, width int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	width = clampWidth(width)

	renderersMu.Lock()
	defer renderersMu.Unlock()
	r, ok := renderers[width]
	if !ok {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
			glamour.WithEmoji(),
		)
		if err != nil {
			return "", err
		}
		renderers[width] = r
	}
	out, err := r.Render(text)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}
