package parsing

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/loglens/loglens/internal/models"
)

// Assembler reconstructs logical log entries from a stream of arbitrarily
// sized text chunks. It holds back the trailing partial line of every
// non-final chunk so that a line split across a chunk boundary is never
// processed in halves, and it merges continuation lines (stack frames,
// tracebacks, indented detail) into the currently open entry.
type Assembler struct {
	pending string
	open    *models.LogEntry
	nextID  int
}

// NewAssembler returns an assembler ready for a fresh ingestion session.
func NewAssembler() *Assembler {
	return &Assembler{nextID: 1}
}

// Reset clears the buffer and open entry and restarts id assignment at 1.
func (a *Assembler) Reset() {
	a.pending = ""
	a.open = nil
	a.nextID = 1
}

// Feed consumes one chunk and returns every entry completed by it. Entries
// still accumulating continuation lines stay open until a later chunk (or
// the final flag) closes them. No input is ever rejected: every non-blank
// line ends up inside some entry.
func (a *Assembler) Feed(chunk string, final bool) []*models.LogEntry {
	a.pending += chunk

	var text string
	if final {
		text = a.pending
		a.pending = ""
	} else {
		idx := strings.LastIndexByte(a.pending, '\n')
		if idx < 0 {
			// No safe split point yet; wait for more data.
			return nil
		}
		text = a.pending[:idx]
		a.pending = a.pending[idx+1:]
	}

	var completed []*models.LogEntry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if a.open != nil && IsContinuationLine(line) {
			a.open.Raw += "\n" + line
			a.open.Message += "\n" + line
			a.open.RefreshSearchIndex()
			continue
		}
		if a.open != nil {
			completed = append(completed, a.open)
		}
		a.open = a.newEntry(line)
	}

	if final && a.open != nil {
		completed = append(completed, a.open)
		a.open = nil
	}

	if len(completed) > 0 {
		log.Debug().Int("entries", len(completed)).Bool("final", final).Msg("Assembler flushed entries")
	}
	return completed
}

// newEntry opens an entry from a header line using the line classifier.
func (a *Assembler) newEntry(line string) *models.LogEntry {
	message := StripTimestampPrefix(line)
	if strings.TrimSpace(message) == "" {
		message = line
	}
	entry := &models.LogEntry{
		ID:        a.nextID,
		Timestamp: DetectTimestamp(line),
		Level:     DetectLevel(line),
		Message:   message,
		Raw:       line,
		Fields:    map[string][]string{},
	}
	a.nextID++
	entry.RefreshSearchIndex()
	return entry
}
