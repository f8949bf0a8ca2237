package importer

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/comanda/internal/orderparse"
)

var (
	// "[2/3/26, 14:05:12] Acme: text" (iOS) or "2/3/26, 14:05 - Acme: text" (Android).
	exportHeader = regexp.MustCompile(`^\[?(\d{1,2}/\d{1,2}/\d{2,4}),?\s+(\d{1,2}:\d{2}(?::\d{2})?)\]?\s+(?:-\s+)?([^:]{1,80}?):\s?(.*)$`)
	// Same timestamp without a sender: a system notice.
	exportStamp = regexp.MustCompile(`^\[?\d{1,2}/\d{1,2}/\d{2,4},?\s+\d{1,2}:\d{2}`)
)

var stampLayouts = []string{
	"2/1/06 15:04:05",
	"2/1/06 15:04",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
}

// ParseExportFile reads a chat export into one message per chat entry.
// Multi-line entries are kept whole; system notices are dropped. A file with
// no entry header at all is returned as a single document message.
func ParseExportFile(path string, source orderparse.Source) ([]orderparse.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	base := filepath.Base(path)
	var (
		msgs    []orderparse.RawMessage
		current *orderparse.RawMessage
		lines   []string
		all     []string
	)
	flush := func() {
		if current != nil {
			current.Text = strings.TrimSpace(strings.Join(lines, "\n"))
			if current.Text != "" {
				current.ID = fmt.Sprintf("%s#%d", base, len(msgs)+1)
				msgs = append(msgs, *current)
			}
		}
		current, lines = nil, nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimLeft(scanner.Text(), "\u200e\ufeff")
		all = append(all, line)

		if m := exportHeader.FindStringSubmatch(line); m != nil {
			flush()
			current = &orderparse.RawMessage{
				Source:     source,
				ReceivedAt: parseStamp(m[1], m[2]),
			}
			lines = append(lines, m[4])
			continue
		}
		if exportStamp.MatchString(line) {
			flush()
			continue
		}
		if current != nil {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	flush()

	if len(msgs) == 0 {
		text := strings.TrimSpace(strings.Join(all, "\n"))
		if text == "" {
			return nil, nil
		}
		info, _ := os.Stat(path)
		var mod time.Time
		if info != nil {
			mod = info.ModTime().UTC()
		}
		return []orderparse.RawMessage{{
			ID:         base,
			Source:     orderparse.SourceDocument,
			Text:       text,
			ReceivedAt: mod,
		}}, nil
	}
	return msgs, nil
}

func parseStamp(date, clock string) time.Time {
	for _, layout := range stampLayouts {
		if ts, err := time.Parse(layout, date+" "+clock); err == nil {
			return ts
		}
	}
	return time.Time{}
}
