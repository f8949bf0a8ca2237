package importer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/MikeSquared-Agency/comanda/internal/hermes"
	"github.com/MikeSquared-Agency/comanda/internal/orderparse"
)

// ParseEventFile reads a JSONL dump of comanda.message.received events.
// Lines that are not valid events are skipped. Messages come back ordered by
// received time.
func ParseEventFile(path string) ([]orderparse.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var msgs []orderparse.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	for scanner.Scan() {
		var evt hermes.MessageReceived
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			continue
		}
		if evt.Text == "" {
			continue
		}
		d, err := orderparse.ParseDialect(evt.DialectHint)
		if err != nil {
			d = orderparse.DialectUnknown
		}
		msgs = append(msgs, orderparse.RawMessage{
			ID:         evt.MessageID,
			Source:     orderparse.Source(evt.Source),
			Text:       evt.Text,
			Dialect:    d,
			ReceivedAt: evt.ReceivedAt,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].ReceivedAt.Before(msgs[j].ReceivedAt)
	})
	return msgs, nil
}
