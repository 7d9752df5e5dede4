package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"farmLedger/internal/model"
)

// ReadJournal decodes one OpRecord per non-empty line of r and passes it to fn.
// Decoding stops at the first malformed line or fn error.
func ReadJournal(r io.Reader, fn func(model.OpRecord) error) error {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		var rec model.OpRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("journal line %d: %w", line, err)
		}
		if rec.Op == "" {
			return fmt.Errorf("journal line %d: missing op", line)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan journal: %w", err)
	}
	return nil
}
