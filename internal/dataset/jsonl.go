package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadJSONL reads one record per line from path and builds a static
// dataset. Lines that are blank are skipped; lines missing the required
// fields fail construction.
func LoadJSONL(ctx context.Context, path string, seed int64, policy WrapPolicy) (*Static, error) {
	if ctx == nil {
		return nil, errors.New("dataset: nil context")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("dataset: empty jsonl path")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %q: %w", path, err)
	}
	defer f.Close()

	records, err := decodeRecords(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("dataset: load %q: %w", path, err)
	}
	return FromRecords(records, seed, policy)
}

func decodeRecords(ctx context.Context, r io.Reader) ([]map[string]any, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var out []map[string]any
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec map[string]any
		if err := json.Unmarshal(line, &rec); err != nil {
			return out, fmt.Errorf("parse jsonl line %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return out, err
	}
	return out, nil
}
