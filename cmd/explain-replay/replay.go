package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/arloliu/sqltrace"
)

// autoExplainSource matches the source file Postgres stamps on
// auto_explain notices; raw-format input is assumed to come from it.
const autoExplainSource = "auto_explain.c"

// jsonlogRecord is the subset of a Postgres jsonlog line
// (log_destination = 'jsonlog') the replay needs.
type jsonlogRecord struct {
	Message  string `json:"message"`
	FileName string `json:"file_name"`
}

// replay streams log records from r through the auto_explain handler and
// returns the number of records processed. Records that are not traced
// auto_explain plans are skipped silently, so a whole server log can be
// piped in unfiltered.
func replay(ctx context.Context, r io.Reader, format string) (int, error) {
	switch format {
	case "jsonlog":
		return replayJSONLog(ctx, r)
	case "raw":
		return replayRaw(r)
	default:
		return 0, fmt.Errorf("unknown input format %q (expected jsonlog or raw)", format)
	}
}

// replayJSONLog reads one JSON record per line. Plans span multiple source
// lines but jsonlog escapes them into a single line, so a line scanner is
// sufficient; the buffer is sized generously for large plans.
func replayJSONLog(ctx context.Context, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	processed := 0
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return processed, ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec jsonlogRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			// Not a jsonlog line; skip rather than abort the whole replay.
			continue
		}

		sqltrace.HandleAutoExplain(sqltrace.Diagnostic{
			SourceFile: rec.FileName,
			Message:    rec.Message,
		})
		processed++
	}

	if err := scanner.Err(); err != nil {
		return processed, fmt.Errorf("failed to read log input: %w", err)
	}

	return processed, nil
}

// replayRaw treats the entire input as a single auto_explain notice
// message, e.g. one captured by hand from psql output.
func replayRaw(r io.Reader) (int, error) {
	message, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read input: %w", err)
	}

	sqltrace.HandleAutoExplain(sqltrace.Diagnostic{
		SourceFile: autoExplainSource,
		Message:    string(message),
	})

	return 1, nil
}
