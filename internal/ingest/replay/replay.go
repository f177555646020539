package replay

import (
	"bufio"
	"bytes"
	"fmt"
	"github.com/Avi18971911/SpanTree/internal/codec"
	"github.com/Avi18971911/SpanTree/internal/session"
	"go.uber.org/zap"
	"io"
	"os"
)

const maxLineSize = 4 * 1024 * 1024

type Stats struct {
	Ingested int
	Skipped  int
}

// ReadFile feeds a JSON-lines recording of messages into the ingester, in file order.
func ReadFile(path string, ingester session.Ingester, logger *zap.Logger) (Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open replay file %s: %w", path, err)
	}
	defer file.Close()
	return Read(file, ingester, logger)
}

func Read(r io.Reader, ingester session.Ingester, logger *zap.Logger) (Stats, error) {
	var stats Stats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		message, err := codec.Decode(data)
		if err != nil {
			logger.Warn("Skipping undecodable replay line", zap.Int("line", line), zap.Error(err))
			stats.Skipped++
			continue
		}
		ingester.Enqueue(message)
		stats.Ingested++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read replay input at line %d: %w", line, err)
	}
	return stats, nil
}
