package container

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/richardlehane/mscfb"

	"macroscan/internal/logger"
)

// readCompound walks the directory of a compound file. The top-level storage
// named by the first path element must exist before the stream is considered.
func readCompound(data []byte, streamPath string) (ex Extraction) {
	defer func() {
		// Truncated sector chains can make the directory walk panic.
		if r := recover(); r != nil {
			logger.Warn("compound file walk aborted: %v", r)
			ex = Extraction{Outcome: OutcomeCorrupt, Detail: fmt.Sprintf("compound file could not be parsed: %v", r)}
		}
	}()

	parts := strings.Split(streamPath, "/")

	cfb, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		logger.Warn("The file does not seem to be a valid compound file: %v", err)
		return Extraction{Outcome: OutcomeCorrupt, Detail: fmt.Sprintf("compound file could not be parsed: %v", err)}
	}

	hasStorage := false
	var payload []byte
	for {
		entry, err := cfb.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if payload != nil {
				break
			}
			logger.Warn("compound file directory error: %v", err)
			return Extraction{Outcome: OutcomeCorrupt, Detail: fmt.Sprintf("compound file directory error: %v", err)}
		}

		if len(entry.Path) == 0 && strings.EqualFold(entry.Name, parts[0]) {
			hasStorage = true
		}
		if payload != nil || !entryMatches(entry.Path, entry.Name, parts) {
			continue
		}

		if entry.Size <= 0 || entry.Size > MaxPayloadSize || entry.Size > int64(len(data)) {
			logger.Warn("%s has implausible size %d", streamPath, entry.Size)
			return Extraction{Outcome: OutcomeCorrupt, Detail: fmt.Sprintf("%s has implausible size %d", streamPath, entry.Size)}
		}
		buf := make([]byte, entry.Size)
		if _, err := io.ReadFull(entry, buf); err != nil {
			logger.Warn("reading %s: %v", streamPath, err)
			return Extraction{Outcome: OutcomeCorrupt, Detail: fmt.Sprintf("reading %s: %v", streamPath, err)}
		}
		payload = buf
	}

	if !hasStorage {
		return Extraction{Outcome: OutcomeNoVBAStorage}
	}
	if payload == nil {
		return Extraction{Outcome: OutcomeMissingEntry}
	}
	return Extraction{Outcome: OutcomeFound, Data: payload}
}

// entryMatches compares a directory entry (parent path plus name) with the
// wanted path. Compound-file names compare case-insensitively.
func entryMatches(parents []string, name string, want []string) bool {
	if len(parents)+1 != len(want) {
		return false
	}
	for i, p := range parents {
		if !strings.EqualFold(p, want[i]) {
			return false
		}
	}
	return strings.EqualFold(name, want[len(want)-1])
}
