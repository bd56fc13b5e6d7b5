package container

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"macroscan/internal/logger"
)

// readPackage opens data as an OOXML package and reads entryPath.
func readPackage(data []byte, entryPath string) Extraction {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logger.Warn("The file does not seem to be a valid zip file: %v", err)
		return Extraction{Outcome: OutcomeCorrupt, Detail: "The file does not seem to be a valid zip file."}
	}

	for _, f := range zr.File {
		if f.Name != entryPath {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			logger.Warn("opening %s: %v", entryPath, err)
			return Extraction{Outcome: OutcomeCorrupt, Detail: fmt.Sprintf("opening %s: %v", entryPath, err)}
		}
		payload, err := io.ReadAll(io.LimitReader(rc, MaxPayloadSize+1))
		rc.Close()
		if err != nil {
			logger.Warn("reading %s: %v", entryPath, err)
			return Extraction{Outcome: OutcomeCorrupt, Detail: fmt.Sprintf("reading %s: %v", entryPath, err)}
		}
		if int64(len(payload)) > MaxPayloadSize {
			return Extraction{Outcome: OutcomeCorrupt, Detail: fmt.Sprintf("%s exceeds %d bytes", entryPath, MaxPayloadSize)}
		}
		if len(payload) == 0 {
			break
		}
		return Extraction{Outcome: OutcomeFound, Data: payload}
	}

	logger.Info("No VBA data found in the OOXML file.")
	return Extraction{Outcome: OutcomeMissingEntry}
}
