package scan

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/saintfish/chardet"

	"github.com/sdejongh/reorgnorris/pkg/logging"
)

const (
	// encodingSampleSize is how much of a file is inspected
	encodingSampleSize = 10240
	// minEncodingConfidence is the chardet confidence below which utf-8 is assumed
	minEncodingConfidence = 70
	defaultEncoding       = "utf-8"
)

// DetectEncoding guesses the character encoding of a text file
// It returns "utf-8" for empty files, on read errors and for low-confidence guesses
func (s *Scanner) DetectEncoding(path string) string {
	full := s.abs(path)

	f, err := os.Open(full)
	if err != nil {
		s.logger.Warn(context.Background(), "Cannot detect encoding", logging.Fields{"path": path, "error": err.Error()})
		return defaultEncoding
	}
	defer f.Close()

	buf := make([]byte, encodingSampleSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		s.logger.Warn(context.Background(), "Cannot detect encoding", logging.Fields{"path": path, "error": err.Error()})
		return defaultEncoding
	}

	return detectCharset(buf[:n])
}

func detectCharset(data []byte) string {
	if len(data) == 0 {
		return defaultEncoding
	}

	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil || result.Confidence < minEncodingConfidence || result.Charset == "" {
		return defaultEncoding
	}
	return strings.ToLower(result.Charset)
}
