// Package store persists the small side files the workflows depend on: the
// default message text and the optional media attachment.
package store

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// FallbackMessage is returned when no default message has been saved yet.
const FallbackMessage = "Hello! This is an automated message."

// FileStore reads and writes the default-message side file and checks the
// configured media attachment.
type FileStore struct {
	messagePath string
	mediaPath   string
	log         *zap.Logger
}

// New returns a FileStore over the given paths. mediaPath may be empty, which
// disables the attach flow entirely.
func New(messagePath, mediaPath string, log *zap.Logger) *FileStore {
	return &FileStore{
		messagePath: messagePath,
		mediaPath:   mediaPath,
		log:         log.Named("store"),
	}
}

// DefaultMessage returns the persisted default message, or FallbackMessage
// when the side file does not exist or cannot be read.
func (s *FileStore) DefaultMessage() string {
	data, err := os.ReadFile(s.messagePath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("Could not read default message file", zap.Error(err))
		}
		return FallbackMessage
	}
	msg := strings.TrimRight(string(data), "\n")
	if msg == "" {
		return FallbackMessage
	}
	return msg
}

// SaveDefaultMessage overwrites the default message side file. A failure is
// operational-log-only; the batch that triggered the save still runs.
func (s *FileStore) SaveDefaultMessage(msg string) error {
	if err := os.WriteFile(s.messagePath, []byte(msg), 0o644); err != nil {
		return fmt.Errorf("saving default message: %w", err)
	}
	return nil
}

// MediaPath returns the configured attachment path if the file exists, or ""
// when no media is configured or the file is missing. A missing file means
// the batch sends text-only.
func (s *FileStore) MediaPath() string {
	if s.mediaPath == "" {
		return ""
	}
	if _, err := os.Stat(s.mediaPath); err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("Could not stat media file", zap.Error(err))
		}
		return ""
	}
	return s.mediaPath
}
