package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/machirag/server/models"
)

// HistoryMessage is one turn of a conversation.
type HistoryMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// HistoryStore persists per-session chat history as JSON-lines flat files,
// one file per session.
type HistoryStore struct {
	dir string
	mu  sync.Mutex
}

// NewHistoryStore creates the history directory if needed.
func NewHistoryStore(dir string) (*HistoryStore, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("could not resolve history directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create history directory: %w", err)
	}
	return &HistoryStore{dir: absDir}, nil
}

// sessionPath validates the session id and keeps the file inside the history
// directory, so a crafted id cannot escape it.
func (s *HistoryStore) sessionPath(sessionID string) (string, error) {
	if sessionID == "" {
		return "", &models.ValidationError{Field: "session_id", Reason: "session id must not be empty"}
	}
	cleanPath := filepath.Join(s.dir, filepath.Base(sessionID)+".jsonl")
	if !strings.HasPrefix(cleanPath, s.dir) {
		return "", &models.ValidationError{Field: "session_id", Reason: "invalid session id"}
	}
	return cleanPath, nil
}

// Append adds one message to the session's history file.
func (s *HistoryStore) Append(sessionID, role, content string) error {
	path, err := s.sessionPath(sessionID)
	if err != nil {
		return err
	}

	line, err := json.Marshal(HistoryMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to encode history message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write history message: %w", err)
	}
	return nil
}

// Messages returns the session's history in append order. A session without
// a file has an empty history.
func (s *HistoryStore) Messages(sessionID string) ([]HistoryMessage, error) {
	path, err := s.sessionPath(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	var messages []HistoryMessage
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg HistoryMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return nil, fmt.Errorf("corrupt history line in %s: %w", filepath.Base(path), err)
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	return messages, nil
}
