package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/antoinerrr/ssh-ecs/internal/core"
)

var _ core.Auditor = (*FileAuditor)(nil)

// FileAuditor appends audit events to a file as JSON lines.
type FileAuditor struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

func NewFileAuditor(filePath string) (*FileAuditor, error) {
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log file: %w", err)
	}
	return &FileAuditor{
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

func (f *FileAuditor) Log(event core.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.encoder.Encode(event); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}
	return nil
}

func (f *FileAuditor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}
