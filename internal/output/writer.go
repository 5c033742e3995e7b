// Package output renders the merged coverage registry: the markdown table
// spliced into the report document and a JSON dump of the full registry.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Writer writes a coverage report.
type Writer interface {
	// WriteReport writes the complete report
	WriteReport(report *Report) error

	// Flush flushes any buffered output
	Flush() error

	// Close closes the writer
	Close() error
}

// Formats accepted by NewWriter.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Config holds output configuration.
type Config struct {
	Format   string `yaml:"format" json:"format"`
	Pretty   bool   `yaml:"pretty" json:"pretty"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// NewWriter creates a new output writer.
func NewWriter(w io.Writer, config Config) Writer {
	switch config.Format {
	case FormatMarkdown:
		return NewMarkdownWriter(w)
	default:
		return NewJSONWriter(w, config.Pretty)
	}
}

// Create opens config.FilePath, creating parent directories, and returns a
// writer over it. Closing the writer closes the file.
func Create(config Config) (Writer, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("no output path")
	}
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return NewWriter(f, config), nil
}

// MarkdownWriter writes only the rendered table.
type MarkdownWriter struct {
	writer io.Writer
}

// NewMarkdownWriter creates a new markdown writer.
func NewMarkdownWriter(w io.Writer) *MarkdownWriter {
	return &MarkdownWriter{writer: w}
}

// WriteReport writes the table for report.Endpoints.
func (m *MarkdownWriter) WriteReport(report *Report) error {
	_, err := io.WriteString(m.writer, RenderTable(report.Registry())+"\n")
	return err
}

// Flush flushes the writer.
func (m *MarkdownWriter) Flush() error {
	if flusher, ok := m.writer.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// Close closes the writer.
func (m *MarkdownWriter) Close() error {
	if closer, ok := m.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
