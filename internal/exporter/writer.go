package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/robotomize/go-httpspec/internal/allure"
)

type Writer interface {
	WriteReport(ctx context.Context, tests []allure.Test) error
	WriteAttachments(ctx context.Context, attachments []Attachment) error
}

type WriterOption func(*writer)

// WriteToDir writes one <uuid>-result.json file per test, plus attachments, into pth.
func WriteToDir(pth string) WriterOption {
	return func(w *writer) {
		w.pth = pth
	}
}

// WriteReportTo mirrors every encoded result to writers.
func WriteReportTo(writers ...io.Writer) WriterOption {
	return func(w *writer) {
		w.reportWriters = append(w.reportWriters, writers...)
	}
}

func NewWriter(opts ...WriterOption) Writer {
	w := writer{reportWriters: []io.Writer{io.Discard}}
	for _, o := range opts {
		o(&w)
	}

	return &w
}

type writer struct {
	pth           string
	reportWriters []io.Writer
}

func (o *writer) WriteReport(ctx context.Context, tests []allure.Test) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(o.pth) > 0 {
		if err := mkdir(o.pth); err != nil {
			return err
		}
	}

	for _, tc := range tests {
		if err := o.writeReport(tc); err != nil {
			return fmt.Errorf("writeReport test: %w", err)
		}
	}

	return nil
}

func (o *writer) WriteAttachments(ctx context.Context, attachments []Attachment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if o.pth == "" {
		return nil
	}

	if err := mkdir(o.pth); err != nil {
		return err
	}

	for _, attachment := range attachments {
		if err := o.writeAttachmentFile(attachment); err != nil {
			return err
		}
	}

	return nil
}

func (o *writer) writeAttachmentFile(attachment Attachment) error {
	pth := filepath.Join(o.pth, attachment.Source)

	file, err := os.OpenFile(pth, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("os.OpenFile: %w", err)
	}

	defer file.Close()

	if _, err = file.Write(attachment.Body); err != nil {
		return fmt.Errorf("os.OpenFile Write: %w", err)
	}

	// Sync so a killed run still leaves complete attachments behind.
	if err = file.Sync(); err != nil {
		return fmt.Errorf("os.OpenFile Sync: %w", err)
	}

	return nil
}

func (o *writer) writeReport(tc allure.Test) (err error) {
	writers := make([]io.Writer, len(o.reportWriters))
	copy(writers, o.reportWriters)

	if o.pth != "" {
		pth := filepath.Join(o.pth, fmt.Sprintf("%s-result.json", tc.UUID))
		file, openErr := os.OpenFile(pth, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if openErr != nil {
			return fmt.Errorf("os.OpenFile: %w", openErr)
		}

		defer func() {
			if syncErr := file.Sync(); syncErr != nil && err == nil {
				err = fmt.Errorf("file Sync: %w", syncErr)
			}

			_ = file.Close()
		}()

		writers = append(writers, file)
	}

	if encErr := json.NewEncoder(io.MultiWriter(writers...)).Encode(tc); encErr != nil {
		return fmt.Errorf("json.NewEncoder.Encode: %w", encErr)
	}

	return nil
}

// mkdir creates pth when it does not exist yet.
func mkdir(pth string) error {
	if _, err := os.Stat(pth); os.IsNotExist(err) {
		if err = os.MkdirAll(pth, os.ModePerm); err != nil {
			return fmt.Errorf("os.MkdirAll: %w", err)
		}
	}

	return nil
}
