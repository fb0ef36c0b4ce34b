package service

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/exportstore"
	"github.com/xxxsen/docqa/internal/model"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	documentsSheet = "Documents"
	statsSheet     = "Stats"
)

var documentColumns = []string{
	"Document ID", "Filename", "Uploaded", "Pages", "Reading time (min)",
	"Complexity", "Topics", "Summary", "Chunks", "Size (bytes)",
}

// ExportService writes chat transcripts and the document library to the
// configured export store.
type ExportService struct {
	store exportstore.Store
	md    goldmark.Markdown
}

func NewExportService(store exportstore.Store) *ExportService {
	return &ExportService{store: store, md: goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)}
}

// ExportTranscript renders messages as an HTML page and stores it under
// name (".html" is appended when missing).
func (s *ExportService) ExportTranscript(ctx context.Context, name, title string, messages []model.ChatMessage) (string, error) {
	page, err := s.TranscriptHTML(title, messages)
	if err != nil {
		return "", err
	}
	key := withExt(name, ".html")
	loc, err := s.store.Save(ctx, key, strings.NewReader(page), contentTypeHTML)
	if err != nil {
		return "", fmt.Errorf("save transcript: %w", err)
	}
	logutil.GetLogger(ctx).Info("transcript exported", zap.String("location", loc), zap.Int("messages", len(messages)))
	return loc, nil
}

// ExportDocuments writes the library and its statistics as a workbook.
func (s *ExportService) ExportDocuments(ctx context.Context, name string, docs []model.Document) (string, error) {
	data, err := DocumentsXLSX(docs)
	if err != nil {
		return "", err
	}
	key := withExt(name, ".xlsx")
	loc, err := s.store.Save(ctx, key, bytes.NewReader(data), contentTypeXLSX)
	if err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	logutil.GetLogger(ctx).Info("documents exported", zap.String("location", loc), zap.Int("documents", len(docs)))
	return loc, nil
}

func (s *ExportService) TranscriptHTML(title string, messages []model.ChatMessage) (string, error) {
	var body bytes.Buffer
	if err := s.md.Convert([]byte(TranscriptMarkdown(title, messages)), &body); err != nil {
		return "", fmt.Errorf("render transcript: %w", err)
	}
	var out strings.Builder
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	out.WriteString(html.EscapeString(title))
	out.WriteString("</title>\n</head>\n<body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.String(), nil
}

// TranscriptMarkdown lays out the conversation one section per message.
// Message text is taken as markdown, which is what the backend answers in.
func TranscriptMarkdown(title string, messages []model.ChatMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	for _, msg := range messages {
		speaker := "You"
		if msg.Role == model.RoleAssistant {
			speaker = "Assistant"
		}
		stamp := ""
		if !msg.Timestamp.IsZero() {
			stamp = " (" + msg.Timestamp.UTC().Format("2006-01-02 15:04:05") + ")"
		}
		fmt.Fprintf(&b, "## %s%s\n\n", speaker, stamp)
		switch {
		case msg.IsError:
			fmt.Fprintf(&b, "> **Error:** %s\n\n", msg.Content)
			continue
		case msg.Unanswered:
			fmt.Fprintf(&b, "%s\n\n*Not answered.*\n\n", msg.Content)
			continue
		}
		fmt.Fprintf(&b, "%s\n\n", msg.Content)
		if msg.Confidence != nil {
			fmt.Fprintf(&b, "*Confidence: %.0f%%", *msg.Confidence*100)
			if msg.ProcessingTime > 0 {
				fmt.Fprintf(&b, ", answered in %.1fs", msg.ProcessingTime)
			}
			b.WriteString("*\n\n")
		}
		if len(msg.Citations) > 0 {
			b.WriteString("| Page | Confidence | Excerpt |\n|---|---|---|\n")
			for _, c := range msg.Citations {
				fmt.Fprintf(&b, "| %d | %.0f%% | %s |\n", c.PageNumber, c.Confidence*100, tableCell(c.Text))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// DocumentsXLSX builds a two sheet workbook: one row per document and the
// dashboard statistics.
func DocumentsXLSX(docs []model.Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", documentsSheet); err != nil {
		return nil, err
	}
	if err := setRow(f, documentsSheet, 1, toCells(documentColumns)); err != nil {
		return nil, err
	}
	for i, doc := range docs {
		uploaded := ""
		if !doc.UploadTime.IsZero() {
			uploaded = doc.UploadTime.UTC().Format("2006-01-02 15:04:05")
		}
		row := []interface{}{
			doc.DocID, doc.Filename, uploaded, doc.TotalPages, doc.EstimatedReadingTime,
			doc.ComplexityScore, strings.Join(doc.KeyTopics, ", "), doc.Summary, doc.TotalChunks, doc.FileSize,
		}
		if err := setRow(f, documentsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(statsSheet); err != nil {
		return nil, err
	}
	st := ComputeStats(docs)
	rows := [][]interface{}{
		{"Documents", st.Documents},
		{"Total pages", st.TotalPages},
		{"Total reading time (min)", st.TotalReadingTime},
		{"Mean complexity", st.MeanComplexity},
		{"Median complexity", st.MedianComplexity},
		{"Total size (bytes)", st.TotalSize},
	}
	for i, row := range rows {
		if err := setRow(f, statsSheet, i+1, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, rowIdx int, values []interface{}) error {
	for c, v := range values {
		cell, err := excelize.CoordinatesToCellName(c+1, rowIdx)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func tableCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func withExt(name, ext string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if !strings.EqualFold(filepath.Ext(name), ext) {
		name += ext
	}
	return name
}
