package handler

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/xxxsen/docqa/internal/model"
	"github.com/xxxsen/docqa/internal/service"
)

const excerptWidth = 72

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetBorder(false)
	table.SetHeaderLine(true)
	table.SetColumnSeparator(" ")
	table.SetCenterSeparator(" ")
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func renderDocuments(w io.Writer, docs []model.Document) {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents yet. Upload one with `docqa upload <file>`.")
		return
	}
	table := newTable(w, "ID", "Filename", "Uploaded", "Pages", "Read (min)", "Complexity", "Topics")
	for _, doc := range docs {
		uploaded := ""
		if !doc.UploadTime.IsZero() {
			uploaded = doc.UploadTime.Local().Format("2006-01-02 15:04")
		}
		table.Append([]string{
			doc.DocID,
			doc.Filename,
			uploaded,
			strconv.Itoa(doc.TotalPages),
			strconv.FormatFloat(doc.EstimatedReadingTime, 'f', -1, 64),
			fmt.Sprintf("%.0f%%", doc.ComplexityScore*100),
			strings.Join(doc.KeyTopics, ", "),
		})
	}
	table.Render()
}

func renderStats(w io.Writer, st service.Stats) {
	table := newTable(w, "Metric", "Value")
	table.AppendBulk([][]string{
		{"Documents", strconv.Itoa(st.Documents)},
		{"Total pages", strconv.Itoa(st.TotalPages)},
		{"Reading time", fmt.Sprintf("%.0f min", st.TotalReadingTime)},
		{"Mean complexity", fmt.Sprintf("%.0f%%", st.MeanComplexity*100)},
		{"Median complexity", fmt.Sprintf("%.0f%%", st.MedianComplexity*100)},
		{"Total size", formatBytes(st.TotalSize)},
	})
	table.Render()
}

func renderDocument(w io.Writer, doc model.Document) {
	fmt.Fprintf(w, "%s (%s)\n", doc.Filename, doc.DocID)
	fmt.Fprintf(w, "  %d pages, about %.0f min to read, complexity %.0f%%\n",
		doc.TotalPages, doc.EstimatedReadingTime, doc.ComplexityScore*100)
	if len(doc.KeyTopics) > 0 {
		fmt.Fprintf(w, "  topics: %s\n", strings.Join(doc.KeyTopics, ", "))
	}
	if doc.Summary != "" {
		fmt.Fprintf(w, "  %s\n", doc.Summary)
	}
}

func renderMessage(w io.Writer, msg model.ChatMessage) {
	if msg.IsError {
		fmt.Fprintf(w, "! %s\n", msg.Content)
		fmt.Fprintln(w, "  (type /retry to ask again)")
		return
	}
	fmt.Fprintln(w, msg.Content)
	if msg.Confidence != nil {
		fmt.Fprintf(w, "\nconfidence %.0f%%", *msg.Confidence*100)
		if msg.ProcessingTime > 0 {
			fmt.Fprintf(w, ", %.1fs", msg.ProcessingTime)
		}
		fmt.Fprintln(w)
	}
	if len(msg.Citations) > 0 {
		table := newTable(w, "Page", "Confidence", "Excerpt")
		for _, c := range msg.Citations {
			table.Append([]string{strconv.Itoa(c.PageNumber), fmt.Sprintf("%.0f%%", c.Confidence*100), truncate(c.Text, excerptWidth)})
		}
		table.Render()
	}
}

func renderSuggestions(w io.Writer, suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintln(w, "Try asking:")
	for _, s := range suggestions {
		fmt.Fprintf(w, "  - %s\n", s)
	}
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
