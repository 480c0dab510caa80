// Package transcript renders the displayed message log of a session.
package transcript

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

type Format string

const (
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
)

func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "parse transcript format", fmt.Errorf("unsupported format %q", raw))
	}
}

func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/markdown; charset=utf-8"
}

func (f Format) Extension() string {
	return string(f)
}

func Render(w io.Writer, format Format, state domain.SessionState) error {
	switch format {
	case FormatPDF:
		return RenderPDF(w, state)
	default:
		return RenderMarkdown(w, state)
	}
}

func title(state domain.SessionState) string {
	if state.SelectedDocument == "" {
		return "Document Chatbot"
	}
	return "Document Chatbot: " + state.SelectedDocument
}

func speaker(role domain.Role) string {
	switch role {
	case domain.RoleUser:
		return "User"
	case domain.RoleAssistant:
		return "Assistant"
	default:
		return string(role)
	}
}

func sourceLine(sources []domain.Source) string {
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		parts = append(parts, fmt.Sprintf("%s p.%d", s.Filename, s.Page))
	}
	return "Sources: " + strings.Join(parts, ", ")
}

func RenderMarkdown(w io.Writer, state domain.SessionState) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title(state))
	for _, msg := range state.Messages {
		label := speaker(msg.Role)
		if msg.Error {
			label += " (error)"
		}
		fmt.Fprintf(&b, "**%s** _%s_\n\n%s\n\n", label, msg.CreatedAt.UTC().Format(time.RFC3339), msg.Content)
		if len(msg.Sources) > 0 {
			fmt.Fprintf(&b, "> %s\n\n", sourceLine(msg.Sources))
		}
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write markdown transcript: %w", err)
	}
	return nil
}

func RenderPDF(w io.Writer, state domain.SessionState) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title(state), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 8, tr(title(state)), "", "L", false)
	pdf.Ln(4)

	for _, msg := range state.Messages {
		label := speaker(msg.Role)
		if msg.Error {
			label += " (error)"
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 6, tr(label+"  "+msg.CreatedAt.UTC().Format(time.RFC3339)), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 5, tr(msg.Content), "", "L", false)
		if len(msg.Sources) > 0 {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.MultiCell(0, 5, tr(sourceLine(msg.Sources)), "", "L", false)
		}
		pdf.Ln(3)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf transcript: %w", err)
	}
	return nil
}
