// Package export renders retrieved note data as a Markdown document. It
// is a pure transform: no storage access, no side effects.
package export

import "strings"

// Document carries the note fields the Markdown transform consumes.
type Document struct {
	ID        string
	Title     string
	CreatedAt string
	SourceURL *string
	Tags      []string
	Plaintext *string
	HTML      *string
}

// Render produces the Markdown representation of a document: title
// heading, metadata bullets, then the plaintext and HTML clip sections.
func Render(d Document) string {
	var md strings.Builder

	md.WriteString("# " + d.Title + "\n\n")
	md.WriteString("- **Created:** " + d.CreatedAt + "\n")
	if d.SourceURL != nil {
		md.WriteString("- **Source:** " + *d.SourceURL + "\n")
	}
	if len(d.Tags) > 0 {
		hashed := make([]string, len(d.Tags))
		for i, t := range d.Tags {
			hashed[i] = "#" + t
		}
		md.WriteString("- **Tags:** " + strings.Join(hashed, " ") + "\n")
	}
	md.WriteString("\n")

	if d.Plaintext != nil {
		md.WriteString("## Clip (plaintext)\n\n")
		md.WriteString(*d.Plaintext)
		md.WriteString("\n\n")
	}
	if d.HTML != nil {
		md.WriteString("## Clip (HTML)\n\n```html\n")
		md.WriteString(*d.HTML)
		md.WriteString("\n```\n")
	}

	return md.String()
}

// Filename returns the attachment filename for a document:
// "<sanitized title>-<id>.md".
func Filename(d Document) string {
	return SanitizeFilename(d.Title) + "-" + d.ID + ".md"
}

// SanitizeFilename keeps the first 60 characters of s, replacing anything
// that is not ASCII alphanumeric, dash, underscore, or space. An empty
// result falls back to "note".
func SanitizeFilename(s string) string {
	var out strings.Builder
	count := 0
	for _, ch := range s {
		if count >= 60 {
			break
		}
		count++
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9',
			ch == '-', ch == '_', ch == ' ':
			out.WriteRune(ch)
		default:
			out.WriteByte('-')
		}
	}
	t := strings.TrimSpace(out.String())
	if t == "" {
		return "note"
	}
	return t
}
