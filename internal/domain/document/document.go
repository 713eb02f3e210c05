package document

import (
	"fmt"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// Document is a tenant-owned knowledge base entry (immutable value object).
type Document struct {
	id       string
	tenantID string
	content  string
	metadata map[string]string
}

// New validates and creates a Document.
func New(id, tenantID, content string, metadata map[string]string) (Document, error) {
	if tenantID == "" {
		return Document{}, fmt.Errorf("tenant ID is required")
	}
	if content == "" {
		return Document{}, fmt.Errorf("content is required")
	}
	return Reconstruct(id, tenantID, content, metadata), nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, tenantID, content string, metadata map[string]string) Document {
	return Document{
		id:       id,
		tenantID: tenantID,
		content:  content,
		metadata: cloneStringMap(metadata),
	}
}

// ID returns the storage identifier.
func (d *Document) ID() string { return d.id }

// TenantID returns the owning tenant.
func (d *Document) TenantID() string { return d.tenantID }

// Content returns the document text.
func (d *Document) Content() string { return d.content }

// Metadata returns a copy of the metadata fields.
func (d *Document) Metadata() map[string]string { return cloneStringMap(d.metadata) }

// Title returns the optional title metadata.
func (d *Document) Title() string { return d.metadata[domain.FieldTitle] }

// Summary returns the optional summary metadata.
func (d *Document) Summary() string { return d.metadata[domain.FieldSummary] }

// Key identifies the document for deduplication and fusion.
// Falls back to content when the storage id is unknown.
func (d *Document) Key() string {
	if d.id != "" {
		return d.id
	}
	return d.content
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
