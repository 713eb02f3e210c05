package domain

// DefaultKeyPrefix namespaces every key the service writes or indexes.
const DefaultKeyPrefix = "ragchat:"

// Fallback is returned to the user when the generated answer is empty.
const Fallback = "Could you please rephrase the question with more context?"

// Document metadata fields stored next to the content in the tenant index.
const (
	FieldTenantID = "tenant_id"
	FieldTitle    = "title"
	FieldSummary  = "summary"
	FieldContent  = "content"
	FieldVector   = "vector"
)
