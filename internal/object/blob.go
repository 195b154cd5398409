package object

// Blob holds the content of a tracked file.
type Blob struct {
	ID      ID     `json:"id"`
	Content []byte `json:"content"`
}

// NewBlob copies content and identifies it by its hash.
func NewBlob(content []byte) *Blob {
	data := make([]byte, len(content))
	copy(data, content)
	return &Blob{
		ID:      Hash(data),
		Content: data,
	}
}

// Size returns the content length in bytes.
func (b *Blob) Size() int {
	return len(b.Content)
}
