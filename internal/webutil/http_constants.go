package webutil

const (
	// Header Keys
	HeaderContentType = "Content-Type"

	// Content Types
	ContentTypeJSONUTF8 = "application/json; charset=utf-8"

	// maxBodyBytes bounds request bodies accepted by DecodeJSON.
	maxBodyBytes = 1 << 20
)
