package parser

// ParseMetadata carries the counters reported alongside the assembled
// Markdown. caption_count is reserved for a captioning stage that is
// accepted in options but never active.
type ParseMetadata struct {
	PageCount    int   `json:"page_count"`
	ImageCount   int   `json:"image_count"`
	TableCount   int   `json:"table_count"`
	OCRCount     int   `json:"ocr_count"`
	CaptionCount int   `json:"caption_count"`
	ParseTimeMS  int64 `json:"parse_time_ms"`
}

// ParseResult is the outcome of one document parse.
type ParseResult struct {
	Content  string        `json:"content"`
	Metadata ParseMetadata `json:"metadata"`
}

// Options are the per-request knobs. EnableCaption is honored as a no-op.
type Options struct {
	EnableOCR     bool   `json:"enable_ocr"`
	EnableCaption bool   `json:"enable_caption"`
	MaxImageSize  int    `json:"max_image_size"`
	Language      string `json:"language"`
}

// DefaultOptions returns the options applied when a request omits them.
func DefaultOptions() Options {
	return Options{
		EnableOCR:    true,
		MaxImageSize: 4096,
		Language:     "ch",
	}
}
