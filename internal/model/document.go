package model

// Page is one page of extracted document text, 1-indexed.
type Page struct {
	PageNum int    `json:"page_num"`
	Text    string `json:"text"`
}

// Document is the loader output: a stable content-derived ID plus
// page-wise text in reading order.
type Document struct {
	DocID      string `json:"doc_id"`
	SourcePath string `json:"source_path,omitempty"`
	Pages      []Page `json:"pages"`
}
