package nodes

import "github.com/arabicverse/qasida/internal/jsonutil"

// ExtractJSON is kept as a thin alias so node files read naturally; the
// actual scanner lives in jsonutil so refiners and the harmony compiler
// can share it without importing this package.
func ExtractJSON(text string) (string, error) { return jsonutil.Extract(text) }
