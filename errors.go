package goforma

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes reported by validation. Rule failures without a configured
// message use the rule name verbatim.
const (
	CodeRequired         = "required"
	CodeAllowNull        = "allowNull"
	CodeWrongType        = "wrongType"   // reported as wrongType:<type>
	CodeUnknownRule      = "unknownRule" // reported as unknownRule:<name>
	CodeWritePermissions = "writePermissions"
	CodeInvalidObject    = "invalidObject"
	CodeInvalidKey       = "invalidKey"
)

// WrongType renders the wrongType code for a type name.
func WrongType(typ string) string { return CodeWrongType + ":" + typ }

// UnknownRule renders the unknownRule code for a rule name.
func UnknownRule(name string) string { return CodeUnknownRule + ":" + name }

// Configuration errors. They indicate a malformed model, not bad data, and
// abort Format/Validate.
var (
	ErrOpNotCallable   = errors.New("goforma: generator op has no function")
	ErrOnceUnset       = errors.New("goforma: once generator run without a once flag")
	ErrUnresolvedModel = errors.New("goforma: unresolved model reference")
	ErrMaxDepth        = errors.New("goforma: maximum model depth exceeded")
	ErrTransform       = errors.New("goforma: transform failed")
	ErrGenerate        = errors.New("goforma: generator failed")
)

// Issue represents a single validation entry.
type Issue struct {
	Path    string `json:"path"` // JSON Pointer (for example: /items/2/price).
	Code    string `json:"code"`
	Message string `json:"message"`

	// Params carries structured parameters (e.g., {"type":"string"}) for i18n
	// and observability.
	Params map[string]any `json:"params,omitempty"`
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. required at /name
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}
