package goforma

import (
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/reoring/goforma/i18n"
)

// Result is the outcome of Validate. Errors holds the per-key tree for object
// data; List holds the flat codes when a scalar was validated. Both are nil
// when Valid is true.
type Result struct {
	Valid  bool
	Errors Errors
	List   []string
}

// Errors maps a field key (or an array index rendered in decimal) to the
// errors found under it.
type Errors map[string]*FieldErrors

// FieldErrors holds either the codes reported for a value or the nested
// errors of an object or array value.
type FieldErrors struct {
	Codes  []string
	Fields Errors
}

// MarshalJSON renders a node as its code list or as its nested mapping.
func (fe *FieldErrors) MarshalJSON() ([]byte, error) {
	if fe == nil {
		return []byte("null"), nil
	}
	if len(fe.Fields) > 0 {
		return json.Marshal(map[string]*FieldErrors(fe.Fields))
	}
	return json.Marshal(fe.Codes)
}

// MarshalJSON renders {"valid":...,"errors":...}; errors is null when valid.
func (r Result) MarshalJSON() ([]byte, error) {
	var errs any
	switch {
	case len(r.Errors) > 0:
		errs = map[string]*FieldErrors(r.Errors)
	case len(r.List) > 0:
		errs = r.List
	}
	return json.Marshal(struct {
		Valid  bool `json:"valid"`
		Errors any  `json:"errors"`
	}{r.Valid, errs})
}

// Issues flattens the result into Issues ordered by path, with localized
// messages.
func (r Result) Issues() Issues {
	var out Issues
	root := Root()
	for _, code := range r.List {
		out = append(out, newIssue(root, code))
	}
	collectIssues(root, r.Errors, &out)
	return out
}

// Err returns the flattened issues as an error, or nil when valid.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	iss := r.Issues()
	if len(iss) == 0 {
		return nil
	}
	return iss
}

func collectIssues(at PathRef, errs Errors, out *Issues) {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fe := errs[k]
		if fe == nil {
			continue
		}
		p := at.Field(k)
		for _, code := range fe.Codes {
			*out = append(*out, newIssue(p, code))
		}
		collectIssues(p, fe.Fields, out)
	}
}

func newIssue(at PathRef, code string) Issue {
	msg := i18n.T(code, nil)
	name, param, _ := strings.Cut(code, ":")
	switch name {
	case CodeWrongType:
		return at.Issue(name, msg, "type", param)
	case CodeUnknownRule:
		return at.Issue(name, msg, "rule", param)
	}
	return at.Issue(code, msg)
}
