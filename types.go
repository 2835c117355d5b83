package goforma

// FormatOptions configures Format. The zero value applies defaults,
// generators and transforms over every declared field.
type FormatOptions struct {
	SkipDefaults  bool // do not apply field defaults
	Sparse        bool // process only keys present in the data
	SkipGenerate  bool // do not run generators
	Once          bool // let generators flagged Once fire (create semantics)
	SkipTransform bool // do not run transforms
	Strict        bool // drop keys the model does not declare
	Unlock        bool // keep caller values of locked fields
	Unscope       bool // ignore Show scopes
	Scopes        []string
	// Strip lists sentinel values removed from every object level after
	// processing.
	Strip []any
	// MapIDFrom names the external id key renamed to the model's primary key.
	MapIDFrom string
}

// ValidateOptions configures Validate.
type ValidateOptions struct {
	KeyCheckOnly bool // only verify every data key is declared
	Sparse       bool // only validate keys present in the data
	Strict       bool // report undeclared keys as invalidKey
	Unscope      bool // ignore Write scopes
	Scopes       []string
}

// CheckOptions configures CheckValue.
type CheckOptions struct {
	Unscope bool
	Scopes  []string
}
