// Package metrics exports goforma call counts to Prometheus.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	goforma "github.com/reoring/goforma"
	"github.com/reoring/goforma/rules"
)

const namespace = "goforma"

// Result label values.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// CodeCustom labels failures reported under a configured message text.
const CodeCustom = "custom"

// Observer counts Format and Validate calls. Plug it into an engine with
// goforma.WithObserver.
type Observer struct {
	formats  *prometheus.CounterVec
	validate *prometheus.CounterVec
	codes    *prometheus.CounterVec
	rules    *rules.Registry
}

// Option configures an Observer.
type Option func(*Observer)

// WithRules names the rule registry whose rule names are used as code labels.
// It defaults to rules.Default().
func WithRules(r *rules.Registry) Option {
	return func(o *Observer) {
		if r != nil {
			o.rules = r
		}
	}
}

var _ goforma.Observer = (*Observer)(nil)

// New registers the collectors with reg and returns the observer. A nil reg
// leaves the collectors unregistered.
func New(reg prometheus.Registerer, opts ...Option) (*Observer, error) {
	o := &Observer{
		formats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "format_total",
			Help:      "Format calls by result.",
		}, []string{"result"}),
		validate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validate_total",
			Help:      "Validate calls by result.",
		}, []string{"result"}),
		codes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_errors_total",
			Help:      "Validation error codes reported, by code.",
		}, []string{"code"}),
	}
	o.rules = rules.Default()
	for _, opt := range opts {
		opt(o)
	}
	if reg == nil {
		return o, nil
	}
	for _, c := range []**prometheus.CounterVec{&o.formats, &o.validate, &o.codes} {
		if err := reg.Register(*c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
			existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return nil, err
			}
			*c = existing
		}
	}
	return o, nil
}

// FormatDone implements goforma.Observer.
func (o *Observer) FormatDone(err error) {
	if err != nil {
		o.formats.WithLabelValues(ResultError).Inc()
		return
	}
	o.formats.WithLabelValues(ResultOK).Inc()
}

// ValidateDone implements goforma.Observer. Error codes are counted by issue
// code, so wrongType:string and wrongType:integer share a series. Codes that
// are neither engine codes nor registered rule names are configured messages
// and count as CodeCustom.
func (o *Observer) ValidateDone(res goforma.Result, err error) {
	switch {
	case err != nil:
		o.validate.WithLabelValues(ResultError).Inc()
		return
	case res.Valid:
		o.validate.WithLabelValues(ResultOK).Inc()
		return
	}
	o.validate.WithLabelValues(ResultInvalid).Inc()
	for _, is := range res.Issues() {
		o.codes.WithLabelValues(o.codeLabel(is.Code)).Inc()
	}
}

func (o *Observer) codeLabel(code string) string {
	switch code {
	case goforma.CodeRequired, goforma.CodeAllowNull, goforma.CodeWrongType, goforma.CodeUnknownRule,
		goforma.CodeWritePermissions, goforma.CodeInvalidObject, goforma.CodeInvalidKey:
		return code
	}
	if o.rules.Lookup(code).IsPresent() {
		return code
	}
	return CodeCustom
}
