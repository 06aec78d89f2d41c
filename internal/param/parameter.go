package param

import (
	"bytes"
	"unicode/utf8"
)

// Kind is the HTML input type of a parameter.
type Kind int

const (
	// KindText is a plain text input.
	KindText Kind = iota
	// KindPassword is a secret. Its stored value is never rendered and an
	// empty submission keeps the previous value.
	KindPassword
	// KindNumber is a numeric input.
	KindNumber
	// KindCustom renders only the parameter's custom markup.
	KindCustom
)

// String returns the HTML input type for the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindPassword:
		return "password"
	case KindNumber:
		return "number"
	case KindCustom:
		return "custom"
	default:
		return "text"
	}
}

// ParseKind maps an HTML input type name to a Kind. Unknown names map to
// KindText.
func ParseKind(s string) Kind {
	switch s {
	case "password":
		return KindPassword
	case "number":
		return KindNumber
	case "custom":
		return KindCustom
	default:
		return KindText
	}
}

// Parameter is one configuration field.
type Parameter struct {
	// ID is the form field name and persistence key. Empty for separators.
	ID string
	// Label is shown next to the input. For separators it is the legend.
	Label        string
	Kind         Kind
	Placeholder  string
	DefaultValue string
	// CustomHTML is inserted into the input tag, or replaces the whole
	// input when Label is empty.
	CustomHTML string
	Visible    bool
	// ErrorMessage is set by validation and rendered inline.
	ErrorMessage string

	buf []byte
}

// Option configures a Parameter.
type Option func(*Parameter)

// WithKind sets the input kind.
func WithKind(k Kind) Option {
	return func(p *Parameter) { p.Kind = k }
}

// WithPlaceholder sets the placeholder text.
func WithPlaceholder(s string) Option {
	return func(p *Parameter) { p.Placeholder = s }
}

// WithDefault sets the value used when the stored value is empty.
func WithDefault(s string) Option {
	return func(p *Parameter) { p.DefaultValue = s }
}

// WithCustomHTML sets extra attributes for the input tag.
func WithCustomHTML(s string) Option {
	return func(p *Parameter) { p.CustomHTML = s }
}

// Hidden keeps the parameter out of the portal form. It is still persisted.
func Hidden() Option {
	return func(p *Parameter) { p.Visible = false }
}

// NewParameter creates a visible parameter backed by buf. The capacity is
// len(buf), NUL terminator included.
func NewParameter(label, id string, buf []byte, opts ...Option) *Parameter {
	p := &Parameter{
		ID:      id,
		Label:   label,
		Kind:    KindText,
		Visible: true,
		buf:     buf,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewCustomParameter creates a label-less parameter whose portal markup is
// customHTML verbatim.
func NewCustomParameter(id string, buf []byte, customHTML string, kind Kind) *Parameter {
	return &Parameter{
		ID:         id,
		Kind:       kind,
		CustomHTML: customHTML,
		Visible:    true,
		buf:        buf,
	}
}

// NewSeparator creates a fieldset break. label may be empty.
func NewSeparator(label string) *Parameter {
	return &Parameter{Label: label, Visible: true}
}

// IsSeparator reports whether p only separates field sets.
func (p *Parameter) IsSeparator() bool {
	return p.ID == ""
}

// IsPassword reports whether p holds a secret.
func (p *Parameter) IsPassword() bool {
	return p.Kind == KindPassword
}

// Capacity returns the buffer length including the NUL terminator.
func (p *Parameter) Capacity() int {
	return len(p.buf)
}

// Buffer returns the backing buffer. Writes through it are visible to the
// registry; callers must keep it NUL terminated.
func (p *Parameter) Buffer() []byte {
	return p.buf
}

// Value returns the stored text up to the first NUL.
func (p *Parameter) Value() string {
	if i := bytes.IndexByte(p.buf, 0); i >= 0 {
		return string(p.buf[:i])
	}
	return string(p.buf)
}

// SetValue stores s, truncated to Capacity()-1 bytes on a rune boundary,
// and NUL-pads the remainder of the buffer. It reports whether s fit
// without truncation.
func (p *Parameter) SetValue(s string) bool {
	if len(p.buf) == 0 {
		return s == ""
	}
	limit := len(p.buf) - 1
	fit := true
	if len(s) > limit {
		fit = false
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	n := copy(p.buf, s)
	clear(p.buf[n:])
	return fit
}

// Reset stores the default value, or clears the field when none is set.
func (p *Parameter) Reset() {
	p.SetValue(p.DefaultValue)
}
