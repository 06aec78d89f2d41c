package portal

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/muurk/apportal/internal/logging"
	"github.com/muurk/apportal/internal/param"
	"github.com/muurk/apportal/internal/provision"
	"go.uber.org/zap"
)

// Validation messages of the built-in rules.
const (
	MsgThingNameTooShort = "Give a name with at least 3 characters."
	MsgPasswordTooShort  = "Password length must be at least 8 characters."
)

const (
	minThingNameLength = 3
	minPasswordLength  = 8
)

// ValidationError is returned when a submission is rejected. Fields maps
// parameter ids to their error messages; it may be empty when only the
// external validator failed.
type ValidationError struct {
	Fields map[string]string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	ids := make([]string, 0, len(e.Fields))
	for id := range e.Fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s: %s", id, e.Fields[id])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(reg *param.Registry) *ValidationError {
	e := &ValidationError{Fields: make(map[string]string)}
	for p := range reg.Fields() {
		if p.ErrorMessage != "" {
			e.Fields[p.ID] = p.ErrorMessage
		}
	}
	return e
}

// Validate clears previous errors, runs ext when set and then the built-in
// rules. Failing parameters get their ErrorMessage set. It reports whether
// the submission is acceptable.
func Validate(reg *param.Registry, args url.Values, ext provision.FormValidator) bool {
	reg.ClearErrors()

	valid := true
	if ext != nil {
		valid = ext(args)
	}

	if p := reg.Get(provision.ParamThingName); p != nil {
		if utf8.RuneCountInString(args.Get(p.ID)) < minThingNameLength {
			p.ErrorMessage = MsgThingNameTooShort
			valid = false
		}
	}

	for _, id := range []string{provision.ParamAPPassword, provision.ParamWifiPassword} {
		p := reg.Get(id)
		if p == nil {
			continue
		}
		if n := utf8.RuneCountInString(args.Get(id)); n > 0 && n < minPasswordLength {
			p.ErrorMessage = MsgPasswordTooShort
			valid = false
		}
	}

	return valid
}

// Apply copies submitted values into every visible field. A password field
// submitted empty keeps its stored value.
func Apply(reg *param.Registry, args url.Values) {
	for p := range reg.Fields() {
		if !p.Visible {
			continue
		}
		value := args.Get(p.ID)
		if p.IsPassword() && value == "" {
			logging.Debug("Password not changed", zap.String("id", p.ID))
			continue
		}
		if !p.SetValue(value) {
			logging.Warn("Submitted value truncated",
				zap.String("id", p.ID),
				zap.Int("capacity", p.Capacity()),
			)
		}
		logging.LogParameter("Applied form value", p.ID, p.Value(), p.IsPassword(), false)
	}
}
