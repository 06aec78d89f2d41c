package portal

import "github.com/muurk/apportal/internal/param"

// FormatProvider supplies the markup segments of the portal pages.
// Segments may contain placeholders that are replaced at render time:
//
//	Head:          {v} page title
//	FormParam:     {b} label, {t} input type, {i} id, {p} placeholder,
//	               {l} capacity, {v} value, {c} custom markup,
//	               {e} error message, {s} error class
//	Update:        {u} firmware update path
//	ConfigVersion: {v} config version
//
// Embed DefaultFormat to override individual segments.
type FormatProvider interface {
	Head() string
	Style() string
	Script() string
	HeadExtension() string
	HeadEnd() string
	FormStart() string
	FormParam(kind param.Kind) string
	FormEnd() string
	Update() string
	ConfigVersion() string
	End() string
}

// SaveField is the hidden form field marking a submission.
const SaveField = "portalSave"

// ErrorClass is the CSS class of a field with a validation error.
const ErrorClass = "de"

// DefaultFormat is the built-in portal markup.
type DefaultFormat struct{}

func (DefaultFormat) Head() string {
	return `<!DOCTYPE html><html lang="en"><head><meta name="viewport" content="width=device-width, initial-scale=1, user-scalable=no"/><title>{v}</title>`
}

func (DefaultFormat) Style() string {
	return "<style>" +
		".de{background-color:#ffaaaa;} .em{font-size:0.8em;color:#bb0000;padding-bottom:0px;} " +
		"div,input{padding:5px;font-size:1em;} input{width:95%;} body{text-align:center;font-family:verdana;} " +
		"button{border:0;border-radius:0.3rem;background-color:#16A1E7;color:#fff;line-height:2.4rem;font-size:1.2rem;width:100%;} " +
		"fieldset{border-radius:0.3rem;margin:0px;}" +
		"</style>"
}

func (DefaultFormat) Script() string { return "" }

func (DefaultFormat) HeadExtension() string { return "" }

func (DefaultFormat) HeadEnd() string {
	return "</head><body><div style='text-align:left;display:inline-block;min-width:260px;'>"
}

func (DefaultFormat) FormStart() string {
	return "<form action='' method='post'><fieldset><input type='hidden' name='" + SaveField + "' value='true'>"
}

func (DefaultFormat) FormParam(param.Kind) string {
	return "<div class='{s}'><label for='{i}'>{b}</label>" +
		"<input type='{t}' id='{i}' name='{i}' maxlength='{l}' placeholder='{p}' value='{v}' {c}/>" +
		"<div class='em'>{e}</div></div>"
}

func (DefaultFormat) FormEnd() string {
	return "</fieldset><button type='submit'>Apply</button></form>"
}

func (DefaultFormat) Update() string {
	return "<div style='padding-top:25px;'><a href='{u}'>Firmware update</a></div>"
}

func (DefaultFormat) ConfigVersion() string {
	return "<div style='font-size:.6em;'>Firmware config version '{v}'</div>"
}

func (DefaultFormat) End() string { return "</div></body></html>" }
