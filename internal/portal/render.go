package portal

import (
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/muurk/apportal/internal/param"
)

// DefaultTitle is the page title when none is configured.
const DefaultTitle = "Config ESP"

// PageOptions controls page rendering.
type PageOptions struct {
	Title         string
	UpdatePath    string
	ConfigVersion string
	Format        FormatProvider
}

func (o PageOptions) format() FormatProvider {
	if o.Format == nil {
		return DefaultFormat{}
	}
	return o.Format
}

func (o PageOptions) title() string {
	if o.Title == "" {
		return DefaultTitle
	}
	return o.Title
}

func writeHead(b *strings.Builder, f FormatProvider, title string) {
	b.WriteString(strings.ReplaceAll(f.Head(), "{v}", html.EscapeString(title)))
	b.WriteString(f.Script())
	b.WriteString(f.Style())
	b.WriteString(f.HeadExtension())
	b.WriteString(f.HeadEnd())
}

// RenderPage renders the configuration form. Submitted values in args win
// over stored values; password values are never written to the page.
func RenderPage(reg *param.Registry, args url.Values, opts PageOptions) string {
	f := opts.format()
	var b strings.Builder

	writeHead(&b, f, opts.title())
	b.WriteString(f.FormStart())

	for _, p := range reg.All() {
		switch {
		case p.IsSeparator():
			b.WriteString("</fieldset><fieldset>")
			if p.Label != "" {
				b.WriteString("<legend>" + html.EscapeString(p.Label) + "</legend>")
			}
		case !p.Visible:
		case p.Label == "":
			b.WriteString(p.CustomHTML)
		default:
			b.WriteString(renderField(f, p, args))
		}
	}

	b.WriteString(f.FormEnd())

	if opts.UpdatePath != "" {
		b.WriteString(strings.ReplaceAll(f.Update(), "{u}", html.EscapeString(opts.UpdatePath)))
	}
	b.WriteString(strings.ReplaceAll(f.ConfigVersion(), "{v}", html.EscapeString(opts.ConfigVersion)))
	b.WriteString(f.End())

	return b.String()
}

func renderField(f FormatProvider, p *param.Parameter, args url.Values) string {
	var value string
	switch {
	case p.IsPassword():
	case args.Has(p.ID):
		value = args.Get(p.ID)
	default:
		value = p.Value()
	}

	class := ""
	if p.ErrorMessage != "" {
		class = ErrorClass
	}

	r := strings.NewReplacer(
		"{b}", html.EscapeString(p.Label),
		"{t}", p.Kind.String(),
		"{i}", html.EscapeString(p.ID),
		"{p}", html.EscapeString(p.Placeholder),
		"{l}", strconv.Itoa(p.Capacity()),
		"{v}", html.EscapeString(value),
		"{c}", p.CustomHTML,
		"{e}", html.EscapeString(p.ErrorMessage),
		"{s}", class,
	)
	return r.Replace(f.FormParam(p.Kind))
}

// RenderMessage renders a page with a plain body, such as the saved page.
// body is written verbatim.
func RenderMessage(body string, opts PageOptions) string {
	f := opts.format()
	var b strings.Builder
	writeHead(&b, f, opts.title())
	b.WriteString(body)
	b.WriteString(f.End())
	return b.String()
}
