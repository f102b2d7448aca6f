package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/p-n-ai/pai-analysis/internal/analysis"
	"github.com/p-n-ai/pai-analysis/internal/render"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// Word opens HTML in print layout at 100% when this block is present.
const officeHead = `<!--[if gte mso 9]><xml><w:WordDocument><w:View>Print</w:View><w:Zoom>100</w:Zoom><w:DoNotOptimizeForBrowser/></w:WordDocument></xml><![endif]-->`

var templates = template.Must(template.New("export").Funcs(template.FuncMap{
	"spanStyle": spanStyle,
}).ParseFS(templateFS, "templates/*.html.tmpl"))

type headings struct {
	Sentences       string
	Structure       string
	Vocabulary      string
	EmptyStructure  string
	EmptyVocabulary string
}

type page struct {
	Title      string
	OfficeHead template.HTML
	Headings   headings
	View       render.View
}

// spanStyle is the inline CSS for a highlighted span. Word ignores classes on
// inline elements, so both formats use inline styles.
func spanStyle(color string) template.CSS {
	c := analysis.Color(color)
	if !c.Emphasized() {
		return ""
	}
	return template.CSS("color: " + c.Hex() + "; font-weight: bold;")
}

func newPage(view render.View, title string) page {
	return page{
		Title: title,
		Headings: headings{
			Sentences:       headingSentences,
			Structure:       headingStructure,
			Vocabulary:      headingVocabulary,
			EmptyStructure:  emptyStructure,
			EmptyVocabulary: emptyVocabulary,
		},
		View: view,
	}
}

// wordHTML renders Word-compatible HTML (served as application/msword).
func wordHTML(view render.View, title string) ([]byte, error) {
	p := newPage(view, title)
	p.OfficeHead = officeHead
	return execute("word.html.tmpl", p)
}

// printHTML renders a standalone page laid out for browser printing.
func printHTML(view render.View, title string) ([]byte, error) {
	return execute("print.html.tmpl", newPage(view, title))
}

func execute(name string, p page) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, p); err != nil {
		return nil, fmt.Errorf("executing %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
