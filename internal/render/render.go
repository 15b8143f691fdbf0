package render

import (
	"cmp"
	"embed"
	"fmt"
	"html/template"
	"io"
	"slices"
	"strings"

	"aha_collector/internal/domain"
	"aha_collector/internal/filter"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// themePhrases are the realization themes counted on the dashboard.
var themePhrases = []string{
	"conversation", "dialogue", "partner", "thinking", "first-try",
	"accuracy", "trust", "time", "speed", "document", "pdf",
}

const maxThemes = 5

// Renderer turns published moments into the static dashboard document.
// Output depends only on the moments passed in.
type Renderer struct {
	tmpl  *template.Template
	title string
}

func New(title string) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}
	return &Renderer{tmpl: tmpl, title: title}, nil
}

type count struct {
	Name  string
	Slug  string
	Count int
}

type card struct {
	Layer       string
	LayerSlug   string
	Lever       string
	LeverSlug   string
	Tool        string
	Source      string
	UseCase     string
	Quote       string
	Title       string
	URL         string
	Realization string
	Provocation string
	Curated     bool
	Date        string
}

type page struct {
	Title  string
	Total  int
	Latest string
	Layers []count
	Levers []count
	Tools  []count
	Themes []count
	Cards  []card
}

func (r *Renderer) Render(w io.Writer, moments []domain.PublishedMoment) error {
	return r.tmpl.ExecuteTemplate(w, "index.html.tmpl", r.build(moments))
}

func (r *Renderer) build(moments []domain.PublishedMoment) page {
	sorted := slices.Clone(moments)
	slices.SortStableFunc(sorted, func(a, b domain.PublishedMoment) int {
		if a.Curated != b.Curated {
			if a.Curated {
				return -1
			}
			return 1
		}
		return b.ClassifiedAt.Compare(a.ClassifiedAt)
	})

	p := page{
		Title: r.title,
		Total: len(sorted),
	}

	layerCounts := make(map[domain.Layer]int)
	leverCounts := make(map[domain.GrowthLever]int)
	toolCounts := make(map[string]int)

	for _, m := range sorted {
		if l, ok := domain.ParseLayer(string(m.Layer)); ok {
			m.Layer = l
		}
		if g, ok := domain.ParseGrowthLever(string(m.GrowthLever)); ok {
			m.GrowthLever = g
		}

		layerCounts[m.Layer]++
		leverCounts[m.GrowthLever]++
		tool := toolLabel(m)
		toolCounts[tool]++

		if !m.ClassifiedAt.IsZero() && (p.Latest == "" || m.ClassifiedAt.UTC().Format("2006-01-02") > p.Latest) {
			p.Latest = m.ClassifiedAt.UTC().Format("2006-01-02")
		}

		p.Cards = append(p.Cards, toCard(m, tool))
	}

	for _, l := range domain.Layers {
		p.Layers = append(p.Layers, count{Name: string(l), Slug: slug(string(l)), Count: layerCounts[l]})
	}
	for _, g := range domain.GrowthLevers {
		p.Levers = append(p.Levers, count{Name: string(g), Slug: slug(string(g)), Count: leverCounts[g]})
	}
	for name, n := range toolCounts {
		p.Tools = append(p.Tools, count{Name: name, Slug: slug(name), Count: n})
	}
	slices.SortFunc(p.Tools, func(a, b count) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Name, b.Name))
	})
	p.Themes = themes(sorted)

	return p
}

func toCard(m domain.PublishedMoment, tool string) card {
	c := card{
		Layer:       string(m.Layer),
		LayerSlug:   slug(string(m.Layer)),
		Lever:       string(m.GrowthLever),
		LeverSlug:   slug(string(m.GrowthLever)),
		Tool:        tool,
		Source:      m.Platform.Label(),
		UseCase:     m.UseCase,
		Quote:       m.Quote,
		Title:       m.Title,
		URL:         m.URL,
		Realization: m.Realization,
		Provocation: m.Provocation,
		Curated:     m.Curated,
	}
	if c.Source == "" {
		c.Source = "Curated"
	}
	if c.Quote == "" {
		c.Quote = m.Title
	}
	if !m.ClassifiedAt.IsZero() {
		c.Date = m.ClassifiedAt.UTC().Format("Jan 2, 2006")
	}
	return c
}

func toolLabel(m domain.PublishedMoment) string {
	if m.AITool != "" {
		return m.AITool
	}
	return filter.GeneralTool
}

func themes(moments []domain.PublishedMoment) []count {
	var out []count
	for _, phrase := range themePhrases {
		n := 0
		for _, m := range moments {
			if strings.Contains(strings.ToLower(m.Realization), phrase) {
				n++
			}
		}
		if n > 0 {
			out = append(out, count{Name: phrase, Slug: slug(phrase), Count: n})
		}
	}
	slices.SortStableFunc(out, func(a, b count) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if len(out) > maxThemes {
		out = out[:maxThemes]
	}
	return out
}

func slug(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "-"))
}
