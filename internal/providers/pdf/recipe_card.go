package pdf

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/gosimple/slug"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateRecipeCard(ctx context.Context, card RecipeCard) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(16,
		text.NewCol(12, card.Title, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	subtitle := card.Cuisine
	if card.CreatedAt != "" {
		subtitle = strings.TrimSpace(subtitle + " - " + card.CreatedAt)
	}
	m.AddRow(8,
		text.NewCol(12, subtitle, props.Text{Size: 10, Style: fontstyle.Italic}),
	)

	for i := 0; i < len(card.Details); i += 2 {
		left := col.New(6).Add(detailText(card.Details[i]))
		right := col.New(6)
		if i+1 < len(card.Details) {
			right = col.New(6).Add(detailText(card.Details[i+1]))
		}
		m.AddRow(6, left, right)
	}

	m.AddRow(6)

	for _, line := range bodyLines(card.Body) {
		m.AddAutoRow(text.NewCol(12, line.text, line.props))
	}

	if card.FooterNote != "" {
		m.AddRow(10)
		m.AddRow(6, text.NewCol(12, card.FooterNote, props.Text{Size: 8, Align: align.Center}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

func detailText(d Detail) core.Component {
	return text.New(d.Label+": "+d.Value, props.Text{Size: 9})
}

type styledLine struct {
	text  string
	props props.Text
}

// bodyLines maps markdown headings to bold text and drops emphasis markers.
func bodyLines(body string) []styledLine {
	var out []styledLine
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "#"):
			out = append(out, styledLine{
				text:  strings.TrimSpace(strings.TrimLeft(line, "#")),
				props: props.Text{Size: 12, Style: fontstyle.Bold, Top: 3},
			})
		default:
			out = append(out, styledLine{
				text:  strings.NewReplacer("**", "", "__", "").Replace(line),
				props: props.Text{Size: 10, Top: 1},
			})
		}
	}
	return out
}

// Filename returns an attachment name derived from title.
func Filename(title string) string {
	name := slug.Make(title)
	if name == "" {
		name = "recipe"
	}
	return name + ".pdf"
}
