// Package report prints each project's next actions to a terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/harrisonrobin/nextact/pkg/model"
	"github.com/harrisonrobin/nextact/pkg/nextaction"
)

// NoActions is printed under a project without candidates.
const NoActions = "no assigned next actions"

// Result is one project and its selected candidates, in display order.
type Result struct {
	Project    model.Project          `json:"project"`
	Candidates []nextaction.Candidate `json:"candidates"`
}

type Reporter struct {
	out      io.Writer
	prefix   string
	tag      string
	location *time.Location
	styles   styles
}

// Options configures a Reporter. ForceColor styles output even when out is
// not a terminal; Plain wins over it.
type Options struct {
	Prefix     string
	Tag        string
	Plain      bool
	ForceColor bool
	Location   *time.Location
}

func New(out io.Writer, opts Options) *Reporter {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	tag := opts.Tag
	if tag == "" {
		tag = nextaction.DefaultTag
	}
	renderer := lipgloss.NewRenderer(out)
	if opts.ForceColor && !opts.Plain {
		renderer.SetColorProfile(termenv.ANSI256)
	}
	return &Reporter{
		out:      out,
		prefix:   opts.Prefix,
		tag:      tag,
		location: loc,
		styles:   newStyles(renderer, opts.Plain),
	}
}

// Print writes every project, including those without candidates, keeping
// the candidate order it was given.
func (r *Reporter) Print(results []Result) error {
	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(r.styles.header.Render(res.Project.DisplayName(r.prefix)))
		b.WriteString("\n")
		if len(res.Candidates) == 0 {
			b.WriteString("  " + r.styles.empty.Render(NoActions) + "\n")
			continue
		}
		for _, c := range res.Candidates {
			b.WriteString(r.line(c))
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(r.out, b.String())
	return err
}

func (r *Reporter) line(c nextaction.Candidate) string {
	parts := []string{"  " + r.styles.bullet.Render("•"), r.styles.name.Render(c.Series.Name)}
	if c.Tagged {
		parts = append(parts, r.styles.tag.Render("["+r.tag+"]"))
	}
	if c.Dated {
		parts = append(parts, r.styles.due.Render(fmt.Sprintf("(due %s)", c.Due.In(r.location).Format("2006-01-02"))))
	}
	return strings.Join(parts, " ")
}
