package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tablepack/pkg/manifest"
	"github.com/matzehuels/tablepack/pkg/repack"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// inspectCommand creates the inspect command: an interactive browser over
// the object graph.
func (c *CLI) inspectCommand() *cobra.Command {
	var sorted bool

	cmd := &cobra.Command{
		Use:   "inspect <manifest.toml|manifest.json>",
		Short: "Browse objects and links interactively",
		Long: `Browse objects and links interactively.

Objects are listed in emission order (root first). The selected object's
outbound links are shown with width, signedness, anchor, and bias; links
whose offsets do not fit are highlighted. The encoded offset values are
not shown.

Keys: up/down or j/k to move, q to quit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(args[0], sorted)
		},
	}

	cmd.Flags().BoolVar(&sorted, "sorted", false, "inspect the repacked order instead of the manifest order")

	return cmd
}

func (c *CLI) runInspect(input string, sorted bool) error {
	doc, err := manifest.Load(input)
	if err != nil {
		return fmt.Errorf("load manifest %s: %w", input, err)
	}

	g, err := doc.Graph()
	if err != nil {
		return err
	}
	if sorted {
		if err := applyRepackOrder(g); err != nil {
			return err
		}
	}

	model, err := newGraphModel(doc.Name, g)
	if err != nil {
		return err
	}

	p := tea.NewProgram(model)
	_, err = p.Run()
	return err
}

// linkRow is one precomputed display line for an outbound link.
type linkRow struct {
	text     string
	overflow bool
}

// objectRow is one precomputed display entry for an object, in emission
// order.
type objectRow struct {
	index int // graph index
	name  string
	size  int
	links []linkRow
}

// graphModel is the bubbletea model for graph inspection.
type graphModel struct {
	title  string
	rows   []objectRow
	cursor int
	height int
	offset int
}

// newGraphModel precomputes display rows: object sizes, per-link
// attributes, and overflow flags under the graph's current order.
func newGraphModel(title string, g *repack.Graph) (graphModel, error) {
	overflows, err := g.Overflows()
	if err != nil {
		return graphModel{}, err
	}
	failing := map[[2]int]bool{}
	for _, o := range overflows {
		failing[[2]int{o.Parent, o.Link.Child}] = true
	}

	rows := make([]objectRow, 0, g.Len())
	for i := g.Len() - 1; i >= 0; i-- {
		obj := g.Object(i)
		row := objectRow{index: i, name: obj.Name, size: len(obj.Payload)}
		if row.name == "" {
			row.name = fmt.Sprintf("obj%d", i)
		}
		for _, l := range obj.Links {
			child := g.Object(l.Child)
			childName := child.Name
			if childName == "" {
				childName = fmt.Sprintf("obj%d", l.Child)
			}
			attrs := []string{l.Width.String()}
			if l.Signed {
				attrs = append(attrs, "signed")
			}
			if l.Anchor != repack.AnchorHead {
				attrs = append(attrs, l.Anchor.String())
			}
			if l.Bias != 0 {
				attrs = append(attrs, fmt.Sprintf("bias=%d", l.Bias))
			}
			row.links = append(row.links, linkRow{
				text:     fmt.Sprintf("%s %s (%s)", iconArrow, childName, strings.Join(attrs, ",")),
				overflow: failing[[2]int{i, l.Child}],
			})
		}
		rows = append(rows, row)
	}

	return graphModel{title: title, rows: rows, height: 15}, nil
}

func (m graphModel) Init() tea.Cmd {
	return nil
}

func (m graphModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 8
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m graphModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("%s · %d objects (root first)", m.title, len(m.rows))))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.rows) {
		end = len(m.rows)
	}
	for i := m.offset; i < end; i++ {
		row := m.rows[i]
		line := fmt.Sprintf("%3d  %-20s %8d bytes  %d link(s)", row.index, row.name, row.size, len(row.links))
		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render("> " + line))
		} else {
			b.WriteString(listNormalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	if len(m.rows) > 0 {
		b.WriteString("\n")
		selected := m.rows[m.cursor]
		if len(selected.links) == 0 {
			b.WriteString(listDimStyle.Render("  no outbound links"))
			b.WriteString("\n")
		}
		for _, l := range selected.links {
			if l.overflow {
				b.WriteString(StyleError.Render("  " + l.text + " [overflow]"))
			} else {
				b.WriteString(listDimStyle.Render("  " + l.text))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("up/down: move · q: quit"))
	return b.String()
}
