package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"filewatch/internal/organize"
	"filewatch/pkg/types"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	barPadding  = 12
	maxBarWidth = 60
)

var (
	ruleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7B61FF"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5A9"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	summaryStyle = lipgloss.NewStyle().
			Faint(true)
)

type fileMsg struct{ result types.FileResult }

type finishMsg struct{ summary organize.ActionSummary }

// model is the bubbletea model for one action
type model struct {
	header  string
	total   int
	done    int
	failed  int
	bar     progress.Model
	summary string
	final   bool
}

func newModel(start organize.ActionStart, total int) model {
	return model{
		header: Header(start),
		total:  total,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case fileMsg:
		m.done++
		if msg.result.Error != nil {
			m.failed++
		}
	case finishMsg:
		m.final = true
		m.summary = summaryText(msg.summary)
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-barPadding, maxBarWidth)
	}
	return m, nil
}

func (m model) percent() float64 {
	if m.total == 0 {
		return 1
	}
	return float64(m.done) / float64(m.total)
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(m.header))
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(m.percent()))
	fmt.Fprintf(&b, " %d/%d", m.done, m.total)
	if m.failed > 0 {
		b.WriteString(failStyle.Render(fmt.Sprintf(" (%d failed)", m.failed)))
	}
	b.WriteString("\n")
	if m.final {
		b.WriteString(summaryStyle.Render(m.summary))
		b.WriteString("\n")
	}
	return b.String()
}

// Bar shows an animated progress bar per action. Failed files are printed
// above the bar as they happen.
type Bar struct {
	out io.Writer

	mu    sync.Mutex
	start organize.ActionStart
	prog  *tea.Program
	done  chan struct{}
}

// NewBar creates a progress bar reporter writing to out
func NewBar(out io.Writer) *Bar {
	return &Bar{out: out}
}

func (b *Bar) RuleStarted(name string, _ *types.Rule) {
	writeLine(b.out, ruleStyle.Render("rule "+name))
}

func (b *Bar) ActionStarted(start organize.ActionStart) {
	b.mu.Lock()
	b.start = start
	b.mu.Unlock()
}

func (b *Bar) FilesMatched(start organize.ActionStart, count int) {
	if count == 0 {
		return
	}
	p := tea.NewProgram(newModel(start, count),
		tea.WithOutput(b.out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Run()
	}()

	b.mu.Lock()
	b.prog, b.done = p, done
	b.mu.Unlock()
}

func (b *Bar) FileProcessed(res types.FileResult) {
	b.mu.Lock()
	p := b.prog
	b.mu.Unlock()
	if p == nil {
		return
	}
	if res.Error != nil {
		p.Println(failStyle.Render("✗ " + res.Error.Error()))
	}
	p.Send(fileMsg{result: res})
}

func (b *Bar) ActionFinished(s organize.ActionSummary) {
	b.mu.Lock()
	p, done, start := b.prog, b.done, b.start
	b.prog, b.done = nil, nil
	b.mu.Unlock()

	if p != nil {
		p.Send(finishMsg{summary: s})
		<-done
		return
	}

	// Nothing matched or the action could not run: no bar was drawn.
	writeLine(b.out, headerStyle.Render(Header(start)))
	style := summaryStyle
	if s.Err != nil {
		style = failStyle
	}
	writeLine(b.out, style.Render(summaryText(s)))
}

func (b *Bar) RuleFinished(organize.RuleSummary) {}

var _ organize.Reporter = (*Bar)(nil)
