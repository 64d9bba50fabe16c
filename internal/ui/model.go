package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jlnkls/xls-anki-converter/internal/converter"
	"github.com/jlnkls/xls-anki-converter/internal/profile"
	"github.com/jlnkls/xls-anki-converter/internal/types"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type state int

const (
	stateProfiles state = iota
	stateProcessing
	stateComplete
	stateError
)

type Model struct {
	state        state
	cfg          *profile.Config
	names        []string
	cursor       int
	dryRun       bool
	direction    types.Direction
	logger       *slog.Logger
	result       *types.ConversionResult
	err          error
	width        int
	height       int
	progress     progress.Model
	diff         viewport.Model
	progressChan chan float64
	resultChan   chan conversionResultMsg
	cancel       context.CancelFunc
}

// runConversion is converter.Run, swapped out in tests
var runConversion = converter.Run

type conversionResultMsg struct {
	result *types.ConversionResult
	err    error
}

type conversionCompleteMsg struct {
	result *types.ConversionResult
	err    error
}

type progressMsg float64

type waitForProgressMsg struct{}

// InitialModel lists the configured profiles. Conversions log through logger.
func InitialModel(cfg *profile.Config, dryRun bool, logger *slog.Logger) Model {
	prog := progress.New(progress.WithGradient("#FF8C42", "#FF9F5A"))

	return Model{
		state:    stateProfiles,
		cfg:      cfg,
		names:    cfg.Names(),
		dryRun:   dryRun,
		logger:   logger,
		progress: prog,
		diff:     viewport.New(80, 10),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Leave room for the summary above the diff
		m.diff.Width = max(msg.Width-8, 20)
		m.diff.Height = max(msg.Height-20, 5)
		m.progress.Width = max(msg.Width-12, 20)

		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateProfiles:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "up", "k":
				if m.cursor > 0 {
					m.cursor--
				}
			case "down", "j":
				if m.cursor < len(m.names)-1 {
					m.cursor++
				}
			case "d":
				m.dryRun = !m.dryRun
			case "i", "enter":
				return m.convert(types.DirectionImport)
			case "e":
				return m.convert(types.DirectionExport)
			}

		case stateProcessing:
			switch msg.String() {
			case "ctrl+c", "q":
				m.stop()
				return m, tea.Quit
			}

		case stateComplete:
			switch msg.String() {
			case "ctrl+c", "q", "enter":
				return m, tea.Quit
			case "esc", "b":
				return m.back(), nil
			}
			if m.result != nil && m.result.DryRun {
				var cmd tea.Cmd
				m.diff, cmd = m.diff.Update(msg)
				return m, cmd
			}

		case stateError:
			switch msg.String() {
			case "esc", "b":
				return m.back(), nil
			default:
				return m, tea.Quit
			}
		}

	case conversionCompleteMsg:
		m.stop()
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.result = msg.result
		if msg.result.DryRun {
			m.diff.SetContent(renderDiff(msg.result.Diff))
			m.diff.GotoTop()
		}
		m.state = stateComplete
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		if m.state == stateProcessing {
			cmd := m.progress.SetPercent(float64(msg))
			return m, tea.Batch(cmd, waitForProgress(m.progressChan, m.resultChan))
		}
		return m, nil

	case waitForProgressMsg:
		return m, waitForProgress(m.progressChan, m.resultChan)
	}

	return m, nil
}

// stop cancels a running conversion
func (m *Model) stop() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m Model) back() Model {
	m.stop()
	m.state = stateProfiles
	m.result = nil
	m.err = nil
	m.progressChan = nil
	m.resultChan = nil
	return m
}

func (m Model) convert(dir types.Direction) (Model, tea.Cmd) {
	if len(m.names) == 0 {
		return m, nil
	}
	p, err := m.cfg.Lookup(m.names[m.cursor])
	if err != nil {
		m.err = err
		m.state = stateError
		return m, nil
	}

	m.state = stateProcessing
	m.direction = dir
	m.progressChan = make(chan float64, 100)
	m.resultChan = make(chan conversionResultMsg, 1)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	opts := converter.Options{
		DryRun:   m.dryRun,
		Progress: m.progressChan,
		Logger:   m.logger,
	}

	cmd := tea.Batch(
		func() tea.Msg {
			// Capture channels for the goroutine
			progressChan := m.progressChan
			resultChan := m.resultChan

			go func() {
				result, err := runConversion(ctx, dir, p, opts)

				resultChan <- conversionResultMsg{result: result, err: err}

				close(progressChan)
				close(resultChan)
			}()

			return waitForProgressMsg{}
		},
		m.progress.SetPercent(0),
	)

	return m, cmd
}

func waitForProgress(progressChan chan float64, resultChan chan conversionResultMsg) tea.Cmd {
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}

		p, ok := <-progressChan
		if !ok {
			// Progress channel closed, check result
			res, ok := <-resultChan
			if ok {
				return conversionCompleteMsg(res)
			}
			return nil
		}

		return progressMsg(p)
	}
}

func (m Model) View() string {
	switch m.state {
	case stateProfiles:
		return m.viewProfiles()
	case stateProcessing:
		return m.viewProcessing()
	case stateComplete:
		return m.viewComplete()
	case stateError:
		return m.viewError()
	}
	return ""
}

func (m Model) viewProfiles() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("📇 Flashcard Sheet Converter"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Select a deck profile"))
	s.WriteString("\n\n")

	for i, name := range m.names {
		cursor := " "
		if m.cursor == i {
			cursor = ">"
		}

		p := m.cfg.Profiles[name]
		line := fmt.Sprintf("%s %-12s", cursor, name)
		if m.cursor == i {
			line = SelectedStyle.Render(line)
		}

		s.WriteString(line + " " + DetailStyle.Render(fmt.Sprintf("%s · %s", p.Schema, m.target(p))))
		s.WriteString("\n")
	}

	s.WriteString("\n")

	dryRunStatus := "[ ]"
	if m.dryRun {
		dryRunStatus = CheckedStyle.Render("[x]")
	}
	s.WriteString(fmt.Sprintf("Dry run: %s\n", dryRunStatus))
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("↑/↓: navigate • i: import into workbook • e: export from workbook • d: toggle dry run • q: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) target(p profile.Profile) string {
	if p.Backend == profile.BackendGSheets {
		return "sheets:" + p.SpreadsheetID
	}
	return truncatePath(p.WorkbookPath(), m.width-40)
}

func (m Model) viewProcessing() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("📇 Processing..."))
	s.WriteString("\n\n")
	if m.direction == types.DirectionExport {
		s.WriteString("Exporting workbook rows to the flashcard file...")
	} else {
		s.WriteString("Importing flashcards into the workbook...")
	}
	s.WriteString("\n\n")
	s.WriteString(m.progress.View())

	return BoxStyle.Render(s.String())
}

func (m Model) viewComplete() string {
	var s strings.Builder

	title := "✓ Import Complete!"
	switch {
	case m.result.DryRun:
		title = "✓ Dry Run: nothing was written"
	case m.result.Direction == types.DirectionExport:
		title = "✓ Export Complete!"
	}
	s.WriteString(TitleStyle.Render(title))
	s.WriteString("\n\n")

	// Leave room for padding and borders
	maxPathLen := max(m.width-20, 30)

	s.WriteString(fmt.Sprintf("Input:  %s\n", truncatePath(m.result.InputFile, maxPathLen)))
	s.WriteString(SuccessStyle.Render(fmt.Sprintf("Output: %s\n", truncatePath(m.result.OutputFile, maxPathLen))))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("Metadata rows: %d\n", m.result.MetaRows))
	s.WriteString(fmt.Sprintf("Records: %d\n", m.result.RowsProcessed))
	switch m.result.Direction {
	case types.DirectionImport:
		s.WriteString(fmt.Sprintf("Old rows replaced: %d\n", m.result.RowsCleared))
	case types.DirectionExport:
		s.WriteString(fmt.Sprintf("IDs generated: %d\n", m.result.IDsGenerated))
	}

	help := "enter: exit • b: back to profiles"
	if m.result.DryRun {
		s.WriteString("\n")
		if m.result.Diff == "" {
			s.WriteString(DetailStyle.Render("No changes"))
		} else {
			s.WriteString(m.diff.View())
		}
		s.WriteString("\n")
		help = "↑/↓: scroll diff • " + help
	}
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render(help))

	return BoxStyle.Render(s.String())
}

func (m Model) viewError() string {
	var s strings.Builder

	s.WriteString(ErrorStyle.Render("✗ Error"))
	s.WriteString("\n\n")
	s.WriteString(m.err.Error())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("b: back to profiles • any other key: exit"))

	return BoxStyle.Render(s.String())
}

// renderDiff colours added and removed lines of a unified diff
func renderDiff(diff string) string {
	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = DetailStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = AddedStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = RemovedStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = HunkStyle.Render(line)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func truncatePath(path string, maxLen int) string {
	maxLen = max(maxLen, 30)
	if len(path) > maxLen {
		return "..." + path[len(path)-maxLen+3:]
	}
	return path
}
