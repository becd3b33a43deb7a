package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"todo-tracker/app"
	"todo-tracker/model"
)

type uiMode int

const (
	modeNormal uiMode = iota
	modeCompose
	modeFilterMenu
	modeConfirmDeleteAll
)

type composeField int

const (
	fieldText composeField = iota
	fieldDate
)

const (
	dateColW   = 10
	statusColW = 11
)

// bootstrapMsg reports how many seed tasks were adopted; zero when the
// seed was skipped, failed or discarded.
type bootstrapMsg struct {
	seeded int
}

type Model struct {
	svc         *app.Service
	seed        app.SeedFetcher
	seedTimeout time.Duration
	loading     bool

	mode   uiMode
	cursor int

	field     composeField
	textInput textinput.Model
	dateInput textinput.Model

	showHelp bool

	status    string
	statusErr bool

	width  int
	height int
}

// NewModel builds the UI over an already loaded service. When the list is
// empty and fetcher is non-nil, Init schedules the one-time seed bootstrap.
func NewModel(svc *app.Service, fetcher app.SeedFetcher, seedTimeout time.Duration) *Model {

	text := textinput.New()
	text.Placeholder = "Nova tarefa"
	text.Prompt = ""
	text.CharLimit = 256
	text.Width = 40

	date := textinput.New()
	date.Placeholder = "AAAA-MM-DD"
	date.Prompt = ""
	date.CharLimit = 10
	date.Width = dateColW

	m := &Model{
		svc:         svc,
		seed:        fetcher,
		seedTimeout: seedTimeout,
		mode:        modeNormal,
		textInput:   text,
		dateInput:   date,
		status:      "Pronto",
	}
	m.loading = fetcher != nil && len(svc.Tasks()) == 0
	return m
}

func (m *Model) Init() tea.Cmd {
	if !m.loading {
		return nil
	}
	return m.bootstrapCmd()
}

func (m *Model) bootstrapCmd() tea.Cmd {
	svc, fetcher, timeout := m.svc, m.seed, m.seedTimeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		list, adopted := svc.BootstrapIfEmpty(ctx, fetcher)
		if !adopted {
			return bootstrapMsg{}
		}
		return bootstrapMsg{seeded: len(list)}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeInputs()
	case bootstrapMsg:
		m.loading = false
		if msg.seeded > 0 {
			m.setStatus(fmt.Sprintf("%d tarefas carregadas", msg.seeded), false)
		}
		m.ensureSelection()
	case tea.KeyMsg:
		switch m.mode {
		case modeCompose:
			return m, m.updateComposeMode(msg)
		case modeFilterMenu:
			m.updateFilterMenu(msg)
		case modeConfirmDeleteAll:
			m.updateConfirmMode(msg)
		default:
			if quit := m.updateNormalMode(msg); quit {
				return m, tea.Quit
			}
			if m.mode == modeCompose {
				return m, textinput.Blink
			}
		}
	}
	return m, nil
}

func (m *Model) updateNormalMode(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "ctrl+c", "q":
		return true
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "a", "i":
		m.startCompose()
	case "e":
		m.startEdit()
	case "x":
		m.markSelectedDone()
	case "d":
		m.removeSelected()
	case "D":
		m.startDeleteAllConfirm()
	case "f":
		m.mode = modeFilterMenu
		m.setStatus("Filtro: 1 todas • 2 pendentes • 3 concluídas", false)
	case "?":
		m.showHelp = !m.showHelp
		if m.showHelp {
			m.setStatus("Atalhos abertos (pressione ? ou Esc para fechar)", false)
		} else {
			m.setStatus("Atalhos ocultos", false)
		}
	case "esc":
		if m.showHelp {
			m.showHelp = false
			m.setStatus("Atalhos ocultos", false)
		}
	}

	m.ensureSelection()
	return false
}

func (m *Model) updateComposeMode(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.cancelCompose()
		return nil
	case "enter":
		m.submit()
		return nil
	case "tab", "shift+tab":
		if m.field == fieldText {
			m.focusField(fieldDate)
		} else {
			m.focusField(fieldText)
		}
		return textinput.Blink
	}

	var cmd tea.Cmd
	if m.field == fieldDate {
		m.dateInput, cmd = m.dateInput.Update(msg)
	} else {
		m.textInput, cmd = m.textInput.Update(msg)
	}
	return cmd
}

func (m *Model) updateFilterMenu(msg tea.KeyMsg) {
	var next model.Filter
	switch strings.ToLower(msg.String()) {
	case "1", "t":
		next = model.FilterAll
	case "2", "p":
		next = model.FilterPending
	case "3", "c":
		next = model.FilterDone
	case "esc", "f", "q":
		m.mode = modeNormal
		m.setStatus("Filtro mantido: "+filterLabel(m.svc.Filter()), false)
		return
	default:
		return
	}
	m.mode = modeNormal
	if err := m.svc.SetFilter(next); err != nil {
		m.setStatus("Erro ao alterar filtro: "+err.Error(), true)
		return
	}
	m.cursor = 0
	m.ensureSelection()
	m.setStatus("Filtro: "+filterLabel(next), false)
}

func (m *Model) updateConfirmMode(msg tea.KeyMsg) {
	switch strings.ToLower(msg.String()) {
	case "y":
		m.mode = modeNormal
		if err := m.svc.RemoveAll(); err != nil {
			m.reportErr("Erro ao deletar tarefas", err)
			return
		}
		m.cursor = 0
		m.setStatus("Todas as tarefas foram deletadas", false)
	case "n", "esc", "enter":
		m.mode = modeNormal
		m.setStatus("Ação cancelada", false)
	}
}

func (m *Model) startCompose() {
	m.mode = modeCompose
	m.focusField(fieldText)
	if _, editing := m.svc.Editing(); editing {
		m.setStatus("Editando tarefa • Enter salva • Esc cancela", false)
		return
	}
	m.setStatus("Nova tarefa • Tab alterna data • Enter adiciona • Esc cancela", false)
}

func (m *Model) startEdit() {
	task, ok := m.selectedTask()
	if !ok {
		m.setStatus("Nenhuma tarefa selecionada", true)
		return
	}
	snap, err := m.svc.BeginEdit(task.ID)
	if err != nil {
		m.setStatus("A tarefa não existe mais", true)
		return
	}
	m.textInput.SetValue(snap.Text)
	m.textInput.CursorEnd()
	m.dateInput.SetValue(snap.Date.String())
	m.dateInput.CursorEnd()
	m.startCompose()
}

func (m *Model) cancelCompose() {
	m.svc.CancelEdit()
	m.resetInputs()
	m.mode = modeNormal
	m.setStatus("Cancelado", false)
}

func (m *Model) submit() {
	text := strings.TrimSpace(m.textInput.Value())
	if text == "" {
		m.setStatus("Digite o texto da tarefa", true)
		return
	}
	date, err := model.ParseDate(m.dateInput.Value())
	if err != nil {
		m.focusField(fieldDate)
		m.setStatus("Data inválida: use AAAA-MM-DD", true)
		return
	}

	if id, editing := m.svc.Editing(); editing {
		_, err := m.svc.CommitEdit(id, text, date)
		switch {
		case errors.Is(err, app.ErrInvalidTask):
			m.setStatus("Digite o texto da tarefa", true)
			return
		case errors.Is(err, app.ErrTaskNotFound):
			m.finishCompose()
			m.setStatus("A tarefa editada não existe mais", false)
			return
		}
		m.finishCompose()
		if err != nil {
			m.reportErr("Erro ao editar tarefa", err)
			return
		}
		m.setStatus("Tarefa atualizada", false)
		return
	}

	task, err := m.svc.Add(text, date)
	if errors.Is(err, app.ErrInvalidTask) {
		m.setStatus("Digite o texto da tarefa", true)
		return
	}
	m.finishCompose()
	m.cursor = m.indexOfTask(task.ID)
	if err != nil {
		m.reportErr("Erro ao criar tarefa", err)
		return
	}
	m.setStatus("Tarefa criada", false)
}

func (m *Model) finishCompose() {
	m.resetInputs()
	m.mode = modeNormal
	m.ensureSelection()
}

func (m *Model) markSelectedDone() {
	task, ok := m.selectedTask()
	if !ok {
		m.setStatus("Nenhuma tarefa selecionada", true)
		return
	}
	if task.Done() {
		m.setStatus("Tarefa já concluída", false)
		return
	}
	if err := m.svc.MarkDone(task.ID); err != nil {
		m.reportErr("Erro ao concluir tarefa", err)
		return
	}
	m.setStatus("Tarefa concluída", false)
}

func (m *Model) removeSelected() {
	task, ok := m.selectedTask()
	if !ok {
		m.setStatus("Nenhuma tarefa selecionada", true)
		return
	}
	if err := m.svc.Remove(task.ID); err != nil {
		m.reportErr("Erro ao excluir tarefa", err)
		return
	}
	m.setStatus("Tarefa excluída", false)
}

func (m *Model) startDeleteAllConfirm() {
	if len(m.svc.Tasks()) == 0 {
		m.setStatus("Não há tarefas para deletar", false)
		return
	}
	m.mode = modeConfirmDeleteAll
}

func (m *Model) reportErr(prefix string, err error) {
	if errors.Is(err, app.ErrPersist) {
		m.setStatus("Alteração aplicada, mas falhou ao salvar em disco: "+err.Error(), true)
		return
	}
	m.setStatus(prefix+": "+err.Error(), true)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *Model) focusField(f composeField) {
	m.field = f
	if f == fieldDate {
		m.textInput.Blur()
		m.dateInput.Focus()
		return
	}
	m.dateInput.Blur()
	m.textInput.Focus()
}

func (m *Model) resetInputs() {
	m.textInput.Reset()
	m.dateInput.Reset()
	m.textInput.Blur()
	m.dateInput.Blur()
	m.field = fieldText
}

func (m *Model) resizeInputs() {
	w := m.viewportWidth() - dateColW - 30
	if w < 12 {
		w = 12
	}
	m.textInput.Width = w
}

func (m *Model) moveCursor(delta int) {
	tasks := m.svc.Visible()
	if len(tasks) == 0 {
		return
	}
	m.cursor = clamp(m.cursor+delta, 0, len(tasks)-1)
}

func (m *Model) ensureSelection() {
	tasks := m.svc.Visible()
	if len(tasks) == 0 {
		m.cursor = 0
		return
	}
	m.cursor = clamp(m.cursor, 0, len(tasks)-1)
}

func (m *Model) selectedTask() (model.Task, bool) {
	tasks := m.svc.Visible()
	if len(tasks) == 0 {
		return model.Task{}, false
	}
	if m.cursor < 0 || m.cursor >= len(tasks) {
		m.cursor = 0
	}
	return tasks[m.cursor], true
}

func (m *Model) indexOfTask(taskID int64) int {
	tasks := m.svc.Visible()
	for i, t := range tasks {
		if t.ID == taskID {
			return i
		}
	}
	if len(tasks) == 0 {
		return 0
	}
	return len(tasks) - 1
}

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "carregando..."
	}

	viewW := m.viewportWidth()
	visible := m.svc.Visible()
	total := len(m.svc.Tasks())

	title := lipgloss.NewStyle().Bold(true).Render("tarefas")
	summary := fmt.Sprintf("filtro: %s • %d de %d", filterLabel(m.svc.Filter()), len(visible), total)
	if m.loading {
		summary += " • carregando dados iniciais…"
	}
	if _, editing := m.svc.Editing(); editing {
		summary += " • editando"
	}
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		title,
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("  "+summary),
	)

	frameW := viewW - 2
	if frameW < 20 {
		frameW = viewW
	}
	tableH := m.height - 8
	if tableH < 4 {
		tableH = 4
	}

	frameColor := lipgloss.Color("240")
	if m.mode == modeNormal {
		frameColor = lipgloss.Color("39")
	}
	body := m.renderTable(visible, frameW-2, tableH)
	if m.showHelp {
		body = lipgloss.Place(frameW-2, tableH, lipgloss.Center, lipgloss.Center, m.renderHelpOverlay(frameW-4))
	}
	table := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(frameColor).
		Width(frameW).
		Height(tableH).
		Render(body)

	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	if m.statusErr {
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	}
	rightHint := "? atalhos"
	if m.showHelp {
		rightHint = "Esc/? fechar atalhos"
	}

	parts := []string{header, table, m.renderCompose(viewW), m.renderFooter(m.status, statusStyle, rightHint)}

	promptLine := ""
	switch m.mode {
	case modeFilterMenu:
		promptLine = m.renderFilterMenu()
	case modeConfirmDeleteAll:
		promptLine = fmt.Sprintf("Excluir todas as %d tarefas? [y/N]", total)
	}
	if promptLine != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Width(viewW).Render(promptLine))
	}
	return strings.Join(parts, "\n")
}

func (m *Model) viewportWidth() int {
	if m.width <= 0 {
		return 1
	}
	// Reservamos 1 coluna para evitar clipping/wrap no último caractere
	// em alguns terminais.
	if m.width > 1 {
		return m.width - 1
	}
	return m.width
}

func (m *Model) renderTable(tasks []model.Task, width, height int) string {
	textW := width - 2 - dateColW - statusColW - 2
	if textW < 8 {
		textW = 8
	}

	head := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111"))
	lines := make([]string, 0, len(tasks)+2)
	lines = append(lines, head.Render(
		"  "+pad("Tarefa", textW)+" "+pad("Data", dateColW)+" "+pad("Status", statusColW),
	))

	if len(tasks) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render("  Nenhuma tarefa"))
	}

	for i, t := range tasks {
		cursor := "  "
		textStyle := lipgloss.NewStyle()
		if t.Done() {
			textStyle = textStyle.Faint(true)
		}
		if i == m.cursor {
			cursor = "▸ "
			textStyle = textStyle.Bold(true)
			if m.mode == modeNormal {
				textStyle = textStyle.Foreground(lipgloss.Color("229"))
			}
		}

		text := truncate.StringWithTail(t.Text, uint(textW), "…")
		line := lipgloss.JoinHorizontal(lipgloss.Left,
			cursor,
			textStyle.Render(pad(text, textW)),
			" ",
			textStyle.Render(pad(t.Date.Display(), dateColW)),
			" ",
			statusBadge(t.Status),
		)
		lines = append(lines, line)
	}

	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderCompose(width int) string {
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	button := "[ + ]"
	if _, editing := m.svc.Editing(); editing {
		button = "[ Salvar ]"
	}
	buttonStyle := lipgloss.NewStyle().Bold(true)
	if m.mode == modeCompose {
		buttonStyle = buttonStyle.Foreground(lipgloss.Color("39"))
	}

	line := label.Render("Tarefa: ") + m.textInput.View() +
		label.Render("  Data: ") + m.dateInput.View() +
		"  " + buttonStyle.Render(button)
	return lipgloss.NewStyle().Width(width).Render(line)
}

func (m *Model) renderFilterMenu() string {
	current := m.svc.Filter()
	parts := make([]string, 0, len(model.Filters))
	for i, f := range model.Filters {
		item := fmt.Sprintf("%d %s", i+1, filterLabel(f))
		if f == current {
			item = "[" + item + "]"
		}
		parts = append(parts, item)
	}
	return "Filtro: " + strings.Join(parts, " • ") + "  (Esc fecha)"
}

func (m *Model) renderFooter(statusText string, statusStyle lipgloss.Style, rightHint string) string {
	left := strings.TrimSpace(statusText)
	right := strings.TrimSpace(rightHint)
	if left == "" {
		left = "Pronto"
	}

	leftW := utf8.RuneCountInString(left)
	rightW := utf8.RuneCountInString(right)
	width := m.viewportWidth()

	if leftW+rightW+1 > width {
		maxLeft := width - rightW - 1
		if maxLeft < 8 {
			maxLeft = 8
		}
		left = truncateRunes(left, maxLeft)
		leftW = utf8.RuneCountInString(left)
	}

	padding := width - leftW - rightW
	if padding < 1 {
		padding = 1
	}

	rightStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	line := statusStyle.Render(left) + strings.Repeat(" ", padding) + rightStyle.Render(right)
	return lipgloss.NewStyle().Width(width).Render(line)
}

func (m *Model) renderHelpOverlay(width int) string {
	title := lipgloss.NewStyle().Bold(true).Render("Atalhos")
	section := lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true)
	line := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	rows := []string{
		title,
		"",
		section.Render("Lista"),
		line.Render("  j/k navega • a nova tarefa • e edita • x conclui"),
		line.Render("  d exclui • D exclui todas • f filtro • q sai"),
		"",
		section.Render("Formulário"),
		line.Render("  Tab alterna texto/data • Enter salva • Esc cancela"),
		line.Render("  Data no formato AAAA-MM-DD (vazio = sem data)"),
	}

	if width < 40 {
		width = 40
	}
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("244")).
		Padding(1, 2)
	return style.Width(width).Render(strings.Join(rows, "\n"))
}

func statusBadge(st model.Status) string {
	if st == model.StatusDone {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("70")).Render(pad("Concluída", statusColW))
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220")).Render(pad("Pendente", statusColW))
}

func filterLabel(f model.Filter) string {
	switch f {
	case model.FilterPending:
		return "pendentes"
	case model.FilterDone:
		return "concluídas"
	default:
		return "todas"
	}
}

func pad(s string, width int) string {
	n := lipgloss.Width(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
