package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-tracker/app"
	"todo-tracker/model"
	"todo-tracker/store"
)

func newTestModel(t *testing.T, fetcher app.SeedFetcher) (*Model, *app.Service) {
	t.Helper()
	svc := app.NewService(store.NewTaskRepository(store.NewMemoryKV(), store.DefaultKey))
	svc.Load()
	m := NewModel(svc, fetcher, time.Second)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, svc
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m *Model, keys ...tea.KeyMsg) {
	for _, k := range keys {
		m.Update(k)
	}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func TestComposeAddsTaskAndClearsInputs(t *testing.T) {
	m, svc := newTestModel(t, nil)

	press(m, runes("a"), runes("Buy milk"), tab, runes("2024-01-01"), enter)

	tasks := svc.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy milk", tasks[0].Text)
	assert.Equal(t, model.NewDate(2024, 1, 1), tasks[0].Date)
	assert.Equal(t, model.StatusPending, tasks[0].Status)

	assert.Equal(t, modeNormal, m.mode)
	assert.Empty(t, m.textInput.Value())
	assert.Empty(t, m.dateInput.Value())
	assert.False(t, m.statusErr)
}

func TestComposeRejectsBlankTextAndBadDate(t *testing.T) {
	m, svc := newTestModel(t, nil)

	press(m, runes("a"), runes("   "), enter)
	assert.True(t, m.statusErr)
	assert.Equal(t, modeCompose, m.mode)
	assert.Empty(t, svc.Tasks())

	press(m, runes("Pay rent"), tab, runes("31/01/24"), enter)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "Data inválida")
	assert.Empty(t, svc.Tasks())

	press(m, esc)
	assert.Equal(t, modeNormal, m.mode)
	assert.Empty(t, m.textInput.Value())
}

func TestEditPopulatesInputsAndCommits(t *testing.T) {
	m, svc := newTestModel(t, nil)
	task, err := svc.Add("Old text", model.NewDate(2024, 5, 1))
	require.NoError(t, err)
	require.NoError(t, svc.MarkDone(task.ID))

	press(m, runes("e"))
	assert.Equal(t, modeCompose, m.mode)
	assert.Equal(t, "Old text", m.textInput.Value())
	assert.Equal(t, "2024-05-01", m.dateInput.Value())
	assert.Contains(t, m.View(), "Salvar")

	m.textInput.SetValue("New text")
	m.dateInput.SetValue("")
	press(m, enter)

	got, err := svc.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "New text", got.Text)
	assert.True(t, got.Date.IsZero())
	assert.Equal(t, model.StatusDone, got.Status)

	_, editing := svc.Editing()
	assert.False(t, editing)
	assert.NotContains(t, m.View(), "Salvar")
}

func TestEscCancelsEdit(t *testing.T) {
	m, svc := newTestModel(t, nil)
	_, err := svc.Add("Keep me", model.Date{})
	require.NoError(t, err)

	press(m, runes("e"), esc)

	_, editing := svc.Editing()
	assert.False(t, editing)
	assert.Equal(t, "Keep me", svc.Tasks()[0].Text)
}

func TestMarkDoneAndRemoveSelected(t *testing.T) {
	m, svc := newTestModel(t, nil)
	a, _ := svc.Add("A", model.Date{})
	b, _ := svc.Add("B", model.Date{})

	press(m, runes("j"), runes("x"))
	got, _ := svc.GetTask(b.ID)
	assert.Equal(t, model.StatusDone, got.Status)

	press(m, runes("x"))
	assert.Contains(t, m.status, "já concluída")

	press(m, runes("k"), runes("d"))
	tasks := svc.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, b.ID, tasks[0].ID)
	assert.NotEqual(t, a.ID, tasks[0].ID)
}

func TestFilterMenuSetsFilter(t *testing.T) {
	m, svc := newTestModel(t, nil)
	a, _ := svc.Add("A", model.Date{})
	_, _ = svc.Add("B", model.Date{})
	require.NoError(t, svc.MarkDone(a.ID))

	press(m, runes("f"), runes("2"))
	assert.Equal(t, model.FilterPending, svc.Filter())
	assert.Equal(t, modeNormal, m.mode)
	assert.Len(t, svc.Visible(), 1)

	press(m, runes("f"), runes("3"))
	assert.Equal(t, model.FilterDone, svc.Filter())

	press(m, runes("f"), esc)
	assert.Equal(t, model.FilterDone, svc.Filter())
}

func TestEmptyStatePlaceholder(t *testing.T) {
	m, svc := newTestModel(t, nil)
	assert.Contains(t, m.View(), "Nenhuma tarefa")

	_, _ = svc.Add("Visible", model.Date{})
	_ = svc.SetFilter(model.FilterDone)
	assert.Contains(t, m.View(), "Nenhuma tarefa")
}

func TestDeleteAllRequiresConfirmation(t *testing.T) {
	m, svc := newTestModel(t, nil)
	_, _ = svc.Add("A", model.Date{})
	_, _ = svc.Add("B", model.Date{})

	press(m, runes("D"))
	assert.Equal(t, modeConfirmDeleteAll, m.mode)
	assert.Contains(t, m.View(), "[y/N]")

	press(m, runes("n"))
	assert.Len(t, svc.Tasks(), 2)

	press(m, runes("D"), runes("y"))
	assert.Empty(t, svc.Tasks())
	assert.Equal(t, modeNormal, m.mode)
}

func TestInitBootstrapsEmptyListFromSeed(t *testing.T) {
	fetcher := app.SeedFunc(func(context.Context) ([]model.Task, error) {
		return []model.Task{{Text: "Seed task"}}, nil
	})
	m, svc := newTestModel(t, fetcher)
	require.True(t, m.loading)
	assert.Contains(t, m.View(), "carregando")

	cmd := m.Init()
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.False(t, m.loading)
	require.Len(t, svc.Tasks(), 1)
	assert.Equal(t, "Seed task", svc.Tasks()[0].Text)
	assert.Contains(t, m.status, "1 tarefas carregadas")
}

func TestBootstrapStatusIgnoresDiscardedSeed(t *testing.T) {
	svc := app.NewService(store.NewTaskRepository(store.NewMemoryKV(), store.DefaultKey))
	svc.Load()
	fetcher := app.SeedFunc(func(context.Context) ([]model.Task, error) {
		_, err := svc.Add("typed while loading", model.Date{})
		return []model.Task{{Text: "Seed task"}}, err
	})
	m := NewModel(svc, fetcher, time.Second)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	require.True(t, m.loading)

	m.Update(m.Init()())

	assert.False(t, m.loading)
	require.Len(t, svc.Tasks(), 1)
	assert.Equal(t, "typed while loading", svc.Tasks()[0].Text)
	assert.NotContains(t, m.status, "carregadas")
}

func TestInitSkipsBootstrapWhenSeedFails(t *testing.T) {
	fetcher := app.SeedFunc(func(context.Context) ([]model.Task, error) {
		return nil, errors.New("offline")
	})
	m, svc := newTestModel(t, fetcher)

	m.Update(m.Init()())
	assert.False(t, m.loading)
	assert.Empty(t, svc.Tasks())
	assert.False(t, m.statusErr)
}

func TestInitWithoutSeed(t *testing.T) {
	m, _ := newTestModel(t, nil)
	assert.Nil(t, m.Init())
	assert.False(t, m.loading)
}

func TestQuitKey(t *testing.T) {
	m, _ := newTestModel(t, nil)
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
