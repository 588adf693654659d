package ui

import (
	"fmt"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vlist-tui/internal/config"
	"vlist-tui/internal/performance"
	"vlist-tui/internal/rpc"
	"vlist-tui/pkg/types"
)

// chromeHeight is the header plus the status bar
const chromeHeight = 2

// maxAutoRetries bounds the unattended retries of failed pages. The retry key
// starts a new round.
const maxAutoRetries = 3

// retryMsg re-requests the pages that failed to load
type retryMsg struct{}

// KeyMap combines the application keys with the list keys
type KeyMap struct {
	performance.KeyMap
	Quit  key.Binding
	Help  key.Binding
	Stats key.Binding
	Retry key.Binding
}

// DefaultAppKeyMap returns the default bindings
func DefaultAppKeyMap() KeyMap {
	return KeyMap{
		KeyMap: performance.DefaultKeyMap(),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Stats: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stats"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
	}
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return append(k.KeyMap.ShortHelp(), k.Help, k.Quit)
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return append(k.KeyMap.FullHelp(), []key.Binding{k.Retry, k.Stats, k.Help, k.Quit})
}

// App is the list browser model
type App struct {
	width  int
	height int
	ready  bool

	list     *performance.VirtualScroller
	loader   *performance.LazyLoader
	renderer *ItemRenderer
	help     help.Model
	keys     KeyMap

	retry        *rpc.ExponentialBackoff
	retryPending bool

	sourceName string
	showStats  bool
	loading    bool
	errMessage string
	lastUpdate time.Time
}

// NewApp creates the application. The list starts empty and grows once
// the source reports its size.
func NewApp(cfg config.Config, source types.ItemSource, sourceName string) (*App, error) {
	scrollConfig := cfg.ScrollConfig()
	scrollConfig.Engine.ItemCount = 0

	list, err := performance.NewVirtualScroller(scrollConfig)
	if err != nil {
		return nil, err
	}

	app := &App{
		list:       list,
		loader:     performance.NewLazyLoader(source, performance.DefaultLazyLoadConfig()),
		renderer:   NewItemRenderer(cfg.Theme),
		help:       help.New(),
		keys:       DefaultAppKeyMap(),
		retry:      rpc.NewBackoff(time.Duration(cfg.RetryInterval), 30*time.Second),
		sourceName: sourceName,
		loading:    true,
	}
	list.SetKeyMap(app.keys.KeyMap)
	list.SetRenderFunc(app.renderItem)
	list.SetFetchFunc(app.loader.Request)
	return app, nil
}

func (m *App) renderItem(index, width int) string {
	if item, ok := m.loader.Get(index); ok {
		return m.renderer.Render(item, width)
	}
	return m.renderer.Placeholder(index, width)
}

// Init asks the source for its size
func (m *App) Init() tea.Cmd {
	return m.loader.Count()
}

// Update handles all application updates
func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.lastUpdate = time.Now()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, m.list.SetSize(msg.Width, max(0, msg.Height-chromeHeight))

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.list.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Stats):
			m.showStats = !m.showStats
			return m, nil
		case key.Matches(msg, m.keys.Retry):
			m.retry.Reset()
			if m.errMessage != "" {
				m.errMessage = ""
				m.loading = true
				return m, m.loader.Count()
			}
			return m, m.list.Refetch()
		}

	case performance.ItemCountMsg:
		m.loading = false
		if msg.Err != nil {
			log.Printf("ui: %v", msg.Err)
			m.errMessage = msg.Err.Error()
			return m, nil
		}
		cmd, err := m.list.UpdateTotalItems(msg.Count)
		if err != nil {
			m.errMessage = err.Error()
		}
		return m, cmd

	case performance.ItemsLoadedMsg:
		indices, _ := m.loader.Update(msg)
		m.retry.Reset()
		return m, m.list.Invalidate(indices...)

	case performance.ItemsFailedMsg:
		m.loader.Update(msg)
		log.Printf("ui: %v", msg.Err)
		return m, m.scheduleRetry()

	case retryMsg:
		m.retryPending = false
		return m, m.list.Refetch()
	}

	return m, m.list.Update(msg)
}

// View renders the application
func (m *App) View() string {
	if !m.ready {
		return "Initializing..."
	}

	body := m.list.View()
	if m.help.ShowAll {
		body = lipgloss.NewStyle().
			Height(max(0, m.height-chromeHeight)).
			Padding(1, 2).
			Render(m.help.FullHelpView(m.keys.FullHelp()))
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatusBar(),
	)
}

// scheduleRetry arms one delayed refetch of the current window, backing off
// between rounds
func (m *App) scheduleRetry() tea.Cmd {
	if m.retryPending || m.retry.Retries() >= maxAutoRetries {
		return nil
	}
	m.retryPending = true
	delay := m.retry.GetDelay()
	m.retry.Increment()
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return retryMsg{}
	})
}

func (m *App) renderHeader() string {
	style := lipgloss.NewStyle().
		Background(lipgloss.Color("62")).
		Foreground(lipgloss.Color("230")).
		Bold(true).
		Width(m.width).
		Padding(0, 1)

	title := "Virtualized List"
	if m.sourceName != "" {
		title += " · " + m.sourceName
	}
	return style.MaxWidth(m.width).Render(title)
}

func (m *App) renderStatusBar() string {
	style := lipgloss.NewStyle().
		Background(lipgloss.Color("240")).
		Foreground(lipgloss.Color("15")).
		Width(m.width).
		Padding(0, 1)

	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	var status string
	switch loadErr := m.loader.LastError(); {
	case m.errMessage != "":
		status = errStyle.Render("✗ " + m.errMessage)
	case loadErr != nil:
		status = errStyle.Render("✗ "+loadErr.Error()) + "  " + m.help.ShortHelpView([]key.Binding{m.keys.Retry})
	case m.loading:
		status = "loading…"
	case m.showStats:
		status = m.statsLine()
	default:
		status = m.list.ScrollInfo() + "  " + m.help.ShortHelpView(m.keys.ShortHelp())
	}
	return style.MaxWidth(m.width).MaxHeight(1).Render(status)
}

func (m *App) statsLine() string {
	stats := m.list.GetPerformanceStats()
	cache := m.loader.GetCacheStats()
	return fmt.Sprintf("ticks %d  passes %d  rewrites %d  canceled %d  layout %s p95 %s  render hit %.0f%%  loaded %d  in flight %d",
		stats.Engine.Ticks,
		stats.Engine.PropagationPasses,
		stats.Engine.EntriesRewritten,
		stats.CanceledFrames,
		stats.AvgLayoutTime.Round(time.Microsecond),
		stats.P95LayoutTime.Round(time.Microsecond),
		stats.CacheHitRate*100,
		cache.Items,
		cache.InFlight,
	)
}
