// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/wishwell/internal/stats"
)

const (
	tabOverview = iota
	tabPity
	tabHistory
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8FBF6A"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	fiveStarStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	fourStarStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A77BD9"))
)

// Source provides owners and their history.
type Source interface {
	stats.Source
	OwnerIDs(ctx context.Context) ([]int64, error)
}

// RefreshFunc fetches new history and returns a message for the footer.
type RefreshFunc func(ctx context.Context) (string, error)

// Options configures the stats UI.
type Options struct {
	// Context bounds store reads and refreshes. Defaults to context.Background.
	Context      context.Context
	Source       Source
	NoviceBanner int64
	// UID selects the initial owner; 0 picks the first one.
	UID     int64
	Refresh RefreshFunc
}

type refreshDoneMsg struct {
	status string
	err    error
}

// Model implements the Bubble Tea stats UI.
type Model struct {
	ctx     context.Context
	src     Source
	novice  int64
	refresh RefreshFunc

	owners   []int64
	ownerIdx int
	summary  stats.Summary

	bannerFilter int64
	errMsg       string
	statusMsg    string
	refreshing   bool

	tabs         []string
	activeTab    int
	viewports    []viewport.Model
	historyTable table.Model

	width  int
	height int
}

// NewModel constructs a stats UI model.
func NewModel(opts Options) *Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	m := &Model{
		ctx:     ctx,
		src:     opts.Source,
		novice:  opts.NoviceBanner,
		refresh: opts.Refresh,
		tabs:    []string{"Overview", "Pity", "History"},
	}
	m.initViewports()
	m.historyTable = buildHistoryTable(nil, 0, 1)
	m.loadOwners(opts.UID)
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case refreshDoneMsg:
		m.refreshing = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			m.statusMsg = ""
		} else {
			m.errMsg = ""
			m.statusMsg = msg.status
		}
		uid := m.currentOwner()
		m.loadOwners(uid)
		m.refreshReport()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "tab":
			m.moveOwner(1)
			return m, nil
		case "shift+tab":
			m.moveOwner(-1)
			return m, nil
		case "b":
			if m.activeTab == tabHistory {
				m.cycleBannerFilter()
			}
			return m, nil
		case "r":
			return m.startRefresh()
		case "g", "home":
			if m.activeTab == tabHistory {
				m.historyTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabHistory {
				m.historyTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabHistory {
				var cmd tea.Cmd
				m.historyTable, cmd = m.historyTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) loadOwners(selected int64) {
	owners, err := m.src.OwnerIDs(m.ctx)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.owners = owners
	m.ownerIdx = 0
	for i, uid := range owners {
		if uid == selected {
			m.ownerIdx = i
			break
		}
	}
}

func (m *Model) currentOwner() int64 {
	if len(m.owners) == 0 {
		return 0
	}
	return m.owners[m.ownerIdx]
}

func (m *Model) moveOwner(delta int) {
	count := len(m.owners)
	if count < 2 {
		return
	}
	m.ownerIdx = (m.ownerIdx + delta + count) % count
	m.bannerFilter = 0
	m.refreshReport()
}

func (m *Model) cycleBannerFilter() {
	ids := make([]int64, 0, len(m.summary.Pity)+1)
	ids = append(ids, 0)
	seen := map[int64]bool{}
	for _, e := range m.summary.History {
		if !seen[e.BannerType] {
			seen[e.BannerType] = true
			ids = append(ids, e.BannerType)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	next := 0
	for i, id := range ids {
		if id == m.bannerFilter {
			next = (i + 1) % len(ids)
			break
		}
	}
	m.bannerFilter = ids[next]
	m.applyHistoryTable()
}

func (m *Model) startRefresh() (tea.Model, tea.Cmd) {
	if m.refresh == nil || m.refreshing {
		return m, nil
	}
	m.refreshing = true
	m.statusMsg = "Refreshing..."
	refresh, ctx := m.refresh, m.ctx
	return m, func() tea.Msg {
		status, err := refresh(ctx)
		return refreshDoneMsg{status: status, err: err}
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.errMsg != "" || m.statusMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.historyTable.SetWidth(m.width)
	m.historyTable.SetHeight(maxInt(1, vpHeight-1))
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabHistory {
		m.historyTable.Focus()
	} else {
		m.historyTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	owner := padLines(m.renderOwnerSummary(), m.width)
	return tabs + "\n" + owner
}

func (m *Model) renderOwnerSummary() string {
	if len(m.owners) == 0 {
		return headerStyle.Render("No accounts yet. Press r to refresh.")
	}
	banner := "all"
	if m.bannerFilter != 0 {
		banner = m.bannerName(m.bannerFilter)
	}
	summary := fmt.Sprintf("UID %d (%d/%d)  wishes=%d  banner=%s",
		m.currentOwner(), m.ownerIdx+1, len(m.owners), m.summary.TotalWishes, banner)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Account: tab/shift+tab  Scroll: up/down  Refresh: r  Quit: q"
	if m.activeTab == tabHistory {
		help = "Nav: left/right  Account: tab/shift+tab  Banner: b  Scroll: up/down  Refresh: r  Quit: q"
	}
	return headerStyle.Render(help)
}

func (m *Model) renderFooter() string {
	switch {
	case m.errMsg != "":
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	case m.statusMsg != "":
		return m.renderHelp() + "\n" + statusStyle.Render(m.statusMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderBody(height int) string {
	if m.activeTab == tabHistory {
		if len(m.filteredHistory()) == 0 {
			return fitLines("No history found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.historyTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	uid := m.currentOwner()
	summary, err := stats.BuildReport(m.ctx, m.src, uid, m.novice)
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	m.summary = summary
	m.applyHistoryTable()
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.summary, width))
	m.viewports[tabPity].SetContent(renderPity(m.summary))
}

func (m *Model) filteredHistory() []stats.Entry {
	if m.bannerFilter == 0 {
		return m.summary.History
	}
	out := make([]stats.Entry, 0, len(m.summary.History))
	for _, e := range m.summary.History {
		if e.BannerType == m.bannerFilter {
			out = append(out, e)
		}
	}
	return out
}

func (m *Model) bannerName(id int64) string {
	for _, p := range m.summary.Pity {
		if p.ID == id {
			return p.Name
		}
	}
	for _, e := range m.summary.History {
		if e.BannerType == id {
			return e.BannerName
		}
	}
	return strconv.FormatInt(id, 10)
}

func (m *Model) applyHistoryTable() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	focused := m.historyTable.Focused()
	m.historyTable = buildHistoryTable(m.filteredHistory(), width, bodyHeight)
	if focused {
		m.historyTable.Focus()
	}
}

func renderOverview(s stats.Summary, width int) string {
	if s.TotalWishes == 0 {
		return "No wishes found."
	}
	st := s.Statistics
	cards := []string{
		metricCard("Total Wishes", fmt.Sprintf("%d", s.TotalWishes)),
		metricCard("5★ Characters", categoryValue(st.Characters5)),
		metricCard("5★ Weapons", categoryValue(st.Weapons5)),
		metricCard("4★ Characters", categoryValue(st.Characters4)),
		metricCard("4★ Weapons", categoryValue(st.Weapons4)),
		metricCard("3★ Weapons", fmt.Sprintf("%d", st.Weapons3)),
	}
	var body string
	if width < 80 {
		body = strings.Join(cards, "\n")
	} else {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4], cards[5])
		body = lipgloss.JoinVertical(lipgloss.Left, row1, row2)
	}
	if trend := stats.Sparkline(s.FivestarPities()); trend != "" {
		body += "\n\n" + cardTitleStyle.Render("5★ pity trend") + "\n" + trend
	}
	return body
}

func categoryValue(cs stats.CategoryStats) string {
	return fmt.Sprintf("%d (avg %.1f)", cs.Total, cs.AveragePity)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderPity(s stats.Summary) string {
	var b strings.Builder
	b.WriteString(cardTitleStyle.Render("Current Pity"))
	b.WriteByte('\n')
	if len(s.Pity) == 0 {
		b.WriteString("No banners known.")
	}
	nameWidth := 0
	for _, p := range s.Pity {
		nameWidth = maxInt(nameWidth, lipgloss.Width(p.Name))
	}
	for _, p := range s.Pity {
		fmt.Fprintf(&b, "%s  4★ %s  5★ %s\n",
			padLine(p.Name, nameWidth),
			fourStarStyle.Render(fmt.Sprintf("%3d", p.Pity4)),
			fiveStarStyle.Render(fmt.Sprintf("%3d", p.Pity5)))
	}
	if len(s.LowPity) > 0 {
		b.WriteByte('\n')
		b.WriteString(cardTitleStyle.Render("Lowest 5★ Pity"))
		b.WriteByte('\n')
		for i, l := range s.LowPity {
			fmt.Fprintf(&b, "%d. %s (%d)\n", i+1, fiveStarStyle.Render(l.Name), l.Pity)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildHistoryTable(history []stats.Entry, width, height int) table.Model {
	columns := []table.Column{
		{Title: "Time", Width: 19},
		{Title: "Name", Width: maxInt(12, width-19-9-6-5-24-6)},
		{Title: "Type", Width: 9},
		{Title: "Rarity", Width: 6},
		{Title: "Pity", Width: 5},
		{Title: "Banner", Width: 24},
	}
	rows := make([]table.Row, 0, len(history))
	for _, e := range history {
		pity := ""
		if e.HasPity {
			pity = strconv.Itoa(e.Pity)
		}
		rows = append(rows, table.Row{
			e.Time,
			e.Name,
			e.Category.Label(),
			fmt.Sprintf("%d★", e.Rarity),
			pity,
			e.BannerName,
		})
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(historyTableStyles())
	return t
}

func historyTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
