package app

import (
	"context"
	"time"

	"ble-beacon.klederson.com/internal/bluetooth"
	"ble-beacon.klederson.com/internal/config"
	"ble-beacon.klederson.com/internal/session"
	"ble-beacon.klederson.com/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
)

// Options configures the model's display.
type Options struct {
	Adapter       string
	Demo          bool
	Window        time.Duration // liveness window shown in the status bar
	SweepInterval time.Duration
}

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	session *session.Session
	alerts  *AlertInbox
	history *RSSIHistory
}

// AppModel is the root Bubble Tea model for BLE Beacon.
type AppModel struct {
	width  int
	height int

	opts         Options
	scrollOffset int

	shared *shared

	// Cached snapshot
	devices   []bluetooth.Device
	log       []session.Entry
	broadcast session.State
	scan      session.State
	alert     *Alert
}

// New creates a model driving sess. alerts must be the Alerter the session
// was created with.
func New(sess *session.Session, alerts *AlertInbox, opts Options) AppModel {
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = config.SweepInterval
	}
	return AppModel{
		opts: opts,
		shared: &shared{
			session: sess,
			alerts:  alerts,
			history: NewRSSIHistory(config.RSSIHistoryLen),
		},
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.setupCmd(),
		tickCmd(),
		sweepCmd(m.opts.SweepInterval),
	)
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		m.refresh()
		return m, tickCmd()

	case SweepMsg:
		m.shared.session.Sweep(time.Time(msg))
		return m, sweepCmd(m.opts.SweepInterval)

	case SetupDoneMsg, OpDoneMsg:
		// failures already reached the log and the alert inbox
		m.refresh()
		return m, nil
	}

	return m, nil
}

func (m *AppModel) refresh() {
	sess := m.shared.session
	m.devices = sess.Devices()
	m.log = sess.Log()
	m.broadcast = sess.BroadcastState()
	m.scan = sess.ScanState()
	m.shared.history.Record(m.devices)

	if m.alert == nil {
		if a, ok := m.shared.alerts.Pop(); ok {
			m.alert = &a
		}
	}
	if m.scrollOffset >= len(m.devices) {
		m.scrollOffset = max(0, len(m.devices)-1)
	}
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.alert != nil {
		switch msg.String() {
		case "enter", "esc":
			m.alert = nil
			m.refresh()
			return m, nil
		case "ctrl+c":
			return m.quit()
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m.quit()

	case "b", "B":
		return m, m.toggleBroadcast()

	case "s", "S":
		return m, m.toggleScan()

	case "up", "k":
		if m.scrollOffset > 0 {
			m.scrollOffset--
		}

	case "down", "j":
		if m.scrollOffset < len(m.devices)-1 {
			m.scrollOffset++
		}

	case "home":
		m.scrollOffset = 0

	case "end":
		if len(m.devices) > 0 {
			m.scrollOffset = len(m.devices) - 1
		}
	}

	return m, nil
}

func (m AppModel) quit() (tea.Model, tea.Cmd) {
	m.shared.session.Close()
	return m, tea.Quit
}

// toggleBroadcast starts or stops advertising depending on the confirmed
// state. Presses during a transition are ignored.
func (m AppModel) toggleBroadcast() tea.Cmd {
	sess := m.shared.session
	switch sess.BroadcastState() {
	case session.Idle:
		return opCmd(session.OpBroadcast, sess.StartBroadcast)
	case session.Active:
		return opCmd(session.OpStopBroadcast, sess.StopBroadcast)
	}
	return nil
}

// toggleScan starts or stops scanning depending on the confirmed state.
func (m AppModel) toggleScan() tea.Cmd {
	sess := m.shared.session
	switch sess.ScanState() {
	case session.Idle:
		return opCmd(session.OpScan, sess.StartScan)
	case session.Active:
		return opCmd(session.OpStopScan, sess.StopScan)
	}
	return nil
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing BLE Beacon..."
	}

	sess := m.shared.session
	menuBar := ui.RenderMenuBar(m.width, ui.MenuInfo{
		Adapter:   m.opts.Adapter,
		Company:   bluetooth.CompanyLabel(sess.CompanyID()),
		Broadcast: m.broadcast,
		Scan:      m.scan,
	})
	statusBar := ui.RenderStatusBar(m.width, ui.StatusInfo{
		Devices:   len(m.devices),
		Policy:    sess.Policy(),
		Window:    m.opts.Window,
		TxPower:   sess.TxPower(),
		SessionID: sess.ID(),
		Demo:      m.opts.Demo,
	})

	bodyH := m.height - 2
	if bodyH < 5 {
		bodyH = 5
	}

	if m.alert != nil {
		modal := ui.RenderAlert(m.width, bodyH, m.alert.Title, m.alert.Message)
		return ui.ComposeModal(menuBar, modal, statusBar)
	}

	listW := m.width * 3 / 5
	if listW < 30 {
		listW = 30
	}
	logW := m.width - listW
	if logW < 20 {
		logW = 20
		listW = m.width - logW
	}

	deviceList := ui.RenderDeviceList(m.devices, m.shared.history.Values(), listW, bodyH, m.scrollOffset)
	logPanel := ui.RenderLogPanel(m.log, logW, bodyH)

	return ui.ComposeLayout(menuBar, deviceList, logPanel, statusBar)
}

func (m AppModel) setupCmd() tea.Cmd {
	sess := m.shared.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), config.OpTimeout)
		defer cancel()
		return SetupDoneMsg{Err: sess.Setup(ctx)}
	}
}

func opCmd(op session.Op, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), config.OpTimeout)
		defer cancel()
		return OpDoneMsg{Op: op, Err: fn(ctx)}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(config.TargetFPS), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func sweepCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return SweepMsg(t)
	})
}
