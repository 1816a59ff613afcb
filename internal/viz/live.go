package viz

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/magnetsim/internal/cluster"
	"github.com/san-kum/magnetsim/internal/metrics"
	"github.com/san-kum/magnetsim/internal/sim"
)

const (
	width           = 60
	height          = 24
	historyCapacity = 300
	padTop, padLeft = 1, 2
	// wheelKick is the scroll distance one wheel notch stands for.
	wheelKick = 40.0
)

var (
	canvasStyle      = lipgloss.NewStyle().Padding(padTop, padLeft)
	statsStyle       = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(45)
	headerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeParamStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

// tunable are the constants the side panel can adjust.
var tunable = []string{
	"spring_stiffness",
	"linear_damping",
	"max_velocity",
	"mouse_radius",
	"impulse_factor",
	"collision_strength",
	"idle_amplitude",
}

// Mounter builds a fresh simulator for a cluster configuration. The live
// view calls it on start and on every remount.
type Mounter func(cfg cluster.Config) (*sim.Simulator, error)

// Model is the live view: it steps one simulator per tick, draws the
// cluster and feeds mouse motion into the simulator's pointer.
type Model struct {
	mount    Mounter
	sim      *sim.Simulator
	cfg      cluster.Config
	assembly cluster.Assembly
	group    *cluster.GroupMotion
	orbits   *cluster.OrbitRing
	title    string

	fps   float64
	frame int
	buf   []cluster.Transform

	width, height int
	canvas        *Canvas
	camera        *Camera
	ndc           mgl64.Vec2

	running    bool
	showHelp   bool
	showBounds bool
	showOrbits bool

	paramKeys     []string
	selected      int
	energyHistory []float64

	recording bool
	frames    []*image.Paletted
	gifPath   string

	err error
}

// NewModel mounts the first cluster. fps sets both the tick rate and the
// simulated frame duration.
func NewModel(title string, cfg cluster.Config, assembly cluster.Assembly, fps float64, mount Mounter) (Model, error) {
	if fps <= 0 {
		return Model{}, fmt.Errorf("%w: fps must be positive, got %f", sim.ErrInvalidRun, fps)
	}
	m := Model{
		mount:         mount,
		cfg:           cfg,
		assembly:      assembly,
		title:         title,
		fps:           fps,
		width:         width,
		height:        height,
		canvas:        NewCanvas(width, height),
		camera:        NewCamera(),
		running:       true,
		showBounds:    true,
		paramKeys:     tunable,
		energyHistory: make([]float64, 0, historyCapacity),
		gifPath:       "magnetsim.gif",
	}
	if err := m.remount(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Duration(float64(time.Second)/m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return m.tick() }

// Err is the last remount failure, if any.
func (m Model) Err() error { return m.err }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.err = m.remount()
		case "m":
			m.toggleIntegration()
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "b":
			m.showBounds = !m.showBounds
		case "o":
			m.showOrbits = !m.showOrbits
		case "g":
			if m.recording {
				m.saveGIF()
				m.recording = false
				m.frames = nil
			} else {
				m.recording = true
				m.frames = make([]*image.Paletted, 0)
			}
		case "?":
			m.showHelp = !m.showHelp
		case "t":
			names := ThemeNames()
			for i, name := range names {
				if name == CurrentTheme.Name {
					SetTheme(names[(i+1)%len(names)])
					break
				}
			}
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "z":
			m.camera.RotateZ(0.1)
		case "Z":
			m.camera.RotateZ(-0.1)
		case "0":
			m.camera.Reset()
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		}
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
			m.orbits.Kick(wheelKick)
		default:
			m.handleMouse(msg.X, msg.Y)
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		m.draw()
		if m.recording {
			m.captureFrame()
		}
		return m, m.tick()
	}
	return m, nil
}

// handleMouse maps a terminal cell to the simulation plane and samples it
// into the pointer. Cells outside the canvas are ignored and end the
// orbit hover.
func (m *Model) handleMouse(col, row int) {
	col -= padLeft
	row -= padTop
	inside := col >= 0 && row >= 0 && col < m.canvas.Width && row < m.canvas.Height
	m.orbits.SetHovered(inside)
	if !inside {
		return
	}
	sx, sy := col*2+1, row*4+2
	sw, sh := m.canvas.SubWidth(), m.canvas.SubHeight()
	m.ndc = mgl64.Vec2{2*float64(sx)/float64(sw) - 1, 1 - 2*float64(sy)/float64(sh)}
	if p, ok := m.camera.Unproject(sx, sy, sw, sh); ok {
		m.sim.Pointer().Sample(p)
	}
}

func (m *Model) remount() error {
	s, err := m.mount(m.cfg)
	if err != nil {
		return err
	}
	m.sim = s
	m.frame = 0
	m.buf = s.State().Snapshot(m.buf)
	m.group = cluster.NewGroupMotion()
	m.orbits = cluster.NewOrbitRing(cluster.DefaultOrbits())
	m.energyHistory = m.energyHistory[:0]
	return nil
}

func (m *Model) toggleIntegration() {
	next := cluster.IntegrationScaled
	if m.cfg.Integration == cluster.IntegrationScaled {
		next = cluster.IntegrationFrame
	}
	m.cfg.Integration = next
	m.sim.State().SetIntegration(next)
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

// adjustParam scales the selected tuning constant. The change applies on
// the next remount; values the config rejects are left unchanged.
func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	next := m.cfg
	if err := next.SetParam(key, m.cfg.Params()[key]*factor); err != nil {
		return
	}
	if next.Validate() != nil {
		return
	}
	m.cfg = next
}

func (m *Model) step() {
	m.frame++
	f := m.sim.Advance(m.frame, 1/m.fps, m.buf)
	m.buf = f.Transforms
	m.group.Update(m.ndc)
	m.orbits.Advance(1 / m.fps)

	m.energyHistory = append(m.energyHistory, metrics.Kinetic(m.sim.State().Items()))
	if len(m.energyHistory) > historyCapacity {
		m.energyHistory = m.energyHistory[1:]
	}
}

func (m *Model) elapsed() float64 { return float64(m.frame) / m.fps }

// draw renders the latest transforms with the entrance snap and group
// motion applied on a copy, so the simulation never sees them.
func (m *Model) draw() {
	m.canvas.Clear()

	view := make([]cluster.Transform, len(m.buf))
	copy(view, m.buf)
	t := m.elapsed()
	m.assembly.Apply(view, t)
	m.group.Apply(view, t)

	w := NewWireframe()
	if m.showBounds {
		w.Edges = append(w.Edges, BoundsWireframe(m.cfg.Bounds).Edges...)
	}
	for _, tr := range view {
		w.AddIcon(tr, m.cfg.ItemRadius*0.6)
	}
	if m.showOrbits {
		for _, tr := range m.orbits.Transforms(nil) {
			w.AddIcon(tr, m.cfg.ItemRadius*0.6)
		}
	}
	w.AddCross(m.sim.Pointer().Position(), 0.05)
	Render3D(m.canvas, w, m.camera)
}

func (m Model) View() string {
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Foreground(CurrentTheme.Secondary).Render(strings.ToUpper(m.title)) + "\n")
	status := StatusRunning.Render("RUNNING")
	if !m.running {
		status = StatusPaused.Render("PAUSED")
	}
	if m.recording {
		status += " " + StatusRecording.Render("REC")
	}
	s.WriteString(status + "\n\n")

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	st := m.sim.State()
	energy := 0.0
	if n := len(m.energyHistory); n > 0 {
		energy = m.energyHistory[n-1]
	}
	ptr := m.sim.Pointer().Position()
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", m.elapsed())) + "\n")
	s.WriteString(labelStyle.Render("Items") + valueStyle.Render(fmt.Sprintf("%d", st.Len())) + "\n")
	s.WriteString(labelStyle.Render("Kinetic") + valueStyle.Render(fmt.Sprintf("%.5f", energy)) + "\n")
	s.WriteString(labelStyle.Render("Mode") + valueStyle.Render(string(st.Config().Integration)) + "\n")
	s.WriteString(labelStyle.Render("Pointer") + valueStyle.Render(fmt.Sprintf("%+.2f %+.2f", ptr.X(), ptr.Y())) + "\n")
	if m.err != nil {
		s.WriteString(lipgloss.NewStyle().Foreground(CurrentTheme.Error).Render(m.err.Error()) + "\n")
	}

	s.WriteString("\nTUNING (R applies)\n")
	params := m.cfg.Params()
	defaults := cluster.DefaultConfig().Params()
	for i, k := range m.paramKeys {
		val, ref := params[k], defaults[k]
		if ref == 0 {
			ref = 1e-6
		}
		s.WriteString(paramLine(k, val, ref, i == m.selected) + "\n")
	}
	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Remount Q:Quit\nM:Mode T:Theme ?:Help\nTab ↑↓:Tune XYZ:Rotate O:Orbits"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

func paramLine(name string, val, ref float64, active bool) string {
	barWidth, ratio := 10, val/(2.0*ref)
	if ratio > 1 {
		ratio = 1
	} else if ratio < 0 {
		ratio = 0
	}
	filled := int(ratio * float64(barWidth))
	bar := "[" + strings.Repeat("=", filled) + strings.Repeat("-", barWidth-filled) + "]"
	line := fmt.Sprintf("%-20s %s %.3g", name, bar, val)
	if active {
		return activeParamStyle.Render("> " + line)
	}
	return "  " + labelStyle.UnsetWidth().Render(line)
}

const helpText = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Mouse    - Push the cluster         ║
║  Space    - Pause/Resume             ║
║  R        - Remount the cluster      ║
║  M        - Toggle frame/scaled mode ║
║  Tab      - Cycle parameters         ║
║  Up/K     - Increase parameter (+5%) ║
║  Down/J   - Decrease parameter (-5%) ║
║  X/Y/Z    - Rotate camera            ║
║  +/-      - Zoom, 0 resets camera    ║
║  B        - Toggle bounds box        ║
║  O        - Toggle orbit ring        ║
║  Wheel    - Spin the orbit ring      ║
║  G        - Toggle GIF recording     ║
║  T        - Cycle themes             ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

func (m *Model) captureFrame() {
	charW, charH := 8, 16
	imgW, imgH := m.width*charW, m.height*charH
	img := image.NewPaletted(image.Rect(0, 0, imgW, imgH), color.Palette{color.Black, color.White})
	dotW, dotH := charW/2, charH/4
	for row := 0; row < m.height; row++ {
		for col := 0; col < m.width; col++ {
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if !m.canvas.IsSet(col*2+dx, row*4+dy) {
						continue
					}
					baseX, baseY := col*charW+dx*dotW, row*charH+dy*dotH
					for py := 0; py < dotH; py++ {
						for px := 0; px < dotW; px++ {
							img.SetColorIndex(baseX+px, baseY+py, 1)
						}
					}
				}
			}
		}
	}
	m.frames = append(m.frames, img)
}

func (m *Model) saveGIF() {
	if len(m.frames) == 0 {
		return
	}
	anim := gif.GIF{LoopCount: 0}
	delay := int(100/m.fps + 0.5)
	for _, frame := range m.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, delay)
	}
	f, err := os.Create(m.gifPath)
	if err != nil {
		m.err = err
		return
	}
	defer f.Close()
	if err := gif.EncodeAll(f, &anim); err != nil {
		m.err = err
	}
}
