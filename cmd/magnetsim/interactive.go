package main

import (
	"fmt"
	"math/rand"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/magnetsim/internal/cluster"
	"github.com/san-kum/magnetsim/internal/feed"
	"github.com/san-kum/magnetsim/internal/gesture"
	"github.com/san-kum/magnetsim/internal/logging"
	"github.com/san-kum/magnetsim/internal/sim"
	"github.com/san-kum/magnetsim/internal/viz"
)

var (
	theme   string
	logFile string
	addr    string
)

func liveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "interactive view; the mouse drives the pointer",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	sceneFlags(cmd)
	cmd.Flags().StringVar(&theme, "theme", "neon", "color theme")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write simulation logs here while the view is open")
	return cmd
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	viz.SetTheme(theme)

	// The view owns the terminal, so logs go to a file or nowhere.
	simLog := zap.NewNop()
	if logFile != "" {
		if simLog, err = logging.File(logFile, logLevel); err != nil {
			return err
		}
		defer simLog.Sync()
	}

	// Every mount gets a fresh layout, like reopening the page.
	mount := func(c cluster.Config) (*sim.Simulator, error) {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		st, err := cluster.Initialize(c.Count, c, rng)
		if err != nil {
			return nil, err
		}
		s := sim.New(st, nil)
		s.Pointer().Reset(gesture.Far)
		s.SetLogger(simLog)
		return s, nil
	}

	m, err := viz.NewModel("magnet scene", cfg.Cluster, cfg.Assembly, cfg.FPS, mount)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(cmd.Context()))
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(viz.Model); ok && fm.Err() != nil {
		return fm.Err()
	}
	return nil
}

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "stream frames over websocket and accept pointer input",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	sceneFlags(cmd)
	cmd.Flags().StringVar(&addr, "addr", env.Addr, "listen address")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	st, err := cluster.Initialize(cfg.Cluster.Count, cfg.Cluster, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		return err
	}
	s := sim.New(st, nil)
	s.Pointer().Reset(gesture.Far)
	s.SetLogger(log)

	if !log.Core().Enabled(zapcore.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := feed.NewServer(s, sim.Config{FPS: cfg.FPS}, log)

	fmt.Printf("serving %d items at %.0f fps on %s (ws path /ws)\n", st.Len(), cfg.FPS, addr)
	return srv.ListenAndServe(cmd.Context(), addr)
}
