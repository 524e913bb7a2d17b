package cmd

import (
	"path/filepath"

	"github.com/bdmihai/pyphotodb/internal/config"
	"github.com/bdmihai/pyphotodb/internal/event"
	"github.com/bdmihai/pyphotodb/internal/layout"
	"github.com/bdmihai/pyphotodb/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// session is the state a command run over an existing catalog shares:
// the checked root, its settings and the run logger.
type session struct {
	root    layout.Root
	cfg     *config.Config
	log     *zap.Logger
	run     *logging.Run
	cmd     *cobra.Command
	command string
	metrics *event.Metrics
}

func openSession(cmd *cobra.Command, command string, writable bool) (*session, error) {
	root, err := layout.NewRoot(rootPath)
	if err != nil {
		return nil, err
	}

	if err := root.CheckCatalog(writable); err != nil {
		return nil, err
	}

	path := cfgFile
	if path == "" {
		path = root.Config()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	run, err := logging.New(root.Log(), command, cfg.Log)
	if err != nil {
		return nil, err
	}
	log := run.Logger

	log.Info("Database: " + root.Database())

	s := &session{root: root, cfg: cfg, log: log, run: run, cmd: cmd, command: command}
	if cfg.Metrics {
		s.metrics = event.NewMetrics(command)
	}

	return s, nil
}

// events returns the recorder for this run's per-item outcomes and the
// console part of it, which keeps the counts for the summary.
func (s *session) events() (*event.Console, event.Recorder) {
	console := event.NewConsole(nil, s.log)
	if s.cfg.Progress {
		console = event.NewConsole(s.cmd.OutOrStdout(), s.log)
	}

	if s.metrics == nil {
		return console, console
	}
	return console, event.Multi{console, s.metrics}
}

// metricsFile is where the run counters of command are written.
func (s *session) metricsFile() string {
	return filepath.Join(s.root.Cache(), "photodb_"+s.command+".prom")
}

func (s *session) close() {
	if s.metrics != nil {
		if err := s.metrics.WriteFile(s.metricsFile()); err != nil {
			s.log.Warn("writing metrics", zap.Error(err))
		}
	}

	s.run.Close()
}
