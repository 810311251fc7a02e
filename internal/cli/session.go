package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/rrgate/internal/config"
	"github.com/roach88/rrgate/internal/control"
	"github.com/roach88/rrgate/internal/gateway"
	"github.com/roach88/rrgate/internal/refdriver"
	"github.com/roach88/rrgate/internal/workload"
)

// loadConfig returns the gateway configuration: the file at path (if any)
// over the defaults, then the environment.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, err
		}
	}
	return config.ApplyEnv(cfg, config.OSEnv{})
}

// finishTerminator aborts the process on fatal gateway errors. Once the
// session is finishing it returns instead, so the command can report the
// finished recording.
type finishTerminator struct {
	logger    *slog.Logger
	finishing atomic.Bool
}

func (t *finishTerminator) Terminate(reason string) {
	if t.finishing.Load() {
		t.logger.Debug("gateway finished", "reason", reason)
		return
	}
	t.logger.Error("gateway terminated", "reason", reason)
	gateway.Abort{}.Terminate(reason)
}

// session is a gateway bound to a reference driver. Control notices are
// published on an in-process watermill topic and logged.
type session struct {
	g        *gateway.Gateway
	drv      *refdriver.Driver
	args     []string
	term     *finishTerminator
	registry *prometheus.Registry
	pubsub   *gochannel.GoChannel
	done     chan struct{}
	logger   *slog.Logger
}

func openSession(ctx context.Context, cfg config.Config, args []string, opts refdriver.Options, logger *slog.Logger) (*session, error) {
	opts.Logger = logger
	drv, err := refdriver.New(opts)
	if err != nil {
		return nil, err
	}

	pubsub := control.NewGoChannel(logger)
	msgs, err := pubsub.Subscribe(ctx, cfg.ControlTopic)
	if err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", cfg.ControlTopic, err)
	}

	s := &session{
		drv:      drv,
		term:     &finishTerminator{logger: logger},
		registry: prometheus.NewRegistry(),
		pubsub:   pubsub,
		done:     make(chan struct{}),
		logger:   logger,
	}
	go s.logNotices(msgs)

	s.g, s.args = gateway.Initialize(cfg, args,
		gateway.WithResolver(drv.Symbols()),
		gateway.WithLogger(logger),
		gateway.WithControl(control.NewPublisher(pubsub, cfg.ControlTopic, logger)),
		gateway.WithTerminator(s.term),
		gateway.WithRegisterer(s.registry),
	)
	return s, nil
}

func (s *session) logNotices(msgs <-chan *message.Message) {
	defer close(s.done)
	for msg := range msgs {
		n, err := control.Decode(msg)
		msg.Ack()
		if err != nil {
			s.logger.Warn("undecodable control notice", "error", err)
			continue
		}
		s.logger.Info("control notice",
			"kind", n.Kind,
			"recording", n.RecordingID,
			"created", n.Created,
			"reason", n.Reason,
		)
	}
}

// finish finishes the recording through the gateway and returns once the
// gateway has run its terminal effect.
func (s *session) finish() {
	s.term.finishing.Store(true)
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok || !errors.Is(err, gateway.ErrTerminatorReturned) {
				panic(r)
			}
		}
	}()
	s.g.FinishRecording()
}

func (s *session) close() {
	_ = s.pubsub.Close()
	<-s.done
}

// metrics returns the gateway counters and gauges by name. Labeled series are
// keyed name{label=value}.
func (s *session) metrics() (map[string]float64, error) {
	families, err := s.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			if labels := m.GetLabel(); len(labels) > 0 {
				pairs := make([]string, len(labels))
				for i, l := range labels {
					pairs[i] = l.GetName() + "=" + l.GetValue()
				}
				sort.Strings(pairs)
				name += "{" + strings.Join(pairs, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[name] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[name] = m.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}

// Workload sizes are carried on the recorded command line so a replay can
// rerun the workload the recording was made with.
const (
	workersArg = "--workers="
	roundsArg  = "--rounds="
)

func workloadArgs(command string, cfg workload.Config, dispatch string) []string {
	return []string{
		"rrgate", command,
		workersArg + strconv.Itoa(cfg.Workers),
		roundsArg + strconv.Itoa(cfg.Rounds),
		config.DispatchFlag, dispatch,
	}
}

// workloadFromArgs reads the workload sizes from a recorded command line.
// Missing sizes are left zero, which selects the defaults.
func workloadFromArgs(args []string) (workload.Config, error) {
	var cfg workload.Config
	for _, arg := range args {
		var target *int
		var value string
		if v, ok := strings.CutPrefix(arg, workersArg); ok {
			target, value = &cfg.Workers, v
		} else if v, ok := strings.CutPrefix(arg, roundsArg); ok {
			target, value = &cfg.Rounds, v
		} else {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return cfg, fmt.Errorf("recorded argument %q: %w", arg, err)
		}
		*target = n
	}
	return cfg, nil
}
