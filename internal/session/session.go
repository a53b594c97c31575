package session

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanverite/smartproxy/internal/apperr"
	"github.com/sanverite/smartproxy/internal/config"
	"github.com/sanverite/smartproxy/internal/control"
	"github.com/sanverite/smartproxy/internal/dialer"
	"github.com/sanverite/smartproxy/internal/frontend"
	"github.com/sanverite/smartproxy/internal/registry"
	"github.com/sanverite/smartproxy/internal/relay"
	"github.com/sanverite/smartproxy/internal/resolver"
	"github.com/sanverite/smartproxy/internal/selector"
)

// ClientSession is the read model of one accepted connection, per
// spec.md §3's ClientSession entity: peer address, detected protocol,
// target, chosen runway, and start time. ID is a domain-stack
// addition used only for log correlation and has no effect on any
// spec-named invariant.
type ClientSession struct {
	ID         uuid.UUID
	PeerAddr   string
	Protocol   frontend.Protocol
	TargetHost string
	TargetPort int
	Runway     registry.Key
	StartedAt  time.Time
}

// Deps bundles the collaborators Handle needs. Handle takes no global
// state; everything it touches is reachable through Deps.
type Deps struct {
	Registry     *registry.Registry
	DNS          *net.Resolver
	Stats        *control.Stats
	ConfigNow    func() config.Config
	Logger       *zap.Logger
	DialObserver dialer.AttemptObserver
}

// Handle runs conn through dispatch, resolve, select, dial, and
// relay. It always closes conn (directly on early failure, or via
// relay.Run once the outbound leg is established) and never returns
// before the session has reached its terminal state, satisfying
// spec.md §8's "terminal state reached exactly once" invariant.
func Handle(ctx context.Context, conn net.Conn, deps Deps) {
	deps.Stats.IncTotal()

	cs := ClientSession{
		ID:        uuid.New(),
		PeerAddr:  conn.RemoteAddr().String(),
		StartedAt: time.Now(),
	}
	logger := deps.Logger.With(zap.String("session", cs.ID.String()), zap.String("peer", cs.PeerAddr))

	cfg := deps.ConfigNow()
	result, reply, err := frontend.Dispatch(ctx, conn, &cfg.Auth)
	if err != nil {
		logger.Debug("session: dispatch failed", zap.Error(err))
		deps.Stats.IncFailed()
		conn.Close()
		return
	}
	cs.Protocol = result.Protocol
	cs.TargetHost = result.Host
	cs.TargetPort = result.Port
	logger = logger.With(zap.String("target", net.JoinHostPort(result.Host, strconv.Itoa(result.Port))))

	ip, err := resolver.Resolve(ctx, deps.DNS, result.Host)
	if err != nil {
		logger.Debug("session: resolution failed", zap.Error(err))
		_ = reply.WriteFailure(err)
		deps.Stats.IncFailed()
		conn.Close()
		return
	}

	policy := selectorPolicy(cfg.SelectionMode)
	candidates := selector.Select(deps.Registry, result.Host, policy)
	if len(candidates) == 0 {
		logger.Debug("session: no runway available")
		_ = reply.WriteFailure(apperr.ErrNoRunwayAvailable)
		deps.Stats.IncFailed()
		conn.Close()
		return
	}

	dialResult, err := dialer.Dial(ctx, deps.Logger, result.Host, ip, result.Port, candidates, cfg.TCPTimeoutDuration(), dialer.DefaultRetries, deps.DialObserver)
	if err != nil {
		logger.Debug("session: dial failed", zap.Error(err))
		_ = reply.WriteFailure(err)
		deps.Stats.IncFailed()
		conn.Close()
		return
	}
	cs.Runway = dialResult.Runway.Key

	bindAddr := ""
	if tcpAddr, ok := dialResult.Conn.LocalAddr().(*net.TCPAddr); ok {
		bindAddr = tcpAddr.IP.String()
	}
	if err := reply.WriteSuccess(bindAddr, result.Port); err != nil {
		logger.Debug("session: reply failed", zap.Error(err))
		deps.Stats.IncFailed()
		dialResult.Conn.Close()
		conn.Close()
		return
	}

	logger.Info("session: relaying", zap.Any("runway", cs.Runway), zap.String("protocol", string(cs.Protocol)))
	_ = relay.Run(deps.Logger, conn, dialResult.Conn, deps.Stats)
}

func selectorPolicy(mode config.SelectionMode) selector.Policy {
	switch mode {
	case config.SelectionFirstAvail:
		return selector.FirstAvailable
	case config.SelectionRoundRobin:
		return selector.RoundRobin
	default:
		return selector.Latency
	}
}
