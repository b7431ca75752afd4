package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-session-server/internal/audit"
	"github.com/park285/chess-session-server/internal/config"
	"github.com/park285/chess-session-server/internal/controller"
	"github.com/park285/chess-session-server/internal/coordinator"
	"github.com/park285/chess-session-server/internal/diag"
	"github.com/park285/chess-session-server/internal/msgcat"
	"github.com/park285/chess-session-server/internal/notation"
	"github.com/park285/chess-session-server/internal/obslog"
	"github.com/park285/chess-session-server/internal/server"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cfg, err := config.Parse(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if cfg.Help {
		return 0
	}

	obslog.Init(cfg.Verbose)
	log := obslog.L()
	defer func() { _ = log.Sync() }()

	parser, err := notation.New(cfg.Parser)
	if err != nil {
		log.Error("notation parser init failed", zap.Error(err))
		return 1
	}

	catalog, err := msgcat.New(cfg.MsgCatDir)
	if err != nil {
		log.Error("message catalog init failed", zap.Error(err))
		return 1
	}

	var sink coordinator.AuditSink
	var pgSink *audit.PostgresSink
	if cfg.AuditDSN != "" {
		pgSink, err = audit.NewPostgresSink(cfg.AuditDSN, log)
		if err != nil {
			log.Error("audit sink init failed", zap.Error(err))
			return 1
		}
		sink = pgSink
		defer func() { _ = pgSink.Close() }()
	}

	coord := coordinator.New(sink, catalog)

	var hub *diag.SpectatorHub
	if cfg.SpectateAddr != "" {
		hub = diag.NewSpectatorHub(log)
	}

	pace := func() { time.Sleep(time.Duration(cfg.PaceMS) * time.Millisecond) }
	ctrl := controller.New(coord, parser, catalog, pace, log)

	listener, unlinkPath, err := bindListener(cfg)
	if err != nil {
		log.Error("listen failed", zap.Error(err))
		return 1
	}

	srv := server.New(listener, ctrl, log, unlinkPath)
	ctrl.SetFanout(srv.Unicast, func(origin string, line []byte, toAll bool) {
		srv.Broadcast(origin, line, toAll)
		if hub != nil {
			hub.Publish(line)
		}
	})

	if cfg.Local {
		log.Info("listening for connections", zap.String("path", cfg.Socket), zap.String("mode", "unix"))
	} else {
		log.Info("listening for connections", zap.String("addr", fmt.Sprintf("%s:%d", cfg.IP, cfg.Port)), zap.String("mode", "tcp"))
	}

	var statusSrv *diag.StatusServer
	if cfg.DiagAddr != "" {
		statusSrv = diag.NewStatusServer(cfg.DiagAddr, coord, log)
		go func() {
			if err := statusSrv.Serve(); err != nil {
				log.Warn("diagnostics server stopped", zap.Error(err))
			}
		}()
	}

	var spectateSrv *diag.SpectateServer
	if cfg.SpectateAddr != "" {
		spectateSrv = diag.NewSpectateServer(cfg.SpectateAddr, hub)
		go func() {
			if err := spectateSrv.Serve(); err != nil {
				log.Warn("spectator server stopped", zap.Error(err))
			}
		}()
	}

	go srv.Serve()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	srv.Stop()
	if statusSrv != nil {
		_ = statusSrv.Shutdown()
	}
	if spectateSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = spectateSrv.Shutdown(ctx)
		cancel()
	}
	return 0
}

func bindListener(cfg *config.Config) (listener net.Listener, unlinkPath string, err error) {
	if cfg.Local {
		l, lerr := server.ListenUnix(cfg.Socket)
		return l, cfg.Socket, lerr
	}
	l, lerr := server.ListenTCP(cfg.IP, cfg.Port)
	return l, "", lerr
}
