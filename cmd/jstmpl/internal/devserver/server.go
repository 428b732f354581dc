// Package devserver serves a live template bundle during development. It
// rebuilds when template files change and tells connected pages to reload.
package devserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/build"
	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/config"
)

// Paths served besides the static directory.
const (
	BundlePath = "/templates.js"
	LivePath   = "/jstmpl/live.js"
	SocketPath = "/jstmpl/ws"
	StatusPath = "/jstmpl/status"
)

// Server keeps the last good bundle in memory and pushes build outcomes to
// connected pages over websockets.
type Server struct {
	cfg     *config.Config
	builder *build.Builder
	engine  *gin.Engine

	mu      sync.RWMutex
	bundle  []byte   // last good bundle, nil before the first good build
	errs    []string // diagnostics of the latest build, empty when it succeeded
	units   int
	version int

	buildMutex sync.Mutex

	wsClients map[*websocket.Conn]bool
	wsMutex   sync.Mutex
	upgrader  websocket.Upgrader
}

// New returns a server for cfg that builds with b.
func New(cfg *config.Config, b *build.Builder) *Server {
	s := &Server{
		cfg:       cfg,
		builder:   b,
		wsClients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins in dev mode
				return true
			},
		},
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET(BundlePath, s.serveBundle)
	r.GET(LivePath, s.serveLiveScript)
	r.GET(StatusPath, s.serveStatus)
	r.GET(SocketPath, func(c *gin.Context) {
		s.handleWebSocket(c.Writer, c.Request)
	})
	if dir := s.cfg.Dev.Static; dir != "" {
		r.NoRoute(gin.WrapH(http.FileServer(http.Dir(dir))))
	}
	return r
}

// Rebuild runs the build pipeline. A good build replaces the served bundle
// and makes pages reload; a failing build keeps the previous bundle and
// sends the diagnostics instead.
func (s *Server) Rebuild(ctx context.Context) (*build.Result, error) {
	s.buildMutex.Lock()
	defer s.buildMutex.Unlock()

	start := time.Now()
	res, err := s.builder.Build(ctx)
	if err != nil {
		s.setErrors([]string{err.Error()})
		log.Printf("❌ Build failed: %v", err)
		return nil, err
	}

	if !res.OK() {
		var msgs []string
		for _, e := range res.Errors.Errors() {
			msgs = append(msgs, e.Error())
		}
		s.setErrors(msgs)
		log.Printf("❌ %d template(s) failed to compile", len(msgs))
		for _, m := range msgs {
			log.Printf("   %s", m)
		}
		return res, nil
	}

	body := []byte(res.Bundle.String())
	s.mu.Lock()
	s.bundle = body
	s.errs = nil
	s.units = res.Bundle.Len()
	s.version++
	version := s.version
	s.mu.Unlock()

	log.Printf("✅ Compiled %d template(s) (%d cached) in %v", res.Bundle.Len(), res.Cached, time.Since(start).Round(time.Millisecond))
	for name, users := range res.Bundle.Unresolved() {
		log.Printf("⚠️  %s includes unknown template %s", strings.Join(users, ", "), name)
	}
	s.notifyClients("reload", map[string]any{"version": version})
	return res, nil
}

func (s *Server) setErrors(msgs []string) {
	s.mu.Lock()
	s.errs = msgs
	s.mu.Unlock()
	s.notifyClients("error", map[string]any{"errors": msgs})
}

// Run builds once, then serves on the configured address and rebuilds on
// changes until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if _, err := s.Rebuild(ctx); err != nil {
		return err
	}

	w, err := newWatcher(s.builder, s.cfg.Dev.Debounce)
	if err != nil {
		return err
	}
	defer w.Close()
	go w.Run(ctx, func() {
		log.Println("🔄 Templates changed, rebuilding...")
		s.Rebuild(ctx)
	})

	srv := &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.Handler(),
	}
	go func() {
		<-ctx.Done()
		log.Println("🛑 Shutting down dev server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeClients()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("✨ Dev server running at http://%s", srv.Addr)
	log.Printf("   bundle:      http://%s%s", srv.Addr, BundlePath)
	log.Printf("   live reload: <script src=\"%s\"></script>", LivePath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
