package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/inkglow/internal/calibrate"
	"github.com/GriffinCanCode/inkglow/internal/classify"
	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/pipeline"
	"github.com/GriffinCanCode/inkglow/internal/signature"
	"github.com/GriffinCanCode/inkglow/internal/trace"
)

// Engine is the pipeline surface the server drives.
type Engine interface {
	BeginCalibration(label signature.Label) error
	CancelCalibration() error
	CalibrationState() (calibrate.State, signature.Label)
	OnCalibration(fn func(calibrate.State, signature.Label))
	SampleDisplay(x, y float64) (signature.Signature, error)
	Signatures() *signature.Set
	SetMode(mode classify.Mode) error
	SetBrightness(brightness float64) error
	SetMirrored(mirrored bool)
	Status() pipeline.Status
}

// Options configures a Server.
type Options struct {
	AllowedOrigins []string
	// ForceEvery sends every ForceEvery-th frame even when it looks
	// unchanged; 1 disables dedup.
	ForceEvery     int
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	engine Engine
	opts   Options
	dedup  *frameDedup
	seq    atomic.Uint64

	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
}

// New creates a server and subscribes to calibration changes.
func New(engine Engine, opts Options) *Server {
	if opts.ForceEvery <= 0 {
		opts.ForceEvery = DefaultForceEvery
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		engine:  engine,
		opts:    opts,
		dedup:   newFrameDedup(opts.ForceEvery),
		clients: make(map[*websocket.Conn]*client),
	}
	engine.OnCalibration(s.onCalibration)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("GET /api/signatures", s.handleSignatures)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("PUT /api/settings", s.handleSettings)
	mux.HandleFunc("POST /api/calibrate/sample", s.handleSample)
	mux.HandleFunc("POST /api/calibrate/cancel", s.handleCancel)
	mux.HandleFunc("POST /api/calibrate/{label}", s.handleCalibrate)

	// Apply middleware: trace -> CORS
	return s.corsMiddleware(trace.Middleware(mux))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "*")
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when it is not allowed.
func (s *Server) allowOrigin(origin string) string {
	if slices.Contains(s.opts.AllowedOrigins, "*") {
		return "*"
	}
	if origin != "" && slices.Contains(s.opts.AllowedOrigins, origin) {
		return origin
	}
	return ""
}

// originPatterns converts allowed origins to the host patterns the
// WebSocket handshake checks.
func (s *Server) originPatterns() []string {
	out := make([]string, 0, len(s.opts.AllowedOrigins))
	for _, o := range s.opts.AllowedOrigins {
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		out = append(out, o)
	}
	return out
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := newClient(conn)
	s.mu.Lock()
	s.clients[conn] = c
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	go c.writeLoop(ctx)

	log := trace.Logger(ctx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	state, label := s.engine.CalibrationState()
	c.enqueue(outbound{msg: signaturesMessage(s.engine.Signatures())})
	c.enqueue(outbound{msg: CalibrationMessage{Type: "calibration", State: state.String(), Label: label}})

	for {
		var msg json.RawMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err, "dropped", c.dropped.Load())
			return
		}

		if !c.limiter.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			c.enqueue(outbound{msg: ErrorMessage{Type: "error", Code: "RATE_LIMITED", Message: "rate limit exceeded"}})
			continue
		}

		msgCtx := ctx
		if tc, ok := trace.FromMessage(msg); ok {
			msgCtx = trace.WithContext(ctx, tc)
		} else {
			msgCtx, _ = trace.EnsureContext(ctx)
		}
		if reply := s.dispatch(msgCtx, msg); reply != nil {
			c.enqueue(outbound{msg: reply})
		}
	}
}

// dispatch handles one client message and returns the direct reply, if any.
func (s *Server) dispatch(ctx context.Context, raw json.RawMessage) any {
	var base Message
	if err := json.Unmarshal(raw, &base); err != nil {
		return errorMessage(apperr.Wrap(err, apperr.InvalidArgument, "malformed message"))
	}

	var err error
	switch base.Type {
	case "calibrate":
		var m CalibrateMessage
		if err = json.Unmarshal(raw, &m); err == nil {
			err = s.calibrate(ctx, m.Label)
		}
	case "sample":
		var m SampleMessage
		if err = json.Unmarshal(raw, &m); err == nil {
			var sig signature.Signature
			if sig, err = s.sample(ctx, m.X, m.Y); err == nil {
				return SampledMessage{Type: "sampled", Signature: sig}
			}
		}
	case "cancel":
		err = s.cancel(ctx)
	case "settings":
		var m SettingsMessage
		if err = json.Unmarshal(raw, &m); err == nil {
			err = s.applySettings(ctx, m)
		}
		if err == nil {
			return StatusMessage{Type: "status", Status: s.engine.Status()}
		}
	case "status":
		return StatusMessage{Type: "status", Status: s.engine.Status()}
	default:
		err = apperr.Newf(apperr.InvalidArgument, "unknown message type %q", base.Type)
	}
	if err != nil {
		return errorMessage(err)
	}
	return nil
}

func (s *Server) calibrate(ctx context.Context, label signature.Label) error {
	log := trace.Logger(ctx)
	if err := s.engine.BeginCalibration(label); err != nil {
		log.Warn("calibration rejected", "label", label, "error", err)
		return err
	}
	log.Info("calibration armed", "label", label)
	return nil
}

func (s *Server) sample(ctx context.Context, x, y float64) (signature.Signature, error) {
	ctx, span := trace.StartSpan(ctx, "calibration_sample")
	defer span.End()
	log := trace.Logger(ctx)

	sig, err := s.engine.SampleDisplay(x, y)
	if err != nil {
		span.SetAttr("error", err.Error())
		log.Warn("calibration sample failed", "x", x, "y", y, "error", err)
		return signature.Signature{}, err
	}
	span.SetAttr("label", string(sig.Label))
	log.Info("signature calibrated", "label", sig.Label, "reference", sig.Reference.String(),
		"tolerance", sig.Tolerance, "threshold", sig.Threshold)
	s.broadcast(outbound{msg: signaturesMessage(s.engine.Signatures())})
	return sig, nil
}

func (s *Server) cancel(ctx context.Context) error {
	if err := s.engine.CancelCalibration(); err != nil {
		return err
	}
	trace.Logger(ctx).Info("calibration cancelled")
	return nil
}

func (s *Server) applySettings(ctx context.Context, m SettingsMessage) error {
	log := trace.Logger(ctx)
	if m.Mode != nil {
		mode, err := classify.ParseMode(*m.Mode)
		if err != nil {
			return apperr.Wrap(err, apperr.InvalidArgument, "bad mode")
		}
		if err := s.engine.SetMode(mode); err != nil {
			return err
		}
		log.Info("detection mode changed", "mode", mode.String())
	}
	if m.Brightness != nil {
		if err := s.engine.SetBrightness(*m.Brightness); err != nil {
			return err
		}
		log.Info("brightness changed", "brightness", *m.Brightness)
	}
	if m.Mirrored != nil {
		s.engine.SetMirrored(*m.Mirrored)
		log.Info("mirroring changed", "mirrored", *m.Mirrored)
	}
	return nil
}

// onCalibration runs with the calibration session locked; it only queues.
func (s *Server) onCalibration(state calibrate.State, label signature.Label) {
	s.broadcast(outbound{msg: CalibrationMessage{Type: "calibration", State: state.String(), Label: label}})
}

func errorMessage(err error) ErrorMessage {
	return ErrorMessage{Type: "error", Code: apperr.CodeOf(err).String(), Message: err.Error()}
}
