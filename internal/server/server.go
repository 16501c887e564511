package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/overhill/internal/backup"
	"github.com/dukerupert/overhill/internal/handler"
	"github.com/dukerupert/overhill/internal/middleware"
	"github.com/dukerupert/overhill/internal/push"
	"github.com/dukerupert/overhill/internal/share"
	"github.com/dukerupert/overhill/internal/store"
	ws "github.com/dukerupert/overhill/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	authH         *handler.AuthHandler
	childH        *handler.ChildHandler
	behaviorLogH  *handler.BehaviorLogHandler
	strategyH     *handler.StrategyHandler
	shareH        *handler.ShareHandler
	publicShareH  *handler.PublicShareHandler
	pushH         *handler.PushHandler
	backupH       *handler.BackupHandler
	sessionStore  *store.SessionStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	pushNotifier  *push.Notifier
	logger        *slog.Logger
}

func New(db *sql.DB, baseURL string, shareWindow time.Duration, backupCfg backup.Config, pushCfg push.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	householdStore := store.NewHouseholdStore(db)
	sessionStore := store.NewSessionStore(db)
	childStore := store.NewChildStore(db)
	logStore := store.NewBehaviorLogStore(db)
	strategyStore := store.NewStrategyStore(db)
	packetStore := store.NewSharePacketStore(db)
	eventStore := store.NewAccessEventStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	issuer := share.NewIssuer(packetStore, shareWindow, logger.With("component", "issuer"))
	gate := share.NewGate(packetStore, logger.With("component", "gate"))

	backupMgr := backup.NewManager(backupCfg, db, backupStore, nil)

	// Push is optional: without VAPID keys the endpoints and the notifier
	// simply stay off. WebSocket activity still works.
	var pushSvc *push.Service
	var notifier *push.Notifier
	var pushH *handler.PushHandler
	if pushCfg.VAPIDPublicKey != "" && pushCfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(pushCfg.VAPIDPublicKey, pushCfg.VAPIDPrivateKey)
		notifier = push.NewNotifier(pushSvc, pushStore, packetStore)
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
	}

	return &Server{
		db:           db,
		hub:          hub,
		authH:        handler.NewAuthHandler(userStore, householdStore, sessionStore, logger.With("component", "auth")),
		childH:       handler.NewChildHandler(childStore, logger.With("component", "child")),
		behaviorLogH: handler.NewBehaviorLogHandler(logStore, childStore, logger.With("component", "behavior_log")),
		strategyH:    handler.NewStrategyHandler(strategyStore, childStore, logger.With("component", "strategy")),
		shareH: handler.NewShareHandler(
			issuer, packetStore, eventStore, childStore, logStore, strategyStore,
			hub, notifier, baseURL, logger.With("component", "share"),
		),
		publicShareH:  handler.NewPublicShareHandler(gate, eventStore, hub, notifier, logger.With("component", "share_public")),
		pushH:         pushH,
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		sessionStore:  sessionStore,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		pushNotifier:  notifier,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// PushNotifier returns the push notifier, nil when push is not configured.
func (s *Server) PushNotifier() *push.Notifier {
	return s.pushNotifier
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required). The access endpoint is the one
	// surface unauthenticated recipients touch; it gets the tightest
	// rate limit.
	outerMux.HandleFunc("POST /auth/register", s.rateLimited(s.authH.Register, 10))
	outerMux.HandleFunc("POST /auth/login", s.rateLimited(s.authH.Login, 10))
	outerMux.HandleFunc("POST /share/access", s.rateLimited(s.publicShareH.Access, 20))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc, perMinute int) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, perMinute, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/logout", s.authH.Logout)

	// Children
	mux.HandleFunc("POST /api/children", s.childH.Create)
	mux.HandleFunc("GET /api/children", s.childH.List)
	mux.HandleFunc("PUT /api/children/{id}", s.childH.Update)
	mux.HandleFunc("DELETE /api/children/{id}", s.childH.Delete)

	// Behavior logs
	mux.HandleFunc("POST /api/logs", s.behaviorLogH.Create)
	mux.HandleFunc("GET /api/children/{id}/logs", s.behaviorLogH.ListByChild)
	mux.HandleFunc("DELETE /api/logs/{id}", s.behaviorLogH.Delete)

	// Strategies
	mux.HandleFunc("POST /api/strategies", s.strategyH.Create)
	mux.HandleFunc("GET /api/children/{id}/strategies", s.strategyH.ListByChild)
	mux.HandleFunc("PUT /api/strategies/{id}", s.strategyH.Update)
	mux.HandleFunc("DELETE /api/strategies/{id}", s.strategyH.Delete)

	// Share packets
	mux.HandleFunc("POST /api/shares", s.shareH.Create)
	mux.HandleFunc("GET /api/shares", s.shareH.List)
	mux.HandleFunc("POST /api/shares/{id}/revoke", s.shareH.Revoke)
	mux.HandleFunc("GET /api/shares/{id}/events", s.shareH.Events)

	// Push notifications
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	}

	// Backups
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.HandleFunc("POST /api/backups/run", s.backupH.RunNow)
	mux.HandleFunc("POST /api/backups/{id}/restore", s.backupH.Restore)

	// WebSocket activity feed
	mux.HandleFunc("GET /ws", ws.HandleActivityFeed(s.hub))
}
