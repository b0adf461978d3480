package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/interview-chat-api/api"
	"github.com/linesmerrill/interview-chat-api/api/scheduler"
	"github.com/linesmerrill/interview-chat-api/auth"
	"github.com/linesmerrill/interview-chat-api/chat"
	"github.com/linesmerrill/interview-chat-api/config"
	"github.com/linesmerrill/interview-chat-api/databases"
	"github.com/linesmerrill/interview-chat-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Metrics   *api.MetricsCollector
	Rooms     *chat.Rooms
	Scheduler *scheduler.Scheduler

	client   databases.ClientHelper
	dbHelper databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	r := mux.NewRouter()

	if a.Metrics == nil {
		a.Metrics = api.NewMetricsCollector()
	}
	if a.Rooms == nil {
		a.Rooms = chat.NewRooms()
	}

	userDatabase := databases.NewUserDatabase(a.dbHelper)
	sessionDatabase := databases.NewInterviewSessionDatabase(a.dbHelper)
	chatDatabase := databases.NewChatDatabase(a.dbHelper)
	if a.Scheduler == nil {
		a.Scheduler = scheduler.NewScheduler(chatDatabase, a.Config.AuditSchedule)
	}

	tokens := auth.NewTokens(a.Config.JWTSecret, a.Config.TokenTTL)
	authenticator := auth.NewAuthenticator(tokens, userDatabase)
	guard := api.NewGuard(userDatabase, tokens, authenticator)

	service := chat.NewService(sessionDatabase, chatDatabase, a.Rooms, chat.NewSenders(userDatabase))
	gateway := chat.NewGateway(authenticator, chat.NewAuthorizer(sessionDatabase, chatDatabase), service, a.Config.AllowedOrigins)
	c := NewChat(service)
	m := MetricsHandler{Collector: a.Metrics, Rooms: a.Rooms, Scheduler: a.Scheduler}

	r.Use(api.MetricsMiddleware(a.Metrics, "/health", "/api/v1/metrics"))

	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	r.Handle("/ws/chat", gateway).Methods("GET")

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/auth/token", guard.Middleware(http.HandlerFunc(guard.CreateToken))).Methods("POST")
	apiCreate.Handle("/metrics", guard.Middleware(http.HandlerFunc(m.GetMetrics))).Methods("GET")
	apiCreate.Handle("/interview-sessions/{sessionId}/chat", guard.Middleware(http.HandlerFunc(c.ChatHistoryHandler))).Methods("GET")
	apiCreate.Handle("/interview-sessions/{sessionId}/chat/messages/{messageId}", guard.Middleware(http.HandlerFunc(c.EditChatMessageHandler))).Methods("PUT")
	apiCreate.Handle("/interview-sessions/{sessionId}/chat/messages/{messageId}", guard.Middleware(http.HandlerFunc(c.DeleteChatMessageHandler))).Methods("DELETE")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.client = client
	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("interview-chat-api has connected to the database")

	api.QueryTimeout = a.Config.QueryTimeout

	// initialize api router
	a.initializeRoutes()
	return nil
}

// Close stops background work and disconnects from the database
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Metrics != nil {
		a.Metrics.Stop()
	}
	if a.client != nil {
		if err := a.client.Disconnect(); err != nil {
			zap.S().Errorw("failed to disconnect from database", "error", err)
		}
	}
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
