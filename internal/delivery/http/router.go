package http

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "eventlottery/docs"
	"eventlottery/internal/delivery/http/controllers"
	"eventlottery/internal/delivery/http/middleware"
	"eventlottery/internal/domain"
)

// RouterDeps bundles everything NewRouter needs to wire the routes.
type RouterDeps struct {
	Logger        *slog.Logger
	Verifier      domain.TokenVerifier
	Auth          *controllers.AuthController
	Users         *controllers.UserController
	Events        *controllers.EventController
	Entrants      *controllers.EntrantController
	Notifications *controllers.NotificationController
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(deps RouterDeps) *http.ServeMux {
	mux := http.NewServeMux()
	authed := middleware.RequireAuth(deps.Verifier, deps.Logger)

	// Auth
	mux.HandleFunc("POST /auth/signup", deps.Auth.SignUp)
	mux.HandleFunc("POST /auth/login", deps.Auth.Login)

	// Users
	mux.HandleFunc("GET /users/me", authed(deps.Users.GetMe))
	mux.HandleFunc("PATCH /users/me", authed(deps.Users.UpdateMe))

	// Events (organizer)
	mux.HandleFunc("POST /events", authed(deps.Events.CreateEvent))
	mux.HandleFunc("GET /events", deps.Events.ListEvents)
	mux.HandleFunc("GET /events/mine", authed(deps.Events.ListMyEvents))
	mux.HandleFunc("GET /events/qr/{qrCodeID}", deps.Events.GetEventByQRCode)
	mux.HandleFunc("GET /events/{eventID}", deps.Events.GetEvent)
	mux.HandleFunc("PATCH /events/{eventID}", authed(deps.Events.UpdateEvent))
	mux.HandleFunc("DELETE /events/{eventID}", authed(deps.Events.DeleteEvent))

	// Lottery (organizer)
	mux.HandleFunc("POST /events/{eventID}/draw", authed(deps.Events.Draw))
	mux.HandleFunc("POST /events/{eventID}/replacements", authed(deps.Events.ReplaceInvitees))
	mux.HandleFunc("GET /events/{eventID}/membership", authed(deps.Events.GetMembership))
	mux.HandleFunc("GET /events/{eventID}/joined.csv", authed(deps.Events.ExportJoinedCSV))

	// Lottery (entrant)
	mux.HandleFunc("POST /entrant/events/{eventID}/waiting-list", authed(deps.Entrants.JoinWaitingList))
	mux.HandleFunc("DELETE /entrant/events/{eventID}/waiting-list", authed(deps.Entrants.LeaveWaitingList))
	mux.HandleFunc("POST /entrant/events/{eventID}/invitation/accept", authed(deps.Entrants.AcceptInvitation))
	mux.HandleFunc("POST /entrant/events/{eventID}/invitation/decline", authed(deps.Entrants.DeclineInvitation))
	mux.HandleFunc("GET /entrant/events", authed(deps.Entrants.ListMyEvents))

	// Notifications
	mux.HandleFunc("GET /notifications", authed(deps.Notifications.ListMyNotifications))
	mux.HandleFunc("POST /notifications/{notificationID}/read", authed(deps.Notifications.MarkRead))

	// Observability
	mux.Handle("GET /metrics", promhttp.Handler())

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
