package http

import (
	"log/slog"

	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	jsonBodyLimit      = 1 << 20
	defaultUploadLimit = 5 << 20
)

// Deps is everything the router needs from main. DB may be nil when the
// service runs on the in-memory store; Health, when set, takes precedence
// over DB so main can drain it on shutdown.
type Deps struct {
	Env            string
	ServiceName    string
	Accounts       handlers.Accounts
	Cookies        handlers.SessionCookies
	Tokens         middlewares.TokenVerifier
	Users          middlewares.UserFinder
	Blobs          storage.BlobStore
	DB             handlers.Pinger
	Health         *handlers.HealthHandler
	Prom           *observability.Prom
	Gatherer       prometheus.Gatherer
	LoginPath      string
	AllowedOrigins []string
	MaxUploadBytes int64
}

func NewRouter(log *slog.Logger, deps Deps) *gin.Engine {
	if deps.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultUploadLimit
	}
	if deps.ServiceName == "" {
		deps.ServiceName = "authhub"
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(deps.ServiceName))
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.AllowedOrigins))

	var guardObs middlewares.GuardObserver
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
		guardObs = deps.Prom
	}

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// health
	health := deps.Health
	if health == nil {
		health = handlers.NewHealthHandler(deps.DB)
	}
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	guard := middlewares.NewAuthMiddleware(deps.Tokens, deps.Users, deps.LoginPath, log, guardObs)
	authHandler := handlers.NewAuthHandler(deps.Accounts, deps.Cookies, log)
	profileHandler := handlers.NewProfileHandler(authHandler, deps.Blobs)

	// pages
	r.GET("/", guard.CheckIfUser(), authHandler.Welcome)
	r.GET("/login", authHandler.LoginPage)
	r.GET("/signup", authHandler.SignUpPage)
	r.GET("/signout", authHandler.SignOut)
	r.GET("/home", guard.RequireAuth(), authHandler.Home)

	credentials := r.Group("/")
	credentials.Use(middlewares.RequireJSON(), middlewares.MaxBodyBytes(jsonBodyLimit))
	{
		credentials.POST("/signup", authHandler.SignUp)
		credentials.POST("/login", authHandler.Login)
	}

	r.POST("/profile-image",
		middlewares.MaxBodyBytes(deps.MaxUploadBytes),
		guard.RequireAuth(),
		profileHandler.UpdateImage,
	)

	return r
}
