package server

import (
	"context"
	"log/slog"
	"net/http"

	"course-purchase/internal/config"
	"course-purchase/internal/handler"
	authmw "course-purchase/internal/middleware"
	"course-purchase/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	echo            *echo.Echo
	purchaseHandler *handler.PurchaseHandler
	checkoutHandler *handler.CheckoutHandler
	courseHandler   *handler.CourseHandler
	jwtSecret       []byte
}

func NewServer(
	purchaseService service.PurchaseService,
	catalogService *service.CatalogService,
	scripts handler.ScriptSource,
	cfg *config.Config,
	log *slog.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = newHTTPErrorHandler(log)
	e.Validator = newRequestValidator()

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency))
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:            e,
		purchaseHandler: handler.NewPurchaseHandler(purchaseService, cfg.Purchase.AwaitTimeout),
		checkoutHandler: handler.NewCheckoutHandler(purchaseService, scripts),
		courseHandler:   handler.NewCourseHandler(catalogService),
		jwtSecret:       []byte(cfg.Auth.JWTSecret),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api.GET("/courses", s.courseHandler.ListCourses)
	api.GET("/courses/:id", s.courseHandler.GetCourse)

	// -------- purchase flow --------
	purchases := api.Group("/purchases", authmw.AuthMiddleware(s.jwtSecret))
	purchases.POST("", s.purchaseHandler.Open)
	purchases.GET("/:id", s.purchaseHandler.Get)
	purchases.PUT("/:id/plan", s.purchaseHandler.SelectPlan)
	purchases.POST("/:id/confirm", s.purchaseHandler.Confirm)
	purchases.DELETE("/:id", s.purchaseHandler.Close)
	purchases.GET("/:id/checkout", s.checkoutHandler.CheckoutPage)
	purchases.GET("/:id/checkout/options", s.purchaseHandler.CheckoutOptions)

	// -------- gateway callbacks relayed by the checkout page --------
	purchases.POST("/:id/gateway/success", s.purchaseHandler.GatewaySuccess)
	purchases.POST("/:id/gateway/failure", s.purchaseHandler.GatewayFailure)
	purchases.POST("/:id/gateway/dismiss", s.purchaseHandler.GatewayDismiss)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
