package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/finanzas/liquidaciones/internal/infrastructure/logger"
	"github.com/finanzas/liquidaciones/internal/interfaces/http/dto"
	"github.com/finanzas/liquidaciones/internal/interfaces/http/handler"
	"github.com/finanzas/liquidaciones/internal/interfaces/http/middleware"
)

// Handlers are the endpoint groups served by the API
type Handlers struct {
	Factura       *handler.FacturaHandler
	Detalle       *handler.DetalleHandler
	Anticipo      *handler.AnticipoHandler
	Transferencia *handler.TransferenciaHandler
	Feriado       *handler.FeriadoHandler
	System        *handler.SystemHandler
}

// Config is the HTTP surface configuration
type Config struct {
	Logger         *zap.Logger
	ServiceName    string
	TracingEnabled bool
	// Meter records HTTP metrics; nil disables them
	Meter          metric.Meter
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	TrustedProxies []string
}

// NewEngine builds the gin engine with the middleware chain and every route.
func NewEngine(cfg Config, h Handlers) (*gin.Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	engine.HandleMethodNotAllowed = true

	chain := []gin.HandlerFunc{
		middleware.RequestID(),
		logger.Recovery(cfg.Logger, respondPanic),
		middleware.UserID(),
		middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled),
		middleware.SpanEnricher(),
	}
	if cfg.Meter != nil {
		metrics, err := middleware.Metrics(cfg.Meter)
		if err != nil {
			return nil, err
		}
		chain = append(chain, metrics)
	}
	chain = append(chain,
		logger.GinMiddleware(cfg.Logger),
		middleware.Secure(),
		middleware.CORS(cfg.CORS),
	)
	if cfg.MaxBodySize > 0 {
		chain = append(chain, middleware.BodyLimit(cfg.MaxBodySize))
	}
	engine.Use(chain...)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.Info("La ruta solicitada no existe").
			WithRequestID(c.GetString(middleware.RequestIDKey)))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.Fail(dto.CodeBadRequest, "Método no permitido").
			WithRequestID(c.GetString(middleware.RequestIDKey)))
	})

	if h.System != nil {
		engine.GET("/health", h.System.Health)
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Register(apiGroups(h)...)
	r.Setup()
	return engine, nil
}

func respondPanic(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, dto.Error("Ocurrió un error inesperado, intente de nuevo").
		WithRequestID(c.GetString(middleware.RequestIDKey)))
}

func apiGroups(h Handlers) []RouteRegistrar {
	var groups []RouteRegistrar

	facturas := NewDomainGroup("facturas", "/facturas")
	if h.Factura != nil {
		facturas.GET("/dte/:dte", h.Factura.BuscarPorDTE).
			GET("/:id", h.Factura.GetByID).
			GET("/:id/vencimiento", h.Factura.EvaluarVencimiento).
			POST("/:id/autorizacion", h.Factura.SolicitarAutorizacion).
			POST("/:id/autorizacion/resolver", h.Factura.ResolverAutorizacion).
			POST("/:id/liquidar", h.Factura.Liquidar)
	}
	if h.Detalle != nil {
		facturas.Group("factura-detalles", "/:id/detalles").
			GET("", h.Detalle.List).
			POST("", h.Detalle.Create)

		groups = append(groups, NewDomainGroup("detalles", "/detalles").
			GET("/:id", h.Detalle.GetByID).
			PUT("/:id", h.Detalle.Update).
			DELETE("/:id", h.Detalle.Delete).
			POST("/:id/copiar", h.Detalle.Copy))
	}
	groups = append(groups, facturas)

	if h.Anticipo != nil {
		groups = append(groups,
			NewDomainGroup("ordenes", "/ordenes").
				GET("/:orden/anticipos", h.Anticipo.ListPendientes),
			NewDomainGroup("anticipos", "/anticipos").
				POST("/:id/autorizacion", h.Anticipo.SolicitarAutorizacion),
		)
	}

	if t := h.Transferencia; t != nil {
		groups = append(groups, NewDomainGroup("transferencias", "/transferencias").
			GET("", t.List).
			POST("", t.Create).
			GET("/:id", t.Get).
			PUT("/:id", t.Update).
			POST("/:id/aprobar", t.Aprobar).
			POST("/:id/rechazar", t.Rechazar).
			POST("/:id/cancelar", t.Cancelar).
			POST("/:id/comprobante", t.RegistrarComprobante).
			PUT("/:id/comprobante", t.EditarComprobante))
	}

	if f := h.Feriado; f != nil {
		groups = append(groups, NewDomainGroup("feriados", "/feriados").
			GET("", f.List).
			POST("", f.Create).
			DELETE("/:id", f.Delete))
	}

	if s := h.System; s != nil {
		groups = append(groups, NewDomainGroup("system", "/system").
			GET("/info", s.GetSystemInfo).
			GET("/ping", s.Ping).
			GET("/health", s.Health))
	}
	return groups
}
