package facilitator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vorpalengineering/x402-stellar/logger"
	"github.com/vorpalengineering/x402-stellar/metrics"
	"github.com/vorpalengineering/x402-stellar/replay"
	"github.com/vorpalengineering/x402-stellar/stellar"
	"github.com/vorpalengineering/x402-stellar/types"
)

// Facilitator verifies payment payloads against requirements and settles
// them on the ledger. Verification never mutates ledger state; settlement
// is idempotent per transaction hash through the replay store.
type Facilitator struct {
	config  *FacilitatorConfig
	router  *gin.Engine
	store   replay.Store
	ledgers map[string]stellar.Ledger
	log     logger.Logger
	metrics metrics.Recorder
}

// NewFacilitator wires a facilitator from config: one ledger client per
// supported network, the replay store named by the connection string, and
// the configured log level.
func NewFacilitator(config *FacilitatorConfig) (*Facilitator, error) {
	store, err := replay.Open(config.Store.ConnString, config.Store.AllowMemoryStore)
	if err != nil {
		return nil, err
	}

	ledgers := make(map[string]stellar.Ledger)
	for _, kind := range config.Supported {
		if _, ok := ledgers[kind.Network]; ok {
			continue
		}
		params, err := config.NetworkParams(kind.Network)
		if err != nil {
			return nil, err
		}
		ledgers[kind.Network] = stellar.NewClient(params)
	}

	recorder := metrics.Recorder(metrics.NoopRecorder{})
	if config.Metrics.Enabled {
		recorder = metrics.NewPrometheusRecorder()
	}

	return newFacilitator(config, store, ledgers, logger.NewZapLogger(config.Log.Level), recorder), nil
}

func newFacilitator(config *FacilitatorConfig, store replay.Store, ledgers map[string]stellar.Ledger, log logger.Logger, recorder metrics.Recorder) *Facilitator {
	f := &Facilitator{
		config:  config,
		store:   store,
		ledgers: ledgers,
		log:     log,
		metrics: recorder,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/verify", f.handleVerify)
	router.POST("/settle", f.handleSettle)
	router.GET("/supported", f.handleSupported)
	router.GET("/discovery/resources", f.handleDiscoveryList)
	router.POST("/discovery/resources", f.handleDiscoveryRegister)
	router.DELETE("/discovery/resources", f.handleDiscoveryUnregister)
	if config.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	f.router = router
	return f
}

// Run serves the facilitator until the context is cancelled.
func (f *Facilitator) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", f.config.Server.Host, f.config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: f.router,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.ListenAndServe()
	}()

	f.log.Info("facilitator listening", map[string]any{"addr": addr})

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// Close releases the replay store connection.
func (f *Facilitator) Close() error {
	return f.store.Close()
}

func (f *Facilitator) handleVerify(ctx *gin.Context) {
	// Decode request
	var req types.VerifyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	start := time.Now()
	res := f.verifyPayment(ctx.Request.Context(), &req.PaymentPayload, &req.PaymentRequirements)
	f.metrics.ObserveLatency("verify", time.Since(start), map[string]string{"network": req.PaymentPayload.Network})
	if res.IsValid {
		f.metrics.IncCounter("verify_valid", map[string]string{"network": req.PaymentPayload.Network})
	} else {
		f.metrics.IncCounter("verify_invalid", map[string]string{"network": req.PaymentPayload.Network})
	}

	// Protocol-level rejections are still HTTP 200; non-200 means the
	// facilitator itself failed.
	ctx.JSON(http.StatusOK, res)
}

func (f *Facilitator) handleSettle(ctx *gin.Context) {
	// Decode request
	var req types.SettleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	start := time.Now()
	res := f.settlePayment(ctx.Request.Context(), &req.PaymentPayload, &req.PaymentRequirements)
	f.metrics.ObserveLatency("settle", time.Since(start), map[string]string{"network": req.PaymentPayload.Network})
	if res.Success {
		f.metrics.IncCounter("settle_success", map[string]string{"network": req.PaymentPayload.Network})
	} else {
		f.metrics.IncCounter("settle_failure", map[string]string{"network": req.PaymentPayload.Network})
	}

	ctx.JSON(http.StatusOK, res)
}

func (f *Facilitator) handleSupported(ctx *gin.Context) {
	kinds := make([]types.SupportedKind, 0, len(f.config.Supported))
	for _, kind := range f.config.Supported {
		extra := map[string]any{
			"feeSponsorship": f.config.SigningKey != nil,
		}
		for k, v := range kind.Extra {
			extra[k] = v
		}
		kinds = append(kinds, types.SupportedKind{
			Scheme:  kind.Scheme,
			Network: kind.Network,
			Extra:   extra,
		})
	}

	ctx.JSON(http.StatusOK, types.SupportedResponse{Kinds: kinds})
}
