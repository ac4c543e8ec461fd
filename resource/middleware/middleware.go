// Package middleware is the payment gate for a resource server: it prices
// routes, challenges unpaid requests with 402, and releases the protected
// handler's response only once the facilitator has settled the payment.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vorpalengineering/x402-stellar/facilitator/client"
	"github.com/vorpalengineering/x402-stellar/logger"
	"github.com/vorpalengineering/x402-stellar/types"
	"github.com/vorpalengineering/x402-stellar/utils"
)

type X402Middleware struct {
	config      *GateConfig
	rules       []compiledRule
	facilitator *client.FacilitatorClient
	paywall     PaywallProvider
	log         logger.Logger
}

func NewX402Middleware(config *GateConfig) (*X402Middleware, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	rules, err := compileRules(config.Routes)
	if err != nil {
		return nil, err
	}

	paywall := config.Paywall
	if paywall == nil {
		paywall = defaultPaywall{}
	}

	return &X402Middleware{
		config:      config,
		rules:       rules,
		facilitator: client.NewFacilitatorClient(config.FacilitatorURL),
		paywall:     paywall,
		log:         logger.NoopLogger{},
	}, nil
}

// WithLogger replaces the gate's logger.
func (m *X402Middleware) WithLogger(log logger.Logger) *X402Middleware {
	m.log = log
	return m
}

func (m *X402Middleware) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		// Check whether the current route carries a price
		rule := matchRule(m.rules, ctx.Request.Method, ctx.Request.URL.Path)
		if rule == nil {
			ctx.Next()
			return
		}

		requirements := m.requirementsFor(rule, ctx.Request)

		// No header yet: challenge the caller
		paymentHeader := ctx.GetHeader(types.PaymentHeader)
		if paymentHeader == "" {
			m.sendChallenge(ctx, requirements, "Payment Required")
			return
		}

		// Decode payment header
		payload, err := utils.DecodePaymentHeader(paymentHeader)
		if err != nil {
			m.sendChallenge(ctx, requirements, types.ReasonInvalidPayload)
			return
		}
		if reason := utils.ValidatePayloadShape(payload); reason != "" {
			m.sendChallenge(ctx, requirements, reason)
			return
		}

		// Verify payment with facilitator
		verifyResp, err := m.facilitator.Verify(ctx.Request.Context(), &types.VerifyRequest{
			X402Version:         types.X402Version,
			PaymentPayload:      *payload,
			PaymentRequirements: *requirements,
		})
		if err != nil {
			m.log.Error("verification transport failure", map[string]any{"error": err.Error()})
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "payment verification unavailable",
			})
			return
		}
		if !verifyResp.IsValid {
			m.sendChallenge(ctx, requirements, verifyResp.InvalidReason)
			return
		}

		// Buffer the handler's response until settlement succeeds
		original := ctx.Writer
		buffered := newBufferedWriter(original, m.bufferSize())
		ctx.Writer = buffered

		// A panicking handler suppresses settlement: drop the buffer and
		// let the outer recovery middleware answer with a 5xx.
		defer func() {
			if r := recover(); r != nil {
				ctx.Writer = original
				buffered.discard()
				panic(r)
			}
		}()

		ctx.Next()

		ctx.Writer = original

		if buffered.overflow {
			buffered.discard()
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "response too large to process payment",
			})
			return
		}

		// A failed handler releases as-is: no settlement, no payment
		// header, the caller owes nothing.
		if buffered.Status() >= http.StatusBadRequest {
			if err := buffered.flush(); err != nil {
				m.log.Error("response release failed", map[string]any{"error": err.Error()})
			}
			ctx.Abort()
			return
		}

		// Handler succeeded: settle before releasing a single byte
		settleResp, err := m.facilitator.Settle(ctx.Request.Context(), &types.SettleRequest{
			X402Version:         types.X402Version,
			PaymentPayload:      *payload,
			PaymentRequirements: *requirements,
		})
		if err != nil {
			buffered.discard()
			m.log.Error("settlement transport failure", map[string]any{"error": err.Error()})
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "payment settlement unavailable",
			})
			return
		}
		if !settleResp.Success {
			buffered.discard()
			m.sendChallenge(ctx, requirements, settleResp.ErrorReason)
			return
		}

		// Attach the settlement result and release the buffered response
		header, err := utils.EncodeSettlementHeader(&types.SettlementHeader{
			Success:     true,
			Transaction: settleResp.Transaction,
			Network:     settleResp.Network,
			Payer:       settleResp.Payer,
		})
		if err != nil {
			m.log.Error("settlement header encoding failed", map[string]any{"error": err.Error()})
		} else {
			buffered.Header().Set(types.PaymentResponseHeader, header)
		}

		if err := buffered.flush(); err != nil {
			m.log.Error("response release failed", map[string]any{"error": err.Error()})
		}

		m.log.Info("payment settled", map[string]any{
			"transaction": settleResp.Transaction,
			"network":     settleResp.Network,
			"payer":       settleResp.Payer,
		})
	}
}

func (m *X402Middleware) bufferSize() int {
	if m.config.MaxBufferSize > 0 {
		return m.config.MaxBufferSize
	}
	return defaultMaxBufferSize
}

// requirementsFor derives the challenge for a priced route.
func (m *X402Middleware) requirementsFor(rule *compiledRule, r *http.Request) *types.PaymentRequirements {
	asset := rule.rule.Asset
	if asset == "" {
		asset = types.AssetNative
	}

	timeout := rule.rule.MaxTimeoutSeconds
	if timeout <= 0 {
		timeout = types.DefaultTimeoutSeconds
	}

	mimeType := rule.rule.MimeType
	if mimeType == "" {
		mimeType = "application/json"
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return &types.PaymentRequirements{
		Scheme:            types.SchemeExact,
		Network:           m.config.Network,
		MaxAmountRequired: rule.amount,
		Resource:          scheme + "://" + r.Host + normalizePath(r.URL.Path),
		Description:       rule.rule.Description,
		MimeType:          mimeType,
		PayTo:             m.config.PayTo,
		MaxTimeoutSeconds: timeout,
		Asset:             asset,
	}
}

// sendChallenge emits the 402 response: HTML for browsers, JSON for
// everything else.
func (m *X402Middleware) sendChallenge(ctx *gin.Context, requirements *types.PaymentRequirements, reason string) {
	required := &types.PaymentRequiredResponse{
		X402Version: types.X402Version,
		Error:       reason,
		Accepts:     []types.PaymentRequirements{*requirements},
	}

	if isBrowserRequest(ctx.Request) {
		ctx.Data(http.StatusPaymentRequired, "text/html; charset=utf-8", []byte(m.paywall.GenerateHTML(required)))
		ctx.Abort()
		return
	}

	ctx.AbortWithStatusJSON(http.StatusPaymentRequired, required)
}
