package api

import (
	"context"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/estate-protocol/tokenization-node/internal/api/middleware"
	"github.com/estate-protocol/tokenization-node/internal/database"
	"github.com/estate-protocol/tokenization-node/internal/utils"
	"github.com/estate-protocol/tokenization-node/internal/x402"
)

// ChainGateway is the contract surface the API needs. Satisfied by
// chain.Gateway; narrowed to an interface so handlers are testable without
// an RPC endpoint.
type ChainGateway interface {
	IsKycVerified(ctx context.Context, address string) (bool, error)
	BalanceOfBatch(ctx context.Context, accounts []string, ids []int64) ([]*big.Int, error)
	ApproveUser(ctx context.Context, address string) (string, error)
	MintShares(ctx context.Context, receiver string, propertyID int64, amount int64, pricePaid *big.Int) (string, error)
}

// Facilitator verifies and settles x402 payment proofs. Satisfied by
// x402.Client.
type Facilitator interface {
	Verify(ctx context.Context, paymentHeader string, requirements *x402.PaymentRequirements) (*x402.VerifyResponse, error)
	Settle(ctx context.Context, paymentHeader string, requirements *x402.PaymentRequirements) (*x402.SettleResponse, error)
}

// APIServer provides the HTTP REST API for the node
type APIServer struct {
	ctx         context.Context
	cancel      context.CancelFunc
	server      *http.Server
	listener    net.Listener
	port        string
	logger      *utils.LogsManager
	config      *utils.ConfigManager
	chain       ChainGateway
	facilitator Facilitator
	dbManager   *database.SQLiteManager
	startTime   time.Time
}

// NewAPIServer creates a new API server instance
func NewAPIServer(
	config *utils.ConfigManager,
	logger *utils.LogsManager,
	chain ChainGateway,
	facilitator Facilitator,
	dbManager *database.SQLiteManager,
) *APIServer {
	ctx, cancel := context.WithCancel(context.Background())

	return &APIServer{
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
		config:      config,
		chain:       chain,
		facilitator: facilitator,
		dbManager:   dbManager,
		startTime:   time.Now(),
	}
}

// Start binds the listener and starts serving requests
func (s *APIServer) Start() error {
	apiPort := s.config.GetConfigWithDefault("api_port", "4000")
	s.port = apiPort

	s.logger.Info(fmt.Sprintf("Starting API server on port %s", apiPort), "api")

	// Primary port plus fallbacks from config
	fallbackPortsStr := s.config.GetConfigWithDefault("api_fallback_ports", "4001,4002")
	ports := append([]string{apiPort}, parsePortList(fallbackPortsStr)...)

	var err error
	for _, port := range ports {
		addr := fmt.Sprintf(":%s", port)
		s.listener, err = net.Listen("tcp", addr)
		if err == nil {
			s.port = port
			s.logger.Info(fmt.Sprintf("API server bound to port %s", port), "api")
			break
		}
	}

	if s.listener == nil {
		return fmt.Errorf("failed to bind API server to any port: %v", err)
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	allowedOrigins := s.config.GetConfigSlice("allowed_origins", nil)
	handler := middleware.CORSMiddleware(allowedOrigins, mux)

	s.server = &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // settlement + mint can take a while
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error(fmt.Sprintf("API server error: %v", err), "api")
		}
	}()

	s.logger.Info("API server started successfully", "api")
	return nil
}

// registerRoutes sets up all HTTP routes
func (s *APIServer) registerRoutes(mux *http.ServeMux) {
	// Purchase endpoint, with a legacy alias without the /api prefix
	mux.HandleFunc("/api/purchase", s.requirePost(s.handlePurchase))
	mux.HandleFunc("/purchase", s.requirePost(s.handlePurchase))

	// KYC routes
	mux.HandleFunc("/kyc/approve", s.requirePost(s.handleApproveKYC))
	mux.HandleFunc("/api/kyc/status", s.handleKYCStatus)

	// Share balances
	mux.HandleFunc("/api/shares", s.handleShares)

	// Settlement ledger (reconciliation)
	mux.HandleFunc("/api/settlements", s.handleSettlements)

	mux.HandleFunc("/api/health", s.handleHealth)

	s.logger.Debug("API routes registered", "api")
}

func (s *APIServer) requirePost(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

// handleHealth returns API health status
func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","uptime":%d}`, int64(time.Since(s.startTime).Seconds()))
}

// Stop gracefully shuts down the API server
func (s *APIServer) Stop() error {
	s.logger.Info("Stopping API server", "api")
	s.cancel()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}

	return nil
}

// GetPort returns the port the server is listening on
func (s *APIServer) GetPort() string {
	return s.port
}

// parsePortList parses a comma-separated list of ports
func parsePortList(portList string) []string {
	if portList == "" {
		return []string{}
	}
	ports := strings.Split(portList, ",")
	result := make([]string, 0, len(ports))
	for _, port := range ports {
		port = strings.TrimSpace(port)
		if port != "" {
			result = append(result, port)
		}
	}
	return result
}
