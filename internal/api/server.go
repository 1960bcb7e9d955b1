package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pocketbank/internal/game"
	"pocketbank/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	log  *slog.Logger
	game *game.Service
	mux  *chi.Mux
}

func New(logger *slog.Logger, gameSvc *game.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		log:  logger,
		game: gameSvc,
		mux:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(observeRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/users", s.handleRegisterUser)
		r.Get("/users/{id}", s.handleGetUser)
		r.Put("/users/{id}/balance", s.handleSetBalance)
		r.Get("/users/{id}/transactions", s.handleListTransactions)

		r.Get("/marketplace", s.handleListMarket)
		r.Post("/marketplace", s.handleCreateMarketListing)
		r.Post("/marketplace/{id}/buy", s.handleBuyMarket)

		r.Get("/realestate", s.handleListEstate)
		r.Post("/realestate", s.handleCreateEstateListing)
		r.Post("/realestate/{id}/buy", s.handleBuyEstate)

		r.Get("/deposits", s.handleListDeposits)
		r.Post("/deposits", s.handleCreateDeposit)
	})
}

func observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		pattern := chi.RouteContext(r.Context()).RoutePattern()
		metrics.ObserveRequest(r.Method, pattern, time.Since(start))
	})
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := s.game.RegisterUser(r.Context(), in.Username)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := s.game.GetUser(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var in struct {
		Balance int64 `json:"balance"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.SetBalance(r.Context(), userID, in.Balance); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	out, err := s.game.ListTransactions(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleListMarket(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.ListMarket(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (s *Server) handleCreateMarketListing(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SellerID    int64  `json:"seller_id"`
		Name        string `json:"name"`
		Price       int64  `json:"price"`
		Description string `json:"description"`
		ImageURL    string `json:"image_url"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	listing, err := s.game.CreateMarketListing(r.Context(), game.CreateMarketListingInput{
		SellerID:       in.SellerID,
		Name:           in.Name,
		Price:          in.Price,
		Description:    in.Description,
		ImageURL:       in.ImageURL,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

func (s *Server) handleBuyMarket(w http.ResponseWriter, r *http.Request) {
	s.handleBuy(w, r, game.KindMarket)
}

func (s *Server) handleBuyEstate(w http.ResponseWriter, r *http.Request) {
	s.handleBuy(w, r, game.KindEstate)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request, kind game.ListingKind) {
	listingID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	var in struct {
		BuyerID int64 `json:"buyer_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, err = s.game.Settle(r.Context(), game.SettleInput{
		BuyerID:        in.BuyerID,
		ListingID:      listingID,
		Kind:           kind,
		IdempotencyKey: idempotencyKey(r),
	})
	txKind := game.TxKindFor(kind, false)
	if err != nil {
		metrics.RecordSettlement(txKind, "error")
		s.log.Warn("purchase rejected",
			"kind", txKind, "listing_id", listingID, "buyer_id", in.BuyerID, "err", err)
		writeDomainError(w, err)
		return
	}
	metrics.RecordSettlement(txKind, "ok")
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleListEstate(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.ListEstate(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"properties": out})
}

func (s *Server) handleCreateEstateListing(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SellerID    int64   `json:"seller_id"`
		Title       string  `json:"title"`
		Price       int64   `json:"price"`
		Address     string  `json:"address"`
		Rooms       int32   `json:"rooms"`
		Area        float64 `json:"area"`
		Description string  `json:"description"`
		ImageURL    string  `json:"image_url"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	listing, err := s.game.CreateEstateListing(r.Context(), game.CreateEstateListingInput{
		SellerID:       in.SellerID,
		Title:          in.Title,
		Price:          in.Price,
		Address:        in.Address,
		Rooms:          in.Rooms,
		Area:           in.Area,
		Description:    in.Description,
		ImageURL:       in.ImageURL,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

func (s *Server) handleListDeposits(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("user_id")), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	out, err := s.game.ListDeposits(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deposits": out})
}

func (s *Server) handleCreateDeposit(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID     int64   `json:"user_id"`
		Name       string  `json:"deposit_name"`
		Amount     int64   `json:"amount"`
		Rate       float64 `json:"rate"`
		TermMonths int32   `json:"term_months"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dep, err := s.game.CreateDeposit(r.Context(), game.CreateDepositInput{
		UserID:         in.UserID,
		Name:           in.Name,
		Amount:         in.Amount,
		Rate:           in.Rate,
		TermMonths:     in.TermMonths,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dep)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrInvalidInput),
		errors.Is(err, game.ErrListingUnavailable),
		errors.Is(err, game.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrUsernameTaken),
		errors.Is(err, game.ErrDuplicateIdempotency),
		errors.Is(err, game.ErrTxConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func pathID(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		return 0, errors.New("invalid id")
	}
	return v, nil
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}
