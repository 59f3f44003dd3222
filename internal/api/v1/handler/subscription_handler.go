package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

type SubscriptionHandler struct {
	subService    service.SubscriptionService
	stripeService *service.StripeService
	validate      *validator.Validate
}

func NewSubscriptionHandler(subService service.SubscriptionService, stripeService *service.StripeService, v *validator.Validate) *SubscriptionHandler {
	return &SubscriptionHandler{subService: subService, stripeService: stripeService, validate: v}
}

// RegisterRoutes mounts v1 subscription routes. The webhook endpoint is
// authenticated by Stripe signature, not by JWT, and is not rate limited so
// Stripe's retries are never throttled.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMw, publicMw func(http.Handler) http.Handler) {
	mux.Handle("/subscription/plans", publicMw(http.HandlerFunc(h.getPlans)))
	mux.Handle("/subscription/checkout", authMw(http.HandlerFunc(h.createCheckout)))
	mux.Handle("/subscription/portal", authMw(http.HandlerFunc(h.createPortal)))
	mux.Handle("/subscription/cancel", authMw(http.HandlerFunc(h.cancel)))
	mux.HandleFunc("/subscription/webhook", h.webhook)
}

func (h *SubscriptionHandler) getPlans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	plans, err := h.subService.GetPlans(r.Context())
	if err != nil {
		http.Error(w, "Failed to list plans: "+err.Error(), http.StatusInternalServerError)
		return
	}

	planDTOs := make([]dto.PlanResponseDTO, 0, len(plans))
	for i := range plans {
		planDTOs = append(planDTOs, dto.NewPlanResponseDTO(&plans[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(planDTOs)
}

func (h *SubscriptionHandler) createCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	url, err := h.stripeService.CreateCheckoutSession(r.Context(), userID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPlanNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Failed to create checkout session: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.CheckoutSessionResponseDTO{URL: url})
}

func (h *SubscriptionHandler) createPortal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	url, err := h.stripeService.CreatePortalSession(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSubscription) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to create portal session: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.CheckoutSessionResponseDTO{URL: url})
}

func (h *SubscriptionHandler) cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := h.stripeService.CancelAtPeriodEnd(r.Context(), userID); err != nil {
		if errors.Is(err, service.ErrNoActiveSubscription) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to cancel subscription: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeMessage(w, http.StatusOK, "subscription will be cancelled at the end of the billing period")
}

func (h *SubscriptionHandler) webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	h.stripeService.HandleWebhook(w, r)
}
