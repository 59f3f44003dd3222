package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"app/internal/config"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	billingsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	customerpkg "github.com/stripe/stripe-go/v82/customer"
	subscriptionpkg "github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
)

var ErrNoActiveSubscription = errors.New("no active subscription")

// StripeService manages Stripe integration
type StripeService struct {
	cfg      *config.Config
	userRepo repository.UserRepository
	planRepo repository.PlanRepository
	subSvc   SubscriptionService
	logger   zerolog.Logger
}

// NewStripeService initializes Stripe key and returns service with a scoped logger
func NewStripeService(cfg *config.Config, userRepo repository.UserRepository, planRepo repository.PlanRepository, subSvc SubscriptionService, logger zerolog.Logger) *StripeService {
	stripe.Key = cfg.StripeSecretKey
	lg := logger.With().Str("service", "StripeService").Logger()
	return &StripeService{cfg: cfg, userRepo: userRepo, planRepo: planRepo, subSvc: subSvc, logger: lg}
}

// getUserIDFromEvent resolves a user ID from webhook metadata or, failing
// that, the Stripe customer ID.
func (s *StripeService) getUserIDFromEvent(ctx context.Context, metadata map[string]string, customerID string) (int64, error) {
	if raw, ok := metadata["user_id"]; ok && raw != "" {
		return strconv.ParseInt(raw, 10, 64)
	}
	if customerID == "" {
		return 0, errors.New("cannot determine user: missing metadata and customer id")
	}
	s.logger.Warn().Str("stripe_customer_id", customerID).Msg("Missing user_id metadata; looking up user by customer ID")
	u, err := s.userRepo.GetUserByStripeCustomerID(ctx, customerID)
	if err != nil {
		return 0, fmt.Errorf("failed to lookup user by Stripe customer ID: %w", err)
	}
	if u == nil {
		return 0, fmt.Errorf("no user found for customer ID: %s", customerID)
	}
	return u.ID, nil
}

// GetOrCreateCustomer ensures a Stripe Customer exists for a user
func (s *StripeService) GetOrCreateCustomer(ctx context.Context, user *model.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}
	return s.CreateCustomer(ctx, user)
}

// CreateCustomer creates a new Stripe customer for a user
func (s *StripeService) CreateCustomer(ctx context.Context, user *model.User) (string, error) {
	params := &stripe.CustomerParams{
		Email:    stripe.String(user.Email),
		Name:     stripe.String(user.Username),
		Metadata: map[string]string{"user_id": strconv.FormatInt(user.ID, 10)},
	}
	cust, err := customerpkg.New(params)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to create Stripe customer")
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	if err := s.userRepo.UpdateStripeCustomerID(ctx, user.ID, cust.ID); err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to store stripe customer id")
		return "", fmt.Errorf("store stripe customer id: %w", err)
	}
	return cust.ID, nil
}

// CreateCheckoutSession creates a Stripe Checkout session for a plan
func (s *StripeService) CreateCheckoutSession(ctx context.Context, userID int64, planID string) (string, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if user == nil {
		return "", ErrUserNotFound
	}

	plan, err := s.planRepo.GetPlanByID(ctx, planID)
	if err != nil {
		return "", err
	}
	if plan == nil || plan.StripePriceID == nil || *plan.StripePriceID == "" {
		return "", fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}

	customerID, err := s.GetOrCreateCustomer(ctx, user)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to get or create Stripe customer for checkout session")
		return "", err
	}

	sessParams := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{{Price: stripe.String(*plan.StripePriceID), Quantity: stripe.Int64(1)}},
		Mode:               stripe.String(stripe.CheckoutSessionModeSubscription),
		SuccessURL:         stripe.String(s.cfg.StripePortalReturnURL + "?status=success"),
		CancelURL:          stripe.String(s.cfg.StripePortalReturnURL + "?status=cancel"),
		Metadata:           map[string]string{"user_id": strconv.FormatInt(userID, 10)},
	}
	sess, err := checkoutsession.New(sessParams)
	if err != nil {
		s.logger.Error().Err(err).Str("plan_id", planID).Msg("Failed to create Stripe checkout session")
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreatePortalSession creates a Stripe Customer Portal session
func (s *StripeService) CreatePortalSession(ctx context.Context, userID int64) (string, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if user == nil || user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", ErrNoActiveSubscription
	}
	params := &stripe.BillingPortalSessionParams{Customer: stripe.String(*user.StripeCustomerID), ReturnURL: stripe.String(s.cfg.StripePortalReturnURL)}
	sess, err := billingsession.New(params)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to create Stripe billing portal session")
		return "", fmt.Errorf("create billing portal session: %w", err)
	}
	return sess.URL, nil
}

// CancelAtPeriodEnd schedules the user's active subscriptions for
// cancellation at the end of the current billing period.
func (s *StripeService) CancelAtPeriodEnd(ctx context.Context, userID int64) error {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if user == nil || user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return ErrNoActiveSubscription
	}

	listParams := &stripe.SubscriptionListParams{Customer: stripe.String(*user.StripeCustomerID), Status: stripe.String("active")}
	iter := subscriptionpkg.List(listParams)
	cancelled := 0
	for iter.Next() {
		sub := iter.Subscription()
		if _, err := subscriptionpkg.Update(sub.ID, &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}); err != nil {
			s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("Failed to schedule subscription cancellation")
			return fmt.Errorf("cancel subscription: %w", err)
		}
		cancelled++
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	if cancelled == 0 {
		return ErrNoActiveSubscription
	}

	// Reflect the pending cancellation immediately; the webhook confirms it.
	return s.userRepo.UpdateSubscription(ctx, userID, "cancelled", user.PlanID, user.SubscriptionStart, user.SubscriptionEnd)
}

// HandleWebhook processes Stripe webhook events
func (s *StripeService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sig, s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}
	s.logger.Info().Str("event_type", string(event.Type)).Msg("Stripe webhook received")

	ctx := r.Context()
	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			s.logger.Error().Err(err).Msg("Invalid checkout.session data")
			http.Error(w, "invalid checkout.session data", http.StatusBadRequest)
			return
		}
		if cs.Subscription == nil {
			s.logger.Info().Str("session_id", cs.ID).Msg("Checkout session has no subscription, skipping")
			w.WriteHeader(http.StatusOK)
			return
		}
		subObj, err := subscriptionpkg.Get(cs.Subscription.ID, nil)
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", cs.Subscription.ID).Msg("Failed to fetch subscription details")
			http.Error(w, "failed to fetch subscription details", http.StatusInternalServerError)
			return
		}
		priceID, start, end, err := subscriptionPeriod(subObj)
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", subObj.ID).Msg("Could not read subscription item")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		userID, err := s.getUserIDFromEvent(ctx, cs.Metadata, customerIDOf(cs.Customer))
		if err != nil {
			s.logger.Error().Err(err).Str("session_id", cs.ID).Msg("Failed to determine user ID from checkout session")
			http.Error(w, "failed to identify user", http.StatusBadRequest)
			return
		}
		if err := s.subSvc.ApplyStripeSubscription(ctx, userID, priceID, "active", start, end); err != nil {
			s.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to save subscription on checkout.session.completed")
			http.Error(w, "failed to save subscription", http.StatusInternalServerError)
			return
		}
	case "invoice.payment_succeeded", "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			s.logger.Error().Err(err).Msg("Invalid invoice payload")
			http.Error(w, "invalid invoice data", http.StatusBadRequest)
			return
		}
		userID, err := s.getUserIDFromEvent(ctx, invoice.Metadata, customerIDOf(invoice.Customer))
		if err != nil {
			s.logger.Error().Err(err).Str("invoice_id", invoice.ID).Msg("Failed to determine user ID from invoice")
			http.Error(w, "failed to identify user", http.StatusInternalServerError)
			return
		}
		subID := invoiceSubscriptionID(&invoice)
		if subID == "" {
			s.logger.Info().Str("invoice_id", invoice.ID).Msg("Invoice has no subscription, skipping subscription update")
			w.WriteHeader(http.StatusOK)
			return
		}
		subObj, err := subscriptionpkg.Get(subID, nil)
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", subID).Msg("Failed to fetch subscription for price ID")
			http.Error(w, "failed to fetch subscription details", http.StatusInternalServerError)
			return
		}
		priceID, start, end, err := subscriptionPeriod(subObj)
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", subID).Msg("Could not read subscription item")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		status := "active"
		if event.Type == "invoice.payment_failed" {
			status = "past_due"
		}
		if err := s.subSvc.ApplyStripeSubscription(ctx, userID, priceID, status, start, end); err != nil {
			s.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to update subscription from invoice event")
			http.Error(w, "failed to update subscription", http.StatusInternalServerError)
			return
		}
	case "customer.subscription.updated":
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			s.logger.Error().Err(err).Msg("Invalid customer.subscription.updated payload")
			http.Error(w, "invalid subscription data", http.StatusBadRequest)
			return
		}
		status := string(ss.Status)
		if ss.CancelAtPeriodEnd || ss.Status == stripe.SubscriptionStatusCanceled {
			status = "cancelled"
		}
		priceID, start, end, err := subscriptionPeriod(&ss)
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", ss.ID).Msg("Could not read subscription item")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		userID, err := s.getUserIDFromEvent(ctx, ss.Metadata, customerIDOf(ss.Customer))
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", ss.ID).Msg("Failed to determine user ID from subscription")
			http.Error(w, "failed to identify user", http.StatusInternalServerError)
			return
		}
		if err := s.subSvc.ApplyStripeSubscription(ctx, userID, priceID, status, start, end); err != nil {
			s.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to update subscription on customer.subscription.updated")
			http.Error(w, "failed to update subscription", http.StatusInternalServerError)
			return
		}
	case "customer.subscription.deleted":
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			s.logger.Error().Err(err).Msg("Invalid customer.subscription.deleted payload")
			http.Error(w, "invalid subscription data", http.StatusBadRequest)
			return
		}
		userID, err := s.getUserIDFromEvent(ctx, ss.Metadata, customerIDOf(ss.Customer))
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", ss.ID).Msg("Failed to determine user ID from subscription")
			http.Error(w, "failed to identify user", http.StatusInternalServerError)
			return
		}
		if err := s.subSvc.DowngradeToFree(ctx, userID); err != nil {
			s.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to downgrade subscription on customer.subscription.deleted")
			http.Error(w, "failed to downgrade subscription", http.StatusInternalServerError)
			return
		}
	default:
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Unhandled Stripe webhook event")
	}
	w.WriteHeader(http.StatusOK)
}

// subscriptionPeriod extracts the price ID and current period bounds from the
// first subscription item.
func subscriptionPeriod(sub *stripe.Subscription) (string, time.Time, time.Time, error) {
	if len(sub.Items.Data) == 0 {
		return "", time.Time{}, time.Time{}, errors.New("subscription has no items")
	}
	item := sub.Items.Data[0]
	if item.Price == nil || item.Price.ID == "" {
		return "", time.Time{}, time.Time{}, errors.New("could not determine price ID")
	}
	return item.Price.ID, time.Unix(item.CurrentPeriodStart, 0), time.Unix(item.CurrentPeriodEnd, 0), nil
}

func customerIDOf(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func invoiceSubscriptionID(invoice *stripe.Invoice) string {
	if invoice.Lines == nil {
		return ""
	}
	for _, line := range invoice.Lines.Data {
		if line.Subscription != nil && line.Subscription.ID != "" {
			return line.Subscription.ID
		}
	}
	return ""
}
