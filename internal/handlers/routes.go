package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevasangh/portal-api/internal/auth"
)

type Handlers struct {
	Activities    *ActivityHandler
	Registrations *RegistrationHandler
	Payments      *PaymentHandler
	Donations     *DonationHandler
	Pledges       *PledgeHandler
	Logistics     *LogisticsHandler
	Exports       *ExportHandler
}

func RegisterRoutes(r *chi.Mux, authHandler *auth.AuthHandler, h Handlers) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	config := huma.DefaultConfig("Sangh Portal API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: "auth_token",
		},
	}
	withAuth := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"cookieAuth": {}}}
	}

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Get("/auth/google/login", authHandler.HandleLogin)
	r.Get("/auth/google/callback", authHandler.HandleCallback)

	// The gateway authenticates its callback with its signature, not
	// a session.
	public := humachi.New(r, config)
	huma.Post(public, "/payments/callback", h.Payments.HandleGatewayCallback)
	huma.Get(public, "/activities", h.Activities.HandleList)

	// Member routes
	r.Group(func(r chi.Router) {
		r.Use(authHandler.AuthMiddleware)
		api := humachi.New(r, config)

		huma.Get(api, "/activities/{activityID}/quote", h.Registrations.HandleQuote, withAuth)
		huma.Post(api, "/registrations", h.Registrations.HandleRegister, withAuth)
		huma.Get(api, "/registrations", h.Registrations.HandleMyRegistrations, withAuth)
		huma.Post(api, "/registrations/{id}/cancel", h.Registrations.HandleCancel, withAuth)
		huma.Get(api, "/activities/{activityID}/logistics", h.Logistics.HandleMemberView, withAuth)

		huma.Post(api, "/donations/declare", h.Donations.HandleDeclare, withAuth)
		huma.Post(api, "/donations/pay", h.Donations.HandleGatewayDonation, withAuth)
		huma.Get(api, "/donations", h.Donations.HandleMyDonations, withAuth)

		huma.Post(api, "/pledges", h.Pledges.HandleCreate, withAuth)
		huma.Get(api, "/pledges", h.Pledges.HandleMyPledges, withAuth)
		huma.Post(api, "/pledges/{id}/{action}", h.Pledges.HandleAction, withAuth)
	})

	// Staff routes
	r.Group(func(r chi.Router) {
		r.Use(authHandler.AuthMiddleware)
		r.Use(authHandler.StaffMiddleware)
		api := humachi.New(r, config)

		huma.Post(api, "/admin/activities", h.Activities.HandleCreate, withAuth)
		huma.Patch(api, "/admin/activities/{id}", h.Activities.HandleUpdate, withAuth)
		huma.Get(api, "/admin/activities/{activityID}/registrations", h.Registrations.HandleActivityRegistrations, withAuth)

		huma.Post(api, "/admin/donations/{id}/verify", h.Donations.HandleVerify, withAuth)
		huma.Post(api, "/admin/donations/{id}/reject", h.Donations.HandleReject, withAuth)
		huma.Get(api, "/admin/donations", h.Donations.HandleLedger, withAuth)

		huma.Put(api, "/admin/registrations/{registrationID}/logistics", h.Logistics.HandleUpsert, withAuth)
		huma.Get(api, "/admin/registrations/{registrationID}/logistics", h.Logistics.HandleForRegistration, withAuth)
		huma.Post(api, "/admin/logistics/{id}/visibility", h.Logistics.HandleSetVisibility, withAuth)

		r.Get("/admin/export/registrations.csv", h.Exports.HandleRegistrationsCSV)
		r.Get("/admin/export/donations.csv", h.Exports.HandleDonationsCSV)
	})
}
