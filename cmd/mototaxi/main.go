package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/example/mototaxi/internal/api"
	"github.com/example/mototaxi/internal/config"
	"github.com/example/mototaxi/internal/logging"
	"github.com/example/mototaxi/internal/models"
	"github.com/example/mototaxi/internal/session"
)

type app struct {
	cfg    config.ClientConfig
	client *api.Client
	store  *session.Store
	logger *slog.Logger
	ui     *ui

	// driverLoc is the position the driver loop reports; updated from the
	// menu, read from the background reporter.
	mu        sync.Mutex
	driverLoc models.Coord
	online    bool
	stopLoc   context.CancelFunc
}

func main() {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		logging.NewLogger("error", "text").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLoggerTo(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	store, err := session.Open(cfg.SessionFile, logger)
	if err != nil {
		logger.Error("cannot open session store", "path", cfg.SessionFile, "error", err)
		os.Exit(1)
	}

	a := &app{
		cfg:    cfg,
		store:  store,
		logger: logger,
		ui:     newUI(os.Stdin, os.Stdout),
	}
	a.client = api.New(cfg.BackendURL,
		api.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		api.WithTokens(store),
		api.WithUnauthorizedHook(store.ForceLogout),
		api.WithLogger(logger),
	)

	unsubscribe := store.Subscribe(func(ev session.Event) {
		if ev == session.EventForcedLogout {
			a.ui.Error("Your session expired. Please sign in again.")
		}
	})
	defer unsubscribe()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.run(ctx)
}

func (a *app) run(ctx context.Context) {
	a.ui.printf("mototaxi — %s", a.cfg.BackendURL)
	for ctx.Err() == nil {
		if !a.store.LoggedIn() {
			if !a.authMenu(ctx) {
				return
			}
			continue
		}
		if !a.store.TokenFresh(time.Now()) {
			a.ui.Info("Your session expired. Please sign in again.")
			_ = a.store.Clear()
			continue
		}
		if !a.homeMenu(ctx) {
			return
		}
	}
}

// authMenu returns false when the user quits or stdin closes.
func (a *app) authMenu(ctx context.Context) bool {
	switch a.ui.promptChoice("Welcome", []string{"Sign in", "Create account", "Quit"}) {
	case 0:
		a.login(ctx)
	case 1:
		a.register(ctx)
	default:
		return false
	}
	return true
}

func (a *app) login(ctx context.Context) {
	username := a.ui.promptString("Username")
	password := a.ui.promptString("Password")
	creds, err := a.client.Login(ctx, username, password)
	if err != nil {
		a.notifyFailure("Sign in failed", err)
		return
	}
	if err := a.store.SetCredentials(creds.Access, creds.Refresh, creds.User); err != nil {
		a.logger.Warn("session not persisted", "error", err)
	}
	a.ui.Info("Signed in as " + creds.User.Username)
}

func (a *app) register(ctx context.Context) {
	p := api.RegisterParams{
		Username:  a.ui.promptString("Username"),
		Password:  a.ui.promptString("Password"),
		FirstName: a.ui.promptString("First name"),
		LastName:  a.ui.promptString("Last name"),
		Phone:     a.ui.promptString("Phone"),
	}
	p.IsDriver = a.ui.Confirm("Account type", "Register as a driver?")
	if _, err := a.client.Register(ctx, p); err != nil {
		a.notifyFailure("Registration failed", err)
		return
	}
	a.ui.Info("Account created. You can sign in now.")
}

func (a *app) logout(ctx context.Context) {
	a.goOffline(ctx)
	if err := a.client.Logout(ctx); err != nil {
		a.logger.Warn("sign-out call failed", "error", err)
	}
	_ = a.store.Clear()
	a.ui.Info("Signed out")
}

// homeMenu returns false when the user quits or stdin closes.
func (a *app) homeMenu(ctx context.Context) bool {
	user := a.store.User()
	if user.IsDriver {
		return a.driverMenu(ctx)
	}
	switch a.ui.promptChoice("Home — "+user.Username, []string{
		"Request a ride",
		"My trips",
		"My ratings",
		"Toggle theme",
		"Sign out",
		"Quit",
	}) {
	case 0:
		a.requestRide(ctx)
	case 1:
		a.showTrips(ctx)
	case 2:
		a.showRatings(ctx, false)
	case 3:
		a.toggleTheme()
	case 4:
		a.logout(ctx)
	default:
		return false
	}
	return true
}

func (a *app) driverMenu(ctx context.Context) bool {
	user := a.store.User()
	onlineLabel := "Go online"
	if a.isOnline() {
		onlineLabel = "Go offline"
	}
	switch a.ui.promptChoice("Driver — "+user.Username, []string{
		onlineLabel,
		"Browse nearby requests",
		"My motos",
		"Register moto",
		"My trips",
		"Ratings received",
		"Sign out",
		"Quit",
	}) {
	case 0:
		if a.isOnline() {
			a.goOffline(ctx)
		} else {
			a.goOnline(ctx)
		}
	case 1:
		a.browseRequests(ctx)
	case 2:
		a.showMotos(ctx)
	case 3:
		a.registerMoto(ctx)
	case 4:
		a.showTrips(ctx)
	case 5:
		a.showRatings(ctx, true)
	case 6:
		a.logout(ctx)
	default:
		return false
	}
	return true
}

func (a *app) toggleTheme() {
	next := "dark"
	if a.store.Theme() == "dark" {
		next = "light"
	}
	if err := a.store.SetTheme(next); err != nil {
		a.logger.Warn("theme not persisted", "error", err)
	}
	a.ui.Info("Theme: " + next)
}

func (a *app) showTrips(ctx context.Context) {
	trips, err := a.client.MyTrips(ctx)
	if err != nil {
		a.notifyFailure("Could not load trips", err)
		return
	}
	if len(trips) == 0 {
		a.ui.Info("No trips yet")
		return
	}
	for _, t := range trips {
		price := t.AgreedPrice
		if t.FinalPrice != nil {
			price = *t.FinalPrice
		}
		a.ui.printf("  %s  %-20s  $%.2f  %s -> %s",
			t.CreatedAt.Format("2006-01-02 15:04"), t.Status, price,
			t.Origin.Address, t.Destination.Address)
	}
}

func (a *app) showRatings(ctx context.Context, received bool) {
	var (
		ratings []models.Rating
		err     error
	)
	if received {
		ratings, err = a.client.ReceivedRatings(ctx)
	} else {
		ratings, err = a.client.MyRatings(ctx)
	}
	if err != nil {
		a.notifyFailure("Could not load ratings", err)
		return
	}
	if len(ratings) == 0 {
		a.ui.Info("No ratings yet")
		return
	}
	for _, r := range ratings {
		a.ui.printf("  %d/5  %s", r.Score, r.Comment)
	}
}

// notifyFailure shows the backend's rejection message when there is one and
// a generic line otherwise.
func (a *app) notifyFailure(fallback string, err error) {
	var rej *api.Error
	if errors.As(err, &rej) && rej.Message != "" {
		a.ui.Error(rej.Message)
		return
	}
	a.logger.Warn(fallback, "error", err)
	a.ui.Error(fallback)
}
