package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/Alijeyrad/carevisit_backend/config"
	"github.com/Alijeyrad/carevisit_backend/internal/apiclient"
	"github.com/Alijeyrad/carevisit_backend/internal/calendar"
	"github.com/Alijeyrad/carevisit_backend/internal/model"
	"github.com/Alijeyrad/carevisit_backend/internal/realtime"
	"github.com/Alijeyrad/carevisit_backend/internal/tui"
	"github.com/Alijeyrad/carevisit_backend/pkg/logs"
)

type watchFlags struct {
	demo    bool
	date    string
	view    string
	staffID string
	apiURL  string
}

func NewWatchCommand() *cobra.Command {
	var f watchFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Open the facility calendar in the terminal",
		Long: `Open the calendar of the configured staff member's facility.

Visits changed in other sessions of the same facility are picked up through
NATS when nats.url is set. With --demo the calendar runs against an in-memory
demo facility and needs neither the API nor NATS.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return err
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return err
			}

			// the program owns the terminal, so logs only go to file and Loki
			logger, flush := logs.New(cfg, logs.Options{NoStdout: true})
			defer flush()
			slog.SetDefault(logger)

			return runWatch(cmd.Context(), cfg, f, logger)
		},
	}

	cmd.Flags().BoolVar(&f.demo, "demo", false, "Run against the built-in demo facility")
	cmd.Flags().StringVar(&f.date, "date", "", "Reference date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.view, "view", "", "Initial view: month, week, day or list")
	cmd.Flags().StringVar(&f.staffID, "staff-id", "", "Staff member to act as (overrides calendar.staff_id)")
	cmd.Flags().StringVar(&f.apiURL, "api-url", "", "Base URL of the schedule API (overrides calendar.api_url)")

	return cmd
}

// session is what a watch needs from either mode.
type session struct {
	handlers   calendar.Handlers
	subscriber calendar.Subscriber
	scope      model.Scope
	title      string
	close      func()
	// scopeErr keeps the session unbound; the calendar shows it instead of
	// visits.
	scopeErr error
}

func runWatch(ctx context.Context, cfg *config.Config, f watchFlags, logger *slog.Logger) error {
	loc := cfg.Calendar.Location()

	ref := time.Now().In(loc)
	if f.date != "" {
		d, err := calendar.ParseDate(f.date)
		if err != nil {
			return err
		}
		ref = d
	}
	view := f.view
	if view == "" {
		view = cfg.Calendar.DefaultView
	}

	var (
		s   session
		err error
	)
	if f.demo {
		s, err = demoSession()
	} else {
		s, err = liveSession(ctx, cfg, f, logger)
	}
	if err != nil {
		return err
	}
	defer s.close()

	ctrl := calendar.NewController(calendar.ControllerConfig{
		Handlers:      s.handlers,
		Subscriber:    s.subscriber,
		ReferenceDate: ref,
		View:          calendar.ParseViewMode(view),
		Logger:        logger,
	})
	defer ctrl.Close()

	p := tea.NewProgram(tui.New(tui.Options{
		Controller: ctrl,
		Title:      s.title,
		Location:   loc,
		Timeout:    cfg.Calendar.RequestTimeout(),
		ScopeErr:   s.scopeErr,
	}), tea.WithAltScreen(), tea.WithContext(ctx))

	if s.scopeErr != nil {
		logger.Warn("calendar session started without a facility", "staff_id", s.scope.StaffID, "error", s.scopeErr)
		_, err = p.Run()
		return err
	}

	// signals are handed to the update loop, which refetches
	if err := ctrl.Bind(s.scope, func(sig model.Signal) {
		p.Send(tui.SignalMsg{Signal: sig})
	}); err != nil {
		return err
	}

	logger.Info("calendar session started",
		"facility_id", s.scope.FacilityID,
		"staff_id", s.scope.StaffID,
		"demo", f.demo,
	)
	_, err = p.Run()
	return err
}

func demoSession() (session, error) {
	d, err := apiclient.NewDemo(time.Now())
	if err != nil {
		return session{}, err
	}
	return session{
		handlers: d,
		scope:    d.Scope(),
		title:    "Demo facility",
		close:    func() {},
	}, nil
}

func liveSession(ctx context.Context, cfg *config.Config, f watchFlags, logger *slog.Logger) (session, error) {
	staffID := f.staffID
	if staffID == "" {
		staffID = cfg.Calendar.StaffID
	}
	apiURL := f.apiURL
	if apiURL == "" {
		apiURL = cfg.Calendar.APIURL
	}

	s := session{close: func() {}}
	liveCfg := apiclient.LiveConfig{
		BaseURL: apiURL,
		StaffID: staffID,
		Timeout: cfg.Calendar.RequestTimeout(),
		Logger:  logger,
	}

	if cfg.Nats.URL != "" {
		nc, err := nats.Connect(cfg.Nats.URL, nats.Name("carevisit-calendar"), nats.MaxReconnects(-1))
		if err != nil {
			// realtime is optional, the calendar still refreshes on demand
			logger.Warn("calendar: NATS unavailable, realtime disabled", "error", err)
		} else {
			s.close = func() { _ = nc.Drain() }
			s.subscriber = realtime.NewSubscriber(nc, logger)
			liveCfg.Notifier = realtime.NewNotifier(nc, logger)
		}
	}

	live, err := apiclient.NewLive(liveCfg)
	if err != nil {
		s.close()
		return session{}, err
	}

	rctx, cancel := context.WithTimeout(ctx, cfg.Calendar.RequestTimeout())
	defer cancel()
	scope, err := live.ResolveScope(rctx)
	switch {
	case errors.Is(err, calendar.ErrNoFacility):
		// the calendar explains this itself
		s.handlers = live
		s.scope = model.Scope{StaffID: staffID}
		s.scopeErr = err
		s.title = "Staff " + shortID(staffID)
		return s, nil
	case err != nil:
		s.close()
		return session{}, fmt.Errorf("resolve facility of staff %s: %w", staffID, err)
	}

	s.handlers = live
	s.scope = scope
	s.title = "Facility " + shortID(scope.FacilityID)
	return s, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
