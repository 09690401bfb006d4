package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"kairon/internal/api"
	"kairon/internal/appointments"
	"kairon/internal/calendar"
	"kairon/internal/models"
	"kairon/internal/wizard"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"services":     runServices,
	"slots":        runSlots,
	"book":         runBook,
	"appointments": runAppointments,
	"status":       runStatus,
	"calendar":     runCalendar,
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func parseDateFlag(raw string) (models.Date, error) {
	if raw == "" {
		return models.Date{}, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	return d, nil
}

func runServices(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("services", a.out)
	professionalID := fs.String("professional", "", "only services this professional performs")
	all := fs.Bool("all", false, "include services not bookable online")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	services, err := a.client.ListServices(ctx, *professionalID)
	if err != nil {
		return errors.New(api.UserMessage(err))
	}
	if !*all {
		services = models.OnlineServices(services)
	}
	if len(services) == 0 {
		fmt.Fprintln(a.out, "No services available.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDURATION\tPRICE\tONLINE")
	for _, s := range services {
		fmt.Fprintf(tw, "%s\t%s\t%d min\t%.2f\t%t\n", s.ID, s.Name, s.DurationMinutes, s.Price, s.OnlineBooking)
	}
	return tw.Flush()
}

func runSlots(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("slots", a.out)
	serviceID := fs.String("service", "", "service id")
	professionalID := fs.String("professional", "", "professional id")
	rawDate := fs.String("date", "", "date, YYYY-MM-DD")
	mock := fs.Bool("mock", false, "use the fixed placeholder slots")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	date, err := parseDateFlag(*rawDate)
	if err != nil {
		return err
	}

	list, err := a.resolver(*mock).Resolve(ctx, *serviceID, *professionalID, date)
	if err != nil {
		return errors.New(api.UserMessage(err))
	}
	printSlots(a.out, list)
	return nil
}

func printSlots(out io.Writer, list []models.TimeSlot) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No time slots on this date.")
		return
	}
	for _, s := range list {
		mark := "free"
		if !s.Available {
			mark = "taken"
		}
		fmt.Fprintf(out, "%s  %s\n", s.Time, mark)
	}
}

func runBook(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("book", a.out)
	serviceID := fs.String("service", "", "service id")
	professionalID := fs.String("professional", "", "professional id")
	rawDate := fs.String("date", "", "date, YYYY-MM-DD")
	slot := fs.String("time", "", "time slot, HH:MM")
	name := fs.String("name", "", "client name")
	email := fs.String("email", "", "client email")
	phone := fs.String("phone", "", "client phone")
	notes := fs.String("notes", "", "notes for the professional")
	sessionID := fs.String("session", "", "resume the stored draft of this wizard session")
	authenticated := fs.Bool("auth", false, "book as the configured professional instead of the public endpoint")
	mock := fs.Bool("mock", false, "use the fixed placeholder slots")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	date, err := parseDateFlag(*rawDate)
	if err != nil {
		return err
	}

	var submitter wizard.Submitter = wizard.NewPublicSubmitter(a.client)
	if *authenticated {
		companyID, err := a.session.Company()
		if err != nil {
			return err
		}
		submitter = wizard.NewAuthenticatedSubmitter(a.client, companyID)
	}

	opts := []wizard.Option{
		wizard.WithDrafts(a.drafts),
		wizard.WithEvents(a.bus),
		wizard.WithLogger(a.logger),
	}
	if *sessionID != "" {
		opts = append(opts, wizard.WithSessionID(*sessionID))
	}
	if *serviceID != "" {
		opts = append(opts, wizard.WithServiceID(*serviceID))
	}
	w := wizard.New(a.client, a.resolver(*mock), submitter, opts...)
	defer w.Close()

	if *sessionID != "" {
		resumed, err := w.Resume(ctx)
		if err != nil {
			return err
		}
		if resumed {
			fmt.Fprintf(a.out, "Resumed draft %s at step %s.\n", *sessionID, w.Step())
		}
	}
	if err := w.LoadOfferings(ctx); err != nil {
		return errors.New(api.UserMessage(err))
	}

	fail := func(err error) error {
		var verr wizard.ValidationErrors
		if errors.As(err, &verr) {
			fmt.Fprintln(a.out, "Please fix the following:")
			fields := make([]string, 0, len(verr))
			for field := range verr {
				fields = append(fields, field)
			}
			sort.Strings(fields)
			for _, field := range fields {
				fmt.Fprintf(a.out, "  %s: %s\n", field, verr[field])
			}
			fmt.Fprintf(a.out, "Draft saved, resume with -session %s\n", w.Draft().SessionID)
		}
		return err
	}

	if w.Step() == wizard.StepSelectOffering {
		if *serviceID != "" {
			if err := w.SelectService(ctx, *serviceID); err != nil {
				return fail(err)
			}
		}
		if *professionalID != "" {
			if err := w.SelectProfessional(ctx, *professionalID); err != nil {
				return fail(err)
			}
		}
		if err := w.Continue(ctx); err != nil {
			return fail(err)
		}
	}

	if w.Step() == wizard.StepSelectDateTime {
		if date.IsZero() {
			date = w.Draft().Date
		}
		list, err := w.SelectDate(ctx, date)
		if err != nil {
			return fail(err)
		}
		chosen := pick(*slot, w.Draft().Time)
		if chosen == "" {
			printSlots(a.out, list)
			return fail(wizard.ValidationErrors{wizard.FieldTime: "select a time"})
		}
		if err := w.SelectTime(ctx, chosen); err != nil {
			printSlots(a.out, list)
			return fail(err)
		}
		if err := w.Continue(ctx); err != nil {
			return fail(err)
		}
	}

	d := w.Draft()
	if err := w.SetClientDetails(ctx, pick(*name, d.ClientName), pick(*email, d.ClientEmail), pick(*phone, d.ClientPhone), pick(*notes, d.Notes)); err != nil {
		return fail(err)
	}

	appt, err := w.Confirm(ctx)
	if err != nil {
		var subErr *wizard.SubmitError
		if errors.As(err, &subErr) {
			fmt.Fprintf(a.out, "Booking failed: %s\n", subErr.Message)
			fmt.Fprintf(a.out, "Draft saved, resume with -session %s\n", w.Draft().SessionID)
			return err
		}
		return fail(err)
	}

	fmt.Fprintf(a.out, "Booked %s with %s on %s.\n", appt.ID, appt.Professional.Name, appt.StartTime.In(a.cfg.Booking.Location()).Format("2006-01-02 15:04"))
	return nil
}

func pick(flagValue, stored string) string {
	if flagValue != "" {
		return flagValue
	}
	return stored
}

func appointmentFilter(a *app, fs *flag.FlagSet) func() (models.AppointmentFilter, error) {
	rawDate := fs.String("date", "", "only this date, YYYY-MM-DD")
	professionalID := fs.String("professional", "", "only this professional")
	status := fs.String("status", "", "only this status")
	return func() (models.AppointmentFilter, error) {
		date, err := parseDateFlag(*rawDate)
		if err != nil {
			return models.AppointmentFilter{}, err
		}
		st := models.AppointmentStatus(strings.ToUpper(strings.TrimSpace(*status)))
		if st != "" && !st.Known() {
			return models.AppointmentFilter{}, fmt.Errorf("%w: unknown status %q", errUsage, *status)
		}
		return models.AppointmentFilter{
			CompanyID:      a.session.CompanyID,
			ProfessionalID: *professionalID,
			Date:           date,
			Status:         st,
		}, nil
	}
}

func runAppointments(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("appointments", a.out)
	filter := appointmentFilter(a, fs)
	byProfessional := fs.Bool("by-professional", false, "print stats per professional")
	byDay := fs.Bool("by-day", false, "print revenue per day")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	f, err := filter()
	if err != nil {
		return err
	}

	store := appointments.NewStore(a.client, a.bus, a.logger)
	store.Load(ctx, f)
	if err := store.LoadErr(); err != nil {
		fmt.Fprintf(a.out, "Could not load appointments: %s\n", api.UserMessage(err))
	}

	list := store.Appointments()
	loc := a.cfg.Booking.Location()
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tCLIENT\tPROFESSIONAL\tSTATUS\tPRICE")
	for _, ap := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\n",
			ap.ID, ap.StartTime.In(loc).Format("2006-01-02 15:04"), ap.Client.Name, ap.Professional.Name, ap.Status, ap.ChargedPrice())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	st := store.Stats()
	fmt.Fprintf(a.out, "\nTotal %d: pending %d, confirmed %d, completed %d, cancelled %d, no-show %d. Revenue %.2f\n",
		st.Total, st.Pending, st.Confirmed, st.Completed, st.Cancelled, st.NoShow, st.Revenue)

	if *byProfessional {
		fmt.Fprintln(a.out)
		for _, ps := range appointments.StatsByProfessional(list) {
			fmt.Fprintf(a.out, "%s: %d appointments, revenue %.2f\n", ps.ProfessionalName, ps.Stats.Total, ps.Stats.Revenue)
		}
	}
	if *byDay {
		fmt.Fprintln(a.out)
		for _, dr := range appointments.RevenueByDay(list, loc) {
			fmt.Fprintf(a.out, "%s: %d appointments, revenue %.2f\n", dr.Date, dr.Count, dr.Revenue)
		}
	}
	return nil
}

func runStatus(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("status", a.out)
	filter := appointmentFilter(a, fs)
	id := fs.String("id", "", "appointment id")
	to := fs.String("to", "", "new status")
	reason := fs.String("reason", "", "reason, asked for when cancelling")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	target := models.AppointmentStatus(strings.ToUpper(strings.TrimSpace(*to)))
	if *id == "" || !target.Known() {
		return fmt.Errorf("%w: -id and a known -to status are required", errUsage)
	}
	if appointments.ReasonRequired(target) && strings.TrimSpace(*reason) == "" {
		return fmt.Errorf("%w: -reason is required for %s", errUsage, target)
	}
	f, err := filter()
	if err != nil {
		return err
	}

	store := appointments.NewStore(a.client, a.bus, a.logger)
	store.Load(ctx, f)
	if err := store.LoadErr(); err != nil {
		return errors.New(api.UserMessage(err))
	}
	current, ok := store.Get(*id)
	if !ok {
		return fmt.Errorf("%w: %s", appointments.ErrNotInCache, *id)
	}

	updated, err := store.UpdateStatus(ctx, *id, target, *reason)
	if err != nil {
		fmt.Fprintf(a.out, "Status change failed: %s\n", api.UserMessage(err))
		if actions := appointments.AvailableActions(current.Status); len(actions) > 0 {
			names := make([]string, len(actions))
			for i, s := range actions {
				names[i] = string(s)
			}
			fmt.Fprintf(a.out, "Allowed from %s: %s\n", current.Status, strings.Join(names, ", "))
		}
		return err
	}
	fmt.Fprintf(a.out, "Appointment %s is now %s.\n", updated.ID, updated.Status)
	return nil
}

func runCalendar(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("calendar", a.out)
	rawMonth := fs.String("month", "", "month to show, YYYY-MM (default: current)")
	professionalID := fs.String("professional", "", "only this professional")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	now := time.Now().In(a.cfg.Booking.Location())
	ref := now
	if *rawMonth != "" {
		parsed, err := time.ParseInLocation("2006-01", *rawMonth, now.Location())
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		ref = parsed
	}

	store := appointments.NewStore(a.client, a.bus, a.logger)
	store.Load(ctx, models.AppointmentFilter{CompanyID: a.session.CompanyID, ProfessionalID: *professionalID})
	if err := store.LoadErr(); err != nil {
		fmt.Fprintf(a.out, "Could not load appointments: %s\n", api.UserMessage(err))
	}
	printCalendar(a.out, ref, now, calendar.CountsByDay(store.Appointments(), now.Location()))
	return nil
}

// printCalendar renders one month: "*" marks today, "(n)" the appointment count.
func printCalendar(out io.Writer, ref, now time.Time, counts map[models.Date]int) {
	fmt.Fprintf(out, "%s %d\n", ref.Month(), ref.Year())
	fmt.Fprintln(out, " Sun     Mon     Tue     Wed     Thu     Fri     Sat")
	for _, week := range calendar.Weeks(calendar.MonthGrid(ref)) {
		var sb strings.Builder
		for _, day := range week {
			cell := ""
			if !day.IsZero() {
				cell = fmt.Sprintf("%2d", day.Day)
				if calendar.IsToday(day, now) {
					cell += "*"
				}
				if n := counts[day]; n > 0 {
					cell += fmt.Sprintf("(%d)", n)
				}
			}
			sb.WriteString(fmt.Sprintf("%-8s", cell))
		}
		fmt.Fprintln(out, strings.TrimRight(sb.String(), " "))
	}
}
