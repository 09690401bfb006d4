// Package wizard drives the three-step booking flow: pick an offering, pick a
// date and time, enter client details and confirm.
package wizard

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"

	"kairon/internal/api"
	"kairon/internal/domain"
	"kairon/internal/events"
	"kairon/internal/logging"
	"kairon/internal/metrics"
	"kairon/internal/models"
	"kairon/internal/slots"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Step string

const (
	StepSelectOffering Step = "select_offering"
	StepSelectDateTime Step = "select_datetime"
	StepClientDetails  Step = "client_details"
	StepSubmitting     Step = "submitting"
	StepDone           Step = "done"
)

// Wizard holds one booking draft and the step it is on.
// Network calls are made without holding the state lock.
type Wizard struct {
	catalog   domain.CatalogAPI
	tracker   *slots.Tracker
	submitter Submitter
	drafts    domain.DraftRepository
	events    domain.EventPublisher
	base      *zerolog.Logger
	logger    *zerolog.Logger
	onDone    func(*models.Appointment)

	mu            sync.Mutex
	step          Step
	draft         models.BookingDraft
	errs          ValidationErrors
	submitErr     *SubmitError
	result        *models.Appointment
	services      []models.Service
	professionals []models.Professional
}

type Option func(*Wizard)

// WithDrafts persists the draft after every change so the flow can be resumed.
func WithDrafts(repo domain.DraftRepository) Option {
	return func(w *Wizard) { w.drafts = repo }
}

func WithEvents(pub domain.EventPublisher) Option {
	return func(w *Wizard) { w.events = pub }
}

func WithLogger(logger *zerolog.Logger) Option {
	return func(w *Wizard) { w.base = logger }
}

// WithSessionID sets the key the draft is stored under. A random id is used otherwise.
func WithSessionID(id string) Option {
	return func(w *Wizard) {
		if id != "" {
			w.draft.SessionID = id
		}
	}
}

// WithServiceID pre-selects a service, as a deep link into the flow does.
func WithServiceID(id string) Option {
	return func(w *Wizard) { w.draft.ServiceID = strings.TrimSpace(id) }
}

// WithOnDone registers the callback run after a successful submission.
func WithOnDone(fn func(*models.Appointment)) Option {
	return func(w *Wizard) { w.onDone = fn }
}

func New(catalog domain.CatalogAPI, resolver slots.Resolver, submitter Submitter, opts ...Option) *Wizard {
	w := &Wizard{
		catalog:   catalog,
		submitter: submitter,
		step:      StepSelectOffering,
		draft:     models.BookingDraft{SessionID: uuid.NewString()},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.Component(w.base, "wizard")
	w.tracker = slots.NewTracker(resolver, w.base)
	w.draft.Step = string(w.step)
	return w
}

// Resume restores a persisted draft for the session. It reports whether one was found.
func (w *Wizard) Resume(ctx context.Context) (bool, error) {
	if w.drafts == nil {
		return false, nil
	}
	w.mu.Lock()
	sessionID := w.draft.SessionID
	w.mu.Unlock()

	saved, err := w.drafts.GetDraft(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if saved == nil {
		return false, nil
	}

	step := Step(saved.Step)
	switch step {
	case StepSelectOffering, StepSelectDateTime, StepClientDetails:
	case StepSubmitting:
		// The outcome of an interrupted submission is unknown; let the user confirm again.
		step = StepClientDetails
	default:
		step = StepSelectOffering
	}

	w.mu.Lock()
	w.draft = *saved
	w.draft.SessionID = sessionID
	w.step = step
	w.draft.Step = string(step)
	w.errs = nil
	w.submitErr = nil
	draft := w.draft
	w.mu.Unlock()

	if !draft.Date.IsZero() {
		if _, err := w.tracker.Refresh(ctx, draft.ServiceID, draft.ProfessionalID, draft.Date); err == nil || !isSuperseded(err) {
			w.dropUnavailableTime(draft.Date)
		}
	}
	w.logger.Info().Str("session_id", sessionID).Str("step", string(step)).Msg("booking draft resumed")
	return true, nil
}

// LoadOfferings fetches the online-bookable services and the professionals.
// Empty lists are a valid state.
func (w *Wizard) LoadOfferings(ctx context.Context) error {
	services, err := w.catalog.ListServices(ctx, "")
	if err != nil {
		return err
	}
	professionals, err := w.catalog.ListProfessionals(ctx)
	if err != nil {
		return err
	}
	online := models.OnlineServices(services)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.services = online
	w.professionals = professionals

	if id := w.draft.ServiceID; id != "" {
		if _, ok := models.FindService(online, id); !ok {
			w.logger.Warn().Str("service_id", id).Msg("pre-selected service is not bookable online")
			w.draft.ServiceID = ""
		}
	}
	return nil
}

func (w *Wizard) SelectService(ctx context.Context, id string) error {
	return w.selectOffering(ctx, FieldServiceID, id)
}

func (w *Wizard) SelectProfessional(ctx context.Context, id string) error {
	return w.selectOffering(ctx, FieldProfessionalID, id)
}

func (w *Wizard) selectOffering(ctx context.Context, field, id string) error {
	id = strings.TrimSpace(id)

	w.mu.Lock()
	if w.step != StepSelectOffering {
		w.mu.Unlock()
		return ErrWrongStep
	}
	if verr := w.checkOffering(field, id); verr != nil {
		w.setFieldError(field, verr[field])
		w.mu.Unlock()
		return verr
	}

	current := w.draft.ServiceID
	if field == FieldProfessionalID {
		current = w.draft.ProfessionalID
	}
	changed := current != id
	if field == FieldServiceID {
		w.draft.ServiceID = id
	} else {
		w.draft.ProfessionalID = id
	}
	w.clearFieldError(field)
	if changed {
		// A date and time picked for another offering are not known to be valid for this one.
		w.draft.Date = models.Date{}
		w.draft.Time = ""
	}
	w.mu.Unlock()

	if changed {
		_, _ = w.tracker.Refresh(ctx, "", "", models.Date{})
	}
	w.persist(ctx)
	return nil
}

// checkOffering must be called with mu held.
func (w *Wizard) checkOffering(field, id string) ValidationErrors {
	if id == "" {
		return nil
	}
	switch field {
	case FieldServiceID:
		if len(w.services) > 0 {
			if _, ok := models.FindService(w.services, id); !ok {
				return ValidationErrors{field: "unknown service"}
			}
		}
	case FieldProfessionalID:
		if len(w.professionals) > 0 {
			if _, ok := models.FindProfessional(w.professionals, id); !ok {
				return ValidationErrors{field: "unknown professional"}
			}
		}
	}
	return nil
}

// SelectDate sets the date, resolves its slots again and drops a chosen time
// that is not bookable on the new date. The fresh slot list is returned.
func (w *Wizard) SelectDate(ctx context.Context, date models.Date) ([]models.TimeSlot, error) {
	w.mu.Lock()
	if w.step != StepSelectDateTime {
		w.mu.Unlock()
		return nil, ErrWrongStep
	}
	if date.IsZero() {
		w.setFieldError(FieldDate, "select a date")
		w.mu.Unlock()
		return nil, ValidationErrors{FieldDate: "select a date"}
	}
	w.draft.Date = date
	w.clearFieldError(FieldDate)
	serviceID, professionalID := w.draft.ServiceID, w.draft.ProfessionalID
	w.mu.Unlock()

	list, err := w.tracker.Refresh(ctx, serviceID, professionalID, date)
	if err != nil && isSuperseded(err) {
		// A newer date selection owns the slot list now.
		return nil, nil
	}
	w.dropUnavailableTime(date)
	w.persist(ctx)
	return list, nil
}

// dropUnavailableTime clears the chosen time when the current slot list for date does not offer it.
func (w *Wizard) dropUnavailableTime(date models.Date) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft.Date != date || w.draft.Time == "" {
		return
	}
	if !w.tracker.IsAvailable(w.draft.Time) {
		w.logger.Debug().Str("time", w.draft.Time).Str("date", date.String()).Msg("clearing time not offered on new date")
		w.draft.Time = ""
	}
}

// SelectTime accepts only a slot that is available in the current slot list.
func (w *Wizard) SelectTime(ctx context.Context, slot string) error {
	slot = strings.TrimSpace(slot)

	w.mu.Lock()
	if w.step != StepSelectDateTime {
		w.mu.Unlock()
		return ErrWrongStep
	}
	var msg string
	switch {
	case w.draft.Date.IsZero():
		msg = "select a date first"
	case !w.tracker.Contains(slot):
		msg = "time is not offered on this date"
	case !w.tracker.IsAvailable(slot):
		msg = "time is no longer available"
	}
	if msg != "" {
		w.setFieldError(FieldTime, msg)
		w.mu.Unlock()
		return ValidationErrors{FieldTime: msg}
	}
	w.draft.Time = slot
	w.clearFieldError(FieldTime)
	w.mu.Unlock()

	w.persist(ctx)
	return nil
}

// SetClientDetails stores the contact fields. They are validated on Confirm.
func (w *Wizard) SetClientDetails(ctx context.Context, name, email, phone, notes string) error {
	w.mu.Lock()
	if w.step != StepClientDetails {
		w.mu.Unlock()
		return ErrWrongStep
	}
	w.draft.ClientName = strings.TrimSpace(name)
	w.draft.ClientEmail = strings.TrimSpace(email)
	w.draft.ClientPhone = strings.TrimSpace(phone)
	w.draft.Notes = strings.TrimSpace(notes)
	w.mu.Unlock()

	w.persist(ctx)
	return nil
}

// Continue advances Step1 to Step2 and Step2 to Step3 when the step's fields are set.
// On failure the step is unchanged and the field errors are returned.
func (w *Wizard) Continue(ctx context.Context) error {
	w.mu.Lock()
	from := w.step
	var verr ValidationErrors
	var next Step

	switch from {
	case StepSelectOffering:
		verr = validateOffering(w.draft)
		next = StepSelectDateTime
	case StepSelectDateTime:
		verr = validateSchedule(w.draft)
		next = StepClientDetails
	default:
		w.mu.Unlock()
		return ErrWrongStep
	}

	if len(verr) > 0 {
		w.errs = verr
		w.mu.Unlock()
		metrics.IncWizard(string(from), "continue", "blocked")
		return verr
	}
	w.errs = nil
	w.setStep(next)
	w.mu.Unlock()

	metrics.IncWizard(string(from), "continue", "ok")
	w.persist(ctx)
	return nil
}

// Back returns to the previous step keeping every field already entered.
func (w *Wizard) Back(ctx context.Context) error {
	w.mu.Lock()
	from := w.step
	switch from {
	case StepSelectDateTime:
		w.setStep(StepSelectOffering)
	case StepClientDetails:
		w.setStep(StepSelectDateTime)
	default:
		w.mu.Unlock()
		return ErrWrongStep
	}
	w.errs = nil
	w.mu.Unlock()

	metrics.IncWizard(string(from), "back", "ok")
	w.persist(ctx)
	return nil
}

// Confirm validates the client details and submits the booking.
// On success the wizard is done and the draft is discarded. On failure it
// returns to the client details step with the draft intact and a *SubmitError.
func (w *Wizard) Confirm(ctx context.Context) (*models.Appointment, error) {
	w.mu.Lock()
	switch w.step {
	case StepClientDetails:
	case StepDone:
		w.mu.Unlock()
		return nil, ErrFinished
	default:
		w.mu.Unlock()
		return nil, ErrWrongStep
	}

	verr := validateClient(w.draft)
	if len(verr) > 0 {
		w.errs = verr
		w.mu.Unlock()
		metrics.IncWizard(string(StepClientDetails), "confirm", "blocked")
		return nil, verr
	}
	w.errs = nil
	w.submitErr = nil
	w.setStep(StepSubmitting)
	draft := w.draft
	w.mu.Unlock()

	w.persist(ctx)

	appt, err := w.submitter.Submit(ctx, draft)
	if err == nil && appt == nil {
		err = ErrNoAppointment
	}
	if err != nil {
		subErr := &SubmitError{Message: api.UserMessage(err), Err: err}

		w.mu.Lock()
		w.submitErr = subErr
		w.setStep(StepClientDetails)
		w.mu.Unlock()

		w.logger.Error().Err(err).Str("session_id", draft.SessionID).Msg("booking submission failed")
		metrics.IncWizard(string(StepSubmitting), "submit", "failed")
		w.publish(events.EventBookingFailed, bookingPayload(draft, subErr.Message))
		w.persist(ctx)
		return nil, subErr
	}

	w.mu.Lock()
	w.result = appt
	w.draft = models.BookingDraft{SessionID: draft.SessionID}
	w.setStep(StepDone)
	w.mu.Unlock()

	w.logger.Info().Str("session_id", draft.SessionID).Str("appointment_id", appt.ID).Msg("booking submitted")
	metrics.IncWizard(string(StepSubmitting), "submit", "ok")
	w.publish(events.EventBookingSubmitted, bookingPayload(draft, ""))
	w.discard(ctx, draft.SessionID)
	w.tracker.Close()

	if w.onDone != nil {
		w.onDone(appt)
	}
	return appt, nil
}

// Exit abandons the flow and deletes the stored draft.
func (w *Wizard) Exit(ctx context.Context) {
	w.mu.Lock()
	sessionID := w.draft.SessionID
	w.mu.Unlock()

	w.tracker.Close()
	w.discard(ctx, sessionID)
}

// Close stops slot resolution without touching the stored draft.
func (w *Wizard) Close() {
	w.tracker.Close()
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Draft() models.BookingDraft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Errors returns a copy of the field errors from the last rejected action.
func (w *Wizard) Errors() ValidationErrors {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(ValidationErrors, len(w.errs))
	for k, v := range w.errs {
		out[k] = v
	}
	return out
}

// SubmitError returns the last submission failure, or nil.
func (w *Wizard) SubmitError() *SubmitError {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitErr
}

func (w *Wizard) Result() *models.Appointment {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

func (w *Wizard) Slots() []models.TimeSlot {
	return w.tracker.Slots()
}

func (w *Wizard) Services() []models.Service {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.Service(nil), w.services...)
}

func (w *Wizard) Professionals() []models.Professional {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.Professional(nil), w.professionals...)
}

// setStep must be called with mu held.
func (w *Wizard) setStep(step Step) {
	w.step = step
	w.draft.Step = string(step)
}

func (w *Wizard) setFieldError(field, msg string) {
	if w.errs == nil {
		w.errs = ValidationErrors{}
	}
	w.errs[field] = msg
}

func (w *Wizard) clearFieldError(field string) {
	delete(w.errs, field)
}

func (w *Wizard) persist(ctx context.Context) {
	if w.drafts == nil {
		return
	}
	w.mu.Lock()
	if w.step == StepDone {
		w.mu.Unlock()
		return
	}
	draft := w.draft
	w.mu.Unlock()

	if err := w.drafts.SaveDraft(ctx, &draft); err != nil {
		w.logger.Warn().Err(err).Str("session_id", draft.SessionID).Msg("failed to save booking draft")
	}
}

func (w *Wizard) discard(ctx context.Context, sessionID string) {
	if w.drafts == nil {
		return
	}
	if err := w.drafts.DeleteDraft(ctx, sessionID); err != nil {
		w.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to delete booking draft")
	}
}

func (w *Wizard) publish(eventType string, payload events.BookingPayload) {
	if w.events == nil {
		return
	}
	if err := w.events.PublishJSON(eventType, payload); err != nil {
		w.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

func bookingPayload(d models.BookingDraft, errMsg string) events.BookingPayload {
	return events.BookingPayload{
		SessionID:      d.SessionID,
		ServiceID:      d.ServiceID,
		ProfessionalID: d.ProfessionalID,
		Date:           d.Date.String(),
		Time:           d.Time,
		Error:          errMsg,
	}
}

func isSuperseded(err error) bool {
	return errors.Is(err, slots.ErrStale) || errors.Is(err, slots.ErrClosed)
}

func validateOffering(d models.BookingDraft) ValidationErrors {
	verr := ValidationErrors{}
	if d.ServiceID == "" {
		verr[FieldServiceID] = "select a service"
	}
	if d.ProfessionalID == "" {
		verr[FieldProfessionalID] = "select a professional"
	}
	return verr
}

func validateSchedule(d models.BookingDraft) ValidationErrors {
	verr := ValidationErrors{}
	if d.Date.IsZero() {
		verr[FieldDate] = "select a date"
	}
	if d.Time == "" {
		verr[FieldTime] = "select a time"
	}
	return verr
}

func validateClient(d models.BookingDraft) ValidationErrors {
	verr := ValidationErrors{}
	if d.ClientName == "" {
		verr[FieldClientName] = "enter a name"
	}
	switch {
	case d.ClientEmail == "":
		verr[FieldClientEmail] = "enter an email"
	case !ValidEmail(d.ClientEmail):
		verr[FieldClientEmail] = "enter a valid email"
	}
	if d.ClientPhone == "" {
		verr[FieldClientPhone] = "enter a phone number"
	}
	return verr
}

// ValidEmail accepts a bare RFC 5322 address with a dotted domain, without a display name.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}
