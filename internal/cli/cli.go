// Package cli owns the interactive command loop: tokenizing, input
// validation, session gating and rendering. The core packages never print;
// every typed failure they return is mapped to one fixed message here.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"vaccine-scheduler/internal/apperr"
	"vaccine-scheduler/internal/auth"
	"vaccine-scheduler/internal/model"
	"vaccine-scheduler/internal/reservation"
	"vaccine-scheduler/internal/session"
	"vaccine-scheduler/internal/store"
)

const banner = `Welcome to the Vaccine Reservation Scheduling Application!
*** Please enter one of the following commands ***
> create_patient <username> <password>
> create_caregiver <username> <password>
> login_patient <username> <password>
> login_caregiver <username> <password>
> search_caregiver_schedule <date>
> reserve <date> <vaccine>
> upload_availability <date>
> cancel <appointment_id>
> add_doses <vaccine> <number>
> show_appointments
> logout
> quit`

type App struct {
	store  *store.Store
	coord  *reservation.Coordinator
	sess   *session.Manager
	logins *loginLimiter
	log    zerolog.Logger
	in     io.Reader
	out    io.Writer
}

type Options struct {
	LoginRate  float64
	LoginBurst int
	In         io.Reader
	Out        io.Writer
}

func New(st *store.Store, coord *reservation.Coordinator, sess *session.Manager, log zerolog.Logger, opts Options) *App {
	if opts.LoginRate <= 0 {
		opts.LoginRate = 5
	}
	if opts.LoginBurst <= 0 {
		opts.LoginBurst = 10
	}
	return &App{
		store:  st,
		coord:  coord,
		sess:   sess,
		logins: newLoginLimiter(opts.LoginRate, opts.LoginBurst),
		log:    log,
		in:     opts.In,
		out:    opts.Out,
	}
}

// Run reads commands until quit, EOF or context cancellation.
func (a *App) Run(ctx context.Context) error {
	a.printf("%s\n", banner)
	sc := bufio.NewScanner(a.in)
	for {
		a.printf("> ")
		if !sc.Scan() {
			a.printf("\n")
			return sc.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if quit := a.Dispatch(ctx, sc.Text()); quit {
			a.printf("Bye!\n")
			return nil
		}
	}
}

// Dispatch runs a single command line and reports whether the loop should
// terminate.
func (a *App) Dispatch(ctx context.Context, line string) bool {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return false
	}
	op, args := tokens[0], tokens[1:]
	switch op {
	case "create_patient":
		a.createUser(ctx, model.RolePatient, args)
	case "create_caregiver":
		a.createUser(ctx, model.RoleCaregiver, args)
	case "login_patient":
		a.login(ctx, model.RolePatient, args)
	case "login_caregiver":
		a.login(ctx, model.RoleCaregiver, args)
	case "search_caregiver_schedule":
		a.searchSchedule(ctx, args)
	case "reserve":
		a.reserve(ctx, args)
	case "upload_availability":
		a.uploadAvailability(ctx, args)
	case "cancel":
		a.cancel(ctx, args)
	case "add_doses":
		a.addDoses(ctx, args)
	case "show_appointments":
		a.showAppointments(ctx, args)
	case "logout":
		a.logout(args)
	case "quit":
		return true
	default:
		a.printf("Invalid operation name!\n")
	}
	return false
}

func (a *App) createUser(ctx context.Context, role model.Role, args []string) {
	if len(args) != 2 {
		a.printf("Failed to create user.\n")
		return
	}
	req := credentialsRequest{Username: args[0], Password: args[1]}
	if err := checkRequest(req); err != nil {
		a.printf("Failed to create user.\n")
		return
	}

	if failed := auth.CheckPasswordStrength(req.Password); len(failed) > 0 {
		a.printf("Password did not meet the requirements, try again.\n")
		for _, rule := range failed {
			a.printf("Missing: %s\n", rule)
		}
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.printf("Failed to create user.\n")
		return
	}

	switch role {
	case model.RolePatient:
		err = a.store.CreatePatient(ctx, &model.Patient{Username: req.Username, PasswordHash: hash})
	case model.RoleCaregiver:
		err = a.store.CreateCaregiver(ctx, &model.Caregiver{Username: req.Username, PasswordHash: hash})
	}
	if apperr.HasCode(err, apperr.CodeAlreadyExists) {
		a.printf("Username taken, try again!\n")
		return
	}
	if err != nil {
		a.log.Error().Err(err).Str("username", req.Username).Msg("create user failed")
		a.printf("Failed to create user.\n")
		return
	}
	a.printf("Created user %s\n", req.Username)
}

func (a *App) login(ctx context.Context, role model.Role, args []string) {
	if !a.sess.Current().IsAnonymous() {
		a.printf("User already logged in.\n")
		return
	}
	if len(args) != 2 {
		a.printf("Login failed.\n")
		return
	}
	req := credentialsRequest{Username: args[0], Password: args[1]}
	if err := checkRequest(req); err != nil {
		a.printf("Login failed.\n")
		return
	}
	if !a.logins.allow(req.Username) {
		a.printf("Too many login attempts, slow down.\n")
		return
	}

	var hash string
	var err error
	switch role {
	case model.RolePatient:
		var p *model.Patient
		if p, err = a.store.PatientByUsername(ctx, req.Username); err == nil {
			hash = p.PasswordHash
		}
	case model.RoleCaregiver:
		var c *model.Caregiver
		if c, err = a.store.CaregiverByUsername(ctx, req.Username); err == nil {
			hash = c.PasswordHash
		}
	}
	if err != nil || !auth.CheckPassword(hash, req.Password) {
		a.printf("Login failed.\n")
		return
	}

	if err := a.sess.Login(model.Identity{Role: role, Username: req.Username}); err != nil {
		a.printf("User already logged in.\n")
		return
	}
	a.log.Info().Str("username", req.Username).Str("role", string(role)).
		Str("session_id", a.sess.ID()).Msg("logged in")
	a.printf("Logged in as: %s\n", req.Username)
}

func (a *App) searchSchedule(ctx context.Context, args []string) {
	if a.sess.Current().IsAnonymous() {
		a.printf("Please login first!\n")
		return
	}
	if len(args) != 1 {
		a.printf("Please try again!\n")
		return
	}
	if err := checkRequest(dateRequest{Date: args[0]}); err != nil {
		a.printf("Please enter a valid date!\n")
		return
	}
	day, err := parseDay(args[0])
	if err != nil {
		a.printf("Please enter a valid date!\n")
		return
	}

	caregivers, err := a.store.AvailableCaregivers(ctx, day)
	if err != nil {
		a.printf("%s\n", message(err))
		return
	}
	for _, username := range caregivers {
		a.printf("%s\n", username)
	}

	vaccines, err := a.store.ListVaccines(ctx)
	if err != nil {
		a.printf("%s\n", message(err))
		return
	}
	for _, v := range vaccines {
		a.printf("%s %d\n", v.Name, v.Doses)
	}
}

func (a *App) reserve(ctx context.Context, args []string) {
	ident := a.sess.Current()
	if ident.IsAnonymous() {
		a.printf("Please login first!\n")
		return
	}
	if !ident.IsPatient() {
		a.printf("Please login as a patient!\n")
		return
	}
	if len(args) != 2 {
		a.printf("Please try again!\n")
		return
	}
	req := reserveRequest{Date: args[0], Vaccine: args[1]}
	if err := checkRequest(req); err != nil {
		a.printf("Please enter a valid date!\n")
		return
	}
	day, err := parseDay(req.Date)
	if err != nil {
		a.printf("Please enter a valid date!\n")
		return
	}

	conf, err := a.coord.Reserve(ctx, ident, day, req.Vaccine)
	if err != nil {
		a.printf("%s\n", message(err))
		return
	}
	a.printf("Appointment ID: %d, Caregiver username: %s\n",
		conf.AppointmentID, conf.CaregiverUsername)
}

func (a *App) uploadAvailability(ctx context.Context, args []string) {
	ident := a.sess.Current()
	if !ident.IsCaregiver() {
		a.printf("Please login as a caregiver first!\n")
		return
	}
	if len(args) != 1 {
		a.printf("Please try again!\n")
		return
	}
	if err := checkRequest(dateRequest{Date: args[0]}); err != nil {
		a.printf("Please enter a valid date!\n")
		return
	}
	day, err := parseDay(args[0])
	if err != nil {
		a.printf("Please enter a valid date!\n")
		return
	}

	err = a.store.PublishAvailability(ctx, ident.Username, day)
	if apperr.HasCode(err, apperr.CodeAlreadyExists) {
		a.printf("Availability already uploaded for that date!\n")
		return
	}
	if err != nil {
		a.printf("%s\n", message(err))
		return
	}
	a.printf("Availability uploaded!\n")
}

func (a *App) cancel(ctx context.Context, args []string) {
	ident := a.sess.Current()
	if ident.IsAnonymous() {
		a.printf("Please login first!\n")
		return
	}
	if len(args) != 1 {
		a.printf("Please try again!\n")
		return
	}
	id, err := parseID(args[0])
	if err != nil {
		a.printf("Please try again!\n")
		return
	}
	if err := checkRequest(cancelRequest{AppointmentID: id}); err != nil {
		a.printf("Please try again!\n")
		return
	}

	if err := a.coord.Cancel(ctx, ident, id); err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			a.printf("Appointment not found!\n")
			return
		}
		a.printf("%s\n", message(err))
		return
	}
	a.printf("Appointment %d cancelled.\n", id)
}

func (a *App) addDoses(ctx context.Context, args []string) {
	ident := a.sess.Current()
	if !ident.IsCaregiver() {
		a.printf("Please login as a caregiver first!\n")
		return
	}
	if len(args) != 2 {
		a.printf("Please try again!\n")
		return
	}
	doses, err := strconv.Atoi(args[1])
	if err != nil {
		a.printf("Please try again!\n")
		return
	}
	req := addDosesRequest{Vaccine: args[0], Doses: doses}
	if err := checkRequest(req); err != nil {
		a.printf("Please try again!\n")
		return
	}

	if err := a.store.AddDoses(ctx, req.Vaccine, req.Doses); err != nil {
		a.printf("%s\n", message(err))
		return
	}
	a.printf("Doses updated!\n")
}

func (a *App) showAppointments(ctx context.Context, args []string) {
	ident := a.sess.Current()
	if ident.IsAnonymous() {
		a.printf("Please login first!\n")
		return
	}
	if len(args) != 0 {
		a.printf("Please try again!\n")
		return
	}

	var views []model.AppointmentView
	var err error
	if ident.IsCaregiver() {
		views, err = a.store.AppointmentsByCaregiver(ctx, ident.Username)
	} else {
		views, err = a.store.AppointmentsByPatient(ctx, ident.Username)
	}
	if err != nil {
		a.printf("%s\n", message(err))
		return
	}
	for _, v := range views {
		a.printf("%d %s %s %s\n", v.ID, v.VaccineName, v.Day.Format(model.DateLayout), v.Counterparty)
	}
}

func (a *App) logout(args []string) {
	if len(args) != 0 {
		a.printf("Please try again!\n")
		return
	}
	if err := a.sess.Logout(); err != nil {
		a.printf("Please login first!\n")
		return
	}
	a.printf("Successfully logged out!\n")
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
