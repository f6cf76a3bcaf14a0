package portal

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
)

// WebControllerRoutes names the navigation targets of the frontend.
type WebControllerRoutes struct {
	Home     string
	Login    string
	Logout   string
	Register string
	Patients string
}

// WebControllerViews names the templates rendered for each page.
type WebControllerViews struct {
	Home     string
	Login    string
	Register string
	Patients string
	Patient  string
}

// WebController serves the presentational forms: it binds payloads, runs the
// validation rules, and delegates every state change to the Authenticator.
type WebController struct {
	Debug    bool
	Logger   Logger
	Store    *Store
	Auth     *Authenticator
	Patients *PatientsClient
	Guard    *Guard
	Routes   *WebControllerRoutes
	Views    *WebControllerViews
}

// WebControllerOption customizes a WebController.
type WebControllerOption func(*WebController) *WebController

// WithControllerLogger overrides the default logger.
func WithControllerLogger(logger Logger) WebControllerOption {
	return func(c *WebController) *WebController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerDebug toggles payload dumps on form handlers.
func WithControllerDebug(debug bool) WebControllerOption {
	return func(c *WebController) *WebController {
		c.Debug = debug
		return c
	}
}

// WithControllerClients wires the auth, patients, and guard collaborators.
func WithControllerClients(store *Store, auth *Authenticator, patients *PatientsClient, guard *Guard) WebControllerOption {
	return func(c *WebController) *WebController {
		c.Store = store
		c.Auth = auth
		c.Patients = patients
		c.Guard = guard
		return c
	}
}

func NewWebController(opts ...WebControllerOption) *WebController {
	c := &WebController{
		Logger: defLogger{},
		Routes: &WebControllerRoutes{
			Home:     "/",
			Login:    "/login",
			Logout:   "/logout",
			Register: "/register",
			Patients: "/patients",
		},
		Views: &WebControllerViews{
			Home:     "home",
			Login:    "login",
			Register: "register",
			Patients: "patients",
			Patient:  "patient",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Store == nil {
		panic("Missing session store in web controller...")
	}

	if c.Auth == nil {
		panic("Missing authenticator in web controller...")
	}

	if c.Guard == nil {
		panic("Missing guard in web controller...")
	}

	return c
}

// RegisterRoutes mounts the frontend. The patients pages sit behind both
// guard checks; the role allow-list mirrors the provider-only restriction the
// server enforces on the records endpoints.
func RegisterRoutes(app *fiber.App, c *WebController, g *Guard) {
	app.Get(c.Routes.Home, c.Home)

	app.Get(c.Routes.Login, c.LoginShow)
	app.Post(c.Routes.Login, c.LoginPost)
	app.Get(c.Routes.Logout, c.LogOut)

	app.Get(c.Routes.Register, c.RegistrationShow)
	app.Post(c.Routes.Register, c.RegistrationCreate)

	patients := app.Group(
		c.Routes.Patients,
		g.RequireAuthenticated(),
		g.RequireRole(RoleDoctor, RoleAdmin),
	)
	patients.Get("/", c.PatientsIndex)
	patients.Get("/:id", c.PatientShow)
}

func (a *WebController) Home(ctx *fiber.Ctx) error {
	sess := a.Store.Snapshot()
	return ctx.Render(a.Views.Home, fiber.Map{
		"authenticated": sess.Authenticated(),
		"user":          sess.User,
	})
}

func (a *WebController) LoginShow(ctx *fiber.Ctx) error {
	return ctx.Render(a.Views.Login, fiber.Map{
		"errors": nil,
		"record": nil,
	})
}

func (a *WebController) LoginPost(ctx *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return ctx.Status(fiber.StatusBadRequest).Render(a.Views.Login, fiber.Map{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, fiber.Map{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	sess, err := a.Auth.Login(ctx.UserContext(), Credentials{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		if IsInProgress(err) {
			return ctx.Render(a.Views.Login, fiber.Map{
				"record": payload,
				"errors": map[string]string{"authentication": "A sign-in is already in progress"},
			})
		}

		return ctx.Render(a.Views.Login, fiber.Map{
			"record": payload,
			"errors": map[string]string{"authentication": sess.ErrorMessage},
		})
	}

	if a.Debug {
		fmt.Println("======= PORTAL LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(sess))
		fmt.Println("===========================")
	}

	redirect := a.Guard.ReturnTo(ctx, a.Guard.LandingPath)
	return ctx.Redirect(redirect, fiber.StatusSeeOther)
}

func (a *WebController) LogOut(ctx *fiber.Ctx) error {
	if err := a.Store.Clear(ctx.UserContext()); err != nil {
		a.Logger.Error("logout error: %v", err)
	}
	return ctx.Redirect(a.Routes.Home, fiber.StatusTemporaryRedirect)
}

func (a *WebController) RegistrationShow(ctx *fiber.Ctx) error {
	return ctx.Render(a.Views.Register, fiber.Map{
		"errors": map[string]string{},
		"record": RegistrationPayload{},
		"roles":  AllRoles(),
	})
}

func (a *WebController) RegistrationCreate(ctx *fiber.Ctx) error {
	payload := new(RegistrationPayload)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("register parse payload: %v", err)
		return ctx.Status(fiber.StatusBadRequest).Render(a.Views.Register, fiber.Map{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
			"roles":  AllRoles(),
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Register, fiber.Map{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
			"strength":   ScorePassword(payload.Password),
			"roles":      AllRoles(),
		})
	}

	profile, err := payload.Profile()
	if err != nil {
		a.Logger.Error("register convert payload: %v", err)
		return ctx.Status(fiber.StatusBadRequest).Render(a.Views.Register, fiber.Map{
			"errors": map[string]string{"form": err.Error()},
			"record": payload,
			"roles":  AllRoles(),
		})
	}

	if a.Debug {
		fmt.Println("======= PORTAL REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(profile.Details))
		fmt.Println("==============================")
	}

	if err := a.Auth.Register(ctx.UserContext(), profile); err != nil {
		a.Logger.Error("register error: %v", err)
		return ctx.Render(a.Views.Register, fiber.Map{
			"record": payload,
			"errors": map[string]string{"registration": a.Store.Snapshot().ErrorMessage},
			"roles":  AllRoles(),
		})
	}

	return ctx.Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func (a *WebController) PatientsIndex(ctx *fiber.Ctx) error {
	records, err := a.Patients.List(ctx.UserContext())
	if err != nil {
		if IsRejected(err) || IsNotAuthenticated(err) {
			return ctx.Redirect(a.Routes.Login, fiber.StatusSeeOther)
		}

		a.Logger.Error("patients list error: %v", err)
		return ctx.Render(a.Views.Patients, fiber.Map{
			"errors":  map[string]string{"fetch": "Unable to load patient records"},
			"records": nil,
		})
	}

	return ctx.Render(a.Views.Patients, fiber.Map{
		"records": records,
	})
}

func (a *WebController) PatientShow(ctx *fiber.Ctx) error {
	id := ctx.Params("id")

	record, err := a.Patients.Get(ctx.UserContext(), id)
	if err != nil {
		if IsRejected(err) || IsNotAuthenticated(err) {
			return ctx.Redirect(a.Routes.Login, fiber.StatusSeeOther)
		}

		a.Logger.Error("patient get error: %v", err)
		return ctx.Render(a.Views.Patient, fiber.Map{
			"errors": map[string]string{"fetch": "Unable to load the patient record"},
			"record": nil,
		})
	}

	if record == nil {
		return ctx.Status(fiber.StatusNotFound).Render(a.Views.Patient, fiber.Map{
			"errors": map[string]string{"fetch": "Patient not found"},
			"record": nil,
		})
	}

	return ctx.Render(a.Views.Patient, fiber.Map{
		"record": record,
	})
}
