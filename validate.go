package portal

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	hasLowercase = regexp.MustCompile(`[a-z]`)
	hasUppercase = regexp.MustCompile(`[A-Z]`)
	hasDigit     = regexp.MustCompile(`\d`)
)

// fieldValidators maps a field identifier to its validator. Form code looks
// validators up here instead of branching on field names.
var fieldValidators = map[string]func(string) error{
	"email":          ValidateEmail,
	"login_password": ValidateLoginPassword,
	"password":       ValidateRegistrationPassword,
	"full_name":      ValidateFullName,
	"age":            ValidateAge,
	"gender":         ValidateGender,
	"height_cm":      ValidateHeight,
	"weight_kg":      ValidateWeight,
	"phone":          ValidatePhone,
	"address":        ValidateAddress,
}

// ValidateField runs the registered validator for the named field. Unknown
// fields validate clean; confirm_password needs both values and goes through
// ValidateConfirmPassword instead.
func ValidateField(name, value string) error {
	if fn, ok := fieldValidators[name]; ok {
		return fn(value)
	}
	return nil
}

func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("Email is required")
	}
	if !emailPattern.MatchString(email) {
		return errors.New("Please enter a valid email address")
	}
	return nil
}

// ValidateLoginPassword applies the relaxed login-context rule. Login must
// accept passwords created before the stricter registration policy existed.
func ValidateLoginPassword(password string) error {
	if password == "" {
		return errors.New("Password is required")
	}
	if len(password) < 6 {
		return errors.New("Password must be at least 6 characters")
	}
	return nil
}

func ValidateRegistrationPassword(password string) error {
	if password == "" {
		return errors.New("Password is required")
	}
	if len(password) < 8 {
		return errors.New("Password must be at least 8 characters")
	}
	if !hasLowercase.MatchString(password) {
		return errors.New("Password must contain at least one lowercase letter")
	}
	if !hasUppercase.MatchString(password) {
		return errors.New("Password must contain at least one uppercase letter")
	}
	if !hasDigit.MatchString(password) {
		return errors.New("Password must contain at least one number")
	}
	return nil
}

func ValidateConfirmPassword(confirm, password string) error {
	if confirm == "" {
		return errors.New("Please confirm your password")
	}
	if confirm != password {
		return errors.New("Passwords do not match")
	}
	return nil
}

func ValidateFullName(fullName string) error {
	if fullName == "" {
		return errors.New("Full name is required")
	}
	if len(fullName) < 2 {
		return errors.New("Full name must be at least 2 characters")
	}
	return nil
}

func ValidateAge(age string) error {
	if age == "" {
		return errors.New("Age is required")
	}
	n, err := strconv.Atoi(age)
	if err != nil || n < 1 || n > 120 {
		return errors.New("Please enter a valid age (1-120)")
	}
	return nil
}

func ValidateGender(gender string) error {
	if gender == "" {
		return errors.New("Gender is required")
	}
	return nil
}

func ValidateHeight(height string) error {
	if height == "" {
		return errors.New("Height is required")
	}
	n, err := strconv.ParseFloat(height, 64)
	if err != nil || n < 50 || n > 300 {
		return errors.New("Please enter a valid height (50-300 cm)")
	}
	return nil
}

func ValidateWeight(weight string) error {
	if weight == "" {
		return errors.New("Weight is required")
	}
	n, err := strconv.ParseFloat(weight, 64)
	if err != nil || n < 20 || n > 500 {
		return errors.New("Please enter a valid weight (20-500 kg)")
	}
	return nil
}

func ValidatePhone(phone string) error {
	if phone == "" {
		return errors.New("Phone number is required")
	}
	if err := is.Digit.Validate(phone); err != nil || len(phone) < 10 || len(phone) > 15 {
		return errors.New("Please enter a valid phone number (10-15 digits)")
	}
	return nil
}

func ValidateAddress(address string) error {
	if address == "" {
		return errors.New("Address is required")
	}
	if len(address) < 5 {
		return errors.New("Address must be at least 5 characters")
	}
	return nil
}

// NormalizePhone attempts to canonicalize a phone number to E.164 for the
// given region. Advisory only: when the number does not parse as a real
// phone number the raw digits are kept.
func NormalizePhone(raw, region string) (string, bool) {
	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw, false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}

// fieldRule adapts a registered field validator into an ozzo rule.
func fieldRule(name string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		return ValidateField(name, s)
	}
}

// LoginRequest is the sign-in form payload.
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.By(fieldRule("email"))),
		validation.Field(&r.Password, validation.By(fieldRule("login_password"))),
	)
}

// RegistrationPayload is the registration form payload. Fields arrive as raw
// strings and are converted by Profile once validation passes.
type RegistrationPayload struct {
	FullName        string `form:"full_name" json:"full_name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
	RoleCode        string `form:"role" json:"role"`
	Age             string `form:"age" json:"age"`
	Gender          string `form:"gender" json:"gender"`
	HeightCm        string `form:"height_cm" json:"height_cm"`
	WeightKg        string `form:"weight_kg" json:"weight_kg"`
	Phone           string `form:"phone" json:"phone"`
	Address         string `form:"address" json:"address"`
}

// Validate will validate the payload
func (r RegistrationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.By(fieldRule("full_name"))),
		validation.Field(&r.Email, validation.By(fieldRule("email"))),
		validation.Field(&r.Password, validation.By(fieldRule("password"))),
		validation.Field(&r.ConfirmPassword, validation.By(func(value any) error {
			s, _ := value.(string)
			return ValidateConfirmPassword(s, r.Password)
		})),
		validation.Field(&r.RoleCode, validation.Required, validation.In("1", "2", "3")),
		validation.Field(&r.Age, validation.By(fieldRule("age"))),
		validation.Field(&r.Gender, validation.By(fieldRule("gender"))),
		validation.Field(&r.HeightCm, validation.By(fieldRule("height_cm"))),
		validation.Field(&r.WeightKg, validation.By(fieldRule("weight_kg"))),
		validation.Field(&r.Phone, validation.By(fieldRule("phone"))),
		validation.Field(&r.Address, validation.By(fieldRule("address"))),
	)
}

// Profile converts a validated payload into the registration profile sent to
// the API. Call Validate first; conversion errors here mean the payload was
// not validated.
func (r RegistrationPayload) Profile() (RegistrationProfile, error) {
	age, err := strconv.Atoi(r.Age)
	if err != nil {
		return RegistrationProfile{}, errors.New("invalid age")
	}

	height, err := strconv.ParseFloat(r.HeightCm, 64)
	if err != nil {
		return RegistrationProfile{}, errors.New("invalid height")
	}

	weight, err := strconv.ParseFloat(r.WeightKg, 64)
	if err != nil {
		return RegistrationProfile{}, errors.New("invalid weight")
	}

	code, err := strconv.Atoi(r.RoleCode)
	if err != nil {
		return RegistrationProfile{}, errors.New("invalid role")
	}
	role, ok := RoleFromCode(code)
	if !ok {
		return RegistrationProfile{}, errors.New("invalid role")
	}

	// The API contract wants a plain digit string, so canonicalize without
	// the leading +.
	phone := r.Phone
	if normalized, ok := NormalizePhone(r.Phone, defaultPhoneRegion); ok {
		phone = strings.TrimPrefix(normalized, "+")
	}

	return RegistrationProfile{
		FullName: r.FullName,
		Email:    r.Email,
		Password: r.Password,
		Role:     role,
		Details: UserDetails{
			Age:      age,
			Gender:   r.Gender,
			HeightCm: height,
			WeightKg: weight,
			Phone:    phone,
			Address:  r.Address,
		},
	}, nil
}

// defaultPhoneRegion seeds phone normalization when numbers carry no country
// prefix.
const defaultPhoneRegion = "US"

// FormatValidationErrorToMap flattens an ozzo validation error into a
// field -> message map ready for inline rendering.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		for field, fieldErr := range fieldErrs {
			if fieldErr != nil {
				out[field] = fieldErr.Error()
			}
		}
		return out
	}

	out["form"] = err.Error()
	return out
}
