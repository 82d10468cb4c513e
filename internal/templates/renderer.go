package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shestoi/coachcarter/internal/repository"
	"github.com/shestoi/coachcarter/internal/service"
)

//go:embed files/*.html.tmpl
var embedded embed.FS

const (
	customerConfirmationTemplate = "customer_confirmation.html.tmpl"
	staffBookingTemplate         = "staff_booking.html.tmpl"
	availabilityRequestTemplate  = "availability_request.html.tmpl"
	staffAvailabilityTemplate    = "staff_availability.html.tmpl"
	customerAvailabilityTemplate = "customer_availability.html.tmpl"
)

// testStatusHasTest значение dropdown has_test_booked "тест уже назначен"
const testStatusHasTest = "has_test"

// Email отрендеренное письмо
type Email struct {
	Subject string
	HTML    string
}

// Renderer рендерит письма для уведомлений
type Renderer struct {
	logger        *zap.Logger
	siteURL       string
	followUpDelay time.Duration
	templates     map[string]*template.Template
}

// NewRenderer загружает шаблоны. Пустой templatesDir означает встроенные шаблоны.
func NewRenderer(logger *zap.Logger, templatesDir, siteURL string, followUpDelay time.Duration) (*Renderer, error) {
	var source fs.FS
	if templatesDir != "" {
		source = os.DirFS(templatesDir)
	} else {
		sub, err := fs.Sub(embedded, "files")
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded templates: %w", err)
		}
		source = sub
	}

	r := &Renderer{
		logger:        logger,
		siteURL:       strings.TrimRight(siteURL, "/"),
		followUpDelay: followUpDelay,
		templates:     make(map[string]*template.Template),
	}

	for _, name := range []string{
		customerConfirmationTemplate,
		staffBookingTemplate,
		availabilityRequestTemplate,
		staffAvailabilityTemplate,
		customerAvailabilityTemplate,
	} {
		tmpl, err := template.ParseFS(source, name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}

	logger.Info("email templates loaded",
		zap.Bool("embedded", templatesDir == ""),
		zap.String("dir", templatesDir),
	)
	return r, nil
}

// bookingView данные бронирования для шаблонов
type bookingView struct {
	Reference       string
	FirstName       string
	CustomerName    string
	CustomerEmail   string
	PackageName     string
	Amount          string
	Status          string
	PassGuarantee   bool
	HasTest         bool
	Licence         string
	TestStatus      string
	TestReference   string
	TestCentre      string
	Hours           string
	AvailabilityURL string
	FollowUpIn      string
}

func (r *Renderer) bookingView(b repository.Booking) bookingView {
	return bookingView{
		Reference:       b.Reference,
		FirstName:       b.FirstName(),
		CustomerName:    b.CustomerName,
		CustomerEmail:   b.CustomerEmail,
		PackageName:     service.PackageDisplayName(b.PackageType, b.Metadata.Hours),
		Amount:          FormatAmount(b.AmountMinor, b.Currency),
		Status:          string(b.Status),
		PassGuarantee:   b.PackageType.RequiresVerification(),
		HasTest:         b.Metadata.TestStatus == testStatusHasTest,
		Licence:         b.Metadata.ProvisionalLicence,
		TestStatus:      b.Metadata.TestStatus,
		TestReference:   b.Metadata.TestReference,
		TestCentre:      b.Metadata.TestCentre,
		Hours:           b.Metadata.Hours,
		AvailabilityURL: r.AvailabilityURL(b.Reference, b.CustomerEmail),
		FollowUpIn:      humanDelay(r.followUpDelay),
	}
}

// CustomerConfirmation письмо клиенту после оплаты
func (r *Renderer) CustomerConfirmation(b repository.Booking) (Email, error) {
	subject := "Booking confirmed — Reference: " + b.Reference
	if b.PackageType.RequiresVerification() {
		subject = "Pass Guarantee confirmed — Reference: " + b.Reference
	}
	return r.render(customerConfirmationTemplate, subject, r.bookingView(b))
}

// StaffBookingAlert письмо staff со всеми заявленными данными
func (r *Renderer) StaffBookingAlert(b repository.Booking) (Email, error) {
	prefix := "[NEW BOOKING]"
	if b.PackageType.RequiresVerification() {
		prefix = "[ACTION REQUIRED]"
	}
	return r.render(staffBookingTemplate, prefix+" "+b.Reference, r.bookingView(b))
}

// AvailabilityRequest отложенное письмо со ссылкой на форму доступности
func (r *Renderer) AvailabilityRequest(b repository.Booking) (Email, error) {
	return r.render(availabilityRequestTemplate, "Submit your availability — Reference: "+b.Reference, r.bookingView(b))
}

type availabilityView struct {
	Reference      string
	CustomerName   string
	CustomerEmail  string
	TotalSlots     int
	PreferredSlots int
	Frequency      string
	Notes          string
	DashboardURL   string
}

func (r *Renderer) availabilityView(s service.AvailabilitySummary) availabilityView {
	return availabilityView{
		Reference:      s.BookingReference,
		CustomerName:   s.CustomerName,
		CustomerEmail:  s.CustomerEmail,
		TotalSlots:     s.TotalSlots(),
		PreferredSlots: s.PreferredSlots,
		Frequency:      s.FrequencyPreference,
		Notes:          s.Notes,
		DashboardURL:   r.siteURL + "/admin.html",
	}
}

// StaffAvailabilityReceived письмо staff о присланной доступности
func (r *Renderer) StaffAvailabilityReceived(s service.AvailabilitySummary) (Email, error) {
	return r.render(staffAvailabilityTemplate, "Availability received — "+s.BookingReference, r.availabilityView(s))
}

// CustomerAvailabilityReceived подтверждение клиенту
func (r *Renderer) CustomerAvailabilityReceived(s service.AvailabilitySummary) (Email, error) {
	return r.render(customerAvailabilityTemplate, "Availability received — We'll propose slots within 24 hours", r.availabilityView(s))
}

// AvailabilityURL ссылка на форму доступности: <site>/availability.html?ref=..&email=..
func (r *Renderer) AvailabilityURL(reference, email string) string {
	return r.siteURL + "/availability.html?ref=" + url.QueryEscape(reference) + "&email=" + url.QueryEscape(email)
}

func (r *Renderer) render(name, subject string, data any) (Email, error) {
	var buf bytes.Buffer
	if err := r.templates[name].Execute(&buf, data); err != nil {
		return Email{}, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return Email{Subject: subject, HTML: buf.String()}, nil
}

// FormatAmount сумма в основных единицах с символом валюты: 3000 gbp -> £30.00
func FormatAmount(minor int64, currency string) string {
	amount := strconv.FormatFloat(float64(minor)/100, 'f', 2, 64)
	switch strings.ToLower(currency) {
	case "gbp", "":
		return "£" + amount
	case "eur":
		return "€" + amount
	case "usd":
		return "$" + amount
	default:
		return strings.ToUpper(currency) + " " + amount
	}
}

func humanDelay(d time.Duration) string {
	if d <= 0 {
		return "a few minutes"
	}
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return strconv.Itoa(m) + " minutes"
	}
	return d.String()
}
