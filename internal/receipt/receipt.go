package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-orders/pkg/config"
	"github.com/angelmondragon/storefront-orders/pkg/db/models"
	"github.com/angelmondragon/storefront-orders/pkg/enums"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	width      = 48
	dateLayout = "2006-01-02 15:04 MST"
)

// Config fixes everything that affects the rendered text.
type Config struct {
	StoreName    string
	CurrencyCode string
	Footer       string
	TaxPercent   string
	Location     *time.Location
}

// Generator renders order receipts. Output depends only on the order and Config.
type Generator struct {
	cfg Config
}

// NewGenerator validates cfg and returns a Generator.
func NewGenerator(cfg Config) (*Generator, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(cfg.CurrencyCode)))
	if err != nil {
		return nil, fmt.Errorf("invalid receipt currency %q: %w", cfg.CurrencyCode, err)
	}
	cfg.CurrencyCode = unit.String()
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if strings.TrimSpace(cfg.TaxPercent) == "" {
		cfg.TaxPercent = "21"
	}
	return &Generator{cfg: cfg}, nil
}

// FromConfig builds a Generator from the receipt section of the service config.
func FromConfig(cfg config.ReceiptConfig, taxPercent string) (*Generator, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(cfg.TimeZone))
	if err != nil {
		return nil, fmt.Errorf("load receipt timezone %q: %w", cfg.TimeZone, err)
	}
	return NewGenerator(Config{
		StoreName:    cfg.StoreName,
		CurrencyCode: cfg.CurrencyCode,
		Footer:       cfg.Footer,
		TaxPercent:   taxPercent,
		Location:     loc,
	})
}

// Render produces the fixed-layout receipt for a persisted order and its lines.
func (g *Generator) Render(order *models.Order) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	rule(&b, '=')
	center(&b, g.cfg.StoreName)
	center(&b, fmt.Sprintf("Order #%06d", order.ID))
	rule(&b, '=')
	fmt.Fprintf(&b, "Date: %s\n", order.CreatedAt.In(g.cfg.Location).Format(dateLayout))
	rule(&b, '-')

	b.WriteString("CUSTOMER\n")
	field(&b, "Name", order.CustomerName)
	field(&b, "Email", order.CustomerEmail)
	field(&b, "Phone", order.CustomerPhone)
	rule(&b, '-')

	b.WriteString("SHIPPING\n")
	field(&b, "Method", order.ShippingMethod.Label())
	if order.ShippingMethod != enums.ShippingMethodPickup {
		for _, line := range addressLines(order) {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	rule(&b, '-')

	b.WriteString("ITEMS\n")
	for _, line := range order.Lines {
		fmt.Fprintf(&b, "%d x %s\n", line.Quantity, line.ProductName)
		columns(&b, "    @ "+g.money(p, line.ProductPriceCents), g.money(p, line.LineTotalCents))
	}
	rule(&b, '-')

	columns(&b, "Subtotal", g.money(p, order.SubtotalCents))
	columns(&b, "Shipping", g.money(p, order.ShippingCents))
	columns(&b, fmt.Sprintf("Tax (%s%%)", g.cfg.TaxPercent), g.money(p, order.TaxCents))
	columns(&b, "TOTAL", g.money(p, order.TotalCents))
	rule(&b, '-')

	field(&b, "Payment", order.PaymentMethod.Label())
	field(&b, "Notes", order.Notes)
	rule(&b, '=')
	if g.cfg.Footer != "" {
		center(&b, g.cfg.Footer)
	}
	return b.String()
}

// money formats minor units as "ARS 3,242.00" without floating point.
func (g *Generator) money(p *message.Printer, cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s %s%s.%02d", g.cfg.CurrencyCode, sign, p.Sprintf("%d", cents/100), cents%100)
}

func addressLines(order *models.Order) []string {
	locality := strings.TrimSpace(strings.Join(nonEmpty(order.ShippingCity, order.ShippingState), ", ") + " " + order.ShippingPostalCode)
	return nonEmpty(order.ShippingStreet, locality, order.ShippingCountry)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func rule(b *strings.Builder, ch byte) {
	b.WriteString(strings.Repeat(string(ch), width))
	b.WriteByte('\n')
}

func center(b *strings.Builder, text string) {
	pad := (width - len([]rune(text))) / 2
	if pad < 0 {
		pad = 0
	}
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(text)
	b.WriteByte('\n')
}

func field(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "%-8s %s\n", label+":", value)
}

func columns(b *strings.Builder, left, right string) {
	gap := width - len([]rune(left)) - len([]rune(right))
	if gap < 1 {
		gap = 1
	}
	b.WriteString(left)
	b.WriteString(strings.Repeat(" ", gap))
	b.WriteString(right)
	b.WriteByte('\n')
}
