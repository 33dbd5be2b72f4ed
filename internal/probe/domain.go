package probe

import (
	"fmt"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/miekg/dns"
)

// DomainDiagnostics is the on-demand DNS and registration report for
// a tenant's full domain. It is never persisted onto the tenant.
type DomainDiagnostics struct {
	Domain       string     `json:"domain"`
	Resolved     bool       `json:"resolved"`
	Addresses    []string   `json:"addresses"`
	LookupMs     int64      `json:"lookup_ms"`
	Registrar    string     `json:"registrar,omitempty"`
	DomainExpiry *time.Time `json:"domain_expiry,omitempty"`
	DaysToExpiry int        `json:"days_to_expiry,omitempty"`
}

// DomainChecker resolves a tenant domain and, for the registrable
// part, pulls WHOIS registration data.
type DomainChecker struct {
	resolver string
	timeout  time.Duration
}

func NewDomainChecker(timeout time.Duration) *DomainChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DomainChecker{resolver: "8.8.8.8:53", timeout: timeout}
}

func (d *DomainChecker) Check(domain string) (*DomainDiagnostics, error) {
	if domain == "" {
		return nil, fmt.Errorf("no domain configured")
	}

	diag := &DomainDiagnostics{Domain: domain}

	c := new(dns.Client)
	c.Timeout = d.timeout

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), dns.TypeA)

	start := time.Now()
	r, _, err := c.Exchange(m, d.resolver)
	diag.LookupMs = time.Since(start).Milliseconds()

	if err != nil {
		return nil, fmt.Errorf("dns query failed: %w", err)
	}
	if r.Rcode == dns.RcodeSuccess {
		for _, ans := range r.Answer {
			if a, ok := ans.(*dns.A); ok {
				diag.Addresses = append(diag.Addresses, a.A.String())
			}
		}
		diag.Resolved = len(diag.Addresses) > 0
	}

	// WHOIS runs against the registrable domain; failure there keeps
	// the DNS half of the report usable.
	if raw, err := whois.Whois(registrableDomain(domain)); err == nil {
		if parsed, err := whoisparser.Parse(raw); err == nil {
			diag.Registrar = parsed.Registrar.Name
			if parsed.Domain.ExpirationDate != "" {
				if t, err := parseWhoisDate(parsed.Domain.ExpirationDate); err == nil {
					diag.DomainExpiry = &t
					diag.DaysToExpiry = int(time.Until(t).Hours() / 24)
				}
			}
		}
	}

	return diag, nil
}

func registrableDomain(domain string) string {
	parts := strings.Split(domain, ".")
	if len(parts) <= 2 {
		return domain
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

func parseWhoisDate(dateStr string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"02-Jan-2006",
		"2006.01.02 15:04:05",
		"2006/01/02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}
