package scraper

import (
	"context"
	"strings"

	"github.com/miekg/dns"
)

// MXVerifier checks that an address's domain accepts mail.
type MXVerifier struct {
	client    *dns.Client
	resolvers []string
}

// NewMXVerifier queries the given resolvers ("host:port") in order.
func NewMXVerifier(resolvers []string) *MXVerifier {
	return &MXVerifier{
		client:    new(dns.Client),
		resolvers: resolvers,
	}
}

// HasMX reports whether any resolver returns an MX answer for the email's domain.
func (v *MXVerifier) HasMX(ctx context.Context, email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	domain := strings.TrimSpace(email[at+1:])

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeMX)
	msg.RecursionDesired = true

	for _, server := range v.resolvers {
		resp, _, err := v.client.ExchangeContext(ctx, msg, server)
		if err != nil || resp == nil {
			continue
		}
		if resp.Rcode == dns.RcodeSuccess && len(resp.Answer) > 0 {
			return true
		}
	}
	return false
}
