package lookup

import (
	"net/url"
	"strings"

	"github.com/leozw/ws-billing-resolver/internal/config"
	"github.com/leozw/ws-billing-resolver/internal/core"
	"github.com/leozw/ws-billing-resolver/internal/mdms"
)

// URLBuilder derives downstream search urls from explicit service configuration.
type URLBuilder struct {
	cfg config.ServicesConfig
}

func NewURLBuilder(cfg config.ServicesConfig) *URLBuilder {
	return &URLBuilder{cfg: cfg}
}

type param struct {
	key, value string
}

// build renders host+path?tenantId=..[&key=value]*, skipping empty values.
func build(host, path string, tenantID core.TenantID, params ...param) string {
	var b strings.Builder
	b.WriteString(host)
	b.WriteString(path)
	b.WriteString("?tenantId=")
	b.WriteString(url.QueryEscape(tenantID.String()))
	for _, p := range params {
		if p.value == "" {
			continue
		}
		b.WriteString("&")
		b.WriteString(p.key)
		b.WriteString("=")
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

func (u *URLBuilder) MdmsSearch() string {
	return u.cfg.MdmsHost + u.cfg.MdmsEndpoint
}

func (u *URLBuilder) ConnectionSearch(c core.SearchCriteria) string {
	return build(u.cfg.WaterConnectionHost, u.cfg.WaterConnectionEndpoint, c.TenantID,
		param{"connectionNumber", c.ConnectionNumber},
		param{"applicationNumber", c.ApplicationNumber},
	)
}

func (u *URLBuilder) PropertySearch(tenantID core.TenantID, propertyID string) string {
	return build(u.cfg.PropertyHost, u.cfg.PropertySearchEndpoint, tenantID, param{"propertyIds", propertyID})
}

func (u *URLBuilder) WorkflowProcessSearch(tenantID core.TenantID, businessIDs string) string {
	return build(u.cfg.WorkflowHost, u.cfg.WorkflowProcessEndpoint, tenantID, param{"businessIds", businessIDs})
}

// FetchBill addresses the billing service fetch endpoint for a water consumer.
func (u *URLBuilder) FetchBill(tenantID core.TenantID, consumerCode string) string {
	return build(u.cfg.BillingServiceHost, u.cfg.FetchBillEndpoint, tenantID,
		param{"consumerCode", consumerCode},
		param{"businessService", mdms.ServiceCodeWS},
	)
}
