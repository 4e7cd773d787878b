package mdms

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leozw/ws-billing-resolver/internal/core"
)

type MasterDetail struct {
	Name   string `json:"name"`
	Filter string `json:"filter,omitempty"`
}

type ModuleDetail struct {
	ModuleName    string         `json:"moduleName"`
	MasterDetails []MasterDetail `json:"masterDetails"`
}

// Criteria is the MdmsCriteria body of a master-data search.
type Criteria struct {
	TenantID      core.TenantID  `json:"tenantId"`
	ModuleDetails []ModuleDetail `json:"moduleDetails"`
}

type CriteriaRequest struct {
	RequestInfo  core.RequestInfo `json:"RequestInfo"`
	MdmsCriteria Criteria         `json:"MdmsCriteria"`
}

// Query is an immutable master-data query scoped to one tenant. Use WithTenant
// to scope the same modules to another tenant.
type Query struct {
	tenantID core.TenantID
	modules  []ModuleDetail
}

func NewQuery(tenantID core.TenantID, modules ...ModuleDetail) Query {
	return Query{tenantID: tenantID, modules: copyModules(modules)}
}

func (q Query) TenantID() core.TenantID {
	return q.tenantID
}

// Modules returns a copy of the module details.
func (q Query) Modules() []ModuleDetail {
	return copyModules(q.modules)
}

// PrimaryModule is the module whose sub-result decides whether a response is empty.
func (q Query) PrimaryModule() string {
	if len(q.modules) == 0 {
		return ""
	}
	return q.modules[0].ModuleName
}

// WithTenant returns a new query for tenantID. q is left untouched.
func (q Query) WithTenant(tenantID core.TenantID) Query {
	return NewQuery(tenantID, q.modules...)
}

func (q Query) Criteria() Criteria {
	return Criteria{TenantID: q.tenantID, ModuleDetails: q.Modules()}
}

func (q Query) Request(info core.RequestInfo) CriteriaRequest {
	return CriteriaRequest{RequestInfo: info, MdmsCriteria: q.Criteria()}
}

func copyModules(in []ModuleDetail) []ModuleDetail {
	out := make([]ModuleDetail, len(in))
	for i, m := range in {
		out[i] = ModuleDetail{
			ModuleName:    m.ModuleName,
			MasterDetails: append([]MasterDetail(nil), m.MasterDetails...),
		}
	}
	return out
}

func activeFilter(field string) string {
	return fmt.Sprintf("[?(@.%s== true)]", field)
}

// BuildModuleQuery asks for masterNames of one module. With activeOnly every
// master is restricted to records flagged active.
func BuildModuleQuery(masterNames []string, moduleName string, tenantID core.TenantID, activeOnly bool) Query {
	details := make([]MasterDetail, 0, len(masterNames))
	for _, name := range masterNames {
		d := MasterDetail{Name: name}
		if activeOnly {
			d.Filter = activeFilter("active")
		}
		details = append(details, d)
	}
	return NewQuery(tenantID, ModuleDetail{ModuleName: moduleName, MasterDetails: details})
}

// BuildFinancialYearQuery selects financial years whose range is one of
// assessmentYears for the water service module. Years are deduplicated and
// sorted so identical sets always give identical filters.
func BuildFinancialYearQuery(assessmentYears []string, tenantID core.TenantID) Query {
	filter := fmt.Sprintf("[?(@.%s IN [%s] && @.module== '%s')]",
		FinancialYearRangeField, strings.Join(normalizeYears(assessmentYears), ","), ServiceCodeWS)

	return NewQuery(tenantID, ModuleDetail{
		ModuleName:    ModuleFinancial,
		MasterDetails: []MasterDetail{{Name: MasterFinancialYear, Filter: filter}},
	})
}

func normalizeYears(years []string) []string {
	seen := make(map[string]struct{}, len(years))
	out := make([]string, 0, len(years))
	for _, y := range years {
		y = strings.TrimSpace(y)
		if y == "" {
			continue
		}
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		out = append(out, y)
	}
	sort.Strings(out)
	return out
}

// WaterConnectionModuleQuery loads the tax masters of the water service.
func WaterConnectionModuleQuery(tenantID core.TenantID) Query {
	return NewQuery(tenantID, ModuleDetail{
		ModuleName: ModuleWSTax,
		MasterDetails: []MasterDetail{
			{Name: MasterRebate},
			{Name: MasterWaterCess},
			{Name: MasterPenalty},
			{Name: MasterInterest},
			{Name: MasterBillingSlab},
			{Name: MasterCalculationAttribute, Filter: activeFilter("active")},
		},
	})
}

// EstimationMasterQuery loads the masters used for connection fee estimation.
func EstimationMasterQuery(tenantID core.TenantID) Query {
	isActive := activeFilter("isActive")
	return NewQuery(tenantID, ModuleDetail{
		ModuleName: ModuleWSTax,
		MasterDetails: []MasterDetail{
			{Name: MasterPlotSlab, Filter: isActive},
			{Name: MasterPropertyUsageType, Filter: isActive},
			{Name: MasterFeeSlab, Filter: isActive},
			{Name: MasterRoadType, Filter: isActive},
		},
	})
}

func BillingFrequencyQuery(tenantID core.TenantID) Query {
	return BuildModuleQuery([]string{MasterBillingPeriod}, ModuleWSMasters, tenantID, true)
}

// SchedulerBillingFrequencyQuery is BillingFrequencyQuery restricted to non metered connections.
func SchedulerBillingFrequencyQuery(tenantID core.TenantID) Query {
	filter := fmt.Sprintf("[?(@.active== true && @.connectionType== '%s')]", NonMeteredConnection)
	return NewQuery(tenantID, ModuleDetail{
		ModuleName:    ModuleWSMasters,
		MasterDetails: []MasterDetail{{Name: MasterBillingPeriod, Filter: filter}},
	})
}

// AllowedPaymentQuery loads the water service business service, which carries
// the allowed payment configuration.
func AllowedPaymentQuery(tenantID core.TenantID) Query {
	return NewQuery(tenantID, ModuleDetail{
		ModuleName: ModuleBillingService,
		MasterDetails: []MasterDetail{{
			Name:   MasterBusinessService,
			Filter: fmt.Sprintf("[?(@.code== '%s')]", ServiceCodeWS),
		}},
	})
}

func TenantHierarchyQuery(tenantID core.TenantID) Query {
	return BuildModuleQuery([]string{MasterProjectModule}, ModuleTenant, tenantID, false)
}

func BillingSlabQuery(tenantID core.TenantID) Query {
	return BuildModuleQuery([]string{MasterBillingSlab}, ModuleWSTax, tenantID, false)
}
