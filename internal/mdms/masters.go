package mdms

// Module names as registered in the master-data service.
const (
	ModuleWSTax          = "ws-services-calculation"
	ModuleWSMasters      = "ws-services-masters"
	ModuleFinancial      = "egf-master"
	ModuleBillingService = "BillingService"
	ModuleTenant         = "tenant"
)

// Master names. They are opaque identifiers passed through to the master-data service unchanged.
const (
	MasterRebate               = "Rebate"
	MasterWaterCess            = "WaterCess"
	MasterPenalty              = "Penalty"
	MasterInterest             = "Interest"
	MasterBillingSlab          = "WCBillingSlab"
	MasterCalculationAttribute = "CalculationAttribute"
	MasterPlotSlab             = "PlotSizeSlab"
	MasterPropertyUsageType    = "PropertyUsageType"
	MasterFeeSlab              = "FeeSlab"
	MasterRoadType             = "RoadType"
	MasterFinancialYear        = "FinancialYear"
	MasterBillingPeriod        = "billingPeriod"
	MasterBusinessService      = "BusinessService"
	MasterProjectModule        = "projectmodule"
)

const (
	FinancialYearRangeField = "finYearRange"
	ServiceCodeWS           = "WS"
	NonMeteredConnection    = "Non Metered"
)

// Extraction paths into an mdms search response.
const (
	PathMdmsRes        = "MdmsRes"
	PathBillingPeriod  = "MdmsRes." + ModuleWSMasters + "." + MasterBillingPeriod
	PathBillingService = "MdmsRes." + ModuleBillingService
	PathAllowedPayment = "MdmsRes." + ModuleBillingService + "." + MasterBusinessService
	PathProjectModule  = "MdmsRes." + ModuleTenant + "." + MasterProjectModule
	PathBillingSlab    = "MdmsRes." + ModuleWSTax + "." + MasterBillingSlab
)

// ModulePath returns the path of a module's sub-result in an mdms search response.
func ModulePath(moduleName string) string {
	return PathMdmsRes + "." + moduleName
}
