package authz

const (
	RoleAdmin     = "admin"
	RoleManager   = "manager"
	RoleBDM       = "business_development_manager"
	RoleBDE       = "business_development_executive"
	RoleAnonymous = "anonymous"
)

const (
	ActionRead  = "read"
	ActionWrite = "write"
	ActionAdmin = "admin"
)

const (
	ObjectIAMSession        = "iam.session"
	ObjectEmployeeRecords   = "employees.records"
	ObjectEmployeeHierarchy = "employees.hierarchy"
	ObjectAttendancePunches = "attendance.punches"
	ObjectVisitReports      = "reports.visits"
	ObjectSalesReports      = "reports.sales"
	ObjectDocumentFiles     = "documents.files"
	ObjectProductCatalog    = "products.catalog"
	ObjectEmployeeQuery     = "rules.query"
)
