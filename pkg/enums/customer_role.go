package enums

// CustomerRole classifies accounts created by the platform.
type CustomerRole string

const (
	CustomerRoleRetailer CustomerRole = "retailer"
	CustomerRoleMerchant CustomerRole = "merchant"
)
