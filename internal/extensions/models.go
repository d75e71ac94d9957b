package extensions

// Endpoint is a tenant-scoped extension identity plus its live state.
//
// Multi-tenant invariant: AccountID is required on every row.
//
// Registered reflects the switch's view of the endpoint (an active SIP
// binding), pushed into storage out-of-band; this service only reads it.
type Endpoint struct {
	AccountID int64  `json:"account_id" db:"account_id"`
	Number    string `json:"number" db:"number"`

	// AssignedUserID is empty when the extension is provisioned but not
	// assigned to anyone.
	AssignedUserID string `json:"assigned_user_id,omitempty" db:"assigned_user_id"`

	Registered bool `json:"registered" db:"registered"`
}
