package calls

// OriginationRequest asks the switch to dial one tenant extension from
// another. It is validated, authorized, and discarded; the resulting
// call's CDR is recorded elsewhere.
type OriginationRequest struct {
	Src         string `json:"src"`
	Destination string `json:"destination"`
	AccountID   int64  `json:"account_id"`

	// RequestingUserID comes from the authenticated identity, never the body.
	RequestingUserID string `json:"-"`
}
