package pid

// api_types.go contains the response types for the PID API (the request type is in types.go)

// MintResponse is returned by POST /pid/
type MintResponse struct {
	// PID is the resolver URL of the minted handle
	PID string `json:"pid" example:"https://hdl.handle.net/21.T12995/1.be8154c1a6aa4f44"`
}
