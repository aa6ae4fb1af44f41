package service

import "github.com/ffarras/multi-ad-login/internal/directory"

// Status classifies how an authentication attempt ended. Internal logs
// distinguish all of these; end users are only ever shown a generic failure
// so the stages cannot be told apart from outside.
type Status string

const (
	StatusSuccess Status = "success"
	// StatusInvalidCredentials is the expected wrong-password path, including
	// empty submitted credentials. Never retried.
	StatusInvalidCredentials Status = "invalid_credentials"
	// StatusNoProfile means routing produced no candidate profile.
	StatusNoProfile Status = "no_profile"
	// StatusDirectoryUnavailable covers network, TLS, service-bind and
	// fetch-stage failures. Operational, not a security event.
	StatusDirectoryUnavailable Status = "directory_unavailable"
	// StatusIncompleteData means the directory authenticated the user but
	// returned too few attributes to reconcile an account. A configuration
	// problem on the profile's directory.
	StatusIncompleteData Status = "incomplete_directory_data"
)

// Result is the outcome of one authentication attempt. On success it carries
// the normalized directory record and the name of the profile that produced
// it.
type Result struct {
	Status      Status
	Record      directory.Record
	ProfileName string
}

// Authenticated reports whether the attempt verified the credential pair.
func (r *Result) Authenticated() bool {
	return r != nil && r.Status == StatusSuccess
}

func failure(status Status) *Result {
	return &Result{Status: status}
}
