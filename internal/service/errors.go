package service

import "errors"

// Sentinel errors returned by the services. Handlers map them onto HTTP
// statuses; none of them implies a partial write.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrSelfOffer        = errors.New("cannot make an offer on your own listing")
	ErrRateLimited      = errors.New("too many offers on this listing in the last 24 hours")
	ErrOfferExpired     = errors.New("offer has expired")
	ErrNotPending       = errors.New("offer is no longer pending")
	ErrNotCountered     = errors.New("offer has no open counter")
	ErrNotAccepted      = errors.New("match is not in accepted state")
	ErrAlreadyConfirmed = errors.New("delivery already confirmed by this party")
	ErrInvalidState     = errors.New("entity is not in a state that allows this action")
	ErrNotAdmin         = errors.New("admin role required")
)
