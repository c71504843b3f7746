package payees

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
)

// Payee is a resolved payout destination.
type Payee struct {
	UserID    uuid.UUID
	AccountID string
	Payable   bool
}

// Service resolves who gets paid and whether they can be.
type Service interface {
	// ListingHost resolves a listing to its host and requires a payable account.
	ListingHost(ctx context.Context, listingID uuid.UUID) (*Payee, error)
	// Account reports the payout account of a host or seller without failing on
	// missing or incomplete onboarding.
	Account(ctx context.Context, userID uuid.UUID) (*Payee, error)
}

type service struct {
	repo Repository
}

// NewService wires the payee resolver.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payees repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListingHost(ctx context.Context, listingID uuid.UUID) (*Payee, error) {
	listing, err := s.repo.FindListing(ctx, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if listing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	payee, err := s.Account(ctx, listing.HostID)
	if err != nil {
		return nil, err
	}
	if !payee.Payable {
		return nil, pkgerrors.New(pkgerrors.CodePayeeNotPayable, "host has not completed payout onboarding").
			WithDetails(map[string]any{"host_id": listing.HostID})
	}
	return payee, nil
}

func (s *service) Account(ctx context.Context, userID uuid.UUID) (*Payee, error) {
	profile, err := s.repo.FindHostProfile(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load host profile")
	}
	payee := &Payee{UserID: userID}
	if profile == nil {
		return payee, nil
	}
	if profile.StripeAccountID != nil {
		payee.AccountID = *profile.StripeAccountID
	}
	payee.Payable = profile.Payable()
	return payee, nil
}
