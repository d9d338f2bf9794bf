package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"loyalty-ledger/internal/model"
	"loyalty-ledger/internal/pkg/auth"
)

// AccountService translates identities into internal accounts.
type AccountService struct {
	accounts AccountStore
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(accounts AccountStore) *AccountService {
	return &AccountService{accounts: accounts}
}

// Resolve maps validated token claims to the canonical account, creating
// it on first sight. This is the only place the external subject is used.
func (s *AccountService) Resolve(ctx context.Context, claims *auth.Claims) (*model.Account, error) {
	if claims == nil || strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: token subject is required", model.ErrInvalidArgument)
	}

	acct, created, err := s.accounts.GetOrCreate(ctx, claims.Subject, claims.Name, claims.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}

	if created {
		log.Info().Int64("account_id", acct.ID).Msg("Account created")
		return acct, nil
	}

	// Keep display fields in line with the identity provider.
	name, email := acct.DisplayName, acct.Email
	if claims.Name != "" {
		name = claims.Name
	}
	if claims.Email != "" {
		email = claims.Email
	}
	if name != acct.DisplayName || email != acct.Email {
		if err := s.accounts.UpdateProfile(ctx, acct.ID, name, email); err != nil {
			log.Warn().Err(err).Int64("account_id", acct.ID).Msg("Failed to update account profile")
		} else {
			acct.DisplayName, acct.Email = name, email
		}
	}
	return acct, nil
}

// Get retrieves an account by its internal id.
func (s *AccountService) Get(ctx context.Context, id int64) (*model.Account, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: account id must be positive", model.ErrInvalidArgument)
	}
	return s.accounts.GetByID(ctx, id)
}
