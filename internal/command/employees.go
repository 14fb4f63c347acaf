package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/npezzotti/go-roomboard/internal/database"
	"github.com/npezzotti/go-roomboard/internal/notify"
	"github.com/npezzotti/go-roomboard/internal/types"
	"go.uber.org/zap"
)

const defaultGameId = "Not set"

func (s *Service) AddEmployee(ctx context.Context, params types.EmployeeParams) (types.Account, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.EmailAddress = strings.ToLower(strings.TrimSpace(params.EmailAddress))
	if err := validateEmployee(params); err != nil {
		return types.Account{}, err
	}

	hash, err := s.hash(params.Password)
	if err != nil {
		return types.Account{}, fmt.Errorf("hash password: %w", err)
	}

	gameId := strings.TrimSpace(params.GameId)
	if gameId == "" {
		gameId = defaultGameId
	}

	account, err := s.repo.CreateAccount(ctx, database.CreateAccountParams{
		Name:         params.Name,
		EmailAddress: params.EmailAddress,
		GameId:       gameId,
		PasswordHash: hash,
		Role:         types.RoleEmployee,
	})
	if errors.Is(err, types.ErrAlreadyExists) {
		return types.Account{}, &types.ValidationError{
			Field:  "email_address",
			Reason: "is already registered",
			Err:    err,
		}
	}
	if err != nil {
		return types.Account{}, fmt.Errorf("create employee: %w", err)
	}

	s.log.Info("employee added", zap.Int("account_id", account.Id))
	s.publish(ctx, notify.TopicAccounts)

	return account, nil
}

func (s *Service) ListEmployees(ctx context.Context) ([]types.Account, error) {
	accounts, err := s.repo.ListAccountsByRole(ctx, types.RoleEmployee)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return accounts, nil
}

// RemoveEmployee deletes an employee account. Accounts with any other role
// are reported as not found.
func (s *Service) RemoveEmployee(ctx context.Context, id int) error {
	if id <= 0 {
		return types.NewValidationError("id", "must be a positive integer")
	}

	account, err := s.repo.GetAccountById(ctx, id)
	if err != nil {
		return fmt.Errorf("get employee: %w", err)
	}
	if account.Role != types.RoleEmployee {
		return fmt.Errorf("get employee %d: %w", id, types.ErrNotFound)
	}

	if err := s.repo.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}

	s.log.Info("employee removed", zap.Int("account_id", id))
	s.publish(ctx, notify.TopicAccounts)
	return nil
}
