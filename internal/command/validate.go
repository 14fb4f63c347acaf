package command

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/npezzotti/go-roomboard/internal/catalog"
	"github.com/npezzotti/go-roomboard/internal/types"
)

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return types.NewValidationError(field, "cannot be empty")
	}
	return nil
}

func validateTier(tier types.Tier) error {
	if err := required("tier", string(tier)); err != nil {
		return err
	}
	if !catalog.Known(tier) {
		return &types.ValidationError{
			Field:  "tier",
			Reason: fmt.Sprintf("unknown tier %q", tier),
			Err:    types.ErrUnknownTier,
		}
	}
	return nil
}

func validateRoomFields(f types.RoomFields) error {
	if err := required("room_id", f.RoomId); err != nil {
		return err
	}
	if err := required("password", f.Password); err != nil {
		return err
	}
	if err := validateTier(f.Tier); err != nil {
		return err
	}
	return required("game", f.Game)
}

func validateRoomUpdate(u types.RoomUpdate) error {
	if u.Empty() {
		return types.NewValidationError("update", "at least one field is required")
	}
	if u.RoomId != nil {
		if err := required("room_id", *u.RoomId); err != nil {
			return err
		}
	}
	if u.Password != nil {
		if err := required("password", *u.Password); err != nil {
			return err
		}
	}
	if u.Tier != nil {
		if err := validateTier(*u.Tier); err != nil {
			return err
		}
	}
	if u.Game != nil {
		if err := required("game", *u.Game); err != nil {
			return err
		}
	}
	return nil
}

func validateBulk(p types.BulkCreateParams) error {
	if err := required("prefix", p.Prefix); err != nil {
		return err
	}
	if p.Count < 1 || p.Count > MaxBulkCount {
		return types.NewValidationError("count", fmt.Sprintf("must be between 1 and %d", MaxBulkCount))
	}
	if err := required("password", p.Password); err != nil {
		return err
	}
	if err := validateTier(p.Tier); err != nil {
		return err
	}
	return required("game", p.Game)
}

func validateEmployee(p types.EmployeeParams) error {
	if err := required("name", p.Name); err != nil {
		return err
	}
	if err := required("email_address", p.EmailAddress); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(p.EmailAddress); err != nil {
		return types.NewValidationError("email_address", "must be a valid email address")
	}
	if len(p.Password) < 6 {
		return types.NewValidationError("password", "must be at least 6 characters")
	}
	return nil
}
