package server

import (
	"errors"
	"strings"

	"github.com/calebperk/crewledger/pkg/httperr"
	"github.com/jackc/pgx/v5/pgconn"
)

func newBadRequestError(msg string) error {
	return httperr.NewBadRequest(msg)
}

func isBadRequestError(err error) bool {
	return httperr.IsBadRequest(err)
}

func newNotFoundError(msg string) error {
	return httperr.NewNotFound(msg)
}

func isNotFoundError(err error) bool {
	return httperr.IsNotFound(err)
}

func pgErrorCode(err error) string {
	if pgErr, ok := errors.AsType[*pgconn.PgError](err); ok && pgErr != nil {
		return strings.TrimSpace(pgErr.Code)
	}
	return ""
}

func isPgInvalidInput(err error) bool {
	switch pgErrorCode(err) {
	case "22P02", "22003", "22007", "22008":
		return true
	default:
		return false
	}
}

// stablePgMessage maps known constraint violations to stable uppercase codes
// so API clients are not coupled to postgres message text.
func stablePgMessage(err error) string {
	if pgErr, ok := errors.AsType[*pgconn.PgError](err); ok && pgErr != nil {
		switch strings.TrimSpace(pgErr.ConstraintName) {
		case "employees_code_unique":
			return "EMPLOYEE_CODE_TAKEN"
		case "accounts_email_unique":
			return "ACCOUNT_EMAIL_TAKEN"
		case "products_sku_unique":
			return "PRODUCT_SKU_TAKEN"
		}
		msg := strings.TrimSpace(pgErr.Message)
		if msg != "" {
			return msg
		}
	}
	return err.Error()
}
