package domain

import (
	"errors"
	"fmt"
	"testing"

	allocationdomain "github.com/smallbiznis/bonos/internal/allocation/domain"
	"github.com/smallbiznis/bonos/internal/authorization"
	catalogdomain "github.com/smallbiznis/bonos/internal/catalog/domain"
	qrtokendomain "github.com/smallbiznis/bonos/internal/qrtoken/domain"
	voucherdomain "github.com/smallbiznis/bonos/internal/voucher/domain"
	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	cases := map[error]string{
		nil: "",
		allocationdomain.ErrInsufficientAllocation: KindInsufficientAllocation,
		voucherdomain.ErrInvalidStateTransition:    KindInvalidStateTransition,
		qrtokendomain.ErrInvalidToken:              KindInvalidToken,
		voucherdomain.ErrNotFound:                  KindNotFound,
		ErrVoucherNotInTarget:                      KindNotFound,
		authorization.ErrForbidden:                 KindUnauthorized,
		catalogdomain.ErrNotEligible:               KindInvalidRequest,
		errors.New("connection reset"):             KindInternal,
	}
	for err, want := range cases {
		assert.Equal(t, want, Kind(err), fmt.Sprint(err))
	}
}

func TestKindUnwraps(t *testing.T) {
	err := fmt.Errorf("line 2: %w", allocationdomain.ErrInsufficientAllocation)
	assert.Equal(t, KindInsufficientAllocation, Kind(err))
}
