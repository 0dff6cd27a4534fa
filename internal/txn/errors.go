package txn

import (
	"github.com/entidb/entidb/internal/errors"
	"github.com/entidb/entidb/internal/types"
)

func errClosed(state types.TxnState) error {
	switch state {
	case types.TxnCommitted, types.TxnAborted:
		return errors.Transaction("txn", errors.ErrTxnClosed)
	default:
		return errors.Transaction("txn", errors.ErrTxnNotActive)
	}
}
