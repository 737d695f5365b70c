package memory

import (
	"fmt"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
)

// ErrNoTransaction возвращается, если LockDay вызван вне TxManager
var ErrNoTransaction = fmt.Errorf("%w: memory: day lock requires a transaction", domain.ErrStorage)
